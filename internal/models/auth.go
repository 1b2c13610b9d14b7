package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims represents the JWT payload for access tokens. NIM is set for
// students and resident assistants.
type JWTClaims struct {
	UserID string   `json:"user_id"`
	Role   UserRole `json:"role"`
	NIM    string   `json:"nim,omitempty"`
	Name   string   `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// IsStaff reports whether the caller manages other residents.
func (c *JWTClaims) IsStaff() bool {
	return c != nil && (c.Role == RoleAdmin || c.Role == RoleKasra)
}
