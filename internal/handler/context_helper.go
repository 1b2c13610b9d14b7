package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/asrama-api/internal/middleware"
	"github.com/noah-isme/asrama-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// actorID names the caller for audit fields such as verified_by.
func actorID(c *gin.Context) string {
	claims := claimsFromContext(c)
	if claims == nil {
		return ""
	}
	if claims.NIM != "" {
		return claims.NIM
	}
	return claims.UserID
}

// scopedNIM returns the nim a listing must be limited to: students only
// ever see their own records, staff may pass ?nim= or see everything.
func scopedNIM(c *gin.Context) string {
	claims := claimsFromContext(c)
	if claims != nil && claims.Role == models.RoleStudent {
		return claims.NIM
	}
	return c.Query("nim")
}

func pageQuery(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	return page, size
}
