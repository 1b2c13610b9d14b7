package models

import "time"

// AnnouncementAudience defines who can see an announcement.
type AnnouncementAudience string

const (
	AudienceAll     AnnouncementAudience = "ALL"
	AudienceStudent AnnouncementAudience = "STUDENT"
	AudienceKasra   AnnouncementAudience = "KASRA"
)

// Announcement is a notice published by the dormitory office.
type Announcement struct {
	ID          string               `json:"id"`
	Title       string               `json:"title"`
	Content     string               `json:"content"`
	Audience    AnnouncementAudience `json:"audience"`
	Pinned      bool                 `json:"pinned"`
	PublishedAt time.Time            `json:"published_at"`
	ExpiresAt   *time.Time           `json:"expires_at,omitempty"`
	CreatedBy   string               `json:"created_by"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

// VisibleTo reports whether a caller with role sees the announcement at now.
func (a Announcement) VisibleTo(role UserRole, now time.Time) bool {
	if a.PublishedAt.After(now) && role != RoleAdmin {
		return false
	}
	if a.ExpiresAt != nil && !a.ExpiresAt.After(now) && role != RoleAdmin {
		return false
	}
	switch a.Audience {
	case AudienceAll:
		return true
	case AudienceStudent:
		return role == RoleStudent || role == RoleAdmin
	case AudienceKasra:
		return role == RoleKasra || role == RoleAdmin
	}
	return false
}
