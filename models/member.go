package models

import (
	"time"

	"github.com/google/uuid"
)

// Member roles. Admins get elevated moderation rights; a single admin report
// is enough to pull an opportunity off the board.
const (
	RoleMember     = "member"
	RoleAmbassador = "ambassador"
	RoleAdmin      = "admin"
)

type Member struct {
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email       string     `json:"email" gorm:"type:varchar(255);not null;uniqueIndex"`
	FirstName   string     `json:"first_name" gorm:"type:varchar(100);not null"`
	LastName    string     `json:"last_name" gorm:"type:varchar(100);not null"`
	Role        string     `json:"role" gorm:"type:varchar(20);not null;default:'member'"`
	SlackUserID *string    `json:"slack_user_id,omitempty" gorm:"type:varchar(50);uniqueIndex"`
	JoinedAt    time.Time  `json:"joined_at" gorm:"default:CURRENT_TIMESTAMP"`
	DeletedAt   *time.Time `json:"deleted_at"`
}

// ActiveAdmin reports whether the member is a non-deleted admin.
func (m *Member) ActiveAdmin() bool {
	return m.Role == RoleAdmin && m.DeletedAt == nil
}
