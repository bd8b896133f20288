package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultTitle and DefaultDescription are the placeholder values a freshly
// submitted opportunity carries until refinement overwrites them.
const (
	DefaultTitle       = "Opportunity"
	DefaultDescription = "N/A"
)

// DefaultExpiryWindow is how long a new opportunity stays on the board when
// no expiration date is known.
const DefaultExpiryWindow = 30 * 24 * time.Hour

type Opportunity struct {
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Link        string     `json:"link" gorm:"type:text;not null"`
	Title       string     `json:"title" gorm:"type:varchar(100);not null"`
	Description string     `json:"description" gorm:"type:varchar(500);not null"`
	CompanyID   *uuid.UUID `json:"company_id"`
	PostedBy    uuid.UUID  `json:"posted_by" gorm:"type:uuid;not null"`

	CreatedAt           time.Time  `json:"created_at" gorm:"default:CURRENT_TIMESTAMP"`
	ExpiresAt           time.Time  `json:"expires_at" gorm:"not null"`
	LastExpirationCheck *time.Time `json:"last_expiration_check"`
	RefinedAt           *time.Time `json:"refined_at"`

	// Origin markers for chat-sourced opportunities; unique as a pair when
	// both are present.
	SlackChannelID *string `json:"slack_channel_id" gorm:"type:varchar(50)"`
	SlackMessageID *string `json:"slack_message_id" gorm:"type:varchar(50)"`
}

// Expired reports whether the opportunity has passed its expiration date.
func (o *Opportunity) Expired() bool {
	return !o.ExpiresAt.After(time.Now())
}

// FromSlack reports whether the opportunity originated from a chat message.
func (o *Opportunity) FromSlack() bool {
	return o.SlackChannelID != nil && o.SlackMessageID != nil
}

// OpportunityDetails is the composed detail view served to the frontend.
type OpportunityDetails struct {
	Opportunity
	CompanyName   *string `json:"company_name"`
	PosterName    string  `json:"poster_name"`
	BookmarkCount int     `json:"bookmark_count"`
	Bookmarked    bool    `json:"bookmarked"`
	CanEdit       bool    `json:"can_edit"`
	Tags          []Tag   `json:"tags"`
	SourceMessage *string `json:"source_message,omitempty"`
}

// OpportunitySummary is the condensed list view.
type OpportunitySummary struct {
	ID            uuid.UUID `json:"id"`
	Title         string    `json:"title"`
	Link          string    `json:"link"`
	CompanyName   *string   `json:"company_name"`
	CreatedAt     time.Time `json:"created_at"`
	ExpiresAt     time.Time `json:"expires_at"`
	BookmarkCount int       `json:"bookmark_count"`
	Tags          []Tag     `json:"tags"`
}
