package models

import "time"

// SlackMessage is a mirrored chat message; chat-sourced opportunities are
// keyed on the (channel, message) pair.
type SlackMessage struct {
	ChannelID string    `json:"channel_id" gorm:"type:varchar(50);primaryKey"`
	MessageID string    `json:"message_id" gorm:"type:varchar(50);primaryKey"`
	UserID    string    `json:"user_id" gorm:"type:varchar(50);not null"`
	Text      string    `json:"text" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at" gorm:"default:CURRENT_TIMESTAMP"`
}
