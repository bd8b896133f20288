package models

import (
	"time"

	"github.com/google/uuid"
)

// TagColors is the fixed palette a tag color must be drawn from.
var TagColors = []string{"pink", "purple", "blue", "cyan", "green", "lime", "orange", "red", "amber", "gray"}

// ValidTagColor reports whether color belongs to the fixed palette.
func ValidTagColor(color string) bool {
	for _, c := range TagColors {
		if c == color {
			return true
		}
	}
	return false
}

type Tag struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string    `json:"name" gorm:"type:varchar(50);not null"`
	Color     string    `json:"color" gorm:"type:varchar(20);not null"`
	CreatedAt time.Time `json:"created_at" gorm:"default:CURRENT_TIMESTAMP"`
}
