package model

import "time"

// DefaultCategoryColor is applied when a category is created without one.
const DefaultCategoryColor = "#3b82f6"

// Category groups tasks by area (work, health, study, etc.).
// Categories belong to exactly one user.
type Category struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index" json:"user_id"`
	Name      string    `gorm:"size:255" json:"name"`
	Color     string    `gorm:"size:32;default:#3b82f6" json:"color"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
