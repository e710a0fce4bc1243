package model

import "time"

// Exception is a persisted record of an unexpected runtime failure, kept for
// post-mortem inspection of scan and replay runs.
type Exception struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Component string    `gorm:"size:100;not null" json:"component"`
	Op        string    `gorm:"size:100;not null" json:"op"`
	Message   string    `gorm:"size:1024;not null" json:"message"`
	Level     string    `gorm:"size:20;not null;default:error" json:"level"`
	Context   string    `gorm:"size:1024" json:"context"`
	CreatedAt time.Time `json:"created_at"`
}
