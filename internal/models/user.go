// Package models contains data structures for the application's domain models.
package models

import "time"

// User is a chat participant identified by a unique username. Users are
// created on first registration and never deleted; the moderation pipeline
// mutates BlockCount and IsBlocked, registration touches LastSeen.
type User struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Username   string    `gorm:"uniqueIndex;not null" json:"username"`
	LastSeen   time.Time `json:"last_seen"`
	CreatedAt  time.Time `json:"created_at"`
	BlockCount int       `gorm:"not null;default:0" json:"block_count"`
	IsBlocked  bool      `gorm:"not null;default:false" json:"is_blocked"`
}

// TableName specifies the table name for GORM.
func (User) TableName() string {
	return "users"
}
