package models

import "time"

// Room is a chat room. Names are unique; rooms are immutable once created.
type Room struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;not null" json:"name"`
	CreatedBy string    `gorm:"index" json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM.
func (Room) TableName() string {
	return "rooms"
}
