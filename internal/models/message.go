package models

import "time"

// Message is a chat message. Text is stored in its censored form only;
// the original uncensored text never reaches persistence. Messages are
// immutable and never deleted.
type Message struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	RoomID    uint      `gorm:"not null;index" json:"room_id"`
	Username  string    `gorm:"not null" json:"username"`
	Text      string    `gorm:"column:message;type:text;not null" json:"message"`
	Timestamp time.Time `gorm:"index" json:"timestamp"`
}

// TableName specifies the table name for GORM.
func (Message) TableName() string {
	return "messages"
}
