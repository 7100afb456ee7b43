package repository

import (
	"context"
	"time"

	"github.com/CoertNiels/Beta/internal/models"

	"gorm.io/gorm"
)

// MessageRepository defines persistence operations for messages. Messages
// arrive already censored; this layer never sees original text.
type MessageRepository interface {
	Insert(ctx context.Context, msg *models.Message) error
	ListRecent(ctx context.Context, roomID uint, limit int) ([]models.Message, error)
}

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository returns a new MessageRepository implementation.
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Insert(ctx context.Context, msg *models.Message) error {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// ListRecent returns up to limit of the newest messages in the room,
// ordered oldest to newest. The query fetches DESC to pick the latest
// rows, then reverses for the client.
func (r *messageRepository) ListRecent(ctx context.Context, roomID uint, limit int) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("timestamp DESC, id DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}
