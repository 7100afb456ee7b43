package repository

import (
	"context"
	"errors"

	"github.com/CoertNiels/Beta/internal/cache"
	"github.com/CoertNiels/Beta/internal/models"

	"gorm.io/gorm"
)

// RoomRepository defines persistence operations for rooms.
type RoomRepository interface {
	List(ctx context.Context) ([]models.Room, error)
	Create(ctx context.Context, room *models.Room) error
	GetByID(ctx context.Context, id uint) (*models.Room, error)
	Exists(ctx context.Context, id uint) (bool, error)
}

type roomRepository struct {
	db *gorm.DB
}

// NewRoomRepository returns a new RoomRepository implementation.
func NewRoomRepository(db *gorm.DB) RoomRepository {
	return &roomRepository{db: db}
}

// List returns all rooms, served through the room-list cache.
func (r *roomRepository) List(ctx context.Context) ([]models.Room, error) {
	var rooms []models.Room
	err := cache.Aside(ctx, cache.RoomListKey, &rooms, cache.RoomListTTL, func() error {
		return r.db.WithContext(ctx).Order("id ASC").Find(&rooms).Error
	})
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return rooms, nil
}

// Create inserts a room. A name collision is a validation error and leaves
// no partial state behind.
func (r *roomRepository) Create(ctx context.Context, room *models.Room) error {
	if err := r.db.WithContext(ctx).Create(room).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewValidationError("A room with this name already exists. Please choose a different name.")
		}
		return models.NewInternalError(err)
	}
	cache.InvalidateRoomList(ctx)
	return nil
}

func (r *roomRepository) GetByID(ctx context.Context, id uint) (*models.Room, error) {
	var room models.Room
	if err := r.db.WithContext(ctx).First(&room, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Room", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &room, nil
}

func (r *roomRepository) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Room{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}
