// Package repository implements the data access layer for the application.
package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/CoertNiels/Beta/internal/cache"
	"github.com/CoertNiels/Beta/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository defines persistence operations for users, including the
// block-count bookkeeping the abuse escalation relies on.
type UserRepository interface {
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Register(ctx context.Context, username string) (*models.User, error)
	IsBlocked(ctx context.Context, username string) (bool, error)
	IncrementBlockCount(ctx context.Context, username string, threshold int) (blockCount int, isBlocked bool, err error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// GetByUsername returns the user or (nil, nil) when no such user exists.
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

// Register creates the user on first sight and touches last_seen on every
// call. The upsert is a single statement so repeated registration is
// idempotent and never produces partial state.
func (r *userRepository) Register(ctx context.Context, username string) (*models.User, error) {
	now := time.Now()
	user := models.User{
		Username: username,
		LastSeen: now,
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "username"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"last_seen": now}),
		}).
		Create(&user).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	cache.InvalidateUser(ctx, username)
	return r.reload(ctx, username)
}

// IsBlocked reports the user's block flag through a short-TTL cache.
// Unknown users are not blocked.
func (r *userRepository) IsBlocked(ctx context.Context, username string) (bool, error) {
	var user models.User
	err := cache.Aside(ctx, cache.UserKey(username), &user, cache.UserTTL, func() error {
		if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, models.NewInternalError(err)
	}
	return user.IsBlocked, nil
}

// IncrementBlockCount bumps block_count by one and flips is_blocked when
// the new count reaches the threshold, in one conditional UPDATE so
// concurrent increments from the same user cannot be lost.
func (r *userRepository) IncrementBlockCount(ctx context.Context, username string, threshold int) (int, bool, error) {
	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("username = ?", username).
		Updates(map[string]interface{}{
			"block_count": gorm.Expr("block_count + 1"),
			"is_blocked":  gorm.Expr("block_count + 1 >= ?", threshold),
		})
	if res.Error != nil {
		return 0, false, models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, false, models.NewNotFoundError("User", username)
	}

	cache.InvalidateUser(ctx, username)

	user, err := r.reload(ctx, username)
	if err != nil {
		return 0, false, err
	}
	return user.BlockCount, user.IsBlocked, nil
}

func (r *userRepository) reload(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

// isUniqueConstraintError recognizes duplicate-key failures from both
// supported drivers.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}
