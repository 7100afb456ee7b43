// Package seed provides helpers to create demo data for the chat
// database. These helpers are intended for development only.
package seed

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/CoertNiels/Beta/internal/models"
	"github.com/CoertNiels/Beta/internal/moderation"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// Factory builds chat entities and persists them to the database.
type Factory struct {
	db     *gorm.DB
	engine *moderation.Engine
	rand   *rand.Rand
}

// NewFactory creates a new Factory bound to the provided Gorm DB. The
// engine censors generated messages the same way the live pipeline
// would, so seeded history never contains raw prohibited words.
func NewFactory(db *gorm.DB, engine *moderation.Engine) *Factory {
	gofakeit.Seed(time.Now().UnixNano())
	return &Factory{
		db:     db,
		engine: engine,
		rand:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// CreateUser persists a user with a fake username.
func (f *Factory) CreateUser() (*models.User, error) {
	user := &models.User{
		Username: fmt.Sprintf("%s%d", gofakeit.Username(), f.rand.Intn(10000)),
		LastSeen: time.Now(),
	}
	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// CreateRoom persists a room owned by the given user.
func (f *Factory) CreateRoom(creator *models.User) (*models.Room, error) {
	room := &models.Room{
		Name:      fmt.Sprintf("%s-%s", gofakeit.HackerNoun(), gofakeit.Color()),
		CreatedBy: creator.Username,
	}
	if err := f.db.Create(room).Error; err != nil {
		return nil, err
	}
	return room, nil
}

// CreateMessages fills a room with chat history spread over the last
// few hours.
func (f *Factory) CreateMessages(room *models.Room, users []*models.User, count int) error {
	messages := make([]models.Message, 0, count)
	for i := 0; i < count; i++ {
		user := users[f.rand.Intn(len(users))]
		text := gofakeit.HackerPhrase()
		if f.engine != nil {
			text = f.engine.Censor(text)
		}
		messages = append(messages, models.Message{
			RoomID:    room.ID,
			Username:  user.Username,
			Text:      text,
			Timestamp: time.Now().Add(-time.Duration(count-i) * time.Minute),
		})
	}
	return f.db.CreateInBatches(messages, 100).Error
}
