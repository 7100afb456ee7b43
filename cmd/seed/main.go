// Command seed populates the chat database with demo users, rooms and
// message history.
package main

import (
	"flag"
	"log"

	"github.com/CoertNiels/Beta/internal/config"
	"github.com/CoertNiels/Beta/internal/database"
	"github.com/CoertNiels/Beta/internal/moderation"
	"github.com/CoertNiels/Beta/internal/models"
	"github.com/CoertNiels/Beta/internal/seed"
)

func main() {
	userCount := flag.Int("users", 10, "Number of users to create")
	roomCount := flag.Int("rooms", 3, "Number of rooms to create")
	messageCount := flag.Int("messages", 80, "Messages per room")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	words, err := moderation.LoadWordList(cfg.WordListPath)
	if err != nil {
		log.Fatalf("Failed to load word list: %v", err)
	}

	factory := seed.NewFactory(db, moderation.NewEngine(words))

	users := make([]*models.User, 0, *userCount)
	for i := 0; i < *userCount; i++ {
		user, err := factory.CreateUser()
		if err != nil {
			log.Fatalf("Failed to create user: %v", err)
		}
		users = append(users, user)
	}
	log.Printf("Created %d users", len(users))

	for i := 0; i < *roomCount; i++ {
		creator := users[i%len(users)]
		room, err := factory.CreateRoom(creator)
		if err != nil {
			log.Fatalf("Failed to create room: %v", err)
		}
		if err := factory.CreateMessages(room, users, *messageCount); err != nil {
			log.Fatalf("Failed to create messages for room %d: %v", room.ID, err)
		}
		log.Printf("Created room %q with %d messages", room.Name, *messageCount)
	}

	log.Println("Seeding complete")
}
