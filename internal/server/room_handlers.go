package server

import (
	"github.com/CoertNiels/Beta/internal/models"

	"github.com/gofiber/fiber/v2"
)

// CreateRoomRequest is the POST /rooms payload.
type CreateRoomRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
}

// GetRooms returns every room, oldest first.
func (s *Server) GetRooms(c *fiber.Ctx) error {
	rooms, err := s.chatService.ListRooms(c.UserContext())
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}
	return c.Status(fiber.StatusOK).JSON(rooms)
}

// CreateRoom creates a room and pushes the updated room list to every
// live websocket connection.
func (s *Server) CreateRoom(c *fiber.Ctx) error {
	var req CreateRoomRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationErrorWithDetails("Invalid request body", "expected JSON with name and username"))
	}

	room, err := s.chatService.CreateRoom(c.UserContext(), req.Name, req.Username)
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"id":   room.ID,
		"name": room.Name,
	})
}
