package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/CoertNiels/Beta/internal/config"
	"github.com/CoertNiels/Beta/internal/database"
	"github.com/CoertNiels/Beta/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestServer(t *testing.T) (*Server, *fiber.App) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	cfg := &config.Config{
		Port:           "0",
		Env:            "test",
		BlockThreshold: 3,
		HistoryLimit:   50,
	}

	srv, err := NewServerWithDeps(cfg, db, nil, []string{"idiot"})
	require.NoError(t, err)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	srv.SetupRoutes(app)
	return srv, app
}

func decodeBody(t *testing.T, body io.Reader, out any) {
	t.Helper()
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, out))
}

func TestGetRooms_EmptyList(t *testing.T) {
	_, app := setupTestServer(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/rooms", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var rooms []models.Room
	decodeBody(t, resp.Body, &rooms)
	assert.Empty(t, rooms)
}

func TestCreateRoom_Success(t *testing.T) {
	_, app := setupTestServer(t)

	body, _ := json.Marshal(CreateRoomRequest{Name: "general", Username: "alice"})
	req := httptest.NewRequest("POST", "/rooms", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var created struct {
		ID   uint   `json:"id"`
		Name string `json:"name"`
	}
	decodeBody(t, resp.Body, &created)
	assert.NotZero(t, created.ID)
	assert.Equal(t, "general", created.Name)

	// Created room shows up in the list
	listResp, err := app.Test(httptest.NewRequest("GET", "/rooms", nil))
	require.NoError(t, err)
	var rooms []models.Room
	decodeBody(t, listResp.Body, &rooms)
	require.Len(t, rooms, 1)
	assert.Equal(t, "general", rooms[0].Name)
}

func TestCreateRoom_DuplicateName(t *testing.T) {
	_, app := setupTestServer(t)

	body, _ := json.Marshal(CreateRoomRequest{Name: "general", Username: "alice"})
	req := httptest.NewRequest("POST", "/rooms", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	req = httptest.NewRequest("POST", "/rooms", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var errResp models.ErrorResponse
	decodeBody(t, resp.Body, &errResp)
	assert.Equal(t, "VALIDATION_ERROR", errResp.Code)
}

func TestCreateRoom_MissingFields(t *testing.T) {
	_, app := setupTestServer(t)

	cases := []CreateRoomRequest{
		{Name: "", Username: "alice"},
		{Name: "general", Username: ""},
	}
	for _, payload := range cases {
		body, _ := json.Marshal(payload)
		req := httptest.NewRequest("POST", "/rooms", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode, "payload %+v", payload)
	}
}

func TestCreateRoom_MalformedBody(t *testing.T) {
	_, app := setupTestServer(t)

	req := httptest.NewRequest("POST", "/rooms", bytes.NewReader([]byte(`{"name":`)))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestCreateRoom_BlockedCreatorGets403(t *testing.T) {
	srv, app := setupTestServer(t)

	// Seed a blocked user.
	require.NoError(t, srv.db.Create(&models.User{
		Username: "bob", BlockCount: 3, IsBlocked: true,
	}).Error)

	body, _ := json.Marshal(CreateRoomRequest{Name: "hideout", Username: "bob"})
	req := httptest.NewRequest("POST", "/rooms", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestHealthEndpoints(t *testing.T) {
	_, app := setupTestServer(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/health/live", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/health/ready", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
