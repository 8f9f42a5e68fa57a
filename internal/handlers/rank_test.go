package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/radical0coder/kafna/internal/middleware"
	"github.com/radical0coder/kafna/internal/utils"
)

func TestGetUserRankTiesShareRank(t *testing.T) {
	db, mock := setupTestDB(t)
	cfg := testConfig()
	handler := NewProfileHandler(db)

	app := fiber.New()
	app.Get("/api/user-rank", middleware.AuthMiddleware(cfg), handler.GetUserRank)

	userID := uuid.New()
	token, err := utils.GenerateToken(cfg.JWTSecret, userID, time.Hour)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}

	mock.ExpectQuery(`SELECT users.id as user_id`).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "count"}).
			AddRow(uuid.New().String(), 5).
			AddRow(userID.String(), 3).
			AddRow(uuid.New().String(), 3).
			AddRow(uuid.New().String(), 1))

	req := httptest.NewRequest(http.MethodGet, "/api/user-rank", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body struct {
		Status          string `json:"status"`
		Rank            int    `json:"rank"`
		TotalUsers      int    `json:"total_users"`
		AssessmentCount int64  `json:"assessment_count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if body.Rank != 2 {
		t.Fatalf("expected rank 2, got %d", body.Rank)
	}
	if body.TotalUsers != 4 {
		t.Fatalf("expected 4 users, got %d", body.TotalUsers)
	}
	if body.AssessmentCount != 3 {
		t.Fatalf("expected own count 3, got %d", body.AssessmentCount)
	}
}

func TestUserRankRequiresAuth(t *testing.T) {
	db, _ := setupTestDB(t)
	handler := NewProfileHandler(db)

	app := fiber.New()
	app.Get("/api/user-rank", middleware.AuthMiddleware(testConfig()), handler.GetUserRank)

	req := httptest.NewRequest(http.MethodGet, "/api/user-rank", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	if resp.StatusCode != fiber.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}
