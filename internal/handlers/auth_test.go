package handlers

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/radical0coder/kafna/internal/config"
	"github.com/radical0coder/kafna/internal/services"
)

func setupTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	silent := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{LogLevel: logger.Silent},
	)

	dialector := postgres.New(postgres.Config{
		DSN:                  "sqlmock_db_0",
		DriverName:           "postgres",
		Conn:                 mockDB,
		PreferSimpleProtocol: true,
	})

	db, err := gorm.Open(dialector, &gorm.Config{Logger: silent})
	if err != nil {
		t.Fatalf("failed to open gorm: %v", err)
	}

	return db, mock
}

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:    "test-secret",
		TokenExpires: time.Hour,
	}
}

func postJSON(t *testing.T, app *fiber.App, path string, payload any) *http.Response {
	t.Helper()

	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func TestRequestOTPRejectsMalformedPhone(t *testing.T) {
	handler := NewAuthHandler(nil, testConfig(), services.NewSMSService("", ""), services.NewTelegramService("", ""))

	app := fiber.New()
	app.Post("/api/auth/request-otp", handler.RequestOTP)

	for _, phone := range []string{"", "0912345678", "091234567890", "19123456789", "0912345678a"} {
		resp := postJSON(t, app, "/api/auth/request-otp", map[string]string{"phone_number": phone})
		if resp.StatusCode != fiber.StatusBadRequest {
			t.Fatalf("phone %q: expected 400, got %d", phone, resp.StatusCode)
		}
	}
}

func TestRequestOTPReplacesPendingCode(t *testing.T) {
	db, mock := setupTestDB(t)
	handler := NewAuthHandler(db, testConfig(), services.NewSMSService("", ""), services.NewTelegramService("", ""))

	app := fiber.New()
	app.Post("/api/auth/request-otp", handler.RequestOTP)

	// The upsert keys on phone_number, so a second request overwrites the
	// pending code instead of stacking a new row next to it.
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "otps" (.+) ON CONFLICT \("phone_number"\) DO UPDATE`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	resp := postJSON(t, app, "/api/auth/request-otp", map[string]string{"phone_number": "09123456789"})

	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Status != "success" {
		t.Fatalf("expected success, got %+v", body)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestVerifyOTPConsumesCode(t *testing.T) {
	db, mock := setupTestDB(t)
	cfg := testConfig()
	handler := NewAuthHandler(db, cfg, services.NewSMSService("", ""), services.NewTelegramService("", ""))

	app := fiber.New()
	app.Post("/api/auth/verify-otp", handler.VerifyOTP)

	otpID := uuid.New().String()
	userID := uuid.New().String()
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "otps"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at", "phone_number", "code", "expires_at"}).
			AddRow(otpID, now, now, "09123456789", "123456", now.Add(5*time.Minute)))
	mock.ExpectExec(`DELETE FROM "otps"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mock.ExpectQuery(`SELECT (.+) FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "phone_number", "full_name", "is_premium"}).
			AddRow(userID, "09123456789", "Sara Ahmadi", false))

	resp := postJSON(t, app, "/api/auth/verify-otp", map[string]string{
		"phone_number": "09123456789",
		"code":         "123456",
		"full_name":    "Sara Ahmadi",
	})

	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body struct {
		Status string `json:"status"`
		Token  string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Status != "success" || body.Token == "" {
		t.Fatalf("expected success with token, got %+v", body)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestVerifyOTPWrongCode(t *testing.T) {
	db, mock := setupTestDB(t)
	handler := NewAuthHandler(db, testConfig(), services.NewSMSService("", ""), services.NewTelegramService("", ""))

	app := fiber.New()
	app.Post("/api/auth/verify-otp", handler.VerifyOTP)

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "otps"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at", "phone_number", "code", "expires_at"}).
			AddRow(uuid.New().String(), now, now, "09123456789", "654321", now.Add(5*time.Minute)))
	mock.ExpectRollback()

	resp := postJSON(t, app, "/api/auth/verify-otp", map[string]string{
		"phone_number": "09123456789",
		"code":         "123456",
		"full_name":    "Sara Ahmadi",
	})

	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestVerifyOTPExpiredCode(t *testing.T) {
	db, mock := setupTestDB(t)
	handler := NewAuthHandler(db, testConfig(), services.NewSMSService("", ""), services.NewTelegramService("", ""))

	app := fiber.New()
	app.Post("/api/auth/verify-otp", handler.VerifyOTP)

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "otps"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at", "phone_number", "code", "expires_at"}).
			AddRow(uuid.New().String(), now.Add(-time.Hour), now.Add(-time.Hour), "09123456789", "123456", now.Add(-50*time.Minute)))
	mock.ExpectRollback()

	resp := postJSON(t, app, "/api/auth/verify-otp", map[string]string{
		"phone_number": "09123456789",
		"code":         "123456",
		"full_name":    "Sara Ahmadi",
	})

	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400 for expired code, got %d", resp.StatusCode)
	}

	// No DELETE was expected: the stale row must survive the failed attempt.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestVerifyOTPNoPendingCode(t *testing.T) {
	db, mock := setupTestDB(t)
	handler := NewAuthHandler(db, testConfig(), services.NewSMSService("", ""), services.NewTelegramService("", ""))

	app := fiber.New()
	app.Post("/api/auth/verify-otp", handler.VerifyOTP)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "otps"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at", "phone_number", "code", "expires_at"}))
	mock.ExpectRollback()

	resp := postJSON(t, app, "/api/auth/verify-otp", map[string]string{
		"phone_number": "09123456789",
		"code":         "123456",
		"full_name":    "Sara Ahmadi",
	})

	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestVerifyOTPRequiresAllFields(t *testing.T) {
	handler := NewAuthHandler(nil, testConfig(), services.NewSMSService("", ""), services.NewTelegramService("", ""))

	app := fiber.New()
	app.Post("/api/auth/verify-otp", handler.VerifyOTP)

	resp := postJSON(t, app, "/api/auth/verify-otp", map[string]string{
		"phone_number": "09123456789",
		"code":         "123456",
	})

	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400 when full_name missing, got %d", resp.StatusCode)
	}
}

func TestGenerateVerificationCode(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := generateVerificationCode()
		if err != nil {
			t.Fatalf("generate error: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("expected 6 digits, got %q", code)
		}
		for _, r := range code {
			if r < '0' || r > '9' {
				t.Fatalf("non-digit in code %q", code)
			}
		}
	}
}
