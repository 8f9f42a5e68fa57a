package handlers

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/radical0coder/kafna/internal/config"
	"github.com/radical0coder/kafna/internal/middleware"
	"github.com/radical0coder/kafna/internal/models"
	"github.com/radical0coder/kafna/internal/services"
	"github.com/radical0coder/kafna/internal/utils"
)

const otpTTL = 10 * time.Minute

var phonePattern = regexp.MustCompile(`^09\d{9}$`)

var errInvalidOTP = errors.New("invalid otp")

// AuthHandler bundles dependencies for authentication endpoints.
type AuthHandler struct {
	db       *gorm.DB
	cfg      *config.Config
	sms      *services.SMSService
	telegram *services.TelegramService
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(db *gorm.DB, cfg *config.Config, sms *services.SMSService, telegram *services.TelegramService) *AuthHandler {
	return &AuthHandler{db: db, cfg: cfg, sms: sms, telegram: telegram}
}

type requestOTPRequest struct {
	PhoneNumber string `json:"phone_number"`
}

// RequestOTP generates a verification code for the phone number and sends it
// via SMS. Each phone number holds exactly one pending code; requesting again
// replaces it.
func (h *AuthHandler) RequestOTP(c *fiber.Ctx) error {
	var req requestOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid JSON.")
	}

	if req.PhoneNumber == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Phone number is required.")
	}

	if !phonePattern.MatchString(req.PhoneNumber) {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid phone number format.")
	}

	code, err := generateVerificationCode()
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to generate verification code.")
	}

	otp := models.OTP{
		PhoneNumber: req.PhoneNumber,
		Code:        code,
		ExpiresAt:   time.Now().Add(otpTTL),
	}

	if err := h.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "phone_number"}},
		DoUpdates: clause.AssignmentColumns([]string{"code", "expires_at", "updated_at"}),
	}).Create(&otp).Error; err != nil {
		return err
	}

	// Fire-and-forget: delivery failures are logged inside the service and
	// never surfaced to the caller.
	_ = h.sms.SendOTP(req.PhoneNumber, code)

	return c.JSON(fiber.Map{"status": "success", "message": "OTP sent successfully."})
}

type verifyOTPRequest struct {
	PhoneNumber string `json:"phone_number"`
	Code        string `json:"code"`
	FullName    string `json:"full_name"`
}

// VerifyOTP consumes the pending code for the phone number and logs the user
// in, creating the account on first verification.
func (h *AuthHandler) VerifyOTP(c *fiber.Ctx) error {
	var req verifyOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid JSON.")
	}

	if req.PhoneNumber == "" || req.Code == "" || req.FullName == "" {
		return fiber.NewError(fiber.StatusBadRequest, "All fields are required.")
	}

	// Consume-and-delete runs in one transaction with the row locked so two
	// concurrent attempts cannot both succeed against the same code.
	err := h.db.Transaction(func(tx *gorm.DB) error {
		var otp models.OTP
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("phone_number = ?", req.PhoneNumber).
			First(&otp).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errInvalidOTP
			}
			return err
		}

		if otp.Code != req.Code || time.Now().After(otp.ExpiresAt) {
			return errInvalidOTP
		}

		return tx.Delete(&otp).Error
	})
	if err != nil {
		if errors.Is(err, errInvalidOTP) {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid OTP code.")
		}
		return err
	}

	var user models.User
	result := h.db.Where("phone_number = ?", req.PhoneNumber).
		Attrs(models.User{FullName: req.FullName}).
		FirstOrCreate(&user)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected > 0 {
		_ = h.telegram.NotifyNewUser(user.PhoneNumber, user.FullName)
	}

	token, err := utils.GenerateToken(h.cfg.JWTSecret, user.ID, h.cfg.TokenExpires)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to generate token.")
	}

	return c.JSON(fiber.Map{
		"status":  "success",
		"message": "Login successful.",
		"token":   token,
		"user": fiber.Map{
			"id":           user.ID,
			"phone_number": user.PhoneNumber,
			"full_name":    user.FullName,
			"is_premium":   user.IsPremium,
		},
	})
}

// Logout exists for client parity. Tokens are stateless, so there is nothing
// to invalidate server-side.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if _, ok := middleware.GetCurrentUserID(c); !ok {
		return fiber.NewError(fiber.StatusForbidden, "Authentication required.")
	}
	return c.JSON(fiber.Map{"status": "success", "message": "Logged out."})
}

func generateVerificationCode() (string, error) {
	max := big.NewInt(1000000)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
