package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/radical0coder/kafna/internal/middleware"
	"github.com/radical0coder/kafna/internal/models"
	"github.com/radical0coder/kafna/internal/services"
)

// premiumCodes is the fixed allow-list for direct redemption. This path does
// not consult the promo_codes table.
var premiumCodes = map[string]bool{
	"KAFNA_VIP": true,
	"KAFNA50":   true,
}

// PremiumHandler manages promo-code and mock-payment endpoints.
type PremiumHandler struct {
	db       *gorm.DB
	telegram *services.TelegramService
}

// NewPremiumHandler constructs PremiumHandler.
func NewPremiumHandler(db *gorm.DB, telegram *services.TelegramService) *PremiumHandler {
	return &PremiumHandler{db: db, telegram: telegram}
}

type redeemCodeRequest struct {
	Code string `json:"code"`
}

// RedeemCode upgrades the account to premium when the code is on the fixed
// allow-list.
func (h *PremiumHandler) RedeemCode(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusForbidden, "Authentication required.")
	}

	var req redeemCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid JSON.")
	}

	if !premiumCodes[NormalizeCode(req.Code)] {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid code.")
	}

	if err := h.db.Model(&models.User{}).Where("id = ?", userID).
		Update("is_premium", true).Error; err != nil {
		return err
	}

	var user models.User
	if err := h.db.Select("phone_number").First(&user, "id = ?", userID).Error; err == nil {
		_ = h.telegram.NotifyPremiumUpgrade(user.PhoneNumber, "redeem code", 0)
	}

	return c.JSON(fiber.Map{"status": "success", "message": "Premium activated."})
}

type validatePromoRequest struct {
	Code      string  `json:"code"`
	BasePrice float64 `json:"base_price"`
}

// ValidatePromoCode looks up an active stored promo code and returns the
// discount it yields on the given base price.
func (h *PremiumHandler) ValidatePromoCode(c *fiber.Ctx) error {
	if _, ok := middleware.GetCurrentUserID(c); !ok {
		return fiber.NewError(fiber.StatusForbidden, "Authentication required.")
	}

	var req validatePromoRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid JSON.")
	}

	var promo models.PromoCode
	err := h.db.Where("code = ? AND is_active = ?", NormalizeCode(req.Code), true).
		First(&promo).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "Promo code not found.")
		}
		return err
	}

	return c.JSON(fiber.Map{
		"status":           "success",
		"code":             promo.Code,
		"discount_percent": promo.DiscountPercent,
		"discount_amount":  promo.Discount(req.BasePrice),
	})
}

type requestPaymentRequest struct {
	Amount    float64 `json:"amount"`
	PromoCode string  `json:"promo_code"`
}

// RequestPayment is a mock payment confirmation: it upgrades the account
// unconditionally, with no gateway integration and no amount validation.
func (h *PremiumHandler) RequestPayment(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusForbidden, "Authentication required.")
	}

	var req requestPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid JSON.")
	}

	if err := h.db.Model(&models.User{}).Where("id = ?", userID).
		Update("is_premium", true).Error; err != nil {
		return err
	}

	var user models.User
	if err := h.db.Select("phone_number").First(&user, "id = ?", userID).Error; err == nil {
		_ = h.telegram.NotifyPremiumUpgrade(user.PhoneNumber, "payment", req.Amount)
	}

	return c.JSON(fiber.Map{"status": "success", "message": "Payment confirmed."})
}

// NormalizeCode trims whitespace and uppercases a promo code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
