package handlers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/radical0coder/kafna/internal/middleware"
	"github.com/radical0coder/kafna/internal/models"
)

// ProfileHandler manages user profile endpoints.
type ProfileHandler struct {
	db *gorm.DB
}

// NewProfileHandler constructs ProfileHandler.
func NewProfileHandler(db *gorm.DB) *ProfileHandler {
	return &ProfileHandler{db: db}
}

// GetProfile returns the authenticated user's profile fields.
func (h *ProfileHandler) GetProfile(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusForbidden, "Authentication required.")
	}

	var user models.User
	if err := h.db.First(&user, "id = ?", userID).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"status": "success",
		"profile": fiber.Map{
			"phone_number": user.PhoneNumber,
			"full_name":    user.FullName,
			"address":      user.Address,
			"age":          user.Age,
			"about_me":     user.AboutMe,
			"is_premium":   user.IsPremium,
		},
	})
}

// UpdateProfile partially updates the allow-listed profile fields. The whole
// update is rejected when age is present but not numeric; nothing is persisted
// in that case.
func (h *ProfileHandler) UpdateProfile(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusForbidden, "Authentication required.")
	}

	var data map[string]any
	if err := c.BodyParser(&data); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid data.")
	}

	updates := map[string]any{}
	for _, field := range []string{"full_name", "address", "about_me"} {
		if value, present := data[field]; present {
			text, ok := value.(string)
			if !ok {
				return fiber.NewError(fiber.StatusBadRequest, "Invalid data.")
			}
			updates[field] = text
		}
	}

	if value, present := data["age"]; present {
		age, err := coerceAge(value)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid data.")
		}
		updates["age"] = age
	}

	if len(updates) == 0 {
		return c.JSON(fiber.Map{"status": "success", "message": "Profile updated successfully."})
	}

	if err := h.db.Model(&models.User{}).Where("id = ?", userID).Updates(updates).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"status": "success", "message": "Profile updated successfully."})
}

// GetUserRank computes the user's position among all users ordered by the
// number of completed assessments. Ties share a rank.
func (h *ProfileHandler) GetUserRank(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusForbidden, "Authentication required.")
	}

	type userCount struct {
		UserID string `json:"user_id"`
		Count  int64  `json:"count"`
	}

	var counts []userCount
	if err := h.db.Model(&models.User{}).
		Select("users.id as user_id, count(assessment_results.id) as count").
		Joins("LEFT JOIN assessment_results ON assessment_results.user_id = users.id").
		Group("users.id").
		Scan(&counts).Error; err != nil {
		return err
	}

	var own int64
	all := make([]int64, 0, len(counts))
	for _, uc := range counts {
		all = append(all, uc.Count)
		if uc.UserID == userID.String() {
			own = uc.Count
		}
	}

	return c.JSON(fiber.Map{
		"status":           "success",
		"rank":             RankAmong(all, own),
		"total_users":      len(counts),
		"assessment_count": own,
	})
}

// RankAmong returns 1 plus the number of counts strictly greater than own.
func RankAmong(counts []int64, own int64) int {
	rank := 1
	for _, count := range counts {
		if count > own {
			rank++
		}
	}
	return rank
}

// coerceAge converts the loosely typed age input to a nullable integer.
// Blank or null clears the stored value.
func coerceAge(value any) (*int, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, nil
		}
		parsed, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || parsed < 0 {
			return nil, errors.New("invalid age")
		}
		return &parsed, nil
	case float64:
		if v < 0 || v != float64(int(v)) {
			return nil, errors.New("invalid age")
		}
		age := int(v)
		return &age, nil
	default:
		return nil, errors.New("invalid age")
	}
}
