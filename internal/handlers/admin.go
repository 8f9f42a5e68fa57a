package handlers

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/radical0coder/kafna/internal/config"
	"github.com/radical0coder/kafna/internal/models"
	"github.com/radical0coder/kafna/internal/utils"
)

// AdminHandler manages staff-only endpoints: catalog authoring and oversight
// of users and assessment results.
type AdminHandler struct {
	db  *gorm.DB
	cfg *config.Config
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(db *gorm.DB, cfg *config.Config) *AdminHandler {
	return &AdminHandler{db: db, cfg: cfg}
}

type adminLoginRequest struct {
	PhoneNumber string `json:"phone_number"`
	Password    string `json:"password"`
}

// Login authenticates a staff account with phone number and password.
func (h *AdminHandler) Login(c *fiber.Ctx) error {
	var req adminLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid JSON.")
	}

	var user models.User
	if err := h.db.Where("phone_number = ? AND is_staff = ?", req.PhoneNumber, true).
		First(&user).Error; err != nil {
		return fiber.NewError(fiber.StatusForbidden, "Invalid credentials.")
	}

	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		return fiber.NewError(fiber.StatusForbidden, "Invalid credentials.")
	}

	token, err := utils.GenerateToken(h.cfg.JWTSecret, user.ID, h.cfg.TokenExpires)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to generate token.")
	}

	return c.JSON(fiber.Map{"status": "success", "token": token})
}

// DashboardStats returns aggregate statistics for the admin dashboard.
func (h *AdminHandler) DashboardStats(c *fiber.Ctx) error {
	var totalUsers int64
	if err := h.db.Model(&models.User{}).Count(&totalUsers).Error; err != nil {
		return err
	}

	var premiumUsers int64
	if err := h.db.Model(&models.User{}).Where("is_premium = ?", true).
		Count(&premiumUsers).Error; err != nil {
		return err
	}

	var totalResults int64
	if err := h.db.Model(&models.AssessmentResult{}).Count(&totalResults).Error; err != nil {
		return err
	}

	type testCount struct {
		TestID string `json:"test_id"`
		Count  int64  `json:"count"`
	}
	var testCounts []testCount
	if err := h.db.Model(&models.AssessmentResult{}).
		Select("test_id, count(*) as count").
		Group("test_id").
		Scan(&testCounts).Error; err != nil {
		return err
	}

	resultsByTest := make(map[string]int64)
	for _, tc := range testCounts {
		resultsByTest[tc.TestID] = tc.Count
	}

	return c.JSON(fiber.Map{
		"status": "success",
		"data": fiber.Map{
			"total_users":     totalUsers,
			"premium_users":   premiumUsers,
			"total_results":   totalResults,
			"results_by_test": resultsByTest,
		},
	})
}

// ListUsers returns all users with their assessment counts.
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	query := h.db.Model(&models.User{})

	if search := c.Query("search"); search != "" {
		query = query.Where(
			"phone_number ILIKE ? OR full_name ILIKE ?",
			"%"+search+"%", "%"+search+"%",
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var users []models.User
	if err := query.Select("id, phone_number, full_name, address, age, is_premium, is_staff, created_at, updated_at").
		Order("created_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&users).Error; err != nil {
		return err
	}

	type userStats struct {
		UserID          string `json:"user_id"`
		AssessmentCount int64  `json:"assessment_count"`
	}

	var stats []userStats
	h.db.Model(&models.AssessmentResult{}).
		Select("user_id, count(*) as assessment_count").
		Group("user_id").
		Scan(&stats)

	statsMap := make(map[string]int64)
	for _, s := range stats {
		statsMap[s.UserID] = s.AssessmentCount
	}

	type userResponse struct {
		models.User
		AssessmentCount int64 `json:"assessment_count"`
	}

	result := make([]userResponse, len(users))
	for i, u := range users {
		result[i] = userResponse{User: u, AssessmentCount: statsMap[u.ID.String()]}
	}

	return c.JSON(fiber.Map{
		"status": "success",
		"data":   result,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}

// ListResults returns assessment results with user and test context.
func (h *AdminHandler) ListResults(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	query := h.db.Model(&models.AssessmentResult{})

	if testID := c.Query("test_id"); testID != "" {
		query = query.Where("test_id = ?", testID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var results []models.AssessmentResult
	if err := query.Preload("User").Preload("Test").
		Order("created_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&results).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"status": "success",
		"data":   results,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}

// Job CRUD

type jobRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ListJobs returns the job catalog.
func (h *AdminHandler) ListJobs(c *fiber.Ctx) error {
	var jobs []models.Job
	if err := h.db.Order("name").Find(&jobs).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "success", "data": jobs})
}

// CreateJob adds a job catalog entry.
func (h *AdminHandler) CreateJob(c *fiber.Ctx) error {
	var req jobRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid JSON.")
	}
	if req.Name == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Name is required.")
	}

	job := models.Job{Name: req.Name, Description: req.Description}
	if err := h.db.Create(&job).Error; err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"status": "success", "data": job})
}

type updateJobRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// UpdateJob updates a job catalog entry. Absent fields keep their stored
// values.
func (h *AdminHandler) UpdateJob(c *fiber.Ctx) error {
	jobID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid id.")
	}

	var req updateJobRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid JSON.")
	}

	var job models.Job
	if err := h.db.First(&job, "id = ?", jobID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "Job not found.")
		}
		return err
	}

	if req.Name != nil {
		job.Name = *req.Name
	}
	if req.Description != nil {
		job.Description = *req.Description
	}
	if err := h.db.Save(&job).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"status": "success", "data": job})
}

// DeleteJob removes a job catalog entry.
func (h *AdminHandler) DeleteJob(c *fiber.Ctx) error {
	jobID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid id.")
	}

	if err := h.db.Delete(&models.Job{}, "id = ?", jobID).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"status": "success", "message": "Job deleted."})
}

// Test CRUD

type testRequest struct {
	Name                string          `json:"name"`
	Description         string          `json:"description"`
	Questions           json.RawMessage `json:"questions"`
	SystemPrompt        string          `json:"system_prompt"`
	RelatedJobID        *uuid.UUID      `json:"related_job_id"`
	IsPrimaryAssessment bool            `json:"is_primary_assessment"`
	Order               int             `json:"order"`
}

// ListAllTests returns every test, including the primary assessment.
func (h *AdminHandler) ListAllTests(c *fiber.Ctx) error {
	var tests []models.Test
	if err := h.db.Preload("RelatedJob").Order("display_order").Find(&tests).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "success", "data": tests})
}

// CreateTest adds a test definition.
func (h *AdminHandler) CreateTest(c *fiber.Ctx) error {
	var req testRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid JSON.")
	}
	if req.Name == "" || len(req.Questions) == 0 || req.SystemPrompt == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Name, questions and system_prompt are required.")
	}

	test := models.Test{
		Name:                req.Name,
		Description:         req.Description,
		Questions:           datatypes.JSON(req.Questions),
		SystemPrompt:        req.SystemPrompt,
		RelatedJobID:        req.RelatedJobID,
		IsPrimaryAssessment: req.IsPrimaryAssessment,
		DisplayOrder:        req.Order,
	}
	if err := h.db.Create(&test).Error; err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"status": "success", "data": test})
}

type updateTestRequest struct {
	Name                *string         `json:"name"`
	Description         *string         `json:"description"`
	Questions           json.RawMessage `json:"questions"`
	SystemPrompt        *string         `json:"system_prompt"`
	RelatedJobID        *uuid.UUID      `json:"related_job_id"`
	IsPrimaryAssessment *bool           `json:"is_primary_assessment"`
	Order               *int            `json:"order"`
}

// UpdateTest updates a test definition. Absent fields keep their stored
// values.
func (h *AdminHandler) UpdateTest(c *fiber.Ctx) error {
	testID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid id.")
	}

	var req updateTestRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid JSON.")
	}

	var test models.Test
	if err := h.db.First(&test, "id = ?", testID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "Test not found.")
		}
		return err
	}

	if req.Name != nil {
		test.Name = *req.Name
	}
	if req.Description != nil {
		test.Description = *req.Description
	}
	if len(req.Questions) > 0 {
		test.Questions = datatypes.JSON(req.Questions)
	}
	if req.SystemPrompt != nil {
		test.SystemPrompt = *req.SystemPrompt
	}
	if req.RelatedJobID != nil {
		test.RelatedJobID = req.RelatedJobID
	}
	if req.IsPrimaryAssessment != nil {
		test.IsPrimaryAssessment = *req.IsPrimaryAssessment
	}
	if req.Order != nil {
		test.DisplayOrder = *req.Order
	}

	if err := h.db.Save(&test).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"status": "success", "data": test})
}

// DeleteTest removes a test definition.
func (h *AdminHandler) DeleteTest(c *fiber.Ctx) error {
	testID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid id.")
	}

	if err := h.db.Delete(&models.Test{}, "id = ?", testID).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"status": "success", "message": "Test deleted."})
}

// Promo code CRUD

type promoRequest struct {
	Code            string  `json:"code"`
	IsActive        *bool   `json:"is_active"`
	DiscountPercent float64 `json:"discount_percent"`
}

// ListPromoCodes returns stored promo codes.
func (h *AdminHandler) ListPromoCodes(c *fiber.Ctx) error {
	var codes []models.PromoCode
	if err := h.db.Order("code").Find(&codes).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "success", "data": codes})
}

// CreatePromoCode adds a promo code.
func (h *AdminHandler) CreatePromoCode(c *fiber.Ctx) error {
	var req promoRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid JSON.")
	}
	if req.Code == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Code is required.")
	}

	promo := models.PromoCode{
		Code:            NormalizeCode(req.Code),
		IsActive:        true,
		DiscountPercent: req.DiscountPercent,
	}
	if req.IsActive != nil {
		promo.IsActive = *req.IsActive
	}
	if err := h.db.Create(&promo).Error; err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"status": "success", "data": promo})
}

type updatePromoRequest struct {
	Code            *string  `json:"code"`
	IsActive        *bool    `json:"is_active"`
	DiscountPercent *float64 `json:"discount_percent"`
}

// UpdatePromoCode updates a promo code. Absent fields keep their stored
// values; an explicit 0 discount is honored.
func (h *AdminHandler) UpdatePromoCode(c *fiber.Ctx) error {
	promoID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid id.")
	}

	var req updatePromoRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid JSON.")
	}

	var promo models.PromoCode
	if err := h.db.First(&promo, "id = ?", promoID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "Promo code not found.")
		}
		return err
	}

	if req.Code != nil {
		promo.Code = NormalizeCode(*req.Code)
	}
	if req.IsActive != nil {
		promo.IsActive = *req.IsActive
	}
	if req.DiscountPercent != nil {
		promo.DiscountPercent = *req.DiscountPercent
	}
	if err := h.db.Save(&promo).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"status": "success", "data": promo})
}

// DeletePromoCode removes a promo code.
func (h *AdminHandler) DeletePromoCode(c *fiber.Ctx) error {
	promoID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid id.")
	}

	if err := h.db.Delete(&models.PromoCode{}, "id = ?", promoID).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"status": "success", "message": "Promo code deleted."})
}
