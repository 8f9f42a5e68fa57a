package handlers

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/radical0coder/kafna/internal/middleware"
	"github.com/radical0coder/kafna/internal/models"
)

// AnalysisProvider produces a structured analysis for a set of answers. It
// never fails; collaborator errors come back as an error-shaped object.
type AnalysisProvider interface {
	GetAnalysis(answers map[string]any, systemPrompt string) map[string]any
}

// AssessmentHandler manages the test catalog and submission endpoints.
type AssessmentHandler struct {
	db *gorm.DB
	ai AnalysisProvider
}

// NewAssessmentHandler constructs AssessmentHandler.
func NewAssessmentHandler(db *gorm.DB, ai AnalysisProvider) *AssessmentHandler {
	return &AssessmentHandler{db: db, ai: ai}
}

// Home returns the entry-point state for the SPA shell: where to start and
// which test is the mandatory first assessment.
func (h *AssessmentHandler) Home(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return c.JSON(fiber.Map{
			"status":           "success",
			"is_authenticated": false,
			"initial_page":     "user-info",
		})
	}

	resp := fiber.Map{
		"status":           "success",
		"is_authenticated": true,
		"initial_page":     "home",
		"user_id":          userID,
	}

	// First test flagged primary wins; duplicates are ignored.
	var primary models.Test
	if err := h.db.Where("is_primary_assessment = ?", true).
		Order("display_order").First(&primary).Error; err == nil {
		resp["start_test_id"] = primary.ID
	}

	return c.JSON(resp)
}

// GetTestQuestions returns the stored question list verbatim.
func (h *AssessmentHandler) GetTestQuestions(c *fiber.Ctx) error {
	if _, ok := middleware.GetCurrentUserID(c); !ok {
		return fiber.NewError(fiber.StatusForbidden, "Authentication required.")
	}

	test, err := h.loadTest(c.Params("id"))
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSONCharsetUTF8)
	return c.Send(test.Questions)
}

// ListTests returns all non-primary (level assessment) tests.
func (h *AssessmentHandler) ListTests(c *fiber.Ctx) error {
	if _, ok := middleware.GetCurrentUserID(c); !ok {
		return fiber.NewError(fiber.StatusForbidden, "Authentication required.")
	}

	var tests []models.Test
	if err := h.db.Where("is_primary_assessment = ?", false).
		Order("display_order").Find(&tests).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"status": "success", "tests": testSummaries(tests)})
}

// Dashboard splits non-primary tests into recommended and other groups based
// on the user's latest primary assessment analysis.
func (h *AssessmentHandler) Dashboard(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusForbidden, "Authentication required.")
	}

	var primaryResult models.AssessmentResult
	err := h.db.
		Joins("JOIN tests ON tests.id = assessment_results.test_id").
		Where("assessment_results.user_id = ? AND tests.is_primary_assessment = ?", userID, true).
		Order("assessment_results.created_at desc").
		First(&primaryResult).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	recommendedNames := map[string]bool{}
	if err == nil && len(primaryResult.AIAnalysis) > 0 {
		var analysis map[string]any
		if jsonErr := json.Unmarshal(primaryResult.AIAnalysis, &analysis); jsonErr == nil {
			for _, name := range recommendedJobNames(analysis) {
				recommendedNames[name] = true
			}
		}
	}

	var tests []models.Test
	if err := h.db.Preload("RelatedJob").
		Where("is_primary_assessment = ?", false).
		Order("display_order").Find(&tests).Error; err != nil {
		return err
	}

	var recommended, other []models.Test
	for _, test := range tests {
		if test.RelatedJob != nil && recommendedNames[test.RelatedJob.Name] {
			recommended = append(recommended, test)
		} else {
			other = append(other, test)
		}
	}

	return c.JSON(fiber.Map{
		"status":            "success",
		"recommended_tests": testSummaries(recommended),
		"other_tests":       testSummaries(other),
	})
}

// SubmitAndAnalyze forwards the answers to the AI collaborator, links the
// recommended jobs to known tests, and persists the scored result.
func (h *AssessmentHandler) SubmitAndAnalyze(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusForbidden, "Authentication required.")
	}

	test, err := h.loadTest(c.Params("id"))
	if err != nil {
		return err
	}

	rawAnswers := append([]byte(nil), c.Body()...)
	var answers map[string]any
	if err := json.Unmarshal(rawAnswers, &answers); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid JSON.")
	}

	analysis := h.ai.GetAnalysis(answers, test.SystemPrompt)
	if err := h.linkRecommendedJobs(analysis); err != nil {
		return err
	}

	analysisJSON, err := json.Marshal(analysis)
	if err != nil {
		return err
	}

	result := models.AssessmentResult{
		UserID:     userID,
		TestID:     test.ID,
		Answers:    datatypes.JSON(rawAnswers),
		AIAnalysis: datatypes.JSON(analysisJSON),
	}
	if err := h.db.Create(&result).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"status": "success", "analysis": analysis})
}

// SaveDraft persists the answers without analysis so scoring can happen later.
func (h *AssessmentHandler) SaveDraft(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusForbidden, "Authentication required.")
	}

	test, err := h.loadTest(c.Params("id"))
	if err != nil {
		return err
	}

	rawAnswers := append([]byte(nil), c.Body()...)
	var answers map[string]any
	if err := json.Unmarshal(rawAnswers, &answers); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid JSON.")
	}

	result := models.AssessmentResult{
		UserID:  userID,
		TestID:  test.ID,
		Answers: datatypes.JSON(rawAnswers),
	}
	if err := h.db.Create(&result).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"status": "success", "result_id": result.ID})
}

// PerformAnalysis scores a previously saved draft in place.
func (h *AssessmentHandler) PerformAnalysis(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusForbidden, "Authentication required.")
	}

	test, err := h.loadTest(c.Params("id"))
	if err != nil {
		return err
	}

	resultID, err := uuid.Parse(c.Params("resultID"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid result id.")
	}

	var result models.AssessmentResult
	if err := h.db.Where("id = ? AND user_id = ? AND test_id = ?", resultID, userID, test.ID).
		First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "Result not found.")
		}
		return err
	}

	var answers map[string]any
	if err := json.Unmarshal(result.Answers, &answers); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Stored answers are not valid JSON.")
	}

	analysis := h.ai.GetAnalysis(answers, test.SystemPrompt)
	if err := h.linkRecommendedJobs(analysis); err != nil {
		return err
	}

	analysisJSON, err := json.Marshal(analysis)
	if err != nil {
		return err
	}

	if err := h.db.Model(&result).Update("ai_analysis", datatypes.JSON(analysisJSON)).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"status": "success", "analysis": analysis})
}

// History lists the requester's results, newest first.
func (h *AssessmentHandler) History(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusForbidden, "Authentication required.")
	}

	var results []models.AssessmentResult
	if err := h.db.Preload("Test").
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&results).Error; err != nil {
		return err
	}

	items := make([]fiber.Map, 0, len(results))
	for _, result := range results {
		item := fiber.Map{
			"id":          result.ID,
			"test_id":     result.TestID,
			"date":        result.CreatedAt.Format("2006-01-02"),
			"time":        result.CreatedAt.Format("15:04"),
			"answers":     json.RawMessage(result.Answers),
			"ai_analysis": nil,
		}
		if result.Test != nil {
			item["test_name"] = result.Test.Name
		}
		if len(result.AIAnalysis) > 0 {
			item["ai_analysis"] = json.RawMessage(result.AIAnalysis)
		}
		items = append(items, item)
	}

	return c.JSON(fiber.Map{"status": "success", "history": items})
}

func (h *AssessmentHandler) loadTest(param string) (*models.Test, error) {
	testID, err := uuid.Parse(param)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "Test not found.")
	}

	var test models.Test
	if err := h.db.First(&test, "id = ?", testID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "Test not found.")
		}
		return nil, err
	}
	return &test, nil
}

func (h *AssessmentHandler) linkRecommendedJobs(analysis map[string]any) error {
	var tests []models.Test
	if err := h.db.Preload("RelatedJob").Order("display_order").Find(&tests).Error; err != nil {
		return err
	}
	LinkRecommendedJobs(analysis, tests)
	return nil
}

// LinkRecommendedJobs attaches a test_id to each recommended job the catalog
// knows a test for. Matching cascades: exact related-job name, then exact test
// name, then test-name substring; all case-insensitive, first test in display
// order wins. Unmatched entries are left untouched.
func LinkRecommendedJobs(analysis map[string]any, tests []models.Test) {
	items, ok := analysis["recommended_jobs"].([]any)
	if !ok {
		return
	}

	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		jobName, ok := entry["job"].(string)
		if !ok || jobName == "" {
			continue
		}
		if test := matchTestForJob(jobName, tests); test != nil {
			entry["test_id"] = test.ID
		}
	}
}

func matchTestForJob(jobName string, tests []models.Test) *models.Test {
	needle := strings.ToLower(strings.TrimSpace(jobName))

	for i := range tests {
		if tests[i].RelatedJob != nil && strings.ToLower(tests[i].RelatedJob.Name) == needle {
			return &tests[i]
		}
	}

	for i := range tests {
		if strings.ToLower(tests[i].Name) == needle {
			return &tests[i]
		}
	}

	for i := range tests {
		if strings.Contains(strings.ToLower(tests[i].Name), needle) {
			return &tests[i]
		}
	}

	return nil
}

func recommendedJobNames(analysis map[string]any) []string {
	items, ok := analysis["recommended_jobs"].([]any)
	if !ok {
		return nil
	}

	names := make([]string, 0, len(items))
	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if name, ok := entry["job"].(string); ok && name != "" {
			names = append(names, name)
		}
	}
	return names
}

func testSummaries(tests []models.Test) []fiber.Map {
	summaries := make([]fiber.Map, 0, len(tests))
	for _, test := range tests {
		summaries = append(summaries, fiber.Map{
			"id":          test.ID,
			"name":        test.Name,
			"description": test.Description,
		})
	}
	return summaries
}
