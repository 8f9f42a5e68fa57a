package routes

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/radical0coder/kafna/internal/config"
	"github.com/radical0coder/kafna/internal/handlers"
	"github.com/radical0coder/kafna/internal/middleware"
	"github.com/radical0coder/kafna/internal/services"
)

// Register wires up all HTTP routes.
func Register(app *fiber.App, db *gorm.DB, cfg *config.Config) {
	smsService := services.NewSMSService(cfg.SMSAPIKey, cfg.SMSTemplateID)
	aiService := services.NewAIService(cfg.GeminiAPIKey, cfg.GeminiModel)
	telegramService := services.NewTelegramService(cfg.TelegramBotToken, cfg.TelegramAdminChat)

	authHandler := handlers.NewAuthHandler(db, cfg, smsService, telegramService)
	profileHandler := handlers.NewProfileHandler(db)
	premiumHandler := handlers.NewPremiumHandler(db, telegramService)
	assessmentHandler := handlers.NewAssessmentHandler(db, aiService)
	adminHandler := handlers.NewAdminHandler(db, cfg)

	api := app.Group("/api")

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/request-otp", authHandler.RequestOTP)
	auth.Post("/verify-otp", authHandler.VerifyOTP)

	// SPA entry point works with or without a token.
	api.Get("/home", middleware.OptionalAuth(cfg), assessmentHandler.Home)

	// Protected routes
	protected := api.Group("", middleware.AuthMiddleware(cfg))

	protected.Post("/auth/logout", authHandler.Logout)

	protected.Get("/profile", profileHandler.GetProfile)
	protected.Post("/profile", profileHandler.UpdateProfile)
	protected.Get("/user-rank", profileHandler.GetUserRank)

	protected.Post("/redeem-code", premiumHandler.RedeemCode)
	protected.Post("/validate-promo-code", premiumHandler.ValidatePromoCode)
	protected.Post("/request-payment", premiumHandler.RequestPayment)

	protected.Get("/dashboard", assessmentHandler.Dashboard)
	protected.Get("/tests/list", assessmentHandler.ListTests)
	protected.Get("/tests/:id/questions", assessmentHandler.GetTestQuestions)
	protected.Post("/tests/:id/submit", assessmentHandler.SubmitAndAnalyze)
	protected.Post("/tests/:id/save-draft", assessmentHandler.SaveDraft)
	protected.Post("/tests/:id/analyze/:resultID", assessmentHandler.PerformAnalysis)
	protected.Get("/history", assessmentHandler.History)

	// Admin routes
	api.Post("/admin/login", adminHandler.Login)

	admin := api.Group("/admin", middleware.AuthMiddleware(cfg), middleware.StaffMiddleware(db))
	admin.Get("/stats", adminHandler.DashboardStats)
	admin.Get("/users", adminHandler.ListUsers)
	admin.Get("/results", adminHandler.ListResults)

	admin.Get("/jobs", adminHandler.ListJobs)
	admin.Post("/jobs", adminHandler.CreateJob)
	admin.Put("/jobs/:id", adminHandler.UpdateJob)
	admin.Delete("/jobs/:id", adminHandler.DeleteJob)

	admin.Get("/tests", adminHandler.ListAllTests)
	admin.Post("/tests", adminHandler.CreateTest)
	admin.Put("/tests/:id", adminHandler.UpdateTest)
	admin.Delete("/tests/:id", adminHandler.DeleteTest)

	admin.Get("/promo-codes", adminHandler.ListPromoCodes)
	admin.Post("/promo-codes", adminHandler.CreatePromoCode)
	admin.Put("/promo-codes/:id", adminHandler.UpdatePromoCode)
	admin.Delete("/promo-codes/:id", adminHandler.DeletePromoCode)
}
