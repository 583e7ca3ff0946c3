package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/verifly/internal/config"
	"github.com/example/verifly/internal/handlers"
	"github.com/example/verifly/internal/middleware"
	"github.com/example/verifly/internal/services"
	"github.com/example/verifly/internal/store"
)

// Register wires up all HTTP routes.
func Register(app *fiber.App, st *store.Store, cfg *config.Config) {
	sms := services.NewSMSService(cfg.SMSAPIKey)
	mail := services.NewEmailService(cfg.MailAPIURL, cfg.MailAPIKey, cfg.SiteURL, cfg.FromEmail)

	authHandler := handlers.NewAuthHandler(st, cfg, mail)
	userHandler := handlers.NewUserHandler(st, cfg, sms)
	profileHandler := handlers.NewProfileHandler(st)

	api := app.Group("/api")

	// Registration and credential issuance
	api.Post("/register", authHandler.Register)
	api.Get("/verify-email/:token", authHandler.VerifyEmail)
	api.Post("/login", authHandler.Login)
	api.Post("/token/refresh", authHandler.Refresh)

	// Phone signup and OTP lifecycle; reachable without a token since the
	// account is not active yet at this point of the flow.
	api.Post("/users", userHandler.CreateUser)
	api.Patch("/users/:id/verify-otp", userHandler.VerifyOTP)
	api.Patch("/users/:id/regenerate-otp", userHandler.RegenerateOTP)

	// Protected routes
	protected := api.Group("", middleware.AuthMiddleware(cfg, st.Tokens))

	protected.Post("/logout", authHandler.Logout)
	protected.Get("/users", userHandler.ListUsers)
	protected.Get("/users/csv", middleware.RequireStaff(st.Accounts), userHandler.ExportUsersCSV)
	protected.Get("/profile", profileHandler.GetProfile)
	protected.Patch("/profile", profileHandler.UpdateProfile)
}
