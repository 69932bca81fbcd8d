package api

import (
	"github.com/gofiber/fiber/v2"
)

// SetupRoutes mounts the account endpoints under /v1/users. limiter may be nil.
func SetupRoutes(app *fiber.App, authHandler *AuthHandler, activityHandler *ActivityHandler, verifier AccessTokenVerifier, limiter fiber.Handler) {
	v1 := app.Group("/v1")

	users := v1.Group("/users")
	if limiter != nil {
		users.Post("/register", limiter, authHandler.Register)
		users.Post("/login", limiter, authHandler.Login)
	} else {
		users.Post("/register", authHandler.Register)
		users.Post("/login", authHandler.Login)
	}
	users.Post("/refresh-token", authHandler.Refresh)

	requireAuth := AuthMiddleware(verifier)
	users.Post("/logout", requireAuth, authHandler.Logout)
	users.Get("/current-user", requireAuth, authHandler.CurrentUser)
	users.Get("/current-user/activity", requireAuth, activityHandler.Recent)
}
