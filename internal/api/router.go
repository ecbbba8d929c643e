package api

import (
	"net/http"

	"courier-assistant/internal/api/middleware"
	"courier-assistant/internal/metrics"
	call "courier-assistant/internal/modules/calls"
	order "courier-assistant/internal/modules/orders"
	route "courier-assistant/internal/modules/routes"
	"courier-assistant/internal/modules/settings"
	"courier-assistant/internal/modules/user"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes sets up all the API endpoints for the application.
func SetupRoutes(
	e *echo.Echo,
	userHandler *user.Handler,
	orderHandler *order.Handler,
	routeHandler *route.Handler,
	callHandler *call.Handler,
	settingsHandler *settings.Handler,
	jwtSecret string,
) {
	authMiddleware := middleware.JWTAuth(jwtSecret)

	// --- Public Routes ---
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"message": "Courier Assistant API"})
	})
	e.GET("/healthz", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))

	authGroup := e.Group("/auth")
	{
		authGroup.POST("/signup", userHandler.Signup)
		authGroup.POST("/login", userHandler.Login)
		authGroup.POST("/activate", userHandler.ActivateAccount)
		authGroup.POST("/resend-activation", userHandler.ResendActivation)
		authGroup.POST("/request-password-reset", userHandler.RequestPasswordReset)
		authGroup.POST("/reset-password", userHandler.ResetPassword)
		authGroup.GET("/google/login", userHandler.GoogleLogin)
		authGroup.GET("/google/callback", userHandler.GoogleCallback)
	}

	// --- Profile Routes ---
	profileGroup := e.Group("/profile", authMiddleware)
	{
		profileGroup.GET("", userHandler.GetProfile)
		profileGroup.PUT("", userHandler.UpdateProfile)
	}

	// --- Daily Order Routes ---
	orderGroup := e.Group("/orders", authMiddleware)
	{
		orderGroup.POST("", orderHandler.AddOrder)
		orderGroup.GET("", orderHandler.ListOrders)
		orderGroup.DELETE("", orderHandler.ClearDay)
		orderGroup.GET("/:orderNumber", orderHandler.GetOrder)
		orderGroup.PATCH("/:orderNumber/contact", orderHandler.UpdateContact)
		orderGroup.POST("/:orderNumber/delivered", orderHandler.MarkDelivered)
		orderGroup.PUT("/:orderNumber/arrival", orderHandler.SetManualArrival)
		orderGroup.DELETE("/:orderNumber/arrival", orderHandler.ClearManualArrival)
	}

	// --- Route Routes ---
	routeGroup := e.Group("/routes", authMiddleware)
	{
		routeGroup.POST("/optimize", routeHandler.OptimizeRoute)
		routeGroup.GET("", routeHandler.GetRoute)
		routeGroup.PUT("/start-location", routeHandler.SaveStartLocation)
		routeGroup.GET("/start-location", routeHandler.GetStartLocation)
	}

	// --- Call Schedule Routes ---
	callGroup := e.Group("/calls", authMiddleware)
	{
		callGroup.GET("", callHandler.ListCalls)
		callGroup.GET("/order/:orderNumber", callHandler.GetCall)
		callGroup.PUT("/order/:orderNumber/time", callHandler.SetManualCallTime)
		callGroup.POST("/:callId/confirm", callHandler.ConfirmCall)
		callGroup.POST("/:callId/reject", callHandler.RejectCall)
	}

	// --- Settings Routes ---
	settingsGroup := e.Group("/settings", authMiddleware)
	{
		settingsGroup.GET("", settingsHandler.GetSettings)
		settingsGroup.PATCH("", settingsHandler.UpdateSettings)
		settingsGroup.POST("/reset", settingsHandler.ResetSettings)
	}
}
