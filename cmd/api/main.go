package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"courier-assistant/internal/api"
	"courier-assistant/internal/config"
	"courier-assistant/internal/logger"
	"courier-assistant/internal/metrics"
	call "courier-assistant/internal/modules/calls"
	order "courier-assistant/internal/modules/orders"
	route "courier-assistant/internal/modules/routes"
	"courier-assistant/internal/modules/settings"
	"courier-assistant/internal/modules/user"
	"courier-assistant/pkg/maps"
	"courier-assistant/pkg/notify"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

func main() {
	// 1. --- Configuration & Logging ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	logger.Setup()
	metrics.RegisterDefault()

	e := echo.New()
	e.HideBanner = true

	// 2. --- Middleware ---
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: []string{"http://localhost:5173", cfg.ClientOrigin},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	// 3. --- Database Connection ---
	dbConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logrus.Fatalf("Unable to parse database configuration: %v", err)
	}
	dbPool, err := pgxpool.NewWithConfig(context.Background(), dbConfig)
	if err != nil {
		logrus.Fatalf("Unable to create connection pool: %v", err)
	}
	defer dbPool.Close()

	if err := dbPool.Ping(context.Background()); err != nil {
		logrus.Fatalf("Unable to ping database: %v", err)
	}
	logrus.Info("connected to the database")

	// 4. --- Maps Provider ---
	// The Yandex client degrades to a haversine heuristic without an API
	// key; Redis caches both travel estimates and geocode results.
	yandex := maps.NewYandexClient(cfg.YandexMapsAPIKey, cfg.MapsRateLimitRPS)
	var provider maps.DistanceTimeProvider = yandex
	var geocoder maps.Geocoder = yandex
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			logrus.WithError(err).Warn("redis unavailable, running without maps cache")
		} else {
			caching := maps.NewCachingClient(yandex, yandex, rdb, cfg.DistanceTTL, cfg.GeocodeTTL)
			provider = caching
			geocoder = caching
		}
	}

	// 5. --- Notifications ---
	tm, err := notify.NewTemplateManager()
	if err != nil {
		logrus.Fatalf("Failed to parse email templates: %v", err)
	}
	emailSender, err := notify.NewEmailSender(context.Background(), cfg.AWSRegion, cfg.FromEmail)
	if err != nil {
		logrus.Fatalf("Failed to initialize email sender: %v", err)
	}
	var telegramSender *notify.TelegramSender
	if cfg.TelegramBotToken != "" {
		telegramSender = notify.NewTelegramSender(cfg.TelegramBotToken)
	}
	notifier := notify.NewMultiChannel(telegramSender, emailSender, tm)

	// 6. --- Dependency Injection ---
	googleOAuthConfig := &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}

	userRepo := user.NewRepository(dbPool)
	userService := user.NewService(userRepo, emailSender, tm, cfg.JWTSecret, cfg.ClientOrigin, googleOAuthConfig)
	userHandler := user.NewHandler(userService)

	settingsRepo := settings.NewRepository(dbPool)
	settingsService := settings.NewService(settingsRepo)
	settingsHandler := settings.NewHandler(settingsService)

	orderRepo := order.NewRepository(dbPool)
	callRepo := call.NewRepository(dbPool)
	callService := call.NewService(callRepo, settingsService, orderRepo, userRepo, notifier)
	callHandler := call.NewHandler(callService)

	orderService := order.NewService(orderRepo, geocoder, callService)
	orderHandler := order.NewHandler(orderService)

	routeRepo := route.NewRepository(dbPool)
	routeService := route.NewService(routeRepo, orderRepo, callService, settingsService, provider, geocoder)
	routeHandler := route.NewHandler(routeService)

	// 7. --- Router ---
	api.SetupRoutes(e,
		userHandler,
		orderHandler,
		routeHandler,
		callHandler,
		settingsHandler,
		cfg.JWTSecret,
	)

	// 8. --- Background Call Checker ---
	checker := call.NewChecker(callService, cfg.CheckInterval)
	checker.Start()

	// 9. --- Start Server with graceful shutdown ---
	go func() {
		if err := e.Start(":" + cfg.ServerPort); err != nil && err != http.ErrServerClosed {
			e.Logger.Fatal("shutting down the server, an error occurred: ", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	checker.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		e.Logger.Fatal("Server forced to shutdown: ", err)
	}
	logrus.Info("server exiting")
}
