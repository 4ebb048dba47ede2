package main

import (
	"log"
	"time"

	"github.com/TimoLindner/Fanlume/app/repository"
	"github.com/TimoLindner/Fanlume/internal/pkg/cache"
	"github.com/TimoLindner/Fanlume/internal/pkg/database"
	"github.com/TimoLindner/Fanlume/internal/pkg/env"
	"github.com/TimoLindner/Fanlume/internal/pkg/router"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
)

func main() {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	app := fiber.New(fiber.Config{
		AppName: "Fanlume",
		// Webhook payloads are signed over the raw body; keep it available.
		BodyLimit: 1 * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{
		Generator: uuid.NewString,
	}))
	app.Use(logger.New())

	metricsUser := env.GetEnv("METRICS_USER", "")
	metricsPassword := env.GetEnv("METRICS_PASSWORD", "")
	if metricsUser != "" && metricsPassword != "" {
		app.Get("/metrics", basicauth.New(basicauth.Config{
			Users: map[string]string{metricsUser: metricsPassword},
		}), monitor.New(monitor.Config{Title: "Fanlume Metrics"}))
	}

	router.InstallRouter(app)

	go cleanupPendingRegistrations()

	addr := ":" + env.GetEnv("APP_PORT", "8080")
	log.Printf("Starting Fanlume on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}

// pendingRegistrationMaxAge is well past the registration token TTL, so a
// deleted candidate can no longer be redeemed by any open checkout.
const pendingRegistrationMaxAge = 48 * time.Hour

func cleanupPendingRegistrations() {
	repo := repository.NewPendingRegistrationRepository(database.GetDB())
	for range time.Tick(time.Hour) {
		removed, err := repo.DeleteExpired(time.Now().Add(-pendingRegistrationMaxAge))
		if err != nil {
			log.Printf("Failed to clean up pending registrations: %v", err)
			continue
		}
		if removed > 0 {
			log.Printf("Removed %d expired pending registrations", removed)
		}
	}
}
