package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"tracker-backend/internal/api"
	"tracker-backend/internal/config"
	"tracker-backend/internal/store"
	"tracker-backend/internal/tracker"
)

func main() {
	ctx := context.Background()

	// 1. Load .env outside production
	if os.Getenv("APP_ENV") != "production" {
		if err := godotenv.Load(); err != nil {
			log.Printf("No .env file loaded: %v", err)
		}
	}

	// 2. Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Printf("Config loaded (port: %d, tz: %s)", cfg.Server.Port, cfg.DefaultTZ)
	if cfg.APIToken == "" {
		log.Println("WARN: api_token is empty, every /api request will be rejected")
	}

	// 3. Connect to database
	db, err := store.New(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Printf("Database connected (%s)", db.Dialect.Name())

	// 4. Bootstrap tables
	if err := db.Bootstrap(ctx); err != nil {
		log.Fatalf("Failed to bootstrap tables: %v", err)
	}
	log.Println("Tables ready")

	// 5. Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: api.ErrorHandler,
	})
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))
	app.Use(logger.New(logger.Config{
		Format: "${time} ${status} ${method} ${path} ${latency}\n",
	}))

	// 6. Register routes
	handler := api.NewHandler(tracker.NewService(db), cfg.DefaultTZ)
	api.RegisterRoutes(app, handler, cfg.APIToken, cfg.Origins())

	// 7. Start server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("Starting server on %s", addr)
	if err := serve(app, addr, quit); err != nil {
		db.Close()
		log.Fatalf("Server stopped: %v", err)
	}
}

// serve runs app on addr until listening fails or a signal arrives on quit,
// then shuts the app down.
func serve(app *fiber.App, addr string, quit <-chan os.Signal) error {
	listenErr := make(chan error, 1)
	go func() {
		listenErr <- app.Listen(addr)
	}()

	select {
	case err := <-listenErr:
		return err
	case <-quit:
	}

	log.Println("Shutting down")
	return app.ShutdownWithTimeout(10 * time.Second)
}
