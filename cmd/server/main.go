package main

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/example/verifly/internal/config"
	"github.com/example/verifly/internal/database"
	"github.com/example/verifly/internal/handlers"
	"github.com/example/verifly/internal/routes"
	"github.com/example/verifly/internal/store"
)

func main() {
	cfg := config.Load()
	db := database.Connect(cfg.DatabaseURL)
	st := store.NewGorm(db)

	app := fiber.New(fiber.Config{
		AppName:      "Verifly Backend",
		ErrorHandler: handlers.ErrorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New())

	routes.Register(app, st, cfg)

	log.Printf("Starting server on :%s", cfg.AppPort)
	if err := app.Listen(":" + cfg.AppPort); err != nil {
		log.Fatalf("fiber.Listen error: %v", err)
	}
}
