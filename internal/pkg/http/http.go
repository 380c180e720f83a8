package http

import (
	"fmt"
	"log"

	"bed-booking-service/config"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.elastic.co/apm/module/apmfiber"
)

func SetupHttpEngine(cfg *config.HttpServerConfig) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "bed-booking-service",
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	app.Use(recover.New())
	app.Use(apmfiber.Middleware())

	return app
}

func StartHttpServer(app *fiber.App, port string) {
	if err := app.Listen(fmt.Sprintf(":%s", port)); err != nil {
		log.Fatalf("error start http server: %v", err)
	}
}
