package api

import (
	v1 "github.com/NDERI007/simflow/internal/api/v1"
	"github.com/gofiber/fiber/v2"
)

func SetupRoutes(app *fiber.App, handler *v1.Handler) {
	app.Get("/ping", handler.Pong)

	app.Post("/v1/messages", handler.CreateMessage)
	app.Get("/v1/messages/:id", handler.GetMessage)
	app.Get("/v1/messages", handler.ListMessages)

	app.Get("/v1/quota", handler.GetQuota)
	app.Post("/v1/quota/purchase", handler.Purchase)
	app.Post("/v1/quota/purchase/:relatedId/reverse", handler.ReversePurchase)
}
