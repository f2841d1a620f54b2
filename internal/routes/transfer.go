package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/webwallet/webwallet/internal/transfer"
)

// RegisterTransferRoutes wires the transfer lifecycle endpoints.
func RegisterTransferRoutes(r fiber.Router, h *transfer.Handler) {
	r.Post("/transfers", h.Create)
	r.Get("/transfers/:id", h.Get)
	r.Put("/transfers/:id", h.Confirm)
	r.Delete("/transfers/:id", h.Delete)
}
