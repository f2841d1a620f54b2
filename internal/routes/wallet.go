package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/webwallet/webwallet/internal/wallet"
)

// RegisterWalletRoutes wires wallet-related endpoints.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler) {
	r.Post("/wallets", h.Create)
	r.Get("/wallets/:id", h.Get)
}
