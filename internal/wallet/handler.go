package wallet

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/webwallet/webwallet/internal/store"
)

// Handler exposes wallet HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type balanceResponse struct {
	Currency string          `json:"currency"`
	Amount   decimal.Decimal `json:"amount"`
}

type walletResponse struct {
	ID       string            `json:"id"`
	Balances []balanceResponse `json:"balances"`
}

func toResponse(w store.Wallet) walletResponse {
	resp := walletResponse{ID: w.ID, Balances: make([]balanceResponse, 0, len(w.Balances))}
	for _, b := range w.Balances {
		resp.Balances = append(resp.Balances, balanceResponse{Currency: b.Currency, Amount: b.Amount})
	}
	return resp
}

// Create provisions a new empty wallet.
func (h *Handler) Create(c *fiber.Ctx) error {
	w, err := h.service.Create(c.UserContext())
	if err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "cannot create wallet"})
	}
	return c.Status(http.StatusCreated).JSON(toResponse(w))
}

// Get returns a wallet with its currency balances.
func (h *Handler) Get(c *fiber.Ctx) error {
	w, ok, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "cannot load wallet"})
	}
	if !ok {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "wallet not found"})
	}
	return c.Status(http.StatusOK).JSON(toResponse(w))
}
