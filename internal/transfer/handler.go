package transfer

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/webwallet/webwallet/internal/store"
)

// Handler exposes transfer HTTP endpoints.
type Handler struct {
	engine *Engine
}

// NewHandler builds a transfer HTTP handler.
func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

type createRequest struct {
	WalletID string          `json:"wallet_id"`
	From     string          `json:"from,omitempty"`
	To       string          `json:"to,omitempty"`
	Amount   decimal.Decimal `json:"amount"`
}

type actionRequest struct {
	WalletID string `json:"wallet_id"`
}

type transferResponse struct {
	ID       string           `json:"id"`
	WalletID string           `json:"wallet_id"`
	From     string           `json:"from,omitempty"`
	To       string           `json:"to,omitempty"`
	Amount   decimal.Decimal  `json:"amount"`
	Rate     *decimal.Decimal `json:"rate,omitempty"`
	State    string           `json:"state"`
}

func toResponse(t store.MoneyTransfer) transferResponse {
	return transferResponse{
		ID:       t.ID,
		WalletID: t.WalletID,
		From:     t.FromCurrency,
		To:       t.ToCurrency,
		Amount:   t.Amount,
		Rate:     t.Rate,
		State:    string(t.State),
	}
}

// Create registers a new transfer intent.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, "malformed request body")
	}

	direction, err := ParseDirection(req.From, req.To)
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err.Error())
	}

	t, err := h.engine.Create(c.UserContext(), CreateInput{
		WalletID:  req.WalletID,
		Direction: direction,
		Amount:    req.Amount,
	})
	if err != nil {
		return writeEngineError(c, err)
	}
	return c.Status(http.StatusCreated).JSON(toResponse(t))
}

// Get returns transfer details to the owning wallet.
func (h *Handler) Get(c *fiber.Ctx) error {
	t, err := h.engine.Get(c.UserContext(), c.Params("id"), c.Query("wallet_id"))
	if err != nil {
		return writeEngineError(c, err)
	}
	return c.Status(http.StatusOK).JSON(toResponse(t))
}

// Confirm applies the transfer's monetary effect.
func (h *Handler) Confirm(c *fiber.Ctx) error {
	var req actionRequest
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, "malformed request body")
	}

	t, err := h.engine.Confirm(c.UserContext(), c.Params("id"), req.WalletID)
	if err != nil {
		return writeEngineError(c, err)
	}
	return c.Status(http.StatusOK).JSON(toResponse(t))
}

// Delete cancels an active transfer.
func (h *Handler) Delete(c *fiber.Ctx) error {
	var req actionRequest
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, "malformed request body")
	}

	if err := h.engine.Delete(c.UserContext(), c.Params("id"), req.WalletID); err != nil {
		return writeEngineError(c, err)
	}
	return c.SendStatus(http.StatusOK)
}

func writeEngineError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrWalletNotFound),
		errors.Is(err, ErrTransferNotFound),
		errors.Is(err, ErrCurrencyNotFound):
		return errorResponse(c, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInsufficientFunds):
		return errorResponse(c, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, ErrUnsupportedCurrencyPair),
		errors.Is(err, ErrInvalidDirection),
		errors.Is(err, ErrInvalidAmount):
		return errorResponse(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrRateUnavailable):
		return errorResponse(c, http.StatusServiceUnavailable, ErrRateUnavailable.Error())
	case errors.Is(err, ErrForbidden):
		// Reveal nothing beyond the refusal itself.
		return c.SendStatus(http.StatusForbidden)
	default:
		return errorResponse(c, http.StatusInternalServerError, "internal error")
	}
}

func errorResponse(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": message})
}
