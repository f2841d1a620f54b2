package transfer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/webwallet/webwallet/internal/rates"
	"github.com/webwallet/webwallet/internal/store"
)

func newTestApp(t *testing.T, provider rates.Provider) (*fiber.App, store.Store, string) {
	t.Helper()
	st := store.NewMemory()
	w, err := st.CreateWallet(context.Background())
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}

	h := NewHandler(NewEngine(st, provider, nil, 0))
	app := fiber.New()
	app.Post("/transfers", h.Create)
	app.Get("/transfers/:id", h.Get)
	app.Put("/transfers/:id", h.Confirm)
	app.Delete("/transfers/:id", h.Delete)
	return app, st, w.ID
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var payload map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&payload)
	return resp.StatusCode, payload
}

func TestHandlerCreateRejectsDirectionlessTransfer(t *testing.T) {
	app, _, walletID := newTestApp(t, rates.NewStatic(nil))

	status, payload := doJSON(t, app, fiber.MethodPost, "/transfers",
		fmt.Sprintf(`{"wallet_id":%q,"amount":10}`, walletID))
	if status != fiber.StatusBadRequest {
		t.Fatalf("expected 400, got %d", status)
	}
	if payload["error"] == nil {
		t.Fatal("expected error payload")
	}
}

func TestHandlerTransferLifecycle(t *testing.T) {
	app, st, walletID := newTestApp(t, rates.NewStatic(map[string]decimal.Decimal{
		"USD:EUR": decimal.RequireFromString("0.9"),
	}))
	store.SeedBalance(st, walletID, "USD", decimal.RequireFromString("100"))

	status, created := doJSON(t, app, fiber.MethodPost, "/transfers",
		fmt.Sprintf(`{"wallet_id":%q,"from":"USD","to":"EUR","amount":50}`, walletID))
	if status != fiber.StatusCreated {
		t.Fatalf("expected 201, got %d (%v)", status, created)
	}
	id, _ := created["id"].(string)
	if id == "" || created["state"] != "active" {
		t.Fatalf("unexpected create payload: %v", created)
	}

	status, got := doJSON(t, app, fiber.MethodGet, "/transfers/"+id+"?wallet_id="+walletID, "")
	if status != fiber.StatusOK || got["id"] != id {
		t.Fatalf("get transfer: status %d payload %v", status, got)
	}

	status, confirmed := doJSON(t, app, fiber.MethodPut, "/transfers/"+id,
		fmt.Sprintf(`{"wallet_id":%q}`, walletID))
	if status != fiber.StatusOK || confirmed["state"] != "completed" {
		t.Fatalf("confirm: status %d payload %v", status, confirmed)
	}

	// Completed transfers can never be deleted.
	status, _ = doJSON(t, app, fiber.MethodDelete, "/transfers/"+id,
		fmt.Sprintf(`{"wallet_id":%q}`, walletID))
	if status != fiber.StatusNotFound {
		t.Fatalf("expected 404 deleting completed transfer, got %d", status)
	}
}

func TestHandlerStatusMapping(t *testing.T) {
	app, st, walletID := newTestApp(t, rates.NewStatic(nil))
	store.SeedBalance(st, walletID, "USD", decimal.RequireFromString("10"))

	// Unknown wallet.
	status, _ := doJSON(t, app, fiber.MethodPost, "/transfers", `{"wallet_id":"missing","to":"USD","amount":5}`)
	if status != fiber.StatusNotFound {
		t.Fatalf("expected 404 for unknown wallet, got %d", status)
	}

	// Balance below the requested amount.
	status, _ = doJSON(t, app, fiber.MethodPost, "/transfers",
		fmt.Sprintf(`{"wallet_id":%q,"from":"USD","amount":50}`, walletID))
	if status != fiber.StatusPaymentRequired {
		t.Fatalf("expected 402, got %d", status)
	}

	// Pair unknown to the provider.
	status, _ = doJSON(t, app, fiber.MethodPost, "/transfers",
		fmt.Sprintf(`{"wallet_id":%q,"from":"USD","to":"XXX","amount":5}`, walletID))
	if status != fiber.StatusBadRequest {
		t.Fatalf("expected 400 for unsupported pair, got %d", status)
	}
}

func TestHandlerRateOutageMapsToServiceUnavailable(t *testing.T) {
	app, st, walletID := newTestApp(t, rates.NewFailing())
	store.SeedBalance(st, walletID, "USD", decimal.RequireFromString("100"))

	status, _ := doJSON(t, app, fiber.MethodPost, "/transfers",
		fmt.Sprintf(`{"wallet_id":%q,"from":"USD","to":"EUR","amount":5}`, walletID))
	if status != fiber.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", status)
	}
}

func TestHandlerForbiddenRevealsNothing(t *testing.T) {
	app, st, walletID := newTestApp(t, rates.NewStatic(nil))
	other, err := st.CreateWallet(context.Background())
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}

	status, created := doJSON(t, app, fiber.MethodPost, "/transfers",
		fmt.Sprintf(`{"wallet_id":%q,"to":"USD","amount":5}`, walletID))
	if status != fiber.StatusCreated {
		t.Fatalf("create: expected 201, got %d", status)
	}
	id, _ := created["id"].(string)

	status, payload := doJSON(t, app, fiber.MethodPut, "/transfers/"+id,
		fmt.Sprintf(`{"wallet_id":%q}`, other.ID))
	if status != fiber.StatusForbidden {
		t.Fatalf("expected 403, got %d", status)
	}
	if len(payload) != 0 {
		t.Fatalf("forbidden response must carry no details, got %v", payload)
	}
}
