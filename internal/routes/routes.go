package routes

import (
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/webwallet/webwallet/internal/config"
	"github.com/webwallet/webwallet/internal/middleware"
	"github.com/webwallet/webwallet/internal/notification"
	"github.com/webwallet/webwallet/internal/rates"
	"github.com/webwallet/webwallet/internal/store"
	"github.com/webwallet/webwallet/internal/transfer"
	"github.com/webwallet/webwallet/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	RegisterHealthRoutes(app, d)

	var st store.Store
	if d.DB != nil {
		st = store.NewPostgres(d.DB)
	} else {
		st = store.NewMemory()
	}

	var rateProvider rates.Provider = rates.NewECB(d.Cfg.RateURL, d.Cfg.RateTimeout)
	if d.Cache != nil {
		rateProvider = rates.NewCached(rateProvider, d.Cache, d.Cfg.RateCacheTTL, d.Logger)
	}

	notifier := notification.NewLoggerNotifier(d.Logger)
	engine := transfer.NewEngine(st, rateProvider, notifier, d.Cfg.RateTimeout)
	walletSvc := wallet.NewService(st)

	api := app.Group("/api/v1")
	RegisterWalletRoutes(api, wallet.NewHandler(walletSvc))
	RegisterTransferRoutes(api, transfer.NewHandler(engine))

	return nil
}
