package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dimitrije/vesting-api/internal/config"
	"github.com/dimitrije/vesting-api/internal/database"
	"github.com/dimitrije/vesting-api/internal/derive"
	"github.com/dimitrije/vesting-api/internal/handlers"
	"github.com/dimitrije/vesting-api/internal/logging"
	authmw "github.com/dimitrije/vesting-api/internal/middleware"
	"github.com/dimitrije/vesting-api/internal/services"
	"github.com/dimitrije/vesting-api/internal/sse"
	"github.com/dimitrije/vesting-api/internal/vesting"
	"github.com/dimitrije/vesting-api/pkg/circuit"
	"github.com/dimitrije/vesting-api/pkg/messaging"
	"github.com/m1z23r/drift/pkg/drift"
	"github.com/m1z23r/drift/pkg/middleware"
)

func main() {
	log := logging.L

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config", "err", err)
	}
	if err := logging.Configure(cfg.LogLevel, cfg.IsProduction()); err != nil {
		log.Fatal("failed to configure logging", "err", err)
	}

	ctx := context.Background()

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed to connect to database", "err", err)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		log.Fatal("failed to run migrations", "err", err)
	}

	deriver, err := derive.Resolve(cfg.ProgramID, cfg.Namespace)
	if err != nil {
		log.Fatal("failed to load program id", "err", err)
	}
	log.Info("address derivation ready", "program_id", deriver.ProgramID())

	var (
		clock       vesting.Clock = vesting.SystemClock{}
		manualClock *vesting.ManualClock
	)
	if cfg.ClockMode == config.ClockManual {
		start := cfg.ClockStart
		if start == 0 {
			start = time.Now().Unix()
		}
		manualClock = vesting.NewManualClock(start)
		clock = manualClock
		log.Warn("ledger running on a manual clock", "now", start)
	}

	store := services.NewGrantStore(db)
	ledger := vesting.NewLedger(store, deriver, clock)
	processor := vesting.NewProcessor(store, deriver, clock)

	hub := sse.NewHub()
	go hub.Run()

	jwtService := services.NewJWTService(cfg.JWTSecret, cfg.JWTAccessExpiry)
	grantService := services.NewGrantService(ledger, processor, logging.For("grants")).WithNotifier(hub)

	if cfg.NATS.URL != "" {
		nc, err := messaging.NewClient(messaging.Config{
			URL:            cfg.NATS.URL,
			Name:           cfg.NATS.Name,
			ReconnectWait:  2 * time.Second,
			MaxReconnects:  -1,
			ConnectTimeout: 5 * time.Second,
		})
		if err != nil {
			log.Error("event publishing disabled", "err", err)
		} else {
			defer nc.Close()
			breakerLog := logging.For("breaker")
			breaker := circuit.NewBreaker(circuit.Config{
				Name:        "nats",
				MaxFailures: 5,
				Timeout:     30 * time.Second,
				OnStateChange: func(name string, from, to circuit.State) {
					breakerLog.Warn("circuit state changed", "name", name, "from", from, "to", to)
				},
			})
			grantService.WithEvents(nc, breaker, cfg.NATS.SubjectPrefix)
			log.Info("publishing grant events", "url", cfg.NATS.URL, "prefix", cfg.NATS.SubjectPrefix)
		}
	}

	grantHandler := handlers.NewGrantHandler(grantService)
	sseHandler := handlers.NewSSEHandler(hub, grantService)
	var devClock handlers.ManualClock
	if manualClock != nil {
		devClock = manualClock
	}
	devHandler := handlers.NewDevHandler(grantService, devClock)

	app := drift.New()

	if cfg.IsProduction() {
		app.SetMode(drift.ReleaseMode)
	} else {
		app.SetMode(drift.DebugMode)
	}

	app.Use(middleware.Recovery())
	app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:       86400,
	}))
	app.Use(middleware.BodyParser())

	api := app.Group("/api/v1")

	api.Get("/health", grantHandler.Health)
	api.Get("/grants/:grant", grantHandler.Get)
	api.Get("/grants/:grant/vesting", grantHandler.Vesting)
	api.Get("/grants/:grant/claims", grantHandler.Claims)
	api.Get("/accounts/:address", grantHandler.Account)

	protected := api.Group("")
	protected.Use(authmw.Auth(jwtService))

	protected.Post("/grants", grantHandler.Create)
	protected.Post("/grants/:grant/claim", grantHandler.Claim)
	protected.Get("/grants/:grant/events", sseHandler.Connect)

	dev := api.Group("/dev")
	dev.Use(authmw.DevOnly(cfg.DevEndpoints()))
	dev.Use(authmw.Auth(jwtService))
	dev.Post("/mint", devHandler.Mint)
	dev.Post("/clock", devHandler.Clock)

	go func() {
		addr := fmt.Sprintf(":%s", cfg.Port)
		log.Info("server starting", "addr", addr, "env", cfg.Env, "clock", cfg.ClockMode)
		if err := app.Run(addr); err != nil {
			log.Fatal("server failed", "err", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server", "sse_clients", hub.ClientCount())
}
