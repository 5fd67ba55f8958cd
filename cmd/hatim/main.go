package main

import (
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"hatimgo/internal/app"
	"hatimgo/internal/config"
	"hatimgo/internal/ratelimit"
	"hatimgo/internal/server"
	"hatimgo/internal/util"
)

func main() {
	// Optional .env for local development; real deployments set env directly.
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("HATIM_CONFIG"))
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	appCore, err := app.New(app.Config{
		DatabaseURL: cfg.DatabaseURL,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	var claimLimiter *ratelimit.ClaimLimiter
	if cfg.ClaimRateLimitPerMinute > 0 {
		claimLimiter, err = ratelimit.NewClaimLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.ClaimRateLimitPerMinute)
		if err != nil {
			log.Fatalf("failed to init claim limiter: %v", err)
		}
	}

	trustedProxies, err := util.NewTrustedProxies(cfg.TrustedProxyCIDRs)
	if err != nil {
		log.Fatalf("failed to parse trusted proxy cidrs: %v", err)
	}

	httpServer, err := server.New(server.Config{
		App:            appCore,
		ClaimLimiter:   claimLimiter,
		TrustedProxies: trustedProxies,
	})
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("hatim server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}
