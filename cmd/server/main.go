package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"solana-auto-sender/internal/policy"
	"solana-auto-sender/internal/secrets"
	"solana-auto-sender/internal/sender"
	"solana-auto-sender/internal/solana"
	"solana-auto-sender/internal/storage"
	chstore "solana-auto-sender/internal/storage/clickhouse"
	"solana-auto-sender/internal/storage/memory"
	"solana-auto-sender/internal/storage/migrations"
	pgstore "solana-auto-sender/internal/storage/postgres"
)

func main() {
	// .env is a development convenience; absence is fine.
	_ = godotenv.Load()

	listenAddr := flag.String("listen-addr", envOr("LISTEN_ADDR", ":8080"), "Management HTTP address")
	rpcEndpoint := flag.String("rpc-endpoint", envOr("RPC_ENDPOINT", ""), "Solana RPC HTTP endpoint")
	wsEndpoint := flag.String("ws-endpoint", envOr("WS_ENDPOINT", ""), "Solana WebSocket endpoint (empty disables balance wakeups)")
	postgresDSN := flag.String("postgres-dsn", envOr("POSTGRES_DSN", ""), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", envOr("CLICKHOUSE_DSN", ""), "ClickHouse connection string for the evaluation log")
	useMemory := flag.Bool("use-memory", envBool("USE_MEMORY", false), "Use in-memory storage instead of PostgreSQL/ClickHouse")
	tickInterval := flag.Duration("tick-interval", envDuration("TICK_INTERVAL", sender.DefaultTickInterval), "Scheduler tick interval")
	evalTimeout := flag.Duration("eval-timeout", envDuration("EVAL_TIMEOUT", sender.DefaultEvalTimeout), "Per-config evaluation timeout")
	commitment := flag.String("commitment", envOr("COMMITMENT", "confirmed"), "Commitment level: processed, confirmed, finalized")
	secretTTL := flag.Duration("secret-ttl", envDuration("SECRET_TTL", secrets.DefaultTTL), "Idle lifetime of in-memory signing keys")
	solRate := flag.Float64("sol-rate", envFloat("SOL_RATE", 0), "Initial SOL->USD rate (0 keeps every wallet below the threshold until set)")
	usdThreshold := flag.Float64("usd-threshold", envFloat("USD_THRESHOLD", policy.DefaultMinUSDThreshold), "Minimum USD value before sweeps are considered")

	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	if *rpcEndpoint == "" {
		logger.Fatal("--rpc-endpoint is required")
	}
	if *solRate == 0 {
		logger.Printf("WARNING: SOL rate is 0; no sweeps will fire until PUT /policy/rate")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage wiring.
	var (
		configStore storage.ConfigStore
		transferLog storage.TransferLogStore
		evalLog     storage.EvaluationLogStore
	)
	if *useMemory {
		logger.Println("Using in-memory storage")
		configStore = memory.NewConfigStore()
		transferLog = memory.NewTransferLogStore()
		evalLog = memory.NewEvaluationLogStore()
	} else {
		if *postgresDSN == "" {
			logger.Fatal("--postgres-dsn is required (or pass --use-memory)")
		}
		pool, err := pgstore.NewPool(ctx, *postgresDSN)
		if err != nil {
			logger.Fatalf("Postgres: %v", err)
		}
		defer pool.Close()

		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			logger.Fatalf("Postgres migrations: %v", err)
		}
		configStore = pgstore.NewConfigStore(pool)
		transferLog = pgstore.NewTransferLogStore(pool)

		if *clickhouseDSN != "" {
			conn, err := migrations.RunClickhouseMigrations(ctx, *clickhouseDSN)
			if err != nil {
				logger.Fatalf("ClickHouse migrations: %v", err)
			}
			defer conn.Close()
			evalLog = chstore.NewEvaluationLogStore(conn)
		} else {
			logger.Println("No ClickHouse DSN; evaluation log kept in memory")
			evalLog = memory.NewEvaluationLogStore()
		}
	}

	// Signing keys outlive nothing: a restart means re-registration.
	keys := secrets.NewStore(*secretTTL)
	go keys.Run(ctx, secrets.DefaultSweepInterval)

	deactivateRestored(ctx, configStore, logger)

	rpcClient := solana.NewHTTPClient(*rpcEndpoint,
		solana.WithCommitment(solana.Commitment(*commitment)),
	)

	var wsClient solana.WSClient
	if *wsEndpoint != "" {
		ws, err := solana.NewWSAccountClient(ctx, *wsEndpoint, nil)
		if err != nil {
			logger.Printf("WebSocket connect failed, running on ticker only: %v", err)
		} else {
			wsClient = ws
			defer ws.Close()
		}
	}

	registry := sender.NewRegistry(configStore, keys, rpcClient, logger)
	executor := sender.NewTransferExecutor(rpcClient, keys, logger,
		sender.WithCommitment(solana.Commitment(*commitment)),
	)
	threshold := policy.NewThreshold(*solRate, *usdThreshold)
	scheduler := sender.NewScheduler(registry, executor, threshold, rpcClient, transferLog, evalLog, logger,
		sender.WithTickInterval(*tickInterval),
		sender.WithEvalTimeout(*evalTimeout),
	)
	service := sender.NewService(registry, scheduler, threshold, wsClient, logger)

	// The evaluation loop starts itself when the first config goes active.

	server := &http.Server{
		Addr:    *listenAddr,
		Handler: newHandler(service, logger),
	}
	go func() {
		logger.Printf("Management server listening on %s", *listenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("HTTP server: %v", err)
		}
	}()

	// Shutdown on signal; a second signal forces exit.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Printf("Received signal %v, shutting down...", sig)

	go func() {
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		}
	}()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Printf("HTTP shutdown: %v", err)
	}

	service.Stop()
	cancel()
	keys.Clear()
	logger.Println("Shutdown complete")
}

// deactivateRestored turns off every persisted active config at boot. Their
// signing keys died with the previous process, so they cannot sweep until
// the operator re-registers the secret.
func deactivateRestored(ctx context.Context, store storage.ConfigStore, logger *log.Logger) {
	configs, err := store.List(ctx)
	if err != nil {
		logger.Fatalf("List configs at startup: %v", err)
	}
	for _, cfg := range configs {
		if !cfg.IsActive {
			continue
		}
		cfg.IsActive = false
		cfg.DeactivatedReason = "restart: signing key not held"
		if err := store.Update(ctx, cfg); err != nil {
			logger.Fatalf("Deactivate restored config %s: %v", cfg.ID, err)
		}
		logger.Printf("Restored config %s deactivated pending re-registration", cfg.ID)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
