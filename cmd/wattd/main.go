// Package main runs the wattd service: the token-economy entry points
// (initialize, task payment, stake, rebate claim) exposed over an HTTP JSON
// API, with Prometheus metrics on a separate listener.
package main

import (
	"context"
	"crypto/ed25519"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mr-tron/base58"

	"github.com/jackiewangjingchun-cpu/wattcoin/internal/domain"
	"github.com/jackiewangjingchun-cpu/wattcoin/internal/events"
	chevents "github.com/jackiewangjingchun-cpu/wattcoin/internal/events/clickhouse"
	ledgermem "github.com/jackiewangjingchun-cpu/wattcoin/internal/ledger/memory"
	ledgersol "github.com/jackiewangjingchun-cpu/wattcoin/internal/ledger/solana"
	"github.com/jackiewangjingchun-cpu/wattcoin/internal/observability"
	"github.com/jackiewangjingchun-cpu/wattcoin/internal/solana"
	"github.com/jackiewangjingchun-cpu/wattcoin/internal/storage/memory"
	"github.com/jackiewangjingchun-cpu/wattcoin/internal/storage/migrations"
	pgstore "github.com/jackiewangjingchun-cpu/wattcoin/internal/storage/postgres"
	"github.com/jackiewangjingchun-cpu/wattcoin/internal/token"
)

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	listenAddr := flag.String("listen-addr", envOr("WATT_LISTEN_ADDR", ":8080"), "HTTP API listen address")
	metricsAddr := flag.String("metrics-addr", envOr("WATT_METRICS_ADDR", ":9090"), "Prometheus metrics HTTP address")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string for the audit event sink (optional)")
	rpcEndpoint := flag.String("rpc-endpoint", os.Getenv("SOLANA_RPC_ENDPOINT"), "Solana RPC HTTP endpoint (enables on-chain custody)")
	wsEndpoint := flag.String("ws-endpoint", os.Getenv("SOLANA_WS_ENDPOINT"), "Solana WebSocket endpoint")
	operatorKey := flag.String("operator-key", os.Getenv("WATT_OPERATOR_KEY"), "base58 ed25519 operator private key for on-chain custody")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage and ledger instead of PostgreSQL")
	allowVaultOverride := flag.Bool("allow-burn-vault-override", false, "Accept payments whose burn vault differs from the configured utility vault")
	rebatePerKwh := flag.Uint64("rebate-per-kwh", 0, "Override the rebate conversion rate (base units per kWh, 0 = default)")

	flag.Parse()

	logger := log.New(os.Stdout, "[wattd] ", log.LstdFlags|log.Lshortfile)

	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}
	onChain := *rpcEndpoint != "" || *wsEndpoint != "" || *operatorKey != ""
	if onChain && (*rpcEndpoint == "" || *wsEndpoint == "" || *operatorKey == "") {
		logger.Fatal("on-chain custody needs --rpc-endpoint, --ws-endpoint and --operator-key together")
	}
	if onChain && *useMemory {
		logger.Fatal("--use-memory and on-chain custody are mutually exclusive")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend, seeder, cleanup, err := createBackend(ctx, backendConfig{
		postgresDSN: *postgresDSN,
		rpcEndpoint: *rpcEndpoint,
		wsEndpoint:  *wsEndpoint,
		operatorKey: *operatorKey,
		useMemory:   *useMemory,
	}, logger)
	if err != nil {
		logger.Fatalf("Failed to create backend: %v", err)
	}
	defer cleanup()

	emitter, emitterCleanup, err := createEmitter(ctx, *clickhouseDSN)
	if err != nil {
		logger.Fatalf("Failed to create event sink: %v", err)
	}
	defer emitterCleanup()

	svc := token.New(token.Options{
		Backend:                backend,
		Emitter:                emitter,
		RebatePerKwh:           *rebatePerKwh,
		AllowBurnVaultOverride: *allowVaultOverride,
	})

	api := newAPI(svc, seeder, logger)

	apiServer := &http.Server{
		Addr:         *listenAddr,
		Handler:      api.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	metricsMux := http.NewServeMux()
	metricsMux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	metricsMux.Handle("/metrics", observability.Handler())
	metricsServer := &http.Server{Addr: *metricsAddr, Handler: metricsMux}

	errCh := make(chan error, 2)
	go func() {
		logger.Printf("API listening on %s", *listenAddr)
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("api server: %w", err)
		}
	}()
	go func() {
		logger.Printf("Metrics listening on %s", *metricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("metrics server: %w", err)
		}
	}()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
	case err := <-errCh:
		logger.Printf("Server error: %v", err)
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Printf("API shutdown: %v", err)
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Printf("Metrics shutdown: %v", err)
	}

	logger.Println("Shutdown complete")
}

// backendConfig collects the storage/custody wiring flags.
type backendConfig struct {
	postgresDSN string
	rpcEndpoint string
	wsEndpoint  string
	operatorKey string
	useMemory   bool
}

// accountSeeder provisions ledger accounts; nil when balances are held
// externally on-chain.
type accountSeeder interface {
	CreateAccount(ctx context.Context, account string, balance uint64) error
}

// memorySeeder adapts the memory ledger's seeding call to accountSeeder.
type memorySeeder struct {
	ledger *ledgermem.Ledger
}

func (m memorySeeder) CreateAccount(_ context.Context, account string, balance uint64) error {
	m.ledger.CreateAccount(domain.Address(account), balance)
	return nil
}

// createBackend builds the storage backend for the selected mode: in-memory,
// PostgreSQL rows, or PostgreSQL stores with on-chain Solana custody.
func createBackend(ctx context.Context, cfg backendConfig, logger *log.Logger) (token.Backend, accountSeeder, func(), error) {
	if cfg.useMemory {
		l := ledgermem.NewLedger()
		logger.Println("Using in-memory storage")
		return memory.NewBackend(l), memorySeeder{ledger: l}, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.postgresDSN)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("run migrations: %w", err)
	}

	if cfg.rpcEndpoint == "" {
		logger.Println("Using PostgreSQL storage and ledger")
		backend := pgstore.NewBackend(pool)
		return backend, backend, func() { pool.Close() }, nil
	}

	operator, err := decodeOperatorKey(cfg.operatorKey)
	if err != nil {
		pool.Close()
		return nil, nil, nil, err
	}

	rpc := solana.NewHTTPClient(cfg.rpcEndpoint)
	ws, err := solana.NewWSClient(ctx, cfg.wsEndpoint, nil)
	if err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("connect websocket: %w", err)
	}

	adapter, err := ledgersol.New(ledgersol.Options{RPC: rpc, WS: ws, Operator: operator})
	if err != nil {
		ws.Close()
		pool.Close()
		return nil, nil, nil, fmt.Errorf("create solana ledger adapter: %w", err)
	}

	logger.Println("Using PostgreSQL storage with on-chain Solana custody")
	backend := pgstore.NewBackendWithLedger(pool, adapter)
	cleanup := func() {
		ws.Close()
		pool.Close()
	}
	return backend, nil, cleanup, nil
}

// decodeOperatorKey decodes a base58 ed25519 private key or seed.
func decodeOperatorKey(key string) (ed25519.PrivateKey, error) {
	raw, err := base58.Decode(key)
	if err != nil {
		return nil, fmt.Errorf("decode operator key: %w", err)
	}
	switch len(raw) {
	case ed25519.PrivateKeySize:
		return ed25519.PrivateKey(raw), nil
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(raw), nil
	default:
		return nil, fmt.Errorf("operator key: expected %d or %d bytes, got %d",
			ed25519.PrivateKeySize, ed25519.SeedSize, len(raw))
	}
}

// createEmitter builds the audit event sink: ClickHouse when a DSN is
// given, otherwise stdout logging.
func createEmitter(ctx context.Context, clickhouseDSN string) (events.Emitter, func(), error) {
	if clickhouseDSN == "" {
		return events.LogEmitter{}, func() {}, nil
	}

	conn, err := chevents.NewConn(ctx, clickhouseDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
	}

	emitter := chevents.NewEmitter(conn)
	if err := emitter.EnsureSchema(ctx); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("ensure clickhouse schema: %w", err)
	}

	return emitter, func() { conn.Close() }, nil
}

// envOr returns the env var value or a default.
func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
