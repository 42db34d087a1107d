/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the leave engine server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (if present) and parse command-line flags
  2. Initialize the zap logger
  3. Initialize SQLite store and seed the catalog on first boot
  4. Wire ledger, validator and service
  5. Configure HTTP router and start the carryover scheduler
  6. Start server with graceful shutdown

CONFIGURATION:
  Flags, each overridable by an environment variable (.env is honored):
    -port         PORT                 HTTP server port (default: 8080)
    -db           LEAVE_DB             SQLite database path (default: leave.db)
                                       Use ":memory:" for in-memory database
    -entitlement  DEFAULT_ENTITLEMENT  Default annual days (default: 25)
    -carryover    MAX_CARRYOVER        Year-end carryover cap (default: 5)
    -dev                               Development logger (pretty output)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the carryover scheduler
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/leave.db"

  # Run with in-memory database
  ./server -db=":memory:"

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/leave-engine/api"
	"github.com/warp/leave-engine/factory"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store/sqlite"
)

func main() {
	// .env is optional; flags and real env vars win.
	_ = godotenv.Load()

	port := flag.Int("port", envInt("PORT", 8080), "HTTP server port")
	dbPath := flag.String("db", envStr("LEAVE_DB", "leave.db"), "SQLite database path")
	entitlement := flag.Float64("entitlement", envFloat("DEFAULT_ENTITLEMENT", 25), "default annual entitlement in days")
	carryover := flag.Float64("carryover", envFloat("MAX_CARRYOVER", 5), "year-end carryover cap in days")
	dev := flag.Bool("dev", false, "development logger output")
	flag.Parse()

	logger, err := newLogger(*dev)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer store.Close()

	if err := seedCatalog(store); err != nil {
		logger.Fatal("failed to seed leave type catalog", zap.Error(err))
	}

	// Wire the engine
	ledger := leave.NewLedger(store, store)
	ledger.DefaultEntitlement = decimal.NewFromFloat(*entitlement)
	validator := leave.NewValidator(store, store, ledger, store)
	service := leave.NewService(store, ledger, validator, logger)
	service.Audit = store
	service.Notifier = &leave.LogNotifier{Logger: logger}

	handler := api.NewHandler(store, service, logger)
	router := api.NewRouter(handler)

	scheduler := api.NewCarryoverScheduler(store, service, logger)
	scheduler.MaxCarryover = decimal.NewFromFloat(*carryover)
	scheduler.Start()
	defer scheduler.Stop()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting",
			zap.String("addr", fmt.Sprintf("http://localhost:%d", *port)),
			zap.String("db", *dbPath))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

// seedCatalog installs the standard leave types on an empty database.
func seedCatalog(store *sqlite.Store) error {
	ctx := context.Background()
	types, err := store.ListLeaveTypes(ctx)
	if err != nil {
		return err
	}
	if len(types) > 0 {
		return nil
	}
	for _, lt := range factory.NewTypeFactory().StandardCatalog() {
		if err := store.SaveLeaveType(ctx, lt); err != nil {
			return err
		}
	}
	return nil
}

func newLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
