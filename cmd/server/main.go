/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the benefits engine server: statutory
  contribution calculation plus the employee-loan lifecycle. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (if present) and parse flags
  2. Load policy/rate configuration (JSON file, optional)
  3. Initialize SQLite store
  4. Create API handler with dependencies
  5. Configure HTTP router
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS (env fallback in parentheses):
  -port     HTTP server port (PORT, default: 8080)
  -db       SQLite database path (DATABASE_PATH, default: benefits.db)
            Use ":memory:" for an in-memory database
  -config   Policy/rates JSON path (CONFIG_PATH, optional)
  -letters  Output directory for clearance letters (LETTERS_DIR,
            default: ./letters-out)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/benefits.db"

  # Run with tenant configuration overrides
  ./server -config="./config/tenant.json"

SEE ALSO:
  - api/server.go: Router configuration
  - factory/config.go: Configuration schema
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/warp/benefits-engine/api"
	"github.com/warp/benefits-engine/contribution"
	"github.com/warp/benefits-engine/factory"
	"github.com/warp/benefits-engine/loan"
	"github.com/warp/benefits-engine/store/sqlite"
)

func main() {
	// .env is optional; flags beat env, env beats defaults.
	_ = godotenv.Load()

	port := flag.Int("port", envInt("PORT", 8080), "HTTP server port")
	dbPath := flag.String("db", envStr("DATABASE_PATH", "benefits.db"), "SQLite database path")
	configPath := flag.String("config", envStr("CONFIG_PATH", ""), "policy/rates JSON path")
	lettersDir := flag.String("letters", envStr("LETTERS_DIR", "./letters-out"), "clearance letter output directory")
	flag.Parse()

	// Configuration
	cfg := factory.DefaultConfig()
	if *configPath != "" {
		data, err := os.ReadFile(*configPath)
		if err != nil {
			log.Fatalf("Failed to read config %s: %v", *configPath, err)
		}
		cfg, err = factory.ParseConfig(data)
		if err != nil {
			log.Fatalf("Failed to parse config %s: %v", *configPath, err)
		}
		log.Printf("Loaded configuration from %s", *configPath)
	}

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Engine
	lifecycle := loan.NewLifecycle(cfg.LoanPolicies, loan.NewEvaluator(cfg.Eligibility))
	calculator := contribution.NewCalculator(cfg.Rates)

	// Initialize handler and router
	handler := api.NewHandler(store, store, lifecycle, calculator, *lettersDir)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("🚀 Server starting on http://localhost:%d", *port)
		log.Printf("📊 API available at http://localhost:%d/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
