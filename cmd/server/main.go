/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the Rollcall attendance server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env, parse environment config, apply flag overrides
  2. Initialize SQLite store
  3. Seed default accounts on an empty user table
  4. Build token service, auth middleware, API handler
  5. Configure HTTP router
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (overrides PORT)
  -db      SQLite database path (overrides ROLLCALL_DB)
           Use ":memory:" for an in-memory database

ENVIRONMENT:
  PORT, ROLLCALL_DB, ROLLCALL_JWT_SECRET, ROLLCALL_TOKEN_TTL,
  ROLLCALL_SEED. A .env file in the working directory is honored.
  Without ROLLCALL_JWT_SECRET a random secret is generated per boot,
  which invalidates tokens on restart.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/rollcall.db"

  # Run with in-memory database
  ./server -db=":memory:"

  # Run on different port
  ./server -port=3000

SEE ALSO:
  - config/config.go: Environment variables
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/warp/rollcall/api"
	"github.com/warp/rollcall/auth"
	"github.com/warp/rollcall/config"
	"github.com/warp/rollcall/store/sqlite"
)

func main() {
	// Environment first, flags override
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment as is")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	port := flag.Int("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	flag.Parse()
	cfg.Port = *port
	cfg.DBPath = *dbPath

	// Initialize store
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// First boot on an empty database gets the default accounts
	if cfg.SeedDefaults {
		if err := auth.EnsureDefaultUsers(context.Background(), store); err != nil {
			log.Fatalf("Failed to seed default users: %v", err)
		}
	}

	// Token service
	secret := cfg.JWTSecret
	if secret == "" {
		secret = auth.RandomSecret()
		log.Println("⚠️  ROLLCALL_JWT_SECRET not set; generated a random secret, tokens will not survive a restart")
	}
	tokens := auth.NewTokenService([]byte(secret), cfg.TokenTTL)

	// Initialize handler and auth middleware
	handler := api.NewHandler(store, tokens)
	authmw := auth.NewMiddleware(tokens, store)

	// Create router
	router := api.NewRouter(handler, authmw)

	// Create server
	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("🚀 Server starting on http://localhost:%d", cfg.Port)
		log.Printf("📋 API available at http://localhost:%d/api", cfg.Port)
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
