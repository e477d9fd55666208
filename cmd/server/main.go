package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/avvvet/foodbuddy-agent/internal/agent"
	"github.com/avvvet/foodbuddy-agent/internal/api"
	"github.com/avvvet/foodbuddy-agent/internal/config"
	"github.com/avvvet/foodbuddy-agent/internal/handlers"
	"github.com/avvvet/foodbuddy-agent/internal/llm"
	"github.com/avvvet/foodbuddy-agent/internal/memory"
	"github.com/avvvet/foodbuddy-agent/internal/places"
	"github.com/avvvet/foodbuddy-agent/internal/recipes"
	"github.com/avvvet/foodbuddy-agent/internal/transport"
)

func main() {
	// Load .env file if it exists (for development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	log.Println("🚀 Starting FoodBuddy Agent Service...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}
	log.Printf("📋 Service: %s", cfg.ServiceName)
	log.Printf("🤖 LLM provider: %s", cfg.LLMProvider)

	ctx := context.Background()

	provider, err := llm.NewProvider(ctx, cfg)
	if err != nil {
		log.Fatalf("❌ Failed to initialize LLM provider: %v", err)
	}
	log.Println("✅ LLM provider initialized")

	placesClient, err := places.NewSerpClient(cfg.SerpAPIKey, cfg.PlacesTimeout)
	if err != nil {
		log.Fatalf("❌ Failed to initialize place search: %v", err)
	}

	recipeStore, err := recipes.Open(cfg.RecipesDBPath)
	if err != nil {
		log.Fatalf("❌ Failed to open recipe database: %v", err)
	}
	defer recipeStore.Close()

	if cfg.RecipesSeedPath != "" {
		if _, err := recipeStore.Seed(ctx, cfg.RecipesSeedPath); err != nil {
			log.Fatalf("❌ Failed to seed recipes: %v", err)
		}
	}
	if count, err := recipeStore.Count(ctx); err == nil {
		log.Printf("📚 Recipe database: %s (%d recipes)", cfg.RecipesDBPath, count)
	}

	store, err := newSessionStore(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to initialize session store: %v", err)
	}

	sessionManager := memory.NewManager(store, agent.Dependencies{
		Provider: provider,
		Places:   placesClient,
		Recipes:  recipeStore,
	})
	log.Println("✅ Session manager initialized")

	stopEviction := make(chan struct{})
	go evictIdleSessions(sessionManager, cfg.SessionIdleTimeout, stopEviction)

	server := echo.New()
	server.HideBanner = true
	server.Use(middleware.Logger())
	server.Use(middleware.Recover())
	api.NewHandler(sessionManager, cfg.UserID).RegisterRoutes(server)

	go func() {
		if err := server.Start(cfg.HTTPAddr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ HTTP server failed: %v", err)
		}
	}()
	log.Printf("🌐 HTTP API listening on %s", cfg.HTTPAddr)

	var natsTransport *transport.NATSTransport
	if cfg.NatsEnabled {
		log.Println("📡 Connecting to NATS...")
		natsTransport, err = transport.NewNATSTransport(cfg, handlers.NewChatHandler(sessionManager))
		if err != nil {
			log.Fatalf("❌ Failed to initialize NATS transport: %v", err)
		}
		if err := natsTransport.Start(); err != nil {
			log.Fatalf("❌ Failed to start NATS transport: %v", err)
		}
		log.Printf("👂 Listening on subject: %s", cfg.NatsRequestSubject)
	}

	log.Println("✅ FoodBuddy Agent Service is running!")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	log.Printf("🛑 Received signal: %v", sig)
	log.Println("🔄 Shutting down gracefully...")

	close(stopEviction)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️ Error shutting down HTTP server: %v", err)
	}

	if natsTransport != nil {
		if err := natsTransport.Close(); err != nil {
			log.Printf("⚠️ Error closing NATS transport: %v", err)
		}
	}

	log.Printf("📊 Final session count: %d", sessionManager.ActiveSessionCount())

	if err := sessionManager.Close(); err != nil {
		log.Printf("⚠️ Error closing session store: %v", err)
	}

	log.Println("👋 FoodBuddy Agent Service stopped")
}

func newSessionStore(cfg *config.Config) (memory.Store, error) {
	switch cfg.SessionBackend {
	case config.BackendFile:
		log.Printf("💾 Session logs in %s", cfg.SessionDir)
		store, err := memory.NewFileStore(cfg.SessionDir)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		log.Println("🔌 Connecting to Redis...")
		store, err := memory.NewRedisStore(cfg.RedisURL, cfg.SessionTTL)
		if err != nil {
			return nil, err
		}
		log.Println("✅ Redis connected")
		return store, nil
	}
}

func evictIdleSessions(manager *memory.Manager, maxIdle time.Duration, stop <-chan struct{}) {
	if maxIdle <= 0 {
		return
	}

	ticker := time.NewTicker(maxIdle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			manager.EvictIdle(maxIdle)
		}
	}
}
