package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"helpbot/internal/config"
	"helpbot/internal/db"
	"helpbot/internal/handlers"
	"helpbot/internal/repositories"
	"helpbot/internal/routes"
	"helpbot/internal/services"
	"helpbot/internal/telegram"
	"helpbot/internal/workers"

	"github.com/gorilla/mux"
	httpSwagger "github.com/swaggo/http-swagger"
)

// App wires every component of the bot together and owns their lifecycle.
type App struct {
	cfg     *config.Config
	adapter *telegram.Adapter
	httpSrv *http.Server
	chroma  *db.ChromaDBClient
	cleanup *workers.SessionCleanupWorker
	logger  *log.Logger
}

// corsMiddleware adds CORS headers to all ops API responses
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// NewApp builds the whole application: config, clients, repositories,
// services, the consultation pipeline, the Telegram adapter and the ops
// HTTP server. Every dependency is constructed here and injected downward.
func NewApp(ctx context.Context) (*App, error) {
	logger := log.New(os.Stdout, "[SERVER] ", log.LstdFlags)

	cfg, err := config.Load(logger)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	// Vector store
	chromaClient := db.NewChromaDBClient(db.ChromaDBConfig{
		Host:     cfg.ChromaHost,
		Port:     cfg.ChromaPort,
		Tenant:   cfg.ChromaTenant,
		Database: cfg.ChromaDatabase,
		Timeout:  cfg.ChromaTimeout(),
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := chromaClient.Heartbeat(pingCtx); err != nil {
		return nil, fmt.Errorf("chromadb connection failed: %w", err)
	}
	logger.Println("✅ ChromaDB connected successfully")

	vectorRepo := repositories.NewChromaVectorRepository(chromaClient, cfg.ChromaCollection)

	// Embedding microservice
	embedder := services.NewEmbeddingClient(cfg.EmbeddingServiceURL)
	logger.Printf("Embedding service: %s", cfg.EmbeddingServiceURL)

	// Catalog
	catalog, err := repositories.NewCatalogRepository(cfg.ServicesFile)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	logger.Printf("✅ Catalog loaded: %d services", catalog.Len())

	// Sessions + telemetry
	sessions := repositories.NewSessionRepository(log.New(os.Stdout, "[SESSION] ", log.LstdFlags))
	telemetry := services.NewLLMTelemetry(log.New(os.Stdout, "[LLM] ", log.LstdFlags))

	// Services
	searchLogger := log.New(os.Stdout, "[SEARCH] ", log.LstdFlags)
	searchService := services.NewSearchService(embedder, vectorRepo, catalog, searchLogger)

	if err := searchService.EnsureIndexed(ctx); err != nil {
		return nil, fmt.Errorf("index catalog: %w", err)
	}

	llmService := services.NewLLMService(
		cfg.OpenRouterAPIKey,
		cfg.LLMModel,
		cfg.SystemPromptFile,
		telemetry,
		log.New(os.Stdout, "[LLM] ", log.LstdFlags),
	)

	consultation := services.NewConsultationService(
		searchService,
		sessions,
		llmService,
		telemetry,
		log.New(os.Stdout, "[CONSULT] ", log.LstdFlags),
	)

	// Background session eviction
	cleanup := workers.NewSessionCleanupWorker(
		workers.DefaultSessionCleanupConfig(),
		sessions,
		log.New(os.Stdout, "[WORKER] ", log.LstdFlags),
	)

	// Telegram transport
	adapter, err := telegram.New(cfg.TelegramBotToken, consultation, log.New(os.Stdout, "[TELEGRAM] ", log.LstdFlags))
	if err != nil {
		return nil, fmt.Errorf("create telegram adapter: %w", err)
	}

	// Ops HTTP server
	opsLogger := log.New(os.Stdout, "[OPS] ", log.LstdFlags)
	h := &routes.Handlers{
		Home:          handlers.HomeHandler,
		HealthHandler: handlers.NewHealthHandler(vectorRepo, embedder, opsLogger),
		SearchHandler: handlers.NewSearchHandler(searchService, opsLogger),
		StatsHandler:  handlers.NewStatsHandler(telemetry, sessions, opsLogger),
	}

	router := mux.NewRouter()
	routes.RegisterRoutes(router, h)

	router.PathPrefix("/swagger/").Handler(httpSwagger.Handler(
		httpSwagger.URL(fmt.Sprintf("http://localhost:%d/swagger/doc.json", cfg.HTTPPort)),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("none"),
		httpSwagger.DomID("swagger-ui"),
	))

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: corsMiddleware(router),
	}

	return &App{
		cfg:     cfg,
		adapter: adapter,
		httpSrv: httpSrv,
		chroma:  chromaClient,
		cleanup: cleanup,
		logger:  logger,
	}, nil
}

// Run starts the Telegram long-poll loop and the ops HTTP server, then
// blocks until ctx is cancelled or a termination signal arrives.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Printf("📊 Ops API listening on %s", a.httpSrv.Addr)
		if err := a.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	if err := a.cleanup.Start(ctx); err != nil {
		a.logger.Printf("⚠️  Failed to start session cleanup worker: %v", err)
	}

	go a.adapter.Start(ctx)
	a.logger.Println("✅ Help Bot AI started")

	select {
	case err := <-errCh:
		return fmt.Errorf("ops server: %w", err)
	case <-ctx.Done():
	}

	a.logger.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpSrv.Shutdown(shutdownCtx); err != nil {
		a.logger.Printf("⚠️  Ops server shutdown: %v", err)
	}
	if err := a.cleanup.Stop(shutdownCtx); err != nil {
		a.logger.Printf("⚠️  Session cleanup worker stop: %v", err)
	}
	a.chroma.Close()
	a.logger.Println("✅ Shutdown complete")
	return nil
}
