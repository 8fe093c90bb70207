// Package docchat provides the document chat server implementation.
package docchat

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/docchat/internal/docchat/biz"
	"github.com/kart-io/docchat/internal/docchat/handler"
	"github.com/kart-io/docchat/internal/docchat/middleware"
	"github.com/kart-io/docchat/internal/docchat/router"
	"github.com/kart-io/docchat/internal/docchat/store"
	"github.com/kart-io/docchat/pkg/app"
	"github.com/kart-io/docchat/pkg/component/redis"
	"github.com/kart-io/docchat/pkg/component/storage"
	"github.com/kart-io/docchat/pkg/llm"

	// Register LLM providers.
	_ "github.com/kart-io/docchat/pkg/llm/huggingface"
	_ "github.com/kart-io/docchat/pkg/llm/ollama"
	_ "github.com/kart-io/docchat/pkg/llm/openai"

	cacheopts "github.com/kart-io/docchat/pkg/options/cache"
	chatopts "github.com/kart-io/docchat/pkg/options/chat"
	dbopts "github.com/kart-io/docchat/pkg/options/database"
	llmopts "github.com/kart-io/docchat/pkg/options/llm"
	logopts "github.com/kart-io/docchat/pkg/options/logger"
	redisopts "github.com/kart-io/docchat/pkg/options/redis"
	httpopts "github.com/kart-io/docchat/pkg/options/server/http"
	traceopts "github.com/kart-io/docchat/pkg/options/tracing"
	"github.com/kart-io/docchat/pkg/tracing"
	"github.com/kart-io/docchat/pkg/validator"
)

// Name is the name of the application.
const Name = "docchat"

// defaultShutdownTimeout bounds graceful shutdown when no timeout is set.
const defaultShutdownTimeout = 30 * time.Second

// Config contains application-related configurations.
type Config struct {
	HTTPOptions       *httpopts.Options
	LogOptions        *logopts.Options
	DatabaseOptions   *dbopts.Options
	RedisOptions      *redisopts.Options
	EmbeddingOptions  *llmopts.ProviderOptions
	GenerationOptions *llmopts.ProviderOptions
	CacheOptions      *cacheopts.Options
	ChatOptions       *chatopts.Options
	TracingOptions    *traceopts.Options
	ShutdownTimeout   time.Duration
}

// Server represents the document chat server.
type Server struct {
	httpServer      *http.Server
	service         *biz.ChatService
	storages        *storage.Manager
	watcher         *biz.UploadWatcher
	tracer          *tracing.Provider
	shutdownTimeout time.Duration
}

// NewServer initializes and returns a new Server instance.
func (cfg *Config) NewServer(ctx context.Context) (*Server, error) {
	printBanner(cfg)

	// 1. Initialize the logger
	cfg.LogOptions.AddInitialField("service.name", Name)
	cfg.LogOptions.AddInitialField("service.version", app.GetVersion())
	if err := cfg.LogOptions.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Info("Starting docchat service...")

	// 2. Install the tracer provider. Spans stay no-ops until tracing is
	// enabled in the configuration.
	if cfg.TracingOptions.ServiceName == "" {
		cfg.TracingOptions.ServiceName = Name
	}
	if cfg.TracingOptions.ServiceVersion == "" {
		cfg.TracingOptions.ServiceVersion = app.GetVersion()
	}
	tracerProvider, err := tracing.NewProvider(cfg.TracingOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	if cfg.TracingOptions.Enabled {
		logger.Infow("Tracing initialized",
			"exporter", cfg.TracingOptions.Exporter,
			"sampler", cfg.TracingOptions.Sampler,
		)
	}

	// 3. Initialize the store layer
	factory, dbClient, err := store.NewFactory(ctx, cfg.DatabaseOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	storages := storage.NewManager()
	storages.MustRegister("db", dbClient)
	logger.Infow("Store layer initialized",
		"engine", cfg.DatabaseOptions.Engine,
		"path", cfg.DatabaseOptions.Path,
	)

	// 4. Connect Redis when enabled. Losing the cache only costs latency, so
	// a failed connection degrades to cacheless operation instead of
	// blocking startup.
	var (
		answerCache *biz.AnswerCache
		cacheRedis  *goredis.Client
	)
	if cfg.RedisOptions.Enabled {
		redisClient, err := redis.NewWithContext(ctx, cfg.RedisOptions)
		if err != nil {
			logger.Warnw("failed to connect to redis, caching is disabled", "error", err.Error())
		} else {
			storages.MustRegister("redis-cache", redisClient)
			cacheRedis = redisClient.Client()
			answerCache = biz.NewAnswerCache(cacheRedis, &biz.AnswerCacheConfig{
				Enabled:   cfg.CacheOptions.Enabled,
				TTL:       cfg.CacheOptions.TTL,
				KeyPrefix: cfg.CacheOptions.KeyPrefix,
			})
			logger.Infow("Redis cache initialized",
				"host", cfg.RedisOptions.Host,
				"port", cfg.RedisOptions.Port,
				"answer_ttl", cfg.CacheOptions.TTL.String(),
			)
		}
	} else {
		logger.Info("Redis is disabled, answer and embedding caches are off")
	}

	// 5. Initialize the LLM providers
	embedder, err := llm.NewEmbeddingProvider(cfg.EmbeddingOptions.Provider, cfg.EmbeddingOptions.ToConfigMap())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding provider: %w", err)
	}
	if cacheRedis != nil && cfg.CacheOptions.EmbeddingEnabled {
		embedder = llm.NewCachedEmbeddingProvider(embedder, cacheRedis, &llm.EmbeddingCacheConfig{
			Enabled:   true,
			TTL:       cfg.CacheOptions.EmbeddingTTL,
			KeyPrefix: cfg.CacheOptions.EmbeddingKeyPrefix,
		})
	}
	logger.Infow("Embedding provider initialized",
		"provider", cfg.EmbeddingOptions.Provider,
		"model", cfg.EmbeddingOptions.Model,
		"cached", cacheRedis != nil && cfg.CacheOptions.EmbeddingEnabled,
	)

	chatProvider, err := llm.NewChatProvider(cfg.GenerationOptions.Provider, cfg.GenerationOptions.ToConfigMap())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chat provider: %w", err)
	}
	logger.Infow("Chat provider initialized",
		"provider", cfg.GenerationOptions.Provider,
		"models", cfg.GenerationOptions.ModelChain(),
	)

	// 6. Initialize the biz layer
	serviceConfig := &biz.ServiceConfig{
		Ingester: &biz.IngesterConfig{
			ChunkSize:    cfg.ChatOptions.ChunkSize,
			ChunkOverlap: cfg.ChatOptions.ChunkOverlap,
			MaxFileSize:  cfg.ChatOptions.MaxFileSize,
			EmbedWorkers: cfg.ChatOptions.EmbedWorkers,
		},
		Generator: &biz.GeneratorConfig{
			Models:         cfg.GenerationOptions.ModelChain(),
			MinAnswerChars: cfg.ChatOptions.MinAnswerChars,
		},
		Chat: &biz.ChatConfig{
			Strategy:            cfg.ChatOptions.Strategy,
			TopK:                cfg.ChatOptions.TopK,
			MaxChunksForContext: cfg.ChatOptions.MaxContextChunks,
			HistoryLimit:        cfg.ChatOptions.HistoryLimit,
		},
	}
	chatService, err := biz.NewChatService(factory, embedder, chatProvider, answerCache, serviceConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chat service: %w", err)
	}
	logger.Infow("Chat service initialized",
		"strategy", cfg.ChatOptions.Strategy,
		"top_k", cfg.ChatOptions.TopK,
		"cache.enabled", cacheRedis != nil && cfg.CacheOptions.Enabled,
	)

	// 7. Watch the upload directory when enabled
	var watcher *biz.UploadWatcher
	if cfg.ChatOptions.WatchUploads {
		watcher, err = biz.NewUploadWatcher(chatService.Ingester(), &biz.UploadWatcherConfig{
			Dir: cfg.ChatOptions.UploadDir,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize upload watcher: %w", err)
		}
		logger.Infow("Upload watcher initialized", "dir", cfg.ChatOptions.UploadDir)
	}

	// 8. Initialize the handler layer
	binding.Validator = validator.NewBinding()
	documentHandler := handler.NewDocumentHandler(chatService, cfg.ChatOptions.MaxFileSize)
	chatHandler := handler.NewChatHandler(chatService, handler.DefaultChatTimeout)
	healthHandler := handler.NewHealthHandler(chatService, storages, map[string]string{
		"embedding": fmt.Sprintf("%s (%s)", cfg.EmbeddingOptions.Provider, cfg.EmbeddingOptions.Model),
		"chat":      fmt.Sprintf("%s (%s)", cfg.GenerationOptions.Provider, cfg.GenerationOptions.Model),
	}, Name, app.GetVersion())
	logger.Info("Handler layer initialized")

	// 9. Initialize the HTTP engine and register routes
	gin.SetMode(cfg.HTTPOptions.Mode)
	engine := gin.New()
	engine.MaxMultipartMemory = cfg.HTTPOptions.MaxMultipartMemory
	middlewares := []gin.HandlerFunc{
		middleware.Recovery(),
		middleware.RequestID(),
	}
	if cfg.TracingOptions.Enabled {
		middlewares = append(middlewares, middleware.Tracing("/healthz", "/metrics"))
	}
	middlewares = append(middlewares, middleware.Logger("/healthz", "/metrics"))
	engine.Use(middlewares...)
	router.Register(engine, documentHandler, chatHandler, healthHandler)

	shutdownTimeout := cfg.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = defaultShutdownTimeout
	}

	logger.Info("docchat service is ready")
	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.HTTPOptions.Addr,
			Handler:      engine,
			ReadTimeout:  cfg.HTTPOptions.ReadTimeout,
			WriteTimeout: cfg.HTTPOptions.WriteTimeout,
			IdleTimeout:  cfg.HTTPOptions.IdleTimeout,
		},
		service:         chatService,
		storages:        storages,
		watcher:         watcher,
		tracer:          tracerProvider,
		shutdownTimeout: shutdownTimeout,
	}, nil
}

// Run starts the server and blocks until ctx is cancelled or the listener
// fails, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	if s.watcher != nil {
		s.watcher.Start(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infow("HTTP server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		s.close()
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	err := s.httpServer.Shutdown(shutdownCtx)
	s.close()
	if err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}

	logger.Info("Server stopped")
	return nil
}

// close releases the components in reverse initialization order.
func (s *Server) close() {
	if s.watcher != nil {
		if err := s.watcher.Close(); err != nil {
			logger.Warnw("failed to close upload watcher", "error", err.Error())
		}
	}
	s.service.Close()
	if err := s.storages.CloseAll(); err != nil {
		logger.Warnw("failed to close storage clients", "error", err.Error())
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.tracer.Shutdown(flushCtx); err != nil {
		logger.Warnw("failed to shut down tracer provider", "error", err.Error())
	}
}

func printBanner(cfg *Config) {
	fmt.Printf("Starting %s...\n", Name)
	fmt.Printf("  Embedding: %s (%s)\n", cfg.EmbeddingOptions.Provider, cfg.EmbeddingOptions.Model)
	fmt.Printf("  Chat: %s (%s)\n", cfg.GenerationOptions.Provider, cfg.GenerationOptions.Model)
	fmt.Printf("  Listen: %s\n", cfg.HTTPOptions.Addr)
}
