package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/docchat/backend/handlers"
	"github.com/docchat/backend/internal/auth"
	"github.com/docchat/backend/internal/config"
	"github.com/docchat/backend/internal/database"
	"github.com/docchat/backend/internal/document/parser"
	"github.com/docchat/backend/internal/document/qa"
	"github.com/docchat/backend/internal/document/service"
	"github.com/docchat/backend/internal/sessions"
	"github.com/docchat/backend/internal/storage"
	"github.com/docchat/backend/internal/tokens"
	"github.com/docchat/backend/internal/users"
	"github.com/docchat/backend/pkg/logger"
	"github.com/docchat/backend/pkg/metrics"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

func main() {
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Configure(cfg.Log.Level, cfg.Log.Dev)
	defer func() { _ = logger.Sync() }()
	logger.Infof("config loaded: log_level=%s store=%s redis=%v minio=%v llamaparse=%v openai=%v",
		logger.LevelString(), cfg.Store.Driver, cfg.Redis.Host != "", cfg.MinIO.Endpoint != "", cfg.Parser.LlamaCloudAPIKey != "", cfg.LLM.OpenAIAPIKey != "")

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		logger.Fatalf("failed to open %s store: %v", cfg.Store.Driver, err)
	}
	defer closeStore()
	userSvc := users.NewService(store)

	// Redis backs the token revocation list and, optionally, the rate limiter.
	var rdb *redis.Client
	if addr := cfg.Redis.Addr(); addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warnf("redis ping failed (%s): %v", addr, err)
		} else {
			logger.Infof("connected to redis at %s", addr)
		}
		defer func() { _ = rdb.Close() }()
	}

	issuer, err := tokens.NewIssuer(cfg.JWT)
	if err != nil {
		logger.Fatalf("token issuer: %v", err)
	}
	authSvc, err := auth.NewService(userSvc, auth.BcryptHasher{Cost: cfg.JWT.BcryptCost}, issuer, sessions.NewBlacklist(rdb))
	if err != nil {
		logger.Fatalf("auth service: %v", err)
	}

	var archive storage.Archive = storage.Noop{}
	if cfg.MinIO.Endpoint != "" {
		a, err := storage.NewMinIOArchive(ctx, cfg.MinIO)
		if err != nil {
			logger.Warnf("minio archive disabled: %v", err)
		} else {
			archive = a
			logger.Infof("archiving originals to minio bucket %s", cfg.MinIO.Bucket)
		}
	}

	docs := service.New(service.Options{
		Users:    userSvc,
		Parser:   newParser(cfg),
		Engine:   newEngine(cfg),
		Archive:  archive,
		MaxBytes: cfg.Upload.MaxBytes,
		TempDir:  cfg.Upload.TempDir,
	})

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r := handlers.NewRouter(handlers.Dependencies{
		Config:   cfg,
		Auth:     authSvc,
		Docs:     docs,
		Store:    userSvc,
		Redis:    rdb,
		Gatherer: prometheus.DefaultGatherer,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Infof("starting docchat on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Infof("shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("graceful shutdown: %v", err)
	}
}

// openStore connects the configured user store and returns a function that releases it.
func openStore(ctx context.Context, cfg *config.Config) (users.Store, func(), error) {
	switch cfg.Store.Driver {
	case config.StorePostgres:
		db, err := database.OpenPostgres(ctx, cfg.Store.DatabaseURL, 10*time.Second)
		if err != nil {
			return nil, nil, err
		}
		if cfg.Store.MigrateOnStart {
			if err := database.Migrate(ctx, db); err != nil {
				_ = db.Close()
				return nil, nil, err
			}
			logger.Infof("postgres migrations applied")
		}
		return users.NewPostgresStore(db), func() { _ = db.Close() }, nil

	case config.StoreMongo:
		client, err := database.ConnectMongo(ctx, cfg.MongoDB)
		if err != nil {
			return nil, nil, err
		}
		s := users.NewMongoStore(client.Database(cfg.MongoDB.Database))
		if err := s.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(ctx)
			return nil, nil, err
		}
		return s, func() { _ = client.Disconnect(context.Background()) }, nil

	default:
		logger.Warnf("using in-memory user store; data is lost on restart")
		return users.NewMemoryStore(), func() {}, nil
	}
}

func newParser(cfg *config.Config) parser.Parser {
	local := parser.NewLocal()
	p := &parser.ByExtension{Extractors: map[string]parser.Parser{}, Default: local}
	if cfg.Parser.LlamaCloudAPIKey != "" {
		p.Extractors[".pdf"] = parser.NewLlamaParse(cfg.Parser.LlamaParseURL, cfg.Parser.LlamaCloudAPIKey, cfg.Parser.PollInterval)
	}
	return p
}

func newEngine(cfg *config.Config) qa.Engine {
	e := &qa.IndexEngine{
		Embedder:     qa.HashEmbedder{},
		ChunkSize:    cfg.LLM.ChunkSize,
		ChunkOverlap: cfg.LLM.ChunkOverlap,
		TopK:         cfg.LLM.TopK,
	}
	if cfg.LLM.OpenAIAPIKey != "" {
		o := qa.NewOpenAI(cfg.LLM.OpenAIAPIKey, cfg.LLM.OpenAIBaseURL, cfg.LLM.ChatModel, cfg.LLM.EmbeddingModel)
		e.Embedder, e.Generator = o, o
	}
	return e
}
