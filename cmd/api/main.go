package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"procure/api/internal/app"
	"procure/api/internal/authpw"
	"procure/api/internal/blob"
	"procure/api/internal/config"
	"procure/api/internal/domain"
	"procure/api/internal/logging"
	"procure/api/internal/metrics"
	"procure/api/internal/notify"
	"procure/api/internal/pipeline"
	"procure/api/internal/render"
	"procure/api/internal/search"
	"procure/api/internal/store"
	"procure/api/internal/token"
	"procure/api/internal/util"
)

const repairInterval = 10 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	logger, err := logging.New(cfg.Logger)
	if err != nil {
		log.Fatalf("logger setup failed: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	db, err := store.Open(ctx, cfg.Database.URL)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("migrations failed", zap.Error(err))
	}
	dataStore := store.NewPostgresStore(db)

	blobStore, err := blob.NewMinIOStore(ctx, blob.MinIOConfig{
		Endpoint:  cfg.Blob.Endpoint,
		AccessKey: cfg.Blob.AccessKey,
		SecretKey: cfg.Blob.SecretKey,
		Bucket:    cfg.Blob.Bucket,
		UseSSL:    cfg.Blob.UseSSL,
		PublicURL: cfg.Blob.PublicURL,
	})
	if err != nil {
		logger.Fatal("object store connection failed", zap.Error(err))
	}

	var registry app.GrantRegistry
	if strings.TrimSpace(cfg.Redis.URL) != "" {
		redisRegistry, err := token.NewRegistry(cfg.Redis.URL)
		if err != nil {
			logger.Fatal("redis connection failed", zap.Error(err))
		}
		defer redisRegistry.Close()
		registry = redisRegistry
		logger.Info("approval link replay registry enabled")
	} else {
		logger.Info("no redis configured, replay handled by the state guard alone")
	}

	var indexer app.Indexer
	if strings.TrimSpace(cfg.Search.MeiliURL) != "" {
		meili := search.NewMeili(cfg.Search.MeiliURL, cfg.Search.MeiliMasterKey, logger)
		defer meili.Close()
		indexer = meili
	}

	promRegistry := prometheus.NewRegistry()
	workflowMetrics := metrics.New(promRegistry)

	notifier := notify.NewService(notify.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
		FromName: cfg.SMTP.FromName,
	})
	if !notifier.IsConfigured() {
		logger.Warn("smtp not configured, approval emails disabled")
	}

	service := app.NewService(app.Options{
		Repo:      dataStore,
		Tokens:    token.NewService(cfg.Token.Secret, cfg.Token.TTL),
		Sessions:  token.NewSessionService(cfg.Auth.SessionSecret, cfg.Auth.SessionTTL),
		Passwords: authpw.NewService(dataStore),
		Registry:  registry,
		Pipeline:  pipeline.New(render.NewPDFRenderer(), blobStore, logger),
		Verifier:  pipeline.NewVerifier(blobStore),
		Notifier:  notify.NewBestEffort(notifier, logger),
		Indexer:   indexer,
		Metrics:   workflowMetrics,
		Logger:    logger,
		BaseURL:   cfg.Server.PublicBaseURL,
	})

	if err := bootstrapAdmin(ctx, dataStore, logger); err != nil {
		logger.Warn("admin bootstrap failed, will retry on next restart", zap.Error(err))
	}

	httpServer := app.NewHTTPServer(service, logger,
		promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}))
	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	repairCtx, stopRepair := context.WithCancel(ctx)
	go repairLoop(repairCtx, service, logger)

	go func() {
		logger.Info("procure api listening", zap.String("addr", cfg.Server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	stopRepair()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
}

// repairLoop periodically regenerates artifacts for documents whose
// approval write landed but whose generation did not.
func repairLoop(ctx context.Context, service *app.Service, logger *zap.Logger) {
	ticker := time.NewTicker(repairInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			repaired, err := service.RepairArtifacts(ctx)
			if err != nil {
				logger.Warn("artifact repair pass failed", zap.Error(err))
				continue
			}
			if repaired > 0 {
				logger.Info("artifacts repaired", zap.Int("count", repaired))
			}
		}
	}
}

// bootstrapAdmin seeds the first privileged user from the environment so a
// fresh deployment can sign in. A non-empty database is left alone.
func bootstrapAdmin(ctx context.Context, dataStore *store.PostgresStore, logger *zap.Logger) error {
	email := strings.TrimSpace(os.Getenv("PROCURE_BOOTSTRAP_ADMIN_EMAIL"))
	password := os.Getenv("PROCURE_BOOTSTRAP_ADMIN_PASSWORD")
	if email == "" || password == "" {
		return nil
	}

	if _, err := dataStore.FindUserByEmail(ctx, email); err == nil {
		return nil
	}

	hash, err := authpw.HashPassword(password)
	if err != nil {
		return err
	}
	user := domain.User{
		ID:           util.NewID("usr"),
		DisplayName:  "Administrator",
		Email:        email,
		Role:         domain.RoleAdmin,
		PasswordHash: hash,
	}
	if err := dataStore.CreateUser(ctx, user); err != nil {
		return err
	}
	logger.Info("bootstrap admin created", zap.String("email", email))
	return nil
}
