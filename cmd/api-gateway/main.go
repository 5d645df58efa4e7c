package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/internquest-api/api/swagger"
	"github.com/noah-isme/internquest-api/internal/handler"
	"github.com/noah-isme/internquest-api/internal/repository"
	"github.com/noah-isme/internquest-api/internal/service"
	"github.com/noah-isme/internquest-api/pkg/cache"
	"github.com/noah-isme/internquest-api/pkg/config"
	"github.com/noah-isme/internquest-api/pkg/database"
	"github.com/noah-isme/internquest-api/pkg/jobs"
	"github.com/noah-isme/internquest-api/pkg/logger"
	"github.com/noah-isme/internquest-api/pkg/scheduler"
	"github.com/noah-isme/internquest-api/pkg/storage"
)

// @title InternQuest API
// @version 1.0.0
// @description OJT requirement checklists, adviser approvals and time logs
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, checklist cache disabled", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close() //nolint:errcheck
		}
	}

	blobs, localFiles, closeBlobs, err := newBucket(ctx, cfg)
	if err != nil {
		logr.Fatal("failed to init storage", zap.Error(err))
	}
	defer closeBlobs()

	validate := service.NewValidator()
	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(
		repository.NewCacheRepository(redisClient, logr),
		metricsSvc,
		cfg.Checklist.CacheTTL,
		logr,
		cfg.Checklist.CacheEnabled && redisClient != nil,
	)

	userRepo := repository.NewUserRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	approvalRepo := repository.NewApprovalRepository(db)
	templateRepo := repository.NewTemplateRepository(db)
	timeLogRepo := repository.NewTimeLogRepository(db)
	checklistDocRepo := repository.NewChecklistDocumentRepository(db)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	uploadPolicy := service.NewUploadPolicy(cfg.Uploads.MaxFileSizeBytes, cfg.Uploads.AllowedMIMEs)
	templateSvc := service.NewTemplateService(templateRepo, blobs, userRepo, cacheSvc, uploadPolicy, validate, logr)
	approvalSvc := service.NewApprovalService(approvalRepo, profileRepo, userRepo, cacheSvc, validate, logr)

	completionSvc := service.NewCompletionService(
		profileRepo,
		checklistDocRepo,
		blobs,
		service.NewHTTPSignatureSource(cfg.Completion.SignatureURL, 10*time.Second),
		nil,
		logr.Named("completion"),
	)
	completionQueue := jobs.NewQueue("completion", completionSvc.Handle, jobs.QueueConfig{
		Workers:    cfg.Completion.WorkerConcurrency,
		MaxRetries: cfg.Completion.WorkerRetries,
		RetryDelay: 2 * time.Second,
		Observer:   metricsSvc.ObserveJob,
		Logger:     logr.Named("jobs"),
	})
	completionQueue.Start(ctx)
	defer completionQueue.Stop()

	locks := service.NewKeyedMutex()
	requirementSvc := service.NewRequirementService(
		profileRepo,
		templateSvc,
		approvalRepo,
		userRepo,
		completionQueue,
		cacheSvc,
		metricsSvc,
		locks,
		logr.Named("requirements"),
		service.RequirementServiceConfig{CacheTTL: cfg.Checklist.CacheTTL},
	)
	requirementFileSvc := service.NewRequirementFileService(
		profileRepo,
		approvalRepo,
		templateSvc,
		blobs,
		userRepo,
		userRepo,
		cacheSvc,
		metricsSvc,
		locks,
		logr.Named("requirement-files"),
		service.RequirementFileServiceConfig{
			MaxFileSize:      cfg.Uploads.MaxFileSizeBytes,
			AllowedMIMEs:     cfg.Uploads.AllowedMIMEs,
			InlineThreshold:  cfg.Uploads.InlineThresholdBytes,
			DefaultStoreMode: cfg.Uploads.DefaultStoreMode,
		},
	)
	timeLogSvc := service.NewTimeLogService(timeLogRepo, blobs, blobs, validate, logr.Named("time-logs"), service.TimeLogServiceConfig{
		RequiredHours: cfg.TimeLogs.RequiredHours,
		ExportTTL:     cfg.TimeLogs.ExportTTL,
	})

	cron := scheduler.New(logr.Named("cron"), 5*time.Minute)
	if cfg.Cleanup.Enabled {
		if err := cron.Register("exports-cleanup", cfg.Cleanup.Spec, timeLogSvc.CleanupExports); err != nil {
			logr.Fatal("failed to schedule export cleanup", zap.Error(err))
		}
	}
	cron.Start()

	var files *handler.FileHandler
	if localFiles != nil {
		files = handler.NewFileHandler(localFiles)
	}
	r := newRouter(cfg, logr, routeDeps{
		auth:         authSvc,
		audit:        userRepo,
		metrics:      metricsSvc,
		authH:        handler.NewAuthHandler(authSvc),
		requirementH: handler.NewRequirementHandler(requirementSvc, requirementFileSvc),
		approvalH:    handler.NewApprovalHandler(approvalSvc),
		templateH:    handler.NewTemplateHandler(templateSvc),
		timeLogH:     handler.NewTimeLogHandler(timeLogSvc),
		fileH:        files,
		metricsH:     handler.NewMetricsHandler(metricsSvc, db),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("http shutdown", zap.Error(err))
	}
	cron.Stop(shutdownCtx)
}

// newBucket returns the blob store, plus the local bucket when files are served by this process.
func newBucket(ctx context.Context, cfg *config.Config) (storage.Bucket, *storage.LocalBucket, func(), error) {
	switch cfg.Storage.Driver {
	case config.StorageDriverGCS:
		bucket, err := storage.NewGCSBucket(ctx, cfg.Storage.GCSBucket, cfg.Storage.GCSCredentialsFile, cfg.Storage.SignedURLTTL)
		if err != nil {
			return nil, nil, nil, err
		}
		return bucket, nil, func() { _ = bucket.Close() }, nil
	default:
		store, err := storage.NewLocalStorage(cfg.Storage.Dir)
		if err != nil {
			return nil, nil, nil, err
		}
		signer := storage.NewSignedURLSigner(cfg.Storage.SignedURLSecret, cfg.Storage.SignedURLTTL)
		bucket := storage.NewLocalBucket(store, signer, cfg.Storage.PublicBaseURL+cfg.APIPrefix+"/files")
		return bucket, bucket, func() {}, nil
	}
}
