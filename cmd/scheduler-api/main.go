package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/axelvallin-balder/schedule-builder-sub000/api/swagger"
	"github.com/axelvallin-balder/schedule-builder-sub000/internal/engine"
	"github.com/axelvallin-balder/schedule-builder-sub000/internal/handler"
	"github.com/axelvallin-balder/schedule-builder-sub000/internal/middleware"
	"github.com/axelvallin-balder/schedule-builder-sub000/internal/repository"
	"github.com/axelvallin-balder/schedule-builder-sub000/internal/service"
	"github.com/axelvallin-balder/schedule-builder-sub000/pkg/cache"
	"github.com/axelvallin-balder/schedule-builder-sub000/pkg/config"
	"github.com/axelvallin-balder/schedule-builder-sub000/pkg/database"
	"github.com/axelvallin-balder/schedule-builder-sub000/pkg/jobs"
	"github.com/axelvallin-balder/schedule-builder-sub000/pkg/logger"
	corsmiddleware "github.com/axelvallin-balder/schedule-builder-sub000/pkg/middleware/cors"
	reqidmiddleware "github.com/axelvallin-balder/schedule-builder-sub000/pkg/middleware/requestid"
	"github.com/axelvallin-balder/schedule-builder-sub000/pkg/storage"
)

// @title Schedule Builder API
// @version 1.0.0
// @description Timetable generation, validation and export service
// @BasePath /api/v1
// @schemes http

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect redis", "error", err)
	}
	defer redisClient.Close() //nolint:errcheck

	metricsService := service.NewMetricsService()
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	cacheService := service.NewCacheService(cacheRepo, metricsService, cfg.Cache.ScheduleTTL, logr, cfg.Cache.Enabled)

	courseRepo := repository.NewCourseRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	classRepo := repository.NewClassRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	lessonRepo := repository.NewLessonRepository(db)
	exportRepo := repository.NewExportJobRepository(db)

	defaults := engineConstraints(cfg.Engine)
	feasibility := engine.NewFeasibilityCache(time.Minute)
	defer feasibility.Stop()
	generator := engine.NewGenerator(feasibility, engine.GeneratorConfig{
		CoreSubjects:      cfg.Engine.CoreSubjects,
		ConfirmValidation: true,
	}, logr)

	generationService := service.NewGenerationService(courseRepo, teacherRepo, groupRepo, subjectRepo, classRepo,
		scheduleRepo, lessonRepo, db, generator, cacheService, metricsService, nil, logr,
		service.GenerationConfig{Defaults: defaults, Timeout: cfg.Engine.GenerationTimeout})
	scheduleService := service.NewScheduleService(scheduleRepo, lessonRepo, db, cacheService, metricsService, logr, cfg.Cache.ScheduleTTL)
	validationService := service.NewValidationService(courseRepo, teacherRepo, groupRepo, subjectRepo, classRepo,
		scheduleRepo, lessonRepo, cacheService, metricsService, nil, logr,
		service.ValidationConfig{Defaults: defaults, ReportTTL: cfg.Cache.ValidationTTL})

	scheduleHandler := handler.NewScheduleHandler(generationService, scheduleService, validationService)
	metricsHandler := handler.NewMetricsHandler(metricsService)
	healthHandler := handler.NewHealthHandler(2*time.Second, map[string]handler.HealthProbe{
		"postgres": db.PingContext,
		"redis": func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		},
	})

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var exportHandler *handler.ExportHandler
	var exportQueue *jobs.Queue
	if cfg.Exports.Enabled {
		store, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to prepare export storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Exports.TokenSecret, cfg.Exports.TokenTTL)
		renderer := service.NewTimetableRenderer(scheduleRepo, lessonRepo, groupRepo, teacherRepo, subjectRepo,
			store, signer, service.RendererConfig{APIPrefix: cfg.APIPrefix}, logr, nil, nil)
		worker := service.NewExportWorker(exportRepo, renderer, metricsService, cfg.Exports.WorkerRetries, logr)
		exportQueue = jobs.NewQueue("exports", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Exports.WorkerConcurrency,
			MaxRetries: cfg.Exports.WorkerRetries,
			Logger:     logr,
		})
		exportService := service.NewExportService(exportRepo, scheduleRepo, exportQueue, renderer, metricsService, nil, logr,
			service.ExportServiceConfig{
				ResultTTL:       cfg.Exports.TokenTTL,
				CleanupInterval: cfg.Exports.CleanupInterval,
				MaxRetries:      cfg.Exports.WorkerRetries,
			})
		exportQueue.Start(rootCtx)
		exportService.RecoverPendingJobs(rootCtx)
		exportService.StartCleanup(rootCtx)
		exportHandler = handler.NewExportHandler(exportService)
	}

	go refreshScheduleGauges(rootCtx, scheduleRepo, metricsService, logr)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.WithResponseMeta())
	r.Use(middleware.Metrics(metricsService))

	r.GET("/healthz", healthHandler.Live)
	r.GET("/readyz", healthHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	r.GET("/metrics/summary", metricsHandler.Summary)
	if cfg.Env != config.EnvProduction {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		schedules := api.Group("/schedules")
		{
			schedules.POST("/generate", scheduleHandler.Generate)
			schedules.POST("/validate", scheduleHandler.Validate)
			schedules.GET("", scheduleHandler.List)
			schedules.GET("/:id", scheduleHandler.Get)
			schedules.GET("/:id/validation", scheduleHandler.GetValidation)
			schedules.POST("/:id/activate", scheduleHandler.Activate)
			schedules.POST("/:id/archive", scheduleHandler.Archive)
		}
		if exportHandler != nil {
			exports := api.Group("/exports")
			{
				exports.POST("", exportHandler.Create)
				exports.GET("/download/:token", exportHandler.Download)
				exports.GET("/:id", exportHandler.Status)
			}
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-rootCtx.Done()
	logr.Sugar().Infow("shutdown requested")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("server shutdown failed", "error", err)
	}
	if exportQueue != nil {
		exportQueue.Stop()
	}
}

// refreshScheduleGauges keeps the per-status schedule gauges current.
func refreshScheduleGauges(ctx context.Context, schedules *repository.ScheduleRepository, metrics *service.MetricsService, logr *zap.Logger) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		countCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		counts, err := schedules.CountByStatus(countCtx)
		cancel()
		switch {
		case err == nil:
			metrics.SetScheduleStatusCounts(counts)
		case ctx.Err() != nil:
			return
		default:
			logr.Warn("count schedules by status", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// engineConstraints maps environment configuration onto the engine's
// constraint set. Unset fields fall back to the engine defaults.
func engineConstraints(cfg config.EngineConfig) engine.Constraints {
	c := engine.Constraints{
		LessonDuration:       cfg.LessonDuration,
		BreakDuration:        cfg.BreakDuration,
		MaxLessonsPerDay:     cfg.MaxLessonsPerDay,
		MaxSameSubjectPerDay: cfg.MaxSameSubjectPerDay,
		LunchPeriod:          engine.TimeWindow{Start: cfg.LunchStart, End: cfg.LunchEnd},
		WorkingHours:         engine.TimeWindow{Start: cfg.WorkStart, End: cfg.WorkEnd},
	}
	c.ApplyDefaults()
	return c
}
