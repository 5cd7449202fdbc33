package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"ludotheque-admin/internal/config"
	"ludotheque-admin/internal/database"
	"ludotheque-admin/internal/engine"
	httpapi "ludotheque-admin/internal/http"
	"ludotheque-admin/internal/logger"
	"ludotheque-admin/internal/repository"
	"ludotheque-admin/internal/service"
	"ludotheque-admin/internal/store"
)

func main() {
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "ludotheque-admin")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	kv := store.NewRedisKV(redisClient)

	// Optional DB: when unavailable the service falls back to the in-memory
	// repositories so the tariff editor stays usable in local dev.
	var db *sql.DB
	if cfg.DBEnabled {
		if d, err := database.NewPostgresDB(&cfg.Database); err == nil {
			db = d
			log.Info("DB enabled for ludotheque-admin")
		} else {
			log.Warn("DB enabled but connection failed, falling back to in-memory repositories", zap.Error(err))
		}
	}

	var (
		arbresRepo      repository.ArbresRepository
		reductionsRepo  repository.ReductionsRepository
		cotisationsRepo repository.CotisationsRepository
		tagsRepo        repository.TagsRepository
	)
	if db != nil {
		arbresRepo = repository.NewPostgresArbresRepository(db)
		reductionsRepo = repository.NewPostgresReductionsRepository(db)
		cotisationsRepo = repository.NewPostgresCotisationsRepository(db)
		tagsRepo = repository.NewPostgresTagsRepository(db)
	} else {
		memArbres := repository.NewMemoryArbresRepository()
		memCotisations := repository.NewMemoryCotisationsRepository()
		memCotisations.ExistsByDefault = true
		arbresRepo = memArbres
		reductionsRepo = repository.NewMemoryReductionsRepository(memArbres)
		cotisationsRepo = memCotisations
		tagsRepo = repository.NewMemoryTagsRepository(nil)
	}

	evaluator := engine.NewEvaluator(log)
	geoClient := service.NewGeoClient(cfg.Geo.BaseURL, time.Duration(cfg.Geo.CacheTTL)*time.Second, kv, log)

	arbreService := service.NewArbreService(arbresRepo, evaluator, log)
	evaluationService := service.NewEvaluationService(arbresRepo, reductionsRepo, cotisationsRepo, geoClient, evaluator, log)
	referenceService := service.NewReferenceService(tagsRepo, kv, log)
	exportService := service.NewExportService(reductionsRepo, log)

	router := httpapi.NewRouter(log)
	router.RegisterArbreRoutes(httpapi.NewArbresHandler(arbreService, evaluationService, referenceService, log))
	router.RegisterReductionRoutes(httpapi.NewReductionsHandler(exportService, reductionsRepo, log))
	router.RegisterTagRoutes(httpapi.NewTagsHandler(referenceService, log))

	server := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: router,
	}

	go func() {
		log.Info("ludotheque-admin listening", zap.String("addr", cfg.HTTP.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("shutdown failed", zap.Error(err))
	}
	_ = database.Close(db)
	_ = redisClient.Close()
}
