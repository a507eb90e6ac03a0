package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"safemama-triage/common/database"
	"safemama-triage/common/logger"
	"safemama-triage/common/mqtt"
	"safemama-triage/common/redis"
	"safemama-triage/internal/classifier"
	"safemama-triage/internal/config"
	"safemama-triage/internal/evaluator"
	httpapi "safemama-triage/internal/http"
	"safemama-triage/internal/notify"
	"safemama-triage/internal/repository"
	"safemama-triage/internal/service"
	"safemama-triage/internal/store"

	"go.uber.org/zap"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// 2. 初始化日志
	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "safemama-triage")
	if err != nil {
		panic(fmt.Sprintf("Failed to init logger: %v", err))
	}
	defer log.Sync()

	// 3. 数据库（连接失败时降级为不落库）
	var db *sql.DB
	if d, err := database.NewPostgresDB(&cfg.Database); err == nil {
		db = d
		log.Info("Connected to PostgreSQL", zap.String("host", cfg.Database.Host))
	} else {
		log.Warn("PostgreSQL unavailable, reports and cases will not be persisted", zap.Error(err))
	}

	// 4. Redis（档案缓存与告警流共用）
	var redisClient *redis.Client
	if cfg.Alert.Transport == "redis" || cfg.Cache.ProfileTTL > 0 {
		redisClient = redis.NewRedisClient(&cfg.Redis)
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := redis.Ping(ctx, redisClient); err != nil {
			log.Warn("Redis unavailable at startup, cache and alert stream will degrade", zap.Error(err))
		}
		cancel()
	}

	deps := service.Deps{
		Classifier: newClassifier(cfg, log),
		Evaluator:  evaluator.NewEvaluator(cfg.Triage.RiskFactors),
	}
	var reports httpapi.ReportReader
	if db != nil {
		reportRepo := repository.NewReportRepository(db, log)
		reports = reportRepo
		deps.Reports = reportRepo
		deps.Cases = repository.NewCaseRepository(db, log)
		profiles := repository.NewProfileRepository(db, log)
		deps.Profiles = profiles
		if redisClient != nil && cfg.Cache.ProfileTTL > 0 {
			deps.Profiles = store.NewCachedProfiles(profiles, store.NewRedisKV(redisClient), cfg.Cache.ProfileTTL, log)
		}
		deps.Consents = repository.NewConsentRepository(db, log)
	}

	// 5. 临床告警通道
	publisher, closePublisher := newPublisher(cfg, redisClient, log)
	deps.Publisher = publisher

	// 6. 服务与路由
	triageService := service.NewTriageService(deps, service.Options{
		MinPlausibleWeeks: cfg.Triage.MinPlausibleWeeks,
		MaxPlausibleWeeks: cfg.Triage.MaxPlausibleWeeks,
	}, log)

	router := httpapi.NewRouter(log)
	router.RegisterHealthRoutes()
	router.RegisterTriageRoutes(httpapi.NewTriageHandler(triageService, reports, log))

	srv := service.NewServer(cfg.HTTP.Addr, router, cfg.HTTP.ReadTimeout, cfg.HTTP.WriteTimeout, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	// 7. 等待信号（优雅关闭）
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("Received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			log.Error("HTTP server error", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		log.Warn("HTTP server shutdown failed", zap.Error(err))
	}
	closePublisher()
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if db != nil {
		_ = database.Close(db)
	}
	log.Info("Triage service stopped")
}

func newClassifier(cfg *config.Config, log *zap.Logger) classifier.Classifier {
	switch cfg.Classifier.Mode {
	case "llm":
		return classifier.NewLLMClassifier(classifier.LLMOptions{
			BaseURL: cfg.Classifier.BaseURL,
			Model:   cfg.Classifier.Model,
			APIKey:  cfg.Classifier.APIKey,
			Timeout: cfg.Classifier.Timeout,
		}, log)
	case "keyword":
		return classifier.NewKeywordClassifier()
	default:
		return classifier.Noop{}
	}
}

// newPublisher 按 ALERT_TRANSPORT 创建告警发布器，返回对应的关闭函数
func newPublisher(cfg *config.Config, redisClient *redis.Client, log *zap.Logger) (notify.Publisher, func()) {
	switch cfg.Alert.Transport {
	case "redis":
		return notify.NewStreamPublisher(redisClient, cfg.Alert.Stream, cfg.Alert.StreamMaxLen, log), func() {}
	case "mqtt":
		client, err := mqtt.NewClient(&cfg.MQTT)
		if err != nil {
			log.Warn("MQTT unavailable, clinician alerts disabled", zap.Error(err))
			return notify.Noop{}, func() {}
		}
		return notify.NewMQTTPublisher(client, cfg.Alert.Topic, log), client.Disconnect
	default:
		return notify.Noop{}, func() {}
	}
}
