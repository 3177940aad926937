package service

import (
	"context"
	"database/sql"
	"fmt"

	"carewatch-alert/internal/clock"
	"carewatch-alert/internal/config"
	"carewatch-alert/internal/consumer"
	"carewatch-alert/internal/engine"
	"carewatch-alert/internal/repository"
	"carewatch-alert/internal/seeder"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// AlertEngineService assembles the alert evaluation engine: stores, seeder,
// evaluator and the vital-sign reading consumer.
type AlertEngineService struct {
	config      *config.Config
	db          *sql.DB
	redisClient *redis.Client
	logger      *zap.Logger

	ruleRepo       repository.RuleRepository
	alertRepo      repository.AlertRepository
	evaluator      *engine.Evaluator
	seeder         *seeder.Seeder
	streamConsumer *consumer.StreamConsumer

	Rules     *RuleService
	Lifecycle *AlertLifecycleService
}

// NewAlertEngineService connects the stores and wires all components.
func NewAlertEngineService(cfg *config.Config, logger *zap.Logger) (*AlertEngineService, error) {
	db, err := sql.Open("postgres", cfg.Database.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	clk := clock.RealClock{}
	ruleRepo := repository.NewPostgresRuleRepository(db, logger)
	alertRepo := repository.NewPostgresAlertRepository(db, logger)

	return &AlertEngineService{
		config:         cfg,
		db:             db,
		redisClient:    redisClient,
		logger:         logger,
		ruleRepo:       ruleRepo,
		alertRepo:      alertRepo,
		evaluator:      engine.NewEvaluator(ruleRepo, alertRepo, clk, logger),
		seeder:         seeder.NewSeeder(ruleRepo, clk, logger),
		streamConsumer: consumer.NewStreamConsumer(cfg, redisClient, logger),
		Rules:          NewRuleService(ruleRepo, clk, logger),
		Lifecycle:      NewAlertLifecycleService(alertRepo, clk, logger),
	}, nil
}

// Evaluator exposes the evaluation entry point for in-process callers.
func (s *AlertEngineService) Evaluator() *engine.Evaluator {
	return s.evaluator
}

// Start seeds the baseline rules when the store is empty and runs the
// reading consumer until the context is cancelled.
func (s *AlertEngineService) Start(ctx context.Context) error {
	s.logger.Info("Starting alert engine service")

	if err := s.seeder.Seed(ctx); err != nil {
		return err
	}
	if err := s.streamConsumer.Start(ctx, s.evaluator); err != nil {
		return fmt.Errorf("failed to run stream consumer: %w", err)
	}
	return nil
}

// Stop closes the store connections.
func (s *AlertEngineService) Stop() error {
	s.logger.Info("Stopping alert engine service")

	if err := s.db.Close(); err != nil {
		s.logger.Error("Failed to close database",
			zap.Error(err),
		)
	}
	if err := s.redisClient.Close(); err != nil {
		s.logger.Error("Failed to close redis",
			zap.Error(err),
		)
	}
	return nil
}
