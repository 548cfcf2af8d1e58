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

	"companion-server/internal/config"
	"companion-server/internal/directive"
	"companion-server/internal/emotion"
	"companion-server/internal/generator"
	"companion-server/internal/intent"
	"companion-server/internal/intimacy"
	"companion-server/internal/logger"
	"companion-server/internal/messaging"
	"companion-server/internal/parser"
	"companion-server/internal/repository"
	"companion-server/internal/service"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	log.Println("Запуск Companion Server...")

	// Загружаем конфиг ДО инициализации логгера
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.LogLevel,
		Encoding: cfg.LogEncoding,
	})
	if err != nil {
		log.Fatalf("Не удалось инициализировать логгер: %v", err)
	}
	defer zapLogger.Sync()
	zapLogger.Info("Logger initialized", zap.String("logLevel", cfg.LogLevel))

	// Подключение к PostgreSQL
	dbPool, err := setupDatabase(cfg)
	if err != nil {
		zapLogger.Fatal("Не удалось подключиться к БД", zap.Error(err))
	}
	defer dbPool.Close()
	zapLogger.Info("Успешное подключение к PostgreSQL")

	if err := repository.ApplyMigrations(dbPool); err != nil {
		zapLogger.Fatal("Не удалось применить миграции", zap.Error(err))
	}
	zapLogger.Info("Миграции применены")

	// Подключение к Redis (кэш состояния)
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()
	{
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			// Кэш деградирует мягко, но отсутствие Redis на старте почти
			// всегда означает кривое окружение.
			zapLogger.Fatal("Не удалось подключиться к Redis", zap.Error(err))
		}
		cancel()
	}
	zapLogger.Info("Успешное подключение к Redis")

	// Подключение к RabbitMQ
	rabbitConn, err := connectRabbitMQ(cfg.RabbitMQURL, zapLogger)
	if err != nil {
		zapLogger.Fatal("Не удалось подключиться к RabbitMQ", zap.Error(err))
	}
	defer rabbitConn.Close()
	zapLogger.Info("Успешное подключение к RabbitMQ")

	// Инициализация зависимостей
	pgStateRepo := repository.NewPgRelationshipStateRepository(dbPool, zapLogger)
	stateRepo := repository.NewRedisStateCache(pgStateRepo, redisClient, cfg.StateCacheTTL, zapLogger)
	traitsRepo := repository.NewPgCharacterTraitsRepository(dbPool, zapLogger)

	genClient, err := generator.NewClient(generator.Config{
		APIKey:  cfg.GeneratorAPIKey,
		BaseURL: cfg.GeneratorBaseURL,
		Model:   cfg.GeneratorModel,
		Timeout: cfg.GeneratorTimeout,
	}, zapLogger)
	if err != nil {
		zapLogger.Fatal("Не удалось создать клиент генерации", zap.Error(err))
	}

	emotionCfg := emotion.DefaultConfig()
	emotionCfg.DecayFactor = cfg.EmotionDecayFactor
	emotionCfg.SpamWindow = cfg.SpamWindow

	ledgerCfg := intimacy.DefaultConfig()
	ledgerCfg.DailyCeiling = cfg.XPDailyCeiling

	turnService := service.NewTurnService(
		stateRepo,
		traitsRepo,
		intent.NewClassifier(),
		genClient,
		emotion.NewEngine(emotionCfg, zapLogger),
		intimacy.NewLedger(ledgerCfg, zapLogger),
		intimacy.NewEvaluator(zapLogger),
		directive.NewBuilder(),
		parser.NewParser(zapLogger),
		service.Config{MaxCommitRetries: cfg.MaxCommitRetries},
		zapLogger,
	)

	resultPublisher, err := messaging.NewRabbitMQResultPublisher(rabbitConn, cfg.TurnResultQueue, zapLogger)
	if err != nil {
		zapLogger.Fatal("Не удалось создать публикатор результатов", zap.Error(err))
	}
	defer resultPublisher.Close()

	turnConsumer, err := messaging.NewTurnTaskConsumer(rabbitConn, cfg.TurnTaskQueue, turnService, resultPublisher, zapLogger)
	if err != nil {
		zapLogger.Fatal("Не удалось создать консьюмер задач хода", zap.Error(err))
	}
	defer turnConsumer.Close()

	consumerCtx, consumerCancel := context.WithCancel(context.Background())
	defer consumerCancel()
	go func() {
		zapLogger.Info("Запуск горутины консьюмера задач хода...")
		if err := turnConsumer.StartConsuming(consumerCtx); err != nil && !errors.Is(err, context.Canceled) {
			zapLogger.Error("Консьюмер задач хода завершился с ошибкой", zap.Error(err))
		}
		zapLogger.Info("Горутина консьюмера задач хода завершена.")
	}()

	// Метрики Prometheus
	metricsServer := &http.Server{
		Addr:    ":" + cfg.MetricsPort,
		Handler: promhttp.Handler(),
	}
	go func() {
		zapLogger.Info("Metrics endpoint listening", zap.String("port", cfg.MetricsPort))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Error("Metrics сервер завершился с ошибкой", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zapLogger.Info("Получен сигнал завершения, начинаем graceful shutdown...")

	consumerCancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Ошибка при остановке metrics сервера", zap.Error(err))
	}

	log.Println("Companion Server успешно остановлен")
}

// setupDatabase инициализирует и возвращает пул соединений с БД
func setupDatabase(cfg *config.Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга DSN: %w", err)
	}
	poolConfig.MaxConns = cfg.DBMaxConns

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	dbPool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("не удалось создать пул соединений: %w", err)
	}
	if err = dbPool.Ping(ctx); err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("не удалось подключиться к БД (ping failed): %w", err)
	}
	return dbPool, nil
}

// connectRabbitMQ пытается подключиться к RabbitMQ с несколькими попытками
func connectRabbitMQ(url string, logger *zap.Logger) (*amqp.Connection, error) {
	var conn *amqp.Connection
	var err error
	maxRetries := 5
	retryDelay := 5 * time.Second
	for i := 0; i < maxRetries; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			return conn, nil
		}
		logger.Warn("Не удалось подключиться к RabbitMQ",
			zap.Int("attempt", i+1),
			zap.Int("max_attempts", maxRetries),
			zap.Duration("retry_delay", retryDelay),
			zap.Error(err),
		)
		time.Sleep(retryDelay)
	}
	return nil, err
}
