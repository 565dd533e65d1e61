package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync"
	"syscall"

	"github.com/St1cky1/entraide-service/internal/api"
	grpcapi "github.com/St1cky1/entraide-service/internal/api/grpc"
	"github.com/St1cky1/entraide-service/internal/config"
	"github.com/St1cky1/entraide-service/internal/events"
	"github.com/St1cky1/entraide-service/internal/infrastructure/auth"
	"github.com/St1cky1/entraide-service/internal/infrastructure/client"
	"github.com/St1cky1/entraide-service/internal/logger"
	"github.com/St1cky1/entraide-service/internal/repository"
	"github.com/St1cky1/entraide-service/internal/repository/memory"
	"github.com/St1cky1/entraide-service/internal/usecase"
	"github.com/St1cky1/entraide-service/internal/worker"
	"github.com/rs/zerolog/log"
)

type repositories struct {
	users         repository.IUserRepository
	refreshTokens repository.IRefreshTokenRepository
	tasks         repository.ITaskRepository
	points        repository.IPointsRepository
	notifications repository.INotificationRepository
	history       repository.ITaskHistoryRepository
	tx            repository.Transactor
	health        api.HealthCheck
}

func main() {
	logger.InitDefault()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if err := logger.Init(cfg.Env); err != nil {
		log.Fatal().Err(err).Msg("failed to init logger")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var closers []func()
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}()

	repos, closeStorage, err := openStorage(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("storage", cfg.Storage).Msg("failed to open storage")
	}
	closers = append(closers, closeStorage)

	// Баллы: Redis кэш поверх хранилища
	if cfg.Redis.Addr != "" {
		redisClient, err := client.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		closers = append(closers, func() { _ = redisClient.Close() })
		repos.points = repository.NewCachedPointsRepository(repos.points, redisClient, cfg.Redis.TTL)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("points cache enabled")
	}

	// События: SSE hub всегда, RabbitMQ и Kafka по конфигу
	hub := events.NewHub()
	publishers := events.Fanout{hub}

	if cfg.RabbitMQ.URL != "" {
		rabbitMQ, err := client.NewRabbitMQClient(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to rabbitmq")
		}
		closers = append(closers, func() { _ = rabbitMQ.Close() })
		publishers = append(publishers, rabbitMQ)
		log.Info().Str("queue", cfg.RabbitMQ.Queue).Msg("rabbitmq publisher enabled")
	} else {
		// без брокера история пишется синхронно при публикации
		publishers = append(publishers, worker.NewHistoryRecorder(repos.history))
		log.Info().Msg("task history recorded in-process")
	}

	if brokers := cfg.Kafka.BrokerList(); len(brokers) > 0 {
		producer := client.NewKafkaProducer(brokers, cfg.Kafka.Topic)
		closers = append(closers, func() { _ = producer.Close() })
		publishers = append(publishers, producer)
		log.Info().Strs("brokers", brokers).Str("topic", cfg.Kafka.Topic).Msg("kafka publisher enabled")
	}

	// Сервисы
	jwtManager := auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)
	authService := usecase.NewAuthService(repos.users, repos.refreshTokens, auth.NewPasswordManager(0), jwtManager)
	userService := usecase.NewUserService(repos.users)
	pointsService := usecase.NewPointsService(repos.points)
	notificationService := usecase.NewNotificationService(repos.notifications)
	taskService := usecase.NewTaskService(
		repos.tasks,
		repos.users,
		repos.points,
		repos.notifications,
		repos.history,
		repos.tx,
		publishers,
		usecase.TaskServiceConfig{
			Workflow:     usecase.WorkflowMode(cfg.Workflow),
			RewardPoints: cfg.RewardPoints,
		},
	)

	var wg sync.WaitGroup

	// История задач из очереди
	if cfg.RabbitMQ.URL != "" {
		historyWorker := worker.NewHistoryWorker(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue, repos.history)
		wg.Add(1)
		go func() {
			defer wg.Done()
			historyWorker.Start(ctx)
		}()
	}

	grpcServer := grpcapi.NewGRPCServer(taskService, userService, authService)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := grpcServer.Start(cfg.GRPC.Addr); err != nil {
			log.Error().Err(err).Msg("gRPC server stopped")
			stop()
		}
	}()

	router := api.NewRouter(api.Services{
		Auth:          authService,
		Users:         userService,
		Tasks:         taskService,
		Points:        pointsService,
		Notifications: notificationService,
		Hub:           hub,
		Health:        repos.health,
	})
	httpServer := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: router,
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info().Str("addr", cfg.HTTP.Addr).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP server stopped")
			stop()
		}
	}()

	log.Info().
		Str("workflow", cfg.Workflow).
		Str("storage", cfg.Storage).
		Int("reward_points", cfg.RewardPoints).
		Msg("service started")

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP shutdown failed")
	}
	grpcServer.Stop()

	wg.Wait()
	log.Info().Msg("service stopped")
}

func openStorage(ctx context.Context, cfg *config.Config) (*repositories, func(), error) {
	if cfg.Storage == config.StorageMemory {
		log.Warn().Msg("using in-memory storage, data is lost on restart")
		return &repositories{
			users:         memory.NewUserRepository(),
			refreshTokens: memory.NewRefreshTokenRepository(),
			tasks:         memory.NewTaskRepository(),
			points:        memory.NewPointsRepository(),
			notifications: memory.NewNotificationRepository(),
			history:       memory.NewTaskHistoryRepository(),
			tx:            memory.Transactor{},
		}, func() {}, nil
	}

	dbURL := cfg.Postgres.URL()
	if err := client.RunMigrations(cfg.Postgres.MigrationsPath, dbURL); err != nil {
		return nil, nil, err
	}

	pg, err := client.NewPostgresClient(ctx, dbURL,
		client.WithMaxConns(cfg.Postgres.MaxConns),
		client.WithMinConns(cfg.Postgres.MinConns),
	)
	if err != nil {
		return nil, nil, err
	}
	log.Info().Str("host", cfg.Postgres.Host).Str("db", cfg.Postgres.DBName).Msg("connected to postgres")

	return &repositories{
		users:         repository.NewUserRepository(pg.Pool),
		refreshTokens: repository.NewRefreshTokenRepository(pg.Pool),
		tasks:         repository.NewTaskRepository(pg.Pool),
		points:        repository.NewPointsRepository(pg.Pool),
		notifications: repository.NewNotificationRepository(pg.Pool),
		history:       repository.NewTaskHistoryRepository(pg.Pool),
		tx:            repository.NewPgTransactor(pg.Pool),
		health:        pg.HealthCheck,
	}, pg.Close, nil
}
