package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/task-service/internal/api/http"
	"github.com/spec-kit/task-service/internal/api/http/handlers"
	"github.com/spec-kit/task-service/internal/auth"
	"github.com/spec-kit/task-service/internal/bus"
	"github.com/spec-kit/task-service/internal/config"
	"github.com/spec-kit/task-service/internal/observability"
	"github.com/spec-kit/task-service/internal/persistence"
	"github.com/spec-kit/task-service/internal/repository"
	"github.com/spec-kit/task-service/internal/service"
	"github.com/spec-kit/task-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	rdb := persistence.NewRedis(cfg.Redis, logger)
	defer rdb.Close()

	userRepo := repository.NewUserRepository(pg.PoolHandle())
	taskRepo, err := repository.NewTaskRepository(rdb.Client)
	if err != nil {
		logger.Fatal("failed to init task repository", zap.Error(err))
	}

	publisher := bus.NewRedisPublisher(rdb.Client, logger)
	queue := bus.NewRedisQueue(rdb.Client)
	deduper := bus.NewRedisDeduper(rdb.Client, "deadline-reminder")

	authService := service.NewAuthService(*cfg, userRepo)
	userService := service.NewUserService(userRepo, queue, cfg.Notify, cfg.Auth.BcryptCost, logger)
	taskService := service.NewTaskService(service.TaskDependencies{
		TaskRepo:  taskRepo,
		UserRepo:  userRepo,
		Publisher: publisher,
		Queue:     queue,
		Topics:    cfg.Notify,
		Logger:    logger,
	})

	notificationWorker := worker.NewNotificationWorker(queue, taskRepo, userRepo, publisher, cfg.Notify, cfg.Jobs, logger)
	expirySweeper := worker.NewExpirySweeper(taskRepo, userRepo, publisher, cfg.Notify, cfg.Jobs.ExpirySweepMinutes, logger)
	deadlineNotifier := worker.NewDeadlineNotifier(taskRepo, userRepo, publisher, deduper, cfg.Notify, cfg.Jobs, logger)

	go notificationWorker.Run(ctx)
	go expirySweeper.Run(ctx)
	go deadlineNotifier.Run(ctx)

	metrics := observability.NewMetrics()
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager())

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, rdb),
		Auth:           handlers.NewAuthHandler(authService),
		Users:          handlers.NewUsersHandler(userService),
		Tasks:          handlers.NewTasksHandler(taskService, deadlineNotifier),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)
	cancel()

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
