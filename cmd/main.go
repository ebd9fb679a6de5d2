package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"todolist/internal/cache"
	"todolist/internal/config"
	"todolist/internal/controller"
	"todolist/internal/database"
	"todolist/internal/queue"
	"todolist/internal/repository"
	"todolist/internal/routes"
	"todolist/internal/service"
	"todolist/internal/tracing"
	"todolist/internal/worker"
	"todolist/pkg/logger"
)

const serviceName = "todolist"

func main() {
	config.LoadEnvFile(".env")

	cfg := config.Get()
	logger.Setup(cfg.LogLevel, cfg.LogFile)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, cfg.OTLPEndpoint, serviceName, cfg.Environment)
	if err != nil {
		logger.Error(ctx, "Tracing init failed", "error", err)
		os.Exit(1)
	}

	todoStore, userStore, storePing, err := openStores(ctx, cfg)
	if err != nil {
		logger.Error(ctx, "Store init failed", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}

	checks := []controller.ReadinessCheck{{Name: "store", Ping: storePing}}
	todoOpts := []service.TodoOption{service.WithFillTimeout(cfg.RequestTimeout)}

	// Redis is optional; without it every list goes to the store.
	var ownerCache *cache.OwnerCache
	if rdb := cache.Client(ctx); rdb != nil {
		ownerCache = cache.NewOwnerCache(rdb, time.Duration(cfg.CacheTTL)*time.Second)
		todoOpts = append(todoOpts, service.WithCache(ownerCache))
		checks = append(checks, controller.ReadinessCheck{Name: "redis", Ping: ownerCache.Ping, Optional: true})
	}

	if producer := queue.Producer(ctx); producer != nil {
		if err := queue.EnsureTopic(ctx, queue.NewAdmin(cfg), cfg.KafkaTopic, cfg.KafkaPartitions); err != nil {
			logger.Warn(ctx, "Kafka topic bootstrap failed; relying on broker auto-create", "error", err)
		}
		todoOpts = append(todoOpts, service.WithEvents(queue.NewPublisher(producer)))
		defer producer.Close()
	}

	// The consumer only matters when there is a cache to keep in step.
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		if ownerCache == nil {
			logger.Info(ctx, "Worker disabled (no cache)")
			return
		}
		worker.Run(ctx, ownerCache)
	}()

	todos := service.NewTodoService(todoStore, todoOpts...)
	auth := service.NewAuthService(userStore, service.NewBcryptHasher(cfg.BcryptCost))
	h := controller.NewHandler(todos, auth, checks...)

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      tracing.Handler(routes.Router(h, cfg.RequestTimeout), serviceName),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	go func() {
		logger.Info(ctx, "HTTP server listening", "port", cfg.HTTPPort, "store", cfg.StoreDriver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(ctx, "Server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info(ctx, "Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "Server shutdown error", "error", err)
	}
	stop()
	<-workerDone
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn(ctx, "Tracing shutdown error", "error", err)
	}
	logger.Info(ctx, "Server stopped")
}

// openStores builds the todo and user stores for the configured driver and
// returns the ping used by /ready.
func openStores(ctx context.Context, cfg *config.Config) (repository.TodoStore, repository.UserStore, func(context.Context) error, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		logger.Warn(ctx, "Using in-memory store; data is lost on exit")
		mem := repository.NewMemoryStore()
		return mem.Todos(), mem.Users(), mem.Ping, nil
	case config.StoreDriverPostgres:
		db := database.InitDB(ctx)
		if db == nil {
			return nil, nil, nil, database.ErrNotConfigured
		}
		if err := database.MigrateOrCreateSchema(ctx); err != nil {
			return nil, nil, nil, err
		}
		todos := repository.NewPostgresTodoStore(db)
		return todos, repository.NewPostgresUserStore(db), todos.Ping, nil
	default:
		return nil, nil, nil, errors.New("unknown STORE_DRIVER " + cfg.StoreDriver)
	}
}
