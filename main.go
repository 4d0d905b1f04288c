package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"catalog-api/cache"
	"catalog-api/config"
	"catalog-api/controllers"
	"catalog-api/logger"
	"catalog-api/repository"
	"catalog-api/routes"
	"catalog-api/services"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

// run wires the service and blocks until the server stops. Startup errors
// are logged here and returned so deferred cleanup still happens.
func run() error {
	cfg := config.Load()
	log := logger.Init(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	ctx := context.Background()

	// Initialize database connections
	mongoClient, err := config.ConnectMongoDB(ctx, cfg.Mongo)
	if err != nil {
		log.Error("mongodb setup failed", "error", err)
		return err
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			log.Error("mongodb disconnect failed", "error", err)
		}
	}()

	repo := repository.NewMongoItemRepository(
		mongoClient.Database(cfg.Mongo.Database).Collection(cfg.Mongo.Collection),
	)
	if err := repo.EnsureIndexes(ctx); err != nil {
		log.Warn("could not ensure indexes", "error", err)
	}

	var itemCache cache.ItemCache = cache.NopCache{}
	if cfg.CacheEnabled() {
		redisClient, err := config.ConnectRedis(ctx, cfg.Redis)
		if err != nil {
			log.Error("redis setup failed", "error", err)
			return err
		}
		defer redisClient.Close()
		itemCache = cache.NewRedisItemCache(redisClient, cfg.Redis.TTL)
	} else {
		log.Info("REDIS_ADDR not set, item cache disabled")
	}

	svc := services.NewItemService(repo, itemCache, log)
	handler := routes.SetupRoutes(controllers.NewItemController(svc, log), log)

	return startServer(cfg.Server, handler, log)
}

func startServer(cfg config.ServerConfig, handler http.Handler, log *slog.Logger) error {
	server := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Port),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	shutdownSignal := make(chan os.Signal, 1)
	signal.Notify(shutdownSignal, os.Interrupt, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err, ok := <-serveErr:
		if ok {
			log.Error("server error", "error", err)
			return err
		}
		return nil
	case <-shutdownSignal:
	}
	log.Info("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		return err
	}
	log.Info("server stopped")
	return nil
}
