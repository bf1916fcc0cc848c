package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"peer-chat/internal/config"
	"peer-chat/internal/db"
	"peer-chat/internal/domain"
	apihttp "peer-chat/internal/http"
	"peer-chat/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	directory := domain.NewDirectory(cfg.Users)

	store, closeStore := db.OpenStore(ctx, cfg, logger)
	defer closeStore()

	if err := store.SeedUsers(ctx, directory.Users()); err != nil {
		logger.Error("seed users failed", zap.Error(err))
	} else {
		logger.Info("users initialized", zap.Strings("users", directory.Users()))
	}

	limiter := service.NewMemoryRateLimiter(cfg.SendRateWindow, cfg.SendRateLimit)
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
		} else {
			limiter = service.NewRedisSendRateLimiter(redisClient, cfg.SendRateWindow, cfg.SendRateLimit)
		}
		cancel()
		defer redisClient.Close()
	}

	chatSvc := service.NewChatService(logger, directory, store, store, limiter)

	pages, err := apihttp.NewPageRenderer(logger)
	if err != nil {
		logger.Fatal("templates", zap.Error(err))
	}
	homeHandler := apihttp.NewHomeHandler(logger, chatSvc, pages)
	chatHandler := apihttp.NewChatHandler(logger, chatSvc, pages)
	healthHandler := apihttp.NewHealthHandler(store.Name())
	router := apihttp.NewRouter(logger, homeHandler, chatHandler, healthHandler)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("starting server", zap.String("port", cfg.HTTPPort), zap.String("storage", store.Name()))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
}
