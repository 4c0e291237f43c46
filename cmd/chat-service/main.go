package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/sociogram/chat-service/internal/auth"
	"github.com/sociogram/chat-service/internal/cache"
	"github.com/sociogram/chat-service/internal/config"
	"github.com/sociogram/chat-service/internal/directory"
	"github.com/sociogram/chat-service/internal/handlers"
	"github.com/sociogram/chat-service/internal/kafka"
	"github.com/sociogram/chat-service/internal/logger"
	"github.com/sociogram/chat-service/internal/middleware"
	"github.com/sociogram/chat-service/internal/repository"
	"github.com/sociogram/chat-service/internal/routes"
	"github.com/sociogram/chat-service/internal/service"
	"github.com/sociogram/chat-service/internal/ws"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	zlog, err := logger.New(cfg.App.Env == "development")
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer zlog.Sync()

	mc, err := repository.NewMongoClient(cfg.Mongo.URI)
	if err != nil {
		zlog.Fatal("mongo init", zap.Error(err))
	}
	defer func() { _ = mc.Disconnect(context.Background()) }()

	db := mc.Database(cfg.Mongo.Database)
	chatRepo := repository.NewChatRepository(db.Collection("chats"))
	msgRepo := repository.NewMessageRepository(db.Collection("messages"))

	rdb, err := cache.NewRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		zlog.Fatal("redis init", zap.Error(err))
	}
	defer rdb.Close()

	producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	defer producer.Close()

	users := directory.NewClient(cfg.Directory.BaseURL)

	verifier := auth.NewJWTValidator(cfg.JWT.Secret)
	hub := ws.NewHub(zlog)
	wsSrv := ws.NewServer(hub, verifier, zlog)

	svc := service.NewChatService(chatRepo, msgRepo, users, hub, producer, rdb, zlog)

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	routes.Register(app, routes.Deps{
		Handler:   handlers.NewChatHandler(svc, zlog),
		WS:        wsSrv,
		Auth:      middleware.JWTAuth(verifier),
		RateLimit: middleware.NewRateLimiter(rdb.Cli, "rl:chat", cfg.RateLimit.Limit, cfg.RateLimit.Window),
	})

	go func() {
		addr := fmt.Sprintf(":%d", cfg.App.Port)
		zlog.Info("chat service listening", zap.String("addr", addr))
		if err := app.Listen(addr); err != nil {
			zlog.Fatal("server listen", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = app.ShutdownWithContext(ctx)
	zlog.Info("chat service stopped")
}
