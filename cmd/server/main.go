package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hawki-project/roomsync/internal/config"
	"github.com/hawki-project/roomsync/internal/database"
	"github.com/hawki-project/roomsync/internal/migrate"
	"github.com/hawki-project/roomsync/internal/realtime"
	"github.com/hawki-project/roomsync/internal/repositories"
	"github.com/hawki-project/roomsync/internal/server"
	"github.com/hawki-project/roomsync/internal/services"
	"github.com/hawki-project/roomsync/internal/synclog"
	"github.com/hawki-project/roomsync/internal/synclog/handlers"
)

func main() {
	ctx := context.Background()

	godotenv.Load()

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	if err := migrate.Up(ctx, cfg.DatabaseURL); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	// Initialize database connections
	postgresPool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to create postgres pool", zap.Error(err))
	}
	defer postgresPool.Close()

	redisClient, err := database.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		logger.Fatal("failed to create redis client", zap.Error(err))
	}
	defer redisClient.Close()

	// Repositories
	userRepo := repositories.NewPostgresUserRepository(postgresPool)
	roomRepo := repositories.NewPostgresRoomRepository(postgresPool)
	memberRepo := repositories.NewPostgresMemberRepository(postgresPool)
	invitationRepo := repositories.NewPostgresInvitationRepository(postgresPool)
	messageRepo := repositories.NewPostgresMessageRepository(postgresPool)
	privateDataRepo := repositories.NewPostgresPrivateUserDataRepository(postgresPool)
	keychainRepo := repositories.NewPostgresKeychainRepository(postgresPool)
	aiModelRepo := repositories.NewPostgresAiModelRepository(postgresPool)
	systemPromptRepo := repositories.NewPostgresSystemPromptRepository(postgresPool)
	syncLogRepo := repositories.NewPostgresSyncLogRepository(postgresPool)

	// Sync log
	registry := handlers.Registry{
		Users:        userRepo,
		Rooms:        roomRepo,
		Members:      memberRepo,
		Invitations:  invitationRepo,
		Messages:     messageRepo,
		PrivateData:  privateDataRepo,
		Keychain:     keychainRepo,
		AiModels:     aiModelRepo,
		SystemPrompt: systemPromptRepo,
	}
	publisher := realtime.NewRedisPublisher(redisClient)
	tracker, err := synclog.NewTracker(syncLogRepo, publisher, logger, cfg.SyncRetention, registry.All()...)
	if err != nil {
		logger.Fatal("failed to build sync tracker", zap.Error(err))
	}
	queryService := synclog.NewQueryService(tracker, syncLogRepo, cfg.SyncPageSize)

	// Services
	authService := services.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTExpiry, cfg.BcryptCost, cfg.PasswordMinLength)
	roomService := services.NewRoomService(postgresPool, roomRepo, memberRepo, invitationRepo, userRepo, tracker)
	messageService := services.NewMessageService(postgresPool, messageRepo, roomRepo, memberRepo, tracker)
	userService := services.NewUserService(postgresPool, userRepo, roomRepo, memberRepo, privateDataRepo, keychainRepo, tracker, syncLogRepo)

	srv := server.NewServer(authService, roomService, messageService, userService, queryService, logger)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: srv.Router(),
	}

	// graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down server")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		httpServer.Shutdown(ctx)
	}()

	logger.Info("starting server", zap.String("port", cfg.ServerPort))
	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}

	logger.Info("server stopped gracefully")
}
