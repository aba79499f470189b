package main

import (
	"fmt"
	"net"
	"os"

	"github.com/jonboulle/clockwork"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/wikigen-ai/backend-go/internal/api"
	"github.com/wikigen-ai/backend-go/internal/config"
	"github.com/wikigen-ai/backend-go/internal/database"
	"github.com/wikigen-ai/backend-go/internal/database/repository"
	"github.com/wikigen-ai/backend-go/internal/database/service"
	"github.com/wikigen-ai/backend-go/internal/handler"
	"github.com/wikigen-ai/backend-go/internal/logger"
	"github.com/wikigen-ai/backend-go/internal/middleware"
)

func main() {
	// 1. Config
	cfg := config.LoadConfig()

	// 2. Logger
	appLogger := logger.New(cfg)

	appLogger.Info("🚀 [Go] Starting Auth Service...",
		"environment", cfg.AppEnv,
	)

	// 3. Connect to Database
	if err := database.ConnectDatabase(cfg, appLogger); err != nil {
		appLogger.Error("❌ Failed to connect to database", "error", err)
		os.Exit(1)
	}

	db := database.GetDatabase()

	// 4. Connect to Redis. The lockout policy is load-bearing, so a missing
	// Redis is fatal rather than degraded.
	redisClient, err := database.NewRedisClient(cfg, appLogger)
	if err != nil {
		appLogger.Error("❌ Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// 5. Initialize Repositories
	userRepo := repository.NewUserRepository(db)
	refreshTokenRepo := repository.NewRefreshTokenRepository(db)
	authEventRepo := repository.NewAuthEventRepository(db)

	// 6. Initialize Services
	clock := clockwork.NewRealClock()
	verifier := service.NewCredentialVerifier()
	codec := service.NewTokenCodec(cfg, clock)
	lockout := service.NewLockoutPolicy(redisClient, cfg, appLogger)
	authService := service.NewAuthService(userRepo, refreshTokenRepo, authEventRepo, verifier, codec, lockout, clock, cfg, appLogger)

	// 7. Initialize Handlers & Middleware
	authHandler := handler.NewAuthHandler(authService, cfg, appLogger)
	userHandler := handler.NewUserHandler(authService, appLogger)
	authMiddleware := middleware.NewAuthMiddleware(authService, appLogger)

	// 8. Start gRPC health server for container probes
	grpcServer := grpc.NewServer()
	healthpb.RegisterHealthServer(grpcServer, health.NewServer())

	grpcAddr := fmt.Sprintf(":%s", cfg.ApiGrpcPort)
	grpcListener, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		appLogger.Error("❌ Failed to listen for gRPC", "error", err)
		os.Exit(1)
	}

	go func() {
		appLogger.Info("🔌 [Go] gRPC health server running...", "port", cfg.ApiGrpcPort)
		if err := grpcServer.Serve(grpcListener); err != nil {
			appLogger.Error("❌ gRPC server failed", "error", err)
		}
	}()
	defer grpcServer.GracefulStop()

	// 9. Setup Router and start HTTP Server
	r := api.SetupRouter(authHandler, userHandler, authMiddleware)

	addr := fmt.Sprintf(":%s", cfg.ApiServicePort)
	appLogger.Info("🌍 [Go] HTTP Server running on port...", "port", addr)
	if err := r.Run(addr); err != nil {
		appLogger.Error("❌ HTTP Server failed to start", "error", err)
		os.Exit(1)
	}
}
