package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "exchange-marketplace-backend/docs"
	"exchange-marketplace-backend/internal/common/cache"
	"exchange-marketplace-backend/internal/common/config"
	"exchange-marketplace-backend/internal/common/logger"
	"exchange-marketplace-backend/internal/common/middleware"
	authhttp "exchange-marketplace-backend/internal/features/auth/delivery/http"
	authservice "exchange-marketplace-backend/internal/features/auth/service"
	"exchange-marketplace-backend/internal/features/auth/signature"
	"exchange-marketplace-backend/internal/features/auth/store"
	"exchange-marketplace-backend/internal/features/auth/token"
	orderhttp "exchange-marketplace-backend/internal/features/order/delivery/http"
	orderRepo "exchange-marketplace-backend/internal/features/order/repository/postgres"
	orderservice "exchange-marketplace-backend/internal/features/order/service"
	userhttp "exchange-marketplace-backend/internal/features/user/delivery/http"
	userRepo "exchange-marketplace-backend/internal/features/user/repository/postgres"
	userservice "exchange-marketplace-backend/internal/features/user/service"
	wallethttp "exchange-marketplace-backend/internal/features/wallet/delivery/http"
	walletservice "exchange-marketplace-backend/internal/features/wallet/service"
	"exchange-marketplace-backend/internal/platform/db"
	redisplatform "exchange-marketplace-backend/internal/platform/redis"
)

// @title           Exchange Marketplace API
// @version         1.0
// @description     Marketplace backend with Telegram-based authentication.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey SessionToken
// @in header
// @name Authorization
// @description Session token as "Bearer <token>"; the tg_session cookie is accepted as a fallback

// @tag.name auth
// @tag.description Telegram authentication - bot handshake, widget callback, mini app and session management

// @tag.name orders
// @tag.description Currency-exchange orders

// @tag.name users
// @tag.description User profiles

// @tag.name wallet
// @tag.description TON payout wallets
func main() {
	// Инициализируем конфигурацию и логгер
	cfg := config.Load()
	logger.Init("exchange-marketplace-backend", cfg.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Инициализируем базу данных
	pg, err := db.Open(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pg.Close()

	// Redis не обязателен: без него просто не кэшируем листинг ордеров
	var cacheService *cache.Service
	rdb, err := redisplatform.Open(ctx, cfg.RedisAddr(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Warn().Err(err).Msg("Redis unavailable, order listing cache disabled")
	} else {
		defer rdb.Close()
		cacheService = cache.NewService(rdb)
		logger.Info().Msg("Cache service initialized")
	}

	// Компоненты ядра авторизации
	verifier := signature.NewVerifier(cfg.Telegram.BotToken, cfg.Auth.MaxAuthAge)
	codec := token.NewCodec(cfg.Auth.SessionSecret, cfg.Auth.SessionTTL)
	pendingStates := store.New(cfg.Auth.StateTTL)
	pendingStates.StartJanitor(time.Minute)
	defer pendingStates.Close()

	// Репозитории и сервисы
	userRepository := userRepo.NewPostgresRepository(pg)
	orderRepository := orderRepo.NewPostgresRepository(pg)

	userSvc := userservice.NewUserService(userRepository)
	orderSvc := orderservice.NewOrderService(orderRepository, cacheService)
	walletSvc := walletservice.NewWalletService(userRepository)
	authSvc := authservice.NewAuthService(pendingStates, verifier, codec, userSvc,
		cfg.Telegram.BotToken, cfg.Telegram.BotUsername)

	logger.Info().Msg("Services initialized")

	// Настраиваем Gin
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.ErrorHandler())

	// Настраиваем CORS для фронтенда
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Server.Origin, cfg.Frontend.PublicURL}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Content-Type", "Authorization", "Accept", "init_data"}
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	// Настраиваем роуты
	v1 := router.Group("/api/v1")

	userHandler := userhttp.NewUserHandler(userSvc, codec)
	userHandler.RegisterRoutes(v1)

	authhttp.NewAuthHandler(authSvc, codec, cfg.Frontend.PublicURL).RegisterRoutes(v1)
	orderhttp.NewOrderHandler(orderSvc, userHandler, codec).RegisterRoutes(v1)
	wallethttp.NewWalletHandler(walletSvc, userHandler, codec).RegisterRoutes(v1)

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC(),
			"service":   "exchange-marketplace-backend",
		})
	})

	logger.Info().Msg("Routes configured")

	// Создаем HTTP сервер
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Запускаем сервер в горутине
	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Ждем сигнала для graceful shutdown
	<-ctx.Done()
	stop()

	logger.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
		os.Exit(1)
	}

	logger.Info().Msg("Server exited")
}
