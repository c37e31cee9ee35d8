package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"owatch/internal/auth"
	"owatch/internal/blockchain"
	"owatch/internal/config"
	"owatch/internal/database"
	"owatch/internal/events"
	"owatch/internal/handlers"
	"owatch/internal/jobs"
	"owatch/internal/logger"
	"owatch/internal/services"
	"owatch/internal/tracker"
	"owatch/internal/ws"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New("info")
		fallback.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := logger.New(cfg.App.LogLevel)

	// Initialize JWT
	auth.InitJWT(cfg.App.JWTSecret)

	// Connect to database
	if err := database.Connect(cfg.GetDSN()); err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	// Run migrations
	if err := database.AutoMigrate(); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	db := database.GetDB()

	// Core services
	profileService := services.NewProfileService(db, log)
	videoService := services.NewVideoService(db, log)
	stakingService := services.NewStakingService(db, log)

	// Optional chain components for on-chain rewards
	var (
		chainClient  *blockchain.Client
		claimService *services.ClaimService
	)
	rate, err := decimal.NewFromString(cfg.Chain.ConversionRate)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid POINT_CONVERSION_RATE")
	}
	if cfg.App.RewardMode == config.RewardModeOnChain {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		chainClient, err = blockchain.NewClient(ctx, cfg.Chain.RPCURL, cfg.Chain.RewardContract, cfg.Chain.TokenContract, log)
		cancel()
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect chain client")
		}
		if chainClient.ChainID() != cfg.Chain.ChainID {
			log.Fatal().
				Int64("expected", cfg.Chain.ChainID).
				Int64("connected", chainClient.ChainID()).
				Msg("chain id mismatch")
		}

		signer, err := blockchain.NewClaimSigner(cfg.Chain.SignerPrivateKey)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load claim signer")
		}
		log.Info().Str("signer", signer.Address()).Msg("claim signer loaded")

		claimService = services.NewClaimService(db, log, signer, chainClient, rate, cfg.Chain.ConfirmTimeout)
	}

	rewardService := services.NewRewardService(db, log, cfg.App.RewardMode, claimService)

	// Optional Redis leaderboard
	var leaderboardService *services.LeaderboardService
	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		leaderboardService = services.NewLeaderboardService(rdb, profileService, log)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("redis leaderboard enabled")
	}

	// Optional Kafka point events
	var producer *events.Producer
	if cfg.Kafka.Enabled {
		producer, err = events.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect kafka producer")
		}
	}

	// Websocket hub
	hub := ws.NewHub(log)
	go hub.Run()

	// Fan out point awards to the leaderboard, the event stream and
	// websocket clients
	pointsHook := func(profileID string, amount int64, source string) {
		if leaderboardService != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := leaderboardService.IncrementScore(ctx, profileID, amount); err != nil {
				log.Error().Err(err).Str("profile_id", profileID).Msg("leaderboard increment failed")
			}
		}
		if producer != nil {
			producer.PublishPointEvent(profileID, amount, source)
		}
		hub.NotifyPoints(profileID, amount, source)
	}
	rewardService.AddPointsHook(pointsHook)
	if claimService != nil {
		claimService.AddPointsHook(pointsHook)
	}

	// Watch session tracker
	sessionManager := tracker.NewManager(videoService, rewardService, tracker.NewClock(), cfg.App.SyncInterval, log)

	// Background jobs
	accrualJob := jobs.NewStakingAccrual(stakingService, cfg.App.StakingAccrual, log)
	go accrualJob.Start()

	var leaderboardJob *jobs.LeaderboardSync
	if leaderboardService != nil {
		leaderboardJob = jobs.NewLeaderboardSync(leaderboardService, profileService, hub, cfg.App.LeaderboardSync, cfg.App.LeaderboardLimit, log)
		go leaderboardJob.Start()
	}

	// Handlers
	authHandler := handlers.NewAuthHandler(profileService)
	profileHandler := handlers.NewProfileHandler(profileService, videoService, stakingService)
	videoHandler := handlers.NewVideoHandler(videoService)
	watchHandler := handlers.NewWatchHandler(videoService, sessionManager)
	stakingHandler := handlers.NewStakingHandler(stakingService)
	leaderboardHandler := handlers.NewLeaderboardHandler(leaderboardService, profileService)
	wsHandler := handlers.NewWSHandler(hub, log)

	// Set up Gin router
	router := gin.Default()

	allowedOrigins := []string{
		"http://localhost:3000",
		"http://localhost:5173",
		"http://127.0.0.1:3000",
		"http://127.0.0.1:5173",
	}
	if frontendURL := os.Getenv("FRONTEND_URL"); frontendURL != "" {
		allowedOrigins = append(allowedOrigins, frontendURL)
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"mode":   cfg.App.RewardMode,
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Prometheus metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Authentication routes (public)
	authRoutes := router.Group("/auth")
	{
		authRoutes.GET("/message", authHandler.GetLoginMessage)
		authRoutes.POST("/wallet", authHandler.WalletLogin)
		authRoutes.POST("/logout", authHandler.Logout)
	}

	// Authenticated /auth/me route
	authProtected := router.Group("/auth")
	authProtected.Use(auth.AuthMiddleware())
	{
		authProtected.GET("/me", authHandler.GetMe)
	}

	// Public catalog and leaderboard routes
	router.GET("/api/videos", videoHandler.GetVideos)
	router.GET("/api/videos/:id", videoHandler.GetVideoByID)
	router.GET("/api/leaderboard", leaderboardHandler.GetLeaderboard)

	// API routes (protected)
	api := router.Group("/api")
	api.Use(auth.AuthMiddleware())
	{
		// Profile endpoints
		api.GET("/profile", profileHandler.GetProfile)
		api.PUT("/profile/username", profileHandler.UpdateUsername)
		api.GET("/profile/points", profileHandler.GetPointHistory)
		api.GET("/profile/points/daily", profileHandler.GetDailyPoints)
		api.GET("/profile/stats", profileHandler.GetStats)

		// Video catalog management and progress
		api.POST("/videos", videoHandler.CreateVideo)
		api.GET("/videos/:id/progress", videoHandler.GetProgress)
		api.GET("/progress", videoHandler.ListProgress)

		// Watch sessions
		api.POST("/videos/:id/watch/start", watchHandler.StartSession)
		api.POST("/videos/:id/watch/heartbeat", watchHandler.Heartbeat)
		api.POST("/videos/:id/watch/stop", watchHandler.StopSession)

		// Staking
		api.GET("/staking/pools", stakingHandler.GetPools)
		api.POST("/staking/stake", stakingHandler.Stake)
		api.POST("/staking/positions/:id/unstake", stakingHandler.Unstake)
		api.GET("/staking/positions", stakingHandler.GetPositions)

		// Leaderboard rank
		api.GET("/leaderboard/me", leaderboardHandler.GetMyRank)

		// Live updates
		api.GET("/ws", wsHandler.Connect)

		// Claims (on-chain mode only)
		if claimService != nil {
			claimHandler := handlers.NewClaimHandler(claimService, chainClient, rate)
			api.GET("/claims/info", claimHandler.GetInfo)
			api.GET("/claims", claimHandler.ListClaims)
			api.POST("/claims/convert", claimHandler.CreateConversion)
			api.POST("/claims/:id/confirm", claimHandler.Confirm)
			api.GET("/claims/balance", claimHandler.GetTokenBalance)
		}
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", cfg.Server.Port).Str("mode", cfg.App.RewardMode).Msg("server starting")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	// Flush live sessions so progress lands in the database
	sessionManager.Shutdown()

	accrualJob.Stop()
	if leaderboardJob != nil {
		leaderboardJob.Stop()
	}
	hub.Stop()
	if producer != nil {
		if err := producer.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close kafka producer")
		}
	}
	if rdb != nil {
		rdb.Close()
	}

	log.Info().Msg("server exited")
}
