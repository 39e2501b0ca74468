package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/guildnet/bansync/config"
	"github.com/guildnet/bansync/internal/auth"
	"github.com/guildnet/bansync/internal/cache"
	"github.com/guildnet/bansync/internal/database"
	"github.com/guildnet/bansync/internal/engine"
	"github.com/guildnet/bansync/internal/gateway"
	"github.com/guildnet/bansync/internal/handlers"
	"github.com/guildnet/bansync/internal/middleware"
	"github.com/guildnet/bansync/internal/platform"
	"github.com/guildnet/bansync/internal/repository"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Discord.Token == "" {
		log.Fatalf("DISCORD_TOKEN must be set")
	}

	// Connect to database
	db, err := database.NewPostgresDB(cfg.GetDSN())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Run migrations
	log.Println("Running database migrations...")
	if err := database.RunMigrations(db.DB); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Migrations completed successfully")

	// Connect to Redis; without it the dedup table is process-local only
	var dedup engine.Deduplicator
	redis, err := cache.NewRedisClient(cfg.GetRedisAddr(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Printf("Warning: Failed to connect to Redis: %v", err)
		log.Println("Running with in-memory deduplication - do not run multiple replicas")
		memDedup := engine.NewMemoryDeduplicator(cfg.Sync.DedupTTL, cfg.Sync.ExecMarkTTL)
		memDedup.Cleanup()
		dedup = memDedup
	} else {
		defer redis.Close()
		dedup = engine.NewRedisDeduplicator(redis, cfg.Sync.DedupTTL, cfg.Sync.ExecMarkTTL)
	}

	// Initialize repositories
	networkRepo := repository.NewNetworkRepository(db)
	historyRepo := repository.NewHistoryRepository(db)
	adminRepo := repository.NewAdminRepository(db)

	// Ensure the bootstrap operator account exists
	if _, err := adminRepo.EnsureBootstrapAdmin(cfg.Admin.Email, cfg.Admin.DisplayName, cfg.Admin.Password); err != nil {
		log.Printf("Warning: failed to ensure bootstrap admin: %v", err)
	}

	// Platform client and sync engine
	discord := platform.NewDiscordClient(cfg.Discord.Token, cfg.Discord.APIBase)

	dispatchCfg := engine.DefaultDispatcherConfig()
	dispatchCfg.ActionsPerSecond = cfg.Sync.ActionsPerSecond
	dispatchCfg.Burst = cfg.Sync.Burst
	dispatchCfg.MaxAttempts = cfg.Sync.MaxAttempts

	dispatcher := engine.NewDispatcher(discord, historyRepo, dedup, dispatchCfg)
	defer dispatcher.Stop()

	planner := engine.NewPlanner(networkRepo, dedup)
	syncEngine := engine.NewEngine(planner, dispatcher, dedup)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Reconciliation sweep: once at startup, then on the configured interval
	reconciler := engine.NewReconciler(networkRepo, historyRepo, discord, dispatcher, dedup, cfg.Sync.ReconcileInterval)
	go reconciler.Run(ctx)

	// Gateway consumer feeding the engine
	gw := gateway.NewClient(cfg.Discord.GatewayURL, cfg.Discord.Token, syncEngine)
	go gw.Run(ctx)

	// Initialize services for the management API
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpiryHours)
	authHandler := handlers.NewAuthHandler(adminRepo, jwtService)
	networkHandler := handlers.NewNetworkHandler(networkRepo)
	historyHandler := handlers.NewHistoryHandler(historyRepo)

	rateLimiter := middleware.NewRateLimiter(cfg.Sync.APIRateLimitRPS)
	rateLimiter.Cleanup()

	// Setup Gin router
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	router.Use(middleware.CORSMiddleware(cfg.CORS.AllowedOrigins))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Public routes
	router.POST("/auth/login", authHandler.Login)

	// Protected routes
	api := router.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(jwtService), middleware.RateLimitMiddleware(rateLimiter))
	{
		api.GET("/me", authHandler.GetMe)

		// Network registry
		api.POST("/networks", networkHandler.CreateNetwork)
		api.GET("/networks/:id", networkHandler.GetNetwork)
		api.POST("/networks/:id/members", networkHandler.JoinNetwork)
		api.DELETE("/networks/:id/members/:guild_id", networkHandler.LeaveNetwork)
		api.GET("/networks/:id/members", networkHandler.ListMembers)
		api.GET("/guilds/:guild_id/networks", networkHandler.ListNetworksForGuild)

		// Audit history
		api.GET("/networks/:id/history", historyHandler.RecentForNetwork)
	}

	// Start server
	addr := ":" + cfg.Server.Port
	log.Printf("Starting bansync server on %s (env: %s)", addr, cfg.Server.Env)
	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
