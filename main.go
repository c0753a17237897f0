package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"rewards-engine/handlers"
	"rewards-engine/middleware"
	"rewards-engine/models"
	"rewards-engine/services"
	"rewards-engine/utils"
	"rewards-engine/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{})

	// 🔐 GLOBAL: Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-User-ID, X-User-Roles, X-Service-Token, X-Device-ID",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.Account{},
		&models.RewardGrant{},
		&models.LoginStreak{},
		&models.AchievementDefinition{},
		&models.BadgeTier{},
		&models.BadgeProgress{},
		&models.Guild{},
		&models.GuildMembership{},
		&models.GuildChallenge{},
		&models.LootBoxDefinition{},
		&models.LootReward{},
		&models.LootBoxInstance{},
		&models.QuestTemplate{},
		&models.QuestCompletion{},
		&models.AchievementNotification{},
		&models.MirroredAccount{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379/0"
	}
	redisOpts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Fatal("invalid REDIS_URL:", err)
	}
	rdb := redis.NewClient(redisOpts)

	ledgerService := services.NewLedgerService(db)
	notificationService := services.NewNotificationService(db)
	leaderboardService := services.NewLeaderboardService(db, rdb)
	ledgerService.Notify = notificationService
	ledgerService.Board = leaderboardService

	streakService := services.NewStreakService(db, ledgerService, notificationService)
	badgeService := services.NewBadgeService(db, notificationService)
	guildService := services.NewGuildService(db, ledgerService, notificationService)
	lootBoxService := services.NewLootBoxService(db, ledgerService, notificationService)
	questService := services.NewQuestService(db, ledgerService, notificationService)

	// --- Auth service client for SSE query-token validation ---
	authServiceURL := os.Getenv("AUTH_SERVICE_URL")
	if authServiceURL == "" {
		log.Fatal("AUTH_SERVICE_URL environment variable not set")
	}
	rewardsServiceToken := os.Getenv("REWARDS_SERVICE_TOKEN")
	if rewardsServiceToken == "" {
		log.Fatal("REWARDS_SERVICE_TOKEN environment variable not set")
	}
	authClient := services.NewAuthServiceClient(authServiceURL, rewardsServiceToken)

	// --- Profile mirror sync worker ---
	syncServiceURL := os.Getenv("SYNC_SERVICE_URL")
	if syncServiceURL == "" {
		log.Fatal("SYNC_SERVICE_URL environment variable not set")
	}
	syncWorker := workers.NewAccountSyncWorker(db, syncServiceURL, "/api/v1/public/profiles", rewardsServiceToken)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Println("Starting Account Sync Worker...")
		syncWorker.Start(ctx)
	}()
	go workers.PollLeaderboard(ctx, leaderboardService, 60*time.Second)

	guildService.StartChallengeScheduler()

	// ✅ Setup routes — enforced Gateway auth throughout
	handlers.SetupRewardsRoutes(app, ledgerService, streakService, questService, notificationService, leaderboardService, authClient)
	handlers.SetupBadgeRoutes(app, badgeService, ledgerService)
	handlers.SetupGuildRoutes(app, guildService, ledgerService)
	handlers.SetupLootBoxRoutes(app, lootBoxService, ledgerService)

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Rewards engine running on http://localhost:5300")
	log.Println("✅ Account Sync Worker running")
	log.Println("✅ Leaderboard polling running (every 60s)")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
}
