package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/storage/memory/v2"
	"github.com/gofiber/storage/redis/v3"
	"github.com/khanghh/riskauth/internal/audit"
	"github.com/khanghh/riskauth/internal/auth"
	"github.com/khanghh/riskauth/internal/common"
	"github.com/khanghh/riskauth/internal/config"
	"github.com/khanghh/riskauth/internal/handlers/api"
	"github.com/khanghh/riskauth/internal/middlewares"
	"github.com/khanghh/riskauth/internal/risk"
	"github.com/khanghh/riskauth/internal/store"
	"github.com/khanghh/riskauth/internal/token"
	"github.com/khanghh/riskauth/internal/users"
	"github.com/khanghh/riskauth/model"
	"github.com/khanghh/riskauth/params"
	"github.com/urfave/cli/v2"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
	"gorm.io/plugin/dbresolver"
)

var (
	app       *cli.App
	gitCommit string
	gitDate   string
)

var (
	configFileFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "YAML config file",
		Value: "config.yaml",
	}
	debugFlag = &cli.BoolFlag{
		Name:  "debug",
		Usage: "Enable debug logging",
	}
)

func init() {
	app = cli.NewApp()
	app.EnableBashCompletion = true
	app.Usage = "riskauth - An authentication server with adaptive risk scoring"
	app.Flags = []cli.Flag{
		configFileFlag,
		debugFlag,
	}
	app.Commands = []*cli.Command{
		{
			Name:  "version",
			Usage: "Print version information",
			Action: func(ctx *cli.Context) error {
				fmt.Println(params.VersionWithCommit(gitCommit, gitDate))
				return nil
			},
		},
		{
			Name:   "migrate",
			Usage:  "Create or update the database schema and exit",
			Action: migrate,
		},
	}
	app.Action = run
}

func mustInitLogger(debug bool) {
	logLevel := slog.LevelInfo
	if debug {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(handler))
}

func mustInitDatabase(dbConfig config.MySQLConfig) *gorm.DB {
	db, err := gorm.Open(mysql.Open(dbConfig.Dsn), &gorm.Config{
		NamingStrategy: schema.NamingStrategy{
			TablePrefix:   dbConfig.TablePrefix,
			SingularTable: true,
		},
	})
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if len(dbConfig.Replicas) > 0 {
		replicas := make([]gorm.Dialector, 0, len(dbConfig.Replicas))
		for _, dsn := range dbConfig.Replicas {
			replicas = append(replicas, mysql.Open(dsn))
		}
		resolver := dbresolver.Register(dbresolver.Config{
			Replicas: replicas,
			Policy:   dbresolver.RandomPolicy{},
		})
		if err := db.Use(resolver); err != nil {
			slog.Error("Failed to register read replicas", "error", err)
			os.Exit(1)
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		slog.Error("Failed to get database handle", "error", err)
		os.Exit(1)
	}
	if dbConfig.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(dbConfig.MaxIdleConns)
	}
	if dbConfig.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(dbConfig.MaxOpenConns)
	}
	if dbConfig.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(time.Duration(dbConfig.ConnMaxIdleTime) * time.Second)
	}
	if dbConfig.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(dbConfig.ConnMaxLifetime) * time.Second)
	}
	return db
}

func mustMigrateDatabase(db *gorm.DB) {
	if err := model.AutoMigrate(db); err != nil {
		slog.Error("Database migration failed", "error", err)
		os.Exit(1)
	}
}

func mustInitRedisStorage(redisCfg config.RedisConfig) *redis.Storage {
	if redisCfg.URL == "" {
		return nil
	}
	return redis.New(redis.Config{
		URL:           redisCfg.URL,
		PoolSize:      redisCfg.PoolSize,
		IsClusterMode: redisCfg.ClusterMode,
	})
}

func mustInitRiskStore(backend string, db *gorm.DB, redisStorage *redis.Storage) (risk.Store, risk.Reporter) {
	switch backend {
	case "redis":
		s := risk.NewRedisStore(store.NewRedisStorage(redisStorage.Conn()))
		return s, s
	case "memory":
		s := risk.NewMemoryStore()
		return s, s
	default:
		s := risk.NewRepository(db)
		return s, s
	}
}

func mustInitRiskPolicy(riskCfg config.RiskConfig) risk.Policy {
	policy, err := risk.PolicyWithOverrides(riskCfg.Weights, risk.Thresholds{
		Medium:   riskCfg.Thresholds.Medium,
		High:     riskCfg.Thresholds.High,
		Critical: riskCfg.Thresholds.Critical,
	})
	if err != nil {
		slog.Error("Invalid risk policy", "error", err)
		os.Exit(1)
	}
	return policy
}

func mustInitDummyHash(hasher users.BcryptHasher) string {
	secret, err := common.GenerateSecret(32)
	if err != nil {
		slog.Error("Failed to generate dummy secret", "error", err)
		os.Exit(1)
	}
	hash, err := hasher.Hash(secret)
	if err != nil {
		slog.Error("Failed to hash dummy secret", "error", err)
		os.Exit(1)
	}
	return hash
}

func setupAPIRoutes(router fiber.Router, authHandler *api.AuthHandler, adminHandler *api.AdminHandler, verifier middlewares.TokenVerifier, cookieName string, adminKey string) {
	authRouter := router.Group("/auth")
	authRouter.Post("/login", authHandler.PostLogin)
	authRouter.Post("/register", authHandler.PostRegister)
	authRouter.Post("/logout", authHandler.PostLogout)
	authRouter.Get("/check-session", middlewares.RequireSession(verifier, cookieName), authHandler.GetCheckSession)

	adminRouter := router.Group("/admin", middlewares.RequireAdminKey(adminKey))
	adminRouter.Get("/stats", adminHandler.GetStats)
	adminRouter.Get("/events", adminHandler.GetEvents)
	adminRouter.Get("/risk-users", adminHandler.GetRiskUsers)
	adminRouter.Get("/attack-distribution", adminHandler.GetAttackDistribution)
	adminRouter.Post("/users/:id/risk-events", adminHandler.PostRiskEvent)
}

func migrate(ctx *cli.Context) error {
	config, err := config.LoadConfig(ctx.String(configFileFlag.Name))
	if err != nil {
		slog.Error("Could not load config file.", "error", err)
		return err
	}
	mustInitLogger(config.Debug || ctx.IsSet(debugFlag.Name))

	db := mustInitDatabase(config.MySQL)
	mustMigrateDatabase(db)
	slog.Info("Database schema is up to date")
	return nil
}

func run(ctx *cli.Context) error {
	config, err := config.LoadConfig(ctx.String(configFileFlag.Name))
	if err != nil {
		slog.Error("Could not load config file.", "error", err)
		return err
	}

	mustInitLogger(config.Debug || ctx.IsSet(debugFlag.Name))

	db := mustInitDatabase(config.MySQL)
	mustMigrateDatabase(db)
	redisStorage := mustInitRedisStorage(config.Redis)
	riskStore, riskReporter := mustInitRiskStore(config.Risk.Backend, db, redisStorage)

	// repositories
	var (
		userRepo  = users.NewUserRepository(db)
		auditRepo = audit.NewRepository(db)
	)

	// services
	var (
		hasher      = users.NewBcryptHasher(config.BcryptCost)
		userService = users.NewUserService(userRepo, hasher)
		recorder    = audit.NewRecorder(auditRepo)
		riskEngine  = risk.NewEngine(riskStore, mustInitRiskPolicy(config.Risk), risk.WithMaxRetries(config.Risk.MaxRetries))
		issuer      = token.NewIssuer(config.MasterKey, config.Session.TokenMaxAge)
	)
	authenticator := auth.NewAuthenticator(auth.Options{
		Accounts:        userService,
		Credentials:     hasher,
		Risk:            riskEngine,
		Audit:           recorder,
		TrustOnFirstUse: *config.Risk.TrustOnFirstUse,
		DummyHash:       mustInitDummyHash(hasher),
	})

	// handlers
	var (
		cookieConfig = api.CookieConfig{Name: config.Session.CookieName, Secure: config.Session.CookieSecure}
		authHandler  = api.NewAuthHandler(authenticator, issuer, cookieConfig, *config.Risk.ExposeScore)
		adminHandler = api.NewAdminHandler(authenticator, userService, riskReporter, auditRepo)
	)

	var limiterStorage fiber.Storage = memory.New()
	if redisStorage != nil {
		limiterStorage = redisStorage
	}

	router := fiber.New(fiber.Config{
		Prefork:       false,
		CaseSensitive: true,
		BodyLimit:     params.ServerBodyLimit,
		IdleTimeout:   params.ServerIdleTimeout,
		ReadTimeout:   params.ServerReadTimeout,
		WriteTimeout:  params.ServerWriteTimeout,
		ErrorHandler:  middlewares.ErrorHandler,
	})

	router.Use(recover.New())
	router.Use(logger.New())
	router.Use(helmet.New())
	router.Use(middlewares.RateLimiter(middlewares.RateLimitConfig{
		Max:     config.RateLimit.Max,
		Window:  config.RateLimit.Window,
		Storage: limiterStorage,
		Audit:   recorder,
	}))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(config.AllowOrigins, ", "),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: len(config.AllowOrigins) > 0 && config.AllowOrigins[0] != "*",
	}))

	setupAPIRoutes(router.Group("/api"), authHandler, adminHandler, issuer, config.Session.CookieName, config.Admin.APIKey)

	var healthHandler = common.NewHealthCheckHandler(db, nil)
	if redisStorage != nil {
		healthHandler = common.NewHealthCheckHandler(db, redisStorage.Conn())
	}
	healthCheckCtx, term := context.WithCancel(ctx.Context)
	done := make(chan struct{})
	go common.StartHealthCheckServer(healthCheckCtx, done, params.HealthCheckServerAddr, healthHandler)
	defer func() {
		term()
		<-done
	}()

	slog.Info("Starting server", "addr", config.ListenAddr, "riskBackend", config.Risk.Backend, "version", params.Version)
	return router.Listen(config.ListenAddr)
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
