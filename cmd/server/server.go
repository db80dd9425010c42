package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	gormlogger "gorm.io/gorm/logger"

	"github.com/recava/recava-server/internal/config"
	agentconfigdomain "github.com/recava/recava-server/internal/domain/agentconfig"
	billingdomain "github.com/recava/recava-server/internal/domain/billing"
	historydomain "github.com/recava/recava-server/internal/domain/history"
	"github.com/recava/recava-server/internal/infrastructure/auth"
	"github.com/recava/recava-server/internal/infrastructure/database"
	"github.com/recava/recava-server/internal/infrastructure/logger"
	agentconfigrepo "github.com/recava/recava-server/internal/infrastructure/repository/agentconfig"
	accountrepo "github.com/recava/recava-server/internal/infrastructure/repository/account"
	historyrepo "github.com/recava/recava-server/internal/infrastructure/repository/history"
	"github.com/recava/recava-server/internal/infrastructure/stripeclient"
	"github.com/recava/recava-server/internal/interfaces/httpserver"
)

// @title Recava Support API
// @version 1.0
// @description Support endpoints for the sustainability chatbot: chat history review, credit billing, agent configuration
// @BasePath /
type Application struct {
	httpServer *httpserver.HttpServer
	log        zerolog.Logger
}

func NewApplication(httpServer *httpserver.HttpServer, log zerolog.Logger) *Application {
	return &Application{
		httpServer: httpServer,
		log:        log,
	}
}

func (a *Application) Start(ctx context.Context) error {
	return a.httpServer.Run(ctx)
}

func main() {
	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(database.Config{
		DSN:             cfg.DatabaseURL,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
		LogLevel:        gormlogger.Warn,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}

	if err := database.AutoMigrate(ctx, db, log); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	authValidator, err := auth.NewValidator(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize auth validator")
	}

	historyService := historydomain.NewService(historyrepo.NewPostgresRepository(db), log)
	billingService := billingdomain.NewService(
		accountrepo.NewPostgresRepository(db),
		stripeclient.New(cfg.StripeSecretKey, log),
		log,
	)
	agentConfigService := agentconfigdomain.NewService(agentconfigrepo.NewPostgresRepository(db), log)

	httpServer := httpserver.New(cfg, log, historyService, billingService, agentConfigService, authValidator)
	app := NewApplication(httpServer, log)

	if err := app.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("application stopped with error")
	}

	log.Info().Msg("application exited cleanly")
}

func loadEnvFiles() {
	paths := []string{".env", "../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
