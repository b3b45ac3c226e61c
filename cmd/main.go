package main

import (
	"net/http"
	"time"

	"github.com/senyabanana/idea-funding-service/internal/db"
	"github.com/senyabanana/idea-funding-service/internal/gateway"
	"github.com/senyabanana/idea-funding-service/internal/handlers"
	"github.com/senyabanana/idea-funding-service/internal/repository"
	"github.com/senyabanana/idea-funding-service/internal/router"
	"github.com/senyabanana/idea-funding-service/internal/router/config"
	"github.com/senyabanana/idea-funding-service/internal/services"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Fatal("cannot load config: ", err)
	}

	runDBMigration(logger, cfg.MigrationURL, cfg.PostgresConn)

	dbPool, err := db.InitDb(cfg)
	if err != nil {
		logger.Fatalf("error initializing database: %v", err)
	}
	defer dbPool.Close()

	participantRepo := repository.NewPostgresParticipantRepository(dbPool)
	ledgerRepo := repository.NewPostgresLedgerRepository(dbPool)
	ideaRepo := repository.NewPostgresIdeaRepository(dbPool)
	pledgeRepo := repository.NewPostgresPledgeRepository(dbPool)
	bidRepo := repository.NewPostgresBidRepository(dbPool)
	milestoneRepo := repository.NewPostgresMilestoneRepository(dbPool)
	commentRepo := repository.NewPostgresCommentRepository(dbPool)
	eventRepo := repository.NewPostgresGatewayEventRepository(dbPool)

	gatewayClient := gateway.NewHTTPClient(cfg)

	participantService := services.NewParticipantService(participantRepo, ledgerRepo, gatewayClient, cfg.TokenPriceCents, logger)
	ledgerService := services.NewLedgerService(ledgerRepo, participantRepo, logger)
	ideaService := services.NewIdeaService(ideaRepo, participantRepo, logger)
	pledgeService := services.NewPledgeService(pledgeRepo, participantRepo, logger)
	bidService := services.NewBidService(bidRepo, ideaRepo, participantRepo, logger)
	milestoneService := services.NewMilestoneService(
		milestoneRepo, ideaRepo, bidRepo, participantRepo, ledgerRepo,
		gatewayClient, cfg.PlatformFeeBps, cfg.TokenPriceCents, logger)
	commentService := services.NewCommentService(commentRepo, ideaRepo, participantRepo, logger)
	gatewayService := services.NewGatewayService(eventRepo, cfg.GatewayWebhookSecret, logger)

	timeout := 5 * time.Second
	participantHandler := handlers.NewParticipantHandler(participantService, ledgerService, logger, timeout)
	ideaHandler := handlers.NewIdeaHandler(ideaService, logger, timeout)
	pledgeHandler := handlers.NewPledgeHandler(pledgeService, logger, timeout)
	bidHandler := handlers.NewBidHandler(bidService, logger, timeout)
	milestoneHandler := handlers.NewMilestoneHandler(milestoneService, logger, timeout)
	commentHandler := handlers.NewCommentHandler(commentService, logger, timeout)
	webhookHandler := handlers.NewWebhookHandler(gatewayService, logger, timeout)

	routes := router.InitRoutes(
		participantHandler, ideaHandler, pledgeHandler, bidHandler,
		milestoneHandler, commentHandler, webhookHandler)

	logger.Infof("server is listening on %s...", cfg.ServerAddress)
	if err := http.ListenAndServe(cfg.ServerAddress, routes); err != nil {
		logger.Fatalf("server failed: %v", err)
	}
}

func runDBMigration(logger *logrus.Logger, migrationURL string, dbSource string) {
	migration, err := migrate.New(migrationURL, dbSource)
	if err != nil {
		logger.Fatal("cannot create a new migrate instance: ", err)
	}

	if err = migration.Up(); err != nil && err != migrate.ErrNoChange {
		logger.Fatal("failed to run migrate up: ", err)
	}
	logger.Info("db migrated successfully")
}
