package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/openbracket/tournament-engine/brackets"
	"github.com/openbracket/tournament-engine/config"
	"github.com/openbracket/tournament-engine/db"
	"github.com/openbracket/tournament-engine/handlers"
	"github.com/openbracket/tournament-engine/repositories"
	"github.com/openbracket/tournament-engine/routes"
	"github.com/openbracket/tournament-engine/services"
	"github.com/openbracket/tournament-engine/storage"
)

const tokenTTL = 24 * time.Hour

func serveCmd(logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(logger)
		},
	}
}

func runServer(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		}
	}()
	logger.Info("database connection established")

	if err := db.Migrate(dbConn); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	logger.Info("migrations applied")

	var snapshots storage.SnapshotStore
	if cfg.R2Configured() {
		snapshots, err = storage.NewCloudflareR2Store(storage.CloudflareR2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			return fmt.Errorf("initialize R2 snapshot store: %w", err)
		}
		logger.Info("Cloudflare R2 snapshot store initialized")
	} else {
		logger.Info("R2 not configured, bracket publishing disabled")
	}

	hub := brackets.NewHub(logger)
	go hub.Run()

	userRepo := repositories.NewPostgresUserRepository(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	stageRepo := repositories.NewPostgresStageRepository(dbConn)
	groupRepo := repositories.NewPostgresGroupRepository(dbConn)
	participantRepo := repositories.NewPostgresParticipantRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	slotRepo := repositories.NewPostgresBracketSlotRepository(dbConn)
	drawRepo := repositories.NewPostgresDrawSessionRepository(dbConn)

	authService := services.NewAuthService(userRepo, cfg.JWTSecretKey, tokenTTL)
	tournamentService := services.NewTournamentService(dbConn, tournamentRepo, stageRepo)
	stageService := services.NewStageService(dbConn, stageRepo, tournamentRepo)
	participantService := services.NewParticipantService(dbConn, participantRepo, tournamentRepo)
	groupService := services.NewGroupService(dbConn, groupRepo, stageRepo, tournamentRepo, participantRepo, matchRepo, logger)
	matchService := services.NewMatchService(dbConn, matchRepo, hub, logger)
	standingsService := services.NewStandingsService(groupRepo, stageRepo, participantRepo, matchRepo)
	bracketService := services.NewBracketService(dbConn, stageRepo, tournamentRepo, participantRepo, matchRepo, slotRepo, snapshots, hub, logger)
	resolverService := services.NewSlotResolverService(dbConn, stageRepo, slotRepo, matchRepo, participantRepo, groupRepo, standingsService, hub, logger)
	drawService := services.NewDrawService(dbConn, drawRepo, tournamentRepo, stageRepo, groupRepo, participantRepo, matchRepo, slotRepo, standingsService, hub, logger)

	router := routes.InitRoutes(routes.Handlers{
		Auth:        handlers.NewAuthHandler(authService),
		Tournament:  handlers.NewTournamentHandler(tournamentService),
		Stage:       handlers.NewStageHandler(stageService),
		Group:       handlers.NewGroupHandler(groupService),
		Participant: handlers.NewParticipantHandler(participantService),
		Match:       handlers.NewMatchHandler(matchService),
		Bracket:     handlers.NewBracketHandler(bracketService, resolverService),
		Draw:        handlers.NewDrawHandler(drawService),
		Standings:   handlers.NewStandingsHandler(standingsService),
		WebSocket:   handlers.NewWebSocketHandler(hub, logger),
	}, []byte(cfg.JWTSecretKey))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}
	logger.Info("server shutdown complete")
	return nil
}
