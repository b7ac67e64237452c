package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	_ "voting-system/docs"
	"voting-system/internal/config"
	"voting-system/internal/domain/admin"
	"voting-system/internal/domain/candidate"
	"voting-system/internal/domain/event"
	"voting-system/internal/domain/results"
	"voting-system/internal/domain/session"
	api "voting-system/internal/http"
	"voting-system/internal/metrics"
	"voting-system/internal/platform/database"
	jwtpkg "voting-system/internal/platform/jwt"
	"voting-system/internal/repository/postgres"
	"voting-system/internal/worker"
	"voting-system/internal/ws"
)

// @title           Voting Event API
// @version         1.0
// @description     Real-time in-room voting with admin-driven sessions
// @BasePath        /api/v1
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization
func main() {
	cfg := config.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)
	api.SetLogger(logger)

	metrics.Register()

	db, err := database.NewPostgres(cfg.DB_DSN)
	if err != nil {
		log.Fatalf("db connect error: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(context.Background(), db); err != nil {
		log.Fatalf("db migrate error: %v", err)
	}

	adminRepo := postgres.NewAdminRepo(db)
	candidateRepo := postgres.NewCandidateRepo(db)
	eventRepo := postgres.NewEventRepo(db)
	voteRepo := postgres.NewVoteRepo(db)
	displayRepo := postgres.NewDisplayRepo(db)

	adminSvc := admin.NewService(adminRepo)
	candidateSvc := candidate.NewService(candidateRepo)
	eventSvc := event.NewService(eventRepo, candidateRepo, displayRepo, cfg.VoteDurationSec)
	sessionSvc := session.NewService(eventRepo, voteRepo, displayRepo)
	resultsSvc := results.NewService(eventRepo, voteRepo)

	if err := adminSvc.EnsureDefault(context.Background(), cfg.AdminUsername, cfg.AdminPassword); err != nil {
		log.Fatalf("admin seed error: %v", err)
	}

	jwtMgr := jwtpkg.NewManager(cfg.JWTSecret, "")

	voteCh := make(chan worker.VoteEvent, 100)
	voteWorker := worker.NewVoteWorker(voteCh, logger)

	registry := ws.NewRegistry(cfg.MaxConnsPerEvent, cfg.MaxConnsTotal, logger)
	gateway := ws.NewGateway(eventRepo, sessionSvc, resultsSvc, registry, voteCh, logger)

	router := api.NewRouter(adminSvc, candidateSvc, eventSvc, sessionSvc, resultsSvc, gateway, jwtMgr, db)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go voteWorker.Run(ctx)

	go func() {
		log.Printf("server listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	<-stop
	log.Println("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	cancel()
	registry.CloseAll()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server shutdown error: %v", err)
	}

	log.Println("server stopped")
}
