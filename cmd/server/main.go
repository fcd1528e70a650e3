package main

import (
	"cfstudy/internal/app"
	"cfstudy/internal/config"
	"cfstudy/internal/service"
	"cfstudy/internal/transport/rest"
	"cfstudy/internal/transport/ws"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
)

// @title Counterfactual Study API
// @version 1.0
// @description Counterfactual generation and feasibility rating for the reflection study
// @host localhost:8080
// @BasePath /v1
func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "err", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	ctx := context.Background()

	slog.Info("generator config",
		"url", cfg.Generator.BaseURL,
		"timeout", cfg.Generator.Timeout,
		"rps", cfg.Generator.RPS,
		"apiKey", cfg.Generator.HasAPIKey(),
	)

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	if err := a.ConnectRedis(ctx); err != nil {
		return err
	}

	// Initialize WebSocket hub
	wsHub := ws.NewHub()
	defer wsHub.Close()

	// Initialize services
	authSvc := service.NewAuthService(cfg.JWTSecret, cfg.StudyCode, cfg.TokenTTL)
	ratingSvc := service.NewRatingService(a.Counterfactuals, cfg.RatingWriteRetries)
	generator := service.NewGeneratorClient(cfg.Generator)
	cfSvc := service.NewCounterfactualService(ratingSvc, generator, a.HealthCache, cfg.Generator)
	conditionSvc := service.NewConditionService(a.Participants, a.ConditionCache)

	// Inject broadcaster (wsHub implements service.Broadcaster)
	ratingSvc.SetBroadcaster(wsHub)
	cfSvc.SetBroadcaster(wsHub)

	var sweep *cron.Cron
	if cfg.RepairSweepSchedule != "" {
		sweep, err = service.NewRepairSweeper(a.Counterfactuals, ratingSvc).Schedule(cfg.RepairSweepSchedule)
		if err != nil {
			return err
		}
		slog.Info("repair sweep scheduled", "schedule", cfg.RepairSweepSchedule)
	}

	router := rest.NewRouter(&rest.Container{
		AuthService:           authSvc,
		RatingService:         ratingSvc,
		CounterfactualService: cfSvc,
		ConditionService:      conditionSvc,
		WSHub:                 wsHub,
		CORSAllowedOrigins:    cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return err
	}
	slog.Info("shutting down server")

	if sweep != nil {
		<-sweep.Stop().Done()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	conditionSvc.Wait()

	slog.Info("server exited")
	return nil
}
