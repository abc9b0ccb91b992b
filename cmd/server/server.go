package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/reactiveburst/rbc-engine/internal/analytics"
	"github.com/reactiveburst/rbc-engine/internal/config"
	"github.com/reactiveburst/rbc-engine/internal/engine/abilities"
	"github.com/reactiveburst/rbc-engine/internal/engine/ai"
	"github.com/reactiveburst/rbc-engine/internal/engine/calculator"
	entities "github.com/reactiveburst/rbc-engine/internal/entities/combat"
	v1 "github.com/reactiveburst/rbc-engine/internal/handlers/api/v1"
	"github.com/reactiveburst/rbc-engine/internal/metrics"
	combatsvc "github.com/reactiveburst/rbc-engine/internal/orchestrators/combat"
	"github.com/reactiveburst/rbc-engine/internal/orchestrators/lifecycle"
	"github.com/reactiveburst/rbc-engine/internal/orchestrators/matchmaking"
	"github.com/reactiveburst/rbc-engine/internal/orchestrators/supervisor"
	"github.com/reactiveburst/rbc-engine/internal/pkg/clock"
	"github.com/reactiveburst/rbc-engine/internal/pkg/idgen"
	"github.com/reactiveburst/rbc-engine/internal/redis"
	"github.com/reactiveburst/rbc-engine/internal/repositories/account"
	"github.com/reactiveburst/rbc-engine/internal/repositories/matchqueue"
	"github.com/reactiveburst/rbc-engine/internal/repositories/session"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the HTTP server",
	Long:  `Start the combat engine HTTP server, recover supervisors for any sessions left active, and serve the v1 API.`,
	RunE:  runServer,
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg.LogLevel)

	client, err := redis.NewClient(cfg.RedisAddress, nil)
	if err != nil {
		return fmt.Errorf("failed to create redis client: %w", err)
	}
	defer func() { _ = client.Close() }()

	sessionRepo, err := session.NewRedis(&session.RedisConfig{Client: client})
	if err != nil {
		return fmt.Errorf("failed to create session repository: %w", err)
	}
	accountRepo, err := account.NewRedis(&account.RedisConfig{Client: client})
	if err != nil {
		return fmt.Errorf("failed to create account repository: %w", err)
	}
	queueRepo, err := matchqueue.NewRedis(&matchqueue.RedisConfig{Client: client})
	if err != nil {
		return fmt.Errorf("failed to create match queue repository: %w", err)
	}

	m := metrics.New()
	engineClock := clock.New()
	abilityRegistry := abilities.NewRegistry()

	emitter, err := buildEmitter(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = emitter.Close() }()

	combat, err := combatsvc.NewOrchestrator(&combatsvc.Config{
		SessionRepo: sessionRepo,
		Abilities:   abilityRegistry,
		Calculator:  calculator.NewSeeded(time.Now().UnixNano()),
		Clock:       engineClock,
		Metrics:     m,
		RNG:         rand.New(rand.NewSource(time.Now().UnixNano())),
		Regen:       regenHook(cfg.RegenPerExchange),
	})
	if err != nil {
		return fmt.Errorf("failed to create combat orchestrator: %w", err)
	}

	registry, err := supervisor.NewRegistry(&supervisor.Config{
		SessionRepo: sessionRepo,
		Combat:      combat,
		Picker:      ai.New(rand.New(rand.NewSource(time.Now().UnixNano())), abilityRegistry),
		Clock:       engineClock,
		Metrics:     m,
		BusySleep:   cfg.SupervisorBusySleep,
		IdleSleep:   cfg.SupervisorIdleSleep,
	})
	if err != nil {
		return fmt.Errorf("failed to create supervisor registry: %w", err)
	}

	lc, err := lifecycle.NewOrchestrator(&lifecycle.Config{
		SessionRepo: sessionRepo,
		AccountRepo: accountRepo,
		Clock:       engineClock,
		IDGenerator: idgen.NewUUID("sess"),
		Metrics:     m,
		Analytics:   emitter,
		Launcher:    registry,
		HistoryTTL:  cfg.HistoryTTL,
	})
	if err != nil {
		return fmt.Errorf("failed to create lifecycle orchestrator: %w", err)
	}
	registry.SetFinalizer(func(ctx context.Context, sessionID, winner string) error {
		_, err := lc.Finalize(ctx, &lifecycle.FinalizeInput{SessionID: sessionID, Winner: winner})
		return err
	})

	mm, err := matchmaking.NewOrchestrator(&matchmaking.Config{
		QueueRepo:    queueRepo,
		AccountRepo:  accountRepo,
		Lifecycle:    lc,
		Clock:        engineClock,
		Metrics:      m,
		Launcher:     registry,
		MatchTimeout: cfg.ArenaMatchmakingTimeout,
		RequestTTL:   cfg.MatchRequestTTL,
		ShadowHP:     cfg.ShadowOpponentHP,
		ShadowEnergy: cfg.ShadowOpponentEnergy,
	})
	if err != nil {
		return fmt.Errorf("failed to create matchmaking orchestrator: %w", err)
	}

	handler, err := v1.NewHandler(&v1.Config{
		Combat:      combat,
		Lifecycle:   lc,
		Matchmaking: mm,
		Launcher:    registry,
	})
	if err != nil {
		return fmt.Errorf("failed to create HTTP handler: %w", err)
	}

	bootCtx, bootCancel := context.WithTimeout(context.Background(), 30*time.Second)
	recovered, err := lc.RecoverActiveSessions(bootCtx, &lifecycle.RecoverActiveSessionsInput{})
	bootCancel()
	if err != nil {
		return fmt.Errorf("failed to recover active sessions: %w", err)
	}
	if len(recovered.SessionIDs) > 0 {
		slog.Info("recovered active sessions", "count", len(recovered.SessionIDs))
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Handle("/metrics", m.Handler())
	router.Mount("/api/v1", handler.Routes())

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server starting", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-sigChan:
		slog.Info("shutdown signal received", "signal", sig.String())
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP shutdown failed", "error", err.Error())
	}
	if err := registry.Shutdown(shutdownCtx); err != nil {
		slog.Error("supervisor shutdown failed", "error", err.Error())
	}
	slog.Info("server stopped")
	return nil
}

// regenHook applies flat per-exchange regeneration to both sides; nil when
// disabled. Clamping to the pools happens in the combat orchestrator.
func regenHook(n int) combatsvc.RegenHook {
	if n <= 0 {
		return nil
	}
	return func(a, b *entities.Participant) {
		for _, p := range []*entities.Participant{a, b} {
			p.State.HPCurrent += n
			p.State.EnergyCurrent += n
		}
	}
}

func buildEmitter(cfg *config.Config) (analytics.Emitter, error) {
	if cfg.AMQPURL == "" {
		slog.Info("analytics disabled, no broker configured")
		return analytics.Noop{}, nil
	}
	emitter, err := analytics.NewAMQP(&analytics.AMQPConfig{
		URL:       cfg.AMQPURL,
		QueueName: cfg.AnalyticsQueue,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect analytics broker: %w", err)
	}
	return emitter, nil
}

func setupLogging(level string) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})))
}
