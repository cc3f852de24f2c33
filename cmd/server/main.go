package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vncsmyrnk/livepoll/internal/adapters/broadcast/kafka"
	"github.com/vncsmyrnk/livepoll/internal/adapters/broadcast/redis"
	"github.com/vncsmyrnk/livepoll/internal/adapters/handler/http"
	"github.com/vncsmyrnk/livepoll/internal/adapters/realtime/ws"
	"github.com/vncsmyrnk/livepoll/internal/adapters/repository"
	"github.com/vncsmyrnk/livepoll/internal/config"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
	"github.com/vncsmyrnk/livepoll/internal/core/services"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		return err
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := repository.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer store.Close()

	hub := ws.NewHub(nil)

	// With redis, local events take a round trip through the channel so every
	// instance's hub sees the same stream.
	var publishers []ports.EventPublisher
	var relayErr <-chan error
	if cfg.Redis.Enabled() {
		bus, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer bus.Close()

		relayErr, err = startSubscriber(ctx, bus, hub, subscribeTimeout)
		if err != nil {
			return err
		}
		hub.SetChatRelay(bus)
		publishers = append(publishers, bus)
	} else {
		publishers = append(publishers, hub)
	}

	if cfg.Kafka.Enabled() {
		kafkaPublisher := kafka.NewPublisher(cfg.Kafka)
		defer kafkaPublisher.Close()
		publishers = append(publishers, kafkaPublisher)
	}

	notifier := services.NewNotifier(nil, publishers...)

	pollService := services.NewPollService(store, notifier, nil)
	quorum := services.NewQuorumService(store, pollService)
	voteService := services.NewVoteService(store, notifier, quorum, nil)
	rosterService := services.NewRosterService(store, notifier, nil)
	hub.SetVoteService(voteService)

	if cfg.Auth.PresenterKey == "" {
		slog.Warn("PRESENTER_KEY not set, presenter routes are unauthenticated")
	}
	authService := services.NewAuthService(cfg.Auth.PresenterKey, cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL, nil)

	pollHandler := http.NewPollHandler(pollService, nil)
	handler := http.NewHandler(http.Handlers{
		Polls:       pollHandler,
		Votes:       http.NewVoteHandler(voteService, pollHandler),
		Respondents: http.NewRespondentHandler(rosterService),
		Auth:        http.NewAuthHandler(authService, cfg.Auth.AccessTokenTTL, cfg.Auth.CookieSecure),
		Presenter:   http.RequirePresenter(authService),
		Realtime:    ws.NewHandler(hub, cfg.Server.AllowedOrigins),
		Health:      store,
	}, cfg.Server.AllowedOrigins)

	server := &stdhttp.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", server.Addr, "database", cfg.Database.Type)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case err := <-errCh:
		return err
	case runErr = <-relayErr:
		// Without the subscriber no websocket client would see another event.
		slog.Error("redis subscriber stopped", "error", runErr)
	case <-ctx.Done():
	}
	slog.Info("gracefully shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return runErr
}

const subscribeTimeout = 10 * time.Second

type subscriber interface {
	Run(ctx context.Context, sink redis.Sink, ready chan<- struct{}) error
}

// startSubscriber runs sub in the background and returns once its
// subscription is confirmed. The returned channel yields an error if sub
// stops before ctx is done.
func startSubscriber(ctx context.Context, sub subscriber, sink redis.Sink, timeout time.Duration) (<-chan error, error) {
	ready := make(chan struct{})
	stopped := make(chan error, 1)
	go func() {
		err := sub.Run(ctx, sink, ready)
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			err = errors.New("subscription closed")
		}
		stopped <- err
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ready:
		return stopped, nil
	case err := <-stopped:
		return nil, fmt.Errorf("failed to start redis subscriber: %w", err)
	case <-timer.C:
		return nil, errors.New("timed out waiting for redis subscription")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
