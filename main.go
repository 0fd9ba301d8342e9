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

	"golang.org/x/time/rate"

	"github.com/rjsadow/aurora/internal/auth"
	"github.com/rjsadow/aurora/internal/calls"
	"github.com/rjsadow/aurora/internal/config"
	"github.com/rjsadow/aurora/internal/diagnostics"
	"github.com/rjsadow/aurora/internal/domain"
	"github.com/rjsadow/aurora/internal/gateway"
	"github.com/rjsadow/aurora/internal/handlers"
	"github.com/rjsadow/aurora/internal/idgen"
	"github.com/rjsadow/aurora/internal/mediafleet"
	"github.com/rjsadow/aurora/internal/rpc"
	"github.com/rjsadow/aurora/internal/server"
	"github.com/rjsadow/aurora/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := config.MustLoad()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := store.Bootstrap(cfg.MongoURI, cfg.MongoDatabase); err != nil {
		slog.Error("failed to bootstrap document store schema", "error", err)
		os.Exit(1)
	}

	mongoStore, err := store.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		slog.Error("failed to connect to document store", "error", err)
		os.Exit(1)
	}
	defer mongoStore.Close(context.Background())

	redisStore, err := store.ConnectRedis(ctx, cfg.RedisURI)
	if err != nil {
		slog.Error("failed to connect to shared store", "error", err)
		os.Exit(1)
	}
	defer redisStore.Close()

	authenticator, err := buildAuthenticator(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialize authenticator", "error", err)
		os.Exit(1)
	}

	users := domain.NewUsers(mongoStore)
	spaces := domain.NewSpaces(mongoStore)
	channels := domain.NewChannels(mongoStore)
	members := domain.NewMembers(mongoStore)
	roles := domain.NewRoles(mongoStore)
	invites := domain.NewInvites(mongoStore)
	messages := domain.NewMessages(mongoStore)
	histories := domain.NewCallHistories(mongoStore)

	var archiver *calls.Archiver
	if cfg.CallArchiveS3Bucket != "" {
		archiver, err = calls.NewArchiver(ctx, cfg.CallArchiveS3Bucket, os.Getenv("CALL_ARCHIVE_S3_REGION"),
			os.Getenv("CALL_ARCHIVE_S3_ENDPOINT"), os.Getenv("CALL_ARCHIVE_S3_PREFIX"),
			os.Getenv("CALL_ARCHIVE_S3_ACCESS_KEY_ID"), os.Getenv("CALL_ARCHIVE_S3_SECRET_ACCESS_KEY"))
		if err != nil {
			slog.Error("failed to initialize call history archiver", "error", err)
			os.Exit(1)
		}
		slog.Info("call history cold-storage mirror enabled", "bucket", cfg.CallArchiveS3Bucket)
	}

	pending := calls.NewPendingRequests()
	coordinator := calls.NewCoordinator(redisStore, histories, pending, archiver, cfg.MediaTokenTimeout)
	defer coordinator.StopSnapshots()

	directory := mediafleet.NewDirectory(redisStore, pending)
	serverID, err := idgen.GenerateID()
	if err != nil {
		slog.Error("failed to generate server id", "error", err)
		os.Exit(1)
	}
	go func() {
		if err := directory.Run(ctx, serverID); err != nil && ctx.Err() == nil {
			slog.Error("media fleet directory exited", "error", err)
		}
	}()

	if cfg.K8sMediaNodeNamespace != "" {
		k8sCheck, err := mediafleet.NewK8sCheck(cfg.K8sMediaNodeNamespace, cfg.K8sMediaNodeSelector)
		if err != nil {
			slog.Warn("media fleet k8s cross-check disabled: failed to build client", "error", err)
		} else {
			go k8sCheck.RunPeriodic(ctx, directory, time.Minute)
			slog.Info("media fleet k8s cross-check enabled", "namespace", cfg.K8sMediaNodeNamespace, "selector", cfg.K8sMediaNodeSelector)
		}
	}

	registry := rpc.NewRegistry()
	dispatcher := rpc.NewDispatcher()
	h := &handlers.Handlers{
		Registry:      registry,
		Users:         users,
		Spaces:        spaces,
		Channels:      channels,
		Members:       members,
		Roles:         roles,
		Invites:       invites,
		Messages:      messages,
		Coordinator:   coordinator,
		MaxSpaceCount: cfg.MaxSpaceCount,
	}
	h.RegisterAll(dispatcher)

	rpcServer := rpc.NewServer(registry, dispatcher, authenticator, rpc.Config{
		OutboundQueueSize: cfg.OutboundQueueSize,
		SlowClientTimeout: cfg.SlowClientTimeout,
		HeartbeatTimeout:  cfg.HeartbeatTimeout,
	})

	limiter := gateway.NewRateLimiter(rate.Limit(cfg.ConnectRatePerSec), cfg.ConnectRateBurst)
	gatewayHandler := gateway.NewHandler(gateway.Config{Server: rpcServer, Limiter: limiter})

	collector := diagnostics.NewCollector(mongoStore, redisStore, registry, directory, time.Now())

	app := &server.App{Gateway: gatewayHandler, DiagCollector: collector}

	httpServer := &http.Server{
		Addr:    cfg.ListenAddress,
		Handler: app.Handler(),
	}

	go func() {
		slog.Info("aurora core starting", "addr", cfg.ListenAddress)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("error during graceful shutdown", "error", err)
	}
}

// buildAuthenticator wires the configured bearer-token authenticator(s).
// OIDC is optional and additive: when configured, a token is accepted if
// either verifier accepts it, so a deployment can migrate from one scheme
// to the other without a flag day.
func buildAuthenticator(ctx context.Context, cfg *config.Config) (rpc.Authenticator, error) {
	jwtAuth, err := auth.NewJWTAuthenticator(cfg.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("jwt authenticator: %w", err)
	}

	if cfg.OIDCIssuerURL == "" {
		return jwtAuth, nil
	}

	oidcAuth, err := auth.NewOIDCAuthenticator(ctx, cfg.OIDCIssuerURL, cfg.OIDCClientID)
	if err != nil {
		return nil, fmt.Errorf("oidc authenticator: %w", err)
	}

	return chainAuthenticator{jwtAuth, oidcAuth}, nil
}

// chainAuthenticator tries each Authenticator in order, returning the
// first successful result.
type chainAuthenticator []rpc.Authenticator

func (c chainAuthenticator) Authenticate(ctx context.Context, token string) (string, error) {
	var lastErr error
	for _, a := range c {
		userID, err := a.Authenticate(ctx, token)
		if err == nil {
			return userID, nil
		}
		lastErr = err
	}
	return "", lastErr
}
