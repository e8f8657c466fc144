package main

import (
	"context"
	"crypto/tls"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/careloop/telehealth-client/internal/admin"
	"github.com/careloop/telehealth-client/internal/chat"
	"github.com/careloop/telehealth-client/internal/config"
	"github.com/careloop/telehealth-client/internal/observability/metrics"
	"github.com/careloop/telehealth-client/internal/ops"
	"github.com/careloop/telehealth-client/internal/portal"
	"github.com/careloop/telehealth-client/internal/state"
	"github.com/careloop/telehealth-client/internal/stream"
	syncpkg "github.com/careloop/telehealth-client/internal/sync"
	"github.com/careloop/telehealth-client/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting portalsyncd",
		"env", cfg.Env,
		"api", cfg.APIBaseURL,
		"role", cfg.PortalRole,
	)

	client, err := portal.New(portal.Config{
		BaseURL:    cfg.APIBaseURL,
		Timeout:    cfg.HTTPTimeout,
		MaxRetries: cfg.MaxRetries,
		Backoff:    cfg.RetryBaseDelay,
		Logger:     logger,
		UserAgent:  cfg.APIUserAgent,
	})
	if err != nil {
		logger.Error("failed to build portal client", "error", err)
		os.Exit(1)
	}

	store := state.New()
	role := portal.Role(cfg.PortalRole)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.PortalEmail != "" && cfg.PortalPassword != "" {
		loginCtx, loginCancel := context.WithTimeout(ctx, 30*time.Second)
		user, err := client.Login(loginCtx, cfg.PortalEmail, cfg.PortalPassword)
		loginCancel()
		if err != nil {
			logger.Error("portal login failed", "error", err)
			os.Exit(1)
		}
		store.SetAuth(portal.AuthStatus{Authenticated: true, User: user})
		logger.Info("logged in", "user_id", user.ID, "role", user.Role)
	} else {
		logger.Warn("no portal credentials configured, relying on existing session")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	syncMetrics := metrics.NewSyncMetrics(registry)

	engine := syncpkg.NewEngine(logger)
	addPoller := func(name string, interval time.Duration, fetch syncpkg.Fetch) {
		p, err := syncpkg.New(syncpkg.Config{
			Name:                 name,
			Fetch:                fetch,
			Interval:             interval,
			BackoffAfter:         cfg.BackoffAfterFailures,
			MaxBackoffMultiplier: cfg.MaxBackoffMultiplier,
			Logger:               logger,
			Metrics:              syncMetrics,
		})
		if err != nil {
			logger.Error("failed to build poller", "name", name, "error", err)
			os.Exit(1)
		}
		if err := engine.Add(p); err != nil {
			logger.Error("failed to register poller", "name", name, "error", err)
			os.Exit(1)
		}
	}

	addPoller(state.SliceAuth, cfg.DashboardInterval, func(ctx context.Context) error {
		status, err := client.Status(ctx)
		if err != nil {
			return err
		}
		store.SetAuth(*status)
		return nil
	})
	addPoller(state.SliceConsultations, cfg.ConsultationsInterval, func(ctx context.Context) error {
		consultations, err := client.ListConsultations(ctx, role)
		if err != nil {
			return err
		}
		store.SetConsultations(consultations)
		return nil
	})
	addPoller(state.SlicePrescriptions, cfg.PrescriptionsInterval, func(ctx context.Context) error {
		prescriptions, err := client.ListPrescriptions(ctx, role)
		if err != nil {
			return err
		}
		store.SetPrescriptions(prescriptions)
		return nil
	})

	selfID := ""
	if u := store.Auth().User; u != nil {
		selfID = u.ID
	}
	follower, err := chat.NewFollower(client, store.Consultations, selfID, role, logger)
	if err != nil {
		logger.Error("failed to build chat follower", "error", err)
		os.Exit(1)
	}
	addPoller(state.SliceMessages, cfg.MessagesInterval, follower.Fetch)

	var growth *admin.GrowthService
	if role == portal.RoleAdmin {
		addPoller(state.SliceAdminUsers, cfg.AdminUsersInterval, func(ctx context.Context) error {
			users, err := client.ListUsers(ctx, portal.RolePatient)
			if err != nil {
				return err
			}
			store.SetAdminUsers(users)
			return nil
		})
		addPoller(state.SliceDashboard, cfg.DashboardInterval, func(ctx context.Context) error {
			stats, err := client.GetDashboard(ctx)
			if err != nil {
				return err
			}
			store.SetDashboard(stats)
			return nil
		})

		var archive admin.Archive
		if cfg.RedisAddr != "" {
			opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
			if cfg.RedisTLS {
				opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
			}
			redisClient := redis.NewClient(opts)
			defer redisClient.Close()
			archive, err = admin.NewRedisArchive(redisClient, cfg.SnapshotRetention)
			if err != nil {
				logger.Error("failed to build redis archive", "error", err)
				os.Exit(1)
			}
			logger.Info("snapshot archive on redis", "addr", cfg.RedisAddr)
		} else {
			archive = admin.NewMemoryArchive(cfg.SnapshotRetention)
			logger.Warn("snapshot archive in memory, history lost on restart")
		}

		growth, err = admin.NewGrowthService(client, archive, logger)
		if err != nil {
			logger.Error("failed to build growth service", "error", err)
			os.Exit(1)
		}
		if err := growth.StartSnapshotJob(cfg.SnapshotCronSpec); err != nil {
			logger.Error("failed to schedule snapshot job", "error", err)
			os.Exit(1)
		}
		defer growth.StopSnapshotJob()
	}

	if err := engine.Start(ctx); err != nil {
		logger.Error("failed to start sync engine", "error", err)
		os.Exit(1)
	}

	var subscriber *stream.Subscriber
	if cfg.StreamEnabled && cfg.StreamURL != "" {
		subscriber, err = stream.NewSubscriber(cfg.StreamURL, engine, logger)
		if err != nil {
			logger.Error("failed to build stream subscriber", "error", err)
			os.Exit(1)
		}
		go subscriber.Run(ctx)
	}

	streamConnected := func() bool { return false }
	if subscriber != nil {
		streamConnected = subscriber.Connected
	}
	opsServer, err := ops.NewServer(ops.Config{
		Addr:            ":" + cfg.OpsPort,
		Logger:          logger,
		Store:           store,
		Engine:          engine,
		Growth:          growth,
		Gatherer:        registry,
		AdminAuthSecret: cfg.AdminJWTSecret,
		StreamConnected: streamConnected,
	})
	if err != nil {
		logger.Error("failed to build ops server", "error", err)
		os.Exit(1)
	}
	go func() {
		if err := opsServer.Start(); err != nil {
			logger.Error("ops server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down portalsyncd")

	cancel()
	engine.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := opsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("ops server shutdown error", "error", err)
	}
	logger.Info("portalsyncd stopped")
}
