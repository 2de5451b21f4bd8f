package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/saraatrapero/puerta-garaje/internal/auth"
	"github.com/saraatrapero/puerta-garaje/internal/clock"
	"github.com/saraatrapero/puerta-garaje/internal/config"
	"github.com/saraatrapero/puerta-garaje/internal/db"
	"github.com/saraatrapero/puerta-garaje/internal/discovery"
	"github.com/saraatrapero/puerta-garaje/internal/garage/service"
	"github.com/saraatrapero/puerta-garaje/internal/garage/store"
	"github.com/saraatrapero/puerta-garaje/internal/garage/store/postgres"
	sqlitestore "github.com/saraatrapero/puerta-garaje/internal/garage/store/sqlite"
	"github.com/saraatrapero/puerta-garaje/internal/garage/types"
	"github.com/saraatrapero/puerta-garaje/internal/grpcapi"
	"github.com/saraatrapero/puerta-garaje/internal/httpapi"
	"github.com/saraatrapero/puerta-garaje/internal/lpr"
	"github.com/saraatrapero/puerta-garaje/internal/rosterfile"
	"github.com/saraatrapero/puerta-garaje/internal/sensors"
)

func main() {
	cfg := config.FromEnv()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("garage-server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clk := clock.Real{}

	// Database
	conn, err := db.Open(ctx, db.Config{Path: cfg.DBPath, Env: cfg.Env})
	if err != nil {
		return err
	}
	defer conn.Close()

	if cfg.Env == "dev" {
		if err := db.SeedDev(ctx, conn); err != nil {
			return err
		}
	}

	writer := db.NewWorker(conn)
	defer writer.Close()

	// Stores
	userStore := sqlitestore.NewUserStore(conn, writer)
	telemetry := sqlitestore.NewTelemetryStore(conn, writer)
	var logs store.AccessLogStore = sqlitestore.NewAccessLogStore(conn, writer)

	if cfg.ArchiveDSN != "" {
		archive, err := postgres.Open(ctx, cfg.ArchiveDSN, logger)
		if err != nil {
			return err
		}
		defer archive.Close()
		logs = &store.MirroredLogStore{Primary: logs, Archive: archive, Logger: logger}
	}

	// Sensors
	obstruction := sensors.NewDebounced(clk, cfg.ObstructionDebounce)
	proximity := sensors.NewPresence(clk, cfg.ProximityTTL)

	if cfg.ObstructionGPIO != "" {
		poller := sensors.NewPoller(sensors.GPIOFile{Path: cfg.ObstructionGPIO, Inverted: cfg.ObstructionInverted},
			obstruction, cfg.ObstructionPoll, logger)
		poller.Start(ctx)
		defer poller.Stop()
	}

	var bridge *sensors.Bridge
	if len(cfg.MQTTBrokers) > 0 {
		bridge = sensors.NewBridge(sensors.BridgeConfig{
			Brokers:          cfg.MQTTBrokers,
			ClientID:         cfg.MQTTClientID,
			Username:         cfg.MQTTUsername,
			Password:         cfg.MQTTPassword,
			ObstructionTopic: cfg.MQTTObstructionTopic,
			ProximityTopic:   cfg.MQTTProximityTopic,
			DoorTopic:        cfg.MQTTDoorTopic,
			PowerTopic:       cfg.MQTTPowerTopic,
		}, obstruction, proximity, logger)
		if err := bridge.Connect(ctx); err != nil {
			// fail-soft: the door still works on local inputs
			logger.Warn("mqtt bridge unavailable", "error", err)
			bridge = nil
		} else {
			defer bridge.Close()
		}
	}

	// Recogniser / summariser
	var (
		recognizer service.Recognizer = lpr.Disabled{}
		summarizer service.Summarizer = lpr.Disabled{}
	)
	if cfg.GeminiAPIKey != "" {
		g, err := lpr.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, logger)
		if err != nil {
			return err
		}
		recognizer, summarizer = g, g
	} else {
		logger.Warn("GARAGE_GEMINI_API_KEY not set, plate recognition disabled")
	}

	// Services
	power := service.NewPowerThermalManager(cfg.Power, clk)
	activity := service.NewActivity(clk, power.SetBusy)
	controller := service.NewAccessController(cfg.Door, service.ControllerDeps{
		Clock:       clk,
		Logs:        logs,
		Obstruction: obstruction,
		Proximity:   proximity,
		Logger:      logger,
	})
	roster := service.NewRoster(userStore, clk)
	gate := service.NewGateService(service.GateDeps{
		Controller:   controller,
		Roster:       roster,
		Recognizer:   recognizer,
		Activity:     activity,
		BusyCooldown: cfg.LPRCooldown,
		Logger:       logger,
	})

	if cfg.RosterFile != "" {
		w, err := rosterfile.Watch(ctx, cfg.RosterFile, roster, logger)
		if err != nil {
			return err
		}
		defer w.Stop()
	}

	powerLoop := service.NewPowerLoop(power, telemetry, cfg.PowerTick, logger)

	// gRPC health
	var health *grpcapi.Server
	if cfg.GRPCAddr != "" {
		health = grpcapi.NewServer(cfg.Power.LowThreshold, logger)
		controller.OnStateChange(health.DoorChanged)
		powerLoop.OnSample(health.PowerSampled)

		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return err
		}
		go func() {
			if err := health.Serve(lis); err != nil {
				logger.Error("grpc server error", "error", err)
			}
		}()
		defer health.Stop()
	}

	if bridge != nil {
		controller.OnStateChange(bridge.PublishDoorState)
		powerLoop.OnSample(bridge.PublishPower)
	}
	controller.OnStateChange(func(s types.DoorState) {
		logger.Info("door state changed", "state", s)
	})

	powerLoop.Start(ctx)
	defer powerLoop.Stop()

	pruner := service.NewRetentionPruner(logs, telemetry, service.PrunerConfig{
		LogRetentionDays:       cfg.LogRetentionDays,
		TelemetryRetentionDays: cfg.TelemetryRetentionDays,
		Interval:               time.Duration(cfg.PruneIntervalHours) * time.Hour,
	}, logger)
	pruner.Start(ctx)
	defer pruner.Stop()

	digest := service.NewDigestJob(logs, summarizer, cfg.DigestWindow, clk, logger)
	if err := digest.Start(ctx, cfg.DigestCron); err != nil {
		return err
	}
	defer digest.Stop()

	admin, err := auth.NewAdmin(cfg.AdminUser, cfg.AdminPasswordHash, cfg.AdminPassword)
	if err != nil {
		return err
	}
	if !admin.Enabled() {
		logger.Warn("no admin password configured, door commands and roster edits are disabled")
	}

	// HTTP
	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:   logger,
		Addr:     cfg.HTTPAddr,
		Gate:     gate,
		Roster:   roster,
		Logs:     logs,
		Power:    power,
		Activity: activity,
		Digest:   digest,
		Admin:    admin,
		Ready: func(ctx context.Context) error {
			return pingDB(ctx, conn)
		},
	})

	if cfg.MDNS {
		adv, err := discovery.Advertise(discovery.Config{
			HTTPPort:   portOf(cfg.HTTPAddr),
			GRPCPort:   portOf(cfg.GRPCAddr),
			MQTTBroker: firstOr(cfg.MQTTBrokers, ""),
		}, logger)
		if err != nil {
			logger.Warn("mDNS advertisement failed", "error", err)
		} else {
			defer adv.Shutdown()
		}
	}

	go func() {
		logger.Info("listening", "addr", cfg.HTTPAddr)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func pingDB(ctx context.Context, conn *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	return conn.PingContext(ctx)
}

func portOf(addr string) int {
	_, p, err := net.SplitHostPort(addr)
	if err != nil {
		return 0
	}
	n, _ := strconv.Atoi(p)
	return n
}

func firstOr(v []string, def string) string {
	if len(v) == 0 {
		return def
	}
	return v[0]
}
