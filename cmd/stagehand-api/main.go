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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/shaiso/Stagehand/internal/api"
	"github.com/shaiso/Stagehand/internal/command"
	"github.com/shaiso/Stagehand/internal/config"
	"github.com/shaiso/Stagehand/internal/ledger"
	"github.com/shaiso/Stagehand/internal/library"
	"github.com/shaiso/Stagehand/internal/logsink"
	"github.com/shaiso/Stagehand/internal/mq"
	"github.com/shaiso/Stagehand/internal/repo"
	"github.com/shaiso/Stagehand/internal/runner"
	"github.com/shaiso/Stagehand/internal/scheduler"
	"github.com/shaiso/Stagehand/internal/telemetry"
)

var startTime = time.Now()

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting stagehand-api")

	if err := run(logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
	logger.Info("stopped")
}

func run(logger *slog.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Конфигурация: файл (STAGEHAND_CONFIG или поиск по умолчанию) + env
	src, err := config.Load(os.Getenv("STAGEHAND_CONFIG"), logger)
	if err != nil {
		return err
	}
	cfg := src.Config()
	if f := src.File(); f != "" {
		logger.Info("config loaded", "file", f)
	}

	// Хранилища: PostgreSQL, если задан DB_URL, иначе память
	var (
		features  library.FeatureStore = library.NewFeatures()
		schedules scheduler.Store      = scheduler.NewMemoryStore()
		records   *repo.RecordRepo
	)
	if os.Getenv("DB_URL") != "" {
		pool, err := repo.NewPool(ctx)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer pool.Close()

		if err := repo.EnsureSchema(ctx, pool); err != nil {
			return err
		}
		logger.Info("connected to database")

		features = repo.NewFeatureRepo(pool)
		schedules = repo.NewScheduleRepo(pool)
		records = repo.NewRecordRepo(pool)
	} else {
		logger.Info("DB_URL not set, using in-memory storage")
	}

	// Seed: окружения и стартовые features
	seed, err := library.LoadSeed(cfg.Library.SeedFile)
	if err != nil {
		return err
	}
	added, err := seed.Apply(ctx, features)
	if err != nil {
		return err
	}
	envs := library.NewEnvironments(seed.Environments...)
	logger.Info("library ready", "seeded_features", added, "environments", len(seed.Environments))

	metrics := telemetry.NewMetrics(prometheus.DefaultRegisterer)
	observers := []runner.Observer{metrics}
	if records != nil {
		observers = append(observers, repo.NewArchive(records, logger))
	}

	// RabbitMQ необязателен: без него нет событий и внешних заявок
	var mqConn *mq.Connection
	if cfg.Events.Enabled {
		mqConn, err = mq.NewConnection(mq.URLFromEnv(), logger)
		if err != nil {
			logger.Warn("RabbitMQ unavailable, events disabled", "error", err)
			mqConn = nil
		} else if err := mq.SetupTopology(ctx, mqConn); err != nil {
			logger.Warn("failed to setup RabbitMQ topology, events disabled", "error", err)
			mqConn.Close()
			mqConn = nil
		} else {
			defer mqConn.Close()
			observers = append(observers, mq.NewEventObserver(mq.NewPublisher(mqConn, logger), logger))
		}
	}

	// Координатор запусков
	settings := runner.NewSettings(cfg.Execution.ExecutionConfig)
	runTimeout := cfg.Execution.RunTimeout
	if runTimeout == 0 {
		// В конфиге 0 — без ограничения; у координатора это < 0
		runTimeout = -1
	}
	coordinator := runner.New(runner.Config{
		Drivers:     runner.NewDefaultRegistry(runner.SimulatedConfig{Speed: cfg.Simulation.Speed}, runner.RealConfig{}),
		Settings:    settings,
		Environment: envs,
		Sink:        logsink.New(logsink.Config{MaxLines: cfg.Logs.MaxLines}),
		Ledger:      ledger.New(cfg.Ledger.Capacity),
		Observers:   observers,
		RunTimeout:  runTimeout,
		Logger:      logger,
	})

	// Изменения блока execution в файле применяются к следующим запускам
	src.Watch(func(next *config.Config) {
		if err := settings.Update(next.Execution.ExecutionConfig); err != nil {
			logger.Warn("execution settings not applied", "error", err)
			return
		}
		logger.Info("execution settings reloaded", "mode", next.Execution.Mode, "method", next.Execution.Method)
	})

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched = scheduler.New(scheduler.Config{
			Store:    schedules,
			Features: features,
			Queue:    coordinator,
			Logger:   logger,
			Interval: cfg.Scheduler.Interval,
		})
	}

	var commands *command.Adapter
	if cfg.Assistant.Enabled() {
		commands = command.NewAdapter(command.Config{
			Interpreter: command.NewOpenAIClient(command.OpenAIConfig{
				BaseURL: cfg.Assistant.BaseURL,
				APIKey:  cfg.Assistant.APIKey,
				Model:   cfg.Assistant.Model,
				Timeout: cfg.Assistant.Timeout,
			}),
			Features: features,
			Runner:   coordinator,
			Logger:   logger,
		})
		logger.Info("assistant enabled", "model", cfg.Assistant.Model)
	}

	handler := api.NewHandler(api.Config{
		Features:    features,
		Envs:        envs,
		Coordinator: coordinator,
		Commands:    commands,
		Scheduler:   sched,
		Records:     records,
		Metrics:     metrics,
		CORSOrigins: cfg.Server.CORSOrigins,
		Logger:      logger,
	})

	mux := http.NewServeMux()

	// Health и metrics
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s", time.Since(startTime).Round(time.Second))
	})
	mux.Handle("/metrics", promhttp.Handler())

	handler.RegisterRoutes(mux)

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if err := coordinator.Start(ctx); err != nil {
		return fmt.Errorf("start coordinator: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if sched != nil {
		g.Go(func() error {
			return sched.Run(gctx)
		})
	}

	if mqConn != nil {
		consumer := mq.NewConsumer(mqConn, logger, mq.ConsumerConfig{
			Queue:   string(mq.QueueRunsRequested),
			Handler: mq.NewRunRequestHandler(features, coordinator, logger),
		})
		g.Go(func() error {
			if err := consumer.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("run request consumer: %w", err)
			}
			return nil
		})
	}

	// Graceful shutdown: по сигналу или ошибке любой из горутин
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		handler.Close()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", "error", err)
		}
		coordinator.Stop()
		return nil
	})

	return g.Wait()
}
