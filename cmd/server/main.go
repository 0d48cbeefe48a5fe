package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"caseflow/internal/definition"
	definitionHandler "caseflow/internal/definition/handler"
	"caseflow/internal/engine"
	engineHandler "caseflow/internal/engine/handler"
	"caseflow/internal/engine/metrics"
	"caseflow/internal/events"
	"caseflow/internal/events/outbox"
	httpapi "caseflow/internal/http"
	"caseflow/internal/instance"
	"caseflow/internal/platform/config"
	"caseflow/internal/platform/httpserver"
	"caseflow/internal/platform/kafka"
	"caseflow/internal/platform/logger"
	"caseflow/internal/platform/postgres"
	"caseflow/internal/platform/redis"
	"caseflow/internal/token"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps := map[string]httpapi.HealthChecker{}

	var db *sql.DB
	if cfg.Postgres.DSN != "" {
		var err error
		db, err = postgres.Open(ctx, cfg.Postgres.DSN)
		if err != nil {
			log.Error("postgres connection failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := postgres.CreateSchema(ctx, db); err != nil {
			log.Error("schema creation failed", "error", err)
			os.Exit(1)
		}
		deps["postgres"] = healthFunc(db.PingContext)
	} else {
		log.Warn("CASEFLOW_POSTGRES_DSN not set, using in-memory stores")
	}

	rdb, err := redis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if rdb != nil {
		defer rdb.Close()
		deps["redis"] = rdb
	}

	kc, err := kafka.New(cfg.Kafka)
	if err != nil {
		log.Error("kafka connection failed", "error", err)
		os.Exit(1)
	}
	if kc != nil {
		defer kc.Close()
		if err := kc.EnsureTopic(ctx, cfg.Kafka.Topic); err != nil {
			log.Error("kafka topic creation failed", "error", err, "topic", cfg.Kafka.Topic)
			os.Exit(1)
		}
	}

	var definitionStore definition.Store
	var instanceStore instance.Store
	if db != nil {
		definitionStore = definition.NewPostgres(db)
		instanceStore = instance.NewPostgres(db)
	} else {
		definitionStore = definition.NewInMemoryStore()
		instanceStore = instance.NewInMemoryStore()
	}
	if rdb != nil {
		definitionStore = definition.NewCachedStore(definitionStore, rdb.Client, cfg.DefinitionCacheTTL, log)
	}
	definitionService := definition.NewService(definitionStore, log)

	dispatcher := events.NewDispatcher(log)
	dispatcher.SubscribeAll(events.NewLogSubscriber(log))

	var worker *outbox.Worker
	if kc != nil {
		var outboxStore outbox.Store
		if db != nil {
			outboxStore = outbox.NewPostgres(db)
		} else {
			outboxStore = outbox.NewInMemoryStore()
		}
		dispatcher.SubscribeAll(outbox.NewSubscriber(outboxStore))
		worker = outbox.NewWorker(outboxStore, kc, cfg.Kafka.Topic, cfg.Kafka.PollInterval, cfg.Kafka.BatchSize, log)
	}

	eng := engine.New(definitionService, instanceStore, dispatcher, metrics.New(), log, cfg.AdvanceRetries)
	tokens := token.NewService(cfg.JWTSigningKey, "caseflow", "caseflow")

	router := httpapi.NewRouter(httpapi.RouterConfig{
		Logger:    log,
		Validator: tokens,
		Handlers: []httpapi.Registrar{
			definitionHandler.New(definitionService, log),
			engineHandler.New(eng, log),
		},
		Dependencies: deps,
	})

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting caseflow", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if worker != nil {
		g.Go(func() error {
			if err := worker.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Error("shutdown with error", "error", err)
		os.Exit(1)
	}
	log.Info("caseflow stopped")
}

// healthFunc adapts a bare probe function to the router's HealthChecker.
type healthFunc func(ctx context.Context) error

func (f healthFunc) Health(ctx context.Context) error { return f(ctx) }
