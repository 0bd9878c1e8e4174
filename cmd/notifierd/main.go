// Command notifierd runs the notification service: the HTTP API, the rule
// engine, the dispatch worker pool, and the nightly analytics job.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/civicflow/notifier/internal/api"
	"github.com/civicflow/notifier/internal/db/migrations"
	"github.com/civicflow/notifier/pkg/analytics"
	"github.com/civicflow/notifier/pkg/channel"
	"github.com/civicflow/notifier/pkg/config"
	"github.com/civicflow/notifier/pkg/dispatch"
	"github.com/civicflow/notifier/pkg/engine"
	"github.com/civicflow/notifier/pkg/httpserver"
	"github.com/civicflow/notifier/pkg/inbox"
	"github.com/civicflow/notifier/pkg/logger"
	"github.com/civicflow/notifier/pkg/pg"
	"github.com/civicflow/notifier/pkg/preference"
	"github.com/civicflow/notifier/pkg/recipient"
	"github.com/civicflow/notifier/pkg/redis"
	"github.com/civicflow/notifier/pkg/rule"
	"github.com/civicflow/notifier/pkg/template"
)

type appConfig struct {
	Environment string `env:"APP_ENV" envDefault:"development"`

	// StorageDriver selects the durable queue backend: "postgres" for
	// deployments, "memory" for local development.
	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"memory"`

	// LimiterDriver selects frequency-cap storage: "redis" or "memory".
	LimiterDriver string `env:"LIMITER_DRIVER" envDefault:"memory"`
}

func main() {
	_ = config.LoadEnv()

	var cfg appConfig
	config.MustLoad(&cfg)

	log := logger.New(logger.WithEnvironment(cfg.Environment, "notifierd"))
	logger.SetAsDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("service stopped with error", logger.Error(err))
		os.Exit(1)
	}
	log.Info("service stopped")
}

func run(ctx context.Context, cfg appConfig, log *slog.Logger) error {
	// Authoring stores are in-memory; rules and templates are loaded
	// through the API on boot by the provisioning job.
	rules := rule.NewMemoryStore()
	templates := template.NewMemoryStore()
	directory := recipient.NewMemoryDirectory()
	preferences := preference.NewMemoryStore()
	inboxStore := inbox.NewMemoryStorage()

	var (
		storage     dispatch.Storage
		statsStore  analytics.Store
		engagements analytics.EngagementRecorder
		readiness   []func(context.Context) error
	)

	switch cfg.StorageDriver {
	case "postgres":
		var pgCfg pg.Config
		config.MustLoad(&pgCfg)

		pool, err := pg.Connect(ctx, pgCfg)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := pg.Migrate(ctx, pool, migrations.FS, pgCfg, log); err != nil {
			return err
		}

		if storage, err = dispatch.NewPostgresStorage(pool); err != nil {
			return err
		}
		if statsStore, err = analytics.NewPostgresStore(pool); err != nil {
			return err
		}
		if engagements, err = analytics.NewPostgresEngagementRecorder(pool); err != nil {
			return err
		}
		readiness = append(readiness, pg.Healthcheck(pool))
		log.Info("using postgres storage")
	default:
		storage = dispatch.NewMemoryStorage()
		statsStore = analytics.NewMemoryStore()
		engagements = analytics.NewMemoryEngagementRecorder()
		log.Warn("using in-memory storage, queued notifications do not survive restarts")
	}

	limiter := preference.Limiter(preference.NewMemoryLimiter())
	if cfg.LimiterDriver == "redis" {
		var redisCfg redis.Config
		config.MustLoad(&redisCfg)

		client, err := redis.Connect(ctx, redisCfg)
		if err != nil {
			return err
		}
		defer client.Close()

		if limiter, err = preference.NewRedisLimiter(client, "notifier"); err != nil {
			return err
		}
		readiness = append(readiness, redis.Healthcheck(client))
		log.Info("using redis frequency limiter")
	}

	filter, err := preference.NewFilter(preferences, limiter)
	if err != nil {
		return err
	}
	resolver, err := recipient.NewResolver(directory)
	if err != nil {
		return err
	}

	worker, err := dispatch.NewWorker(storage, dispatch.WithWorkerLogger(log))
	if err != nil {
		return err
	}
	registerAdapters(worker, inboxStore, log)

	aggregator, err := analytics.NewAggregator(storage, engagements, statsStore,
		analytics.WithAggregatorLogger(log))
	if err != nil {
		return err
	}

	eng, err := engine.New(engine.Deps{
		Rules:      rules,
		Templates:  templates,
		Filter:     filter,
		Resolver:   resolver,
		Directory:  directory,
		Renderer:   template.NewRenderer(),
		Storage:    storage,
		Worker:     worker,
		Aggregator: aggregator,
	}, engine.WithLogger(log))
	if err != nil {
		return err
	}

	router := api.NewRouter(api.Deps{
		Engine:      eng,
		Rules:       rules,
		Templates:   templates,
		Preferences: preferences,
		Dispatch:    storage,
		Inbox:       inboxStore,
		Analytics:   statsStore,
		Engagements: engagements,
		Logger:      log,
	})

	var httpCfg httpserver.Config
	config.MustLoad(&httpCfg)
	srv := httpserver.NewFromConfig(httpCfg,
		httpserver.WithLogger(log),
		httpserver.WithStartHook(func(l *slog.Logger) {
			l.Info("http server listening", slog.String("addr", httpCfg.Addr))
		}),
	)

	mux := withHealthRoutes(ctx, router, log, readiness)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(eng.Run(ctx))
	g.Go(func() error { return srv.Run(ctx, mux) })

	return g.Wait()
}

// registerAdapters wires one adapter per channel. Channels without gateway
// credentials fall back to the dev adapter, which logs instead of sending.
func registerAdapters(worker *dispatch.Worker, inboxStore inbox.Storage, log *slog.Logger) {
	var emailCfg channel.EmailConfig
	config.MustLoad(&emailCfg)
	if email, err := channel.NewPostmarkAdapter(emailCfg); err == nil {
		worker.RegisterAdapter(email)
	} else {
		log.Warn("email gateway not configured, using dev adapter", logger.Error(err))
		worker.RegisterAdapter(channel.NewDevAdapter(template.ChannelEmail, log))
	}

	var smsCfg channel.SMSConfig
	config.MustLoad(&smsCfg)
	if sms, err := channel.NewSMSAdapter(smsCfg); err == nil {
		worker.RegisterAdapter(sms)
	} else {
		log.Warn("sms gateway not configured, using dev adapter", logger.Error(err))
		worker.RegisterAdapter(channel.NewDevAdapter(template.ChannelSMS, log))
	}

	var pushCfg channel.PushConfig
	config.MustLoad(&pushCfg)
	if push, err := channel.NewPushAdapter(pushCfg); err == nil {
		worker.RegisterAdapter(push)
	} else {
		log.Warn("push gateway not configured, using dev adapter", logger.Error(err))
		worker.RegisterAdapter(channel.NewDevAdapter(template.ChannelPush, log))
	}

	var webhookCfg channel.WebhookConfig
	config.MustLoad(&webhookCfg)
	worker.RegisterAdapter(channel.NewWebhookAdapter(webhookCfg))

	if inApp, err := channel.NewInAppAdapter(inboxStore); err == nil {
		worker.RegisterAdapter(inApp)
	}
}

// withHealthRoutes mounts liveness and readiness probes beside the API.
func withHealthRoutes(ctx context.Context, apiHandler http.Handler, log *slog.Logger, readiness []func(context.Context) error) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/healthz", httpserver.HealthCheckHandler(ctx, log))
	mux.Handle("/readyz", httpserver.HealthCheckHandler(ctx, log, readiness...))
	mux.Handle("/", apiHandler)
	return mux
}
