package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/oliveiraaldo/finsplit/internal/accounts"
	"github.com/oliveiraaldo/finsplit/internal/billing"
	"github.com/oliveiraaldo/finsplit/internal/channel"
	"github.com/oliveiraaldo/finsplit/internal/config"
	"github.com/oliveiraaldo/finsplit/internal/conversation"
	"github.com/oliveiraaldo/finsplit/internal/db"
	"github.com/oliveiraaldo/finsplit/internal/expense"
	"github.com/oliveiraaldo/finsplit/internal/extraction"
	"github.com/oliveiraaldo/finsplit/internal/groups"
	"github.com/oliveiraaldo/finsplit/internal/handlers"
	"github.com/oliveiraaldo/finsplit/internal/intake"
	"github.com/oliveiraaldo/finsplit/internal/logger"
	"github.com/oliveiraaldo/finsplit/internal/media"
	"github.com/oliveiraaldo/finsplit/internal/server"
)

func runServe() {
	fx.New(
		fx.Provide(
			provideConfig,
			provideLogger,
			provideDBConn,
			groups.NewService,
			provideMeter,
			providePolicy,
			provideExpenseService,
			provideAccountService,
			provideChannelClient,
			provideMediaFetcher,
			provideExtractor,
			provideInterpreter,
			provideIntakeService,
			provideServerHandler(handlers.NewPingHandler),
			provideServerHandler(provideWebhookHandler),
			provideServer,
		),
		fx.Invoke(
			startServer,
		),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
		}),
	).Run()
}

func provideServerHandler(fn any) any {
	return fx.Annotate(
		fn,
		fx.As(new(server.Handler)),
		fx.ResultTags(`group:"server_handlers"`),
	)
}

func provideConfig() (config.Config, error) {
	cfgPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

func provideDBConn(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.Postgres); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	conn, err := db.Open(context.Background(), cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	lc.Append(fx.Hook{OnStop: func(ctx context.Context) error { conn.Close(); return nil }})
	return conn, nil
}

func provideMeter(log *slog.Logger) *billing.Meter {
	return billing.NewMeter(log)
}

func providePolicy(log *slog.Logger, cfg config.Config) billing.Policy {
	return billing.NewPolicy(log, cfg.Billing.EnforceChannelEnabled, cfg.Billing.EnforceCredits)
}

func provideExpenseService(log *slog.Logger, conn *pgxpool.Pool, groupService *groups.Service, meter *billing.Meter) *expense.Service {
	return expense.NewService(log, conn, groupService, meter)
}

func provideAccountService(log *slog.Logger, conn *pgxpool.Pool) *accounts.Service {
	return accounts.NewService(log, conn)
}

func provideChannelClient(log *slog.Logger, cfg config.Config) *channel.Client {
	return channel.NewClient(log, cfg.WhatsApp)
}

func provideMediaFetcher(log *slog.Logger, client *channel.Client) *media.Fetcher {
	username, password := client.Credentials()
	return media.NewFetcher(log, username, password)
}

func provideExtractor(log *slog.Logger, cfg config.Config) extraction.Extractor {
	vision := extraction.NewVisionExtractor(log, cfg.Extractor)
	return extraction.NewFallback(log, vision, extraction.NewSyntheticExtractor())
}

func provideInterpreter(log *slog.Logger, expenseService *expense.Service, cfg config.Config) *conversation.Interpreter {
	return conversation.NewInterpreter(log, expenseService, cfg.Billing.DashboardBaseURL)
}

func provideIntakeService(
	log *slog.Logger,
	accountService *accounts.Service,
	fetcher *media.Fetcher,
	extractor extraction.Extractor,
	expenseService *expense.Service,
	interpreter *conversation.Interpreter,
	client *channel.Client,
	policy billing.Policy,
	cfg config.Config,
) *intake.Service {
	return intake.NewService(
		log,
		accountService,
		fetcher,
		extractor,
		expenseService,
		interpreter,
		client,
		policy,
		cfg.Billing.DashboardBaseURL+"/signup",
	)
}

func provideWebhookHandler(log *slog.Logger, intakeService *intake.Service) *handlers.WebhookHandler {
	return handlers.NewWebhookHandler(log, intakeService)
}

type serverParams struct {
	fx.In
	Logger         *slog.Logger
	Config         config.Config
	ServerHandlers []server.Handler `group:"server_handlers"`
}

func provideServer(params serverParams) *server.Server {
	return server.New(params.Logger, params.Config.Server.Addr, params.ServerHandlers)
}

func startServer(lc fx.Lifecycle, log *slog.Logger, srv *server.Server, shutdowner fx.Shutdowner) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Stop(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server stop: %w", err)
			}
			return nil
		},
	})
}
