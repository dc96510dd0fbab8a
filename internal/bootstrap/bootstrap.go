package bootstrap

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	bolt "go.etcd.io/bbolt"

	cataloginadapter "mentorpay/internal/modules/catalog/adapter/in"
	catalogusecase "mentorpay/internal/modules/catalog/usecase"
	sessioninadapter "mentorpay/internal/modules/session/adapter/in"
	sessionoutadapter "mentorpay/internal/modules/session/adapter/out"
	"mentorpay/internal/modules/session/domain"
	sessionservice "mentorpay/internal/modules/session/service"
	sessionusecase "mentorpay/internal/modules/session/usecase"
	settlementinadapter "mentorpay/internal/modules/settlement/adapter/in"
	settlementoutadapter "mentorpay/internal/modules/settlement/adapter/out"
	settlementin "mentorpay/internal/modules/settlement/port/in"
	settlementservice "mentorpay/internal/modules/settlement/service"
	settlementusecase "mentorpay/internal/modules/settlement/usecase"
	"mentorpay/internal/platform/clock"
	"mentorpay/internal/platform/config"
	"mentorpay/internal/platform/id"
	"mentorpay/internal/platform/kv"
	"mentorpay/internal/platform/logging"
)

type App struct {
	Config        config.Config
	Logger        *slog.Logger
	SessionCLI    sessioninadapter.CLIHandler
	SessionHTTP   *sessioninadapter.HTTPHandler
	Scheduler     *sessioninadapter.Scheduler
	SettlementCLI settlementinadapter.CLIHandler
	CatalogCLI    cataloginadapter.CLIHandler

	closers []io.Closer
}

func New(cfg config.Config) (*App, error) {
	logger, logCloser, err := logging.New(logging.Options{Level: cfg.Log.Level, File: cfg.Log.File})
	if err != nil {
		return nil, fmt.Errorf("new logger: %w", err)
	}
	app := &App{Config: cfg, Logger: logger, closers: []io.Closer{logCloser}}

	policy, err := enginePolicy(cfg.Engine)
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	db, err := kv.Open(cfg.StatePath, sessionoutadapter.SessionsBucket, settlementoutadapter.LedgerBucket)
	if err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("open state store: %w", err)
	}
	app.closers = append(app.closers, db)

	clk := clock.SystemClock{}
	ids := id.UUID{}

	catalogUC := catalogusecase.NewInteractor()

	settlementUC, err := newSettlement(cfg, db, clk, ids, logger)
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	states, err := sessionoutadapter.NewBoltStateStore(db)
	if err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("new session state store: %w", err)
	}
	confirmations, err := sessionoutadapter.NewSQLiteConfirmationStore(cfg.DBPath)
	if err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("new confirmation store: %w", err)
	}
	app.closers = append(app.closers, confirmations)

	bridge := sessionoutadapter.NewSettlementAdapter(settlementUC)
	engineSvc := sessionservice.NewEngineService(
		clk,
		ids,
		policy,
		bridge,
		bridge,
		sessionoutadapter.NewSlogSecuritySink(logger),
		sessionservice.RetryPolicy{Attempts: cfg.Settlement.RetryAttempts, Backoff: cfg.Settlement.RetryBackoff},
		logger,
	)
	sessionUC := sessionusecase.NewInteractor(engineSvc, sessionusecase.Stores{
		States:        states,
		Confirmations: confirmations,
		Reports:       sessionoutadapter.NewMarkdownReportStore(cfg.ReportsDir),
		Tokens:        sessionoutadapter.NewCatalogTokenAdapter(catalogUC),
		Feed:          sessionoutadapter.NewMemoryFeed(),
	}, logger)

	app.SessionCLI = sessioninadapter.NewCLIHandler(sessionUC)
	app.SessionHTTP = sessioninadapter.NewHTTPHandler(sessionUC, logger)
	app.Scheduler = sessioninadapter.NewScheduler(sessionUC, cfg.Scheduler.TickInterval, logger)
	app.SettlementCLI = settlementinadapter.NewCLIHandler(settlementUC)
	app.CatalogCLI = cataloginadapter.NewCLIHandler(catalogUC)
	return app, nil
}

func newSettlement(cfg config.Config, db *bolt.DB, clk clock.Clock, ids id.Generator, logger *slog.Logger) (settlementin.Usecase, error) {
	ledger, err := settlementoutadapter.NewBoltLedger(db)
	if err != nil {
		return nil, fmt.Errorf("new settlement ledger: %w", err)
	}
	var pluginLog io.Writer
	if strings.EqualFold(cfg.Log.Level, "debug") {
		pluginLog = os.Stderr
	}
	svc := settlementservice.NewSettlementService(
		settlementoutadapter.NewFileManifestStore(cfg.ManifestPath),
		settlementoutadapter.NewGRPCHost(pluginLog, cfg.Log.Level),
		ledger,
		clk,
		ids,
		logger.With("module", "settlement"),
	)
	return settlementusecase.NewInteractor(svc), nil
}

func enginePolicy(cfg config.Engine) (domain.Policy, error) {
	policy := domain.DefaultPolicy()
	if strings.TrimSpace(cfg.PlatformFee) != "" {
		fee, err := decimal.NewFromString(strings.TrimSpace(cfg.PlatformFee))
		if err != nil {
			return domain.Policy{}, fmt.Errorf("parse platform fee %q: %w", cfg.PlatformFee, err)
		}
		policy.PlatformFee = fee
	}
	if cfg.GracePeriod > 0 {
		policy.GracePeriod = cfg.GracePeriod
	}
	if cfg.HeartbeatCooldown > 0 {
		policy.HeartbeatCooldown = cfg.HeartbeatCooldown
	}
	if cfg.EntryTimeout > 0 {
		policy.EntryTimeout = cfg.EntryTimeout
	}
	if cfg.RecoveryWindow > 0 {
		policy.RecoveryWindow = cfg.RecoveryWindow
	}
	if cfg.MaxSessionDuration > 0 {
		policy.MaxSessionDuration = cfg.MaxSessionDuration
	}
	if err := policy.Validate(); err != nil {
		return domain.Policy{}, fmt.Errorf("engine policy: %w", err)
	}
	return policy, nil
}

// Close releases stores and the log file in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if a.closers[i] == nil {
			continue
		}
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
