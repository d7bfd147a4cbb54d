package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	promrecorder "github.com/bnema/schoolsync/internal/adapters/metrics/prometheus"
	"github.com/bnema/schoolsync/internal/adapters/notify/desktop"
	"github.com/bnema/schoolsync/internal/adapters/notify/fallback"
	"github.com/bnema/schoolsync/internal/adapters/notify/terminal"
	"github.com/bnema/schoolsync/internal/adapters/providers/ecole42"
	statusadapter "github.com/bnema/schoolsync/internal/adapters/render/status"
	tomlrepo "github.com/bnema/schoolsync/internal/adapters/repo/toml"
	cronscheduler "github.com/bnema/schoolsync/internal/adapters/scheduler/cron"
	chainstore "github.com/bnema/schoolsync/internal/adapters/secrets/chain"
	filestore "github.com/bnema/schoolsync/internal/adapters/secrets/file"
	passstore "github.com/bnema/schoolsync/internal/adapters/secrets/pass"
	"github.com/bnema/schoolsync/internal/adapters/storage/sqlite"
	"github.com/bnema/schoolsync/internal/application"
	"github.com/bnema/schoolsync/internal/domain"
	"github.com/bnema/schoolsync/internal/logging"
	"github.com/bnema/schoolsync/internal/ports"
)

const appName = "schoolsync"

type app struct {
	cfg           *viper.Viper
	log           *logrus.Logger
	service       *application.Service
	sessions      *application.SessionService
	flags         ports.FlagStore
	background    *application.BackgroundTasks
	registrar     *application.BackgroundRegistrar
	scheduler     *cronscheduler.Scheduler
	registrations ports.RegistrationStore
	runs          ports.RunHistory
	resolver      *ecole42.Resolver
	metrics       *promrecorder.Recorder
	store         *sqlite.Store

	statusRenderer func([]application.Status, statusadapter.RenderOptions) (string, error)
	runsRenderer   func([]domain.RunRecord, statusadapter.RenderOptions) (string, error)
	browserLogin   browserLoginConfig
	now            func() time.Time
}

type browserLoginConfig struct {
	AuthURL      string
	ClientID     string
	ClientSecret string
	ListenAddr   string
	Timeout      time.Duration
}

func wireApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(logging.Config{
		Level:  cfg.GetString(keyLogLevel),
		Format: cfg.GetString(keyLogFormat),
	})
	if err != nil {
		return nil, fmt.Errorf("wire logger: %w", err)
	}

	repo, err := tomlrepo.NewRepository(cfg)
	if err != nil {
		return nil, fmt.Errorf("wire account repository: %w", err)
	}
	runtimeRepo, err := tomlrepo.NewRuntimeRepository(cfg)
	if err != nil {
		return nil, fmt.Errorf("wire runtime repository: %w", err)
	}
	flags, err := tomlrepo.NewFlagRepository(cfg)
	if err != nil {
		return nil, fmt.Errorf("wire flag repository: %w", err)
	}

	secretStore, err := wireSecretStore(cfg)
	if err != nil {
		return nil, err
	}

	notifier, err := wireNotifier(cfg)
	if err != nil {
		return nil, err
	}

	store, err := sqlite.NewStore(cfg.GetString(keyDataDir))
	if err != nil {
		return nil, fmt.Errorf("wire sqlite store: %w", err)
	}

	metrics := promrecorder.NewRecorder()
	clock := ports.SystemClock{}

	resolver := ecole42.NewResolver(ecole42.Config{
		BaseURL:      cfg.GetString(keyEcole42BaseURL),
		AuthURL:      cfg.GetString(keyEcole42AuthURL),
		ClientID:     cfg.GetString(keyEcole42ClientID),
		ClientSecret: cfg.GetString(keyEcole42Secret),
	}, secretStore, logger)

	refresher := application.NewRefresher(resolver, store.Snapshots(), notifier, logger)
	sessions := application.NewSessionService(runtimeRepo, clock)

	background := application.NewBackgroundTasks(application.BackgroundDeps{
		Accounts: repo,
		Sessions: sessions,
		Flags:    flags,
		Notifier: notifier,
		Steps:    refresher.Steps(),
		Debug:    cfg.GetBool(keyDebug),
		Logger:   logger,
		Metrics:  metrics,
		Clock:    clock,
	})

	scheduler := cronscheduler.New(store.Registrations(), store.Runs(), logger,
		cronscheduler.WithKeepRuns(cfg.GetInt(keySchedulerKeepRuns)),
		cronscheduler.WithLeases(store.Leases()),
	)
	scheduler.Define(domain.BackgroundFetchTaskName, background.Run)

	options := domain.DefaultTaskOptions()
	options.MinimumInterval = cfg.GetDuration(keyMinimumInterval)
	registrar := application.NewBackgroundRegistrar(scheduler, flags, options, logger)

	return &app{
		cfg:           cfg,
		log:           logger,
		service:       application.NewService(repo, secretStore, clock, application.WithSessions(runtimeRepo), application.WithSnapshots(store.Snapshots())),
		sessions:      sessions,
		flags:         flags,
		background:    background,
		registrar:     registrar,
		scheduler:     scheduler,
		registrations: store.Registrations(),
		runs:          store.Runs(),
		resolver:      resolver,
		metrics:       metrics,
		store:         store,

		statusRenderer: statusadapter.Render,
		runsRenderer:   statusadapter.RenderRuns,
		browserLogin: browserLoginConfig{
			AuthURL:      cfg.GetString(keyEcole42AuthURL),
			ClientID:     cfg.GetString(keyEcole42ClientID),
			ClientSecret: cfg.GetString(keyEcole42Secret),
			ListenAddr:   cfg.GetString(keyLoginListen),
			Timeout:      cfg.GetDuration(keyLoginTimeout),
		},
		now: time.Now,
	}, nil
}

func (a *app) close() {
	if a.store == nil {
		return
	}
	if err := a.store.Close(); err != nil {
		a.log.WithError(err).Warn("Failed to close database")
	}
}

func wireSecretStore(cfg *viper.Viper) (ports.SecretStore, error) {
	root := cfg.GetString(keySecretsDir)

	switch backend := strings.ToLower(strings.TrimSpace(cfg.GetString(keySecretsBackend))); backend {
	case "", "auto":
		store, err := chainstore.NewPassFirstWithFileFallback(passstore.DefaultPrefix, root)
		if err != nil {
			return nil, fmt.Errorf("wire secret store chain: %w", err)
		}
		return store, nil
	case "pass":
		return passstore.NewStore(passstore.DefaultPrefix), nil
	case "file":
		return filestore.NewStore(root), nil
	default:
		return nil, fmt.Errorf("unsupported secrets backend %q", backend)
	}
}

func wireNotifier(cfg *viper.Viper) (ports.Notifier, error) {
	switch backend := strings.ToLower(strings.TrimSpace(cfg.GetString(keyNotifyBackend))); backend {
	case "", "auto":
		notifier, err := fallback.New(desktop.New(appName), terminal.New(os.Stderr, nil))
		if err != nil {
			return nil, fmt.Errorf("wire notifier: %w", err)
		}
		return notifier, nil
	case "desktop":
		return desktop.New(appName), nil
	case "terminal":
		return terminal.New(os.Stderr, nil), nil
	default:
		return nil, fmt.Errorf("unsupported notify backend %q", backend)
	}
}
