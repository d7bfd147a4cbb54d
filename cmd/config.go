package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	tomlrepo "github.com/bnema/schoolsync/internal/adapters/repo/toml"
	"github.com/bnema/schoolsync/internal/domain"
)

const (
	envPrefix      = "SCHOOLSYNC"
	configFileName = "config.toml"
	dotEnvFile     = ".env"
)

const (
	keyDataDir           = "data.dir"
	keySecretsDir        = "secrets.dir"
	keySecretsBackend    = "secrets.backend"
	keyLogLevel          = "log.level"
	keyLogFormat         = "log.format"
	keyDebug             = "debug"
	keyMinimumInterval   = "background.minimum_interval"
	keyEcole42BaseURL    = "ecole42.base_url"
	keyEcole42AuthURL    = "ecole42.auth_url"
	keyEcole42ClientID   = "ecole42.client_id"
	keyEcole42Secret     = "ecole42.client_secret"
	keyLoginListen       = "login.listen"
	keyLoginTimeout      = "login.timeout"
	keyNotifyBackend     = "notify.backend"
	keyStatusStaleAfter  = "status.stale_after"
	keySchedulerKeepRuns = "scheduler.keep_runs"
	keyDaemonMetricsAddr = "daemon.metrics_addr"
)

// loadConfig reads .env from the working directory, then
// ~/.schoolsync/config.toml, then SCHOOLSYNC_* environment variables.
func loadConfig() (*viper.Viper, error) {
	if _, err := os.Stat(dotEnvFile); err == nil {
		if err := godotenv.Load(dotEnvFile); err != nil {
			return nil, fmt.Errorf("load %s: %w", dotEnvFile, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("stat %s: %w", dotEnvFile, err)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}
	baseDir := filepath.Join(homeDir, tomlrepo.ConfigDir)

	cfg := viper.New()
	cfg.SetDefault(keyDataDir, filepath.Join(baseDir, "data"))
	cfg.SetDefault(keySecretsDir, filepath.Join(baseDir, "secrets"))
	cfg.SetDefault(keySecretsBackend, "auto")
	cfg.SetDefault(keyLogLevel, "info")
	cfg.SetDefault(keyLogFormat, "text")
	cfg.SetDefault(keyDebug, false)
	cfg.SetDefault(keyMinimumInterval, domain.DefaultMinimumInterval)
	cfg.SetDefault(keyEcole42AuthURL, "")
	cfg.SetDefault(keyEcole42BaseURL, "")
	cfg.SetDefault(keyEcole42ClientID, "")
	cfg.SetDefault(keyEcole42Secret, "")
	cfg.SetDefault(keyLoginListen, "127.0.0.1:4242")
	cfg.SetDefault(keyLoginTimeout, 5*time.Minute)
	cfg.SetDefault(keyNotifyBackend, "auto")
	cfg.SetDefault(keyStatusStaleAfter, 6*time.Hour)
	cfg.SetDefault(keySchedulerKeepRuns, 100)
	cfg.SetDefault(keyDaemonMetricsAddr, "")

	cfg.SetEnvPrefix(envPrefix)
	cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	cfg.AutomaticEnv()

	cfg.SetConfigFile(filepath.Join(baseDir, configFileName))
	cfg.SetConfigType("toml")
	if err := cfg.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read %s: %w", configFileName, err)
		}
	}

	return cfg, nil
}
