// Package logging builds the logrus logger shared by the CLI and the daemon.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	ComponentKey = "component"

	ComponentBackground = "BACKGROUND"
	ComponentScheduler  = "SCHEDULER"
	ComponentRefresh    = "REFRESH"
	ComponentProvider   = "PROVIDER"
	ComponentNotify     = "NOTIFY"
	ComponentDaemon     = "DAEMON"
)

type Config struct {
	Level  string
	Format string
	Output io.Writer
}

func New(cfg Config) (*logrus.Logger, error) {
	logger := logrus.New()

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	logger.SetOutput(output)

	level := strings.TrimSpace(cfg.Level)
	if level == "" {
		level = "info"
	}
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	logger.SetLevel(parsed)

	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("unsupported log format %q", cfg.Format)
	}

	return logger, nil
}

// Component returns an entry tagged with the given component name.
func Component(logger logrus.FieldLogger, name string) logrus.FieldLogger {
	if logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		logger = discard
	}
	return logger.WithField(ComponentKey, name)
}
