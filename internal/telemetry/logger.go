package telemetry

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// LoggerConfig selects the process logger's level and output format.
type LoggerConfig struct {
	Level  string
	Format string
	Output io.Writer
}

// LoggerConfigFromEnv reads LOG_LEVEL and LOG_FORMAT.
func LoggerConfigFromEnv() LoggerConfig {
	return LoggerConfig{
		Level:  os.Getenv("LOG_LEVEL"),
		Format: os.Getenv("LOG_FORMAT"),
	}
}

// NewLogrus builds the process logger. Unknown levels fall back to info and
// any format other than "json" renders text.
func NewLogrus(cfg LoggerConfig) *logrus.Logger {
	logger := logrus.New()
	if cfg.Output != nil {
		logger.SetOutput(cfg.Output)
	} else {
		logger.SetOutput(os.Stdout)
	}

	level, err := logrus.ParseLevel(strings.TrimSpace(cfg.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if strings.EqualFold(strings.TrimSpace(cfg.Format), "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   cfg.Output == nil,
		})
	}
	return logger
}

// Component scopes a logger to one subsystem.
func Component(base logrus.FieldLogger, name string) Logger {
	if base == nil {
		return Discard
	}
	return base.WithField("component", name)
}
