// internal/infra/logger/logger.go
package logger

import (
	"os"
	"strings"

	"mentor_feedback_bot/internal/infra/config"

	"github.com/sirupsen/logrus"
)

// Log is the process-wide logger, configured once at startup via Init.
var Log = logrus.New()

// Init applies level and format from the application config. An invalid level
// falls back to info rather than failing startup.
func Init(cfg *config.AppConfig) {
	Log.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		Log.Warnf("Invalid log level '%s', defaulting to 'info'. Error: %v", cfg.LogLevel, err)
		level = logrus.InfoLevel
	}
	Log.SetLevel(level)

	switch strings.ToLower(cfg.Environment) {
	case "production", "staging":
		Log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00", // ISO8601
		})
	default:
		Log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
			ForceColors:     true,
		})
	}

	Log.WithFields(logrus.Fields{
		"level":       Log.GetLevel().String(),
		"environment": cfg.Environment,
	}).Info("Logger initialized")
}

// Get returns the configured logger for deriving contextual entries.
func Get() *logrus.Logger {
	return Log
}
