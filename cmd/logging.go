package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/lib-go-checkout/config"
)

func configureLogging(cfg *config.Config) error {
	level, err := logrus.ParseLevel(strings.TrimSpace(cfg.Log.Level))
	if err != nil {
		return fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.Log.Level, err)
	}
	logrus.SetLevel(level)
	logrus.SetOutput(os.Stdout)

	switch strings.ToLower(strings.TrimSpace(cfg.Log.Format)) {
	case "", "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	case "text":
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("invalid LOG_FORMAT %q", cfg.Log.Format)
	}
	return nil
}
