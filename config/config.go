package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	App      AppConfig
	HTTP     ServerConfig
	Log      LogConfig
	API      APIConfig
	Checkout CheckoutConfig
}

type AppConfig struct {
	ServiceName string
}

type ServerConfig struct {
	Host string
	Port string
}

type LogConfig struct {
	Level  string
	Format string
}

type APIConfig struct {
	BaseURL           string
	PublicKey         string
	LinkCode          string
	ClientName        string
	Timeout           time.Duration
	BreakerEnabled    bool
	BreakerFailures   uint32
	BreakerOpenPeriod time.Duration
}

type CheckoutConfig struct {
	SuccessDelay   time.Duration
	DefaultMethods []string
	DefaultCountry string
	IdleTimeout    time.Duration
	EvictInterval  time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	baseURL := strings.TrimRight(strings.TrimSpace(k.String("CHECKOUT_API_BASE_URL")), "/")
	if baseURL == "" {
		return nil, errors.New("CHECKOUT_API_BASE_URL environment variable is required")
	}

	return &Config{
		App: AppConfig{
			ServiceName: getString(k, "APP_SERVICE_NAME", "checkout-host"),
		},
		HTTP: ServerConfig{
			Host: getString(k, "HTTP_HOST", "0.0.0.0"),
			Port: getString(k, "HTTP_PORT", "8080"),
		},
		Log: LogConfig{
			Level:  getString(k, "LOG_LEVEL", "info"),
			Format: getString(k, "LOG_FORMAT", "json"),
		},
		API: APIConfig{
			BaseURL:           baseURL,
			PublicKey:         strings.TrimSpace(k.String("CHECKOUT_PUBLIC_KEY")),
			LinkCode:          strings.TrimSpace(k.String("CHECKOUT_LINK_CODE")),
			ClientName:        getString(k, "CHECKOUT_CLIENT_NAME", "lib-go-checkout"),
			Timeout:           getSeconds(k, "CHECKOUT_API_TIMEOUT_SECONDS", 30*time.Second),
			BreakerEnabled:    getBool(k, "CHECKOUT_BREAKER_ENABLED", false),
			BreakerFailures:   uint32(getInt(k, "CHECKOUT_BREAKER_FAILURES", 5)),
			BreakerOpenPeriod: getSeconds(k, "CHECKOUT_BREAKER_OPEN_SECONDS", 30*time.Second),
		},
		Checkout: CheckoutConfig{
			SuccessDelay:   getMillis(k, "CHECKOUT_SUCCESS_DELAY_MS", 2*time.Second),
			DefaultMethods: splitList(getString(k, "CHECKOUT_DEFAULT_METHODS", "card,mobile_money")),
			DefaultCountry: strings.ToUpper(strings.TrimSpace(k.String("CHECKOUT_DEFAULT_COUNTRY"))),
			IdleTimeout:    getSeconds(k, "CHECKOUT_SESSION_IDLE_SECONDS", 30*time.Minute),
			EvictInterval:  getSeconds(k, "CHECKOUT_EVICT_INTERVAL_SECONDS", time.Minute),
		},
	}, nil
}

func getString(k *koanf.Koanf, key, defaultValue string) string {
	if value := strings.TrimSpace(k.String(key)); value != "" {
		return value
	}
	return defaultValue
}

func getInt(k *koanf.Koanf, key string, defaultValue int) int {
	if value := strings.TrimSpace(k.String(key)); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}

func getBool(k *koanf.Koanf, key string, defaultValue bool) bool {
	if value := strings.TrimSpace(k.String(key)); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getSeconds(k *koanf.Koanf, key string, defaultValue time.Duration) time.Duration {
	if value := strings.TrimSpace(k.String(key)); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}

func getMillis(k *koanf.Koanf, key string, defaultValue time.Duration) time.Duration {
	if value := strings.TrimSpace(k.String(key)); value != "" {
		if ms, err := strconv.Atoi(value); err == nil && ms > 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
