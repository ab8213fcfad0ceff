package cmd

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/vibast-solutions/lib-go-checkout/app/api"
	"github.com/vibast-solutions/lib-go-checkout/app/controller"
	"github.com/vibast-solutions/lib-go-checkout/app/factory"
	"github.com/vibast-solutions/lib-go-checkout/app/metrics"
	"github.com/vibast-solutions/lib-go-checkout/app/types"
	"github.com/vibast-solutions/lib-go-checkout/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the checkout HTTP host",
	Long:  "Start the Echo server that hosts checkout sessions for a browser front end.",
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) {
	cfg := mustLoadConfig()

	collector := metrics.NewCollector("checkout", prometheus.DefaultRegisterer)
	client := newAPIClient(cfg, collector)
	checkoutController := controller.NewCheckoutController(controller.CheckoutOptions{
		API: client,
		Defaults: controller.Defaults{
			Methods:      types.ParseMethods(cfg.Checkout.DefaultMethods),
			SuccessDelay: cfg.Checkout.SuccessDelay,
			Country:      cfg.Checkout.DefaultCountry,
		},
		Metrics:     collector,
		IdleTimeout: cfg.Checkout.IdleTimeout,
	})

	e := setupHTTPServer(checkoutController)

	evictCtx, stopEviction := context.WithCancel(context.Background())
	defer stopEviction()
	go runEviction(evictCtx, checkoutController, cfg.Checkout.EvictInterval)

	go func() {
		httpAddr := net.JoinHostPort(cfg.HTTP.Host, cfg.HTTP.Port)
		logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
		if err := e.Start(httpAddr); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stopEviction()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("HTTP shutdown error")
	}
	if n := checkoutController.CloseAll(); n > 0 {
		logrus.WithField("sessions", n).Info("Closed open checkout sessions")
	}

	logrus.Info("Server stopped")
}

func runEviction(ctx context.Context, checkoutController *controller.CheckoutController, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := checkoutController.EvictIdle(); n > 0 {
				logrus.WithField("sessions", n).Info("Evicted idle checkout sessions")
			}
		}
	}
}

func setupHTTPServer(checkoutController *controller.CheckoutController) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(ensureRequestID())
	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogRequestID: true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := logrus.Fields{
				"remote_ip":  v.RemoteIP,
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"latency_ns": v.Latency.Nanoseconds(),
				"user_agent": v.UserAgent,
				"request_id": v.RequestID,
			}
			entry := logrus.WithFields(fields)
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("http_request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())

	e.GET("/health", checkoutController.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	sessions := e.Group("/sessions")
	sessions.POST("", checkoutController.CreateSession)
	sessions.GET("/:id", checkoutController.GetSession)
	sessions.POST("/:id/provider", checkoutController.SelectProvider)
	sessions.POST("/:id/method", checkoutController.SelectMethod)
	sessions.POST("/:id/phone", checkoutController.SubmitPhone)
	sessions.POST("/:id/continue", checkoutController.Continue)
	sessions.POST("/:id/retry", checkoutController.Retry)
	sessions.POST("/:id/reset", checkoutController.Reset)
	sessions.POST("/:id/back", checkoutController.Back)
	sessions.POST("/:id/close", checkoutController.Close)

	bridge := sessions.Group("/:id/bridge")
	bridge.POST("/success", checkoutController.BridgeSuccess)
	bridge.POST("/error", checkoutController.BridgeError)
	bridge.POST("/close", checkoutController.BridgeClose)

	return e
}

// ensureRequestID keeps the caller's X-Request-ID or mints one.
func ensureRequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			requestID := strings.TrimSpace(ctx.Request().Header.Get(echo.HeaderXRequestID))
			if requestID == "" {
				requestID = uuid.NewString()
				ctx.Request().Header.Set(echo.HeaderXRequestID, requestID)
			}
			ctx.Response().Header().Set(echo.HeaderXRequestID, requestID)
			return next(ctx)
		}
	}
}

func mustLoadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}
	return cfg
}

func newAPIClient(cfg *config.Config, collector *metrics.Collector) *api.Client {
	return api.NewClient(api.Config{
		BaseURL:    cfg.API.BaseURL,
		PublicKey:  cfg.API.PublicKey,
		LinkCode:   cfg.API.LinkCode,
		ClientName: cfg.API.ClientName,
		Timeout:    cfg.API.Timeout,
		Breaker: api.BreakerConfig{
			Enabled:             cfg.API.BreakerEnabled,
			ConsecutiveFailures: cfg.API.BreakerFailures,
			OpenFor:             cfg.API.BreakerOpenPeriod,
		},
		Logger:  factory.NewModuleLogger("checkout-api"),
		Metrics: collector,
	})
}
