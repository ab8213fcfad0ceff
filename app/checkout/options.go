package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vibast-solutions/lib-go-checkout/app/api"
	"github.com/vibast-solutions/lib-go-checkout/app/metrics"
	"github.com/vibast-solutions/lib-go-checkout/app/provider"
	"github.com/vibast-solutions/lib-go-checkout/app/types"
)

const DefaultSuccessDelay = 2 * time.Second

var (
	ErrMissingAPI      = errors.New("checkout api client is required")
	ErrMissingLauncher = errors.New("checkout bridge launcher is required")
)

// API is the part of the backend client a session uses.
type API interface {
	CreatePaymentIntent(ctx context.Context, cfg types.CheckoutConfig, opts api.CreateOptions) (*api.IntentResponse, error)
	ConfirmPaymentIntent(ctx context.Context, id, clientSecret string) (*api.PaymentResponse, error)
	ConfirmPayment(ctx context.Context, id string) (*api.PaymentResponse, error)
	CancelPaymentIntent(ctx context.Context, id string) (*api.PaymentResponse, error)
	CreateProviderSession(ctx context.Context, provider, paymentID, clientSecret string) (*api.ProviderSession, error)
}

// Callbacks receive session outcomes. OnSuccess and OnError may both fire
// over a session's life (a retry after a failure), OnClose fires once.
type Callbacks struct {
	OnSuccess     func(*types.PaymentResult)
	OnError       func(*types.PaymentError)
	OnClose       func()
	OnStateChange func(State)
}

type Options struct {
	ID        string
	API       API
	Registry  *provider.Registry
	Launcher  provider.Launcher
	Callbacks Callbacks

	// Intent starts the session from an intent the caller already created.
	Intent *types.PaymentIntent

	// Executor runs network and bridge effects. Defaults to one goroutine
	// per effect.
	Executor func(func())

	Logger  logrus.FieldLogger
	Metrics *metrics.Collector
}

func goExecutor(f func()) {
	go f()
}
