package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/vibast-solutions/lib-go-checkout/app/factory"
	"github.com/vibast-solutions/lib-go-checkout/app/metrics"
	"github.com/vibast-solutions/lib-go-checkout/app/types"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultClientName = "lib-go-checkout"
	ClientVersion     = "1.0.0"
	maxResponseBytes  = 1 << 20
)

type BreakerConfig struct {
	Enabled             bool
	ConsecutiveFailures uint32
	OpenFor             time.Duration
}

type Config struct {
	BaseURL    string
	PublicKey  string
	LinkCode   string
	ClientName string
	Timeout    time.Duration
	Breaker    BreakerConfig

	HTTPClient *http.Client
	Logger     logrus.FieldLogger
	Metrics    *metrics.Collector
	Now        func() time.Time
}

// Client talks to the backend payment API. It holds configuration only and
// is safe for concurrent use.
type Client struct {
	baseURL    string
	publicKey  string
	linkCode   string
	clientName string
	timeout    time.Duration

	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  logrus.FieldLogger
	metrics *metrics.Collector
	now     func() time.Time
}

var errUpstreamStatus = errors.New("upstream returned server error")

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	name := strings.TrimSpace(cfg.ClientName)
	if name == "" {
		name = defaultClientName
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = factory.NewModuleLogger("checkout-api")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	c := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		publicKey:  strings.TrimSpace(cfg.PublicKey),
		linkCode:   strings.TrimSpace(cfg.LinkCode),
		clientName: name,
		timeout:    timeout,
		http:       httpClient,
		logger:     logger,
		metrics:    cfg.Metrics,
		now:        now,
	}
	if cfg.Breaker.Enabled {
		c.breaker = newBreaker(cfg.Breaker, logger)
	}
	return c
}

func newBreaker(cfg BreakerConfig, logger logrus.FieldLogger) *gobreaker.CircuitBreaker {
	failures := cfg.ConsecutiveFailures
	if failures == 0 {
		failures = 5
	}
	openFor := cfg.OpenFor
	if openFor <= 0 {
		openFor = 30 * time.Second
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "checkout-api",
		MaxRequests: 1,
		Timeout:     openFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("circuit breaker state changed")
		},
	})
}

func (c *Client) PublicKey() string {
	return c.publicKey
}

func (c *Client) CreatePaymentIntent(ctx context.Context, cfg types.CheckoutConfig, opts CreateOptions) (*IntentResponse, error) {
	method := string(opts.Method)
	if method == "" && len(cfg.Methods) > 0 {
		method = string(cfg.Methods[0])
	}
	country := ResolveCountry(firstNonEmpty(opts.Country, cfg.Country), cfg.Currency)

	preferred := cfg.PreferredProvider
	if opts.Policy != nil && opts.Policy.Prefer != "" {
		preferred = opts.Policy.Prefer
	}
	key := IdempotencyKey(IdempotencyFields{
		Amount:     cfg.Amount,
		Currency:   cfg.Currency,
		CustomerID: cfg.Customer.ID,
		Reference:  cfg.Reference,
		Method:     method,
		Provider:   preferred,
		Credential: c.publicKey,
		CallerKey:  cfg.IdempotencyKey,
	}, c.now())

	var body any
	path := "/v1/payments/intents"
	if c.linkCode != "" {
		path = "/v1/pay/" + url.PathEscape(c.linkCode) + "/pay"
		body = payLinkRequest{
			Amount:       cfg.Amount,
			Email:        cfg.Customer.Email,
			Name:         cfg.Customer.Name,
			Phone:        cfg.Customer.Phone,
			Method:       method,
			Country:      country,
			Provider:     preferred,
			CustomFields: nonNilFields(cfg.CustomFields),
		}
	} else {
		body = createIntentRequest{
			Amount:     cfg.Amount,
			Currency:   cfg.Currency,
			Method:     string(opts.Method),
			Country:    country,
			CustomerID: cfg.Customer.ID,
			Reference:  cfg.Reference,
			Phone:      cfg.Customer.Phone,
			Metadata:   cfg.Metadata,
			Policy:     opts.Policy,
		}
	}

	out := &IntentResponse{}
	if err := c.do(ctx, "create_intent", http.MethodPost, path, body, key, false, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetPayment(ctx context.Context, id string) (*PaymentResponse, error) {
	out := &PaymentResponse{}
	if err := c.do(ctx, "get_payment", http.MethodGet, "/v1/payments/"+url.PathEscape(id), nil, "", true, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ConfirmPaymentIntent is the public confirmation path, bound to the intent
// by its client secret.
func (c *Client) ConfirmPaymentIntent(ctx context.Context, id, clientSecret string) (*PaymentResponse, error) {
	path := "/v1/payments/" + url.PathEscape(id) + "/confirm-intent?client_secret=" + url.QueryEscape(clientSecret)
	out := &PaymentResponse{}
	if err := c.do(ctx, "confirm_intent", http.MethodPost, path, nil, "", false, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ConfirmPayment(ctx context.Context, id string) (*PaymentResponse, error) {
	out := &PaymentResponse{}
	if err := c.do(ctx, "confirm", http.MethodPost, "/v1/payments/"+url.PathEscape(id)+"/confirm", nil, "", true, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CancelPaymentIntent(ctx context.Context, id string) (*PaymentResponse, error) {
	out := &PaymentResponse{}
	if err := c.do(ctx, "cancel", http.MethodPost, "/v1/payments/"+url.PathEscape(id)+"/cancel", nil, "", true, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateProviderSession(ctx context.Context, provider, paymentID, clientSecret string) (*ProviderSession, error) {
	path := "/v1/payments/" + url.PathEscape(strings.ToLower(strings.TrimSpace(provider))) + "/sessions/" + url.PathEscape(paymentID)
	if clientSecret != "" {
		path += "?client_secret=" + url.QueryEscape(clientSecret)
	}
	out := &ProviderSession{}
	if err := c.do(ctx, "provider_session", http.MethodPost, path, nil, "", clientSecret == "", out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, operation, method, path string, body any, idempotencyKey string, authenticated bool, out any) error {
	start := time.Now()
	perr := c.execute(ctx, method, path, body, idempotencyKey, authenticated, out)
	c.metrics.ObserveAPI(operation, outcomeOf(perr), time.Since(start))
	if perr != nil {
		c.logger.WithFields(logrus.Fields{
			"operation": operation,
			"code":      perr.Code,
		}).Debug("backend call failed")
		return perr
	}
	return nil
}

func (c *Client) execute(ctx context.Context, method, path string, body any, idempotencyKey string, authenticated bool, out any) *types.PaymentError {
	if ctx == nil {
		ctx = context.Background()
	}

	var payload []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return types.NewValidationError(fmt.Sprintf("encode request: %v", err))
		}
		payload = encoded
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(callCtx, method, c.baseURL+path, reader)
	if err != nil {
		return types.NewPaymentError(types.ErrCodeNetwork, "Invalid payment service address", true)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Client-Name", c.clientName)
	req.Header.Set("X-Client-Version", ClientVersion)
	if c.publicKey != "" {
		req.Header.Set("X-Public-Key", c.publicKey)
		if authenticated {
			req.Header.Set("Authorization", "Bearer "+c.publicKey)
		}
	}
	if isMutating(method) {
		if idempotencyKey == "" {
			idempotencyKey = requestIdempotencyKey(method, path, payload, c.now())
		}
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.send(req)
	if err != nil {
		return classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return classifyTransportError(ctx, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return httpError(resp.StatusCode, raw)
	}

	decodeEnvelope(raw, out)
	return nil
}

// send runs the round trip through the breaker when one is configured.
// Server errors still return the response so the caller can parse it.
func (c *Client) send(req *http.Request) (*http.Response, error) {
	if c.breaker == nil {
		return c.http.Do(req)
	}

	var resp *http.Response
	_, err := c.breaker.Execute(func() (interface{}, error) {
		r, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		resp = r
		if r.StatusCode >= http.StatusInternalServerError {
			return nil, errUpstreamStatus
		}
		return nil, nil
	})
	if resp != nil {
		return resp, nil
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, errCircuitOpen
	}
	return nil, err
}

func isMutating(method string) bool {
	return method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func nonNilFields(fields map[string]string) map[string]string {
	if fields == nil {
		return map[string]string{}
	}
	return fields
}
