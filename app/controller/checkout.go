package controller

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/vibast-solutions/lib-go-checkout/app/checkout"
	"github.com/vibast-solutions/lib-go-checkout/app/factory"
	"github.com/vibast-solutions/lib-go-checkout/app/metrics"
	"github.com/vibast-solutions/lib-go-checkout/app/provider"
	"github.com/vibast-solutions/lib-go-checkout/app/shell"
	"github.com/vibast-solutions/lib-go-checkout/app/types"
)

// Defaults fill the parts of a session request the caller left out.
type Defaults struct {
	Methods      []types.Method
	SuccessDelay time.Duration
	Country      string
}

const defaultIdleTimeout = 30 * time.Minute

type CheckoutOptions struct {
	API      checkout.API
	Registry *provider.Registry
	Defaults Defaults
	Metrics  *metrics.Collector

	// IdleTimeout is how long a session may go without a request before
	// EvictIdle closes it. Zero means 30 minutes.
	IdleTimeout time.Duration

	// Executor runs session effects. Defaults to running them inside the
	// request that triggered them, so every response carries settled state.
	Executor func(func())
}

type CheckoutController struct {
	api      checkout.API
	registry *provider.Registry
	defaults Defaults
	metrics  *metrics.Collector
	execute  func(func())
	store    *sessionStore
	logger   logrus.FieldLogger

	idleTimeout time.Duration
	now         func() time.Time
}

type PendingBridge struct {
	Input      *provider.BridgeInput `json:"input"`
	LaunchedAt time.Time             `json:"launched_at"`
}

type SessionResponse struct {
	ID     string         `json:"id"`
	View   shell.View     `json:"view"`
	Bridge *PendingBridge `json:"bridge,omitempty"`
}

func NewCheckoutController(opts CheckoutOptions) *CheckoutController {
	registry := opts.Registry
	if registry == nil {
		registry = provider.DefaultRegistry()
	}
	execute := opts.Executor
	if execute == nil {
		execute = func(f func()) { f() }
	}
	idleTimeout := opts.IdleTimeout
	if idleTimeout <= 0 {
		idleTimeout = defaultIdleTimeout
	}
	return &CheckoutController{
		api:         opts.API,
		registry:    registry,
		defaults:    opts.Defaults,
		metrics:     opts.Metrics,
		execute:     execute,
		store:       newSessionStore(),
		logger:      factory.NewModuleLogger("checkout-controller"),
		idleTimeout: idleTimeout,
		now:         time.Now,
	}
}

func (c *CheckoutController) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, &types.HealthResponse{Status: "ok"})
}

func (c *CheckoutController) CreateSession(ctx echo.Context) error {
	req, err := types.NewCreateSessionRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}

	cfg := req.CheckoutConfig
	c.applyDefaults(&cfg)

	id := uuid.NewString()
	logger := factory.LoggerWithSession(factory.LoggerWithContext(c.logger, ctx), id)
	launcher := NewRemoteLauncher()
	session, err := checkout.NewSession(cfg, checkout.Options{
		ID:       id,
		API:      c.api,
		Registry: c.registry,
		Launcher: launcher,
		Callbacks: checkout.Callbacks{
			OnSuccess: func(result *types.PaymentResult) {
				logger.WithField("payment_id", result.PaymentID).Info("Checkout succeeded")
			},
			OnError: func(perr *types.PaymentError) {
				logger.WithField("code", perr.Code).Info("Checkout failed")
			},
			OnClose: func() {
				launcher.Discard()
				c.store.delete(id)
			},
		},
		Executor: c.execute,
		Logger:   logger,
		Metrics:  c.metrics,
	})
	if err != nil {
		var perr *types.PaymentError
		if errors.As(err, &perr) {
			return c.writeError(ctx, http.StatusBadRequest, perr.Message)
		}
		logger.WithError(err).Error("Create session failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	hosted := &hostedSession{session: session, launcher: launcher}
	hosted.touch(c.now())
	c.store.put(id, hosted)
	session.Initialize()

	return ctx.JSON(http.StatusCreated, c.response(hosted))
}

func (c *CheckoutController) GetSession(ctx echo.Context) error {
	hosted, ok := c.lookup(ctx)
	if !ok {
		return c.writeError(ctx, http.StatusNotFound, "session not found")
	}
	return ctx.JSON(http.StatusOK, c.response(hosted))
}

func (c *CheckoutController) SelectProvider(ctx echo.Context) error {
	hosted, ok := c.lookup(ctx)
	if !ok {
		return c.writeError(ctx, http.StatusNotFound, "session not found")
	}
	req, err := types.NewSelectProviderRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	hosted.session.SelectProvider(req.Provider)
	return ctx.JSON(http.StatusOK, c.response(hosted))
}

func (c *CheckoutController) SelectMethod(ctx echo.Context) error {
	hosted, ok := c.lookup(ctx)
	if !ok {
		return c.writeError(ctx, http.StatusNotFound, "session not found")
	}
	req, err := types.NewSelectMethodRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	method, err := req.Parsed()
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	hosted.session.SelectMethod(method)
	return ctx.JSON(http.StatusOK, c.response(hosted))
}

func (c *CheckoutController) SubmitPhone(ctx echo.Context) error {
	hosted, ok := c.lookup(ctx)
	if !ok {
		return c.writeError(ctx, http.StatusNotFound, "session not found")
	}
	req, err := types.NewSubmitPhoneRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	hosted.session.SubmitPhone(req.Phone)
	return ctx.JSON(http.StatusOK, c.response(hosted))
}

func (c *CheckoutController) Continue(ctx echo.Context) error {
	return c.act(ctx, (*checkout.Session).Continue)
}

func (c *CheckoutController) Retry(ctx echo.Context) error {
	return c.act(ctx, (*checkout.Session).Retry)
}

func (c *CheckoutController) Back(ctx echo.Context) error {
	return c.act(ctx, (*checkout.Session).Back)
}

// Reset clears the selection. A session that never loaded an intent starts
// loading again.
func (c *CheckoutController) Reset(ctx echo.Context) error {
	return c.act(ctx, func(s *checkout.Session) {
		s.Reset()
		s.Initialize()
	})
}

func (c *CheckoutController) Close(ctx echo.Context) error {
	return c.act(ctx, (*checkout.Session).Close)
}

func (c *CheckoutController) BridgeSuccess(ctx echo.Context) error {
	return c.bridge(ctx, (*RemoteLauncher).Succeed)
}

func (c *CheckoutController) BridgeError(ctx echo.Context) error {
	return c.bridge(ctx, (*RemoteLauncher).Fail)
}

func (c *CheckoutController) BridgeClose(ctx echo.Context) error {
	hosted, ok := c.lookup(ctx)
	if !ok {
		return c.writeError(ctx, http.StatusNotFound, "session not found")
	}
	if !hosted.launcher.Dismiss() {
		return c.writeError(ctx, http.StatusConflict, "no bridge launch is pending")
	}
	return ctx.JSON(http.StatusOK, c.response(hosted))
}

// CloseAll closes every hosted session. Used on shutdown.
func (c *CheckoutController) CloseAll() int {
	sessions := c.store.drain()
	for _, hosted := range sessions {
		hosted.session.Close()
	}
	return len(sessions)
}

// EvictIdle closes sessions that have not seen a request within the idle
// timeout. Closing cancels their non-terminal intents.
func (c *CheckoutController) EvictIdle() int {
	idle := c.store.takeIdle(c.now().Add(-c.idleTimeout))
	for _, hosted := range idle {
		factory.LoggerWithSession(c.logger, hosted.session.ID()).Info("Evicting idle checkout session")
		hosted.session.Close()
	}
	return len(idle)
}

func (c *CheckoutController) SessionCount() int {
	return c.store.len()
}

func (c *CheckoutController) bridge(ctx echo.Context, deliver func(*RemoteLauncher, json.RawMessage) bool) error {
	hosted, ok := c.lookup(ctx)
	if !ok {
		return c.writeError(ctx, http.StatusNotFound, "session not found")
	}
	req, err := types.NewBridgeCallbackRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if !deliver(hosted.launcher, req.Payload) {
		return c.writeError(ctx, http.StatusConflict, "no bridge launch is pending")
	}
	return ctx.JSON(http.StatusOK, c.response(hosted))
}

func (c *CheckoutController) act(ctx echo.Context, action func(*checkout.Session)) error {
	hosted, ok := c.lookup(ctx)
	if !ok {
		return c.writeError(ctx, http.StatusNotFound, "session not found")
	}
	action(hosted.session)
	return ctx.JSON(http.StatusOK, c.response(hosted))
}

func (c *CheckoutController) lookup(ctx echo.Context) (*hostedSession, bool) {
	id := strings.TrimSpace(ctx.Param("id"))
	if id == "" {
		return nil, false
	}
	hosted, ok := c.store.get(id)
	if ok {
		hosted.touch(c.now())
	}
	return hosted, ok
}

func (c *CheckoutController) response(hosted *hostedSession) *SessionResponse {
	state := hosted.session.State()
	resp := &SessionResponse{
		ID:   hosted.session.ID(),
		View: shell.Project(state),
	}
	if state.Status == checkout.StatusProcessing && state.Bridge == checkout.BridgeLaunched {
		if in, at, ok := hosted.launcher.Pending(); ok {
			resp.Bridge = &PendingBridge{Input: in, LaunchedAt: at}
		}
	}
	return resp
}

func (c *CheckoutController) applyDefaults(cfg *types.CheckoutConfig) {
	if len(cfg.Methods) == 0 {
		cfg.Methods = append([]types.Method(nil), c.defaults.Methods...)
	}
	if cfg.SuccessDelay == 0 {
		cfg.SuccessDelay = c.defaults.SuccessDelay
	}
	if cfg.Country == "" {
		cfg.Country = c.defaults.Country
	}
}

func (c *CheckoutController) writeError(ctx echo.Context, status int, message string) error {
	return ctx.JSON(status, &types.ErrorResponse{Error: message})
}
