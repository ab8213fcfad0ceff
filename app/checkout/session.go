package checkout

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/vibast-solutions/lib-go-checkout/app/api"
	"github.com/vibast-solutions/lib-go-checkout/app/factory"
	"github.com/vibast-solutions/lib-go-checkout/app/metrics"
	"github.com/vibast-solutions/lib-go-checkout/app/provider"
	"github.com/vibast-solutions/lib-go-checkout/app/types"
)

// Session drives one checkout. Every state change goes through Dispatch,
// which serializes events even when effects complete on other goroutines.
type Session struct {
	id        string
	cfg       types.CheckoutConfig
	api       API
	registry  *provider.Registry
	launcher  provider.Launcher
	callbacks Callbacks
	execute   func(func())
	logger    logrus.FieldLogger
	metrics   *metrics.Collector

	ctx    context.Context
	cancel context.CancelFunc

	initialized atomic.Bool

	mu       sync.Mutex
	state    State
	queue    []Event
	draining bool
	timer    *time.Timer
}

func NewSession(cfg types.CheckoutConfig, opts Options) (*Session, error) {
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.API == nil {
		return nil, ErrMissingAPI
	}
	if opts.Launcher == nil {
		return nil, ErrMissingLauncher
	}

	id := strings.TrimSpace(opts.ID)
	if id == "" {
		id = uuid.NewString()
	}
	registry := opts.Registry
	if registry == nil {
		registry = provider.DefaultRegistry()
	}
	execute := opts.Executor
	if execute == nil {
		execute = goExecutor
	}
	logger := opts.Logger
	if logger == nil {
		logger = factory.NewModuleLogger("checkout")
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:        id,
		cfg:       cfg,
		api:       opts.API,
		registry:  registry,
		launcher:  opts.Launcher,
		callbacks: opts.Callbacks,
		execute:   execute,
		logger:    factory.LoggerWithSession(logger, id),
		metrics:   opts.Metrics,
		ctx:       ctx,
		cancel:    cancel,
		state:     NewState(cfg),
	}
	s.metrics.SessionOpened()

	if opts.Intent != nil {
		s.initialized.Store(true)
		s.state.Status = StatusLoading
		s.state.Generation++
		s.Dispatch(IntentLoaded{
			Generation:   s.state.Generation,
			Intent:       opts.Intent,
			Capabilities: s.capabilities(opts.Intent),
		})
	}
	return s, nil
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Config() types.CheckoutConfig {
	return s.cfg
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Initialize requests the payment intent. Only the first call after
// construction or a full reset does anything.
func (s *Session) Initialize() {
	if !s.initialized.CompareAndSwap(false, true) {
		return
	}
	s.Dispatch(InitializeRequested{})
}

func (s *Session) SelectProvider(id string) { s.Dispatch(ProviderSelected{Provider: id}) }

func (s *Session) SelectMethod(m types.Method) { s.Dispatch(MethodSelected{Method: m}) }

func (s *Session) SubmitPhone(phone string) { s.Dispatch(PhoneSubmitted{Phone: phone}) }

func (s *Session) Continue() { s.Dispatch(Continue{}) }

func (s *Session) Retry() { s.Dispatch(Retry{}) }

func (s *Session) Reset() { s.Dispatch(Reset{}) }

func (s *Session) Back() { s.Dispatch(Back{}) }

func (s *Session) Close() { s.Dispatch(Close{}) }

// Dispatch queues e and, unless another caller is already draining, applies
// queued events one at a time. Effects and callbacks run outside the lock.
func (s *Session) Dispatch(e Event) {
	s.mu.Lock()
	s.queue = append(s.queue, e)
	if s.draining {
		s.mu.Unlock()
		return
	}
	s.draining = true

	for len(s.queue) > 0 {
		ev := s.queue[0]
		s.queue = s.queue[1:]

		prev := s.state
		next, effects := Reduce(prev, ev)
		s.state = next
		if next.Status != StatusSuccess {
			s.stopTimerLocked()
		}
		s.mu.Unlock()

		s.afterTransition(ev, prev, next)
		for _, effect := range effects {
			s.run(effect)
		}

		s.mu.Lock()
	}

	s.draining = false
	s.mu.Unlock()
}

func (s *Session) afterTransition(ev Event, prev, next State) {
	if !next.changedFrom(prev) {
		return
	}
	s.metrics.ObserveTransition(string(prev.Status), string(next.Status))
	s.logger.WithFields(logrus.Fields{
		"event": ev.EventName(),
		"from":  prev.Status,
		"to":    next.Status,
	}).Debug("checkout transition")

	if prev.Status != next.Status {
		switch next.Status {
		case StatusSuccess:
			s.metrics.ObserveOutcome(next.Provider, "success")
		case StatusFailed:
			s.metrics.ObserveOutcome(next.Provider, next.Error.Code)
		case StatusClosed:
			s.cancel()
			s.metrics.SessionClosed()
		}
	}

	if s.callbacks.OnStateChange != nil {
		s.callbacks.OnStateChange(next)
	}
}

func (s *Session) run(effect Effect) {
	switch effect.Kind {
	case EffectCreateIntent:
		s.execute(func() { s.createIntent(effect) })
	case EffectFetchSession:
		s.execute(func() { s.fetchSession(effect) })
	case EffectLaunchBridge:
		s.execute(func() { s.launchBridge(effect) })
	case EffectConfirm:
		s.execute(func() { s.confirm(effect) })
	case EffectCancelIntent:
		s.execute(func() { s.cancelIntent(effect) })
	case EffectScheduleClose:
		s.scheduleClose()
	case EffectReleaseGuard:
		s.initialized.Store(false)
	case EffectNotifySuccess:
		if s.callbacks.OnSuccess != nil {
			s.callbacks.OnSuccess(effect.Result)
		}
	case EffectNotifyError:
		if s.callbacks.OnError != nil {
			s.callbacks.OnError(effect.Err)
		}
	case EffectNotifyClose:
		if s.callbacks.OnClose != nil {
			s.callbacks.OnClose()
		}
	}
}

func (s *Session) createIntent(effect Effect) {
	opts := api.CreateOptions{Method: effect.Method, Country: s.cfg.Country}
	switch {
	case effect.Provider != "":
		opts.Policy = &api.Policy{Prefer: effect.Provider, AllowedProviders: []string{effect.Provider}}
	case s.cfg.PreferredProvider != "" || len(s.cfg.AllowedProviders) > 0:
		opts.Policy = &api.Policy{Prefer: s.cfg.PreferredProvider, AllowedProviders: s.cfg.AllowedProviders}
	}

	resp, err := s.api.CreatePaymentIntent(s.ctx, s.cfg, opts)
	if err != nil {
		s.Dispatch(IntentFailed{Generation: effect.Generation, Err: types.AsPaymentError(err)})
		return
	}
	intent := api.IntentFromResponse(resp, s.cfg.Methods)
	s.Dispatch(IntentLoaded{
		Generation:   effect.Generation,
		Intent:       intent,
		Capabilities: s.capabilities(intent),
	})
}

func (s *Session) capabilities(intent *types.PaymentIntent) map[string]Capability {
	ids := make([]string, 0, len(intent.AvailableProviders)+1)
	for _, p := range intent.AvailableProviders {
		ids = append(ids, p.Provider)
	}
	ids = append(ids, intent.RecommendedPSP)

	caps := make(map[string]Capability, len(ids))
	for _, id := range ids {
		adapter, err := s.registry.Get(id)
		if err != nil {
			continue
		}
		caps[types.NormalizeProviderID(id)] = Capability{
			RequiresPhone: adapter.RequiresPhone(),
			NeedsSession:  adapter.NeedsSession(),
		}
	}
	return caps
}

func (s *Session) fetchSession(effect Effect) {
	intent := effect.Intent
	resp, err := s.api.CreateProviderSession(s.ctx, effect.Provider, intent.ID, intent.ClientSecret)
	if err != nil {
		s.Dispatch(SessionFailed{Attempt: effect.Attempt, Err: types.AsPaymentError(err)})
		return
	}
	if strings.TrimSpace(resp.Token) == "" {
		s.Dispatch(SessionFailed{
			Attempt: effect.Attempt,
			Err:     types.NewPaymentError(types.ErrCodeSessionUnavailable, "Payment session is not available", true),
		})
		return
	}

	token := &provider.SessionToken{
		Token:           resp.Token,
		MerchantAccount: resp.MerchantAccount,
		BasicAuth:       resp.BasicAuth,
	}
	if at, err := time.Parse(time.RFC3339, resp.ExpiresAt); err == nil {
		token.ExpiresAt = at
	} else if resp.ExpiresInSeconds > 0 {
		token.ExpiresAt = time.Now().Add(time.Duration(resp.ExpiresInSeconds) * time.Second)
	}
	s.Dispatch(SessionReady{Attempt: effect.Attempt, Session: token})
}

func (s *Session) launchBridge(effect Effect) {
	adapter, err := s.registry.Get(effect.Provider)
	if err != nil {
		s.Dispatch(BridgeFailed{Attempt: effect.Attempt, Err: types.NewProviderNotSupportedError(effect.Provider)})
		return
	}

	in := provider.PrepareInput{
		Provider: effect.Provider,
		Intent:   effect.Intent,
		Method:   effect.Method,
		Customer: s.cfg.Customer,
		Phone:    effect.Phone,
		Metadata: s.cfg.Metadata,
		Session:  effect.Session,
	}
	bridge, err := adapter.Prepare(in)
	if err != nil {
		s.Dispatch(BridgeFailed{Attempt: effect.Attempt, Err: types.AsPaymentError(err)})
		return
	}

	attempt := effect.Attempt
	callbacks := provider.Bind(adapter, in, provider.Handlers{
		Success: func(result *types.PaymentResult) {
			s.Dispatch(BridgeSucceeded{Attempt: attempt, Result: result})
		},
		Failure: func(perr *types.PaymentError) {
			s.Dispatch(BridgeFailed{Attempt: attempt, Err: perr})
		},
		Closed: func() {
			s.Dispatch(BridgeClosed{Attempt: attempt})
		},
	})

	if err := s.launcher.Launch(s.ctx, bridge, callbacks); err != nil {
		perr := types.AsPaymentError(err)
		if perr.Code == types.ErrCodeUnknown {
			perr = types.NewPaymentError(types.ErrCodePSP, "Payment provider could not be started", true).
				WithDetail("provider", effect.Provider)
		}
		s.Dispatch(BridgeFailed{Attempt: attempt, Err: perr})
	}
}

// confirm hands a PSP success to the backend. The PSP outcome decides
// success; the backend status is kept as metadata.
func (s *Session) confirm(effect Effect) {
	intent := effect.Intent
	var (
		resp *api.PaymentResponse
		err  error
	)
	if intent.ClientSecret != "" {
		resp, err = s.api.ConfirmPaymentIntent(s.ctx, intent.ID, intent.ClientSecret)
	} else {
		resp, err = s.api.ConfirmPayment(s.ctx, intent.ID)
	}

	pspReference := ""
	if effect.Result != nil {
		pspReference = effect.Result.PSPReference
	}
	if err != nil {
		s.Dispatch(ConfirmationFailed{Attempt: effect.Attempt, Err: types.AsPaymentError(err), PSPReference: pspReference})
		return
	}

	result := types.PaymentResult{}
	if effect.Result != nil {
		result = *effect.Result
	}
	metadata := make(map[string]any, len(result.Metadata)+1)
	for k, v := range result.Metadata {
		metadata[k] = v
	}
	if status := strings.ToLower(strings.TrimSpace(resp.Status)); status != "" {
		metadata["backend_status"] = status
		if status != string(types.IntentSucceeded) {
			s.logger.WithFields(logrus.Fields{
				"payment_id":     intent.ID,
				"backend_status": status,
			}).Warn("psp reported success before backend settled")
		}
	}
	result.Metadata = metadata
	if result.PaymentID == "" {
		result.PaymentID = firstNonEmpty(resp.ID, intent.ID)
	}
	if result.PSPReference == "" {
		result.PSPReference = resp.PSPReference
	}
	if result.Reference == "" {
		result.Reference = firstNonEmpty(resp.Reference, intent.Reference)
	}
	s.Dispatch(PaymentConfirmed{Attempt: effect.Attempt, Result: &result})
}

func (s *Session) cancelIntent(effect Effect) {
	if effect.Intent == nil {
		return
	}
	if _, err := s.api.CancelPaymentIntent(context.Background(), effect.Intent.ID); err != nil {
		s.logger.WithError(err).WithField("payment_id", effect.Intent.ID).Debug("cancel on close failed")
	}
}

func (s *Session) scheduleClose() {
	delay := s.cfg.SuccessDelay
	if delay <= 0 {
		delay = DefaultSuccessDelay
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimerLocked()
	s.timer = time.AfterFunc(delay, func() {
		s.Dispatch(Close{})
	})
}

func (s *Session) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
