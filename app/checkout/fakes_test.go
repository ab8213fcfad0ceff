package checkout

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/vibast-solutions/lib-go-checkout/app/api"
	"github.com/vibast-solutions/lib-go-checkout/app/provider"
	"github.com/vibast-solutions/lib-go-checkout/app/types"
)

type fakeAPI struct {
	mu sync.Mutex

	createFn    func(call int, opts api.CreateOptions) (*api.IntentResponse, error)
	createCalls int
	createOpts  []api.CreateOptions

	confirmResp        *api.PaymentResponse
	confirmErr         error
	confirmIntentCalls int
	confirmCalls       int

	cancelErr   error
	cancelCalls int
	cancelled   []string

	sessionResp  *api.ProviderSession
	sessionErr   error
	sessionCalls int
}

func (f *fakeAPI) CreatePaymentIntent(_ context.Context, _ types.CheckoutConfig, opts api.CreateOptions) (*api.IntentResponse, error) {
	f.mu.Lock()
	f.createCalls++
	call := f.createCalls
	f.createOpts = append(f.createOpts, opts)
	fn := f.createFn
	f.mu.Unlock()
	return fn(call, opts)
}

func (f *fakeAPI) ConfirmPaymentIntent(_ context.Context, _, _ string) (*api.PaymentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirmIntentCalls++
	if f.confirmErr != nil {
		return nil, f.confirmErr
	}
	return f.confirmResp, nil
}

func (f *fakeAPI) ConfirmPayment(_ context.Context, _ string) (*api.PaymentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirmCalls++
	if f.confirmErr != nil {
		return nil, f.confirmErr
	}
	return f.confirmResp, nil
}

func (f *fakeAPI) CancelPaymentIntent(_ context.Context, id string) (*api.PaymentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelCalls++
	f.cancelled = append(f.cancelled, id)
	if f.cancelErr != nil {
		return nil, f.cancelErr
	}
	return &api.PaymentResponse{ID: id, Status: "canceled"}, nil
}

func (f *fakeAPI) CreateProviderSession(_ context.Context, _, _, _ string) (*api.ProviderSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessionCalls++
	if f.sessionErr != nil {
		return nil, f.sessionErr
	}
	return f.sessionResp, nil
}

func (f *fakeAPI) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.createCalls
}

func returnsIntent(resp *api.IntentResponse) func(int, api.CreateOptions) (*api.IntentResponse, error) {
	return func(int, api.CreateOptions) (*api.IntentResponse, error) {
		copied := *resp
		return &copied, nil
	}
}

type launch struct {
	input     *provider.BridgeInput
	callbacks provider.Callbacks
}

type fakeLauncher struct {
	mu       sync.Mutex
	launches []launch
	err      error
}

func (l *fakeLauncher) Launch(_ context.Context, in *provider.BridgeInput, cb provider.Callbacks) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	l.launches = append(l.launches, launch{input: in, callbacks: cb})
	return nil
}

func (l *fakeLauncher) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.launches)
}

func (l *fakeLauncher) last(t *testing.T) launch {
	t.Helper()
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.launches) == 0 {
		t.Fatal("expected a bridge launch")
	}
	return l.launches[len(l.launches)-1]
}

type recorder struct {
	mu        sync.Mutex
	successes []*types.PaymentResult
	errors    []*types.PaymentError
	closes    int
	states    []Status
}

func (r *recorder) callbacks() Callbacks {
	return Callbacks{
		OnSuccess: func(res *types.PaymentResult) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.successes = append(r.successes, res)
		},
		OnError: func(perr *types.PaymentError) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.errors = append(r.errors, perr)
		},
		OnClose: func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.closes++
		},
		OnStateChange: func(s State) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.states = append(r.states, s.Status)
		},
	}
}

func (r *recorder) closeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closes
}

func syncExecutor(f func()) { f() }

func raw(s string) json.RawMessage { return json.RawMessage(s) }

func baseConfig(methods ...types.Method) types.CheckoutConfig {
	if len(methods) == 0 {
		methods = []types.Method{types.MethodCard, types.MethodMobileMoney}
	}
	return types.CheckoutConfig{
		Amount:    20000,
		Currency:  "GHS",
		Customer:  types.Customer{Email: "ama@example.com", Name: "Ama Mensah"},
		Reference: "order-1",
		Methods:   methods,
	}
}

func intentResponse(psps ...api.AvailablePSP) *api.IntentResponse {
	return &api.IntentResponse{
		ID:            "pi_1",
		Provider:      psps[0].Provider,
		Status:        "pending",
		ClientSecret:  "secret_1",
		PSPPublicKey:  "pk_psp",
		Amount:        20000,
		Currency:      "GHS",
		Reference:     "order-1",
		AvailablePSPs: psps,
	}
}

func psp(id string, methods ...string) api.AvailablePSP {
	return api.AvailablePSP{Provider: id, Methods: methods}
}

func newTestSession(t *testing.T, cfg types.CheckoutConfig, fake *fakeAPI, launcher *fakeLauncher, rec *recorder) *Session {
	t.Helper()
	session, err := NewSession(cfg, Options{
		API:       fake,
		Launcher:  launcher,
		Callbacks: rec.callbacks(),
		Executor:  syncExecutor,
	})
	if err != nil {
		t.Fatalf("NewSession error: %v", err)
	}
	return session
}
