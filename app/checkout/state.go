package checkout

import (
	"github.com/vibast-solutions/lib-go-checkout/app/provider"
	"github.com/vibast-solutions/lib-go-checkout/app/resolver"
	"github.com/vibast-solutions/lib-go-checkout/app/types"
)

type Status string

const (
	StatusIdle           Status = "idle"
	StatusLoading        Status = "loading"
	StatusReady          Status = "ready"
	StatusMethodSelected Status = "method_selected"
	StatusProcessing     Status = "processing"
	StatusSuccess        Status = "success"
	StatusFailed         Status = "failed"
	StatusClosed         Status = "closed"
)

// BridgeStage tracks the PSP flow inside StatusProcessing.
type BridgeStage string

const (
	BridgeIdle            BridgeStage = ""
	BridgeAwaitingSession BridgeStage = "awaiting_session"
	BridgeLaunched        BridgeStage = "launched"
	BridgeConfirming      BridgeStage = "confirming"
)

// Capability is what the state machine needs to know about a provider
// family. Providers without an entry are unsupported.
type Capability struct {
	RequiresPhone bool
	NeedsSession  bool
}

// State is a value. Reduce never mutates the maps or slices it holds, it
// replaces them.
type State struct {
	Status Status

	Requested []types.Method
	Theme     types.Theme

	Intent       *types.PaymentIntent
	Providers    []resolver.ProviderOption
	Capabilities map[string]Capability
	Constraint   string

	Provider      string
	Method        types.Method
	Phone         string
	PhoneRequired bool
	HoldAdvance   bool

	Bridge  BridgeStage
	Session *provider.SessionToken

	Error  *types.PaymentError
	Result *types.PaymentResult

	Generation int
	Attempt    int
}

func NewState(cfg types.CheckoutConfig) State {
	return State{
		Status:    StatusIdle,
		Requested: append([]types.Method(nil), cfg.Methods...),
		Theme:     cfg.Theme,
		Phone:     cfg.Customer.Phone,
	}
}

func (s State) Supported(id string) bool {
	_, ok := s.Capabilities[types.NormalizeProviderID(id)]
	return ok
}

// Options resolves the providers offered by the current intent.
func (s State) Options() []resolver.ProviderOption {
	return resolver.ResolveProviders(s.Intent, s.Requested)
}

// MethodsFor lists the methods selectable for id, or for every offered
// provider when id is empty.
func (s State) MethodsFor(id string) []types.Method {
	options := s.Options()
	if id == "" {
		return resolver.MethodsOf(options)
	}
	option, ok := resolver.Find(options, id)
	if !ok {
		return nil
	}
	return option.Methods
}

func (s State) Interactive() bool {
	return s.Status != StatusLoading && s.Status != StatusProcessing && s.Status != StatusClosed
}

func (s State) changedFrom(prev State) bool {
	return s.Status != prev.Status ||
		s.Provider != prev.Provider ||
		s.Method != prev.Method ||
		s.Phone != prev.Phone ||
		s.PhoneRequired != prev.PhoneRequired ||
		s.Bridge != prev.Bridge ||
		s.Intent != prev.Intent ||
		s.Error != prev.Error ||
		s.Result != prev.Result
}
