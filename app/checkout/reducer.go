package checkout

import (
	"strings"

	"github.com/vibast-solutions/lib-go-checkout/app/resolver"
	"github.com/vibast-solutions/lib-go-checkout/app/types"
)

// Reduce is the only place checkout state changes. It is pure: the same
// state and event always yield the same result, and side effects are
// returned for the driver to run. Closed is final, Reset included: the
// intent has been cancelled and the host has dropped the session.
func Reduce(s State, e Event) (State, []Effect) {
	if s.Status == StatusClosed {
		return s, nil
	}

	switch ev := e.(type) {
	case InitializeRequested:
		if s.Status != StatusIdle {
			return s, nil
		}
		return startLoading(s)
	case IntentLoaded:
		return intentLoaded(s, ev)
	case IntentFailed:
		if s.Status != StatusLoading || ev.Generation != s.Generation {
			return s, nil
		}
		return fail(s, ev.Err)
	case ProviderSelected:
		return providerSelected(s, ev)
	case MethodSelected:
		return methodSelected(s, ev)
	case PhoneSubmitted:
		return phoneSubmitted(s, ev)
	case Continue:
		return continueFlow(s)
	case SessionReady:
		if !s.awaiting(BridgeAwaitingSession, ev.Attempt) {
			return s, nil
		}
		s.Session = ev.Session
		s.Bridge = BridgeLaunched
		return s, []Effect{launchEffect(s)}
	case SessionFailed:
		if !s.awaiting(BridgeAwaitingSession, ev.Attempt) {
			return s, nil
		}
		perr := types.NewPaymentError(types.ErrCodeSessionUnavailable, "Payment session is not available", true)
		if ev.Err != nil {
			cause := *ev.Err
			cause.Recoverable = true
			perr = &cause
		}
		s.Provider, s.Method = "", ""
		return fail(s, perr)
	case BridgeSucceeded:
		if !s.awaiting(BridgeLaunched, ev.Attempt) {
			return s, nil
		}
		s.Bridge = BridgeConfirming
		s.Result = ev.Result
		return s, []Effect{{
			Kind:    EffectConfirm,
			Attempt: s.Attempt,
			Intent:  s.Intent,
			Result:  ev.Result,
		}}
	case BridgeFailed:
		if !s.awaiting(BridgeLaunched, ev.Attempt) {
			return s, nil
		}
		return fail(s, ev.Err)
	case BridgeClosed:
		if !s.awaiting(BridgeLaunched, ev.Attempt) {
			return s, nil
		}
		s.Status = StatusMethodSelected
		s.Bridge = BridgeIdle
		s.Session = nil
		s.HoldAdvance = true
		s.Error = types.NewPaymentError(types.ErrCodePaymentCancelled, "Payment was cancelled", true)
		return s, nil
	case PaymentConfirmed:
		if !s.awaiting(BridgeConfirming, ev.Attempt) {
			return s, nil
		}
		s.Status = StatusSuccess
		s.Bridge = BridgeIdle
		s.Session = nil
		s.Error = nil
		s.Result = ev.Result
		return s, []Effect{
			{Kind: EffectNotifySuccess, Result: ev.Result},
			{Kind: EffectScheduleClose},
		}
	case ConfirmationFailed:
		if !s.awaiting(BridgeConfirming, ev.Attempt) {
			return s, nil
		}
		perr := types.NewPaymentError(types.ErrCodeConfirmationFailed,
			"We could not confirm your payment. If you were charged, contact support with your reference.", true)
		if ev.PSPReference != "" {
			perr.WithDetail("psp_reference", ev.PSPReference)
		}
		if ev.Err != nil {
			perr.WithDetail("cause", ev.Err.Code)
		}
		return fail(s, perr)
	case Reset:
		return reset(s)
	case Back:
		return back(s)
	case Retry:
		return retry(s)
	case Close:
		return closeSession(s)
	}
	return s, nil
}

func (s State) awaiting(stage BridgeStage, attempt int) bool {
	return s.Status == StatusProcessing && s.Bridge == stage && s.Attempt == attempt
}

func startLoading(s State) (State, []Effect) {
	s.Status = StatusLoading
	s.Generation++
	s.Intent = nil
	s.Error = nil
	s.Result = nil
	s.Bridge = BridgeIdle
	s.Session = nil

	effect := Effect{Kind: EffectCreateIntent, Generation: s.Generation, Provider: s.Constraint}
	if len(s.Requested) == 1 {
		effect.Method = s.Requested[0]
	}
	return s, []Effect{effect}
}

func intentLoaded(s State, ev IntentLoaded) (State, []Effect) {
	if s.Status != StatusLoading || ev.Generation != s.Generation || ev.Intent == nil {
		return s, nil
	}

	s.Intent = ev.Intent
	s.Capabilities = mergeCapabilities(s.Capabilities, ev.Capabilities)
	s.Error = nil
	s.Result = nil
	s.PhoneRequired = false
	s.HoldAdvance = false
	s.Status = StatusReady

	options := resolver.ResolveProviders(ev.Intent, s.Requested)
	if s.Constraint == "" || len(s.Providers) == 0 {
		s.Providers = options
	}
	if len(options) == 0 {
		s.Provider, s.Method = "", ""
		return fail(s, types.NewPaymentError(types.ErrCodeProviderNotSupported,
			"No payment provider is available for this payment.", false))
	}

	id := s.Constraint
	if id == "" {
		if only, ok := resolver.AutoSelect(options); ok {
			id = only.Provider
		}
	}
	if id == "" {
		s.Provider = ""
		s.Method = ""
		if methods := resolver.MethodsOf(options); len(methods) == 1 {
			s.Method = methods[0]
			s.Status = StatusMethodSelected
		}
		return s, nil
	}
	return chooseProvider(s, id)
}

func chooseProvider(s State, id string) (State, []Effect) {
	s.Provider = id
	if !s.Supported(id) {
		s.Method = ""
		return fail(s, types.NewProviderNotSupportedError(id))
	}
	option, ok := resolver.Find(s.Options(), id)
	if !ok {
		s.Method = ""
		return fail(s, types.NewProviderNotSupportedError(id))
	}

	s.Provider = option.Provider
	s.Error = nil
	s.PhoneRequired = false
	switch {
	case len(option.Methods) == 1:
		s.Method = option.Methods[0]
	case !types.ContainsMethod(option.Methods, s.Method):
		s.Method = ""
	}
	if s.Method != "" {
		s.Status = StatusMethodSelected
	} else {
		s.Status = StatusReady
	}
	return autoAdvance(s)
}

func (s State) selectable() bool {
	switch s.Status {
	case StatusReady, StatusMethodSelected:
		return s.Intent != nil
	case StatusFailed:
		return s.Intent != nil && s.Error != nil && s.Error.Recoverable
	}
	return false
}

func providerSelected(s State, ev ProviderSelected) (State, []Effect) {
	if !s.selectable() {
		return s, nil
	}
	id := types.NormalizeProviderID(ev.Provider)
	if id == "" {
		return s, nil
	}

	if id == s.Provider {
		s.Provider = ""
		s.Method = ""
		s.PhoneRequired = false
		s.HoldAdvance = false
		s.Error = nil
		s.Status = StatusReady
		return s, nil
	}

	if s.Provider != "" || s.outOfScope(id) {
		if !s.Supported(id) {
			s.Provider = id
			s.Method = ""
			return fail(s, types.NewProviderNotSupportedError(id))
		}
		s.Constraint = id
		s.Provider = id
		s.Method = ""
		s.PhoneRequired = false
		s.HoldAdvance = false
		return startLoading(s)
	}

	return chooseProvider(s, id)
}

// outOfScope reports whether the current intent was issued for another
// provider. An intent without a recommended provider is not scoped.
func (s State) outOfScope(id string) bool {
	scope := s.Constraint
	if scope == "" && s.Intent != nil {
		scope = types.NormalizeProviderID(s.Intent.RecommendedPSP)
	}
	return scope != "" && id != scope
}

func methodSelected(s State, ev MethodSelected) (State, []Effect) {
	if !s.selectable() {
		return s, nil
	}
	if !types.ContainsMethod(s.MethodsFor(s.Provider), ev.Method) {
		return s, nil
	}
	s.Method = ev.Method
	s.Status = StatusMethodSelected
	s.Error = nil
	s.PhoneRequired = false
	s.HoldAdvance = false
	return autoAdvance(s)
}

func phoneSubmitted(s State, ev PhoneSubmitted) (State, []Effect) {
	phone := strings.TrimSpace(ev.Phone)
	if phone == "" || (s.Status != StatusReady && s.Status != StatusMethodSelected) {
		return s, nil
	}
	s.Phone = phone
	s.PhoneRequired = false
	s.HoldAdvance = false
	return autoAdvance(s)
}

// autoAdvance starts the PSP flow without user action when the selection
// allows it.
func autoAdvance(s State) (State, []Effect) {
	if !s.readyToLaunch() || s.HoldAdvance {
		return s, nil
	}
	switch s.Method {
	case types.MethodCard:
		return advance(s)
	case types.MethodMobileMoney:
		if s.Capabilities[s.Provider].RequiresPhone && s.Phone == "" {
			s.PhoneRequired = true
			return s, nil
		}
		return advance(s)
	}
	return s, nil
}

func continueFlow(s State) (State, []Effect) {
	if !s.readyToLaunch() {
		return s, nil
	}
	if s.Capabilities[s.Provider].RequiresPhone && s.Phone == "" {
		s.PhoneRequired = true
		return s, nil
	}
	return advance(s)
}

func (s State) readyToLaunch() bool {
	return s.Status == StatusMethodSelected &&
		s.Intent != nil &&
		s.Provider != "" &&
		s.Method != "" &&
		s.Bridge == BridgeIdle
}

func advance(s State) (State, []Effect) {
	s.Status = StatusProcessing
	s.Attempt++
	s.Error = nil
	s.PhoneRequired = false
	s.HoldAdvance = false

	if s.Capabilities[s.Provider].NeedsSession && s.Session == nil {
		s.Bridge = BridgeAwaitingSession
		return s, []Effect{{
			Kind:     EffectFetchSession,
			Attempt:  s.Attempt,
			Provider: s.Provider,
			Intent:   s.Intent,
		}}
	}
	s.Bridge = BridgeLaunched
	return s, []Effect{launchEffect(s)}
}

func launchEffect(s State) Effect {
	return Effect{
		Kind:     EffectLaunchBridge,
		Attempt:  s.Attempt,
		Provider: s.Provider,
		Method:   s.Method,
		Phone:    s.Phone,
		Intent:   s.Intent,
		Session:  s.Session,
	}
}

func fail(s State, perr *types.PaymentError) (State, []Effect) {
	if perr == nil {
		perr = types.NewPaymentError(types.ErrCodeUnknown, "Something went wrong", true)
	}
	s.Status = StatusFailed
	s.Error = perr
	s.Bridge = BridgeIdle
	s.Session = nil
	s.PhoneRequired = false
	return s, []Effect{{Kind: EffectNotifyError, Err: perr}}
}

func reset(s State) (State, []Effect) {
	s.Provider = ""
	s.Method = ""
	s.Error = nil
	s.Result = nil
	s.Bridge = BridgeIdle
	s.Session = nil
	s.PhoneRequired = false
	s.HoldAdvance = false

	if s.Intent == nil {
		s.Status = StatusIdle
		s.Constraint = ""
		s.Providers = nil
		s.Generation++
		return s, []Effect{{Kind: EffectReleaseGuard}}
	}

	s.Status = StatusReady
	if only, ok := resolver.AutoSelect(s.Options()); ok && s.Supported(only.Provider) {
		s.Provider = only.Provider
	}
	return s, nil
}

func back(s State) (State, []Effect) {
	switch s.Status {
	case StatusFailed:
		if s.Intent == nil {
			return s, nil
		}
		if !s.Supported(s.Provider) {
			s.Provider = ""
		}
	case StatusMethodSelected:
		if s.Provider == "" || len(s.MethodsFor(s.Provider)) <= 1 {
			s.Provider = ""
		}
	case StatusReady:
		s.Provider = ""
	default:
		return s, nil
	}
	s.Method = ""
	s.Error = nil
	s.PhoneRequired = false
	s.HoldAdvance = false
	s.Status = StatusReady
	return s, nil
}

func retry(s State) (State, []Effect) {
	if s.Error == nil || !s.Error.Recoverable {
		return s, nil
	}
	switch s.Status {
	case StatusFailed:
	case StatusMethodSelected:
		s.Error = nil
		return continueFlow(s)
	default:
		return s, nil
	}

	s.Error = nil
	if s.Intent == nil {
		return startLoading(s)
	}
	if s.Provider != "" && s.Method != "" {
		s.Status = StatusMethodSelected
		s.HoldAdvance = false
		return autoAdvance(s)
	}
	s.Status = StatusReady
	return s, nil
}

func closeSession(s State) (State, []Effect) {
	var effects []Effect
	if s.Intent != nil && s.Status != StatusSuccess && !s.Intent.Status.IsTerminal() {
		effects = append(effects, Effect{Kind: EffectCancelIntent, Intent: s.Intent})
	}
	s.Status = StatusClosed
	s.Bridge = BridgeIdle
	s.Session = nil
	s.PhoneRequired = false
	return s, append(effects, Effect{Kind: EffectNotifyClose})
}

func mergeCapabilities(current, incoming map[string]Capability) map[string]Capability {
	merged := make(map[string]Capability, len(current)+len(incoming))
	for id, c := range current {
		merged[id] = c
	}
	for id, c := range incoming {
		merged[types.NormalizeProviderID(id)] = c
	}
	return merged
}
