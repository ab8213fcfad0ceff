package checkout

import (
	"github.com/vibast-solutions/lib-go-checkout/app/provider"
	"github.com/vibast-solutions/lib-go-checkout/app/types"
)

type Event interface {
	EventName() string
}

type InitializeRequested struct{}

type IntentLoaded struct {
	Generation   int
	Intent       *types.PaymentIntent
	Capabilities map[string]Capability
}

type IntentFailed struct {
	Generation int
	Err        *types.PaymentError
}

type ProviderSelected struct{ Provider string }

type MethodSelected struct{ Method types.Method }

type PhoneSubmitted struct{ Phone string }

type Continue struct{}

type SessionReady struct {
	Attempt int
	Session *provider.SessionToken
}

type SessionFailed struct {
	Attempt int
	Err     *types.PaymentError
}

type BridgeSucceeded struct {
	Attempt int
	Result  *types.PaymentResult
}

type BridgeFailed struct {
	Attempt int
	Err     *types.PaymentError
}

type BridgeClosed struct{ Attempt int }

type PaymentConfirmed struct {
	Attempt int
	Result  *types.PaymentResult
}

type ConfirmationFailed struct {
	Attempt      int
	Err          *types.PaymentError
	PSPReference string
}

type Reset struct{}

type Back struct{}

type Retry struct{}

type Close struct{}

func (InitializeRequested) EventName() string { return "initialize_requested" }
func (IntentLoaded) EventName() string        { return "intent_loaded" }
func (IntentFailed) EventName() string        { return "intent_failed" }
func (ProviderSelected) EventName() string    { return "provider_selected" }
func (MethodSelected) EventName() string      { return "method_selected" }
func (PhoneSubmitted) EventName() string      { return "phone_submitted" }
func (Continue) EventName() string            { return "continue" }
func (SessionReady) EventName() string        { return "session_ready" }
func (SessionFailed) EventName() string       { return "session_failed" }
func (BridgeSucceeded) EventName() string     { return "bridge_succeeded" }
func (BridgeFailed) EventName() string        { return "bridge_failed" }
func (BridgeClosed) EventName() string        { return "bridge_closed" }
func (PaymentConfirmed) EventName() string    { return "payment_confirmed" }
func (ConfirmationFailed) EventName() string  { return "confirmation_failed" }
func (Reset) EventName() string               { return "reset" }
func (Back) EventName() string                { return "back" }
func (Retry) EventName() string               { return "retry" }
func (Close) EventName() string               { return "close" }

type EffectKind string

const (
	EffectCreateIntent  EffectKind = "create_intent"
	EffectFetchSession  EffectKind = "fetch_session"
	EffectLaunchBridge  EffectKind = "launch_bridge"
	EffectConfirm       EffectKind = "confirm"
	EffectCancelIntent  EffectKind = "cancel_intent"
	EffectScheduleClose EffectKind = "schedule_close"
	EffectNotifySuccess EffectKind = "notify_success"
	EffectNotifyError   EffectKind = "notify_error"
	EffectNotifyClose   EffectKind = "notify_close"
	EffectReleaseGuard  EffectKind = "release_guard"
)

// Effect is work the driver performs after a transition. Reduce only
// describes it.
type Effect struct {
	Kind       EffectKind
	Generation int
	Attempt    int

	Provider string
	Method   types.Method
	Phone    string

	Intent  *types.PaymentIntent
	Session *provider.SessionToken
	Result  *types.PaymentResult
	Err     *types.PaymentError
}
