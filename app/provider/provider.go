package provider

import (
	"context"
	"encoding/json"
	"time"

	"github.com/vibast-solutions/lib-go-checkout/app/types"
)

type AmountUnit string

const (
	UnitMinor AmountUnit = "minor"
	UnitMajor AmountUnit = "major"
	UnitWhole AmountUnit = "whole"
)

// SessionToken is the short-lived credential the backend issues for
// providers that never see raw merchant credentials.
type SessionToken struct {
	Token           string
	MerchantAccount string
	BasicAuth       string
	ExpiresAt       time.Time
}

type PrepareInput struct {
	Provider string
	Intent   *types.PaymentIntent
	Method   types.Method
	Customer types.Customer
	Phone    string
	Metadata map[string]any
	Session  *SessionToken
}

// BridgeInput is what a vendor SDK bridge is launched with. Amount is
// already expressed in the provider's own unit.
type BridgeInput struct {
	Provider        string            `json:"provider"`
	Family          string            `json:"family"`
	Method          types.Method      `json:"method"`
	Amount          string            `json:"amount"`
	AmountUnit      AmountUnit        `json:"amount_unit"`
	Currency        string            `json:"currency"`
	Reference       string            `json:"reference"`
	Email           string            `json:"email,omitempty"`
	Name            string            `json:"name,omitempty"`
	Phone           string            `json:"phone,omitempty"`
	PublicKey       string            `json:"public_key,omitempty"`
	SessionToken    string            `json:"session_token,omitempty"`
	MerchantAccount string            `json:"merchant_account,omitempty"`
	Extra           map[string]string `json:"extra,omitempty"`
	Metadata        map[string]any    `json:"metadata,omitempty"`
}

// Adapter is the per-family boundary between the checkout core and a
// vendor bridge.
type Adapter interface {
	Family() string
	Unit() AmountUnit
	RequiresPhone() bool
	NeedsSession() bool
	Prepare(in PrepareInput) (*BridgeInput, error)
	NormalizeSuccess(in PrepareInput, raw json.RawMessage) (*types.PaymentResult, error)
	NormalizeError(raw json.RawMessage) *types.PaymentError
}

// Callbacks are handed to a Launcher. A bridge calls exactly one of
// OnSuccess or OnError, or OnClose when the user dismisses it.
type Callbacks struct {
	OnSuccess func(raw json.RawMessage)
	OnError   func(raw json.RawMessage)
	OnClose   func()
}

// Launcher drives a vendor SDK. It is supplied by the embedding application.
type Launcher interface {
	Launch(ctx context.Context, in *BridgeInput, cb Callbacks) error
}

type LauncherFunc func(ctx context.Context, in *BridgeInput, cb Callbacks) error

func (f LauncherFunc) Launch(ctx context.Context, in *BridgeInput, cb Callbacks) error {
	return f(ctx, in, cb)
}
