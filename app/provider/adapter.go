package provider

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/vibast-solutions/lib-go-checkout/app/types"
)

// familyAdapter is the shared Adapter implementation. Families differ only
// in the data below.
type familyAdapter struct {
	family        string
	unit          AmountUnit
	requiresPhone bool
	needsSession  bool

	// credentialKeys are copied from the intent credentials into BridgeInput.Extra.
	credentialKeys []string

	referenceKeys   []string
	statusKeys      []string
	successStatuses []string
	pendingStatuses []string
	cancelStatuses  []string
}

func (a *familyAdapter) Family() string      { return a.family }
func (a *familyAdapter) Unit() AmountUnit    { return a.unit }
func (a *familyAdapter) RequiresPhone() bool { return a.requiresPhone }
func (a *familyAdapter) NeedsSession() bool  { return a.needsSession }

func (a *familyAdapter) Prepare(in PrepareInput) (*BridgeInput, error) {
	intent := in.Intent
	if intent == nil || strings.TrimSpace(intent.ID) == "" {
		return nil, types.NewPaymentError(types.ErrCodeValidation, "Payment is not initialized", true)
	}
	if intent.Amount <= 0 {
		return nil, types.NewValidationError("amount must be greater than zero")
	}
	if strings.TrimSpace(intent.Currency) == "" {
		return nil, types.NewValidationError("currency is required")
	}

	phone := strings.TrimSpace(firstNonEmpty(in.Phone, in.Customer.Phone))
	if a.requiresPhone && phone == "" {
		return nil, types.NewValidationError("phone number is required").WithDetail("field", "phone")
	}

	bridge := &BridgeInput{
		Provider:   types.NormalizeProviderID(firstNonEmpty(in.Provider, a.family)),
		Family:     a.family,
		Method:     in.Method,
		Amount:     FormatAmount(intent.Amount, intent.Currency, a.unit),
		AmountUnit: a.unit,
		Currency:   intent.Currency,
		Reference:  firstNonEmpty(intent.Reference, intent.ID),
		Email:      in.Customer.Email,
		Name:       in.Customer.Name,
		Phone:      phone,
		Metadata:   in.Metadata,
	}

	if a.needsSession {
		if in.Session == nil || strings.TrimSpace(in.Session.Token) == "" {
			return nil, types.NewPaymentError(types.ErrCodeSessionUnavailable, "Payment session is not available", true)
		}
		bridge.SessionToken = in.Session.Token
		bridge.MerchantAccount = in.Session.MerchantAccount
		if in.Session.BasicAuth != "" {
			bridge.setExtra("basic_auth", in.Session.BasicAuth)
		}
	} else {
		bridge.PublicKey = firstNonEmpty(intent.PSPPublicKey, intent.Credential("public_key"))
		if bridge.PublicKey == "" {
			return nil, types.NewPaymentError(types.ErrCodePSP, "Payment provider is not configured", false).
				WithDetail("provider", bridge.Provider)
		}
	}

	for _, key := range a.credentialKeys {
		if value := intent.Credential(key); value != "" {
			bridge.setExtra(key, value)
		}
	}
	return bridge, nil
}

func (a *familyAdapter) NormalizeSuccess(in PrepareInput, raw json.RawMessage) (*types.PaymentResult, error) {
	payload := decodePayload(raw)

	status := strings.ToLower(lookup(payload, a.statusKeys...))
	resultStatus := types.ResultSuccess
	switch {
	case status == "" || containsFold(a.successStatuses, status):
	case containsFold(a.pendingStatuses, status):
		resultStatus = types.ResultPending
	case containsFold(a.cancelStatuses, status):
		return nil, types.NewPaymentError(types.ErrCodePaymentCancelled, "Payment was cancelled", true).
			WithDetail("psp_status", status)
	default:
		return nil, types.NewPaymentError(types.ErrCodePSPDeclined, "Payment was declined", true).
			WithDetail("psp_status", status)
	}

	result := &types.PaymentResult{
		PaymentMethod: in.Method,
		PSP:           types.NormalizeProviderID(firstNonEmpty(in.Provider, a.family)),
		PSPReference:  lookup(payload, a.referenceKeys...),
		Status:        resultStatus,
		Metadata:      map[string]any{},
	}
	if intent := in.Intent; intent != nil {
		result.PaymentID = intent.ID
		result.Reference = firstNonEmpty(intent.Reference, intent.ID)
		result.Amount = intent.Amount
		result.Currency = intent.Currency
	}
	if status != "" {
		result.Metadata["psp_status"] = status
	}
	return result, nil
}

// NormalizeError maps a bridge failure payload. PSP rejections are always
// recoverable so the user can try another method or provider.
func (a *familyAdapter) NormalizeError(raw json.RawMessage) *types.PaymentError {
	payload := decodePayload(raw)
	if len(payload) == 0 {
		var text string
		if err := json.Unmarshal(raw, &text); err == nil && strings.TrimSpace(text) != "" {
			payload = map[string]any{"message": text}
		}
	}

	code := lookup(payload, "code", "error.code", "errorCode")
	message := lookup(payload, "message", "error.message", "errorMessage", "ResultDesc", "error")
	status := strings.ToLower(lookup(payload, a.statusKeys...))

	signal := strings.ToLower(code + " " + message + " " + status)
	var perr *types.PaymentError
	switch {
	case strings.Contains(signal, "cancel") || containsFold(a.cancelStatuses, status):
		perr = types.NewPaymentError(types.ErrCodePaymentCancelled, firstNonEmpty(message, "Payment was cancelled"), true)
	case strings.Contains(signal, "declin") || strings.Contains(signal, "insufficient"):
		perr = types.NewPaymentError(types.ErrCodePSPDeclined, firstNonEmpty(message, "Payment was declined"), true)
	default:
		perr = types.NewPaymentError(types.ErrCodePSP, firstNonEmpty(message, "Payment could not be completed"), true)
	}
	perr.WithDetail("provider", a.family)
	if code != "" {
		perr.WithDetail("psp_code", code)
	}
	return perr
}

func (b *BridgeInput) setExtra(key, value string) {
	if b.Extra == nil {
		b.Extra = map[string]string{}
	}
	b.Extra[key] = value
}

func decodePayload(raw json.RawMessage) map[string]any {
	payload := map[string]any{}
	if len(raw) == 0 {
		return payload
	}
	if err := json.Unmarshal(raw, &payload); err != nil || payload == nil {
		return map[string]any{}
	}
	return payload
}

// lookup returns the first non-empty value among dotted key paths.
func lookup(payload map[string]any, keys ...string) string {
	for _, key := range keys {
		var current any = payload
		for _, part := range strings.Split(key, ".") {
			obj, ok := current.(map[string]any)
			if !ok {
				current = nil
				break
			}
			current = obj[part]
		}
		if value := scalarString(current); value != "" {
			return value
		}
	}
	return ""
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func containsFold(values []string, target string) bool {
	for _, v := range values {
		if strings.EqualFold(v, target) {
			return true
		}
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
