package types

import "strings"

type Method string

const (
	MethodCard         Method = "card"
	MethodMobileMoney  Method = "mobile_money"
	MethodBankTransfer Method = "bank_transfer"
	MethodUSSD         Method = "ussd"
)

func ParseMethod(raw string) (Method, bool) {
	switch Method(strings.ToLower(strings.TrimSpace(raw))) {
	case MethodCard:
		return MethodCard, true
	case MethodMobileMoney, "momo", "mobile-money":
		return MethodMobileMoney, true
	case MethodBankTransfer, "bank":
		return MethodBankTransfer, true
	case MethodUSSD:
		return MethodUSSD, true
	default:
		return "", false
	}
}

// ParseMethods keeps the input order and drops unknown and duplicate entries.
func ParseMethods(raw []string) []Method {
	result := make([]Method, 0, len(raw))
	seen := make(map[Method]struct{}, len(raw))
	for _, item := range raw {
		method, ok := ParseMethod(item)
		if !ok {
			continue
		}
		if _, dup := seen[method]; dup {
			continue
		}
		seen[method] = struct{}{}
		result = append(result, method)
	}
	return result
}

func ContainsMethod(methods []Method, method Method) bool {
	for _, m := range methods {
		if m == method {
			return true
		}
	}
	return false
}

type IntentStatus string

const (
	IntentPending        IntentStatus = "pending"
	IntentRequiresAction IntentStatus = "requires_action"
	IntentProcessing     IntentStatus = "processing"
	IntentSucceeded      IntentStatus = "succeeded"
	IntentFailed         IntentStatus = "failed"
	IntentCanceled       IntentStatus = "canceled"
)

func (s IntentStatus) IsTerminal() bool {
	return s == IntentSucceeded || s == IntentFailed || s == IntentCanceled
}

type ProviderInfo struct {
	Provider  string   `json:"provider"`
	Name      string   `json:"name"`
	Methods   []Method `json:"methods"`
	Countries []string `json:"countries,omitempty"`
}

// PaymentIntent is issued by the backend and never mutated after it is built.
// Sessions replace it wholesale on every (re)initialization.
type PaymentIntent struct {
	ID           string `json:"id"`
	ConnectionID string `json:"connection_id,omitempty"`
	Reference    string `json:"reference,omitempty"`
	ClientSecret string `json:"-"`

	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	FeeAmount   int64  `json:"fee_amount,omitempty"`
	FeeCurrency string `json:"fee_currency,omitempty"`
	NetAmount   int64  `json:"net_amount,omitempty"`

	Status IntentStatus `json:"status"`

	RecommendedPSP     string         `json:"recommended_psp"`
	AvailableProviders []ProviderInfo `json:"available_providers"`
	AvailableMethods   []Method       `json:"available_methods"`

	PSPPublicKey   string            `json:"-"`
	PSPCredentials map[string]string `json:"-"`

	Branding Theme `json:"branding,omitempty"`
}

func (p *PaymentIntent) Credential(key string) string {
	if p == nil || p.PSPCredentials == nil {
		return ""
	}
	return strings.TrimSpace(p.PSPCredentials[key])
}

func NormalizeProviderID(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
