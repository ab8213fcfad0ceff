package api

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vibast-solutions/lib-go-checkout/app/types"
)

// Policy narrows which providers the backend may route an intent to.
type Policy struct {
	Prefer            string   `json:"prefer,omitempty"`
	AllowedProviders  []string `json:"allowed_providers,omitempty"`
	ExcludedProviders []string `json:"excluded_providers,omitempty"`
}

type CreateOptions struct {
	Method  types.Method
	Country string
	Policy  *Policy
}

type createIntentRequest struct {
	Amount     int64          `json:"amount"`
	Currency   string         `json:"currency"`
	Method     string         `json:"method,omitempty"`
	Country    string         `json:"country"`
	CustomerID string         `json:"customer_id,omitempty"`
	Reference  string         `json:"reference,omitempty"`
	Phone      string         `json:"phone,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Policy     *Policy        `json:"policy,omitempty"`
}

type payLinkRequest struct {
	Amount       int64             `json:"amount"`
	Email        string            `json:"email"`
	Name         string            `json:"name"`
	Phone        string            `json:"phone"`
	Method       string            `json:"method"`
	Country      string            `json:"country"`
	Provider     string            `json:"provider,omitempty"`
	CustomFields map[string]string `json:"custom_fields"`
}

type IntentResponse struct {
	ID             string         `json:"id"`
	ConnectionID   string         `json:"connection_id"`
	Provider       string         `json:"provider"`
	Status         string         `json:"status"`
	ClientSecret   string         `json:"client_secret"`
	PSPPublicKey   string         `json:"psp_public_key,omitempty"`
	PSPCredentials map[string]any `json:"psp_credentials,omitempty"`
	Amount         int64          `json:"amount"`
	Currency       string         `json:"currency"`
	FeeAmount      int64          `json:"fee_amount"`
	FeeCurrency    string         `json:"fee_currency"`
	NetAmount      int64          `json:"net_amount"`
	Reference      string         `json:"reference,omitempty"`
	AvailablePSPs  []AvailablePSP `json:"available_psps,omitempty"`
	Branding       map[string]any `json:"branding,omitempty"`
}

type AvailablePSP struct {
	Provider  string   `json:"provider"`
	Name      string   `json:"name"`
	Methods   []string `json:"methods"`
	Countries []string `json:"countries"`
}

// UnmarshalJSON accepts both the object form and a bare provider id string.
func (a *AvailablePSP) UnmarshalJSON(data []byte) error {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		*a = AvailablePSP{Provider: id}
		return nil
	}
	type plain AvailablePSP
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*a = AvailablePSP(decoded)
	return nil
}

type PaymentResponse struct {
	ID           string         `json:"id"`
	Status       string         `json:"status"`
	Reference    string         `json:"reference"`
	Amount       int64          `json:"amount"`
	Currency     string         `json:"currency"`
	Provider     string         `json:"provider"`
	Method       string         `json:"method"`
	PSPReference string         `json:"psp_reference"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

type ProviderSession struct {
	Token            string `json:"token"`
	MerchantAccount  string `json:"merchantAccount"`
	BasicAuth        string `json:"basicAuth,omitempty"`
	ExpiresInSeconds int64  `json:"expiresInSeconds"`
	ExpiresAt        string `json:"expiresAt"`
}

// IntentFromResponse builds the immutable intent the checkout session owns.
// Provider and intent methods are intersected with requested, and providers
// left without methods are dropped.
func IntentFromResponse(resp *IntentResponse, requested []types.Method) *types.PaymentIntent {
	if resp == nil {
		return nil
	}

	intent := &types.PaymentIntent{
		ID:             strings.TrimSpace(resp.ID),
		ConnectionID:   strings.TrimSpace(resp.ConnectionID),
		Reference:      strings.TrimSpace(resp.Reference),
		ClientSecret:   strings.TrimSpace(resp.ClientSecret),
		Amount:         resp.Amount,
		Currency:       strings.ToUpper(strings.TrimSpace(resp.Currency)),
		FeeAmount:      resp.FeeAmount,
		FeeCurrency:    strings.ToUpper(strings.TrimSpace(resp.FeeCurrency)),
		NetAmount:      resp.NetAmount,
		Status:         parseIntentStatus(resp.Status),
		RecommendedPSP: strings.ToLower(strings.TrimSpace(resp.Provider)),
		PSPPublicKey:   strings.TrimSpace(resp.PSPPublicKey),
		PSPCredentials: stringifyMap(resp.PSPCredentials),
		Branding:       types.Theme(stringifyMap(resp.Branding)),
	}

	seen := map[types.Method]struct{}{}
	for _, psp := range resp.AvailablePSPs {
		id := strings.ToLower(strings.TrimSpace(psp.Provider))
		if id == "" {
			continue
		}
		methods := intersect(types.ParseMethods(psp.Methods), requested)
		if len(methods) == 0 {
			continue
		}
		name := strings.TrimSpace(psp.Name)
		if name == "" {
			name = id
		}
		intent.AvailableProviders = append(intent.AvailableProviders, types.ProviderInfo{
			Provider:  id,
			Name:      name,
			Methods:   methods,
			Countries: append([]string(nil), psp.Countries...),
		})
		for _, m := range methods {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			intent.AvailableMethods = append(intent.AvailableMethods, m)
		}
	}

	if len(resp.AvailablePSPs) == 0 {
		intent.AvailableMethods = append([]types.Method(nil), requested...)
	}

	return intent
}

func intersect(methods []types.Method, allowed []types.Method) []types.Method {
	if len(allowed) == 0 {
		return methods
	}
	result := make([]types.Method, 0, len(methods))
	for _, m := range methods {
		if types.ContainsMethod(allowed, m) {
			result = append(result, m)
		}
	}
	return result
}

func parseIntentStatus(raw string) types.IntentStatus {
	switch status := types.IntentStatus(strings.ToLower(strings.TrimSpace(raw))); status {
	case types.IntentPending, types.IntentRequiresAction, types.IntentProcessing,
		types.IntentSucceeded, types.IntentFailed, types.IntentCanceled:
		return status
	case "cancelled":
		return types.IntentCanceled
	default:
		return types.IntentPending
	}
}

func stringifyMap(src map[string]any) map[string]string {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]string, len(src))
	for k, v := range src {
		switch t := v.(type) {
		case nil:
			continue
		case string:
			dst[k] = t
		default:
			dst[k] = fmt.Sprint(t)
		}
	}
	return dst
}
