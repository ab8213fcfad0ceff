package resolver

import (
	"strings"

	"github.com/vibast-solutions/lib-go-checkout/app/types"
)

// ProviderOption is a provider the user can pick, with the methods it may
// actually be used for in this checkout.
type ProviderOption struct {
	Provider    string         `json:"provider"`
	Name        string         `json:"name"`
	Methods     []types.Method `json:"methods"`
	Recommended bool           `json:"recommended,omitempty"`
}

// aggregators run their own method routing, so only card and mobile money
// are exposed for them.
var aggregators = []string{"paystack", "flutterwave", "hubtel"}

var aggregatorMethods = []types.Method{types.MethodCard, types.MethodMobileMoney}

var displayNames = map[string]string{
	"paystack":    "Paystack",
	"stripe":      "Stripe",
	"hubtel":      "Hubtel",
	"flutterwave": "Flutterwave",
	"monnify":     "Monnify",
	"mpesa":       "M-Pesa",
}

func IsAggregator(provider string) bool {
	id := types.NormalizeProviderID(provider)
	for _, a := range aggregators {
		if id == a || strings.HasPrefix(id, a+"_") || strings.HasPrefix(id, a+"-") {
			return true
		}
	}
	return false
}

func DisplayName(provider string) string {
	id := types.NormalizeProviderID(provider)
	if name, ok := displayNames[id]; ok {
		return name
	}
	for family, name := range displayNames {
		if strings.HasPrefix(id, family+"_") || strings.HasPrefix(id, family+"-") {
			return name
		}
	}
	return id
}

// ResolveProviders lists the selectable providers in backend order. A nil
// intent resolves to nothing.
func ResolveProviders(intent *types.PaymentIntent, requested []types.Method) []ProviderOption {
	if intent == nil {
		return nil
	}

	candidates := intent.AvailableProviders
	if len(candidates) == 0 {
		id := types.NormalizeProviderID(intent.RecommendedPSP)
		if id == "" {
			return nil
		}
		candidates = []types.ProviderInfo{{
			Provider: id,
			Methods:  intent.AvailableMethods,
		}}
	}

	recommended := types.NormalizeProviderID(intent.RecommendedPSP)
	options := make([]ProviderOption, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	for _, candidate := range candidates {
		id := types.NormalizeProviderID(candidate.Provider)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}

		offered := candidate.Methods
		if IsAggregator(id) {
			offered = aggregatorMethods
		}
		methods := filterMethods(offered, requested)
		if len(methods) == 0 {
			continue
		}
		seen[id] = struct{}{}

		name := strings.TrimSpace(candidate.Name)
		if name == "" || name == id {
			name = DisplayName(id)
		}
		options = append(options, ProviderOption{
			Provider:    id,
			Name:        name,
			Methods:     methods,
			Recommended: id == recommended,
		})
	}
	return options
}

// AutoSelect returns the only option, if there is exactly one.
func AutoSelect(options []ProviderOption) (ProviderOption, bool) {
	if len(options) != 1 {
		return ProviderOption{}, false
	}
	return options[0], true
}

func Find(options []ProviderOption, provider string) (ProviderOption, bool) {
	id := types.NormalizeProviderID(provider)
	for _, o := range options {
		if o.Provider == id {
			return o, true
		}
	}
	return ProviderOption{}, false
}

// MethodsOf returns the union of the options' methods in first-seen order.
func MethodsOf(options []ProviderOption) []types.Method {
	var result []types.Method
	for _, o := range options {
		for _, m := range o.Methods {
			if !types.ContainsMethod(result, m) {
				result = append(result, m)
			}
		}
	}
	return result
}

func filterMethods(offered, requested []types.Method) []types.Method {
	result := make([]types.Method, 0, len(offered))
	for _, m := range offered {
		if len(requested) > 0 && !types.ContainsMethod(requested, m) {
			continue
		}
		if types.ContainsMethod(result, m) {
			continue
		}
		result = append(result, m)
	}
	return result
}
