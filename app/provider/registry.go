package provider

import (
	"errors"
	"strings"

	"github.com/vibast-solutions/lib-go-checkout/app/types"
)

var ErrProviderNotSupported = errors.New("provider is not supported")

type Registry struct {
	adapters map[string]Adapter
	families []string
}

func NewRegistry(adapters ...Adapter) *Registry {
	items := make(map[string]Adapter, len(adapters))
	families := make([]string, 0, len(adapters))
	for _, a := range adapters {
		family := types.NormalizeProviderID(a.Family())
		if _, dup := items[family]; !dup {
			families = append(families, family)
		}
		items[family] = a
	}
	return &Registry{adapters: items, families: families}
}

func DefaultRegistry() *Registry {
	return NewRegistry(
		NewPaystackAdapter(),
		NewStripeAdapter(),
		NewHubtelAdapter(),
		NewFlutterwaveAdapter(),
		NewMonnifyAdapter(),
		NewMpesaAdapter(),
	)
}

// Get matches the provider id case-insensitively, falling back to a family
// prefix such as "paystack_gh" or "mpesa-ke".
func (r *Registry) Get(provider string) (Adapter, error) {
	id := types.NormalizeProviderID(provider)
	if id == "" {
		return nil, ErrProviderNotSupported
	}
	if adapter, ok := r.adapters[id]; ok {
		return adapter, nil
	}
	for _, family := range r.families {
		if strings.HasPrefix(id, family+"_") || strings.HasPrefix(id, family+"-") {
			return r.adapters[family], nil
		}
	}
	return nil, ErrProviderNotSupported
}

func (r *Registry) Families() []string {
	return append([]string(nil), r.families...)
}
