package shell

import (
	"github.com/vibast-solutions/lib-go-checkout/app/checkout"
	"github.com/vibast-solutions/lib-go-checkout/app/resolver"
	"github.com/vibast-solutions/lib-go-checkout/app/types"
)

type Amount struct {
	Value    int64  `json:"value"`
	Currency string `json:"currency"`
	Fee      int64  `json:"fee,omitempty"`
}

// View is the render model of a session. It carries no credentials.
type View struct {
	Screen   Screen          `json:"screen"`
	Status   checkout.Status `json:"status"`
	Amount   *Amount         `json:"amount,omitempty"`
	IntentID string          `json:"intent_id,omitempty"`

	Providers        []resolver.ProviderOption `json:"providers"`
	SelectedProvider string                    `json:"selected_provider,omitempty"`
	Methods          []types.Method            `json:"methods"`
	SelectedMethod   types.Method              `json:"selected_method,omitempty"`
	PhoneRequired    bool                      `json:"phone_required"`

	Error  *types.PaymentError  `json:"error,omitempty"`
	Result *types.PaymentResult `json:"result,omitempty"`
	Theme  types.Theme          `json:"theme,omitempty"`

	Interactive bool `json:"interactive"`
	CanRetry    bool `json:"can_retry"`
	CanGoBack   bool `json:"can_go_back"`
}

func Project(s checkout.State) View {
	view := View{
		Screen:           ScreenFor(s),
		Status:           s.Status,
		Providers:        s.Providers,
		SelectedProvider: s.Provider,
		SelectedMethod:   s.Method,
		PhoneRequired:    s.PhoneRequired,
		Error:            s.Error,
		Result:           s.Result,
		Interactive:      s.Interactive(),
	}
	if view.Providers == nil {
		view.Providers = []resolver.ProviderOption{}
	}

	var branding types.Theme
	if s.Intent != nil {
		branding = s.Intent.Branding
		view.IntentID = s.Intent.ID
		view.Amount = &Amount{Value: s.Intent.Amount, Currency: s.Intent.Currency, Fee: s.Intent.FeeAmount}
		view.Methods = s.MethodsFor(s.Provider)
	}
	if view.Methods == nil {
		view.Methods = []types.Method{}
	}
	view.Theme = types.MergeTheme(branding, s.Theme)

	if s.Error != nil && view.Interactive {
		view.CanRetry = s.Error.Recoverable
	}
	view.CanGoBack = view.Interactive && s.Intent != nil &&
		(s.Provider != "" || s.Method != "" || s.Status == checkout.StatusFailed)
	return view
}
