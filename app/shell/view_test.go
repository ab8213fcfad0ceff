package shell

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/vibast-solutions/lib-go-checkout/app/checkout"
	"github.com/vibast-solutions/lib-go-checkout/app/resolver"
	"github.com/vibast-solutions/lib-go-checkout/app/types"
)

func intentState() checkout.State {
	s := checkout.NewState(types.CheckoutConfig{
		Methods: []types.Method{types.MethodCard, types.MethodMobileMoney},
		Theme:   types.Theme{"primary_color": "#000000"},
	})
	s.Status = checkout.StatusReady
	s.Intent = &types.PaymentIntent{
		ID:           "pi_1",
		Amount:       20000,
		Currency:     "GHS",
		ClientSecret: "secret",
		PSPPublicKey: "pk_psp",
		AvailableProviders: []types.ProviderInfo{
			{Provider: "paystack", Methods: []types.Method{types.MethodCard, types.MethodMobileMoney}},
		},
		Branding: types.Theme{"primary_color": "#ffffff", "logo_url": "https://cdn.example.com/logo.png"},
	}
	s.Providers = resolver.ResolveProviders(s.Intent, s.Requested)
	s.Capabilities = map[string]checkout.Capability{"paystack": {}}
	return s
}

func TestScreenFor(t *testing.T) {
	base := intentState()

	tests := []struct {
		name  string
		state func() checkout.State
		want  Screen
	}{
		{"idle", func() checkout.State { return checkout.NewState(types.CheckoutConfig{}) }, ScreenLoading},
		{"provider list", func() checkout.State { return base }, ScreenProviderSelection},
		{"methods", func() checkout.State {
			s := base
			s.Provider = "paystack"
			return s
		}, ScreenMethodSelection},
		{"phone", func() checkout.State {
			s := base
			s.Status = checkout.StatusMethodSelected
			s.Provider = "mpesa"
			s.PhoneRequired = true
			return s
		}, ScreenPhoneCapture},
		{"processing", func() checkout.State {
			s := base
			s.Status = checkout.StatusProcessing
			return s
		}, ScreenProcessing},
		{"unsupported", func() checkout.State {
			s := base
			s.Status = checkout.StatusFailed
			s.Error = types.NewProviderNotSupportedError("newpsp")
			return s
		}, ScreenUnsupported},
		{"failure", func() checkout.State {
			s := base
			s.Status = checkout.StatusFailed
			s.Error = types.NewPaymentError(types.ErrCodeRequestTimeout, "timeout", true)
			return s
		}, ScreenFailure},
		{"success", func() checkout.State {
			s := base
			s.Status = checkout.StatusSuccess
			return s
		}, ScreenSuccess},
		{"closed", func() checkout.State {
			s := base
			s.Status = checkout.StatusClosed
			return s
		}, ScreenClosed},
	}

	for _, tt := range tests {
		if got := ScreenFor(tt.state()); got != tt.want {
			t.Fatalf("%s: ScreenFor = %s, want %s", tt.name, got, tt.want)
		}
	}
}

func TestProjectSingleProviderScenario(t *testing.T) {
	s := intentState()
	s.Provider = "paystack"

	view := Project(s)
	if view.Screen != ScreenMethodSelection {
		t.Fatalf("expected method selection, got %s", view.Screen)
	}
	if len(view.Methods) != 2 || view.Methods[0] != types.MethodCard || view.Methods[1] != types.MethodMobileMoney {
		t.Fatalf("expected card and mobile money, got %v", view.Methods)
	}
	if view.Amount == nil || view.Amount.Value != 20000 || view.Amount.Currency != "GHS" {
		t.Fatalf("unexpected amount %+v", view.Amount)
	}
	if view.Theme["primary_color"] != "#000000" {
		t.Fatalf("caller theme must win, got %s", view.Theme["primary_color"])
	}
	if view.Theme["logo_url"] == "" {
		t.Fatal("branding keys the caller did not override must survive")
	}
	if !view.Interactive || !view.CanGoBack || view.CanRetry {
		t.Fatalf("unexpected affordances %+v", view)
	}
}

func TestProjectDisablesControlsWhileProcessing(t *testing.T) {
	s := intentState()
	s.Status = checkout.StatusProcessing
	s.Provider = "paystack"
	s.Method = types.MethodCard

	view := Project(s)
	if view.Interactive || view.CanGoBack || view.CanRetry {
		t.Fatalf("controls must be disabled while processing: %+v", view)
	}
}

func TestProjectRetryAffordance(t *testing.T) {
	s := intentState()
	s.Status = checkout.StatusFailed
	s.Error = types.NewPaymentError(types.ErrCodePSPDeclined, "declined", true)
	if view := Project(s); !view.CanRetry || !view.CanGoBack {
		t.Fatalf("recoverable failure should offer retry and back: %+v", view)
	}

	s.Error = types.NewProviderNotSupportedError("newpsp")
	if view := Project(s); view.CanRetry || !view.CanGoBack {
		t.Fatalf("unsupported provider offers only back: %+v", view)
	}
}

func TestProjectNeverLeaksCredentials(t *testing.T) {
	encoded, err := json.Marshal(Project(intentState()))
	if err != nil {
		t.Fatalf("marshal view: %v", err)
	}
	body := string(encoded)
	for _, secret := range []string{"secret", "pk_psp"} {
		if strings.Contains(body, secret) {
			t.Fatalf("view leaked %q: %s", secret, body)
		}
	}
}

func TestProjectEmptyState(t *testing.T) {
	view := Project(checkout.NewState(types.CheckoutConfig{}))
	if view.Providers == nil || view.Methods == nil {
		t.Fatal("lists must encode as empty arrays")
	}
	if view.Amount != nil || view.CanGoBack {
		t.Fatalf("unexpected view %+v", view)
	}
}
