package checkout

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vibast-solutions/lib-go-checkout/app/types"
)

func loadedState(t *testing.T, providers ...types.ProviderInfo) State {
	t.Helper()
	s := NewState(types.CheckoutConfig{Methods: []types.Method{types.MethodCard, types.MethodMobileMoney}})
	s, _ = Reduce(s, InitializeRequested{})

	caps := map[string]Capability{}
	for _, p := range providers {
		caps[p.Provider] = Capability{}
	}
	s, _ = Reduce(s, IntentLoaded{
		Generation:   s.Generation,
		Intent:       &types.PaymentIntent{ID: "pi_1", Status: types.IntentPending, AvailableProviders: providers},
		Capabilities: caps,
	})
	return s
}

func effectKinds(effects []Effect) []EffectKind {
	kinds := make([]EffectKind, 0, len(effects))
	for _, e := range effects {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

func TestInitializeOnlyFromIdle(t *testing.T) {
	s := NewState(types.CheckoutConfig{Methods: []types.Method{types.MethodCard}})

	next, effects := Reduce(s, InitializeRequested{})
	if next.Status != StatusLoading || len(effects) != 1 || effects[0].Kind != EffectCreateIntent {
		t.Fatalf("unexpected initialize result %s %v", next.Status, effectKinds(effects))
	}
	if effects[0].Method != types.MethodCard {
		t.Fatalf("single requested method should be sent, got %q", effects[0].Method)
	}

	again, effects := Reduce(next, InitializeRequested{})
	if again.Status != StatusLoading || len(effects) != 0 {
		t.Fatal("initialize while loading must be a no-op")
	}
}

func TestStaleIntentIsIgnored(t *testing.T) {
	s := NewState(types.CheckoutConfig{Methods: []types.Method{types.MethodCard}})
	s, _ = Reduce(s, InitializeRequested{})

	next, effects := Reduce(s, IntentLoaded{Generation: s.Generation + 1, Intent: &types.PaymentIntent{ID: "old"}})
	if next.Status != StatusLoading || next.Intent != nil || effects != nil {
		t.Fatal("intent from another generation must be ignored")
	}
}

func TestReduceDoesNotMutateInput(t *testing.T) {
	s := loadedState(t,
		types.ProviderInfo{Provider: "stripe", Methods: []types.Method{types.MethodCard}},
		types.ProviderInfo{Provider: "mpesa", Methods: []types.Method{types.MethodMobileMoney}},
	)
	before := s

	next, _ := Reduce(s, ProviderSelected{Provider: "stripe"})
	if next.Status != StatusProcessing {
		t.Fatalf("card-only provider should auto-advance, got %s", next.Status)
	}
	if s.Status != before.Status || s.Provider != "" || s.Attempt != before.Attempt {
		t.Fatal("input state was mutated")
	}
}

func TestClosedIgnoresEverything(t *testing.T) {
	s := loadedState(t, types.ProviderInfo{Provider: "stripe", Methods: []types.Method{types.MethodCard, types.MethodMobileMoney}})
	closed, effects := Reduce(s, Close{})
	if closed.Status != StatusClosed {
		t.Fatalf("expected closed, got %s", closed.Status)
	}
	kinds := effectKinds(effects)
	if len(kinds) != 2 || kinds[0] != EffectCancelIntent || kinds[1] != EffectNotifyClose {
		t.Fatalf("unexpected close effects %v", kinds)
	}

	for _, ev := range []Event{InitializeRequested{}, Retry{}, Reset{}, ProviderSelected{Provider: "stripe"}, Close{}} {
		next, effects := Reduce(closed, ev)
		if next.Status != StatusClosed || effects != nil {
			t.Fatalf("%s changed a closed session", ev.EventName())
		}
	}
}

func TestCloseFromIdleHasNoCancel(t *testing.T) {
	next, effects := Reduce(NewState(types.CheckoutConfig{}), Close{})
	if next.Status != StatusClosed {
		t.Fatalf("expected closed, got %s", next.Status)
	}
	if kinds := effectKinds(effects); len(kinds) != 1 || kinds[0] != EffectNotifyClose {
		t.Fatalf("unexpected effects %v", kinds)
	}
}

func TestMethodOutsideOfferIsIgnored(t *testing.T) {
	s := loadedState(t, types.ProviderInfo{Provider: "stripe", Methods: []types.Method{types.MethodCard, types.MethodMobileMoney}})
	next, effects := Reduce(s, MethodSelected{Method: types.MethodUSSD})
	if next.Method != "" || effects != nil {
		t.Fatal("ussd was not requested and must be ignored")
	}
}

func TestBankTransferNeedsExplicitContinue(t *testing.T) {
	s := NewState(types.CheckoutConfig{Methods: []types.Method{types.MethodBankTransfer}})
	s, _ = Reduce(s, InitializeRequested{})
	s, _ = Reduce(s, IntentLoaded{
		Generation:   s.Generation,
		Intent:       &types.PaymentIntent{ID: "pi_1", AvailableProviders: []types.ProviderInfo{{Provider: "monnify", Methods: []types.Method{types.MethodBankTransfer}}}},
		Capabilities: map[string]Capability{"monnify": {}},
	})
	if s.Status != StatusMethodSelected || s.Method != types.MethodBankTransfer {
		t.Fatalf("expected bank transfer selected, got %s %s", s.Status, s.Method)
	}

	next, effects := Reduce(s, Continue{})
	if next.Status != StatusProcessing || len(effects) != 1 || effects[0].Kind != EffectLaunchBridge {
		t.Fatalf("continue should launch the bridge, got %s %v", next.Status, effectKinds(effects))
	}
}

func TestBackWalksSelectionUp(t *testing.T) {
	s := loadedState(t,
		types.ProviderInfo{Provider: "stripe", Methods: []types.Method{types.MethodCard}},
		types.ProviderInfo{Provider: "mpesa", Methods: []types.Method{types.MethodMobileMoney}},
	)
	s, _ = Reduce(s, ProviderSelected{Provider: "mpesa"})
	if s.Status != StatusProcessing {
		t.Fatalf("expected processing, got %s", s.Status)
	}

	s, _ = Reduce(s, BridgeClosed{Attempt: s.Attempt})
	if s.Status != StatusMethodSelected || !s.HoldAdvance {
		t.Fatalf("expected held method selection, got %s", s.Status)
	}

	s, _ = Reduce(s, Back{})
	if s.Status != StatusReady || s.Provider != "" || s.Method != "" || s.Error != nil {
		t.Fatalf("back from a single-method provider returns to providers, got %+v", s)
	}
}

func TestNoProvidersIsTerminal(t *testing.T) {
	s := NewState(types.CheckoutConfig{Methods: []types.Method{types.MethodCard}})
	s, _ = Reduce(s, InitializeRequested{})
	s, effects := Reduce(s, IntentLoaded{Generation: s.Generation, Intent: &types.PaymentIntent{ID: "pi_1"}})

	if s.Status != StatusFailed || s.Error.Recoverable || s.Error.Code != types.ErrCodeProviderNotSupported {
		t.Fatalf("expected terminal failure, got %+v", s.Error)
	}
	if kinds := effectKinds(effects); len(kinds) != 1 || kinds[0] != EffectNotifyError {
		t.Fatalf("unexpected effects %v", kinds)
	}
}

func TestCardAdvancesOnPhoneRequiringProvider(t *testing.T) {
	s := NewState(types.CheckoutConfig{Methods: []types.Method{types.MethodCard, types.MethodMobileMoney}})
	s, _ = Reduce(s, InitializeRequested{})
	s, _ = Reduce(s, IntentLoaded{
		Generation: s.Generation,
		Intent: &types.PaymentIntent{ID: "pi_1", AvailableProviders: []types.ProviderInfo{
			{Provider: "mpesa", Methods: []types.Method{types.MethodCard, types.MethodMobileMoney}},
		}},
		Capabilities: map[string]Capability{"mpesa": {RequiresPhone: true}},
	})
	require.Equal(t, StatusReady, s.Status)

	momo, effects := Reduce(s, MethodSelected{Method: types.MethodMobileMoney})
	require.Equal(t, StatusMethodSelected, momo.Status)
	require.True(t, momo.PhoneRequired)
	require.Empty(t, effects)

	card, effects := Reduce(s, MethodSelected{Method: types.MethodCard})
	require.Equal(t, StatusProcessing, card.Status)
	require.False(t, card.PhoneRequired)
	require.Equal(t, []EffectKind{EffectLaunchBridge}, effectKinds(effects))
}
