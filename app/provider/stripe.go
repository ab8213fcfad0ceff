package provider

// NewStripeAdapter drives Stripe Elements. The PSP-side client secret is
// passed through so the bridge can confirm the Stripe PaymentIntent.
func NewStripeAdapter() Adapter {
	return &familyAdapter{
		family:          "stripe",
		unit:            UnitMinor,
		credentialKeys:  []string{"client_secret", "account_id"},
		referenceKeys:   []string{"paymentIntent.id", "payment_intent.id", "id"},
		statusKeys:      []string{"paymentIntent.status", "payment_intent.status", "status"},
		successStatuses: []string{"succeeded"},
		pendingStatuses: []string{"processing", "requires_capture"},
		cancelStatuses:  []string{"canceled"},
	}
}
