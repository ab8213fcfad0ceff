package provider

// NewHubtelAdapter drives Hubtel checkout. Hubtel never receives raw
// credentials: the bridge waits for a backend-issued session.
func NewHubtelAdapter() Adapter {
	return &familyAdapter{
		family:          "hubtel",
		unit:            UnitMajor,
		needsSession:    true,
		referenceKeys:   []string{"data.transactionId", "transactionId", "data.checkoutId", "checkoutId", "data.clientReference", "clientReference"},
		statusKeys:      []string{"data.status", "status"},
		successStatuses: []string{"success", "paid", "successful"},
		pendingStatuses: []string{"pending", "unpaid"},
		cancelStatuses:  []string{"cancelled"},
	}
}
