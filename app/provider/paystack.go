package provider

// NewPaystackAdapter drives Paystack Inline. Amounts are sent in the
// smallest currency unit.
func NewPaystackAdapter() Adapter {
	return &familyAdapter{
		family:          "paystack",
		unit:            UnitMinor,
		referenceKeys:   []string{"reference", "trxref", "trans", "transaction"},
		statusKeys:      []string{"status"},
		successStatuses: []string{"success"},
		pendingStatuses: []string{"pending", "ongoing"},
		cancelStatuses:  []string{"abandoned", "cancelled"},
	}
}
