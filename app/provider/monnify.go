package provider

// NewMonnifyAdapter drives the Monnify SDK, which takes a contract code
// alongside the public key.
func NewMonnifyAdapter() Adapter {
	return &familyAdapter{
		family:          "monnify",
		unit:            UnitMajor,
		credentialKeys:  []string{"contract_code"},
		referenceKeys:   []string{"transactionReference", "paymentReference"},
		statusKeys:      []string{"paymentStatus", "status"},
		successStatuses: []string{"paid", "success", "overpaid"},
		pendingStatuses: []string{"pending", "partially_paid"},
		cancelStatuses:  []string{"user_cancelled", "cancelled"},
	}
}
