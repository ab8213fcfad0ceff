package provider

func NewFlutterwaveAdapter() Adapter {
	return &familyAdapter{
		family:          "flutterwave",
		unit:            UnitMajor,
		referenceKeys:   []string{"flw_ref", "transaction_id", "tx_ref"},
		statusKeys:      []string{"status"},
		successStatuses: []string{"successful", "completed"},
		pendingStatuses: []string{"pending"},
		cancelStatuses:  []string{"cancelled"},
	}
}
