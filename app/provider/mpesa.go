package provider

// NewMpesaAdapter drives an STK push. M-Pesa charges whole units and needs
// the payer's phone before the push can be sent. ResultCode 1032 is a
// cancellation on the handset.
func NewMpesaAdapter() Adapter {
	return &familyAdapter{
		family:          "mpesa",
		unit:            UnitWhole,
		requiresPhone:   true,
		credentialKeys:  []string{"shortcode"},
		referenceKeys:   []string{"MpesaReceiptNumber", "mpesa_receipt_number", "CheckoutRequestID", "checkout_request_id"},
		statusKeys:      []string{"ResultCode", "result_code"},
		successStatuses: []string{"0"},
		pendingStatuses: []string{"pending"},
		cancelStatuses:  []string{"1032"},
	}
}
