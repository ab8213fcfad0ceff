package provider

import (
	"encoding/json"
	"sync/atomic"

	"github.com/vibast-solutions/lib-go-checkout/app/types"
)

type Handlers struct {
	Success func(*types.PaymentResult)
	Failure func(*types.PaymentError)
	Closed  func()
}

// Bind adapts raw bridge callbacks to normalized handlers. Only the first
// callback a bridge fires is delivered.
func Bind(adapter Adapter, in PrepareInput, h Handlers) Callbacks {
	var done atomic.Bool

	return Callbacks{
		OnSuccess: func(raw json.RawMessage) {
			if !done.CompareAndSwap(false, true) {
				return
			}
			result, err := adapter.NormalizeSuccess(in, raw)
			if err != nil {
				if h.Failure != nil {
					h.Failure(types.AsPaymentError(err))
				}
				return
			}
			if h.Success != nil {
				h.Success(result)
			}
		},
		OnError: func(raw json.RawMessage) {
			if !done.CompareAndSwap(false, true) {
				return
			}
			if h.Failure != nil {
				h.Failure(adapter.NormalizeError(raw))
			}
		},
		OnClose: func() {
			if !done.CompareAndSwap(false, true) {
				return
			}
			if h.Closed != nil {
				h.Closed()
			}
		},
	}
}
