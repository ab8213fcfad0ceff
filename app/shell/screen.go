package shell

import (
	"github.com/vibast-solutions/lib-go-checkout/app/checkout"
	"github.com/vibast-solutions/lib-go-checkout/app/types"
)

type Screen string

const (
	ScreenLoading           Screen = "loading"
	ScreenProviderSelection Screen = "provider_selection"
	ScreenMethodSelection   Screen = "method_selection"
	ScreenPhoneCapture      Screen = "phone_capture"
	ScreenProcessing        Screen = "processing"
	ScreenSuccess           Screen = "success"
	ScreenFailure           Screen = "failure"
	ScreenUnsupported       Screen = "unsupported"
	ScreenClosed            Screen = "closed"
)

// ScreenFor decides what the checkout shows for a state.
func ScreenFor(s checkout.State) Screen {
	switch s.Status {
	case checkout.StatusIdle, checkout.StatusLoading:
		return ScreenLoading
	case checkout.StatusProcessing:
		return ScreenProcessing
	case checkout.StatusSuccess:
		return ScreenSuccess
	case checkout.StatusClosed:
		return ScreenClosed
	case checkout.StatusFailed:
		if s.Error != nil && s.Error.Code == types.ErrCodeProviderNotSupported {
			return ScreenUnsupported
		}
		return ScreenFailure
	}

	if s.Provider == "" {
		return ScreenProviderSelection
	}
	if s.PhoneRequired {
		return ScreenPhoneCapture
	}
	return ScreenMethodSelection
}
