package types

import (
	"errors"
	"fmt"
)

const (
	ErrCodeRequestTimeout       = "request_timeout"
	ErrCodeNetwork              = "network_error"
	ErrCodeRequestCanceled      = "request_canceled"
	ErrCodeValidation           = "validation_error"
	ErrCodeAPI                  = "api_error"
	ErrCodePSP                  = "psp_error"
	ErrCodePSPDeclined          = "psp_declined"
	ErrCodePaymentCancelled     = "payment_cancelled"
	ErrCodeProviderNotSupported = "provider_not_supported"
	ErrCodeSessionUnavailable   = "session_unavailable"
	ErrCodeConfirmationFailed   = "confirmation_failed"
	ErrCodeUnknown              = "unknown_error"
)

type ResultStatus string

const (
	ResultSuccess ResultStatus = "success"
	ResultPending ResultStatus = "pending"
)

type PaymentResult struct {
	PaymentID     string         `json:"payment_id"`
	Reference     string         `json:"reference"`
	Amount        int64          `json:"amount"`
	Currency      string         `json:"currency"`
	PaymentMethod Method         `json:"payment_method"`
	PSP           string         `json:"psp"`
	PSPReference  string         `json:"psp_reference"`
	Status        ResultStatus   `json:"status"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// PaymentError is the only error shape that leaves the checkout core.
type PaymentError struct {
	Code        string         `json:"code"`
	Message     string         `json:"message"`
	Recoverable bool           `json:"recoverable"`
	Details     map[string]any `json:"details,omitempty"`
}

func (e *PaymentError) Error() string {
	if e == nil {
		return ""
	}
	if e.Message == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewPaymentError(code, message string, recoverable bool) *PaymentError {
	return &PaymentError{Code: code, Message: message, Recoverable: recoverable}
}

func (e *PaymentError) WithDetail(key string, value any) *PaymentError {
	if e.Details == nil {
		e.Details = map[string]any{}
	}
	e.Details[key] = value
	return e
}

func NewValidationError(message string) *PaymentError {
	return NewPaymentError(ErrCodeValidation, message, true)
}

func NewProviderNotSupportedError(provider string) *PaymentError {
	return NewPaymentError(ErrCodeProviderNotSupported, "This payment provider is not supported.", false).
		WithDetail("provider", provider)
}

// AsPaymentError never returns nil for a non-nil err.
func AsPaymentError(err error) *PaymentError {
	if err == nil {
		return nil
	}
	var pe *PaymentError
	if errors.As(err, &pe) && pe != nil {
		return pe
	}
	return NewPaymentError(ErrCodeUnknown, err.Error(), true)
}
