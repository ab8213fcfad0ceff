package types

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

type CreateSessionRequest struct {
	CheckoutConfig
	SuccessDelayMs int64 `json:"success_delay_ms"`
}

func NewCreateSessionRequestFromContext(ctx echo.Context) (*CreateSessionRequest, error) {
	var body CreateSessionRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	if body.SuccessDelayMs > 0 {
		body.SuccessDelay = time.Duration(body.SuccessDelayMs) * time.Millisecond
	}
	if body.Reference == "" {
		body.Reference = strings.TrimSpace(ctx.Request().Header.Get(echo.HeaderXRequestID))
	}
	body.Normalize()
	return &body, nil
}

type SelectProviderRequest struct {
	Provider string `json:"provider"`
}

func NewSelectProviderRequestFromContext(ctx echo.Context) (*SelectProviderRequest, error) {
	var body SelectProviderRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.Provider = strings.ToLower(strings.TrimSpace(body.Provider))
	return &body, nil
}

func (r *SelectProviderRequest) Validate() error {
	if r.Provider == "" {
		return errors.New("provider is required")
	}
	return nil
}

type SelectMethodRequest struct {
	Method string `json:"method"`
}

func NewSelectMethodRequestFromContext(ctx echo.Context) (*SelectMethodRequest, error) {
	var body SelectMethodRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	return &body, nil
}

func (r *SelectMethodRequest) Parsed() (Method, error) {
	method, ok := ParseMethod(r.Method)
	if !ok {
		return "", errors.New("method must be card, mobile_money, bank_transfer, or ussd")
	}
	return method, nil
}

type SubmitPhoneRequest struct {
	Phone string `json:"phone"`
}

func NewSubmitPhoneRequestFromContext(ctx echo.Context) (*SubmitPhoneRequest, error) {
	var body SubmitPhoneRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.Phone = strings.TrimSpace(body.Phone)
	return &body, nil
}

func (r *SubmitPhoneRequest) Validate() error {
	digits := 0
	for _, ch := range r.Phone {
		if ch >= '0' && ch <= '9' {
			digits++
		}
	}
	if digits < 7 {
		return errors.New("phone must contain at least 7 digits")
	}
	return nil
}

// BridgeCallbackRequest carries a vendor SDK callback payload verbatim.
type BridgeCallbackRequest struct {
	Payload json.RawMessage `json:"payload"`
}

func NewBridgeCallbackRequestFromContext(ctx echo.Context) (*BridgeCallbackRequest, error) {
	var body BridgeCallbackRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	return &body, nil
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
