package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/vibast-solutions/lib-go-checkout/app/types"
)

var errCircuitOpen = errors.New("backend circuit is open")

// classifyTransportError maps a failed round trip onto the closed error
// vocabulary. parent is the caller context, so a caller cancellation is not
// mistaken for the client deadline.
func classifyTransportError(parent context.Context, err error) *types.PaymentError {
	switch {
	case errors.Is(err, errCircuitOpen):
		return types.NewPaymentError(types.ErrCodeNetwork, "Payment service is temporarily unavailable", true).
			WithDetail("circuit", "open")
	case errors.Is(err, context.Canceled) && parent.Err() != nil:
		return types.NewPaymentError(types.ErrCodeRequestCanceled, "Request was canceled", true)
	case errors.Is(err, context.DeadlineExceeded):
		return types.NewPaymentError(types.ErrCodeRequestTimeout, "Request timed out", true)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return types.NewPaymentError(types.ErrCodeRequestTimeout, "Request timed out", true)
	}
	return types.NewPaymentError(types.ErrCodeNetwork, "Network error, please check your connection", true)
}

// httpError builds the error for a non-2xx response. The backend may send
// {code, message, recoverable, details} flat or under an "error" key.
func httpError(status int, body []byte) *types.PaymentError {
	payload := decodeObject(body)
	if nested, ok := payload["error"].(map[string]any); ok {
		payload = nested
	}

	code := stringField(payload, "code")
	if code == "" {
		code = types.ErrCodeAPI
	}
	message := stringField(payload, "message")
	if message == "" {
		message = stringField(payload, "error")
	}
	if message == "" {
		message = http.StatusText(status)
	}
	if message == "" {
		message = "Request failed"
	}

	recoverable := true
	if flag, ok := payload["recoverable"].(bool); ok {
		recoverable = flag
	}

	perr := types.NewPaymentError(code, message, recoverable)
	if details, ok := payload["details"].(map[string]any); ok {
		for k, v := range details {
			perr.WithDetail(k, v)
		}
	}
	return perr.WithDetail("httpStatus", status)
}

func decodeObject(body []byte) map[string]any {
	payload := map[string]any{}
	if len(body) == 0 {
		return payload
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload == nil {
		return map[string]any{}
	}
	return payload
}

// decodeEnvelope unwraps an optional {"data": ...} envelope into out.
// Malformed bodies leave out at its zero value.
func decodeEnvelope(body []byte, out any) {
	if out == nil || len(body) == 0 {
		return
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err == nil {
		if data, ok := envelope["data"]; ok && len(data) > 0 && data[0] == '{' {
			body = data
		}
	}
	_ = json.Unmarshal(body, out)
}

func stringField(payload map[string]any, key string) string {
	value, ok := payload[key].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(value)
}

func outcomeOf(err *types.PaymentError) string {
	if err == nil {
		return ""
	}
	return err.Code
}
