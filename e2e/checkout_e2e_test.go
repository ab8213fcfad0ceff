//go:build e2e
// +build e2e

package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"
)

const defaultCheckoutHTTPBase = "http://localhost:48080"

type httpClient struct {
	baseURL string
	client  *http.Client
}

func newHTTPClient(baseURL string) *httpClient {
	return &httpClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *httpClient) doJSON(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()

	var reqBody *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("json marshal failed: %v", err)
		}
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	if err != nil {
		t.Fatalf("new request failed: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-ID", fmt.Sprintf("e2e-http-%d", time.Now().UnixNano()))

	resp, err := c.client.Do(req)
	if err != nil {
		t.Fatalf("http request failed: %v", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response failed: %v", err)
	}

	return resp, bodyBytes
}

type sessionView struct {
	ID   string `json:"id"`
	View struct {
		Screen           string `json:"screen"`
		Status           string `json:"status"`
		IntentID         string `json:"intent_id"`
		SelectedProvider string `json:"selected_provider"`
		CanRetry         bool   `json:"can_retry"`
		Providers        []struct {
			Provider string   `json:"provider"`
			Methods  []string `json:"methods"`
		} `json:"providers"`
		Error *struct {
			Code        string `json:"code"`
			Recoverable bool   `json:"recoverable"`
		} `json:"error"`
		Result *struct {
			PaymentID    string `json:"payment_id"`
			PSPReference string `json:"psp_reference"`
		} `json:"result"`
		Theme map[string]string `json:"theme"`
	} `json:"view"`
	Bridge *struct {
		Input struct {
			Family    string `json:"family"`
			Amount    string `json:"amount"`
			PublicKey string `json:"public_key"`
		} `json:"input"`
	} `json:"bridge"`
}

func (c *httpClient) session(t *testing.T, method, path string, body any, wantStatus int) sessionView {
	t.Helper()
	resp, raw := c.doJSON(t, method, path, body)
	if resp.StatusCode != wantStatus {
		t.Fatalf("%s %s: expected %d, got %d body=%s", method, path, wantStatus, resp.StatusCode, string(raw))
	}
	var out sessionView
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal session failed: %v body=%s", err, string(raw))
	}
	return out
}

func waitForHTTP(baseURL string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	client := &http.Client{Timeout: 2 * time.Second}
	for time.Now().Before(deadline) {
		resp, err := client.Get(baseURL + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(500 * time.Millisecond)
	}
	return fmt.Errorf("http service not ready at %s", baseURL)
}

func TestCheckoutE2E(t *testing.T) {
	httpBase := os.Getenv("CHECKOUT_HTTP_URL")
	if httpBase == "" {
		httpBase = defaultCheckoutHTTPBase
	}
	if err := waitForHTTP(httpBase, 30*time.Second); err != nil {
		t.Fatalf("http not ready: %v", err)
	}

	client := newHTTPClient(httpBase)
	order := map[string]any{
		"amount":   20000,
		"currency": "GHS",
		"customer": map[string]any{"email": "ama@example.com"},
		"theme":    map[string]any{"primary_color": "#111111"},
	}

	t.Run("HTTPValidationCreate", func(t *testing.T) {
		resp, body := client.doJSON(t, http.MethodPost, "/sessions", map[string]any{"amount": 0})
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d body=%s", resp.StatusCode, string(body))
		}
	})

	t.Run("HTTPGetNotFound", func(t *testing.T) {
		resp, body := client.doJSON(t, http.MethodGet, "/sessions/does-not-exist", nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("expected 404, got %d body=%s", resp.StatusCode, string(body))
		}
	})

	t.Run("CardPaymentSucceeds", func(t *testing.T) {
		s := client.session(t, http.MethodPost, "/sessions", order, http.StatusCreated)
		if s.View.Screen != "provider_selection" || len(s.View.Providers) != 2 {
			t.Fatalf("expected two providers to choose from, got %+v", s.View)
		}
		if s.View.Theme["primary_color"] != "#111111" {
			t.Fatalf("caller theme should override branding, got %v", s.View.Theme)
		}

		s = client.session(t, http.MethodPost, "/sessions/"+s.ID+"/provider", map[string]any{"provider": "paystack"}, http.StatusOK)
		if s.View.Screen != "method_selection" {
			t.Fatalf("expected method selection, got %s", s.View.Screen)
		}

		s = client.session(t, http.MethodPost, "/sessions/"+s.ID+"/method", map[string]any{"method": "card"}, http.StatusOK)
		if s.Bridge == nil || s.Bridge.Input.Family != "paystack" || s.Bridge.Input.Amount != "20000" {
			t.Fatalf("expected a paystack bridge launch, got %+v", s.Bridge)
		}

		s = client.session(t, http.MethodPost, "/sessions/"+s.ID+"/bridge/success",
			map[string]any{"payload": map[string]any{"reference": "T-e2e", "status": "success"}}, http.StatusOK)
		if s.View.Status != "success" || s.View.Result == nil || s.View.Result.PSPReference != "T-e2e" {
			t.Fatalf("expected success, got %+v", s.View)
		}
	})

	t.Run("CloseCancelsIntent", func(t *testing.T) {
		s := client.session(t, http.MethodPost, "/sessions", order, http.StatusCreated)
		intentID := s.View.IntentID

		s = client.session(t, http.MethodPost, "/sessions/"+s.ID+"/close", nil, http.StatusOK)
		if s.View.Status != "closed" {
			t.Fatalf("expected closed, got %s", s.View.Status)
		}
		if !backend.wasCancelled(intentID) {
			t.Fatalf("expected %s to be cancelled on the backend", intentID)
		}

		resp, _ := client.doJSON(t, http.MethodGet, "/sessions/"+s.ID, nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("closed session should be gone, got %d", resp.StatusCode)
		}
	})

	t.Run("BackendFailureIsRetryable", func(t *testing.T) {
		failing := map[string]any{"amount": 13, "currency": "GHS"}
		s := client.session(t, http.MethodPost, "/sessions", failing, http.StatusCreated)
		if s.View.Screen != "failure" || s.View.Error == nil || !s.View.CanRetry {
			t.Fatalf("expected retryable failure, got %+v", s.View)
		}
		if s.View.Error.Code != "psp_unavailable" {
			t.Fatalf("expected server error code, got %s", s.View.Error.Code)
		}
	})

	t.Run("MetricsExposed", func(t *testing.T) {
		resp, body := client.doJSON(t, http.MethodGet, "/metrics", nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		if !bytes.Contains(body, []byte("checkout_session_transitions_total")) {
			t.Fatal("expected checkout transition metrics")
		}
	})
}
