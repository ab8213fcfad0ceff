package types

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

type Customer struct {
	ID    string `json:"id,omitempty"`
	Email string `json:"email,omitempty" validate:"omitempty,email"`
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// CheckoutConfig is what the embedding application hands to a checkout
// session. Amount is always in the smallest currency unit.
type CheckoutConfig struct {
	Amount            int64             `json:"amount" validate:"gt=0"`
	Currency          string            `json:"currency" validate:"required,len=3,alpha"`
	Customer          Customer          `json:"customer"`
	Reference         string            `json:"reference,omitempty"`
	IdempotencyKey    string            `json:"idempotency_key,omitempty"`
	Methods           []Method          `json:"methods" validate:"min=1,dive,oneof=card mobile_money bank_transfer ussd"`
	PreferredProvider string            `json:"preferred_provider,omitempty"`
	AllowedProviders  []string          `json:"allowed_providers,omitempty"`
	Country           string            `json:"country,omitempty" validate:"omitempty,len=2,alpha"`
	Metadata          map[string]any    `json:"metadata,omitempty"`
	CustomFields      map[string]string `json:"custom_fields,omitempty"`
	Theme             Theme             `json:"theme,omitempty"`
	SuccessDelay      time.Duration     `json:"success_delay,omitempty" validate:"gte=0"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func configValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

func (c *CheckoutConfig) Normalize() {
	c.Currency = strings.ToUpper(strings.TrimSpace(c.Currency))
	c.Country = strings.ToUpper(strings.TrimSpace(c.Country))
	c.Reference = strings.TrimSpace(c.Reference)
	c.IdempotencyKey = strings.TrimSpace(c.IdempotencyKey)
	c.PreferredProvider = strings.ToLower(strings.TrimSpace(c.PreferredProvider))
	c.Customer.Email = strings.TrimSpace(c.Customer.Email)
	c.Customer.Phone = strings.TrimSpace(c.Customer.Phone)

	raw := make([]string, 0, len(c.Methods))
	for _, m := range c.Methods {
		raw = append(raw, string(m))
	}
	c.Methods = ParseMethods(raw)

	allowed := make([]string, 0, len(c.AllowedProviders))
	for _, p := range c.AllowedProviders {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			allowed = append(allowed, p)
		}
	}
	c.AllowedProviders = allowed
}

// Validate reports the first invalid field as a recoverable validation error.
func (c *CheckoutConfig) Validate() error {
	err := configValidator().Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return NewValidationError(fmt.Sprintf("%s is invalid (%s)", strings.ToLower(fe.Namespace()), fe.Tag())).
			WithDetail("field", fe.Field())
	}
	return NewValidationError(err.Error())
}
