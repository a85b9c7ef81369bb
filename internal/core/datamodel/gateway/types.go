package gateway

import "fmt"

// Intent statuses as the provider reports them.
const (
	StatusRequiresPaymentMethod = "requires_payment_method"
	StatusRequiresAction        = "requires_action"
	StatusProcessing            = "processing"
	StatusSucceeded             = "succeeded"
	StatusPaymentFailed         = "payment_failed"
)

type CardDetails struct {
	Brand string `json:"brand"`
	Last4 string `json:"last4"`
}

// IntentError is the provider's last observed error on an intent.
type IntentError struct {
	Code        string `json:"code"`
	DeclineCode string `json:"decline_code"`
	Message     string `json:"message"`
}

// Intent is the provider-owned payment intent; the service holds only this
// snapshot, never the full provider object.
type Intent struct {
	ID           string       `json:"id"`
	ClientSecret string       `json:"client_secret"`
	AmountMinor  int64        `json:"amount"`
	Currency     string       `json:"currency"`
	Status       string       `json:"status"`
	Card         CardDetails  `json:"card"`
	LastError    *IntentError `json:"last_error,omitempty"`
}

type CreateIntentParams struct {
	AmountMinor     int64
	Currency        string
	Metadata        map[string]string
	PaymentMethodID string
	CardToken       string
	Confirm         bool
	ReturnURL       string
}

type ConfirmParams struct {
	PaymentMethodID string
}

// ProviderError is returned when the provider rejects a call outright, before
// an intent snapshot exists.
type ProviderError struct {
	Code        string
	DeclineCode string
	Message     string
}

func (e *ProviderError) Error() string {
	if e.DeclineCode != "" {
		return fmt.Sprintf("provider error %s (decline %s): %s", e.Code, e.DeclineCode, e.Message)
	}
	return fmt.Sprintf("provider error %s: %s", e.Code, e.Message)
}
