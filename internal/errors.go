package internal

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

type ErrorType string

const (
	ErrorTypeValidation    ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound      ErrorType = "NOT_FOUND"
	ErrorTypeConfiguration ErrorType = "CONFIGURATION_ERROR"
	ErrorTypePayment       ErrorType = "PAYMENT_ERROR"
	ErrorTypeConflict      ErrorType = "CONFLICT"
	ErrorTypeInternal      ErrorType = "INTERNAL_ERROR"
	ErrorTypeExternal      ErrorType = "EXTERNAL_ERROR"
)

type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidAmount    ErrorCode = "INVALID_AMOUNT"
	ErrCodeInvalidCurrency  ErrorCode = "INVALID_CURRENCY"
	ErrCodeMissingFields    ErrorCode = "MISSING_FIELDS"

	ErrCodeProviderNotConfigured ErrorCode = "PROVIDER_NOT_CONFIGURED"

	ErrCodePaymentFailed       ErrorCode = "PAYMENT_FAILED"
	ErrCodeCardDeclined        ErrorCode = "card_declined"
	ErrCodeCardExpired         ErrorCode = "card_expired"
	ErrCodeInsufficientFunds   ErrorCode = "insufficient_funds"
	ErrCodeIncorrectCVC        ErrorCode = "incorrect_cvc"
	ErrCodeStripeError         ErrorCode = "stripe_error"
	ErrCodeOrderCreationFailed ErrorCode = "order_creation_failed"

	ErrCodePurchaseNotFound ErrorCode = "PURCHASE_NOT_FOUND"
)

type AppError struct {
	Type        ErrorType   `json:"type"`
	Code        ErrorCode   `json:"code"`
	Message     string      `json:"message"`
	DeclineCode string      `json:"decline_code,omitempty"`
	Details     interface{} `json:"details,omitempty"`
	StatusCode  int         `json:"-"`
	Cause       error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok && len(validationErrors.Errors) > 0 {
			return validationErrors.Errors[0].Message
		}
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) GetDetailedMessage() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok {
			if len(validationErrors.Errors) == 1 {
				return validationErrors.Errors[0].Message
			} else if len(validationErrors.Errors) > 1 {
				messages := make([]string, len(validationErrors.Errors))
				for i, err := range validationErrors.Errors {
					messages[i] = err.Message
				}
				return strings.Join(messages, "; ")
			}
		}
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewValidationFieldError(field, message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       ErrCodeValidationFailed,
		Message:    "Validation failed",
		StatusCode: http.StatusBadRequest,
		Details: ValidationErrors{
			Errors: []ValidationError{
				{Field: field, Message: message, Code: string(code)},
			},
		},
	}
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

// NewConfigurationError reports a missing or broken provider credential.
// These must never leak credential material into the message.
func NewConfigurationError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeConfiguration,
		Code:       ErrCodeProviderNotConfigured,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

// NewPaymentError carries the internal decline taxonomy to the client with
// HTTP 402. code is one of the card_* / insufficient_funds / incorrect_cvc
// sub-codes, declineCode the provider's raw decline reason.
func NewPaymentError(code ErrorCode, declineCode, message string) *AppError {
	if message == "" {
		message = "Payment failed"
	}
	return &AppError{
		Type:        ErrorTypePayment,
		Code:        code,
		Message:     message,
		DeclineCode: declineCode,
		StatusCode:  http.StatusPaymentRequired,
	}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

func NewConflictError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

var (
	ErrMissingFields       = NewValidationError("Missing required fields", ErrCodeMissingFields)
	ErrStripeNotConfigured = NewConfigurationError("Payment processing not configured")
	ErrPayPalNotConfigured = NewConfigurationError("PayPal processing not configured")
)

func IsAppError(err error) (*AppError, bool) {
	if appErr, ok := err.(*AppError); ok {
		return appErr, true
	}
	return nil, false
}

type Response struct {
	Error *AppError `json:"error"`
}

// PaymentFailureResponse is the flat decline body clients branch on.
type PaymentFailureResponse struct {
	Error       string `json:"error"`
	ErrorCode   string `json:"errorCode"`
	Message     string `json:"message"`
	DeclineCode string `json:"decline_code,omitempty"`
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
	if e.Type == ErrorTypePayment {
		return e.StatusCode, PaymentFailureResponse{
			Error:       "payment_failed",
			ErrorCode:   string(e.Code),
			Message:     e.Message,
			DeclineCode: e.DeclineCode,
		}
	}
	return e.StatusCode, Response{Error: e}
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type        ErrorType   `json:"type"`
		Code        ErrorCode   `json:"code"`
		Message     string      `json:"message"`
		DeclineCode string      `json:"decline_code,omitempty"`
		Details     interface{} `json:"details,omitempty"`
	}{
		Type:        e.Type,
		Code:        e.Code,
		Message:     e.Message,
		DeclineCode: e.DeclineCode,
		Details:     e.Details,
	})
}
