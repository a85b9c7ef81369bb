package payment

import (
	errors "github.com/frahmantamala/film-payments/internal"
	"github.com/frahmantamala/film-payments/internal/core/common/validation"
	"github.com/frahmantamala/film-payments/internal/core/datamodel/gateway"
	"github.com/frahmantamala/film-payments/internal/core/datamodel/purchase"
)

// BuyerData is the card-flow billing detail block. Card number, expiry and
// CVC never reach this service; the provider's elements tokenize them
// client-side.
type BuyerData struct {
	CardholderName string `json:"cardholderName"`
	Email          string `json:"email"`
	CardFunction   string `json:"cardFunction,omitempty"`
	Address        string `json:"address,omitempty"`
	City           string `json:"city,omitempty"`
	ZipCode        string `json:"zipCode,omitempty"`
	Country        string `json:"country,omitempty"`
}

type CreateIntentRequest struct {
	Amount          float64   `json:"amount"`
	OriginalAmount  float64   `json:"originalAmount,omitempty"`
	ConvertedAmount float64   `json:"convertedAmount,omitempty"`
	Currency        string    `json:"currency,omitempty"`
	FilmID          string    `json:"filmId"`
	UserID          string    `json:"userId"`
	PaymentData     BuyerData `json:"paymentData"`
}

func (r *CreateIntentRequest) Validate() error {
	validator := validation.NewValidator()

	validator.Field("amount", r.Amount).Required().PositiveAmount(errors.ErrCodeInvalidAmount)
	validator.Field("filmId", r.FilmID).Required()
	validator.Field("userId", r.UserID).Required()
	validator.Field("currency", r.Currency).CurrencyCode()
	validator.Field("cardholderName", r.PaymentData.CardholderName).Required()
	validator.Field("email", r.PaymentData.Email).Required().Email()

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

// FaceAmountUSD is the USD price regardless of any client-side conversion.
func (r *CreateIntentRequest) FaceAmountUSD() float64 {
	if r.OriginalAmount > 0 {
		return r.OriginalAmount
	}
	return r.Amount
}

// ChargeAmount is the amount in the buyer's currency: the converted amount
// when the client sent one, the face amount otherwise.
func (r *CreateIntentRequest) ChargeAmount() float64 {
	if r.ConvertedAmount > 0 {
		return r.ConvertedAmount
	}
	return r.Amount
}

type CreateIntentResponse struct {
	ClientSecret string `json:"client_secret"`
	ID           string `json:"id"`
	Amount       int64  `json:"amount"`
	Status       string `json:"status"`
	Currency     string `json:"currency"`
}

type ConfirmRequest struct {
	PaymentIntentID string  `json:"payment_intent_id"`
	PaymentMethodID string  `json:"payment_method_id"`
	Amount          float64 `json:"amount"`
	OriginalAmount  float64 `json:"originalAmount,omitempty"`
	ConvertedAmount float64 `json:"convertedAmount,omitempty"`
	Currency        string  `json:"currency,omitempty"`
	FilmID          string  `json:"filmId"`
	UserID          string  `json:"userId"`
}

func (r *ConfirmRequest) Validate() error {
	validator := validation.NewValidator()

	validator.Field("payment_intent_id", r.PaymentIntentID).Required()
	validator.Field("payment_method_id", r.PaymentMethodID).Required()
	validator.Field("amount", r.Amount).Required().PositiveAmount(errors.ErrCodeInvalidAmount)
	validator.Field("filmId", r.FilmID).Required()
	validator.Field("userId", r.UserID).Required()

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

func (r *ConfirmRequest) FaceAmountUSD() float64 {
	if r.OriginalAmount > 0 {
		return r.OriginalAmount
	}
	return r.Amount
}

type CardSummary struct {
	Brand string `json:"brand"`
	Last4 string `json:"last4"`
}

type PaymentMethodSummary struct {
	Card CardSummary `json:"card"`
}

type ConfirmMetadata struct {
	FilmID string `json:"filmId"`
	UserID string `json:"userId"`
}

type ConfirmResponse struct {
	ID            string               `json:"id"`
	Status        string               `json:"status"`
	Amount        int64                `json:"amount"`
	PaymentMethod PaymentMethodSummary `json:"payment_method"`
	Metadata      ConfirmMetadata      `json:"metadata"`
	ClientSecret  string               `json:"client_secret,omitempty"`
	Purchase      *purchase.Purchase   `json:"purchase,omitempty"`
}

type PayPalOrderRequest struct {
	Amount float64 `json:"amount"`
	FilmID string  `json:"filmId"`
	UserID string  `json:"userId"`
	Email  string  `json:"email,omitempty"`
	Title  string  `json:"title,omitempty"`
}

func (r *PayPalOrderRequest) Validate() error {
	validator := validation.NewValidator()

	validator.Field("amount", r.Amount).Required().PositiveAmount(errors.ErrCodeInvalidAmount)
	validator.Field("filmId", r.FilmID).Required()
	validator.Field("userId", r.UserID).Required()

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

type PayPalOrderResponse struct {
	OrderID     string `json:"orderId"`
	ApprovalURL string `json:"approvalUrl"`
}

type ApplePayValidateRequest struct {
	ValidationURL string `json:"validationURL"`
	DisplayName   string `json:"displayName,omitempty"`
}

// MerchantSession mirrors the object Apple's JS API expects back from
// merchant validation.
type MerchantSession struct {
	EpochTimestamp            int64  `json:"epochTimestamp"`
	ExpiresAt                 int64  `json:"expiresAt"`
	MerchantSessionIdentifier string `json:"merchantSessionIdentifier"`
	Nonce                     string `json:"nonce"`
	MerchantIdentifier        string `json:"merchantIdentifier"`
	DomainName                string `json:"domainName"`
	DisplayName               string `json:"displayName"`
	Signature                 string `json:"signature"`
	OperationalAnalyticsID    string `json:"operationalAnalyticsIdentifier"`
	Retries                   int    `json:"retries"`
	PSPID                     string `json:"pspId"`
}

type ApplePayToken struct {
	PaymentData string `json:"paymentData"`
}

type ApplePayPayment struct {
	Token *ApplePayToken `json:"token"`
}

type ApplePayTokenRequest struct {
	Payment *ApplePayPayment `json:"payment"`
	Amount  float64          `json:"amount"`
	FilmID  string           `json:"filmId"`
	UserID  string           `json:"userId"`
}

func (r *ApplePayTokenRequest) Validate() error {
	validator := validation.NewValidator()

	validator.Field("amount", r.Amount).Required().PositiveAmount(errors.ErrCodeInvalidAmount)
	validator.Field("filmId", r.FilmID).Required()
	validator.Field("userId", r.UserID).Required()

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

// HasToken reports whether the wallet token payload is present and usable.
func (r *ApplePayTokenRequest) HasToken() bool {
	return r.Payment != nil && r.Payment.Token != nil && r.Payment.Token.PaymentData != ""
}

type ApplePayStripeRequest struct {
	PaymentMethodID string  `json:"paymentMethodId"`
	Amount          float64 `json:"amount"`
	OriginalAmount  float64 `json:"originalAmount,omitempty"`
	Currency        string  `json:"currency,omitempty"`
	FilmID          string  `json:"filmId"`
	UserID          string  `json:"userId"`
	ReturnURL       string  `json:"return_url,omitempty"`
}

func (r *ApplePayStripeRequest) Validate() error {
	validator := validation.NewValidator()

	validator.Field("paymentMethodId", r.PaymentMethodID).Required()
	validator.Field("amount", r.Amount).Required().PositiveAmount(errors.ErrCodeInvalidAmount)
	validator.Field("filmId", r.FilmID).Required()
	validator.Field("userId", r.UserID).Required()
	validator.Field("currency", r.Currency).CurrencyCode()

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

func (r *ApplePayStripeRequest) FaceAmountUSD() float64 {
	if r.OriginalAmount > 0 {
		return r.OriginalAmount
	}
	return r.Amount
}

// ApplePayResult is the terminal response for both Apple Pay flows.
type ApplePayResult struct {
	Success        bool               `json:"success"`
	RequiresAction bool               `json:"requires_action,omitempty"`
	ClientSecret   string             `json:"client_secret,omitempty"`
	PaymentID      string             `json:"paymentId,omitempty"`
	Amount         float64            `json:"amount,omitempty"`
	Currency       string             `json:"currency,omitempty"`
	Status         string             `json:"status"`
	Purchase       *purchase.Purchase `json:"purchase,omitempty"`
}

// statusFromIntent folds the provider's non-terminal failure statuses into
// the three states this service branches on.
func statusFromIntent(intentStatus string, lastError *gateway.IntentError) string {
	if intentStatus == gateway.StatusPaymentFailed || lastError != nil {
		return gateway.StatusPaymentFailed
	}
	return intentStatus
}
