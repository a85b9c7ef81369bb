package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/frahmantamala/film-payments/internal"
	"github.com/frahmantamala/film-payments/internal/core/datamodel/gateway"
	"github.com/frahmantamala/film-payments/internal/core/datamodel/purchase"
	"github.com/frahmantamala/film-payments/internal/currency"
	"github.com/frahmantamala/film-payments/internal/purchases"
)

// ApplePayService handles the three Apple Pay surfaces: merchant validation
// for the payment sheet, the direct wallet-token flow, and the
// payment-request flow that arrives as a provider payment method.
type ApplePayService struct {
	gateway    Gateway
	recorder   PurchaseRecorder
	config     internal.ApplePayConfig
	baseURL    string
	configured bool
	now        func() time.Time
	logger     *slog.Logger
}

func NewApplePayService(gw Gateway, recorder PurchaseRecorder, config internal.ApplePayConfig, baseURL string, configured bool, logger *slog.Logger) *ApplePayService {
	return &ApplePayService{
		gateway:    gw,
		recorder:   recorder,
		config:     config,
		baseURL:    baseURL,
		configured: configured,
		now:        time.Now,
		logger:     logger,
	}
}

// ValidateMerchant answers the payment sheet's merchant validation callback.
// In dev mode it synthesizes a session; otherwise it registers the domain
// with the provider and returns a provider-backed session.
func (s *ApplePayService) ValidateMerchant(ctx context.Context, req *ApplePayValidateRequest) (*MerchantSession, error) {
	if req.ValidationURL == "" {
		return nil, internal.NewValidationError("validationURL is required", internal.ErrCodeMissingFields)
	}

	displayName := req.DisplayName
	if displayName == "" {
		displayName = s.config.DisplayName
	}

	if s.config.DevMode {
		s.logger.Info("merchant validation running in dev mode",
			"validation_url", req.ValidationURL)
		return s.mockSession(displayName, "mock_session_"), nil
	}

	if !s.configured {
		return nil, internal.ErrStripeNotConfigured
	}

	if err := s.gateway.RegisterApplePayDomain(ctx, s.config.Domain); err != nil {
		s.logger.Error("apple pay domain registration failed",
			"domain", s.config.Domain,
			"error", err)
		return nil, internal.NewInternalError("merchant validation failed", err)
	}

	s.logger.Info("apple pay merchant validated",
		"domain", s.config.Domain,
		"validation_url", req.ValidationURL)
	return s.mockSession(displayName, "stripe_session_"), nil
}

// ProcessToken charges a raw wallet token. The whole flow is USD.
func (s *ApplePayService) ProcessToken(ctx context.Context, req *ApplePayTokenRequest) (*ApplePayResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if !req.HasToken() {
		return nil, internal.NewValidationError("payment token is required", internal.ErrCodeMissingFields)
	}

	if s.config.DevMode {
		return s.devModeSuccess(ctx, req.Amount, req.FilmID, req.UserID, purchase.MethodApplePay), nil
	}

	if !s.configured {
		return nil, internal.ErrStripeNotConfigured
	}

	intent, err := s.gateway.CreateIntent(ctx, gateway.CreateIntentParams{
		AmountMinor: currency.ToMinorUnits(req.Amount, "usd"),
		Currency:    "usd",
		CardToken:   req.Payment.Token.PaymentData,
		Confirm:     true,
		ReturnURL:   s.returnURL("apple_pay", req.FilmID, req.UserID),
		Metadata: map[string]string{
			"filmId":        req.FilmID,
			"userId":        req.UserID,
			"paymentMethod": purchase.MethodApplePay,
		},
	})
	if err != nil {
		return nil, s.walletDecline(err)
	}

	return s.resolveIntent(ctx, intent, req.Amount, "usd", req.FilmID, req.UserID, purchase.MethodApplePay)
}

// ProcessStripe charges an Apple Pay payment that the browser already turned
// into a provider payment method. Unlike the token flow this one honors the
// buyer's display currency.
func (s *ApplePayService) ProcessStripe(ctx context.Context, req *ApplePayStripeRequest) (*ApplePayResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if s.config.DevMode {
		return s.devModeSuccess(ctx, req.FaceAmountUSD(), req.FilmID, req.UserID, purchase.MethodApplePayStripe), nil
	}

	if !s.configured {
		return nil, internal.ErrStripeNotConfigured
	}

	chargeCurrency := currency.Normalize(req.Currency)
	returnURL := req.ReturnURL
	if returnURL == "" {
		returnURL = s.returnURL("apple_pay", req.FilmID, req.UserID)
	}

	intent, err := s.gateway.CreateIntent(ctx, gateway.CreateIntentParams{
		AmountMinor:     currency.ToMinorUnits(req.Amount, chargeCurrency),
		Currency:        chargeCurrency,
		PaymentMethodID: req.PaymentMethodID,
		Confirm:         true,
		ReturnURL:       returnURL,
		Metadata: map[string]string{
			"filmId":         req.FilmID,
			"userId":         req.UserID,
			"paymentMethod":  purchase.MethodApplePayStripe,
			"originalAmount": formatAmount(req.FaceAmountUSD()),
		},
	})
	if err != nil {
		return nil, s.walletDecline(err)
	}

	return s.resolveIntent(ctx, intent, req.FaceAmountUSD(), chargeCurrency, req.FilmID, req.UserID, purchase.MethodApplePayStripe)
}

// resolveIntent branches a confirmed wallet intent into the terminal result.
func (s *ApplePayService) resolveIntent(ctx context.Context, intent *gateway.Intent, amountUSD float64, chargeCurrency, filmID, userID, method string) (*ApplePayResult, error) {
	switch statusFromIntent(intent.Status, intent.LastError) {
	case gateway.StatusSucceeded:
		recorded := s.recorder.RecordPurchase(ctx, purchases.RecordParams{
			PaymentID:     intent.ID,
			UserID:        userID,
			FilmID:        filmID,
			AmountUSD:     amountUSD,
			Currency:      strings.ToUpper(chargeCurrency),
			PaymentMethod: method,
		})
		s.logger.Info("apple pay payment succeeded",
			"intent_id", intent.ID,
			"film_id", filmID,
			"method", method)
		return &ApplePayResult{
			Success:   true,
			PaymentID: intent.ID,
			Amount:    amountUSD,
			Currency:  strings.ToUpper(chargeCurrency),
			Status:    intent.Status,
			Purchase:  recorded,
		}, nil

	case gateway.StatusRequiresAction:
		return &ApplePayResult{
			Success:        false,
			RequiresAction: true,
			ClientSecret:   intent.ClientSecret,
			Status:         intent.Status,
		}, nil

	default:
		var errorCode, declineCode, message string
		if intent.LastError != nil {
			errorCode = intent.LastError.Code
			declineCode = intent.LastError.DeclineCode
			message = intent.LastError.Message
		}
		mapped := MapDecline(errorCode, declineCode)
		s.logger.Warn("apple pay payment not completed",
			"intent_id", intent.ID,
			"status", intent.Status,
			"error_code", mapped)
		return nil, internal.NewPaymentError(mapped, declineCode, declineMessage(mapped, message))
	}
}

// devModeSuccess synthesizes a successful payment with a locally generated
// id, still recording the purchase so the rest of the system behaves.
func (s *ApplePayService) devModeSuccess(ctx context.Context, amountUSD float64, filmID, userID, method string) *ApplePayResult {
	paymentID := "applepay_dev_" + uuid.New().String()

	recorded := s.recorder.RecordPurchase(ctx, purchases.RecordParams{
		PaymentID:     paymentID,
		UserID:        userID,
		FilmID:        filmID,
		AmountUSD:     amountUSD,
		Currency:      "USD",
		PaymentMethod: method,
	})

	s.logger.Info("apple pay payment simulated in dev mode",
		"payment_id", paymentID,
		"film_id", filmID,
		"method", method)

	return &ApplePayResult{
		Success:   true,
		PaymentID: paymentID,
		Amount:    amountUSD,
		Currency:  "USD",
		Status:    gateway.StatusSucceeded,
		Purchase:  recorded,
	}
}

func (s *ApplePayService) walletDecline(err error) error {
	var provErr *gateway.ProviderError
	if errors.As(err, &provErr) {
		mapped := MapDecline(provErr.Code, provErr.DeclineCode)
		s.logger.Warn("apple pay charge rejected",
			"error_code", mapped,
			"decline_code", provErr.DeclineCode)
		return internal.NewPaymentError(mapped, provErr.DeclineCode, declineMessage(mapped, provErr.Message))
	}
	s.logger.Error("apple pay charge failed", "error", err)
	return internal.NewInternalError("payment processing failed", err)
}

func (s *ApplePayService) mockSession(displayName, prefix string) *MerchantSession {
	now := s.now()
	return &MerchantSession{
		EpochTimestamp:            now.UnixMilli(),
		ExpiresAt:                 now.Add(time.Hour).UnixMilli(),
		MerchantSessionIdentifier: prefix + strconv.FormatInt(now.UnixMilli(), 10),
		Nonce:                     uuid.New().String(),
		MerchantIdentifier:        s.config.MerchantID,
		DomainName:                s.config.Domain,
		DisplayName:               displayName,
		Signature:                 prefix + "signature",
		OperationalAnalyticsID:    s.config.Domain,
		Retries:                   0,
		PSPID:                     s.config.MerchantID,
	}
}

func (s *ApplePayService) returnURL(source, filmID, userID string) string {
	return fmt.Sprintf("%s/payment/success?source=%s&filmId=%s&userId=%s", s.baseURL, source, filmID, userID)
}
