package payment

import (
	"context"
	goerrors "errors"
	"log/slog"
	"strconv"
	"strings"

	errors "github.com/frahmantamala/film-payments/internal"
	"github.com/frahmantamala/film-payments/internal/core/datamodel/gateway"
	"github.com/frahmantamala/film-payments/internal/core/datamodel/purchase"
	"github.com/frahmantamala/film-payments/internal/core/events"
	"github.com/frahmantamala/film-payments/internal/currency"
	"github.com/frahmantamala/film-payments/internal/purchases"
)

// Gateway is the card provider surface the orchestrator needs. Satisfied by
// stripegateway.Client.
type Gateway interface {
	CreateIntent(ctx context.Context, p gateway.CreateIntentParams) (*gateway.Intent, error)
	ConfirmIntent(ctx context.Context, intentID string, p gateway.ConfirmParams) (*gateway.Intent, error)
	RegisterApplePayDomain(ctx context.Context, domain string) error
}

// PurchaseRecorder persists completed payments. Satisfied by
// purchases.Service; recording never fails the payment.
type PurchaseRecorder interface {
	RecordPurchase(ctx context.Context, p purchases.RecordParams) *purchase.Purchase
}

// RateConverter converts a USD amount into the buyer's currency. Satisfied
// by currency.RateService; conversion never fails, it degrades to USD.
type RateConverter interface {
	Convert(ctx context.Context, amountUSD float64, currencyCode string) currency.Conversion
}

type Service struct {
	gateway    Gateway
	recorder   PurchaseRecorder
	rates      RateConverter
	eventBus   *events.EventBus
	configured bool
	logger     *slog.Logger
}

func NewService(gw Gateway, recorder PurchaseRecorder, rates RateConverter, eventBus *events.EventBus, configured bool, logger *slog.Logger) *Service {
	return &Service{
		gateway:    gw,
		recorder:   recorder,
		rates:      rates,
		eventBus:   eventBus,
		configured: configured,
		logger:     logger,
	}
}

// CreateIntent creates an unconfirmed payment intent in the buyer's currency.
// The charge amount is whatever the client already converted; the USD face
// amount rides along in metadata for reconciliation.
func (s *Service) CreateIntent(ctx context.Context, req *CreateIntentRequest) (*CreateIntentResponse, error) {
	if !s.configured {
		return nil, errors.ErrStripeNotConfigured
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	chargeCurrency := currency.Normalize(req.Currency)
	chargeAmount := req.ChargeAmount()

	// Clients that already converted send convertedAmount; otherwise the
	// conversion happens here. A failed rate lookup degrades to charging the
	// USD face amount so the buyer is never billed an amount they did not see.
	if chargeCurrency != "usd" && req.ConvertedAmount == 0 && s.rates != nil {
		conv := s.rates.Convert(ctx, req.FaceAmountUSD(), chargeCurrency)
		chargeAmount = conv.Amount
		chargeCurrency = currency.Normalize(conv.Currency)
	}

	amountMinor := currency.ToMinorUnits(chargeAmount, chargeCurrency)

	cardFunction := req.PaymentData.CardFunction
	if cardFunction == "" {
		cardFunction = "credit"
	}
	country := req.PaymentData.Country
	if country == "" {
		country = "US"
	}

	metadata := map[string]string{
		"filmId":           req.FilmID,
		"userId":           req.UserID,
		"email":            req.PaymentData.Email,
		"cardholderName":   req.PaymentData.CardholderName,
		"cardFunction":     cardFunction,
		"country":          country,
		"originalAmount":   formatAmount(req.FaceAmountUSD()),
		"originalCurrency": "USD",
		"chargedAmount":    formatAmount(chargeAmount),
	}

	intent, err := s.gateway.CreateIntent(ctx, gateway.CreateIntentParams{
		AmountMinor: amountMinor,
		Currency:    chargeCurrency,
		Metadata:    metadata,
	})
	if err != nil {
		return nil, s.translateGatewayError(err, "create intent")
	}

	s.logger.Info("payment intent created",
		"intent_id", intent.ID,
		"amount_minor", intent.AmountMinor,
		"currency", intent.Currency,
		"film_id", req.FilmID)

	return &CreateIntentResponse{
		ClientSecret: intent.ClientSecret,
		ID:           intent.ID,
		Amount:       intent.AmountMinor,
		Status:       intent.Status,
		Currency:     strings.ToUpper(intent.Currency),
	}, nil
}

// ConfirmIntent confirms an intent with the buyer's payment method and
// branches on the outcome: success records the purchase, requires_action is
// passed through for client-side 3DS, failure is mapped to the card decline
// taxonomy.
func (s *Service) ConfirmIntent(ctx context.Context, req *ConfirmRequest) (*ConfirmResponse, error) {
	if !s.configured {
		return nil, errors.ErrStripeNotConfigured
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	intent, err := s.gateway.ConfirmIntent(ctx, req.PaymentIntentID, gateway.ConfirmParams{
		PaymentMethodID: req.PaymentMethodID,
	})
	if err != nil {
		return nil, s.declineFromError(ctx, err, req)
	}

	switch statusFromIntent(intent.Status, intent.LastError) {
	case gateway.StatusSucceeded:
		recorded := s.recorder.RecordPurchase(ctx, purchases.RecordParams{
			PaymentID:     intent.ID,
			UserID:        req.UserID,
			FilmID:        req.FilmID,
			AmountUSD:     req.FaceAmountUSD(),
			Currency:      strings.ToUpper(currency.Normalize(req.Currency)),
			PaymentMethod: purchase.MethodCard,
		})

		return &ConfirmResponse{
			ID:     intent.ID,
			Status: intent.Status,
			Amount: intent.AmountMinor,
			PaymentMethod: PaymentMethodSummary{
				Card: CardSummary{Brand: intent.Card.Brand, Last4: intent.Card.Last4},
			},
			Metadata: ConfirmMetadata{FilmID: req.FilmID, UserID: req.UserID},
			Purchase: recorded,
		}, nil

	case gateway.StatusRequiresAction:
		s.logger.Info("payment requires additional action",
			"intent_id", intent.ID,
			"film_id", req.FilmID)
		return &ConfirmResponse{
			ID:           intent.ID,
			Status:       intent.Status,
			Amount:       intent.AmountMinor,
			ClientSecret: intent.ClientSecret,
			Metadata:     ConfirmMetadata{FilmID: req.FilmID, UserID: req.UserID},
		}, nil

	default:
		return nil, s.declineFromIntent(ctx, intent, req)
	}
}

// declineFromError maps a provider rejection into a payment error and emits
// the failure event.
func (s *Service) declineFromError(ctx context.Context, err error, req *ConfirmRequest) error {
	var provErr *gateway.ProviderError
	if !goerrors.As(err, &provErr) {
		s.logger.Error("payment confirmation failed",
			"error", err,
			"intent_id", req.PaymentIntentID)
		return errors.NewInternalError("payment confirmation failed", err)
	}

	mapped := MapDecline(provErr.Code, provErr.DeclineCode)
	s.publishFailure(ctx, req, string(mapped), provErr.DeclineCode)

	s.logger.Warn("card declined",
		"intent_id", req.PaymentIntentID,
		"error_code", mapped,
		"decline_code", provErr.DeclineCode)

	return errors.NewPaymentError(mapped, provErr.DeclineCode, declineMessage(mapped, provErr.Message))
}

// declineFromIntent handles a confirm call that returned cleanly but left
// the intent in a failed state.
func (s *Service) declineFromIntent(ctx context.Context, intent *gateway.Intent, req *ConfirmRequest) error {
	var errorCode, declineCode, message string
	if intent.LastError != nil {
		errorCode = intent.LastError.Code
		declineCode = intent.LastError.DeclineCode
		message = intent.LastError.Message
	}

	mapped := MapDecline(errorCode, declineCode)
	if declineCode == "" {
		declineCode = "generic_decline"
	}
	s.publishFailure(ctx, req, string(mapped), declineCode)

	s.logger.Warn("payment not completed",
		"intent_id", intent.ID,
		"status", intent.Status,
		"error_code", mapped,
		"decline_code", declineCode)

	return errors.NewPaymentError(mapped, declineCode, declineMessage(mapped, message))
}

func (s *Service) publishFailure(ctx context.Context, req *ConfirmRequest, errorCode, declineCode string) {
	if s.eventBus == nil {
		return
	}
	event := events.NewPaymentFailedEvent(req.PaymentIntentID, req.UserID, req.FilmID, errorCode, declineCode, purchase.MethodCard)
	if err := s.eventBus.Publish(ctx, event); err != nil {
		s.logger.Error("failed to publish payment failed event", "error", err)
	}
}

// translateGatewayError wraps provider rejections outside the confirm path,
// where decline mapping does not apply.
func (s *Service) translateGatewayError(err error, op string) error {
	var provErr *gateway.ProviderError
	if goerrors.As(err, &provErr) {
		code := errors.ErrorCode(provErr.Code)
		if provErr.Code == "" {
			code = errors.ErrCodeStripeError
		}
		s.logger.Error("provider rejected request",
			"op", op,
			"code", provErr.Code,
			"message", provErr.Message)
		return errors.NewPaymentError(code, provErr.DeclineCode, provErr.Message)
	}
	s.logger.Error("gateway call failed", "op", op, "error", err)
	return errors.NewInternalError("payment provider unavailable", err)
}

func formatAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', 2, 64)
}
