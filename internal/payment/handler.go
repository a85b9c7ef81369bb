package payment

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	errors "github.com/frahmantamala/film-payments/internal"
	"github.com/frahmantamala/film-payments/internal/transport"
)

type ServiceAPI interface {
	CreateIntent(ctx context.Context, req *CreateIntentRequest) (*CreateIntentResponse, error)
	ConfirmIntent(ctx context.Context, req *ConfirmRequest) (*ConfirmResponse, error)
}

type ApplePayAPI interface {
	ValidateMerchant(ctx context.Context, req *ApplePayValidateRequest) (*MerchantSession, error)
	ProcessToken(ctx context.Context, req *ApplePayTokenRequest) (*ApplePayResult, error)
	ProcessStripe(ctx context.Context, req *ApplePayStripeRequest) (*ApplePayResult, error)
}

type PayPalAPI interface {
	CreateOrder(ctx context.Context, req *PayPalOrderRequest) (*PayPalOrderResponse, error)
}

type Handler struct {
	transport.BaseHandler
	PaymentService  ServiceAPI
	ApplePayService ApplePayAPI
	PayPalService   PayPalAPI
	Logger          *slog.Logger
}

func NewHandler(paymentService ServiceAPI, applePayService ApplePayAPI, payPalService PayPalAPI, logger *slog.Logger) *Handler {
	return &Handler{
		BaseHandler:     transport.BaseHandler{Logger: logger},
		PaymentService:  paymentService,
		ApplePayService: applePayService,
		PayPalService:   payPalService,
		Logger:          logger,
	}
}

// CreateIntent handles POST /api/v1/payments/intent
func (h *Handler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	var req CreateIntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("CreateIntent: failed to parse request body", "error", err)
		h.HandleError(w, errors.NewValidationError("invalid request body", errors.ErrCodeValidationFailed))
		return
	}

	resp, err := h.PaymentService.CreateIntent(r.Context(), &req)
	if err != nil {
		h.Logger.Error("CreateIntent: service error", "error", err, "film_id", req.FilmID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, resp)
}

// ConfirmPayment handles POST /api/v1/payments/confirm
func (h *Handler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	var req ConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("ConfirmPayment: failed to parse request body", "error", err)
		h.HandleError(w, errors.NewValidationError("invalid request body", errors.ErrCodeValidationFailed))
		return
	}

	resp, err := h.PaymentService.ConfirmIntent(r.Context(), &req)
	if err != nil {
		h.Logger.Warn("ConfirmPayment: payment not completed",
			"error", err,
			"intent_id", req.PaymentIntentID,
			"film_id", req.FilmID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, resp)
}

// CreatePayPalOrder handles POST /api/v1/payments/paypal/order
func (h *Handler) CreatePayPalOrder(w http.ResponseWriter, r *http.Request) {
	var req PayPalOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("CreatePayPalOrder: failed to parse request body", "error", err)
		h.HandleError(w, errors.NewValidationError("invalid request body", errors.ErrCodeValidationFailed))
		return
	}

	resp, err := h.PayPalService.CreateOrder(r.Context(), &req)
	if err != nil {
		h.Logger.Error("CreatePayPalOrder: service error", "error", err, "film_id", req.FilmID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, resp)
}

// ValidateApplePayMerchant handles POST /api/v1/payments/apple-pay/validate
func (h *Handler) ValidateApplePayMerchant(w http.ResponseWriter, r *http.Request) {
	var req ApplePayValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("ValidateApplePayMerchant: failed to parse request body", "error", err)
		h.HandleError(w, errors.NewValidationError("invalid request body", errors.ErrCodeValidationFailed))
		return
	}

	session, err := h.ApplePayService.ValidateMerchant(r.Context(), &req)
	if err != nil {
		h.Logger.Error("ValidateApplePayMerchant: service error", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, session)
}

// ProcessApplePay handles POST /api/v1/payments/apple-pay
func (h *Handler) ProcessApplePay(w http.ResponseWriter, r *http.Request) {
	var req ApplePayTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("ProcessApplePay: failed to parse request body", "error", err)
		h.HandleError(w, errors.NewValidationError("invalid request body", errors.ErrCodeValidationFailed))
		return
	}

	result, err := h.ApplePayService.ProcessToken(r.Context(), &req)
	if err != nil {
		h.Logger.Warn("ProcessApplePay: payment not completed", "error", err, "film_id", req.FilmID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, result)
}

// ProcessApplePayStripe handles POST /api/v1/payments/apple-pay/stripe
func (h *Handler) ProcessApplePayStripe(w http.ResponseWriter, r *http.Request) {
	var req ApplePayStripeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("ProcessApplePayStripe: failed to parse request body", "error", err)
		h.HandleError(w, errors.NewValidationError("invalid request body", errors.ErrCodeValidationFailed))
		return
	}

	result, err := h.ApplePayService.ProcessStripe(r.Context(), &req)
	if err != nil {
		h.Logger.Warn("ProcessApplePayStripe: payment not completed", "error", err, "film_id", req.FilmID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, result)
}
