package payment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/film-payments/internal"
	"github.com/frahmantamala/film-payments/internal/paypalgateway"
)

// OrderCreator is the PayPal surface the service needs. Satisfied by
// paypalgateway.Client.
type OrderCreator interface {
	Configured() bool
	CreateOrder(ctx context.Context, p paypalgateway.CreateOrderParams) (*paypalgateway.Order, error)
}

// PayPalService creates redirect-based checkout orders. The flow is USD
// only; capture happens on PayPal's side after the buyer approves.
type PayPalService struct {
	client  OrderCreator
	baseURL string
	logger  *slog.Logger
}

func NewPayPalService(client OrderCreator, baseURL string, logger *slog.Logger) *PayPalService {
	return &PayPalService{
		client:  client,
		baseURL: baseURL,
		logger:  logger,
	}
}

func (s *PayPalService) CreateOrder(ctx context.Context, req *PayPalOrderRequest) (*PayPalOrderResponse, error) {
	if !s.client.Configured() {
		return nil, internal.ErrPayPalNotConfigured
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	description := req.Title
	if description == "" {
		description = "Film purchase"
	}

	order, err := s.client.CreateOrder(ctx, paypalgateway.CreateOrderParams{
		AmountUSD:   req.Amount,
		FilmID:      req.FilmID,
		UserID:      req.UserID,
		Description: description,
		ReturnURL:   fmt.Sprintf("%s/payment/success?source=paypal&filmId=%s&userId=%s", s.baseURL, req.FilmID, req.UserID),
		CancelURL:   fmt.Sprintf("%s/payment/error?source=paypal&filmId=%s&userId=%s", s.baseURL, req.FilmID, req.UserID),
	})
	if err != nil {
		s.logger.Error("paypal order creation failed",
			"film_id", req.FilmID,
			"error", err)
		return nil, internal.NewPaymentError(internal.ErrCodeOrderCreationFailed, "", "Failed to create PayPal order")
	}

	s.logger.Info("paypal order created",
		"order_id", order.ID,
		"film_id", req.FilmID,
		"status", order.Status)

	return &PayPalOrderResponse{
		OrderID:     order.ID,
		ApprovalURL: order.ApprovalURL,
	}, nil
}
