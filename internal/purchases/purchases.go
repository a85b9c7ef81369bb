package purchases

import (
	"context"
	"errors"
	"log/slog"

	"github.com/frahmantamala/film-payments/internal/core/datamodel/purchase"
	"github.com/frahmantamala/film-payments/internal/core/events"
)

var (
	// ErrDuplicate is returned by repositories when an insert loses the race
	// against an identical row. The recorder treats it as success.
	ErrDuplicate = errors.New("purchase already exists")
	ErrNotFound  = errors.New("purchase not found")
)

// Repository is the persistence contract for purchase records. Rows are
// append-only; there is no update or delete.
type Repository interface {
	Create(ctx context.Context, p *purchase.Purchase) error
	GetByKey(ctx context.Context, userID, filmID, paymentID string) (*purchase.Purchase, error)
}

type RecordParams struct {
	PaymentID     string
	UserID        string
	FilmID        string
	AmountUSD     float64
	Currency      string
	PaymentMethod string
}

// Service persists completed payments idempotently. By the time it runs the
// charge has already been captured, so persistence failures are logged and
// swallowed: the buyer still sees success and reconciliation picks up the
// rest operationally.
type Service struct {
	repo     Repository
	eventBus *events.EventBus
	logger   *slog.Logger
}

func NewService(repo Repository, eventBus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		eventBus: eventBus,
		logger:   logger,
	}
}

// RecordPurchase returns the purchase row for (userID, filmID, paymentID),
// inserting it if absent. A nil result means the row could not be persisted;
// the payment itself is still reported as successful.
func (s *Service) RecordPurchase(ctx context.Context, p RecordParams) *purchase.Purchase {
	if existing, err := s.repo.GetByKey(ctx, p.UserID, p.FilmID, p.PaymentID); err == nil {
		s.logger.Info("purchase already recorded",
			"payment_id", p.PaymentID,
			"user_id", p.UserID,
			"film_id", p.FilmID)
		return existing
	} else if !errors.Is(err, ErrNotFound) {
		s.logger.Error("purchase lookup failed, attempting insert anyway",
			"error", err,
			"payment_id", p.PaymentID)
	}

	currency := p.Currency
	if currency == "" {
		currency = "USD"
	}

	row := &purchase.Purchase{
		UserID:        p.UserID,
		FilmID:        p.FilmID,
		PaymentID:     p.PaymentID,
		AmountUSD:     p.AmountUSD,
		Currency:      currency,
		PaymentMethod: p.PaymentMethod,
		Status:        purchase.StatusCompleted,
	}

	err := s.repo.Create(ctx, row)
	if err == nil {
		s.logger.Info("purchase recorded",
			"purchase_id", row.ID,
			"payment_id", p.PaymentID,
			"user_id", p.UserID,
			"film_id", p.FilmID,
			"amount_usd", p.AmountUSD,
			"method", p.PaymentMethod)

		if s.eventBus != nil {
			event := events.NewPurchaseCompletedEvent(p.PaymentID, p.UserID, p.FilmID, p.AmountUSD, p.PaymentMethod)
			if pubErr := s.eventBus.Publish(ctx, event); pubErr != nil {
				s.logger.Error("failed to publish purchase event", "error", pubErr)
			}
		}

		return row
	}

	if errors.Is(err, ErrDuplicate) {
		// a concurrent confirmation inserted the row first; its row is the result
		s.logger.Info("duplicate purchase insert detected, using existing row",
			"payment_id", p.PaymentID,
			"user_id", p.UserID,
			"film_id", p.FilmID)

		existing, readErr := s.repo.GetByKey(ctx, p.UserID, p.FilmID, p.PaymentID)
		if readErr != nil {
			s.logger.Error("failed to re-read purchase after duplicate insert",
				"error", readErr,
				"payment_id", p.PaymentID)
			return nil
		}
		return existing
	}

	s.logger.Error("failed to record purchase; payment already captured",
		"error", err,
		"payment_id", p.PaymentID,
		"user_id", p.UserID,
		"film_id", p.FilmID)
	return nil
}
