package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypePurchaseCompleted = "purchase.completed"
	EventTypePaymentFailed     = "payment.failed"
)

type PurchaseCompletedEvent struct {
	BaseEvent
	PaymentID     string  `json:"payment_id"`
	UserID        string  `json:"user_id"`
	FilmID        string  `json:"film_id"`
	AmountUSD     float64 `json:"amount_usd"`
	PaymentMethod string  `json:"payment_method"`
}

func NewPurchaseCompletedEvent(paymentID, userID, filmID string, amountUSD float64, paymentMethod string) *PurchaseCompletedEvent {
	return &PurchaseCompletedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePurchaseCompleted,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"payment_id":     paymentID,
				"user_id":        userID,
				"film_id":        filmID,
				"amount_usd":     amountUSD,
				"payment_method": paymentMethod,
			},
		},
		PaymentID:     paymentID,
		UserID:        userID,
		FilmID:        filmID,
		AmountUSD:     amountUSD,
		PaymentMethod: paymentMethod,
	}
}

type PaymentFailedEvent struct {
	BaseEvent
	IntentID      string `json:"intent_id"`
	UserID        string `json:"user_id"`
	FilmID        string `json:"film_id"`
	ErrorCode     string `json:"error_code"`
	DeclineCode   string `json:"decline_code"`
	PaymentMethod string `json:"payment_method"`
}

func NewPaymentFailedEvent(intentID, userID, filmID, errorCode, declineCode, paymentMethod string) *PaymentFailedEvent {
	return &PaymentFailedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentFailed,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"intent_id":      intentID,
				"user_id":        userID,
				"film_id":        filmID,
				"error_code":     errorCode,
				"decline_code":   declineCode,
				"payment_method": paymentMethod,
			},
		},
		IntentID:      intentID,
		UserID:        userID,
		FilmID:        filmID,
		ErrorCode:     errorCode,
		DeclineCode:   declineCode,
		PaymentMethod: paymentMethod,
	}
}
