package purchase

import (
	"time"
)

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

const (
	MethodCard           = "card"
	MethodPayPal         = "paypal"
	MethodApplePay       = "apple_pay"
	MethodApplePayStripe = "apple_pay_stripe"
)

// Purchase is an append-only record of a captured charge. Rows are keyed by
// (user_id, film_id, payment_id) so retried confirmations collapse onto the
// same row instead of duplicating it.
type Purchase struct {
	ID            int64     `json:"id" gorm:"primaryKey"`
	UserID        string    `json:"user_id" gorm:"column:user_id;not null;uniqueIndex:idx_purchases_user_film_payment"`
	FilmID        string    `json:"film_id" gorm:"column:film_id;not null;uniqueIndex:idx_purchases_user_film_payment"`
	PaymentID     string    `json:"payment_id" gorm:"column:payment_id;not null;uniqueIndex:idx_purchases_user_film_payment"`
	AmountUSD     float64   `json:"amount_usd" gorm:"column:amount_usd;not null"`
	Currency      string    `json:"currency" gorm:"column:currency;default:USD"`
	PaymentMethod string    `json:"payment_method" gorm:"column:payment_method;not null"`
	Status        string    `json:"status" gorm:"column:status;default:completed"`
	CreatedAt     time.Time `json:"created_at" gorm:"column:created_at;autoCreateTime"`
}

func (Purchase) TableName() string {
	return "purchases"
}
