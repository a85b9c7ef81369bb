package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/frahmantamala/film-payments/internal/core/datamodel/purchase"
	purchasespkg "github.com/frahmantamala/film-payments/internal/purchases"
)

type PurchaseRepository struct {
	db *gorm.DB
}

func NewPurchaseRepository(db *gorm.DB) purchasespkg.Repository {
	return &PurchaseRepository{
		db: db,
	}
}

func (r *PurchaseRepository) Create(ctx context.Context, p *purchase.Purchase) error {
	err := r.db.WithContext(ctx).Create(p).Error
	if err != nil && isUniqueViolation(err) {
		return purchasespkg.ErrDuplicate
	}
	return err
}

func (r *PurchaseRepository) GetByKey(ctx context.Context, userID, filmID, paymentID string) (*purchase.Purchase, error) {
	var p purchase.Purchase
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND film_id = ? AND payment_id = ?", userID, filmID, paymentID).
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, purchasespkg.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// isUniqueViolation matches both the translated gorm error and the raw
// postgres 23505 / sqlite UNIQUE errors, since translation depends on driver
// configuration.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
