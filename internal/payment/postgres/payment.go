package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	listingDatamodel "github.com/frahmantamala/listing-marketplace/internal/core/datamodel/listing"
	"github.com/frahmantamala/listing-marketplace/internal/core/datamodel/payment"
	paymentpkg "github.com/frahmantamala/listing-marketplace/internal/payment"
)

const uniqueViolation = "23505"

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{
		db: db,
	}
}

var _ paymentpkg.RepositoryAPI = (*PaymentRepository)(nil)

func (r *PaymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *PaymentRepository) GetByReference(ctx context.Context, reference string) (*payment.Payment, error) {
	var p payment.Payment
	err := r.db.WithContext(ctx).Where("checkout_reference = ?", reference).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, paymentpkg.ErrPaymentNotFound
		}
		return nil, err
	}
	return &p, nil
}

// MarkCompleted is one conditional UPDATE. The partial unique index on
// completed payments per listing backs the NOT EXISTS guard when two
// transactions race; the loser reports not applied.
func (r *PaymentRepository) MarkCompleted(ctx context.Context, reference, paymentIntent string, at time.Time) (bool, error) {
	updates := map[string]interface{}{
		"status":       payment.StatusCompleted,
		"completed_at": at,
	}
	if paymentIntent != "" {
		updates["payment_intent"] = gorm.Expr("COALESCE(payment_intent, ?)", paymentIntent)
	}

	res := r.db.WithContext(ctx).
		Model(&payment.Payment{}).
		Where("checkout_reference = ? AND status <> ?", reference, payment.StatusCompleted).
		Where("NOT EXISTS (SELECT 1 FROM payments other WHERE other.listing_id = payments.listing_id AND other.status = ?)", payment.StatusCompleted).
		Updates(updates)
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return false, nil
		}
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *PaymentRepository) RecordPaymentIntent(ctx context.Context, reference, paymentIntent string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&payment.Payment{}).
		Where("checkout_reference = ? AND payment_intent IS NULL", reference).
		Update("payment_intent", paymentIntent)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *PaymentRepository) MarkFailed(ctx context.Context, reference string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&payment.Payment{}).
		Where("checkout_reference = ? AND status = ?", reference, payment.StatusPending).
		Update("status", payment.StatusFailed)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *PaymentRepository) ListCompletedForDraftListings(ctx context.Context, limit int) ([]*payment.Payment, error) {
	var payments []*payment.Payment
	q := r.db.WithContext(ctx).
		Model(&payment.Payment{}).
		Select("payments.*").
		Joins("JOIN listings ON listings.id = payments.listing_id").
		Where("payments.status = ? AND listings.status = ?", payment.StatusCompleted, listingDatamodel.StatusDraft).
		Order("payments.completed_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&payments).Error
	return payments, err
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
