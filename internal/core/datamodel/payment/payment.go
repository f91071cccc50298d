package payment

import "time"

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

type Payment struct {
	ID                int64      `gorm:"primaryKey"`
	ListingID         string     `gorm:"column:listing_id;not null;index"`
	UserID            string     `gorm:"column:user_id"`
	Amount            int64      `gorm:"column:amount;not null"`
	Currency          string     `gorm:"column:currency;not null"`
	Status            string     `gorm:"column:status;not null;default:pending"`
	CheckoutReference string     `gorm:"column:checkout_reference;not null;uniqueIndex"`
	PaymentIntent     *string    `gorm:"column:payment_intent"`
	CompletedAt       *time.Time `gorm:"column:completed_at"`
	CreatedAt         time.Time  `gorm:"column:created_at"`
	UpdatedAt         time.Time  `gorm:"column:updated_at"`
}

func (Payment) TableName() string {
	return "payments"
}
