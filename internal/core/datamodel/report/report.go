package report

import "time"

const (
	StatusNew      = "new"
	StatusReviewed = "reviewed"
	StatusResolved = "resolved"
)

type Report struct {
	ID            int64     `gorm:"primaryKey"`
	ListingURL    string    `gorm:"column:listing_url;not null"`
	ListingID     *string   `gorm:"column:listing_id;index"`
	Reason        string    `gorm:"column:reason;not null"`
	Description   string    `gorm:"column:description;not null"`
	ReporterEmail *string   `gorm:"column:reporter_email"`
	Status        string    `gorm:"column:status;not null;default:new"`
	CreatedAt     time.Time `gorm:"column:created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at"`
}

func (Report) TableName() string {
	return "reports"
}
