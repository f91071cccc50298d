package listing

import "time"

const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusExpired   = "expired"
)

type Listing struct {
	ID           string     `gorm:"column:id;primaryKey"`
	SellerID     *string    `gorm:"column:seller_id"`
	ListingType  string     `gorm:"column:listing_type;not null"`
	Category     string     `gorm:"column:category;not null"`
	Title        string     `gorm:"column:title;not null"`
	Condition    *string    `gorm:"column:condition"`
	Year         *int       `gorm:"column:year"`
	Manufacturer *string    `gorm:"column:manufacturer"`
	Summary      *string    `gorm:"column:summary"`
	Description  *string    `gorm:"column:description"`
	PriceAmount  *int64     `gorm:"column:price_amount"`
	PriceDisplay *string    `gorm:"column:price_display"`
	PriceOnQuote bool       `gorm:"column:price_on_quote;not null;default:false"`
	Location     *string    `gorm:"column:location"`
	ContactEmail *string    `gorm:"column:contact_email"`
	ContactPhone *string    `gorm:"column:contact_phone"`
	Status       string     `gorm:"column:status;not null;default:draft;index"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
	ExpiresAt    *time.Time `gorm:"column:expires_at;index"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	UpdatedAt    time.Time  `gorm:"column:updated_at"`
}

func (Listing) TableName() string {
	return "listings"
}

type Media struct {
	ID               int64     `gorm:"column:id;primaryKey"`
	ListingID        string    `gorm:"column:listing_id;not null;index"`
	MediaType        string    `gorm:"column:media_type;not null;default:image"`
	StorageKey       string    `gorm:"column:storage_key;not null"`
	URL              string    `gorm:"column:url;not null"`
	OriginalFilename string    `gorm:"column:original_filename"`
	DisplayOrder     int       `gorm:"column:display_order;not null;default:0"`
	CreatedAt        time.Time `gorm:"column:created_at"`
}

func (Media) TableName() string {
	return "listing_media"
}
