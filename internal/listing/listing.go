package listing

import (
	"time"

	listingDatamodel "github.com/frahmantamala/listing-marketplace/internal/core/datamodel/listing"
)

const (
	StatusDraft     = listingDatamodel.StatusDraft
	StatusPublished = listingDatamodel.StatusPublished
	StatusExpired   = listingDatamodel.StatusExpired

	// PublicationPeriod is how long a listing stays visible once published.
	PublicationPeriod = 30 * 24 * time.Hour
)

type Listing struct {
	ID           string     `json:"id"`
	SellerID     *string    `json:"seller_id,omitempty"`
	ListingType  string     `json:"listing_type"`
	Category     string     `json:"category"`
	Title        string     `json:"title"`
	Condition    *string    `json:"condition,omitempty"`
	Year         *int       `json:"year,omitempty"`
	Manufacturer *string    `json:"manufacturer,omitempty"`
	Summary      *string    `json:"summary,omitempty"`
	Description  *string    `json:"description,omitempty"`
	Price        Price      `json:"price"`
	Location     *string    `json:"location,omitempty"`
	ContactEmail *string    `json:"contact_email,omitempty"`
	ContactPhone *string    `json:"contact_phone,omitempty"`
	Status       string     `json:"status"`
	PublishedAt  *time.Time `json:"published_at,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	Media        []*Media   `json:"media,omitempty"`
}

type Media struct {
	Type             string `json:"type"`
	StorageKey       string `json:"-"`
	URL              string `json:"url"`
	OriginalFilename string `json:"original_filename,omitempty"`
	DisplayOrder     int    `json:"display_order"`
}

func (l *Listing) IsDraft() bool {
	return l.Status == StatusDraft
}

// IsPublic reports whether the listing may be shown outside the wizard.
func (l *Listing) IsPublic() bool {
	return l.Status == StatusPublished || l.Status == StatusExpired
}

// Cover returns the primary image, if any.
func (l *Listing) Cover() *Media {
	if len(l.Media) == 0 {
		return nil
	}
	return l.Media[0]
}

// FirstIncompleteStep returns the first wizard step whose required fields are
// missing, or 0 when the draft can be submitted. Photos are optional.
func (l *Listing) FirstIncompleteStep() int {
	if l.ListingType == "" || l.Category == "" || l.Title == "" {
		return 1
	}
	if isBlank(l.Summary) || isBlank(l.Description) {
		return 2
	}
	if !l.Price.IsSet() || isBlank(l.Location) || isBlank(l.ContactEmail) {
		return 4
	}
	return 0
}

func isBlank(s *string) bool {
	return s == nil || *s == ""
}

func ToDataModel(l *Listing) *listingDatamodel.Listing {
	return &listingDatamodel.Listing{
		ID:           l.ID,
		SellerID:     l.SellerID,
		ListingType:  l.ListingType,
		Category:     l.Category,
		Title:        l.Title,
		Condition:    l.Condition,
		Year:         l.Year,
		Manufacturer: l.Manufacturer,
		Summary:      l.Summary,
		Description:  l.Description,
		PriceAmount:  l.Price.Amount,
		PriceDisplay: l.Price.Display,
		PriceOnQuote: l.Price.OnQuote,
		Location:     l.Location,
		ContactEmail: l.ContactEmail,
		ContactPhone: l.ContactPhone,
		Status:       l.Status,
		PublishedAt:  l.PublishedAt,
		ExpiresAt:    l.ExpiresAt,
		CreatedAt:    l.CreatedAt,
		UpdatedAt:    l.UpdatedAt,
	}
}

func FromDataModel(l *listingDatamodel.Listing) *Listing {
	return &Listing{
		ID:           l.ID,
		SellerID:     l.SellerID,
		ListingType:  l.ListingType,
		Category:     l.Category,
		Title:        l.Title,
		Condition:    l.Condition,
		Year:         l.Year,
		Manufacturer: l.Manufacturer,
		Summary:      l.Summary,
		Description:  l.Description,
		Price: Price{
			Amount:  l.PriceAmount,
			Display: l.PriceDisplay,
			OnQuote: l.PriceOnQuote,
		},
		Location:     l.Location,
		ContactEmail: l.ContactEmail,
		ContactPhone: l.ContactPhone,
		Status:       l.Status,
		PublishedAt:  l.PublishedAt,
		ExpiresAt:    l.ExpiresAt,
		CreatedAt:    l.CreatedAt,
		UpdatedAt:    l.UpdatedAt,
	}
}

func MediaFromDataModel(items []*listingDatamodel.Media) []*Media {
	out := make([]*Media, 0, len(items))
	for _, m := range items {
		out = append(out, &Media{
			Type:             m.MediaType,
			StorageKey:       m.StorageKey,
			URL:              m.URL,
			OriginalFilename: m.OriginalFilename,
			DisplayOrder:     m.DisplayOrder,
		})
	}
	return out
}
