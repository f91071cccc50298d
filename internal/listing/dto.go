package listing

import (
	"time"

	errors "github.com/frahmantamala/listing-marketplace/internal"
	"github.com/frahmantamala/listing-marketplace/internal/core/common/validation"
)

// BasicsDTO is wizard step 1.
type BasicsDTO struct {
	ListingType string `json:"listing_type"`
	Category    string `json:"category"`
	Title       string `json:"title"`
}

func (d *BasicsDTO) Validate() error {
	validator := validation.NewValidator()

	validator.Field("listing_type", d.ListingType).Required().OneOf(ListingTypes, errors.ErrCodeInvalidType)
	validator.Field("category", d.Category).Required().OneOf(Categories, errors.ErrCodeInvalidCategory)
	validator.Field("title", d.Title).Required().MinLength(3).MaxLength(200)

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

func (d *BasicsDTO) Fields() Fields {
	return Fields{
		"listing_type": d.ListingType,
		"category":     d.Category,
		"title":        d.Title,
	}
}

// DetailsDTO is wizard step 2.
type DetailsDTO struct {
	Condition    *string `json:"condition"`
	Year         *int    `json:"year"`
	Manufacturer *string `json:"manufacturer"`
	Summary      string  `json:"summary"`
	Description  string  `json:"description"`
}

func (d *DetailsDTO) Validate() error {
	validator := validation.NewValidator()

	validator.Field("condition", d.Condition).OneOf(Conditions, errors.ErrCodeInvalidCondition)
	validator.Field("year", d.Year).
		MinInt(1900, errors.ErrCodeInvalidYear).
		MaxInt(int64(time.Now().Year()+1), errors.ErrCodeInvalidYear)
	validator.Field("manufacturer", d.Manufacturer).MaxLength(120)
	validator.Field("summary", d.Summary).Required().MaxLength(500)
	validator.Field("description", d.Description).Required().MaxLength(10000)

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

// Fields always writes every step 2 column so a replay can clear optional values.
func (d *DetailsDTO) Fields() Fields {
	return Fields{
		"condition":    emptyToNil(d.Condition),
		"year":         d.Year,
		"manufacturer": emptyToNil(d.Manufacturer),
		"summary":      d.Summary,
		"description":  d.Description,
	}
}

// PricingDTO is wizard step 4: price choice and contact details.
type PricingDTO struct {
	PriceAmount  *int64  `json:"price_amount"`
	PriceOnQuote bool    `json:"price_on_quote"`
	Location     string  `json:"location"`
	ContactEmail string  `json:"contact_email"`
	ContactPhone *string `json:"contact_phone"`
}

func (d *PricingDTO) Validate() error {
	if d.PriceOnQuote && d.PriceAmount != nil {
		return errors.NewValidationFieldError("price", "choose either a fixed price or on quote", errors.ErrCodePriceConflict)
	}
	if !d.PriceOnQuote && d.PriceAmount == nil {
		return errors.NewValidationFieldError("price", "price is required", errors.ErrCodeValidationFailed)
	}

	validator := validation.NewValidator()

	validator.Field("price_amount", d.PriceAmount).MinInt(1, errors.ErrCodeInvalidAmount)
	validator.Field("location", d.Location).Required().MaxLength(200)
	validator.Field("contact_email", d.ContactEmail).Required().Email()
	validator.Field("contact_phone", d.ContactPhone).MaxLength(40)

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

func (d *PricingDTO) Price() Price {
	if d.PriceOnQuote {
		return OnQuotePrice()
	}
	return FixedPrice(*d.PriceAmount)
}

func (d *PricingDTO) Fields() Fields {
	fields := d.Price().Fields()
	fields["location"] = d.Location
	fields["contact_email"] = d.ContactEmail
	fields["contact_phone"] = emptyToNil(d.ContactPhone)
	return fields
}

// SubmitResponse tells the client where to go after step 5.
type SubmitResponse struct {
	ListingID   string `json:"listing_id"`
	Status      string `json:"status"`
	Reference   string `json:"reference,omitempty"`
	RedirectURL string `json:"redirect_url,omitempty"`
}

type ListingsResponse struct {
	Listings []*Listing `json:"listings"`
	Limit    int        `json:"limit"`
	Offset   int        `json:"offset"`
}

type SweepResponse struct {
	Expired int `json:"expired"`
}

func emptyToNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
