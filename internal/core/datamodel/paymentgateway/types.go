package paymentgateway

import (
	"errors"
)

type CheckoutStatus string

const (
	CheckoutStatusOpen     CheckoutStatus = "open"
	CheckoutStatusComplete CheckoutStatus = "complete"
	CheckoutStatusExpired  CheckoutStatus = "expired"
)

const (
	EventCheckoutCompleted = "checkout.completed"
	EventCheckoutExpired   = "checkout.expired"
)

// Metadata keys attached to every checkout.
const (
	MetadataListingID = "listing_id"
	MetadataUserID    = "user_id"
)

type CheckoutRequest struct {
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Description string            `json:"description"`
	SuccessURL  string            `json:"success_url"`
	CancelURL   string            `json:"cancel_url"`
	Metadata    map[string]string `json:"metadata"`
}

func (r *CheckoutRequest) Validate() error {
	if r.Amount <= 0 {
		return errors.New("amount must be greater than 0")
	}
	if r.Currency == "" {
		return errors.New("currency is required")
	}
	if r.Metadata[MetadataListingID] == "" {
		return errors.New("metadata.listing_id is required")
	}
	return nil
}

// Checkout is the gateway view of a checkout session.
type Checkout struct {
	Reference     string            `json:"id"`
	URL           string            `json:"url"`
	Status        CheckoutStatus    `json:"status"`
	PaymentIntent string            `json:"payment_intent,omitempty"`
	Amount        int64             `json:"amount"`
	Currency      string            `json:"currency"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

func (c *Checkout) IsComplete() bool {
	return c.Status == CheckoutStatusComplete
}

// Event is the body of a signed server-to-server notification.
type Event struct {
	ID            string `json:"id"`
	Type          string `json:"type"`
	Reference     string `json:"reference"`
	PaymentIntent string `json:"payment_intent,omitempty"`
	Created       int64  `json:"created"`
}

// CheckoutIntent is what the lifecycle engine knows when a listing is submitted.
type CheckoutIntent struct {
	ListingID string
	UserID    string
	Title     string
}

// CheckoutRequirement is what submitting a listing yields: either the seller
// must pay at RedirectURL, or the listing can be published right away.
type CheckoutRequirement interface {
	isCheckoutRequirement()
}

type PaymentRequired struct {
	Reference   string
	RedirectURL string
}

type PaymentNotRequired struct{}

func (PaymentRequired) isCheckoutRequirement()    {}
func (PaymentNotRequired) isCheckoutRequirement() {}
