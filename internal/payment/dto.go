package payment

const (
	ReturnStatusConfirmed  = "confirmed"
	ReturnStatusProcessing = "processing"
	ReturnStatusPending    = "pending"
)

// ReturnResponse is what the seller's browser gets back from the gateway redirect.
type ReturnResponse struct {
	Reference string `json:"reference"`
	ListingID string `json:"listing_id,omitempty"`
	Status    string `json:"status"`
}

type WebhookResponse struct {
	Received bool   `json:"received"`
	Result   string `json:"result,omitempty"`
}

type RepairResponse struct {
	Published int `json:"published"`
}

type PaymentView struct {
	Reference     string  `json:"reference"`
	ListingID     string  `json:"listing_id"`
	Amount        int64   `json:"amount"`
	Currency      string  `json:"currency"`
	Status        string  `json:"status"`
	PaymentIntent *string `json:"payment_intent,omitempty"`
}
