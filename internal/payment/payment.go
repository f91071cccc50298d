package payment

import (
	"context"
	"time"

	errors "github.com/frahmantamala/listing-marketplace/internal"
	paymentDatamodel "github.com/frahmantamala/listing-marketplace/internal/core/datamodel/payment"
	paymentgatewaytypes "github.com/frahmantamala/listing-marketplace/internal/core/datamodel/paymentgateway"
)

const (
	StatusPending   = paymentDatamodel.StatusPending
	StatusCompleted = paymentDatamodel.StatusCompleted
	StatusFailed    = paymentDatamodel.StatusFailed
)

var ErrPaymentNotFound = errors.ErrPaymentNotFound

// RepositoryAPI is the record store contract for payments. Every status change
// is a conditional write that reports whether it applied.
type RepositoryAPI interface {
	Create(ctx context.Context, p *paymentDatamodel.Payment) error
	GetByReference(ctx context.Context, reference string) (*paymentDatamodel.Payment, error)
	// MarkCompleted applies only when the payment is not completed yet and no
	// other payment of the same listing is completed. A non-empty intent is
	// recorded only if none is stored.
	MarkCompleted(ctx context.Context, reference, paymentIntent string, at time.Time) (bool, error)
	RecordPaymentIntent(ctx context.Context, reference, paymentIntent string) (bool, error)
	MarkFailed(ctx context.Context, reference string) (bool, error)
	// ListCompletedForDraftListings finds the partial-failure state: a completed
	// payment whose listing is still a draft.
	ListCompletedForDraftListings(ctx context.Context, limit int) ([]*paymentDatamodel.Payment, error)
}

// Publisher is the lifecycle engine seen from the reconciler.
type Publisher interface {
	Publish(ctx context.Context, listingID, reason string) (bool, error)
}

// GatewayAPI is the payment gateway contract.
type GatewayAPI interface {
	CreateCheckout(ctx context.Context, req *paymentgatewaytypes.CheckoutRequest) (*paymentgatewaytypes.Checkout, error)
	GetCheckout(ctx context.Context, reference string) (*paymentgatewaytypes.Checkout, error)
}

// Gate turns a submission into a checkout requirement.
type Gate interface {
	Require(ctx context.Context, intent paymentgatewaytypes.CheckoutIntent) (paymentgatewaytypes.CheckoutRequirement, error)
}

type ReconcileResult string

const (
	// ResultNoop means the reference is unknown here.
	ResultNoop             ReconcileResult = "noop"
	ResultCompleted        ReconcileResult = "completed"
	ResultAlreadyCompleted ReconcileResult = "already_completed"
	// ResultDuplicatePayment means another payment already paid for the listing.
	ResultDuplicatePayment ReconcileResult = "duplicate_payment"
)
