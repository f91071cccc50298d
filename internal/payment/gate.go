package payment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/listing-marketplace/internal"
	paymentDatamodel "github.com/frahmantamala/listing-marketplace/internal/core/datamodel/payment"
	paymentgatewaytypes "github.com/frahmantamala/listing-marketplace/internal/core/datamodel/paymentgateway"
)

// NewGate picks the payment capability from the configured mode. Catalog mode
// publishes without checkout; the other modes go through the gateway.
func NewGate(cfg internal.PaymentConfig, gateway GatewayAPI, repo RepositoryAPI, logger *slog.Logger) Gate {
	if !cfg.RequiresPayment() {
		logger.Warn("payment gate in catalog mode: listings publish without payment")
		return CatalogGate{}
	}
	return &CheckoutGate{
		gateway:    gateway,
		repo:       repo,
		amount:     cfg.ListingPriceAmount,
		currency:   cfg.Currency,
		successURL: cfg.SuccessURL,
		cancelURL:  cfg.CancelURL,
		logger:     logger,
	}
}

type CatalogGate struct{}

func (CatalogGate) Require(_ context.Context, _ paymentgatewaytypes.CheckoutIntent) (paymentgatewaytypes.CheckoutRequirement, error) {
	return paymentgatewaytypes.PaymentNotRequired{}, nil
}

// CheckoutGate opens a gateway checkout and records the pending payment keyed
// by the checkout reference.
type CheckoutGate struct {
	gateway    GatewayAPI
	repo       RepositoryAPI
	amount     int64
	currency   string
	successURL string
	cancelURL  string
	logger     *slog.Logger
}

func (g *CheckoutGate) Require(ctx context.Context, intent paymentgatewaytypes.CheckoutIntent) (paymentgatewaytypes.CheckoutRequirement, error) {
	req := &paymentgatewaytypes.CheckoutRequest{
		Amount:      g.amount,
		Currency:    g.currency,
		Description: fmt.Sprintf("Listing publication: %s", intent.Title),
		SuccessURL:  g.successURL,
		CancelURL:   g.cancelURL,
		Metadata: map[string]string{
			paymentgatewaytypes.MetadataListingID: intent.ListingID,
			paymentgatewaytypes.MetadataUserID:    intent.UserID,
		},
	}
	if err := req.Validate(); err != nil {
		return nil, internal.NewInternalError("invalid checkout request", err)
	}

	checkout, err := g.gateway.CreateCheckout(ctx, req)
	if err != nil {
		g.logger.Error("checkout creation failed", "error", err, "listing_id", intent.ListingID)
		return nil, internal.NewUpstreamError("payment gateway unavailable", err)
	}

	p := &paymentDatamodel.Payment{
		ListingID:         intent.ListingID,
		UserID:            intent.UserID,
		Amount:            g.amount,
		Currency:          g.currency,
		Status:            StatusPending,
		CheckoutReference: checkout.Reference,
	}
	if err := g.repo.Create(ctx, p); err != nil {
		g.logger.Error("failed to record pending payment",
			"error", err,
			"listing_id", intent.ListingID,
			"reference", checkout.Reference)
		return nil, internal.NewInternalError("failed to record payment", err)
	}

	g.logger.Info("pending payment recorded",
		"payment_id", p.ID,
		"listing_id", intent.ListingID,
		"reference", checkout.Reference,
		"amount", g.amount,
		"currency", g.currency)

	return paymentgatewaytypes.PaymentRequired{
		Reference:   checkout.Reference,
		RedirectURL: checkout.URL,
	}, nil
}
