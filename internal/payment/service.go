package payment

import (
	"context"
	goerrors "errors"
	"log/slog"
	"time"

	errors "github.com/frahmantamala/listing-marketplace/internal"
	paymentDatamodel "github.com/frahmantamala/listing-marketplace/internal/core/datamodel/payment"
	paymentgatewaytypes "github.com/frahmantamala/listing-marketplace/internal/core/datamodel/paymentgateway"
)

const (
	defaultReconcileTimeout = 10 * time.Second
	repairBatchSize         = 100
)

// Service reconciles gateway confirmations into exactly one publish per listing.
// Both confirmation channels end up in Reconcile.
type Service struct {
	repo             RepositoryAPI
	publisher        Publisher
	gateway          GatewayAPI
	logger           *slog.Logger
	reconcileTimeout time.Duration
	now              func() time.Time
}

func NewService(repo RepositoryAPI, publisher Publisher, gateway GatewayAPI, reconcileTimeout time.Duration, logger *slog.Logger) *Service {
	if reconcileTimeout <= 0 {
		reconcileTimeout = defaultReconcileTimeout
	}
	return &Service{
		repo:             repo,
		publisher:        publisher,
		gateway:          gateway,
		logger:           logger,
		reconcileTimeout: reconcileTimeout,
		now:              time.Now,
	}
}

// Reconcile marks the payment completed and publishes its listing. Both steps
// are idempotent, so any number of deliveries through either channel converge.
// A publish failure after the payment was marked completed is returned as a
// reconciliation failure; the next delivery or RepairCompleted re-drives it.
func (s *Service) Reconcile(ctx context.Context, reference, paymentIntent string) (ReconcileResult, error) {
	ctx, cancel := errors.WithTimeout(ctx, s.reconcileTimeout)
	defer cancel()

	p, err := s.repo.GetByReference(ctx, reference)
	if goerrors.Is(err, ErrPaymentNotFound) {
		s.logger.Info("reconcile: unknown checkout reference ignored", "reference", reference)
		return ResultNoop, nil
	}
	if err != nil {
		s.logger.Error("reconcile: payment lookup failed", "error", err, "reference", reference)
		return "", errors.ErrReconciliationFailed.WithCause(err)
	}

	applied, err := s.repo.MarkCompleted(ctx, reference, paymentIntent, s.now().UTC())
	if err != nil {
		s.logger.Error("reconcile: mark completed failed", "error", err, "reference", reference)
		return "", errors.ErrReconciliationFailed.WithCause(err)
	}

	result := ResultCompleted
	if !applied {
		current, err := s.repo.GetByReference(ctx, reference)
		if err != nil {
			return "", errors.ErrReconciliationFailed.WithCause(err)
		}
		if current.Status != StatusCompleted {
			s.logger.Warn("reconcile: listing already paid by another payment",
				"reference", reference,
				"listing_id", current.ListingID,
				"status", current.Status)
			return ResultDuplicatePayment, nil
		}

		result = ResultAlreadyCompleted
		if paymentIntent != "" && current.PaymentIntent == nil {
			if _, err := s.repo.RecordPaymentIntent(ctx, reference, paymentIntent); err != nil {
				s.logger.Warn("reconcile: could not record payment intent", "error", err, "reference", reference)
			}
		}
	} else {
		s.logger.Info("payment completed",
			"payment_id", p.ID,
			"reference", reference,
			"listing_id", p.ListingID)
	}

	// always drive publish; it is a no-op for published listings and repairs a
	// previous attempt that stopped after the payment write
	published, err := s.publisher.Publish(ctx, p.ListingID, "payment_completed")
	if goerrors.Is(err, errors.ErrListingNotFound) {
		s.logger.Warn("reconcile: listing of completed payment not found",
			"reference", reference,
			"listing_id", p.ListingID)
		return result, nil
	}
	if err != nil {
		s.logger.Error("reconcile: publish failed after payment completed",
			"error", err,
			"reference", reference,
			"listing_id", p.ListingID)
		return result, errors.ErrReconciliationFailed.WithCause(err)
	}

	s.logger.Info("reconcile finished",
		"reference", reference,
		"listing_id", p.ListingID,
		"result", result,
		"published_now", published)

	return result, nil
}

// ConfirmReturn handles the redirect channel. Only a checkout the gateway reports
// as complete is reconciled; the seller still sees a confirmation when the local
// write fails because the gateway already took the money.
func (s *Service) ConfirmReturn(ctx context.Context, reference string) (*ReturnResponse, error) {
	if reference == "" {
		return nil, errors.NewValidationFieldError("reference", "reference is required", errors.ErrCodeValidationFailed)
	}

	checkout, err := s.gateway.GetCheckout(ctx, reference)
	if err != nil {
		s.logger.Warn("return: gateway lookup failed, waiting for notification", "error", err, "reference", reference)
		return &ReturnResponse{Reference: reference, Status: ReturnStatusProcessing}, nil
	}

	resp := &ReturnResponse{
		Reference: reference,
		ListingID: checkout.Metadata[paymentgatewaytypes.MetadataListingID],
	}

	if !checkout.IsComplete() {
		s.logger.Info("return: checkout not complete", "reference", reference, "status", checkout.Status)
		resp.Status = ReturnStatusPending
		return resp, nil
	}

	if _, err := s.Reconcile(ctx, reference, checkout.PaymentIntent); err != nil {
		s.logger.Error("return: reconcile failed, relying on retry", "error", err, "reference", reference)
		resp.Status = ReturnStatusProcessing
		return resp, nil
	}

	resp.Status = ReturnStatusConfirmed
	return resp, nil
}

// ExpireCheckout marks a pending payment failed when the gateway abandons it.
func (s *Service) ExpireCheckout(ctx context.Context, reference string) error {
	applied, err := s.repo.MarkFailed(ctx, reference)
	if err != nil {
		s.logger.Error("failed to mark payment failed", "error", err, "reference", reference)
		return errors.NewInternalError("failed to update payment", err)
	}
	s.logger.Info("checkout expired", "reference", reference, "applied", applied)
	return nil
}

// RepairCompleted re-drives publish for completed payments whose listing is
// still a draft, and returns how many listings it published.
func (s *Service) RepairCompleted(ctx context.Context) (int, error) {
	payments, err := s.repo.ListCompletedForDraftListings(ctx, repairBatchSize)
	if err != nil {
		s.logger.Error("repair: scan failed", "error", err)
		return 0, errors.NewInternalError("repair scan failed", err)
	}

	repaired := 0
	for _, p := range payments {
		published, err := s.publisher.Publish(ctx, p.ListingID, "repair")
		if err != nil {
			s.logger.Error("repair: publish failed", "error", err, "listing_id", p.ListingID, "reference", p.CheckoutReference)
			return repaired, errors.ErrReconciliationFailed.WithCause(err)
		}
		if published {
			repaired++
			s.logger.Warn("repair: published listing left behind a completed payment",
				"listing_id", p.ListingID,
				"reference", p.CheckoutReference)
		}
	}

	s.logger.Info("repair sweep finished", "candidates", len(payments), "published", repaired)
	return repaired, nil
}

func (s *Service) GetByReference(ctx context.Context, reference string) (*paymentDatamodel.Payment, error) {
	p, err := s.repo.GetByReference(ctx, reference)
	if err != nil {
		if goerrors.Is(err, ErrPaymentNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, errors.NewInternalError("failed to load payment", err)
	}
	return p, nil
}
