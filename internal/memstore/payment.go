package memstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	listingDatamodel "github.com/frahmantamala/listing-marketplace/internal/core/datamodel/listing"
	paymentDatamodel "github.com/frahmantamala/listing-marketplace/internal/core/datamodel/payment"
	"github.com/frahmantamala/listing-marketplace/internal/payment"
)

type PaymentRepository struct {
	store *Store
}

var _ payment.RepositoryAPI = (*PaymentRepository)(nil)

func (r *PaymentRepository) Create(ctx context.Context, p *paymentDatamodel.Payment) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.payments[p.CheckoutReference]; exists {
		return fmt.Errorf("payment with reference %s already exists", p.CheckoutReference)
	}
	s.nextPayment++
	p.ID = s.nextPayment
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	if p.Status == "" {
		p.Status = paymentDatamodel.StatusPending
	}
	cp := *p
	s.payments[p.CheckoutReference] = &cp
	return nil
}

func (r *PaymentRepository) GetByReference(ctx context.Context, reference string) (*paymentDatamodel.Payment, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.payments[reference]
	if !ok {
		return nil, payment.ErrPaymentNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *PaymentRepository) MarkCompleted(ctx context.Context, reference, paymentIntent string, at time.Time) (bool, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.payments[reference]
	if !ok || p.Status == paymentDatamodel.StatusCompleted {
		return false, nil
	}
	for _, other := range s.payments {
		if other.ListingID == p.ListingID && other.Status == paymentDatamodel.StatusCompleted {
			return false, nil
		}
	}

	p.Status = paymentDatamodel.StatusCompleted
	completedAt := at
	p.CompletedAt = &completedAt
	if paymentIntent != "" && p.PaymentIntent == nil {
		intent := paymentIntent
		p.PaymentIntent = &intent
	}
	p.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (r *PaymentRepository) RecordPaymentIntent(ctx context.Context, reference, paymentIntent string) (bool, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.payments[reference]
	if !ok || p.PaymentIntent != nil {
		return false, nil
	}
	intent := paymentIntent
	p.PaymentIntent = &intent
	p.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (r *PaymentRepository) MarkFailed(ctx context.Context, reference string) (bool, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.payments[reference]
	if !ok || p.Status != paymentDatamodel.StatusPending {
		return false, nil
	}
	p.Status = paymentDatamodel.StatusFailed
	p.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (r *PaymentRepository) ListCompletedForDraftListings(ctx context.Context, limit int) ([]*paymentDatamodel.Payment, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*paymentDatamodel.Payment
	for _, p := range s.payments {
		if p.Status != paymentDatamodel.StatusCompleted {
			continue
		}
		l, ok := s.listings[p.ListingID]
		if !ok || l.Status != listingDatamodel.StatusDraft {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return page(out, limit, 0), nil
}
