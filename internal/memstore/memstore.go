// Package memstore keeps listings, payments and reports in process memory. It
// honours the same conditional-write contracts as the postgres repositories
// and backs local runs without a database and the service tests.
package memstore

import (
	"sync"

	listingDatamodel "github.com/frahmantamala/listing-marketplace/internal/core/datamodel/listing"
	paymentDatamodel "github.com/frahmantamala/listing-marketplace/internal/core/datamodel/payment"
	reportDatamodel "github.com/frahmantamala/listing-marketplace/internal/core/datamodel/report"
)

// Store holds every table behind one mutex, so each repository call is atomic.
type Store struct {
	mu sync.Mutex

	listings     map[string]*listingDatamodel.Listing
	media        map[string][]*listingDatamodel.Media
	nextMediaID  int64
	payments     map[string]*paymentDatamodel.Payment
	nextPayment  int64
	reports      map[int64]*reportDatamodel.Report
	nextReportID int64
}

func New() *Store {
	return &Store{
		listings: make(map[string]*listingDatamodel.Listing),
		media:    make(map[string][]*listingDatamodel.Media),
		payments: make(map[string]*paymentDatamodel.Payment),
		reports:  make(map[int64]*reportDatamodel.Report),
	}
}

func (s *Store) Listings() *ListingRepository {
	return &ListingRepository{store: s}
}

func (s *Store) Payments() *PaymentRepository {
	return &PaymentRepository{store: s}
}

func (s *Store) Reports() *ReportRepository {
	return &ReportRepository{store: s}
}
