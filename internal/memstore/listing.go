package memstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	listingDatamodel "github.com/frahmantamala/listing-marketplace/internal/core/datamodel/listing"
	"github.com/frahmantamala/listing-marketplace/internal/listing"
)

type ListingRepository struct {
	store *Store
}

var _ listing.RepositoryAPI = (*ListingRepository)(nil)

func (r *ListingRepository) Create(ctx context.Context, l *listingDatamodel.Listing) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.listings[l.ID]; exists {
		return fmt.Errorf("listing %s already exists", l.ID)
	}
	cp := *l
	s.listings[l.ID] = &cp
	return nil
}

func (r *ListingRepository) GetByID(ctx context.Context, id string) (*listingDatamodel.Listing, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.listings[id]
	if !ok {
		return nil, listing.ErrListingNotFound
	}
	cp := *l
	return &cp, nil
}

func (r *ListingRepository) Update(ctx context.Context, id string, fields listing.Fields) (bool, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.listings[id]
	if !ok {
		return false, nil
	}
	return true, applyListingFields(l, fields)
}

func (r *ListingRepository) UpdateIfStatus(ctx context.Context, id, expected string, fields listing.Fields) (bool, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.listings[id]
	if !ok || l.Status != expected {
		return false, nil
	}
	// apply on a copy so a bad field leaves the row untouched
	cp := *l
	if err := applyListingFields(&cp, fields); err != nil {
		return false, err
	}
	*l = cp
	return true, nil
}

func (r *ListingRepository) List(ctx context.Context, filter listing.Filter, order string, limit, offset int) ([]*listingDatamodel.Listing, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*listingDatamodel.Listing
	for _, l := range s.listings {
		if filter.Status != "" && l.Status != filter.Status {
			continue
		}
		if filter.SellerID != "" && (l.SellerID == nil || *l.SellerID != filter.SellerID) {
			continue
		}
		if filter.Category != "" && l.Category != filter.Category {
			continue
		}
		if filter.ListingType != "" && l.ListingType != filter.ListingType {
			continue
		}
		if filter.ExpiresAtOrBefore != nil && (l.ExpiresAt == nil || l.ExpiresAt.After(*filter.ExpiresAtOrBefore)) {
			continue
		}
		cp := *l
		out = append(out, &cp)
	}

	less, err := listingOrder(order)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		if less != nil {
			if less(out[i], out[j]) {
				return true
			}
			if less(out[j], out[i]) {
				return false
			}
		}
		return out[i].ID < out[j].ID
	})

	return page(out, limit, offset), nil
}

func (r *ListingRepository) GetMedia(ctx context.Context, listingID string) ([]*listingDatamodel.Media, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	media := s.media[listingID]
	out := make([]*listingDatamodel.Media, 0, len(media))
	for _, m := range media {
		cp := *m
		out = append(out, &cp)
	}
	return out, nil
}

func (r *ListingRepository) ReplaceMedia(ctx context.Context, listingID string, media []*listingDatamodel.Media) ([]*listingDatamodel.Media, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := s.media[listingID]
	next := make([]*listingDatamodel.Media, 0, len(media))
	for _, m := range media {
		s.nextMediaID++
		m.ID = s.nextMediaID
		if m.CreatedAt.IsZero() {
			m.CreatedAt = time.Now().UTC()
		}
		cp := *m
		next = append(next, &cp)
	}
	sort.SliceStable(next, func(i, j int) bool { return next[i].DisplayOrder < next[j].DisplayOrder })
	s.media[listingID] = next
	return removed, nil
}

func listingOrder(order string) (func(a, b *listingDatamodel.Listing) bool, error) {
	switch order {
	case "":
		return nil, nil
	case listing.OrderPublishedDesc:
		return func(a, b *listingDatamodel.Listing) bool { return timeAfter(a.PublishedAt, b.PublishedAt) }, nil
	case listing.OrderExpiresAsc:
		return func(a, b *listingDatamodel.Listing) bool { return timeAfter(b.ExpiresAt, a.ExpiresAt) }, nil
	case listing.OrderCreatedDesc:
		return func(a, b *listingDatamodel.Listing) bool { return a.CreatedAt.After(b.CreatedAt) }, nil
	default:
		return nil, fmt.Errorf("unsupported order %q", order)
	}
}

// timeAfter sorts nil times last.
func timeAfter(a, b *time.Time) bool {
	switch {
	case a == nil:
		return false
	case b == nil:
		return true
	default:
		return a.After(*b)
	}
}

func page[T any](rows []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(rows) {
			return nil
		}
		rows = rows[offset:]
	}
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows
}

func applyListingFields(l *listingDatamodel.Listing, fields listing.Fields) error {
	for column, value := range fields {
		var err error
		switch column {
		case "seller_id":
			l.SellerID, err = stringPtr(column, value)
		case "listing_type":
			l.ListingType, err = plainString(column, value)
		case "category":
			l.Category, err = plainString(column, value)
		case "title":
			l.Title, err = plainString(column, value)
		case "condition":
			l.Condition, err = stringPtr(column, value)
		case "year":
			l.Year, err = intPtr(column, value)
		case "manufacturer":
			l.Manufacturer, err = stringPtr(column, value)
		case "summary":
			l.Summary, err = stringPtr(column, value)
		case "description":
			l.Description, err = stringPtr(column, value)
		case "price_amount":
			l.PriceAmount, err = int64Ptr(column, value)
		case "price_display":
			l.PriceDisplay, err = stringPtr(column, value)
		case "price_on_quote":
			b, ok := value.(bool)
			if !ok {
				err = fieldTypeError(column, value)
			}
			l.PriceOnQuote = b
		case "location":
			l.Location, err = stringPtr(column, value)
		case "contact_email":
			l.ContactEmail, err = stringPtr(column, value)
		case "contact_phone":
			l.ContactPhone, err = stringPtr(column, value)
		case "status":
			l.Status, err = plainString(column, value)
		case "published_at":
			l.PublishedAt, err = timePtr(column, value)
		case "expires_at":
			l.ExpiresAt, err = timePtr(column, value)
		case "updated_at":
			var t *time.Time
			t, err = timePtr(column, value)
			if t != nil {
				l.UpdatedAt = *t
			}
		default:
			err = fmt.Errorf("unknown listing column %q", column)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func fieldTypeError(column string, value interface{}) error {
	return fmt.Errorf("column %q: unsupported value type %T", column, value)
}

func plainString(column string, value interface{}) (string, error) {
	p, err := stringPtr(column, value)
	if err != nil || p == nil {
		return "", err
	}
	return *p, nil
}

func stringPtr(column string, value interface{}) (*string, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		return &v, nil
	case *string:
		if v == nil {
			return nil, nil
		}
		cp := *v
		return &cp, nil
	}
	return nil, fieldTypeError(column, value)
}

func intPtr(column string, value interface{}) (*int, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case int:
		return &v, nil
	case *int:
		if v == nil {
			return nil, nil
		}
		cp := *v
		return &cp, nil
	}
	return nil, fieldTypeError(column, value)
}

func int64Ptr(column string, value interface{}) (*int64, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case int64:
		return &v, nil
	case *int64:
		if v == nil {
			return nil, nil
		}
		cp := *v
		return &cp, nil
	}
	return nil, fieldTypeError(column, value)
}

func timePtr(column string, value interface{}) (*time.Time, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return &v, nil
	case *time.Time:
		if v == nil {
			return nil, nil
		}
		cp := *v
		return &cp, nil
	}
	return nil, fieldTypeError(column, value)
}
