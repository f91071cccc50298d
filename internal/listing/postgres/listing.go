package postgres

import (
	"context"
	"errors"
	"fmt"

	listingDatamodel "github.com/frahmantamala/listing-marketplace/internal/core/datamodel/listing"
	"github.com/frahmantamala/listing-marketplace/internal/listing"
	"gorm.io/gorm"
)

var allowedOrders = map[string]bool{
	listing.OrderPublishedDesc: true,
	listing.OrderExpiresAsc:    true,
	listing.OrderCreatedDesc:   true,
}

// ListingRepository implements listing.RepositoryAPI using GORM
type ListingRepository struct {
	db *gorm.DB
}

func NewListingRepository(db *gorm.DB) *ListingRepository {
	return &ListingRepository{db: db}
}

var _ listing.RepositoryAPI = (*ListingRepository)(nil)

func (r *ListingRepository) Create(ctx context.Context, l *listingDatamodel.Listing) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *ListingRepository) GetByID(ctx context.Context, id string) (*listingDatamodel.Listing, error) {
	var l listingDatamodel.Listing
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&l).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, listing.ErrListingNotFound
		}
		return nil, err
	}
	return &l, nil
}

func (r *ListingRepository) Update(ctx context.Context, id string, fields listing.Fields) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&listingDatamodel.Listing{}).
		Where("id = ?", id).
		Updates(map[string]interface{}(fields))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// UpdateIfStatus writes only while the row still has the expected status, so
// concurrent transitions race on a single conditional UPDATE.
func (r *ListingRepository) UpdateIfStatus(ctx context.Context, id, expected string, fields listing.Fields) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&listingDatamodel.Listing{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(map[string]interface{}(fields))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *ListingRepository) List(ctx context.Context, filter listing.Filter, order string, limit, offset int) ([]*listingDatamodel.Listing, error) {
	q := r.db.WithContext(ctx).Model(&listingDatamodel.Listing{})

	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.SellerID != "" {
		q = q.Where("seller_id = ?", filter.SellerID)
	}
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.ListingType != "" {
		q = q.Where("listing_type = ?", filter.ListingType)
	}
	if filter.ExpiresAtOrBefore != nil {
		q = q.Where("expires_at IS NOT NULL AND expires_at <= ?", *filter.ExpiresAtOrBefore)
	}

	if order != "" {
		if !allowedOrders[order] {
			return nil, fmt.Errorf("unsupported order %q", order)
		}
		q = q.Order(order)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}

	var listings []*listingDatamodel.Listing
	err := q.Find(&listings).Error
	return listings, err
}

func (r *ListingRepository) GetMedia(ctx context.Context, listingID string) ([]*listingDatamodel.Media, error) {
	var media []*listingDatamodel.Media
	err := r.db.WithContext(ctx).
		Where("listing_id = ?", listingID).
		Order("display_order ASC").
		Find(&media).Error
	return media, err
}

// ReplaceMedia swaps the whole media set in one transaction and returns the
// rows it removed so the caller can delete their objects.
func (r *ListingRepository) ReplaceMedia(ctx context.Context, listingID string, media []*listingDatamodel.Media) ([]*listingDatamodel.Media, error) {
	var removed []*listingDatamodel.Media

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("listing_id = ?", listingID).Order("display_order ASC").Find(&removed).Error; err != nil {
			return err
		}
		if err := tx.Where("listing_id = ?", listingID).Delete(&listingDatamodel.Media{}).Error; err != nil {
			return err
		}
		if len(media) == 0 {
			return nil
		}
		return tx.Create(&media).Error
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}
