package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeListingPublished = "listing.published"
	EventTypeListingExpired   = "listing.expired"
)

// ListingPublishedEvent is emitted once per listing, after the draft to
// published write was applied.
type ListingPublishedEvent struct {
	BaseEvent
	ListingID   string    `json:"listing_id"`
	Reason      string    `json:"reason"`
	PublishedAt time.Time `json:"published_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func NewListingPublishedEvent(listingID, reason string, publishedAt, expiresAt time.Time) *ListingPublishedEvent {
	return &ListingPublishedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeListingPublished,
			Timestamp: time.Now().UTC(),
			Data: map[string]interface{}{
				"listing_id":   listingID,
				"reason":       reason,
				"published_at": publishedAt,
				"expires_at":   expiresAt,
			},
		},
		ListingID:   listingID,
		Reason:      reason,
		PublishedAt: publishedAt,
		ExpiresAt:   expiresAt,
	}
}

type ListingExpiredEvent struct {
	BaseEvent
	ListingID string    `json:"listing_id"`
	ExpiredAt time.Time `json:"expired_at"`
}

func NewListingExpiredEvent(listingID string, expiredAt time.Time) *ListingExpiredEvent {
	return &ListingExpiredEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeListingExpired,
			Timestamp: time.Now().UTC(),
			Data: map[string]interface{}{
				"listing_id": listingID,
				"expired_at": expiredAt,
			},
		},
		ListingID: listingID,
		ExpiredAt: expiredAt,
	}
}
