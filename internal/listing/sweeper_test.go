package listing_test

import (
	"context"
	"sync"
	"time"

	listingDatamodel "github.com/frahmantamala/listing-marketplace/internal/core/datamodel/listing"
	"github.com/frahmantamala/listing-marketplace/internal/core/events"
	"github.com/frahmantamala/listing-marketplace/internal/listing"
	"github.com/frahmantamala/listing-marketplace/internal/memstore"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Sweeper", func() {
	var (
		ctx       context.Context
		repo      *memstore.ListingRepository
		publisher *recordingPublisher
		now       time.Time
		sweeper   *listing.Sweeper
	)

	publishedAgo := func(id string, age time.Duration) {
		publishedAt := now.Add(-age)
		expiresAt := publishedAt.Add(listing.PublicationPeriod)
		Expect(repo.Create(ctx, &listingDatamodel.Listing{
			ID:          id,
			ListingType: listing.TypeEquipment,
			Category:    "Pompage",
			Title:       "Listing " + id,
			Status:      listing.StatusPublished,
			PublishedAt: &publishedAt,
			ExpiresAt:   &expiresAt,
			CreatedAt:   publishedAt,
			UpdatedAt:   publishedAt,
		})).To(Succeed())
	}

	statusOf := func(id string) string {
		l, err := repo.GetByID(ctx, id)
		Expect(err).NotTo(HaveOccurred())
		return l.Status
	}

	BeforeEach(func() {
		ctx = context.Background()
		repo = memstore.New().Listings()
		publisher = &recordingPublisher{}
		now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		sweeper = listing.NewSweeper(repo, publisher, quietLogger(), 2).WithClock(func() time.Time { return now })
	})

	It("expires listings past their window and keeps the rest", func() {
		publishedAgo("old", 31*24*time.Hour)
		publishedAgo("fresh", 29*24*time.Hour)

		expired, err := sweeper.Sweep(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(expired).To(Equal(1))
		Expect(statusOf("old")).To(Equal(listing.StatusExpired))
		Expect(statusOf("fresh")).To(Equal(listing.StatusPublished))

		Expect(publisher.OfType(events.EventTypeListingExpired)).To(HaveLen(1))
	})

	It("expires a listing exactly at its deadline", func() {
		publishedAgo("edge", listing.PublicationPeriod)

		expired, err := sweeper.Sweep(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(expired).To(Equal(1))
	})

	It("works through more candidates than one batch", func() {
		for _, id := range []string{"a", "b", "c", "d", "e"} {
			publishedAgo(id, 40*24*time.Hour)
		}

		expired, err := sweeper.Sweep(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(expired).To(Equal(5))
	})

	It("leaves drafts alone", func() {
		Expect(repo.Create(ctx, &listingDatamodel.Listing{
			ID: "draft", ListingType: listing.TypePart, Category: "Analyse", Title: "Draft", Status: listing.StatusDraft,
		})).To(Succeed())

		expired, err := sweeper.Sweep(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(expired).To(Equal(0))
		Expect(statusOf("draft")).To(Equal(listing.StatusDraft))
	})

	It("is a no-op on a second run", func() {
		publishedAgo("old", 31*24*time.Hour)

		_, err := sweeper.Sweep(ctx)
		Expect(err).NotTo(HaveOccurred())
		expired, err := sweeper.Sweep(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(expired).To(Equal(0))
	})

	It("expires each listing once when sweepers overlap", func() {
		for _, id := range []string{"a", "b", "c", "d"} {
			publishedAgo(id, 31*24*time.Hour)
		}

		var (
			wg    sync.WaitGroup
			mu    sync.Mutex
			total int
		)
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				n, err := sweeper.Sweep(ctx)
				Expect(err).NotTo(HaveOccurred())
				mu.Lock()
				total += n
				mu.Unlock()
			}()
		}
		wg.Wait()

		Expect(total).To(Equal(4))
		Expect(publisher.OfType(events.EventTypeListingExpired)).To(HaveLen(4))
	})
})
