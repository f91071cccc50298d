package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/frahmantamala/listing-marketplace/internal/listing"
	"github.com/frahmantamala/listing-marketplace/pkg/logger"
	"github.com/spf13/cobra"
)

type demoListing struct {
	basics  listing.BasicsDTO
	details listing.DetailsDTO
	pricing listing.PricingDTO
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }
func i64Ptr(i int64) *int64   { return &i }

var demoListings = []demoListing{
	{
		basics: listing.BasicsDTO{ListingType: listing.TypeEquipment, Category: "Pompage", Title: "Pompe centrifuge inox 15 kW"},
		details: listing.DetailsDTO{
			Condition:    strPtr("Révisé"),
			Year:         intPtr(2019),
			Manufacturer: strPtr("Grundfos"),
			Summary:      "Pompe centrifuge révisée, garnitures neuves.",
			Description:  "Pompe centrifuge inox 316L, débit nominal 60 m3/h, révisée en atelier avec garnitures mécaniques neuves.",
		},
		pricing: listing.PricingDTO{PriceAmount: i64Ptr(850000), Location: "Lyon", ContactEmail: "atelier@example.com"},
	},
	{
		basics: listing.BasicsDTO{ListingType: listing.TypeEquipment, Category: "Agitation", Title: "Agitateur vertical pour cuve 10 m3"},
		details: listing.DetailsDTO{
			Condition:   strPtr("Bon état"),
			Summary:     "Agitateur à hélice, moteur 5,5 kW.",
			Description: "Agitateur vertical démonté d'une cuve de 10 m3, arbre inox, réducteur révisé.",
		},
		pricing: listing.PricingDTO{PriceOnQuote: true, Location: "Nantes", ContactEmail: "ventes@example.com"},
	},
	{
		basics: listing.BasicsDTO{ListingType: listing.TypePart, Category: "Instrumentation", Title: "Lot de sondes de pH industrielles"},
		details: listing.DetailsDTO{
			Condition:   strPtr("Neuf"),
			Summary:     "Six sondes neuves en emballage d'origine.",
			Description: "Lot de six sondes de pH pour process, jamais montées, certificats d'étalonnage fournis.",
		},
		pricing: listing.PricingDTO{PriceAmount: i64Ptr(120000), Location: "Lille", ContactEmail: "stock@example.com", ContactPhone: strPtr("+33 3 20 00 00 00")},
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample listings",
	Long:  `Seed the database with published demo listings for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		if cfg.Database.IsMemory() {
			log.Fatal("seeding in-memory records is pointless: they vanish when this command exits")
		}

		ctx := context.Background()
		app, err := buildApplication(ctx, cfg, logger.LoggerWrapper())
		if err != nil {
			log.Fatalf("failed to init application: %v", err)
		}
		defer app.close()

		if clearData {
			if _, err := app.db.ExecContext(ctx, "TRUNCATE reports, payments, listing_media, listings RESTART IDENTITY"); err != nil {
				log.Fatalf("failed to clear data: %v", err)
			}
			fmt.Println("Cleared listings, payments and reports")
		}

		for _, demo := range demoListings {
			id, err := seedListing(ctx, app.listings, demo)
			if err != nil {
				log.Fatalf("failed to seed %q: %v", demo.basics.Title, err)
			}
			fmt.Println("Seeded published listing:", id, demo.basics.Title)
		}
	},
}

// seedListing walks the wizard and publishes directly, skipping checkout.
func seedListing(ctx context.Context, svc *listing.Service, demo demoListing) (string, error) {
	l, err := svc.SaveBasics(ctx, "", demo.basics, "seed")
	if err != nil {
		return "", fmt.Errorf("basics: %w", err)
	}
	if _, err := svc.SaveDetails(ctx, l.ID, demo.details); err != nil {
		return "", fmt.Errorf("details: %w", err)
	}
	if _, err := svc.SavePricing(ctx, l.ID, demo.pricing); err != nil {
		return "", fmt.Errorf("pricing: %w", err)
	}
	if _, err := svc.Publish(ctx, l.ID, "seed"); err != nil {
		return "", fmt.Errorf("publish: %w", err)
	}
	return l.ID, nil
}
