// Package main provides a CLI tool for seeding the database with a demo catalog.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"tillpoint/internal/app"
	"tillpoint/internal/config"
	"tillpoint/internal/core/apperror"
	"tillpoint/internal/core/id"
	"tillpoint/internal/core/types"
	"tillpoint/internal/domain/batch"
	"tillpoint/internal/domain/catalog"
	"tillpoint/internal/domain/pricing"
	"tillpoint/internal/domain/promotion"
	"tillpoint/pkg/logger"
)

type demoBatch struct {
	quantity  types.Quantity
	cost      string
	selling   string
	mrp       string
	expiresIn time.Duration // zero means no expiry
	wholesale *pricing.Wholesale
}

type demoProduct struct {
	name      string
	category  string
	barcode   string
	tracked   bool
	threshold types.Quantity
	batches   []demoBatch
	promo     string // promotional price, empty for none
}

var demoCatalog = []demoProduct{
	{
		name: "Paracetamol 500mg (10 tabs)", category: "pharmacy/analgesics", barcode: "8901030000017",
		tracked: true, threshold: 20, promo: "18.00",
		batches: []demoBatch{
			{quantity: 40, cost: "12.00", selling: "20.00", mrp: "22.00", expiresIn: 20 * 24 * time.Hour},
			{quantity: 120, cost: "13.00", selling: "21.00", mrp: "22.00", expiresIn: 400 * 24 * time.Hour},
		},
	},
	{
		name: "Assam Tea 250g", category: "grocery/beverages", barcode: "8901030000024",
		tracked: true, threshold: 10,
		batches: []demoBatch{
			{quantity: 60, cost: "95.00", selling: "120.00", mrp: "130.00", expiresIn: 180 * 24 * time.Hour,
				wholesale: &pricing.Wholesale{Price: types.MustMoney("110.00"), MinQuantity: 12}},
		},
	},
	{
		name: "Basmati Rice 1kg", category: "grocery/staples", barcode: "8901030000031",
		tracked: false, threshold: 25,
		batches: []demoBatch{
			{quantity: 200, cost: "70.00", selling: "92.00", mrp: "99.00"},
		},
	},
	{
		name: "Bath Soap 100g", category: "personal-care", barcode: "8901030000048",
		tracked: true, threshold: 15,
		batches: []demoBatch{
			{quantity: 8, cost: "25.00", selling: "34.00", mrp: "38.00"},
		},
	},
}

func main() {
	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalw("failed to load config", "error", err)
	}
	if cfg.Storage.Driver != config.DriverPostgres {
		log.Fatal("seeding requires STORAGE_DRIVER=postgres")
	}

	ctx := logger.WithLogger(context.Background(), log)

	rt, err := app.Open(ctx, cfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer rt.Close()

	log.Info("connected to database")

	promoItems, err := seedCatalog(ctx, rt.Services, log)
	if err != nil {
		log.Fatalw("failed to seed catalog", "error", err)
	}
	if len(promoItems) > 0 {
		if err := seedPromotion(ctx, rt.Services, promoItems, log); err != nil {
			log.Fatalw("failed to seed promotion", "error", err)
		}
	}

	log.Info("seeding completed successfully")
}

// seedCatalog creates demo products and their batches. Products whose barcode
// is already registered are skipped, so the tool can be rerun.
func seedCatalog(ctx context.Context, svc *app.Services, log *logger.Logger) ([]promotion.ItemInput, error) {
	now := time.Now().UTC()
	var promoItems []promotion.ItemInput

	for _, dp := range demoCatalog {
		existing, err := svc.Catalog.GetByBarcode(ctx, dp.barcode)
		if err == nil {
			log.Infow("product already exists, skipping", "name", existing.Name, "barcode", dp.barcode)
			continue
		}
		if !apperror.HasCode(err, apperror.CodeProductNotFound) {
			return nil, fmt.Errorf("lookup %s: %w", dp.barcode, err)
		}

		category := dp.category
		threshold := dp.threshold
		p, err := svc.Catalog.CreateProduct(ctx, catalog.CreateProductInput{
			Name:                 dp.name,
			Category:             &category,
			Barcodes:             []string{dp.barcode},
			BatchTrackingEnabled: dp.tracked,
			LowStockThreshold:    &threshold,
		})
		if err != nil {
			return nil, fmt.Errorf("create product %q: %w", dp.name, err)
		}

		for _, db := range dp.batches {
			if err := seedBatch(ctx, svc, p.ID, db, now); err != nil {
				return nil, fmt.Errorf("create batch for %q: %w", dp.name, err)
			}
		}
		if dp.promo != "" {
			promoItems = append(promoItems, promotion.ItemInput{ProductID: p.ID, PromoPrice: types.MustMoney(dp.promo)})
		}
		log.Infow("seeded product", "name", p.Name, "batches", len(dp.batches))
	}
	return promoItems, nil
}

func seedBatch(ctx context.Context, svc *app.Services, productID id.ID, db demoBatch, now time.Time) error {
	in := batch.CreateInput{
		ProductID:    productID,
		Quantity:     db.quantity,
		CostPrice:    types.MustMoney(db.cost),
		SellingPrice: types.MustMoney(db.selling),
		MRP:          types.MustMoney(db.mrp),
		Wholesale:    db.wholesale,
	}
	if db.expiresIn > 0 {
		expiry := now.Add(db.expiresIn)
		in.ExpiryDate = &expiry
	}
	_, err := svc.Batches.CreateBatch(ctx, in)
	return err
}

// seedPromotion runs a two-week promotion starting today.
func seedPromotion(ctx context.Context, svc *app.Services, items []promotion.ItemInput, log *logger.Logger) error {
	start := time.Now().UTC()
	p, err := svc.Promotions.Create(ctx, promotion.CreateInput{
		Name:      "Fortnight savers",
		StartDate: start,
		EndDate:   start.Add(14 * 24 * time.Hour),
		IsActive:  true,
		Items:     items,
	})
	if err != nil {
		return err
	}
	log.Infow("seeded promotion", "name", p.Name, "items", len(items))
	return nil
}
