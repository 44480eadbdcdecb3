package plans

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/angelmondragon/oddsvault-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/oddsvault-backend/pkg/errors"
)

// Catalog is the YAML document consumed by cmd/seed.
type Catalog struct {
	Plans []CatalogPlan `yaml:"plans"`
}

type CatalogPlan struct {
	Name               string         `yaml:"name"`
	Slug               string         `yaml:"slug"`
	Description        string         `yaml:"description"`
	RequiresActivation bool           `yaml:"requires_activation"`
	Benefits           []string       `yaml:"benefits"`
	DurationDays       int            `yaml:"duration_days"`
	SortOrder          int            `yaml:"sort_order"`
	Active             *bool          `yaml:"active"`
	Prices             []CatalogPrice `yaml:"prices"`
}

// CatalogPrice amounts are strings so YAML floats never round them.
type CatalogPrice struct {
	Country       string `yaml:"country"`
	DurationDays  int    `yaml:"duration_days"`
	Price         string `yaml:"price"`
	ActivationFee string `yaml:"activation_fee"`
	Currency      string `yaml:"currency"`
}

// SeedResult counts what a Seed call wrote.
type SeedResult struct {
	Created int
	Updated int
	Prices  int
}

// LoadCatalog decodes and sanity checks a catalog. Unknown keys fail.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var catalog Catalog
	if err := dec.Decode(&catalog); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	seen := map[string]bool{}
	for i, p := range catalog.Plans {
		slug := enums.NormalizePlanSlug(p.Slug)
		if strings.TrimSpace(p.Name) == "" || slug == "" {
			return nil, fmt.Errorf("plan %d: name and slug are required", i)
		}
		if seen[slug] {
			return nil, fmt.Errorf("plan %q listed twice", slug)
		}
		seen[slug] = true
		for j, price := range p.Prices {
			if _, err := decimal.NewFromString(price.Price); err != nil {
				return nil, fmt.Errorf("plan %q price %d: %w", slug, j, err)
			}
			if price.ActivationFee != "" {
				if _, err := decimal.NewFromString(price.ActivationFee); err != nil {
					return nil, fmt.Errorf("plan %q activation fee %d: %w", slug, j, err)
				}
			}
		}
	}
	return &catalog, nil
}

// Seed creates missing plans, updates existing ones by slug and upserts every
// listed price. Running it twice leaves the same rows.
func Seed(ctx context.Context, svc Service, catalog *Catalog) (SeedResult, error) {
	var result SeedResult
	for _, entry := range catalog.Plans {
		planID, created, err := upsertPlan(ctx, svc, entry)
		if err != nil {
			return result, fmt.Errorf("plan %q: %w", entry.Slug, err)
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}
		for _, price := range entry.Prices {
			req := UpsertPriceRequest{
				Country:      price.Country,
				DurationDays: price.DurationDays,
				Price:        decimal.RequireFromString(price.Price),
				Currency:     price.Currency,
			}
			if req.DurationDays <= 0 {
				req.DurationDays = entry.DurationDays
			}
			if price.ActivationFee != "" {
				fee := decimal.RequireFromString(price.ActivationFee)
				req.ActivationFee = &fee
			}
			if _, err := svc.UpsertPrice(ctx, planID, req); err != nil {
				return result, fmt.Errorf("plan %q price %s/%d: %w", entry.Slug, price.Country, req.DurationDays, err)
			}
			result.Prices++
		}
	}
	return result, nil
}

func upsertPlan(ctx context.Context, svc Service, entry CatalogPlan) (planID uuid.UUID, created bool, err error) {
	existing, err := svc.Get(ctx, entry.Slug, "")
	if err != nil && !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		return planID, false, err
	}
	if existing == nil {
		plan, err := svc.Create(ctx, CreatePlanRequest{
			Name:               entry.Name,
			Slug:               entry.Slug,
			Description:        entry.Description,
			RequiresActivation: entry.RequiresActivation,
			Benefits:           entry.Benefits,
			DurationDays:       entry.DurationDays,
			SortOrder:          entry.SortOrder,
			IsActive:           entry.Active,
		})
		if err != nil {
			return planID, false, err
		}
		return plan.ID, true, nil
	}
	benefits := entry.Benefits
	update := UpdatePlanRequest{
		Name:               &entry.Name,
		Description:        &entry.Description,
		RequiresActivation: &entry.RequiresActivation,
		Benefits:           &benefits,
		SortOrder:          &entry.SortOrder,
		IsActive:           entry.Active,
	}
	if entry.DurationDays > 0 {
		update.DurationDays = &entry.DurationDays
	}
	plan, err := svc.Update(ctx, existing.ID, update)
	if err != nil {
		return planID, false, err
	}
	return plan.ID, false, nil
}
