package importer

import (
	"strings"
	"time"

	"github.com/angelmondragon/oddsvault-backend/pkg/db/models"
	"github.com/angelmondragon/oddsvault-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/oddsvault-backend/pkg/errors"
)

const (
	dateLayout         = "2006-01-02"
	minConfidenceFloor = 50
	minConfidenceCeil  = 100
)

// Request drives one import run. MinOdds and MaxOdds are optional bounds.
type Request struct {
	Date          string   `json:"date" validate:"required"`
	PlanType      string   `json:"planType" validate:"required"`
	MinConfidence int      `json:"minConfidence"`
	MinOdds       *float64 `json:"minOdds,omitempty"`
	MaxOdds       *float64 `json:"maxOdds,omitempty"`
	Preview       bool     `json:"preview"`
}

// PreviewResult lists what a sync would store without writing anything.
type PreviewResult struct {
	Predictions   []models.Prediction `json:"predictions"`
	Candidates    int                 `json:"candidates"`
	Filtered      int                 `json:"filtered"`
	MinConfidence int                 `json:"minConfidence"`
	MinOdds       *float64            `json:"minOdds"`
	MaxOdds       *float64            `json:"maxOdds"`
}

// SyncResult reports how many picks were stored.
type SyncResult struct {
	Synced int `json:"synced"`
}

// normalize validates the request before any upstream call and fills the
// confidence default.
func (r Request) normalize(defaultConfidence int) (Request, error) {
	r.Date = strings.TrimSpace(r.Date)
	r.PlanType = enums.NormalizePlanSlug(r.PlanType)
	if r.Date == "" {
		return r, pkgerrors.New(pkgerrors.CodeValidation, "date is required")
	}
	if _, err := time.Parse(dateLayout, r.Date); err != nil {
		return r, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "date must be YYYY-MM-DD")
	}
	if r.PlanType == "" {
		return r, pkgerrors.New(pkgerrors.CodeValidation, "planType is required")
	}
	if r.MinOdds != nil && r.MaxOdds != nil && *r.MinOdds >= *r.MaxOdds {
		return r, pkgerrors.New(pkgerrors.CodeValidation, "minOdds must be lower than maxOdds")
	}

	if r.MinConfidence == 0 {
		r.MinConfidence = defaultConfidence
	}
	if r.MinConfidence < minConfidenceFloor {
		r.MinConfidence = minConfidenceFloor
	}
	if r.MinConfidence > minConfidenceCeil {
		r.MinConfidence = minConfidenceCeil
	}
	return r, nil
}
