package importer

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/oddsvault-backend/internal/notifications"
	"github.com/angelmondragon/oddsvault-backend/internal/predictions"
	"github.com/angelmondragon/oddsvault-backend/pkg/db/models"
	"github.com/angelmondragon/oddsvault-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/oddsvault-backend/pkg/errors"
	"github.com/angelmondragon/oddsvault-backend/pkg/logger"
	"github.com/angelmondragon/oddsvault-backend/pkg/metrics"
	"github.com/angelmondragon/oddsvault-backend/pkg/outbox"
	"github.com/angelmondragon/oddsvault-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/oddsvault-backend/pkg/sportsdata"
)

const (
	defaultMaxFixtures = 50

	// daily_2_odds only carries picks priced around evens-plus.
	dailyTwoOddsMin = 1.8
	dailyTwoOddsMax = 2.2
)

// Service turns a day of fixtures into stored picks.
type Service interface {
	Preview(ctx context.Context, req Request) (*PreviewResult, error)
	Sync(ctx context.Context, actorID uuid.UUID, req Request) (*SyncResult, error)
}

// ConfidenceSource returns a confidence score for a candidate. The default
// draws uniformly from [70,100] and is a placeholder, not a model.
type ConfidenceSource func() int

// RandomConfidence is the default ConfidenceSource.
func RandomConfidence() int {
	return 70 + rand.IntN(31)
}

type fixtureSource interface {
	Fixtures(ctx context.Context, date string) ([]sportsdata.Fixture, error)
	Odds(ctx context.Context, fixtureID int64) (*sportsdata.FixtureOdds, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type planLookup interface {
	FindBySlug(ctx context.Context, slug string) (*models.Plan, error)
}

type subscriberSource interface {
	SubscriberIDs(ctx context.Context, planSlug string) ([]uuid.UUID, error)
}

type notifier interface {
	Create(ctx context.Context, input notifications.CreateInput) (*models.Notification, error)
}

// ServiceParams bundles importer dependencies. Notifier and Subscribers are
// optional; without them no fan-out happens.
type ServiceParams struct {
	Source               fixtureSource
	TxRunner             txRunner
	Repo                 predictions.Repository
	Plans                planLookup
	Outbox               outbox.Emitter
	Subscribers          subscriberSource
	Notifier             notifier
	Logger               *logger.Logger
	Metrics              *metrics.ImporterMetrics
	Confidence           ConfidenceSource
	MaxFixtures          int
	DefaultMinConfidence int
	Now                  func() time.Time
}

type service struct {
	source         fixtureSource
	tx             txRunner
	repo           predictions.Repository
	plans          planLookup
	outbox         outbox.Emitter
	subscribers    subscriberSource
	notifier       notifier
	logg           *logger.Logger
	metrics        *metrics.ImporterMetrics
	confidence     ConfidenceSource
	maxFixtures    int
	defaultMinConf int
	now            func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Source == nil:
		return nil, fmt.Errorf("fixture source required")
	case params.TxRunner == nil:
		return nil, fmt.Errorf("tx runner required")
	case params.Repo == nil:
		return nil, fmt.Errorf("predictions repository required")
	case params.Plans == nil:
		return nil, fmt.Errorf("plan lookup required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	confidence := params.Confidence
	if confidence == nil {
		confidence = RandomConfidence
	}
	maxFixtures := params.MaxFixtures
	if maxFixtures <= 0 {
		maxFixtures = defaultMaxFixtures
	}
	defaultMinConf := params.DefaultMinConfidence
	if defaultMinConf <= 0 {
		defaultMinConf = 70
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		source:         params.Source,
		tx:             params.TxRunner,
		repo:           params.Repo,
		plans:          params.Plans,
		outbox:         params.Outbox,
		subscribers:    params.Subscribers,
		notifier:       params.Notifier,
		logg:           params.Logger,
		metrics:        params.Metrics,
		confidence:     confidence,
		maxFixtures:    maxFixtures,
		defaultMinConf: defaultMinConf,
		now:            now,
	}, nil
}

func (s *service) Preview(ctx context.Context, req Request) (*PreviewResult, error) {
	started := time.Now()
	defer func() { s.metrics.ObserveRun(true, time.Since(started)) }()

	req, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	rows, total, err := s.collect(ctx, req)
	if err != nil {
		return nil, err
	}
	s.metrics.AddKept(req.PlanType, true, len(rows))
	if rows == nil {
		rows = []models.Prediction{}
	}
	return &PreviewResult{
		Predictions:   rows,
		Candidates:    total,
		Filtered:      len(rows),
		MinConfidence: req.MinConfidence,
		MinOdds:       req.MinOdds,
		MaxOdds:       req.MaxOdds,
	}, nil
}

// Sync stores the filtered picks with a predictions_imported event and then
// notifies the plan's live subscribers. Notification failures are logged and
// never fail the run.
func (s *service) Sync(ctx context.Context, actorID uuid.UUID, req Request) (*SyncResult, error) {
	started := time.Now()
	defer func() { s.metrics.ObserveRun(false, time.Since(started)) }()

	req, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	rows, _, err := s.collect(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return &SyncResult{Synced: 0}, nil
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).CreateBatch(ctx, rows); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store predictions")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPredictionsImported,
			AggregateType: enums.AggregatePrediction,
			AggregateID:   uuid.New(),
			Actor:         &outbox.ActorRef{UserID: actorID, Role: string(enums.RoleAdmin)},
			Data: payloads.PredictionsImportedEvent{
				PlanType: req.PlanType,
				Date:     req.Date,
				Count:    len(rows),
				RunAt:    s.now(),
			},
		})
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sync predictions")
	}
	s.metrics.AddKept(req.PlanType, false, len(rows))

	if err := s.notifySubscribers(ctx, req, len(rows)); err != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{"plan_type": req.PlanType, "date": req.Date})
		s.logg.Error(logCtx, "importer.notify_failed", err)
	}
	return &SyncResult{Synced: len(rows)}, nil
}

// prepare normalizes the request and requires its plan type to name a
// known plan.
func (s *service) prepare(ctx context.Context, req Request) (Request, error) {
	req, err := req.normalize(s.defaultMinConf)
	if err != nil {
		return req, err
	}
	if _, err := s.plans.FindBySlug(ctx, req.PlanType); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return req, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown planType %q", req.PlanType)
		}
		return req, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load plan")
	}
	return req, nil
}

// collect fetches fixtures and odds and returns the picks that survive the
// filters along with the number of candidates considered.
func (s *service) collect(ctx context.Context, req Request) ([]models.Prediction, int, error) {
	fixtures, err := s.source.Fixtures(ctx, req.Date)
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, 0, err
		}
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch fixtures")
	}
	if len(fixtures) > s.maxFixtures {
		fixtures = fixtures[:s.maxFixtures]
	}
	s.metrics.AddFixtures(req.PlanType, len(fixtures))

	var (
		kept  []models.Prediction
		total int
	)
	for _, fixture := range fixtures {
		odds, err := s.source.Odds(ctx, fixture.ID)
		if err != nil {
			s.metrics.IncOddsFailure()
			logCtx := s.logg.WithFields(ctx, map[string]any{"fixture_id": fixture.ID, "error": err.Error()})
			s.logg.Warn(logCtx, "importer.odds_unavailable")
			continue
		}
		for _, c := range candidatesFor(fixture, odds) {
			total++
			confidence := s.confidence()
			if !keep(req, c.odds, confidence) {
				continue
			}
			kept = append(kept, toPrediction(req.PlanType, c, confidence))
		}
	}
	return kept, total, nil
}

func keep(req Request, odds float64, confidence int) bool {
	if confidence < req.MinConfidence {
		return false
	}
	if req.MinOdds != nil && odds < *req.MinOdds {
		return false
	}
	if req.MaxOdds != nil && odds > *req.MaxOdds {
		return false
	}
	if req.PlanType == enums.PlanTypeDaily2Odds && (odds < dailyTwoOddsMin || odds > dailyTwoOddsMax) {
		return false
	}
	return true
}

func toPrediction(planType string, c candidate, confidence int) models.Prediction {
	fixtureID := c.fixture.ID
	return models.Prediction{
		ID:         uuid.New(),
		PlanType:   planType,
		HomeTeam:   c.fixture.Home.Name,
		AwayTeam:   c.fixture.Away.Name,
		League:     c.fixture.LeagueName,
		Market:     c.market,
		Odds:       decimal.NewFromFloat(c.odds).Round(2),
		Confidence: confidence,
		KickoffAt:  c.fixture.KickoffAt.UTC(),
		Status:     enums.PredictionStatusPending,
		FixtureID:  &fixtureID,
		Source:     enums.PredictionSourceImport,
	}
}

func (s *service) notifySubscribers(ctx context.Context, req Request, count int) error {
	if s.subscribers == nil || s.notifier == nil {
		return nil
	}
	ids, err := s.subscribers.SubscriberIDs(ctx, req.PlanType)
	if err != nil {
		return err
	}
	var errs error
	for _, id := range ids {
		_, err := s.notifier.Create(ctx, notifications.CreateInput{
			UserID:  id,
			Type:    enums.NotificationTypePrediction,
			Title:   "New predictions available",
			Message: fmt.Sprintf("%d new %s predictions for %s are live.", count, req.PlanType, req.Date),
			Link:    "/predictions?plan=" + req.PlanType + "&date=" + req.Date,
		})
		errs = multierr.Append(errs, err)
	}
	return errs
}
