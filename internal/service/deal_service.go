package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sivaangayarkanni/crm/internal/analytics"
	"github.com/sivaangayarkanni/crm/internal/apperr"
	"github.com/sivaangayarkanni/crm/internal/models"
	"github.com/sivaangayarkanni/crm/internal/repository"
	"github.com/sivaangayarkanni/crm/internal/scoring"
	"github.com/sivaangayarkanni/crm/pkg/logger"
	"go.uber.org/zap"
)

// CreateDealInput carries the fields of a new deal. Zero values take the
// deal defaults; a nil Probability means the default probability.
type CreateDealInput struct {
	Title             string
	Description       string
	Value             float64
	Currency          string
	Pipeline          string
	Stage             scoring.DealStage
	Probability       *int
	Status            models.DealStatus
	Company           string
	LeadID            *string
	Tags              []string
	ExpectedCloseDate *time.Time
}

// UpdateDealInput is a partial update; nil fields are left untouched.
type UpdateDealInput struct {
	Title             *string
	Description       *string
	Value             *float64
	Currency          *string
	Pipeline          *string
	Stage             *scoring.DealStage
	Probability       *int
	Status            *models.DealStatus
	Company           *string
	Tags              *[]string
	ExpectedCloseDate *time.Time
}

// AddActivityInput describes an activity logged against a deal.
type AddActivityInput struct {
	Type            models.ActivityType
	Description     string
	Outcome         string
	DurationMinutes int
	ScheduledAt     *time.Time
}

// PipelineStage is one stage of the pipeline view with its best deals.
type PipelineStage struct {
	analytics.StageSummary
	Deals []*models.Deal `json:"deals"`
}

// PipelineView is the open pipeline of a tenant grouped by stage.
type PipelineView struct {
	Pipeline      string          `json:"pipeline,omitempty"`
	Stages        []PipelineStage `json:"stages"`
	TotalDeals    int             `json:"total_deals"`
	TotalValue    float64         `json:"total_value"`
	WeightedValue float64         `json:"weighted_value"`
}

// DealService manages deals and keeps their predictions current
type DealService struct {
	repo        *repository.DealRepository
	engine      *scoring.Engine
	invalidator Invalidator
	now         Clock
}

// NewDealService creates a new deal service
func NewDealService(repo *repository.DealRepository, engine *scoring.Engine, invalidator Invalidator) *DealService {
	if invalidator == nil {
		invalidator = noopInvalidator{}
	}
	return &DealService{
		repo:        repo,
		engine:      engine,
		invalidator: invalidator,
		now:         utcNow,
	}
}

// WithClock replaces the service clock.
func (s *DealService) WithClock(now Clock) *DealService {
	s.now = now
	return s
}

// Create stores a new deal scored against the current time
func (s *DealService) Create(ctx context.Context, tenantID string, in CreateDealInput) (*models.Deal, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	now := s.now()
	deal := &models.Deal{
		TenantID:          tenantID,
		Title:             strings.TrimSpace(in.Title),
		Description:       in.Description,
		Value:             in.Value,
		Currency:          strings.ToUpper(strings.TrimSpace(in.Currency)),
		Pipeline:          strings.TrimSpace(in.Pipeline),
		Stage:             in.Stage,
		Probability:       models.DefaultProbability,
		Status:            in.Status,
		Company:           strings.TrimSpace(in.Company),
		LeadID:            in.LeadID,
		Tags:              in.Tags,
		ExpectedCloseDate: in.ExpectedCloseDate,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if in.Probability != nil {
		deal.Probability = *in.Probability
	}
	if deal.Currency == "" {
		deal.Currency = models.DefaultCurrency
	}
	if deal.Pipeline == "" {
		deal.Pipeline = models.DefaultPipeline
	}
	if deal.Stage == "" {
		deal.Stage = scoring.StageQualification
	}
	if deal.Status == "" {
		deal.Status = models.DealOpen
	}
	switch deal.Stage {
	case scoring.StageClosedWon:
		deal.Status, deal.Probability = models.DealWon, 100
	case scoring.StageClosedLost:
		deal.Status, deal.Probability = models.DealLost, 0
	}
	if deal.Status.IsClosed() {
		deal.ActualCloseDate = &now
	}

	s.score(deal, now)
	if err := s.repo.Create(ctx, deal); err != nil {
		logger.Error("Failed to create deal", zap.String("tenant_id", tenantID), zap.Error(err))
		return nil, fmt.Errorf("failed to create deal: %w", err)
	}

	logger.Info("Deal created",
		zap.String("tenant_id", tenantID),
		zap.String("deal_id", deal.ID),
		zap.Int("deal_score", deal.DealScore),
		zap.String("risk_level", string(deal.RiskLevel)),
	)

	s.invalidator.Invalidate(ctx, tenantID)
	return deal, nil
}

// Get retrieves a deal of the tenant
func (s *DealService) Get(ctx context.Context, tenantID, id string) (*models.Deal, error) {
	return s.load(ctx, tenantID, id)
}

// List retrieves one page of the tenant's deals
func (s *DealService) List(ctx context.Context, tenantID string, filter repository.DealFilter) ([]*models.Deal, int64, error) {
	if filter.Stage != "" && !filter.Stage.IsValid() {
		return nil, 0, apperr.Validation(fmt.Sprintf("unknown stage %q", filter.Stage))
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, 0, apperr.Validation(fmt.Sprintf("unknown status %q", filter.Status))
	}

	deals, total, err := s.repo.List(ctx, tenantID, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list deals: %w", err)
	}
	return deals, total, nil
}

// Update applies a partial update and rescores when a scoring input changed
func (s *DealService) Update(ctx context.Context, tenantID, id string, in UpdateDealInput) (*models.Deal, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	deal, err := s.mutate(ctx, tenantID, id, func(deal *models.Deal, now time.Time) (bool, []*models.DealActivity, error) {
		return in.apply(deal, now)
	})
	if err != nil {
		return nil, err
	}

	s.invalidator.Invalidate(ctx, tenantID)
	return deal, nil
}

// UpdateStage moves the deal to another pipeline stage and logs the change
func (s *DealService) UpdateStage(ctx context.Context, tenantID, id string, stage scoring.DealStage) (*models.Deal, error) {
	if !stage.IsValid() {
		return nil, apperr.Validation(fmt.Sprintf("unknown stage %q", stage))
	}

	deal, err := s.mutate(ctx, tenantID, id, func(deal *models.Deal, now time.Time) (bool, []*models.DealActivity, error) {
		return true, []*models.DealActivity{deal.ApplyStage(stage, now)}, nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Deal stage updated",
		zap.String("deal_id", id),
		zap.String("stage", string(stage)),
		zap.Int("deal_score", deal.DealScore),
	)

	s.invalidator.Invalidate(ctx, tenantID)
	return deal, nil
}

// AddActivity logs an activity and counts it towards the deal's engagement
func (s *DealService) AddActivity(ctx context.Context, tenantID, id string, in AddActivityInput) (*models.Deal, *models.DealActivity, error) {
	if !in.Type.IsValid() {
		return nil, nil, apperr.Validation(fmt.Sprintf("unknown activity type %q", in.Type))
	}
	if in.DurationMinutes < 0 {
		return nil, nil, apperr.Validation("duration cannot be negative")
	}

	var activity *models.DealActivity
	deal, err := s.mutate(ctx, tenantID, id, func(deal *models.Deal, now time.Time) (bool, []*models.DealActivity, error) {
		activity = deal.RecordActivity(&models.DealActivity{
			Type:            in.Type,
			Description:     strings.TrimSpace(in.Description),
			Outcome:         strings.TrimSpace(in.Outcome),
			DurationMinutes: in.DurationMinutes,
			ScheduledAt:     in.ScheduledAt,
		}, now)
		return true, []*models.DealActivity{activity}, nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.invalidator.Invalidate(ctx, tenantID)
	return deal, activity, nil
}

// Activities lists the newest activities of a deal
func (s *DealService) Activities(ctx context.Context, tenantID, id string, limit int) ([]*models.DealActivity, error) {
	if _, err := s.load(ctx, tenantID, id); err != nil {
		return nil, err
	}

	activities, err := s.repo.ListActivities(ctx, tenantID, id, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list deal activities: %w", err)
	}
	return activities, nil
}

// Pipeline groups the open deals of the tenant by stage
func (s *DealService) Pipeline(ctx context.Context, tenantID, pipeline string) (*PipelineView, error) {
	deals, err := s.repo.ListOpen(ctx, tenantID, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to load pipeline: %w", err)
	}

	// ListOpen returns the highest scores first, so the first deals seen per
	// stage are its top deals.
	top := make(map[scoring.DealStage][]*models.Deal)
	for _, deal := range deals {
		if len(top[deal.Stage]) < analytics.PipelineTopDeals {
			top[deal.Stage] = append(top[deal.Stage], deal)
		}
	}

	view := &PipelineView{Pipeline: pipeline}
	for _, summary := range analytics.PipelineByStage(deals) {
		stageDeals := top[summary.Stage]
		if stageDeals == nil {
			stageDeals = []*models.Deal{}
		}
		view.Stages = append(view.Stages, PipelineStage{StageSummary: summary, Deals: stageDeals})
		view.TotalDeals += summary.Count
		view.TotalValue += summary.Value
		view.WeightedValue += summary.WeightedValue
	}

	return view, nil
}

// Rescore recomputes the deal prediction against the current time
func (s *DealService) Rescore(ctx context.Context, tenantID, id string) (*models.Deal, error) {
	deal, err := s.rescore(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	s.invalidator.Invalidate(ctx, tenantID)
	return deal, nil
}

func (s *DealService) rescore(ctx context.Context, tenantID, id string) (*models.Deal, error) {
	return s.mutate(ctx, tenantID, id, func(*models.Deal, time.Time) (bool, []*models.DealActivity, error) {
		return true, nil, nil
	})
}

// Delete soft-deletes the deal
func (s *DealService) Delete(ctx context.Context, tenantID, id string) error {
	deleted, err := s.repo.SoftDelete(ctx, tenantID, id)
	if err != nil {
		return fmt.Errorf("failed to delete deal: %w", err)
	}
	if !deleted {
		return apperr.NotFound("deal not found")
	}

	logger.Info("Deal deleted", zap.String("tenant_id", tenantID), zap.String("deal_id", id))
	s.invalidator.Invalidate(ctx, tenantID)
	return nil
}

func (s *DealService) load(ctx context.Context, tenantID, id string) (*models.Deal, error) {
	deal, err := s.repo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get deal: %w", err)
	}
	if deal == nil {
		return nil, apperr.NotFound("deal not found")
	}
	return deal, nil
}

// mutate loads the deal, applies change and writes it back with the returned
// activities under the version check, retrying from a fresh copy on
// conflicts.
func (s *DealService) mutate(ctx context.Context, tenantID, id string, change func(*models.Deal, time.Time) (bool, []*models.DealActivity, error)) (*models.Deal, error) {
	for attempt := 1; ; attempt++ {
		deal, err := s.load(ctx, tenantID, id)
		if err != nil {
			return nil, err
		}

		now := s.now()
		rescore, activities, err := change(deal, now)
		if err != nil {
			return nil, err
		}
		if rescore || deal.AIAnalyzedAt == nil {
			s.score(deal, now)
		}

		err = s.repo.Update(ctx, deal, activities...)
		if err == nil {
			return deal, nil
		}
		if !errors.Is(err, repository.ErrVersionConflict) {
			return nil, fmt.Errorf("failed to update deal: %w", err)
		}
		if attempt == maxUpdateAttempts {
			return nil, apperr.Wrap(apperr.KindConflict, "deal is being modified concurrently, try again", err)
		}

		logger.Warn("Deal version conflict, retrying",
			zap.String("deal_id", id),
			zap.Int("attempt", attempt),
		)
	}
}

func (s *DealService) score(deal *models.Deal, now time.Time) {
	deal.ApplyScore(s.engine.ScoreDeal(deal.ScoreInput(), now), now)
}

func (in CreateDealInput) validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return apperr.Validation("title is required")
	}
	if in.Value < 0 {
		return apperr.Validation("value cannot be negative")
	}
	return validateDealFields(in.Stage, in.Status, in.Probability)
}

func (in UpdateDealInput) validate() error {
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		return apperr.Validation("title cannot be empty")
	}
	if in.Value != nil && *in.Value < 0 {
		return apperr.Validation("value cannot be negative")
	}

	var stage scoring.DealStage
	var status models.DealStatus
	if in.Stage != nil {
		stage = *in.Stage
	}
	if in.Status != nil {
		status = *in.Status
	}
	return validateDealFields(stage, status, in.Probability)
}

func validateDealFields(stage scoring.DealStage, status models.DealStatus, probability *int) error {
	if stage != "" && !stage.IsValid() {
		return apperr.Validation(fmt.Sprintf("unknown stage %q", stage))
	}
	if status != "" && !status.IsValid() {
		return apperr.Validation(fmt.Sprintf("unknown status %q", status))
	}
	if probability != nil && (*probability < 0 || *probability > 100) {
		return apperr.Validation("probability must be between 0 and 100")
	}
	return nil
}

// apply merges the update into deal. It reports whether a scoring input
// changed and returns the stage change activity, if any. A deal whose stage
// ends up closed cannot be set back to open.
func (in UpdateDealInput) apply(deal *models.Deal, now time.Time) (bool, []*models.DealActivity, error) {
	stage := deal.Stage
	if in.Stage != nil {
		stage = *in.Stage
	}
	if in.Status != nil && *in.Status == models.DealOpen && stage.IsClosed() {
		return false, nil, apperr.Validation(fmt.Sprintf("deal in stage %s cannot be open, move it to an open stage first", stage))
	}

	changed := false
	var activities []*models.DealActivity

	if in.Title != nil {
		deal.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		deal.Description = *in.Description
	}
	if in.Currency != nil {
		deal.Currency = strings.ToUpper(strings.TrimSpace(*in.Currency))
	}
	if in.Pipeline != nil {
		deal.Pipeline = strings.TrimSpace(*in.Pipeline)
	}
	if in.Company != nil {
		deal.Company = strings.TrimSpace(*in.Company)
	}
	if in.Tags != nil {
		deal.Tags = *in.Tags
	}

	if in.Value != nil && *in.Value != deal.Value {
		deal.Value = *in.Value
		changed = true
	}
	if in.Probability != nil && *in.Probability != deal.Probability {
		deal.Probability = *in.Probability
		changed = true
	}
	if in.ExpectedCloseDate != nil && (deal.ExpectedCloseDate == nil || !in.ExpectedCloseDate.Equal(*deal.ExpectedCloseDate)) {
		closeDate := *in.ExpectedCloseDate
		deal.ExpectedCloseDate = &closeDate
		changed = true
	}
	if in.Stage != nil {
		if activity := deal.ApplyStage(*in.Stage, now); activity != nil {
			activities = append(activities, activity)
			changed = true
		}
	}
	if in.Status != nil && *in.Status != deal.Status {
		deal.ApplyStatus(*in.Status, now)
		changed = true
	}

	return changed, activities, nil
}
