package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sivaangayarkanni/crm/internal/apperr"
	"github.com/sivaangayarkanni/crm/internal/models"
	"github.com/sivaangayarkanni/crm/internal/phone"
	"github.com/sivaangayarkanni/crm/internal/repository"
	"github.com/sivaangayarkanni/crm/internal/scoring"
	"github.com/sivaangayarkanni/crm/pkg/logger"
	"go.uber.org/zap"
)

// CreateLeadInput carries the fields of a new lead. Empty enums take their
// defaults.
type CreateLeadInput struct {
	Name     string
	Email    string
	Phone    string
	Company  string
	JobTitle string
	Source   scoring.LeadSource
	Status   scoring.LeadStatus
	Priority scoring.Priority
	Tags     []string
	Metadata map[string]string
}

// UpdateLeadInput is a partial update; nil fields are left untouched.
type UpdateLeadInput struct {
	Name     *string
	Email    *string
	Phone    *string
	Company  *string
	JobTitle *string
	Source   *scoring.LeadSource
	Status   *scoring.LeadStatus
	Priority *scoring.Priority
	Tags     *[]string
}

// MaxBulkLeads bounds the number of leads one bulk update may touch.
const MaxBulkLeads = 100

// BulkUpdateResult reports the outcome of a bulk update per lead.
type BulkUpdateResult struct {
	Updated  int      `json:"updated"`
	NotFound []string `json:"not_found"`
	Failed   []string `json:"failed"`
}

// AddNoteInput carries a new lead note. An empty type means general.
type AddNoteInput struct {
	Content string
	Type    models.NoteType
}

// LeadInsights is the current prediction of a lead with its recent trend.
type LeadInsights struct {
	LeadID                string                     `json:"lead_id"`
	Score                 int                        `json:"score"`
	Grade                 scoring.Grade              `json:"grade"`
	ConversionProbability float64                    `json:"conversion_probability"`
	RecommendedAction     string                     `json:"recommended_action"`
	NextBestStep          string                     `json:"next_best_step"`
	Factors               []scoring.Factor           `json:"factors"`
	AnalyzedAt            *time.Time                 `json:"analyzed_at"`
	History               []*models.LeadScoreHistory `json:"history"`
}

// LeadService manages leads and keeps their scores current
type LeadService struct {
	repo        *repository.LeadRepository
	engine      *scoring.Engine
	invalidator Invalidator
	phoneRegion string
	now         Clock
}

// NewLeadService creates a new lead service
func NewLeadService(repo *repository.LeadRepository, engine *scoring.Engine, invalidator Invalidator, phoneRegion string) *LeadService {
	if invalidator == nil {
		invalidator = noopInvalidator{}
	}
	if phoneRegion == "" {
		phoneRegion = phone.DefaultRegion
	}
	return &LeadService{
		repo:        repo,
		engine:      engine,
		invalidator: invalidator,
		phoneRegion: phoneRegion,
		now:         utcNow,
	}
}

// WithClock replaces the service clock.
func (s *LeadService) WithClock(now Clock) *LeadService {
	s.now = now
	return s
}

// Create stores a new lead scored against the current time
func (s *LeadService) Create(ctx context.Context, tenantID string, in CreateLeadInput) (*models.Lead, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	now := s.now()
	lead := &models.Lead{
		TenantID:  tenantID,
		Name:      strings.TrimSpace(in.Name),
		Email:     normalizeEmail(in.Email),
		Phone:     strings.TrimSpace(in.Phone),
		Company:   strings.TrimSpace(in.Company),
		JobTitle:  strings.TrimSpace(in.JobTitle),
		Source:    in.Source,
		Status:    in.Status,
		Priority:  in.Priority,
		Tags:      in.Tags,
		Metadata:  in.Metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if lead.Source == "" {
		lead.Source = scoring.SourceWebsite
	}
	if lead.Priority == "" {
		lead.Priority = scoring.PriorityMedium
	}
	if lead.Status == "" {
		lead.Status = scoring.StatusNew
	} else {
		lead.ApplyStatus(lead.Status, now)
	}
	lead.PhoneE164 = phone.NormalizeE164(lead.Phone, s.phoneRegion)

	history := s.score(lead, now)
	if err := s.repo.Create(ctx, lead, history); err != nil {
		logger.Error("Failed to create lead", zap.String("tenant_id", tenantID), zap.Error(err))
		return nil, fmt.Errorf("failed to create lead: %w", err)
	}

	logger.Info("Lead created",
		zap.String("tenant_id", tenantID),
		zap.String("lead_id", lead.ID),
		zap.Int("score", lead.AIScore),
		zap.String("grade", string(lead.AIGrade)),
	)

	s.invalidator.Invalidate(ctx, tenantID)
	return lead, nil
}

// Capture creates a lead submitted by an external form. Captured leads always
// start as new with medium priority.
func (s *LeadService) Capture(ctx context.Context, tenantID string, in CreateLeadInput) (*models.Lead, error) {
	in.Status = scoring.StatusNew
	in.Priority = scoring.PriorityMedium

	lead, err := s.Create(ctx, tenantID, in)
	if err != nil {
		return nil, err
	}

	logger.Info("Lead captured", zap.String("tenant_id", tenantID), zap.String("lead_id", lead.ID))
	return lead, nil
}

// Get retrieves a lead of the tenant
func (s *LeadService) Get(ctx context.Context, tenantID, id string) (*models.Lead, error) {
	return s.load(ctx, tenantID, id)
}

// List retrieves one page of the tenant's leads
func (s *LeadService) List(ctx context.Context, tenantID string, filter repository.LeadFilter) ([]*models.Lead, int64, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, 0, apperr.Validation(fmt.Sprintf("unknown status %q", filter.Status))
	}
	if filter.Source != "" && !filter.Source.IsValid() {
		return nil, 0, apperr.Validation(fmt.Sprintf("unknown source %q", filter.Source))
	}

	leads, total, err := s.repo.List(ctx, tenantID, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list leads: %w", err)
	}
	return leads, total, nil
}

// Update applies a partial update and rescores when a scoring input changed
func (s *LeadService) Update(ctx context.Context, tenantID, id string, in UpdateLeadInput) (*models.Lead, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	lead, err := s.mutate(ctx, tenantID, id, func(lead *models.Lead, now time.Time) bool {
		return in.apply(lead, now, s.phoneRegion)
	})
	if err != nil {
		return nil, err
	}

	s.invalidator.Invalidate(ctx, tenantID)
	return lead, nil
}

// BulkUpdate applies the same partial update to every listed lead. Each lead
// goes through the regular versioned update, so its score is recomputed when a
// scoring input changed. Missing leads and failed writes are reported, not
// returned as errors.
func (s *LeadService) BulkUpdate(ctx context.Context, tenantID string, ids []string, in UpdateLeadInput) (*BulkUpdateResult, error) {
	if len(ids) == 0 {
		return nil, apperr.Validation("lead ids are required")
	}
	if len(ids) > MaxBulkLeads {
		return nil, apperr.Validation(fmt.Sprintf("at most %d leads can be updated at once", MaxBulkLeads))
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	result := &BulkUpdateResult{NotFound: []string{}, Failed: []string{}}
	defer func() {
		if result.Updated > 0 {
			s.invalidator.Invalidate(ctx, tenantID)
		}
	}()

	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		if err := ctx.Err(); err != nil {
			return result, err
		}

		_, err := s.mutate(ctx, tenantID, id, func(lead *models.Lead, now time.Time) bool {
			return in.apply(lead, now, s.phoneRegion)
		})
		switch {
		case err == nil:
			result.Updated++
		case apperr.Is(err, apperr.KindNotFound):
			result.NotFound = append(result.NotFound, id)
		default:
			result.Failed = append(result.Failed, id)
			logger.Warn("Failed to bulk update lead", zap.String("lead_id", id), zap.Error(err))
		}
	}

	logger.Info("Leads bulk updated",
		zap.String("tenant_id", tenantID),
		zap.Int("updated", result.Updated),
		zap.Int("not_found", len(result.NotFound)),
		zap.Int("failed", len(result.Failed)),
	)
	return result, nil
}

// UpdateStatus moves the lead through its lifecycle
func (s *LeadService) UpdateStatus(ctx context.Context, tenantID, id string, status scoring.LeadStatus) (*models.Lead, error) {
	if !status.IsValid() {
		return nil, apperr.Validation(fmt.Sprintf("unknown status %q", status))
	}

	lead, err := s.mutate(ctx, tenantID, id, func(lead *models.Lead, now time.Time) bool {
		lead.ApplyStatus(status, now)
		return true
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Lead status updated",
		zap.String("lead_id", id),
		zap.String("status", string(status)),
		zap.Int("score", lead.AIScore),
	)

	s.invalidator.Invalidate(ctx, tenantID)
	return lead, nil
}

// RecordEngagement counts an interaction with the lead
func (s *LeadService) RecordEngagement(ctx context.Context, tenantID, id string, event models.EngagementEvent) (*models.Lead, error) {
	if !event.IsValid() {
		return nil, apperr.Validation(fmt.Sprintf("unknown engagement event %q", event))
	}

	lead, err := s.mutate(ctx, tenantID, id, func(lead *models.Lead, now time.Time) bool {
		return lead.ApplyEngagement(event, now)
	})
	if err != nil {
		return nil, err
	}

	s.invalidator.Invalidate(ctx, tenantID)
	return lead, nil
}

// Rescore recomputes the lead score against the current time
func (s *LeadService) Rescore(ctx context.Context, tenantID, id string) (*models.Lead, error) {
	lead, err := s.rescore(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	s.invalidator.Invalidate(ctx, tenantID)
	return lead, nil
}

func (s *LeadService) rescore(ctx context.Context, tenantID, id string) (*models.Lead, error) {
	return s.mutate(ctx, tenantID, id, func(*models.Lead, time.Time) bool { return true })
}

// Insights returns the stored prediction and the latest history entries.
// A lead that was never scored is scored first.
func (s *LeadService) Insights(ctx context.Context, tenantID, id string) (*LeadInsights, error) {
	lead, err := s.load(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if !lead.HasScore() {
		if lead, err = s.Rescore(ctx, tenantID, id); err != nil {
			return nil, err
		}
	}

	history, err := s.repo.GetHistory(ctx, tenantID, id, scoring.InsightsDepth)
	if err != nil {
		return nil, fmt.Errorf("failed to get lead insights: %w", err)
	}

	return &LeadInsights{
		LeadID:                lead.ID,
		Score:                 lead.AIScore,
		Grade:                 lead.AIGrade,
		ConversionProbability: lead.ConversionProbability,
		RecommendedAction:     lead.RecommendedAction,
		NextBestStep:          lead.NextBestStep,
		Factors:               lead.ScoreFactors,
		AnalyzedAt:            lead.AIAnalyzedAt,
		History:               history,
	}, nil
}

// History returns up to limit of the newest score history entries, oldest first
func (s *LeadService) History(ctx context.Context, tenantID, id string, limit int) ([]*models.LeadScoreHistory, error) {
	if _, err := s.load(ctx, tenantID, id); err != nil {
		return nil, err
	}

	history, err := s.repo.GetHistory(ctx, tenantID, id, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get lead history: %w", err)
	}
	return history, nil
}

// AddNote attaches a note to the lead
func (s *LeadService) AddNote(ctx context.Context, tenantID, id string, in AddNoteInput) (*models.LeadNote, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, apperr.Validation("note content is required")
	}
	if in.Type != "" && !in.Type.IsValid() {
		return nil, apperr.Validation(fmt.Sprintf("unknown note type %q", in.Type))
	}

	lead, err := s.load(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	note := &models.LeadNote{
		LeadID:    lead.ID,
		TenantID:  tenantID,
		Type:      in.Type,
		Content:   content,
		CreatedAt: s.now(),
	}
	if err := s.repo.AddNote(ctx, note); err != nil {
		return nil, fmt.Errorf("failed to add lead note: %w", err)
	}

	return note, nil
}

// Notes lists the lead's notes, newest first
func (s *LeadService) Notes(ctx context.Context, tenantID, id string) ([]*models.LeadNote, error) {
	if _, err := s.load(ctx, tenantID, id); err != nil {
		return nil, err
	}

	notes, err := s.repo.ListNotes(ctx, tenantID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get lead notes: %w", err)
	}
	return notes, nil
}

// Delete soft-deletes the lead
func (s *LeadService) Delete(ctx context.Context, tenantID, id string) error {
	deleted, err := s.repo.SoftDelete(ctx, tenantID, id)
	if err != nil {
		return fmt.Errorf("failed to delete lead: %w", err)
	}
	if !deleted {
		return apperr.NotFound("lead not found")
	}

	logger.Info("Lead deleted", zap.String("tenant_id", tenantID), zap.String("lead_id", id))
	s.invalidator.Invalidate(ctx, tenantID)
	return nil
}

func (s *LeadService) load(ctx context.Context, tenantID, id string) (*models.Lead, error) {
	lead, err := s.repo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get lead: %w", err)
	}
	if lead == nil {
		return nil, apperr.NotFound("lead not found")
	}
	return lead, nil
}

// mutate loads the lead, applies change and writes it back under the version
// check. On a conflict the whole cycle runs again against a fresh copy, so
// the score is always computed from the merged state. change reports whether
// a scoring input was touched.
func (s *LeadService) mutate(ctx context.Context, tenantID, id string, change func(*models.Lead, time.Time) bool) (*models.Lead, error) {
	for attempt := 1; ; attempt++ {
		lead, err := s.load(ctx, tenantID, id)
		if err != nil {
			return nil, err
		}

		now := s.now()
		var history *models.LeadScoreHistory
		if change(lead, now) || !lead.HasScore() {
			history = s.score(lead, now)
		}

		err = s.repo.Update(ctx, lead, history)
		if err == nil {
			return lead, nil
		}
		if !errors.Is(err, repository.ErrVersionConflict) {
			return nil, fmt.Errorf("failed to update lead: %w", err)
		}
		if attempt == maxUpdateAttempts {
			return nil, apperr.Wrap(apperr.KindConflict, "lead is being modified concurrently, try again", err)
		}

		logger.Warn("Lead version conflict, retrying",
			zap.String("lead_id", id),
			zap.Int("attempt", attempt),
		)
	}
}

// score recomputes the lead and returns the history entry to append, or nil
// when the result is unchanged.
func (s *LeadService) score(lead *models.Lead, now time.Time) *models.LeadScoreHistory {
	scored := lead.HasScore()
	previous := lead.ScoreResult()

	result := s.engine.ScoreLead(lead.ScoreInput(), now)
	lead.ApplyScore(result)

	if scored && previous.Equivalent(result) {
		return nil
	}
	return lead.NewHistoryEntry(result)
}

func (in CreateLeadInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return apperr.Validation("name is required")
	}
	return validateLeadEnums(in.Source, in.Status, in.Priority)
}

func (in UpdateLeadInput) validate() error {
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return apperr.Validation("name cannot be empty")
	}

	var source scoring.LeadSource
	var status scoring.LeadStatus
	var priority scoring.Priority
	if in.Source != nil {
		source = *in.Source
	}
	if in.Status != nil {
		status = *in.Status
	}
	if in.Priority != nil {
		priority = *in.Priority
	}
	return validateLeadEnums(source, status, priority)
}

func validateLeadEnums(source scoring.LeadSource, status scoring.LeadStatus, priority scoring.Priority) error {
	if source != "" && !source.IsValid() {
		return apperr.Validation(fmt.Sprintf("unknown source %q", source))
	}
	if status != "" && !status.IsValid() {
		return apperr.Validation(fmt.Sprintf("unknown status %q", status))
	}
	if priority != "" && !priority.IsValid() {
		return apperr.Validation(fmt.Sprintf("unknown priority %q", priority))
	}
	return nil
}

// apply merges the update into lead and reports whether a field that feeds
// the score changed.
func (in UpdateLeadInput) apply(lead *models.Lead, now time.Time, region string) bool {
	changed := false
	setString := func(dst *string, src *string, normalize func(string) string) {
		if src == nil {
			return
		}
		v := normalize(*src)
		if v != *dst {
			*dst = v
			changed = true
		}
	}

	setString(&lead.Name, in.Name, strings.TrimSpace)
	setString(&lead.Email, in.Email, normalizeEmail)
	setString(&lead.Company, in.Company, strings.TrimSpace)
	setString(&lead.JobTitle, in.JobTitle, strings.TrimSpace)
	if in.Phone != nil {
		before := lead.Phone
		setString(&lead.Phone, in.Phone, strings.TrimSpace)
		if lead.Phone != before {
			lead.PhoneE164 = phone.NormalizeE164(lead.Phone, region)
		}
	}

	if in.Source != nil && *in.Source != lead.Source {
		lead.Source = *in.Source
		changed = true
	}
	if in.Priority != nil && *in.Priority != lead.Priority {
		lead.Priority = *in.Priority
		changed = true
	}
	if in.Status != nil && *in.Status != lead.Status {
		lead.ApplyStatus(*in.Status, now)
		changed = true
	}
	if in.Tags != nil {
		lead.Tags = *in.Tags
	}

	return changed
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
