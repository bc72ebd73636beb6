package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/sivaangayarkanni/crm/internal/models"
	"github.com/sivaangayarkanni/crm/internal/scoring"
	"gorm.io/gorm"
)

// LeadFilter narrows a lead listing. Zero values mean "any".
type LeadFilter struct {
	Status    scoring.LeadStatus
	Source    scoring.LeadSource
	Grade     scoring.Grade
	MinScore  *int
	Search    string
	SortBy    string
	SortOrder string
	Page
}

var leadSortColumns = map[string]string{
	"created_at": "created_at",
	"updated_at": "updated_at",
	"ai_score":   "ai_score",
	"score":      "ai_score",
	"name":       "name",
}

// LeadRepository handles database operations for leads and their score history
type LeadRepository struct {
	db *gorm.DB
}

// NewLeadRepository creates a new lead repository
func NewLeadRepository(db *gorm.DB) *LeadRepository {
	return &LeadRepository{db: db}
}

// Create inserts the lead and, when history is non-nil, its first history
// entry in the same transaction.
func (r *LeadRepository) Create(ctx context.Context, lead *models.Lead, history *models.LeadScoreHistory) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(lead).Error; err != nil {
			return fmt.Errorf("failed to create lead: %w", err)
		}
		if history == nil {
			return nil
		}
		history.LeadID = lead.ID
		history.TenantID = lead.TenantID
		return appendHistory(tx, history)
	})
}

// GetByID retrieves a live lead of the tenant
func (r *LeadRepository) GetByID(ctx context.Context, tenantID, id string) (*models.Lead, error) {
	var lead models.Lead
	err := r.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		First(&lead).Error

	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lead: %w", err)
	}

	return &lead, nil
}

// List retrieves one page of leads plus the total matching the filter
func (r *LeadRepository) List(ctx context.Context, tenantID string, filter LeadFilter) ([]*models.Lead, int64, error) {
	filter.Page = filter.Page.Normalize()

	query := r.db.WithContext(ctx).Model(&models.Lead{}).Where("tenant_id = ?", tenantID)
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Source != "" {
		query = query.Where("source = ?", filter.Source)
	}
	if filter.Grade != "" {
		query = query.Where("ai_grade = ?", filter.Grade)
	}
	if filter.MinScore != nil {
		query = query.Where("ai_score >= ?", *filter.MinScore)
	}
	if filter.Search != "" {
		pattern := searchPattern(filter.Search)
		query = query.Where(
			`LOWER(name) LIKE ? ESCAPE '\' OR LOWER(email) LIKE ? ESCAPE '\' OR LOWER(company) LIKE ? ESCAPE '\'`,
			pattern, pattern, pattern,
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count leads: %w", err)
	}

	var leads []*models.Lead
	err := query.
		Order(orderClause(filter.SortBy, filter.SortOrder, leadSortColumns, "created_at")).
		Limit(filter.Limit).
		Offset(filter.offset()).
		Find(&leads).Error

	if err != nil {
		return nil, 0, fmt.Errorf("failed to get leads: %w", err)
	}

	return leads, total, nil
}

// Update writes every field of lead when its version still matches the
// stored one, then bumps the version. A non-nil history entry is appended in
// the same transaction and the lead's history is trimmed to the newest
// scoring.HistoryLimit entries.
func (r *LeadRepository) Update(ctx context.Context, lead *models.Lead, history *models.LeadScoreHistory) error {
	expected := lead.Version

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lead.Version = expected + 1
		res := tx.Model(lead).
			Where("tenant_id = ? AND version = ?", lead.TenantID, expected).
			Select("*").
			Omit("id", "tenant_id", "created_at", "deleted_at").
			Updates(lead)
		if res.Error != nil {
			return fmt.Errorf("failed to update lead: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrVersionConflict
		}

		if history == nil {
			return nil
		}
		history.LeadID = lead.ID
		history.TenantID = lead.TenantID
		return appendHistory(tx, history)
	})

	if err != nil {
		lead.Version = expected
		return err
	}
	return nil
}

// SoftDelete marks the lead deleted. It reports whether a live lead matched.
func (r *LeadRepository) SoftDelete(ctx context.Context, tenantID, id string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		Delete(&models.Lead{})

	if res.Error != nil {
		return false, fmt.Errorf("failed to delete lead: %w", res.Error)
	}

	return res.RowsAffected > 0, nil
}

// GetHistory retrieves up to limit of the newest history entries of a lead,
// oldest first.
func (r *LeadRepository) GetHistory(ctx context.Context, tenantID, leadID string, limit int) ([]*models.LeadScoreHistory, error) {
	if limit < 1 || limit > scoring.HistoryLimit {
		limit = scoring.HistoryLimit
	}

	var history []*models.LeadScoreHistory
	err := r.db.WithContext(ctx).
		Where("lead_id = ? AND tenant_id = ?", leadID, tenantID).
		Order("analyzed_at DESC, id DESC").
		Limit(limit).
		Find(&history).Error

	if err != nil {
		return nil, fmt.Errorf("failed to get score history: %w", err)
	}

	for i, j := 0, len(history)-1; i < j; i, j = i+1, j-1 {
		history[i], history[j] = history[j], history[i]
	}
	return history, nil
}

// CountHistory returns how many history entries a lead has.
func (r *LeadRepository) CountHistory(ctx context.Context, leadID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.LeadScoreHistory{}).Where("lead_id = ?", leadID).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count score history: %w", err)
	}
	return count, nil
}

// ListRefs pages through live leads of every tenant in ID order, starting
// after afterID.
func (r *LeadRepository) ListRefs(ctx context.Context, afterID string, limit int) ([]RecordRef, error) {
	var refs []RecordRef
	err := r.db.WithContext(ctx).
		Model(&models.Lead{}).
		Select("id", "tenant_id").
		Where("id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Scan(&refs).Error

	if err != nil {
		return nil, fmt.Errorf("failed to list lead ids: %w", err)
	}

	return refs, nil
}

// ListForAnalytics retrieves every live lead of the tenant created inside
// [from, to). Nil bounds are open.
func (r *LeadRepository) ListForAnalytics(ctx context.Context, tenantID string, from, to *time.Time) ([]*models.Lead, error) {
	query := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if from != nil {
		query = query.Where("created_at >= ?", *from)
	}
	if to != nil {
		query = query.Where("created_at < ?", *to)
	}

	var leads []*models.Lead
	if err := query.Order("created_at ASC").Find(&leads).Error; err != nil {
		return nil, fmt.Errorf("failed to get leads for analytics: %w", err)
	}

	return leads, nil
}

// AddNote inserts a note. The caller checks that the lead exists.
func (r *LeadRepository) AddNote(ctx context.Context, note *models.LeadNote) error {
	if err := r.db.WithContext(ctx).Create(note).Error; err != nil {
		return fmt.Errorf("failed to create lead note: %w", err)
	}
	return nil
}

// ListNotes retrieves the notes of a lead, newest first
func (r *LeadRepository) ListNotes(ctx context.Context, tenantID, leadID string) ([]*models.LeadNote, error) {
	var notes []*models.LeadNote
	err := r.db.WithContext(ctx).
		Where("lead_id = ? AND tenant_id = ?", leadID, tenantID).
		Order("created_at DESC, id DESC").
		Find(&notes).Error

	if err != nil {
		return nil, fmt.Errorf("failed to get lead notes: %w", err)
	}

	return notes, nil
}

// appendHistory inserts entry and deletes everything but the newest
// scoring.HistoryLimit entries of its lead.
func appendHistory(tx *gorm.DB, entry *models.LeadScoreHistory) error {
	if err := tx.Create(entry).Error; err != nil {
		return fmt.Errorf("failed to create score history: %w", err)
	}

	var keep []uint
	err := tx.Model(&models.LeadScoreHistory{}).
		Where("lead_id = ?", entry.LeadID).
		Order("analyzed_at DESC, id DESC").
		Limit(scoring.HistoryLimit).
		Pluck("id", &keep).Error
	if err != nil {
		return fmt.Errorf("failed to select score history: %w", err)
	}

	err = tx.Where("lead_id = ? AND id NOT IN ?", entry.LeadID, keep).
		Delete(&models.LeadScoreHistory{}).Error
	if err != nil {
		return fmt.Errorf("failed to trim score history: %w", err)
	}

	return nil
}
