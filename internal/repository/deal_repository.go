package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/sivaangayarkanni/crm/internal/models"
	"github.com/sivaangayarkanni/crm/internal/scoring"
	"gorm.io/gorm"
)

// DealFilter narrows a deal listing. Zero values mean "any".
type DealFilter struct {
	Status    models.DealStatus
	Stage     scoring.DealStage
	Pipeline  string
	MinValue  *float64
	MaxValue  *float64
	Search    string
	SortBy    string
	SortOrder string
	Page
}

var dealSortColumns = map[string]string{
	"created_at":          "created_at",
	"updated_at":          "updated_at",
	"value":               "value",
	"deal_score":          "deal_score",
	"expected_close_date": "expected_close_date",
	"title":               "title",
}

// DealRepository handles database operations for deals and their activities
type DealRepository struct {
	db *gorm.DB
}

// NewDealRepository creates a new deal repository
func NewDealRepository(db *gorm.DB) *DealRepository {
	return &DealRepository{db: db}
}

// Create inserts the deal
func (r *DealRepository) Create(ctx context.Context, deal *models.Deal) error {
	if err := r.db.WithContext(ctx).Create(deal).Error; err != nil {
		return fmt.Errorf("failed to create deal: %w", err)
	}
	return nil
}

// GetByID retrieves a live deal of the tenant
func (r *DealRepository) GetByID(ctx context.Context, tenantID, id string) (*models.Deal, error) {
	var deal models.Deal
	err := r.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		First(&deal).Error

	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get deal: %w", err)
	}

	return &deal, nil
}

// List retrieves one page of deals plus the total matching the filter
func (r *DealRepository) List(ctx context.Context, tenantID string, filter DealFilter) ([]*models.Deal, int64, error) {
	filter.Page = filter.Page.Normalize()

	query := r.db.WithContext(ctx).Model(&models.Deal{}).Where("tenant_id = ?", tenantID)
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Stage != "" {
		query = query.Where("stage = ?", filter.Stage)
	}
	if filter.Pipeline != "" {
		query = query.Where("pipeline = ?", filter.Pipeline)
	}
	if filter.MinValue != nil {
		query = query.Where("value >= ?", *filter.MinValue)
	}
	if filter.MaxValue != nil {
		query = query.Where("value <= ?", *filter.MaxValue)
	}
	if filter.Search != "" {
		pattern := searchPattern(filter.Search)
		query = query.Where(
			`LOWER(title) LIKE ? ESCAPE '\' OR LOWER(company) LIKE ? ESCAPE '\'`,
			pattern, pattern,
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count deals: %w", err)
	}

	var deals []*models.Deal
	err := query.
		Order(orderClause(filter.SortBy, filter.SortOrder, dealSortColumns, "created_at")).
		Limit(filter.Limit).
		Offset(filter.offset()).
		Find(&deals).Error

	if err != nil {
		return nil, 0, fmt.Errorf("failed to get deals: %w", err)
	}

	return deals, total, nil
}

// ListOpen retrieves every open deal of the tenant, optionally limited to one
// pipeline, highest score first.
func (r *DealRepository) ListOpen(ctx context.Context, tenantID, pipeline string) ([]*models.Deal, error) {
	query := r.db.WithContext(ctx).Where("tenant_id = ? AND status = ?", tenantID, models.DealOpen)
	if pipeline != "" {
		query = query.Where("pipeline = ?", pipeline)
	}

	var deals []*models.Deal
	if err := query.Order("deal_score DESC, value DESC, id ASC").Find(&deals).Error; err != nil {
		return nil, fmt.Errorf("failed to get open deals: %w", err)
	}

	return deals, nil
}

// Update writes every field of deal when its version still matches the
// stored one, then bumps the version. Activities are inserted in the same
// transaction.
func (r *DealRepository) Update(ctx context.Context, deal *models.Deal, activities ...*models.DealActivity) error {
	expected := deal.Version

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		deal.Version = expected + 1
		res := tx.Model(deal).
			Where("tenant_id = ? AND version = ?", deal.TenantID, expected).
			Select("*").
			Omit("id", "tenant_id", "created_at", "deleted_at").
			Updates(deal)
		if res.Error != nil {
			return fmt.Errorf("failed to update deal: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrVersionConflict
		}

		for _, activity := range activities {
			if activity == nil {
				continue
			}
			if err := tx.Create(activity).Error; err != nil {
				return fmt.Errorf("failed to create deal activity: %w", err)
			}
		}
		return nil
	})

	if err != nil {
		deal.Version = expected
		return err
	}
	return nil
}

// SoftDelete marks the deal deleted. It reports whether a live deal matched.
func (r *DealRepository) SoftDelete(ctx context.Context, tenantID, id string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		Delete(&models.Deal{})

	if res.Error != nil {
		return false, fmt.Errorf("failed to delete deal: %w", res.Error)
	}

	return res.RowsAffected > 0, nil
}

// ListActivities retrieves the newest activities of a deal
func (r *DealRepository) ListActivities(ctx context.Context, tenantID, dealID string, limit int) ([]*models.DealActivity, error) {
	var activities []*models.DealActivity
	err := r.db.WithContext(ctx).
		Where("deal_id = ? AND tenant_id = ?", dealID, tenantID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&activities).Error

	if err != nil {
		return nil, fmt.Errorf("failed to get deal activities: %w", err)
	}

	return activities, nil
}

// ListRefs pages through live deals of every tenant in ID order, starting
// after afterID.
func (r *DealRepository) ListRefs(ctx context.Context, afterID string, limit int) ([]RecordRef, error) {
	var refs []RecordRef
	err := r.db.WithContext(ctx).
		Model(&models.Deal{}).
		Select("id", "tenant_id").
		Where("id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Scan(&refs).Error

	if err != nil {
		return nil, fmt.Errorf("failed to list deal ids: %w", err)
	}

	return refs, nil
}

// ListForAnalytics retrieves every live deal of the tenant created inside
// [from, to). Nil bounds are open.
func (r *DealRepository) ListForAnalytics(ctx context.Context, tenantID string, from, to *time.Time) ([]*models.Deal, error) {
	query := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if from != nil {
		query = query.Where("created_at >= ?", *from)
	}
	if to != nil {
		query = query.Where("created_at < ?", *to)
	}

	var deals []*models.Deal
	if err := query.Order("created_at ASC").Find(&deals).Error; err != nil {
		return nil, fmt.Errorf("failed to get deals for analytics: %w", err)
	}

	return deals, nil
}
