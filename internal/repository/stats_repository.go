package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sivaangayarkanni/crm/internal/models"
	"gorm.io/gorm"
)

// Stats is a cross-tenant snapshot of the scoring tables.
type Stats struct {
	TotalLeads       int64   `json:"total_leads"`
	AverageLeadScore float64 `json:"average_lead_score"`
	HistoryEntries   int64   `json:"history_entries"`
	TotalDeals       int64   `json:"total_deals"`
	AverageDealScore float64 `json:"average_deal_score"`
	StaleLeads       int64   `json:"stale_leads"`
	StaleDeals       int64   `json:"stale_deals"`
}

// StatsRepository answers admin questions about the scoring tables
type StatsRepository struct {
	db *gorm.DB
}

func NewStatsRepository(db *gorm.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// Get collects the statistics. Records whose score is older than staleAfter
// (or missing) count as stale.
func (r *StatsRepository) Get(ctx context.Context, now time.Time, staleAfter time.Duration) (*Stats, error) {
	db := r.db.WithContext(ctx)
	cutoff := now.Add(-staleAfter)
	stats := &Stats{}

	if err := db.Model(&models.Lead{}).Count(&stats.TotalLeads).Error; err != nil {
		return nil, fmt.Errorf("failed to count leads: %w", err)
	}

	// COALESCE handles NULL when no records exist
	var avgLead sql.NullFloat64
	if err := db.Model(&models.Lead{}).Select("COALESCE(AVG(ai_score), 0)").Scan(&avgLead).Error; err != nil {
		return nil, fmt.Errorf("failed to average lead scores: %w", err)
	}
	stats.AverageLeadScore = avgLead.Float64

	if err := db.Model(&models.LeadScoreHistory{}).Count(&stats.HistoryEntries).Error; err != nil {
		return nil, fmt.Errorf("failed to count score history: %w", err)
	}

	if err := db.Model(&models.Deal{}).Count(&stats.TotalDeals).Error; err != nil {
		return nil, fmt.Errorf("failed to count deals: %w", err)
	}

	var avgDeal sql.NullFloat64
	if err := db.Model(&models.Deal{}).Select("COALESCE(AVG(deal_score), 0)").Scan(&avgDeal).Error; err != nil {
		return nil, fmt.Errorf("failed to average deal scores: %w", err)
	}
	stats.AverageDealScore = avgDeal.Float64

	err := db.Model(&models.Lead{}).
		Where("ai_analyzed_at IS NULL OR ai_analyzed_at < ?", cutoff).
		Count(&stats.StaleLeads).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count stale leads: %w", err)
	}

	err = db.Model(&models.Deal{}).
		Where("ai_analyzed_at IS NULL OR ai_analyzed_at < ?", cutoff).
		Count(&stats.StaleDeals).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count stale deals: %w", err)
	}

	return stats, nil
}
