package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sivaangayarkanni/crm/internal/analytics"
	"github.com/sivaangayarkanni/crm/internal/cache"
	"github.com/sivaangayarkanni/crm/internal/repository"
	"github.com/sivaangayarkanni/crm/pkg/logger"
	"go.uber.org/zap"
)

// AnalyticsService serves tenant reports, caching them when a cache is set
type AnalyticsService struct {
	leads *repository.LeadRepository
	deals *repository.DealRepository
	cache cache.Cache
	ttl   time.Duration
	now   Clock
}

// NewAnalyticsService creates a new analytics service. A nil cache disables
// caching.
func NewAnalyticsService(leads *repository.LeadRepository, deals *repository.DealRepository, c cache.Cache, ttl time.Duration) *AnalyticsService {
	if c == nil {
		c = cache.Noop{}
	}
	return &AnalyticsService{
		leads: leads,
		deals: deals,
		cache: c,
		ttl:   ttl,
		now:   utcNow,
	}
}

// WithClock replaces the service clock.
func (s *AnalyticsService) WithClock(now Clock) *AnalyticsService {
	s.now = now
	return s
}

// Dashboard summarizes every lead and deal of the tenant
func (s *AnalyticsService) Dashboard(ctx context.Context, tenantID string) (*analytics.Dashboard, error) {
	return cached(ctx, s, dashboardKey(tenantID), func() (*analytics.Dashboard, error) {
		leads, err := s.leads.ListForAnalytics(ctx, tenantID, nil, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to load dashboard leads: %w", err)
		}
		deals, err := s.deals.ListForAnalytics(ctx, tenantID, nil, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to load dashboard deals: %w", err)
		}

		dashboard := analytics.BuildDashboard(leads, deals, s.now())
		return &dashboard, nil
	})
}

// Leads reports on the tenant's leads created inside [from, to)
func (s *AnalyticsService) Leads(ctx context.Context, tenantID string, from, to *time.Time) (*analytics.LeadReport, error) {
	return cached(ctx, s, rangeKey(tenantID, "leads", from, to), func() (*analytics.LeadReport, error) {
		leads, err := s.leads.ListForAnalytics(ctx, tenantID, from, to)
		if err != nil {
			return nil, fmt.Errorf("failed to load leads: %w", err)
		}

		report := analytics.SummarizeLeads(leads)
		return &report, nil
	})
}

// Deals reports on the tenant's deals created inside [from, to)
func (s *AnalyticsService) Deals(ctx context.Context, tenantID string, from, to *time.Time) (*analytics.DealReport, error) {
	return cached(ctx, s, rangeKey(tenantID, "deals", from, to), func() (*analytics.DealReport, error) {
		deals, err := s.deals.ListForAnalytics(ctx, tenantID, from, to)
		if err != nil {
			return nil, fmt.Errorf("failed to load deals: %w", err)
		}

		report := analytics.SummarizeDeals(deals)
		return &report, nil
	})
}

// Invalidate drops every cached report of the tenant. Failures are logged
// only; cached reports expire on their own.
func (s *AnalyticsService) Invalidate(ctx context.Context, tenantID string) {
	if err := s.cache.DeletePrefix(ctx, tenantPrefix(tenantID)); err != nil {
		logger.Warn("Failed to invalidate analytics cache",
			zap.String("tenant_id", tenantID),
			zap.Error(err),
		)
	}
}

// cached serves key from the cache or builds and stores it. Cache failures
// fall through to build.
func cached[T any](ctx context.Context, s *AnalyticsService, key string, build func() (T, error)) (T, error) {
	var hit T
	found, err := s.cache.Get(ctx, key, &hit)
	if err != nil {
		logger.Warn("Failed to read analytics cache", zap.String("key", key), zap.Error(err))
	}
	if found {
		return hit, nil
	}

	value, err := build()
	if err != nil {
		return value, err
	}

	if err := s.cache.Set(ctx, key, value, s.ttl); err != nil {
		logger.Warn("Failed to write analytics cache", zap.String("key", key), zap.Error(err))
	}
	return value, nil
}

func tenantPrefix(tenantID string) string {
	return "analytics:" + tenantID + ":"
}

func dashboardKey(tenantID string) string {
	return tenantPrefix(tenantID) + "dashboard"
}

func rangeKey(tenantID, report string, from, to *time.Time) string {
	return fmt.Sprintf("%s%s:%s:%s", tenantPrefix(tenantID), report, boundKey(from), boundKey(to))
}

func boundKey(t *time.Time) string {
	if t == nil {
		return "all"
	}
	return t.UTC().Format(time.RFC3339)
}
