package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/sivaangayarkanni/crm/internal/cache"
	"github.com/sivaangayarkanni/crm/internal/models"
	"github.com/sivaangayarkanni/crm/internal/scoring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withRedisAnalytics(t *testing.T, env *testEnv) *miniredis.Miniredis {
	t.Helper()

	mr := miniredis.RunT(t)
	c, err := cache.NewRedis(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	env.analytics = NewAnalyticsService(env.leadRepo, env.dealRepo, c, time.Minute).WithClock(env.clock)
	env.leads = NewLeadService(env.leadRepo, scoring.NewEngine(), env.analytics, "US").WithClock(env.clock)
	return mr
}

func TestDashboardIsCachedUntilInvalidated(t *testing.T) {
	env := setupTestEnv(t)
	mr := withRedisAnalytics(t, env)
	ctx := context.Background()

	_, err := env.leads.Create(ctx, "t1", CreateLeadInput{Name: "Ada", Source: scoring.SourceReferral})
	require.NoError(t, err)

	first, err := env.analytics.Dashboard(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 1, first.Leads.Total)
	assert.True(t, mr.Exists("crm:analytics:t1:dashboard"))

	// A write that bypasses the service leaves the cached report in place.
	direct := &models.Lead{TenantID: "t1", Name: "Direct", Source: scoring.SourceAds, Status: scoring.StatusNew}
	require.NoError(t, env.leadRepo.Create(ctx, direct, nil))

	cached, err := env.analytics.Dashboard(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 1, cached.Leads.Total)

	_, err = env.leads.Create(ctx, "t1", CreateLeadInput{Name: "Grace"})
	require.NoError(t, err)
	assert.False(t, mr.Exists("crm:analytics:t1:dashboard"), "mutations invalidate the tenant")

	fresh, err := env.analytics.Dashboard(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 3, fresh.Leads.Total)
}

func TestInvalidateIsTenantScoped(t *testing.T) {
	env := setupTestEnv(t)
	mr := withRedisAnalytics(t, env)
	ctx := context.Background()

	_, err := env.analytics.Dashboard(ctx, "t1")
	require.NoError(t, err)
	_, err = env.analytics.Dashboard(ctx, "t2")
	require.NoError(t, err)

	env.analytics.Invalidate(ctx, "t1")
	assert.False(t, mr.Exists("crm:analytics:t1:dashboard"))
	assert.True(t, mr.Exists("crm:analytics:t2:dashboard"))
}

func TestLeadAndDealReportsHonourRange(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	for i, name := range []string{"early", "middle", "late"} {
		env.now = baseTime.AddDate(0, 0, i*10)
		_, err := env.leads.Create(ctx, "t1", CreateLeadInput{Name: name})
		require.NoError(t, err)
		_, err = env.deals.Create(ctx, "t1", CreateDealInput{Title: name, Value: 1000})
		require.NoError(t, err)
	}

	from := baseTime.AddDate(0, 0, 5)
	to := baseTime.AddDate(0, 0, 15)

	leads, err := env.analytics.Leads(ctx, "t1", &from, &to)
	require.NoError(t, err)
	assert.Equal(t, 1, leads.Summary.Total)

	all, err := env.analytics.Leads(ctx, "t1", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, all.Summary.Total)

	deals, err := env.analytics.Deals(ctx, "t1", &from, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, deals.Summary.Total)
	assert.Equal(t, 2000.0, deals.Summary.TotalValue)
}

func TestRangeKey(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "analytics:t1:leads:2026-01-01T00:00:00Z:all", rangeKey("t1", "leads", &from, nil))
	assert.Equal(t, "analytics:t1:deals:all:all", rangeKey("t1", "deals", nil, nil))
}
