//go:build database

package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/sivaangayarkanni/crm/internal/app"
	"github.com/sivaangayarkanni/crm/internal/config"
	"github.com/sivaangayarkanni/crm/internal/repository"
	"github.com/sivaangayarkanni/crm/internal/scoring"
	"github.com/sivaangayarkanni/crm/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startPostgres runs a throwaway Postgres and returns its DSN.
func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_HOST_AUTH_METHOD": "trust",
			"POSTGRES_DB":               "crm",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	host, err := pgC.Host(ctx)
	require.NoError(t, err)
	port, err := pgC.MappedPort(ctx, "5432")
	require.NoError(t, err)

	return fmt.Sprintf("host=%s port=%s user=postgres dbname=crm sslmode=disable", host, port.Port())
}

func TestLifecycleOnPostgres(t *testing.T) {
	ctx := context.Background()

	a, err := app.New(ctx, &config.Config{
		DatabaseURL:       startPostgres(t),
		AnalyticsCacheTTL: time.Minute,
		RescoreWorkers:    4,
		RescoreBatchSize:  2,
		PhoneRegion:       "US",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	for i := 0; i < 5; i++ {
		_, err := a.Leads.Create(ctx, "acme", service.CreateLeadInput{
			Name:    fmt.Sprintf("Lead %d", i),
			Email:   fmt.Sprintf("lead%d@example.com", i),
			Company: "Initech",
			Source:  scoring.SourceReferral,
		})
		require.NoError(t, err)
	}

	lead, err := a.Leads.Create(ctx, "globex", service.CreateLeadInput{Name: "Hank", Phone: "650-253-0000"})
	require.NoError(t, err)
	assert.Equal(t, "+16502530000", lead.PhoneE164)

	updated, err := a.Leads.UpdateStatus(ctx, "globex", lead.ID, scoring.StatusQualified)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Version)
	assert.NotNil(t, updated.QualifiedAt)

	leads, total, err := a.Leads.List(ctx, "acme", repository.LeadFilter{Search: "initech"})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Len(t, leads, 5)

	deal, err := a.Deals.Create(ctx, "acme", service.CreateDealInput{
		Title: "Platform",
		Value: 80000,
		Stage: scoring.StageNegotiation,
	})
	require.NoError(t, err)

	_, _, err = a.Deals.AddActivity(ctx, "acme", deal.ID, service.AddActivityInput{Type: "call"})
	require.NoError(t, err)

	view, err := a.Deals.Pipeline(ctx, "acme", "")
	require.NoError(t, err)
	assert.Equal(t, 1, view.TotalDeals)

	stats, err := a.Rescore.RescoreAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, stats.Leads)
	assert.Equal(t, 1, stats.Deals)
	assert.Zero(t, stats.Failed)

	dashboard, err := a.Analytics.Dashboard(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, 5, dashboard.Leads.Total)

	counts, err := a.Stats.Get(ctx, time.Now().UTC(), 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(6), counts.TotalLeads)
}
