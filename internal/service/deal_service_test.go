package service

import (
	"context"
	"testing"
	"time"

	"github.com/sivaangayarkanni/crm/internal/apperr"
	"github.com/sivaangayarkanni/crm/internal/models"
	"github.com/sivaangayarkanni/crm/internal/scoring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(n int) *int { return &n }

func TestCreateDealScores(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	closeDate := baseTime.Add(-24 * time.Hour)
	deal, err := env.deals.Create(ctx, "t1", CreateDealInput{
		Title:             "Expansion",
		Value:             150000,
		Stage:             scoring.StageNegotiation,
		Probability:       intPtr(20),
		ExpectedCloseDate: &closeDate,
	})
	require.NoError(t, err)

	assert.Equal(t, models.DefaultCurrency, deal.Currency)
	assert.Equal(t, models.DefaultPipeline, deal.Pipeline)
	assert.Equal(t, models.DealOpen, deal.Status)
	assert.Equal(t, 53, deal.DealScore)
	assert.InDelta(t, 0.75, deal.WinProbability, 1e-9)
	assert.Equal(t, scoring.RiskHigh, deal.RiskLevel)
	assert.Equal(t, scoring.SentimentPositive, deal.Sentiment)
	assert.Contains(t, deal.RiskFactors, "Deal is past expected close date")
	assert.Equal(t, []string{"Prepare negotiation strategy", "Discuss internally about discounts"}, deal.SuggestedNextSteps)

	stored, err := env.deals.Get(ctx, "t1", deal.ID)
	require.NoError(t, err)
	assert.Equal(t, 53, stored.DealScore)
}

func TestCreateDealDefaultsAndClosedStages(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	deal, err := env.deals.Create(ctx, "t1", CreateDealInput{Title: "Starter", Currency: "eur"})
	require.NoError(t, err)
	assert.Equal(t, scoring.StageQualification, deal.Stage)
	assert.Equal(t, models.DefaultProbability, deal.Probability)
	assert.Equal(t, "EUR", deal.Currency)

	won, err := env.deals.Create(ctx, "t1", CreateDealInput{Title: "Signed", Stage: scoring.StageClosedWon, Value: 15000})
	require.NoError(t, err)
	assert.Equal(t, models.DealWon, won.Status)
	assert.Equal(t, 100, won.Probability)
	assert.NotNil(t, won.ActualCloseDate)

	_, err = env.deals.Create(ctx, "t1", CreateDealInput{Title: ""})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	_, err = env.deals.Create(ctx, "t1", CreateDealInput{Title: "x", Value: -1})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	_, err = env.deals.Create(ctx, "t1", CreateDealInput{Title: "x", Probability: intPtr(101)})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	_, err = env.deals.Create(ctx, "t1", CreateDealInput{Title: "x", Stage: "won"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestUpdateDealStage(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	deal, err := env.deals.Create(ctx, "t1", CreateDealInput{Title: "Renewal", Value: 5000})
	require.NoError(t, err)
	assert.Contains(t, deal.RiskFactors, "No recent activity on deal")

	moved, err := env.deals.UpdateStage(ctx, "t1", deal.ID, scoring.StageDiscovery)
	require.NoError(t, err)
	assert.Equal(t, scoring.StageDiscovery, moved.Stage)
	assert.Equal(t, 1, moved.ActivityCount)
	assert.NotContains(t, moved.RiskFactors, "No recent activity on deal")

	same, err := env.deals.UpdateStage(ctx, "t1", deal.ID, scoring.StageDiscovery)
	require.NoError(t, err)
	assert.Equal(t, 1, same.ActivityCount)

	won, err := env.deals.UpdateStage(ctx, "t1", deal.ID, scoring.StageClosedWon)
	require.NoError(t, err)
	assert.Equal(t, models.DealWon, won.Status)
	assert.Equal(t, 100, won.Probability)
	assert.InDelta(t, 0.95, won.WinProbability, 1e-9)
	assert.Empty(t, won.SuggestedNextSteps)

	activities, err := env.deals.Activities(ctx, "t1", deal.ID, 10)
	require.NoError(t, err)
	require.Len(t, activities, 2)
	for _, a := range activities {
		assert.Equal(t, models.ActivityChangeStage, a.Type)
	}

	_, err = env.deals.UpdateStage(ctx, "t1", deal.ID, "signed")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestAddDealActivity(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	deal, err := env.deals.Create(ctx, "t1", CreateDealInput{Title: "Pilot", Stage: scoring.StageProposal})
	require.NoError(t, err)
	before := deal.DealScore

	env.now = baseTime.Add(time.Hour)
	updated, activity, err := env.deals.AddActivity(ctx, "t1", deal.ID, AddActivityInput{
		Type:        models.ActivityMeeting,
		Description: "Kickoff",
		Outcome:     "positive",
	})
	require.NoError(t, err)

	assert.Equal(t, deal.ID, activity.DealID)
	assert.NotEmpty(t, activity.ID)
	assert.Equal(t, 1, updated.MeetingsHeld)
	assert.Equal(t, 1, updated.ActivityCount)
	require.NotNil(t, updated.LastActivityAt)
	assert.True(t, env.now.Equal(*updated.LastActivityAt))
	assert.Greater(t, updated.DealScore, before)

	_, _, err = env.deals.AddActivity(ctx, "t1", deal.ID, AddActivityInput{Type: "fax"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, _, err = env.deals.AddActivity(ctx, "t2", deal.ID, AddActivityInput{Type: models.ActivityNote})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestUpdateDealPartial(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	deal, err := env.deals.Create(ctx, "t1", CreateDealInput{Title: "Seats", Value: 10000, Stage: scoring.StageProposal})
	require.NoError(t, err)
	analyzedAt := *deal.AIAnalyzedAt

	env.now = baseTime.Add(time.Hour)
	renamed, err := env.deals.Update(ctx, "t1", deal.ID, UpdateDealInput{Title: strPtr("More seats")})
	require.NoError(t, err)
	assert.Equal(t, "More seats", renamed.Title)
	assert.True(t, analyzedAt.Equal(*renamed.AIAnalyzedAt), "non-scoring fields do not rescore")

	value := 200000.0
	stage := scoring.StageNegotiation
	grown, err := env.deals.Update(ctx, "t1", deal.ID, UpdateDealInput{Value: &value, Stage: &stage})
	require.NoError(t, err)
	assert.Equal(t, 200000.0, grown.Value)
	assert.Equal(t, scoring.StageNegotiation, grown.Stage)
	assert.Greater(t, grown.DealScore, deal.DealScore)
	assert.True(t, env.now.Equal(*grown.AIAnalyzedAt))
	assert.Equal(t, 1, grown.ActivityCount)

	lost := models.DealLost
	closed, err := env.deals.Update(ctx, "t1", deal.ID, UpdateDealInput{Status: &lost})
	require.NoError(t, err)
	assert.NotNil(t, closed.ActualCloseDate)

	_, err = env.deals.Update(ctx, "t1", deal.ID, UpdateDealInput{Probability: intPtr(-5)})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestUpdateDealRejectsOpenInClosedStage(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	won, err := env.deals.Create(ctx, "t1", CreateDealInput{Title: "Signed", Stage: scoring.StageClosedWon})
	require.NoError(t, err)

	open := models.DealOpen
	_, err = env.deals.Update(ctx, "t1", won.ID, UpdateDealInput{Status: &open})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	stored, err := env.deals.Get(ctx, "t1", won.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DealWon, stored.Status)
	assert.Equal(t, won.Version, stored.Version)

	// Reopening together with a move back to an open stage is allowed.
	stage := scoring.StageNegotiation
	reopened, err := env.deals.Update(ctx, "t1", won.ID, UpdateDealInput{Status: &open, Stage: &stage})
	require.NoError(t, err)
	assert.Equal(t, models.DealOpen, reopened.Status)
	assert.Equal(t, scoring.StageNegotiation, reopened.Stage)

	proposal := scoring.StageProposal
	_, err = env.deals.Update(ctx, "t1", won.ID, UpdateDealInput{Stage: &proposal})
	require.NoError(t, err)
	closedLost := scoring.StageClosedLost
	_, err = env.deals.Update(ctx, "t1", won.ID, UpdateDealInput{Status: &open, Stage: &closedLost})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestPipeline(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	for _, value := range []float64{10000, 90000, 40000} {
		_, err := env.deals.Create(ctx, "t1", CreateDealInput{Title: "Proposal", Value: value, Stage: scoring.StageProposal, Probability: intPtr(50)})
		require.NoError(t, err)
	}
	_, err := env.deals.Create(ctx, "t1", CreateDealInput{Title: "Done", Value: 1000, Stage: scoring.StageClosedWon})
	require.NoError(t, err)
	_, err = env.deals.Create(ctx, "t2", CreateDealInput{Title: "Other tenant", Value: 1000})
	require.NoError(t, err)

	view, err := env.deals.Pipeline(ctx, "t1", "")
	require.NoError(t, err)

	require.Len(t, view.Stages, len(scoring.OpenStages))
	assert.Equal(t, 3, view.TotalDeals)
	assert.Equal(t, 140000.0, view.TotalValue)
	assert.Equal(t, 70000.0, view.WeightedValue)

	proposal := view.Stages[2]
	assert.Equal(t, scoring.StageProposal, proposal.Stage)
	assert.Equal(t, 3, proposal.Count)
	require.Len(t, proposal.Deals, 3)
	assert.Equal(t, 90000.0, proposal.Deals[0].Value, "highest score first")
	assert.Empty(t, view.Stages[0].Deals)
}

func TestDeleteDeal(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	deal, err := env.deals.Create(ctx, "t1", CreateDealInput{Title: "Temp"})
	require.NoError(t, err)

	require.NoError(t, env.deals.Delete(ctx, "t1", deal.ID))
	_, err = env.deals.Rescore(ctx, "t1", deal.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.True(t, apperr.Is(env.deals.Delete(ctx, "t1", deal.ID), apperr.KindNotFound))
}
