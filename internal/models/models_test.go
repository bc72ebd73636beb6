package models

import (
	"testing"
	"time"

	"github.com/sivaangayarkanni/crm/internal/scoring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func TestLeadScoreRoundTrip(t *testing.T) {
	lead := &Lead{
		Email:     "ada@example.com",
		Source:    scoring.SourceReferral,
		Status:    scoring.StatusQualified,
		Priority:  scoring.PriorityHigh,
		CreatedAt: now,
	}

	result := scoring.NewEngine().ScoreLead(lead.ScoreInput(), now)
	lead.ApplyScore(result)

	require.True(t, lead.HasScore())
	assert.Equal(t, result.Score, lead.AIScore)
	assert.True(t, lead.ScoreResult().Equivalent(result))
	assert.Equal(t, now, *lead.AIAnalyzedAt)
}

func TestLeadApplyEngagement(t *testing.T) {
	lead := &Lead{}

	assert.True(t, lead.ApplyEngagement(EventEmailClicked, now))
	assert.True(t, lead.ApplyEngagement(EventCallConnected, now))
	assert.True(t, lead.ApplyEngagement(EventCallAttempted, now))
	assert.False(t, lead.ApplyEngagement(EngagementEvent("fax_sent"), now))

	assert.Equal(t, 1, lead.EmailsClicked)
	assert.Equal(t, 1, lead.CallsConnected)
	assert.Equal(t, 1, lead.CallsAttempted)
	assert.Equal(t, scoring.LeadEngagement{EmailsClicked: 1, CallsConnected: 1}, lead.ScoreInput().Engagement)
	assert.Equal(t, now, *lead.LastContactedAt)
}

func TestLeadApplyStatus(t *testing.T) {
	lead := &Lead{Status: scoring.StatusNew}

	lead.ApplyStatus(scoring.StatusQualified, now)
	require.NotNil(t, lead.QualifiedAt)
	assert.False(t, lead.Converted)

	lead.ApplyStatus(scoring.StatusLost, now.Add(time.Hour))
	assert.True(t, lead.Converted)
	assert.Equal(t, now.Add(time.Hour), *lead.ConvertedAt)
}

func TestDealApplyStage(t *testing.T) {
	deal := &Deal{ID: "d1", TenantID: "t1", Stage: scoring.StageProposal, Status: DealOpen, Probability: 40}

	assert.Nil(t, deal.ApplyStage(scoring.StageProposal, now), "unchanged stage logs nothing")

	activity := deal.ApplyStage(scoring.StageClosedWon, now)
	require.NotNil(t, activity)
	assert.Equal(t, ActivityChangeStage, activity.Type)
	assert.Equal(t, "Changed stage from proposal to closed_won", activity.Description)
	assert.Equal(t, "d1", activity.DealID)
	assert.Equal(t, "t1", activity.TenantID)

	assert.Equal(t, DealWon, deal.Status)
	assert.Equal(t, 100, deal.Probability)
	assert.Equal(t, now, *deal.ActualCloseDate)
	assert.Equal(t, 1, deal.ActivityCount)
}

func TestDealRecordActivity(t *testing.T) {
	deal := &Deal{ID: "d1", TenantID: "t1"}
	scheduled := now.Add(48 * time.Hour)

	deal.RecordActivity(&DealActivity{Type: ActivityMeeting}, now)
	deal.RecordActivity(&DealActivity{Type: ActivityProposal}, now)
	deal.RecordActivity(&DealActivity{Type: ActivityEmail}, now)
	planned := deal.RecordActivity(&DealActivity{Type: ActivityCall, ScheduledAt: &scheduled}, now)

	assert.Equal(t, 1, deal.MeetingsHeld)
	assert.Equal(t, 1, deal.ProposalsSent)
	assert.Equal(t, 1, deal.EmailsSent)
	assert.Equal(t, 1, deal.CallsMade)
	assert.Equal(t, 4, deal.ActivityCount)
	assert.Nil(t, planned.CompletedAt, "scheduled activities are not complete yet")

	in := deal.ScoreInput()
	assert.Equal(t, 4, in.Activities)
	assert.Equal(t, 1, in.Engagement.MeetingsHeld)
}

func TestEnumValidation(t *testing.T) {
	assert.True(t, DealOnHold.IsValid())
	assert.False(t, DealStatus("archived").IsValid())
	assert.True(t, ActivityChangeStage.IsValid())
	assert.False(t, ActivityType("sms").IsValid())
	assert.True(t, EventMeetingHeld.IsValid())
	assert.False(t, EngagementEvent("").IsValid())
}
