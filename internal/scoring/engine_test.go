package scoring

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func TestScoreLead(t *testing.T) {
	engine := NewEngine()

	tests := []struct {
		name          string
		input         LeadInput
		expectedScore int
		expectedGrade Grade
	}{
		{
			name: "Complete qualified referral clamps at ceiling",
			input: LeadInput{
				Email:     "a@b.com",
				Phone:     "5551234567",
				Source:    SourceReferral,
				Status:    StatusQualified,
				Company:   "Acme",
				Priority:  PriorityMedium,
				CreatedAt: fixedNow,
			},
			expectedScore: 100,
			expectedGrade: GradeHot,
		},
		{
			name: "Lost lead with bad data clamps at floor",
			input: LeadInput{
				Email:     "bad",
				Source:    SourceOther,
				Status:    StatusLost,
				Priority:  PriorityLow,
				CreatedAt: fixedNow.Add(-30 * day),
			},
			expectedScore: 0,
			expectedGrade: GradeCold,
		},
		{
			name: "New website lead without contact data",
			input: LeadInput{
				Source:    SourceWebsite,
				Status:    StatusNew,
				Priority:  PriorityMedium,
				CreatedAt: fixedNow.Add(-10 * day),
			},
			// 15 + 10 + 5
			expectedScore: 30,
			expectedGrade: GradeCold,
		},
		{
			name: "Contacted event lead lands in cool",
			input: LeadInput{
				Email:     "jane@corp.io",
				Source:    SourceEvent,
				Status:    StatusContacted,
				Priority:  PriorityHigh,
				CreatedAt: fixedNow.Add(-20 * day),
			},
			// 15 + 18 + 15 + 7
			expectedScore: 55,
			expectedGrade: GradeCool,
		},
		{
			name: "Engaged partner lead lands in warm",
			input: LeadInput{
				Email:      "bob@partner.net",
				Source:     SourcePartner,
				Status:     StatusContacted,
				Priority:   PriorityUrgent,
				CreatedAt:  fixedNow.Add(-40 * day),
				Engagement: LeadEngagement{EmailsOpened: 2, EmailsClicked: 1},
			},
			// 15 + 22 + 15 + 4 + 10
			expectedScore: 66,
			expectedGrade: GradeWarm,
		},
		{
			name:          "Zero value input degrades without failing",
			input:         LeadInput{},
			expectedScore: 5,
			expectedGrade: GradeCold,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := engine.ScoreLead(tt.input, fixedNow)

			assert.Equal(t, tt.expectedScore, result.Score)
			assert.Equal(t, tt.expectedGrade, result.Grade)
			assert.InDelta(t, float64(tt.expectedScore)/100, result.ConversionProbability, 1e-9)
			assert.Equal(t, fixedNow, result.AnalyzedAt)
			assert.NotEmpty(t, result.RecommendedAction)
			assert.NotEmpty(t, result.NextBestStep)
		})
	}
}

func TestScoreLeadFactors(t *testing.T) {
	engine := NewEngine()

	result := engine.ScoreLead(LeadInput{
		Email:      "a@b.com",
		Phone:      "+1 555 123 4567",
		Source:     SourceReferral,
		Status:     StatusQualified,
		Company:    "Acme",
		JobTitle:   "CTO",
		Priority:   PriorityUrgent,
		CreatedAt:  fixedNow.Add(-2 * day),
		Engagement: LeadEngagement{EmailsOpened: 5, EmailsClicked: 5, CallsConnected: 5},
	}, fixedNow)

	names := make([]string, 0, len(result.Factors))
	for _, f := range result.Factors {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{
		"Valid Email",
		"Phone Provided",
		"referral Source",
		"qualified Status",
		"Company Listed",
		"Job Title Listed",
		"Recent Lead",
		"Engagement",
	}, names)

	engagement := result.Factors[len(result.Factors)-1]
	assert.Equal(t, 15, engagement.Points, "engagement is capped")
}

func TestScoreLeadEmailFactor(t *testing.T) {
	engine := NewEngine()

	tests := []struct {
		email    string
		expected string
		points   int
	}{
		{"user@example.com", "Valid Email", 15},
		{"user@example", "Invalid Email", 0},
		{"user example@x.com", "Invalid Email", 0},
		{"@x.com", "Invalid Email", 0},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			result := engine.ScoreLead(LeadInput{Email: tt.email, Source: SourceOther}, fixedNow)
			require.NotEmpty(t, result.Factors)
			assert.Equal(t, tt.expected, result.Factors[0].Name)
			assert.Equal(t, tt.points, result.Factors[0].Points)
		})
	}

	missing := engine.ScoreLead(LeadInput{Source: SourceOther}, fixedNow)
	for _, f := range missing.Factors {
		assert.NotContains(t, f.Name, "Email", "missing email adds no factor")
	}
}

func TestScoreLeadPhoneLength(t *testing.T) {
	engine := NewEngine()

	short := engine.ScoreLead(LeadInput{Phone: "555-1234"}, fixedNow)
	long := engine.ScoreLead(LeadInput{Phone: "5551234567"}, fixedNow)

	assert.Equal(t, 10, long.Score-short.Score)
}

func TestScoreLeadRecencyBoundary(t *testing.T) {
	engine := NewEngine()

	tests := []struct {
		name   string
		age    time.Duration
		recent bool
	}{
		{"created now", 0, true},
		{"seven full days", 7 * day, true},
		{"just under eight days", 8*day - time.Minute, true},
		{"eight days", 8 * day, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := engine.ScoreLead(LeadInput{CreatedAt: fixedNow.Add(-tt.age)}, fixedNow)
			found := false
			for _, f := range result.Factors {
				if f.Name == "Recent Lead" {
					found = true
				}
			}
			assert.Equal(t, tt.recent, found)
		})
	}
}

func TestScoreLeadUnknownEnumsDegrade(t *testing.T) {
	engine := NewEngine()

	result := engine.ScoreLead(LeadInput{
		Source:   LeadSource("carrier-pigeon"),
		Status:   LeadStatus("archived"),
		Priority: Priority("whenever"),
	}, fixedNow)

	assert.Equal(t, 5, result.Score)
	assert.Equal(t, "other Source", result.Factors[0].Name)
	assert.Equal(t, "archived Status", result.Factors[1].Name)
	assert.Equal(t, 0, result.Factors[1].Points)
}

func TestScoreLeadNegativeCountersCoerced(t *testing.T) {
	engine := NewEngine()

	result := engine.ScoreLead(LeadInput{
		Source:     SourceOther,
		Engagement: LeadEngagement{EmailsOpened: -10, EmailsClicked: -3, CallsConnected: -1},
	}, fixedNow)

	assert.Equal(t, 5, result.Score)
}

func TestScoreLeadValidEmailAddsFifteen(t *testing.T) {
	engine := NewEngine()

	base := LeadInput{
		Source:    SourceWebsite,
		Status:    StatusContacted,
		Priority:  PriorityLow,
		CreatedAt: fixedNow.Add(-30 * day),
	}
	withEmail := base
	withEmail.Email = "lead@example.com"

	assert.Equal(t, engine.ScoreLead(base, fixedNow).Score+15, engine.ScoreLead(withEmail, fixedNow).Score)
}

func TestScoreLeadEngagementMonotonic(t *testing.T) {
	engine := NewEngine()

	previous := -1
	for i := 0; i < 12; i++ {
		in := LeadInput{
			Source:     SourceAds,
			Status:     StatusNew,
			Engagement: LeadEngagement{EmailsOpened: i, EmailsClicked: i / 2, CallsConnected: i / 3},
		}
		score := engine.ScoreLead(in, fixedNow).Score
		assert.GreaterOrEqual(t, score, previous)
		previous = score
	}
}

func TestScoreLeadLargeCountersKeepEngagement(t *testing.T) {
	engine := NewEngine()

	base := LeadInput{Source: SourceAds, Status: StatusNew}
	baseline := engine.ScoreLead(base, fixedNow)

	for _, eng := range []LeadEngagement{
		{EmailsClicked: math.MaxInt64/2 + 1},
		{EmailsOpened: math.MaxInt64, CallsConnected: math.MaxInt64},
	} {
		in := base
		in.Engagement = eng
		result := engine.ScoreLead(in, fixedNow)

		assert.Equal(t, baseline.Score+maxEngagementPoints, result.Score)
		assert.Contains(t, result.Factors, Factor{Name: "Engagement", Points: maxEngagementPoints, Description: "Lead has engagement history"})
	}
}

func TestScoreLeadBoundsAndGrades(t *testing.T) {
	engine := NewEngine()

	for _, source := range append(LeadSources, "") {
		for _, status := range append(LeadStatuses, "") {
			for _, priority := range Priorities {
				for _, email := range []string{"", "x", "a@b.co"} {
					in := LeadInput{
						Email:      email,
						Phone:      "0123456789",
						Source:     source,
						Status:     status,
						Company:    "Co",
						Priority:   priority,
						CreatedAt:  fixedNow,
						Engagement: LeadEngagement{EmailsOpened: 3},
					}
					r := engine.ScoreLead(in, fixedNow)

					require.GreaterOrEqual(t, r.Score, 0)
					require.LessOrEqual(t, r.Score, 100)
					require.GreaterOrEqual(t, r.ConversionProbability, 0.0)
					require.LessOrEqual(t, r.ConversionProbability, 1.0)

					switch {
					case r.Score >= 80:
						require.Equal(t, GradeHot, r.Grade)
					case r.Score >= 60:
						require.Equal(t, GradeWarm, r.Grade)
					case r.Score >= 40:
						require.Equal(t, GradeCool, r.Grade)
					default:
						require.Equal(t, GradeCold, r.Grade)
					}
				}
			}
		}
	}
}

func TestScoreLeadDeterministic(t *testing.T) {
	engine := NewEngine()
	in := LeadInput{
		Email:      "a@b.com",
		Source:     SourceSocial,
		Status:     StatusProposal,
		JobTitle:   "VP",
		Priority:   PriorityHigh,
		CreatedAt:  fixedNow.Add(-3 * day),
		Engagement: LeadEngagement{EmailsClicked: 2},
	}

	first, err := json.Marshal(engine.ScoreLead(in, fixedNow))
	require.NoError(t, err)
	second, err := json.Marshal(engine.ScoreLead(in, fixedNow))
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
}

func TestLeadResultEquivalent(t *testing.T) {
	engine := NewEngine()
	in := LeadInput{Email: "a@b.com", Source: SourceWebsite, Status: StatusNew}

	a := engine.ScoreLead(in, fixedNow)
	b := engine.ScoreLead(in, fixedNow.Add(time.Hour))
	assert.True(t, a.Equivalent(b), "analyzed time is ignored")

	in.Status = StatusQualified
	c := engine.ScoreLead(in, fixedNow)
	assert.False(t, a.Equivalent(c))
}

func TestGradeFor(t *testing.T) {
	tests := []struct {
		score    int
		expected Grade
	}{
		{0, GradeCold},
		{39, GradeCold},
		{40, GradeCool},
		{59, GradeCool},
		{60, GradeWarm},
		{79, GradeWarm},
		{80, GradeHot},
		{100, GradeHot},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, GradeFor(tt.score), "score %d", tt.score)
	}
}

func TestScoreBucket(t *testing.T) {
	assert.Equal(t, "0-19", ScoreBucket(0))
	assert.Equal(t, "0-19", ScoreBucket(19))
	assert.Equal(t, "20-39", ScoreBucket(20))
	assert.Equal(t, "80-99", ScoreBucket(99))
	assert.Equal(t, "100", ScoreBucket(100))
	assert.Equal(t, "0-19", ScoreBucket(-5))
	assert.Equal(t, "100", ScoreBucket(250))
}

func TestRuleTablesCoverEnums(t *testing.T) {
	for _, s := range LeadSources {
		assert.True(t, s.IsValid(), "source %s missing from table", s)
	}
	for _, s := range LeadStatuses {
		assert.True(t, s.IsValid(), "status %s missing from table", s)
	}
	for _, p := range Priorities {
		assert.True(t, p.IsValid(), "priority %s missing from table", p)
	}
	for _, g := range Grades {
		_, ok := gradeAdvice[g]
		assert.True(t, ok, "grade %s has no advice", g)
	}
	for _, s := range DealStages {
		assert.True(t, s.IsValid(), "stage %s missing from table", s)
		_, ok := stageNextSteps[s]
		assert.True(t, ok, "stage %s has no next steps", s)
	}
}
