// Package scoring is the single rule-based scoring engine for leads and deals.
// Every function here is pure: the caller supplies "now" and persists results.
package scoring

import (
	"fmt"
	"math"
	"regexp"
	"time"
	"unicode/utf8"
)

const (
	MinScore = 0
	MaxScore = 100

	// HistoryLimit is the number of lead score history entries kept per lead.
	HistoryLimit = 50
	// InsightsDepth is the number of history entries returned with insights.
	InsightsDepth = 10

	recentLeadDays      = 7
	minPhoneLength      = 10
	maxEngagementPoints = 15

	defaultWinProbability = 0.10
	maxEngagementBonus    = 0.20
	maxWinProbability     = 0.95
	closingSoonDays       = 7
	highValueDeal         = 100000
	maxValuePoints        = 20
)

const day = 24 * time.Hour

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Engine computes lead and deal scores. It holds no state and is safe for
// concurrent use.
type Engine struct{}

// NewEngine creates a new scoring engine
func NewEngine() *Engine {
	return &Engine{}
}

// ScoreLead computes the additive lead score, grade, breakdown and advice.
func (e *Engine) ScoreLead(in LeadInput, now time.Time) LeadResult {
	score := 0
	factors := make([]Factor, 0, 8)
	add := func(name string, points int, description string) {
		score += points
		factors = append(factors, Factor{Name: name, Points: points, Description: description})
	}

	if in.Email != "" {
		if emailPattern.MatchString(in.Email) {
			add("Valid Email", 15, "Email format is valid")
		} else {
			add("Invalid Email", 0, "Email format is invalid")
		}
	}

	if in.Phone != "" && utf8.RuneCountInString(in.Phone) >= minPhoneLength {
		add("Phone Provided", 10, "Phone number available")
	}

	source := in.Source
	if !source.IsValid() {
		source = SourceOther
	}
	add(fmt.Sprintf("%s Source", source), sourcePoints[source], fmt.Sprintf("Lead from %s", source))

	status := in.Status
	if status == "" {
		status = "unknown"
	}
	add(fmt.Sprintf("%s Status", status), statusPoints[status], fmt.Sprintf("Current status: %s", status))

	if in.Company != "" {
		add("Company Listed", 10, "Company information available")
	}
	if in.JobTitle != "" {
		add("Job Title Listed", 5, "Job title available")
	}

	if !in.CreatedAt.IsZero() && daysSince(in.CreatedAt, now) <= recentLeadDays {
		add("Recent Lead", 10, fmt.Sprintf("Created within %d days", recentLeadDays))
	}

	engagement := min(maxEngagementPoints,
		capped(in.Engagement.EmailsOpened, maxEngagementPoints)*1+
			capped(in.Engagement.EmailsClicked, maxEngagementPoints)*2+
			capped(in.Engagement.CallsConnected, maxEngagementPoints)*3)
	if engagement > 0 {
		add("Engagement", engagement, "Lead has engagement history")
	}

	// Priority contributes points without a factor line.
	score += priorityPoints[in.Priority]

	score = clamp(score, MinScore, MaxScore)
	grade := GradeFor(score)
	advice := gradeAdvice[grade]

	return LeadResult{
		Score:                 score,
		Grade:                 grade,
		Factors:               factors,
		ConversionProbability: float64(score) / MaxScore,
		RecommendedAction:     advice.recommendedAction,
		NextBestStep:          advice.nextBestStep,
		AnalyzedAt:            now,
	}
}

// ScoreDeal computes the win probability, risk assessment and deal score.
func (e *Engine) ScoreDeal(in DealInput, now time.Time) DealResult {
	eng := in.Engagement
	value := math.Max(0, in.Value)
	if math.IsNaN(value) || math.IsInf(value, 0) {
		value = 0
	}
	probability := clamp(in.Probability, 0, 100)
	meetings := nonNegative(eng.MeetingsHeld)
	proposals := nonNegative(eng.ProposalsSent)

	base, ok := stageWinProbability[in.Stage]
	if !ok {
		base = defaultWinProbability
	}
	bonus := math.Min(maxEngagementBonus,
		float64(nonNegative(eng.EmailsOpened))*0.01+
			float64(nonNegative(eng.EmailsClicked))*0.02+
			float64(nonNegative(eng.CallsMade))*0.03+
			float64(meetings)*0.05+
			float64(proposals)*0.05)
	win := math.Min(maxWinProbability, base+bonus)

	risk := RiskLow
	riskFactors := []string{}

	if in.ExpectedCloseDate != nil && !in.ExpectedCloseDate.IsZero() {
		daysUntilClose := daysUntil(*in.ExpectedCloseDate, now)
		if in.ExpectedCloseDate.Before(now) {
			riskFactors = append(riskFactors, "Deal is past expected close date")
			risk = risk.escalate(RiskHigh)
		} else if daysUntilClose < closingSoonDays && win < 0.5 {
			riskFactors = append(riskFactors, "Close date is very soon")
			risk = risk.escalate(RiskHigh)
		}
	}

	if value > highValueDeal && win > 0.8 {
		riskFactors = append(riskFactors, "High-value deal approaching close - consider additional verification")
	}

	if in.Activities <= 0 {
		riskFactors = append(riskFactors, "No recent activity on deal")
		risk = risk.escalate(RiskMedium)
	}

	if probability < 30 && meetings == 0 {
		riskFactors = append(riskFactors, "Low probability with no meetings held")
		risk = risk.escalate(RiskMedium)
	}

	nextSteps := append([]string{}, stageNextSteps[in.Stage]...)

	sentiment := SentimentNeutral
	if win >= 0.7 {
		sentiment = SentimentPositive
	} else if win < 0.3 {
		sentiment = SentimentNegative
	}

	raw := win*50 + float64(meetings)*5 + float64(proposals)*3 + math.Min(maxValuePoints, value/10000)
	dealScore := int(math.Round(math.Min(raw, MaxScore)))

	return DealResult{
		DealScore:          dealScore,
		WinProbability:     win,
		RiskLevel:          risk,
		RiskFactors:        riskFactors,
		SuggestedNextSteps: nextSteps,
		Sentiment:          sentiment,
	}
}

// GradeFor maps a clamped score onto its grade. Analytics uses the same
// thresholds.
func GradeFor(score int) Grade {
	for _, t := range gradeThresholds {
		if score >= t.floor {
			return t.grade
		}
	}
	return GradeCold
}

// ScoreBucket returns the histogram bucket label for a score.
func ScoreBucket(score int) string {
	score = clamp(score, MinScore, MaxScore)
	if score == MaxScore {
		return ScoreBuckets[len(ScoreBuckets)-1]
	}
	return ScoreBuckets[score/20]
}

// daysSince counts whole days elapsed from t to now, rounding down.
func daysSince(t, now time.Time) int {
	return int(math.Floor(float64(now.Sub(t)) / float64(day)))
}

// daysUntil counts days from now to t, rounding up.
func daysUntil(t, now time.Time) int {
	return int(math.Ceil(float64(t.Sub(now)) / float64(day)))
}

func nonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// capped bounds a counter before it is weighted so large inputs cannot overflow.
func capped(n, limit int) int {
	return min(nonNegative(n), limit)
}

func clamp(n, lo, hi int) int {
	return max(lo, min(hi, n))
}
