package scoring

import "time"

// LeadSource is the acquisition channel of a lead.
type LeadSource string

const (
	SourceWebsite  LeadSource = "website"
	SourceReferral LeadSource = "referral"
	SourceSocial   LeadSource = "social"
	SourceAds      LeadSource = "ads"
	SourceEmail    LeadSource = "email"
	SourceEvent    LeadSource = "event"
	SourcePartner  LeadSource = "partner"
	SourceOther    LeadSource = "other"
)

// IsValid reports whether s is a known lead source.
func (s LeadSource) IsValid() bool {
	_, ok := sourcePoints[s]
	return ok
}

// LeadStatus is the lifecycle status of a lead.
type LeadStatus string

const (
	StatusNew         LeadStatus = "new"
	StatusContacted   LeadStatus = "contacted"
	StatusQualified   LeadStatus = "qualified"
	StatusProposal    LeadStatus = "proposal"
	StatusNegotiation LeadStatus = "negotiation"
	StatusWon         LeadStatus = "won"
	StatusLost        LeadStatus = "lost"
)

func (s LeadStatus) IsValid() bool {
	_, ok := statusPoints[s]
	return ok
}

// Priority is the user-assigned urgency of a lead.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) IsValid() bool {
	_, ok := priorityPoints[p]
	return ok
}

// Grade buckets a lead score for display and reporting.
type Grade string

const (
	GradeCold Grade = "cold"
	GradeCool Grade = "cool"
	GradeWarm Grade = "warm"
	GradeHot  Grade = "hot"
)

// DealStage is the pipeline stage of a deal.
type DealStage string

const (
	StageQualification DealStage = "qualification"
	StageDiscovery     DealStage = "discovery"
	StageProposal      DealStage = "proposal"
	StageNegotiation   DealStage = "negotiation"
	StageClosedWon     DealStage = "closed_won"
	StageClosedLost    DealStage = "closed_lost"
)

func (s DealStage) IsValid() bool {
	_, ok := stageWinProbability[s]
	return ok
}

// IsClosed reports whether the stage ends the pipeline.
func (s DealStage) IsClosed() bool {
	return s == StageClosedWon || s == StageClosedLost
}

// RiskLevel is ordered: low < medium < high.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

func (r RiskLevel) rank() int {
	switch r {
	case RiskHigh:
		return 2
	case RiskMedium:
		return 1
	default:
		return 0
	}
}

// escalate returns the higher of r and to. It never lowers the level.
func (r RiskLevel) escalate(to RiskLevel) RiskLevel {
	if to.rank() > r.rank() {
		return to
	}
	return r
}

// Sentiment is the coarse outlook of a deal.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// LeadEngagement holds the lead counters that feed the engagement rule.
type LeadEngagement struct {
	EmailsOpened   int `json:"emails_opened"`
	EmailsClicked  int `json:"emails_clicked"`
	CallsConnected int `json:"calls_connected"`
}

// LeadInput is an immutable snapshot of the lead fields the engine reads.
// Empty strings stand for missing values.
type LeadInput struct {
	Email      string         `json:"email"`
	Phone      string         `json:"phone"`
	Source     LeadSource     `json:"source"`
	Status     LeadStatus     `json:"status"`
	Company    string         `json:"company"`
	JobTitle   string         `json:"job_title"`
	Priority   Priority       `json:"priority"`
	CreatedAt  time.Time      `json:"created_at"`
	Engagement LeadEngagement `json:"engagement"`
}

// Factor is one line of a lead score breakdown.
type Factor struct {
	Name        string `json:"name"`
	Points      int    `json:"points"`
	Description string `json:"description"`
}

// LeadResult is the outcome of ScoreLead.
type LeadResult struct {
	Score                 int       `json:"score"`
	Grade                 Grade     `json:"grade"`
	Factors               []Factor  `json:"factors"`
	ConversionProbability float64   `json:"conversion_probability"`
	RecommendedAction     string    `json:"recommended_action"`
	NextBestStep          string    `json:"next_best_step"`
	AnalyzedAt            time.Time `json:"analyzed_at"`
}

// Equivalent reports whether two results carry the same score, grade and
// factor breakdown. AnalyzedAt is ignored.
func (r LeadResult) Equivalent(other LeadResult) bool {
	if r.Score != other.Score || r.Grade != other.Grade || len(r.Factors) != len(other.Factors) {
		return false
	}
	for i := range r.Factors {
		if r.Factors[i] != other.Factors[i] {
			return false
		}
	}
	return true
}

// DealEngagement holds the deal counters that feed the win probability.
type DealEngagement struct {
	EmailsOpened  int `json:"emails_opened"`
	EmailsClicked int `json:"emails_clicked"`
	CallsMade     int `json:"calls_made"`
	MeetingsHeld  int `json:"meetings_held"`
	ProposalsSent int `json:"proposals_sent"`
}

// DealInput is an immutable snapshot of the deal fields the engine reads.
type DealInput struct {
	Stage             DealStage      `json:"stage"`
	Value             float64        `json:"value"`
	Probability       int            `json:"probability"`
	ExpectedCloseDate *time.Time     `json:"expected_close_date,omitempty"`
	Engagement        DealEngagement `json:"engagement"`
	Activities        int            `json:"activities"`
}

// DealResult is the outcome of ScoreDeal.
type DealResult struct {
	DealScore          int       `json:"deal_score"`
	WinProbability     float64   `json:"win_probability"`
	RiskLevel          RiskLevel `json:"risk_level"`
	RiskFactors        []string  `json:"risk_factors"`
	SuggestedNextSteps []string  `json:"suggested_next_steps"`
	Sentiment          Sentiment `json:"sentiment"`
}
