package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/sivaangayarkanni/crm/internal/scoring"
	"gorm.io/gorm"
)

// EngagementEvent is a tracked interaction with a lead.
type EngagementEvent string

const (
	EventEmailOpened   EngagementEvent = "email_opened"
	EventEmailClicked  EngagementEvent = "email_clicked"
	EventCallAttempted EngagementEvent = "call_attempted"
	EventCallConnected EngagementEvent = "call_connected"
	EventMeetingHeld   EngagementEvent = "meeting_held"
)

var EngagementEvents = []EngagementEvent{
	EventEmailOpened, EventEmailClicked, EventCallAttempted, EventCallConnected, EventMeetingHeld,
}

func (e EngagementEvent) IsValid() bool {
	for _, known := range EngagementEvents {
		if e == known {
			return true
		}
	}
	return false
}

// Lead is a prospective customer record with its latest score
type Lead struct {
	ID       string `gorm:"type:varchar(36);primaryKey" json:"id"`
	TenantID string `gorm:"type:varchar(64);not null;index" json:"tenant_id"`

	Name      string             `gorm:"not null" json:"name"`
	Email     string             `gorm:"index" json:"email"`
	Phone     string             `json:"phone"`
	PhoneE164 string             `gorm:"column:phone_e164" json:"phone_e164"`
	Company   string             `json:"company"`
	JobTitle  string             `json:"job_title"`
	Source    scoring.LeadSource `gorm:"type:varchar(32);index" json:"source"`
	Status    scoring.LeadStatus `gorm:"type:varchar(32);index" json:"status"`
	Priority  scoring.Priority   `gorm:"type:varchar(16)" json:"priority"`
	Tags      []string           `gorm:"serializer:json" json:"tags"`
	Metadata  map[string]string  `gorm:"serializer:json" json:"metadata,omitempty"`

	// Engagement counters
	EmailsOpened    int        `gorm:"not null;default:0" json:"emails_opened"`
	EmailsClicked   int        `gorm:"not null;default:0" json:"emails_clicked"`
	CallsAttempted  int        `gorm:"not null;default:0" json:"calls_attempted"`
	CallsConnected  int        `gorm:"not null;default:0" json:"calls_connected"`
	MeetingsHeld    int        `gorm:"not null;default:0" json:"meetings_held"`
	LastContactedAt *time.Time `json:"last_contacted_at,omitempty"`

	Converted   bool       `gorm:"not null;default:false" json:"converted"`
	ConvertedAt *time.Time `json:"converted_at,omitempty"`
	QualifiedAt *time.Time `json:"qualified_at,omitempty"`

	// Latest score, written only by the scoring path
	AIScore               int              `gorm:"not null;default:0;index" json:"ai_score"`
	AIGrade               scoring.Grade    `gorm:"type:varchar(8);index" json:"ai_grade"`
	ConversionProbability float64          `json:"conversion_probability"`
	RecommendedAction     string           `json:"recommended_action"`
	NextBestStep          string           `json:"next_best_step"`
	ScoreFactors          []scoring.Factor `gorm:"serializer:json" json:"score_factors"`
	AIAnalyzedAt          *time.Time       `json:"ai_analyzed_at,omitempty"`

	Version   int            `gorm:"not null" json:"version"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// LeadScoreHistory is one computed score of a lead. A lead keeps at most
// scoring.HistoryLimit entries.
type LeadScoreHistory struct {
	ID         uint             `gorm:"primaryKey" json:"-"`
	LeadID     string           `gorm:"type:varchar(36);not null;index:idx_history_lead_time,priority:1" json:"lead_id"`
	TenantID   string           `gorm:"type:varchar(64);not null" json:"-"`
	Score      int              `gorm:"not null" json:"score"`
	Grade      scoring.Grade    `gorm:"type:varchar(8);not null" json:"grade"`
	Factors    []scoring.Factor `gorm:"serializer:json" json:"factors"`
	AnalyzedAt time.Time        `gorm:"not null;index:idx_history_lead_time,priority:2" json:"analyzed_at"`
}

func (l *Lead) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.Version == 0 {
		l.Version = 1
	}
	return nil
}

// ScoreInput snapshots the fields the scoring engine reads.
func (l *Lead) ScoreInput() scoring.LeadInput {
	return scoring.LeadInput{
		Email:     l.Email,
		Phone:     l.Phone,
		Source:    l.Source,
		Status:    l.Status,
		Company:   l.Company,
		JobTitle:  l.JobTitle,
		Priority:  l.Priority,
		CreatedAt: l.CreatedAt,
		Engagement: scoring.LeadEngagement{
			EmailsOpened:   l.EmailsOpened,
			EmailsClicked:  l.EmailsClicked,
			CallsConnected: l.CallsConnected,
		},
	}
}

// ApplyScore copies a scoring result onto the lead's score fields.
func (l *Lead) ApplyScore(r scoring.LeadResult) {
	analyzedAt := r.AnalyzedAt
	l.AIScore = r.Score
	l.AIGrade = r.Grade
	l.ConversionProbability = r.ConversionProbability
	l.RecommendedAction = r.RecommendedAction
	l.NextBestStep = r.NextBestStep
	l.ScoreFactors = r.Factors
	l.AIAnalyzedAt = &analyzedAt
}

// ScoreResult rebuilds the stored result, for comparing against a fresh one.
func (l *Lead) ScoreResult() scoring.LeadResult {
	r := scoring.LeadResult{
		Score:                 l.AIScore,
		Grade:                 l.AIGrade,
		Factors:               l.ScoreFactors,
		ConversionProbability: l.ConversionProbability,
		RecommendedAction:     l.RecommendedAction,
		NextBestStep:          l.NextBestStep,
	}
	if l.AIAnalyzedAt != nil {
		r.AnalyzedAt = *l.AIAnalyzedAt
	}
	return r
}

// HasScore reports whether the lead has been scored at least once.
func (l *Lead) HasScore() bool {
	return l.AIAnalyzedAt != nil
}

// ApplyEngagement bumps the counter for ev. It reports false for unknown events.
func (l *Lead) ApplyEngagement(ev EngagementEvent, at time.Time) bool {
	switch ev {
	case EventEmailOpened:
		l.EmailsOpened++
	case EventEmailClicked:
		l.EmailsClicked++
	case EventCallAttempted:
		l.CallsAttempted++
	case EventCallConnected:
		l.CallsConnected++
	case EventMeetingHeld:
		l.MeetingsHeld++
	default:
		return false
	}
	l.LastContactedAt = &at
	return true
}

// ApplyStatus moves the lead to status and stamps the lifecycle timestamps.
func (l *Lead) ApplyStatus(status scoring.LeadStatus, at time.Time) {
	l.Status = status
	switch status {
	case scoring.StatusQualified:
		l.QualifiedAt = &at
	case scoring.StatusWon, scoring.StatusLost:
		// Converted marks the lead as closed out, whichever way it went.
		l.Converted = true
		l.ConvertedAt = &at
	}
}

// NewHistoryEntry captures r as a history row for the lead.
func (l *Lead) NewHistoryEntry(r scoring.LeadResult) *LeadScoreHistory {
	return &LeadScoreHistory{
		LeadID:     l.ID,
		TenantID:   l.TenantID,
		Score:      r.Score,
		Grade:      r.Grade,
		Factors:    r.Factors,
		AnalyzedAt: r.AnalyzedAt,
	}
}
