package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sivaangayarkanni/crm/internal/scoring"
	"gorm.io/gorm"
)

// DealStatus is the commercial outcome of a deal, tracked next to its stage.
type DealStatus string

const (
	DealOpen   DealStatus = "open"
	DealWon    DealStatus = "won"
	DealLost   DealStatus = "lost"
	DealOnHold DealStatus = "on_hold"
)

var DealStatuses = []DealStatus{DealOpen, DealWon, DealLost, DealOnHold}

func (s DealStatus) IsValid() bool {
	switch s {
	case DealOpen, DealWon, DealLost, DealOnHold:
		return true
	}
	return false
}

// IsClosed reports whether the status ends the deal.
func (s DealStatus) IsClosed() bool {
	return s == DealWon || s == DealLost
}

// ActivityType is the kind of a logged deal activity.
type ActivityType string

const (
	ActivityCall        ActivityType = "call"
	ActivityEmail       ActivityType = "email"
	ActivityMeeting     ActivityType = "meeting"
	ActivityNote        ActivityType = "note"
	ActivityTask        ActivityType = "task"
	ActivityProposal    ActivityType = "proposal"
	ActivityChangeStage ActivityType = "change_stage"
)

var ActivityTypes = []ActivityType{
	ActivityCall, ActivityEmail, ActivityMeeting, ActivityNote, ActivityTask, ActivityProposal, ActivityChangeStage,
}

func (t ActivityType) IsValid() bool {
	for _, known := range ActivityTypes {
		if t == known {
			return true
		}
	}
	return false
}

const (
	DefaultCurrency    = "USD"
	DefaultPipeline    = "default"
	DefaultProbability = 10
)

// Deal is a sales opportunity with its latest prediction
type Deal struct {
	ID       string `gorm:"type:varchar(36);primaryKey" json:"id"`
	TenantID string `gorm:"type:varchar(64);not null;index" json:"tenant_id"`

	Title       string            `gorm:"not null" json:"title"`
	Description string            `json:"description"`
	Value       float64           `gorm:"not null;default:0" json:"value"`
	Currency    string            `gorm:"type:varchar(3)" json:"currency"`
	Pipeline    string            `gorm:"type:varchar(64);index" json:"pipeline"`
	Stage       scoring.DealStage `gorm:"type:varchar(32);index" json:"stage"`
	Probability int               `gorm:"not null;default:0" json:"probability"`
	Status      DealStatus        `gorm:"type:varchar(16);index" json:"status"`
	Company     string            `json:"company"`
	LeadID      *string           `gorm:"type:varchar(36);index" json:"lead_id,omitempty"`
	Tags        []string          `gorm:"serializer:json" json:"tags"`

	ExpectedCloseDate *time.Time `json:"expected_close_date,omitempty"`
	ActualCloseDate   *time.Time `json:"actual_close_date,omitempty"`

	// Engagement counters
	EmailsSent     int        `gorm:"not null;default:0" json:"emails_sent"`
	EmailsOpened   int        `gorm:"not null;default:0" json:"emails_opened"`
	EmailsClicked  int        `gorm:"not null;default:0" json:"emails_clicked"`
	CallsMade      int        `gorm:"not null;default:0" json:"calls_made"`
	MeetingsHeld   int        `gorm:"not null;default:0" json:"meetings_held"`
	ProposalsSent  int        `gorm:"not null;default:0" json:"proposals_sent"`
	ActivityCount  int        `gorm:"not null;default:0" json:"activity_count"`
	LastActivityAt *time.Time `json:"last_activity_at,omitempty"`

	// Latest prediction, written only by the scoring path
	DealScore          int               `gorm:"not null;default:0;index" json:"deal_score"`
	WinProbability     float64           `json:"win_probability"`
	RiskLevel          scoring.RiskLevel `gorm:"type:varchar(8);index" json:"risk_level"`
	RiskFactors        []string          `gorm:"serializer:json" json:"risk_factors"`
	SuggestedNextSteps []string          `gorm:"serializer:json" json:"suggested_next_steps"`
	Sentiment          scoring.Sentiment `gorm:"type:varchar(8)" json:"sentiment"`
	AIAnalyzedAt       *time.Time        `json:"ai_analyzed_at,omitempty"`

	Version   int            `gorm:"not null" json:"version"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// DealActivity is one logged interaction on a deal
type DealActivity struct {
	ID              string       `gorm:"type:varchar(36);primaryKey" json:"id"`
	DealID          string       `gorm:"type:varchar(36);not null;index" json:"deal_id"`
	TenantID        string       `gorm:"type:varchar(64);not null" json:"-"`
	Type            ActivityType `gorm:"type:varchar(16);not null" json:"type"`
	Description     string       `json:"description"`
	Outcome         string       `json:"outcome,omitempty"`
	DurationMinutes int          `json:"duration_minutes,omitempty"`
	ScheduledAt     *time.Time   `json:"scheduled_at,omitempty"`
	CompletedAt     *time.Time   `json:"completed_at,omitempty"`
	CreatedAt       time.Time    `gorm:"index" json:"created_at"`
}

func (d *Deal) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.Version == 0 {
		d.Version = 1
	}
	return nil
}

func (a *DealActivity) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// ScoreInput snapshots the fields the scoring engine reads.
func (d *Deal) ScoreInput() scoring.DealInput {
	return scoring.DealInput{
		Stage:             d.Stage,
		Value:             d.Value,
		Probability:       d.Probability,
		ExpectedCloseDate: d.ExpectedCloseDate,
		Engagement: scoring.DealEngagement{
			EmailsOpened:  d.EmailsOpened,
			EmailsClicked: d.EmailsClicked,
			CallsMade:     d.CallsMade,
			MeetingsHeld:  d.MeetingsHeld,
			ProposalsSent: d.ProposalsSent,
		},
		Activities: d.ActivityCount,
	}
}

// ApplyScore copies a prediction onto the deal's score fields.
func (d *Deal) ApplyScore(r scoring.DealResult, at time.Time) {
	d.DealScore = r.DealScore
	d.WinProbability = r.WinProbability
	d.RiskLevel = r.RiskLevel
	d.RiskFactors = r.RiskFactors
	d.SuggestedNextSteps = r.SuggestedNextSteps
	d.Sentiment = r.Sentiment
	d.AIAnalyzedAt = &at
}

// ScoreResult rebuilds the stored prediction.
func (d *Deal) ScoreResult() scoring.DealResult {
	return scoring.DealResult{
		DealScore:          d.DealScore,
		WinProbability:     d.WinProbability,
		RiskLevel:          d.RiskLevel,
		RiskFactors:        d.RiskFactors,
		SuggestedNextSteps: d.SuggestedNextSteps,
		Sentiment:          d.Sentiment,
	}
}

// ApplyStage moves the deal to stage. Closing stages settle status,
// probability and the actual close date. It returns the change_stage
// activity to log, or nil when the stage did not change.
func (d *Deal) ApplyStage(stage scoring.DealStage, at time.Time) *DealActivity {
	previous := d.Stage
	if previous == stage {
		return nil
	}
	d.Stage = stage

	switch stage {
	case scoring.StageClosedWon:
		d.Status = DealWon
		d.Probability = 100
		d.ActualCloseDate = &at
	case scoring.StageClosedLost:
		d.Status = DealLost
		d.Probability = 0
		d.ActualCloseDate = &at
	}

	return d.logActivity(&DealActivity{
		Type:        ActivityChangeStage,
		Description: fmt.Sprintf("Changed stage from %s to %s", previous, stage),
		CompletedAt: &at,
	}, at)
}

// ApplyStatus sets the status. Won and lost stamp the actual close date.
func (d *Deal) ApplyStatus(status DealStatus, at time.Time) {
	d.Status = status
	if status.IsClosed() {
		d.ActualCloseDate = &at
	}
}

// RecordActivity counts activity a on the deal and bumps the engagement counter
// matching its type. The activity is stamped with the deal's IDs.
func (d *Deal) RecordActivity(a *DealActivity, at time.Time) *DealActivity {
	switch a.Type {
	case ActivityCall:
		d.CallsMade++
	case ActivityEmail:
		d.EmailsSent++
	case ActivityMeeting:
		d.MeetingsHeld++
	case ActivityProposal:
		d.ProposalsSent++
	}
	if a.ScheduledAt == nil {
		a.ScheduledAt = &at
		a.CompletedAt = &at
	}
	return d.logActivity(a, at)
}

func (d *Deal) logActivity(a *DealActivity, at time.Time) *DealActivity {
	a.DealID = d.ID
	a.TenantID = d.TenantID
	d.ActivityCount++
	d.LastActivityAt = &at
	return a
}
