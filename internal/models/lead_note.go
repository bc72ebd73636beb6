package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NoteType classifies a lead note.
type NoteType string

const (
	NoteGeneral  NoteType = "general"
	NoteCall     NoteType = "call"
	NoteEmail    NoteType = "email"
	NoteMeeting  NoteType = "meeting"
	NoteFollowUp NoteType = "followup"
)

var NoteTypes = []NoteType{NoteGeneral, NoteCall, NoteEmail, NoteMeeting, NoteFollowUp}

func (t NoteType) IsValid() bool {
	for _, known := range NoteTypes {
		if t == known {
			return true
		}
	}
	return false
}

// LeadNote is a free-form note on a lead. Notes never feed the score.
type LeadNote struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	LeadID    string    `gorm:"type:varchar(36);not null;index:idx_note_lead_time,priority:1" json:"lead_id"`
	TenantID  string    `gorm:"type:varchar(64);not null" json:"-"`
	Type      NoteType  `gorm:"type:varchar(16);not null" json:"type"`
	Content   string    `gorm:"not null" json:"content"`
	CreatedAt time.Time `gorm:"index:idx_note_lead_time,priority:2" json:"created_at"`
}

func (n *LeadNote) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Type == "" {
		n.Type = NoteGeneral
	}
	return nil
}
