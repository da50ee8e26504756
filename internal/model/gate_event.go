package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Gate string

const (
	GateIn  Gate = "In"
	GateOut Gate = "Out"
)

func (g Gate) Valid() bool {
	return g == GateIn || g == GateOut
}

// GateEvent is a single camera observation at a gate. Events are written by
// the gate backend and never modified here.
type GateEvent struct {
	SessionID     string    `gorm:"column:session_id;type:varchar(64);primaryKey" json:"session_id"`
	Gate          Gate      `gorm:"type:varchar(8);not null;index" json:"gate"`
	Timestamp     time.Time `gorm:"column:detected_at;not null;index" json:"timestamp"`
	Plate         string    `gorm:"column:plate_number;type:varchar(32);not null;default:'';index" json:"plate_number"`
	FaceID        string    `gorm:"column:face_index;type:varchar(64);not null;default:''" json:"face_id"`
	PlateImageURL string    `gorm:"column:plate_url;type:text" json:"plate_url,omitempty"`
	FaceImageURL  string    `gorm:"column:face_url;type:text" json:"face_url,omitempty"`
	CheckedOut    bool      `gorm:"column:is_out;not null;default:false" json:"is_out"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"-"`
}

func (GateEvent) TableName() string {
	return "gate_events"
}

func (e *GateEvent) BeforeCreate(tx *gorm.DB) error {
	if e.SessionID == "" {
		e.SessionID = uuid.NewString()
	}
	return nil
}

// Endpoint returns the event as one side of a parking session.
func (e GateEvent) Endpoint() *SessionEndpoint {
	return &SessionEndpoint{
		SessionID: e.SessionID,
		Time:      e.Timestamp,
		FaceURL:   e.FaceImageURL,
		PlateURL:  e.PlateImageURL,
	}
}

// SessionMap links an entry event to the exit event that closed it.
type SessionMap struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	EntrySessionID string    `gorm:"type:varchar(64);not null;uniqueIndex" json:"entry_session_id"`
	ExitSessionID  string    `gorm:"type:varchar(64);not null;uniqueIndex" json:"exit_session_id"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (SessionMap) TableName() string {
	return "session_maps"
}

func (m *SessionMap) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// MatchingVerification is the face comparison outcome recorded for an exit event.
type MatchingVerification struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	SessionID string    `gorm:"type:varchar(64);not null;index" json:"session_id"`
	IsMatch   bool      `gorm:"not null" json:"is_match"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (MatchingVerification) TableName() string {
	return "matching_verifications"
}

func (v *MatchingVerification) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}
