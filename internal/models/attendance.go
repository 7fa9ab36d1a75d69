package models

import (
	"time"

	"github.com/google/uuid"
)

// Attendance actions and methods.
const (
	ActionEntry = "entry"
	ActionExit  = "exit"

	MethodRecognized = "recognized"
	MethodManual     = "manual"
)

// AttendanceUser statuses.
const (
	UserActive   = "active"
	UserInactive = "inactive"
)

// GoingOutLog statuses.
const (
	GoingOutOut      = "out"
	GoingOutReturned = "returned"
)

// AttendanceUser is a person registered with the face-recognition gate.
// Phone is the natural key; the biometric template itself lives in the
// external face service, referenced opaquely by TemplateRef.
type AttendanceUser struct {
	BaseModel
	Name        string `json:"name"`
	Phone       string `gorm:"uniqueIndex" json:"phone"`
	Status      string `gorm:"index" json:"status"`
	TemplateRef string `json:"-"`
	PhotoCount  int    `json:"photo_count"`
}

// AttendanceLog is an append-only record of one gate action.
type AttendanceLog struct {
	BaseModel
	UserID     uuid.UUID       `gorm:"type:uuid;index" json:"user_id"`
	User       *AttendanceUser `json:"user,omitempty"`
	Action     string          `json:"action"`
	Method     string          `json:"method"`
	Confidence float64         `json:"confidence"`
	Timestamp  time.Time       `gorm:"index" json:"timestamp"`
	Status     string          `json:"status"`
	Note       string          `json:"note"`
}

// GoingOutLog tracks a temporary absence nested within an "entered" day.
// At most one open record (ComingBackTime == nil) may exist per user.
type GoingOutLog struct {
	BaseModel
	UserID         uuid.UUID       `gorm:"type:uuid;index" json:"user_id"`
	User           *AttendanceUser `json:"user,omitempty"`
	ReasonType     string          `json:"reason_type"`
	ReasonDetails  string          `json:"reason_details"`
	GoingOutTime   time.Time       `json:"going_out_time"`
	ComingBackTime *time.Time      `json:"coming_back_time"`
	Status         string          `gorm:"index" json:"status"`
}

// IsOpen reports whether the absence has not been closed yet.
func (g *GoingOutLog) IsOpen() bool {
	return g.ComingBackTime == nil
}
