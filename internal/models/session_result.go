package models

import (
	"strings"
	"time"
)

// SessionKind identifies one session of a race weekend
type SessionKind string

// Session kinds
const (
	SessionPractice1        SessionKind = "practice1"
	SessionPractice2        SessionKind = "practice2"
	SessionPractice3        SessionKind = "practice3"
	SessionQualifying       SessionKind = "qualifying"
	SessionSprintQualifying SessionKind = "sprint_qualifying"
	SessionSprintRace       SessionKind = "sprint_race"
	SessionRace             SessionKind = "race"
)

// AllSessionKinds lists every session kind in weekend order
func AllSessionKinds() []SessionKind {
	return []SessionKind{
		SessionPractice1,
		SessionPractice2,
		SessionPractice3,
		SessionSprintQualifying,
		SessionSprintRace,
		SessionQualifying,
		SessionRace,
	}
}

// PracticeKinds lists the free-practice sessions
func PracticeKinds() []SessionKind {
	return []SessionKind{SessionPractice1, SessionPractice2, SessionPractice3}
}

// ParseSessionKind converts a configuration string into a SessionKind
func ParseSessionKind(s string) (SessionKind, bool) {
	for _, k := range AllSessionKinds() {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// ResultStatus is the classification of a session result
type ResultStatus string

// Result statuses
const (
	StatusFinished     ResultStatus = "finished"
	StatusRetired      ResultStatus = "retired"
	StatusDisqualified ResultStatus = "disqualified"
	StatusUnknown      ResultStatus = "unknown"
)

// SessionResult is the outcome for one participant in one session of one event
type SessionResult struct {
	Season           int          `db:"season" json:"season" validate:"required,gte=1950"`
	Round            int          `db:"round" json:"round" validate:"required,gt=0"`
	DriverID         string       `db:"driver_id" json:"driver_id" validate:"required"`
	Kind             SessionKind  `db:"session_kind" json:"session_kind" validate:"required"`
	TeamID           string       `db:"team_id" json:"team_id"`
	Position         *int         `db:"position" json:"position" validate:"omitempty,gt=0"`
	GridPosition     *int         `db:"grid_position" json:"grid_position" validate:"omitempty,gt=0"`
	TimeSeconds      *float64     `db:"time_seconds" json:"time_seconds" validate:"omitempty,gt=0"`
	Q1Seconds        *float64     `db:"q1_seconds" json:"q1_seconds" validate:"omitempty,gt=0"`
	Q2Seconds        *float64     `db:"q2_seconds" json:"q2_seconds" validate:"omitempty,gt=0"`
	Q3Seconds        *float64     `db:"q3_seconds" json:"q3_seconds" validate:"omitempty,gt=0"`
	Status           ResultStatus `db:"status" json:"status"`
	RetirementReason string       `db:"retirement_reason" json:"retirement_reason"`
	Mechanical       bool         `db:"mechanical" json:"mechanical"`
	IngestedAt       time.Time    `db:"ingested_at" json:"ingested_at"`
}

// SessionResultKey is the natural key of a SessionResult
type SessionResultKey struct {
	EventKey
	DriverID string
	Kind     SessionKind
}

// Key returns the natural key of the result
func (r *SessionResult) Key() SessionResultKey {
	return SessionResultKey{EventKey: r.EventKey(), DriverID: r.DriverID, Kind: r.Kind}
}

// EventKey returns the event this result belongs to
func (r *SessionResult) EventKey() EventKey {
	return EventKey{Season: r.Season, Round: r.Round}
}

// IsClassified reports whether the result has a finishing position
func (r *SessionResult) IsClassified() bool {
	return r.Position != nil && *r.Position > 0
}

// SameContent reports whether two results carry identical payloads, ignoring IngestedAt
func (r *SessionResult) SameContent(other *SessionResult) bool {
	return r.Key() == other.Key() &&
		r.TeamID == other.TeamID &&
		equalInt(r.Position, other.Position) &&
		equalInt(r.GridPosition, other.GridPosition) &&
		equalFloat(r.TimeSeconds, other.TimeSeconds) &&
		equalFloat(r.Q1Seconds, other.Q1Seconds) &&
		equalFloat(r.Q2Seconds, other.Q2Seconds) &&
		equalFloat(r.Q3Seconds, other.Q3Seconds) &&
		r.Status == other.Status &&
		r.RetirementReason == other.RetirementReason &&
		r.Mechanical == other.Mechanical
}

var (
	mechanicalKeywords = []string{
		"engine", "gearbox", "transmission", "hydraul",
		"electrical", "fuel", "power", "cooling",
		"brake", "suspension",
	}
	incidentKeywords = []string{
		"accident", "collision", "crash",
		"damage", "contact", "spun",
	}
)

// IsMechanicalFailure classifies a retirement reason as a car failure rather than an incident
func IsMechanicalFailure(reason string) bool {
	r := strings.ToLower(reason)
	for _, kw := range incidentKeywords {
		if strings.Contains(r, kw) {
			return false
		}
	}
	for _, kw := range mechanicalKeywords {
		if strings.Contains(r, kw) {
			return true
		}
	}
	return false
}

func equalInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func equalFloat(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
