package models

import (
	"fmt"
	"time"
)

// Event represents one race weekend identified by (season, round)
type Event struct {
	Season        int       `db:"season" json:"season" validate:"required,gte=1950"`
	Round         int       `db:"round" json:"round" validate:"required,gt=0"`
	Name          string    `db:"name" json:"name"`
	Circuit       string    `db:"circuit" json:"circuit"`
	Country       string    `db:"country" json:"country"`
	ScheduledDate time.Time `db:"scheduled_date" json:"scheduled_date"`
	Laps          *int      `db:"laps" json:"laps"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// Key returns the natural key of the event
func (e *Event) Key() EventKey {
	return EventKey{Season: e.Season, Round: e.Round}
}

// HasTakenPlace reports whether the event is scheduled on or before the given day
func (e *Event) HasTakenPlace(now time.Time) bool {
	if e.ScheduledDate.IsZero() {
		return false
	}
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return !e.ScheduledDate.After(today)
}

// EventKey is the (season, round) pair
type EventKey struct {
	Season int `json:"season"`
	Round  int `json:"round"`
}

// Before reports whether k is strictly earlier than other
func (k EventKey) Before(other EventKey) bool {
	if k.Season != other.Season {
		return k.Season < other.Season
	}
	return k.Round < other.Round
}

func (k EventKey) String() string {
	return fmt.Sprintf("%d/R%02d", k.Season, k.Round)
}

// Participant is a driver tracked across seasons by a stable identifier
type Participant struct {
	DriverID    string    `db:"driver_id" json:"driver_id" validate:"required"`
	DisplayName string    `db:"display_name" json:"display_name"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
