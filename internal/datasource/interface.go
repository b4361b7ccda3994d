package datasource

import (
	"context"

	"github.com/yourusername/f1-winner/internal/models"
)

// DataSource fetches race calendars and per-session results from an external provider
type DataSource interface {
	// FetchCalendar retrieves every event of a season
	FetchCalendar(ctx context.Context, season int) ([]*models.Event, error)

	// FetchSession retrieves all participant results of one session.
	// Drivers without a time or position are still returned with nil fields.
	FetchSession(ctx context.Context, key models.EventKey, kind models.SessionKind) (*SessionData, error)

	// Name returns the name of the data source
	Name() string
}

// SessionData is one decoded session payload
type SessionData struct {
	Event        models.EventKey
	Kind         models.SessionKind
	Results      []*models.SessionResult
	Participants []*models.Participant
	// Skipped counts records dropped because they lacked a driver id
	Skipped int
}
