package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/yourusername/f1-winner/internal/database"
	"github.com/yourusername/f1-winner/internal/models"
)

// PostgresEventRepository implements EventRepository for PostgreSQL
type PostgresEventRepository struct {
	db *database.DB
}

// NewPostgresEventRepository creates a new event repository
func NewPostgresEventRepository(db *database.DB) EventRepository {
	return &PostgresEventRepository{db: db}
}

// Upsert inserts or refreshes a calendar entry
func (r *PostgresEventRepository) Upsert(ctx context.Context, event *models.Event) error {
	query := `
		INSERT INTO events (season, round, name, circuit, country, scheduled_date, laps)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (season, round) DO UPDATE SET
			name = EXCLUDED.name,
			circuit = EXCLUDED.circuit,
			country = EXCLUDED.country,
			scheduled_date = EXCLUDED.scheduled_date,
			laps = EXCLUDED.laps,
			updated_at = now()
		WHERE (events.name, events.circuit, events.country, events.scheduled_date, events.laps)
			IS DISTINCT FROM
			(EXCLUDED.name, EXCLUDED.circuit, EXCLUDED.country, EXCLUDED.scheduled_date, EXCLUDED.laps)
	`

	_, err := r.db.Conn(ctx).Exec(ctx, query,
		event.Season, event.Round, event.Name, event.Circuit, event.Country, event.ScheduledDate, event.Laps,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert event %s: %w", event.Key(), err)
	}
	return nil
}

const eventColumns = `season, round, name, circuit, country, scheduled_date, laps, created_at, updated_at`

func scanEvent(row pgx.Row) (*models.Event, error) {
	e := &models.Event{}
	err := row.Scan(
		&e.Season, &e.Round, &e.Name, &e.Circuit, &e.Country,
		&e.ScheduledDate, &e.Laps, &e.CreatedAt, &e.UpdatedAt,
	)
	return e, err
}

// Get retrieves one event by key
func (r *PostgresEventRepository) Get(ctx context.Context, key models.EventKey) (*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE season = $1 AND round = $2`

	e, err := scanEvent(r.db.Conn(ctx).QueryRow(ctx, query, key.Season, key.Round))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query event %s: %w", key, err)
	}
	return e, nil
}

// GetBySeason retrieves a season's calendar ordered by round
func (r *PostgresEventRepository) GetBySeason(ctx context.Context, season int) ([]*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE season = $1 ORDER BY round`

	rows, err := r.db.Conn(ctx).Query(ctx, query, season)
	if err != nil {
		return nil, fmt.Errorf("failed to query events for season %d: %w", season, err)
	}
	defer rows.Close()

	var events []*models.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}
	return events, nil
}

// PostgresParticipantRepository implements ParticipantRepository for PostgreSQL
type PostgresParticipantRepository struct {
	db *database.DB
}

// NewPostgresParticipantRepository creates a new participant repository
func NewPostgresParticipantRepository(db *database.DB) ParticipantRepository {
	return &PostgresParticipantRepository{db: db}
}

// Upsert inserts a participant or refreshes its display name
func (r *PostgresParticipantRepository) Upsert(ctx context.Context, p *models.Participant) error {
	query := `
		INSERT INTO participants (driver_id, display_name)
		VALUES ($1, $2)
		ON CONFLICT (driver_id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			updated_at = now()
		WHERE participants.display_name IS DISTINCT FROM EXCLUDED.display_name
			AND EXCLUDED.display_name <> ''
	`

	if _, err := r.db.Conn(ctx).Exec(ctx, query, p.DriverID, p.DisplayName); err != nil {
		return fmt.Errorf("failed to upsert participant %s: %w", p.DriverID, err)
	}
	return nil
}

// List retrieves every participant ordered by id
func (r *PostgresParticipantRepository) List(ctx context.Context) ([]*models.Participant, error) {
	rows, err := r.db.Conn(ctx).Query(ctx,
		`SELECT driver_id, display_name, updated_at FROM participants ORDER BY driver_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query participants: %w", err)
	}
	defer rows.Close()

	var participants []*models.Participant
	for rows.Next() {
		p := &models.Participant{}
		if err := rows.Scan(&p.DriverID, &p.DisplayName, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating participants: %w", err)
	}
	return participants, nil
}
