package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/physhka/runclub-bot/club/domain"
)

// Events persists scheduled runs.
type Events struct {
	db *sqlx.DB
}

// NewEvents builds the events repository.
func NewEvents(db *sqlx.DB) *Events {
	return &Events{db: db}
}

// GetByID fetches one event, ErrNotFound when it was deleted.
func (r *Events) GetByID(ctx context.Context, id int64) (domain.Event, error) {
	var e domain.Event
	err := r.db.GetContext(ctx, &e, `
		SELECT id, city, description, date, location, tempo, photo_id, reminded
		FROM events WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Event{}, ErrNotFound
	}
	if err != nil {
		return domain.Event{}, fmt.Errorf("events get %d: %w", id, err)
	}
	return e, nil
}

// Create inserts the event and returns its server-assigned id.
func (r *Events) Create(ctx context.Context, e domain.Event) (int64, error) {
	var id int64
	err := r.db.GetContext(ctx, &id, `
		INSERT INTO events (city, description, date, location, tempo, photo_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		e.City, e.Description, e.Date, e.Location, e.Tempo, e.PhotoID,
	)
	if err != nil {
		return 0, fmt.Errorf("events create: %w", err)
	}
	return id, nil
}

// Update rewrites all editable fields of an existing event.
func (r *Events) Update(ctx context.Context, e domain.Event) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE events SET description = $1, date = $2, location = $3, tempo = $4
		WHERE id = $5`,
		e.Description, e.Date, e.Location, e.Tempo, e.ID,
	)
	if err != nil {
		return fmt.Errorf("events update %d: %w", e.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("events update %d rows: %w", e.ID, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the event; registrations cascade at the schema level.
func (r *Events) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("events delete %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("events delete %d rows: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListUpcoming returns future events ordered by date. The CityAll
// sentinel disables the city filter.
func (r *Events) ListUpcoming(ctx context.Context, city string, now time.Time) ([]domain.Event, error) {
	query := `
		SELECT id, city, description, date, location, tempo, photo_id, reminded
		FROM events WHERE date >= $1`
	args := []any{now}
	if city != "" && city != domain.CityAll {
		query += ` AND city = $2`
		args = append(args, city)
	}
	query += ` ORDER BY date`

	var events []domain.Event
	if err := r.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, fmt.Errorf("events list upcoming: %w", err)
	}
	return events, nil
}

// DueForReminder returns not-yet-reminded events starting inside (from, to].
func (r *Events) DueForReminder(ctx context.Context, from, to time.Time) ([]domain.Event, error) {
	var events []domain.Event
	err := r.db.SelectContext(ctx, &events, `
		SELECT id, city, description, date, location, tempo, photo_id, reminded
		FROM events
		WHERE NOT reminded AND date > $1 AND date <= $2
		ORDER BY date`, from, to)
	if err != nil {
		return nil, fmt.Errorf("events due for reminder: %w", err)
	}
	return events, nil
}

// MarkReminded records that the reminder fan-out for the event is done.
func (r *Events) MarkReminded(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE events SET reminded = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("events mark reminded %d: %w", id, err)
	}
	return nil
}

// Count returns the total number of events ever created and kept.
func (r *Events) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM events`); err != nil {
		return 0, fmt.Errorf("events count: %w", err)
	}
	return n, nil
}
