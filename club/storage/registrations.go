package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/physhka/runclub-bot/club/domain"
)

// Attendee is a registration joined with the registrant's profile,
// used by the roster view and the reminder fan-out.
type Attendee struct {
	domain.User
	Lateness int `db:"lateness"`
}

// UserEvent is an event joined with the caller's own lateness status.
type UserEvent struct {
	domain.Event
	Lateness int `db:"lateness"`
}

// Registrations persists (user, event) sign-up pairs.
type Registrations struct {
	db *sqlx.DB
}

// NewRegistrations builds the registrations repository.
func NewRegistrations(db *sqlx.DB) *Registrations {
	return &Registrations{db: db}
}

// Register creates the pair with the given lateness. Registering an
// existing pair is a no-op that leaves the stored lateness untouched.
func (r *Registrations) Register(ctx context.Context, userID, eventID int64, lateness int) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO registrations (user_id, event_id, lateness)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, event_id) DO NOTHING`,
		userID, eventID, lateness,
	)
	if err != nil {
		return fmt.Errorf("registrations register (%d,%d): %w", userID, eventID, err)
	}
	return nil
}

// SetLateness upserts the lateness value, last write wins.
func (r *Registrations) SetLateness(ctx context.Context, userID, eventID int64, lateness int) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO registrations (user_id, event_id, lateness)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, event_id) DO UPDATE SET lateness = EXCLUDED.lateness`,
		userID, eventID, lateness,
	)
	if err != nil {
		return fmt.Errorf("registrations set lateness (%d,%d): %w", userID, eventID, err)
	}
	return nil
}

// Get fetches one registration, ErrNotFound when the pair does not exist.
func (r *Registrations) Get(ctx context.Context, userID, eventID int64) (domain.Registration, error) {
	var reg domain.Registration
	err := r.db.GetContext(ctx, &reg, `
		SELECT user_id, event_id, lateness FROM registrations
		WHERE user_id = $1 AND event_id = $2`, userID, eventID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Registration{}, ErrNotFound
	}
	if err != nil {
		return domain.Registration{}, fmt.Errorf("registrations get (%d,%d): %w", userID, eventID, err)
	}
	return reg, nil
}

// ListByEvent returns the roster of an event with member profiles.
func (r *Registrations) ListByEvent(ctx context.Context, eventID int64) ([]Attendee, error) {
	var attendees []Attendee
	err := r.db.SelectContext(ctx, &attendees, `
		SELECT u.id, u.name, u.phone, u.emergency_contact, u.city, u.role, r.lateness
		FROM registrations r
		JOIN users u ON u.id = r.user_id
		WHERE r.event_id = $1
		ORDER BY u.id`, eventID)
	if err != nil {
		return nil, fmt.Errorf("registrations list by event %d: %w", eventID, err)
	}
	return attendees, nil
}

// ListByUser returns the caller's events with their lateness status.
func (r *Registrations) ListByUser(ctx context.Context, userID int64) ([]UserEvent, error) {
	var events []UserEvent
	err := r.db.SelectContext(ctx, &events, `
		SELECT e.id, e.city, e.description, e.date, e.location, e.tempo, e.photo_id, e.reminded, r.lateness
		FROM registrations r
		JOIN events e ON e.id = r.event_id
		WHERE r.user_id = $1
		ORDER BY e.date`, userID)
	if err != nil {
		return nil, fmt.Errorf("registrations list by user %d: %w", userID, err)
	}
	return events, nil
}
