package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/physhka/runclub-bot/club/domain"
)

// Users persists club members.
type Users struct {
	db *sqlx.DB
}

// NewUsers builds the users repository.
func NewUsers(db *sqlx.DB) *Users {
	return &Users{db: db}
}

// GetByID fetches one user, ErrNotFound when the chat has never written.
func (r *Users) GetByID(ctx context.Context, id int64) (domain.User, error) {
	var u domain.User
	err := r.db.GetContext(ctx, &u, `SELECT id, name, phone, emergency_contact, city, role FROM users WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, ErrNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("users get %d: %w", id, err)
	}
	return u, nil
}

// Create inserts a fresh user row. A concurrent first-contact insert for
// the same chat is absorbed by the primary key conflict clause.
func (r *Users) Create(ctx context.Context, u domain.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, name, phone, emergency_contact, city, role)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING`,
		u.ID, u.Name, u.Phone, u.EmergencyContact, u.City, u.Role,
	)
	if err != nil {
		return fmt.Errorf("users create %d: %w", u.ID, err)
	}
	return nil
}

// UpdateProfile rewrites the fields collected by the registration dialogue.
func (r *Users) UpdateProfile(ctx context.Context, id int64, name, phone, emergencyContact string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET name = $1, phone = $2, emergency_contact = $3 WHERE id = $4`,
		name, phone, emergencyContact, id,
	)
	if err != nil {
		return fmt.Errorf("users update profile %d: %w", id, err)
	}
	return requireRow(res, id)
}

// SetCity changes the user's city tag.
func (r *Users) SetCity(ctx context.Context, id int64, city string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET city = $1 WHERE id = $2`, city, id)
	if err != nil {
		return fmt.Errorf("users set city %d: %w", id, err)
	}
	return requireRow(res, id)
}

// SetRole promotes, demotes, bans, or unbans a user.
func (r *Users) SetRole(ctx context.Context, id int64, role domain.Role) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET role = $1 WHERE id = $2`, role, id)
	if err != nil {
		return fmt.Errorf("users set role %d: %w", id, err)
	}
	return requireRow(res, id)
}

// ListByRole returns all users holding the given role, ordered by id.
func (r *Users) ListByRole(ctx context.Context, role domain.Role) ([]domain.User, error) {
	var users []domain.User
	err := r.db.SelectContext(ctx, &users, `
		SELECT id, name, phone, emergency_contact, city, role
		FROM users WHERE role = $1 ORDER BY id`, role)
	if err != nil {
		return nil, fmt.Errorf("users list by role %s: %w", role, err)
	}
	return users, nil
}

// Count returns the total number of known users.
func (r *Users) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM users`); err != nil {
		return 0, fmt.Errorf("users count: %w", err)
	}
	return n, nil
}

// Delete removes a user row. Administrative purge only.
func (r *Users) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("users delete %d: %w", id, err)
	}
	return nil
}

func requireRow(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for %d: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
