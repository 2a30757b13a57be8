package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"messagely/internal/models"
	"messagely/internal/repository/db"
)

type UserSQL struct {
	db      *sql.DB
	dialect string
}

func NewUserSQL(conn *sql.DB, dialect string) *UserSQL {
	return &UserSQL{db: conn, dialect: dialect}
}

// Ensure implementation of UserStore interface at compile time.
var _ UserStore = (*UserSQL)(nil)

const (
	selectUserExistsSQL = `SELECT 1 FROM users WHERE username = ?`
	insertUserSQL       = `INSERT INTO users (username, password, first_name, last_name, phone, join_at) VALUES (?, ?, ?, ?, ?, ?) RETURNING username`
	selectPasswordSQL   = `SELECT password FROM users WHERE username = ?`
	updateLastLoginSQL  = `UPDATE users SET last_login_at = ? WHERE username = ?`
	selectUserSQL       = `SELECT username, first_name, last_name, phone, join_at, last_login_at FROM users WHERE username = ?`
	selectAllUsersSQL   = `SELECT username, first_name, last_name, phone FROM users ORDER BY username`
)

func (r *UserSQL) Exists(ctx context.Context, username string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, rebind(r.dialect, selectUserExistsSQL), username).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check user %q: %w", username, err)
	}
	return true, nil
}

// Insert stores a new user. The primary key is the authoritative uniqueness
// guard: a violation maps to ErrUsernameTaken even if a pre-check passed.
func (r *UserSQL) Insert(ctx context.Context, u models.NewUser) (models.UserSummary, error) {
	var created string
	err := r.db.QueryRowContext(ctx, rebind(r.dialect, insertUserSQL),
		u.Username, u.PasswordHash, u.FirstName, u.LastName, u.Phone, u.JoinAt.UTC(),
	).Scan(&created)
	switch {
	case err == nil:
	case db.IsUniqueViolation(err):
		return models.UserSummary{}, fmt.Errorf("insert user %q: %w", u.Username, ErrUsernameTaken)
	case errors.Is(err, sql.ErrNoRows):
		return models.UserSummary{}, fmt.Errorf("insert user %q: %w", u.Username, ErrNoRowReturned)
	default:
		return models.UserSummary{}, fmt.Errorf("insert user %q: %w", u.Username, err)
	}

	return models.UserSummary{
		Username:  created,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Phone:     u.Phone,
	}, nil
}

func (r *UserSQL) FindPasswordHash(ctx context.Context, username string) (string, error) {
	var hash string
	err := r.db.QueryRowContext(ctx, rebind(r.dialect, selectPasswordSQL), username).Scan(&hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("select password for %q: %w", username, err)
	}
	return hash, nil
}

func (r *UserSQL) TouchLastLogin(ctx context.Context, username string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, rebind(r.dialect, updateLastLoginSQL), at.UTC(), username)
	if err != nil {
		return fmt.Errorf("update last login for %q: %w", username, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for %q: %w", username, err)
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *UserSQL) Get(ctx context.Context, username string) (models.User, error) {
	var (
		u         models.User
		lastLogin sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, rebind(r.dialect, selectUserSQL), username).
		Scan(&u.Username, &u.FirstName, &u.LastName, &u.Phone, &u.JoinAt, &lastLogin)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, fmt.Errorf("select user %q: %w", username, err)
	}
	u.JoinAt = u.JoinAt.UTC()
	u.LastLoginAt = nullTimePtr(lastLogin)
	return u, nil
}

// ListAll returns ErrNoUsers rather than an empty slice.
func (r *UserSQL) ListAll(ctx context.Context) ([]models.UserSummary, error) {
	rows, err := r.db.QueryContext(ctx, selectAllUsersSQL)
	if err != nil {
		return nil, fmt.Errorf("select users: %w", err)
	}
	defer rows.Close()

	out := make([]models.UserSummary, 0, 16)
	for rows.Next() {
		var u models.UserSummary
		if err := rows.Scan(&u.Username, &u.FirstName, &u.LastName, &u.Phone); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	if len(out) == 0 {
		return nil, ErrNoUsers
	}
	return out, nil
}
