package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"messagely/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
)

func newMockUserRepo(t *testing.T) (*UserSQL, sqlmock.Sqlmock, func()) {
	t.Helper()

	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	repo := NewUserSQL(conn, "sqlite")
	cleanup := func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Fatalf("unmet sqlmock expectations: %v", err)
		}
		_ = conn.Close()
	}
	return repo, mock, cleanup
}

var joinedAt = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func TestUserSQL_Exists(t *testing.T) {
	tests := []struct {
		name       string
		mockExpect func(sqlmock.Sqlmock)
		want       bool
		wantErr    bool
	}{
		{
			name: "exists",
			mockExpect: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(regexp.QuoteMeta(selectUserExistsSQL)).
					WithArgs("alice").
					WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
			},
			want: true,
		},
		{
			name: "missing",
			mockExpect: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(regexp.QuoteMeta(selectUserExistsSQL)).
					WithArgs("alice").
					WillReturnError(sql.ErrNoRows)
			},
			want: false,
		},
		{
			name: "query error",
			mockExpect: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(regexp.QuoteMeta(selectUserExistsSQL)).
					WithArgs("alice").
					WillReturnError(errors.New("db down"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, cleanup := newMockUserRepo(t)
			defer cleanup()
			tt.mockExpect(mock)

			got, err := repo.Exists(context.Background(), "alice")
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("Exists: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUserSQL_Insert(t *testing.T) {
	in := models.NewUser{
		Username:     "bob",
		PasswordHash: "$2a$04$hash",
		FirstName:    "Bob",
		LastName:     "Smith",
		Phone:        "+14150000000",
		JoinAt:       joinedAt,
	}

	tests := []struct {
		name       string
		mockExpect func(sqlmock.Sqlmock)
		wantErr    error
		errContain string
	}{
		{
			name: "success",
			mockExpect: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(regexp.QuoteMeta(insertUserSQL)).
					WithArgs("bob", "$2a$04$hash", "Bob", "Smith", "+14150000000", joinedAt).
					WillReturnRows(sqlmock.NewRows([]string{"username"}).AddRow("bob"))
			},
		},
		{
			name: "unique violation maps to taken",
			mockExpect: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(regexp.QuoteMeta(insertUserSQL)).
					WillReturnError(&pgconn.PgError{Code: "23505"})
			},
			wantErr: ErrUsernameTaken,
		},
		{
			name: "no row returned",
			mockExpect: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(regexp.QuoteMeta(insertUserSQL)).
					WillReturnRows(sqlmock.NewRows([]string{"username"}))
			},
			wantErr: ErrNoRowReturned,
		},
		{
			name: "driver error",
			mockExpect: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(regexp.QuoteMeta(insertUserSQL)).
					WillReturnError(errors.New("disk full"))
			},
			errContain: "insert user",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, cleanup := newMockUserRepo(t)
			defer cleanup()
			tt.mockExpect(mock)

			got, err := repo.Insert(context.Background(), in)
			switch {
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
			case tt.errContain != "":
				if err == nil || !strings.Contains(err.Error(), tt.errContain) {
					t.Fatalf("expected error containing %q, got %v", tt.errContain, err)
				}
			default:
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				want := models.UserSummary{Username: "bob", FirstName: "Bob", LastName: "Smith", Phone: "+14150000000"}
				if got != want {
					t.Fatalf("unexpected summary: %+v", got)
				}
			}
		})
	}
}

func TestUserSQL_FindPasswordHash(t *testing.T) {
	repo, mock, cleanup := newMockUserRepo(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(selectPasswordSQL)).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"password"}).AddRow("h123"))
	mock.ExpectQuery(regexp.QuoteMeta(selectPasswordSQL)).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	hash, err := repo.FindPasswordHash(context.Background(), "alice")
	if err != nil || hash != "h123" {
		t.Fatalf("got (%q, %v), want (h123, nil)", hash, err)
	}
	if _, err := repo.FindPasswordHash(context.Background(), "ghost"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserSQL_TouchLastLogin(t *testing.T) {
	at := joinedAt.Add(time.Hour)

	tests := []struct {
		name       string
		mockExpect func(sqlmock.Sqlmock)
		wantErr    error
		anyErr     bool
	}{
		{
			name: "updated",
			mockExpect: func(m sqlmock.Sqlmock) {
				m.ExpectExec(regexp.QuoteMeta(updateLastLoginSQL)).
					WithArgs(at, "alice").
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "row vanished",
			mockExpect: func(m sqlmock.Sqlmock) {
				m.ExpectExec(regexp.QuoteMeta(updateLastLoginSQL)).
					WithArgs(at, "alice").
					WillReturnResult(sqlmock.NewResult(0, 0))
			},
			wantErr: ErrUserNotFound,
		},
		{
			name: "rows affected error",
			mockExpect: func(m sqlmock.Sqlmock) {
				m.ExpectExec(regexp.QuoteMeta(updateLastLoginSQL)).
					WillReturnResult(sqlmock.NewErrorResult(errors.New("no count")))
			},
			anyErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, cleanup := newMockUserRepo(t)
			defer cleanup()
			tt.mockExpect(mock)

			err := repo.TouchLastLogin(context.Background(), "alice", at)
			switch {
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
			case tt.anyErr:
				if err == nil {
					t.Fatalf("expected error, got nil")
				}
			default:
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
			}
		})
	}
}

func TestUserSQL_Get(t *testing.T) {
	repo, mock, cleanup := newMockUserRepo(t)
	defer cleanup()

	cols := []string{"username", "first_name", "last_name", "phone", "join_at", "last_login_at"}
	mock.ExpectQuery(regexp.QuoteMeta(selectUserSQL)).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("alice", "Alice", "A", "+1", joinedAt, nil))
	mock.ExpectQuery(regexp.QuoteMeta(selectUserSQL)).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	u, err := repo.Get(context.Background(), "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.Username != "alice" || !u.JoinAt.Equal(joinedAt) || u.LastLoginAt != nil {
		t.Fatalf("unexpected user: %+v", u)
	}
	if u.PasswordHash != "" {
		t.Fatalf("Get must not load the password hash")
	}

	if _, err := repo.Get(context.Background(), "ghost"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserSQL_ListAll(t *testing.T) {
	cols := []string{"username", "first_name", "last_name", "phone"}

	t.Run("rows", func(t *testing.T) {
		repo, mock, cleanup := newMockUserRepo(t)
		defer cleanup()
		mock.ExpectQuery(regexp.QuoteMeta(selectAllUsersSQL)).
			WillReturnRows(sqlmock.NewRows(cols).
				AddRow("alice", "Alice", "A", "+1").
				AddRow("bob", "Bob", "B", "+2"))

		got, err := repo.ListAll(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 2 || got[0].Username != "alice" || got[1].Username != "bob" {
			t.Fatalf("unexpected users: %+v", got)
		}
	})

	t.Run("empty is an error", func(t *testing.T) {
		repo, mock, cleanup := newMockUserRepo(t)
		defer cleanup()
		mock.ExpectQuery(regexp.QuoteMeta(selectAllUsersSQL)).
			WillReturnRows(sqlmock.NewRows(cols))

		if _, err := repo.ListAll(context.Background()); !errors.Is(err, ErrNoUsers) {
			t.Fatalf("expected ErrNoUsers, got %v", err)
		}
	})
}
