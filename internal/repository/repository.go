package repository

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"messagely/internal/models"
	"messagely/internal/repository/db"
)

// Store-level sentinel errors; services translate them into apperr kinds.
var (
	ErrUserNotFound    = errors.New("user not found")
	ErrUsernameTaken   = errors.New("username taken")
	ErrNoRowReturned   = errors.New("insert returned no row")
	ErrNoUsers         = errors.New("no users")
	ErrMessageNotFound = errors.New("message not found")
)

// UserStore is the credential store.
type UserStore interface {
	Exists(ctx context.Context, username string) (bool, error)
	Insert(ctx context.Context, u models.NewUser) (models.UserSummary, error)
	FindPasswordHash(ctx context.Context, username string) (string, error)
	TouchLastLogin(ctx context.Context, username string, at time.Time) error
	Get(ctx context.Context, username string) (models.User, error)
	ListAll(ctx context.Context) ([]models.UserSummary, error)
}

type MessageStore interface {
	Create(ctx context.Context, from, to, body string, sentAt time.Time) (models.Message, error)
	Get(ctx context.Context, id int64) (models.MessageDetail, error)
	MarkRead(ctx context.Context, id int64, at time.Time) (models.ReadReceipt, error)
	ListFrom(ctx context.Context, username string) ([]models.SentMessage, error)
	ListTo(ctx context.Context, username string) ([]models.ReceivedMessage, error)
	ListToAfter(ctx context.Context, username string, afterID int64, limit int) ([]models.ReceivedMessage, error)
}

type Repository struct {
	Users    UserStore
	Messages MessageStore
}

func NewRepository(conn *sql.DB, dialect string) *Repository {
	return &Repository{
		Users:    NewUserSQL(conn, dialect),
		Messages: NewMessageSQL(conn, dialect),
	}
}

// rebind rewrites ? placeholders into $n for postgres. Queries here never
// contain a literal question mark.
func rebind(dialect, query string) string {
	if dialect != db.DialectPostgres {
		return query
	}
	var (
		b strings.Builder
		n int
	)
	b.Grow(len(query) + 8)
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func nullTimePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}
