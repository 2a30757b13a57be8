package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"messagely/internal/models"
)

type MessageSQL struct {
	db      *sql.DB
	dialect string
}

func NewMessageSQL(conn *sql.DB, dialect string) *MessageSQL {
	return &MessageSQL{db: conn, dialect: dialect}
}

var _ MessageStore = (*MessageSQL)(nil)

const (
	insertMessageSQL = `INSERT INTO messages (from_username, to_username, body, sent_at) VALUES (?, ?, ?, ?) RETURNING id`

	selectMessageSQL = `
		SELECT m.id, m.body, m.sent_at, m.read_at,
		       f.username, f.first_name, f.last_name, f.phone,
		       t.username, t.first_name, t.last_name, t.phone
		FROM messages AS m
		JOIN users AS f ON f.username = m.from_username
		JOIN users AS t ON t.username = m.to_username
		WHERE m.id = ?`

	markReadSQL = `UPDATE messages SET read_at = ? WHERE id = ?`

	selectMessagesFromSQL = `
		SELECT m.id, m.body, m.sent_at, m.read_at,
		       u.username, u.first_name, u.last_name, u.phone
		FROM messages AS m
		JOIN users AS u ON u.username = m.to_username
		WHERE m.from_username = ?
		ORDER BY m.id`

	selectMessagesToSQL = `
		SELECT m.id, m.body, m.sent_at, m.read_at,
		       u.username, u.first_name, u.last_name, u.phone
		FROM messages AS m
		JOIN users AS u ON u.username = m.from_username
		WHERE m.to_username = ?
		ORDER BY m.id`

	selectMessagesToAfterSQL = `
		SELECT m.id, m.body, m.sent_at, m.read_at,
		       u.username, u.first_name, u.last_name, u.phone
		FROM messages AS m
		JOIN users AS u ON u.username = m.from_username
		WHERE m.to_username = ? AND m.id > ?
		ORDER BY m.id
		LIMIT ?`
)

func (r *MessageSQL) Create(ctx context.Context, from, to, body string, sentAt time.Time) (models.Message, error) {
	sentAt = sentAt.UTC()
	var id int64
	err := r.db.QueryRowContext(ctx, rebind(r.dialect, insertMessageSQL), from, to, body, sentAt).Scan(&id)
	if err != nil {
		return models.Message{}, fmt.Errorf("insert message %s -> %s: %w", from, to, err)
	}
	return models.Message{
		ID:           id,
		FromUsername: from,
		ToUsername:   to,
		Body:         body,
		SentAt:       sentAt,
	}, nil
}

func (r *MessageSQL) Get(ctx context.Context, id int64) (models.MessageDetail, error) {
	var (
		m      models.MessageDetail
		readAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, rebind(r.dialect, selectMessageSQL), id).Scan(
		&m.ID, &m.Body, &m.SentAt, &readAt,
		&m.FromUser.Username, &m.FromUser.FirstName, &m.FromUser.LastName, &m.FromUser.Phone,
		&m.ToUser.Username, &m.ToUser.FirstName, &m.ToUser.LastName, &m.ToUser.Phone,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.MessageDetail{}, ErrMessageNotFound
		}
		return models.MessageDetail{}, fmt.Errorf("select message %d: %w", id, err)
	}
	m.SentAt = m.SentAt.UTC()
	m.ReadAt = nullTimePtr(readAt)
	return m, nil
}

func (r *MessageSQL) MarkRead(ctx context.Context, id int64, at time.Time) (models.ReadReceipt, error) {
	at = at.UTC()
	res, err := r.db.ExecContext(ctx, rebind(r.dialect, markReadSQL), at, id)
	if err != nil {
		return models.ReadReceipt{}, fmt.Errorf("mark message %d read: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return models.ReadReceipt{}, fmt.Errorf("rows affected for message %d: %w", id, err)
	}
	if n == 0 {
		return models.ReadReceipt{}, ErrMessageNotFound
	}
	return models.ReadReceipt{ID: id, ReadAt: at}, nil
}

// scanCounterpart reads rows shaped (id, body, sent_at, read_at, <user summary>).
func (r *MessageSQL) scanCounterpart(rows *sql.Rows, fn func(id int64, body string, sentAt time.Time, readAt *time.Time, u models.UserSummary)) error {
	defer rows.Close()
	for rows.Next() {
		var (
			id     int64
			body   string
			sentAt time.Time
			readAt sql.NullTime
			u      models.UserSummary
		)
		if err := rows.Scan(&id, &body, &sentAt, &readAt, &u.Username, &u.FirstName, &u.LastName, &u.Phone); err != nil {
			return fmt.Errorf("scan message: %w", err)
		}
		fn(id, body, sentAt.UTC(), nullTimePtr(readAt), u)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate messages: %w", err)
	}
	return nil
}

func (r *MessageSQL) ListFrom(ctx context.Context, username string) ([]models.SentMessage, error) {
	rows, err := r.db.QueryContext(ctx, rebind(r.dialect, selectMessagesFromSQL), username)
	if err != nil {
		return nil, fmt.Errorf("select messages from %q: %w", username, err)
	}
	out := make([]models.SentMessage, 0, 16)
	err = r.scanCounterpart(rows, func(id int64, body string, sentAt time.Time, readAt *time.Time, u models.UserSummary) {
		out = append(out, models.SentMessage{ID: id, ToUser: u, Body: body, SentAt: sentAt, ReadAt: readAt})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *MessageSQL) ListTo(ctx context.Context, username string) ([]models.ReceivedMessage, error) {
	rows, err := r.db.QueryContext(ctx, rebind(r.dialect, selectMessagesToSQL), username)
	if err != nil {
		return nil, fmt.Errorf("select messages to %q: %w", username, err)
	}
	return r.collectReceived(rows)
}

// ListToAfter returns up to limit messages to username with id > afterID, oldest first.
func (r *MessageSQL) ListToAfter(ctx context.Context, username string, afterID int64, limit int) ([]models.ReceivedMessage, error) {
	rows, err := r.db.QueryContext(ctx, rebind(r.dialect, selectMessagesToAfterSQL), username, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("select messages to %q after %d: %w", username, afterID, err)
	}
	return r.collectReceived(rows)
}

func (r *MessageSQL) collectReceived(rows *sql.Rows) ([]models.ReceivedMessage, error) {
	out := make([]models.ReceivedMessage, 0, 16)
	err := r.scanCounterpart(rows, func(id int64, body string, sentAt time.Time, readAt *time.Time, u models.UserSummary) {
		out = append(out, models.ReceivedMessage{ID: id, FromUser: u, Body: body, SentAt: sentAt, ReadAt: readAt})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
