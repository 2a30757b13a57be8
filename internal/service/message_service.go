package service

import (
	"context"
	"errors"
	"html"
	"strings"
	"time"
	"unicode/utf8"

	"messagely/internal/apperr"
	"messagely/internal/models"
	"messagely/internal/repository"

	"github.com/microcosm-cc/bluemonday"
)

const (
	MaxBodyLength    = 4096
	defaultInboxPage = 50
	maxInboxPage     = 200
)

type MessageService struct {
	messages repository.MessageStore
	users    repository.UserStore
	guard    *AccessGuard
	policy   *bluemonday.Policy
	now      func() time.Time
}

func NewMessageService(messages repository.MessageStore, users repository.UserStore, guard *AccessGuard, now func() time.Time) *MessageService {
	if now == nil {
		now = time.Now
	}
	return &MessageService{
		messages: messages,
		users:    users,
		guard:    guard,
		policy:   bluemonday.StrictPolicy(),
		now:      now,
	}
}

func (s *MessageService) GetMessage(ctx context.Context, identity string, id int64) (models.MessageDetail, error) {
	return s.guard.RequireParticipant(ctx, identity, id)
}

// SendMessage stores a message from identity. Markup is stripped from the
// body; the remaining text is stored as the user wrote it.
func (s *MessageService) SendMessage(ctx context.Context, identity string, in SendInput) (models.Message, error) {
	if in.FromUsername != "" {
		if err := s.guard.RequireSelf(identity, in.FromUsername); err != nil {
			return models.Message{}, err
		}
	}
	to := strings.TrimSpace(in.ToUsername)
	if to == "" {
		return models.Message{}, apperr.Validation("Missing recipient.")
	}
	body := s.plainText(in.Body)
	if body == "" {
		return models.Message{}, apperr.Validation("Message body is empty.")
	}
	if utf8.RuneCountInString(body) > MaxBodyLength {
		return models.Message{}, apperr.Validation("Message body is too long.")
	}

	exists, err := s.users.Exists(ctx, to)
	if err != nil {
		return models.Message{}, apperr.StoreUnavailable(err)
	}
	if !exists {
		return models.Message{}, apperr.NotFound("No such user: " + to)
	}

	msg, err := s.messages.Create(ctx, identity, to, body, s.now().UTC())
	if err != nil {
		return models.Message{}, apperr.StoreUnavailable(err)
	}
	return msg, nil
}

// plainText drops tags and undoes the entity escaping the sanitizer applies
// to the text it keeps.
func (s *MessageService) plainText(body string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(body)))
}

func (s *MessageService) MarkRead(ctx context.Context, identity string, id int64) (models.ReadReceipt, error) {
	if _, err := s.guard.RequireRecipient(ctx, identity, id); err != nil {
		return models.ReadReceipt{}, err
	}
	receipt, err := s.messages.MarkRead(ctx, id, s.now().UTC())
	switch {
	case err == nil:
		return receipt, nil
	case errors.Is(err, repository.ErrMessageNotFound):
		return models.ReadReceipt{}, apperr.Wrap(apperr.KindNotFound, "No such message.", err)
	default:
		return models.ReadReceipt{}, apperr.StoreUnavailable(err)
	}
}

// Inbox returns messages to identity with an id greater than afterID, oldest first.
func (s *MessageService) Inbox(ctx context.Context, identity string, afterID int64, limit int) ([]models.ReceivedMessage, error) {
	if identity == "" {
		return nil, apperr.Unauthenticated("Unauthorized")
	}
	if limit <= 0 {
		limit = defaultInboxPage
	}
	limit = min(limit, maxInboxPage)

	msgs, err := s.messages.ListToAfter(ctx, identity, afterID, limit)
	if err != nil {
		return nil, apperr.StoreUnavailable(err)
	}
	return msgs, nil
}
