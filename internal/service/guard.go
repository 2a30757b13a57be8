package service

import (
	"context"
	"errors"
	"fmt"

	"messagely/internal/apperr"
	"messagely/internal/models"
	"messagely/internal/repository"
)

// TokenParser resolves a bearer token to the username it was issued for.
type TokenParser interface {
	ParseToken(accessToken string) (string, error)
}

// AccessGuard answers who the caller is and whether they may touch a resource.
// Message rules always load the message first, so a missing id is NotFound for
// every caller.
type AccessGuard struct {
	tokens   TokenParser
	messages repository.MessageStore
}

func NewAccessGuard(tokens TokenParser, messages repository.MessageStore) *AccessGuard {
	return &AccessGuard{tokens: tokens, messages: messages}
}

func (g *AccessGuard) Identify(token string) (string, error) {
	if token == "" {
		return "", apperr.Unauthenticated("Unauthorized")
	}
	username, err := g.tokens.ParseToken(token)
	if err != nil {
		return "", err
	}
	return username, nil
}

func (g *AccessGuard) RequireSelf(identity, username string) error {
	if identity == "" {
		return apperr.Unauthenticated("Unauthorized")
	}
	if identity != username {
		return apperr.Forbidden()
	}
	return nil
}

// RequireParticipant returns the message when identity sent or received it.
func (g *AccessGuard) RequireParticipant(ctx context.Context, identity string, id int64) (models.MessageDetail, error) {
	msg, err := g.load(ctx, id)
	if err != nil {
		return models.MessageDetail{}, err
	}
	if !msg.HasParticipant(identity) {
		return models.MessageDetail{}, apperr.Forbidden()
	}
	return msg, nil
}

// RequireRecipient returns the message when identity is its recipient.
func (g *AccessGuard) RequireRecipient(ctx context.Context, identity string, id int64) (models.MessageDetail, error) {
	msg, err := g.load(ctx, id)
	if err != nil {
		return models.MessageDetail{}, err
	}
	if identity == "" || msg.ToUser.Username != identity {
		return models.MessageDetail{}, apperr.Forbidden()
	}
	return msg, nil
}

func (g *AccessGuard) load(ctx context.Context, id int64) (models.MessageDetail, error) {
	msg, err := g.messages.Get(ctx, id)
	switch {
	case err == nil:
		return msg, nil
	case errors.Is(err, repository.ErrMessageNotFound):
		return models.MessageDetail{}, apperr.Wrap(apperr.KindNotFound, fmt.Sprintf("No such message: %d", id), err)
	default:
		return models.MessageDetail{}, apperr.StoreUnavailable(err)
	}
}
