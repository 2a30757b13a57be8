package service

import (
	"context"
	"errors"

	"messagely/internal/apperr"
	"messagely/internal/models"
	"messagely/internal/repository"
)

type UserService struct {
	users    repository.UserStore
	messages repository.MessageStore
	guard    *AccessGuard
}

func NewUserService(users repository.UserStore, messages repository.MessageStore, guard *AccessGuard) *UserService {
	return &UserService{users: users, messages: messages, guard: guard}
}

// ListUsers returns every user's summary. An empty store is reported as NoUsers.
func (s *UserService) ListUsers(ctx context.Context) ([]models.UserSummary, error) {
	users, err := s.users.ListAll(ctx)
	switch {
	case err == nil:
		return users, nil
	case errors.Is(err, repository.ErrNoUsers):
		return nil, apperr.Wrap(apperr.KindNoUsers, "No users found.", err)
	default:
		return nil, apperr.StoreUnavailable(err)
	}
}

func (s *UserService) GetUser(ctx context.Context, identity, username string) (models.User, error) {
	if err := s.guard.RequireSelf(identity, username); err != nil {
		return models.User{}, err
	}
	u, err := s.users.Get(ctx, username)
	switch {
	case err == nil:
		return u, nil
	case errors.Is(err, repository.ErrUserNotFound):
		return models.User{}, apperr.Wrap(apperr.KindNotFound, "No such user: "+username, err)
	default:
		return models.User{}, apperr.StoreUnavailable(err)
	}
}

func (s *UserService) MessagesFrom(ctx context.Context, identity, username string) ([]models.SentMessage, error) {
	if err := s.guard.RequireSelf(identity, username); err != nil {
		return nil, err
	}
	msgs, err := s.messages.ListFrom(ctx, username)
	if err != nil {
		return nil, apperr.StoreUnavailable(err)
	}
	if len(msgs) == 0 {
		return nil, apperr.NotFound("No messages from user: " + username)
	}
	return msgs, nil
}

func (s *UserService) MessagesTo(ctx context.Context, identity, username string) ([]models.ReceivedMessage, error) {
	if err := s.guard.RequireSelf(identity, username); err != nil {
		return nil, err
	}
	msgs, err := s.messages.ListTo(ctx, username)
	if err != nil {
		return nil, apperr.StoreUnavailable(err)
	}
	if len(msgs) == 0 {
		return nil, apperr.NotFound("No messages to user: " + username)
	}
	return msgs, nil
}
