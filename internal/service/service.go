package service

import (
	"context"
	"time"

	"messagely/internal/logger"
	"messagely/internal/models"
	"messagely/internal/repository"
)

// Authorization covers credential lifecycle and token minting.
type Authorization interface {
	SignUp(ctx context.Context, in RegisterInput) (string, error)
	SignIn(ctx context.Context, username, password string) (string, error)
	ParseToken(accessToken string) (string, error)
}

// Guard decodes bearer tokens and applies identity checks that need no lookup.
// Message-scoped checks run inside Messages, which loads before it authorizes.
type Guard interface {
	Identify(token string) (string, error)
	RequireSelf(identity, username string) error
}

type Users interface {
	ListUsers(ctx context.Context) ([]models.UserSummary, error)
	GetUser(ctx context.Context, identity, username string) (models.User, error)
	MessagesFrom(ctx context.Context, identity, username string) ([]models.SentMessage, error)
	MessagesTo(ctx context.Context, identity, username string) ([]models.ReceivedMessage, error)
}

type Messages interface {
	GetMessage(ctx context.Context, identity string, id int64) (models.MessageDetail, error)
	SendMessage(ctx context.Context, identity string, in SendInput) (models.Message, error)
	MarkRead(ctx context.Context, identity string, id int64) (models.ReadReceipt, error)
	Inbox(ctx context.Context, identity string, afterID int64, limit int) ([]models.ReceivedMessage, error)
}

// Service aggregates all sub-services for the HTTP layer.
type Service struct {
	Authorization
	Guard
	Users
	Messages

	auth *AuthService
}

// Deps are the ambient collaborators shared by the services.
type Deps struct {
	Log     *logger.Logger
	Metrics AuthMetrics
	Now     func() time.Time
}

func NewService(repos *repository.Repository, cfg AuthConfig, deps Deps) *Service {
	opts := []AuthOption{WithLogger(deps.Log), WithMetrics(deps.Metrics)}
	if deps.Now != nil {
		opts = append(opts, WithClock(deps.Now))
	}
	auth := NewAuthService(repos.Users, cfg, opts...)
	guard := NewAccessGuard(auth, repos.Messages)

	return &Service{
		Authorization: auth,
		Guard:         guard,
		Users:         NewUserService(repos.Users, repos.Messages, guard),
		Messages:      NewMessageService(repos.Messages, repos.Users, guard, deps.Now),
		auth:          auth,
	}
}

// Wait blocks until background last-login updates have finished.
func (s *Service) Wait() {
	if s.auth != nil {
		s.auth.Wait()
	}
}
