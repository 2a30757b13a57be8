package handlers

import (
	"context"
	"net/http"
	"sync"

	"messagely/internal/apperr"
	"messagely/internal/models"
	"messagely/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpToken string
	signUpErr   error
	signInToken string
	signInErr   error

	lastSignUp     service.RegisterInput
	lastSignInUser string
	lastSignInPass string
	signUpCalls    int
	signInCalls    int
}

func (m *mockAuth) SignUp(ctx context.Context, in service.RegisterInput) (string, error) {
	m.signUpCalls++
	m.lastSignUp = in
	return m.signUpToken, m.signUpErr
}

func (m *mockAuth) SignIn(ctx context.Context, username, password string) (string, error) {
	m.signInCalls++
	m.lastSignInUser = username
	m.lastSignInPass = password
	return m.signInToken, m.signInErr
}

func (m *mockAuth) ParseToken(token string) (string, error) {
	return "", apperr.Unauthenticated("Invalid token.")
}

// mockGuard maps tokens to usernames.
type mockGuard struct {
	tokens     map[string]string
	lastTokens []string
}

func (m *mockGuard) Identify(token string) (string, error) {
	m.lastTokens = append(m.lastTokens, token)
	if u, ok := m.tokens[token]; ok {
		return u, nil
	}
	return "", apperr.Unauthenticated("Invalid token.")
}

func (m *mockGuard) RequireSelf(identity, username string) error {
	if identity != username {
		return apperr.Forbidden()
	}
	return nil
}

type mockUsers struct {
	list    []models.UserSummary
	listErr error
	user    models.User
	userErr error
	from    []models.SentMessage
	to      []models.ReceivedMessage
	msgErr  error
}

func (m *mockUsers) ListUsers(ctx context.Context) ([]models.UserSummary, error) {
	return m.list, m.listErr
}

func (m *mockUsers) GetUser(ctx context.Context, identity, username string) (models.User, error) {
	return m.user, m.userErr
}

func (m *mockUsers) MessagesFrom(ctx context.Context, identity, username string) ([]models.SentMessage, error) {
	return m.from, m.msgErr
}

func (m *mockUsers) MessagesTo(ctx context.Context, identity, username string) ([]models.ReceivedMessage, error) {
	return m.to, m.msgErr
}

type mockMessages struct {
	detail    models.MessageDetail
	getErr    error
	sent      models.Message
	sendErr   error
	receipt   models.ReadReceipt
	readErr   error
	inbox     []models.ReceivedMessage
	inboxErr  error
	lastID    int64
	lastSend  service.SendInput
	lastIdent string

	mu        sync.Mutex
	lastAfter int64
}

func (m *mockMessages) GetMessage(ctx context.Context, identity string, id int64) (models.MessageDetail, error) {
	m.lastIdent, m.lastID = identity, id
	return m.detail, m.getErr
}

func (m *mockMessages) SendMessage(ctx context.Context, identity string, in service.SendInput) (models.Message, error) {
	m.lastIdent, m.lastSend = identity, in
	return m.sent, m.sendErr
}

func (m *mockMessages) MarkRead(ctx context.Context, identity string, id int64) (models.ReadReceipt, error) {
	m.lastIdent, m.lastID = identity, id
	return m.receipt, m.readErr
}

// Inbox hands out its messages once, then nothing.
func (m *mockMessages) Inbox(ctx context.Context, identity string, afterID int64, limit int) ([]models.ReceivedMessage, error) {
	m.mu.Lock()
	m.lastAfter = afterID
	m.mu.Unlock()
	if m.inboxErr != nil {
		return nil, m.inboxErr
	}
	var out []models.ReceivedMessage
	for _, msg := range m.inbox {
		if msg.ID > afterID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *mockMessages) after() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastAfter
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

// loggedInGuard knows two users: "tok-test1" -> test1 and "tok-bob" -> bob.
func loggedInGuard() *mockGuard {
	return &mockGuard{tokens: map[string]string{"tok-test1": "test1", "tok-bob": "bob"}}
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
