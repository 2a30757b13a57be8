package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"messagely/internal/apperr"
	"messagely/internal/logger"
	"messagely/internal/models"
	"messagely/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const defaultTouchTimeout = 5 * time.Second

// fallbackPlaceholderHash is bcrypt("placeholder-password", cost 10), used
// when a placeholder cannot be generated at the configured cost.
const fallbackPlaceholderHash = "$2a$10$Qm9ZcXo1c0R0a2lWbnB3UudqLtB5t2iEws0uy004LJQr/oDd1PZ2C"

// Auth event labels reported to AuthMetrics.
const (
	ActionRegister = "register"
	ActionLogin    = "login"

	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// AuthConfig is the process-wide auth configuration, injected at construction.
type AuthConfig struct {
	Secret     []byte
	BcryptCost int
	TokenTTL   time.Duration // 0 issues tokens without exp
}

type AuthMetrics interface {
	RecordAuthAttempt(action, outcome string)
	RecordLastLoginFailure()
}

// Claims is the token payload: {"username": ..., "iat": ...} plus exp when a TTL is set.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// AuthService handles registration, credential checks and token minting.
type AuthService struct {
	users   repository.UserStore
	cfg     AuthConfig
	now     func() time.Time
	log     *logger.Logger
	metrics AuthMetrics

	touchTimeout time.Duration
	touches      sync.WaitGroup

	placeholder []byte
}

type AuthOption func(*AuthService)

func WithClock(now func() time.Time) AuthOption {
	return func(s *AuthService) { s.now = now }
}

func WithLogger(log *logger.Logger) AuthOption {
	return func(s *AuthService) {
		if log != nil {
			s.log = log
		}
	}
}

func WithMetrics(m AuthMetrics) AuthOption {
	return func(s *AuthService) { s.metrics = m }
}

func WithTouchTimeout(d time.Duration) AuthOption {
	return func(s *AuthService) { s.touchTimeout = d }
}

func NewAuthService(users repository.UserStore, cfg AuthConfig, opts ...AuthOption) *AuthService {
	s := &AuthService{
		users:        users,
		cfg:          cfg,
		now:          time.Now,
		log:          logger.Nop(),
		touchTimeout: defaultTouchTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.placeholder = placeholderHash(cfg.BcryptCost)
	return s
}

// Register creates a user after a uniqueness pre-check. The store constraint
// still decides concurrent registrations of the same name.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (models.UserSummary, error) {
	if err := in.validate(); err != nil {
		return models.UserSummary{}, err
	}

	exists, err := s.users.Exists(ctx, in.Username)
	if err != nil {
		return models.UserSummary{}, apperr.StoreUnavailable(err)
	}
	if exists {
		return models.UserSummary{}, apperr.DuplicateUsername(in.Username)
	}

	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return models.UserSummary{}, err
	}

	created, err := s.users.Insert(ctx, models.NewUser{
		Username:     in.Username,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Phone:        in.Phone,
		JoinAt:       s.now().UTC(),
	})
	switch {
	case err == nil:
		return created, nil
	case errors.Is(err, repository.ErrUsernameTaken):
		return models.UserSummary{}, apperr.DuplicateUsername(in.Username)
	case errors.Is(err, repository.ErrNoRowReturned):
		return models.UserSummary{}, apperr.Wrap(apperr.KindRegistrationFailed, "Could not register user.", err)
	default:
		return models.UserSummary{}, apperr.StoreUnavailable(err)
	}
}

// Authenticate reports whether username exists and password matches its hash.
// An unknown user is false, not an error, and still pays for one bcrypt
// comparison so both failures cost the same.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (bool, error) {
	hash, err := s.users.FindPasswordHash(ctx, username)
	if errors.Is(err, repository.ErrUserNotFound) {
		_ = bcrypt.CompareHashAndPassword(s.placeholder, []byte(password))
		return false, nil
	}
	if err != nil {
		return false, apperr.StoreUnavailable(err)
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil, nil
}

// UpdateLoginTimestamp stamps last_login_at with the current time.
func (s *AuthService) UpdateLoginTimestamp(ctx context.Context, username string) error {
	err := s.users.TouchLastLogin(ctx, username, s.now().UTC())
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrUserNotFound):
		return apperr.Wrap(apperr.KindUpdateFailed, "Could not update last login for user "+username, err)
	default:
		return apperr.StoreUnavailable(err)
	}
}

// IssueToken signs {username, iat} (and exp when configured) with HS256.
// iat has one-second resolution, so tokens issued within the same second carry equal iat.
func (s *AuthService) IssueToken(username string) (string, error) {
	now := s.now()
	claims := &Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if s.cfg.TokenTTL > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(s.cfg.TokenTTL))
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.Secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken verifies the signature and returns the claimed username.
func (s *AuthService) ParseToken(accessToken string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(accessToken, claims, func(token *jwt.Token) (interface{}, error) {
		// Ensure HMAC signing is used
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.cfg.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return "", apperr.Wrap(apperr.KindUnauthenticated, "Invalid token.", err)
	}
	if !token.Valid || claims.Username == "" {
		return "", apperr.Unauthenticated("Invalid token.")
	}
	return claims.Username, nil
}

// SignUp registers, logs in and returns a token.
func (s *AuthService) SignUp(ctx context.Context, in RegisterInput) (string, error) {
	if _, err := s.Register(ctx, in); err != nil {
		s.recordAttempt(ActionRegister, OutcomeFailure)
		return "", err
	}
	token, err := s.IssueToken(in.Username)
	if err != nil {
		return "", err
	}
	s.recordAttempt(ActionRegister, OutcomeSuccess)
	s.touchLastLoginAsync(ctx, in.Username)
	return token, nil
}

// SignIn checks credentials and returns a token. Unknown user and wrong
// password produce the same error.
func (s *AuthService) SignIn(ctx context.Context, username, password string) (string, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return "", apperr.Validation("Missing username and/or password.")
	}

	ok, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return "", err
	}
	if !ok {
		s.recordAttempt(ActionLogin, OutcomeFailure)
		return "", apperr.AuthenticationFailed()
	}

	token, err := s.IssueToken(username)
	if err != nil {
		return "", err
	}
	s.recordAttempt(ActionLogin, OutcomeSuccess)
	s.touchLastLoginAsync(ctx, username)
	return token, nil
}

// Wait blocks until in-flight last-login updates finish.
func (s *AuthService) Wait() {
	s.touches.Wait()
}

// touchLastLoginAsync updates last_login_at without holding up the response.
// Failures are logged and counted, never returned.
func (s *AuthService) touchLastLoginAsync(ctx context.Context, username string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.touchTimeout)
	s.touches.Add(1)
	go func() {
		defer s.touches.Done()
		defer cancel()
		if err := s.UpdateLoginTimestamp(ctx, username); err != nil {
			s.log.Errorw("last_login_update_failed", "username", username, "err", err)
			if s.metrics != nil {
				s.metrics.RecordLastLoginFailure()
			}
		}
	}()
}

func (s *AuthService) recordAttempt(action, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordAuthAttempt(action, outcome)
	}
}

func (s *AuthService) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", apperr.Validation("Password must be at most 72 bytes.")
		}
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// placeholderHash is compared against when the user does not exist.
func placeholderHash(cost int) []byte {
	h, err := bcrypt.GenerateFromPassword([]byte("placeholder-password"), cost)
	if err != nil {
		return []byte(fallbackPlaceholderHash)
	}
	return h
}
