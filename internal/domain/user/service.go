package user

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/blisstech/go-rxfill/internal/domain/audit"
)

// Repository looks up login accounts.
type Repository interface {
	GetByUsername(ctx context.Context, username string) (*User, error)
}

// Session is a successful login result.
type Session struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Service authenticates users and issues session tokens.
type Service struct {
	repo    Repository
	secret  []byte
	ttl     time.Duration
	auditor audit.Recorder
	logger  *zap.Logger
}

// NewService creates an auth service.
func NewService(repo Repository, secret []byte, ttl time.Duration, auditor audit.Recorder, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if auditor == nil {
		auditor = audit.NopRecorder{}
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Service{repo: repo, secret: secret, ttl: ttl, auditor: auditor, logger: logger}
}

// Login verifies credentials and returns a signed session.
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	u, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !u.CheckPassword(password) {
		s.logger.Warn("failed login attempt", zap.String("username", username))
		return nil, ErrInvalidCredentials
	}

	token, err := IssueToken(s.secret, u.Username, u.Role, s.ttl)
	if err != nil {
		return nil, err
	}

	s.auditor.Record(audit.Entry{
		Actor:   u.Username,
		Action:  audit.ActionLogin,
		Details: "User logged in",
	})

	return &Session{Token: token, Username: u.Username, Role: u.Role}, nil
}

// Verify parses a session token.
func (s *Service) Verify(tokenString string) (*Claims, error) {
	return ParseToken(s.secret, tokenString)
}
