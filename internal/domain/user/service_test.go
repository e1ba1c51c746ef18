package user

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/blisstech/go-rxfill/internal/domain/audit"
)

type fakeRepo struct {
	users map[string]*User
}

func (r *fakeRepo) GetByUsername(ctx context.Context, username string) (*User, error) {
	u, ok := r.users[username]
	if !ok {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

type captureAuditor struct {
	entries []audit.Entry
}

func (a *captureAuditor) Record(e audit.Entry) {
	a.entries = append(a.entries, e)
}

func newTestService(auditor audit.Recorder) *Service {
	repo := &fakeRepo{users: map[string]*User{
		"jdoe": {ID: 1, Username: "jdoe", PasswordHash: HashPassword("pharmacy123"), Role: RolePharmacist},
	}}
	return NewService(repo, []byte("test-secret"), time.Hour, auditor, nil)
}

func TestLogin(t *testing.T) {
	auditor := &captureAuditor{}
	svc := newTestService(auditor)

	session, err := svc.Login(context.Background(), "jdoe", "pharmacy123")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if session.Username != "jdoe" || session.Role != RolePharmacist {
		t.Errorf("unexpected session: %+v", session)
	}

	claims, err := svc.Verify(session.Token)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if claims.Username != "jdoe" {
		t.Errorf("expected claims for jdoe, got %q", claims.Username)
	}

	if len(auditor.entries) != 1 || auditor.entries[0].Action != audit.ActionLogin {
		t.Errorf("expected one login audit entry, got %+v", auditor.entries)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	auditor := &captureAuditor{}
	svc := newTestService(auditor)

	_, err := svc.Login(context.Background(), "jdoe", "wrong")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if len(auditor.entries) != 0 {
		t.Error("failed login produced an audit entry")
	}
}

func TestLoginUnknownUser(t *testing.T) {
	svc := newTestService(nil)

	_, err := svc.Login(context.Background(), "nobody", "whatever")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}
