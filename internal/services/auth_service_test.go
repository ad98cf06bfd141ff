package services

import (
	"errors"
	"testing"
	"time"
)

type authStubStore struct {
	researchers map[string]*Researcher
}

func newAuthStubStore() *authStubStore {
	return &authStubStore{researchers: map[string]*Researcher{}}
}

func (s *authStubStore) FindResearcherByEmail(email string) (*Researcher, error) {
	if r, ok := s.researchers[email]; ok {
		copy := *r
		return &copy, nil
	}
	return nil, nil
}

func (s *authStubStore) AddResearcher(r *Researcher) error {
	if _, ok := s.researchers[r.Email]; ok {
		return errors.New("duplicate researcher")
	}
	copy := *r
	s.researchers[r.Email] = &copy
	return nil
}

func TestAuthRegisterAndLogin(t *testing.T) {
	store := newAuthStubStore()
	svc := NewAuthService(store, func(uid, email string, ttl time.Duration) (string, error) {
		return "token:" + uid, nil
	})
	svc.now = func() time.Time { return time.Unix(0, 0) }
	svc.idGen = func() string { return "r1234567" }

	res, err := svc.Register("lab@example.com", "Secret123")
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if res.UserID != "r1234567" || res.Token != "token:r1234567" {
		t.Fatalf("unexpected result: %+v", res)
	}

	if _, err = svc.Register("lab@example.com", "Secret123"); err == nil {
		t.Fatalf("expected conflict error on duplicate registration")
	}

	loginRes, err := svc.Login("lab@example.com", "Secret123")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if loginRes.Token == "" {
		t.Fatalf("expected token in login response")
	}

	if _, err := svc.Login("lab@example.com", "wrong"); err == nil {
		t.Fatalf("expected error for wrong password")
	}
	if _, err := svc.Login("missing@example.com", "Secret123"); err == nil {
		t.Fatalf("expected error for missing researcher")
	}
}

func TestAuthValidation(t *testing.T) {
	svc := NewAuthService(newAuthStubStore(), func(uid, email string, ttl time.Duration) (string, error) {
		return "tok", nil
	})

	if _, err := svc.Register("", ""); err == nil {
		t.Fatalf("expected validation error")
	}
	if _, err := svc.Login("", ""); err == nil {
		t.Fatalf("expected validation error on login")
	}
}
