package httpapi

import (
	"context"
	"testing"
	"time"

	"belanjakita/backend/internal/domain"
	"belanjakita/backend/internal/store/memory"
)

func newTestAuth(t *testing.T) *AuthManager {
	t.Helper()
	repo := memory.New()
	hashed, err := hashPassword("correct horse battery")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := repo.CreateAccount(context.Background(), domain.UserAccount{
		Username:  "alice",
		Password:  hashed,
		Role:      "shopper",
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("create account: %v", err)
	}
	return NewAuthManager("unit-test-secret", time.Hour, repo)
}

func TestLoginIssuesParsableToken(t *testing.T) {
	auth := newTestAuth(t)

	resp, err := auth.Login(context.Background(), domain.LoginRequest{Username: "alice", Password: "correct horse battery"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	actor, err := auth.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if actor.Username != "alice" || actor.Role != "shopper" {
		t.Fatalf("unexpected actor: %+v", actor)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	auth := newTestAuth(t)

	if _, err := auth.Login(context.Background(), domain.LoginRequest{Username: "alice", Password: "nope"}); err == nil {
		t.Fatal("expected login to fail")
	}
}

func TestParseTokenRejectsForeignSecret(t *testing.T) {
	auth := newTestAuth(t)
	other := NewAuthManager("a-different-secret", time.Hour, nil)

	resp, err := auth.Login(context.Background(), domain.LoginRequest{Username: "alice", Password: "correct horse battery"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := other.ParseToken(resp.AccessToken); err == nil {
		t.Fatal("expected token signed with another secret to be rejected")
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	auth := newTestAuth(t)

	token, err := auth.sign("alice", "shopper", "u-alice", time.Now().UTC().Add(-time.Minute))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := auth.ParseToken(token); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestInactiveAccountCannotLogin(t *testing.T) {
	repo := memory.New()
	hashed, _ := hashPassword("hunter2hunter2")
	if err := repo.CreateAccount(context.Background(), domain.UserAccount{
		Username: "bob",
		Password: hashed,
		Role:     "shopper",
		Active:   false,
	}); err != nil {
		t.Fatalf("create account: %v", err)
	}
	auth := NewAuthManager("unit-test-secret", time.Hour, repo)

	if _, err := auth.Login(context.Background(), domain.LoginRequest{Username: "bob", Password: "hunter2hunter2"}); err == nil {
		t.Fatal("expected inactive account to be rejected")
	}
}
