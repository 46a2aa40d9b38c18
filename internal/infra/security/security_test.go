//go:build !integration

package security

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestEncryptionService(t *testing.T) {
	t.Run("round trips with a raw key", func(t *testing.T) {
		svc, err := NewEncryptionService("0123456789abcdef")
		if err != nil {
			t.Fatalf("new: %v", err)
		}
		sealed, err := svc.Encrypt(`{"id":"txn-1"}`)
		if err != nil {
			t.Fatalf("encrypt: %v", err)
		}
		if !strings.HasPrefix(sealed, "v1:") || strings.Contains(sealed, "txn-1") {
			t.Errorf("unexpected sealed form %q", sealed)
		}
		got, err := svc.Decrypt(sealed)
		if err != nil || got != `{"id":"txn-1"}` {
			t.Errorf("decrypt: %q, %v", got, err)
		}
	})

	t.Run("accepts a hex key", func(t *testing.T) {
		if _, err := NewEncryptionService(strings.Repeat("ab", 32)); err != nil {
			t.Errorf("expected hex key accepted, got %v", err)
		}
	})

	t.Run("rejects bad keys and tampered text", func(t *testing.T) {
		if _, err := NewEncryptionService("short"); err == nil {
			t.Error("expected key length error")
		}
		svc, _ := NewEncryptionService("0123456789abcdef")
		sealed, _ := svc.Encrypt("payload")
		tampered := sealed[:len(sealed)-2] + "AA"
		if _, err := svc.Decrypt(tampered); err == nil {
			t.Error("expected tampered ciphertext rejected")
		}
		if _, err := svc.Decrypt("plain"); err == nil {
			t.Error("expected unknown format rejected")
		}
	})
}

func TestTokenService(t *testing.T) {
	now := time.Date(2025, 3, 15, 10, 30, 0, 0, time.UTC)
	newSvc := func(t *testing.T) *TokenService {
		t.Helper()
		s, err := NewTokenService("setup-secret", "clone-secret", time.Hour, "funnel-billing")
		if err != nil {
			t.Fatalf("new: %v", err)
		}
		s.now = func() time.Time { return now }
		return s
	}
	signClone := func(t *testing.T, secret string, claims CloneClaims) string {
		t.Helper()
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return tok
	}

	t.Run("password setup token round trips", func(t *testing.T) {
		s := newSvc(t)

		tok, exp, err := s.IssuePasswordSetup("acct-1", "dana@example.com")
		if err != nil {
			t.Fatalf("issue: %v", err)
		}
		if !exp.Equal(now.Add(time.Hour)) {
			t.Errorf("expected expiry %s, got %s", now.Add(time.Hour), exp)
		}
		claims, err := s.ParsePasswordSetup(tok)
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if claims.Subject != "acct-1" || claims.Email != "dana@example.com" {
			t.Errorf("unexpected claims %+v", claims)
		}
	})

	t.Run("expired setup token is rejected", func(t *testing.T) {
		s := newSvc(t)
		tok, _, _ := s.IssuePasswordSetup("acct-1", "dana@example.com")
		s.now = func() time.Time { return now.Add(2 * time.Hour) }

		if _, err := s.ParsePasswordSetup(tok); err == nil {
			t.Error("expected expiry error")
		}
	})

	t.Run("clone token yields the workspace id", func(t *testing.T) {
		s := newSvc(t)
		tok := signClone(t, "clone-secret", CloneClaims{WorkspaceID: "ws-template"})

		id, err := s.CloneWorkspaceID(tok)

		if err != nil || id != "ws-template" {
			t.Errorf("expected ws-template, got %q, %v", id, err)
		}
	})

	t.Run("clone token signed with another key is rejected", func(t *testing.T) {
		s := newSvc(t)
		tok := signClone(t, "wrong", CloneClaims{WorkspaceID: "ws-template"})

		if _, err := s.CloneWorkspaceID(tok); err == nil {
			t.Error("expected signature error")
		}
	})

	t.Run("setup token cannot be used as a clone token", func(t *testing.T) {
		s, _ := NewTokenService("shared", "shared", time.Hour, "")
		tok, _, _ := s.IssuePasswordSetup("acct-1", "dana@example.com")

		if _, err := s.CloneWorkspaceID(tok); err == nil {
			t.Error("expected a missing workspace id or purpose error")
		}
	})
}
