package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"funnel-billing/internal/domain/ports/adapter"

	"github.com/golang-jwt/jwt/v5"
)

const (
	purposePasswordSetup  = "password_setup"
	purposeCloneWorkspace = "clone_workspace"
)

var _ adapter.TokenService = (*TokenService)(nil)

// TokenService signs password-setup links and reads funnel clone tokens, both HS256 JWTs.
type TokenService struct {
	setupSecret []byte
	cloneSecret []byte
	setupTTL    time.Duration
	issuer      string
	now         func() time.Time
}

func NewTokenService(setupSecret, cloneSecret string, setupTTL time.Duration, issuer string) (*TokenService, error) {
	if setupSecret == "" {
		return nil, errors.New("password setup secret is required")
	}
	if setupTTL <= 0 {
		setupTTL = 72 * time.Hour
	}
	return &TokenService{
		setupSecret: []byte(setupSecret),
		cloneSecret: []byte(cloneSecret),
		setupTTL:    setupTTL,
		issuer:      issuer,
		now:         time.Now,
	}, nil
}

type SetupClaims struct {
	Email   string `json:"email"`
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

type CloneClaims struct {
	WorkspaceID string `json:"workspace_id"`
	Purpose     string `json:"purpose,omitempty"`
	jwt.RegisteredClaims
}

func (s *TokenService) IssuePasswordSetup(accountID, email string) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.setupTTL)
	claims := SetupClaims{
		Email:   email,
		Purpose: purposePasswordSetup,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.setupSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// ParsePasswordSetup validates a setup token and returns its claims.
func (s *TokenService) ParsePasswordSetup(tok string) (*SetupClaims, error) {
	claims := &SetupClaims{}
	if err := s.parse(tok, claims, s.setupSecret); err != nil {
		return nil, err
	}
	if claims.Purpose != purposePasswordSetup {
		return nil, errors.New("invalid token purpose")
	}
	return claims, nil
}

func (s *TokenService) CloneWorkspaceID(tok string) (string, error) {
	if len(s.cloneSecret) == 0 {
		return "", errors.New("clone token secret not configured")
	}
	claims := &CloneClaims{}
	if err := s.parse(tok, claims, s.cloneSecret); err != nil {
		return "", err
	}
	if claims.Purpose != "" && claims.Purpose != purposeCloneWorkspace {
		return "", errors.New("invalid token purpose")
	}
	id := strings.TrimSpace(claims.WorkspaceID)
	if id == "" {
		return "", errors.New("clone token has no workspace id")
	}
	return id, nil
}

func (s *TokenService) parse(tok string, claims jwt.Claims, secret []byte) error {
	tkn, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !tkn.Valid {
		return fmt.Errorf("invalid token: %w", err)
	}
	return nil
}
