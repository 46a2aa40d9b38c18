package usecase

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"funnel-billing/internal/domain/model"

	"golang.org/x/crypto/bcrypt"
)

// accountProvisioner builds verified accounts for buyers who paid before registering.
type accountProvisioner struct {
	cost int
	now  func() time.Time
}

// New returns an unsaved, verified account with a generated username and a random password.
// The plaintext password is returned once so it can be mailed; only the hash is stored.
func (p *accountProvisioner) New(email, name, phone string) (*model.Account, string, error) {
	username, err := generateUsername(email)
	if err != nil {
		return nil, "", err
	}
	acct, err := model.NewAccount(email, username, strings.TrimSpace(name))
	if err != nil {
		return nil, "", fmt.Errorf("new account for %q: %w", email, err)
	}
	password, err := randomToken(12)
	if err != nil {
		return nil, "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}
	now := p.now()
	acct.Phone = strings.TrimSpace(phone)
	acct.PasswordHash = string(hash)
	acct.Verified = true
	acct.TrialStart = now
	acct.CreatedAt = now
	acct.UpdatedAt = now
	return acct, password, nil
}

// generateUsername is the sanitized local part of the email plus a random suffix.
func generateUsername(email string) (string, error) {
	local := model.NormalizeEmail(email)
	if i := strings.IndexByte(local, '@'); i >= 0 {
		local = local[:i]
	}
	var b strings.Builder
	for _, r := range local {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
		if b.Len() == 20 {
			break
		}
	}
	if b.Len() == 0 {
		b.WriteString("user")
	}
	suffix := make([]byte, 3)
	if _, err := rand.Read(suffix); err != nil {
		return "", fmt.Errorf("username suffix: %w", err)
	}
	return b.String() + "-" + hex.EncodeToString(suffix), nil
}

func randomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("random token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
