package model

import (
	"strings"
	"time"

	"funnel-billing/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	PartnerLevelOne   = 1
	PartnerLevelTwo   = 2
	PartnerLevelThree = 3
)

// DefaultCommissionPercentage applies to every new account at partner level 1.
var DefaultCommissionPercentage = decimal.NewFromInt(5)

// Account is a platform user. It carries both buyer state (plan, trial window) and
// referrer state (partner level, balances).
type Account struct {
	ID           string
	Email        string
	Username     string
	Name         string
	Phone        string
	PasswordHash string
	Verified     bool

	Plan       PlanType
	TrialStart time.Time
	TrialEnd   *time.Time // nil means lifetime access

	ReferralLinkID *string // set once, immutable afterwards

	PartnerLevel         int
	TotalSales           int
	Balance              decimal.Decimal // available
	PendingBalance       decimal.Decimal // held
	CommissionPercentage decimal.Decimal

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewAccount builds an unsaved FREE account with default affiliate economics.
func NewAccount(email, username, name string) (*Account, error) {
	email = NormalizeEmail(email)
	if email == "" || username == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Account{
		ID:                   uuid.NewString(),
		Email:                email,
		Username:             username,
		Name:                 name,
		Plan:                 PlanFree,
		TrialStart:           now,
		PartnerLevel:         PartnerLevelOne,
		Balance:              decimal.Zero,
		PendingBalance:       decimal.Zero,
		CommissionPercentage: DefaultCommissionPercentage,
		CreatedAt:            now,
		UpdatedAt:            now,
	}, nil
}

func (a *Account) IsZero() bool { return a == nil || a.ID == "" }

// ApplyPlan switches the account to plan with a fresh trial window.
func (a *Account) ApplyPlan(plan PlanType, start time.Time, end *time.Time) {
	a.Plan = plan
	a.TrialStart = start
	a.TrialEnd = end
	a.UpdatedAt = time.Now()
}

// LinkReferral records the referral link the first time it is called and reports whether it did.
func (a *Account) LinkReferral(linkID string) bool {
	if a.ReferralLinkID != nil || linkID == "" {
		return false
	}
	a.ReferralLinkID = &linkID
	a.UpdatedAt = time.Now()
	return true
}

// NormalizeEmail lowercases and trims an address for lookups.
func NormalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
