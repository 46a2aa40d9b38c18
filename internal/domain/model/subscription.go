package model

import (
	"strings"
	"time"
)

type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "ACTIVE"
	SubscriptionStatusCancelled SubscriptionStatus = "CANCELLED"
	SubscriptionStatusExpired   SubscriptionStatus = "EXPIRED"
)

type SubscriptionKind string

const (
	SubscriptionKindPlan  SubscriptionKind = "PLAN"
	SubscriptionKindAddon SubscriptionKind = "ADDON"
)

// IntervalUnit is the calendar unit a subscription renews on.
type IntervalUnit string

const (
	IntervalYear  IntervalUnit = "YEAR"
	IntervalMonth IntervalUnit = "MONTH"
	IntervalWeek  IntervalUnit = "WEEK"
	IntervalDay   IntervalUnit = "DAY"
)

// OneTimePrefix marks synthetic external ids minted for non-recurring purchases.
const OneTimePrefix = "onetime_"

// Subscription is an entitlement window. One row per gateway subscription id, or one per
// one-time purchase under a synthetic id.
type Subscription struct {
	ID            string
	ExternalID    string
	AccountID     string
	Kind          SubscriptionKind
	ItemType      string
	Status        SubscriptionStatus
	StartDate     time.Time
	EndDate       *time.Time // nil for lifetime
	IntervalUnit  IntervalUnit
	IntervalCount int
	SubscriberID  *string // gateway subscriber id, backfilled after creation
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsRecurring is false for synthetic one-time subscriptions.
func (s *Subscription) IsRecurring() bool {
	return s != nil && s.ExternalID != "" && !strings.HasPrefix(s.ExternalID, OneTimePrefix)
}

// ExtendTo moves the end date forward. An earlier end is ignored so a window is never shortened.
func (s *Subscription) ExtendTo(end time.Time) bool {
	if s.EndDate != nil && !end.After(*s.EndDate) {
		return false
	}
	s.EndDate = &end
	s.Status = SubscriptionStatusActive
	s.UpdatedAt = time.Now()
	return true
}
