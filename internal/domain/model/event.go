package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	EventChargeSucceeded = "charge.succeeded"
	ChargeStatusCaptured = "captured"

	// RegistrationSourceAd marks acquisition-ad funnels that pay before registering.
	RegistrationSourceAd = "AD"
	SignupPlanPartner    = "partner"
	SignupPlanBusiness   = "business"
)

// ChargeEvent is the gateway's "charge succeeded" notification.
type ChargeEvent struct {
	ID             string          `json:"id" validate:"required"`
	Status         string          `json:"status" validate:"required,eq=captured"`
	EventType      string          `json:"event_type" validate:"required,eq=charge.succeeded"`
	Amount         decimal.Decimal `json:"amount" validate:"required,gt=0"`
	AmountCurrency string          `json:"amount_currency" validate:"required,len=3"`
	SubscriptionID string          `json:"subscription_id,omitempty"`
	Customer       CustomerDetails `json:"customer_details" validate:"required"`
	Custom         CustomData      `json:"custom_data" validate:"required"`
}

type CustomerDetails struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone_number,omitempty"`
}

// CustomData is the checkout metadata our funnels attach to a charge.
type CustomData struct {
	Details            PurchaseDetails `json:"details" validate:"required"`
	AffiliateLink      string          `json:"affiliateLink,omitempty"`
	IsPartnerPlan      FlexBool        `json:"isPartnerPlan,omitempty"`
	IsBusinessPlan     FlexBool        `json:"isBusinessPlan,omitempty"`
	Plan               string          `json:"plan,omitempty"`
	RegistrationSource string          `json:"registrationSource,omitempty"`
	CloneWorkspaceID   string          `json:"cloneWorkspaceId,omitempty"`
	CloneToken         string          `json:"cloneToken,omitempty"`
}

type PurchaseDetails struct {
	Email             string          `json:"email" validate:"required,email"`
	PaymentType       PaymentCategory `json:"paymentType" validate:"required,oneof=PLAN_PURCHASE ADDON_PURCHASE"`
	PlanType          string          `json:"planType,omitempty" validate:"required_if=PaymentType PLAN_PURCHASE,omitempty,plan_type"`
	AddonType         string          `json:"addonType,omitempty" validate:"required_if=PaymentType ADDON_PURCHASE,omitempty,addon_type"`
	Frequency         string          `json:"frequency" validate:"required,frequency"`
	FrequencyInterval FlexInt         `json:"frequencyInterval" validate:"required,min=1"`
	UserID            string          `json:"userId,omitempty"`
	WorkspaceID       string          `json:"workspaceId,omitempty"`
	Quantity          FlexInt         `json:"quantity,omitempty" validate:"omitempty,min=1"`
}

// IsRecurring reports whether the charge belongs to a gateway subscription.
func (e *ChargeEvent) IsRecurring() bool { return strings.TrimSpace(e.SubscriptionID) != "" }

// BuyerEmail is the email from our own checkout metadata.
func (e *ChargeEvent) BuyerEmail() string { return NormalizeEmail(e.Custom.Details.Email) }

// FlexBool accepts JSON booleans and the strings "true"/"false"/"1"/"0".
type FlexBool bool

func (b *FlexBool) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*b = false
		return nil
	}
	s := strings.Trim(string(data), `"`)
	if s == "" {
		*b = false
		return nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return fmt.Errorf("invalid boolean %s", data)
	}
	*b = FlexBool(v)
	return nil
}

// FlexInt accepts JSON numbers and numeric strings.
type FlexInt int

func (i *FlexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*i = 0
		return nil
	}
	s := strings.Trim(string(data), `"`)
	if s == "" {
		*i = 0
		return nil
	}
	n := json.Number(s)
	v, err := n.Int64()
	if err != nil {
		return fmt.Errorf("invalid integer %s", data)
	}
	*i = FlexInt(v)
	return nil
}
