package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"funnel-billing/internal/domain"
	"funnel-billing/internal/domain/model"
	"funnel-billing/internal/domain/ports/adapter"
	"funnel-billing/internal/infra/logging"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// WebhookAck is the structured acknowledgment returned to the gateway.
type WebhookAck struct {
	Received bool            `json:"received"`
	Ignored  bool            `json:"ignored,omitempty"`
	Reason   string          `json:"reason,omitempty"`
	Message  string          `json:"message,omitempty"`
	Data     *PurchaseResult `json:"data,omitempty"`
}

func ignored(reason string) *WebhookAck {
	return &WebhookAck{Received: true, Ignored: true, Reason: reason}
}

// WebhookUseCase turns a raw gateway notification into billing state, at most once per
// transaction id. Rejected and duplicate events come back as ignored acks, never as errors.
// Errors are either *domain.PreconditionError (the event cannot be applied as sent),
// domain.ErrDeliveryInFlight, or infrastructure failures.
type WebhookUseCase interface {
	Handle(ctx context.Context, payload []byte) (*WebhookAck, error)
}

// WebhookConfig tunes delivery handling.
type WebhookConfig struct {
	LockTTL  time.Duration // zero disables the delivery lock
	Dev      bool          // log buyer emails unredacted
	Purchase PurchaseConfig
}

var _ WebhookUseCase = (*webhookUC)(nil)

type webhookUC struct {
	gate       *IdempotencyGate
	validate   *validator.Validate
	processors map[RouteKind]PurchaseProcessor
	locker     adapter.Locker
	lockTTL    time.Duration
	alerter    adapter.Alerter
	effects    SideEffects
	dev        bool
	log        *zerolog.Logger
}

func NewWebhookUseCase(
	store Stores,
	ports Collaborators,
	reconciler SubscriberReconciler,
	effects SideEffects,
	locker adapter.Locker,
	cfg WebhookConfig,
	logger *zerolog.Logger,
) *webhookUC {
	l := logger.With().Str("component", "WebhookUseCase").Logger()

	now := cfg.Purchase.Now
	if now == nil {
		now = time.Now
	}
	hold := cfg.Purchase.HoldPeriod
	if hold <= 0 {
		hold = defaultHoldPeriod
	}
	cost := cfg.Purchase.PasswordCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}

	base := &purchaseBase{
		store:   store,
		ports:   ports,
		effects: effects,
		settler: &commissionSettler{
			accounts: store.Accounts,
			payments: store.Payments,
			links:    store.Links,
			ledger:   store.Ledger,
			hold:     hold,
			now:      now,
		},
		provisioner: &accountProvisioner{cost: cost, now: now},
		reconciler:  reconciler,
		log:         &l,
		now:         now,
	}

	return &webhookUC{
		gate:     NewIdempotencyGate(store.Payments),
		validate: newEventValidator(),
		processors: map[RouteKind]PurchaseProcessor{
			RoutePartnerSignup:         newPartnerSignup(base),
			RouteBusinessSignup:        newBusinessSignup(base),
			RoutePlanPurchase:          &planPurchase{base},
			RouteAffiliatePlanPurchase: &affiliatePurchase{base},
			RouteAddonPurchase:         &addonPurchase{base},
		},
		locker:  locker,
		lockTTL: cfg.LockTTL,
		alerter: ports.Alerter,
		effects: effects,
		dev:     cfg.Dev,
		log:     &l,
	}
}

// envelope holds the fields checked before full decoding.
type envelope struct {
	ID        string
	EventType string
	Status    string
}

func readEnvelope(payload []byte) (*envelope, string) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil || fields == nil {
		return nil, "payload is not an object"
	}
	str := func(key string) string {
		var s string
		if raw, ok := fields[key]; ok {
			_ = json.Unmarshal(raw, &s)
		}
		return strings.TrimSpace(s)
	}
	env := &envelope{ID: str("id"), EventType: str("event_type"), Status: str("status")}
	switch {
	case env.EventType != model.EventChargeSucceeded:
		return nil, fmt.Sprintf("unsupported event type %q", env.EventType)
	case env.Status != model.ChargeStatusCaptured:
		return nil, fmt.Sprintf("charge status %q is not captured", env.Status)
	case env.ID == "":
		return nil, "missing transaction id"
	}
	return env, ""
}

func (u *webhookUC) Handle(ctx context.Context, payload []byte) (*WebhookAck, error) {
	env, reason := readEnvelope(payload)
	if env == nil {
		u.log.Debug().Str("reason", reason).Msg("webhook ignored")
		return ignored(reason), nil
	}
	log := u.log.With().Str("transaction_id", env.ID).Logger()

	if u.locker != nil && u.lockTTL > 0 {
		key := "webhook:txn:" + env.ID
		token, err := u.locker.TryLock(ctx, key, u.lockTTL)
		switch {
		case errors.Is(err, domain.ErrDeliveryInFlight):
			log.Info().Msg("concurrent delivery in flight")
			return nil, err
		case err != nil:
			// The unique index still guards the write.
			log.Warn().Err(err).Msg("delivery lock unavailable, continuing without it")
		default:
			defer func() {
				if err := u.locker.Unlock(context.WithoutCancel(ctx), key, token); err != nil {
					log.Warn().Err(err).Msg("delivery unlock failed")
				}
			}()
		}
	}

	done, err := u.gate.AlreadyProcessed(ctx, env.ID)
	if err != nil {
		return nil, err
	}
	if done {
		return alreadyProcessed(env.ID), nil
	}

	var ev model.ChargeEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		reason := "payload does not match event schema: " + err.Error()
		log.Info().Str("reason", reason).Msg("webhook ignored")
		return ignored(reason), nil
	}
	if err := u.validate.Struct(&ev); err != nil {
		reason := describeValidation(err)
		log.Info().Str("reason", reason).Msg("webhook ignored")
		return ignored(reason), nil
	}

	decision := Classify(&ev)
	log = log.With().Str("route", string(decision.Kind)).Logger()

	var proc PurchaseProcessor
	switch decision.Kind {
	case RouteIgnore:
		return ignored(decision.Reason), nil
	case RouteMisconfiguredSignup:
		return u.businessFailure(ctx, &log, &ev, domain.Precondition(domain.ErrSignupMisconfigured, "%s", decision.Reason))
	default:
		proc = u.processors[decision.Kind]
	}

	res, err := proc.Process(ctx, &PurchaseInput{Event: &ev, Raw: payload, Decision: decision})
	switch {
	case err == nil:
	case IsDuplicate(err):
		log.Info().Msg("lost idempotency race, treating as processed")
		return alreadyProcessed(env.ID), nil
	case errors.Is(err, domain.ErrAlreadyExists):
		// A racing delivery may trip the subscription or account index before the payment one.
		if done, gateErr := u.gate.AlreadyProcessed(ctx, env.ID); gateErr == nil && done {
			log.Info().Err(err).Msg("lost idempotency race, treating as processed")
			return alreadyProcessed(env.ID), nil
		}
		log.Error().Err(err).Str("failure", "infrastructure").Msg("webhook processing failed")
		return nil, err
	case domain.IsPrecondition(err):
		return u.businessFailure(ctx, &log, &ev, err)
	default:
		log.Error().Err(err).Str("failure", "infrastructure").Msg("webhook processing failed")
		return nil, err
	}

	res.Amount, res.Currency = ev.Amount, ev.AmountCurrency
	evt := log.Info().Str("user_id", res.UserID).Str("payment_id", res.PaymentID).Bool("renewal", res.Renewal)
	if res.Commission != nil {
		evt = evt.Str("referrer_id", res.Commission.Referrer.ID).Str("commission", res.Commission.Amount.String())
	}
	evt.Msg(res.Message)
	return &WebhookAck{Received: true, Message: res.Message, Data: res}, nil
}

func alreadyProcessed(id string) *WebhookAck {
	return ignored(fmt.Sprintf("transaction %s already processed", id))
}

// businessFailure logs, alerts operators and returns the precondition error with an ack.
func (u *webhookUC) businessFailure(ctx context.Context, log *zerolog.Logger, ev *model.ChargeEvent, err error) (*WebhookAck, error) {
	log.Warn().Err(err).Str("failure", "precondition").Str("email", logging.RedactEmail(ev.BuyerEmail(), u.dev)).Msg("webhook rejected by business rules")
	if u.alerter != nil {
		text := fmt.Sprintf("Payment %s (%s %s) could not be applied: %v", ev.ID, ev.Amount.StringFixed(2), ev.AmountCurrency, err)
		u.effects.Dispatch(ctx, "operator_alert", func(ctx context.Context) error {
			return u.alerter.Alert(ctx, text)
		})
	}
	return &WebhookAck{Received: true, Reason: err.Error()}, err
}
