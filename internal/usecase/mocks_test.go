//go:build !integration

package usecase

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"funnel-billing/internal/domain"
	"funnel-billing/internal/domain/model"
	"funnel-billing/internal/domain/ports/adapter"
	"funnel-billing/internal/domain/ports/repository"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// memStore is an in-memory database shared by the mock repositories below. Its tx manager
// snapshots every table and restores them when the transaction function fails.
type memStore struct {
	mu            sync.Mutex
	accounts      map[string]model.Account
	payments      map[string]model.Payment // by transaction id
	subscriptions map[string]model.Subscription
	addons        map[string]model.AddOn
	links         map[string]model.AffiliateLink
	ledger        []model.BalanceTransaction
	workspaces    map[string]model.Workspace

	// createPaymentErr, when set, is returned by the next Payments.Create.
	createPaymentErr error
}

func newMemStore() *memStore {
	return &memStore{
		accounts:      map[string]model.Account{},
		payments:      map[string]model.Payment{},
		subscriptions: map[string]model.Subscription{},
		addons:        map[string]model.AddOn{},
		links:         map[string]model.AffiliateLink{},
		workspaces:    map[string]model.Workspace{},
	}
}

func (s *memStore) stores() Stores {
	return Stores{
		Accounts:      &memAccounts{s},
		Payments:      &memPayments{s},
		Subscriptions: &memSubscriptions{s},
		AddOns:        &memAddOns{s},
		Links:         &memLinks{s},
		Ledger:        &memLedger{s},
		Workspaces:    &memWorkspaces{s},
		TxManager:     &MockTxManager{store: s},
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// ---- seeding and inspection helpers ----

func (s *memStore) putAccount(a *model.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[a.ID] = *a
}

func (s *memStore) putLink(l *model.AffiliateLink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.links[l.ID] = *l
}

func (s *memStore) putWorkspace(w *model.Workspace) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workspaces[w.ID] = *w
}

func (s *memStore) putSubscription(sub *model.Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscriptions[sub.ID] = *sub
}

func (s *memStore) account(id string) model.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts[id]
}

func (s *memStore) accountByEmail(email string) (model.Account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.Email == email {
			return a, true
		}
	}
	return model.Account{}, false
}

func (s *memStore) payment(txID string) (model.Payment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[txID]
	return p, ok
}

func (s *memStore) subscription(id string) model.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subscriptions[id]
}

func (s *memStore) link(id string) model.AffiliateLink {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.links[id]
}

func (s *memStore) counts() (payments, subscriptions, addons, ledger int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.payments), len(s.subscriptions), len(s.addons), len(s.ledger)
}

func (s *memStore) onlySubscription() (model.Subscription, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subscriptions {
		return sub, true
	}
	return model.Subscription{}, false
}

func (s *memStore) onlyAddOn() (model.AddOn, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.addons {
		return a, true
	}
	return model.AddOn{}, false
}

func (s *memStore) ledgerEntries() []model.BalanceTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.BalanceTransaction(nil), s.ledger...)
}

// ---- TransactionManager ----

type MockTxManager struct {
	store      *memStore
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

// WithTx runs fn with NoTX and rolls the in-memory tables back if fn fails.
func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	s := m.store
	s.mu.Lock()
	accounts, payments, subs := cloneMap(s.accounts), cloneMap(s.payments), cloneMap(s.subscriptions)
	addons, links := cloneMap(s.addons), cloneMap(s.links)
	ledger := append([]model.BalanceTransaction(nil), s.ledger...)
	s.mu.Unlock()

	if err := fn(ctx, repository.NoTX); err != nil {
		s.mu.Lock()
		s.accounts, s.payments, s.subscriptions = accounts, payments, subs
		s.addons, s.links, s.ledger = addons, links, ledger
		s.mu.Unlock()
		return err
	}
	return nil
}

// ---- repositories ----

type memAccounts struct{ s *memStore }

func (r *memAccounts) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.accounts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &a, nil
}

func (r *memAccounts) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.accounts {
		if a.Email == model.NormalizeEmail(email) {
			return &a, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memAccounts) Create(ctx context.Context, tx repository.Tx, a *model.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.accounts {
		if existing.Email == a.Email {
			return domain.ErrAlreadyExists
		}
	}
	r.s.accounts[a.ID] = *a
	return nil
}

func (r *memAccounts) Update(ctx context.Context, tx repository.Tx, a *model.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.accounts[a.ID]
	if !ok {
		return domain.ErrNotFound
	}
	next := *a
	if cur.ReferralLinkID != nil {
		next.ReferralLinkID = cur.ReferralLinkID
	}
	r.s.accounts[a.ID] = next
	return nil
}

type memPayments struct{ s *memStore }

func (r *memPayments) ExistsByTransactionID(ctx context.Context, tx repository.Tx, transactionID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, ok := r.s.payments[transactionID]
	return ok, nil
}

func (r *memPayments) FindByTransactionID(ctx context.Context, tx repository.Tx, transactionID string) (*model.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.payments[transactionID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (r *memPayments) Create(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.createPaymentErr; err != nil {
		r.s.createPaymentErr = nil
		return err
	}
	if _, ok := r.s.payments[p.TransactionID]; ok {
		return domain.ErrDuplicateTransaction
	}
	r.s.payments[p.TransactionID] = *p
	return nil
}

func (r *memPayments) update(id string, fn func(p *model.Payment)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for k, p := range r.s.payments {
		if p.ID == id {
			fn(&p)
			r.s.payments[k] = p
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *memPayments) SetAddOnID(ctx context.Context, tx repository.Tx, paymentID, addOnID string) error {
	return r.update(paymentID, func(p *model.Payment) { p.AddOnID = &addOnID })
}

func (r *memPayments) MarkCommissionHeld(ctx context.Context, tx repository.Tx, paymentID string, amount decimal.Decimal, releaseAt time.Time) error {
	return r.update(paymentID, func(p *model.Payment) {
		p.CommissionAmount = amount
		p.CommissionStatus = model.CommissionHeld
		p.CommissionPaid = true
		p.CommissionReleaseAt = &releaseAt
	})
}

func (r *memPayments) MarkCommissionReleased(ctx context.Context, tx repository.Tx, paymentID string) error {
	return r.update(paymentID, func(p *model.Payment) { p.CommissionStatus = model.CommissionReleased })
}

func (r *memPayments) ListCommissionsDue(ctx context.Context, tx repository.Tx, now time.Time, limit int) ([]*model.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.Payment
	for _, p := range r.s.payments {
		if p.CommissionStatus == model.CommissionHeld && p.CommissionReleaseAt != nil && !p.CommissionReleaseAt.After(now) {
			cp := p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CommissionReleaseAt.Before(*out[j].CommissionReleaseAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memSubscriptions struct{ s *memStore }

func (r *memSubscriptions) FindByExternalID(ctx context.Context, tx repository.Tx, externalID string) (*model.Subscription, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, sub := range r.s.subscriptions {
		if sub.ExternalID == externalID {
			return &sub, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memSubscriptions) Create(ctx context.Context, tx repository.Tx, sub *model.Subscription) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.subscriptions {
		if existing.ExternalID == sub.ExternalID {
			return domain.ErrAlreadyExists
		}
	}
	r.s.subscriptions[sub.ID] = *sub
	return nil
}

func (r *memSubscriptions) UpdateEndDate(ctx context.Context, tx repository.Tx, id string, end time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sub, ok := r.s.subscriptions[id]
	if !ok {
		return domain.ErrNotFound
	}
	sub.EndDate = &end
	r.s.subscriptions[id] = sub
	return nil
}

func (r *memSubscriptions) SetSubscriberID(ctx context.Context, tx repository.Tx, id, subscriberID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sub, ok := r.s.subscriptions[id]
	if !ok {
		return domain.ErrNotFound
	}
	sub.SubscriberID = &subscriberID
	r.s.subscriptions[id] = sub
	return nil
}

func (r *memSubscriptions) ListMissingSubscriber(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Subscription, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.Subscription
	for _, sub := range r.s.subscriptions {
		if sub.SubscriberID == nil && sub.IsRecurring() && sub.CreatedAt.Before(olderThan) {
			cp := sub
			out = append(out, &cp)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memAddOns struct{ s *memStore }

func (r *memAddOns) Create(ctx context.Context, tx repository.Tx, a *model.AddOn) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.addons[a.ID] = *a
	return nil
}

func (r *memAddOns) FindBySubscriptionID(ctx context.Context, tx repository.Tx, subscriptionID string) (*model.AddOn, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.addons {
		if a.SubscriptionID != nil && *a.SubscriptionID == subscriptionID {
			return &a, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memAddOns) UpdateEndDate(ctx context.Context, tx repository.Tx, id string, end time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.addons[id]
	if !ok {
		return domain.ErrNotFound
	}
	a.EndDate = &end
	r.s.addons[id] = a
	return nil
}

type memLinks struct{ s *memStore }

func (r *memLinks) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.AffiliateLink, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.s.links[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &l, nil
}

func (r *memLinks) AddCommission(ctx context.Context, tx repository.Tx, id string, amount decimal.Decimal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.s.links[id]
	if !ok {
		return domain.ErrNotFound
	}
	l.TotalCommission = l.TotalCommission.Add(amount)
	r.s.links[id] = l
	return nil
}

type memLedger struct{ s *memStore }

func (r *memLedger) Append(ctx context.Context, tx repository.Tx, bt *model.BalanceTransaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.ledger = append(r.s.ledger, *bt)
	return nil
}

// raceTwin stands for a second delivery of the same charge that committed while this one was
// between the idempotency check and its first insert.
type raceTwin struct {
	mu        sync.Mutex
	committed bool
}

func (r *raceTwin) commit() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = true
}

func (r *raceTwin) done() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.committed
}

// racedSubscriptions loses the external id index to the twin.
type racedSubscriptions struct {
	repository.SubscriptionRepository
	twin *raceTwin
}

func (r *racedSubscriptions) Create(ctx context.Context, tx repository.Tx, sub *model.Subscription) error {
	r.twin.commit()
	return domain.ErrAlreadyExists
}

// racedAccounts loses the email index to the twin.
type racedAccounts struct {
	repository.AccountRepository
	twin *raceTwin
}

func (r *racedAccounts) Create(ctx context.Context, tx repository.Tx, a *model.Account) error {
	r.twin.commit()
	return domain.ErrAlreadyExists
}

// racedPayments sees the twin's payment once it has committed.
type racedPayments struct {
	repository.PaymentRepository
	twin *raceTwin
}

func (r *racedPayments) ExistsByTransactionID(ctx context.Context, tx repository.Tx, transactionID string) (bool, error) {
	return r.twin.done(), nil
}

type memWorkspaces struct{ s *memStore }

func (r *memWorkspaces) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Workspace, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.workspaces[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &w, nil
}

// ---- side effects and outbound ports ----

// inlineEffects runs effects synchronously and records their names and errors.
type inlineEffects struct {
	mu     sync.Mutex
	ran    []string
	failed map[string]error
}

func newInlineEffects() *inlineEffects { return &inlineEffects{failed: map[string]error{}} }

func (e *inlineEffects) Dispatch(ctx context.Context, name string, fn func(ctx context.Context) error) {
	err := fn(context.WithoutCancel(ctx))
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ran = append(e.ran, name)
	if err != nil {
		e.failed[name] = err
	}
}

func (e *inlineEffects) has(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, n := range e.ran {
		if n == name {
			return true
		}
	}
	return false
}

type MockMailer struct {
	mu            sync.Mutex
	Err           error
	Setups        []string // account emails
	Welcomes      map[string]string
	Confirmations []string
	Congrats      []string // referrer ids
}

func NewMockMailer() *MockMailer { return &MockMailer{Welcomes: map[string]string{}} }

var _ adapter.Mailer = (*MockMailer)(nil)

func (m *MockMailer) SendPasswordSetup(ctx context.Context, acct *model.Account, setup adapter.PasswordSetup) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Setups = append(m.Setups, acct.Email)
	return m.Err
}

func (m *MockMailer) SendWelcome(ctx context.Context, acct *model.Account, tempPassword string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Welcomes[acct.Email] = tempPassword
	return m.Err
}

func (m *MockMailer) SendSubscriptionConfirmation(ctx context.Context, acct *model.Account, sub *model.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Confirmations = append(m.Confirmations, acct.Email)
	return m.Err
}

func (m *MockMailer) SendAffiliateCongratulations(ctx context.Context, referrer *model.Account, payment *model.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Congrats = append(m.Congrats, referrer.ID)
	return m.Err
}

type MockCloner struct {
	Err   error
	Calls [][2]string
}

func (m *MockCloner) Clone(ctx context.Context, sourceWorkspaceID, ownerID string) (string, error) {
	m.Calls = append(m.Calls, [2]string{sourceWorkspaceID, ownerID})
	if m.Err != nil {
		return "", m.Err
	}
	return "ws-clone-1", nil
}

type MockCRM struct {
	Err   error
	Leads []adapter.Lead
}

func (m *MockCRM) RegisterSignup(ctx context.Context, lead adapter.Lead) error {
	m.Leads = append(m.Leads, lead)
	return m.Err
}

type MockTokens struct {
	CloneSource string
	CloneErr    error
}

func (m *MockTokens) IssuePasswordSetup(accountID, email string) (string, time.Time, error) {
	return "setup-" + accountID, time.Now().Add(time.Hour), nil
}

func (m *MockTokens) CloneWorkspaceID(token string) (string, error) {
	return m.CloneSource, m.CloneErr
}

type MockAlerter struct {
	Texts []string
}

func (m *MockAlerter) Alert(ctx context.Context, text string) error {
	m.Texts = append(m.Texts, text)
	return nil
}

type MockRegistry struct {
	IDs map[string]string
	Err error
}

func (m *MockRegistry) Name() string { return "mock" }

func (m *MockRegistry) LookupSubscriber(ctx context.Context, externalID string) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	id, ok := m.IDs[externalID]
	if !ok {
		return "", adapter.ErrSubscriberUnknown
	}
	return id, nil
}

// MockLocker implements adapter.Locker in memory.
type MockLocker struct {
	mu   sync.Mutex
	held map[string]string
	Err  error
}

func NewMockLocker() *MockLocker { return &MockLocker{held: map[string]string{}} }

func (l *MockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.Err != nil {
		return "", l.Err
	}
	if _, ok := l.held[key]; ok {
		return "", domain.ErrDeliveryInFlight
	}
	l.held[key] = "token-" + key
	return l.held[key], nil
}

func (l *MockLocker) Unlock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
	}
	return nil
}

func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}
