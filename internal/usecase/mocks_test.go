//go:build !integration

package usecase_test

import (
	"context"
	"encoding/base64"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"

	"copytrade-subscription/internal/domain"
	"copytrade-subscription/internal/domain/model"
	"copytrade-subscription/internal/domain/ports/repository"
)

// =============================
// In-memory repositories
// =============================

type memPaymentRepo struct {
	mu      sync.RWMutex
	intents map[string]*model.PaymentIntent
}

var _ repository.PaymentRepository = (*memPaymentRepo)(nil)

func newMemPaymentRepo() *memPaymentRepo {
	return &memPaymentRepo{intents: make(map[string]*model.PaymentIntent)}
}

func (r *memPaymentRepo) get(id string) (*model.PaymentIntent, bool) {
	p, ok := r.intents[id]
	if !ok {
		return nil, false
	}
	cp := *p
	return &cp, true
}

func (r *memPaymentRepo) Save(ctx context.Context, qx repository.Tx, p *model.PaymentIntent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.intents[p.ID] = &cp
	return nil
}

func (r *memPaymentRepo) FindByID(ctx context.Context, qx repository.Tx, id string) (*model.PaymentIntent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.get(id)
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func (r *memPaymentRepo) List(ctx context.Context, qx repository.Tx, f repository.PaymentFilter) ([]*model.PaymentIntent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*model.PaymentIntent
	for id := range r.intents {
		p, _ := r.get(id)
		if f.UserID != "" && p.UserID != f.UserID {
			continue
		}
		if f.Renewal != nil && p.IsRenewal != *f.Renewal {
			continue
		}
		if f.Status != "" && p.Status() != f.Status {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *memPaymentRepo) AttachProofIfPending(ctx context.Context, qx repository.Tx, id, externalTxID, proofURL string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.intents[id]
	if !ok || p.Outcome.Kind != model.OutcomePending {
		return false, nil
	}
	p.Outcome.Kind = model.OutcomeInProcess
	p.ExternalTxID = externalTxID
	p.ProofURL = proofURL
	p.UpdatedAt = time.Now()
	return true, nil
}

func (r *memPaymentRepo) MarkFailedIfOpen(ctx context.Context, qx repository.Tx, id string, code model.FailureCode) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.intents[id]
	if !ok || p.Outcome.Terminal() {
		return false, nil
	}
	p.Outcome = model.Outcome{Kind: model.OutcomeRejected}
	p.Failure = code
	p.UpdatedAt = time.Now()
	return true, nil
}

func (r *memPaymentRepo) MarkApproved(ctx context.Context, qx repository.Tx, id string, approvedAt time.Time, adminID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.intents[id]
	if !ok || p.Outcome.Terminal() {
		return false, nil
	}
	at := approvedAt
	p.Outcome = model.Outcome{Kind: model.OutcomeSucceeded, ApprovedAt: &at}
	p.VerifiedBy = adminID
	p.UpdatedAt = approvedAt
	return true, nil
}

func (r *memPaymentRepo) MarkRejected(ctx context.Context, qx repository.Tx, id, reason, adminID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.intents[id]
	if !ok || p.Outcome.Terminal() {
		return false, nil
	}
	p.Outcome = model.Outcome{Kind: model.OutcomeRejected, Reason: reason}
	p.VerifiedBy = adminID
	p.UpdatedAt = time.Now()
	return true, nil
}

func (r *memPaymentRepo) SetOutcomeIfOpen(ctx context.Context, qx repository.Tx, id string, kind model.OutcomeKind) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.intents[id]
	if !ok || p.Outcome.Terminal() {
		return false, nil
	}
	p.Outcome.Kind = kind
	p.UpdatedAt = time.Now()
	return true, nil
}

func (r *memPaymentRepo) SetAdminMessage(ctx context.Context, qx repository.Tx, id, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.intents[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.AdminMessage = text
	p.AdminMessageStatus = "sent"
	return nil
}

func (r *memPaymentRepo) ListPendingOlderThan(ctx context.Context, qx repository.Tx, olderThan time.Time, limit int) ([]*model.PaymentIntent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*model.PaymentIntent
	for id := range r.intents {
		p, _ := r.get(id)
		if p.Outcome.Kind == model.OutcomePending && p.CreatedAt.Before(olderThan) {
			out = append(out, p)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *memPaymentRepo) ListRenewalsExpiring(ctx context.Context, qx repository.Tx, from, to time.Time, limit int) ([]*model.PaymentIntent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*model.PaymentIntent
	for id := range r.intents {
		p, _ := r.get(id)
		if p.Outcome.Kind != model.OutcomeSucceeded || p.Outcome.ApprovedAt == nil {
			continue
		}
		exp := model.RenewalExpiresAt(*p.Outcome.ApprovedAt)
		if !exp.Before(from) && exp.Before(to) {
			out = append(out, p)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *memPaymentRepo) MarkReminderSent(ctx context.Context, qx repository.Tx, id string, at time.Time) error {
	return nil
}

// ---- Wallet ----

type memWalletRepo struct {
	mu       sync.Mutex
	balances map[string]float64
	entries  map[string][]*model.WalletEntry
}

var _ repository.WalletRepository = (*memWalletRepo)(nil)

func newMemWalletRepo() *memWalletRepo {
	return &memWalletRepo{
		balances: make(map[string]float64),
		entries:  make(map[string][]*model.WalletEntry),
	}
}

func (r *memWalletRepo) Credit(ctx context.Context, qx repository.Tx, e *model.WalletEntry) (float64, error) {
	if e == nil || e.Amount <= 0 {
		return 0, domain.ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *e
	r.entries[e.UserID] = append(r.entries[e.UserID], &cp)
	r.balances[e.UserID] += e.Amount
	return r.balances[e.UserID], nil
}

func (r *memWalletRepo) Debit(ctx context.Context, qx repository.Tx, e *model.WalletEntry) (float64, bool, error) {
	if e == nil || e.Amount <= 0 {
		return 0, false, domain.ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *e
	r.entries[e.UserID] = append(r.entries[e.UserID], &cp)
	old := r.balances[e.UserID]
	next := old - e.Amount
	clamped := next < 0
	if clamped {
		next = 0
	}
	r.balances[e.UserID] = next
	return next, clamped, nil
}

func (r *memWalletRepo) Balance(ctx context.Context, qx repository.Tx, userID string) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	bal, ok := r.balances[userID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	return bal, nil
}

func (r *memWalletRepo) Entries(ctx context.Context, qx repository.Tx, userID string) ([]*model.WalletEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.WalletEntry, len(r.entries[userID]))
	copy(out, r.entries[userID])
	return out, nil
}

func (r *memWalletRepo) SetBalance(ctx context.Context, qx repository.Tx, userID string, balance float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.balances[userID] = balance
	return nil
}

// ---- Running strategies ----

type memRunningRepo struct {
	mu      sync.Mutex
	running map[string]*model.RunningStrategy
}

var _ repository.RunningStrategyRepository = (*memRunningRepo)(nil)

func newMemRunningRepo() *memRunningRepo {
	return &memRunningRepo{running: make(map[string]*model.RunningStrategy)}
}

func (r *memRunningRepo) Save(ctx context.Context, qx repository.Tx, rs *model.RunningStrategy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *rs
	r.running[rs.ID] = &cp
	return nil
}

func (r *memRunningRepo) FindByID(ctx context.Context, qx repository.Tx, id string) (*model.RunningStrategy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rs, ok := r.running[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *rs
	return &cp, nil
}

func (r *memRunningRepo) FindByUserAndStrategy(ctx context.Context, qx repository.Tx, userID, strategyID string) (*model.RunningStrategy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rs := range r.running {
		if rs.UserID == userID && rs.StrategyID == strategyID {
			cp := *rs
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memRunningRepo) ListByUser(ctx context.Context, qx repository.Tx, userID string) ([]*model.RunningStrategy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.RunningStrategy
	for _, rs := range r.running {
		if rs.UserID == userID {
			cp := *rs
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memRunningRepo) ListAll(ctx context.Context, qx repository.Tx) ([]*model.RunningStrategy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.RunningStrategy
	for _, rs := range r.running {
		cp := *rs
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memRunningRepo) SetExecutionStatus(ctx context.Context, qx repository.Tx, id string, status model.ExecutionStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rs, ok := r.running[id]
	if !ok {
		return false, nil
	}
	rs.Execution = status
	rs.UpdatedAt = time.Now()
	return true, nil
}

func (r *memRunningRepo) UpdateBroker(ctx context.Context, qx repository.Tx, id string, b model.BrokerAccount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rs, ok := r.running[id]
	if !ok {
		return domain.ErrNotFound
	}
	rs.Broker = b
	rs.UpdatedAt = time.Now()
	return nil
}

type memModificationRepo struct {
	mu       sync.Mutex
	requests map[string]*model.ModificationRequest
}

var _ repository.ModificationRequestRepository = (*memModificationRepo)(nil)

func newMemModificationRepo() *memModificationRepo {
	return &memModificationRepo{requests: make(map[string]*model.ModificationRequest)}
}

func (r *memModificationRepo) Save(ctx context.Context, qx repository.Tx, m *model.ModificationRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *m
	r.requests[m.ID] = &cp
	return nil
}

func (r *memModificationRepo) FindByID(ctx context.Context, qx repository.Tx, id string) (*model.ModificationRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.requests[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *memModificationRepo) ListByStatus(ctx context.Context, qx repository.Tx, status model.ModificationStatus) ([]*model.ModificationRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.ModificationRequest
	for _, m := range r.requests {
		if m.Status == status {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memModificationRepo) Resolve(ctx context.Context, qx repository.Tx, id string, status model.ModificationStatus, adminID string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.requests[id]
	if !ok || m.Status != model.ModificationPending {
		return false, nil
	}
	m.Status = status
	m.ResolvedBy = adminID
	resolvedAt := at
	m.ResolvedAt = &resolvedAt
	return true, nil
}

// ---- Strategies and users ----

type memStrategyRepo struct {
	mu         sync.RWMutex
	strategies map[string]*model.Strategy
}

var _ repository.StrategyRepository = (*memStrategyRepo)(nil)

func newMemStrategyRepo(strategies ...*model.Strategy) *memStrategyRepo {
	r := &memStrategyRepo{strategies: make(map[string]*model.Strategy)}
	for _, s := range strategies {
		r.strategies[s.ID] = s
	}
	return r
}

func (r *memStrategyRepo) Save(ctx context.Context, qx repository.Tx, s *model.Strategy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies[s.ID] = s
	return nil
}

func (r *memStrategyRepo) FindByID(ctx context.Context, qx repository.Tx, id string) (*model.Strategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.strategies[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return s, nil
}

func (r *memStrategyRepo) ListEnabled(ctx context.Context, qx repository.Tx) ([]*model.Strategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*model.Strategy
	for _, s := range r.strategies {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out, nil
}

type memUserRepo struct {
	mu    sync.RWMutex
	users map[string]*model.User
}

var _ repository.UserRepository = (*memUserRepo)(nil)

func newMemUserRepo(users ...*model.User) *memUserRepo {
	r := &memUserRepo{users: make(map[string]*model.User)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *memUserRepo) Save(ctx context.Context, qx repository.Tx, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID] = u
	return nil
}

func (r *memUserRepo) FindByID(ctx context.Context, qx repository.Tx, id string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return u, nil
}

func (r *memUserRepo) FindByEmail(ctx context.Context, qx repository.Tx, email string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memUserRepo) SetEnabled(ctx context.Context, qx repository.Tx, id string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	u.Enabled = enabled
	return nil
}

func (r *memUserRepo) List(ctx context.Context, qx repository.Tx, offset, limit int) ([]*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*model.User
	for _, u := range r.users {
		out = append(out, u)
	}
	return out, nil
}

// ---- Checkout sessions ----

type memSessionStore struct {
	mu       sync.Mutex
	sessions map[string]*model.CheckoutSession
}

var _ repository.CheckoutSessionStore = (*memSessionStore)(nil)

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{sessions: make(map[string]*model.CheckoutSession)}
}

func (s *memSessionStore) Save(ctx context.Context, sess *model.CheckoutSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sess
	s.sessions[sess.ID] = &cp
	return nil
}

func (s *memSessionStore) Find(ctx context.Context, id string) (*model.CheckoutSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *sess
	return &cp, nil
}

func (s *memSessionStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// =============================
// Adapters
// =============================

// staticRates always returns the same rate, matching the provider's
// never-fail contract.
type staticRates struct{ rate float64 }

func (r staticRates) Rate(ctx context.Context, base, quote string) float64 { return r.rate }

type mockLocker struct {
	mu     sync.Mutex
	held   map[string]bool
	Locks  int
	Denied int
}

func newMockLocker() *mockLocker {
	return &mockLocker{held: make(map[string]bool)}
}

func (l *mockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		l.Denied++
		return "", domain.ErrLocked
	}
	l.held[key] = true
	l.Locks++
	return "token-" + key, nil
}

func (l *mockLocker) Unlock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
	return nil
}

type mockMailer struct {
	mu        sync.Mutex
	Completed []string
	Rejected  []string
	Reminders []string

	SendCompletedFunc func(ctx context.Context, to, strategyName string, amount float64) error
}

func (m *mockMailer) SendPaymentCompleted(ctx context.Context, to, strategyName string, amount float64) error {
	if m.SendCompletedFunc != nil {
		return m.SendCompletedFunc(ctx, to, strategyName, amount)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Completed = append(m.Completed, to)
	return nil
}

func (m *mockMailer) SendPaymentRejected(ctx context.Context, to, strategyName, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Rejected = append(m.Rejected, to)
	return nil
}

func (m *mockMailer) SendRenewalReminder(ctx context.Context, to, strategyName string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Reminders = append(m.Reminders, to)
	return nil
}

// mockCipher is reversible without being real crypto, so tests can assert
// that stored passwords are not plaintext.
type mockCipher struct{}

func (mockCipher) Encrypt(plaintext string) (string, error) {
	return "enc:" + base64.StdEncoding.EncodeToString([]byte(plaintext)), nil
}

func (mockCipher) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext[len("enc:"):])
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// mockTxManager runs the callback directly; the in-memory repositories have
// no transaction semantics to coordinate.
type mockTxManager struct{}

var _ repository.TransactionManager = (*mockTxManager)(nil)

func (mockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, qx repository.Tx) error) error {
	return fn(ctx, nil)
}
