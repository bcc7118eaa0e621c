//go:build !integration

package web

import (
	"context"
	"sync"
	"time"

	"copytrade-subscription/internal/domain"
	"copytrade-subscription/internal/domain/model"
	"copytrade-subscription/internal/domain/ports/adapter"
	"copytrade-subscription/internal/domain/ports/repository"
	"copytrade-subscription/internal/usecase"
)

// --- Mock use cases ---

type mockPricingUC struct {
	usecase.PricingUseCase
	QuoteFunc func(ctx context.Context, plan model.Plan, capital float64) (*usecase.Quote, error)
}

func (m *mockPricingUC) Quote(ctx context.Context, plan model.Plan, capital float64) (*usecase.Quote, error) {
	return m.QuoteFunc(ctx, plan, capital)
}

type mockIntakeUC struct {
	usecase.IntakeUseCase
	CreateIntentFunc           func(ctx context.Context, in usecase.CreateIntentInput) (*model.PaymentIntent, error)
	AttachProofFunc            func(ctx context.Context, intentID, externalTxID, proofURL string) (*model.PaymentIntent, error)
	MarkTerminalClientSideFunc func(ctx context.Context, intentID string, code model.FailureCode) error
	GetFunc                    func(ctx context.Context, intentID string) (*model.PaymentIntent, error)
	ListFunc                   func(ctx context.Context, f repository.PaymentFilter) ([]*model.PaymentIntent, error)
}

func (m *mockIntakeUC) CreateIntent(ctx context.Context, in usecase.CreateIntentInput) (*model.PaymentIntent, error) {
	return m.CreateIntentFunc(ctx, in)
}

func (m *mockIntakeUC) AttachProof(ctx context.Context, intentID, externalTxID, proofURL string) (*model.PaymentIntent, error) {
	return m.AttachProofFunc(ctx, intentID, externalTxID, proofURL)
}

func (m *mockIntakeUC) MarkTerminalClientSide(ctx context.Context, intentID string, code model.FailureCode) error {
	return m.MarkTerminalClientSideFunc(ctx, intentID, code)
}

func (m *mockIntakeUC) Get(ctx context.Context, intentID string) (*model.PaymentIntent, error) {
	return m.GetFunc(ctx, intentID)
}

func (m *mockIntakeUC) List(ctx context.Context, f repository.PaymentFilter) ([]*model.PaymentIntent, error) {
	return m.ListFunc(ctx, f)
}

type mockVerifyUC struct {
	usecase.VerificationUseCase
	SetStatusFunc func(ctx context.Context, adminID, intentID string, status model.Status, message string) (*model.PaymentIntent, error)
}

func (m *mockVerifyUC) SetStatus(ctx context.Context, adminID, intentID string, status model.Status, message string) (*model.PaymentIntent, error) {
	return m.SetStatusFunc(ctx, adminID, intentID, status, message)
}

type mockCheckoutUC struct {
	usecase.CheckoutUseCase
	StartFunc  func(ctx context.Context, userID, strategyID string, plan model.Plan, isRenewal bool) (*model.CheckoutSession, error)
	GetFunc    func(ctx context.Context, userID, sessionID string) (*model.CheckoutSession, error)
	CancelFunc func(ctx context.Context, userID, sessionID string) error
}

func (m *mockCheckoutUC) Start(ctx context.Context, userID, strategyID string, plan model.Plan, isRenewal bool) (*model.CheckoutSession, error) {
	return m.StartFunc(ctx, userID, strategyID, plan, isRenewal)
}

func (m *mockCheckoutUC) Get(ctx context.Context, userID, sessionID string) (*model.CheckoutSession, error) {
	return m.GetFunc(ctx, userID, sessionID)
}

func (m *mockCheckoutUC) Cancel(ctx context.Context, userID, sessionID string) error {
	return m.CancelFunc(ctx, userID, sessionID)
}

type mockWalletUC struct {
	usecase.WalletUseCase
	BalanceFunc func(ctx context.Context, userID string) (float64, error)
	DebitFunc   func(ctx context.Context, userID string, amount float64, ref string) (float64, error)
}

func (m *mockWalletUC) Balance(ctx context.Context, userID string) (float64, error) {
	return m.BalanceFunc(ctx, userID)
}

func (m *mockWalletUC) Debit(ctx context.Context, userID string, amount float64, ref string) (float64, error) {
	return m.DebitFunc(ctx, userID, amount, ref)
}

type mockRunningUC struct {
	usecase.RunningStrategyUseCase
	ListByUserFunc          func(ctx context.Context, userID string) ([]*model.RunningStrategy, error)
	ListAllFunc             func(ctx context.Context) ([]*model.RunningStrategy, error)
	RequestModificationFunc func(ctx context.Context, userID, runningID string, proposed model.BrokerAccount) (*model.ModificationRequest, error)
	ListModificationsFunc   func(ctx context.Context, status model.ModificationStatus) ([]*model.ModificationRequest, error)
}

func (m *mockRunningUC) ListByUser(ctx context.Context, userID string) ([]*model.RunningStrategy, error) {
	return m.ListByUserFunc(ctx, userID)
}

func (m *mockRunningUC) ListAll(ctx context.Context) ([]*model.RunningStrategy, error) {
	return m.ListAllFunc(ctx)
}

func (m *mockRunningUC) RequestModification(ctx context.Context, userID, runningID string, proposed model.BrokerAccount) (*model.ModificationRequest, error) {
	return m.RequestModificationFunc(ctx, userID, runningID, proposed)
}

func (m *mockRunningUC) ListModifications(ctx context.Context, status model.ModificationStatus) ([]*model.ModificationRequest, error) {
	return m.ListModificationsFunc(ctx, status)
}

// --- Mock ports ---

type mockUserRepo struct {
	repository.UserRepository // Embed interface for forward compatibility
	mu                        sync.Mutex
	users                     []*model.User
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockUserRepo) List(ctx context.Context, tx repository.Tx, offset, limit int) ([]*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	end := offset + limit
	if end > len(m.users) {
		end = len(m.users)
	}
	if offset >= len(m.users) {
		return []*model.User{}, nil
	}
	return m.users[offset:end], nil
}

type mockRates struct{ rate float64 }

func (m mockRates) Rate(ctx context.Context, base, quote string) float64 { return m.rate }

type mockStorage struct {
	configured bool
}

func (m mockStorage) Configured() bool { return m.configured }

func (m mockStorage) PresignUpload(ctx context.Context, key, contentType string) (adapter.UploadTarget, error) {
	if !m.configured {
		return adapter.UploadTarget{Key: key, PublicURL: "/uploads/" + key, UseLocalFallback: true}, nil
	}
	return adapter.UploadTarget{SignedURL: "https://bucket.example/" + key + "?sig=abc", Key: key, PublicURL: "https://cdn.example/" + key}, nil
}

// --- Fixtures ---

func pendingIntent(id, userID string) *model.PaymentIntent {
	now := time.Now()
	return &model.PaymentIntent{
		ID:         id,
		UserID:     userID,
		StrategyID: "gold-scalper",
		Plan:       model.PlanPro,
		Capital:    1500,
		Payable:    255,
		PayableINR: 21165,
		FXRate:     83.0,
		Method:     model.MethodUPI,
		Outcome:    model.Outcome{Kind: model.OutcomePending},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
