// File: internal/usecase/checkout_uc.go
package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"copytrade-subscription/internal/domain"
	"copytrade-subscription/internal/domain/model"
	"copytrade-subscription/internal/domain/ports/adapter"
	"copytrade-subscription/internal/domain/ports/repository"
	"copytrade-subscription/internal/infra/metrics"
)

// Compile-time check
var _ CheckoutUseCase = (*checkoutUC)(nil)

// CheckoutUseCase drives the five-stage payment wizard. Sessions are bounded
// by a single 15-minute deadline set at Start; stage transitions never reset
// it. When the deadline passes with an intent already submitted, the intent
// is settled as EXPIRED exactly once; with nothing submitted, expiry is just
// the session disappearing.
type CheckoutUseCase interface {
	Start(ctx context.Context, userID, strategyID string, plan model.Plan, isRenewal bool) (*model.CheckoutSession, error)
	Get(ctx context.Context, userID, sessionID string) (*model.CheckoutSession, error)
	ChooseMethod(ctx context.Context, userID, sessionID string, method model.PaymentMethod) (*model.CheckoutSession, error)
	EnterCapital(ctx context.Context, userID, sessionID string, capital float64) (*model.CheckoutSession, error)
	EnterBroker(ctx context.Context, userID, sessionID string, b model.BrokerAccount) (*model.CheckoutSession, error)
	ConfirmReview(ctx context.Context, userID, sessionID string, confirmed bool) (*model.CheckoutSession, error)
	Back(ctx context.Context, userID, sessionID string) (*model.CheckoutSession, error)

	// Edit jumps from review back to "capital" or "broker".
	Edit(ctx context.Context, userID, sessionID, target string) (*model.CheckoutSession, error)

	// Submit creates the intent and attaches the proof in one step. A failure
	// after creation settles the fresh intent instead of leaving it stuck in
	// pending with no error shown anywhere.
	Submit(ctx context.Context, userID, sessionID, externalTxID, proofURL string) (*model.PaymentIntent, error)

	// Cancel is the user-initiated twin of expiry.
	Cancel(ctx context.Context, userID, sessionID string) error
}

type checkoutUC struct {
	sessions repository.CheckoutSessionStore
	pricing  PricingUseCase
	intake   IntakeUseCase
	cipher   adapter.SecretCipher
	now      func() time.Time
	log      *zerolog.Logger
}

func NewCheckoutUseCase(sessions repository.CheckoutSessionStore, pricing PricingUseCase, intake IntakeUseCase, cipher adapter.SecretCipher, logger *zerolog.Logger) *checkoutUC {
	compLog := logger.With().Str("component", "CheckoutUC").Logger()
	return &checkoutUC{sessions: sessions, pricing: pricing, intake: intake, cipher: cipher, now: time.Now, log: &compLog}
}

func (u *checkoutUC) Start(ctx context.Context, userID, strategyID string, plan model.Plan, isRenewal bool) (*model.CheckoutSession, error) {
	s, err := model.NewCheckoutSession(uuid.NewString(), userID, strategyID, plan, isRenewal, u.now())
	if err != nil {
		return nil, err
	}
	if err := u.sessions.Save(ctx, s); err != nil {
		return nil, err
	}
	metrics.IncCheckoutStarted()
	u.log.Info().Str("session_id", s.ID).Str("user_id", userID).Str("plan", string(plan)).Bool("renewal", isRenewal).Msg("checkout started")
	return s, nil
}

// load fetches the session, enforces ownership, and settles expiry. The
// expiry side effect runs at most once because the session is deleted before
// ErrSessionExpired is returned.
func (u *checkoutUC) load(ctx context.Context, userID, sessionID string) (*model.CheckoutSession, error) {
	s, err := u.sessions.Find(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s.UserID != userID {
		return nil, domain.ErrUnauthorized
	}
	if s.Expired(u.now()) {
		u.expire(ctx, s)
		return nil, domain.ErrSessionExpired
	}
	return s, nil
}

func (u *checkoutUC) expire(ctx context.Context, s *model.CheckoutSession) {
	if s.IntentID != "" {
		if err := u.intake.MarkTerminalClientSide(ctx, s.IntentID, model.FailureExpired); err != nil {
			u.log.Error().Err(err).Str("session_id", s.ID).Str("intent_id", s.IntentID).Msg("expire: settle intent failed")
		}
	}
	if err := u.sessions.Delete(ctx, s.ID); err != nil {
		u.log.Warn().Err(err).Str("session_id", s.ID).Msg("expire: session delete failed")
	}
	metrics.IncCheckoutEnded("expired")
	u.log.Info().Str("session_id", s.ID).Msg("checkout session expired")
}

func (u *checkoutUC) save(ctx context.Context, s model.CheckoutSession) (*model.CheckoutSession, error) {
	if err := u.sessions.Save(ctx, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (u *checkoutUC) Get(ctx context.Context, userID, sessionID string) (*model.CheckoutSession, error) {
	return u.load(ctx, userID, sessionID)
}

func (u *checkoutUC) ChooseMethod(ctx context.Context, userID, sessionID string, method model.PaymentMethod) (*model.CheckoutSession, error) {
	s, err := u.load(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	next, err := s.WithMethod(method)
	if err != nil {
		return nil, err
	}
	return u.save(ctx, next)
}

func (u *checkoutUC) EnterCapital(ctx context.Context, userID, sessionID string, capital float64) (*model.CheckoutSession, error) {
	s, err := u.load(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	q, err := u.pricing.Quote(ctx, s.Draft.Plan, capital)
	if err != nil {
		return nil, err
	}
	next, err := s.WithCapital(capital, q.Payable, q.PayableINR, q.FXRate)
	if err != nil {
		return nil, err
	}
	return u.save(ctx, next)
}

// EnterBroker encrypts the account password before the snapshot is persisted;
// the session store must never hold it in the clear.
func (u *checkoutUC) EnterBroker(ctx context.Context, userID, sessionID string, b model.BrokerAccount) (*model.CheckoutSession, error) {
	s, err := u.load(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	enc, err := u.cipher.Encrypt(b.AccountPassword)
	if err != nil {
		return nil, fmt.Errorf("encrypt broker password: %w", err)
	}
	b.AccountPassword = enc
	next, err := s.WithBroker(b)
	if err != nil {
		return nil, err
	}
	return u.save(ctx, next)
}

func (u *checkoutUC) ConfirmReview(ctx context.Context, userID, sessionID string, confirmed bool) (*model.CheckoutSession, error) {
	s, err := u.load(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	next, err := s.Confirm(confirmed)
	if err != nil {
		return nil, err
	}
	return u.save(ctx, next)
}

func (u *checkoutUC) Back(ctx context.Context, userID, sessionID string) (*model.CheckoutSession, error) {
	s, err := u.load(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	return u.save(ctx, s.Back())
}

func (u *checkoutUC) Edit(ctx context.Context, userID, sessionID, target string) (*model.CheckoutSession, error) {
	s, err := u.load(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	var next model.CheckoutSession
	switch target {
	case "capital":
		next, err = s.EditCapital()
	case "broker":
		next, err = s.EditBroker()
	default:
		return nil, fmt.Errorf("%w: edit target must be capital or broker", domain.ErrInvalidArgument)
	}
	if err != nil {
		return nil, err
	}
	return u.save(ctx, next)
}

func (u *checkoutUC) Submit(ctx context.Context, userID, sessionID, externalTxID, proofURL string) (*model.PaymentIntent, error) {
	s, err := u.load(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if s.Stage != model.StageFinalPayment {
		return nil, fmt.Errorf("%w: submit requires the final payment stage", domain.ErrInvalidArgument)
	}
	if strings.TrimSpace(externalTxID) == "" || strings.TrimSpace(proofURL) == "" {
		return nil, fmt.Errorf("%w: transaction id and proof are required", domain.ErrInvalidArgument)
	}

	// The draft holds the password encrypted; intake encrypts on persist, so
	// hand it the plaintext to keep the stored intent single-wrapped.
	broker := s.Draft.Broker
	if broker != nil {
		plain, err := u.cipher.Decrypt(broker.AccountPassword)
		if err != nil {
			return nil, fmt.Errorf("decrypt broker password: %w", err)
		}
		b := *broker
		b.AccountPassword = plain
		broker = &b
	}

	intent, err := u.intake.CreateIntent(ctx, CreateIntentInput{
		UserID:     s.UserID,
		StrategyID: s.Draft.StrategyID,
		Plan:       s.Draft.Plan,
		Capital:    s.Draft.Capital,
		Method:     s.Draft.Method,
		Broker:     broker,
		IsRenewal:  s.IsRenewal,
	})
	if err != nil {
		return nil, err
	}

	// Remember the intent before attaching proof so the expiry sweep can
	// settle it if we crash between the two writes.
	s.IntentID = intent.ID
	if _, err := u.save(ctx, *s); err != nil {
		return nil, err
	}

	attached, err := u.intake.AttachProof(ctx, intent.ID, externalTxID, proofURL)
	if err != nil {
		if mErr := u.intake.MarkTerminalClientSide(ctx, intent.ID, model.FailureCancelled); mErr != nil {
			u.log.Error().Err(mErr).Str("intent_id", intent.ID).Msg("submit: settle after failure failed")
		}
		return nil, err
	}

	if err := u.sessions.Delete(ctx, s.ID); err != nil {
		u.log.Warn().Err(err).Str("session_id", s.ID).Msg("submit: session delete failed")
	}
	metrics.IncCheckoutEnded("submitted")
	u.log.Info().Str("session_id", s.ID).Str("intent_id", intent.ID).Msg("checkout submitted")
	return attached, nil
}

func (u *checkoutUC) Cancel(ctx context.Context, userID, sessionID string) error {
	s, err := u.load(ctx, userID, sessionID)
	if err != nil {
		if err == domain.ErrSessionExpired {
			// Expiry already settled everything; cancel has nothing to add.
			return nil
		}
		return err
	}
	if s.IntentID != "" {
		if err := u.intake.MarkTerminalClientSide(ctx, s.IntentID, model.FailureCancelled); err != nil {
			return err
		}
	}
	if err := u.sessions.Delete(ctx, s.ID); err != nil {
		u.log.Warn().Err(err).Str("session_id", s.ID).Msg("cancel: session delete failed")
	}
	metrics.IncCheckoutEnded("cancelled")
	u.log.Info().Str("session_id", s.ID).Msg("checkout cancelled")
	return nil
}
