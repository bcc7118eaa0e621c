//go:build !integration

package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"copytrade-subscription/internal/config"
	"copytrade-subscription/internal/domain"
	"copytrade-subscription/internal/domain/model"
	"copytrade-subscription/internal/usecase"
)

type testServer struct {
	srv    *Server
	router http.Handler

	intake   *mockIntakeUC
	verify   *mockVerifyUC
	checkout *mockCheckoutUC
	wallet   *mockWalletUC
	running  *mockRunningUC
	users    *mockUserRepo
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zerolog.Nop()
	cfg := &config.Config{
		Rate: config.RateConfig{Base: "USD", Quote: "INR", Fallback: 83.0},
	}
	ts := &testServer{
		intake:   &mockIntakeUC{},
		verify:   &mockVerifyUC{},
		checkout: &mockCheckoutUC{},
		wallet:   &mockWalletUC{},
		running:  &mockRunningUC{},
		users: &mockUserRepo{users: []*model.User{
			{ID: "user-1", Email: "demo@copytrade.local", Role: model.RoleUser, Enabled: true},
			{ID: "user-2", Email: "other@copytrade.local", Role: model.RoleUser, Enabled: true},
			{ID: "admin-1", Email: "admin@copytrade.local", Role: model.RoleAdmin, Enabled: true},
			{ID: "user-3", Email: "banned@copytrade.local", Role: model.RoleUser, Enabled: false},
		}},
	}
	auth := NewAuthManager("test-secret", time.Hour)
	ts.srv = NewServer(cfg, auth, &mockPricingUC{}, ts.intake, ts.verify, ts.checkout, ts.wallet, ts.running, ts.users, mockRates{rate: 83.0}, mockStorage{}, &logger)
	ts.router = ts.srv.Router()
	return ts
}

func (ts *testServer) token(t *testing.T, userID string, role model.Role) string {
	t.Helper()
	tok, err := ts.srv.auth.Mint(userID, role)
	if err != nil {
		t.Fatalf("expected no error minting token, but got: %v", err)
	}
	return tok
}

func (ts *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("expected no error encoding body, but got: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("expected a JSON body, but got: %v (%s)", err, rec.Body.String())
	}
	return out
}

func TestAuthMiddleware(t *testing.T) {
	ts := newTestServer(t)
	ts.wallet.BalanceFunc = func(ctx context.Context, userID string) (float64, error) { return 100, nil }

	t.Run("missing token is 401", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet, "/wallet", "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected status 401, but got %d", rec.Code)
		}
	})

	t.Run("garbage token is 401", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet, "/wallet", "not-a-jwt", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected status 401, but got %d", rec.Code)
		}
	})

	t.Run("valid token passes", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet, "/wallet", ts.token(t, "user-1", model.RoleUser), nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, but got %d", rec.Code)
		}
		body := decodeResponse(t, rec)
		if body["balance"] != 100.0 {
			t.Errorf("expected balance 100, but got %v", body["balance"])
		}
	})

	t.Run("non-admin on the admin surface is 401", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet, "/admin/users", ts.token(t, "user-1", model.RoleUser), nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected status 401, but got %d", rec.Code)
		}
	})

	t.Run("admin token reaches the admin surface", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet, "/admin/users", ts.token(t, "admin-1", model.RoleAdmin), nil)
		if rec.Code != http.StatusOK {
			t.Errorf("expected status 200, but got %d", rec.Code)
		}
	})
}

func TestHandleLogin(t *testing.T) {
	ts := newTestServer(t)

	t.Run("known enabled user gets a token", func(t *testing.T) {
		rec := ts.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "demo@copytrade.local"})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, but got %d", rec.Code)
		}
		body := decodeResponse(t, rec)
		if body["token"] == "" || body["token"] == nil {
			t.Errorf("expected a token in the response")
		}
		if body["userId"] != "user-1" {
			t.Errorf("expected userId 'user-1', but got %v", body["userId"])
		}
	})

	t.Run("disabled user is 401", func(t *testing.T) {
		rec := ts.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "banned@copytrade.local"})
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected status 401, but got %d", rec.Code)
		}
	})

	t.Run("unknown email is 401", func(t *testing.T) {
		rec := ts.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "nobody@copytrade.local"})
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected status 401, but got %d", rec.Code)
		}
	})
}

func TestHandleRate(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/rate", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, but got %d", rec.Code)
	}
	body := decodeResponse(t, rec)
	if body["base"] != "USD" || body["symbol"] != "INR" {
		t.Errorf("expected USD/INR, but got %v/%v", body["base"], body["symbol"])
	}
	if body["rate"] != 83.0 {
		t.Errorf("expected rate 83, but got %v", body["rate"])
	}
}

func TestHandleQuote(t *testing.T) {
	ts := newTestServer(t)
	pricing := ts.srv.pricingUC.(*mockPricingUC)
	pricing.QuoteFunc = func(ctx context.Context, plan model.Plan, capital float64) (*usecase.Quote, error) {
		if capital < 1000 {
			return nil, fmt.Errorf("%w: capital too small", domain.ErrInvalidArgument)
		}
		return &usecase.Quote{Plan: plan, Capital: capital, Payable: 255, PayableINR: 21165, FXRate: 83.0}, nil
	}

	rec := ts.do(t, http.MethodGet, "/quote?plan=Pro&capital=1500", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, but got %d", rec.Code)
	}
	body := decodeResponse(t, rec)
	if body["payable"] != 255.0 {
		t.Errorf("expected payable 255, but got %v", body["payable"])
	}

	t.Run("bad capital is 400", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet, "/quote?plan=Pro&capital=lots", "", nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, but got %d", rec.Code)
		}
	})

	t.Run("out-of-band capital is 400", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet, "/quote?plan=Pro&capital=500", "", nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, but got %d", rec.Code)
		}
	})
}

func TestHandleCreatePayment(t *testing.T) {
	ts := newTestServer(t)
	ts.intake.CreateIntentFunc = func(ctx context.Context, in usecase.CreateIntentInput) (*model.PaymentIntent, error) {
		if in.UserID != "user-1" {
			t.Errorf("expected the caller id on the input, but got '%s'", in.UserID)
		}
		return pendingIntent("intent-1", in.UserID), nil
	}

	rec := ts.do(t, http.MethodPost, "/payments", ts.token(t, "user-1", model.RoleUser), map[string]interface{}{
		"strategyId": "gold-scalper",
		"plan":       "Pro",
		"capital":    1500,
		"method":     "UPI",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, but got %d (%s)", rec.Code, rec.Body.String())
	}
	body := decodeResponse(t, rec)
	if body["transactionId"] != "intent-1" {
		t.Errorf("expected transactionId 'intent-1', but got %v", body["transactionId"])
	}
	payment := body["payment"].(map[string]interface{})
	if payment["status"] != "pending" {
		t.Errorf("expected status 'pending', but got %v", payment["status"])
	}

	t.Run("bad plan is 400", func(t *testing.T) {
		rec := ts.do(t, http.MethodPost, "/payments", ts.token(t, "user-1", model.RoleUser), map[string]interface{}{
			"strategyId": "gold-scalper",
			"plan":       "Starter",
			"capital":    1500,
			"method":     "UPI",
		})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, but got %d", rec.Code)
		}
	})
}

func TestPaymentOwnership(t *testing.T) {
	ts := newTestServer(t)
	ts.intake.GetFunc = func(ctx context.Context, intentID string) (*model.PaymentIntent, error) {
		if intentID != "intent-1" {
			return nil, domain.ErrNotFound
		}
		return pendingIntent("intent-1", "user-1"), nil
	}

	t.Run("owner reads their intent", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet, "/payments/intent-1", ts.token(t, "user-1", model.RoleUser), nil)
		if rec.Code != http.StatusOK {
			t.Errorf("expected status 200, but got %d", rec.Code)
		}
	})

	t.Run("another user is 401", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet, "/payments/intent-1", ts.token(t, "user-2", model.RoleUser), nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected status 401, but got %d", rec.Code)
		}
	})

	t.Run("admin reads any intent", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet, "/payments/intent-1", ts.token(t, "admin-1", model.RoleAdmin), nil)
		if rec.Code != http.StatusOK {
			t.Errorf("expected status 200, but got %d", rec.Code)
		}
	})

	t.Run("missing intent is 404", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet, "/payments/no-such", ts.token(t, "user-1", model.RoleUser), nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status 404, but got %d", rec.Code)
		}
	})
}

func TestHandleAttachProof(t *testing.T) {
	ts := newTestServer(t)
	ts.intake.GetFunc = func(ctx context.Context, intentID string) (*model.PaymentIntent, error) {
		return pendingIntent("intent-1", "user-1"), nil
	}
	ts.intake.AttachProofFunc = func(ctx context.Context, intentID, externalTxID, proofURL string) (*model.PaymentIntent, error) {
		return nil, fmt.Errorf("%w: proof already submitted or intent settled", domain.ErrConflict)
	}

	rec := ts.do(t, http.MethodPut, "/payments/intent-1", ts.token(t, "user-1", model.RoleUser), map[string]string{
		"txId":     "upi-ref-1",
		"proofUrl": "/uploads/proofs/user-1/a.jpg",
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("expected status 409, but got %d", rec.Code)
	}
}

func TestHandlePatchPayment(t *testing.T) {
	ts := newTestServer(t)
	ts.intake.GetFunc = func(ctx context.Context, intentID string) (*model.PaymentIntent, error) {
		return pendingIntent("intent-1", "user-1"), nil
	}

	t.Run("owner settles with CANCELLED", func(t *testing.T) {
		var gotCode model.FailureCode
		ts.intake.MarkTerminalClientSideFunc = func(ctx context.Context, intentID string, code model.FailureCode) error {
			gotCode = code
			return nil
		}
		rec := ts.do(t, http.MethodPatch, "/payments/intent-1", ts.token(t, "user-1", model.RoleUser), map[string]string{"status": "CANCELLED"})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, but got %d", rec.Code)
		}
		if gotCode != model.FailureCancelled {
			t.Errorf("expected code CANCELLED, but got '%s'", gotCode)
		}
	})

	t.Run("status edits are admin only", func(t *testing.T) {
		rec := ts.do(t, http.MethodPatch, "/payments/intent-1", ts.token(t, "user-1", model.RoleUser), map[string]string{"status": "completed"})
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected status 401, but got %d", rec.Code)
		}
	})

	t.Run("admin status edit routes through verification", func(t *testing.T) {
		approvedAt := time.Now()
		ts.verify.SetStatusFunc = func(ctx context.Context, adminID, intentID string, status model.Status, message string) (*model.PaymentIntent, error) {
			if adminID != "admin-1" || status != model.StatusCompleted {
				t.Errorf("unexpected SetStatus call: admin=%s status=%s", adminID, status)
			}
			p := pendingIntent(intentID, "user-1")
			p.Outcome = model.Outcome{Kind: model.OutcomeSucceeded, ApprovedAt: &approvedAt}
			return p, nil
		}
		rec := ts.do(t, http.MethodPatch, "/payments/intent-1", ts.token(t, "admin-1", model.RoleAdmin), map[string]string{"status": "completed"})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, but got %d", rec.Code)
		}
		body := decodeResponse(t, rec)
		if body["status"] != "completed" {
			t.Errorf("expected status 'completed', but got %v", body["status"])
		}
		// Derived expiry rides along once approved.
		if body["expiresAt"] == nil {
			t.Errorf("expected expiresAt on an approved intent")
		}
	})

	t.Run("settled intent conflicts", func(t *testing.T) {
		ts.verify.SetStatusFunc = func(ctx context.Context, adminID, intentID string, status model.Status, message string) (*model.PaymentIntent, error) {
			return nil, fmt.Errorf("%w: intent settled", domain.ErrConflict)
		}
		rec := ts.do(t, http.MethodPatch, "/payments/intent-1", ts.token(t, "admin-1", model.RoleAdmin), map[string]string{"status": "failed", "message": "late"})
		if rec.Code != http.StatusConflict {
			t.Errorf("expected status 409, but got %d", rec.Code)
		}
	})
}

func TestCheckoutExpiryMapsTo410(t *testing.T) {
	ts := newTestServer(t)
	ts.checkout.GetFunc = func(ctx context.Context, userID, sessionID string) (*model.CheckoutSession, error) {
		return nil, domain.ErrSessionExpired
	}
	rec := ts.do(t, http.MethodGet, "/checkout/sess-1", ts.token(t, "user-1", model.RoleUser), nil)
	if rec.Code != http.StatusGone {
		t.Errorf("expected status 410, but got %d", rec.Code)
	}
}

func TestHandleUploadURL(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/upload-url", ts.token(t, "user-1", model.RoleUser), map[string]string{"contentType": "image/png"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, but got %d", rec.Code)
	}
	body := decodeResponse(t, rec)
	if body["useLocalFallback"] != true {
		t.Errorf("expected the local fallback with unconfigured storage, but got %v", body["useLocalFallback"])
	}
	key, _ := body["key"].(string)
	if !strings.HasPrefix(key, "proofs/user-1/") {
		t.Errorf("expected a per-user proof key, but got '%s'", key)
	}
}

func TestBrokerPasswordNeverSerialized(t *testing.T) {
	ts := newTestServer(t)
	p := pendingIntent("intent-1", "user-1")
	p.Broker = &model.BrokerAccount{
		Platform:        model.PlatformMT5,
		AccountID:       "88001122",
		AccountPassword: "enc:c2VjcmV0",
		Server:          "Exness-MT5Real8",
	}
	ts.intake.GetFunc = func(ctx context.Context, intentID string) (*model.PaymentIntent, error) { return p, nil }

	rec := ts.do(t, http.MethodGet, "/payments/intent-1", ts.token(t, "user-1", model.RoleUser), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, but got %d", rec.Code)
	}
	if bytes.Contains(rec.Body.Bytes(), []byte("c2VjcmV0")) || bytes.Contains(rec.Body.Bytes(), []byte("assword")) {
		t.Errorf("expected no password material in the response, but got %s", rec.Body.String())
	}
	body := decodeResponse(t, rec)
	broker := body["mt4mt5"].(map[string]interface{})
	if broker["accountId"] != "88001122" {
		t.Errorf("expected the broker account id on the wire, but got %v", broker["accountId"])
	}
}

func TestHandleRequestModification(t *testing.T) {
	ts := newTestServer(t)
	ts.running.RequestModificationFunc = func(ctx context.Context, userID, runningID string, proposed model.BrokerAccount) (*model.ModificationRequest, error) {
		if userID != "user-1" || runningID != "run-1" {
			t.Errorf("unexpected call: user=%s running=%s", userID, runningID)
		}
		return &model.ModificationRequest{ID: "mod-1", Status: model.ModificationPending}, nil
	}

	rec := ts.do(t, http.MethodPost, "/running-strategies/run-1/modification", ts.token(t, "user-1", model.RoleUser), map[string]string{
		"platform":        "MT5",
		"accountId":       "99887766",
		"accountPassword": "newpass",
		"server":          "ICMarkets-Live04",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, but got %d", rec.Code)
	}
	body := decodeResponse(t, rec)
	if body["id"] != "mod-1" || body["status"] != "pending" {
		t.Errorf("expected a pending request id, but got %v", body)
	}
}

func TestHandleAdminListModifications(t *testing.T) {
	ts := newTestServer(t)
	ts.running.ListModificationsFunc = func(ctx context.Context, status model.ModificationStatus) ([]*model.ModificationRequest, error) {
		if status != model.ModificationPending {
			t.Errorf("expected the pending default, but got %s", status)
		}
		return []*model.ModificationRequest{{
			ID:                "mod-1",
			RunningStrategyID: "run-1",
			UserID:            "user-1",
			Proposed: model.BrokerAccount{
				Platform:        model.PlatformMT5,
				AccountID:       "99887766",
				AccountPassword: "enc:bmV3cGFzcw==",
				Server:          "ICMarkets-Live04",
			},
			Status: model.ModificationPending,
		}}, nil
	}

	rec := ts.do(t, http.MethodGet, "/admin/modifications", ts.token(t, "admin-1", model.RoleAdmin), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, but got %d", rec.Code)
	}
	raw := rec.Body.String()
	if strings.Contains(raw, "bmV3cGFzcw") || strings.Contains(raw, "assword") {
		t.Errorf("expected no password material on the wire, but got %s", raw)
	}

	body := decodeResponse(t, rec)
	data, ok := body["data"].([]interface{})
	if !ok || len(data) != 1 {
		t.Fatalf("expected one modification in the response, but got %v", body["data"])
	}
	item := data[0].(map[string]interface{})
	if item["id"] != "mod-1" || item["status"] != "pending" {
		t.Errorf("expected the pending modification, but got %v", item)
	}
	broker, ok := item["mt4mt5"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected the proposed broker details, but got %v", item["mt4mt5"])
	}
	if broker["accountId"] != "99887766" {
		t.Errorf("expected the proposed account id on the wire, but got %v", broker["accountId"])
	}
}

func TestHandleHealth(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, but got %d", rec.Code)
	}
}
