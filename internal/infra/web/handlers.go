package web

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	"copytrade-subscription/internal/domain"
	"copytrade-subscription/internal/domain/model"
	"copytrade-subscription/internal/domain/ports/repository"
	"copytrade-subscription/internal/infra/logging"
	"copytrade-subscription/internal/usecase"
)

// ===== Views =====

type brokerView struct {
	Platform  string `json:"platform"`
	AccountID string `json:"accountId"`
	Server    string `json:"server"`
}

type paymentView struct {
	ID           string      `json:"id"`
	UserID       string      `json:"userId"`
	StrategyID   string      `json:"strategyId"`
	Plan         string      `json:"plan"`
	Capital      float64     `json:"capital"`
	Payable      float64     `json:"payable"`
	PayableINR   float64     `json:"payableInr,omitempty"`
	FXRate       float64     `json:"fxRate,omitempty"`
	Method       string      `json:"method"`
	Broker       *brokerView `json:"mt4mt5,omitempty"`
	ExternalTxID string      `json:"txId,omitempty"`
	ProofURL     string      `json:"proofUrl,omitempty"`
	IsRenewal    bool        `json:"renewal"`
	Status       string      `json:"status"`
	FailureCode  string      `json:"failureCode,omitempty"`
	Reason       string      `json:"rejectionReason,omitempty"`
	AdminMessage string      `json:"adminMessage,omitempty"`
	ApprovedAt   *time.Time  `json:"approvedAt,omitempty"`
	ExpiresAt    *time.Time  `json:"expiresAt,omitempty"`
	CreatedAt    time.Time   `json:"createdAt"`
}

// toPaymentView flattens an intent for the wire. Broker passwords never
// leave the server.
func toPaymentView(p *model.PaymentIntent) paymentView {
	v := paymentView{
		ID:           p.ID,
		UserID:       p.UserID,
		StrategyID:   p.StrategyID,
		Plan:         string(p.Plan),
		Capital:      p.Capital,
		Payable:      p.Payable,
		PayableINR:   p.PayableINR,
		FXRate:       p.FXRate,
		Method:       string(p.Method),
		ExternalTxID: p.ExternalTxID,
		ProofURL:     p.ProofURL,
		IsRenewal:    p.IsRenewal,
		Status:       string(p.Status()),
		FailureCode:  string(p.Failure),
		Reason:       p.Outcome.Reason,
		AdminMessage: p.AdminMessage,
		ApprovedAt:   p.Outcome.ApprovedAt,
		CreatedAt:    p.CreatedAt,
	}
	if p.Broker != nil {
		v.Broker = &brokerView{
			Platform:  string(p.Broker.Platform),
			AccountID: p.Broker.AccountID,
			Server:    p.Broker.Server,
		}
	}
	if p.Outcome.ApprovedAt != nil {
		exp := model.RenewalExpiresAt(*p.Outcome.ApprovedAt)
		v.ExpiresAt = &exp
	}
	return v
}

type sessionView struct {
	ID        string      `json:"id"`
	Stage     string      `json:"stage"`
	IsRenewal bool        `json:"renewal"`
	IntentID  string      `json:"intentId,omitempty"`
	ExpiresAt time.Time   `json:"expiresAt"`
	Quote     *quoteView  `json:"quote,omitempty"`
	Method    string      `json:"method,omitempty"`
	Broker    *brokerView `json:"mt4mt5,omitempty"`
}

type quoteView struct {
	Plan       string  `json:"plan"`
	Capital    float64 `json:"capital"`
	Payable    float64 `json:"payable"`
	PayableINR float64 `json:"payableInr"`
	FXRate     float64 `json:"fxRate"`
}

func toSessionView(s *model.CheckoutSession) sessionView {
	v := sessionView{
		ID:        s.ID,
		Stage:     s.Stage.String(),
		IsRenewal: s.IsRenewal,
		IntentID:  s.IntentID,
		ExpiresAt: s.ExpiresAt,
		Method:    string(s.Draft.Method),
	}
	if s.Draft.Capital > 0 {
		v.Quote = &quoteView{
			Plan:       string(s.Draft.Plan),
			Capital:    s.Draft.Capital,
			Payable:    s.Draft.Payable,
			PayableINR: s.Draft.PayableINR,
			FXRate:     s.Draft.FXRate,
		}
	}
	if s.Draft.Broker != nil {
		v.Broker = &brokerView{
			Platform:  string(s.Draft.Broker.Platform),
			AccountID: s.Draft.Broker.AccountID,
			Server:    s.Draft.Broker.Server,
		}
	}
	return v
}

type runningView struct {
	ID         string     `json:"id"`
	UserID     string     `json:"userId"`
	StrategyID string     `json:"strategyId"`
	PaymentID  string     `json:"paymentId"`
	Broker     brokerView `json:"mt4mt5"`
	Execution  string     `json:"executionStatus"`
	CreatedAt  time.Time  `json:"createdAt"`
}

func toRunningView(rs *model.RunningStrategy) runningView {
	return runningView{
		ID:         rs.ID,
		UserID:     rs.UserID,
		StrategyID: rs.StrategyID,
		PaymentID:  rs.PaymentID,
		Broker: brokerView{
			Platform:  string(rs.Broker.Platform),
			AccountID: rs.Broker.AccountID,
			Server:    rs.Broker.Server,
		},
		Execution: string(rs.Execution),
		CreatedAt: rs.CreatedAt,
	}
}

type modificationView struct {
	ID                string     `json:"id"`
	RunningStrategyID string     `json:"runningStrategyId"`
	UserID            string     `json:"userId"`
	Proposed          brokerView `json:"mt4mt5"`
	Status            string     `json:"status"`
	CreatedAt         time.Time  `json:"createdAt"`
	ResolvedAt        *time.Time `json:"resolvedAt,omitempty"`
	ResolvedBy        string     `json:"resolvedBy,omitempty"`
}

func toModificationView(m *model.ModificationRequest) modificationView {
	return modificationView{
		ID:                m.ID,
		RunningStrategyID: m.RunningStrategyID,
		UserID:            m.UserID,
		Proposed: brokerView{
			Platform:  string(m.Proposed.Platform),
			AccountID: m.Proposed.AccountID,
			Server:    m.Proposed.Server,
		},
		Status:     string(m.Status),
		CreatedAt:  m.CreatedAt,
		ResolvedAt: m.ResolvedAt,
		ResolvedBy: m.ResolvedBy,
	}
}

type brokerRequest struct {
	Platform        string `json:"platform"`
	AccountID       string `json:"accountId"`
	AccountPassword string `json:"accountPassword"`
	Server          string `json:"server"`
}

func (b *brokerRequest) toModel() *model.BrokerAccount {
	if b == nil {
		return nil
	}
	return &model.BrokerAccount{
		Platform:        model.Platform(b.Platform),
		AccountID:       b.AccountID,
		AccountPassword: b.AccountPassword,
		Server:          b.Server,
	}
}

// ===== Auth =====

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	u, err := s.users.FindByEmail(r.Context(), nil, req.Email)
	if err != nil || !u.Enabled {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
		return
	}
	token, err := s.auth.Mint(u.ID, u.Role)
	if err != nil {
		logging.With(r.Context(), s.log).Error().Err(err).Msg("token mint failed")
		writeError(w, domain.ErrOperationFailed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"token":  token,
		"userId": u.ID,
		"role":   string(u.Role),
	})
}

// ===== Rate =====

func (s *Server) handleRate(w http.ResponseWriter, r *http.Request) {
	base, quote := s.cfg.Rate.Base, s.cfg.Rate.Quote
	rate := s.rates.Rate(r.Context(), base, quote)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"base":   base,
		"symbol": quote,
		"rate":   rate,
	})
}

// handleQuote prices a plan/capital pair without starting a checkout, so the
// frontend can preview the fee on the capital slider.
func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	plan, err := model.ParsePlan(r.URL.Query().Get("plan"))
	if err != nil {
		writeError(w, err)
		return
	}
	capital, err := strconv.ParseFloat(r.URL.Query().Get("capital"), 64)
	if err != nil {
		writeError(w, fmt.Errorf("%w: capital must be a number", domain.ErrInvalidArgument))
		return
	}
	q, err := s.pricingUC.Quote(r.Context(), plan, capital)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quoteView{
		Plan:       string(q.Plan),
		Capital:    q.Capital,
		Payable:    q.Payable,
		PayableINR: q.PayableINR,
		FXRate:     q.FXRate,
	})
}

// ===== Payments =====

func (s *Server) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	caller, _ := callerFrom(r.Context())
	var req struct {
		StrategyID string         `json:"strategyId"`
		Plan       string         `json:"plan"`
		Capital    float64        `json:"capital"`
		Method     string         `json:"method"`
		Broker     *brokerRequest `json:"mt4mt5"`
		Renewal    bool           `json:"renewal"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	plan, err := model.ParsePlan(req.Plan)
	if err != nil {
		writeError(w, err)
		return
	}
	p, err := s.intakeUC.CreateIntent(r.Context(), usecase.CreateIntentInput{
		UserID:     caller.UserID,
		StrategyID: req.StrategyID,
		Plan:       plan,
		Capital:    req.Capital,
		Method:     model.PaymentMethod(req.Method),
		Broker:     req.Broker.toModel(),
		IsRenewal:  req.Renewal,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"transactionId": p.ID,
		"payment":       toPaymentView(p),
	})
}

func (s *Server) handleListPayments(w http.ResponseWriter, r *http.Request) {
	caller, _ := callerFrom(r.Context())
	f := repository.PaymentFilter{}
	if caller.Role != model.RoleAdmin {
		f.UserID = caller.UserID
	} else if uid := r.URL.Query().Get("userId"); uid != "" {
		f.UserID = uid
	}
	if raw := r.URL.Query().Get("renewal"); raw != "" {
		renewal, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, fmt.Errorf("%w: renewal must be a boolean", domain.ErrInvalidArgument))
			return
		}
		f.Renewal = &renewal
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := model.ParseStatus(raw)
		if err != nil {
			writeError(w, err)
			return
		}
		f.Status = status
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		f.Limit, _ = strconv.Atoi(raw)
	}

	payments, err := s.intakeUC.List(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	views := make([]paymentView, 0, len(payments))
	for _, p := range payments {
		views = append(views, toPaymentView(p))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": views})
}

// loadOwnedPayment fetches an intent and enforces that the caller owns it or
// is an admin.
func (s *Server) loadOwnedPayment(r *http.Request, id string) (*model.PaymentIntent, error) {
	caller, _ := callerFrom(r.Context())
	p, err := s.intakeUC.Get(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if caller.Role != model.RoleAdmin && p.UserID != caller.UserID {
		return nil, domain.ErrUnauthorized
	}
	return p, nil
}

func (s *Server) handleGetPayment(w http.ResponseWriter, r *http.Request) {
	p, err := s.loadOwnedPayment(r, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentView(p))
}

func (s *Server) handleAttachProof(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req struct {
		TxID     string `json:"txId"`
		ProofURL string `json:"proofUrl"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if _, err := s.loadOwnedPayment(r, id); err != nil {
		writeError(w, err)
		return
	}
	p, err := s.intakeUC.AttachProof(r.Context(), id, req.TxID, req.ProofURL)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentView(p))
}

// handlePatchPayment carries both the client-side terminal updates (EXPIRED,
// CANCELLED, owner only) and single-intent admin status edits.
func (s *Server) handlePatchPayment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	caller, _ := callerFrom(r.Context())
	var req struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	switch model.FailureCode(req.Status) {
	case model.FailureExpired, model.FailureCancelled:
		if _, err := s.loadOwnedPayment(r, id); err != nil {
			writeError(w, err)
			return
		}
		if err := s.intakeUC.MarkTerminalClientSide(r.Context(), id, model.FailureCode(req.Status)); err != nil {
			writeError(w, err)
			return
		}
		p, err := s.intakeUC.Get(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toPaymentView(p))
		return
	}

	if caller.Role != model.RoleAdmin {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
		return
	}
	status, err := model.ParseStatus(req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	p, err := s.verifyUC.SetStatus(r.Context(), caller.UserID, id, status, req.Message)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentView(p))
}

// handleAdminBulkStatus is the admin form: one intent id, one status from
// the shared allow-list, optional message.
func (s *Server) handleAdminBulkStatus(w http.ResponseWriter, r *http.Request) {
	caller, _ := callerFrom(r.Context())
	var req struct {
		PaymentID string `json:"paymentId"`
		Status    string `json:"status"`
		Message   string `json:"message"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	status, err := model.ParseStatus(req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	p, err := s.verifyUC.SetStatus(r.Context(), caller.UserID, req.PaymentID, status, req.Message)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentView(p))
}

// ===== Uploads =====

func (s *Server) handleUploadURL(w http.ResponseWriter, r *http.Request) {
	caller, _ := callerFrom(r.Context())
	var req struct {
		ContentType string `json:"contentType"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.ContentType == "" {
		req.ContentType = "image/jpeg"
	}
	key := "proofs/" + caller.UserID + "/" + ulid.Make().String()
	target, err := s.storage.PresignUpload(r.Context(), key, req.ContentType)
	if err != nil {
		logging.With(r.Context(), s.log).Error().Err(err).Msg("presign upload failed")
		writeError(w, domain.ErrOperationFailed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"signedUrl":        target.SignedURL,
		"key":              target.Key,
		"publicUrl":        target.PublicURL,
		"useLocalFallback": target.UseLocalFallback,
	})
}

// ===== Checkout =====

func (s *Server) handleCheckoutStart(w http.ResponseWriter, r *http.Request) {
	caller, _ := callerFrom(r.Context())
	var req struct {
		StrategyID string `json:"strategyId"`
		Plan       string `json:"plan"`
		Renewal    bool   `json:"renewal"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	plan, err := model.ParsePlan(req.Plan)
	if err != nil {
		writeError(w, err)
		return
	}
	sess, err := s.checkoutUC.Start(r.Context(), caller.UserID, req.StrategyID, plan, req.Renewal)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSessionView(sess))
}

func (s *Server) handleCheckoutGet(w http.ResponseWriter, r *http.Request) {
	caller, _ := callerFrom(r.Context())
	sess, err := s.checkoutUC.Get(r.Context(), caller.UserID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionView(sess))
}

// handleCheckoutAdvance dispatches the stage-appropriate transition from one
// endpoint: the body carries whichever fields the current stage needs.
func (s *Server) handleCheckoutAdvance(w http.ResponseWriter, r *http.Request) {
	caller, _ := callerFrom(r.Context())
	id := chi.URLParam(r, "id")
	var req struct {
		Method    string         `json:"method"`
		Capital   float64        `json:"capital"`
		Broker    *brokerRequest `json:"mt4mt5"`
		Confirmed bool           `json:"confirmed"`
		Edit      string         `json:"edit"`
		TxID      string         `json:"txId"`
		ProofURL  string         `json:"proofUrl"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	sess, err := s.checkoutUC.Get(r.Context(), caller.UserID, id)
	if err != nil {
		writeError(w, err)
		return
	}

	switch sess.Stage {
	case model.StageMethodSelection:
		sess, err = s.checkoutUC.ChooseMethod(r.Context(), caller.UserID, id, model.PaymentMethod(req.Method))
	case model.StageCapitalInput:
		sess, err = s.checkoutUC.EnterCapital(r.Context(), caller.UserID, id, req.Capital)
	case model.StageBrokerDetails:
		if req.Broker == nil {
			err = fmt.Errorf("%w: mt4mt5 details are required", domain.ErrInvalidArgument)
			break
		}
		sess, err = s.checkoutUC.EnterBroker(r.Context(), caller.UserID, id, *req.Broker.toModel())
	case model.StageReview:
		if req.Edit != "" {
			sess, err = s.checkoutUC.Edit(r.Context(), caller.UserID, id, req.Edit)
		} else {
			sess, err = s.checkoutUC.ConfirmReview(r.Context(), caller.UserID, id, req.Confirmed)
		}
	case model.StageFinalPayment:
		var p *model.PaymentIntent
		p, err = s.checkoutUC.Submit(r.Context(), caller.UserID, id, req.TxID, req.ProofURL)
		if err == nil {
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"done":    true,
				"payment": toPaymentView(p),
			})
			return
		}
	default:
		err = domain.ErrInvalidArgument
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionView(sess))
}

func (s *Server) handleCheckoutBack(w http.ResponseWriter, r *http.Request) {
	caller, _ := callerFrom(r.Context())
	sess, err := s.checkoutUC.Back(r.Context(), caller.UserID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionView(sess))
}

func (s *Server) handleCheckoutCancel(w http.ResponseWriter, r *http.Request) {
	caller, _ := callerFrom(r.Context())
	if err := s.checkoutUC.Cancel(r.Context(), caller.UserID, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ===== Wallet =====

func (s *Server) handleWalletBalance(w http.ResponseWriter, r *http.Request) {
	caller, _ := callerFrom(r.Context())
	balance, err := s.walletUC.Balance(r.Context(), caller.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"balance": balance})
}

func (s *Server) handleWalletEntries(w http.ResponseWriter, r *http.Request) {
	caller, _ := callerFrom(r.Context())
	entries, err := s.walletUC.Entries(r.Context(), caller.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": entries})
}

func (s *Server) handleAdminWalletCredit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount    float64 `json:"amount"`
		PaymentID string  `json:"paymentId"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	balance, err := s.walletUC.Credit(r.Context(), chi.URLParam(r, "userID"), req.Amount, req.PaymentID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"balance": balance})
}

func (s *Server) handleAdminWalletDebit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount float64 `json:"amount"`
		Ref    string  `json:"ref"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	balance, err := s.walletUC.Debit(r.Context(), chi.URLParam(r, "userID"), req.Amount, req.Ref)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"balance": balance})
}

func (s *Server) handleAdminWalletRecompute(w http.ResponseWriter, r *http.Request) {
	balance, err := s.walletUC.Recompute(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"balance": balance})
}

// ===== Running strategies =====

func (s *Server) handleListRunning(w http.ResponseWriter, r *http.Request) {
	caller, _ := callerFrom(r.Context())
	list, err := s.runningUC.ListByUser(r.Context(), caller.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	views := make([]runningView, 0, len(list))
	for _, rs := range list {
		views = append(views, toRunningView(rs))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": views})
}

func (s *Server) handleRequestModification(w http.ResponseWriter, r *http.Request) {
	caller, _ := callerFrom(r.Context())
	var req brokerRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	m, err := s.runningUC.RequestModification(r.Context(), caller.UserID, chi.URLParam(r, "id"), *req.toModel())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"id":     m.ID,
		"status": string(m.Status),
	})
}

func (s *Server) handleAdminListRunning(w http.ResponseWriter, r *http.Request) {
	list, err := s.runningUC.ListAll(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	views := make([]runningView, 0, len(list))
	for _, rs := range list {
		views = append(views, toRunningView(rs))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": views})
}

func (s *Server) handleAdminExecutionStatus(w http.ResponseWriter, r *http.Request) {
	caller, _ := callerFrom(r.Context())
	var req struct {
		Status string `json:"status"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	rs, err := s.runningUC.SetExecutionStatus(r.Context(), caller.UserID, chi.URLParam(r, "id"), req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRunningView(rs))
}

func (s *Server) handleAdminListModifications(w http.ResponseWriter, r *http.Request) {
	status := model.ModificationStatus(r.URL.Query().Get("status"))
	if status == "" {
		status = model.ModificationPending
	}
	list, err := s.runningUC.ListModifications(r.Context(), status)
	if err != nil {
		writeError(w, err)
		return
	}
	views := make([]modificationView, 0, len(list))
	for _, m := range list {
		views = append(views, toModificationView(m))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": views})
}

func (s *Server) handleAdminResolveModification(w http.ResponseWriter, r *http.Request) {
	caller, _ := callerFrom(r.Context())
	var req struct {
		Approve bool `json:"approve"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.runningUC.ResolveModification(r.Context(), caller.UserID, chi.URLParam(r, "id"), req.Approve); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ===== Users (admin) =====

func (s *Server) handleAdminListUsers(w http.ResponseWriter, r *http.Request) {
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	users, err := s.users.List(r.Context(), nil, offset, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":   users,
		"limit":  limit,
		"offset": offset,
	})
}

func (s *Server) handleAdminSetUserEnabled(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.users.SetEnabled(r.Context(), nil, chi.URLParam(r, "id"), req.Enabled); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
