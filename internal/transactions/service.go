package transactions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kariuki00743/safipay/pkg/db/models"
	"github.com/kariuki00743/safipay/pkg/enums"
	pkgerrors "github.com/kariuki00743/safipay/pkg/errors"
	"github.com/kariuki00743/safipay/pkg/logger"
	"github.com/kariuki00743/safipay/pkg/mpesa"
	"github.com/kariuki00743/safipay/pkg/phone"
)

const (
	minAmountCents       = 100
	minDisputeReasonLen  = 10
	defaultListLimit     = 50
	defaultNotifyTimeout = 15 * time.Second

	cancelledByUserMessage = "Payment cancelled by user"
	defaultFailureMessage  = "Payment failed"
)

// MaxListLimit caps a single page of List.
const MaxListLimit = 100

// Outcome classifies what ApplyPaymentResult did with a provider verdict.
type Outcome string

const (
	OutcomeApplied   Outcome = "applied"
	OutcomeUnmatched Outcome = "unmatched"
	OutcomeStale     Outcome = "stale"
)

// Service owns every status change on a transaction.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*TransactionDTO, error)
	InitiatePayment(ctx context.Context, input InitiatePaymentInput) (*mpesa.PushResponse, error)
	ConfirmPayment(ctx context.Context, input ActionInput) (*ConfirmResult, error)
	CancelPayment(ctx context.Context, input ActionInput) error
	Release(ctx context.Context, input ActionInput) error
	Dispute(ctx context.Context, input DisputeInput) error
	Refund(ctx context.Context, input ActionInput) error
	ApplyPaymentResult(ctx context.Context, result PaymentResult) (Outcome, error)
	Get(ctx context.Context, input ActionInput) (*TransactionDTO, error)
	// List returns the caller's newest transactions; limit <= 0 means the default.
	List(ctx context.Context, actor Actor, limit int) ([]TransactionDTO, error)
}

// ServiceParams wires the service. Notifier, Metrics, Async and Clock are optional.
type ServiceParams struct {
	Repo          Repository
	Disputes      DisputeRecorder
	Gateway       Gateway
	Notifier      Notifier
	TxRunner      txRunner
	Metrics       transitionRecorder
	Logger        *logger.Logger
	Async         func(func())
	NotifyTimeout time.Duration
	Clock         func() time.Time
}

type service struct {
	repo          Repository
	disputes      DisputeRecorder
	gateway       Gateway
	notifier      Notifier
	tx            txRunner
	metrics       transitionRecorder
	logg          *logger.Logger
	async         func(func())
	notifyTimeout time.Duration
	now           func() time.Time
}

// NewService builds the transaction service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("transactions repository required")
	}
	if params.Disputes == nil {
		return nil, fmt.Errorf("dispute recorder required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}

	svc := &service{
		repo:          params.Repo,
		disputes:      params.Disputes,
		gateway:       params.Gateway,
		notifier:      params.Notifier,
		tx:            params.TxRunner,
		metrics:       params.Metrics,
		logg:          params.Logger,
		async:         params.Async,
		notifyTimeout: params.NotifyTimeout,
		now:           params.Clock,
	}
	if svc.async == nil {
		svc.async = func(fn func()) { go fn() }
	}
	if svc.notifyTimeout <= 0 {
		svc.notifyTimeout = defaultNotifyTimeout
	}
	if svc.now == nil {
		svc.now = func() time.Time { return time.Now().UTC() }
	}
	return svc, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*TransactionDTO, error) {
	if input.Actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.AmountCents < minAmountCents {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be at least 1 KES")
	}
	buyer := strings.TrimSpace(input.BuyerEmail)
	seller := strings.TrimSpace(input.SellerEmail)
	if buyer == "" || seller == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer and seller emails are required")
	}

	now := s.now()
	row := &models.Transaction{
		ID:          uuid.New(),
		UserID:      input.Actor.UserID,
		BuyerEmail:  buyer,
		SellerEmail: seller,
		AmountCents: input.AmountCents,
		Description: strings.TrimSpace(input.Description),
		Status:      enums.TransactionStatusHeld,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	created, err := s.repo.Create(ctx, row)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "create transaction")
	}

	s.notify(ctx, enums.NotificationEventTransactionCreated, *created)
	dto := ToDTO(*created)
	dto.Timeline = BuildTimeline(*created)
	return &dto, nil
}

func (s *service) InitiatePayment(ctx context.Context, input InitiatePaymentInput) (*mpesa.PushResponse, error) {
	canonical, err := phone.Normalize(input.Phone)
	if err != nil {
		return nil, err
	}

	row, err := s.loadOwned(ctx, input.Actor, input.TransactionID)
	if err != nil {
		return nil, err
	}
	if err := checkTransition(TriggerInitiatePayment, row.Status); err != nil {
		s.recordTransition(TriggerInitiatePayment, "rejected")
		return nil, err
	}
	if input.AmountCents != nil && *input.AmountCents != row.AmountCents {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount does not match transaction amount").
			WithDetails(map[string]any{"expectedAmount": ToDTO(*row).Amount.String()})
	}
	if row.AmountCents < minAmountCents {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be at least 1 KES")
	}

	description := strings.TrimSpace(input.Description)
	if description == "" {
		description = row.Description
	}
	resp, err := s.gateway.PushPayment(ctx, mpesa.PushRequest{
		TransactionID: row.ID.String(),
		Phone:         canonical,
		AmountCents:   row.AmountCents,
		Description:   description,
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithCheckoutRequestID(ctx, resp.CheckoutRequestID)
	code := resp.CheckoutRequestID
	affected, err := s.repo.ApplyTransition(ctx, TransitionUpdate{
		ID:   row.ID,
		From: Sources(TriggerInitiatePayment),
		To:   Target(TriggerInitiatePayment),
		Set: map[string]any{
			"mpesa_code":    code,
			"buyer_phone":   canonical,
			"payment_error": nil,
		},
		Now: s.now(),
	})
	if err != nil {
		s.logg.Error(ctx, "transactions.initiate_payment.persist_failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "record payment request")
	}
	if affected == 0 {
		s.logg.Warn(ctx, "transactions.initiate_payment.lost_race")
		return nil, s.lostRace(ctx, TriggerInitiatePayment, row.ID)
	}

	s.recordTransition(TriggerInitiatePayment, "applied")
	s.logg.Info(ctx, "transactions.initiate_payment.applied")
	return resp, nil
}

func (s *service) ConfirmPayment(ctx context.Context, input ActionInput) (*ConfirmResult, error) {
	row, err := s.loadOwned(ctx, input.Actor, input.TransactionID)
	if err != nil {
		return nil, err
	}
	if row.Status != enums.TransactionStatusPendingPayment || row.MpesaCode == nil {
		return nil, invalidTransition(row.Status, enums.TransactionStatusPaid)
	}

	ctx = s.logg.WithCheckoutRequestID(ctx, *row.MpesaCode)
	query, err := s.gateway.QueryPushPayment(ctx, *row.MpesaCode)
	if err != nil {
		return nil, err
	}
	if query.Pending {
		return &ConfirmResult{
			Status:     row.Status,
			Pending:    true,
			ResultDesc: query.ResultDesc,
		}, nil
	}

	resultCode, err := query.Code()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstreamPayment, err, "unreadable payment status").
			WithDetails(map[string]any{"resultCode": query.ResultCode})
	}
	if _, err := s.ApplyPaymentResult(ctx, PaymentResult{
		CheckoutRequestID: *row.MpesaCode,
		Succeeded:         resultCode == 0,
		ResultCode:        resultCode,
		ResultDesc:        query.ResultDesc,
	}); err != nil {
		return nil, err
	}

	current, err := s.find(ctx, row.ID)
	if err != nil {
		return nil, err
	}
	return &ConfirmResult{Status: current.Status, ResultDesc: query.ResultDesc}, nil
}

func (s *service) CancelPayment(ctx context.Context, input ActionInput) error {
	_, err := s.transitionOwned(ctx, input.Actor, input.TransactionID, TriggerCancelPayment, map[string]any{
		"mpesa_code":    nil,
		"payment_error": cancelledByUserMessage,
	}, "")
	return err
}

func (s *service) Release(ctx context.Context, input ActionInput) error {
	row, err := s.transitionOwned(ctx, input.Actor, input.TransactionID, TriggerRelease, nil, columnCompletedAt)
	if err != nil {
		return err
	}
	s.notify(ctx, enums.NotificationEventFundsReleased, *row)
	return nil
}

func (s *service) Refund(ctx context.Context, input ActionInput) error {
	row, err := s.transitionOwned(ctx, input.Actor, input.TransactionID, TriggerRefund, nil, columnRefundedAt)
	if err != nil {
		return err
	}
	s.notify(ctx, enums.NotificationEventRefundProcessed, *row)
	return nil
}

func (s *service) Dispute(ctx context.Context, input DisputeInput) error {
	reason := strings.TrimSpace(input.Reason)
	if len([]rune(reason)) < minDisputeReasonLen {
		return pkgerrors.New(pkgerrors.CodeValidation, "dispute reason must be at least 10 characters").
			WithDetails(map[string]any{"field": "reason", "minLength": minDisputeReasonLen})
	}

	row, err := s.loadOwned(ctx, input.Actor, input.TransactionID)
	if err != nil {
		return err
	}
	if err := checkTransition(TriggerDispute, row.Status); err != nil {
		s.recordTransition(TriggerDispute, "rejected")
		return err
	}

	now := s.now()
	var itemDescription *string
	if trimmed := strings.TrimSpace(input.ItemDescription); trimmed != "" {
		itemDescription = &trimmed
	}
	evidence := make([]string, 0, len(input.Evidence))
	for _, ref := range input.Evidence {
		if trimmed := strings.TrimSpace(ref); trimmed != "" {
			evidence = append(evidence, trimmed)
		}
	}

	var lost bool
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		affected, err := s.repo.WithTx(tx).ApplyTransition(ctx, TransitionUpdate{
			ID:          row.ID,
			From:        Sources(TriggerDispute),
			To:          Target(TriggerDispute),
			Set:         map[string]any{"dispute_reason": reason},
			StampColumn: columnDisputedAt,
			Now:         now,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "record dispute transition")
		}
		if affected == 0 {
			lost = true
			return nil
		}
		dispute := &models.Dispute{
			ID:              uuid.New(),
			TransactionID:   row.ID,
			RaisedBy:        input.Actor.UserID,
			Reason:          reason,
			ItemDescription: itemDescription,
			Evidence:        evidence,
			Status:          enums.DisputeStatusPending,
			CreatedAt:       now,
		}
		if err := s.disputes.Record(ctx, tx, dispute); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "record dispute")
		}
		return nil
	})
	if err != nil {
		return err
	}
	if lost {
		return s.lostRace(ctx, TriggerDispute, row.ID)
	}

	s.recordTransition(TriggerDispute, "applied")
	updated, err := s.find(ctx, row.ID)
	if err != nil {
		return err
	}
	s.notify(ctx, enums.NotificationEventDisputeRaised, *updated)
	return nil
}

func (s *service) ApplyPaymentResult(ctx context.Context, result PaymentResult) (Outcome, error) {
	code := strings.TrimSpace(result.CheckoutRequestID)
	if code == "" {
		return OutcomeUnmatched, nil
	}
	ctx = s.logg.WithCheckoutRequestID(ctx, code)

	row, err := s.repo.FindByMpesaCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logg.Warn(ctx, "transactions.payment_result.unmatched")
			return OutcomeUnmatched, nil
		}
		return "", pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load transaction by checkout request")
	}
	ctx = s.logg.WithTransactionID(ctx, row.ID.String())

	trigger := TriggerPaymentFailed
	event := enums.NotificationEventPaymentFailed
	update := TransitionUpdate{
		ID:        row.ID,
		MpesaCode: &code,
		Now:       s.now(),
	}
	if result.Succeeded {
		trigger = TriggerPaymentConfirmed
		event = enums.NotificationEventPaymentReceived
		update.Set = map[string]any{"payment_error": nil}
		if receipt := strings.TrimSpace(result.Receipt); receipt != "" {
			update.Set["mpesa_receipt"] = receipt
		}
		if canonical, err := phone.Normalize(result.Phone); err == nil {
			update.Set["buyer_phone"] = canonical
		}
		update.StampColumn = columnPaidAt
		if result.AmountCents != nil && *result.AmountCents != row.AmountCents {
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
				"expected_amount_cents": row.AmountCents,
				"reported_amount_cents": *result.AmountCents,
			}), "transactions.payment_result.amount_mismatch")
		}
	} else {
		desc := strings.TrimSpace(result.ResultDesc)
		if desc == "" {
			desc = defaultFailureMessage
		}
		update.Set = map[string]any{
			"mpesa_code":    nil,
			"payment_error": desc,
		}
	}
	update.From = Sources(trigger)
	update.To = Target(trigger)

	if row.Status != enums.TransactionStatusPendingPayment {
		s.recordTransition(trigger, "stale")
		s.logg.Info(s.logg.WithField(ctx, "status", row.Status), "transactions.payment_result.stale")
		return OutcomeStale, nil
	}

	affected, err := s.repo.ApplyTransition(ctx, update)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodePersistence, err, "apply payment result")
	}
	if affected == 0 {
		s.recordTransition(trigger, "stale")
		s.logg.Info(ctx, "transactions.payment_result.lost_race")
		return OutcomeStale, nil
	}

	s.recordTransition(trigger, "applied")
	s.logg.Info(s.logg.WithField(ctx, "trigger", string(trigger)), "transactions.payment_result.applied")
	updated, err := s.find(ctx, row.ID)
	if err != nil {
		return "", err
	}
	s.notify(ctx, event, *updated)
	return OutcomeApplied, nil
}

func (s *service) Get(ctx context.Context, input ActionInput) (*TransactionDTO, error) {
	row, err := s.loadOwned(ctx, input.Actor, input.TransactionID)
	if err != nil {
		return nil, err
	}
	dto := ToDTO(*row)
	dto.Timeline = BuildTimeline(*row)
	return &dto, nil
}

func (s *service) List(ctx context.Context, actor Actor, limit int) ([]TransactionDTO, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if limit <= 0 || limit > MaxListLimit {
		limit = defaultListLimit
	}
	rows, err := s.repo.ListByUser(ctx, actor.UserID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "list transactions")
	}
	out := make([]TransactionDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, ToDTO(row))
	}
	return out, nil
}

// transitionOwned checks ownership and the graph, then performs the
// conditional write and returns the committed row.
func (s *service) transitionOwned(ctx context.Context, actor Actor, id uuid.UUID, trigger Trigger, set map[string]any, stamp string) (*models.Transaction, error) {
	row, err := s.loadOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithTransactionID(ctx, row.ID.String())
	if err := checkTransition(trigger, row.Status); err != nil {
		s.recordTransition(trigger, "rejected")
		return nil, err
	}

	affected, err := s.repo.ApplyTransition(ctx, TransitionUpdate{
		ID:          row.ID,
		From:        Sources(trigger),
		To:          Target(trigger),
		Set:         set,
		StampColumn: stamp,
		Now:         s.now(),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "apply "+string(trigger))
	}
	if affected == 0 {
		return nil, s.lostRace(ctx, trigger, row.ID)
	}

	s.recordTransition(trigger, "applied")
	s.logg.Info(s.logg.WithField(ctx, "trigger", string(trigger)), "transactions.transition.applied")
	return s.find(ctx, row.ID)
}

// lostRace reports a conditional write that matched nothing, naming the status
// the winner left behind.
func (s *service) lostRace(ctx context.Context, trigger Trigger, id uuid.UUID) error {
	s.recordTransition(trigger, "rejected")
	current, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	return invalidTransition(current.Status, Target(trigger))
}

func (s *service) loadOwned(ctx context.Context, actor Actor, id uuid.UUID) (*models.Transaction, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id required")
	}
	row, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if row.UserID != actor.UserID {
		return nil, notFound()
	}
	return row, nil
}

func (s *service) find(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load transaction")
	}
	return row, nil
}

func notFound() error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
}

func (s *service) recordTransition(trigger Trigger, result string) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncTransition(string(trigger), result)
}

// notify hands the event to the notifier after commit. Failures never reach
// the caller.
func (s *service) notify(ctx context.Context, event enums.NotificationEvent, row models.Transaction) {
	if s.notifier == nil {
		return
	}
	detached := context.WithoutCancel(ctx)
	s.async(func() {
		notifyCtx, cancel := context.WithTimeout(detached, s.notifyTimeout)
		defer cancel()
		if err := s.notifier.Notify(notifyCtx, event, row); err != nil {
			s.logg.Error(s.logg.WithField(notifyCtx, "event", string(event)), "transactions.notify.failed", err)
		}
	})
}
