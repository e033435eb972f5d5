package mpesawebhook

import (
	"context"
	"errors"

	"github.com/kariuki00743/safipay/internal/transactions"
	"github.com/kariuki00743/safipay/pkg/logger"
	"github.com/kariuki00743/safipay/pkg/mpesa"
)

// Outcome classifies a processed callback for logs and metrics.
type Outcome string

const (
	OutcomeApplied   Outcome = "applied"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeUnmatched Outcome = "unmatched"
	OutcomeStale     Outcome = "stale"
	OutcomeMalformed Outcome = "malformed"
	OutcomeError     Outcome = "error"
)

type paymentApplier interface {
	ApplyPaymentResult(ctx context.Context, result transactions.PaymentResult) (transactions.Outcome, error)
}

type callbackRecorder interface {
	IncCallback(outcome string)
}

type ReconcilerParams struct {
	Payments paymentApplier
	// Guard is optional; without it every delivery reaches the database.
	Guard   *DeliveryGuard
	Metrics callbackRecorder
	Logger  *logger.Logger
}

// Reconciler turns provider callbacks into payment results. It never fails
// the delivery; the provider is always acknowledged.
type Reconciler struct {
	payments paymentApplier
	guard    *DeliveryGuard
	metrics  callbackRecorder
	logg     *logger.Logger
}

func NewReconciler(params ReconcilerParams) (*Reconciler, error) {
	if params.Payments == nil {
		return nil, errors.New("payment applier required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	return &Reconciler{
		payments: params.Payments,
		guard:    params.Guard,
		metrics:  params.Metrics,
		logg:     params.Logger,
	}, nil
}

func (r *Reconciler) Handle(ctx context.Context, raw []byte) Outcome {
	outcome := r.handle(ctx, raw)
	if r.metrics != nil {
		r.metrics.IncCallback(string(outcome))
	}
	return outcome
}

func (r *Reconciler) handle(ctx context.Context, raw []byte) Outcome {
	cb, err := mpesa.ParseCallback(raw)
	if err != nil {
		r.logg.Warn(r.logg.WithFields(ctx, map[string]any{
			"error":      err.Error(),
			"body_bytes": len(raw),
		}), "mpesa.callback.malformed")
		return OutcomeMalformed
	}
	code, _ := cb.Code()
	ctx = r.logg.WithCheckoutRequestID(ctx, cb.CheckoutRequestID)
	ctx = r.logg.WithFields(ctx, map[string]any{
		"result_code": code,
		"result_desc": cb.ResultDesc,
	})

	if r.guard != nil {
		seen, err := r.guard.CheckAndMark(ctx, cb.CheckoutRequestID, code)
		switch {
		case err != nil:
			r.logg.Warn(r.logg.WithField(ctx, "error", err.Error()), "mpesa.callback.guard_unavailable")
		case seen:
			r.logg.Info(ctx, "mpesa.callback.duplicate")
			return OutcomeDuplicate
		}
	}

	result := transactions.PaymentResult{
		CheckoutRequestID: cb.CheckoutRequestID,
		Succeeded:         cb.Succeeded(),
		ResultCode:        code,
		ResultDesc:        cb.ResultDesc,
		Receipt:           cb.Receipt(),
		Phone:             cb.PhoneNumber(),
	}
	if amount, ok := cb.Amount(); ok {
		result.AmountCents = &amount
	}

	applied, err := r.payments.ApplyPaymentResult(ctx, result)
	if err != nil {
		r.logg.Error(ctx, "mpesa.callback.apply_failed", err)
		if r.guard != nil {
			if relErr := r.guard.Release(ctx, cb.CheckoutRequestID, code); relErr != nil {
				r.logg.Warn(r.logg.WithField(ctx, "error", relErr.Error()), "mpesa.callback.guard_release_failed")
			}
		}
		return OutcomeError
	}

	switch applied {
	case transactions.OutcomeApplied:
		r.logg.Info(ctx, "mpesa.callback.applied")
		return OutcomeApplied
	case transactions.OutcomeUnmatched:
		return OutcomeUnmatched
	default:
		return OutcomeStale
	}
}
