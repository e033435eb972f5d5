package mpesawebhook

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type guardStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	CallbackKey(checkoutRequestID string, resultCode int) string
}

// DeliveryGuard remembers which (CheckoutRequestID, ResultCode) pairs were
// already handled so exact redeliveries skip the database.
type DeliveryGuard struct {
	store guardStore
	ttl   time.Duration
}

func NewDeliveryGuard(store guardStore, ttl time.Duration) (*DeliveryGuard, error) {
	if store == nil {
		return nil, errors.New("guard store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &DeliveryGuard{store: store, ttl: ttl}, nil
}

// CheckAndMark reports whether the delivery was seen before, marking it otherwise.
func (g *DeliveryGuard) CheckAndMark(ctx context.Context, checkoutRequestID string, resultCode int) (bool, error) {
	if checkoutRequestID == "" {
		return false, errors.New("checkout request id is required")
	}
	set, err := g.store.SetNX(ctx, g.store.CallbackKey(checkoutRequestID, resultCode), "1", g.ttl)
	if err != nil {
		return false, fmt.Errorf("set callback guard: %w", err)
	}
	return !set, nil
}

// Release forgets the delivery so a redelivery is processed again.
func (g *DeliveryGuard) Release(ctx context.Context, checkoutRequestID string, resultCode int) error {
	if checkoutRequestID == "" {
		return errors.New("checkout request id is required")
	}
	return g.store.Del(ctx, g.store.CallbackKey(checkoutRequestID, resultCode))
}
