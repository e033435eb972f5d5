package webhooks

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/kariuki00743/safipay/api/responses"
	mpesawebhook "github.com/kariuki00743/safipay/internal/webhooks/mpesa"
	"github.com/kariuki00743/safipay/pkg/logger"
)

const maxCallbackBytes = 64 << 10

type callbackHandler interface {
	Handle(ctx context.Context, raw []byte) mpesawebhook.Outcome
}

// MPesaCallback receives STK push results. The provider retries anything other
// than an accepted ack, so every path answers ResultCode 0.
func MPesaCallback(handler callbackHandler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// The provider hanging up must not abort a half-applied result.
		ctx := context.WithoutCancel(r.Context())

		defer func() {
			if rec := recover(); rec != nil {
				logg.Error(ctx, "mpesa callback panic", fmt.Errorf("panic: %v", rec))
				responses.WriteCallbackAck(w)
			}
		}()

		if handler == nil {
			logg.Warn(ctx, "mpesa callback received without a reconciler")
			responses.WriteCallbackAck(w)
			return
		}

		payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxCallbackBytes))
		if err != nil {
			logg.Error(ctx, "read mpesa callback body", err)
			responses.WriteCallbackAck(w)
			return
		}

		outcome := handler.Handle(ctx, payload)
		ctx = logg.WithField(ctx, "outcome", string(outcome))
		logg.Info(ctx, "mpesa callback acknowledged")
		responses.WriteCallbackAck(w)
	}
}
