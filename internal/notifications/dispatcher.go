package notifications

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/kariuki00743/safipay/pkg/db/models"
	"github.com/kariuki00743/safipay/pkg/enums"
	"github.com/kariuki00743/safipay/pkg/logger"
)

type notificationRecorder interface {
	IncNotification(event, result string)
}

// Dispatcher renders the email for an event and sends it to every recipient.
type Dispatcher struct {
	sender      Sender
	frontendURL string
	metrics     notificationRecorder
	logg        *logger.Logger
}

// NewDispatcher wires the dispatcher. metrics may be nil.
func NewDispatcher(sender Sender, frontendURL string, metrics notificationRecorder, logg *logger.Logger) (*Dispatcher, error) {
	if sender == nil {
		return nil, fmt.Errorf("email sender required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Dispatcher{
		sender:      sender,
		frontendURL: frontendURL,
		metrics:     metrics,
		logg:        logg,
	}, nil
}

// Notify sends the message for event. Every recipient is attempted; failures
// are combined.
func (d *Dispatcher) Notify(ctx context.Context, event enums.NotificationEvent, tx models.Transaction) error {
	ctx = d.logg.WithTransactionID(ctx, tx.ID.String())
	msg, err := Render(event, tx, d.frontendURL)
	if err != nil {
		d.record(event, "failed")
		return err
	}

	var errs error
	for _, to := range Recipients(event, tx) {
		sendErr := d.sender.Send(ctx, Email{To: to, Subject: msg.Subject, HTML: msg.HTML})
		if sendErr != nil {
			d.record(event, "failed")
			errs = multierr.Append(errs, fmt.Errorf("send %s to %s: %w", event, to, sendErr))
			continue
		}
		d.record(event, "sent")
	}
	if errs == nil {
		d.logg.Debug(d.logg.WithField(ctx, "event", string(event)), "notifications.dispatched")
	}
	return errs
}

func (d *Dispatcher) record(event enums.NotificationEvent, result string) {
	if d.metrics == nil {
		return
	}
	d.metrics.IncNotification(string(event), result)
}
