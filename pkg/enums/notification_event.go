package enums

import "fmt"

// NotificationEvent names the email sent after a committed transition.
type NotificationEvent string

const (
	NotificationEventTransactionCreated NotificationEvent = "transaction_created"
	NotificationEventPaymentReceived    NotificationEvent = "payment_received"
	NotificationEventPaymentFailed      NotificationEvent = "payment_failed"
	NotificationEventFundsReleased      NotificationEvent = "funds_released"
	NotificationEventDisputeRaised      NotificationEvent = "dispute_raised"
	NotificationEventRefundProcessed    NotificationEvent = "refund_processed"
)

var validNotificationEvents = []NotificationEvent{
	NotificationEventTransactionCreated,
	NotificationEventPaymentReceived,
	NotificationEventPaymentFailed,
	NotificationEventFundsReleased,
	NotificationEventDisputeRaised,
	NotificationEventRefundProcessed,
}

// String implements fmt.Stringer.
func (e NotificationEvent) String() string {
	return string(e)
}

// IsValid checks whether the given event matches a known template.
func (e NotificationEvent) IsValid() bool {
	for _, candidate := range validNotificationEvents {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseNotificationEvent converts raw strings into NotificationEvent.
func ParseNotificationEvent(value string) (NotificationEvent, error) {
	for _, candidate := range validNotificationEvents {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification event %q", value)
}
