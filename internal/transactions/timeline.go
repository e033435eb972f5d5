package transactions

import (
	"sort"
	"time"

	"github.com/kariuki00743/safipay/pkg/db/models"
	"github.com/kariuki00743/safipay/pkg/enums"
)

// TimelineEvent is one milestone shown on the transaction page.
type TimelineEvent struct {
	Title string    `json:"title"`
	At    time.Time `json:"at"`
}

// BuildTimeline derives the milestones from the row's lifecycle columns,
// oldest first.
func BuildTimeline(tx models.Transaction) []TimelineEvent {
	events := []TimelineEvent{{Title: "Transaction Created", At: tx.CreatedAt}}

	if tx.MpesaCode != nil && tx.Status == enums.TransactionStatusPendingPayment {
		events = append(events, TimelineEvent{Title: "Payment Requested", At: tx.UpdatedAt})
	}
	if tx.PaidAt != nil {
		events = append(events, TimelineEvent{Title: "Payment Received", At: *tx.PaidAt})
	}
	if tx.DisputedAt != nil {
		events = append(events, TimelineEvent{Title: "Dispute Raised", At: *tx.DisputedAt})
	}
	if tx.RefundedAt != nil {
		events = append(events, TimelineEvent{Title: "Refund Processed", At: *tx.RefundedAt})
	}
	if tx.CompletedAt != nil {
		events = append(events, TimelineEvent{Title: "Transaction Complete", At: *tx.CompletedAt})
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].At.Before(events[j].At)
	})
	return events
}
