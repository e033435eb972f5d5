package notifications

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/kariuki00743/safipay/pkg/db/models"
	"github.com/kariuki00743/safipay/pkg/enums"
)

// Message is a rendered email ready for a sender.
type Message struct {
	Subject string
	HTML    string
}

type detailRow struct {
	Label string
	Value string
}

type content struct {
	subject string
	heading string
	status  string
	body    string
	extra   func(tx models.Transaction) []detailRow
}

type layoutData struct {
	Heading      string
	Rows         []detailRow
	Body         string
	DashboardURL string
}

var contents = map[enums.NotificationEvent]content{
	enums.NotificationEventTransactionCreated: {
		subject: "SafiPay: New Escrow Transaction - KES %s",
		heading: "New Transaction Created",
		status:  "In Escrow",
		body:    "The funds are now held securely in escrow. The buyer can proceed with payment via M-Pesa.",
		extra: func(tx models.Transaction) []detailRow {
			return []detailRow{
				{Label: "Buyer", Value: tx.BuyerEmail},
				{Label: "Seller", Value: tx.SellerEmail},
			}
		},
	},
	enums.NotificationEventPaymentReceived: {
		subject: "SafiPay: Payment Received - KES %s",
		heading: "Payment Received!",
		status:  "Paid",
		body:    "The payment has been confirmed and funds are held securely. The buyer can release funds once satisfied with the goods/services.",
		extra: func(tx models.Transaction) []detailRow {
			return []detailRow{{Label: "M-Pesa Receipt", Value: deref(tx.MpesaReceipt)}}
		},
	},
	enums.NotificationEventPaymentFailed: {
		subject: "SafiPay: Payment Not Completed - KES %s",
		heading: "Payment Not Completed",
		status:  "Awaiting Payment",
		body:    "The M-Pesa payment did not go through. The funds were not collected and a new payment request can be sent from the dashboard.",
		extra: func(tx models.Transaction) []detailRow {
			return []detailRow{{Label: "Reason", Value: deref(tx.PaymentError)}}
		},
	},
	enums.NotificationEventFundsReleased: {
		subject: "SafiPay: Funds Released - KES %s",
		heading: "Funds Released!",
		status:  "Complete",
		body:    "The transaction has been completed successfully. Funds have been released to the seller.",
	},
	enums.NotificationEventDisputeRaised: {
		subject: "SafiPay: Dispute Raised - Action Required",
		heading: "Dispute Raised",
		status:  "Under Review",
		body:    "A dispute has been raised for this transaction. Our team will review and respond within 48 hours.",
		extra: func(tx models.Transaction) []detailRow {
			return []detailRow{{Label: "Reason", Value: deref(tx.DisputeReason)}}
		},
	},
	enums.NotificationEventRefundProcessed: {
		subject: "SafiPay: Refund Processed - KES %s",
		heading: "Refund Processed",
		status:  "Refunded",
		body:    "Your refund has been processed. The funds will be returned to the buyer's M-Pesa account.",
	},
}

var layout = template.Must(template.New("email").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; background: #f5f5f5; padding: 20px;">
  <div style="background: #090e0a; color: #e8f5ec; padding: 30px; border-radius: 10px;">
    <h1 style="color: #00c566; margin: 0 0 20px 0;">SafiPay Escrow</h1>
    <h2 style="margin: 0 0 20px 0;">{{.Heading}}</h2>
    <div style="background: #152019; padding: 20px; border-radius: 8px; margin: 20px 0;">
      <p style="margin: 0 0 10px 0; color: #6b9178;">Transaction Details:</p>
      {{- range .Rows}}
      <p style="margin: 5px 0;"><strong>{{.Label}}:</strong> {{.Value}}</p>
      {{- end}}
    </div>
    <p style="color: #6b9178; margin: 20px 0;">{{.Body}}</p>
    <a href="{{.DashboardURL}}" style="display: inline-block; background: #00c566; color: #000; padding: 12px 30px; text-decoration: none; border-radius: 25px; font-weight: bold; margin: 20px 0;">View Transaction</a>
  </div>
</div>`))

var printer = message.NewPrinter(language.English)

// FormatKES renders minor units with thousands separators, keeping cents
// only when present: 150000 -> "1,500", 150050 -> "1,500.50".
func FormatKES(amountCents int64) string {
	sign := ""
	if amountCents < 0 {
		sign = "-"
		amountCents = -amountCents
	}
	whole := printer.Sprintf("%d", amountCents/100)
	if cents := amountCents % 100; cents != 0 {
		return fmt.Sprintf("%s%s.%02d", sign, whole, cents)
	}
	return sign + whole
}

// Render builds the email for event.
func Render(event enums.NotificationEvent, tx models.Transaction, frontendURL string) (Message, error) {
	c, ok := contents[event]
	if !ok {
		return Message{}, fmt.Errorf("no template for event %q", event)
	}

	amount := FormatKES(tx.AmountCents)
	rows := []detailRow{
		{Label: "Description", Value: tx.Description},
		{Label: "Amount", Value: "KES " + amount},
	}
	if c.extra != nil {
		rows = append(rows, c.extra(tx)...)
	}
	rows = append(rows, detailRow{Label: "Status", Value: c.status})

	var buf bytes.Buffer
	err := layout.Execute(&buf, layoutData{
		Heading:      c.heading,
		Rows:         rows,
		Body:         c.body,
		DashboardURL: strings.TrimRight(frontendURL, "/") + "/dashboard",
	})
	if err != nil {
		return Message{}, fmt.Errorf("render %s email: %w", event, err)
	}

	subject := c.subject
	if strings.Contains(subject, "%s") {
		subject = fmt.Sprintf(subject, amount)
	}
	return Message{Subject: subject, HTML: buf.String()}, nil
}

// Recipients lists who receives event. Refunds go to the buyer only.
func Recipients(event enums.NotificationEvent, tx models.Transaction) []string {
	if event == enums.NotificationEventRefundProcessed {
		return nonEmpty(tx.BuyerEmail)
	}
	return nonEmpty(tx.BuyerEmail, tx.SellerEmail)
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
