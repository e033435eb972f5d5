package mpesa

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/kariuki00743/safipay/pkg/errors"
)

const (
	transactionType        = "CustomerPayBillOnline"
	accountReferencePrefix = "SafiPay-"
	defaultDescription     = "SafiPay escrow"
	timestampLayout        = "20060102150405"

	// returned by the query endpoint while the buyer has not answered the prompt
	errorCodeStillProcessing = "500.001.1001"
)

// Daraja timestamps are Kenyan local time; Kenya observes no DST.
var nairobi = time.FixedZone("EAT", 3*60*60)

// PushRequest describes one STK push for an escrow transaction.
type PushRequest struct {
	TransactionID string
	// Phone must already be in canonical 254XXXXXXXXX form.
	Phone       string
	AmountCents int64
	Description string
}

// PushResponse is the provider acknowledgement of an accepted push.
type PushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

// QueryResult reports the provider's view of an earlier push.
type QueryResult struct {
	MerchantRequestID string `json:"MerchantRequestID"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
	ResponseCode      string `json:"ResponseCode"`
	ResultCode        string `json:"ResultCode"`
	ResultDesc        string `json:"ResultDesc"`
	// Pending is set when the buyer has not yet answered the prompt.
	Pending bool `json:"-"`
}

// Code returns the numeric result code.
func (q QueryResult) Code() (int, error) {
	return strconv.Atoi(strings.TrimSpace(q.ResultCode))
}

type pushPayload struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

type queryPayload struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
}

type providerError struct {
	RequestID    string `json:"requestId"`
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

// Timestamp formats t the way the password and request bodies expect.
func Timestamp(t time.Time) string {
	return t.In(nairobi).Format(timestampLayout)
}

// Password is base64(shortcode + passkey + timestamp).
func Password(shortcode, passkey, timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(shortcode + passkey + timestamp))
}

// WholeUnits rounds minor units up to whole shillings.
func WholeUnits(amountCents int64) int64 {
	return decimal.New(amountCents, -2).Ceil().IntPart()
}

// AccountReference embeds the transaction id so statements can be traced back.
func AccountReference(transactionID string) string {
	return accountReferencePrefix + transactionID
}

// PushPayment submits an STK push. It is never retried here; callers stay in
// their current state and may retry by hand.
func (c *Client) PushPayment(ctx context.Context, req PushRequest) (result *PushResponse, err error) {
	if strings.TrimSpace(req.Phone) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "phone is required")
	}
	amount := WholeUnits(req.AmountCents)
	if amount < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be at least 1")
	}

	token, err := c.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() { c.observe("stk_push", start, err) }()

	description := strings.TrimSpace(req.Description)
	if description == "" {
		description = defaultDescription
	}

	timestamp := Timestamp(c.now())
	payload := pushPayload{
		BusinessShortCode: c.shortcode,
		Password:          Password(c.shortcode, c.passkey, timestamp),
		Timestamp:         timestamp,
		TransactionType:   transactionType,
		Amount:            amount,
		PartyA:            req.Phone,
		PartyB:            c.shortcode,
		PhoneNumber:       req.Phone,
		CallBackURL:       c.callbackURL,
		AccountReference:  AccountReference(req.TransactionID),
		TransactionDesc:   description,
	}

	status, raw, err := c.postJSON(ctx, pushPath, token, payload)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstreamPayment, err, "stk push request failed")
	}
	if status == http.StatusUnauthorized {
		c.InvalidateToken()
	}
	if !isSuccess(status) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstreamPayment, statusError(status, raw), "STK push failed").
			WithDetails(upstreamDetails(status, raw))
	}

	var parsed PushResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstreamPayment, err, "decode stk push response").
			WithDetails(upstreamDetails(status, raw))
	}
	if strings.TrimSpace(parsed.ResponseCode) != "0" {
		return nil, pkgerrors.New(pkgerrors.CodeUpstreamPayment, "STK push rejected").
			WithDetails(upstreamDetails(status, raw))
	}
	if strings.TrimSpace(parsed.CheckoutRequestID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUpstreamPayment, "stk push response missing CheckoutRequestID").
			WithDetails(upstreamDetails(status, raw))
	}

	return &parsed, nil
}

// QueryPushPayment asks the provider for the outcome of an earlier push.
func (c *Client) QueryPushPayment(ctx context.Context, checkoutRequestID string) (result *QueryResult, err error) {
	checkoutRequestID = strings.TrimSpace(checkoutRequestID)
	if checkoutRequestID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout request id is required")
	}

	token, err := c.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() { c.observe("stk_query", start, err) }()

	timestamp := Timestamp(c.now())
	status, raw, err := c.postJSON(ctx, queryPath, token, queryPayload{
		BusinessShortCode: c.shortcode,
		Password:          Password(c.shortcode, c.passkey, timestamp),
		Timestamp:         timestamp,
		CheckoutRequestID: checkoutRequestID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstreamPayment, err, "stk query request failed")
	}
	if status == http.StatusUnauthorized {
		c.InvalidateToken()
	}

	if !isSuccess(status) {
		var perr providerError
		if json.Unmarshal(raw, &perr) == nil && perr.ErrorCode == errorCodeStillProcessing {
			return &QueryResult{CheckoutRequestID: checkoutRequestID, ResultDesc: perr.ErrorMessage, Pending: true}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstreamPayment, statusError(status, raw), "STK query failed").
			WithDetails(upstreamDetails(status, raw))
	}

	var parsed QueryResult
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstreamPayment, err, "decode stk query response").
			WithDetails(upstreamDetails(status, raw))
	}
	if _, err := parsed.Code(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstreamPayment, fmt.Errorf("result code %q: %w", parsed.ResultCode, err), "stk query response missing ResultCode").
			WithDetails(upstreamDetails(status, raw))
	}
	if parsed.CheckoutRequestID == "" {
		parsed.CheckoutRequestID = checkoutRequestID
	}
	return &parsed, nil
}
