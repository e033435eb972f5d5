package mpesa

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ResultCodeSuccess is the callback result for a completed payment.
const ResultCodeSuccess = 0

const (
	metadataReceipt = "MpesaReceiptNumber"
	metadataAmount  = "Amount"
	metadataPhone   = "PhoneNumber"
)

var ErrMissingCheckoutRequestID = errors.New("callback missing CheckoutRequestID")

// CallbackEnvelope is the body Daraja posts to the callback URL.
type CallbackEnvelope struct {
	Body struct {
		STKCallback *STKCallback `json:"stkCallback"`
	} `json:"Body"`
}

type STKCallback struct {
	MerchantRequestID string            `json:"MerchantRequestID"`
	CheckoutRequestID string            `json:"CheckoutRequestID"`
	ResultCode        json.Number       `json:"ResultCode"`
	ResultDesc        string            `json:"ResultDesc"`
	CallbackMetadata  *CallbackMetadata `json:"CallbackMetadata,omitempty"`
}

type CallbackMetadata struct {
	Item []MetadataItem `json:"Item"`
}

type MetadataItem struct {
	Name  string `json:"Name"`
	Value any    `json:"Value,omitempty"`
}

// ParseCallback decodes raw into the minimal callback shape. Numbers are kept
// as json.Number so phone numbers and receipts survive intact.
func ParseCallback(raw []byte) (*STKCallback, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var envelope CallbackEnvelope
	if err := dec.Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode callback: %w", err)
	}
	cb := envelope.Body.STKCallback
	if cb == nil || strings.TrimSpace(cb.CheckoutRequestID) == "" {
		return nil, ErrMissingCheckoutRequestID
	}
	if _, err := cb.Code(); err != nil {
		return nil, err
	}
	cb.CheckoutRequestID = strings.TrimSpace(cb.CheckoutRequestID)
	return cb, nil
}

// Code returns the numeric result code.
func (c *STKCallback) Code() (int, error) {
	code, err := strconv.Atoi(strings.TrimSpace(c.ResultCode.String()))
	if err != nil {
		return 0, fmt.Errorf("callback result code %q: %w", c.ResultCode, err)
	}
	return code, nil
}

// Succeeded reports whether the buyer completed the payment.
func (c *STKCallback) Succeeded() bool {
	code, err := c.Code()
	return err == nil && code == ResultCodeSuccess
}

// Receipt returns the M-Pesa receipt number, if present.
func (c *STKCallback) Receipt() string {
	return c.metadataString(metadataReceipt)
}

// PhoneNumber returns the paying subscriber's number, if present.
func (c *STKCallback) PhoneNumber() string {
	return c.metadataString(metadataPhone)
}

// Amount returns the confirmed amount in minor units.
func (c *STKCallback) Amount() (int64, bool) {
	raw := c.metadataString(metadataAmount)
	if raw == "" {
		return 0, false
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, false
	}
	return value.Shift(2).Round(0).IntPart(), true
}

func (c *STKCallback) metadataString(name string) string {
	if c == nil || c.CallbackMetadata == nil {
		return ""
	}
	for _, item := range c.CallbackMetadata.Item {
		if item.Name != name {
			continue
		}
		switch v := item.Value.(type) {
		case json.Number:
			return v.String()
		case string:
			return strings.TrimSpace(v)
		case nil:
			return ""
		default:
			return fmt.Sprint(v)
		}
	}
	return ""
}
