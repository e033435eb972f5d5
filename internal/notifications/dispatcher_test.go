package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kariuki00743/safipay/pkg/config"
	"github.com/kariuki00743/safipay/pkg/enums"
	"github.com/kariuki00743/safipay/pkg/logger"
)

type fakeSender struct {
	sent []Email
	fail map[string]error
}

func (s *fakeSender) Send(_ context.Context, email Email) error {
	if err := s.fail[email.To]; err != nil {
		return err
	}
	s.sent = append(s.sent, email)
	return nil
}

type notificationCounts map[string]int

func (c notificationCounts) IncNotification(event, result string) {
	c[event+"/"+result]++
}

func TestDispatcherSendsToEveryRecipient(t *testing.T) {
	sender := &fakeSender{}
	counts := notificationCounts{}
	d, err := NewDispatcher(sender, "http://localhost:5173", counts, logger.Nop())
	require.NoError(t, err)

	require.NoError(t, d.Notify(context.Background(), enums.NotificationEventFundsReleased, sampleTransaction()))
	require.Len(t, sender.sent, 2)
	assert.Equal(t, "buyer@example.com", sender.sent[0].To)
	assert.Equal(t, "seller@example.com", sender.sent[1].To)
	assert.Equal(t, "SafiPay: Funds Released - KES 1,500.50", sender.sent[0].Subject)
	assert.Equal(t, 2, counts["funds_released/sent"])
}

func TestDispatcherCombinesFailures(t *testing.T) {
	sender := &fakeSender{fail: map[string]error{"buyer@example.com": errors.New("mailbox full")}}
	counts := notificationCounts{}
	d, err := NewDispatcher(sender, "", counts, logger.Nop())
	require.NoError(t, err)

	err = d.Notify(context.Background(), enums.NotificationEventPaymentReceived, sampleTransaction())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mailbox full")
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "seller@example.com", sender.sent[0].To)
	assert.Equal(t, 1, counts["payment_received/failed"])
	assert.Equal(t, 1, counts["payment_received/sent"])
}

func TestSendgridSenderPostsMail(t *testing.T) {
	var body map[string]any
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, sendgridEndpoint, r.URL.Path)
		auth = r.Header.Get("Authorization")
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, &body))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	cfg := config.NotificationsConfig{SendgridAPIKey: "SG.test", FromEmail: "noreply@safipay.com", FromName: "SafiPay"}
	sender := NewSendgridSender(cfg, server.URL)
	require.NoError(t, sender.Send(context.Background(), Email{To: "buyer@example.com", Subject: "hi", HTML: "<p>hi</p>"}))

	assert.Equal(t, "Bearer SG.test", auth)
	assert.Equal(t, "hi", body["subject"])
	from, ok := body["from"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "noreply@safipay.com", from["email"])
}

func TestSendgridSenderRejectsErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errors":[{"message":"bad key"}]}`))
	}))
	defer server.Close()

	sender := NewSendgridSender(config.NotificationsConfig{SendgridAPIKey: "bad"}, server.URL)
	err := sender.Send(context.Background(), Email{To: "buyer@example.com", Subject: "hi", HTML: "<p>hi</p>"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestNewSenderFallsBackToLog(t *testing.T) {
	_, ok := NewSender(config.NotificationsConfig{}, logger.Nop()).(*LogSender)
	assert.True(t, ok)
	_, ok = NewSender(config.NotificationsConfig{SendgridAPIKey: "SG.x"}, logger.Nop()).(*SendgridSender)
	assert.True(t, ok)
}
