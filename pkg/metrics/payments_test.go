package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestPaymentMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewPaymentMetrics(reg)
	metrics.IncTransition("release", "applied")
	metrics.IncTransition("release", "rejected")
	metrics.IncCallback("paid")
	metrics.IncNotification("funds_released", "sent")
	metrics.ObserveGatewayCall("stk_push", "ok", 250*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "safipay_transitions_total", "result", "applied"); err != nil {
		t.Fatalf("fetch transitions: %v", err)
	} else if got != 1 {
		t.Fatalf("expected applied=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "safipay_callbacks_total", "outcome", "paid"); err != nil {
		t.Fatalf("fetch callbacks: %v", err)
	} else if got != 1 {
		t.Fatalf("expected paid=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "safipay_notifications_total", "event", "funds_released"); err != nil {
		t.Fatalf("fetch notifications: %v", err)
	} else if got != 1 {
		t.Fatalf("expected sent=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "safipay_gateway_request_duration_seconds", "operation", "stk_push"); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	var metrics *PaymentMetrics
	metrics.IncTransition("release", "applied")
	metrics.IncCallback("paid")
	metrics.ObserveGatewayCall("token", "ok", time.Second)

	NewPaymentMetrics(nil).IncCallback("paid")
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
