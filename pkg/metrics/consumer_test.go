package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestConsumerMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewConsumerMetrics(reg)
	consumer := "lead_matching"
	metrics.ObserveDuration(consumer, 250*time.Millisecond)
	metrics.IncAcked(consumer)
	metrics.IncNacked(consumer)
	metrics.IncFailure(consumer)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "consumer_messages_acked", "consumer", consumer); err != nil {
		t.Fatalf("fetch acked: %v", err)
	} else if got != 1 {
		t.Fatalf("expected acked=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "consumer_messages_nacked", "consumer", consumer); err != nil {
		t.Fatalf("fetch nacked: %v", err)
	} else if got != 1 {
		t.Fatalf("expected nacked=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "consumer_domain_failures", "consumer", consumer); err != nil {
		t.Fatalf("fetch failures: %v", err)
	} else if got != 1 {
		t.Fatalf("expected failures=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "consumer_message_duration_seconds", "consumer", consumer); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestConsumerMetricsNilRegistererIsNoop(t *testing.T) {
	metrics := NewConsumerMetrics(nil)
	metrics.ObserveDuration("x", time.Second)
	metrics.IncAcked("x")
	metrics.IncNacked("x")
	metrics.IncFailure("x")
}

func TestConsumerMetricsEmptyLabelFallsBack(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewConsumerMetrics(reg)
	metrics.IncAcked("")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "consumer_messages_acked", "consumer", "unknown"); err != nil {
		t.Fatalf("fetch acked: %v", err)
	} else if got != 1 {
		t.Fatalf("expected acked=1 under unknown label, got %f", got)
	}
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
