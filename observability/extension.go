// Package observability provides a metrics extension for Recur that records
// lifecycle event counts via a caller-supplied MetricFactory.
package observability

import (
	"context"

	"github.com/xraph/recur/access"
	"github.com/xraph/recur/payment"
	"github.com/xraph/recur/plugin"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                 = (*MetricsExtension)(nil)
	_ plugin.OnInit                 = (*MetricsExtension)(nil)
	_ plugin.OnPlanCreated          = (*MetricsExtension)(nil)
	_ plugin.OnPlanDeactivated      = (*MetricsExtension)(nil)
	_ plugin.OnPlanClosed           = (*MetricsExtension)(nil)
	_ plugin.OnSubscriptionCreated  = (*MetricsExtension)(nil)
	_ plugin.OnSubscriptionRenewed  = (*MetricsExtension)(nil)
	_ plugin.OnSubscriptionCanceled = (*MetricsExtension)(nil)
	_ plugin.OnSubscriptionClosed   = (*MetricsExtension)(nil)
	_ plugin.OnAccessChecked        = (*MetricsExtension)(nil)
	_ plugin.OnPaymentRecorded      = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as a Recur plugin to automatically track billing metrics.
type MetricsExtension struct {
	factory MetricFactory

	// Plan metrics
	PlanCreated     Counter
	PlanDeactivated Counter
	PlanClosed      Counter

	// Subscription metrics
	SubscriptionCreated  Counter
	SubscriptionRenewed  Counter
	SubscriptionCanceled Counter
	SubscriptionClosed   Counter

	// Access metrics
	AccessGranted Counter
	AccessDenied  Counter

	// Payment metrics
	PaymentsRecorded Counter
	PaymentAmount    Histogram
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Plan metrics
		PlanCreated:     factory.Counter("recur.plan.created"),
		PlanDeactivated: factory.Counter("recur.plan.deactivated"),
		PlanClosed:      factory.Counter("recur.plan.closed"),

		// Subscription metrics
		SubscriptionCreated:  factory.Counter("recur.subscription.created"),
		SubscriptionRenewed:  factory.Counter("recur.subscription.renewed"),
		SubscriptionCanceled: factory.Counter("recur.subscription.canceled"),
		SubscriptionClosed:   factory.Counter("recur.subscription.closed"),

		// Access metrics
		AccessGranted: factory.Counter("recur.access.granted"),
		AccessDenied:  factory.Counter("recur.access.denied"),

		// Payment metrics
		PaymentsRecorded: factory.Counter("recur.payment.recorded"),
		PaymentAmount:    factory.Histogram("recur.payment.amount"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	// No initialization needed
	return nil
}

// ──────────────────────────────────────────────────
// Plan lifecycle hooks
// ──────────────────────────────────────────────────

// OnPlanCreated implements plugin.OnPlanCreated.
func (m *MetricsExtension) OnPlanCreated(_ context.Context, _ interface{}) error {
	m.PlanCreated.Inc()
	return nil
}

// OnPlanDeactivated implements plugin.OnPlanDeactivated.
func (m *MetricsExtension) OnPlanDeactivated(_ context.Context, _ interface{}) error {
	m.PlanDeactivated.Inc()
	return nil
}

// OnPlanClosed implements plugin.OnPlanClosed.
func (m *MetricsExtension) OnPlanClosed(_ context.Context, _ string) error {
	m.PlanClosed.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Subscription lifecycle hooks
// ──────────────────────────────────────────────────

// OnSubscriptionCreated implements plugin.OnSubscriptionCreated.
func (m *MetricsExtension) OnSubscriptionCreated(_ context.Context, _ interface{}) error {
	m.SubscriptionCreated.Inc()
	return nil
}

// OnSubscriptionRenewed implements plugin.OnSubscriptionRenewed.
func (m *MetricsExtension) OnSubscriptionRenewed(_ context.Context, _ interface{}) error {
	m.SubscriptionRenewed.Inc()
	return nil
}

// OnSubscriptionCanceled implements plugin.OnSubscriptionCanceled.
func (m *MetricsExtension) OnSubscriptionCanceled(_ context.Context, _ interface{}) error {
	m.SubscriptionCanceled.Inc()
	return nil
}

// OnSubscriptionClosed implements plugin.OnSubscriptionClosed.
func (m *MetricsExtension) OnSubscriptionClosed(_ context.Context, _ string) error {
	m.SubscriptionClosed.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Access and payment hooks
// ──────────────────────────────────────────────────

// OnAccessChecked implements plugin.OnAccessChecked.
func (m *MetricsExtension) OnAccessChecked(_ context.Context, v interface{}) error {
	result, ok := v.(*access.Result)
	if !ok {
		return nil
	}

	if result.Granted {
		m.AccessGranted.Inc()
	} else {
		m.AccessDenied.Inc()
	}
	return nil
}

// OnPaymentRecorded implements plugin.OnPaymentRecorded.
func (m *MetricsExtension) OnPaymentRecorded(_ context.Context, v interface{}) error {
	m.PaymentsRecorded.Inc()

	if p, ok := v.(*payment.Payment); ok {
		m.PaymentAmount.Observe(float64(p.Amount))
	}
	return nil
}
