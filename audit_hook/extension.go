// Package audithook bridges Recur lifecycle events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not import any
// particular audit system directly. Callers inject a RecorderFunc adapter
// that bridges to their backend at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/recur/access"
	"github.com/xraph/recur/payment"
	"github.com/xraph/recur/plan"
	"github.com/xraph/recur/plugin"
	"github.com/xraph/recur/subscription"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                 = (*Extension)(nil)
	_ plugin.OnPlanCreated          = (*Extension)(nil)
	_ plugin.OnPlanDeactivated      = (*Extension)(nil)
	_ plugin.OnPlanClosed           = (*Extension)(nil)
	_ plugin.OnSubscriptionCreated  = (*Extension)(nil)
	_ plugin.OnSubscriptionRenewed  = (*Extension)(nil)
	_ plugin.OnSubscriptionCanceled = (*Extension)(nil)
	_ plugin.OnSubscriptionClosed   = (*Extension)(nil)
	_ plugin.OnAccessChecked        = (*Extension)(nil)
	_ plugin.OnPaymentRecorded      = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
// It is defined locally so that the audit_hook package does not import an
// audit system directly — callers inject the concrete backend at wiring time.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges Recur lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Plan lifecycle hooks
// ──────────────────────────────────────────────────

// OnPlanCreated implements plugin.OnPlanCreated.
func (e *Extension) OnPlanCreated(ctx context.Context, v interface{}) error {
	addr, kv := planDetails(v)
	return e.record(ctx, ActionPlanCreated, SeverityInfo, OutcomeSuccess,
		ResourcePlan, addr, CategoryBilling, nil, kv...)
}

// OnPlanDeactivated implements plugin.OnPlanDeactivated.
func (e *Extension) OnPlanDeactivated(ctx context.Context, v interface{}) error {
	addr, kv := planDetails(v)
	return e.record(ctx, ActionPlanDeactivated, SeverityInfo, OutcomeSuccess,
		ResourcePlan, addr, CategoryBilling, nil, kv...)
}

// OnPlanClosed implements plugin.OnPlanClosed.
func (e *Extension) OnPlanClosed(ctx context.Context, addr string) error {
	return e.record(ctx, ActionPlanClosed, SeverityInfo, OutcomeSuccess,
		ResourcePlan, addr, CategoryBilling, nil,
		"plan", addr,
	)
}

// ──────────────────────────────────────────────────
// Subscription lifecycle hooks
// ──────────────────────────────────────────────────

// OnSubscriptionCreated implements plugin.OnSubscriptionCreated.
func (e *Extension) OnSubscriptionCreated(ctx context.Context, v interface{}) error {
	addr, kv := subscriptionDetails(v)
	return e.record(ctx, ActionSubscriptionCreated, SeverityInfo, OutcomeSuccess,
		ResourceSubscription, addr, CategorySubscription, nil, kv...)
}

// OnSubscriptionRenewed implements plugin.OnSubscriptionRenewed.
func (e *Extension) OnSubscriptionRenewed(ctx context.Context, v interface{}) error {
	addr, kv := subscriptionDetails(v)
	return e.record(ctx, ActionSubscriptionRenewed, SeverityInfo, OutcomeSuccess,
		ResourceSubscription, addr, CategorySubscription, nil, kv...)
}

// OnSubscriptionCanceled implements plugin.OnSubscriptionCanceled.
func (e *Extension) OnSubscriptionCanceled(ctx context.Context, v interface{}) error {
	addr, kv := subscriptionDetails(v)
	return e.record(ctx, ActionSubscriptionCanceled, SeverityInfo, OutcomeSuccess,
		ResourceSubscription, addr, CategorySubscription, nil, kv...)
}

// OnSubscriptionClosed implements plugin.OnSubscriptionClosed.
func (e *Extension) OnSubscriptionClosed(ctx context.Context, addr string) error {
	return e.record(ctx, ActionSubscriptionClosed, SeverityInfo, OutcomeSuccess,
		ResourceSubscription, addr, CategorySubscription, nil,
		"subscription", addr,
	)
}

// ──────────────────────────────────────────────────
// Access and payment hooks
// ──────────────────────────────────────────────────

// OnAccessChecked implements plugin.OnAccessChecked.
// Only denied checks are audited to reduce noise.
func (e *Extension) OnAccessChecked(ctx context.Context, v interface{}) error {
	result, ok := v.(*access.Result)
	if !ok || result.Granted {
		return nil
	}

	return e.record(ctx, ActionAccessDenied, SeverityWarning, OutcomeFailure,
		ResourceSubscription, result.Subscription.String(), CategoryAccess, nil,
		"reason", result.Reason,
		"expires_at", result.ExpiresAt.String(),
	)
}

// OnPaymentRecorded implements plugin.OnPaymentRecorded.
func (e *Extension) OnPaymentRecorded(ctx context.Context, v interface{}) error {
	p, ok := v.(*payment.Payment)
	if !ok {
		return e.record(ctx, ActionPaymentRecorded, SeverityInfo, OutcomeSuccess,
			ResourcePayment, "", CategoryPayment, nil)
	}

	return e.record(ctx, ActionPaymentRecorded, SeverityInfo, OutcomeSuccess,
		ResourcePayment, p.ID.String(), CategoryPayment, nil,
		"subscription", p.Subscription.String(),
		"kind", string(p.Kind),
		"amount", p.Amount.String(),
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

func planDetails(v interface{}) (string, []any) {
	p, ok := v.(*plan.Plan)
	if !ok {
		return "", nil
	}
	return p.Address.String(), []any{
		"merchant", p.Merchant.String(),
		"number", p.Number,
		"active", p.Active,
	}
}

func subscriptionDetails(v interface{}) (string, []any) {
	s, ok := v.(*subscription.Subscription)
	if !ok {
		return "", nil
	}
	return s.Address.String(), []any{
		"subscriber", s.Subscriber.String(),
		"plan", s.Plan.String(),
		"status", string(s.Status),
		"next_billing_at", s.NextBillingAt.String(),
	}
}

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
