// Package plugin provides an extensible plugin system for Recur.
// Plugins can hook into various lifecycle events to extend functionality.
package plugin

import "context"

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the plugin is initialized.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine interface{}) error
}

// OnShutdown is called when the plugin is shutting down.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Plan lifecycle hooks
// ──────────────────────────────────────────────────

// OnPlanCreated is called when a new plan is created.
type OnPlanCreated interface {
	Plugin
	OnPlanCreated(ctx context.Context, plan interface{}) error
}

// OnPlanDeactivated is called when a plan's active latch is flipped off.
type OnPlanDeactivated interface {
	Plugin
	OnPlanDeactivated(ctx context.Context, plan interface{}) error
}

// OnPlanClosed is called when a plan record is destroyed.
type OnPlanClosed interface {
	Plugin
	OnPlanClosed(ctx context.Context, addr string) error
}

// ──────────────────────────────────────────────────
// Subscription lifecycle hooks
// ──────────────────────────────────────────────────

// OnSubscriptionCreated is called when a new subscription is created.
type OnSubscriptionCreated interface {
	Plugin
	OnSubscriptionCreated(ctx context.Context, sub interface{}) error
}

// OnSubscriptionRenewed is called when a subscription's billing period advances.
type OnSubscriptionRenewed interface {
	Plugin
	OnSubscriptionRenewed(ctx context.Context, sub interface{}) error
}

// OnSubscriptionCanceled is called when a subscription is canceled.
type OnSubscriptionCanceled interface {
	Plugin
	OnSubscriptionCanceled(ctx context.Context, sub interface{}) error
}

// OnSubscriptionClosed is called when a subscription record is destroyed.
type OnSubscriptionClosed interface {
	Plugin
	OnSubscriptionClosed(ctx context.Context, addr string) error
}

// ──────────────────────────────────────────────────
// Access and payment hooks
// ──────────────────────────────────────────────────

// OnAccessChecked is called after every access check, granted or denied.
type OnAccessChecked interface {
	Plugin
	OnAccessChecked(ctx context.Context, result interface{}) error
}

// OnPaymentRecorded is called when a charge receipt is recorded.
type OnPaymentRecorded interface {
	Plugin
	OnPaymentRecorded(ctx context.Context, receipt interface{}) error
}
