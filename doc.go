// Package recur provides a recurring-billing authorization engine for Go
// applications.
//
// Recur is designed as a library, not a service. Import it directly into your
// Go application. It provides:
//
//   - Merchant-owned billing plans with a one-way deactivation latch
//   - Subscriptions with snapshotted pricing and strict period accounting
//   - Time-gated renewal: one interval charged per call, never early
//   - A permissionless access check any party can evaluate
//   - Deterministic record addressing derived from defining tuples
//   - Pluggable stores (memory, PostgreSQL, SQLite, MongoDB)
//   - Lifecycle plugins for audit trails and metrics
//
// # Quick Start
//
// Create an engine with your preferred store:
//
//	import (
//	    "github.com/xraph/recur"
//	    "github.com/xraph/recur/store/postgres"
//	)
//
//	// Initialize store
//	store, err := postgres.New(databaseURL)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Create engine
//	eng := recur.New(store)
//
//	// Start the engine (runs migrations, initializes plugins)
//	if err := eng.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Stop()
//
// # Core Concepts
//
// Merchants publish plans; a plan is addressed by its merchant and a 16-bit
// plan number, so the same pair always names the same record:
//
//	p, err := eng.CreatePlan(ctx, merchant, 1, types.Units(1000), types.Seconds(2592000), "Pro Monthly")
//
// Subscribers attach to a plan, paying the first period immediately. Amount
// and interval are snapshotted at creation, so later plan changes never
// affect existing subscribers:
//
//	sub, err := eng.CreateSubscription(ctx, subscriber, p.Address)
//
// Renewal is time-gated: it charges exactly one interval and only once the
// paid-through time has passed:
//
//	err := eng.Renew(ctx, subscriber, sub.Address)
//
// Anyone can check access — content gateways don't need the subscriber's or
// merchant's cooperation:
//
//	result, err := eng.CheckAccess(ctx, sub.Address)
//	if result.Granted {
//	    // Serve the gated content
//	}
//
// # Arithmetic
//
// All value calculations use integer arithmetic on unsigned 64-bit unit
// counts; timestamps are whole seconds. Timestamp advances are checked and
// fail with ErrOverflow rather than wrapping.
//
// # TypeID
//
// Parties and charge receipts use TypeID for globally unique, type-safe
// identifiers:
//
//	acct_01h2xcejqtf2nbrexx3vqjhp41  // Account (merchant or subscriber)
//	pay_01h455vb4pex5vsknk084sn02q   // Charge receipt
//
// Plan and subscription records instead carry deterministic 32-byte derived
// addresses (see the address package) so holders of the defining tuple can
// always locate them.
package recur
