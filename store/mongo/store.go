package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	recur "github.com/xraph/recur"
	"github.com/xraph/recur/address"
	"github.com/xraph/recur/id"
	"github.com/xraph/recur/payment"
	"github.com/xraph/recur/plan"
	recurstore "github.com/xraph/recur/store"
	"github.com/xraph/recur/subscription"
	"github.com/xraph/recur/types"
)

// Collection name constants.
const (
	colPlans         = "recur_plans"
	colSubscriptions = "recur_subscriptions"
	colPayments      = "recur_payments"
	colAccounts      = "recur_accounts"
)

// compile-time interface check
var _ recurstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all recur collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("recur/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Plan Store ====================

func (s *Store) CreatePlan(ctx context.Context, p *plan.Plan) error {
	m := toPlanModel(p)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("recur/mongo: create plan: %w", err)
	}
	return nil
}

func (s *Store) GetPlan(ctx context.Context, addr address.Address) (*plan.Plan, error) {
	var m planModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": addr.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, recur.ErrPlanNotFound
		}
		return nil, fmt.Errorf("recur/mongo: get plan: %w", err)
	}
	return fromPlanModel(&m)
}

func (s *Store) UpdatePlan(ctx context.Context, p *plan.Plan) error {
	m := toPlanModel(p)

	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.Address}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("recur/mongo: update plan: %w", err)
	}
	if res.MatchedCount() == 0 {
		return recur.ErrPlanNotFound
	}
	return nil
}

func (s *Store) DestroyPlan(ctx context.Context, addr address.Address) error {
	res, err := s.mdb.NewDelete((*planModel)(nil)).
		Filter(bson.M{"_id": addr.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("recur/mongo: destroy plan: %w", err)
	}
	if res.DeletedCount() == 0 {
		return recur.ErrPlanNotFound
	}
	return nil
}

// ==================== Subscription Store ====================

func (s *Store) CreateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	m := toSubscriptionModel(sub)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("recur/mongo: create subscription: %w", err)
	}
	return nil
}

func (s *Store) GetSubscription(ctx context.Context, addr address.Address) (*subscription.Subscription, error) {
	var m subscriptionModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": addr.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, recur.ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("recur/mongo: get subscription: %w", err)
	}
	return fromSubscriptionModel(&m)
}

func (s *Store) UpdateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	m := toSubscriptionModel(sub)

	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.Address}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("recur/mongo: update subscription: %w", err)
	}
	if res.MatchedCount() == 0 {
		return recur.ErrSubscriptionNotFound
	}
	return nil
}

func (s *Store) DestroySubscription(ctx context.Context, addr address.Address) error {
	res, err := s.mdb.NewDelete((*subscriptionModel)(nil)).
		Filter(bson.M{"_id": addr.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("recur/mongo: destroy subscription: %w", err)
	}
	if res.DeletedCount() == 0 {
		return recur.ErrSubscriptionNotFound
	}
	return nil
}

// ==================== Payment Store ====================

func (s *Store) RecordPayment(ctx context.Context, p *payment.Payment) error {
	m := toPaymentModel(p)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("recur/mongo: record payment: %w", err)
	}
	return nil
}

func (s *Store) ListPayments(ctx context.Context, sub address.Address, opts payment.ListOpts) ([]*payment.Payment, error) {
	var models []paymentModel

	filter := bson.M{"subscription": sub.String()}
	if opts.Kind != "" {
		filter["kind"] = string(opts.Kind)
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "paid_at", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("recur/mongo: list payments: %w", err)
	}

	result := make([]*payment.Payment, len(models))
	for i := range models {
		p, err := fromPaymentModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = p
	}
	return result, nil
}

// ==================== Balance Ledger ====================

func (s *Store) Deposit(ctx context.Context, account id.AccountID, amount types.Amount) error {
	t := now()
	_, err := s.mdb.NewUpdate((*accountModel)(nil)).
		Filter(bson.M{"_id": account.String()}).
		SetUpdate(bson.M{
			"$inc":         bson.M{"balance": int64(amount)},
			"$set":         bson.M{"updated_at": t},
			"$setOnInsert": bson.M{"created_at": t},
		}).
		Upsert().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("recur/mongo: deposit: %w", err)
	}
	return nil
}

// Transfer debits the sender with a guarded update so the balance can never
// go negative, then credits the recipient. A missing sender document reads
// as a zero balance and fails the guard.
func (s *Store) Transfer(ctx context.Context, from, to id.AccountID, amount types.Amount) error {
	res, err := s.mdb.NewUpdate((*accountModel)(nil)).
		Filter(bson.M{
			"_id":     from.String(),
			"balance": bson.M{"$gte": int64(amount)},
		}).
		SetUpdate(bson.M{
			"$inc": bson.M{"balance": -int64(amount)},
			"$set": bson.M{"updated_at": now()},
		}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("recur/mongo: transfer debit: %w", err)
	}
	if res.MatchedCount() == 0 {
		return recur.ErrInsufficientFunds
	}
	return s.Deposit(ctx, to, amount)
}

func (s *Store) Balance(ctx context.Context, account id.AccountID) (types.Amount, error) {
	var m accountModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": account.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			// Unknown accounts read as a zero balance.
			return 0, nil
		}
		return 0, fmt.Errorf("recur/mongo: balance: %w", err)
	}
	return types.Amount(m.Balance), nil
}

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all recur collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colPlans: {
			{
				Keys:    bson.D{{Key: "merchant", Value: 1}, {Key: "number", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "merchant", Value: 1}, {Key: "created_at", Value: 1}}},
		},
		colSubscriptions: {
			{Keys: bson.D{{Key: "subscriber", Value: 1}}},
			{Keys: bson.D{{Key: "plan", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "next_billing_at", Value: 1}}},
		},
		colPayments: {
			{Keys: bson.D{{Key: "subscription", Value: 1}, {Key: "paid_at", Value: 1}}},
			{Keys: bson.D{{Key: "subscription", Value: 1}, {Key: "kind", Value: 1}}},
		},
		colAccounts: {},
	}
}
