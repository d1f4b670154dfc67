package mongo

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/recur/address"
	"github.com/xraph/recur/id"
	"github.com/xraph/recur/payment"
	"github.com/xraph/recur/plan"
	"github.com/xraph/recur/subscription"
	"github.com/xraph/recur/types"
)

// ==================== Plan models ====================

type planModel struct {
	grove.BaseModel `grove:"table:recur_plans"`

	Address      string    `grove:"address,pk"    bson:"_id"`
	Merchant     string    `grove:"merchant"      bson:"merchant"`
	Number       int       `grove:"number"        bson:"number"`
	Amount       int64     `grove:"amount"        bson:"amount"`
	IntervalSecs int64     `grove:"interval_secs" bson:"interval_secs"`
	Name         string    `grove:"name"          bson:"name"`
	Active       bool      `grove:"active"        bson:"active"`
	CreatedAt    time.Time `grove:"created_at"    bson:"created_at"`
	UpdatedAt    time.Time `grove:"updated_at"    bson:"updated_at"`
}

func toPlanModel(p *plan.Plan) *planModel {
	return &planModel{
		Address:      p.Address.String(),
		Merchant:     p.Merchant.String(),
		Number:       int(p.Number),
		Amount:       int64(p.Amount),
		IntervalSecs: int64(p.Interval),
		Name:         p.Name,
		Active:       p.Active,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func fromPlanModel(m *planModel) (*plan.Plan, error) {
	addr, err := address.Parse(m.Address)
	if err != nil {
		return nil, err
	}
	merchant, err := id.ParseAccountID(m.Merchant)
	if err != nil {
		return nil, err
	}
	return &plan.Plan{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		Address:  addr,
		Merchant: merchant,
		Number:   uint16(m.Number),
		Amount:   types.Amount(m.Amount),
		Interval: types.Duration(m.IntervalSecs),
		Name:     m.Name,
		Active:   m.Active,
	}, nil
}

// ==================== Subscription models ====================

type subscriptionModel struct {
	grove.BaseModel `grove:"table:recur_subscriptions"`

	Address       string    `grove:"address,pk"      bson:"_id"`
	Subscriber    string    `grove:"subscriber"      bson:"subscriber"`
	Plan          string    `grove:"plan"            bson:"plan"`
	Amount        int64     `grove:"amount"          bson:"amount"`
	IntervalSecs  int64     `grove:"interval_secs"   bson:"interval_secs"`
	NextBillingAt int64     `grove:"next_billing_at" bson:"next_billing_at"`
	StartedAt     int64     `grove:"started_at"      bson:"started_at"`
	Status        string    `grove:"status"          bson:"status"`
	AutoRenew     bool      `grove:"auto_renew"      bson:"auto_renew"`
	CreatedAt     time.Time `grove:"created_at"      bson:"created_at"`
	UpdatedAt     time.Time `grove:"updated_at"      bson:"updated_at"`
}

func toSubscriptionModel(sub *subscription.Subscription) *subscriptionModel {
	return &subscriptionModel{
		Address:       sub.Address.String(),
		Subscriber:    sub.Subscriber.String(),
		Plan:          sub.Plan.String(),
		Amount:        int64(sub.Amount),
		IntervalSecs:  int64(sub.Interval),
		NextBillingAt: int64(sub.NextBillingAt),
		StartedAt:     int64(sub.StartedAt),
		Status:        string(sub.Status),
		AutoRenew:     sub.AutoRenew,
		CreatedAt:     sub.CreatedAt,
		UpdatedAt:     sub.UpdatedAt,
	}
}

func fromSubscriptionModel(m *subscriptionModel) (*subscription.Subscription, error) {
	addr, err := address.Parse(m.Address)
	if err != nil {
		return nil, err
	}
	subscriber, err := id.ParseAccountID(m.Subscriber)
	if err != nil {
		return nil, err
	}
	planAddr, err := address.Parse(m.Plan)
	if err != nil {
		return nil, err
	}
	return &subscription.Subscription{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		Address:       addr,
		Subscriber:    subscriber,
		Plan:          planAddr,
		Amount:        types.Amount(m.Amount),
		Interval:      types.Duration(m.IntervalSecs),
		NextBillingAt: types.Timestamp(m.NextBillingAt),
		StartedAt:     types.Timestamp(m.StartedAt),
		Status:        subscription.Status(m.Status),
		AutoRenew:     m.AutoRenew,
	}, nil
}

// ==================== Payment models ====================

type paymentModel struct {
	grove.BaseModel `grove:"table:recur_payments"`

	ID           string    `grove:"id,pk"        bson:"_id"`
	Subscription string    `grove:"subscription" bson:"subscription"`
	Plan         string    `grove:"plan"         bson:"plan"`
	Payer        string    `grove:"payer"        bson:"payer"`
	Payee        string    `grove:"payee"        bson:"payee"`
	Amount       int64     `grove:"amount"       bson:"amount"`
	Kind         string    `grove:"kind"         bson:"kind"`
	PaidAt       int64     `grove:"paid_at"      bson:"paid_at"`
	CreatedAt    time.Time `grove:"created_at"   bson:"created_at"`
	UpdatedAt    time.Time `grove:"updated_at"   bson:"updated_at"`
}

func toPaymentModel(p *payment.Payment) *paymentModel {
	return &paymentModel{
		ID:           p.ID.String(),
		Subscription: p.Subscription.String(),
		Plan:         p.Plan.String(),
		Payer:        p.From.String(),
		Payee:        p.To.String(),
		Amount:       int64(p.Amount),
		Kind:         string(p.Kind),
		PaidAt:       int64(p.PaidAt),
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func fromPaymentModel(m *paymentModel) (*payment.Payment, error) {
	payID, err := id.ParsePaymentID(m.ID)
	if err != nil {
		return nil, err
	}
	subAddr, err := address.Parse(m.Subscription)
	if err != nil {
		return nil, err
	}
	planAddr, err := address.Parse(m.Plan)
	if err != nil {
		return nil, err
	}
	payer, err := id.ParseAccountID(m.Payer)
	if err != nil {
		return nil, err
	}
	payee, err := id.ParseAccountID(m.Payee)
	if err != nil {
		return nil, err
	}
	return &payment.Payment{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:           payID,
		Subscription: subAddr,
		Plan:         planAddr,
		From:         payer,
		To:           payee,
		Amount:       types.Amount(m.Amount),
		Kind:         payment.Kind(m.Kind),
		PaidAt:       types.Timestamp(m.PaidAt),
	}, nil
}

// ==================== Account models ====================

type accountModel struct {
	grove.BaseModel `grove:"table:recur_accounts"`

	ID        string    `grove:"id,pk"      bson:"_id"`
	Balance   int64     `grove:"balance"    bson:"balance"`
	CreatedAt time.Time `grove:"created_at" bson:"created_at"`
	UpdatedAt time.Time `grove:"updated_at" bson:"updated_at"`
}
