package model

import "time"

// UserQuota is the per-user usage record kept by the quota ledger.
// Billing fields are written only by the payment webhook.
type UserQuota struct {
	UserID               string     `firestore:"-" db:"user_id" json:"user_id"`
	SummariesUsed        int        `firestore:"summariesUsed" db:"summaries_used" json:"summaries_used"`
	IsPro                bool       `firestore:"isPro" db:"is_pro" json:"is_pro"`
	CreatedAt            time.Time  `firestore:"createdAt" db:"created_at" json:"created_at"`
	LastUsedAt           *time.Time `firestore:"lastUsedAt,omitempty" db:"last_used_at" json:"last_used_at,omitempty"`
	StripeCustomerID     string     `firestore:"stripeCustomerId,omitempty" db:"stripe_customer_id" json:"stripe_customer_id,omitempty"`
	StripeSubscriptionID string     `firestore:"stripeSubscriptionId,omitempty" db:"stripe_subscription_id" json:"stripe_subscription_id,omitempty"`
	UpgradedAt           *time.Time `firestore:"upgradedAt,omitempty" db:"upgraded_at" json:"upgraded_at,omitempty"`
	CanceledAt           *time.Time `firestore:"canceledAt,omitempty" db:"canceled_at" json:"canceled_at,omitempty"`
}

// QuotaSnapshot is the (summariesUsed, isPro) pair the quota rules operate on.
type QuotaSnapshot struct {
	SummariesUsed int
	IsPro         bool
}

// Snapshot returns the quota view of the record. A nil record yields the defaults.
func (u *UserQuota) Snapshot() QuotaSnapshot {
	if u == nil {
		return QuotaSnapshot{}
	}
	return QuotaSnapshot{SummariesUsed: u.SummariesUsed, IsPro: u.IsPro}
}
