package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"captia/internal/model"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// incrementMaxAttempts bounds transaction retries when many requests for one user contend.
const incrementMaxAttempts = 25

type firestoreQuotaRepo struct {
	client     *firestore.Client
	collection string
	now        func() time.Time
}

// NewFirestoreQuotaRepo creates a QuotaRepository backed by one document per user in collection.
func NewFirestoreQuotaRepo(client *firestore.Client, collection string) QuotaRepository {
	return &firestoreQuotaRepo{client: client, collection: collection, now: time.Now}
}

func (r *firestoreQuotaRepo) doc(userID string) *firestore.DocumentRef {
	return r.client.Collection(r.collection).Doc(userID)
}

func (r *firestoreQuotaRepo) GetQuota(ctx context.Context, userID string) (*model.UserQuota, error) {
	snap, err := r.doc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch quota for user %s: %w", userID, err)
	}
	return decodeQuota(snap)
}

func (r *firestoreQuotaRepo) EnsureQuota(ctx context.Context, userID string) (*model.UserQuota, error) {
	ref := r.doc(userID)
	var out *model.UserQuota
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err == nil {
			out, err = decodeQuota(snap)
			return err
		}
		if status.Code(err) != codes.NotFound {
			return err
		}
		q := model.UserQuota{UserID: userID, CreatedAt: r.now().UTC().Truncate(time.Microsecond)}
		out = &q
		return tx.Create(ref, map[string]interface{}{
			"summariesUsed": 0,
			"isPro":         false,
			"createdAt":     q.CreatedAt,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("ensure quota for user %s: %w", userID, err)
	}
	return out, nil
}

func (r *firestoreQuotaRepo) IncrementUsage(ctx context.Context, userID string) (*model.UserQuota, error) {
	q, err := r.increment(ctx, userID, -1)
	if err != nil {
		return nil, fmt.Errorf("increment usage for user %s: %w", userID, err)
	}
	return q, nil
}

func (r *firestoreQuotaRepo) IncrementUsageIfBelow(ctx context.Context, userID string, limit int) (*model.UserQuota, error) {
	q, err := r.increment(ctx, userID, limit)
	if err != nil && !errors.Is(err, ErrSummaryLimitReached) {
		return nil, fmt.Errorf("conditional increment for user %s: %w", userID, err)
	}
	return q, err
}

// increment runs inside a transaction so the ceiling check and the write see the same document
// version; Firestore retries the function on contention. A negative limit disables the check.
func (r *firestoreQuotaRepo) increment(ctx context.Context, userID string, limit int) (*model.UserQuota, error) {
	ref := r.doc(userID)
	var out *model.UserQuota
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		now := r.now().UTC().Truncate(time.Microsecond)
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) != codes.NotFound {
				return err
			}
			if limit == 0 {
				out = &model.UserQuota{UserID: userID}
				return ErrSummaryLimitReached
			}
			out = &model.UserQuota{UserID: userID, SummariesUsed: 1, CreatedAt: now, LastUsedAt: &now}
			return tx.Create(ref, map[string]interface{}{
				"summariesUsed": 1,
				"isPro":         false,
				"createdAt":     now,
				"lastUsedAt":    now,
			})
		}

		current, err := decodeQuota(snap)
		if err != nil {
			return err
		}
		if limit >= 0 && !current.IsPro && current.SummariesUsed >= limit {
			out = current
			return ErrSummaryLimitReached
		}

		current.SummariesUsed++
		current.LastUsedAt = &now
		out = current
		return tx.Update(ref, []firestore.Update{
			{Path: "summariesUsed", Value: firestore.Increment(1)},
			{Path: "lastUsedAt", Value: now},
		})
	}, firestore.MaxAttempts(incrementMaxAttempts))
	if err != nil {
		if errors.Is(err, ErrSummaryLimitReached) {
			return out, ErrSummaryLimitReached
		}
		return nil, err
	}
	return out, nil
}

func (r *firestoreQuotaRepo) ActivatePro(ctx context.Context, userID, customerID, subscriptionID string, at time.Time) error {
	_, err := r.doc(userID).Set(ctx, map[string]interface{}{
		"isPro":                true,
		"stripeCustomerId":     customerID,
		"stripeSubscriptionId": subscriptionID,
		"upgradedAt":           at.UTC(),
	}, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("activate pro for user %s: %w", userID, err)
	}
	return nil
}

func (r *firestoreQuotaRepo) DeactivateProByCustomer(ctx context.Context, customerID string, at time.Time) (string, error) {
	iter := r.client.Collection(r.collection).
		Where("stripeCustomerId", "==", customerID).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if errors.Is(err, iterator.Done) {
		return "", ErrCustomerNotFound
	}
	if err != nil {
		return "", fmt.Errorf("lookup user by stripe customer %s: %w", customerID, err)
	}

	_, err = snap.Ref.Update(ctx, []firestore.Update{
		{Path: "isPro", Value: false},
		{Path: "canceledAt", Value: at.UTC()},
	})
	if err != nil {
		return "", fmt.Errorf("deactivate pro for user %s: %w", snap.Ref.ID, err)
	}
	return snap.Ref.ID, nil
}

func decodeQuota(snap *firestore.DocumentSnapshot) (*model.UserQuota, error) {
	q, err := quotaFromData(snap.Ref.ID, snap.Data())
	if err != nil {
		return nil, fmt.Errorf("decode quota document %s: %w", snap.Ref.ID, err)
	}
	return q, nil
}

// quotaFromData reads a user document field by field. Records written by the checkout webhook
// and older handlers store timestamps as ISO-8601 strings and may name the last-use stamp
// lastUsed, so timestamps are read leniently. Only summariesUsed and isPro must be well typed.
func quotaFromData(userID string, data map[string]interface{}) (*model.UserQuota, error) {
	q := &model.UserQuota{UserID: userID}

	switch v := data["summariesUsed"].(type) {
	case nil:
	case int64:
		q.SummariesUsed = int(v)
	case float64:
		q.SummariesUsed = int(v)
	default:
		return nil, fmt.Errorf("summariesUsed has unexpected type %T", v)
	}
	if q.SummariesUsed < 0 {
		q.SummariesUsed = 0
	}

	switch v := data["isPro"].(type) {
	case nil:
	case bool:
		q.IsPro = v
	default:
		return nil, fmt.Errorf("isPro has unexpected type %T", v)
	}

	if t := timestampField(data["createdAt"]); t != nil {
		q.CreatedAt = *t
	}
	q.LastUsedAt = timestampField(data["lastUsedAt"])
	if q.LastUsedAt == nil {
		q.LastUsedAt = timestampField(data["lastUsed"])
	}
	q.UpgradedAt = timestampField(data["upgradedAt"])
	q.CanceledAt = timestampField(data["canceledAt"])
	q.StripeCustomerID, _ = data["stripeCustomerId"].(string)
	q.StripeSubscriptionID, _ = data["stripeSubscriptionId"].(string)
	return q, nil
}

// timestampField accepts a Firestore timestamp or an RFC 3339 string. Anything else reads as unset.
func timestampField(v interface{}) *time.Time {
	switch t := v.(type) {
	case time.Time:
		return &t
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return nil
		}
		return &parsed
	default:
		return nil
	}
}
