package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"captia/internal/model"

	"cloud.google.com/go/firestore"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresQuotaRepo(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL is not set, skip postgres integration test")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, EnsurePostgresSchema(ctx, pool))
	runQuotaRepoContract(t, NewPostgresQuotaRepo(pool), sequentialIDs("pg"))
}

func TestFirestoreQuotaRepo(t *testing.T) {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST is not set, skip emulator integration test")
	}

	ctx := context.Background()
	client, err := firestore.NewClient(ctx, "test-project")
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	runQuotaRepoContract(t, NewFirestoreQuotaRepo(client, "users_test"), sequentialIDs("fs"))

	t.Run("reads records with string timestamps", func(t *testing.T) {
		userID := sequentialIDs("fs-legacy")()
		_, err := client.Collection("users_test").Doc(userID).Set(ctx, map[string]interface{}{
			"summariesUsed":        2,
			"isPro":                false,
			"createdAt":            "2025-01-01T00:00:00.000Z",
			"lastUsed":             "2025-01-02T10:30:00.000Z",
			"stripeCustomerId":     "cus_legacy",
			"stripeSubscriptionId": "sub_legacy",
			"canceledAt":           "2025-02-01T00:00:00.000Z",
		})
		require.NoError(t, err)

		repo := NewFirestoreQuotaRepo(client, "users_test")
		q, err := repo.GetQuota(ctx, userID)
		require.NoError(t, err)
		require.NotNil(t, q)
		assert.Equal(t, 2, q.SummariesUsed)
		assert.False(t, q.IsPro)
		assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), q.CreatedAt)

		q, err = repo.EnsureQuota(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, 2, q.SummariesUsed)

		q, err = repo.IncrementUsageIfBelow(ctx, userID, 5)
		require.NoError(t, err)
		assert.Equal(t, 3, q.SummariesUsed)
		require.NotNil(t, q.LastUsedAt)
	})
}

func TestQuotaFromData(t *testing.T) {
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	used := time.Date(2025, 1, 2, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		data map[string]interface{}
		want model.UserQuota
	}{
		{
			name: "native timestamps",
			data: map[string]interface{}{"summariesUsed": int64(3), "isPro": true, "createdAt": created, "lastUsedAt": used},
			want: model.UserQuota{UserID: "u1", SummariesUsed: 3, IsPro: true, CreatedAt: created, LastUsedAt: &used},
		},
		{
			name: "string timestamps and lastUsed alias",
			data: map[string]interface{}{
				"summariesUsed":    int64(2),
				"isPro":            false,
				"createdAt":        "2025-01-01T00:00:00.000Z",
				"lastUsed":         "2025-01-02T10:30:00.000Z",
				"stripeCustomerId": "cus_1",
				"upgradedAt":       "2025-01-01T00:00:00Z",
			},
			want: model.UserQuota{
				UserID: "u1", SummariesUsed: 2, CreatedAt: created, LastUsedAt: &used,
				StripeCustomerID: "cus_1", UpgradedAt: &created,
			},
		},
		{
			name: "double counter and unreadable timestamp",
			data: map[string]interface{}{"summariesUsed": float64(4), "createdAt": "yesterday"},
			want: model.UserQuota{UserID: "u1", SummariesUsed: 4},
		},
		{
			name: "empty document",
			data: map[string]interface{}{},
			want: model.UserQuota{UserID: "u1"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := quotaFromData("u1", tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.want, *got)
		})
	}

	_, err := quotaFromData("u1", map[string]interface{}{"summariesUsed": "two"})
	assert.ErrorContains(t, err, "summariesUsed")
	_, err = quotaFromData("u1", map[string]interface{}{"summariesUsed": int64(1), "isPro": "yes"})
	assert.ErrorContains(t, err, "isPro")
}
