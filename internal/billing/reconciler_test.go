package billing

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/effortless-app/effortless-server/internal/database"
)

type mockVerifier struct {
	mock.Mock
	platform string
}

func (m *mockVerifier) Verify(ctx context.Context, productID, purchaseToken string) (*Verdict, error) {
	args := m.Called(ctx, productID, purchaseToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Verdict), args.Error(1)
}

func (m *mockVerifier) Platform() string {
	return m.platform
}

func paidUser(t *testing.T, db *database.DB, token string, expiry time.Time) *database.User {
	t.Helper()
	user := database.CreateTestUser(t, db)
	require.NoError(t, db.UpdateSubscription(user.UUID, "premium_monthly", expiry, token, PlatformAndroid))
	return user
}

func TestReconcileActiveSubscriptionUnchanged(t *testing.T) {
	db := database.NewTestDB(t)
	// Local expiry already elapsed, store confirms the same expiry but a
	// still-active status (grace period).
	expiry := time.Now().Add(-time.Hour).UTC().Truncate(time.Second)
	user := paidUser(t, db, "token-1", expiry)

	verifier := &mockVerifier{platform: PlatformAndroid}
	verifier.On("Verify", mock.Anything, "premium_monthly", "token-1").
		Return(&Verdict{Active: true, Expiry: expiry}, nil)

	r := NewReconciler(db, zap.NewNop(), verifier)
	sub, err := db.GetSubscription(user.UUID)
	require.NoError(t, err)

	outcome, err := r.Reconcile(context.Background(), sub)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnchanged, outcome)
}

func TestReconcileFutureExpirySkipsStoreCall(t *testing.T) {
	db := database.NewTestDB(t)
	expiry := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)
	user := paidUser(t, db, "token-1", expiry)

	verifier := &mockVerifier{platform: PlatformAndroid}

	r := NewReconciler(db, zap.NewNop(), verifier)
	sub, err := db.GetSubscription(user.UUID)
	require.NoError(t, err)

	outcome, err := r.Reconcile(context.Background(), sub)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnchanged, outcome)
	// The locally-tracked expiry is still in the future, so the store is
	// not consulted.
	verifier.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything, mock.Anything)
}

func TestReconcileVerificationErrorRevertsToFree(t *testing.T) {
	db := database.NewTestDB(t)
	user := paidUser(t, db, "token-1", time.Now().Add(-time.Hour).UTC())

	verifier := &mockVerifier{platform: PlatformAndroid}
	verifier.On("Verify", mock.Anything, "premium_monthly", "token-1").
		Return(nil, fmt.Errorf("store unavailable"))

	r := NewReconciler(db, zap.NewNop(), verifier)
	sub, err := db.GetSubscription(user.UUID)
	require.NoError(t, err)

	outcome, err := r.Reconcile(context.Background(), sub)
	require.Error(t, err)
	assert.Equal(t, OutcomeReverted, outcome)

	// An unconfirmable subscription never keeps the paid tier.
	reverted, err := db.GetSubscription(user.UUID)
	require.NoError(t, err)
	assert.True(t, reverted.IsFree())
}

func TestReconcileRenewalExtendsExpiry(t *testing.T) {
	db := database.NewTestDB(t)
	oldExpiry := time.Now().Add(-time.Hour).UTC().Truncate(time.Second)
	newExpiry := oldExpiry.Add(30 * 24 * time.Hour)
	user := paidUser(t, db, "token-1", oldExpiry)

	verifier := &mockVerifier{platform: PlatformAndroid}
	verifier.On("Verify", mock.Anything, "premium_monthly", "token-1").
		Return(&Verdict{Active: true, Expiry: newExpiry}, nil)

	r := NewReconciler(db, zap.NewNop(), verifier)
	sub, err := db.GetSubscription(user.UUID)
	require.NoError(t, err)

	outcome, err := r.Reconcile(context.Background(), sub)
	require.NoError(t, err)
	assert.Equal(t, OutcomeRenewed, outcome)

	updated, err := db.GetSubscription(user.UUID)
	require.NoError(t, err)
	require.NotNil(t, updated.ExpirationTime)
	assert.True(t, updated.ExpirationTime.Equal(newExpiry))
	assert.Equal(t, "premium_monthly", updated.ProductID)
}

func TestReconcileLapsedSubscriptionRevertsToFree(t *testing.T) {
	db := database.NewTestDB(t)
	user := paidUser(t, db, "token-1", time.Now().Add(-time.Hour).UTC())

	verifier := &mockVerifier{platform: PlatformAndroid}
	verifier.On("Verify", mock.Anything, "premium_monthly", "token-1").
		Return(&Verdict{Active: false}, nil)

	r := NewReconciler(db, zap.NewNop(), verifier)
	sub, err := db.GetSubscription(user.UUID)
	require.NoError(t, err)

	outcome, err := r.Reconcile(context.Background(), sub)
	require.NoError(t, err)
	assert.Equal(t, OutcomeExpired, outcome)

	reverted, err := db.GetSubscription(user.UUID)
	require.NoError(t, err)
	assert.True(t, reverted.IsFree())
	assert.Nil(t, reverted.ExpirationTime)
	assert.Nil(t, reverted.PurchaseToken)
}

func TestReconcileMissingTokenRevertsWithoutStoreCall(t *testing.T) {
	db := database.NewTestDB(t)
	user := database.CreateTestUser(t, db)
	// Paid tier but the purchase token got lost.
	_, err := db.Exec(`UPDATE users SET tier_product_id = 'premium_monthly', tier_expiration_time = ? WHERE uuid = ?`,
		time.Now().Add(time.Hour).UTC(), user.UUID)
	require.NoError(t, err)

	verifier := &mockVerifier{platform: PlatformAndroid}

	r := NewReconciler(db, zap.NewNop(), verifier)
	sub, err := db.GetSubscription(user.UUID)
	require.NoError(t, err)

	outcome, err := r.Reconcile(context.Background(), sub)
	require.NoError(t, err)
	assert.Equal(t, OutcomeReverted, outcome)

	reverted, err := db.GetSubscription(user.UUID)
	require.NoError(t, err)
	assert.True(t, reverted.IsFree())
	// No store roundtrip happened.
	verifier.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything, mock.Anything)
}

func TestReconcileFreeUserIsNoop(t *testing.T) {
	db := database.NewTestDB(t)
	user := database.CreateTestUser(t, db)

	r := NewReconciler(db, zap.NewNop())
	sub, err := db.GetSubscription(user.UUID)
	require.NoError(t, err)

	outcome, err := r.Reconcile(context.Background(), sub)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnchanged, outcome)
}

func TestReconcileAllContinuesOnError(t *testing.T) {
	db := database.NewTestDB(t)
	expiry := time.Now().Add(-time.Hour).UTC().Truncate(time.Second)

	paidUser(t, db, "token-ok", expiry)
	paidUser(t, db, "token-broken", expiry)
	lapsed := paidUser(t, db, "token-lapsed", expiry)
	_ = lapsed

	verifier := &mockVerifier{platform: PlatformAndroid}
	verifier.On("Verify", mock.Anything, "premium_monthly", "token-ok").
		Return(&Verdict{Active: true, Expiry: expiry}, nil)
	verifier.On("Verify", mock.Anything, "premium_monthly", "token-broken").
		Return(nil, fmt.Errorf("store unavailable"))
	verifier.On("Verify", mock.Anything, "premium_monthly", "token-lapsed").
		Return(&Verdict{Active: false}, nil)

	r := NewReconciler(db, zap.NewNop(), verifier)
	tally, err := r.ReconcileAll(context.Background())
	require.NoError(t, err)

	// The broken token both counts as an error and reverts its user.
	assert.Equal(t, Tally{Checked: 3, Expired: 1, Reverted: 1, Errors: 1}, tally)
}

func TestReconcileAllIsIdempotent(t *testing.T) {
	db := database.NewTestDB(t)
	paidUser(t, db, "token-lapsed", time.Now().Add(-time.Hour).UTC())

	verifier := &mockVerifier{platform: PlatformAndroid}
	verifier.On("Verify", mock.Anything, "premium_monthly", "token-lapsed").
		Return(&Verdict{Active: false}, nil)

	r := NewReconciler(db, zap.NewNop(), verifier)

	tally, err := r.ReconcileAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Tally{Checked: 1, Expired: 1}, tally)

	// The user is free now, so the second batch has nothing to check.
	tally, err = r.ReconcileAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Tally{}, tally)
}

func TestReconcileUnknownPlatform(t *testing.T) {
	db := database.NewTestDB(t)
	user := database.CreateTestUser(t, db)
	require.NoError(t, db.UpdateSubscription(user.UUID, "premium_monthly", time.Now().Add(-time.Hour).UTC(), "token-1", "windows-phone"))

	r := NewReconciler(db, zap.NewNop())
	sub, err := db.GetSubscription(user.UUID)
	require.NoError(t, err)

	outcome, err := r.Reconcile(context.Background(), sub)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no verifier for platform")
	assert.Equal(t, OutcomeReverted, outcome)

	reverted, err := db.GetSubscription(user.UUID)
	require.NoError(t, err)
	assert.True(t, reverted.IsFree())
}
