package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUserStartsOnFreeTier(t *testing.T) {
	db := NewTestDB(t)
	user := CreateTestUser(t, db)

	sub, err := db.GetSubscription(user.UUID)
	require.NoError(t, err)
	require.NotNil(t, sub)

	assert.True(t, sub.IsFree())
	assert.Nil(t, sub.ExpirationTime)
	assert.Nil(t, sub.PurchaseToken)
	assert.Nil(t, sub.Platform)
}

func TestSubscriptionUpdateAndRevert(t *testing.T) {
	db := NewTestDB(t)
	user := CreateTestUser(t, db)
	expiry := time.Now().Add(30 * 24 * time.Hour).UTC().Truncate(time.Second)

	require.NoError(t, db.UpdateSubscription(user.UUID, "premium_monthly", expiry, "token-1", "android"))

	sub, err := db.GetSubscription(user.UUID)
	require.NoError(t, err)
	assert.False(t, sub.IsFree())
	assert.Equal(t, "premium_monthly", sub.ProductID)
	require.NotNil(t, sub.ExpirationTime)
	assert.True(t, sub.ExpirationTime.Equal(expiry))
	require.NotNil(t, sub.PurchaseToken)
	assert.Equal(t, "token-1", *sub.PurchaseToken)

	require.NoError(t, db.RevertToFree(user.UUID))

	sub, err = db.GetSubscription(user.UUID)
	require.NoError(t, err)
	assert.True(t, sub.IsFree())
	assert.Nil(t, sub.ExpirationTime)
	assert.Nil(t, sub.PurchaseToken)
	assert.Nil(t, sub.Platform)
}

func TestListTrackedSubscriptions(t *testing.T) {
	db := NewTestDB(t)
	free := CreateTestUser(t, db)
	paid := CreateTestUser(t, db)
	_ = free

	expiry := time.Now().Add(time.Hour).UTC()
	require.NoError(t, db.UpdateSubscription(paid.UUID, "premium_monthly", expiry, "token-1", "ios"))

	tracked, err := db.ListTrackedSubscriptions()
	require.NoError(t, err)
	require.Len(t, tracked, 1)
	assert.Equal(t, paid.UUID, tracked[0].UserID)
}

func TestSubscriptionUpdateUnknownUser(t *testing.T) {
	db := NewTestDB(t)

	err := db.UpdateSubscription("no-such-user", "premium_monthly", time.Now(), "token", "android")
	require.Error(t, err)

	sub, err := db.GetSubscription("no-such-user")
	require.NoError(t, err)
	assert.Nil(t, sub)
}
