package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUserGeneratesUUID(t *testing.T) {
	db := NewTestDB(t)

	user, err := db.CreateUser(&User{PhoneNumber: StringPtr("+4915200000099")})
	require.NoError(t, err)
	assert.NotEmpty(t, user.UUID)
	assert.Equal(t, "Europe/Berlin", user.Timezone)
}

func TestGetUserByPhone(t *testing.T) {
	db := NewTestDB(t)
	created := CreateTestUser(t, db)
	require.NotNil(t, created.PhoneNumber)

	user, err := db.GetUserByPhone(*created.PhoneNumber)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, created.UUID, user.UUID)

	missing, err := db.GetUserByPhone("+490000000000")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestPhoneNumberUnique(t *testing.T) {
	db := NewTestDB(t)
	created := CreateTestUser(t, db)

	_, err := db.CreateUser(&User{PhoneNumber: created.PhoneNumber})
	require.Error(t, err)
}

func TestGetUserTimezoneFallback(t *testing.T) {
	db := NewTestDB(t)
	user := CreateTestUser(t, db)

	tz, err := db.GetUserTimezone(user.UUID)
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", tz)

	tz, err = db.GetUserTimezone("no-such-user")
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", tz)
}
