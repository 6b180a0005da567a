package extract

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/effortless-app/effortless-server/internal/database"
)

type mockTodoExtractor struct {
	mock.Mock
}

func (m *mockTodoExtractor) ExtractTodo(ctx context.Context, phrase string, loc *time.Location, now time.Time, knownTags []string) (*TodoExtraction, error) {
	args := m.Called(ctx, phrase, loc, now, knownTags)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*TodoExtraction), args.Error(1)
}

type mockReminderExtractor struct {
	mock.Mock
}

func (m *mockReminderExtractor) ExtractReminder(ctx context.Context, phrase string, loc *time.Location, now time.Time, knownTags []string) (*ReminderExtraction, error) {
	args := m.Called(ctx, phrase, loc, now, knownTags)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ReminderExtraction), args.Error(1)
}

func berlinTime(t *testing.T, value string) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	parsed, err := time.ParseInLocation("2006-01-02 15:04", value, loc)
	require.NoError(t, err)
	return parsed
}

func TestTodoBuilderWithDueTime(t *testing.T) {
	db := database.NewTestDB(t)
	user := database.CreateTestUser(t, db)
	loc, _ := time.LoadLocation("Europe/Berlin")
	now := berlinTime(t, "2025-01-01 12:00")
	due := berlinTime(t, "2025-01-02 15:00")

	extractor := new(mockTodoExtractor)
	extractor.On("ExtractTodo", mock.Anything, "Hausaufgaben bis morgen 15 Uhr", loc, now, mock.Anything).
		Return(&TodoExtraction{Text: "Hausaufgaben machen", EventTime: &due}, nil)

	builder := NewTodoBuilder(db, extractor, zap.NewNop())
	item, message, err := builder.Build(context.Background(), "Hausaufgaben bis morgen 15 Uhr", user, nil, loc, now)
	require.NoError(t, err)

	assert.Equal(t, KindTodo, item.Kind)
	assert.Equal(t, "Hausaufgaben machen", item.Text)
	assert.Equal(t, `Todo erstellt: "Hausaufgaben machen" (fällig am 02.01.2025 15:00)`, message)

	stored, err := db.GetTodoByID(item.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, user.UUID, stored.UserID)
	require.NotNil(t, stored.EventTime)
	assert.True(t, stored.EventTime.Equal(due))
	extractor.AssertExpectations(t)
}

func TestTodoBuilderWithoutDueTime(t *testing.T) {
	db := database.NewTestDB(t)
	user := database.CreateTestUser(t, db)
	loc, _ := time.LoadLocation("Europe/Berlin")
	now := berlinTime(t, "2025-01-01 12:00")

	extractor := new(mockTodoExtractor)
	extractor.On("ExtractTodo", mock.Anything, mock.Anything, loc, now, mock.Anything).
		Return(&TodoExtraction{Text: "Zimmer aufräumen"}, nil)

	builder := NewTodoBuilder(db, extractor, zap.NewNop())
	item, message, err := builder.Build(context.Background(), "Zimmer aufräumen", user, nil, loc, now)
	require.NoError(t, err)

	assert.Nil(t, item.EventTime)
	assert.Equal(t, `Todo erstellt: "Zimmer aufräumen"`, message)
}

func TestTodoBuilderResolvesOnlyKnownTags(t *testing.T) {
	db := database.NewTestDB(t)
	user := database.CreateTestUser(t, db)
	loc, _ := time.LoadLocation("Europe/Berlin")
	now := berlinTime(t, "2025-01-01 12:00")

	schule, err := db.CreateTag(user.UUID, "Schule")
	require.NoError(t, err)

	extractor := new(mockTodoExtractor)
	extractor.On("ExtractTodo", mock.Anything, mock.Anything, loc, now, []string{"Schule"}).
		Return(&TodoExtraction{Text: "Hausaufgaben machen", TagNames: []string{"Schule", "Erfunden"}}, nil)

	builder := NewTodoBuilder(db, extractor, zap.NewNop())
	item, _, err := builder.Build(context.Background(), "Hausaufgaben", user, []database.Tag{*schule}, loc, now)
	require.NoError(t, err)

	// The invented tag never reaches the database.
	assert.Equal(t, []int64{schule.ID}, item.TagIDs)
	stored, err := db.GetTodoByID(item.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{schule.ID}, stored.TagIDs)
}

func TestReminderBuilderKeepsExplicitTimes(t *testing.T) {
	db := database.NewTestDB(t)
	user := database.CreateTestUser(t, db)
	loc, _ := time.LoadLocation("Europe/Berlin")
	now := berlinTime(t, "2025-01-01 12:00")
	event := berlinTime(t, "2025-01-03 10:00")
	notify := berlinTime(t, "2025-01-03 08:00")

	extractor := new(mockReminderExtractor)
	extractor.On("ExtractReminder", mock.Anything, mock.Anything, loc, now, mock.Anything).
		Return(&ReminderExtraction{Text: "Zahnarzttermin", EventTime: &event, ReminderTimes: []time.Time{notify}}, nil)

	builder := NewReminderBuilder(db, extractor, zap.NewNop())
	item, message, err := builder.Build(context.Background(), "Zahnarzt Freitag 10 Uhr, erinnere mich um 8", user, nil, loc, now)
	require.NoError(t, err)

	assert.Equal(t, "Du wirst am 03.01.2025 08:00 erinnert.", message)
	require.Len(t, item.NotificationTimes, 1)
	assert.True(t, item.NotificationTimes[0].Equal(notify))
	require.NotNil(t, item.EventTime)
	assert.True(t, item.EventTime.Equal(event))
}

func TestReminderBuilderDefaultsNotificationToEventTime(t *testing.T) {
	db := database.NewTestDB(t)
	user := database.CreateTestUser(t, db)
	loc, _ := time.LoadLocation("Europe/Berlin")
	now := berlinTime(t, "2025-01-01 12:00")
	event := berlinTime(t, "2025-01-02 09:00")

	extractor := new(mockReminderExtractor)
	extractor.On("ExtractReminder", mock.Anything, mock.Anything, loc, now, mock.Anything).
		Return(&ReminderExtraction{Text: "Müll rausbringen", EventTime: &event}, nil)

	builder := NewReminderBuilder(db, extractor, zap.NewNop())
	item, message, err := builder.Build(context.Background(), "Müll morgen um 9", user, nil, loc, now)
	require.NoError(t, err)

	require.Len(t, item.NotificationTimes, 1)
	assert.True(t, item.NotificationTimes[0].Equal(event))
	assert.Equal(t, "Du wirst am 02.01.2025 09:00 erinnert.", message)
}

func TestReminderBuilderDefaultsEventToFirstNotification(t *testing.T) {
	db := database.NewTestDB(t)
	user := database.CreateTestUser(t, db)
	loc, _ := time.LoadLocation("Europe/Berlin")
	now := berlinTime(t, "2025-01-01 12:00")
	first := berlinTime(t, "2025-01-02 08:00")
	second := berlinTime(t, "2025-01-02 12:00")

	extractor := new(mockReminderExtractor)
	extractor.On("ExtractReminder", mock.Anything, mock.Anything, loc, now, mock.Anything).
		Return(&ReminderExtraction{Text: "Tabletten nehmen", ReminderTimes: []time.Time{first, second}}, nil)

	builder := NewReminderBuilder(db, extractor, zap.NewNop())
	item, message, err := builder.Build(context.Background(), "Tabletten morgen um 8 und 12", user, nil, loc, now)
	require.NoError(t, err)

	require.NotNil(t, item.EventTime)
	assert.True(t, item.EventTime.Equal(first))
	assert.Len(t, item.NotificationTimes, 2)
	assert.Equal(t, "Du wirst am 02.01.2025 08:00,02.01.2025 12:00 erinnert.", message)
}

func TestReminderBuilderRejectsTimelessExtraction(t *testing.T) {
	db := database.NewTestDB(t)
	user := database.CreateTestUser(t, db)
	loc, _ := time.LoadLocation("Europe/Berlin")
	now := berlinTime(t, "2025-01-01 12:00")

	extractor := new(mockReminderExtractor)
	extractor.On("ExtractReminder", mock.Anything, mock.Anything, loc, now, mock.Anything).
		Return(&ReminderExtraction{Text: "irgendwann anrufen"}, nil)

	builder := NewReminderBuilder(db, extractor, zap.NewNop())
	_, _, err := builder.Build(context.Background(), "irgendwann anrufen", user, nil, loc, now)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no event time")
}
