package extract

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/effortless-app/effortless-server/internal/database"
	"github.com/effortless-app/effortless-server/internal/timeutil"
)

// ReminderBuilder extracts and persists reminders.
type ReminderBuilder struct {
	db        *database.DB
	extractor ReminderExtractor
	logger    *zap.Logger
}

func NewReminderBuilder(db *database.DB, extractor ReminderExtractor, logger *zap.Logger) *ReminderBuilder {
	return &ReminderBuilder{db: db, extractor: extractor, logger: logger}
}

func (b *ReminderBuilder) Build(ctx context.Context, phrase string, user *database.User, knownTags []database.Tag, loc *time.Location, now time.Time) (*Item, string, error) {
	extraction, err := b.extractor.ExtractReminder(ctx, phrase, loc, now, TagNames(knownTags))
	if err != nil {
		return nil, "", fmt.Errorf("reminder extraction: %w", err)
	}

	eventTime, notificationTimes, err := normalizeReminderTimes(extraction)
	if err != nil {
		return nil, "", err
	}

	reminder, err := b.db.CreateReminder(&database.Reminder{
		UserID:            user.UUID,
		Text:              extraction.Text,
		EventTime:         eventTime,
		NotificationTimes: notificationTimes,
	})
	if err != nil {
		return nil, "", fmt.Errorf("reminder persistence: %w", err)
	}

	tagIDs := ResolveTagIDs(knownTags, extraction.TagNames)
	for _, tagID := range tagIDs {
		if err := b.db.AttachReminderTag(reminder.ID, tagID); err != nil {
			b.logger.Warn("failed to attach tag to reminder",
				zap.Int64("reminder_id", reminder.ID),
				zap.Int64("tag_id", tagID),
				zap.Error(err))
		}
	}

	message := fmt.Sprintf("Du wirst am %s erinnert.", timeutil.JoinLocal(notificationTimes, loc))

	return &Item{
		Kind:              KindReminder,
		ID:                reminder.ID,
		Text:              reminder.Text,
		EventTime:         &reminder.EventTime,
		NotificationTimes: reminder.NotificationTimes,
		TagIDs:            tagIDs,
	}, message, nil
}

// normalizeReminderTimes fills whichever side the extraction left out: a
// missing event time becomes the first notification time, missing
// notification times become the event time. Both missing is an error, since
// a reminder without a time is a todo.
func normalizeReminderTimes(extraction *ReminderExtraction) (time.Time, []time.Time, error) {
	eventTime := extraction.EventTime
	notificationTimes := extraction.ReminderTimes

	switch {
	case eventTime == nil && len(notificationTimes) == 0:
		return time.Time{}, nil, fmt.Errorf("reminder has no event time and no notification times")
	case eventTime == nil:
		eventTime = &notificationTimes[0]
	case len(notificationTimes) == 0:
		notificationTimes = []time.Time{*eventTime}
	}

	return *eventTime, notificationTimes, nil
}
