package extract

import (
	"context"
	"time"
)

// TodoExtraction is the structured output of the todo extraction agent,
// before resolution against the database.
type TodoExtraction struct {
	Text      string
	EventTime *time.Time
	TagNames  []string
}

// ReminderExtraction is the structured output of the reminder extraction
// agent. EventTime is when the referenced event happens; ReminderTimes are
// when to notify. Either may be missing; normalization of one from the other
// happens in the builder, not here.
type ReminderExtraction struct {
	Text          string
	EventTime     *time.Time
	ReminderTimes []time.Time
	TagNames      []string
}

// TodoExtractor extracts a single todo from one classified phrase. The
// reference time and timezone are injected per call.
type TodoExtractor interface {
	ExtractTodo(ctx context.Context, phrase string, loc *time.Location, now time.Time, knownTags []string) (*TodoExtraction, error)
}

// ReminderExtractor extracts a single reminder from one classified phrase.
type ReminderExtractor interface {
	ExtractReminder(ctx context.Context, phrase string, loc *time.Location, now time.Time, knownTags []string) (*ReminderExtraction, error)
}
