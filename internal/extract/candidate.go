package extract

import (
	"context"
	"time"
)

// Kind classifies a candidate as a todo or a reminder.
type Kind string

const (
	KindTodo     Kind = "todo"
	KindReminder Kind = "reminder"
)

// Candidate is one classified actionable item extracted from a raw message,
// prior to persistence. It exists only within one orchestration call.
type Candidate struct {
	Kind Kind   `json:"type"`
	Text string `json:"text"`
}

// CandidateExtractor classifies a raw message into an ordered list of
// candidates. Implementations wrap a non-deterministic model call and must
// coerce malformed output into the strict two-field shape, dropping invalid
// entries rather than failing.
type CandidateExtractor interface {
	Extract(ctx context.Context, text string) ([]Candidate, error)
}

// Item is the structured record for one created entity, returned to the
// caller alongside its confirmation message.
type Item struct {
	Kind              Kind        `json:"type"`
	ID                int64       `json:"id"`
	Text              string      `json:"text"`
	EventTime         *time.Time  `json:"event_time,omitempty"`
	NotificationTimes []time.Time `json:"notification_times,omitempty"`
	TagIDs            []int64     `json:"tag_ids,omitempty"`
}

// Result aggregates one orchestration call. Items and Messages are always the
// same length and index-aligned.
type Result struct {
	Items    []Item   `json:"items"`
	Messages []string `json:"messages"`
}
