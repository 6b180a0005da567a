package pulse

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/effortless-app/effortless-server/internal/database"
	"github.com/effortless-app/effortless-server/internal/timeutil"
)

// UserNotifier delivers a text notification to a user over their reachable
// channel.
type UserNotifier interface {
	NotifyUser(ctx context.Context, user *database.User, text string) error
}

// Sweeper finds reminders due within a window and fans the notification out
// to every recipient: the owner plus users holding an accepted share on one
// of the reminder's tags.
type Sweeper struct {
	db       *database.DB
	notifier UserNotifier
	logger   *zap.Logger
}

func NewSweeper(db *database.DB, notifier UserNotifier, logger *zap.Logger) *Sweeper {
	return &Sweeper{db: db, notifier: notifier, logger: logger}
}

// Stats counts one sweep. Failed counts failed deliveries; a failure never
// aborts the sweep.
type Stats struct {
	Due      int `json:"due"`
	Notified int `json:"notified"`
	Failed   int `json:"failed"`
}

// Check processes all reminder times in (after, before]. The half-open window
// makes consecutive sweeps non-overlapping: a time delivered in one sweep is
// outside every later window.
func (s *Sweeper) Check(ctx context.Context, after, before time.Time) (Stats, error) {
	var stats Stats

	due, err := s.db.FindDueReminders(after, before)
	if err != nil {
		return stats, fmt.Errorf("failed to find due reminders: %w", err)
	}
	stats.Due = len(due)

	for _, reminder := range due {
		recipients, err := s.db.GetReminderRecipients(reminder.ID)
		if err != nil {
			s.logger.Error("failed to resolve reminder recipients",
				zap.Int64("reminder_id", reminder.ID),
				zap.Error(err))
			stats.Failed++
			continue
		}

		for _, recipientID := range recipients {
			if err := s.notify(ctx, recipientID, reminder); err != nil {
				s.logger.Error("reminder delivery failed",
					zap.Int64("reminder_id", reminder.ID),
					zap.String("recipient", recipientID),
					zap.Error(err))
				stats.Failed++
				continue
			}
			stats.Notified++
		}
	}

	return stats, nil
}

func (s *Sweeper) notify(ctx context.Context, recipientID string, reminder database.Reminder) error {
	user, err := s.db.GetUserByUUID(recipientID)
	if err != nil {
		return fmt.Errorf("failed to load recipient: %w", err)
	}
	if user == nil {
		return fmt.Errorf("recipient %s not found", recipientID)
	}

	loc, _ := timeutil.ResolveLocation(user.Timezone)
	text := fmt.Sprintf("Erinnerung: %s (am %s)", reminder.Text, timeutil.FormatLocal(reminder.EventTime, loc))
	return s.notifier.NotifyUser(ctx, user, text)
}
