package database

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"
)

// Reminder represents a persisted actionable item with one or more
// notification timestamps. NotificationTimes is never empty for a stored
// reminder; CreateReminder enforces the invariant.
type Reminder struct {
	ID                int64       `json:"id"`
	UserID            string      `json:"user_id"`
	Text              string      `json:"reminder_text"`
	EventTime         time.Time   `json:"event_time"`
	NotificationTimes []time.Time `json:"notification_times"`
	Done              bool        `json:"done"`
	TagIDs            []int64     `json:"tag_ids,omitempty"`
	CreatedAt         time.Time   `json:"created_at"`
}

// CreateReminder inserts a reminder and its notification times.
func (d *DB) CreateReminder(reminder *Reminder) (*Reminder, error) {
	if reminder.Text == "" {
		return nil, fmt.Errorf("reminder text is required")
	}
	if reminder.UserID == "" {
		return nil, fmt.Errorf("reminder user id is required")
	}
	if len(reminder.NotificationTimes) == 0 {
		return nil, fmt.Errorf("reminder requires at least one notification time")
	}

	result, err := d.Exec(`
		INSERT INTO reminders (user_id, reminder_text, event_time)
		VALUES (?, ?, ?)
	`, reminder.UserID, reminder.Text, reminder.EventTime)
	if err != nil {
		return nil, fmt.Errorf("failed to create reminder: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get reminder id: %w", err)
	}
	reminder.ID = id

	for _, t := range reminder.NotificationTimes {
		_, err := d.Exec(`
			INSERT INTO reminder_times (reminder_id, reminder_time) VALUES (?, ?)
		`, id, t)
		if err != nil {
			return nil, fmt.Errorf("failed to create reminder time: %w", err)
		}
	}

	reminder.CreatedAt = time.Now()
	return reminder, nil
}

// GetReminderByID retrieves a reminder with its notification times and tags,
// or nil when not found.
func (d *DB) GetReminderByID(id int64) (*Reminder, error) {
	var reminder Reminder

	err := d.QueryRow(`
		SELECT id, user_id, reminder_text, event_time, done, created_at
		FROM reminders WHERE id = ?
	`, id).Scan(&reminder.ID, &reminder.UserID, &reminder.Text, &reminder.EventTime, &reminder.Done, &reminder.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reminder: %w", err)
	}

	if err := d.fillReminderTimes(&reminder); err != nil {
		return nil, err
	}

	tagIDs, err := d.getConnectedTagIDs("reminder_id", reminder.ID)
	if err != nil {
		return nil, err
	}
	reminder.TagIDs = tagIDs

	return &reminder, nil
}

func (d *DB) fillReminderTimes(reminder *Reminder) error {
	rows, err := d.Query(`
		SELECT reminder_time FROM reminder_times
		WHERE reminder_id = ? ORDER BY reminder_time ASC
	`, reminder.ID)
	if err != nil {
		return fmt.Errorf("failed to get reminder times: %w", err)
	}
	defer rows.Close()

	reminder.NotificationTimes = reminder.NotificationTimes[:0]
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return fmt.Errorf("failed to scan reminder time: %w", err)
		}
		reminder.NotificationTimes = append(reminder.NotificationTimes, t)
	}
	return rows.Err()
}

// FindDueReminders returns reminders with a notification time inside the
// half-open window (after, before]. Reminders already marked done are skipped.
// Each reminder appears once even when several of its notification times fall
// in the window.
func (d *DB) FindDueReminders(after, before time.Time) ([]Reminder, error) {
	rows, err := d.Query(`
		SELECT r.id, r.user_id, r.reminder_text, r.event_time, r.done, r.created_at
		FROM reminder_times rt
		JOIN reminders r ON r.id = rt.reminder_id
		WHERE rt.reminder_time > ? AND rt.reminder_time <= ? AND r.done = 0
		GROUP BY r.id
		ORDER BY r.id ASC
	`, after, before)
	if err != nil {
		return nil, fmt.Errorf("failed to find due reminders: %w", err)
	}
	defer rows.Close()

	var reminders []Reminder
	for rows.Next() {
		var reminder Reminder
		if err := rows.Scan(&reminder.ID, &reminder.UserID, &reminder.Text, &reminder.EventTime, &reminder.Done, &reminder.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan reminder: %w", err)
		}
		reminders = append(reminders, reminder)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range reminders {
		if err := d.fillReminderTimes(&reminders[i]); err != nil {
			return nil, err
		}
		tagIDs, err := d.getConnectedTagIDs("reminder_id", reminders[i].ID)
		if err != nil {
			return nil, err
		}
		reminders[i].TagIDs = tagIDs
	}

	return reminders, nil
}

// SetReminderDone flips the done flag.
func (d *DB) SetReminderDone(id int64, done bool) error {
	_, err := d.Exec(`UPDATE reminders SET done = ? WHERE id = ?`, done, id)
	if err != nil {
		return fmt.Errorf("failed to update reminder: %w", err)
	}
	return nil
}

// AttachReminderTag connects a tag to a reminder. Each call is independently atomic.
func (d *DB) AttachReminderTag(reminderID, tagID int64) error {
	_, err := d.Exec(`
		INSERT INTO tag_connections (reminder_id, tag_id) VALUES (?, ?)
	`, reminderID, tagID)
	if err != nil {
		return fmt.Errorf("failed to attach tag %d to reminder %d: %w", tagID, reminderID, err)
	}
	return nil
}

// GetReminderRecipients resolves every user with access to a reminder: the
// owner plus every user holding an accepted share on any tag connected to it.
func (d *DB) GetReminderRecipients(reminderID int64) ([]string, error) {
	reminder, err := d.GetReminderByID(reminderID)
	if err != nil {
		return nil, err
	}
	if reminder == nil {
		return nil, fmt.Errorf("reminder not found: %d", reminderID)
	}

	seen := map[string]bool{reminder.UserID: true}

	rows, err := d.Query(`
		SELECT DISTINCT ts.shared_with
		FROM tag_connections tc
		JOIN tag_shares ts ON ts.tag_id = tc.tag_id
		WHERE tc.reminder_id = ? AND ts.accepted = 1
	`, reminderID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve reminder recipients: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("failed to scan recipient: %w", err)
		}
		seen[userID] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	recipients := make([]string, 0, len(seen))
	for userID := range seen {
		recipients = append(recipients, userID)
	}
	sort.Strings(recipients)

	return recipients, nil
}
