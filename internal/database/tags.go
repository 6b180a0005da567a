package database

import (
	"fmt"
	"time"
)

// Tag is a user-owned label attachable to todos and reminders. Shares grant
// other users access to reminders connected to the tag.
type Tag struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// TagShare records a tag shared from one user to another. Only accepted
// shares grant access.
type TagShare struct {
	ID         int64     `json:"id"`
	TagID      int64     `json:"tag_id"`
	OwnerID    string    `json:"owner_id"`
	SharedWith string    `json:"shared_with"`
	Accepted   bool      `json:"accepted"`
	CreatedAt  time.Time `json:"created_at"`
}

// CreateTag inserts a tag for a user.
func (d *DB) CreateTag(userID, name string) (*Tag, error) {
	if name == "" {
		return nil, fmt.Errorf("tag name is required")
	}

	result, err := d.Exec(`
		INSERT INTO tags (user_id, name) VALUES (?, ?)
	`, userID, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create tag: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get tag id: %w", err)
	}

	return &Tag{ID: id, UserID: userID, Name: name, CreatedAt: time.Now()}, nil
}

// GetUserTags returns all tags owned by a user.
func (d *DB) GetUserTags(userID string) ([]Tag, error) {
	rows, err := d.Query(`
		SELECT id, user_id, name, created_at FROM tags
		WHERE user_id = ? ORDER BY name ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user tags: %w", err)
	}
	defer rows.Close()

	var tags []Tag
	for rows.Next() {
		var tag Tag
		if err := rows.Scan(&tag.ID, &tag.UserID, &tag.Name, &tag.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, tag)
	}

	return tags, rows.Err()
}

// ShareTag creates a share of a tag with another user. The share starts
// unaccepted; acceptance happens through AcceptTagShare.
func (d *DB) ShareTag(tagID int64, ownerID, sharedWith string) (*TagShare, error) {
	if ownerID == sharedWith {
		return nil, fmt.Errorf("cannot share tag with yourself")
	}

	result, err := d.Exec(`
		INSERT INTO tag_shares (tag_id, owner_id, shared_with) VALUES (?, ?, ?)
	`, tagID, ownerID, sharedWith)
	if err != nil {
		return nil, fmt.Errorf("failed to share tag: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get share id: %w", err)
	}

	return &TagShare{
		ID:         id,
		TagID:      tagID,
		OwnerID:    ownerID,
		SharedWith: sharedWith,
		CreatedAt:  time.Now(),
	}, nil
}

// AcceptTagShare marks a share as accepted.
func (d *DB) AcceptTagShare(shareID int64) error {
	_, err := d.Exec(`UPDATE tag_shares SET accepted = 1 WHERE id = ?`, shareID)
	if err != nil {
		return fmt.Errorf("failed to accept tag share: %w", err)
	}
	return nil
}

// getConnectedTagIDs returns tag ids connected to an entity. column is either
// "reminder_id" or "todo_id" (callers pass constants, never user input).
func (d *DB) getConnectedTagIDs(column string, entityID int64) ([]int64, error) {
	rows, err := d.Query(
		fmt.Sprintf(`SELECT tag_id FROM tag_connections WHERE %s = ? ORDER BY tag_id ASC`, column),
		entityID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get tag connections: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan tag connection: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}
