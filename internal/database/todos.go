package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Todo represents a persisted actionable item with no notification schedule.
// It is distinguished from a Reminder solely by having no notification times.
type Todo struct {
	ID        int64      `json:"id"`
	UserID    string     `json:"user_id"`
	Text      string     `json:"todo_text"`
	EventTime *time.Time `json:"event_time,omitempty"`
	Done      bool       `json:"done"`
	TagIDs    []int64    `json:"tag_ids,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// CreateTodo inserts a new todo and returns it with its assigned id.
func (d *DB) CreateTodo(todo *Todo) (*Todo, error) {
	if todo.Text == "" {
		return nil, fmt.Errorf("todo text is required")
	}
	if todo.UserID == "" {
		return nil, fmt.Errorf("todo user id is required")
	}

	result, err := d.Exec(`
		INSERT INTO todos (user_id, todo_text, event_time)
		VALUES (?, ?, ?)
	`, todo.UserID, todo.Text, todo.EventTime)
	if err != nil {
		return nil, fmt.Errorf("failed to create todo: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get todo id: %w", err)
	}

	todo.ID = id
	todo.CreatedAt = time.Now()
	return todo, nil
}

// GetTodoByID retrieves a todo by its id, or nil when not found.
func (d *DB) GetTodoByID(id int64) (*Todo, error) {
	var todo Todo
	var eventTime sql.NullTime

	err := d.QueryRow(`
		SELECT id, user_id, todo_text, event_time, done, created_at
		FROM todos WHERE id = ?
	`, id).Scan(&todo.ID, &todo.UserID, &todo.Text, &eventTime, &todo.Done, &todo.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get todo: %w", err)
	}

	if eventTime.Valid {
		t := eventTime.Time
		todo.EventTime = &t
	}

	tagIDs, err := d.getConnectedTagIDs("todo_id", todo.ID)
	if err != nil {
		return nil, err
	}
	todo.TagIDs = tagIDs

	return &todo, nil
}

// AttachTodoTag connects a tag to a todo. Each call is independently atomic.
func (d *DB) AttachTodoTag(todoID, tagID int64) error {
	_, err := d.Exec(`
		INSERT INTO tag_connections (todo_id, tag_id) VALUES (?, ?)
	`, todoID, tagID)
	if err != nil {
		return fmt.Errorf("failed to attach tag %d to todo %d: %w", tagID, todoID, err)
	}
	return nil
}
