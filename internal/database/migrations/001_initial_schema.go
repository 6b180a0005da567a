package migrations

import (
	"database/sql"
)

func init() {
	Register(Migration{
		Version: 1,
		Name:    "initial_schema",
		Up:      createInitialSchema,
	})
}

func createInitialSchema(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			uuid TEXT PRIMARY KEY,
			phone_number TEXT UNIQUE,
			email TEXT,
			name TEXT,
			timezone TEXT NOT NULL DEFAULT 'Europe/Berlin',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS todos (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			todo_text TEXT NOT NULL,
			event_time DATETIME,
			done BOOLEAN NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY(user_id) REFERENCES users(uuid) ON DELETE CASCADE
		)`,

		`CREATE TABLE IF NOT EXISTS reminders (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			reminder_text TEXT NOT NULL,
			event_time DATETIME NOT NULL,
			done BOOLEAN NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY(user_id) REFERENCES users(uuid) ON DELETE CASCADE
		)`,

		`CREATE TABLE IF NOT EXISTS reminder_times (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			reminder_id INTEGER NOT NULL,
			reminder_time DATETIME NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY(reminder_id) REFERENCES reminders(id) ON DELETE CASCADE
		)`,

		`CREATE TABLE IF NOT EXISTS tags (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(user_id, name),
			FOREIGN KEY(user_id) REFERENCES users(uuid) ON DELETE CASCADE
		)`,

		`CREATE TABLE IF NOT EXISTS tag_connections (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			reminder_id INTEGER,
			todo_id INTEGER,
			tag_id INTEGER NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			CHECK ((reminder_id IS NULL) != (todo_id IS NULL)),
			FOREIGN KEY(reminder_id) REFERENCES reminders(id) ON DELETE CASCADE,
			FOREIGN KEY(todo_id) REFERENCES todos(id) ON DELETE CASCADE,
			FOREIGN KEY(tag_id) REFERENCES tags(id) ON DELETE CASCADE
		)`,

		`CREATE TABLE IF NOT EXISTS tag_shares (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tag_id INTEGER NOT NULL,
			owner_id TEXT NOT NULL,
			shared_with TEXT NOT NULL,
			accepted BOOLEAN NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(tag_id, shared_with),
			CHECK (owner_id != shared_with),
			FOREIGN KEY(tag_id) REFERENCES tags(id) ON DELETE CASCADE
		)`,

		`CREATE INDEX IF NOT EXISTS idx_reminder_times_time ON reminder_times(reminder_time)`,
		`CREATE INDEX IF NOT EXISTS idx_reminders_user ON reminders(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_todos_user ON todos(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_tag_connections_reminder ON tag_connections(reminder_id)`,
		`CREATE INDEX IF NOT EXISTS idx_tag_shares_shared_with ON tag_shares(shared_with)`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}
