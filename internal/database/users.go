package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// User represents a registered user. The UUID is the identifier used across
// all tables and external systems.
type User struct {
	UUID        string     `json:"uuid"`
	PhoneNumber *string    `json:"phone_number,omitempty"`
	Email       string     `json:"email,omitempty"`
	Name        string     `json:"name,omitempty"`
	Timezone    string     `json:"timezone"`
	CreatedAt   time.Time  `json:"created_at"`
}

// CreateUser inserts a new user. A UUID is generated when none is set.
func (d *DB) CreateUser(user *User) (*User, error) {
	if user.UUID == "" {
		user.UUID = uuid.NewString()
	}
	if user.Timezone == "" {
		user.Timezone = "Europe/Berlin"
	}

	_, err := d.Exec(`
		INSERT INTO users (uuid, phone_number, email, name, timezone)
		VALUES (?, ?, ?, ?, ?)
	`, user.UUID, user.PhoneNumber, user.Email, user.Name, user.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	user.CreatedAt = time.Now()
	return user, nil
}

func scanUser(row *sql.Row) (*User, error) {
	var user User
	var phone sql.NullString
	var email sql.NullString
	var name sql.NullString

	err := row.Scan(&user.UUID, &phone, &email, &name, &user.Timezone, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	if phone.Valid {
		user.PhoneNumber = &phone.String
	}
	user.Email = email.String
	user.Name = name.String

	return &user, nil
}

// GetUserByUUID returns the user with the given UUID, or nil when not found.
func (d *DB) GetUserByUUID(userUUID string) (*User, error) {
	return scanUser(d.QueryRow(`
		SELECT uuid, phone_number, email, name, timezone, created_at
		FROM users WHERE uuid = ?
	`, userUUID))
}

// GetUserByPhone returns the user with the given phone number, or nil when not found.
func (d *DB) GetUserByPhone(phone string) (*User, error) {
	return scanUser(d.QueryRow(`
		SELECT uuid, phone_number, email, name, timezone, created_at
		FROM users WHERE phone_number = ?
	`, phone))
}

// GetUserTimezone returns the user's IANA timezone name. Users without a
// stored timezone fall back to Europe/Berlin.
func (d *DB) GetUserTimezone(userUUID string) (string, error) {
	var tz string
	err := d.QueryRow(`SELECT timezone FROM users WHERE uuid = ?`, userUUID).Scan(&tz)
	if errors.Is(err, sql.ErrNoRows) {
		return "Europe/Berlin", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get user timezone: %w", err)
	}
	return tz, nil
}
