package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// FreeTierProductID marks users without a tracked subscription.
const FreeTierProductID = "free"

// Subscription is the per-user subscription state. A free user has no
// expiration time, no purchase token and no platform.
type Subscription struct {
	UserID         string     `json:"user_id"`
	ProductID      string     `json:"tier_product_id"`
	ExpirationTime *time.Time `json:"tier_expiration_time,omitempty"`
	PurchaseToken  *string    `json:"purchase_token,omitempty"`
	Platform       *string    `json:"platform,omitempty"`
}

// IsFree reports whether the subscription is on the free tier.
func (s *Subscription) IsFree() bool {
	return s.ProductID == FreeTierProductID
}

// GetSubscription returns the subscription state for a user, or nil when the
// user does not exist.
func (d *DB) GetSubscription(userUUID string) (*Subscription, error) {
	var sub Subscription
	var expiration sql.NullTime
	var token sql.NullString
	var platform sql.NullString

	err := d.QueryRow(`
		SELECT uuid, tier_product_id, tier_expiration_time, purchase_token, platform
		FROM users WHERE uuid = ?
	`, userUUID).Scan(&sub.UserID, &sub.ProductID, &expiration, &token, &platform)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	if expiration.Valid {
		t := expiration.Time
		sub.ExpirationTime = &t
	}
	if token.Valid {
		sub.PurchaseToken = &token.String
	}
	if platform.Valid {
		sub.Platform = &platform.String
	}

	return &sub, nil
}

// UpdateSubscription stores a verified purchase for a user.
func (d *DB) UpdateSubscription(userUUID, productID string, expiration time.Time, purchaseToken, platform string) error {
	result, err := d.Exec(`
		UPDATE users
		SET tier_product_id = ?, tier_expiration_time = ?, purchase_token = ?, platform = ?
		WHERE uuid = ?
	`, productID, expiration, purchaseToken, platform, userUUID)
	if err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}
	return requireRowUpdated(result, userUUID)
}

// UpdateSubscriptionExpiration extends an active subscription's expiry.
func (d *DB) UpdateSubscriptionExpiration(userUUID string, expiration time.Time) error {
	result, err := d.Exec(`
		UPDATE users SET tier_expiration_time = ? WHERE uuid = ?
	`, expiration, userUUID)
	if err != nil {
		return fmt.Errorf("failed to update subscription expiration: %w", err)
	}
	return requireRowUpdated(result, userUUID)
}

// RevertToFree transitions a user to the free tier, clearing expiration,
// purchase token and platform.
func (d *DB) RevertToFree(userUUID string) error {
	result, err := d.Exec(`
		UPDATE users
		SET tier_product_id = ?, tier_expiration_time = NULL, purchase_token = NULL, platform = NULL
		WHERE uuid = ?
	`, FreeTierProductID, userUUID)
	if err != nil {
		return fmt.Errorf("failed to revert user to free: %w", err)
	}
	return requireRowUpdated(result, userUUID)
}

// ListTrackedSubscriptions returns all users on a non-free tier with a stored
// expiration time. These are the candidates for batch reconciliation.
func (d *DB) ListTrackedSubscriptions() ([]Subscription, error) {
	rows, err := d.Query(`
		SELECT uuid, tier_product_id, tier_expiration_time, purchase_token, platform
		FROM users
		WHERE tier_product_id != ? AND tier_expiration_time IS NOT NULL
	`, FreeTierProductID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tracked subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []Subscription
	for rows.Next() {
		var sub Subscription
		var expiration sql.NullTime
		var token sql.NullString
		var platform sql.NullString

		if err := rows.Scan(&sub.UserID, &sub.ProductID, &expiration, &token, &platform); err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		if expiration.Valid {
			t := expiration.Time
			sub.ExpirationTime = &t
		}
		if token.Valid {
			sub.PurchaseToken = &token.String
		}
		if platform.Valid {
			sub.Platform = &platform.String
		}
		subs = append(subs, sub)
	}

	return subs, rows.Err()
}

func requireRowUpdated(result sql.Result, userUUID string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("user not found: %s", userUUID)
	}
	return nil
}
