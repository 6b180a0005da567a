package migrations

import (
	"database/sql"
)

func init() {
	Register(Migration{
		Version: 2,
		Name:    "user_subscription_columns",
		Up:      addSubscriptionColumns,
	})
}

func addSubscriptionColumns(db *sql.DB) error {
	statements := []string{
		`ALTER TABLE users ADD COLUMN tier_product_id TEXT NOT NULL DEFAULT 'free'`,
		`ALTER TABLE users ADD COLUMN tier_expiration_time DATETIME`,
		`ALTER TABLE users ADD COLUMN purchase_token TEXT`,
		`ALTER TABLE users ADD COLUMN platform TEXT`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}
