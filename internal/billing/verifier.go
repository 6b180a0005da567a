package billing

import (
	"context"
	"time"
)

// Platform identifiers stored on the user row.
const (
	PlatformAndroid = "android"
	PlatformIOS     = "ios"
)

// Verdict is the outcome of verifying one purchase token against a store.
type Verdict struct {
	// Active reports whether the store still considers the subscription
	// paid for, including billing-retry and grace periods.
	Active bool
	// Expiry is the store-reported expiration. Zero when the store response
	// carried none.
	Expiry time.Time
}

// Verifier checks one platform's purchase token against its store backend.
type Verifier interface {
	// Verify resolves the current store-side state of a subscription.
	Verify(ctx context.Context, productID, purchaseToken string) (*Verdict, error)
	// Platform returns the platform identifier this verifier serves.
	Platform() string
}
