package billing

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/effortless-app/effortless-server/internal/database"
)

// Reconciler drives paid subscriptions back in sync with the store backends.
// Store truth wins: a user whose store-side subscription lapsed is reverted
// to the free tier, a renewed one gets its expiry extended.
type Reconciler struct {
	db        *database.DB
	verifiers map[string]Verifier
	logger    *zap.Logger
	now       func() time.Time
}

func NewReconciler(db *database.DB, logger *zap.Logger, verifiers ...Verifier) *Reconciler {
	byPlatform := make(map[string]Verifier, len(verifiers))
	for _, v := range verifiers {
		byPlatform[v.Platform()] = v
	}
	return &Reconciler{
		db:        db,
		verifiers: byPlatform,
		logger:    logger,
		now:       time.Now,
	}
}

// Tally counts one reconciliation batch. Reverted counts users sent back to
// the free tier without a confirmed store verdict (missing token, unknown
// platform, failed verification), Expired those whose store subscription
// actually lapsed.
type Tally struct {
	Checked  int `json:"checked"`
	Renewed  int `json:"renewed"`
	Expired  int `json:"expired"`
	Reverted int `json:"reverted"`
	Errors   int `json:"errors"`
}

// ReconcileAll verifies every tracked subscription. One user's failure never
// blocks the rest of the batch.
func (r *Reconciler) ReconcileAll(ctx context.Context) (Tally, error) {
	var tally Tally

	subscriptions, err := r.db.ListTrackedSubscriptions()
	if err != nil {
		return tally, fmt.Errorf("failed to list tracked subscriptions: %w", err)
	}

	for _, sub := range subscriptions {
		outcome, err := r.Reconcile(ctx, &sub)
		tally.Checked++
		if err != nil {
			tally.Errors++
			r.logger.Error("subscription reconciliation failed",
				zap.String("user_id", sub.UserID),
				zap.String("product_id", sub.ProductID),
				zap.Error(err))
		}
		switch outcome {
		case OutcomeRenewed:
			tally.Renewed++
		case OutcomeExpired:
			tally.Expired++
		case OutcomeReverted:
			tally.Reverted++
		}
	}

	return tally, nil
}

// Outcome is the result of reconciling one subscription.
type Outcome string

const (
	// OutcomeUnchanged means the subscription is active with an unchanged expiry.
	OutcomeUnchanged Outcome = "unchanged"
	// OutcomeRenewed means the store reported a later expiry.
	OutcomeRenewed Outcome = "renewed"
	// OutcomeExpired means the store subscription lapsed and the user was
	// moved to the free tier.
	OutcomeExpired Outcome = "expired"
	// OutcomeReverted means the user was moved to the free tier without a
	// confirmed store verdict (missing token, unverifiable platform, or a
	// failed verification).
	OutcomeReverted Outcome = "reverted"
)

// Reconcile brings one subscription in line with its store. A paid tier
// without a purchase token is unverifiable and reverts immediately; a tier
// whose local expiry is still in the future is trusted without a store
// roundtrip. When the store cannot confirm the subscription the user loses
// the paid tier rather than keeping it on stale data.
func (r *Reconciler) Reconcile(ctx context.Context, sub *database.Subscription) (Outcome, error) {
	if sub.IsFree() {
		return OutcomeUnchanged, nil
	}

	if sub.PurchaseToken == nil || *sub.PurchaseToken == "" {
		if err := r.db.RevertToFree(sub.UserID); err != nil {
			return OutcomeUnchanged, err
		}
		r.logger.Warn("paid tier without purchase token, reverted to free",
			zap.String("user_id", sub.UserID),
			zap.String("product_id", sub.ProductID))
		return OutcomeReverted, nil
	}

	if sub.ExpirationTime != nil && sub.ExpirationTime.After(r.now()) {
		return OutcomeUnchanged, nil
	}

	platform := ""
	if sub.Platform != nil {
		platform = *sub.Platform
	}
	verifier, ok := r.verifiers[platform]
	if !ok {
		if revertErr := r.db.RevertToFree(sub.UserID); revertErr != nil {
			return OutcomeUnchanged, revertErr
		}
		return OutcomeReverted, fmt.Errorf("no verifier for platform %q", platform)
	}

	verdict, err := verifier.Verify(ctx, sub.ProductID, *sub.PurchaseToken)
	if err != nil {
		if revertErr := r.db.RevertToFree(sub.UserID); revertErr != nil {
			return OutcomeUnchanged, revertErr
		}
		r.logger.Warn("verification failed, reverted to free",
			zap.String("user_id", sub.UserID),
			zap.String("product_id", sub.ProductID),
			zap.Error(err))
		return OutcomeReverted, fmt.Errorf("verification failed: %w", err)
	}

	if !verdict.Active {
		if err := r.db.RevertToFree(sub.UserID); err != nil {
			return OutcomeUnchanged, err
		}
		r.logger.Info("subscription lapsed, reverted to free",
			zap.String("user_id", sub.UserID),
			zap.String("product_id", sub.ProductID))
		return OutcomeExpired, nil
	}

	if !verdict.Expiry.IsZero() && (sub.ExpirationTime == nil || verdict.Expiry.After(*sub.ExpirationTime)) {
		if err := r.db.UpdateSubscriptionExpiration(sub.UserID, verdict.Expiry); err != nil {
			return OutcomeUnchanged, err
		}
		return OutcomeRenewed, nil
	}

	return OutcomeUnchanged, nil
}
