package billing

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/androidpublisher/v3"
	"google.golang.org/api/option"
)

// GooglePlayVerifier checks subscription purchases against the Google Play
// Developer API using a service account.
type GooglePlayVerifier struct {
	service     *androidpublisher.Service
	packageName string
	logger      *zap.Logger

	// now is swapped out in tests.
	now func() time.Time
}

func NewGooglePlayVerifier(ctx context.Context, packageName, serviceAccountFile string, logger *zap.Logger) (*GooglePlayVerifier, error) {
	service, err := androidpublisher.NewService(ctx, option.WithCredentialsFile(serviceAccountFile))
	if err != nil {
		return nil, fmt.Errorf("failed to create androidpublisher service: %w", err)
	}
	return &GooglePlayVerifier{
		service:     service,
		packageName: packageName,
		logger:      logger,
		now:         time.Now,
	}, nil
}

func (g *GooglePlayVerifier) Platform() string {
	return PlatformAndroid
}

// Verify fetches the purchase from Google Play. The subscription counts as
// active while the reported expiry lies in the future; a pending payment
// state with a future expiry is still active (payment retry window).
func (g *GooglePlayVerifier) Verify(ctx context.Context, productID, purchaseToken string) (*Verdict, error) {
	purchase, err := g.service.Purchases.Subscriptions.
		Get(g.packageName, productID, purchaseToken).
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("google play purchase lookup failed: %w", err)
	}

	expiry := time.UnixMilli(purchase.ExpiryTimeMillis).UTC()
	active := expiry.After(g.now())

	g.logger.Debug("google play verification",
		zap.String("product_id", productID),
		zap.Time("expiry", expiry),
		zap.Int64p("payment_state", purchase.PaymentState),
		zap.Bool("active", active))

	return &Verdict{Active: active, Expiry: expiry}, nil
}
