package billing

import (
	"context"
	"crypto/ecdsa"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const appStoreAPIBaseURL = "https://api.storekit.itunes.apple.com"

// App Store subscription statuses counted as active: 1 = active,
// 3 = billing retry, 4 = billing grace period.
var appStoreActiveStatuses = map[int64]bool{1: true, 3: true, 4: true}

// AppStoreVerifier checks subscriptions against the App Store Server API,
// authenticated with a short-lived ES256 token. The stored purchase token is
// the original transaction id.
type AppStoreVerifier struct {
	keyID      string
	issuerID   string
	bundleID   string
	privateKey *ecdsa.PrivateKey
	httpClient *http.Client
	baseURL    string
	logger     *zap.Logger
}

func NewAppStoreVerifier(keyID, issuerID, bundleID string, privateKeyPEM []byte, logger *zap.Logger) (*AppStoreVerifier, error) {
	privateKey, err := jwt.ParseECPrivateKeyFromPEM(privateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to parse app store private key: %w", err)
	}
	return &AppStoreVerifier{
		keyID:      keyID,
		issuerID:   issuerID,
		bundleID:   bundleID,
		privateKey: privateKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    appStoreAPIBaseURL,
		logger:     logger,
	}, nil
}

func (a *AppStoreVerifier) Platform() string {
	return PlatformIOS
}

// Verify fetches the subscription statuses for the original transaction id.
// The first transaction of the first group carries the current state.
func (a *AppStoreVerifier) Verify(ctx context.Context, productID, purchaseToken string) (*Verdict, error) {
	token, err := a.signToken()
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/inApps/v1/subscriptions/%s", a.baseURL, purchaseToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build app store request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("app store request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read app store response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("app store returned status %d: %s", resp.StatusCode, string(body))
	}

	last := gjson.GetBytes(body, "data.0.lastTransactions.0")
	if !last.Exists() {
		return nil, fmt.Errorf("app store response has no transactions for %s", purchaseToken)
	}

	status := last.Get("status").Int()
	verdict := &Verdict{Active: appStoreActiveStatuses[status]}

	if signedInfo := last.Get("signedTransactionInfo").String(); signedInfo != "" {
		if expiry, ok := expiryFromSignedTransaction(signedInfo); ok {
			verdict.Expiry = expiry
		}
	}

	a.logger.Debug("app store verification",
		zap.String("product_id", productID),
		zap.Int64("status", status),
		zap.Time("expiry", verdict.Expiry),
		zap.Bool("active", verdict.Active))

	return verdict, nil
}

// signToken builds the App Store Server API bearer token, valid for 5 minutes.
func (a *AppStoreVerifier) signToken() (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodES256, jwt.MapClaims{
		"iss": a.issuerID,
		"iat": now.Unix(),
		"exp": now.Add(5 * time.Minute).Unix(),
		"aud": "appstoreconnect-v1",
		"bid": a.bundleID,
	})
	token.Header["kid"] = a.keyID

	signed, err := token.SignedString(a.privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign app store token: %w", err)
	}
	return signed, nil
}

// expiryFromSignedTransaction reads expiresDate out of a JWS transaction
// payload. Apple signs the payload; the expiry is informational here, so the
// signature is not re-verified.
func expiryFromSignedTransaction(jws string) (time.Time, bool) {
	parts := strings.Split(jws, ".")
	if len(parts) != 3 {
		return time.Time{}, false
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return time.Time{}, false
	}
	expiresMillis := gjson.GetBytes(payload, "expiresDate")
	if !expiresMillis.Exists() {
		return time.Time{}, false
	}
	return time.UnixMilli(expiresMillis.Int()).UTC(), true
}
