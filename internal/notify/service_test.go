package notify

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/effortless-app/effortless-server/internal/database"
)

type stubNotifier struct {
	name       string
	configured bool
	err        error

	recipients []string
	texts      []string
}

func (s *stubNotifier) Send(_ context.Context, recipient, text string) error {
	if s.err != nil {
		return s.err
	}
	s.recipients = append(s.recipients, recipient)
	s.texts = append(s.texts, text)
	return nil
}

func (s *stubNotifier) Name() string       { return s.name }
func (s *stubNotifier) IsConfigured() bool { return s.configured }

func phonePtr(p string) *string { return &p }

func TestServicePrefersWhatsApp(t *testing.T) {
	wa := &stubNotifier{name: "whatsapp", configured: true}
	email := &stubNotifier{name: "resend", configured: true}
	svc := NewService(wa, email, zap.NewNop())

	user := &database.User{UUID: "u-1", PhoneNumber: phonePtr("+4915200000001"), Email: "u@example.com"}
	require.NoError(t, svc.NotifyUser(context.Background(), user, "Erinnerung: Zahnarzt"))

	assert.Equal(t, []string{"+4915200000001"}, wa.recipients)
	assert.Empty(t, email.recipients)
}

func TestServiceFallsBackToEmail(t *testing.T) {
	wa := &stubNotifier{name: "whatsapp", configured: true, err: fmt.Errorf("not paired")}
	email := &stubNotifier{name: "resend", configured: true}
	svc := NewService(wa, email, zap.NewNop())

	user := &database.User{UUID: "u-1", PhoneNumber: phonePtr("+4915200000001"), Email: "u@example.com"}
	require.NoError(t, svc.NotifyUser(context.Background(), user, "Erinnerung"))

	assert.Equal(t, []string{"u@example.com"}, email.recipients)
}

func TestServiceEmailOnlyUser(t *testing.T) {
	wa := &stubNotifier{name: "whatsapp", configured: true}
	email := &stubNotifier{name: "resend", configured: true}
	svc := NewService(wa, email, zap.NewNop())

	user := &database.User{UUID: "u-1", Email: "u@example.com"}
	require.NoError(t, svc.NotifyUser(context.Background(), user, "Erinnerung"))

	assert.Empty(t, wa.recipients)
	assert.Equal(t, []string{"u@example.com"}, email.recipients)
}

func TestServiceNoReachableChannel(t *testing.T) {
	svc := NewService(nil, nil, zap.NewNop())

	err := svc.NotifyUser(context.Background(), &database.User{UUID: "u-1"}, "Erinnerung")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no reachable notification channel")
}
