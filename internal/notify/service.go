package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/effortless-app/effortless-server/internal/database"
)

// Service routes a notification to a user's reachable channel: WhatsApp when
// a session is paired and the user has a phone number, email otherwise.
type Service struct {
	whatsapp Notifier
	email    Notifier
	logger   *zap.Logger
}

func NewService(whatsapp, email Notifier, logger *zap.Logger) *Service {
	return &Service{whatsapp: whatsapp, email: email, logger: logger}
}

// NotifyUser delivers text to the user over the first configured channel.
func (s *Service) NotifyUser(ctx context.Context, user *database.User, text string) error {
	if user == nil {
		return fmt.Errorf("no user to notify")
	}

	if s.whatsapp != nil && s.whatsapp.IsConfigured() && user.PhoneNumber != nil && *user.PhoneNumber != "" {
		if err := s.whatsapp.Send(ctx, *user.PhoneNumber, text); err == nil {
			return nil
		} else {
			s.logger.Warn("whatsapp delivery failed, trying email",
				zap.String("user_id", user.UUID),
				zap.Error(err))
		}
	}

	if s.email != nil && s.email.IsConfigured() && user.Email != "" {
		return s.email.Send(ctx, user.Email, text)
	}

	return fmt.Errorf("user %s has no reachable notification channel", user.UUID)
}
