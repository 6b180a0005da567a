package notify

import (
	"context"
	"fmt"

	"github.com/effortless-app/effortless-server/internal/whatsapp"
)

// WhatsAppNotifier delivers notifications as WhatsApp direct messages.
type WhatsAppNotifier struct {
	client *whatsapp.Client
}

func NewWhatsAppNotifier(client *whatsapp.Client) *WhatsAppNotifier {
	if client == nil {
		return nil
	}
	return &WhatsAppNotifier{client: client}
}

func (w *WhatsAppNotifier) IsConfigured() bool {
	return w != nil && w.client != nil && w.client.IsLoggedIn()
}

// Send delivers text to the recipient's phone number.
func (w *WhatsAppNotifier) Send(ctx context.Context, recipient, text string) error {
	if recipient == "" {
		return fmt.Errorf("no recipient specified")
	}
	return w.client.SendText(ctx, recipient, text)
}

func (w *WhatsAppNotifier) Name() string {
	return "whatsapp"
}
