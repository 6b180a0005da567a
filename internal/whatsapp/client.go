package whatsapp

import (
	"context"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	qrcode "github.com/skip2/go-qrcode"
	"go.mau.fi/whatsmeow"
	waE2E "go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	waLog "go.mau.fi/whatsmeow/util/log"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"
)

const pairingQRPath = "whatsapp_qr.png"

// Client wraps a whatsmeow session used for outbound confirmations and
// reminder notifications.
type Client struct {
	WAClient  *whatsmeow.Client
	container *sqlstore.Container
	logger    *zap.Logger
}

func NewClient(dbPath string, logger *zap.Logger) (*Client, error) {
	dbLog := waLog.Stdout("Database", "WARN", true)
	clientLog := waLog.Stdout("Client", "WARN", true)

	container, err := sqlstore.New(context.Background(), "sqlite3", "file:"+dbPath+"?_foreign_keys=on", dbLog)
	if err != nil {
		return nil, fmt.Errorf("failed to create session store: %w", err)
	}

	deviceStore, err := container.GetFirstDevice(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to get device store: %w", err)
	}

	return &Client{
		WAClient:  whatsmeow.NewClient(deviceStore, clientLog),
		container: container,
		logger:    logger,
	}, nil
}

// Connect establishes the session. When no device is paired yet, incoming QR
// codes are written to disk for scanning; the call does not block on pairing.
func (c *Client) Connect(ctx context.Context) error {
	if c.IsLoggedIn() {
		return c.WAClient.Connect()
	}

	qrChan, err := c.WAClient.GetQRChannel(ctx)
	if err != nil {
		return fmt.Errorf("failed to get QR channel: %w", err)
	}
	if err := c.WAClient.Connect(); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	go func() {
		for evt := range qrChan {
			switch evt.Event {
			case "code":
				c.writePairingQR(evt.Code)
			case "success":
				c.logger.Info("whatsapp paired")
				return
			case "timeout":
				c.logger.Warn("whatsapp pairing QR expired, restart to pair")
				return
			}
		}
	}()

	return nil
}

// writePairingQR renders the pairing code as a PNG next to the binary.
func (c *Client) writePairingQR(code string) {
	if err := qrcode.WriteFile(code, qrcode.Medium, 512, pairingQRPath); err != nil {
		c.logger.Error("failed to write pairing QR", zap.Error(err))
		return
	}
	c.logger.Info("scan the pairing QR to link whatsapp", zap.String("path", pairingQRPath))
}

func (c *Client) Disconnect() {
	c.WAClient.Disconnect()
}

func (c *Client) IsLoggedIn() bool {
	return c.WAClient.Store.ID != nil
}

// SendText delivers a plain text message to a phone number in E.164 form.
func (c *Client) SendText(ctx context.Context, phone, text string) error {
	if !c.IsLoggedIn() {
		return fmt.Errorf("whatsapp session not paired")
	}

	jid := types.NewJID(normalizePhone(phone), types.DefaultUserServer)
	_, err := c.WAClient.SendMessage(ctx, jid, &waE2E.Message{
		Conversation: proto.String(text),
	})
	if err != nil {
		return fmt.Errorf("whatsapp send failed: %w", err)
	}
	return nil
}

// normalizePhone strips the leading + and separators; JIDs carry bare digits.
func normalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
