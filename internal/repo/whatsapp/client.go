// Package whatsapp is the outbound half of the chat transport: a thin client
// for the WhatsApp gateway's send endpoint. Inbound messages arrive through
// Kafka or the webhook route, not here.
package whatsapp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/calcula-ai/price-bot/internal/config"
	"github.com/calcula-ai/price-bot/pkg/util"
	"github.com/go-resty/resty/v2"
)

type Client interface {
	SendText(ctx context.Context, to, text string) error
}

type client struct {
	rc      *resty.Client
	baseURL string
}

func NewClient(conf *config.Config) Client {
	cfg := conf.WhatsApp
	rc := util.NewRestyClient(10*time.Second, 2)
	if cfg.APIKey != "" {
		rc.SetHeader("apikey", cfg.APIKey)
	}
	return &client{
		rc:      rc,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
	}
}

type sendMessageRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

func (c *client) SendText(ctx context.Context, to, text string) error {
	resp, err := c.rc.R().
		SetContext(ctx).
		SetBody(sendMessageRequest{Phone: to, Message: text}).
		Post(c.baseURL + "/send-message")
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("send message: gateway returned %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}
