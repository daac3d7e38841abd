package usecase

import (
	"context"

	"github.com/calcula-ai/price-bot/internal/models"
)

// Messenger is the narrow outbound port: deliver one text message to a chat
// destination (group or user address).
type Messenger interface {
	SendText(ctx context.Context, to, text string) error
}

// CommandUsecase parses inbound messages into commands, runs the add-item
// dialogue and orchestrates the pricing API. It never propagates failures;
// the worst outcome of a broken remote call is an apology message.
type CommandUsecase interface {
	HandleMessage(ctx context.Context, msg *models.ChatMessage)
}

// WorkerUsecase routes inbound chat traffic and fans validated price
// announcements out to the configured group.
type WorkerUsecase interface {
	HandleInbound(ctx context.Context, msg *models.ChatMessage)
	HandlePriceAnnounce(ctx context.Context, event *models.PriceAnnounce)
}
