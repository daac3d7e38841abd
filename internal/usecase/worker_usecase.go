package usecase

import (
	"context"

	log "github.com/carousell/ct-go/pkg/logger/log_context"

	"github.com/calcula-ai/price-bot/internal/config"
	"github.com/calcula-ai/price-bot/internal/models"
)

type workerUsecase struct {
	command      CommandUsecase
	messenger    Messenger
	allowedGroup string
}

func NewWorkerUsecase(
	conf *config.Config,
	command CommandUsecase,
	messenger Messenger,
) WorkerUsecase {
	return &workerUsecase{
		command:      command,
		messenger:    messenger,
		allowedGroup: conf.Bot.AllowedGroup,
	}
}

func (uc *workerUsecase) HandleInbound(ctx context.Context, msg *models.ChatMessage) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorw(ctx, "PANIC RECOVER handling inbound message", "panic", r)
		}
	}()

	if uc.allowedGroup != "" && msg.Group != uc.allowedGroup {
		log.Debugw(ctx, "message ignored by group filter", "group", msg.Group)
		return
	}
	uc.command.HandleMessage(ctx, msg)
}

func (uc *workerUsecase) HandlePriceAnnounce(ctx context.Context, event *models.PriceAnnounce) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorw(ctx, "PANIC RECOVER handling price announce", "panic", r)
		}
	}()

	if uc.allowedGroup == "" {
		log.Warnw(ctx, "no allowed group configured, skipping outbound announcement")
		return
	}

	text := FormatPriceAnnounce(event)
	if err := uc.messenger.SendText(ctx, uc.allowedGroup, text); err != nil {
		log.Errorw(ctx, "failed to send price announcement", "error", err)
		return
	}
	log.Debugw(ctx, "price announcement sent", "group", uc.allowedGroup, "price_id", event.PriceID)
}
