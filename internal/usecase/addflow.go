package usecase

import (
	"context"
	"errors"
	"strings"

	log "github.com/carousell/ct-go/pkg/logger/log_context"

	"github.com/calcula-ai/price-bot/internal/models"
	"github.com/calcula-ai/price-bot/pkg/textutil"
)

// Add-flow state is keyed per sender so concurrent dialogues from different
// users never interfere.
const addFlowKeyPrefix = "addFlow:"

func addFlowKey(phone string) string {
	return addFlowKeyPrefix + phone
}

func (uc *commandUsecase) loadAddFlow(ctx context.Context, phone string) (*models.AddFlowState, bool) {
	var state models.AddFlowState
	err := uc.kv.Get(ctx, addFlowKey(phone), &state)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			log.Errorw(ctx, "failed to read add flow state", "error", err)
		}
		return nil, false
	}
	return &state, true
}

func (uc *commandUsecase) saveAddFlow(ctx context.Context, phone string, state *models.AddFlowState) error {
	return uc.kv.Set(ctx, addFlowKey(phone), state)
}

func (uc *commandUsecase) clearAddFlow(ctx context.Context, phone string) {
	if err := uc.kv.Remove(ctx, addFlowKey(phone)); err != nil {
		log.Errorw(ctx, "failed to clear add flow state", "error", err)
	}
}

// continueAddFlow advances the dialogue exactly one step per message.
// Invalid input re-prompts without advancing.
func (uc *commandUsecase) continueAddFlow(ctx context.Context, msg *models.ChatMessage, state *models.AddFlowState) {
	text := strings.TrimSpace(msg.Message)

	switch state.Step {
	case models.AddFlowStepName:
		if text == "" {
			uc.reply(ctx, msg, replyAskName)
			return
		}
		state.Name = text
		state.Step = models.AddFlowStepValue
		if err := uc.saveAddFlow(ctx, msg.Phone, state); err != nil {
			log.Errorw(ctx, "failed to advance add flow", "error", err)
			uc.clearAddFlow(ctx, msg.Phone)
			uc.reply(ctx, msg, replyGenericFailed)
			return
		}
		uc.reply(ctx, msg, "Quanto custa '"+state.Name+"'? 💰")

	case models.AddFlowStepValue:
		value, ok := textutil.ParseCurrency(text)
		if !ok {
			uc.reply(ctx, msg, replyAskValueRetry)
			return
		}
		state.Value = value
		state.Step = models.AddFlowStepQuantity
		if err := uc.saveAddFlow(ctx, msg.Phone, state); err != nil {
			log.Errorw(ctx, "failed to advance add flow", "error", err)
			uc.clearAddFlow(ctx, msg.Phone)
			uc.reply(ctx, msg, replyGenericFailed)
			return
		}
		uc.reply(ctx, msg, replyAskQuantity)

	case models.AddFlowStepQuantity:
		quantity, ok := textutil.ParseInteger(text)
		if !ok || quantity <= 0 {
			uc.reply(ctx, msg, replyAskQuantityBad)
			return
		}
		state.Quantity = quantity
		uc.submitAddFlow(ctx, msg, state)

	default:
		log.Warnw(ctx, "dropping add flow in unknown step", "step", state.Step)
		uc.clearAddFlow(ctx, msg.Phone)
	}
}

// submitAddFlow pushes the accumulated item to the pricing API. The state is
// removed whether the call worked or not; a failed submission drops the
// user's input without a reply. Session liveness is not re-checked here: a
// session ended mid-dialogue still reaches the remote call with whatever
// pointer is left.
func (uc *commandUsecase) submitAddFlow(ctx context.Context, msg *models.ChatMessage, state *models.AddFlowState) {
	sessionID, _ := uc.sessionID(ctx)

	err := uc.pricing.AddPrice(ctx, sessionID, state.Name, state.Value, state.Quantity)
	uc.clearAddFlow(ctx, msg.Phone)
	if err != nil {
		log.Errorw(ctx, "failed to submit add flow item",
			"error", err, "name", state.Name, "session_id", sessionID)
		return
	}
	log.Infow(ctx, "add flow item submitted", "name", state.Name, "session_id", sessionID)
	uc.reply(ctx, msg, "'"+state.Name+"' enviado para a lista! ⏳")
}
