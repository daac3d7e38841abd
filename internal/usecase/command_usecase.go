package usecase

import (
	"context"
	"encoding/base64"
	"errors"
	"regexp"
	"strconv"
	"strings"

	log "github.com/carousell/ct-go/pkg/logger/log_context"

	"github.com/calcula-ai/price-bot/internal/models"
	"github.com/calcula-ai/price-bot/internal/repo/mongodb"
	"github.com/calcula-ai/price-bot/internal/repo/pricingapi"
	"github.com/calcula-ai/price-bot/pkg/textutil"
	"github.com/calcula-ai/price-bot/pkg/util"
)

// sessionKey is the fixed key the session pointer lives under. The
// live-update subscriber polls the same key.
const sessionKey = "sessionId"

var (
	dataURIRe   = regexp.MustCompile(`^data:([^;]+);base64,(.*)$`)
	removeArgRe = regexp.MustCompile(`^[a-zA-Z0-9]+$`)
)

type commandUsecase struct {
	kv        mongodb.KVRepository
	pricing   pricingapi.Client
	messenger Messenger
}

func NewCommandUsecase(
	kv mongodb.KVRepository,
	pricing pricingapi.Client,
	messenger Messenger,
) CommandUsecase {
	return &commandUsecase{
		kv:        kv,
		pricing:   pricing,
		messenger: messenger,
	}
}

func (uc *commandUsecase) HandleMessage(ctx context.Context, msg *models.ChatMessage) {
	if msg.IsImage() {
		uc.handleImage(ctx, msg)
		return
	}

	text := strings.TrimSpace(msg.Message)
	if !strings.HasPrefix(text, "/") {
		// An ongoing add dialogue claims every non-command message from its
		// sender; anything else is inert.
		if state, ok := uc.loadAddFlow(ctx, msg.Phone); ok {
			uc.continueAddFlow(ctx, msg, state)
		}
		return
	}

	switch command := textutil.ExtractCommand(text); command {
	case "start":
		uc.handleStart(ctx, msg)
	case "end":
		uc.handleEnd(ctx, msg)
	case "total":
		uc.handleTotal(ctx, msg)
	case "list":
		uc.handleList(ctx, msg)
	case "add":
		uc.handleAdd(ctx, msg)
	case "remove":
		uc.handleRemove(ctx, msg, strings.Fields(text)[1:])
	default:
		log.Infow(ctx, "command not found", "command", command)
		uc.reply(ctx, msg, replyUnknownCommand)
	}
}

func (uc *commandUsecase) handleStart(ctx context.Context, msg *models.ChatMessage) {
	if _, ok := uc.sessionID(ctx); ok {
		log.Infow(ctx, "session already exists, skipping start")
		uc.reply(ctx, msg, replySessionExists)
		return
	}

	id, err := uc.pricing.CreateSession(ctx)
	if err != nil {
		log.Errorw(ctx, "failed to create session", "error", err)
		uc.reply(ctx, msg, replyGenericFailed)
		return
	}
	if err := uc.kv.Set(ctx, sessionKey, id); err != nil {
		log.Errorw(ctx, "failed to persist session pointer", "error", err)
		uc.reply(ctx, msg, replyGenericFailed)
		return
	}
	log.Infow(ctx, "session started", "session_id", id)
	uc.reply(ctx, msg, replySessionStarted)
}

func (uc *commandUsecase) handleEnd(ctx context.Context, msg *models.ChatMessage) {
	// idempotent: removing an absent pointer is fine
	if err := uc.kv.Remove(ctx, sessionKey); err != nil {
		log.Errorw(ctx, "failed to clear session pointer", "error", err)
		uc.reply(ctx, msg, replyGenericFailed)
		return
	}
	log.Infow(ctx, "session ended and local key cleared")
	uc.reply(ctx, msg, replySessionEnded)
}

func (uc *commandUsecase) handleTotal(ctx context.Context, msg *models.ChatMessage) {
	sessionID, ok := uc.sessionID(ctx)
	if !ok {
		uc.reply(ctx, msg, replyNoSession)
		return
	}

	session, err := uc.pricing.GetSession(ctx, sessionID)
	if err != nil {
		log.Errorw(ctx, "failed to fetch session", "error", err)
		uc.reply(ctx, msg, replyTotalFailed)
		return
	}

	var successful []models.PriceItem
	pending := 0
	for _, p := range session.Prices {
		switch strings.ToUpper(p.Status) {
		case models.PriceStatusSuccess:
			successful = append(successful, p)
		case models.PriceStatusPending:
			pending++
		}
	}

	lines := []string{
		"Total: *" + textutil.FormatBRL(session.Total) + "*",
		"Concluídos: " + strconv.Itoa(len(successful)),
	}
	if pending > 0 {
		lines = append(lines, "Processando: "+strconv.Itoa(pending)+" ⏳")
	}
	for i, p := range successful {
		if i == 5 {
			break
		}
		lines = append(lines, "• "+itemName(p)+" - "+textutil.FormatBRL(util.Val(p.Value)))
	}
	uc.reply(ctx, msg, strings.Join(lines, "\n"))
}

func (uc *commandUsecase) handleList(ctx context.Context, msg *models.ChatMessage) {
	sessionID, ok := uc.sessionID(ctx)
	if !ok {
		uc.reply(ctx, msg, replyNoSession)
		return
	}

	session, err := uc.pricing.GetSession(ctx, sessionID)
	if err != nil {
		log.Errorw(ctx, "failed to fetch session", "error", err)
		uc.reply(ctx, msg, replyTotalFailed)
		return
	}

	var lines []string
	for _, p := range session.Prices {
		if strings.ToUpper(p.Status) != models.PriceStatusSuccess {
			continue
		}
		lines = append(lines, "("+idPrefix(p.ID)+") "+strconv.Itoa(p.Quantity)+"x "+itemName(p)+" - "+textutil.FormatBRL(util.Val(p.Value)))
	}
	if len(lines) == 0 {
		uc.reply(ctx, msg, replyEmptyList)
		return
	}
	uc.reply(ctx, msg, strings.Join(lines, "\n"))
}

func (uc *commandUsecase) handleAdd(ctx context.Context, msg *models.ChatMessage) {
	if _, ok := uc.sessionID(ctx); !ok {
		uc.reply(ctx, msg, replyNoSession)
		return
	}
	if err := uc.saveAddFlow(ctx, msg.Phone, &models.AddFlowState{Step: models.AddFlowStepName}); err != nil {
		log.Errorw(ctx, "failed to create add flow", "error", err)
		uc.reply(ctx, msg, replyGenericFailed)
		return
	}
	uc.reply(ctx, msg, replyAskName)
}

func (uc *commandUsecase) handleRemove(ctx context.Context, msg *models.ChatMessage, args []string) {
	sessionID, ok := uc.sessionID(ctx)
	if !ok {
		uc.reply(ctx, msg, replyNoSession)
		return
	}
	if len(args) != 1 || !removeArgRe.MatchString(args[0]) {
		uc.reply(ctx, msg, replyRemoveUsage)
		return
	}
	prefix := strings.ToLower(args[0])

	session, err := uc.pricing.GetSession(ctx, sessionID)
	if err != nil {
		log.Errorw(ctx, "failed to fetch session", "error", err)
		uc.reply(ctx, msg, replyTotalFailed)
		return
	}

	var matches []models.PriceItem
	for _, p := range session.Prices {
		if strings.HasPrefix(strings.ToLower(p.ID), prefix) {
			matches = append(matches, p)
		}
	}

	switch len(matches) {
	case 0:
		uc.reply(ctx, msg, replyRemoveNotFound)
	case 1:
		item := matches[0]
		if err := uc.pricing.DeletePrice(ctx, sessionID, item.ID); err != nil {
			log.Errorw(ctx, "failed to delete price", "error", err, "price_id", item.ID)
			uc.reply(ctx, msg, replyGenericFailed)
			return
		}
		uc.reply(ctx, msg, "Item ("+idPrefix(item.ID)+") "+itemName(item)+" removido! 🗑️")
	default:
		lines := []string{replyRemoveAmbiguous}
		for _, p := range matches {
			lines = append(lines, "("+idPrefix(p.ID)+") "+itemName(p))
		}
		uc.reply(ctx, msg, strings.Join(lines, "\n"))
	}
}

func (uc *commandUsecase) handleImage(ctx context.Context, msg *models.ChatMessage) {
	sessionID, ok := uc.sessionID(ctx)
	if !ok {
		uc.reply(ctx, msg, replyNoSession)
		return
	}

	file, contentType, filename, err := decodeImagePayload(msg.Data, msg.Mimetype)
	if err != nil {
		// decode failures stay silent towards the chat
		log.Errorw(ctx, "failed to decode image payload", "error", err)
		return
	}

	err = uc.pricing.UploadPricesImage(ctx, pricingapi.UploadImageInput{
		SessionID:   sessionID,
		File:        file,
		ContentType: contentType,
		Filename:    filename,
		Caption:     msg.Caption,
	})
	if err != nil {
		log.Errorw(ctx, "failed to upload prices image", "error", err)
		uc.reply(ctx, msg, announceFailed)
		return
	}
	log.Infow(ctx, "prices image uploaded", "session_id", sessionID)
	uc.reply(ctx, msg, replyImageReceived)
}

// decodeImagePayload accepts either a data URI or a raw base64 string and
// derives the content type and upload filename from the mime type.
func decodeImagePayload(data, mimetype string) ([]byte, string, string, error) {
	contentType := mimetype
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	payload := data
	if m := dataURIRe.FindStringSubmatch(data); m != nil {
		if m[1] != "" {
			contentType = m[1]
		}
		payload = m[2]
	}

	file, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", "", err
	}

	ext := "bin"
	if _, sub, ok := strings.Cut(contentType, "/"); ok && sub != "" {
		ext = strings.ToLower(sub)
	}
	return file, contentType, "upload." + ext, nil
}

func (uc *commandUsecase) sessionID(ctx context.Context) (string, bool) {
	var id string
	err := uc.kv.Get(ctx, sessionKey, &id)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			log.Errorw(ctx, "failed to read session pointer", "error", err)
		}
		return "", false
	}
	return id, id != ""
}

func (uc *commandUsecase) reply(ctx context.Context, msg *models.ChatMessage, text string) {
	if err := uc.messenger.SendText(ctx, msg.Destination(), text); err != nil {
		log.Errorw(ctx, "failed to send reply", "error", err, "to", msg.Destination())
	}
}

func itemName(p models.PriceItem) string {
	name := util.Val(p.Name)
	if strings.TrimSpace(name) == "" {
		return namePlaceholder
	}
	return name
}

func idPrefix(id string) string {
	if len(id) > 3 {
		return id[:3]
	}
	return id
}
