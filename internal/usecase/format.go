package usecase

import (
	"strings"

	"github.com/calcula-ai/price-bot/internal/models"
	"github.com/calcula-ai/price-bot/pkg/textutil"
	"github.com/calcula-ai/price-bot/pkg/util"
)

// Reply strings. The bot speaks pt-BR; asterisks are WhatsApp bold markers.
const (
	replyNoSession       = "Nenhuma sessão iniciada. Use /start primeiro."
	replySessionExists   = "Já existe uma sessão aberta. Use /end para encerrá-la."
	replySessionStarted  = "Sessão iniciada! 🛒 Manda as fotos das etiquetas de preço."
	replySessionEnded    = "Sessão encerrada! ✅"
	replyUnknownCommand  = "Comando não encontrado. 🤔"
	replyTotalFailed     = "Não foi possível obter o total. Tente novamente mais tarde."
	replyGenericFailed   = "Ops, algo deu errado. Tente novamente. 😓"
	replyEmptyList       = "Nenhum item na lista ainda. 📝"
	replyImageReceived   = "Foto recebida! 🔍 Processando..."
	replyAskName         = "Qual o nome do produto? ✏️"
	replyAskValueRetry   = "Não entendi o valor. Manda de novo, tipo 5,50. 💰"
	replyAskQuantity     = "Quantas unidades? 🔢"
	replyAskQuantityBad  = "Preciso de um número maior que zero. Quantas unidades? 🔢"
	replyRemoveUsage     = "Use: /remove <código do item>"
	replyRemoveNotFound  = "Nenhum item encontrado com esse código. 🔎"
	replyRemoveAmbiguous = "Encontrei mais de um item com esse código. Qual deles?"

	announcePending = "Calma! Essa foto ainda está sendo processada... ⏳"
	announceFailed  = "Não foi possível processar essa foto... 😓"

	namePlaceholder = "..."
)

// FormatPriceAnnounce maps a price announcement to the outbound text. Pure.
func FormatPriceAnnounce(event *models.PriceAnnounce) string {
	switch strings.ToUpper(event.Status) {
	case models.PriceStatusSuccess:
		name := util.Val(event.Name)
		if strings.TrimSpace(name) == "" {
			name = namePlaceholder
		}
		value := textutil.FormatBRL(util.Val(event.Value))
		total := textutil.FormatBRL(util.Val(event.Total))
		return "'" + name + "' - *" + value + "* foi adicionado na lista! ✅\n Valor total atual: *" + total + "*"
	case models.PriceStatusPending:
		return announcePending
	default:
		return announceFailed
	}
}
