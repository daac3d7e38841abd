package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/calcula-ai/price-bot/internal/models"
	"github.com/calcula-ai/price-bot/internal/usecase"
)

type Controller interface {
	ReceiveMessage(c echo.Context) error
	Health(c echo.Context) error
}

type controller struct {
	worker usecase.WorkerUsecase
}

func NewHandler(worker usecase.WorkerUsecase) Controller {
	return &controller{
		worker: worker,
	}
}

// ReceiveMessage is the webhook alternative to the Kafka transport: the
// WhatsApp gateway POSTs each inbound message here.
func (h *controller) ReceiveMessage(c echo.Context) error {
	var message models.ChatMessage
	if err := c.Bind(&message); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&message); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	// HandleInbound never fails outward; a broken remote call becomes an
	// apology in the chat, not a webhook error.
	h.worker.HandleInbound(c.Request().Context(), &message)

	return c.JSON(http.StatusOK, map[string]string{
		"status": "received",
	})
}

func (h *controller) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "price-bot",
	})
}
