package usecase_test

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calcula-ai/price-bot/internal/models"
	"github.com/calcula-ai/price-bot/internal/usecase"
	"github.com/calcula-ai/price-bot/pkg/util"
)

const (
	testPhone = "5511999990000"
	testGroup = "group-1"
)

func textMessage(text string) *models.ChatMessage {
	return &models.ChatMessage{
		Type:    "text",
		Message: text,
		Phone:   testPhone,
		Group:   testGroup,
	}
}

func setup(t *testing.T) (*fakeKV, *fakePricing, *fakeMessenger, usecase.CommandUsecase) {
	t.Helper()
	kv := newFakeKV()
	pricing := &fakePricing{}
	messenger := &fakeMessenger{}
	return kv, pricing, messenger, usecase.NewCommandUsecase(kv, pricing, messenger)
}

func openSession(t *testing.T, kv *fakeKV, id string) {
	t.Helper()
	require.NoError(t, kv.Set(context.Background(), "sessionId", id))
}

func TestStartCommand(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("creates and persists a session", func(t *testing.T) {
		kv, pricing, messenger, uc := setup(t)
		pricing.createSessionID = "sess-1"

		uc.HandleMessage(ctx, textMessage("/start"))

		var id string
		require.NoError(t, kv.Get(ctx, "sessionId", &id))
		assert.Equal(t, "sess-1", id)
		assert.Contains(t, messenger.last().Text, "Sessão iniciada")
		assert.Equal(t, testGroup, messenger.last().To)
	})

	t.Run("existing session is a no-op with a notice", func(t *testing.T) {
		kv, pricing, messenger, uc := setup(t)
		openSession(t, kv, "sess-1")

		uc.HandleMessage(ctx, textMessage("/start"))

		assert.Empty(t, pricing.addPriceCalls)
		assert.Contains(t, messenger.last().Text, "Já existe uma sessão")
		var id string
		require.NoError(t, kv.Get(ctx, "sessionId", &id))
		assert.Equal(t, "sess-1", id)
	})

	t.Run("command token is case-insensitive with extra args", func(t *testing.T) {
		kv, pricing, messenger, uc := setup(t)
		pricing.createSessionID = "sess-2"

		uc.HandleMessage(ctx, textMessage("/START extra args"))

		var id string
		require.NoError(t, kv.Get(ctx, "sessionId", &id))
		assert.Equal(t, "sess-2", id)
		assert.NotEmpty(t, messenger.sent)
	})
}

func TestEndCommand(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("removes the session pointer", func(t *testing.T) {
		kv, _, messenger, uc := setup(t)
		openSession(t, kv, "sess-1")

		uc.HandleMessage(ctx, textMessage("/end"))

		assert.False(t, kv.has("sessionId"))
		assert.Contains(t, messenger.last().Text, "Sessão encerrada")
	})

	t.Run("idempotent without a session", func(t *testing.T) {
		_, _, messenger, uc := setup(t)

		uc.HandleMessage(ctx, textMessage("/end"))

		assert.Contains(t, messenger.last().Text, "Sessão encerrada")
	})
}

func TestSessionRequired(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	for _, text := range []string{"/total", "/list", "/add", "/remove abc"} {
		t.Run(text, func(t *testing.T) {
			_, _, messenger, uc := setup(t)
			uc.HandleMessage(ctx, textMessage(text))
			assert.Contains(t, messenger.last().Text, "Use /start primeiro")
		})
	}
}

func TestUnknownCommand(t *testing.T) {
	t.Parallel()

	_, _, messenger, uc := setup(t)
	uc.HandleMessage(context.Background(), textMessage("/dance"))
	assert.Contains(t, messenger.last().Text, "Comando não encontrado")
}

func TestNonCommandTextIsInert(t *testing.T) {
	t.Parallel()

	_, pricing, messenger, uc := setup(t)
	uc.HandleMessage(context.Background(), textMessage("hello there"))
	assert.Empty(t, messenger.sent)
	assert.Empty(t, pricing.addPriceCalls)
}

func TestTotalCommand(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("renders total, pending count and bullets", func(t *testing.T) {
		kv, pricing, messenger, uc := setup(t)
		openSession(t, kv, "sess-1")
		pricing.snapshot = &models.SessionSnapshot{
			ID:    "sess-1",
			Total: 1234.56,
			Prices: []models.PriceItem{
				{ID: "aaa111", Name: util.Ptr("Arroz"), Value: util.Ptr(5.5), Quantity: 2, Status: models.PriceStatusSuccess},
				{ID: "bbb222", Status: models.PriceStatusPending},
				{ID: "ccc333", Name: util.Ptr("Feijão"), Value: util.Ptr(8.9), Quantity: 1, Status: models.PriceStatusSuccess},
			},
		}

		uc.HandleMessage(ctx, textMessage("/total"))

		text := messenger.last().Text
		assert.Contains(t, text, "R$ 1.234,56")
		assert.Contains(t, text, "Concluídos: 2")
		assert.Contains(t, text, "Processando: 1")
		assert.Contains(t, text, "• Arroz - R$ 5,50")
		assert.Contains(t, text, "• Feijão - R$ 8,90")
	})

	t.Run("omits pending line when nothing is pending", func(t *testing.T) {
		kv, pricing, messenger, uc := setup(t)
		openSession(t, kv, "sess-1")
		pricing.snapshot = &models.SessionSnapshot{ID: "sess-1", Total: 10}

		uc.HandleMessage(ctx, textMessage("/total"))

		assert.NotContains(t, messenger.last().Text, "Processando")
	})

	t.Run("caps bullets at five items", func(t *testing.T) {
		kv, pricing, messenger, uc := setup(t)
		openSession(t, kv, "sess-1")
		snapshot := &models.SessionSnapshot{ID: "sess-1", Total: 60}
		for _, id := range []string{"a1", "b2", "c3", "d4", "e5", "f6"} {
			snapshot.Prices = append(snapshot.Prices, models.PriceItem{
				ID: id, Name: util.Ptr("Item " + id), Value: util.Ptr(10.0), Quantity: 1,
				Status: models.PriceStatusSuccess,
			})
		}
		pricing.snapshot = snapshot

		uc.HandleMessage(ctx, textMessage("/total"))

		assert.NotContains(t, messenger.last().Text, "Item f6")
		assert.Contains(t, messenger.last().Text, "Item e5")
		assert.Contains(t, messenger.last().Text, "Concluídos: 6")
	})

	t.Run("fetch failure apologizes", func(t *testing.T) {
		kv, pricing, messenger, uc := setup(t)
		openSession(t, kv, "sess-1")
		pricing.getSessionErr = assert.AnError

		uc.HandleMessage(ctx, textMessage("/total"))

		assert.Contains(t, messenger.last().Text, "Não foi possível obter o total")
	})
}

func TestListCommand(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("renders successful items only", func(t *testing.T) {
		kv, pricing, messenger, uc := setup(t)
		openSession(t, kv, "sess-1")
		pricing.snapshot = &models.SessionSnapshot{
			ID:    "sess-1",
			Total: 19.9,
			Prices: []models.PriceItem{
				{ID: "abc123", Name: util.Ptr("Arroz"), Value: util.Ptr(5.5), Quantity: 2, Status: models.PriceStatusSuccess},
				{ID: "def456", Status: models.PriceStatusPending},
				{ID: "ghi789", Status: models.PriceStatusFailed},
			},
		}

		uc.HandleMessage(ctx, textMessage("/list"))

		text := messenger.last().Text
		assert.Contains(t, text, "(abc) 2x Arroz - R$ 5,50")
		assert.NotContains(t, text, "def")
		assert.NotContains(t, text, "ghi")
	})

	t.Run("empty list has a fixed reply", func(t *testing.T) {
		kv, pricing, messenger, uc := setup(t)
		openSession(t, kv, "sess-1")
		pricing.snapshot = &models.SessionSnapshot{ID: "sess-1"}

		uc.HandleMessage(ctx, textMessage("/list"))

		assert.Contains(t, messenger.last().Text, "Nenhum item na lista")
	})
}

func TestRemoveCommand(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	snapshot := &models.SessionSnapshot{
		ID:    "sess-1",
		Total: 30,
		Prices: []models.PriceItem{
			{ID: "abc123", Name: util.Ptr("Arroz"), Value: util.Ptr(5.5), Quantity: 2, Status: models.PriceStatusSuccess},
			{ID: "abd456", Name: util.Ptr("Feijão"), Value: util.Ptr(8.9), Quantity: 1, Status: models.PriceStatusSuccess},
			{ID: "xyz789", Name: util.Ptr("Café"), Value: util.Ptr(15.0), Quantity: 1, Status: models.PriceStatusSuccess},
		},
	}

	t.Run("exactly one match deletes and confirms", func(t *testing.T) {
		kv, pricing, messenger, uc := setup(t)
		openSession(t, kv, "sess-1")
		pricing.snapshot = snapshot

		uc.HandleMessage(ctx, textMessage("/remove XYZ"))

		require.Equal(t, []string{"xyz789"}, pricing.deletePriceCalls)
		assert.Contains(t, messenger.last().Text, "(xyz)")
		assert.Contains(t, messenger.last().Text, "Café")
		assert.Contains(t, messenger.last().Text, "removido")
	})

	t.Run("zero matches never deletes", func(t *testing.T) {
		kv, pricing, messenger, uc := setup(t)
		openSession(t, kv, "sess-1")
		pricing.snapshot = snapshot

		uc.HandleMessage(ctx, textMessage("/remove zzz"))

		assert.Empty(t, pricing.deletePriceCalls)
		assert.Contains(t, messenger.last().Text, "Nenhum item encontrado")
	})

	t.Run("ambiguous prefix lists candidates without deleting", func(t *testing.T) {
		kv, pricing, messenger, uc := setup(t)
		openSession(t, kv, "sess-1")
		pricing.snapshot = snapshot

		uc.HandleMessage(ctx, textMessage("/remove ab"))

		assert.Empty(t, pricing.deletePriceCalls)
		text := messenger.last().Text
		assert.Contains(t, text, "mais de um item")
		assert.Contains(t, text, "Arroz")
		assert.Contains(t, text, "Feijão")
	})

	t.Run("missing or malformed argument", func(t *testing.T) {
		kv, pricing, messenger, uc := setup(t)
		openSession(t, kv, "sess-1")
		pricing.snapshot = snapshot

		uc.HandleMessage(ctx, textMessage("/remove"))
		assert.Contains(t, messenger.last().Text, "Use: /remove")

		uc.HandleMessage(ctx, textMessage("/remove a!b"))
		assert.Contains(t, messenger.last().Text, "Use: /remove")
		assert.Empty(t, pricing.deletePriceCalls)
	})
}

func TestImageFlow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	imageMessage := func(data string) *models.ChatMessage {
		return &models.ChatMessage{
			Type:     "image",
			Phone:    testPhone,
			Group:    testGroup,
			Data:     data,
			Mimetype: "image/jpeg",
			Caption:  "etiqueta",
		}
	}

	t.Run("data URI upload", func(t *testing.T) {
		kv, pricing, messenger, uc := setup(t)
		openSession(t, kv, "sess-1")
		payload := base64.StdEncoding.EncodeToString([]byte("jpeg-bytes"))

		uc.HandleMessage(ctx, imageMessage("data:image/png;base64,"+payload))

		require.Len(t, pricing.uploadCalls, 1)
		call := pricing.uploadCalls[0]
		assert.Equal(t, "sess-1", call.SessionID)
		assert.Equal(t, []byte("jpeg-bytes"), call.File)
		assert.Equal(t, "image/png", call.ContentType) // data URI wins over mimetype
		assert.Equal(t, "upload.png", call.Filename)
		assert.Equal(t, "etiqueta", call.Caption)
		assert.Contains(t, messenger.last().Text, "Foto recebida")
	})

	t.Run("raw base64 falls back to message mimetype", func(t *testing.T) {
		kv, pricing, _, uc := setup(t)
		openSession(t, kv, "sess-1")
		payload := base64.StdEncoding.EncodeToString([]byte("jpeg-bytes"))

		uc.HandleMessage(ctx, imageMessage(payload))

		require.Len(t, pricing.uploadCalls, 1)
		assert.Equal(t, "image/jpeg", pricing.uploadCalls[0].ContentType)
		assert.Equal(t, "upload.jpeg", pricing.uploadCalls[0].Filename)
	})

	t.Run("decode failure is silent", func(t *testing.T) {
		kv, pricing, messenger, uc := setup(t)
		openSession(t, kv, "sess-1")

		uc.HandleMessage(ctx, imageMessage("%%%not-base64%%%"))

		assert.Empty(t, pricing.uploadCalls)
		assert.Empty(t, messenger.sent)
	})

	t.Run("upload failure replies with the failed branch", func(t *testing.T) {
		kv, pricing, messenger, uc := setup(t)
		openSession(t, kv, "sess-1")
		pricing.uploadErr = assert.AnError
		payload := base64.StdEncoding.EncodeToString([]byte("jpeg-bytes"))

		uc.HandleMessage(ctx, imageMessage(payload))

		assert.Contains(t, messenger.last().Text, "Não foi possível processar essa foto")
	})

	t.Run("image without a session prompts start", func(t *testing.T) {
		_, pricing, messenger, uc := setup(t)
		payload := base64.StdEncoding.EncodeToString([]byte("jpeg-bytes"))

		uc.HandleMessage(ctx, imageMessage(payload))

		assert.Empty(t, pricing.uploadCalls)
		assert.Contains(t, messenger.last().Text, "Use /start primeiro")
	})
}
