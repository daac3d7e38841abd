package app

import (
	"github.com/carousell/ct-go/pkg/logger"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap/zapcore"

	"github.com/calcula-ai/price-bot/internal/config"
	"github.com/calcula-ai/price-bot/internal/repo/mongodb"
	"github.com/calcula-ai/price-bot/internal/repo/pricingapi"
	"github.com/calcula-ai/price-bot/internal/repo/whatsapp"
	"github.com/calcula-ai/price-bot/internal/server"
	"github.com/calcula-ai/price-bot/internal/usecase"
)

func Invoke(funcs ...any) *fx.App {
	log := logger.MustNamed("app")
	conf := config.MustLoad()
	log.Debugw("config loaded", log.Reflect("config", conf))
	return fx.New(
		fx.WithLogger(func() fxevent.Logger {
			l := &fxevent.ZapLogger{
				Logger: log.Unwrap().Desugar(),
			}
			l.UseLogLevel(zapcore.DebugLevel)
			return l
		}),
		fx.Provide(
			newMongoDB,

			server.NewHandler,

			usecase.NewCommandUsecase,
			usecase.NewWorkerUsecase,

			mongodb.NewKVRepository,

			pricingapi.NewClient,
			whatsapp.NewClient,
			newMessenger,
		),
		fx.Supply(conf),
		fx.Invoke(funcs...),
	)
}

// newMessenger adapts the WhatsApp gateway client to the outbound port the
// usecases depend on.
func newMessenger(client whatsapp.Client) usecase.Messenger {
	return client
}
