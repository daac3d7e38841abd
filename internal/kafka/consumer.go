// Package kafka consumes inbound WhatsApp messages. The gateway publishes a
// `message.received` event per inbound chat message; this consumer filters,
// decodes and hands them to the worker usecase.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/carousell/ct-go/pkg/logger"
	log "github.com/carousell/ct-go/pkg/logger/log_context"
	"github.com/carousell/ct-go/pkg/workerpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/segmentio/kafka-go"
	"go.uber.org/fx"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/calcula-ai/price-bot/internal/config"
	"github.com/calcula-ai/price-bot/internal/models"
	"github.com/calcula-ai/price-bot/internal/usecase"
	"github.com/calcula-ai/price-bot/pkg/util"
)

const (
	patternMessageReceived = "message.received"

	numWorkers     = 4
	consumeTimeout = 30 * time.Second
)

func StartConsumeMessages(
	sd fx.Shutdowner,
	lc fx.Lifecycle,
	conf *config.Config,
	worker usecase.WorkerUsecase,
) error {
	if !conf.Kafka.Enabled {
		log.Warnf(context.Background(), "Kafka consumer is disabled in configuration")
		return nil
	}

	metrics, err := util.GetHistogramVec("kafka_messages_consumed", "status", "topic", "group")
	if err != nil {
		return fmt.Errorf("get histogram vec: %w", err)
	}

	c := &consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     conf.Kafka.Brokers,
			GroupID:     conf.Kafka.GroupID,
			GroupTopics: []string{conf.Kafka.Topic},
			StartOffset: kafka.LastOffset,
		}),
		metrics:    metrics,
		worker:     worker,
		workerPool: workerpool.New(numWorkers),
		done:       make(chan struct{}),
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := c.run(context.Background()); err != nil {
					log.Errorw(ctx, "kafka consumer stopped", "error", err)
					sd.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return c.stop()
		},
	})
	return nil
}

type consumer struct {
	reader     *kafka.Reader
	metrics    *prometheus.HistogramVec
	worker     usecase.WorkerUsecase
	workerPool workerpool.Pool
	done       chan struct{}
}

func (c *consumer) run(ctx context.Context) error {
	log.Infof(ctx, "Starting Kafka consumer for topic: %s", c.reader.Config().GroupTopics[0])
	groupID := c.reader.Config().GroupID

	for ctx.Err() == nil {
		select {
		case <-c.done:
			return nil
		default:
		}

		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			log.Errorw(ctx, "Error reading message", "error", err)
			continue
		}

		c.workerPool.Run(func() {
			c.processMessage(ctx, msg, groupID)
		})
	}
	return nil
}

func (c *consumer) stop() error {
	close(c.done)
	c.workerPool.Close()
	c.workerPool.Wait()
	return c.reader.Close()
}

func (c *consumer) processMessage(ctx context.Context, msg kafka.Message, groupID string) {
	start := time.Now()
	lagMs := start.Sub(msg.Time).Milliseconds()

	err := c.handle(ctx, msg)
	duration := time.Since(start)

	code := getCode(err)
	content := "success"
	if err != nil {
		content = err.Error()
	}

	log.Logw(ctx, getLogLevel(code), content,
		"code", code,
		"duration_ms", duration.Milliseconds(),
		"topic", msg.Topic,
		"partition", msg.Partition,
		"offset", msg.Offset,
		"lag_ms", lagMs,
		"key", string(msg.Key),
	)

	c.metrics.
		WithLabelValues(code.String(), msg.Topic, groupID).
		Observe(duration.Seconds())
}

func (c *consumer) handle(msgCtx context.Context, msg kafka.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			stack := make([]byte, 4096)
			length := runtime.Stack(stack, false)
			err = fmt.Errorf("PANIC RECOVER: %+v / %s", r, string(stack[:length]))
		}
	}()

	var event models.GatewayEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("unmarshal gateway event: %w", err)
	}

	if event.Pattern != patternMessageReceived {
		log.Infow(msgCtx, "ignoring event", "pattern", event.Pattern)
		return nil
	}

	// skip the bot's own outbound echoes to prevent loops
	if event.Data.FromMe {
		log.Debugw(msgCtx, "skipping own message", "phone", event.Data.Phone)
		return nil
	}

	if event.Data.Phone == "" {
		return fmt.Errorf("gateway event missing phone")
	}

	ctx, cancel := context.WithTimeout(msgCtx, consumeTimeout)
	defer cancel()

	c.worker.HandleInbound(ctx, &event.Data)
	return nil
}

func getCode(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return codes.DeadlineExceeded
	}
	if errors.Is(err, context.Canceled) {
		return codes.Canceled
	}
	st, ok := status.FromError(err)
	if !ok {
		return codes.Unknown
	}
	return st.Code()
}

func getLogLevel(code codes.Code) logger.Level {
	switch code {
	case codes.OK:
		return logger.InfoLevel
	case codes.Canceled,
		codes.InvalidArgument,
		codes.NotFound,
		codes.FailedPrecondition,
		codes.Aborted,
		codes.OutOfRange:
		return logger.WarnLevel
	default:
		return logger.ErrorLevel
	}
}
