// Package liveupdate keeps the bot subscribed to the price-announce topic of
// whichever pricing session is currently open. The session pointer lives in
// the key-value store and is written by command handling; this package only
// ever reads it, on a fixed poll interval, and rebinds the broker
// subscription when the value changes. Rebinding is eventual: a session
// change becomes visible here at the next poll tick.
package liveupdate

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/carousell/ct-go/pkg/logger"
	"github.com/go-playground/validator/v10"
	"go.uber.org/fx"

	"github.com/calcula-ai/price-bot/internal/config"
	"github.com/calcula-ai/price-bot/internal/models"
	"github.com/calcula-ai/price-bot/internal/repo/mongodb"
	"github.com/calcula-ai/price-bot/internal/repo/stomp"
	"github.com/calcula-ai/price-bot/internal/usecase"
)

// sessionKey mirrors the key the command dispatcher writes the session
// pointer under.
const sessionKey = "sessionId"

const topicPrefix = "/topic/"

// Broker is the slice of the STOMP client the subscriber needs.
type Broker interface {
	Subscribe(destination string, handler stomp.MessageHandler) (func() error, error)
}

type Subscriber struct {
	kv           mongodb.KVRepository
	worker       usecase.WorkerUsecase
	broker       Broker
	pollInterval time.Duration
	validate     *validator.Validate
	log          *logger.Logger

	mu               sync.Mutex
	currentSessionID string
	unsubscribe      func() error

	kick chan struct{}
}

func NewSubscriber(
	kv mongodb.KVRepository,
	worker usecase.WorkerUsecase,
	broker Broker,
	pollInterval time.Duration,
) *Subscriber {
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	return &Subscriber{
		kv:           kv,
		worker:       worker,
		broker:       broker,
		pollInterval: pollInterval,
		validate:     validator.New(),
		log:          logger.MustNamed("liveupdate"),
		kick:         make(chan struct{}, 1),
	}
}

// Start wires the subscriber into the fx lifecycle. A short fixed delay
// before the first connect decouples start-up ordering from the rest of the
// app, matching the broker client's own reconnect cadence afterwards.
func Start(
	lc fx.Lifecycle,
	conf *config.Config,
	kv mongodb.KVRepository,
	worker usecase.WorkerUsecase,
) {
	logg := logger.MustNamed("liveupdate")
	if conf.Stream.URL == "" {
		logg.Warnw("stream url not set, live updates disabled")
		return
	}

	client := stomp.NewClient(stomp.Config{
		URL:            conf.Stream.URL,
		ReconnectDelay: conf.Stream.ReconnectDelay,
		HeartbeatIn:    conf.Stream.HeartbeatIn,
		HeartbeatOut:   conf.Stream.HeartbeatOut,
	})
	sub := NewSubscriber(kv, worker, client, conf.Stream.PollInterval)
	client.OnConnect(sub.onBrokerConnect)

	runCtx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				select {
				case <-time.After(conf.Stream.ConnectDelay):
				case <-runCtx.Done():
					return
				}
				client.Start(runCtx)
				sub.Run(runCtx)
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			client.Stop()
			return nil
		},
	})
}

// Run polls the session pointer until ctx is done.
func (s *Subscriber) Run(ctx context.Context) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.kick:
			ticker.Reset(s.pollInterval)
			s.CheckSession(ctx)
		case <-ticker.C:
			s.CheckSession(ctx)
		}
	}
}

// onBrokerConnect runs after every successful broker handshake. The old
// binding died with the previous connection, so it is forgotten and an
// immediate poll re-establishes whatever the pointer says.
func (s *Subscriber) onBrokerConnect() {
	s.mu.Lock()
	s.unsubscribe = nil
	s.currentSessionID = ""
	s.mu.Unlock()

	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// CheckSession reads the session pointer and rebinds the topic subscription
// if it changed. Never lets an error escape past its own boundary.
func (s *Subscriber) CheckSession(ctx context.Context) {
	var id string
	if err := s.kv.Get(ctx, sessionKey, &id); err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			s.log.Warnw("failed to poll session pointer", "error", err)
			return
		}
		id = ""
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if id == s.currentSessionID {
		return
	}
	s.log.Infow("session change detected",
		"previous", s.currentSessionID, "current", id)
	s.rebindLocked(id)
}

// rebindLocked swaps the active topic subscription. The old binding is
// released first so two topics are never bound at once.
func (s *Subscriber) rebindLocked(sessionID string) {
	if s.unsubscribe != nil {
		if err := s.unsubscribe(); err != nil {
			s.log.Warnw("failed to unsubscribe previous topic", "error", err)
		}
		s.unsubscribe = nil
		s.log.Infow("unsubscribed from previous destination")
	}

	s.currentSessionID = sessionID
	if sessionID == "" {
		return
	}

	unsub, err := s.broker.Subscribe(topicPrefix+sessionID, s.handleFrame)
	if err != nil {
		// retried on the next poll tick
		s.log.Warnw("failed to subscribe", "session_id", sessionID, "error", err)
		s.currentSessionID = ""
		return
	}
	s.unsubscribe = unsub
	s.log.Infow("subscribed to session topic", "session_id", sessionID)
}

// handleFrame runs the inbound validation gauntlet: trim, JSON parse,
// structural check. Anything that fails is logged and dropped.
func (s *Subscriber) handleFrame(body string) {
	ctx := context.Background()

	body = strings.TrimSpace(body)
	if body == "" {
		return
	}

	var event models.PriceAnnounce
	if err := json.Unmarshal([]byte(body), &event); err != nil {
		s.log.Warnw("frame is not valid JSON, skipping", "error", err)
		return
	}
	if err := s.validate.Struct(&event); err != nil {
		s.log.Warnw("frame does not match price announce shape, skipping", "error", err)
		return
	}

	s.worker.HandlePriceAnnounce(ctx, &event)
}
