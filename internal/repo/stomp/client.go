// Package stomp implements the minimal STOMP 1.2 client the live-update
// subscriber needs: connect over websocket, subscribe/unsubscribe to topics,
// heart-beats both directions, reconnect with a fixed delay. Anything the
// broker does that this bot does not care about (transactions, acks,
// receipts) is left out.
package stomp

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/carousell/ct-go/pkg/logger"
	"github.com/gorilla/websocket"
)

// MessageHandler receives the body of a MESSAGE frame.
type MessageHandler func(body string)

type Config struct {
	URL            string
	ReconnectDelay time.Duration
	// HeartbeatIn is the longest silence tolerated from the broker.
	// Zero disables the incoming read deadline.
	HeartbeatIn time.Duration
	// HeartbeatOut is how often this client emits a heart-beat frame.
	HeartbeatOut time.Duration
}

type subscription struct {
	id          string
	destination string
	handler     MessageHandler
}

type Client struct {
	cfg Config
	log *logger.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	subs      map[string]*subscription
	nextSubID int
	onConnect func()

	done chan struct{}
	once sync.Once
}

func NewClient(cfg Config) *Client {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 5 * time.Second
	}
	return &Client{
		cfg:  cfg,
		log:  logger.MustNamed("stomp"),
		subs: make(map[string]*subscription),
		done: make(chan struct{}),
	}
}

// OnConnect registers a callback fired after every successful broker
// handshake, reconnects included. Subscriptions do not survive a reconnect,
// so the callback is where callers rebind them.
func (c *Client) OnConnect(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onConnect = fn
}

// Start runs the connect/read/reconnect loop until Stop is called.
func (c *Client) Start(ctx context.Context) {
	go c.run(ctx)
}

func (c *Client) Stop() {
	c.once.Do(func() {
		close(c.done)
	})
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Close()
	}
}

// Connected reports whether a broker handshake is currently established.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Subscribe binds a handler to a destination topic and returns a best-effort
// unsubscribe func. It fails when the broker is not connected.
func (c *Client) Subscribe(destination string, handler MessageHandler) (func() error, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return nil, fmt.Errorf("subscribe %s: not connected", destination)
	}

	c.nextSubID++
	sub := &subscription{
		id:          "sub-" + strconv.Itoa(c.nextSubID),
		destination: destination,
		handler:     handler,
	}
	frame := newFrame(cmdSubscribe, map[string]string{
		"id":          sub.id,
		"destination": destination,
	})
	if err := c.writeLocked(frame.Marshal()); err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", destination, err)
	}
	c.subs[sub.id] = sub
	c.log.Infow("subscribed", "destination", destination, "sub_id", sub.id)

	return func() error {
		return c.unsubscribe(sub.id)
	}, nil
}

func (c *Client) unsubscribe(subID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	sub, ok := c.subs[subID]
	if !ok {
		return nil
	}
	delete(c.subs, subID)
	if !c.connected {
		return nil
	}
	frame := newFrame(cmdUnsubscribe, map[string]string{"id": subID})
	if err := c.writeLocked(frame.Marshal()); err != nil {
		return fmt.Errorf("unsubscribe %s: %w", sub.destination, err)
	}
	c.log.Infow("unsubscribed", "destination", sub.destination, "sub_id", subID)
	return nil
}

func (c *Client) writeLocked(data []byte) error {
	if c.conn == nil {
		return fmt.Errorf("no connection")
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *Client) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeLocked(data)
}

func (c *Client) run(ctx context.Context) {
	for {
		select {
		case <-c.done:
			return
		case <-ctx.Done():
			return
		default:
		}

		if err := c.connectOnce(ctx); err != nil {
			c.log.Warnw("broker connection lost", "error", err)
		}

		select {
		case <-c.done:
			return
		case <-ctx.Done():
			return
		case <-time.After(c.cfg.ReconnectDelay):
		}
	}
}

// connectOnce dials, performs the STOMP handshake and drains messages until
// the connection breaks.
func (c *Client) connectOnce(ctx context.Context) error {
	c.log.Infow("connecting to broker", "url", c.cfg.URL)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	connect := newFrame(cmdConnect, map[string]string{
		"accept-version": "1.2",
		"heart-beat": fmt.Sprintf("%d,%d",
			c.cfg.HeartbeatOut.Milliseconds(), c.cfg.HeartbeatIn.Milliseconds()),
	})
	if err := conn.WriteMessage(websocket.TextMessage, connect.Marshal()); err != nil {
		conn.Close()
		return fmt.Errorf("send CONNECT: %w", err)
	}
	if err := c.awaitConnected(conn); err != nil {
		conn.Close()
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.subs = make(map[string]*subscription)
	onConnect := c.onConnect
	c.mu.Unlock()

	c.log.Infow("connected to broker", "url", c.cfg.URL)

	stopBeats := make(chan struct{})
	if c.cfg.HeartbeatOut > 0 {
		go c.sendHeartbeats(stopBeats)
	}
	if onConnect != nil {
		onConnect()
	}

	err = c.readLoop(conn)

	close(stopBeats)
	c.mu.Lock()
	c.connected = false
	c.conn = nil
	c.mu.Unlock()
	conn.Close()
	return err
}

func (c *Client) awaitConnected(conn *websocket.Conn) error {
	conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	defer conn.SetReadDeadline(time.Time{})
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("await CONNECTED: %w", err)
		}
		if isHeartbeat(data) {
			continue
		}
		frame, err := ParseFrame(data)
		if err != nil {
			return fmt.Errorf("await CONNECTED: %w", err)
		}
		switch frame.Command {
		case cmdConnected:
			return nil
		case cmdError:
			return fmt.Errorf("broker rejected connect: %s", frame.Headers["message"])
		}
	}
}

func (c *Client) sendHeartbeats(stop chan struct{}) {
	ticker := time.NewTicker(c.cfg.HeartbeatOut)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.write(heartbeat); err != nil {
				return
			}
		}
	}
}

func (c *Client) readLoop(conn *websocket.Conn) error {
	for {
		if c.cfg.HeartbeatIn > 0 {
			conn.SetReadDeadline(time.Now().Add(2 * c.cfg.HeartbeatIn))
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if isHeartbeat(data) {
			continue
		}
		frame, err := ParseFrame(data)
		if err != nil {
			c.log.Warnw("dropping unparseable frame", "error", err)
			continue
		}
		switch frame.Command {
		case cmdMessage:
			c.dispatch(frame)
		case cmdError:
			c.log.Errorw("broker reported error",
				"message", frame.Headers["message"], "body", frame.Body)
		}
	}
}

func (c *Client) dispatch(frame *Frame) {
	c.mu.Lock()
	sub := c.subs[frame.Headers["subscription"]]
	c.mu.Unlock()
	if sub == nil {
		c.log.Debugw("message for unknown subscription",
			"subscription", frame.Headers["subscription"],
			"destination", frame.Headers["destination"])
		return
	}
	sub.handler(frame.Body)
}
