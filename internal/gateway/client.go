package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the gateway
	writeWait = 10 * time.Second

	// Reconnect backoff bounds
	minReconnectDelay = 5 * time.Second
	maxReconnectDelay = 60 * time.Second

	// Buffered observations per source guild before the read pump blocks
	eventQueueSize = 64
)

// EventHandler receives ban observations decoded from the gateway stream.
// Satisfied by engine.Engine.
type EventHandler interface {
	OnBanObserved(guildID, userID, reason, moderatorID string)
	OnUnbanObserved(guildID, userID string)
}

// Client maintains the Discord gateway connection and forwards ban events to
// the handler. The gateway does not replay missed events; the reconciliation
// sweep covers gaps after reconnects.
type Client struct {
	gatewayURL string
	token      string
	handler    EventHandler

	sequence atomic.Int64

	// One ordered queue per source guild. A ban and the unban that
	// reverts it must reach the engine in the order the guild saw them.
	queueMu sync.Mutex
	queues  map[string]chan banObservation

	// gorilla allows one concurrent writer; heartbeats and replies share
	// the connection
	writeMu sync.Mutex
}

// banObservation is one decoded ban event awaiting delivery to the engine
type banObservation struct {
	eventType string
	guildID   string
	userID    string
}

func NewClient(gatewayURL, token string, handler EventHandler) *Client {
	return &Client{
		gatewayURL: gatewayURL,
		token:      token,
		handler:    handler,
		queues:     make(map[string]chan banObservation),
	}
}

// Run connects and keeps reconnecting with backoff until ctx is cancelled
func (c *Client) Run(ctx context.Context) {
	delay := minReconnectDelay
	for {
		err := c.connect(ctx)
		if ctx.Err() != nil {
			return
		}
		log.Printf("Gateway connection lost: %v, reconnecting in %s", err, delay)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		delay *= 2
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}

// connect runs one gateway session: hello, identify, heartbeats, dispatch
func (c *Client) connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.gatewayURL, nil)
	if err != nil {
		return fmt.Errorf("failed to dial gateway: %w", err)
	}
	defer conn.Close()

	// First frame is HELLO with the heartbeat interval
	var hello payload
	if err := conn.ReadJSON(&hello); err != nil {
		return fmt.Errorf("failed to read hello: %w", err)
	}
	if hello.Op != opHello {
		return fmt.Errorf("expected hello, got op %d", hello.Op)
	}
	var helloPayload helloData
	if err := json.Unmarshal(hello.Data, &helloPayload); err != nil {
		return fmt.Errorf("failed to decode hello: %w", err)
	}

	if err := c.writeJSON(conn, payload{Op: opIdentify, Data: mustMarshal(identifyData{
		Token:   c.token,
		Intents: identifyIntents,
		Properties: identifyProperties{
			OS:      runtime.GOOS,
			Browser: "bansync",
			Device:  "bansync",
		},
	})}); err != nil {
		return fmt.Errorf("failed to identify: %w", err)
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go c.heartbeatPump(sessionCtx, conn, time.Duration(helloPayload.HeartbeatInterval)*time.Millisecond)

	log.Println("Gateway connected, listening for ban events")
	return c.readPump(conn)
}

// heartbeatPump sends heartbeats on the interval the gateway asked for
func (c *Client) heartbeatPump(ctx context.Context, conn *websocket.Conn, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			seq := c.sequence.Load()
			if err := c.writeJSON(conn, payload{Op: opHeartbeat, Data: mustMarshal(seq)}); err != nil {
				conn.Close()
				return
			}
		}
	}
}

// readPump decodes gateway frames until the connection drops
func (c *Client) readPump(conn *websocket.Conn) error {
	for {
		var p payload
		if err := conn.ReadJSON(&p); err != nil {
			return err
		}
		if p.Sequence != nil {
			c.sequence.Store(*p.Sequence)
		}

		switch p.Op {
		case opDispatch:
			c.handleDispatch(&p)
		case opHeartbeat:
			seq := c.sequence.Load()
			if err := c.writeJSON(conn, payload{Op: opHeartbeat, Data: mustMarshal(seq)}); err != nil {
				return err
			}
		case opReconnect, opInvalidSession:
			return fmt.Errorf("gateway requested reconnect (op %d)", p.Op)
		case opHeartbeatACK:
			// nothing to do
		}
	}
}

func (c *Client) handleDispatch(p *payload) {
	switch p.Type {
	case EventGuildBanAdd, EventGuildBanRemove:
	default:
		return
	}

	var event banEventData
	if err := json.Unmarshal(p.Data, &event); err != nil {
		log.Printf("Failed to decode %s event: %v", p.Type, err)
		return
	}
	if event.GuildID == "" || event.User.ID == "" {
		return
	}

	// The gateway does not carry the reason or moderator for ban events;
	// the audit log would, but fetching it per event is not worth the
	// extra rate-limit pressure.
	c.enqueue(banObservation{eventType: p.Type, guildID: event.GuildID, userID: event.User.ID})
}

// enqueue hands an observation to its guild's worker. Events for one guild
// are handled strictly in arrival order; guilds never block each other. A
// full queue stalls the read pump for that flood.
func (c *Client) enqueue(obs banObservation) {
	c.queueMu.Lock()
	q, exists := c.queues[obs.guildID]
	if !exists {
		q = make(chan banObservation, eventQueueSize)
		c.queues[obs.guildID] = q
		go c.drainQueue(q)
	}
	c.queueMu.Unlock()

	q <- obs
}

func (c *Client) drainQueue(q chan banObservation) {
	for obs := range q {
		if obs.eventType == EventGuildBanAdd {
			c.handler.OnBanObserved(obs.guildID, obs.userID, "", "")
		} else {
			c.handler.OnUnbanObserved(obs.guildID, obs.userID)
		}
	}
}

func (c *Client) writeJSON(conn *websocket.Conn, p payload) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(p)
}

func mustMarshal(v interface{}) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}
