package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/google/uuid"

	"realestatesync/utils"
)

// ErrNotConnected is returned when no extension is attached to the hub.
var ErrNotConnected = errors.New("extension not installed")

// Hub is the host side of the extension channel: a WebSocket endpoint the
// installed extension connects to. It correlates each outbound message
// with its single acknowledgement and fans inbound UPDATE_STATUS pushes
// out to subscribers.
type Hub struct {
	logger     *utils.Logger
	ackTimeout time.Duration

	mu   sync.Mutex
	conn net.Conn

	pendingMu sync.Mutex
	pending   map[string]chan Message

	subMu   sync.RWMutex
	subs    map[int]chan StatusUpdate
	nextSub int
}

// NewHub creates a Hub with the given acknowledgement timeout.
func NewHub(logger *utils.Logger, ackTimeout time.Duration) *Hub {
	return &Hub{
		logger:     logger,
		ackTimeout: ackTimeout,
		pending:    make(map[string]chan Message),
		subs:       make(map[int]chan StatusUpdate),
	}
}

// HandleUpgrade upgrades an HTTP request to the extension WebSocket. Only
// one extension connection is tracked; a new one replaces the old.
func (h *Hub) HandleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		h.logger.Error("[relay] websocket upgrade failed: %v", err)
		return
	}
	h.Attach(conn)
}

// Attach registers conn as the extension connection and starts its read
// loop. Exposed for tests, which attach a pipe instead of a real socket.
func (h *Hub) Attach(conn net.Conn) {
	h.mu.Lock()
	if h.conn != nil {
		h.conn.Close()
	}
	h.conn = conn
	h.mu.Unlock()

	h.logger.Info("[relay] extension connected")
	go h.readLoop(conn)
}

// Connected reports whether an extension is currently attached.
func (h *Hub) Connected() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.conn != nil
}

// Send writes msg to the extension and waits for its acknowledgement,
// bounded by the hub's ack timeout and the caller's context.
func (h *Hub) Send(ctx context.Context, msg Message) (Message, error) {
	h.mu.Lock()
	conn := h.conn
	h.mu.Unlock()
	if conn == nil {
		return Message{}, ErrNotConnected
	}

	msg.ID = uuid.NewString()
	ackCh := make(chan Message, 1)

	h.pendingMu.Lock()
	h.pending[msg.ID] = ackCh
	h.pendingMu.Unlock()
	defer func() {
		h.pendingMu.Lock()
		delete(h.pending, msg.ID)
		h.pendingMu.Unlock()
	}()

	if err := h.write(conn, msg); err != nil {
		return Message{}, fmt.Errorf("write to extension: %w", err)
	}

	select {
	case ack := <-ackCh:
		return ack, nil
	case <-time.After(h.ackTimeout):
		return Message{}, fmt.Errorf("extension did not acknowledge %s within %s", msg.Type, h.ackTimeout)
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

// Ping checks the extension channel with a PING round trip.
func (h *Hub) Ping(ctx context.Context) error {
	ack, err := h.Send(ctx, Message{Type: TypePing})
	if err != nil {
		return err
	}
	if !ack.OK {
		return fmt.Errorf("extension ping rejected: %s", ack.Error)
	}
	return nil
}

// Subscribe returns a channel receiving UPDATE_STATUS pushes and a cancel
// func. Slow subscribers drop updates rather than blocking the read loop.
func (h *Hub) Subscribe() (<-chan StatusUpdate, func()) {
	h.subMu.Lock()
	defer h.subMu.Unlock()

	id := h.nextSub
	h.nextSub++
	ch := make(chan StatusUpdate, 16)
	h.subs[id] = ch

	cancel := func() {
		h.subMu.Lock()
		defer h.subMu.Unlock()
		if _, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}

func (h *Hub) publishStatus(update StatusUpdate) {
	h.subMu.RLock()
	defer h.subMu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- update:
		default:
			h.logger.Warn("[relay] dropping status update for slow subscriber")
		}
	}
}

func (h *Hub) readLoop(conn net.Conn) {
	defer h.detach(conn)

	for {
		data, err := wsutil.ReadClientText(conn)
		if err != nil {
			h.logger.Warn("[relay] extension connection closed: %v", err)
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			h.logger.Warn("[relay] discarding malformed message: %v", err)
			continue
		}

		switch msg.Type {
		case TypeUpdateStatus:
			var update StatusUpdate
			if err := json.Unmarshal(msg.Data, &update); err != nil {
				h.logger.Warn("[relay] malformed status update: %v", err)
				continue
			}
			h.logger.Info("[relay] status update: target=%s property=%s success=%t",
				update.Target, update.PropertyID, update.Success)
			h.publishStatus(update)
			_ = h.write(conn, Ack(msg.ID, true, ""))

		case TypeCheckConnection, TypeContentScriptReady, TypePing:
			_ = h.write(conn, Ack(msg.ID, true, ""))

		default:
			// Acknowledgement of an outbound message.
			h.pendingMu.Lock()
			ch, ok := h.pending[msg.ID]
			h.pendingMu.Unlock()
			if ok {
				ch <- msg
			} else {
				h.logger.Debug("[relay] unmatched ack %s (%s)", msg.ID, msg.Type)
			}
		}
	}
}

func (h *Hub) write(conn net.Conn, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	return wsutil.WriteServerText(conn, data)
}

func (h *Hub) detach(conn net.Conn) {
	h.mu.Lock()
	if h.conn == conn {
		h.conn = nil
	}
	h.mu.Unlock()
	conn.Close()
}
