package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/wricardo/livechess/game/engine"
	"github.com/wricardo/livechess/game/session"
	"github.com/wricardo/livechess/internal/obslog"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096

	sendBuffer = 256
)

// Dispatcher is the match store the hub forwards client events to.
// session.Manager satisfies it.
type Dispatcher interface {
	Dispatch(id string, p engine.ParticipantID, ev session.Event) (session.Outcome, error)
	Observe(id string, fn func(engine.GameState)) error
}

// Client is one WebSocket connection. Each connection is its own
// participant.
type Client struct {
	hub         *Hub
	conn        *websocket.Conn
	send        chan []byte
	matchID     string
	participant engine.ParticipantID
}

// delivery is a frame routed by the hub loop. A nil client with an empty
// participant reaches every client in the match.
type delivery struct {
	matchID     string
	participant engine.ParticipantID
	client      *Client
	data        []byte
}

// Hub maintains the set of active clients per match and fans out
// notifications from the match store.
type Hub struct {
	dispatcher Dispatcher
	upgrader   websocket.Upgrader

	// Registered clients by match ID. Owned by Run.
	matches map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	outbound   chan *delivery
	done       chan struct{}
}

// NewHub creates a hub that forwards client events to d. An empty
// allowedOrigins accepts any origin.
func NewHub(d Dispatcher, allowedOrigins []string) *Hub {
	h := &Hub{
		dispatcher: d,
		matches:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		outbound:   make(chan *delivery, sendBuffer),
		done:       make(chan struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[strings.TrimRight(strings.ToLower(o), "/")] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[strings.ToLower(origin)]
	}
}

// Run starts the hub's event loop. It returns when ctx is cancelled, after
// closing every client.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		close(h.done)
		for _, clients := range h.matches {
			for client := range clients {
				close(client.send)
			}
		}
		h.matches = make(map[string]map[*Client]bool)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case d := <-h.outbound:
			h.deliver(d)
		}
	}
}

// ServeWS upgrades the request and attaches the connection to matchID.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, matchID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		obslog.L().Warn("ws_upgrade_failed", zap.String("match_id", matchID), zap.Error(err))
		return
	}

	client := &Client{
		hub:         h,
		conn:        conn,
		send:        make(chan []byte, sendBuffer),
		matchID:     strings.ToLower(matchID),
		participant: engine.ParticipantID(uuid.NewString()),
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()

	h.sendTo(client, outbound{
		Event:   EventConnected,
		MatchID: client.matchID,
		Data:    ConnectedData{Participant: client.participant, MatchID: client.matchID},
	})

	// The initial snapshot is queued under the match lock so it cannot
	// overtake a broadcast of a later state.
	err = h.dispatcher.Observe(client.matchID, func(state engine.GameState) {
		h.sendTo(client, outbound{Event: EventGameState, MatchID: client.matchID, Data: state})
	})
	if err != nil {
		h.sendTo(client, outbound{Event: EventError, MatchID: client.matchID, Data: rejectionData{Reason: err.Error()}})
		h.leave(client)
		return
	}

	go client.readPump()
}

// Broadcast sends the committed state to every client in the match.
func (h *Hub) Broadcast(matchID string, state engine.GameState) {
	data, err := json.Marshal(outbound{Event: EventGameState, MatchID: matchID, Data: state})
	if err != nil {
		obslog.L().Error("ws_marshal_failed", zap.String("match_id", matchID), zap.Error(err))
		return
	}
	h.enqueue(&delivery{matchID: matchID, data: data})
}

// Reply sends a direct answer to the clients of participant p.
func (h *Hub) Reply(matchID string, p engine.ParticipantID, r session.Reply) {
	data, err := json.Marshal(replyMessage(matchID, r))
	if err != nil {
		obslog.L().Error("ws_marshal_failed", zap.String("match_id", matchID), zap.Error(err))
		return
	}
	h.enqueue(&delivery{matchID: matchID, participant: p, data: data})
}

func (h *Hub) sendTo(c *Client, msg outbound) {
	data, err := json.Marshal(msg)
	if err != nil {
		obslog.L().Error("ws_marshal_failed", zap.String("match_id", c.matchID), zap.Error(err))
		return
	}
	h.enqueue(&delivery{matchID: c.matchID, client: c, data: data})
}

// enqueue hands d to the hub loop. It may be called with a match lock held,
// so it gives up once the hub has stopped instead of blocking forever.
func (h *Hub) enqueue(d *delivery) {
	select {
	case h.outbound <- d:
	case <-h.done:
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// registerClient adds a client to a match
func (h *Hub) registerClient(client *Client) {
	if h.matches[client.matchID] == nil {
		h.matches[client.matchID] = make(map[*Client]bool)
	}
	h.matches[client.matchID][client] = true

	obslog.L().Info("ws_client_registered",
		zap.String("match_id", client.matchID),
		zap.String("participant", string(client.participant)),
		zap.Int("clients", len(h.matches[client.matchID])),
	)
}

// unregisterClient removes a client from a match
func (h *Hub) unregisterClient(client *Client) {
	clients, ok := h.matches[client.matchID]
	if !ok || !clients[client] {
		return
	}
	delete(clients, client)
	close(client.send)

	if len(clients) == 0 {
		delete(h.matches, client.matchID)
	}

	obslog.L().Info("ws_client_unregistered",
		zap.String("match_id", client.matchID),
		zap.String("participant", string(client.participant)),
		zap.Int("remaining", len(clients)),
	)
}

// deliver writes d to the send buffer of each target client. A client
// whose buffer is full is dropped.
func (h *Hub) deliver(d *delivery) {
	clients, ok := h.matches[d.matchID]
	if !ok {
		return
	}
	for client := range clients {
		switch {
		case d.client != nil && client != d.client:
			continue
		case d.participant != "" && client.participant != d.participant:
			continue
		}
		select {
		case client.send <- d.data:
		default:
			obslog.L().Warn("ws_client_slow", zap.String("match_id", d.matchID), zap.String("participant", string(client.participant)))
			h.unregisterClient(client)
		}
	}
}

// handle decodes one inbound frame and dispatches it for this client.
func (c *Client) handle(data []byte) {
	ev, err := DecodeEvent(data)
	if err != nil {
		obslog.L().Debug("ws_bad_message", zap.String("match_id", c.matchID), zap.Error(err))
		c.hub.sendTo(c, outbound{Event: EventError, MatchID: c.matchID, Data: rejectionData{Reason: err.Error()}})
		return
	}
	if _, err := c.hub.dispatcher.Dispatch(c.matchID, c.participant, ev); err != nil {
		c.hub.sendTo(c, outbound{Event: EventError, MatchID: c.matchID, Data: rejectionData{Reason: err.Error()}})
	}
}

// readPump pumps messages from the WebSocket connection to the match. When
// the connection ends the participant's seat is released.
func (c *Client) readPump() {
	defer func() {
		if _, err := c.hub.dispatcher.Dispatch(c.matchID, c.participant, session.Disconnect{}); err != nil {
			obslog.L().Debug("ws_disconnect_dispatch", zap.String("match_id", c.matchID), zap.Error(err))
		}
		c.hub.leave(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				obslog.L().Warn("ws_read_error", zap.String("match_id", c.matchID), zap.Error(err))
			}
			break
		}
		c.handle(message)
	}
}

// writePump pumps messages from the hub to the WebSocket connection. Each
// frame carries exactly one message.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
