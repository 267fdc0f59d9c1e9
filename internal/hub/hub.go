package hub

import (
	"context"
	"crypto/sha1"
	"encoding/binary"
	"net/http"
	"sync"
	"time"

	"github.com/mihirKIG/Service-Hub-Backend/internal/event"
	"github.com/mihirKIG/Service-Hub-Backend/internal/model"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	shardCount = 64 // tune: 16/64/128 depending on load
)

// Narrow store views consumed by the hub and engine. Implemented by the
// repositories in internal/repo; tests substitute fakes.
type RoomStore interface {
	GetRoom(ctx context.Context, roomID string) (*model.ChatRoom, error)
	TouchRoom(ctx context.Context, roomID string) error
}

type MessageStore interface {
	InsertMessage(ctx context.Context, msg *model.Message) (string, error)
}

type UserDirectory interface {
	ResolveDisplayName(ctx context.Context, userID string) (string, error)
}

type clientBucket struct {
	sync.RWMutex
	rooms map[string]map[string]*Client // room id -> client id -> client
}

// Hub is the process-wide room registry: one shared instance maps each room
// id to the set of currently connected sessions for that room.
type Hub struct {
	shards     [shardCount]*clientBucket
	register   chan *Client
	unregister chan *Client

	engine *Engine
	oracle *AccessOracle

	upgrader websocket.Upgrader
	logger   *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(rooms RoomStore, messages MessageStore, users UserDirectory, allowedOrigins []string, logger *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		register:   make(chan *Client, 1024),
		unregister: make(chan *Client, 1024),
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
	}

	for i := 0; i < shardCount; i++ {
		h.shards[i] = &clientBucket{
			rooms: make(map[string]map[string]*Client),
		}
	}

	h.engine = NewEngine(h, rooms, messages, users, logger)
	h.oracle = NewAccessOracle(rooms, logger)
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}

	// run manager loop
	go h.run()

	return h
}

// Engine exposes the protocol engine, mainly for the monitor service.
func (h *Hub) Engine() *Engine {
	return h.engine
}

func (h *Hub) run() {
	for {
		select {
		case <-h.ctx.Done():
			return
		case c := <-h.register:
			h.addClient(c)
		case c := <-h.unregister:
			h.removeClient(c)
		}
	}
}

func getShard(roomID string) uint32 {
	if roomID == "" {
		return 0
	}

	h := sha1.Sum([]byte(roomID))
	return binary.BigEndian.Uint32(h[:4]) % shardCount
}

func (h *Hub) addClient(c *Client) {
	sh := getShard(c.roomID)
	b := h.shards[sh]
	b.Lock()
	room, ok := b.rooms[c.roomID]
	if !ok {
		room = make(map[string]*Client)
		b.rooms[c.roomID] = room
	}
	room[c.ID] = c
	b.Unlock()

	c.setState(StateJoined)
	h.logger.Info("session joined room",
		zap.String("client_id", c.ID),
		zap.String("user_id", c.userID),
		zap.String("room_id", c.roomID),
		zap.Uint32("shard", sh),
	)

	// The joining session does not receive its own online notice.
	h.Broadcast(c.roomID, event.NewUserStatusEvent(c.userID, event.StatusOnline), c.ID)
}

func (h *Hub) removeClient(c *Client) {
	sh := getShard(c.roomID)
	b := h.shards[sh]
	b.Lock()
	removed := false
	if room, ok := b.rooms[c.roomID]; ok {
		if _, exists := room[c.ID]; exists {
			delete(room, c.ID)
			removed = true
		}
		if len(room) == 0 {
			delete(b.rooms, c.roomID)
		}
	}
	b.Unlock()

	// Removal happens at most once per session, which keeps the offline
	// notice at exactly one per disconnect.
	if !removed {
		return
	}

	c.Close()
	h.logger.Info("session left room",
		zap.String("client_id", c.ID),
		zap.String("user_id", c.userID),
		zap.String("room_id", c.roomID),
	)

	h.Broadcast(c.roomID, event.NewUserStatusEvent(c.userID, event.StatusOffline), c.ID)
}

// Broadcast delivers ev to every session currently registered for roomID,
// except the one whose client id equals excludeID (empty string excludes
// nobody). Membership is snapshotted up front; a slow or dead peer is pruned
// rather than allowed to block delivery to the rest of the room.
func (h *Hub) Broadcast(roomID string, ev event.Outbound, excludeID string) {
	sh := getShard(roomID)
	b := h.shards[sh]

	// collect clients while holding RLock
	b.RLock()
	room, ok := b.rooms[roomID]
	if !ok || len(room) == 0 {
		b.RUnlock()
		return
	}

	clients := make([]*Client, 0, len(room))
	for id, c := range room {
		if id == excludeID {
			continue
		}
		clients = append(clients, c)
	}
	b.RUnlock()

	// deliver to clients without holding lock
	for _, c := range clients {
		if c.SafeSend(ev, sendTimeout) {
			continue
		}

		// egress full or session dead -> prune, never fail the broadcast
		h.logger.Warn("dropping undeliverable session",
			zap.String("client_id", c.ID),
			zap.String("room_id", roomID),
		)
		select {
		case h.unregister <- c:
			// queued for removal
		default:
			h.logger.Warn("unregister queue full", zap.String("client_id", c.ID))
		}
	}
}

// ServeWS upgrades the connection and drives the session through
// Connecting -> Authorized -> Joined. Unauthorized identities are refused
// immediately after the handshake; no event traffic occurs.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, userID, roomID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := newClient(userID, roomID, conn, h)

	ctx, cancel := context.WithTimeout(context.Background(), registerTimeout)
	defer cancel()

	if !h.oracle.Authorize(ctx, userID, roomID) {
		c.setStateClosed()
		deadline := time.Now().Add(writeWait)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "not a room participant"),
			deadline)
		_ = conn.Close()
		return
	}
	c.setState(StateAuthorized)

	select {
	case h.register <- c:
		go c.ReadMessages()
		go c.WriteMessages()
		h.logger.Debug("client registered",
			zap.String("client_id", c.ID),
			zap.String("user_id", userID),
			zap.String("room_id", roomID),
		)
	case <-time.After(registerTimeout):
		h.logger.Warn("failed to register client: timeout", zap.String("client_id", c.ID))
		c.cancel()
		_ = conn.Close()
	}
}

// Stop tears the registry down: every live session is closed and the manager
// loop exits. Called once at process shutdown.
func (h *Hub) Stop() {
	h.cancel()

	for _, shard := range h.shards {
		shard.Lock()
		for _, room := range shard.rooms {
			for _, client := range room {
				client.Close()
			}
		}
		shard.rooms = make(map[string]map[string]*Client)
		shard.Unlock()
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if origin == a {
				return true
			}
		}
		return false
	}
}
