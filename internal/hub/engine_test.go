package hub

import (
	"errors"
	"testing"
	"time"

	"github.com/mihirKIG/Service-Hub-Backend/internal/event"

	"github.com/stretchr/testify/require"
)

func TestEngine_SendMessage_PersistsThenBroadcastsToWholeRoom(t *testing.T) {
	req := require.New(t)
	room := activeRoom("alice", "bob")
	h, rooms, messages, _ := newTestHub(room)
	defer h.Stop()

	alice := joinedClient(h, "alice", room.ID.Hex())
	bob := joinedClient(h, "bob", room.ID.Hex())
	recvEvent(t, alice) // bob's online notice

	// When alice sends a text message
	h.engine.HandleInbound(alice, []byte(`{"type":"message","message_type":"text","content":"hello"}`))

	// Then exactly one message row exists with sender alice
	req.Len(messages.inserted, 1)
	stored := messages.inserted[0]
	req.Equal("alice", stored.SenderID)
	req.Equal("hello", stored.Content)
	req.False(stored.IsRead)
	req.Equal(room.ID, stored.RoomID)

	// And the room activity timestamp was bumped
	req.Equal([]string{room.ID.Hex()}, rooms.touched)

	// And both sessions, sender included, receive the confirmed message
	for _, c := range []*Client{alice, bob} {
		ev := recvEvent(t, c)
		msg, ok := ev.(event.MessageEvent)
		req.True(ok)
		req.Equal("hello", msg.Message.Content)
		req.Equal("alice", msg.Message.SenderID)
		req.Equal("Alice Austin", msg.Message.SenderName)
		req.Equal(stored.ID.Hex(), msg.Message.ID)
		req.False(msg.Message.CreatedAt.IsZero())
		req.False(msg.Message.IsRead)
	}
}

func TestEngine_SendMessage_DefaultsToTextKind(t *testing.T) {
	req := require.New(t)
	room := activeRoom("alice", "bob")
	h, _, messages, _ := newTestHub(room)
	defer h.Stop()

	alice := joinedClient(h, "alice", room.ID.Hex())

	h.engine.HandleInbound(alice, []byte(`{"type":"message","content":"no kind"}`))

	req.Len(messages.inserted, 1)
	req.Equal("text", messages.inserted[0].MessageType)
}

func TestEngine_SendMessage_PersistenceFailureStaysWithSender(t *testing.T) {
	req := require.New(t)
	room := activeRoom("alice", "bob")
	h, _, messages, _ := newTestHub(room)
	defer h.Stop()
	messages.err = errors.New("store unavailable")

	alice := joinedClient(h, "alice", room.ID.Hex())
	bob := joinedClient(h, "bob", room.ID.Hex())
	recvEvent(t, alice) // bob's online notice

	h.engine.HandleInbound(alice, []byte(`{"type":"message","message_type":"text","content":"hello"}`))

	// The sender gets a failure acknowledgment
	ev := recvEvent(t, alice)
	errEv, ok := ev.(event.ErrorEvent)
	req.True(ok)
	req.Equal("send_failed", errEv.Code)

	// Nothing was stored, nothing reached the peer
	req.Empty(messages.inserted)
	requireNoEvent(t, bob)

	// And the connection stays usable
	req.Equal(StateJoined, alice.State())
}

func TestEngine_SendMessage_InvalidKindDropped(t *testing.T) {
	req := require.New(t)
	room := activeRoom("alice", "bob")
	h, _, messages, _ := newTestHub(room)
	defer h.Stop()

	alice := joinedClient(h, "alice", room.ID.Hex())

	h.engine.HandleInbound(alice, []byte(`{"type":"message","message_type":"system","content":"fake"}`))

	req.Empty(messages.inserted)
	requireNoEvent(t, alice)
}

func TestEngine_Typing_ExcludesSender(t *testing.T) {
	req := require.New(t)
	room := activeRoom("alice", "bob")
	h, _, messages, _ := newTestHub(room)
	defer h.Stop()

	alice := joinedClient(h, "alice", room.ID.Hex())
	bob := joinedClient(h, "bob", room.ID.Hex())
	recvEvent(t, alice) // bob's online notice

	h.engine.HandleInbound(alice, []byte(`{"type":"typing","is_typing":true}`))

	ev := recvEvent(t, bob)
	typing, ok := ev.(event.TypingEvent)
	req.True(ok)
	req.Equal("alice", typing.UserID)
	req.True(typing.IsTyping)

	// Typing is ephemeral: not persisted, never echoed to the sender
	requireNoEvent(t, alice)
	req.Empty(messages.inserted)

	// And the in-memory indicator is visible to the monitor
	snapshot := h.engine.TypingSnapshot(10 * time.Second)
	req.Len(snapshot, 1)
	req.Equal("alice", snapshot[0].UserID)
}

func TestEngine_TypingStop_ClearsSnapshot(t *testing.T) {
	req := require.New(t)
	room := activeRoom("alice", "bob")
	h, _, _, _ := newTestHub(room)
	defer h.Stop()

	alice := joinedClient(h, "alice", room.ID.Hex())

	h.engine.HandleInbound(alice, []byte(`{"type":"typing","is_typing":true}`))
	h.engine.HandleInbound(alice, []byte(`{"type":"typing","is_typing":false}`))

	req.Empty(h.engine.TypingSnapshot(10 * time.Second))
}

func TestEngine_MalformedEventsDroppedSilently(t *testing.T) {
	req := require.New(t)
	room := activeRoom("alice", "bob")
	h, _, messages, _ := newTestHub(room)
	defer h.Stop()

	alice := joinedClient(h, "alice", room.ID.Hex())
	bob := joinedClient(h, "bob", room.ID.Hex())
	recvEvent(t, alice) // bob's online notice

	h.engine.HandleInbound(alice, []byte(`{"type":"presence","user_id":"alice"}`))
	h.engine.HandleInbound(alice, []byte(`not json at all`))
	h.engine.HandleInbound(alice, []byte(`{}`))

	req.Empty(messages.inserted)
	requireNoEvent(t, alice)
	requireNoEvent(t, bob)
	req.Equal(StateJoined, alice.State())
}

func TestEngine_EventsOutsideJoinedDiscarded(t *testing.T) {
	req := require.New(t)
	room := activeRoom("alice", "bob")
	h, _, messages, _ := newTestHub(room)
	defer h.Stop()

	// Given a session that was authorized but never joined
	alice := newClient("alice", room.ID.Hex(), nil, h)
	alice.setState(StateAuthorized)

	h.engine.HandleInbound(alice, []byte(`{"type":"message","message_type":"text","content":"early"}`))

	req.Empty(messages.inserted)
}

func TestEngine_BroadcastOrderMatchesIssuanceOrder(t *testing.T) {
	req := require.New(t)
	room := activeRoom("alice", "bob")
	h, _, _, _ := newTestHub(room)
	defer h.Stop()

	alice := joinedClient(h, "alice", room.ID.Hex())
	bob := joinedClient(h, "bob", room.ID.Hex())
	recvEvent(t, alice) // bob's online notice

	h.engine.HandleInbound(alice, []byte(`{"type":"message","message_type":"text","content":"first"}`))
	h.engine.HandleInbound(alice, []byte(`{"type":"message","message_type":"text","content":"second"}`))
	h.engine.HandleInbound(alice, []byte(`{"type":"message","message_type":"text","content":"third"}`))

	want := []string{"first", "second", "third"}
	for _, c := range []*Client{alice, bob} {
		for _, content := range want {
			ev := recvEvent(t, c)
			msg, ok := ev.(event.MessageEvent)
			req.True(ok)
			req.Equal(content, msg.Message.Content)
		}
	}
}

func TestEngine_DisplayNameFallsBackToIdentity(t *testing.T) {
	req := require.New(t)
	room := activeRoom("carol", "bob")
	h, _, _, _ := newTestHub(room)
	defer h.Stop()

	// carol is absent from the directory
	carol := joinedClient(h, "carol", room.ID.Hex())

	h.engine.HandleInbound(carol, []byte(`{"type":"message","message_type":"text","content":"hi"}`))

	ev := recvEvent(t, carol)
	msg, ok := ev.(event.MessageEvent)
	req.True(ok)
	req.Equal("carol", msg.Message.SenderName)
}
