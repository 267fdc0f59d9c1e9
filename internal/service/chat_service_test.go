package service

import (
	"context"
	"testing"
	"time"

	"github.com/mihirKIG/Service-Hub-Backend/internal/db"
	"github.com/mihirKIG/Service-Hub-Backend/internal/model"
	"github.com/mihirKIG/Service-Hub-Backend/internal/repo"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ----------------------------------------------------------------------------
// Fakes
// ----------------------------------------------------------------------------

type fakeRoomRepo struct {
	rooms   map[string]*model.ChatRoom
	touched []string
}

func newFakeRoomRepo() *fakeRoomRepo {
	return &fakeRoomRepo{rooms: make(map[string]*model.ChatRoom)}
}

func (f *fakeRoomRepo) add(room *model.ChatRoom) *model.ChatRoom {
	if room.ID.IsZero() {
		room.ID = primitive.NewObjectID()
	}
	f.rooms[room.ID.Hex()] = room
	return room
}

func (f *fakeRoomRepo) GetRoom(ctx context.Context, roomID string) (*model.ChatRoom, error) {
	room, ok := f.rooms[roomID]
	if !ok {
		return nil, repo.ErrRoomNotFound
	}
	return room, nil
}

func (f *fakeRoomRepo) GetOrCreateRoom(ctx context.Context, customerID, providerID string, bookingID *string) (*model.ChatRoom, bool, error) {
	for _, room := range f.rooms {
		if room.CustomerID == customerID && room.ProviderID == providerID {
			return room, false, nil
		}
	}
	room := f.add(&model.ChatRoom{
		CustomerID: customerID,
		ProviderID: providerID,
		BookingID:  bookingID,
		IsActive:   true,
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	})
	return room, true, nil
}

func (f *fakeRoomRepo) ListRoomsForUser(ctx context.Context, userID string) ([]model.ChatRoom, error) {
	var out []model.ChatRoom
	for _, room := range f.rooms {
		if room.IsActive && room.HasParticipant(userID) {
			out = append(out, *room)
		}
	}
	return out, nil
}

func (f *fakeRoomRepo) TouchRoom(ctx context.Context, roomID string) error {
	f.touched = append(f.touched, roomID)
	return nil
}

func (f *fakeRoomRepo) DeactivateRoom(ctx context.Context, roomID string) error {
	room, ok := f.rooms[roomID]
	if !ok {
		return repo.ErrRoomNotFound
	}
	room.IsActive = false
	return nil
}

type fakeMessageRepo struct {
	msgs []*model.Message
}

func (f *fakeMessageRepo) InsertMessage(ctx context.Context, msg *model.Message) (string, error) {
	msg.ID = primitive.NewObjectID()
	f.msgs = append(f.msgs, msg)
	return msg.ID.Hex(), nil
}

func (f *fakeMessageRepo) ListMessages(ctx context.Context, roomID string, page int64) (*db.PaginatedResult[model.Message], error) {
	var out []model.Message
	for _, msg := range f.msgs {
		if msg.RoomID.Hex() == roomID && !msg.IsDeleted {
			out = append(out, *msg)
		}
	}
	return &db.PaginatedResult[model.Message]{
		Data:       out,
		Total:      int64(len(out)),
		Page:       page,
		PageSize:   int64(len(out)),
		TotalPages: 1,
	}, nil
}

func (f *fakeMessageRepo) MarkRead(ctx context.Context, roomID, viewerID string) (int64, error) {
	var marked int64
	now := time.Now().UTC()
	for _, msg := range f.msgs {
		if msg.RoomID.Hex() != roomID || msg.IsRead || msg.SenderID == viewerID {
			continue
		}
		msg.IsRead = true
		readAt := now
		msg.ReadAt = &readAt
		marked++
	}
	return marked, nil
}

func (f *fakeMessageRepo) ListAndMarkRead(ctx context.Context, roomID, viewerID string, page int64) (*db.PaginatedResult[model.Message], int64, error) {
	marked, err := f.MarkRead(ctx, roomID, viewerID)
	if err != nil {
		return nil, 0, err
	}
	result, err := f.ListMessages(ctx, roomID, page)
	return result, marked, err
}

func (f *fakeMessageRepo) UnreadCount(ctx context.Context, roomIDs []primitive.ObjectID, viewerID string) (int64, error) {
	ids := make(map[string]bool, len(roomIDs))
	for _, id := range roomIDs {
		ids[id.Hex()] = true
	}
	var count int64
	for _, msg := range f.msgs {
		if ids[msg.RoomID.Hex()] && !msg.IsRead && !msg.IsDeleted && msg.SenderID != viewerID {
			count++
		}
	}
	return count, nil
}

func (f *fakeMessageRepo) SoftDeleteMessage(ctx context.Context, messageID, requesterID string) error {
	for _, msg := range f.msgs {
		if msg.ID.Hex() == messageID && msg.SenderID == requesterID {
			msg.IsDeleted = true
			return nil
		}
	}
	return repo.ErrMessageNotFound
}

type fakeUserRepo struct {
	users map[string]*model.User
}

func (f *fakeUserRepo) GetUser(ctx context.Context, userID string) (*model.User, error) {
	user, ok := f.users[userID]
	if !ok {
		return nil, repo.ErrUserNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) ResolveDisplayName(ctx context.Context, userID string) (string, error) {
	user, err := f.GetUser(ctx, userID)
	if err != nil {
		return "", err
	}
	return user.DisplayName(), nil
}

// ----------------------------------------------------------------------------
// Fixtures
// ----------------------------------------------------------------------------

func newTestService() (ChatService, *fakeRoomRepo, *fakeMessageRepo, *fakeUserRepo) {
	rooms := newFakeRoomRepo()
	messages := &fakeMessageRepo{}
	users := &fakeUserRepo{users: map[string]*model.User{
		"alice": {UserID: "alice", FirstName: "Alice", LastName: "Austin", Role: model.RoleCustomer},
		"bob":   {UserID: "bob", FirstName: "Bob", LastName: "Builder", Role: model.RoleProvider},
		"carol": {UserID: "carol", FirstName: "Carol", LastName: "Cook", Role: model.RoleCustomer},
	}}
	svc := NewChatService(rooms, messages, users, zap.NewNop())
	return svc, rooms, messages, users
}

func addMessage(messages *fakeMessageRepo, room *model.ChatRoom, senderID, content string) *model.Message {
	msg := &model.Message{
		ID:          primitive.NewObjectID(),
		RoomID:      room.ID,
		SenderID:    senderID,
		MessageType: model.MessageTypeText,
		Content:     content,
		CreatedAt:   time.Now().UTC(),
	}
	messages.msgs = append(messages.msgs, msg)
	return msg
}

// ----------------------------------------------------------------------------
// Tests
// ----------------------------------------------------------------------------

func TestGetOrCreateRoom_ResolvesProviderSide(t *testing.T) {
	req := require.New(t)
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	// When a customer opens a chat with a provider
	room, created, err := svc.GetOrCreateRoom(ctx, "alice", CreateRoomInput{OtherUserID: "bob"})

	req.NoError(err)
	req.True(created)
	req.Equal("alice", room.CustomerID)
	req.Equal("bob", room.ProviderID)

	// And the provider opening the same pair lands in the same room
	same, created, err := svc.GetOrCreateRoom(ctx, "bob", CreateRoomInput{OtherUserID: "alice"})
	req.NoError(err)
	req.False(created)
	req.Equal(room.ID, same.ID)
}

func TestGetOrCreateRoom_RequiresAProvider(t *testing.T) {
	req := require.New(t)
	svc, _, _, _ := newTestService()

	_, _, err := svc.GetOrCreateRoom(context.Background(), "alice", CreateRoomInput{OtherUserID: "carol"})

	req.ErrorIs(err, ErrNoProvider)
}

func TestGetOrCreateRoom_RejectsSelfAndUnknownUsers(t *testing.T) {
	req := require.New(t)
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	_, _, err := svc.GetOrCreateRoom(ctx, "alice", CreateRoomInput{OtherUserID: "alice"})
	req.ErrorIs(err, ErrSelfChat)

	_, _, err = svc.GetOrCreateRoom(ctx, "alice", CreateRoomInput{OtherUserID: "nobody"})
	req.ErrorIs(err, repo.ErrUserNotFound)

	_, _, err = svc.GetOrCreateRoom(ctx, "alice", CreateRoomInput{})
	req.Error(err)
}

func TestGetRoom_NonParticipantDenied(t *testing.T) {
	req := require.New(t)
	svc, rooms, _, _ := newTestService()
	room := rooms.add(&model.ChatRoom{CustomerID: "alice", ProviderID: "bob", IsActive: true})

	_, err := svc.GetRoom(context.Background(), "carol", room.ID.Hex())

	req.ErrorIs(err, ErrNotParticipant)
}

func TestListMessages_ViewingAcknowledgesReceipt(t *testing.T) {
	req := require.New(t)
	svc, rooms, messages, _ := newTestService()
	ctx := context.Background()
	room := rooms.add(&model.ChatRoom{CustomerID: "alice", ProviderID: "bob", IsActive: true})

	fromBob := addMessage(messages, room, "bob", "are you there?")
	fromAlice := addMessage(messages, room, "alice", "on my way")

	// When alice lists the room
	result, err := svc.ListMessages(ctx, "alice", room.ID.Hex(), 1, true)
	req.NoError(err)
	req.Len(result.Data, 2)

	// Then bob's message is read with a stamped timestamp
	req.True(fromBob.IsRead)
	req.NotNil(fromBob.ReadAt)
	firstReadAt := *fromBob.ReadAt

	// And alice's own message is untouched
	req.False(fromAlice.IsRead)
	req.Nil(fromAlice.ReadAt)

	// And re-listing changes nothing (idempotent)
	_, err = svc.ListMessages(ctx, "alice", room.ID.Hex(), 1, true)
	req.NoError(err)
	req.Equal(firstReadAt, *fromBob.ReadAt)
	req.False(fromAlice.IsRead)
}

func TestListMessages_PureReadSkipsAcknowledgment(t *testing.T) {
	req := require.New(t)
	svc, rooms, messages, _ := newTestService()
	room := rooms.add(&model.ChatRoom{CustomerID: "alice", ProviderID: "bob", IsActive: true})
	fromBob := addMessage(messages, room, "bob", "ping")

	result, err := svc.ListMessages(context.Background(), "alice", room.ID.Hex(), 1, false)

	req.NoError(err)
	req.Len(result.Data, 1)
	req.False(fromBob.IsRead)
}

func TestListMessages_NonParticipantDenied(t *testing.T) {
	req := require.New(t)
	svc, rooms, _, _ := newTestService()
	room := rooms.add(&model.ChatRoom{CustomerID: "alice", ProviderID: "bob", IsActive: true})

	_, err := svc.ListMessages(context.Background(), "carol", room.ID.Hex(), 1, true)

	req.ErrorIs(err, ErrNotParticipant)
}

func TestSendMessage_StoresAndTouchesRoom(t *testing.T) {
	req := require.New(t)
	svc, rooms, messages, _ := newTestService()
	room := rooms.add(&model.ChatRoom{CustomerID: "alice", ProviderID: "bob", IsActive: true})

	msg, err := svc.SendMessage(context.Background(), "alice", room.ID.Hex(), SendMessageInput{
		MessageType: "text",
		Content:     "hello",
	})

	req.NoError(err)
	req.False(msg.ID.IsZero())
	req.Equal("alice", msg.SenderID)
	req.Len(messages.msgs, 1)
	req.Equal([]string{room.ID.Hex()}, rooms.touched)
}

func TestSendMessage_RejectsInvalidInput(t *testing.T) {
	req := require.New(t)
	svc, rooms, messages, _ := newTestService()
	room := rooms.add(&model.ChatRoom{CustomerID: "alice", ProviderID: "bob", IsActive: true})
	ctx := context.Background()

	_, err := svc.SendMessage(ctx, "alice", room.ID.Hex(), SendMessageInput{MessageType: "system", Content: "x"})
	req.Error(err)

	_, err = svc.SendMessage(ctx, "alice", room.ID.Hex(), SendMessageInput{MessageType: "text"})
	req.Error(err)

	req.Empty(messages.msgs)
}

func TestUnreadCount_AggregatesAcrossRooms(t *testing.T) {
	req := require.New(t)
	svc, rooms, messages, _ := newTestService()
	roomWithBob := rooms.add(&model.ChatRoom{CustomerID: "alice", ProviderID: "bob", IsActive: true})
	roomWithCarol := rooms.add(&model.ChatRoom{CustomerID: "carol", ProviderID: "bob", IsActive: true})

	addMessage(messages, roomWithBob, "bob", "one")
	addMessage(messages, roomWithBob, "bob", "two")
	addMessage(messages, roomWithBob, "alice", "mine")
	addMessage(messages, roomWithCarol, "carol", "not alice's room")

	count, err := svc.UnreadCount(context.Background(), "alice")

	req.NoError(err)
	req.Equal(int64(2), count)
}

func TestMarkRead_ReturnsMarkedCount(t *testing.T) {
	req := require.New(t)
	svc, rooms, messages, _ := newTestService()
	room := rooms.add(&model.ChatRoom{CustomerID: "alice", ProviderID: "bob", IsActive: true})
	addMessage(messages, room, "bob", "one")
	addMessage(messages, room, "bob", "two")
	ctx := context.Background()

	count, err := svc.MarkRead(ctx, "alice", room.ID.Hex())
	req.NoError(err)
	req.Equal(int64(2), count)

	// Second call is a no-op
	count, err = svc.MarkRead(ctx, "alice", room.ID.Hex())
	req.NoError(err)
	req.Zero(count)
}

func TestListRooms_DecoratesWithPeerAndUnread(t *testing.T) {
	req := require.New(t)
	svc, rooms, messages, _ := newTestService()
	room := rooms.add(&model.ChatRoom{CustomerID: "alice", ProviderID: "bob", IsActive: true})
	addMessage(messages, room, "bob", "unread one")

	summaries, err := svc.ListRooms(context.Background(), "alice")

	req.NoError(err)
	req.Len(summaries, 1)
	req.Equal("bob", summaries[0].OtherUserID)
	req.Equal("Bob Builder", summaries[0].OtherName)
	req.Equal(int64(1), summaries[0].UnreadCount)
}

func TestDeleteMessage_OnlySenderMaySoftDelete(t *testing.T) {
	req := require.New(t)
	svc, rooms, messages, _ := newTestService()
	room := rooms.add(&model.ChatRoom{CustomerID: "alice", ProviderID: "bob", IsActive: true})
	msg := addMessage(messages, room, "bob", "oops")
	ctx := context.Background()

	err := svc.DeleteMessage(ctx, "alice", msg.ID.Hex())
	req.ErrorIs(err, repo.ErrMessageNotFound)

	req.NoError(svc.DeleteMessage(ctx, "bob", msg.ID.Hex()))
	req.True(msg.IsDeleted)

	// Soft-deleted messages disappear from listings but stay stored
	result, err := svc.ListMessages(ctx, "alice", room.ID.Hex(), 1, false)
	req.NoError(err)
	req.Empty(result.Data)
	req.Len(messages.msgs, 1)
}
