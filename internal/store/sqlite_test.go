package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/anugrahsoft/chatstream/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func seedUsers(t *testing.T, s *SQLiteStore, handles ...string) []*models.User {
	t.Helper()
	users := make([]*models.User, len(handles))
	for i, h := range handles {
		u, err := s.CreateUser(context.Background(), h, "x")
		require.NoError(t, err)
		users[i] = u
	}
	return users
}

func directMessage(sender, recipient *models.User, content string) *models.Message {
	return &models.Message{
		SenderID:     sender.ID,
		SenderHandle: sender.Handle,
		RecipientID:  &recipient.ID,
		Content:      content,
	}
}

func roomMessage(sender *models.User, room *models.Room, content string) *models.Message {
	return &models.Message{
		SenderID:     sender.ID,
		SenderHandle: sender.Handle,
		RoomID:       &room.ID,
		Content:      content,
	}
}

func TestMutualExclusionConstraint(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	users := seedUsers(t, s, "alice", "bob")
	room, err := s.CreateRoom(ctx, "General", "general")
	require.NoError(t, err)

	// Neither target set.
	_, err = s.CreateMessage(ctx, &models.Message{SenderID: users[0].ID, Content: "x"})
	require.ErrorIs(t, err, ErrConstraint)

	// Both targets set.
	_, err = s.CreateMessage(ctx, &models.Message{
		SenderID:    users[0].ID,
		RecipientID: &users[1].ID,
		RoomID:      &room.ID,
		Content:     "x",
	})
	require.ErrorIs(t, err, ErrConstraint)

	// Exactly one set works, both ways.
	_, err = s.CreateMessage(ctx, directMessage(users[0], users[1], "dm"))
	require.NoError(t, err)
	_, err = s.CreateMessage(ctx, roomMessage(users[0], room, "room"))
	require.NoError(t, err)
}

func TestCreateMessageVanishedRoom(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	users := seedUsers(t, s, "alice")

	missing := int64(999)
	_, err := s.CreateMessage(ctx, &models.Message{
		SenderID: users[0].ID,
		RoomID:   &missing,
		Content:  "x",
	})
	require.ErrorIs(t, err, ErrConstraint)
}

func TestMessagesAfterOrderingAndIdempotency(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	users := seedUsers(t, s, "alice", "bob")
	room, err := s.CreateRoom(ctx, "General", "general")
	require.NoError(t, err)
	key := models.RoomConversation(room)

	var ids []int64
	for _, content := range []string{"one", "two", "three", "four", "five"} {
		id, err := s.CreateMessage(ctx, roomMessage(users[0], room, content))
		require.NoError(t, err)
		ids = append(ids, id)
	}

	// Ids are strictly increasing in creation order.
	for i := 1; i < len(ids); i++ {
		require.Greater(t, ids[i], ids[i-1])
	}

	// Cursor query returns only ids > cursor, ascending.
	msgs, err := s.MessagesAfter(ctx, key, ids[2])
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, ids[3], msgs[0].ID)
	require.Equal(t, ids[4], msgs[1].ID)
	require.Equal(t, "four", msgs[0].Content)
	require.Equal(t, "alice", msgs[0].SenderHandle)

	// Same cursor, no new posts: same result.
	again, err := s.MessagesAfter(ctx, key, ids[2])
	require.NoError(t, err)
	require.Equal(t, msgs, again)

	// Cursor at the newest id yields nothing.
	empty, err := s.MessagesAfter(ctx, key, ids[4])
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestDirectPairSymmetry(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	users := seedUsers(t, s, "alice", "bob", "carol")
	alice, bob, carol := users[0], users[1], users[2]

	_, err := s.CreateMessage(ctx, directMessage(alice, bob, "a to b"))
	require.NoError(t, err)
	_, err = s.CreateMessage(ctx, directMessage(bob, alice, "b to a"))
	require.NoError(t, err)
	_, err = s.CreateMessage(ctx, directMessage(alice, carol, "a to c"))
	require.NoError(t, err)

	fromAlice, err := s.MessagesAfter(ctx, models.DirectConversation(alice, bob), 0)
	require.NoError(t, err)
	fromBob, err := s.MessagesAfter(ctx, models.DirectConversation(bob, alice), 0)
	require.NoError(t, err)

	// Both directions address the same conversation and exclude carol's.
	require.Equal(t, fromAlice, fromBob)
	require.Len(t, fromAlice, 2)
	require.Equal(t, "a to b", fromAlice[0].Content)
	require.Equal(t, "b to a", fromAlice[1].Content)

	// Sender/recipient asymmetry survives on the rows.
	require.Equal(t, alice.ID, fromAlice[0].SenderID)
	require.Equal(t, bob.ID, fromAlice[1].SenderID)
}

func TestRoomAndDirectScopesAreDisjoint(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	users := seedUsers(t, s, "alice", "bob")
	room, err := s.CreateRoom(ctx, "General", "general")
	require.NoError(t, err)

	_, err = s.CreateMessage(ctx, roomMessage(users[0], room, "in room"))
	require.NoError(t, err)
	_, err = s.CreateMessage(ctx, directMessage(users[0], users[1], "in dm"))
	require.NoError(t, err)

	roomMsgs, err := s.MessagesAfter(ctx, models.RoomConversation(room), 0)
	require.NoError(t, err)
	require.Len(t, roomMsgs, 1)
	require.Nil(t, roomMsgs[0].RecipientID)
	require.NotNil(t, roomMsgs[0].RoomID)

	dmMsgs, err := s.MessagesAfter(ctx, models.DirectConversation(users[0], users[1]), 0)
	require.NoError(t, err)
	require.Len(t, dmMsgs, 1)
	require.NotNil(t, dmMsgs[0].RecipientID)
	require.Nil(t, dmMsgs[0].RoomID)
}

func TestLatestMessageID(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	users := seedUsers(t, s, "alice", "bob")
	room, err := s.CreateRoom(ctx, "General", "general")
	require.NoError(t, err)
	key := models.RoomConversation(room)

	latest, err := s.LatestMessageID(ctx, key)
	require.NoError(t, err)
	require.Zero(t, latest)

	id, err := s.CreateMessage(ctx, roomMessage(users[0], room, "hi"))
	require.NoError(t, err)

	latest, err = s.LatestMessageID(ctx, key)
	require.NoError(t, err)
	require.Equal(t, id, latest)

	// Unrelated direct traffic does not move the room's cursor.
	_, err = s.CreateMessage(ctx, directMessage(users[0], users[1], "psst"))
	require.NoError(t, err)
	latest, err = s.LatestMessageID(ctx, key)
	require.NoError(t, err)
	require.Equal(t, id, latest)
}

func TestConversationExists(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	users := seedUsers(t, s, "alice", "bob")
	room, err := s.CreateRoom(ctx, "General", "general")
	require.NoError(t, err)

	ok, err := s.ConversationExists(ctx, models.RoomConversation(room))
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.ConversationExists(ctx, models.RoomConversation(&models.Room{ID: 999, Slug: "ghost"}))
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = s.ConversationExists(ctx, models.DirectConversation(users[0], users[1]))
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.ConversationExists(ctx, models.DirectConversation(users[0], &models.User{ID: 999}))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestUserLookupsAndLastSeen(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	users := seedUsers(t, s, "alice", "bob")

	u, err := s.GetUserByHandle(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, users[0].ID, u.ID)
	require.Nil(t, u.LastSeen)

	u, err = s.GetUserByHandle(ctx, "nobody")
	require.NoError(t, err)
	require.Nil(t, u)

	at := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, s.TouchLastSeen(ctx, users[0].ID, at))
	u, err = s.GetUserByID(ctx, users[0].ID)
	require.NoError(t, err)
	require.NotNil(t, u.LastSeen)
	require.WithinDuration(t, at, *u.LastSeen, time.Second)

	others, err := s.ListUsers(ctx, users[0].ID)
	require.NoError(t, err)
	require.Len(t, others, 1)
	require.Equal(t, "bob", others[0].Handle)
}

func TestRoomLookups(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	room, err := s.CreateRoom(ctx, "General", "general")
	require.NoError(t, err)

	got, err := s.GetRoomBySlug(ctx, "general")
	require.NoError(t, err)
	require.Equal(t, room, got)

	got, err = s.GetRoomBySlug(ctx, "missing")
	require.NoError(t, err)
	require.Nil(t, got)

	_, err = s.CreateRoom(ctx, "Another", "another")
	require.NoError(t, err)
	rooms, err := s.ListRooms(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	require.Equal(t, "Another", rooms[0].Name)
}
