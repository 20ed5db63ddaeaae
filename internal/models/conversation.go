package models

import "fmt"

// ConversationKind discriminates the two addressing families.
type ConversationKind int

const (
	ConversationRoom ConversationKind = iota + 1
	ConversationDirect
)

// ConversationKey identifies a conversation for reads and writes: either a
// room, or the unordered pair {Self, Peer}. Direct lookup is symmetric
// (A→B and B→A address the same conversation) while stored messages keep
// sender and recipient distinct.
type ConversationKey struct {
	Kind ConversationKind
	Room *Room
	Self *User
	Peer *User
}

// RoomConversation builds the key for a room conversation.
func RoomConversation(room *Room) ConversationKey {
	return ConversationKey{Kind: ConversationRoom, Room: room}
}

// DirectConversation builds the key for the direct conversation between self
// and peer.
func DirectConversation(self, peer *User) ConversationKey {
	return ConversationKey{Kind: ConversationDirect, Self: self, Peer: peer}
}

// Pair returns the two participant ids of a direct conversation in sorted
// order, so that {A,B} and {B,A} compare equal.
func (k ConversationKey) Pair() (int64, int64) {
	a, b := k.Self.ID, k.Peer.ID
	if a > b {
		a, b = b, a
	}
	return a, b
}

// Label returns a short identifier for logs and metrics.
func (k ConversationKey) Label() string {
	switch k.Kind {
	case ConversationRoom:
		return "room:" + k.Room.Slug
	case ConversationDirect:
		a, b := k.Pair()
		return fmt.Sprintf("dm:%d-%d", a, b)
	}
	return "unknown"
}

// Type returns the addressing family name, used as a metric label.
func (k ConversationKey) Type() string {
	if k.Kind == ConversationRoom {
		return "room"
	}
	return "dm"
}
