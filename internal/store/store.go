package store

import (
	"context"
	"errors"
	"time"

	"github.com/anugrahsoft/chatstream/internal/models"
)

// ErrConstraint is returned by CreateMessage when the row violates a
// foreign-key or mutual-exclusion constraint, e.g. the room vanished between
// resolution and insert.
var ErrConstraint = errors.New("store: constraint violation")

// DataStore defines the interface for persistent storage of users, rooms and
// messages. Both PostgresStore and SQLiteStore implement this interface.
// Single-row lookups return (nil, nil) when no row matches.
type DataStore interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	// User operations
	CreateUser(ctx context.Context, handle, passwordHash string) (*models.User, error)
	GetUserByHandle(ctx context.Context, handle string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	ListUsers(ctx context.Context, excludeID int64) ([]models.User, error)
	TouchLastSeen(ctx context.Context, userID int64, at time.Time) error

	// Room operations
	CreateRoom(ctx context.Context, name, slug string) (*models.Room, error)
	GetRoomBySlug(ctx context.Context, slug string) (*models.Room, error)
	GetRoomByID(ctx context.Context, id int64) (*models.Room, error)
	ListRooms(ctx context.Context) ([]models.Room, error)

	// Message operations. Ids are store-assigned, strictly increasing and
	// atomic; they double as stream cursors. MessagesAfter returns rows with
	// id > afterID in ascending id order, each carrying the sender's handle.
	CreateMessage(ctx context.Context, msg *models.Message) (int64, error)
	MessagesAfter(ctx context.Context, key models.ConversationKey, afterID int64) ([]models.Message, error)
	LatestMessageID(ctx context.Context, key models.ConversationKey) (int64, error)
	ConversationExists(ctx context.Context, key models.ConversationKey) (bool, error)
}
