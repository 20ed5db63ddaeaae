package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/anugrahsoft/chatstream/internal/models"
)

// SQLiteStore handles SQLite database operations. It is the default store
// for development and small single-process deployments.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/chatstream.db". The special path
// ":memory:" opens a private in-memory database, used by tests.
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/chatstream.db"
	}

	dsn := dbPath + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
	if dbPath == ":memory:" {
		// WAL is meaningless in memory; shared cache keeps the schema alive
		// across pooled connections.
		dsn = "file::memory:?mode=memory&cache=shared&_foreign_keys=on"
	} else {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}

	if err := store.initSchema(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		handle TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		last_seen DATETIME,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS rooms (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT UNIQUE NOT NULL,
		slug TEXT UNIQUE NOT NULL
	);

	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sender_id INTEGER NOT NULL REFERENCES users(id),
		recipient_id INTEGER REFERENCES users(id),
		room_id INTEGER REFERENCES rooms(id),
		content TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		CHECK ((recipient_id IS NULL) <> (room_id IS NULL))
	);

	CREATE INDEX IF NOT EXISTS idx_messages_room ON messages(room_id, id);
	CREATE INDEX IF NOT EXISTS idx_messages_pair ON messages(sender_id, recipient_id, id);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateUser creates a new user record.
func (s *SQLiteStore) CreateUser(ctx context.Context, handle, passwordHash string) (*models.User, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO users (handle, password_hash, created_at)
		VALUES (?, ?, ?)
	`, handle, passwordHash, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.GetUserByID(ctx, id)
}

const userCols = `id, handle, password_hash, last_seen, created_at`

func scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.Handle, &user.PasswordHash, &user.LastSeen, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// GetUserByHandle retrieves a user by handle.
func (s *SQLiteStore) GetUserByHandle(ctx context.Context, handle string) (*models.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `
		SELECT `+userCols+` FROM users WHERE handle = ?
	`, handle))
}

// GetUserByID retrieves a user by id.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `
		SELECT `+userCols+` FROM users WHERE id = ?
	`, id))
}

// ListUsers returns all users except excludeID, ordered by handle.
func (s *SQLiteStore) ListUsers(ctx context.Context, excludeID int64) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+userCols+` FROM users WHERE id <> ? ORDER BY handle ASC
	`, excludeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Handle, &u.PasswordHash, &u.LastSeen, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// TouchLastSeen updates a user's last-seen timestamp.
func (s *SQLiteStore) TouchLastSeen(ctx context.Context, userID int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET last_seen = ? WHERE id = ?
	`, at.UTC(), userID)
	return err
}

// CreateRoom creates a new room.
func (s *SQLiteStore) CreateRoom(ctx context.Context, name, slug string) (*models.Room, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO rooms (name, slug) VALUES (?, ?)
	`, name, slug)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.GetRoomByID(ctx, id)
}

func scanRoom(row *sql.Row) (*models.Room, error) {
	room := &models.Room{}
	err := row.Scan(&room.ID, &room.Name, &room.Slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return room, nil
}

// GetRoomBySlug retrieves a room by slug.
func (s *SQLiteStore) GetRoomBySlug(ctx context.Context, slug string) (*models.Room, error) {
	return scanRoom(s.db.QueryRowContext(ctx, `
		SELECT id, name, slug FROM rooms WHERE slug = ?
	`, slug))
}

// GetRoomByID retrieves a room by id.
func (s *SQLiteStore) GetRoomByID(ctx context.Context, id int64) (*models.Room, error) {
	return scanRoom(s.db.QueryRowContext(ctx, `
		SELECT id, name, slug FROM rooms WHERE id = ?
	`, id))
}

// ListRooms returns all rooms, ordered by name.
func (s *SQLiteStore) ListRooms(ctx context.Context) ([]models.Room, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, slug FROM rooms ORDER BY name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []models.Room
	for rows.Next() {
		var r models.Room
		if err := rows.Scan(&r.ID, &r.Name, &r.Slug); err != nil {
			return nil, err
		}
		rooms = append(rooms, r)
	}
	return rooms, rows.Err()
}

// CreateMessage inserts a message and returns its store-assigned id.
// Constraint violations (vanished room or recipient, or both/neither target
// set) are reported as ErrConstraint.
func (s *SQLiteStore) CreateMessage(ctx context.Context, msg *models.Message) (int64, error) {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (sender_id, recipient_id, room_id, content, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, msg.SenderID, msg.RecipientID, msg.RoomID, msg.Content, msg.CreatedAt)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return 0, ErrConstraint
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	msg.ID = id
	return id, nil
}

const messageCols = `m.id, m.sender_id, u.handle, m.recipient_id, m.room_id, m.content, m.created_at`

// MessagesAfter returns a conversation's messages with id > afterID in
// ascending id order.
func (s *SQLiteStore) MessagesAfter(ctx context.Context, key models.ConversationKey, afterID int64) ([]models.Message, error) {
	var (
		rows *sql.Rows
		err  error
	)
	switch key.Kind {
	case models.ConversationRoom:
		rows, err = s.db.QueryContext(ctx, `
			SELECT `+messageCols+`
			FROM messages m JOIN users u ON u.id = m.sender_id
			WHERE m.room_id = ? AND m.id > ?
			ORDER BY m.id ASC
		`, key.Room.ID, afterID)
	case models.ConversationDirect:
		a, b := key.Pair()
		rows, err = s.db.QueryContext(ctx, `
			SELECT `+messageCols+`
			FROM messages m JOIN users u ON u.id = m.sender_id
			WHERE ((m.sender_id = ? AND m.recipient_id = ?) OR (m.sender_id = ? AND m.recipient_id = ?))
			  AND m.id > ?
			ORDER BY m.id ASC
		`, a, b, b, a, afterID)
	default:
		return nil, errors.New("store: unknown conversation kind")
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.SenderID, &m.SenderHandle, &m.RecipientID, &m.RoomID, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// LatestMessageID returns the newest message id in a conversation, or 0 when
// it has no messages. Page handlers embed this value as the initial stream
// cursor.
func (s *SQLiteStore) LatestMessageID(ctx context.Context, key models.ConversationKey) (int64, error) {
	var (
		row *sql.Row
	)
	switch key.Kind {
	case models.ConversationRoom:
		row = s.db.QueryRowContext(ctx, `
			SELECT COALESCE(MAX(id), 0) FROM messages WHERE room_id = ?
		`, key.Room.ID)
	case models.ConversationDirect:
		a, b := key.Pair()
		row = s.db.QueryRowContext(ctx, `
			SELECT COALESCE(MAX(id), 0) FROM messages
			WHERE (sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)
		`, a, b, b, a)
	default:
		return 0, errors.New("store: unknown conversation kind")
	}
	var id int64
	if err := row.Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// ConversationExists reports whether a conversation's endpoints still exist.
func (s *SQLiteStore) ConversationExists(ctx context.Context, key models.ConversationKey) (bool, error) {
	var n int
	switch key.Kind {
	case models.ConversationRoom:
		err := s.db.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM rooms WHERE id = ?
		`, key.Room.ID).Scan(&n)
		return n == 1, err
	case models.ConversationDirect:
		a, b := key.Pair()
		err := s.db.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM users WHERE id IN (?, ?)
		`, a, b).Scan(&n)
		return n == 2, err
	}
	return false, errors.New("store: unknown conversation kind")
}
