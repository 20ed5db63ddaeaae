package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/anugrahsoft/chatstream/internal/models"
)

// PostgresStore handles PostgreSQL database operations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// RunMigrations creates the schema if it does not exist.
func RunMigrations(ctx context.Context, databaseURL string) error {
	conn, err := pgx.Connect(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		handle TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		last_seen TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS rooms (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		name TEXT UNIQUE NOT NULL,
		slug TEXT UNIQUE NOT NULL
	);

	CREATE TABLE IF NOT EXISTS messages (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		sender_id BIGINT NOT NULL REFERENCES users(id),
		recipient_id BIGINT REFERENCES users(id),
		room_id BIGINT REFERENCES rooms(id),
		content TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT either_recipient_or_room_is_set
			CHECK ((recipient_id IS NULL) <> (room_id IS NULL))
	);

	CREATE INDEX IF NOT EXISTS idx_messages_room ON messages(room_id, id);
	CREATE INDEX IF NOT EXISTS idx_messages_pair ON messages(sender_id, recipient_id, id);
	`

	_, err = conn.Exec(ctx, schema)
	return err
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// CreateUser creates a new user record.
func (s *PostgresStore) CreateUser(ctx context.Context, handle, passwordHash string) (*models.User, error) {
	user := &models.User{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO users (handle, password_hash)
		VALUES ($1, $2)
		RETURNING id, handle, password_hash, last_seen, created_at
	`, handle, passwordHash).Scan(
		&user.ID, &user.Handle, &user.PasswordHash, &user.LastSeen, &user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetUserByHandle retrieves a user by handle.
func (s *PostgresStore) GetUserByHandle(ctx context.Context, handle string) (*models.User, error) {
	user := &models.User{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, handle, password_hash, last_seen, created_at
		FROM users WHERE handle = $1
	`, handle).Scan(
		&user.ID, &user.Handle, &user.PasswordHash, &user.LastSeen, &user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// GetUserByID retrieves a user by id.
func (s *PostgresStore) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	user := &models.User{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, handle, password_hash, last_seen, created_at
		FROM users WHERE id = $1
	`, id).Scan(
		&user.ID, &user.Handle, &user.PasswordHash, &user.LastSeen, &user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// ListUsers returns all users except excludeID, ordered by handle.
func (s *PostgresStore) ListUsers(ctx context.Context, excludeID int64) ([]models.User, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, handle, password_hash, last_seen, created_at
		FROM users WHERE id <> $1 ORDER BY handle ASC
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
func (s *PostgresStore) TouchLastSeen(ctx context.Context, userID int64, at time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE users SET last_seen = $1 WHERE id = $2
	`, at, userID)
	return err
}

// CreateRoom creates a new room.
func (s *PostgresStore) CreateRoom(ctx context.Context, name, slug string) (*models.Room, error) {
	room := &models.Room{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO rooms (name, slug)
		VALUES ($1, $2)
		RETURNING id, name, slug
	`, name, slug).Scan(&room.ID, &room.Name, &room.Slug)
	if err != nil {
		return nil, err
	}
	return room, nil
}

// GetRoomBySlug retrieves a room by slug.
func (s *PostgresStore) GetRoomBySlug(ctx context.Context, slug string) (*models.Room, error) {
	room := &models.Room{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, slug FROM rooms WHERE slug = $1
	`, slug).Scan(&room.ID, &room.Name, &room.Slug)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return room, nil
}

// GetRoomByID retrieves a room by id.
func (s *PostgresStore) GetRoomByID(ctx context.Context, id int64) (*models.Room, error) {
	room := &models.Room{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, slug FROM rooms WHERE id = $1
	`, id).Scan(&room.ID, &room.Name, &room.Slug)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return room, nil
}

// ListRooms returns all rooms, ordered by name.
func (s *PostgresStore) ListRooms(ctx context.Context) ([]models.Room, error) {
	rows, err := s.pool.Query(ctx, `
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

// Postgres error classes for integrity violations (foreign key, check).
const (
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// CreateMessage inserts a message and returns its store-assigned id.
func (s *PostgresStore) CreateMessage(ctx context.Context, msg *models.Message) (int64, error) {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO messages (sender_id, recipient_id, room_id, content)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, msg.SenderID, msg.RecipientID, msg.RoomID, msg.Content).Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && (pgErr.Code == pgForeignKeyViolation || pgErr.Code == pgCheckViolation) {
			return 0, ErrConstraint
		}
		return 0, err
	}
	return msg.ID, nil
}

// MessagesAfter returns a conversation's messages with id > afterID in
// ascending id order.
func (s *PostgresStore) MessagesAfter(ctx context.Context, key models.ConversationKey, afterID int64) ([]models.Message, error) {
	var (
		rows pgx.Rows
		err  error
	)
	switch key.Kind {
	case models.ConversationRoom:
		rows, err = s.pool.Query(ctx, `
			SELECT m.id, m.sender_id, u.handle, m.recipient_id, m.room_id, m.content, m.created_at
			FROM messages m JOIN users u ON u.id = m.sender_id
			WHERE m.room_id = $1 AND m.id > $2
			ORDER BY m.id ASC
		`, key.Room.ID, afterID)
	case models.ConversationDirect:
		a, b := key.Pair()
		rows, err = s.pool.Query(ctx, `
			SELECT m.id, m.sender_id, u.handle, m.recipient_id, m.room_id, m.content, m.created_at
			FROM messages m JOIN users u ON u.id = m.sender_id
			WHERE ((m.sender_id = $1 AND m.recipient_id = $2) OR (m.sender_id = $2 AND m.recipient_id = $1))
			  AND m.id > $3
			ORDER BY m.id ASC
		`, a, b, afterID)
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

// LatestMessageID returns the newest message id in a conversation, or 0.
func (s *PostgresStore) LatestMessageID(ctx context.Context, key models.ConversationKey) (int64, error) {
	var (
		id  int64
		err error
	)
	switch key.Kind {
	case models.ConversationRoom:
		err = s.pool.QueryRow(ctx, `
			SELECT COALESCE(MAX(id), 0) FROM messages WHERE room_id = $1
		`, key.Room.ID).Scan(&id)
	case models.ConversationDirect:
		a, b := key.Pair()
		err = s.pool.QueryRow(ctx, `
			SELECT COALESCE(MAX(id), 0) FROM messages
			WHERE (sender_id = $1 AND recipient_id = $2) OR (sender_id = $2 AND recipient_id = $1)
		`, a, b).Scan(&id)
	default:
		return 0, errors.New("store: unknown conversation kind")
	}
	return id, err
}

// ConversationExists reports whether a conversation's endpoints still exist.
func (s *PostgresStore) ConversationExists(ctx context.Context, key models.ConversationKey) (bool, error) {
	var n int
	switch key.Kind {
	case models.ConversationRoom:
		err := s.pool.QueryRow(ctx, `
			SELECT COUNT(*) FROM rooms WHERE id = $1
		`, key.Room.ID).Scan(&n)
		return n == 1, err
	case models.ConversationDirect:
		a, b := key.Pair()
		err := s.pool.QueryRow(ctx, `
			SELECT COUNT(*) FROM users WHERE id IN ($1, $2)
		`, a, b).Scan(&n)
		return n == 2, err
	}
	return false, errors.New("store: unknown conversation kind")
}
