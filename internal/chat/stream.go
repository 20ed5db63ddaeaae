package chat

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/anugrahsoft/chatstream/internal/metrics"
	"github.com/anugrahsoft/chatstream/internal/models"
	"github.com/anugrahsoft/chatstream/internal/store"
)

// DefaultPollInterval is the wait between store queries when a poll cycle
// finds nothing new. Shorter intervals trade store load for latency.
const DefaultPollInterval = time.Second

// EventNewMessage and EventStreamError are the wire event type tags.
const (
	EventNewMessage  = "new-message"
	EventStreamError = "stream-error"
)

// Event is one discrete unit of the push stream. ID is the message id and
// the client's next resume identifier; Data is a rendered HTML fragment.
type Event struct {
	ID   int64
	Name string
	Data string
}

// EmitFunc delivers one event to the connected client. An error means the
// client is unreachable and stops the stream.
type EmitFunc func(Event) error

// Streamer tails conversations for connected clients. Each call to Run owns
// one connection and its cursor; nothing is shared across connections except
// the store.
type Streamer struct {
	store    store.DataStore
	interval time.Duration
	logger   zerolog.Logger
}

// NewStreamer creates a Streamer. A non-positive interval falls back to
// DefaultPollInterval.
func NewStreamer(st store.DataStore, interval time.Duration, logger zerolog.Logger) *Streamer {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Streamer{store: st, interval: interval, logger: logger}
}

// Run tails the conversation identified by key, emitting every message with
// id > cursor in ascending id order, then polling for more. It returns when
// ctx is cancelled (client disconnect or server drain), when emit fails, or
// when the stream fails closed because the conversation vanished or the
// store became unreachable. Every exit path stops the interval timer and
// issues no further queries.
func (s *Streamer) Run(ctx context.Context, key models.ConversationKey, cursor int64, emit EmitFunc) error {
	log := s.logger.With().
		Str("conn", ulid.Make().String()).
		Str("conversation", key.Label()).
		Logger()
	log.Info().Int64("cursor", cursor).Msg("stream opened")

	metrics.StreamsActive.Inc()
	defer metrics.StreamsActive.Dec()

	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		msgs, err := s.store.MessagesAfter(ctx, key, cursor)
		if err != nil {
			if ctx.Err() != nil {
				log.Info().Int64("cursor", cursor).Msg("stream closed")
				return nil
			}
			log.Error().Err(err).Msg("stream poll failed")
			_ = emit(Event{Name: EventStreamError, Data: "stream terminated"})
			return err
		}

		for _, m := range msgs {
			ev := Event{ID: m.ID, Name: EventNewMessage, Data: RenderMessage(&m)}
			if err := emit(ev); err != nil {
				log.Debug().Err(err).Msg("client write failed")
				return nil
			}
			cursor = m.ID
			metrics.StreamEvents.Inc()
		}

		if len(msgs) == 0 {
			// The idle path doubles as the fail-closed check: a room or
			// direct partner deleted mid-stream terminates the loop instead
			// of polling a dead key forever.
			ok, err := s.store.ConversationExists(ctx, key)
			if err != nil {
				if ctx.Err() != nil {
					log.Info().Int64("cursor", cursor).Msg("stream closed")
					return nil
				}
				log.Error().Err(err).Msg("stream existence check failed")
				_ = emit(Event{Name: EventStreamError, Data: "stream terminated"})
				return err
			}
			if !ok {
				log.Warn().Msg("conversation vanished, closing stream")
				_ = emit(Event{Name: EventStreamError, Data: "conversation no longer exists"})
				return ErrNotFound
			}

			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(s.interval)
			select {
			case <-ctx.Done():
				log.Info().Int64("cursor", cursor).Msg("stream closed")
				return nil
			case <-timer.C:
			}
		}
	}
}
