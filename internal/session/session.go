package session

import (
	"context"
	"errors"
	"log/slog"

	"github.com/workergo/portal/internal/identity"
	"github.com/workergo/portal/internal/storage"
)

// StorageKey is the one storage entry the session lives under.
const StorageKey = "workergo.session"

// SchemaVersion is written into every persisted session. Entries with any
// other version are treated as malformed.
const SchemaVersion = 1

var ErrMalformed = errors.New("persisted session is malformed")

// Codec turns an Identity into the string kept in storage and back.
// Decode must return ErrMalformed (possibly wrapped) for anything it can't
// turn back into a complete Identity.
type Codec interface {
	Encode(identity.Identity) (string, error)
	Decode(string) (identity.Identity, error)
}

// Store persists at most one Identity. Storage failures are logged and
// swallowed: callers keep their in-memory state either way.
type Store struct {
	storage storage.Storage
	codec   Codec
	logger  *slog.Logger
}

func NewStore(s storage.Storage, codec Codec, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{storage: s, codec: codec, logger: logger}
}

func (s *Store) Save(ctx context.Context, id identity.Identity) {
	encoded, err := s.codec.Encode(id)
	if err != nil {
		s.logger.WarnContext(ctx, "couldn't encode session, keeping it in memory only", "error", err)
		return
	}

	if err := s.storage.Set(ctx, StorageKey, encoded); err != nil {
		s.logger.WarnContext(ctx, "couldn't persist session, keeping it in memory only", "error", err)
	}
}

// Load never fails: a missing, unreadable or corrupt entry is an absent
// session. Corrupt entries are removed so the next Load is clean.
func (s *Store) Load(ctx context.Context) (identity.Identity, bool) {
	raw, err := s.storage.Get(ctx, StorageKey)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.WarnContext(ctx, "couldn't read persisted session", "error", err)
		}
		return identity.Identity{}, false
	}

	id, err := s.codec.Decode(raw)
	if err != nil {
		s.logger.InfoContext(ctx, "discarding malformed persisted session", "error", err)
		s.Clear(ctx)
		return identity.Identity{}, false
	}

	return id, true
}

func (s *Store) Clear(ctx context.Context) {
	if err := s.storage.Remove(ctx, StorageKey); err != nil {
		s.logger.WarnContext(ctx, "couldn't clear persisted session", "error", err)
	}
}
