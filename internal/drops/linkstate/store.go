// Package linkstate persists which external identities the visiting browser has linked.
package linkstate

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// StorageKey is the fixed key the link record is stored under.
const StorageKey = "userAuthData"

// State records the linked Steam and Twitch identities for the session.
type State struct {
	SteamLinked    bool   `json:"steamLinked"`
	SteamUsername  string `json:"username"`
	TwitchLinked   bool   `json:"twitchLinked"`
	TwitchUsername string `json:"twitchUsername"`
}

// Callback carries the identity fields handed back by a successful Steam link redirect.
type Callback struct {
	SteamUsername  string
	TwitchLinked   bool
	TwitchUsername string
}

// Storage is a synchronous string key/value store, modelled on the browser's localStorage.
type Storage interface {
	GetItem(key string) (value string, ok bool, err error)
	SetItem(key, value string) error
	RemoveItem(key string) error
}

// Store is the single source of truth for the session's link state. Persistence failures
// are logged and swallowed; the in-memory copy stays authoritative for the page lifetime.
type Store struct {
	mu      sync.Mutex
	storage Storage
	key     string
	logger  logrus.FieldLogger
	state   State
}

// Option customises a Store.
type Option func(*Store)

// WithKey overrides the storage key.
func WithKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

// WithLogger sets the logger used for storage failures.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore builds a Store over storage. A nil storage falls back to MemoryStorage.
func NewStore(storage Storage, opts ...Option) *Store {
	if storage == nil {
		storage = NewMemoryStorage()
	}
	s := &Store{
		storage: storage,
		key:     StorageKey,
		logger:  logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current in-memory state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Load reads the persisted record. A missing or unreadable record yields an empty state.
// The loaded state replaces the in-memory state.
func (s *Store) Load() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = s.read()
	return s.state
}

// Peek reads the persisted record without touching the in-memory state.
func (s *Store) Peek() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

// Save replaces the in-memory state and writes it back to storage.
func (s *Store) Save(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	s.write(state)
}

// Clear removes the persisted record and resets the in-memory state.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = State{}
	if err := s.storage.RemoveItem(s.key); err != nil {
		s.logger.WithError(err).WithField("key", s.key).Warn("link state: clear failed")
	}
}

// FromCallback returns the state a completed Steam link callback describes.
func FromCallback(cb Callback) State {
	return State{
		SteamLinked:    true,
		SteamUsername:  cb.SteamUsername,
		TwitchLinked:   cb.TwitchLinked,
		TwitchUsername: cb.TwitchUsername,
	}
}

// SetFromCallback records a completed Steam link and persists it immediately. It is the
// only operation that sets SteamLinked.
func (s *Store) SetFromCallback(cb Callback) State {
	state := FromCallback(cb)
	s.Save(state)
	return state
}

func (s *Store) read() State {
	raw, ok, err := s.storage.GetItem(s.key)
	if err != nil {
		s.logger.WithError(err).WithField("key", s.key).Warn("link state: load failed")
		return State{}
	}
	if !ok || raw == "" {
		return State{}
	}
	var state State
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		s.logger.WithError(err).WithField("key", s.key).Warn("link state: discarding malformed record")
		return State{}
	}
	return state
}

func (s *Store) write(state State) {
	data, err := json.Marshal(state)
	if err != nil {
		s.logger.WithError(err).Warn("link state: encode failed")
		return
	}
	if err := s.storage.SetItem(s.key, string(data)); err != nil {
		s.logger.WithError(fmt.Errorf("set %s: %w", s.key, err)).Warn("link state: save failed")
	}
}
