package chat

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"
)

var ErrSessionNotFound = errors.New("session not found")

type Session struct {
	ID        string    `json:"session_id"`
	Owner     string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`

	// ask serializes turns; mu guards turns.
	ask   sync.Mutex
	mu    sync.RWMutex
	turns []Turn
}

func (s *Session) Turns() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Turn(nil), s.turns...)
}

func (s *Session) append(turn Turn) Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	turn.Index = len(s.turns)
	s.turns = append(s.turns, turn)
	return turn
}

func (s *Session) turn(index int) (Turn, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if index < 0 || index >= len(s.turns) {
		return Turn{}, false
	}
	return s.turns[index], true
}

// Store keeps sessions in memory until they have been idle for the TTL.
type Store struct {
	cache *ttlcache.Cache[string, *Session]
	now   func() time.Time
}

func NewStore(ttl time.Duration) *Store {
	cache := ttlcache.New[string, *Session](
		ttlcache.WithTTL[string, *Session](ttl),
	)
	go cache.Start()
	return &Store{cache: cache, now: time.Now}
}

func (s *Store) Create(owner string) *Session {
	session := &Session{
		ID:        uuid.NewString(),
		Owner:     owner,
		CreatedAt: s.now().UTC(),
	}
	s.cache.Set(session.ID, session, ttlcache.DefaultTTL)
	return session
}

// Get returns the session only to its owner. Other callers see ErrSessionNotFound.
func (s *Store) Get(id, owner string) (*Session, error) {
	item := s.cache.Get(id)
	if item == nil {
		return nil, ErrSessionNotFound
	}
	session := item.Value()
	if session.Owner != owner {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

func (s *Store) Len() int {
	return s.cache.Len()
}

func (s *Store) Close() {
	s.cache.Stop()
}
