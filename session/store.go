// Package session keeps one QR code generator per browser session.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/openqr/qrcode-generator/generator"
	"github.com/openqr/qrcode-generator/notify"
)

// Session is the state owned by one visitor: their generator and the
// notifications waiting to be shown to them.
type Session struct {
	ID        string
	Generator *generator.Generator
	Notices   *notify.Queue
}

// Factory builds a generator that reports to the given notifier.
type Factory func(n notify.Notifier) *generator.Generator

// View is what a freshly mounted generator shows: the rendered default value
// and any notifications the mount raised.
type View struct {
	Snapshot generator.Snapshot
	Notices  []notify.Notification
}

// Store holds live sessions. Entries expire after the configured TTL of
// inactivity; every Get refreshes it.
type Store struct {
	cache   *cache.Cache
	ttl     time.Duration
	factory Factory
	log     *slog.Logger

	initOnce sync.Once
	initial  View
}

// NewStore creates a session store that expires idle sessions after ttl.
func NewStore(ttl time.Duration, factory Factory, log *slog.Logger) *Store {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	c := cache.New(ttl, ttl/3)
	c.OnEvicted(func(id string, _ interface{}) {
		log.Debug("session discarded", "session", id)
	})
	return &Store{
		cache:   c,
		ttl:     ttl,
		factory: factory,
		log:     log,
	}
}

// Get returns the session with the given id and refreshes its expiry.
func (s *Store) Get(id string) (*Session, bool) {
	if id == "" {
		return nil, false
	}
	data, found := s.cache.Get(id)
	if !found {
		return nil, false
	}
	sess, ok := data.(*Session)
	if !ok {
		s.log.Warn("invalid session type", "session", id)
		return nil, false
	}
	s.cache.SetDefault(id, sess)
	return sess, true
}

// Initial returns the view of a freshly mounted generator. The default value
// is encoded once, on first use, and shared by every session after that.
func (s *Store) Initial(ctx context.Context) View {
	s.initOnce.Do(func() {
		notices := notify.NewQueue(0)
		gen := s.factory(notices)
		if err := gen.Mount(ctx); err != nil {
			s.log.Warn("mount failed", "error", err)
		}
		s.initial = View{
			Snapshot: gen.Snapshot(),
			Notices:  notices.Drain(),
		}
	})
	return s.initial
}

// Create starts a new session whose generator is already mounted. A failed
// mount still yields a usable session; the failure is waiting in its notice
// queue.
func (s *Store) Create(ctx context.Context) (*Session, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("generate session id: %w", err)
	}

	view := s.Initial(ctx)
	notices := notify.NewQueue(0)
	sess := &Session{
		ID:        id.String(),
		Generator: s.factory(notices),
		Notices:   notices,
	}
	sess.Generator.Restore(view.Snapshot)
	for _, n := range view.Notices {
		notices.Notify(n)
	}

	s.cache.SetDefault(sess.ID, sess)
	s.log.Debug("session created", "session", sess.ID)
	return sess, nil
}

// GetOrCreate returns the session for id, creating a fresh one if it is
// unknown or expired. created reports whether a new session was made.
func (s *Store) GetOrCreate(ctx context.Context, id string) (sess *Session, created bool, err error) {
	if sess, ok := s.Get(id); ok {
		return sess, false, nil
	}
	sess, err = s.Create(ctx)
	if err != nil {
		return nil, false, err
	}
	return sess, true, nil
}

// Delete discards a session.
func (s *Store) Delete(id string) {
	s.cache.Delete(id)
}

// Count returns the number of live sessions, including expired ones not yet
// swept.
func (s *Store) Count() int {
	return s.cache.ItemCount()
}

// TTL returns the idle lifetime of a session.
func (s *Store) TTL() time.Duration {
	return s.ttl
}
