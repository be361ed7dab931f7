package session

import (
	"context"
	"errors"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	model "github.com/alokkulkarni/connect-relay/internal/model/session"
)

var ErrSessionNotFound = errors.New("session not found")

// Store keeps relay sessions in process memory. It is safe for concurrent use;
// entries are only ever removed by Delete, DeleteByConnection or Sweep.
type Store struct {
	cache     *cache.Cache
	retention time.Duration
	now       func() time.Time
	log       *zap.Logger
}

// NewStore creates an empty store. Expiry is driven by Sweep rather than the
// cache janitor so that age is always measured from Session.CreatedAt.
func NewStore(retention time.Duration, log *zap.Logger) *Store {
	return &Store{
		cache:     cache.New(cache.NoExpiration, 0),
		retention: retention,
		now:       time.Now,
		log:       log.With(zap.String("module", "session")),
	}
}

// Put records a session, stamping CreatedAt when it is unset.
func (s *Store) Put(sess model.Session) {
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = s.now().UTC()
	}
	s.cache.Set(sess.ContactID, sess, cache.NoExpiration)
}

// Get retrieves a session by contact identifier.
func (s *Store) Get(contactID string) (model.Session, error) {
	v, ok := s.cache.Get(contactID)
	if !ok {
		return model.Session{}, ErrSessionNotFound
	}
	return v.(model.Session), nil
}

// Delete removes a session; deleting an unknown id is a no-op.
func (s *Store) Delete(contactID string) {
	s.cache.Delete(contactID)
}

// AttachConnection records the connection token on the session that owns
// participantToken. It reports whether such a session was found.
func (s *Store) AttachConnection(participantToken, connectionToken string) bool {
	if participantToken == "" {
		return false
	}
	for id, item := range s.cache.Items() {
		sess := item.Object.(model.Session)
		if sess.ParticipantToken != participantToken {
			continue
		}
		sess.ConnectionToken = connectionToken
		// Replace fails if the entry was removed concurrently, which keeps a
		// disconnected or swept session from coming back.
		return s.cache.Replace(id, sess, cache.NoExpiration) == nil
	}
	return false
}

// DeleteByConnection removes the session bound to connectionToken.
func (s *Store) DeleteByConnection(connectionToken string) (string, bool) {
	if connectionToken == "" {
		return "", false
	}
	for id, item := range s.cache.Items() {
		if item.Object.(model.Session).ConnectionToken == connectionToken {
			s.cache.Delete(id)
			return id, true
		}
	}
	return "", false
}

// Len returns the number of tracked sessions.
func (s *Store) Len() int {
	return s.cache.ItemCount()
}

// Sweep removes every session older than the retention window at now and
// returns how many were removed. It works on a snapshot, so it never holds the
// cache lock while requests touch individual entries.
func (s *Store) Sweep(now time.Time) int {
	removed := 0
	for id, item := range s.cache.Items() {
		if item.Object.(model.Session).Age(now) > s.retention {
			s.cache.Delete(id)
			removed++
			s.log.Info("cleaned up old session", zap.String("contactId", id))
		}
	}
	return removed
}

// Run sweeps on every tick until ctx is cancelled.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(s.now()); n > 0 {
				s.log.Info("session sweep finished", zap.Int("removed", n), zap.Int("remaining", s.Len()))
			}
		}
	}
}
