package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/mediashelf/internal/controller"
)

// CookieName is the session cookie carrying the session id.
const CookieName = "mediashelf_session"

// DefaultIdleTimeout is how long an unused session is kept.
const DefaultIdleTimeout = 12 * time.Hour

type session struct {
	ctrl     *controller.Controller
	lastSeen time.Time
}

// Sessions holds one controller per browser session.
type Sessions struct {
	newController func() *controller.Controller
	idle          time.Duration
	now           func() time.Time

	mu   sync.Mutex
	byID map[string]*session
}

// NewSessions creates a session store. factory builds the controller of a new session.
func NewSessions(factory func() *controller.Controller, idle time.Duration) *Sessions {
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}
	return &Sessions{
		newController: factory,
		idle:          idle,
		now:           time.Now,
		byID:          make(map[string]*session),
	}
}

// Open returns the controller of the request's session, starting a new session and
// setting the cookie when the request has none or an expired one.
func (s *Sessions) Open(w http.ResponseWriter, r *http.Request) *controller.Controller {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweepLocked(now)

	if c, err := r.Cookie(CookieName); err == nil {
		if _, perr := uuid.Parse(c.Value); perr == nil {
			if sess, ok := s.byID[c.Value]; ok {
				sess.lastSeen = now
				return sess.ctrl
			}
		}
	}

	id := uuid.NewString()
	sess := &session{ctrl: s.newController(), lastSeen: now}
	s.byID[id] = sess
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sess.ctrl
}

// Len returns the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

func (s *Sessions) sweepLocked(now time.Time) {
	for id, sess := range s.byID {
		if now.Sub(sess.lastSeen) > s.idle {
			delete(s.byID, id)
		}
	}
}
