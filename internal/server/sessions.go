package server

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/readmegen-cli/internal/github"
	"github.com/KaramelBytes/readmegen-cli/internal/workflow"
)

const sessionCookie = "readmegen_session"

// Flash is a one-shot notification shown on the next page render.
type Flash struct {
	Kind    string `json:"kind"` // "success" or "error"
	Message string `json:"message"`
}

type session struct {
	id       string
	ctl      *workflow.Controller
	lastSeen time.Time

	mu      sync.Mutex
	flashes []Flash
	// fetched is the ref a form submit just loaded; the repository view it
	// redirects to consumes it instead of loading the same ref again.
	fetched string
}

// Success implements workflow.Notifier.
func (s *session) Success(msg string) { s.push("success", msg) }

// Error implements workflow.Notifier.
func (s *session) Error(msg string) { s.push("error", msg) }

func (s *session) push(kind, msg string) {
	s.mu.Lock()
	s.flashes = append(s.flashes, Flash{Kind: kind, Message: msg})
	s.mu.Unlock()
}

func (s *session) markFetched(ref github.RepoRef) {
	s.mu.Lock()
	s.fetched = strings.ToLower(ref.String())
	s.mu.Unlock()
}

// takeFetched reports whether ref was just loaded by a form submit and
// clears the mark.
func (s *session) takeFetched(ref github.RepoRef) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	ok := s.fetched != "" && s.fetched == strings.ToLower(ref.String())
	s.fetched = ""
	return ok
}

// drain returns and clears pending flashes.
func (s *session) drain() []Flash {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.flashes
	s.flashes = nil
	return out
}

// sessionStore keeps one controller per browser. Idle sessions are dropped
// lazily whenever the store is accessed.
type sessionStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	items    map[string]*session
	now      func() time.Time
	newCtl   func(workflow.Notifier) *workflow.Controller
	onResize func(int)
}

func newSessionStore(ttl time.Duration, newCtl func(workflow.Notifier) *workflow.Controller, onResize func(int)) *sessionStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	if onResize == nil {
		onResize = func(int) {}
	}
	return &sessionStore{
		ttl:      ttl,
		items:    map[string]*session{},
		now:      time.Now,
		newCtl:   newCtl,
		onResize: onResize,
	}
}

// lookup returns the caller's live session, or nil. It never creates one, so
// read-only pages do not allocate a controller per cookieless request.
func (st *sessionStore) lookup(r *http.Request) *session {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return nil
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	now := st.now()
	st.sweepLocked(now)
	s, ok := st.items[c.Value]
	if !ok {
		return nil
	}
	s.lastSeen = now
	return s
}

// get returns the caller's session, creating one and setting the cookie
// when the request carries no live session id.
func (st *sessionStore) get(w http.ResponseWriter, r *http.Request) *session {
	st.mu.Lock()
	defer st.mu.Unlock()

	now := st.now()
	st.sweepLocked(now)

	if c, err := r.Cookie(sessionCookie); err == nil {
		if s, ok := st.items[c.Value]; ok {
			s.lastSeen = now
			return s
		}
	}

	s := &session{id: uuid.NewString(), lastSeen: now}
	s.ctl = st.newCtl(s)
	st.items[s.id] = s
	st.onResize(len(st.items))

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    s.id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(st.ttl.Seconds()),
	})
	return s
}

func (st *sessionStore) sweepLocked(now time.Time) {
	removed := false
	for id, s := range st.items {
		if now.Sub(s.lastSeen) > st.ttl {
			delete(st.items, id)
			removed = true
		}
	}
	if removed {
		st.onResize(len(st.items))
	}
}

func (st *sessionStore) len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.items)
}
