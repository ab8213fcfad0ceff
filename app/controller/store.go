package controller

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/vibast-solutions/lib-go-checkout/app/checkout"
)

type hostedSession struct {
	session  *checkout.Session
	launcher *RemoteLauncher
	lastSeen atomic.Int64
}

func (h *hostedSession) touch(now time.Time) {
	h.lastSeen.Store(now.UnixNano())
}

func (h *hostedSession) idleSince(cutoff time.Time) bool {
	return h.lastSeen.Load() < cutoff.UnixNano()
}

// sessionStore keeps live sessions in memory. Nothing survives a restart.
type sessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*hostedSession
}

func newSessionStore() *sessionStore {
	return &sessionStore{sessions: make(map[string]*hostedSession)}
}

func (s *sessionStore) put(id string, hosted *hostedSession) {
	s.mu.Lock()
	s.sessions[id] = hosted
	s.mu.Unlock()
}

func (s *sessionStore) get(id string) (*hostedSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hosted, ok := s.sessions[id]
	return hosted, ok
}

func (s *sessionStore) delete(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

func (s *sessionStore) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// takeIdle removes and returns the sessions not touched since cutoff.
func (s *sessionStore) takeIdle(cutoff time.Time) []*hostedSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*hostedSession
	for id, hosted := range s.sessions {
		if hosted.idleSince(cutoff) {
			out = append(out, hosted)
			delete(s.sessions, id)
		}
	}
	return out
}

// drain removes every session and returns them, for shutdown.
func (s *sessionStore) drain() []*hostedSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*hostedSession, 0, len(s.sessions))
	for id, hosted := range s.sessions {
		out = append(out, hosted)
		delete(s.sessions, id)
	}
	return out
}
