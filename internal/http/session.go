package httpapi

import (
	"net/http"
	"sync"

	"github.com/xtremerevenge2005/sts-pbh-sufis/internal/location"
)

// Role distinguishes the two login surfaces.
type Role string

const (
	RoleEmployee Role = "employee"
	RoleDriver   Role = "driver"
)

// session is one authenticated login. Each session owns its own coordinate
// slot, so the employee-side and driver-side map views never share state.
type session struct {
	Token string
	Role  Role
	ID    int
	Name  string
	Loc   *location.Session
}

type sessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*session
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{sessions: make(map[string]*session)}
}

func (r *sessionRegistry) create(role Role, id int, name string) *session {
	s := &session{Token: newID(), Role: role, ID: id, Name: name, Loc: location.NewSession()}
	r.mu.Lock()
	r.sessions[s.Token] = s
	r.mu.Unlock()
	return s
}

func (r *sessionRegistry) lookup(token string) (*session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[token]
	return s, ok
}

func (r *sessionRegistry) drop(token string) {
	r.mu.Lock()
	delete(r.sessions, token)
	r.mu.Unlock()
}

// sessionFrom pulls the session named by the X-Session-Token header.
func (s *Server) sessionFrom(r *http.Request) (*session, bool) {
	return s.sessions.lookup(r.Header.Get("X-Session-Token"))
}
