// internal/sync/session.go
package sync

import (
	"context"
	"sync"

	appErrors "github.com/unclebandit/campaignplanner-backend/internal/errors"
	"github.com/unclebandit/campaignplanner-backend/internal/gateway"
)

// SessionManager hands out one Controller per client. The first request for
// a client verifies it exists, selects it, and keeps the session (and its
// subscription) alive for subsequent requests.
type SessionManager struct {
	mu       sync.Mutex
	gw       gateway.Gateway
	sessions map[string]*Controller

	// Configure applies test/deployment tuning to each new controller
	// before SelectClient runs. May be nil.
	Configure func(*Controller)
}

func NewSessionManager(gw gateway.Gateway) *SessionManager {
	return &SessionManager{gw: gw, sessions: map[string]*Controller{}}
}

// Session returns the live controller for the client, creating it on first
// use. Unknown clients yield a NotFoundError.
func (m *SessionManager) Session(ctx context.Context, clientID string) (*Controller, error) {
	m.mu.Lock()
	if ctrl, ok := m.sessions[clientID]; ok {
		m.mu.Unlock()
		return ctrl, nil
	}
	m.mu.Unlock()

	if _, err := m.gw.GetDocument(ctx, gateway.CollectionClients, clientID); err != nil {
		if appErrors.IsNotFound(err) {
			return nil, appErrors.NewClientNotFound(clientID)
		}
		return nil, err
	}

	ctrl := NewController(m.gw)
	if m.Configure != nil {
		m.Configure(ctrl)
	}
	if err := ctrl.SelectClient(ctx, clientID); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.sessions[clientID]; ok {
		// another request won the race; keep its session
		ctrl.Close()
		return existing, nil
	}
	m.sessions[clientID] = ctrl
	return ctrl, nil
}

// Close tears down every session.
func (m *SessionManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, ctrl := range m.sessions {
		ctrl.Close()
		delete(m.sessions, id)
	}
}
