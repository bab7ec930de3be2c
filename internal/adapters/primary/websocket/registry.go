package websocket

import (
	"sync"

	"github.com/google/uuid"
)

// Registry is the thread-safe mapping from organization id to the set of live
// connections currently viewing that organization's status page. It is
// constructed explicitly and injected into the Hub rather than living as a
// package-level singleton.
//
// The registry is written only by the hub's run loop (connect/disconnect) and
// read only by the broadcast path, so a single RWMutex is sufficient.
type Registry struct {
	mu   sync.RWMutex
	orgs map[uuid.UUID]map[*Client]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		orgs: make(map[uuid.UUID]map[*Client]struct{}),
	}
}

// Register adds the client to its organization's subscription set, creating
// the set if needed. Registering the same client twice is a no-op.
func (r *Registry) Register(client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.orgs[client.OrgID]
	if !ok {
		set = make(map[*Client]struct{})
		r.orgs[client.OrgID] = set
	}
	set[client] = struct{}{}
}

// Unregister removes the client from its organization's subscription set and
// prunes the set when it empties. Unregistering an absent client is a no-op:
// disconnect triggers (close frame, read error, heartbeat timeout) may race to
// clean up the same connection.
func (r *Registry) Unregister(client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.orgs[client.OrgID]
	if !ok {
		return
	}
	delete(set, client)
	if len(set) == 0 {
		delete(r.orgs, client.OrgID)
	}
}

// ConnectionsFor returns a snapshot of the organization's current subscribers.
// The returned slice is safe to iterate while the registry mutates.
func (r *Registry) ConnectionsFor(orgID uuid.UUID) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set, ok := r.orgs[orgID]
	if !ok {
		return nil
	}
	clients := make([]*Client, 0, len(set))
	for client := range set {
		clients = append(clients, client)
	}
	return clients
}

// ConnectionCount returns the total number of registered connections.
func (r *Registry) ConnectionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, set := range r.orgs {
		count += len(set)
	}
	return count
}

// OrgCount returns the number of organizations with at least one viewer.
func (r *Registry) OrgCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.orgs)
}

// ConnectionsInOrg returns the number of viewers for one organization.
func (r *Registry) ConnectionsInOrg(orgID uuid.UUID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.orgs[orgID])
}
