package mcp

import (
	"sort"
	"sync"
)

// PendingAuth tracks one in-flight device-code login.
type PendingAuth struct {
	UUID      string
	Alias     string
	TenantID  string
	Namespace string
	done      chan struct{}
}

// Done is closed once the login finishes or is cleared.
func (p *PendingAuth) Done() <-chan struct{} { return p.done }

// PendingAuths is a concurrency-safe registry of pending logins keyed by UUID.
type PendingAuths struct {
	mu      sync.RWMutex
	entries map[string]*PendingAuth
}

func NewPendingAuths() *PendingAuths {
	return &PendingAuths{entries: map[string]*PendingAuth{}}
}

// Put registers x, defaulting its namespace.
func (p *PendingAuths) Put(x *PendingAuth) {
	if x.Namespace == "" {
		x.Namespace = "default"
	}
	if x.done == nil {
		x.done = make(chan struct{})
	}
	p.mu.Lock()
	p.entries[x.UUID] = x
	p.mu.Unlock()
}

func (p *PendingAuths) Get(uuid string) (*PendingAuth, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	x, ok := p.entries[uuid]
	return x, ok
}

// FindAlias returns the pending login of alias within namespace ns.
func (p *PendingAuths) FindAlias(ns, alias string) (*PendingAuth, bool) {
	for _, x := range p.ListNamespace(ns) {
		if x.Alias == alias {
			return x, true
		}
	}
	return nil, false
}

// Complete removes the login and signals its waiters.
func (p *PendingAuths) Complete(uuid string) {
	p.mu.Lock()
	x, ok := p.entries[uuid]
	delete(p.entries, uuid)
	p.mu.Unlock()
	if ok {
		close(x.done)
	}
}

// ListNamespace returns the logins of namespace ns ordered by UUID.
func (p *PendingAuths) ListNamespace(ns string) []*PendingAuth {
	p.mu.RLock()
	out := make([]*PendingAuth, 0)
	for _, x := range p.entries {
		if x.Namespace == ns {
			out = append(out, x)
		}
	}
	p.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].UUID < out[j].UUID })
	return out
}

// ClearNamespace completes every login of namespace ns and returns their UUIDs.
func (p *PendingAuths) ClearNamespace(ns string) []string {
	ids := make([]string, 0)
	for _, x := range p.ListNamespace(ns) {
		ids = append(ids, x.UUID)
		p.Complete(x.UUID)
	}
	return ids
}
