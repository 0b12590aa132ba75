package dispatch

import (
	"sort"
	"sync"

	"github.com/jonwraymond/toolcall/remote"
)

// Servers maps namespaces to remote server descriptors.
type Servers struct {
	mu      sync.RWMutex
	servers map[string]remote.Descriptor
}

// NewServers creates a Servers table from initial.
func NewServers(initial map[string]remote.Descriptor) *Servers {
	s := &Servers{servers: make(map[string]remote.Descriptor, len(initial))}
	for ns, d := range initial {
		s.servers[ns] = d
	}
	return s
}

// Set configures namespace to use d, replacing any previous descriptor.
func (s *Servers) Set(namespace string, d remote.Descriptor) {
	s.mu.Lock()
	s.servers[namespace] = d
	s.mu.Unlock()
}

// Remove deletes namespace.
func (s *Servers) Remove(namespace string) {
	s.mu.Lock()
	delete(s.servers, namespace)
	s.mu.Unlock()
}

// Get returns the descriptor of namespace.
func (s *Servers) Get(namespace string) (remote.Descriptor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.servers[namespace]
	return d, ok
}

// Names returns the configured namespaces, sorted.
func (s *Servers) Names() []string {
	s.mu.RLock()
	out := make([]string, 0, len(s.servers))
	for ns := range s.servers {
		out = append(out, ns)
	}
	s.mu.RUnlock()
	sort.Strings(out)
	return out
}
