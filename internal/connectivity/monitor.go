// Package connectivity provides the online/offline signal the sync layer
// consumes. The signal is event-driven: the sync manager subscribes to
// transitions and never polls.
package connectivity

import "sync"

// Listener is called with the new online state on every transition.
type Listener func(online bool)

// Monitor is the host environment's connectivity signal.
type Monitor interface {
	// Online reports the current connectivity state.
	Online() bool

	// Subscribe registers a listener for transitions and returns an
	// unsubscribe function. Listeners are not called for the current state,
	// only for changes.
	Subscribe(l Listener) (unsubscribe func())
}

// Notifier is a manually driven Monitor. Hosts that learn about connectivity
// from their own machinery (platform callbacks, a supervising process) push
// transitions into it with Set.
type Notifier struct {
	mu        sync.Mutex
	online    bool
	listeners map[int]Listener
	nextID    int
}

// NewNotifier creates a notifier with the given initial state.
func NewNotifier(online bool) *Notifier {
	return &Notifier{
		online:    online,
		listeners: make(map[int]Listener),
	}
}

// Online reports the current state.
func (n *Notifier) Online() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.online
}

// Set updates the state and notifies listeners on a transition. Setting the
// same state twice is a no-op.
func (n *Notifier) Set(online bool) {
	n.mu.Lock()
	if n.online == online {
		n.mu.Unlock()
		return
	}
	n.online = online
	listeners := make([]Listener, 0, len(n.listeners))
	for _, l := range n.listeners {
		listeners = append(listeners, l)
	}
	n.mu.Unlock()

	// Deliver outside the lock so a listener may re-enter the monitor.
	for _, l := range listeners {
		l(online)
	}
}

// Subscribe registers a listener and returns its unsubscribe function.
func (n *Notifier) Subscribe(l Listener) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	id := n.nextID
	n.nextID++
	n.listeners[id] = l
	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.listeners, id)
	}
}
