package mediacontrol

import (
	"sort"
	"sync"
)

// subscriberBuffer bounds each watcher's event queue. A watcher that cannot
// keep up loses events rather than stalling controller transitions.
const subscriberBuffer = 32

// Service is the process-wide registry of sessions that currently have at
// least one attached member. It is created once by the owning process and
// handed to every consumer explicitly; its lifetime is the process lifetime.
//
// The table never holds a controller whose member count is zero, and every
// controller with members has exactly one entry. Controllers maintain that
// invariant by publishing their 0-to-1 and 1-to-0 membership edges here.
type Service struct {
	mu          sync.RWMutex
	controllers map[string]*Controller

	subMu       sync.Mutex
	subscribers map[chan Event]struct{}
}

// NewService creates an empty session registry.
func NewService() *Service {
	return &Service{
		controllers: make(map[string]*Controller),
		subscribers: make(map[chan Event]struct{}),
	}
}

// NewController creates a controller bound to this registry and its event
// stream. The controller is not listed until its first member attaches.
func (s *Service) NewController(id string) (*Controller, error) {
	c, err := NewController(id, s)
	if err != nil {
		return nil, err
	}
	c.onEvent = s.publish
	return c, nil
}

// Register lists a controller. Called by the controller itself when its
// member count crosses zero to one.
func (s *Service) Register(c *Controller) {
	if c == nil {
		return
	}
	s.mu.Lock()
	s.controllers[c.ID()] = c
	s.mu.Unlock()
}

// Unregister delists a controller. Called by the controller itself when its
// member count returns to zero.
func (s *Service) Unregister(c *Controller) {
	if c == nil {
		return
	}
	s.mu.Lock()
	delete(s.controllers, c.ID())
	s.mu.Unlock()
}

// ControllersNum returns the number of currently listed sessions.
func (s *Service) ControllersNum() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.controllers)
}

// Controller returns the listed controller for a session id, if any.
func (s *Service) Controller(id string) (*Controller, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.controllers[id]
	return c, ok
}

// Controllers returns a snapshot of the listed controllers sorted by id.
func (s *Service) Controllers() []*Controller {
	s.mu.RLock()
	listed := make([]*Controller, 0, len(s.controllers))
	for _, c := range s.controllers {
		listed = append(listed, c)
	}
	s.mu.RUnlock()

	sort.Slice(listed, func(i, j int) bool {
		return listed[i].ID() < listed[j].ID()
	})
	return listed
}

// Statuses returns aggregate snapshots of the listed sessions sorted by id.
// Each snapshot is internally consistent; the list as a whole reflects the
// table as it was when the call started.
func (s *Service) Statuses() []Status {
	listed := s.Controllers()
	statuses := make([]Status, 0, len(listed))
	for _, c := range listed {
		statuses = append(statuses, c.Snapshot())
	}
	return statuses
}

// Subscribe registers an event watcher. The returned cancel function must be
// called to release the subscription; the channel is closed by cancel.
func (s *Service) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)
	s.subMu.Lock()
	s.subscribers[ch] = struct{}{}
	s.subMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subscribers, ch)
			s.subMu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// publish fans an event out to all watchers without blocking a controller
// transition. A full watcher queue drops the event for that watcher only.
func (s *Service) publish(evt Event) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for ch := range s.subscribers {
		select {
		case ch <- evt:
		default:
		}
	}
}
