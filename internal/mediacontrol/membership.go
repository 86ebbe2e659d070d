package mediacontrol

import (
	"errors"
	"sync"
)

// ErrMembershipReleased indicates a report on an already released membership.
var ErrMembershipReleased = errors.New("membership has been released")

// Membership is a scoped acquisition of one controlled-media slot on a
// session. Attaching reports Started immediately; Release reports a
// synthetic Paused (when still playing) followed by Stopped exactly once,
// on every exit path.
type Membership struct {
	controller *Controller

	mu       sync.Mutex
	playing  bool
	released bool
}

// Attach adds one controlled media member to the session and returns its
// membership handle.
func (c *Controller) Attach() *Membership {
	m := &Membership{controller: c}
	// Started cannot fail: it only increments the member count.
	_ = c.NotifyMediaStateChanged(MediaStarted)
	return m
}

// Controller returns the session this membership belongs to.
func (m *Membership) Controller() *Controller {
	return m.controller
}

// SetPlaying reports the member's playing sub-state. Repeating the current
// value is a no-op so connection-level retries cannot skew the aggregate.
func (m *Membership) SetPlaying(playing bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.released {
		return ErrMembershipReleased
	}
	if m.playing == playing {
		return nil
	}
	signal := MediaPaused
	if playing {
		signal = MediaPlayed
	}
	if err := m.controller.NotifyMediaStateChanged(signal); err != nil {
		return err
	}
	m.playing = playing
	return nil
}

// SetAudible forwards the member's raw audible signal to the session.
func (m *Membership) SetAudible(audible bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.released {
		return ErrMembershipReleased
	}
	m.controller.NotifyMediaAudibleChanged(audible)
	return nil
}

// Release detaches the member. A playing member is paused first so the
// aggregate never counts a detached member as playing. Release is
// idempotent; later calls and reports are inert.
func (m *Membership) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.released {
		return
	}
	m.released = true
	if m.playing {
		m.playing = false
		_ = m.controller.NotifyMediaStateChanged(MediaPaused)
	}
	_ = m.controller.NotifyMediaStateChanged(MediaStopped)
}
