package mediacontrol

import (
	"errors"
	"strings"
	"sync"
)

var (
	// ErrEmptySessionID indicates a missing session identifier.
	ErrEmptySessionID = errors.New("session id is required")
	// ErrNoControlledMedia indicates a Stopped report for a session with no
	// attached media. The aggregate cannot validate per-member identity, so
	// this always means a caller bug in the reporting layer.
	ErrNoControlledMedia = errors.New("no controlled media is attached")
	// ErrNoPlayingMedia indicates a Paused report when no member is playing.
	ErrNoPlayingMedia = errors.New("no attached media is playing")
	// ErrAllMediaPlaying indicates a Played report that would push the
	// playing count past the member count.
	ErrAllMediaPlaying = errors.New("all attached media are already playing")
)

// Registry receives a controller's membership activation edges. Register is
// called exactly once when the member count crosses 0 to 1 and Unregister
// exactly once when it returns to 0.
type Registry interface {
	Register(c *Controller)
	Unregister(c *Controller)
}

// EventKind classifies which aggregate property an event reports on.
type EventKind string

const (
	// EventMembersChanged signals a member attach or detach.
	EventMembersChanged EventKind = "members"
	// EventPlaybackChanged signals a playback state transition.
	EventPlaybackChanged EventKind = "playback"
	// EventAudibleChanged signals an audibility recomputation.
	EventAudibleChanged EventKind = "audible"
)

// Event is a snapshot of a session aggregate taken at the end of one
// mutating operation.
type Event struct {
	SessionID string
	Kind      EventKind
	Playback  PlaybackState
	Audible   bool
	Members   int
}

// Status is the externally visible aggregate of one session.
type Status struct {
	SessionID string
	Playback  PlaybackState
	Audible   bool
	Members   int
}

// Controller owns the aggregate state of one media session.
//
// Member lifecycle reports and explicit commands may arrive from
// independently scheduled contexts; the controller is the serialization
// point. Every mutating operation is one critical section: the playback
// state and the audibility flag are recomputed before the lock is released,
// so accessors never observe an inconsistent combination.
type Controller struct {
	id       string
	registry Registry
	onEvent  func(Event)

	mu            sync.Mutex
	members       int
	playing       int
	state         PlaybackState
	audibleSignal bool
	audible       bool
}

// NewController creates a controller for the given session id. The registry
// may be nil, in which case membership edges are not published anywhere.
// Uniqueness of the id is the caller's responsibility.
func NewController(id string, registry Registry) (*Controller, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrEmptySessionID
	}
	return &Controller{
		id:       id,
		registry: registry,
		state:    PlaybackStopped,
	}, nil
}

// ID returns the immutable session identifier.
func (c *Controller) ID() string {
	return c.id
}

// ControlledMediaNum returns the number of currently attached members.
func (c *Controller) ControlledMediaNum() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.members
}

// State returns the current aggregate playback state.
func (c *Controller) State() PlaybackState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsAudible reports whether the session is playing and some member reported
// itself audible.
func (c *Controller) IsAudible() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.audible
}

// Snapshot returns a consistent view of the whole aggregate.
func (c *Controller) Snapshot() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		SessionID: c.id,
		Playback:  c.state,
		Audible:   c.audible,
		Members:   c.members,
	}
}

// NotifyMediaStateChanged processes one member lifecycle signal.
//
// Started and Stopped adjust the member count and publish the 0-to-1 and
// 1-to-0 edges to the registry. Played and Paused adjust the playing count
// and rederive the playback state: with members attached, any playing member
// means Playing, none means Paused. Member reports never set Stopped.
//
// A Stopped with no attached member, a Paused with no playing member, or a
// Played past the member count returns an error and leaves the aggregate
// untouched; these indicate bugs in the reporting layer.
func (c *Controller) NotifyMediaStateChanged(state ControlledMediaState) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch state {
	case MediaStarted:
		c.members++
		if c.members == 1 && c.registry != nil {
			c.registry.Register(c)
		}
		c.refreshAudible()
		c.emit(EventMembersChanged)
		return nil
	case MediaStopped:
		if c.members == 0 {
			return ErrNoControlledMedia
		}
		c.members--
		if c.members == 0 {
			// Detached members cannot remain counted as playing, and a
			// session with no playing source must not stay in Playing.
			c.playing = 0
			if c.state == PlaybackPlaying {
				c.state = PlaybackPaused
			}
			if c.registry != nil {
				c.registry.Unregister(c)
			}
		}
		c.refreshAudible()
		c.emit(EventMembersChanged)
		return nil
	case MediaPlayed:
		if c.playing >= c.members {
			return ErrAllMediaPlaying
		}
		c.playing++
		c.deriveFromMembers()
		c.refreshAudible()
		c.emit(EventPlaybackChanged)
		return nil
	case MediaPaused:
		if c.playing == 0 {
			return ErrNoPlayingMedia
		}
		c.playing--
		c.deriveFromMembers()
		c.refreshAudible()
		c.emit(EventPlaybackChanged)
		return nil
	default:
		return errors.New("unknown controlled media state")
	}
}

// NotifyMediaAudibleChanged records the most recent raw audible signal from
// members. The session is audible only while the signal is set and the
// playback state is Playing; a signal received in any other state has no
// visible effect until the session transitions to Playing.
func (c *Controller) NotifyMediaAudibleChanged(isAudible bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.audibleSignal = isAudible
	c.refreshAudible()
	c.emit(EventAudibleChanged)
}

// Play transitions the session to Playing regardless of member reports.
func (c *Controller) Play() {
	c.setState(PlaybackPlaying)
}

// Pause transitions the session to Paused regardless of member reports.
func (c *Controller) Pause() {
	c.setState(PlaybackPaused)
}

// Stop transitions the session to Stopped regardless of member reports.
// Only Stop, or the last member detaching without a subsequent Play, can
// leave the session stopped.
func (c *Controller) Stop() {
	c.setState(PlaybackStopped)
}

// setState applies an explicit command. The command wins at the moment it
// runs; the next member report's derived recomputation may override it.
func (c *Controller) setState(state PlaybackState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = state
	c.refreshAudible()
	c.emit(EventPlaybackChanged)
}

// deriveFromMembers recomputes the playback state after a playing-count
// change. With no members attached nothing is forced; the state remains
// whatever the last explicit command or degradation left behind.
func (c *Controller) deriveFromMembers() {
	if c.members == 0 {
		return
	}
	if c.playing > 0 {
		c.state = PlaybackPlaying
	} else {
		c.state = PlaybackPaused
	}
}

// refreshAudible rederives audibility from the playback state and the last
// raw member signal.
func (c *Controller) refreshAudible() {
	c.audible = c.state == PlaybackPlaying && c.audibleSignal
}

// emit publishes the post-transition aggregate. Called with the lock held so
// events observe the same ordering as the transitions themselves.
func (c *Controller) emit(kind EventKind) {
	if c.onEvent == nil {
		return
	}
	c.onEvent(Event{
		SessionID: c.id,
		Kind:      kind,
		Playback:  c.state,
		Audible:   c.audible,
		Members:   c.members,
	})
}
