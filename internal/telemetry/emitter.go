// Package telemetry records session activity into durable storage.
package telemetry

import (
	"context"
	"time"

	"github.com/hushwing/mediadeck/internal/mediacontrol"
	"github.com/hushwing/mediadeck/internal/storage"
)

// Emitter records session activity events.
type Emitter struct {
	store storage.ActivityStore
	clock func() time.Time
}

// NewEmitter creates a new activity emitter.
func NewEmitter(store storage.ActivityStore) *Emitter {
	return &Emitter{store: store, clock: time.Now}
}

// WithClock overrides the emitter clock. Intended for tests.
func (e *Emitter) WithClock(clock func() time.Time) *Emitter {
	if e != nil && clock != nil {
		e.clock = clock
	}
	return e
}

// Record persists one controller event. It is a no-op when the store is nil.
func (e *Emitter) Record(ctx context.Context, event mediacontrol.Event) error {
	if e == nil || e.store == nil {
		return nil
	}

	activity := storage.ActivityEvent{
		SessionID: event.SessionID,
		Kind:      string(event.Kind),
		Playback:  event.Playback.String(),
		Audible:   event.Audible,
		Members:   event.Members,
	}
	if e.clock != nil {
		activity.Timestamp = e.clock().UTC()
	}
	return e.store.AppendActivity(ctx, activity)
}
