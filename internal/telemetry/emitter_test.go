package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/hushwing/mediadeck/internal/mediacontrol"
	"github.com/hushwing/mediadeck/internal/storage"
)

type fakeActivityStore struct {
	appended []storage.ActivityEvent
	err      error
}

func (f *fakeActivityStore) AppendActivity(_ context.Context, event storage.ActivityEvent) error {
	if f.err != nil {
		return f.err
	}
	f.appended = append(f.appended, event)
	return nil
}

func (f *fakeActivityStore) ListActivity(context.Context, storage.ListActivityQuery) (storage.ActivityPage, error) {
	return storage.ActivityPage{Events: f.appended}, nil
}

func TestRecordNoopWithoutStore(t *testing.T) {
	var emitter *Emitter
	if err := emitter.Record(context.Background(), mediacontrol.Event{}); err != nil {
		t.Fatalf("nil emitter should be a no-op: %v", err)
	}

	emitter = NewEmitter(nil)
	if err := emitter.Record(context.Background(), mediacontrol.Event{}); err != nil {
		t.Fatalf("nil store should be a no-op: %v", err)
	}
}

func TestRecordMapsEventFields(t *testing.T) {
	store := &fakeActivityStore{}
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	emitter := NewEmitter(store).WithClock(func() time.Time { return fixed })

	event := mediacontrol.Event{
		SessionID: "session-1",
		Kind:      mediacontrol.EventPlaybackChanged,
		Playback:  mediacontrol.PlaybackPlaying,
		Audible:   true,
		Members:   2,
	}
	if err := emitter.Record(context.Background(), event); err != nil {
		t.Fatalf("record event: %v", err)
	}

	if len(store.appended) != 1 {
		t.Fatalf("expected 1 appended event, got %d", len(store.appended))
	}
	got := store.appended[0]
	if got.SessionID != "session-1" {
		t.Fatalf("unexpected session id: %q", got.SessionID)
	}
	if got.Kind != "playback" {
		t.Fatalf("unexpected kind: %q", got.Kind)
	}
	if got.Playback != "PLAYING" {
		t.Fatalf("unexpected playback: %q", got.Playback)
	}
	if !got.Audible {
		t.Fatal("expected audible flag")
	}
	if got.Members != 2 {
		t.Fatalf("unexpected members: %d", got.Members)
	}
	if !got.Timestamp.Equal(fixed) {
		t.Fatalf("expected fixed clock timestamp, got %v", got.Timestamp)
	}
}

func TestRecordKindNames(t *testing.T) {
	store := &fakeActivityStore{}
	emitter := NewEmitter(store)

	kinds := []struct {
		kind mediacontrol.EventKind
		want string
	}{
		{mediacontrol.EventMembersChanged, "members"},
		{mediacontrol.EventPlaybackChanged, "playback"},
		{mediacontrol.EventAudibleChanged, "audible"},
	}
	for _, tc := range kinds {
		if err := emitter.Record(context.Background(), mediacontrol.Event{SessionID: "s", Kind: tc.kind}); err != nil {
			t.Fatalf("record %v: %v", tc.kind, err)
		}
	}
	for i, tc := range kinds {
		if store.appended[i].Kind != tc.want {
			t.Fatalf("expected kind %q, got %q", tc.want, store.appended[i].Kind)
		}
	}
}
