package controlclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "github.com/hushwing/mediadeck/internal/platform/errors"
)

func TestNewRejectsEmptyBaseURL(t *testing.T) {
	if _, err := New("   "); err == nil {
		t.Fatal("expected error for empty base URL")
	}
}

func TestListSessions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/v1/sessions" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if got := r.URL.Query().Get("filter"); got != `playback = "PLAYING"` {
			t.Errorf("unexpected filter: %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"sessions":[{"session_id":"alpha","playback":"PLAYING","audible":true,"members":2}]}`))
	}))
	defer srv.Close()

	client, err := New(srv.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	sessions, err := client.ListSessions(context.Background(), `playback = "PLAYING"`)
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(sessions))
	}
	want := Session{SessionID: "alpha", Playback: "PLAYING", Audible: true, Members: 2}
	if sessions[0] != want {
		t.Fatalf("unexpected session: %+v", sessions[0])
	}
}

func TestGetSessionNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":"SESSION_NOT_FOUND","message":"session is not active","metadata":{"session_id":"ghost"}}}`))
	}))
	defer srv.Close()

	client, err := New(srv.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.GetSession(context.Background(), "ghost")
	if !apperrors.IsCode(err, apperrors.CodeSessionNotFound) {
		t.Fatalf("expected SESSION_NOT_FOUND, got %v", err)
	}
	if got := apperrors.GetMetadata(err)["session_id"]; got != "ghost" {
		t.Fatalf("expected session_id metadata to survive decode, got %q", got)
	}
}

func TestGetSessionRejectsEmptyID(t *testing.T) {
	client, err := New("http://127.0.0.1:1")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = client.GetSession(context.Background(), "  ")
	if !apperrors.IsCode(err, apperrors.CodeSessionEmptyID) {
		t.Fatalf("expected SESSION_EMPTY_ID, got %v", err)
	}
}

func TestDispatchSendsGrant(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/v1/sessions/alpha:pause" {
			t.Errorf("unexpected path: %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer grant-token" {
			t.Errorf("unexpected authorization header: %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"session":{"session_id":"alpha","playback":"PAUSED","audible":false,"members":1}}`))
	}))
	defer srv.Close()

	client, err := New(srv.URL, WithGrant("grant-token"))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	session, err := client.Dispatch(context.Background(), "alpha", "pause")
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if session.Playback != "PAUSED" {
		t.Fatalf("expected PAUSED, got %q", session.Playback)
	}
}

func TestDispatchRejectsEmptyVerb(t *testing.T) {
	client, err := New("http://127.0.0.1:1")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = client.Dispatch(context.Background(), "alpha", "")
	if !apperrors.IsCode(err, apperrors.CodeCommandInvalid) {
		t.Fatalf("expected COMMAND_INVALID, got %v", err)
	}
}

func TestListActivityPaging(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		if got := query.Get("page_size"); got != "2" {
			t.Errorf("unexpected page_size: %q", got)
		}
		if got := query.Get("page_token"); got != "41" {
			t.Errorf("unexpected page_token: %q", got)
		}
		if got := query.Get("filter"); got != `kind = "playback"` {
			t.Errorf("unexpected filter: %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"events":[{"id":40,"session_id":"alpha","kind":"playback","playback":"PLAYING","audible":false,"members":1,"ts":"2026-08-30T12:00:00Z"}],"next_page_token":"40"}`))
	}))
	defer srv.Close()

	client, err := New(srv.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	page, err := client.ListActivity(context.Background(), ListActivityQuery{
		Filter:    `kind = "playback"`,
		PageSize:  2,
		PageToken: "41",
	})
	if err != nil {
		t.Fatalf("list activity: %v", err)
	}
	if len(page.Events) != 1 || page.Events[0].ID != 40 {
		t.Fatalf("unexpected events: %+v", page.Events)
	}
	if page.NextPageToken != "40" {
		t.Fatalf("unexpected next page token: %q", page.NextPageToken)
	}
}

func TestErrorWithoutStructuredBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client, err := New(srv.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.ListSessions(context.Background(), "")
	if !apperrors.IsCode(err, apperrors.CodeUnknown) {
		t.Fatalf("expected UNKNOWN for unstructured error, got %v", err)
	}
}
