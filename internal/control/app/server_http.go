package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hushwing/mediadeck/internal/mediacontrol"
	apperrors "github.com/hushwing/mediadeck/internal/platform/errors"
	"github.com/hushwing/mediadeck/internal/storage"
	"golang.org/x/net/websocket"
)

type sessionPayload struct {
	SessionID string `json:"session_id"`
	Playback  string `json:"playback"`
	Audible   bool   `json:"audible"`
	Members   int    `json:"members"`
}

type listSessionsResponse struct {
	Sessions []sessionPayload `json:"sessions"`
}

type sessionResponse struct {
	Session sessionPayload `json:"session"`
}

type activityPayload struct {
	ID        int64  `json:"id"`
	SessionID string `json:"session_id"`
	Kind      string `json:"kind"`
	Playback  string `json:"playback"`
	Audible   bool   `json:"audible"`
	Members   int    `json:"members"`
	Ts        string `json:"ts"`
}

type listActivityResponse struct {
	Events        []activityPayload `json:"events"`
	NextPageToken string            `json:"next_page_token,omitempty"`
}

type errorBody struct {
	Code     string            `json:"code"`
	Message  string            `json:"message"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func sessionFromStatus(status mediacontrol.Status) sessionPayload {
	return sessionPayload{
		SessionID: status.SessionID,
		Playback:  status.Playback.String(),
		Audible:   status.Audible,
		Members:   status.Members,
	}
}

// newHandler builds the daemon HTTP routes.
func (s *Server) newHandler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/up", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	mux.HandleFunc("/v1/sessions", s.handleListSessions)
	mux.HandleFunc("/v1/sessions/", s.handleSession)
	mux.HandleFunc("/v1/activity", s.handleListActivity)

	memberHandler := websocket.Handler(s.handleMemberConn)
	mux.HandleFunc("/ws/member", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if !s.authorizeWS(w, r) {
			return
		}
		memberHandler.ServeHTTP(w, r)
	})

	watchHandler := websocket.Handler(s.handleWatchConn)
	mux.HandleFunc("/ws/watch", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		watchHandler.ServeHTTP(w, r)
	})

	return mux
}

// authorizeRequest enforces the control grant on mutating surfaces.
func (s *Server) authorizeRequest(r *http.Request) error {
	if !s.grants.Enabled() {
		return nil
	}
	_, err := ValidateGrant(bearerTokenFromRequest(r), s.grants)
	return err
}

func (s *Server) authorizeWS(w http.ResponseWriter, r *http.Request) bool {
	if err := s.authorizeRequest(r); err != nil {
		log.Printf("control: websocket unauthorized: remote=%s path=%q err=%v", r.RemoteAddr, r.URL.Path, err)
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return false
	}
	return true
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, apperrors.New(apperrors.CodeCommandInvalid, "method not allowed"))
		return
	}

	match, err := parseSessionFilter(r.URL.Query().Get("filter"))
	if err != nil {
		writeError(w, apperrors.Wrap(apperrors.CodeFilterInvalid, err.Error(), err))
		return
	}

	statuses := s.service.Statuses()
	sessions := make([]sessionPayload, 0, len(statuses))
	for _, status := range statuses {
		if !match(status) {
			continue
		}
		sessions = append(sessions, sessionFromStatus(status))
	}
	writeJSON(w, http.StatusOK, listSessionsResponse{Sessions: sessions})
}

// handleSession serves GET /v1/sessions/{id} and POST /v1/sessions/{id}:verb.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/sessions/")
	if rest == "" || strings.Contains(rest, "/") {
		writeError(w, apperrors.New(apperrors.CodeSessionNotFound, "unknown session path"))
		return
	}

	id, verb, hasVerb := strings.Cut(rest, ":")
	id = strings.TrimSpace(id)
	if id == "" {
		writeError(w, apperrors.New(apperrors.CodeSessionEmptyID, "session id is required"))
		return
	}

	if hasVerb {
		s.handleDispatch(w, r, id, verb)
		return
	}

	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, apperrors.New(apperrors.CodeCommandInvalid, "method not allowed"))
		return
	}

	controller, ok := s.service.Controller(id)
	if !ok {
		writeError(w, apperrors.WithMetadata(
			apperrors.CodeSessionNotFound,
			"session is not active",
			map[string]string{"session_id": id},
		))
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Session: sessionFromStatus(controller.Snapshot())})
}

func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request, id string, verb string) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, apperrors.New(apperrors.CodeCommandInvalid, "dispatch requires POST"))
		return
	}
	if err := s.authorizeRequest(r); err != nil {
		writeError(w, err)
		return
	}

	controller, ok := s.service.Controller(id)
	if !ok {
		writeError(w, apperrors.WithMetadata(
			apperrors.CodeSessionNotFound,
			"session is not active",
			map[string]string{"session_id": id},
		))
		return
	}

	switch verb {
	case "play":
		controller.Play()
	case "pause":
		controller.Pause()
	case "stop":
		controller.Stop()
	default:
		writeError(w, apperrors.WithMetadata(
			apperrors.CodeCommandInvalid,
			"unknown dispatch verb",
			map[string]string{"verb": verb},
		))
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{Session: sessionFromStatus(controller.Snapshot())})
}

func (s *Server) handleListActivity(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, apperrors.New(apperrors.CodeCommandInvalid, "method not allowed"))
		return
	}

	store := s.activityStore()
	if store == nil {
		writeError(w, apperrors.New(apperrors.CodeNotFound, "activity log is not configured"))
		return
	}

	query := storage.ListActivityQuery{
		Filter:    r.URL.Query().Get("filter"),
		PageToken: r.URL.Query().Get("page_token"),
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("page_size")); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 0 {
			writeError(w, apperrors.New(apperrors.CodeFilterInvalid, "page_size must be a non-negative integer"))
			return
		}
		query.PageSize = size
	}

	page, err := store.ListActivity(r.Context(), query)
	if err != nil {
		writeError(w, apperrors.Wrap(apperrors.CodeFilterInvalid, err.Error(), err))
		return
	}

	events := make([]activityPayload, 0, len(page.Events))
	for _, event := range page.Events {
		events = append(events, activityPayload{
			ID:        event.ID,
			SessionID: event.SessionID,
			Kind:      event.Kind,
			Playback:  event.Playback,
			Audible:   event.Audible,
			Members:   event.Members,
			Ts:        event.Timestamp.UTC().Format(time.RFC3339Nano),
		})
	}
	writeJSON(w, http.StatusOK, listActivityResponse{
		Events:        events,
		NextPageToken: page.NextPageToken,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("encode response body: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		appErr = apperrors.New(apperrors.CodeUnknown, "an unexpected error occurred")
	}
	writeJSON(w, appErr.Code.HTTPStatus(), errorResponse{
		Error: errorBody{
			Code:     string(appErr.Code),
			Message:  appErr.Message,
			Metadata: apperrors.GetMetadata(appErr),
		},
	})
}
