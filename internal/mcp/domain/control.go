package domain

import (
	"context"
	"time"

	"github.com/hushwing/mediadeck/internal/controlclient"
)

// callTimeout bounds one daemon call made on behalf of an MCP tool.
const callTimeout = 10 * time.Second

// ControlAPI is the slice of the daemon client the MCP tools need.
type ControlAPI interface {
	ListSessions(ctx context.Context, filter string) ([]controlclient.Session, error)
	GetSession(ctx context.Context, sessionID string) (controlclient.Session, error)
	Dispatch(ctx context.Context, sessionID string, verb string) (controlclient.Session, error)
	ListActivity(ctx context.Context, query controlclient.ListActivityQuery) (controlclient.ActivityPage, error)
}

// SessionSummary is the aggregate state of one listed session as MCP tools
// report it.
type SessionSummary struct {
	SessionID string `json:"session_id" jsonschema:"session identifier"`
	Playback  string `json:"playback" jsonschema:"aggregate playback state (STOPPED, PLAYING, PAUSED)"`
	Audible   bool   `json:"audible" jsonschema:"whether the session is currently audible"`
	Members   int    `json:"members" jsonschema:"number of attached media members"`
}

func summaryFromSession(session controlclient.Session) SessionSummary {
	return SessionSummary{
		SessionID: session.SessionID,
		Playback:  session.Playback,
		Audible:   session.Audible,
		Members:   session.Members,
	}
}
