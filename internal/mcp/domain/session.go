package domain

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// SessionListInput represents the MCP tool input for listing sessions.
type SessionListInput struct {
	Filter string `json:"filter,omitempty" jsonschema:"optional AIP-160 filter over session_id, playback, audible, and members"`
}

// SessionListResult represents the MCP tool output for listing sessions.
type SessionListResult struct {
	Sessions []SessionSummary `json:"sessions" jsonschema:"listed sessions sorted by session identifier"`
}

// SessionListTool defines the MCP tool schema for listing sessions.
func SessionListTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "session_list",
		Description: "Lists the media sessions that currently have at least one attached member, with their aggregate playback state and audibility.",
	}
}

// SessionListHandler executes a session listing request.
func SessionListHandler(api ControlAPI) mcp.ToolHandlerFor[SessionListInput, SessionListResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input SessionListInput) (*mcp.CallToolResult, SessionListResult, error) {
		callCtx, cancel := context.WithTimeout(ctx, callTimeout)
		defer cancel()

		sessions, err := api.ListSessions(callCtx, input.Filter)
		if err != nil {
			return nil, SessionListResult{}, fmt.Errorf("session list failed: %w", err)
		}

		result := SessionListResult{Sessions: make([]SessionSummary, 0, len(sessions))}
		for _, session := range sessions {
			result.Sessions = append(result.Sessions, summaryFromSession(session))
		}
		return nil, result, nil
	}
}

// SessionGetInput represents the MCP tool input for reading one session.
type SessionGetInput struct {
	SessionID string `json:"session_id" jsonschema:"session identifier"`
}

// SessionGetResult represents the MCP tool output for reading one session.
type SessionGetResult struct {
	Session SessionSummary `json:"session" jsonschema:"aggregate state of the session"`
}

// SessionGetTool defines the MCP tool schema for reading one session.
func SessionGetTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "session_get",
		Description: "Returns the aggregate playback state, audibility, and member count of one listed session.",
	}
}

// SessionGetHandler executes a session read request.
func SessionGetHandler(api ControlAPI) mcp.ToolHandlerFor[SessionGetInput, SessionGetResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input SessionGetInput) (*mcp.CallToolResult, SessionGetResult, error) {
		callCtx, cancel := context.WithTimeout(ctx, callTimeout)
		defer cancel()

		session, err := api.GetSession(callCtx, input.SessionID)
		if err != nil {
			return nil, SessionGetResult{}, fmt.Errorf("session get failed: %w", err)
		}
		return nil, SessionGetResult{Session: summaryFromSession(session)}, nil
	}
}

// SessionDispatchInput represents the MCP tool input for dispatching a
// playback command.
type SessionDispatchInput struct {
	SessionID string `json:"session_id" jsonschema:"session identifier"`
	Verb      string `json:"verb" jsonschema:"playback command to dispatch (play, pause, stop)"`
}

// SessionDispatchResult represents the MCP tool output for dispatching a
// playback command.
type SessionDispatchResult struct {
	Session SessionSummary `json:"session" jsonschema:"aggregate state of the session after the command"`
}

// SessionDispatchTool defines the MCP tool schema for dispatching a playback
// command.
func SessionDispatchTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "session_dispatch",
		Description: "Dispatches an explicit play, pause, or stop command to a session. Explicit commands set the aggregate state directly.",
	}
}

// SessionDispatchHandler executes a playback command dispatch.
func SessionDispatchHandler(api ControlAPI) mcp.ToolHandlerFor[SessionDispatchInput, SessionDispatchResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input SessionDispatchInput) (*mcp.CallToolResult, SessionDispatchResult, error) {
		callCtx, cancel := context.WithTimeout(ctx, callTimeout)
		defer cancel()

		session, err := api.Dispatch(callCtx, input.SessionID, input.Verb)
		if err != nil {
			return nil, SessionDispatchResult{}, fmt.Errorf("session dispatch failed: %w", err)
		}
		return nil, SessionDispatchResult{Session: summaryFromSession(session)}, nil
	}
}
