package domain

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hushwing/mediadeck/internal/controlclient"
)

// ActivityListInput represents the MCP tool input for listing activity.
type ActivityListInput struct {
	Filter    string `json:"filter,omitempty" jsonschema:"optional AIP-160 filter over session_id, kind, playback, audible, members, and ts"`
	PageSize  int    `json:"page_size,omitempty" jsonschema:"maximum number of events to return (default 50, max 500)"`
	PageToken string `json:"page_token,omitempty" jsonschema:"token from a previous page to continue listing"`
}

// ActivityEventSummary is one persisted session transition.
type ActivityEventSummary struct {
	ID        int64  `json:"id" jsonschema:"event identifier, monotonically increasing"`
	SessionID string `json:"session_id" jsonschema:"session identifier"`
	Kind      string `json:"kind" jsonschema:"what changed (members, playback, audible)"`
	Playback  string `json:"playback" jsonschema:"aggregate playback state after the transition"`
	Audible   bool   `json:"audible" jsonschema:"audibility after the transition"`
	Members   int    `json:"members" jsonschema:"member count after the transition"`
	Ts        string `json:"ts" jsonschema:"RFC3339 timestamp of the transition"`
}

// ActivityListResult represents the MCP tool output for listing activity.
type ActivityListResult struct {
	Events        []ActivityEventSummary `json:"events" jsonschema:"events in the page, newest first"`
	NextPageToken string                 `json:"next_page_token,omitempty" jsonschema:"token for the next page, empty when exhausted"`
}

// ActivityListTool defines the MCP tool schema for listing activity.
func ActivityListTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "activity_list",
		Description: "Lists persisted session transitions newest first. Requires the daemon to run with an activity log configured.",
	}
}

// ActivityListHandler executes an activity listing request.
func ActivityListHandler(api ControlAPI) mcp.ToolHandlerFor[ActivityListInput, ActivityListResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input ActivityListInput) (*mcp.CallToolResult, ActivityListResult, error) {
		callCtx, cancel := context.WithTimeout(ctx, callTimeout)
		defer cancel()

		page, err := api.ListActivity(callCtx, controlclient.ListActivityQuery{
			Filter:    input.Filter,
			PageSize:  input.PageSize,
			PageToken: input.PageToken,
		})
		if err != nil {
			return nil, ActivityListResult{}, fmt.Errorf("activity list failed: %w", err)
		}

		result := ActivityListResult{
			Events:        make([]ActivityEventSummary, 0, len(page.Events)),
			NextPageToken: page.NextPageToken,
		}
		for _, event := range page.Events {
			result.Events = append(result.Events, ActivityEventSummary{
				ID:        event.ID,
				SessionID: event.SessionID,
				Kind:      event.Kind,
				Playback:  event.Playback,
				Audible:   event.Audible,
				Members:   event.Members,
				Ts:        event.Ts,
			})
		}
		return nil, result, nil
	}
}
