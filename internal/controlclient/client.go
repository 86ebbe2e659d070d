// Package controlclient is a typed HTTP client for the control daemon API.
package controlclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/hushwing/mediadeck/internal/platform/errors"
)

// Session mirrors one listed session as the daemon reports it.
type Session struct {
	SessionID string `json:"session_id"`
	Playback  string `json:"playback"`
	Audible   bool   `json:"audible"`
	Members   int    `json:"members"`
}

// ActivityEvent is one persisted session transition.
type ActivityEvent struct {
	ID        int64  `json:"id"`
	SessionID string `json:"session_id"`
	Kind      string `json:"kind"`
	Playback  string `json:"playback"`
	Audible   bool   `json:"audible"`
	Members   int    `json:"members"`
	Ts        string `json:"ts"`
}

// ActivityPage is one page of the activity log, newest first.
type ActivityPage struct {
	Events        []ActivityEvent `json:"events"`
	NextPageToken string          `json:"next_page_token,omitempty"`
}

// ListActivityQuery narrows and pages an activity listing.
type ListActivityQuery struct {
	Filter    string
	PageSize  int
	PageToken string
}

type listSessionsResponse struct {
	Sessions []Session `json:"sessions"`
}

type sessionResponse struct {
	Session Session `json:"session"`
}

type errorResponse struct {
	Error struct {
		Code     string            `json:"code"`
		Message  string            `json:"message"`
		Metadata map[string]string `json:"metadata"`
	} `json:"error"`
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithGrant attaches a bearer grant to every request.
func WithGrant(grant string) Option {
	return func(c *Client) {
		c.grant = strings.TrimSpace(grant)
	}
}

// Client talks to one control daemon.
type Client struct {
	baseURL    string
	grant      string
	httpClient *http.Client
}

// New builds a client for the daemon at baseURL, e.g. "http://127.0.0.1:8080".
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("controlclient: base URL is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("controlclient: invalid base URL: %w", err)
	}

	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ListSessions returns the listed sessions, optionally narrowed by an
// AIP-160 filter expression.
func (c *Client) ListSessions(ctx context.Context, filter string) ([]Session, error) {
	query := url.Values{}
	if filter != "" {
		query.Set("filter", filter)
	}

	var body listSessionsResponse
	if err := c.get(ctx, "/v1/sessions", query, &body); err != nil {
		return nil, err
	}
	return body.Sessions, nil
}

// GetSession returns the aggregate state of one listed session.
func (c *Client) GetSession(ctx context.Context, sessionID string) (Session, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return Session{}, apperrors.New(apperrors.CodeSessionEmptyID, "session id is required")
	}

	var body sessionResponse
	if err := c.get(ctx, "/v1/sessions/"+url.PathEscape(sessionID), nil, &body); err != nil {
		return Session{}, err
	}
	return body.Session, nil
}

// Dispatch sends an explicit play, pause, or stop command to a session and
// returns the resulting aggregate state.
func (c *Client) Dispatch(ctx context.Context, sessionID string, verb string) (Session, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return Session{}, apperrors.New(apperrors.CodeSessionEmptyID, "session id is required")
	}
	verb = strings.TrimSpace(verb)
	if verb == "" {
		return Session{}, apperrors.New(apperrors.CodeCommandInvalid, "dispatch verb is required")
	}

	path := "/v1/sessions/" + url.PathEscape(sessionID) + ":" + url.PathEscape(verb)
	req, err := c.newRequest(ctx, http.MethodPost, path, nil)
	if err != nil {
		return Session{}, err
	}

	var body sessionResponse
	if err := c.do(req, &body); err != nil {
		return Session{}, err
	}
	return body.Session, nil
}

// ListActivity returns one page of the persisted activity log.
func (c *Client) ListActivity(ctx context.Context, query ListActivityQuery) (ActivityPage, error) {
	values := url.Values{}
	if query.Filter != "" {
		values.Set("filter", query.Filter)
	}
	if query.PageSize > 0 {
		values.Set("page_size", strconv.Itoa(query.PageSize))
	}
	if query.PageToken != "" {
		values.Set("page_token", query.PageToken)
	}

	var body ActivityPage
	if err := c.get(ctx, "/v1/activity", values, &body); err != nil {
		return ActivityPage{}, err
	}
	return body, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, query)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) newRequest(ctx context.Context, method string, path string, query url.Values) (*http.Request, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, fmt.Errorf("controlclient: build request: %w", err)
	}
	if c.grant != "" {
		req.Header.Set("Authorization", "Bearer "+c.grant)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("controlclient: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("controlclient: decode %s response: %w", req.URL.Path, err)
	}
	return nil
}

// decodeError maps the daemon's structured error body back onto a domain
// error so callers can branch on the code.
func decodeError(resp *http.Response) error {
	var body errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Error.Code == "" {
		return apperrors.New(apperrors.CodeUnknown, fmt.Sprintf("daemon returned status %d", resp.StatusCode))
	}
	return apperrors.WithMetadata(apperrors.Code(body.Error.Code), body.Error.Message, body.Error.Metadata)
}
