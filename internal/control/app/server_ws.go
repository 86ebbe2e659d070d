package server

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"strings"
	"sync"

	"golang.org/x/net/websocket"

	"github.com/hushwing/mediadeck/internal/id"
	"github.com/hushwing/mediadeck/internal/mediacontrol"
	apperrors "github.com/hushwing/mediadeck/internal/platform/errors"
)

const (
	maxFramePayloadBytes   = 16 * 1024
	maxDecodeErrorsPerConn = 3
)

// newConnID tags one websocket connection for log correlation.
func newConnID() string {
	connID, err := id.NewID()
	if err != nil {
		return "unknown"
	}
	return connID
}

type wsFrame struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

type wsErrorEnvelope struct {
	Error wsError `json:"error"`
}

type wsError struct {
	Code    string `json:"code"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

type attachPayload struct {
	SessionID string `json:"session_id"`
}

type attachedPayload struct {
	Session sessionPayload `json:"session"`
}

type playingPayload struct {
	Playing bool `json:"playing"`
}

type audiblePayload struct {
	Audible bool `json:"audible"`
}

type ackPayload struct {
	Session sessionPayload `json:"session"`
}

type sessionEventPayload struct {
	SessionID string `json:"session_id"`
	Kind      string `json:"kind"`
	Playback  string `json:"playback"`
	Audible   bool   `json:"audible"`
	Members   int    `json:"members"`
}

type watchInitPayload struct {
	Sessions []sessionPayload `json:"sessions"`
}

type wsPeer struct {
	mu      sync.Mutex
	encoder *json.Encoder
}

func newWSPeer(encoder *json.Encoder) *wsPeer {
	return &wsPeer{encoder: encoder}
}

func (p *wsPeer) writeFrame(frame wsFrame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.encoder.Encode(frame)
}

// watchHub fans session events out to watch sockets.
type watchHub struct {
	mu    sync.Mutex
	peers map[*wsPeer]struct{}
}

func newWatchHub() *watchHub {
	return &watchHub{peers: make(map[*wsPeer]struct{})}
}

func (h *watchHub) join(peer *wsPeer) {
	h.mu.Lock()
	h.peers[peer] = struct{}{}
	h.mu.Unlock()
}

func (h *watchHub) leave(peer *wsPeer) {
	h.mu.Lock()
	delete(h.peers, peer)
	h.mu.Unlock()
}

func (h *watchHub) broadcast(event mediacontrol.Event) {
	frame := wsFrame{
		Type: "session.event",
		Payload: mustJSON(sessionEventPayload{
			SessionID: event.SessionID,
			Kind:      string(event.Kind),
			Playback:  event.Playback.String(),
			Audible:   event.Audible,
			Members:   event.Members,
		}),
	}

	h.mu.Lock()
	peers := make([]*wsPeer, 0, len(h.peers))
	for peer := range h.peers {
		peers = append(peers, peer)
	}
	h.mu.Unlock()

	for _, peer := range peers {
		_ = peer.writeFrame(frame)
	}
}

// mapMediaError converts a registry or membership sentinel into a domain
// error so every surface reports the same code for the same condition.
func mapMediaError(err error) *apperrors.Error {
	switch {
	case errors.Is(err, mediacontrol.ErrEmptySessionID):
		return apperrors.Wrap(apperrors.CodeSessionEmptyID, "session_id is required", err)
	case errors.Is(err, mediacontrol.ErrNoControlledMedia):
		return apperrors.Wrap(apperrors.CodeMediaNoneAttached, "no controlled media is attached", err)
	case errors.Is(err, mediacontrol.ErrNoPlayingMedia):
		return apperrors.Wrap(apperrors.CodeMediaNonePlaying, "no attached media is playing", err)
	case errors.Is(err, mediacontrol.ErrAllMediaPlaying):
		return apperrors.Wrap(apperrors.CodeMediaAllPlaying, "all attached media are already playing", err)
	case errors.Is(err, mediacontrol.ErrMembershipReleased):
		return apperrors.Wrap(apperrors.CodeMembershipReleased, "membership has been released", err)
	default:
		return apperrors.Wrap(apperrors.CodeUnknown, "media report failed", err)
	}
}

// handleMemberConn binds one membership to a WebSocket connection. The member
// attaches once, then reports playing/audible changes; closing the connection
// releases the membership.
func (s *Server) handleMemberConn(conn *websocket.Conn) {
	defer func() {
		_ = conn.Close()
	}()

	connID := newConnID()
	decoder := json.NewDecoder(conn)
	peer := newWSPeer(json.NewEncoder(conn))

	var membership *mediacontrol.Membership
	defer func() {
		if membership != nil {
			membership.Release()
		}
	}()

	decodeErrors := 0
	for {
		var frame wsFrame
		if err := decoder.Decode(&frame); err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			decodeErrors++
			_ = writeWSError(peer, "", apperrors.New(apperrors.CodeCommandInvalid, "invalid frame payload"))
			if decodeErrors >= maxDecodeErrorsPerConn {
				return
			}
			continue
		}
		decodeErrors = 0

		if len(frame.Payload) > maxFramePayloadBytes {
			_ = writeWSError(peer, frame.RequestID, apperrors.New(apperrors.CodeCommandInvalid, "payload too large"))
			continue
		}

		switch frame.Type {
		case "member.attach":
			membership = s.handleAttachFrame(connID, peer, frame, membership)
		case "member.playing":
			handlePlayingFrame(peer, frame, membership)
		case "member.audible":
			handleAudibleFrame(peer, frame, membership)
		case "member.detach":
			if membership == nil {
				_ = writeWSError(peer, frame.RequestID, apperrors.New(apperrors.CodeMediaNoneAttached, "no membership to detach"))
				continue
			}
			membership.Release()
			membership = nil
			_ = peer.writeFrame(wsFrame{Type: "member.detached", RequestID: frame.RequestID})
		default:
			_ = writeWSError(peer, frame.RequestID, apperrors.New(apperrors.CodeCommandInvalid, "unsupported frame type"))
		}
	}
}

func (s *Server) handleAttachFrame(connID string, peer *wsPeer, frame wsFrame, current *mediacontrol.Membership) *mediacontrol.Membership {
	if current != nil {
		_ = writeWSError(peer, frame.RequestID, apperrors.New(apperrors.CodeCommandInvalid, "membership already attached"))
		return current
	}

	var payload attachPayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		_ = writeWSError(peer, frame.RequestID, apperrors.New(apperrors.CodeCommandInvalid, "invalid attach payload"))
		return nil
	}
	sessionID := strings.TrimSpace(payload.SessionID)
	if sessionID == "" {
		_ = writeWSError(peer, frame.RequestID, apperrors.New(apperrors.CodeSessionEmptyID, "session_id is required"))
		return nil
	}

	membership, err := s.attachMember(sessionID)
	if err != nil {
		log.Printf("control: member attach failed conn=%s session=%q err=%v", connID, sessionID, err)
		_ = writeWSError(peer, frame.RequestID, mapMediaError(err))
		return nil
	}
	log.Printf("control: member attached conn=%s session=%q", connID, sessionID)

	_ = peer.writeFrame(wsFrame{
		Type:      "member.attached",
		RequestID: frame.RequestID,
		Payload: mustJSON(attachedPayload{
			Session: sessionFromStatus(membership.Controller().Snapshot()),
		}),
	})
	return membership
}

func handlePlayingFrame(peer *wsPeer, frame wsFrame, membership *mediacontrol.Membership) {
	if membership == nil {
		_ = writeWSError(peer, frame.RequestID, apperrors.New(apperrors.CodeMediaNoneAttached, "must attach before reporting"))
		return
	}

	var payload playingPayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		_ = writeWSError(peer, frame.RequestID, apperrors.New(apperrors.CodeCommandInvalid, "invalid playing payload"))
		return
	}

	if err := membership.SetPlaying(payload.Playing); err != nil {
		_ = writeWSError(peer, frame.RequestID, mapMediaError(err))
		return
	}
	writeMemberAck(peer, frame.RequestID, membership)
}

func handleAudibleFrame(peer *wsPeer, frame wsFrame, membership *mediacontrol.Membership) {
	if membership == nil {
		_ = writeWSError(peer, frame.RequestID, apperrors.New(apperrors.CodeMediaNoneAttached, "must attach before reporting"))
		return
	}

	var payload audiblePayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		_ = writeWSError(peer, frame.RequestID, apperrors.New(apperrors.CodeCommandInvalid, "invalid audible payload"))
		return
	}

	if err := membership.SetAudible(payload.Audible); err != nil {
		_ = writeWSError(peer, frame.RequestID, mapMediaError(err))
		return
	}
	writeMemberAck(peer, frame.RequestID, membership)
}

func writeMemberAck(peer *wsPeer, requestID string, membership *mediacontrol.Membership) {
	_ = peer.writeFrame(wsFrame{
		Type:      "member.ack",
		RequestID: requestID,
		Payload: mustJSON(ackPayload{
			Session: sessionFromStatus(membership.Controller().Snapshot()),
		}),
	})
}

// handleWatchConn streams session events to an observer until it disconnects.
func (s *Server) handleWatchConn(conn *websocket.Conn) {
	defer func() {
		_ = conn.Close()
	}()

	peer := newWSPeer(json.NewEncoder(conn))

	statuses := s.service.Statuses()
	sessions := make([]sessionPayload, 0, len(statuses))
	for _, status := range statuses {
		sessions = append(sessions, sessionFromStatus(status))
	}
	_ = peer.writeFrame(wsFrame{
		Type:    "watch.init",
		Payload: mustJSON(watchInitPayload{Sessions: sessions}),
	})

	connID := newConnID()
	log.Printf("control: watcher joined conn=%s", connID)
	s.watch.join(peer)
	defer func() {
		s.watch.leave(peer)
		log.Printf("control: watcher left conn=%s", connID)
	}()

	// Watchers only receive; drain the connection to notice the close.
	decoder := json.NewDecoder(conn)
	for {
		var frame wsFrame
		if err := decoder.Decode(&frame); err != nil {
			return
		}
	}
}

// writeWSError reports a domain error on the socket. The code is the gRPC
// status name so ws and gRPC clients share one vocabulary; the reason carries
// the exact domain code, mirroring the HTTP error body.
func writeWSError(peer *wsPeer, requestID string, appErr *apperrors.Error) error {
	return peer.writeFrame(wsFrame{
		Type:      "session.error",
		RequestID: requestID,
		Payload: mustJSON(wsErrorEnvelope{
			Error: wsError{
				Code:    appErr.Code.GRPCCode().String(),
				Reason:  string(appErr.Code),
				Message: appErr.Message,
			},
		}),
	})
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		log.Printf("failed to marshal websocket frame payload: %v", err)
		return nil
	}
	return b
}
