// Package errors provides structured error handling for service surfaces.
package errors

import (
	"net/http"

	"google.golang.org/grpc/codes"
)

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Session errors
	CodeSessionEmptyID  Code = "SESSION_EMPTY_ID"
	CodeSessionNotFound Code = "SESSION_NOT_FOUND"

	// Media report errors
	CodeMediaNoneAttached Code = "MEDIA_NONE_ATTACHED"
	CodeMediaNonePlaying  Code = "MEDIA_NONE_PLAYING"
	CodeMediaAllPlaying   Code = "MEDIA_ALL_PLAYING"

	// Membership errors
	CodeMembershipReleased Code = "MEMBERSHIP_RELEASED"

	// Command errors
	CodeCommandInvalid Code = "COMMAND_INVALID"

	// Grant errors
	CodeGrantInvalid Code = "GRANT_INVALID"
	CodeGrantExpired Code = "GRANT_EXPIRED"

	// Query errors
	CodeFilterInvalid Code = "FILTER_INVALID"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - validation failures, bad input
	case CodeSessionEmptyID,
		CodeCommandInvalid,
		CodeFilterInvalid:
		return codes.InvalidArgument

	// FailedPrecondition - state doesn't allow operation
	case CodeMediaNoneAttached,
		CodeMediaNonePlaying,
		CodeMediaAllPlaying,
		CodeMembershipReleased:
		return codes.FailedPrecondition

	// NotFound - resource doesn't exist
	case CodeSessionNotFound,
		CodeNotFound:
		return codes.NotFound

	// Unauthenticated - missing or invalid credentials
	case CodeGrantInvalid,
		CodeGrantExpired:
		return codes.Unauthenticated

	default:
		return codes.Internal
	}
}

// HTTPStatus maps domain codes to HTTP status codes for the JSON API.
func (c Code) HTTPStatus() int {
	switch c.GRPCCode() {
	case codes.InvalidArgument:
		return http.StatusBadRequest
	case codes.FailedPrecondition:
		return http.StatusConflict
	case codes.NotFound:
		return http.StatusNotFound
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
