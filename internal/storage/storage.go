// Package storage defines persistence interfaces for media session activity.
package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates a requested activity record is missing.
	ErrNotFound = errors.New("record not found")
)

// ActivityEvent stores one session state transition observed by the daemon.
type ActivityEvent struct {
	ID        int64
	SessionID string
	Kind      string
	Playback  string
	Audible   bool
	Members   int
	Timestamp time.Time
}

// ActivityPage stores a paged activity listing result.
type ActivityPage struct {
	Events        []ActivityEvent
	NextPageToken string
}

// ListActivityQuery bounds an activity listing.
type ListActivityQuery struct {
	// Filter is an AIP-160 filter expression over activity fields.
	Filter string
	// PageSize caps the number of returned events. Zero uses the store default.
	PageSize int
	// PageToken resumes a previous listing.
	PageToken string
}

// ActivityStore persists session activity for later inspection.
type ActivityStore interface {
	AppendActivity(ctx context.Context, event ActivityEvent) error
	ListActivity(ctx context.Context, query ListActivityQuery) (ActivityPage, error)
}
