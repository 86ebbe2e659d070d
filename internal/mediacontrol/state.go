package mediacontrol

// ControlledMediaState is a lifecycle signal reported by one controlled
// media member. It is an edit instruction applied to the session aggregate,
// not stored state.
type ControlledMediaState int

const (
	// MediaStarted reports that a member attached to the session.
	MediaStarted ControlledMediaState = iota
	// MediaPlayed reports that an attached member began playing.
	MediaPlayed
	// MediaPaused reports that an attached member stopped playing.
	MediaPaused
	// MediaStopped reports that a member detached from the session.
	MediaStopped
)

// String returns the wire name of the media state signal.
func (s ControlledMediaState) String() string {
	switch s {
	case MediaStarted:
		return "STARTED"
	case MediaPlayed:
		return "PLAYED"
	case MediaPaused:
		return "PAUSED"
	case MediaStopped:
		return "STOPPED"
	default:
		return "UNSPECIFIED"
	}
}

// PlaybackState is the session-level playback classification derived from
// member reports and explicit commands.
type PlaybackState int

const (
	// PlaybackStopped is the baseline state of a new session.
	PlaybackStopped PlaybackState = iota
	// PlaybackPlaying indicates at least one member is playing, or an
	// explicit Play command was the most recent transition.
	PlaybackPlaying
	// PlaybackPaused indicates members are attached but none is playing,
	// or an explicit Pause command was the most recent transition.
	PlaybackPaused
)

// String returns the wire name of the playback state.
func (s PlaybackState) String() string {
	switch s {
	case PlaybackStopped:
		return "STOPPED"
	case PlaybackPlaying:
		return "PLAYING"
	case PlaybackPaused:
		return "PAUSED"
	default:
		return "UNSPECIFIED"
	}
}

// ParsePlaybackState maps a wire name back to a PlaybackState.
func ParsePlaybackState(value string) (PlaybackState, bool) {
	switch value {
	case "STOPPED":
		return PlaybackStopped, true
	case "PLAYING":
		return PlaybackPlaying, true
	case "PAUSED":
		return PlaybackPaused, true
	default:
		return PlaybackStopped, false
	}
}
