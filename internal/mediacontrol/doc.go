// Package mediacontrol aggregates the playback state of a media session.
//
// A Controller tracks an arbitrary, dynamically changing set of controlled
// media members and derives two session-level properties from their reports:
// an aggregate playback state (stopped, playing, paused) and an audibility
// flag. A Service keeps the process-wide table of sessions that currently
// have at least one attached member so external dispatchers can enumerate
// and drive them.
package mediacontrol
