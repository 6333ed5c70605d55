package domain

import "errors"

var (
	// ErrEmptyName is returned when an admin adds a contestant without a name.
	ErrEmptyName = errors.New("contestant name must not be empty")
	// ErrContestantNotFound is returned when an operation targets an unknown contestant id.
	ErrContestantNotFound = errors.New("contestant not found")
	// ErrInvalidReorder is returned when a reorder list is not an exact permutation of current ids.
	ErrInvalidReorder = errors.New("reorder list is not a permutation of current contestants")
	// ErrInvalidGameType indicates an unrecognized game type value.
	ErrInvalidGameType = errors.New("invalid game type")
	// ErrNoActiveSession is returned when a session operation requires a running session.
	ErrNoActiveSession = errors.New("no active recording session")
	// ErrSessionNotFound indicates the requested session id is unknown or expired.
	ErrSessionNotFound = errors.New("session not found")
)
