package round

import "errors"

var (
	// ErrRoundEnded is returned by Join when the open round's deadline has
	// passed but the driver has not completed it yet.
	ErrRoundEnded = errors.New("round has ended")

	// ErrRoundFull is returned by Join when the round already holds the
	// maximum number of active players.
	ErrRoundFull = errors.New("round is full")

	// ErrNoActiveRound is returned when an operation requires membership in
	// the current open round and the caller has none.
	ErrNoActiveRound = errors.New("no active round")

	// ErrQueuedCannotChoose is returned when a queued participant tries to
	// choose a number before being promoted.
	ErrQueuedCannotChoose = errors.New("cannot choose a number while in queue")

	// ErrRoundNotFound is returned for lookups of rounds that do not exist,
	// including Complete calls against an already finished round.
	ErrRoundNotFound = errors.New("round not found")

	// ErrNumberOutOfRange is returned when a chosen number falls outside [1,9].
	ErrNumberOutOfRange = errors.New("number must be between 1 and 9")

	// ErrStoreUnavailable signals a transient store failure; callers may retry.
	ErrStoreUnavailable = errors.New("store unavailable")
)
