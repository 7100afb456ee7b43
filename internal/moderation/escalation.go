package moderation

import (
	"context"
	"sync"
)

// DefaultBlockThreshold is the offense count at which a user is blocked.
const DefaultBlockThreshold = 3

// State is a user's position in the escalation ladder.
type State int

const (
	// StateClean means no offenses on record.
	StateClean State = iota
	// StateWarned means one or more offenses below the block threshold.
	StateWarned
	// StateBlocked is terminal for the send path.
	StateBlocked
)

func (s State) String() string {
	switch s {
	case StateClean:
		return "clean"
	case StateWarned:
		return "warned"
	case StateBlocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// BlockCounter is the persistence surface the escalator needs. The
// increment must be a single conditional update so concurrent offenses
// from the same user cannot lose counts.
type BlockCounter interface {
	IncrementBlockCount(ctx context.Context, username string, threshold int) (blockCount int, isBlocked bool, err error)
	IsBlocked(ctx context.Context, username string) (bool, error)
}

// Outcome describes the result of recording one offense.
type Outcome struct {
	Username   string
	BlockCount int
	State      State
	// JustBlocked is true only on the transition that crossed the threshold.
	JustBlocked bool
}

// Escalator applies the Clean -> Warned(n) -> Blocked state machine. Each
// username's read-modify-write is serialized through a per-key mutex on
// top of the store's atomic increment; blockCount never decreases and
// IsBlocked never reverts here.
type Escalator struct {
	store     BlockCounter
	threshold int

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewEscalator returns an Escalator with the given threshold. A threshold
// below 1 falls back to DefaultBlockThreshold.
func NewEscalator(store BlockCounter, threshold int) *Escalator {
	if threshold < 1 {
		threshold = DefaultBlockThreshold
	}
	return &Escalator{
		store:     store,
		threshold: threshold,
		locks:     make(map[string]*sync.Mutex),
	}
}

// Threshold returns the configured block threshold.
func (e *Escalator) Threshold() int {
	return e.threshold
}

func (e *Escalator) userLock(username string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[username]
	if !ok {
		l = &sync.Mutex{}
		e.locks[username] = l
	}
	return l
}

// RecordOffense increments the user's block count and reports the
// resulting state. Crossing the threshold flips the user to Blocked.
func (e *Escalator) RecordOffense(ctx context.Context, username string) (Outcome, error) {
	l := e.userLock(username)
	l.Lock()
	defer l.Unlock()

	count, blocked, err := e.store.IncrementBlockCount(ctx, username, e.threshold)
	if err != nil {
		return Outcome{}, err
	}

	out := Outcome{
		Username:   username,
		BlockCount: count,
		State:      StateWarned,
	}
	if blocked {
		out.State = StateBlocked
		out.JustBlocked = count == e.threshold
	}
	return out, nil
}

// IsBlocked reports whether the user is in the terminal Blocked state.
// It never mutates state.
func (e *Escalator) IsBlocked(ctx context.Context, username string) (bool, error) {
	return e.store.IsBlocked(ctx, username)
}
