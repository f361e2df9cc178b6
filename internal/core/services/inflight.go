package services

import (
	"errors"
	"sync"

	"github.com/custodia-labs/tagmark/internal/core/domain"
)

// errPassAborted is what waiters see when the leading pass panicked.
var errPassAborted = errors.New("classification pass aborted")

type flightKind int

const (
	flightClassify flightKind = iota
	flightReindex
)

// flight is one unit of work holding exclusive write access to a bookmark.
// result and err are written by the leader before done is closed.
type flight struct {
	kind   flightKind
	deep   bool
	done   chan struct{}
	result *domain.ClassificationResult
	err    error

	waiters int
}

// flightRegistry admits at most one writer per bookmark at a time.
type flightRegistry struct {
	mu      sync.Mutex
	flights map[int64]*flight
}

func newFlightRegistry() *flightRegistry {
	return &flightRegistry{flights: make(map[int64]*flight)}
}

// claim registers a new flight for id and returns it with leader=true, or
// returns the flight already running for id with leader=false.
func (r *flightRegistry) claim(id int64, kind flightKind) (*flight, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if f, ok := r.flights[id]; ok {
		f.waiters++
		return f, false
	}
	f := &flight{kind: kind, done: make(chan struct{}), err: errPassAborted}
	r.flights[id] = f
	return f, true
}

// release removes f and wakes its waiters.
func (r *flightRegistry) release(id int64, f *flight) {
	r.mu.Lock()
	if r.flights[id] == f {
		delete(r.flights, id)
	}
	r.mu.Unlock()
	close(f.done)
}

func (r *flightRegistry) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.flights)
}

// waiting returns how many callers have joined the flight running for id.
func (r *flightRegistry) waiting(id int64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.flights[id]; ok {
		return f.waiters
	}
	return 0
}
