package ies

import (
	"github.com/google/uuid"

	"github.com/equinor/ies-update/state"
)

// State is the opaque per-chain handle a driver allocates once per
// history-matching run and passes to InitUpdate and UpdateA every
// iteration. It bundles the tunable Config with the persistent iteration
// data (W, E, A0, masks, iteration counter), mirroring the single "state*"
// handle the dispatch table in the original interface threads through
// every call.
type State struct {
	// ID identifies this chain in log records; distinct State values never
	// share one, so log lines from concurrent chains stay distinguishable.
	ID     string
	Config *Config

	data        *state.Data
	initialized bool
}

// Alloc returns a freshly allocated State with default configuration,
// mirroring the dispatch table's alloc() entry.
func Alloc() *State {
	return &State{
		ID:     uuid.New().String(),
		Config: NewConfig(),
		data:   state.Allocate(),
	}
}

// Free exists so callers driving the dispatch table have a symmetric
// alloc/free pair to call; Go's garbage collector does the reclamation.
func Free(s *State) { _ = s }

// IterationNr returns the number of completed UpdateA calls.
func (s *State) IterationNr() int { return s.data.IterationNr }
