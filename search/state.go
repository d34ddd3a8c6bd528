// Package search holds the candidate-state wrapper the search orchestrator
// branches on. Each state owns one schedule (and its trace); Copy hands out
// an independent instance, so concurrent branches need no coordination.
package search

import (
	"github.com/google/uuid"

	"github.com/schedkit/autosched/schedule"
	"github.com/schedkit/autosched/trace"
)

// State is one independently owned candidate in the search tree.
type State struct {
	// ID identifies the candidate across branch bookkeeping and logs.
	ID string

	// Schedule is the loop nest this candidate owns, with its trace when
	// tracing is active.
	Schedule *schedule.Schedule
}

// NewState wraps a schedule as a fresh candidate.
func NewState(sch *schedule.Schedule) *State {
	if sch == nil {
		panic("search: schedule cannot be nil")
	}
	return &State{ID: uuid.NewString(), Schedule: sch}
}

// Copy returns a candidate with its own schedule instance and, when the
// parent is traced, its own copy of the trace. No loop or block node is
// shared with the parent, so mutating the copy can never corrupt it.
func (s *State) Copy() *State {
	return &State{ID: uuid.NewString(), Schedule: s.Schedule.Clone()}
}

// Trace returns the candidate's trace, or nil when untraced.
func (s *State) Trace() *trace.Trace {
	return s.Schedule.Trace()
}
