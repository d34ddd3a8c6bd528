// Package rules implements schedule-generation rules: pure analyses that
// decide where a rule may fire and the primitive-call synthesis that fires
// it. Rules satisfy one fixed contract so a search orchestrator can drive
// any of them interchangeably.
package rules

import (
	"fmt"

	"github.com/schedkit/autosched/schedule"
	"github.com/schedkit/autosched/search"
)

// ApplyType tells the orchestrator how a rule relates to a site.
type ApplyType int

const (
	// CannotApply: the rule has no applicable site. Not an error.
	CannotApply ApplyType = iota
	// CanApply: the rule may fire and other rules may still transform the
	// same site afterwards.
	CanApply
	// ApplyAndPruneOtherRules: the rule may fire, and once it does no
	// other rule should independently transform the same site. Loop
	// binding and other axis-level transforms are mutually exclusive on a
	// given loop.
	ApplyAndPruneOtherRules
)

func (t ApplyType) String() string {
	switch t {
	case CannotApply:
		return "CannotApply"
	case CanApply:
		return "CanApply"
	case ApplyAndPruneOtherRules:
		return "ApplyAndPruneOtherRules"
	default:
		return fmt.Sprintf("ApplyType(%d)", int(t))
	}
}

// Rule is the contract a search orchestrator drives.
//
// Init/NumberApplicable/Apply serve whole-schedule exploration: Init caches
// the applicable sites and Apply(i) mutates the schedule in place at site
// i. AnalyseApplyType and ApplyOnBlock serve per-block exploration over
// candidate states; ApplyOnBlock works on a clone and never mutates its
// argument.
type Rule interface {
	Init(sch *schedule.Schedule) ApplyType
	NumberApplicable() int
	Apply(index int)
	AnalyseApplyType(st *search.State, blockName string) ApplyType
	ApplyOnBlock(st *search.State, blockName string) []*search.State
}
