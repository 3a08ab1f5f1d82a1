package domain

import "strings"

// Outcome is what happened to one node of an install DAG.
type Outcome string

const (
	// OutcomePending marks a node that has not been processed yet.
	OutcomePending Outcome = "pending"
	// OutcomeInstalled marks a node built and installed by this run.
	OutcomeInstalled Outcome = "installed"
	// OutcomeReused marks a node that was already installed.
	OutcomeReused Outcome = "reused"
	// OutcomeFailed marks a node whose build failed.
	OutcomeFailed Outcome = "failed"
	// OutcomeBlocked marks a node skipped because a dependency did not install.
	OutcomeBlocked Outcome = "blocked"
	// OutcomeBusy marks a node whose lock could not be acquired.
	OutcomeBusy Outcome = "busy"
)

// IsTerminal reports whether the node will not change state again in this run.
func (o Outcome) IsTerminal() bool {
	return o != OutcomePending
}

// Succeeded reports whether the node is usable by its dependents.
func (o Outcome) Succeeded() bool {
	return o == OutcomeInstalled || o == OutcomeReused
}

// ParseOutcome converts a string to an Outcome, defaulting to pending.
func ParseOutcome(s string) Outcome {
	switch o := Outcome(strings.ToLower(s)); o {
	case OutcomeInstalled, OutcomeReused, OutcomeFailed, OutcomeBlocked, OutcomeBusy:
		return o
	default:
		return OutcomePending
	}
}
