package installer

import (
	"errors"
	"time"

	"go.trai.ch/sprig/internal/core/domain"
)

// NodeResult is what happened to one node of an install.
type NodeResult struct {
	Spec     *domain.Spec
	Outcome  domain.Outcome
	Err      error
	Duration time.Duration
	// Prefix is where the node is installed, empty unless it succeeded.
	Prefix string
}

// Report lists one result per node of the installed DAG in topological
// order.
type Report struct {
	Results []NodeResult
}

// Result returns the result for hash.
func (r *Report) Result(hash string) (NodeResult, bool) {
	for _, res := range r.Results {
		if res.Spec.Hash == hash {
			return res, true
		}
	}
	return NodeResult{}, false
}

// Count returns how many nodes ended with outcome o.
func (r *Report) Count(o domain.Outcome) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == o {
			n++
		}
	}
	return n
}

// Succeeded reports whether every node is installed or reused.
func (r *Report) Succeeded() bool {
	for _, res := range r.Results {
		if !res.Outcome.Succeeded() {
			return false
		}
	}
	return true
}

// Err joins the errors of every node that did not succeed.
func (r *Report) Err() error {
	var errs error
	for _, res := range r.Results {
		if res.Err != nil {
			errs = errors.Join(errs, res.Err)
		}
	}
	return errs
}
