package telemetry

import "time"

// MsgPlan announces the install plan.
type MsgPlan struct {
	// Nodes are node labels in topological order.
	Nodes []string
	// Dependencies maps a node label to the labels it waits for.
	Dependencies map[string][]string
	Roots        []string
}

// MsgTaskStart reports a started span.
type MsgTaskStart struct {
	SpanID    string
	ParentID  string // empty for node spans
	Name      string
	StartTime time.Time
}

// MsgTaskLog carries a chunk of span output.
type MsgTaskLog struct {
	SpanID string
	Data   []byte
}

// MsgTaskComplete reports a finished span.
type MsgTaskComplete struct {
	SpanID  string
	EndTime time.Time
	Err     error
}
