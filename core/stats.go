package core

import "encoding/json"

// Stats is a point-in-time view of the engine counters.
type Stats struct {
	Reactors int `json:"reactors"`
	Workers  int `json:"workers"`

	ConnectionsAccepted uint64 `json:"connections_accepted"`
	ConnectionsClosed   uint64 `json:"connections_closed"`
	ConnectionsOpen     int64  `json:"connections_open"`

	RequestsDispatched uint64 `json:"requests_dispatched"`
	RequestsProcessed  uint64 `json:"requests_processed"`
	UncaughtErrors     uint64 `json:"uncaught_errors"`
	QueueDepth         int    `json:"queue_depth"`

	WorkersBusy  int    `json:"workers_busy"`
	WorkerPanics uint64 `json:"worker_panics"`
}

// Stats returns the current counters.
func (e *Engine) Stats() Stats {
	ps := e.pool.Stats()
	return Stats{
		Reactors:            e.reactors,
		Workers:             ps.NumWorkers,
		ConnectionsAccepted: e.accepted.Load(),
		ConnectionsClosed:   e.closed.Load(),
		ConnectionsOpen:     e.open.Load(),
		RequestsDispatched:  e.dispatched.Load(),
		RequestsProcessed:   e.processed.Load(),
		UncaughtErrors:      e.uncaught.Load(),
		QueueDepth:          e.queue.Len(),
		WorkersBusy:         ps.Busy,
		WorkerPanics:        ps.TasksPanicked,
	}
}

// Fields returns the counters keyed by their JSON names, ready for
// structured encoders.
func (s Stats) Fields() map[string]any {
	// Stats holds only numbers; neither step can fail.
	data, _ := json.Marshal(s)
	fields := make(map[string]any)
	_ = json.Unmarshal(data, &fields)
	return fields
}
