// Package pipeline owns one load request end to end: read, decode, sample,
// normalise, compute, package, deliver.
//
// The Orchestrator dispatches each submitted path onto a bounded pool of
// background goroutines and hands finished work to the interactive side
// through two unbounded queues, one for ProcessingResults and one for
// Failures. A request either delivers a complete result or a typed
// failure; nothing partial is ever pushed, and one failed request never
// stops the pool.
//
// Per-request states:
//
//	Idle → Requested → Decoding → Computing → Ready → Delivered
//
// Failed is reachable from Decoding and Computing. An unreadable file
// fails straight from Requested. There is no
// cancellation; once a worker slot is acquired the request runs to a
// terminal state.
package pipeline
