/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package uistate

import "sync"

// Op identifies one operation lane guarded by the gate.
type Op int

const (
	OpIngest Op = iota
	OpSummarize
	OpAnalyze
)

func (o Op) String() string {
	switch o {
	case OpIngest:
		return "ingest"
	case OpSummarize:
		return "summarize"
	case OpAnalyze:
		return "analyze"
	default:
		return "unknown"
	}
}

// Flags records which operations are in flight. The zero value is idle.
type Flags struct {
	Ingest    bool
	Summarize bool
	Analyze   bool
}

// Start returns the flags with op marked running. Summarize and analyze
// share the output surface and may only start when both are idle; ingest
// only conflicts with itself. A rejected start returns the flags unchanged.
func (f Flags) Start(op Op) (Flags, bool) {
	switch op {
	case OpIngest:
		if f.Ingest {
			return f, false
		}
		f.Ingest = true
	case OpSummarize:
		if f.Summarize || f.Analyze {
			return f, false
		}
		f.Summarize = true
	case OpAnalyze:
		if f.Summarize || f.Analyze {
			return f, false
		}
		f.Analyze = true
	default:
		return f, false
	}

	return f, true
}

// Finish returns the flags with op idle, whatever its previous state.
func (f Flags) Finish(op Op) Flags {
	switch op {
	case OpIngest:
		f.Ingest = false
	case OpSummarize:
		f.Summarize = false
	case OpAnalyze:
		f.Analyze = false
	}

	return f
}

// Idle reports whether no operation is running.
func (f Flags) Idle() bool {
	return !f.Ingest && !f.Summarize && !f.Analyze
}

// Controls describes which trigger controls are disabled.
type Controls struct {
	IngestDisabled    bool
	SummarizeDisabled bool
	AnalyzeDisabled   bool
}

// Controls derives the disabled state of the trigger buttons. Starting
// either summarize or analyze disables both.
func (f Flags) Controls() Controls {
	shared := f.Summarize || f.Analyze
	return Controls{
		IngestDisabled:    f.Ingest,
		SummarizeDisabled: shared,
		AnalyzeDisabled:   shared,
	}
}

// Gate guards the operations of a single page.
type Gate struct {
	mu    sync.Mutex
	flags Flags
}

// Start marks op running. It returns false, changing nothing, when the
// transition is not allowed.
func (g *Gate) Start(op Op) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	next, ok := g.flags.Start(op)
	if ok {
		g.flags = next
	}
	return ok
}

// Finish marks op idle.
func (g *Gate) Finish(op Op) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.flags = g.flags.Finish(op)
}

// Flags returns a snapshot of the gate state.
func (g *Gate) Flags() Flags {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.flags
}

// Registry keeps one set of flags per browser session.
type Registry struct {
	mu    sync.Mutex
	flags map[string]Flags
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{flags: make(map[string]Flags)}
}

// Start marks op running for the session sid.
func (r *Registry) Start(sid string, op Op) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	next, ok := r.flags[sid].Start(op)
	if ok {
		r.flags[sid] = next
	}
	return ok
}

// Finish marks op idle for the session sid. Sessions with nothing in
// flight are dropped from the registry.
func (r *Registry) Finish(sid string, op Op) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := r.flags[sid].Finish(op)
	if next.Idle() {
		delete(r.flags, sid)
		return
	}
	r.flags[sid] = next
}

// Flags returns the flags of the session sid.
func (r *Registry) Flags(sid string) Flags {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.flags[sid]
}

// Len returns the number of sessions with an operation in flight.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.flags)
}
