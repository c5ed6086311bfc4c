// Package comply is a compliance evaluation and approval engine for
// regulated professional content. It scores content items against
// jurisdiction and profession specific rule catalogs, runs the resulting
// reports through a tiered approval workflow with SLA-driven escalation,
// verifies subject consent for identifiable material and records every
// transition on an append-only audit trail.
//
// The root Service wires the pieces together with in-memory defaults; every
// collaborator (rule catalog, consent store, request store, audit trail,
// reviewer directory, notification sink) can be swapped via options.
package comply
