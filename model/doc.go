// Package model contains the domain types shared across the compliance
// engine: content items, regulator rules and rule sets, compliance reports,
// consent records, approval requests and audit entries.
//
// Types here carry no behaviour beyond cloning and small derivations; the
// services under `service/` own every state transition. Reports and audit
// entries are treated as immutable once produced.
package model
