// Package rule defines notification rules and their declarative condition
// language.
//
// A rule maps a trigger event to a template and an abstract recipient policy,
// guarded by an ordered list of predicate clauses. Evaluation is a pure
// function of (rule, event): clauses reference event payload fields by name
// and a missing field always evaluates false, so rules fail closed rather
// than firing on incomplete payloads.
//
// Rules are persisted behind the small Store interface; MemoryStore is the
// in-process implementation used for tests and local development.
package rule
