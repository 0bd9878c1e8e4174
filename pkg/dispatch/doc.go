// Package dispatch is the durable heart of the notification engine: a
// storage-backed queue of rendered notifications, the worker pool that drains
// it, and the append-only delivery ledger.
//
// A queued notification moves pending → processing → sent or failed. Failures
// return to pending with a linear backoff until the retry budget is spent;
// errors an adapter marks permanent skip retries entirely. Claiming is an
// atomic conditional transition so multiple worker instances can run against
// the same storage without double-sending, and a stale-claim reaper requeues
// rows abandoned by crashed workers - the system is at-least-once, reconciled
// by the notification id as idempotency key.
//
// Storage is behind small repository interfaces with an in-memory
// implementation for tests and a PostgreSQL implementation
// (FOR UPDATE SKIP LOCKED) for production.
package dispatch
