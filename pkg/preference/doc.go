// Package preference holds per-user notification preferences and the filter
// that turns a (recipient, rule, template) triple into a delivery decision.
//
// A user without a stored preference record gets the permissive defaults: all
// channels and categories enabled, no quiet hours, no daily caps.
//
// The filter produces one of three outcomes for every pair: send now, defer
// (quiet hours push delivery to the window's end instead of dropping it), or
// skip with a recorded reason. Frequency caps are enforced through a Limiter
// whose check-and-mark is atomic per (recipient, rule), so two events firing
// concurrently for the same recipient cannot double-enqueue.
package preference
