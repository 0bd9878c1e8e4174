// Package engine wires the notification pipeline together: rule matching,
// recipient resolution, preference filtering, rendering, and the durable
// dispatch queue, behind two entry points.
//
// FireEvent is fire-and-forget: it validates the event, drops it onto a
// bounded internal channel, and returns. A fixed pool of consumers drains the
// channel and runs the pipeline; when the channel is full the producer blocks
// briefly and then receives an error, bounding memory instead of growing an
// unbounded backlog.
//
// SendAdHoc lets operators send a template to one user directly. It bypasses
// rule matching but still passes the preference filter, so opt-outs and
// quiet hours are honored even for manual sends.
//
// Everything the engine touches is injected at construction and torn down by
// Stop; there is no package-level state.
package engine
