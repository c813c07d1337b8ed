/*
Package observability provides Prometheus instrumentation for the dispatch
pipeline: submissions, poll cycles, transport failures, and asset traffic.

Metrics are created against an injectable registerer so embedding hosts keep
control of their registry; passing nil yields unregistered (no-op) metrics.
*/
package observability
