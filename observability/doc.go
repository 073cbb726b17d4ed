// Package observability provides OpenTelemetry metric instruments for the
// transcription pipeline and the health types reported by the server's
// health endpoint.
//
// Metric export wiring is left to the host process; instruments are created
// against the global meter provider, so a process that never installs one
// gets no-op instruments for free.
package observability
