// Package errors provides the unified error type for the pipeline.
// Errors carry a machine-readable code, a retryable flag, and an optional
// cause, so orchestration code can distinguish fatal, degradable, and
// transient failures without string matching.
package errors
