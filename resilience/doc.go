// Package resilience provides generic retry with exponential backoff.
// Collaborator clients use it to absorb transient failures before an error
// surfaces to the orchestration layer.
package resilience
