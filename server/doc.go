// Package server exposes the HTTP serving surface: batch job submission and
// lookup, a collaborator health report, and the websocket streaming endpoint.
// Handlers stay thin; all pipeline behavior lives in the pipeline and
// streaming packages.
package server
