// Package jsonrepair implements the tolerant parse/validate/default-fill
// pipeline for free-text model responses that are expected to contain JSON.
// Repair never fails: irrecoverable input yields nil and callers apply
// policy (fallback or default record) instead of aborting.
package jsonrepair
