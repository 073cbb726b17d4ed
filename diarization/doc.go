// Package diarization defines the provider interface and common types
// for interacting with speaker diarization backends, plus the merge step
// that projects diarization turns onto a transcript timeline.
//
// Diarization is strictly optional. Callers probe availability once and
// degrade to heuristic separation when the backend is absent.
package diarization
