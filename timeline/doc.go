// Package timeline defines the shared transcript data model: an ordered
// sequence of time-stamped segments with optional word timings and speaker
// labels. Pipeline stages treat timelines as values: a stage that rewrites
// segments works on a Clone and returns the new timeline, never mutating its
// input in place.
package timeline
