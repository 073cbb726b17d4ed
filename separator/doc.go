// Package separator assigns two-party speaker roles to transcript segments
// using turn-taking heuristics: silence gaps gate role switches, lexical
// pattern sets trigger them, short isolated fragments are folded into the
// surrounding turn, and timestamp overlaps are resolved deterministically.
//
// The two-speaker cardinality is a hard design limit, not detected from the
// audio. Callers needing N-party attribution must replace this component.
package separator
