// Package streaming implements per-connection incremental transcription
// sessions. Audio bytes are buffered and sliced FIFO into fixed-size
// windows; each window is transcribed as an isolated clip, folded into a
// bounded rolling context, analyzed with exactly one LLM call, and emitted
// as exactly one event.
//
// Sessions never share state. A disconnect discards the session outright;
// only an explicit end-of-stream request produces the final event.
package streaming
