// Package pipeline orchestrates batch transcript jobs through a fixed stage
// sequence: preparing, transcribing, attributing_speakers, analyzing,
// persisting, then completed or failed.
//
// Process never panics or returns an error to its caller. Fatal stage
// failures transition the job to failed with the error recorded on the
// partial result; attribution and analysis failures degrade instead.
package pipeline
