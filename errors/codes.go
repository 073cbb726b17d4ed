package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Collaborator errors.
const (
	// ErrCodeTranscriptionFailed indicates the ASR collaborator failed. Fatal to the job.
	ErrCodeTranscriptionFailed ErrorCode = "TRANSCRIPTION_FAILED"
	// ErrCodeTranscodeFailed indicates audio conversion failed. Fatal to the job.
	ErrCodeTranscodeFailed ErrorCode = "TRANSCODE_FAILED"
	// ErrCodeLLMFailed indicates the LLM collaborator failed after retries.
	ErrCodeLLMFailed ErrorCode = "LLM_FAILED"
	// ErrCodeDiarizationUnavailable indicates the diarization collaborator is absent or down.
	ErrCodeDiarizationUnavailable ErrorCode = "DIARIZATION_UNAVAILABLE"
)

// Connection/availability errors (retryable).
const (
	// ErrCodeServiceUnavailable indicates a backing service is temporarily unavailable.
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	// ErrCodeConnectionFailed indicates a failed connection to a service.
	ErrCodeConnectionFailed ErrorCode = "CONNECTION_FAILED"
	// ErrCodeTimeout indicates the request timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
)

// Input/output errors.
const (
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeInvalidOutput indicates a model response could not be repaired into the expected shape.
	ErrCodeInvalidOutput ErrorCode = "INVALID_OUTPUT"
	// ErrCodeNotFound indicates the requested resource was not found.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeInternal indicates an internal error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeServiceUnavailable: true,
	ErrCodeConnectionFailed:   true,
	ErrCodeTimeout:            true,
}

// IsRetryableCode reports whether the code represents a transient failure.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
