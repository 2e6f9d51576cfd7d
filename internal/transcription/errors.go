package transcription

import "errors"

// Error kinds. Every error returned by Transcribe matches exactly one of
// them with errors.Is.
var (
	ErrModelNotLoaded = errors.New("model not loaded")
	ErrStaging        = errors.New("staging failed")
	ErrInference      = errors.New("inference failed")
)

// Error is a failed transcription. Its message is meant for API clients.
type Error struct {
	Kind error
	Err  error
}

func (e *Error) Error() string {
	return "failed to transcribe audio: " + e.Err.Error()
}

func (e *Error) Unwrap() []error {
	return []error{e.Kind, e.Err}
}
