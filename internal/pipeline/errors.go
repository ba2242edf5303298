package pipeline

import (
	"errors"
	"fmt"

	"voice-memos-go/internal/media"
)

// Stages reported in StageError and metrics.
const (
	StageSetup      = "setup"
	StageValidate   = "validate"
	StageConvert    = "convert"
	StageProbe      = "probe"
	StageSplit      = "split"
	StageTranscribe = "transcribe"
)

// ErrInvalidAudio matches every InvalidAudioError. The HTTP layer maps it to 400.
var ErrInvalidAudio = errors.New("invalid audio file")

// InvalidAudioError means the input failed validation and the user should
// record again.
type InvalidAudioError struct {
	Path       string
	Validation media.Validation
}

func (e *InvalidAudioError) Error() string {
	return fmt.Sprintf("%v %s: %s", ErrInvalidAudio, e.Path, e.Validation)
}

func (e *InvalidAudioError) Unwrap() error { return ErrInvalidAudio }

// Details is the user-facing explanation.
func (e *InvalidAudioError) Details() string {
	if e.Validation.Diagnostic == "" {
		return e.Validation.Reason
	}
	return e.Validation.Reason + ": " + e.Validation.Diagnostic
}

// StageError wraps a failure with the stage and asset it happened on.
type StageError struct {
	Stage string
	Path  string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Stage, e.Path, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
