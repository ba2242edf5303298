package media

import (
	"errors"
	"fmt"
)

var (
	ErrMissingFile = errors.New("file not found")
	ErrEmptyFile   = errors.New("file is empty (0 bytes)")
)

// PreconditionError means a pipeline stage was handed a path it cannot use.
// It is never retryable.
type PreconditionError struct {
	Path string
	Err  error
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%v: %s", e.Err, e.Path)
}

func (e *PreconditionError) Unwrap() error { return e.Err }

// ProbeError means ffprobe / ffmpeg analysis could not parse the asset.
type ProbeError struct {
	Path   string
	Err    error
	Stderr string
}

func (e *ProbeError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("probe %s: %v (stderr: %s)", e.Path, e.Err, e.Stderr)
	}
	return fmt.Sprintf("probe %s: %v", e.Path, e.Err)
}

func (e *ProbeError) Unwrap() error { return e.Err }
