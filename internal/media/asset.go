package media

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"voice-memos-go/internal/types"
)

// Stat builds an AudioAsset for path, failing with a PreconditionError when
// the file is missing or empty.
func Stat(path string) (types.AudioAsset, error) {
	fi, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return types.AudioAsset{}, &PreconditionError{Path: path, Err: ErrMissingFile}
	}
	if err != nil {
		return types.AudioAsset{}, &PreconditionError{Path: path, Err: err}
	}
	if fi.IsDir() {
		return types.AudioAsset{}, &PreconditionError{Path: path, Err: fmt.Errorf("is a directory")}
	}
	if fi.Size() == 0 {
		return types.AudioAsset{}, &PreconditionError{Path: path, Err: ErrEmptyFile}
	}
	return types.AudioAsset{
		Path: path,
		Size: fi.Size(),
		Ext:  strings.ToLower(filepath.Ext(path)),
	}, nil
}

// Require re-checks an asset before a stage consumes it and refreshes its size.
func Require(a types.AudioAsset) (types.AudioAsset, error) {
	fresh, err := Stat(a.Path)
	if err != nil {
		return types.AudioAsset{}, err
	}
	a.Size = fresh.Size
	if a.Ext == "" {
		a.Ext = fresh.Ext
	}
	return a, nil
}

// HasUnstableTiming reports containers whose stream timestamps are often
// inconsistent (browser MediaRecorder output). They get relaxed probing and
// resampling correction when encoded.
func HasUnstableTiming(ext string) bool {
	return strings.EqualFold(ext, ".webm")
}

// TolerantInputArgs are the ffmpeg/ffprobe input options for HasUnstableTiming containers.
func TolerantInputArgs(ext string) []string {
	if !HasUnstableTiming(ext) {
		return nil
	}
	return []string{"-analyzeduration", "100M", "-probesize", "100M"}
}

// RemoveQuietly deletes path, tolerating files that are already gone.
func RemoveQuietly(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
