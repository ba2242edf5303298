// Package testutil holds fakes shared by package tests.
package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"voice-memos-go/internal/types"
)

// Call records one tool invocation.
type Call struct {
	Name string
	Args []string
}

// Output is the last argument, which is the output path for every ffmpeg
// invocation the pipeline builds.
func (c Call) Output() string {
	if len(c.Args) == 0 {
		return ""
	}
	return c.Args[len(c.Args)-1]
}

// Flag returns the value following flag.
func (c Call) Flag(flag string) (string, bool) {
	for i := 0; i < len(c.Args)-1; i++ {
		if c.Args[i] == flag {
			return c.Args[i+1], true
		}
	}
	return "", false
}

func (c Call) Has(arg string) bool {
	for _, a := range c.Args {
		if a == arg {
			return true
		}
	}
	return false
}

func (c Call) IsProbe() bool { return filepath.Base(c.Name) == "ffprobe" }

func (c Call) IsSilenceDetect() bool {
	v, ok := c.Flag("-af")
	return ok && strings.HasPrefix(v, "silencedetect")
}

func (c Call) IsSegmentMuxer() bool {
	v, _ := c.Flag("-f")
	return v == "segment"
}

// Handler scripts the fake's answer to a call.
type Handler func(ctx context.Context, c Call) (stdout, stderr []byte, err error)

// FakeRunner implements media.Runner without executing anything.
type FakeRunner struct {
	mu      sync.Mutex
	calls   []Call
	handler Handler
}

func NewFakeRunner(h Handler) *FakeRunner {
	return &FakeRunner{handler: h}
}

func (f *FakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	c := Call{Name: name, Args: append([]string(nil), args...)}
	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if f.handler == nil {
		return nil, nil, nil
	}
	return f.handler(ctx, c)
}

func (f *FakeRunner) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// Count returns how many recorded calls match pred.
func (f *FakeRunner) Count(pred func(Call) bool) int {
	n := 0
	for _, c := range f.Calls() {
		if pred(c) {
			n++
		}
	}
	return n
}

// WriteSized creates path with header followed by zero bytes up to size.
// The tail is sparse so multi-hundred-megabyte fixtures stay cheap.
func WriteSized(t testing.TB, path string, header []byte, size int64) string {
	t.Helper()
	if err := WriteSizedFile(path, header, size); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// WriteSizedFile is WriteSized for use inside runner handlers.
func WriteSizedFile(path string, header []byte, size int64) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, header, 0o644); err != nil {
		return err
	}
	return os.Truncate(path, size)
}

// ProbeJSON renders ffprobe -print_format json output for a single stream.
func ProbeJSON(duration float64, codecType string) []byte {
	return []byte(fmt.Sprintf(`{
  "streams": [{"codec_type": %q, "codec_name": "mp3", "channels": 1, "sample_rate": "16000"}],
  "format": {"format_name": "mp3", "duration": "%.6f"}
}`, codecType, duration))
}

// SilenceLog renders ffmpeg silencedetect stderr output.
func SilenceLog(silences ...types.SilenceInterval) []byte {
	var b strings.Builder
	b.WriteString("Input #0, mp3, from 'in.mp3':\n")
	for _, s := range silences {
		fmt.Fprintf(&b, "[silencedetect @ 0x5581] silence_start: %g\n", s.Start)
		fmt.Fprintf(&b, "[silencedetect @ 0x5581] silence_end: %g | silence_duration: %g\n", s.End, s.Duration)
	}
	b.WriteString("size=N/A time=00:10:00.00 bitrate=N/A speed= 612x\n")
	return []byte(b.String())
}
