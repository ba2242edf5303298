package types

import (
	"fmt"
	"path/filepath"
	"strings"
)

// AudioAsset references an audio byte stream on disk.
type AudioAsset struct {
	Path string `json:"path"`
	Size int64  `json:"size"`
	// Ext is the lower-cased container extension including the dot.
	Ext string `json:"ext"`
	// Duration in seconds; zero until probed.
	Duration   float64 `json:"duration,omitempty"`
	Channels   int     `json:"channels,omitempty"`
	SampleRate int     `json:"sample_rate,omitempty"`
}

// Base returns the file name without directory and extension.
func (a AudioAsset) Base() string {
	name := filepath.Base(a.Path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

func (a AudioAsset) String() string {
	return fmt.Sprintf("%s (%.2f MB)", a.Path, float64(a.Size)/(1024*1024))
}

// SilenceInterval is a quiet span detected inside an asset, in seconds.
type SilenceInterval struct {
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Duration float64 `json:"duration"`
}

// Midpoint is the preferred cut position inside the silence.
func (s SilenceInterval) Midpoint() float64 {
	return s.Start + s.Duration/2
}

// TranscriptChunk is the text of one transcribed segment.
type TranscriptChunk struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}
