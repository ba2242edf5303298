// Package segment cuts oversized audio into ordered parts that each fit
// under the transcription size ceiling.
package segment

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"voice-memos-go/internal/media"
	"voice-memos-go/internal/types"
)

const (
	// DirectSplitMaxChunks and DirectSplitMinBytes switch fixed-duration
	// splitting to a single segment-muxer run.
	DirectSplitMaxChunks       = 10
	DirectSplitMinBytes  int64 = 100 * 1024 * 1024

	DefaultSilenceThresholdDB = -30.0
	DefaultMinSilenceSeconds  = 0.5
)

// SplitError reports a failed split. No parts survive it.
type SplitError struct {
	Path string
	Op   string
	Err  error
}

func (e *SplitError) Error() string {
	return fmt.Sprintf("split %s (%s): %v", e.Path, e.Op, e.Err)
}

func (e *SplitError) Unwrap() error { return e.Err }

// SilenceDetector is implemented by media.Inspector.
type SilenceDetector interface {
	DetectSilences(ctx context.Context, asset types.AudioAsset, thresholdDB, minDurationSeconds float64) ([]types.SilenceInterval, error)
}

type Segmenter struct {
	runner        media.Runner
	tools         media.Tools
	detector      SilenceDetector
	maxChunkBytes int64
	thresholdDB   float64
	minSilence    float64
	log           *logrus.Entry
}

type Option func(*Segmenter)

func WithSilenceThreshold(db float64) Option {
	return func(s *Segmenter) { s.thresholdDB = db }
}

func WithMinSilence(seconds float64) Option {
	return func(s *Segmenter) {
		if seconds > 0 {
			s.minSilence = seconds
		}
	}
}

func New(runner media.Runner, tools media.Tools, detector SilenceDetector, maxChunkBytes int64, log *logrus.Entry, opts ...Option) *Segmenter {
	if tools.FFmpeg == "" {
		tools.FFmpeg = "ffmpeg"
	}
	s := &Segmenter{
		runner:        runner,
		tools:         tools,
		detector:      detector,
		maxChunkBytes: maxChunkBytes,
		thresholdDB:   DefaultSilenceThresholdDB,
		minSilence:    DefaultMinSilenceSeconds,
		log:           log.WithField("component", "segmenter"),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Split partitions a probed asset. Silence-aware cuts are preferred; when no
// silence is found (or detection fails) it falls back to fixed durations.
func (s *Segmenter) Split(ctx context.Context, asset types.AudioAsset, outputDir string) ([]types.AudioAsset, error) {
	asset, err := media.Require(asset)
	if err != nil {
		return nil, err
	}
	if asset.Duration <= 0 {
		return nil, &SplitError{Path: asset.Path, Op: "plan", Err: errors.New("unknown duration")}
	}

	silences, err := s.detector.DetectSilences(ctx, asset, s.thresholdDB, s.minSilence)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &SplitError{Path: asset.Path, Op: "silencedetect", Err: ctx.Err()}
		}
		s.log.WithError(err).WithField("path", asset.Path).Warn("silence detection failed, using fixed-duration split")
		silences = nil
	}

	if len(silences) == 0 {
		s.log.WithField("path", asset.Path).Info("no silences detected, using fixed-duration split")
		return s.SplitByFixedDuration(ctx, asset, s.maxChunkBytes, outputDir)
	}

	cuts := PlanSplits(asset, silences, s.maxChunkBytes)
	if len(cuts) == 0 {
		return s.SplitByFixedDuration(ctx, asset, s.maxChunkBytes, outputDir)
	}

	s.log.WithFields(logrus.Fields{
		"path":     asset.Path,
		"silences": len(silences),
		"cuts":     len(cuts),
	}).Info("splitting at silences")
	return s.SplitAtPoints(ctx, asset, cuts, outputDir)
}

// PartPath is the k-th (1-based) output of SplitAtPoints.
func PartPath(asset types.AudioAsset, outputDir string, k int) string {
	return filepath.Join(outputDir, fmt.Sprintf("%s_part%d%s", asset.Base(), k, media.CanonicalExt))
}

// SplitAtPoints writes len(cuts)+1 parts. Part k covers [cut[k-1], cut[k])
// and the last part runs to the end of the input. Cuts must be ascending.
func (s *Segmenter) SplitAtPoints(ctx context.Context, asset types.AudioAsset, cuts []float64, outputDir string) ([]types.AudioAsset, error) {
	asset, err := media.Require(asset)
	if err != nil {
		return nil, err
	}
	for i, c := range cuts {
		if c <= 0 || (i > 0 && c <= cuts[i-1]) {
			return nil, &SplitError{Path: asset.Path, Op: "plan", Err: fmt.Errorf("cut points not strictly ascending: %v", cuts)}
		}
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, &SplitError{Path: asset.Path, Op: "setup", Err: err}
	}

	parts := make([]types.AudioAsset, 0, len(cuts)+1)
	fail := func(k int, err error) ([]types.AudioAsset, error) {
		for _, p := range parts {
			removeQuietly(p.Path)
		}
		removeQuietly(PartPath(asset, outputDir, k))
		return nil, &SplitError{Path: asset.Path, Op: fmt.Sprintf("part %d", k), Err: err}
	}

	for k := 1; k <= len(cuts)+1; k++ {
		start := 0.0
		if k > 1 {
			start = cuts[k-2]
		}
		out := PartPath(asset, outputDir, k)

		args := []string{"-hide_banner", "-nostats", "-y"}
		args = append(args, media.TolerantInputArgs(asset.Ext)...)
		args = append(args, "-ss", media.FormatSeconds(start), "-i", asset.Path)
		if k <= len(cuts) {
			args = append(args, "-t", media.FormatSeconds(cuts[k-1]-start))
		}
		args = append(args, media.CanonicalEncodeArgs()...)
		args = append(args, out)

		began := time.Now()
		if _, stderr, err := s.runner.Run(ctx, s.tools.FFmpeg, args...); err != nil {
			return fail(k, fmt.Errorf("ffmpeg: %w (stderr: %s)", err, media.LastLine(stderr)))
		}
		part, err := media.Stat(out)
		if err != nil {
			return fail(k, err)
		}
		part.Channels = media.CanonicalChannels
		part.SampleRate = media.CanonicalSampleRate
		parts = append(parts, part)

		s.log.WithFields(logrus.Fields{
			"part":  k,
			"of":    len(cuts) + 1,
			"start": start,
			"bytes": part.Size,
			"took":  time.Since(began).String(),
		}).Debug("segment written")
	}

	s.warnOversized(parts)
	return parts, nil
}

// SplitByFixedDuration cuts the asset into equal-length parts sized from its
// average bitrate. Many parts or very large inputs go through one
// segment-muxer run instead of one encode per part.
func (s *Segmenter) SplitByFixedDuration(ctx context.Context, asset types.AudioAsset, maxChunkBytes int64, outputDir string) ([]types.AudioAsset, error) {
	asset, err := media.Require(asset)
	if err != nil {
		return nil, err
	}
	if asset.Duration <= 0 {
		return nil, &SplitError{Path: asset.Path, Op: "plan", Err: errors.New("unknown duration")}
	}
	if maxChunkBytes <= 0 {
		return nil, &SplitError{Path: asset.Path, Op: "plan", Err: errors.New("non-positive chunk ceiling")}
	}

	secondsPerChunk, numChunks := fixedChunkSeconds(asset, maxChunkBytes)
	s.log.WithFields(logrus.Fields{
		"path":              asset.Path,
		"seconds_per_chunk": secondsPerChunk,
		"chunks":            numChunks,
	}).Info("fixed-duration split")

	if numChunks > DirectSplitMaxChunks || asset.Size > DirectSplitMinBytes {
		return s.splitDirect(ctx, asset, secondsPerChunk, outputDir)
	}

	cuts := make([]float64, 0, numChunks)
	for i := 1; i < numChunks; i++ {
		c := float64(i) * secondsPerChunk
		if c >= asset.Duration {
			break
		}
		cuts = append(cuts, c)
	}
	return s.SplitAtPoints(ctx, asset, cuts, outputDir)
}

// splitDirect runs ffmpeg's segment muxer once, producing
// <base>_part001.mp3, <base>_part002.mp3, ...
func (s *Segmenter) splitDirect(ctx context.Context, asset types.AudioAsset, secondsPerChunk float64, outputDir string) ([]types.AudioAsset, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, &SplitError{Path: asset.Path, Op: "setup", Err: err}
	}
	pattern := filepath.Join(outputDir, asset.Base()+"_part%03d"+media.CanonicalExt)

	args := []string{"-hide_banner", "-nostats", "-y"}
	args = append(args, media.TolerantInputArgs(asset.Ext)...)
	args = append(args, "-i", asset.Path, "-map", "0:a")
	args = append(args, media.CanonicalEncodeArgs()...)
	args = append(args,
		"-f", "segment",
		"-segment_time", media.FormatSeconds(secondsPerChunk),
		"-segment_start_number", "1",
		"-reset_timestamps", "1",
		pattern,
	)

	_, stderr, runErr := s.runner.Run(ctx, s.tools.FFmpeg, args...)
	parts, listErr := listDirectParts(asset, outputDir)
	if runErr != nil || listErr != nil || len(parts) == 0 {
		for _, p := range parts {
			removeQuietly(p.Path)
		}
		err := runErr
		switch {
		case err != nil:
			err = fmt.Errorf("ffmpeg: %w (stderr: %s)", err, media.LastLine(stderr))
		case listErr != nil:
			err = listErr
		default:
			err = errors.New("segment muxer produced no parts")
		}
		return nil, &SplitError{Path: asset.Path, Op: "segment", Err: err}
	}

	s.warnOversized(parts)
	return parts, nil
}

func listDirectParts(asset types.AudioAsset, outputDir string) ([]types.AudioAsset, error) {
	re := regexp.MustCompile("^" + regexp.QuoteMeta(asset.Base()) + `_part(\d{3,})` + regexp.QuoteMeta(media.CanonicalExt) + "$")
	entries, err := os.ReadDir(outputDir)
	if err != nil {
		return nil, err
	}

	type numbered struct {
		n     int
		asset types.AudioAsset
	}
	var found []numbered
	for _, e := range entries {
		m := re.FindStringSubmatch(e.Name())
		if m == nil || e.IsDir() {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		part, err := media.Stat(filepath.Join(outputDir, e.Name()))
		if err != nil {
			return nil, err
		}
		part.Channels = media.CanonicalChannels
		part.SampleRate = media.CanonicalSampleRate
		found = append(found, numbered{n: n, asset: part})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].n < found[j].n })

	out := make([]types.AudioAsset, len(found))
	for i, f := range found {
		out[i] = f.asset
	}
	return out, nil
}

func (s *Segmenter) warnOversized(parts []types.AudioAsset) {
	for i, p := range parts {
		if s.maxChunkBytes > 0 && p.Size > s.maxChunkBytes {
			s.log.WithFields(logrus.Fields{
				"part":  i + 1,
				"bytes": p.Size,
				"max":   s.maxChunkBytes,
			}).Warn("segment still exceeds chunk ceiling")
		}
	}
}

func removeQuietly(path string) {
	if err := media.RemoveQuietly(path); err != nil {
		logrus.WithError(err).WithField("path", path).Debug("remove failed")
	}
}
