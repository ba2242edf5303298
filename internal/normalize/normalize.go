// Package normalize re-encodes uploaded audio into the small canonical form
// the transcription API accepts, and salvages damaged recordings.
package normalize

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"voice-memos-go/internal/media"
	"voice-memos-go/internal/types"
)

// ConversionError reports that no strategy could encode the input. Strategy
// is the failing strategy's name, or "all" when several failed; Err joins
// every attempt's error.
type ConversionError struct {
	Path     string
	Strategy string
	Err      error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("convert %s (%s): %v", e.Path, e.Strategy, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// Prober is the part of media.Inspector that Repair uses to report durations.
type Prober interface {
	Probe(ctx context.Context, asset types.AudioAsset) (media.ProbeResult, error)
}

type Normalizer struct {
	runner     media.Runner
	tools      media.Tools
	strategies []Strategy
	prober     Prober
	log        *logrus.Entry
}

type Option func(*Normalizer)

// WithStrategies replaces the strategy list Normalize walks.
func WithStrategies(s ...Strategy) Option {
	return func(n *Normalizer) {
		if len(s) > 0 {
			n.strategies = append([]Strategy(nil), s...)
		}
	}
}

// WithProber lets Repair report the duration of each salvaged file.
func WithProber(p Prober) Option {
	return func(n *Normalizer) { n.prober = p }
}

func New(runner media.Runner, tools media.Tools, log *logrus.Entry, opts ...Option) *Normalizer {
	if tools.FFmpeg == "" {
		tools.FFmpeg = "ffmpeg"
	}
	n := &Normalizer{
		runner:     runner,
		tools:      tools,
		strategies: DefaultStrategies(),
		log:        log.WithField("component", "normalizer"),
	}
	for _, o := range opts {
		o(n)
	}
	return n
}

// OutputPath is where Normalize writes the converted form of asset.
func OutputPath(asset types.AudioAsset, outputDir string, s Strategy) string {
	return filepath.Join(outputDir, asset.Base()+"_converted"+s.Ext)
}

// Normalize encodes asset into outputDir trying each strategy in order. The
// first strategy that yields a non-empty file wins. Failed attempts leave
// nothing behind.
func (n *Normalizer) Normalize(ctx context.Context, asset types.AudioAsset, outputDir string) (types.AudioAsset, error) {
	asset, err := media.Require(asset)
	if err != nil {
		return types.AudioAsset{}, err
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return types.AudioAsset{}, &ConversionError{Path: asset.Path, Strategy: "setup", Err: err}
	}

	var (
		errs  []error
		tried []string
	)
	for _, s := range n.strategies {
		out := OutputPath(asset, outputDir, s)
		start := time.Now()

		res, err := n.encode(ctx, asset, s, out, media.HasUnstableTiming(asset.Ext))
		if err == nil {
			n.log.WithFields(logrus.Fields{
				"input":    asset.Path,
				"output":   out,
				"strategy": s.Name,
				"in_mb":    float64(asset.Size) / (1024 * 1024),
				"out_mb":   float64(res.Size) / (1024 * 1024),
				"took":     time.Since(start).String(),
			}).Info("audio normalized")
			return res, nil
		}

		n.log.WithError(err).WithFields(logrus.Fields{
			"input":    asset.Path,
			"strategy": s.Name,
		}).Warn("normalize strategy failed")
		errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
		tried = append(tried, s.Name)

		if ctx.Err() != nil {
			break
		}
	}

	if len(errs) == 0 {
		errs = append(errs, errors.New("no strategies configured"))
	}
	return types.AudioAsset{}, &ConversionError{Path: asset.Path, Strategy: strategyLabel(tried), Err: errors.Join(errs...)}
}

// strategyLabel names the single strategy that failed, or "all" when
// several were tried.
func strategyLabel(tried []string) string {
	switch len(tried) {
	case 0:
		return "none"
	case 1:
		return tried[0]
	default:
		return "all"
	}
}

// encode runs a single ffmpeg attempt. On failure the output is removed.
func (n *Normalizer) encode(ctx context.Context, asset types.AudioAsset, s Strategy, out string, tolerant bool) (types.AudioAsset, error) {
	args := []string{"-hide_banner", "-nostats", "-y"}
	if tolerant {
		args = append(args, "-ignore_unknown", "-analyzeduration", "100M", "-probesize", "100M")
	}
	args = append(args, "-i", asset.Path)
	args = append(args, s.outputArgs()...)
	if media.HasUnstableTiming(asset.Ext) {
		args = append(args, "-af", media.ResampleFilter)
	}
	args = append(args, out)

	_, stderr, err := n.runner.Run(ctx, n.tools.FFmpeg, args...)
	if err != nil {
		removeQuietly(out)
		return types.AudioAsset{}, fmt.Errorf("ffmpeg: %w (stderr: %s)", err, media.LastLine(stderr))
	}

	res, err := media.Stat(out)
	if err != nil {
		removeQuietly(out)
		return types.AudioAsset{}, fmt.Errorf("encoder produced no output: %w", err)
	}
	res.Channels = media.CanonicalChannels
	res.SampleRate = media.CanonicalSampleRate
	return res, nil
}

func removeQuietly(path string) {
	if err := media.RemoveQuietly(path); err != nil {
		logrus.WithError(err).WithField("path", path).Debug("remove failed")
	}
}
