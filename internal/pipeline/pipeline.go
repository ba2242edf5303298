// Package pipeline turns an audio file of any size into one transcript,
// converting and splitting it when it exceeds the API ceiling.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"voice-memos-go/internal/config"
	"voice-memos-go/internal/media"
	"voice-memos-go/internal/metrics"
	"voice-memos-go/internal/transcription"
	"voice-memos-go/internal/types"
)

type Inspector interface {
	ValidateContainer(ctx context.Context, path string) media.Validation
	Probe(ctx context.Context, asset types.AudioAsset) (media.ProbeResult, error)
}

type Normalizer interface {
	Normalize(ctx context.Context, asset types.AudioAsset, outputDir string) (types.AudioAsset, error)
}

type Splitter interface {
	Split(ctx context.Context, asset types.AudioAsset, outputDir string) ([]types.AudioAsset, error)
}

// Paths a request can take, as reported to metrics.
const (
	PathDirect    = "direct"
	PathConverted = "converted"
	PathSplit     = "split"
)

type Config struct {
	MaxChunkBytes int64
	// Concurrency bounds in-flight transcription calls per request.
	Concurrency int
	// CallTimeout bounds each transcription call. Zero means no bound.
	CallTimeout time.Duration
	// TempRoot holds temp_splits/. Empty means os.TempDir().
	TempRoot            string
	WriteTranscriptCopy bool
}

// Options are per-request.
type Options struct {
	Language    string
	SkipCleanup bool
}

type Pipeline struct {
	inspector  Inspector
	normalizer Normalizer
	splitter   Splitter
	client     transcription.Client
	cfg        Config
	log        *logrus.Entry
}

func New(inspector Inspector, normalizer Normalizer, splitter Splitter, client transcription.Client, cfg Config, log *logrus.Entry) *Pipeline {
	if cfg.MaxChunkBytes <= 0 {
		cfg.MaxChunkBytes = config.MaxUploadBytes
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.TempRoot == "" {
		cfg.TempRoot = os.TempDir()
	}
	return &Pipeline{
		inspector:  inspector,
		normalizer: normalizer,
		splitter:   splitter,
		client:     client,
		cfg:        cfg,
		log:        log.WithField("component", "pipeline"),
	}
}

// Transcribe validates path, brings it under the size ceiling and returns
// the transcript of all chunks joined in order. Intermediate files live in a
// private work directory that is removed before returning unless
// opts.SkipCleanup is set. The input file is never removed.
func (p *Pipeline) Transcribe(ctx context.Context, path string, opts Options) (string, error) {
	started := time.Now()
	log := p.log.WithField("input", path)

	lang, err := transcription.LanguageCode(opts.Language)
	if err != nil {
		return "", p.fail(&StageError{Stage: StageSetup, Path: path, Err: err})
	}

	if v := p.inspector.ValidateContainer(ctx, path); !v.Valid {
		log.WithField("reason", v.String()).Warn("audio validation failed")
		metrics.RecordFailure(StageValidate)
		return "", &InvalidAudioError{Path: path, Validation: v}
	}

	asset, err := media.Stat(path)
	if err != nil {
		return "", p.fail(&StageError{Stage: StageValidate, Path: path, Err: err})
	}

	var workDir string
	defer func() {
		if workDir != "" && !opts.SkipCleanup {
			p.cleanup(workDir)
		}
	}()

	var chunks []types.AudioAsset
	route := PathDirect

	if asset.Size <= p.cfg.MaxChunkBytes {
		chunks = []types.AudioAsset{asset}
	} else {
		workDir = filepath.Join(p.cfg.TempRoot, "temp_splits", fmt.Sprintf("%s-%s", asset.Base(), uuid.NewString()))
		if err := os.MkdirAll(workDir, 0o755); err != nil {
			workDir = ""
			return "", p.fail(&StageError{Stage: StageSetup, Path: path, Err: err})
		}
		log.WithFields(logrus.Fields{
			"size_mb":  float64(asset.Size) / (1024 * 1024),
			"work_dir": workDir,
		}).Info("file exceeds chunk ceiling, converting")

		stageStart := time.Now()
		converted, err := p.normalizer.Normalize(ctx, asset, workDir)
		metrics.ObserveStage(StageConvert, time.Since(stageStart))
		if err != nil {
			return "", p.fail(&StageError{Stage: StageConvert, Path: path, Err: err})
		}

		if converted.Size <= p.cfg.MaxChunkBytes {
			route = PathConverted
			chunks = []types.AudioAsset{converted}
		} else {
			route = PathSplit
			chunks, err = p.split(ctx, converted, workDir)
			if err != nil {
				return "", p.fail(err)
			}
		}
	}

	stageStart := time.Now()
	texts, err := p.transcribeAll(ctx, chunks, lang)
	metrics.ObserveStage(StageTranscribe, time.Since(stageStart))
	if err != nil {
		return "", p.fail(&StageError{Stage: StageTranscribe, Path: path, Err: err})
	}
	text := strings.Join(texts, " ")

	metrics.RecordPath(route)
	metrics.ObserveChunks(len(chunks))
	log.WithFields(logrus.Fields{
		"path":   route,
		"chunks": len(chunks),
		"chars":  len(text),
		"took":   time.Since(started).String(),
	}).Info("transcription complete")

	if p.cfg.WriteTranscriptCopy {
		p.writeCopy(asset, text)
	}
	return text, nil
}

func (p *Pipeline) split(ctx context.Context, converted types.AudioAsset, workDir string) ([]types.AudioAsset, error) {
	stageStart := time.Now()
	probe, err := p.inspector.Probe(ctx, converted)
	metrics.ObserveStage(StageProbe, time.Since(stageStart))
	if err != nil {
		return nil, &StageError{Stage: StageProbe, Path: converted.Path, Err: err}
	}
	converted.Duration = probe.DurationSeconds

	p.log.WithFields(logrus.Fields{
		"converted": converted.String(),
		"duration":  converted.Duration,
	}).Info("converted file still too large, splitting")

	stageStart = time.Now()
	parts, err := p.splitter.Split(ctx, converted, workDir)
	metrics.ObserveStage(StageSplit, time.Since(stageStart))
	if err != nil {
		return nil, &StageError{Stage: StageSplit, Path: converted.Path, Err: err}
	}
	if len(parts) == 0 {
		return nil, &StageError{Stage: StageSplit, Path: converted.Path, Err: errors.New("no segments produced")}
	}
	return parts, nil
}

// transcribeAll runs chunk calls concurrently and returns their texts by
// chunk index. The first failure cancels the remaining calls.
func (p *Pipeline) transcribeAll(ctx context.Context, chunks []types.AudioAsset, lang string) ([]string, error) {
	texts := make([]string, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)
	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			if _, err := media.Require(chunk); err != nil {
				return err
			}
			callCtx := gctx
			if p.cfg.CallTimeout > 0 {
				var cancel context.CancelFunc
				callCtx, cancel = context.WithTimeout(gctx, p.cfg.CallTimeout)
				defer cancel()
			}

			text, err := p.client.Transcribe(callCtx, chunk.Path, lang)
			if err != nil {
				metrics.RecordTranscriptionError()
				return fmt.Errorf("chunk %d/%d (%s): %w", i+1, len(chunks), filepath.Base(chunk.Path), err)
			}
			texts[i] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return texts, nil
}

func (p *Pipeline) fail(err error) error {
	var se *StageError
	if errors.As(err, &se) {
		metrics.RecordFailure(se.Stage)
		p.log.WithError(err).WithField("stage", se.Stage).Error("transcription failed")
	}
	return err
}

func (p *Pipeline) cleanup(workDir string) {
	if err := os.RemoveAll(workDir); err != nil {
		p.log.WithError(err).WithField("work_dir", workDir).Warn("cleanup failed")
		return
	}
	p.log.WithField("work_dir", workDir).Debug("work directory removed")
}

// writeCopy stores transcription-<base>.txt next to the input for debugging.
func (p *Pipeline) writeCopy(asset types.AudioAsset, text string) {
	out := filepath.Join(filepath.Dir(asset.Path), "transcription-"+asset.Base()+".txt")
	if err := os.WriteFile(out, []byte(text), 0o644); err != nil {
		p.log.WithError(err).WithField("path", out).Warn("could not write transcript copy")
	}
}
