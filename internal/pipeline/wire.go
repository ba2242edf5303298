package pipeline

import (
	"github.com/sirupsen/logrus"

	"voice-memos-go/internal/config"
	"voice-memos-go/internal/media"
	"voice-memos-go/internal/normalize"
	"voice-memos-go/internal/segment"
	"voice-memos-go/internal/transcription"
)

// Deps is the production object graph. The CLI reaches into the parts.
type Deps struct {
	Inspector  *media.Inspector
	Normalizer *normalize.Normalizer
	Segmenter  *segment.Segmenter
	Client     transcription.Client
	Pipeline   *Pipeline
}

// Wire builds every pipeline component from configuration, executing the
// real ffmpeg / ffprobe binaries.
func Wire(cfg config.Config, log *logrus.Entry) Deps {
	return WireWithRunner(cfg, media.ExecRunner{Timeout: cfg.EncodeTimeout}, log)
}

func WireWithRunner(cfg config.Config, runner media.Runner, log *logrus.Entry) Deps {
	tools := media.Tools{FFmpeg: cfg.FFmpegPath, FFprobe: cfg.FFprobePath}

	insp := media.NewInspector(runner, tools, log)
	norm := normalize.New(runner, tools, log, normalize.WithProber(insp))
	seg := segment.New(runner, tools, insp, cfg.MaxChunkBytes, log,
		segment.WithSilenceThreshold(cfg.SilenceThresholdDB),
		segment.WithMinSilence(cfg.MinSilenceSeconds),
	)
	client := transcription.New(transcription.Config{
		BaseURL: cfg.OpenAIBaseURL,
		APIKey:  cfg.OpenAIAPIKey,
		Model:   cfg.TranscribeModel,
	}, cfg.UseMockTranscribe, log)

	p := New(insp, norm, seg, client, Config{
		MaxChunkBytes:       cfg.MaxChunkBytes,
		Concurrency:         cfg.TranscribeConcurrency,
		CallTimeout:         cfg.TranscribeTimeout,
		TempRoot:            cfg.TempRoot,
		WriteTranscriptCopy: cfg.WriteTranscriptCopy,
	}, log)

	return Deps{Inspector: insp, Normalizer: norm, Segmenter: seg, Client: client, Pipeline: p}
}
