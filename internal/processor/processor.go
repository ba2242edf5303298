// Package processor runs the full upload flow: transcribe, title, persist.
package processor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"voice-memos-go/internal/extractor"
	"voice-memos-go/internal/pipeline"
	"voice-memos-go/internal/types"
)

type Transcriber interface {
	Transcribe(ctx context.Context, path string, opts pipeline.Options) (string, error)
}

type Titler interface {
	Title(ctx context.Context, transcript, language string) (string, error)
}

type Repository interface {
	Add(r types.Recording) error
}

type Processor struct {
	transcriber Transcriber
	titler      Titler
	repo        Repository
	log         *logrus.Entry

	now   func() time.Time
	newID func() string
}

func New(transcriber Transcriber, titler Titler, repo Repository, log *logrus.Entry) *Processor {
	return &Processor{
		transcriber: transcriber,
		titler:      titler,
		repo:        repo,
		log:         log.WithField("component", "processor"),
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

// Process transcribes the file at path, titles it and stores a new
// Recording pointing at path. Transcription errors are returned unchanged
// so callers can tell invalid audio from other failures. A failed title
// falls back to extractor.DefaultTitle.
func (p *Processor) Process(ctx context.Context, path, language string) (types.Recording, error) {
	if language == "" {
		language = "english"
	}
	start := time.Now()
	log := p.log.WithFields(logrus.Fields{"file": path, "language": language})

	transcript, err := p.transcriber.Transcribe(ctx, path, pipeline.Options{Language: language})
	if err != nil {
		return types.Recording{}, err
	}

	title, err := p.titler.Title(ctx, transcript, language)
	if err != nil {
		log.WithError(err).Warn("title generation failed, using default")
		title = extractor.DefaultTitle
	}

	rec := types.Recording{
		ID:            p.newID(),
		Title:         title,
		Timestamp:     p.now().UTC(),
		Language:      language,
		AudioPath:     path,
		Transcription: transcript,
		Tags:          []string{},
	}
	if err := p.repo.Add(rec); err != nil {
		return types.Recording{}, fmt.Errorf("save recording: %w", err)
	}

	log.WithFields(logrus.Fields{
		"id":    rec.ID,
		"title": rec.Title,
		"took":  time.Since(start).String(),
	}).Info("recording processed")
	return rec, nil
}
