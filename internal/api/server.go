// Package api is the HTTP surface of the voice memo service.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"voice-memos-go/internal/extractor"
	"voice-memos-go/internal/logger"
	"voice-memos-go/internal/types"
)

type Store interface {
	List() ([]types.Recording, error)
	Get(id string) (types.Recording, error)
	Update(id string, r types.Recording) (types.Recording, error)
	Delete(id string) (types.Recording, error)
}

type Processor interface {
	Process(ctx context.Context, path, language string) (types.Recording, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, transcript string, info extractor.MeetingInfo) (string, error)
}

type Config struct {
	UploadsDir  string
	FrontendDir string
	// MaxMemory is the multipart size kept in memory before spilling to disk.
	MaxMemory int64
}

type Server struct {
	store      Store
	processor  Processor
	summarizer Summarizer
	cfg        Config
	log        *logger.Logger

	now func() time.Time
}

func New(store Store, processor Processor, summarizer Summarizer, cfg Config, log *logger.Logger) *Server {
	if cfg.UploadsDir == "" {
		cfg.UploadsDir = "uploads"
	}
	if cfg.MaxMemory <= 0 {
		cfg.MaxMemory = 32 << 20
	}
	return &Server{
		store:      store,
		processor:  processor,
		summarizer: summarizer,
		cfg:        cfg,
		log:        log,
		now:        time.Now,
	}
}

// Routes builds the router. Uploads are not bounded by a handler timeout
// because large recordings legitimately take minutes.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(s.requestLog)

	r.Get("/healthz", s.health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/recordings", s.listRecordings)
		r.Get("/recordings/export", s.exportRecordings)
		r.Post("/upload", s.upload)
		r.Get("/stats", s.stats)
		r.Get("/audio/{id}", s.audio)

		r.Route("/recording/{id}", func(r chi.Router) {
			r.Get("/", s.getRecording)
			r.Put("/", s.updateRecording)
			r.Delete("/", s.deleteRecording)
			r.Post("/summary", s.summarize)
		})
	})

	if s.cfg.FrontendDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(s.cfg.FrontendDir)))
	}
	return r
}
