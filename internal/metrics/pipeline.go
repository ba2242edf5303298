package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PipelinePaths counts which route each transcription took: direct, converted or split.
	PipelinePaths = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voicememos_pipeline_path_total",
		Help: "Transcription requests by pipeline path",
	}, []string{"path"})

	// PipelineChunks tracks how many chunks a request was transcribed in.
	PipelineChunks = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "voicememos_pipeline_chunks",
		Help:    "Number of chunks per transcription request",
		Buckets: []float64{1, 2, 3, 5, 8, 13, 21, 34},
	})

	// StageDuration tracks time spent per pipeline stage.
	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "voicememos_pipeline_stage_duration_seconds",
		Help:    "Duration of pipeline stages",
		Buckets: prometheus.ExponentialBuckets(0.05, 2.0, 15), // 50ms to ~13min
	}, []string{"stage"})

	// PipelineFailures counts failed requests by the stage that failed.
	PipelineFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voicememos_pipeline_failures_total",
		Help: "Failed transcription requests by stage",
	}, []string{"stage"})

	// TranscriptionCallErrors counts failed calls to the speech API.
	TranscriptionCallErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voicememos_transcription_call_errors_total",
		Help: "Failed transcription API calls",
	})

	// HTTPRequests counts API requests by route pattern and status code.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voicememos_http_requests_total",
		Help: "HTTP requests by route and status",
	}, []string{"route", "code"})
)

func RecordPath(path string) { PipelinePaths.WithLabelValues(path).Inc() }

func ObserveChunks(n int) { PipelineChunks.Observe(float64(n)) }

func ObserveStage(stage string, d time.Duration) {
	StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func RecordFailure(stage string) { PipelineFailures.WithLabelValues(stage).Inc() }

func RecordTranscriptionError() { TranscriptionCallErrors.Inc() }

func RecordHTTP(route string, code int) {
	if route == "" {
		route = "unmatched"
	}
	HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}
