package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voice-memos-go/internal/extractor"
	"voice-memos-go/internal/logger"
	"voice-memos-go/internal/media"
	"voice-memos-go/internal/pipeline"
	"voice-memos-go/internal/store"
	"voice-memos-go/internal/types"
)

type stubProcessor struct {
	store *store.Store
	err   error
	paths []string
}

func (p *stubProcessor) Process(ctx context.Context, path, language string) (types.Recording, error) {
	p.paths = append(p.paths, path)
	if p.err != nil {
		return types.Recording{}, p.err
	}
	rec := types.Recording{
		ID: "new", Title: "Fresh Memo", Language: language, AudioPath: path,
		Transcription: "hello there", Timestamp: time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC),
	}
	return rec, p.store.Add(rec)
}

type fixture struct {
	srv     *Server
	h       http.Handler
	store   *store.Store
	proc    *stubProcessor
	uploads string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "recordings"), logger.Discard().Entry)
	require.NoError(t, err)

	proc := &stubProcessor{store: st}
	uploads := filepath.Join(dir, "uploads")
	srv := New(st, proc, extractor.NewSummarizer(extractor.Mock{}), Config{UploadsDir: uploads}, logger.Discard())
	srv.now = func() time.Time { return time.UnixMilli(1700000000123) }
	return &fixture{srv: srv, h: srv.Routes(), store: st, proc: proc, uploads: uploads}
}

func (f *fixture) do(t *testing.T, method, target string, body []byte, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rr := httptest.NewRecorder()
	f.h.ServeHTTP(rr, req)
	return rr
}

func (f *fixture) seed(t *testing.T, recs ...types.Recording) {
	t.Helper()
	for _, r := range recs {
		require.NoError(t, f.store.Add(r))
	}
}

func multipartBody(t *testing.T, filename string, content []byte, language string) ([]byte, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if filename != "" {
		fw, err := mw.CreateFormFile("audio", filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	if language != "" {
		require.NoError(t, mw.WriteField("language", language))
	}
	require.NoError(t, mw.Close())
	return buf.Bytes(), mw.FormDataContentType()
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) types.ErrorResponse {
	t.Helper()
	var e types.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &e))
	return e
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rr := f.do(t, http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", rr.Body.String())
	assert.NotEmpty(t, rr.Header().Get(requestIDHeader))
}

func TestUpload_SavesAndProcesses(t *testing.T) {
	f := newFixture(t)
	body, ct := multipartBody(t, "memo.MP3", []byte("ID3 audio"), "hebrew")

	rr := f.do(t, http.MethodPost, "/api/upload", body, ct)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	require.Len(t, f.proc.paths, 1)
	saved := f.proc.paths[0]
	assert.Equal(t, f.uploads, filepath.Dir(saved))
	assert.Regexp(t, `^recording-1700000000123-[0-9a-f-]{36}\.mp3$`, filepath.Base(saved))
	data, err := os.ReadFile(saved)
	require.NoError(t, err)
	assert.Equal(t, "ID3 audio", string(data))

	var rec types.Recording
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rec))
	assert.Equal(t, "hebrew", rec.Language)
}

func TestUpload_SameMillisecondKeepsBothFiles(t *testing.T) {
	f := newFixture(t)
	f.proc.err = errors.New("skip processing")

	for _, content := range []string{"FIRST", "SECOND"} {
		body, ct := multipartBody(t, "memo.webm", []byte(content), "english")
		f.do(t, http.MethodPost, "/api/upload", body, ct)
	}

	require.Len(t, f.proc.paths, 2)
	assert.NotEqual(t, f.proc.paths[0], f.proc.paths[1])
	for i, want := range []string{"FIRST", "SECOND"} {
		data, err := os.ReadFile(f.proc.paths[i])
		require.NoError(t, err)
		assert.Equal(t, want, string(data))
	}
}

func TestUpload_UnknownExtensionBecomesWebM(t *testing.T) {
	f := newFixture(t)
	body, ct := multipartBody(t, "blob", []byte{0x1A, 0x45, 0xDF, 0xA3}, "")

	rr := f.do(t, http.MethodPost, "/api/upload", body, ct)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, ".webm", filepath.Ext(f.proc.paths[0]))
}

func TestUpload_NoFile(t *testing.T) {
	f := newFixture(t)
	body, ct := multipartBody(t, "", nil, "english")

	rr := f.do(t, http.MethodPost, "/api/upload", body, ct)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "No audio file uploaded", decodeError(t, rr).Error)
	assert.Empty(t, f.proc.paths)

	rr = f.do(t, http.MethodPost, "/api/upload", []byte("{}"), "application/json")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUpload_InvalidAudioIs400(t *testing.T) {
	f := newFixture(t)
	f.proc.err = &pipeline.InvalidAudioError{
		Path:       "x.webm",
		Validation: media.Validation{Reason: media.ReasonBadHeader, Diagnostic: "expected 1A 45 DF A3, got 00 00 00 00"},
	}
	body, ct := multipartBody(t, "memo.webm", []byte("junk"), "english")

	rr := f.do(t, http.MethodPost, "/api/upload", body, ct)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	e := decodeError(t, rr)
	assert.Equal(t, "Invalid audio file", e.Error)
	assert.Contains(t, e.Details, "expected 1A 45 DF A3")
	assert.Equal(t, invalidAudioMessage, e.Message)
}

func TestUpload_OtherFailureIs500(t *testing.T) {
	f := newFixture(t)
	f.proc.err = &pipeline.StageError{Stage: pipeline.StageTranscribe, Path: "x", Err: errors.New("upstream 503")}
	body, ct := multipartBody(t, "memo.webm", []byte("audio"), "english")

	rr := f.do(t, http.MethodPost, "/api/upload", body, ct)
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	e := decodeError(t, rr)
	assert.Equal(t, "Failed to process audio", e.Error)
	assert.Contains(t, e.Details, "upstream 503")
	assert.Empty(t, e.Message)
}

func TestRecordings_ListAndFilter(t *testing.T) {
	f := newFixture(t)
	f.seed(t,
		types.Recording{ID: "a", Language: "english", Tags: []string{"work"}},
		types.Recording{ID: "b", Language: "hebrew", Tags: []string{"home"}},
		types.Recording{ID: "c", Language: "english", Tags: []string{"home"}},
	)

	ids := func(rr *httptest.ResponseRecorder) []string {
		var recs []types.Recording
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &recs))
		out := []string{}
		for _, r := range recs {
			out = append(out, r.ID)
		}
		return out
	}

	assert.Equal(t, []string{"a", "b", "c"}, ids(f.do(t, http.MethodGet, "/api/recordings", nil, "")))
	assert.Equal(t, []string{"a", "c"}, ids(f.do(t, http.MethodGet, "/api/recordings?language=english", nil, "")))
	assert.Equal(t, []string{"c"}, ids(f.do(t, http.MethodGet, "/api/recordings?language=english&tag=home", nil, "")))
}

func TestRecording_GetUpdateDelete(t *testing.T) {
	f := newFixture(t)
	audio := filepath.Join(t.TempDir(), "recording-1.webm")
	require.NoError(t, os.WriteFile(audio, []byte("audio"), 0o644))
	f.seed(t, types.Recording{ID: "a", Title: "Old", AudioPath: audio, Transcription: "t"})

	rr := f.do(t, http.MethodGet, "/api/recording/a", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = f.do(t, http.MethodGet, "/api/recording/zzz", nil, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "Recording not found", decodeError(t, rr).Error)

	rr = f.do(t, http.MethodPut, "/api/recording/a", []byte(`{"title":"New","audioPath":"/etc/passwd","tags":["x"]}`), "application/json")
	require.Equal(t, http.StatusOK, rr.Code)
	var updated types.Recording
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &updated))
	assert.Equal(t, "New", updated.Title)
	assert.Equal(t, audio, updated.AudioPath)
	assert.Equal(t, "a", updated.ID)

	rr = f.do(t, http.MethodPut, "/api/recording/a", []byte(`not json`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = f.do(t, http.MethodGet, "/api/audio/a", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "audio", rr.Body.String())

	rr = f.do(t, http.MethodDelete, "/api/recording/a", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"success":true,"message":"Recording deleted successfully"}`, rr.Body.String())
	assert.NoFileExists(t, audio)

	rr = f.do(t, http.MethodDelete, "/api/recording/a", nil, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAudio_NotFound(t *testing.T) {
	f := newFixture(t)
	f.seed(t,
		types.Recording{ID: "nopath"},
		types.Recording{ID: "gone", AudioPath: filepath.Join(t.TempDir(), "missing.webm")},
	)
	for _, id := range []string{"nopath", "gone", "unknown"} {
		rr := f.do(t, http.MethodGet, "/api/audio/"+id, nil, "")
		assert.Equal(t, http.StatusNotFound, rr.Code, id)
		assert.Equal(t, "Audio file not found", decodeError(t, rr).Error)
	}
}

func TestSummary_SavedOnRecording(t *testing.T) {
	f := newFixture(t)
	f.seed(t,
		types.Recording{ID: "a", Transcription: "we decided things"},
		types.Recording{ID: "empty"},
	)

	rr := f.do(t, http.MethodPost, "/api/recording/a/summary", []byte(`{"description":"weekly","participants":"Dana, Avi"}`), "application/json")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	got, err := f.store.Get("a")
	require.NoError(t, err)
	require.NotNil(t, got.MeetingSummary)
	assert.Contains(t, *got.MeetingSummary, "## Meeting Summary")

	rr = f.do(t, http.MethodPost, "/api/recording/empty/summary", nil, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = f.do(t, http.MethodPost, "/api/recording/zzz/summary", nil, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestStatsAndExport(t *testing.T) {
	f := newFixture(t)
	f.seed(t,
		types.Recording{ID: "a", Language: "english", Tags: []string{"work"}, Timestamp: time.Date(2025, 1, 2, 3, 0, 0, 0, time.UTC)},
		types.Recording{ID: "b", Language: "english", Tags: []string{"work", "home"}},
	)

	rr := f.do(t, http.MethodGet, "/api/stats", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var stats map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &stats))
	assert.EqualValues(t, 2, stats["total"])
	assert.Equal(t, map[string]any{"work": "#4a6fa5", "home": "#e74c3c"}, stats["tag_colors"])

	rr = f.do(t, http.MethodGet, "/api/recordings/export", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.HasPrefix(rr.Body.String(), "PK"), "xlsx is a zip archive")
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "recordings.xlsx")
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodGet, "/healthz", nil, "")
	rr := f.do(t, http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `voicememos_http_requests_total{code="200",route="/healthz"}`)
}

func TestFrontendIsServed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>memos</h1>"), 0o644))

	f := newFixture(t)
	f.srv.cfg.FrontendDir = dir
	h := f.srv.Routes()

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "memos")
}
