package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"voice-memos-go/internal/aggregator"
	"voice-memos-go/internal/dataset"
	"voice-memos-go/internal/extractor"
	"voice-memos-go/internal/pipeline"
	"voice-memos-go/internal/store"
	"voice-memos-go/internal/types"
)

const invalidAudioMessage = "The uploaded audio file appears to be corrupted or in an unsupported format. Please try recording again."

var uploadExts = map[string]bool{".webm": true, ".opus": true, ".mp3": true, ".wav": true, ".ogg": true}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, types.ErrorResponse{Error: msg})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	fmt.Fprint(w, "ok")
}

// listRecordings accepts repeated language and tag query parameters.
func (s *Server) listRecordings(w http.ResponseWriter, r *http.Request) {
	recs, err := s.store.List()
	if err != nil {
		s.log.WithRequest(r).WithError(err).Error("list recordings")
		writeError(w, http.StatusInternalServerError, "Failed to fetch recordings")
		return
	}
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, aggregator.Filter(recs, q["language"], q["tag"]))
}

func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	log := s.log.WithRequest(r).WithField("handler", "upload")

	if err := r.ParseMultipartForm(s.cfg.MaxMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		log.WithError(err).Warn("bad multipart body")
		writeError(w, http.StatusBadRequest, "No audio file uploaded")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, hdr, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No audio file uploaded")
		return
	}
	defer file.Close()

	path, err := s.saveUpload(file, hdr.Filename)
	if err != nil {
		log.WithError(err).Error("save upload")
		writeJSON(w, http.StatusInternalServerError, types.ErrorResponse{Error: "Failed to process audio", Details: err.Error()})
		return
	}
	language := r.FormValue("language")
	log = log.WithField("file", path).WithField("language", language)
	log.Info("upload saved")

	rec, err := s.processor.Process(r.Context(), path, language)
	if err != nil {
		if errors.Is(err, pipeline.ErrInvalidAudio) {
			details := err.Error()
			var inv *pipeline.InvalidAudioError
			if errors.As(err, &inv) {
				details = inv.Details()
			}
			log.WithError(err).Warn("invalid audio")
			writeJSON(w, http.StatusBadRequest, types.ErrorResponse{
				Error:   "Invalid audio file",
				Details: details,
				Message: invalidAudioMessage,
			})
			return
		}
		log.WithError(err).Error("processing failed")
		writeJSON(w, http.StatusInternalServerError, types.ErrorResponse{Error: "Failed to process audio", Details: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// saveUpload stores the body as recording-<unix ms>-<uuid><ext>, so uploads
// landing in the same millisecond never share a file. Unknown extensions
// are saved as .webm, the browser recorder's format.
func (s *Server) saveUpload(src io.Reader, name string) (string, error) {
	if err := os.MkdirAll(s.cfg.UploadsDir, 0o755); err != nil {
		return "", err
	}
	ext := strings.ToLower(filepath.Ext(name))
	if !uploadExts[ext] {
		ext = ".webm"
	}
	path := filepath.Join(s.cfg.UploadsDir, fmt.Sprintf("recording-%d-%s%s", s.now().UnixMilli(), uuid.NewString(), ext))

	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, dst.Close()
}

func (s *Server) getRecording(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.Get(chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Recording not found")
		return
	}
	if err != nil {
		s.log.WithRequest(r).WithError(err).Error("get recording")
		writeError(w, http.StatusInternalServerError, "Failed to fetch recording")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) audio(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.Get(chi.URLParam(r, "id"))
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		s.log.WithRequest(r).WithError(err).Error("get recording for audio")
		writeError(w, http.StatusInternalServerError, "Failed to stream audio")
		return
	}
	if err != nil || rec.AudioPath == "" {
		writeError(w, http.StatusNotFound, "Audio file not found")
		return
	}
	if _, err := os.Stat(rec.AudioPath); err != nil {
		writeError(w, http.StatusNotFound, "Audio file not found")
		return
	}
	http.ServeFile(w, r, rec.AudioPath)
}

func (s *Server) updateRecording(w http.ResponseWriter, r *http.Request) {
	var rec types.Recording
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, "No data provided")
		return
	}
	updated, err := s.store.Update(chi.URLParam(r, "id"), rec)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Recording not found")
		return
	}
	if err != nil {
		s.log.WithRequest(r).WithError(err).Error("update recording")
		writeError(w, http.StatusInternalServerError, "Failed to update recording")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) deleteRecording(w http.ResponseWriter, r *http.Request) {
	log := s.log.WithRequest(r)
	removed, err := s.store.Delete(chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Recording not found")
		return
	}
	if err != nil {
		log.WithError(err).Error("delete recording")
		writeError(w, http.StatusInternalServerError, "Failed to delete recording")
		return
	}
	if removed.AudioPath != "" {
		if err := os.Remove(removed.AudioPath); err != nil && !os.IsNotExist(err) {
			log.WithError(err).WithField("file", removed.AudioPath).Warn("audio file not removed")
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Recording deleted successfully"})
}

// summarize generates a meeting summary from the stored transcript and
// saves it on the recording.
func (s *Server) summarize(w http.ResponseWriter, r *http.Request) {
	log := s.log.WithRequest(r).WithField("handler", "summary")
	id := chi.URLParam(r, "id")

	var info extractor.MeetingInfo
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&info); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "Invalid meeting info")
			return
		}
	}

	rec, err := s.store.Get(id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Recording not found")
		return
	}
	if err != nil {
		log.WithError(err).Error("get recording")
		writeError(w, http.StatusInternalServerError, "Failed to generate summary")
		return
	}

	summary, err := s.summarizer.Summarize(r.Context(), rec.Transcription, info)
	if errors.Is(err, extractor.ErrEmptyTranscript) {
		writeError(w, http.StatusBadRequest, "Recording has no transcription")
		return
	}
	if err != nil {
		log.WithError(err).Error("summarize")
		writeJSON(w, http.StatusInternalServerError, types.ErrorResponse{Error: "Failed to generate summary", Details: err.Error()})
		return
	}

	rec.MeetingSummary = &summary
	updated, err := s.store.Update(id, rec)
	if err != nil {
		log.WithError(err).Error("save summary")
		writeError(w, http.StatusInternalServerError, "Failed to generate summary")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	recs, err := s.store.List()
	if err != nil {
		s.log.WithRequest(r).WithError(err).Error("list recordings")
		writeError(w, http.StatusInternalServerError, "Failed to fetch recordings")
		return
	}
	writeJSON(w, http.StatusOK, aggregator.Aggregate(recs))
}

func (s *Server) exportRecordings(w http.ResponseWriter, r *http.Request) {
	log := s.log.WithRequest(r)
	recs, err := s.store.List()
	if err != nil {
		log.WithError(err).Error("list recordings")
		writeError(w, http.StatusInternalServerError, "Failed to fetch recordings")
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="recordings.xlsx"`)
	if err := dataset.Export(w, recs); err != nil {
		log.WithError(err).Error("export recordings")
	}
}
