// Package transcription sends audio to a Whisper-compatible speech API.
package transcription

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

// Client turns one audio file into text. language is an ISO-639-1 code.
type Client interface {
	Transcribe(ctx context.Context, path, language string) (string, error)
}

// ErrUnsupportedLanguage is returned by LanguageCode.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// LanguageCode maps the UI language names to the codes the API expects.
// An empty name means english.
func LanguageCode(language string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(language)) {
	case "", "english", "en":
		return "en", nil
	case "hebrew", "he":
		return "he", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedLanguage, language)
	}
}

// APIError is a non-2xx answer from the transcription endpoint.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("transcription api http %d: %s", e.StatusCode, e.Body)
}

type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	// HTTPClient defaults to a client without a global timeout; callers
	// bound each call through the context.
	HTTPClient *http.Client
	// Retries is the number of extra attempts after a 429, a 5xx or a
	// network error. Zero means 2; negative disables retrying.
	Retries int
	// RetryWait is the first backoff interval. Zero means one second.
	RetryWait time.Duration
}

// HTTPClient posts multipart requests to {BaseURL}/audio/transcriptions and
// asks for response_format=text. The file is streamed, never buffered, and
// reopened for every attempt.
type HTTPClient struct {
	endpoint  string
	apiKey    string
	model     string
	retries   int
	retryWait time.Duration
	hc        *http.Client
	log       *logrus.Entry
}

func NewHTTPClient(cfg Config, log *logrus.Entry) *HTTPClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "whisper-1"
	}
	switch {
	case cfg.Retries == 0:
		cfg.Retries = 2
	case cfg.Retries < 0:
		cfg.Retries = 0
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = time.Second
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	return &HTTPClient{
		endpoint:  strings.TrimRight(cfg.BaseURL, "/") + "/audio/transcriptions",
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		retries:   cfg.Retries,
		retryWait: cfg.RetryWait,
		hc:        hc,
		log:       log.WithField("component", "transcription"),
	}
}

func (c *HTTPClient) Transcribe(ctx context.Context, path, language string) (string, error) {
	var text string
	op := func() error {
		var err error
		text, err = c.attempt(ctx, path, language)
		if err == nil {
			return nil
		}
		if !retryable(ctx, err) {
			return backoff.Permanent(err)
		}
		c.log.WithError(err).WithField("file", filepath.Base(path)).Warn("transcription attempt failed")
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.retryWait
	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(c.retries)), ctx)); err != nil {
		return "", err
	}
	return text, nil
}

// retryable reports whether a failed attempt may succeed if repeated.
func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, os.ErrNotExist) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}
	return true
}

func (c *HTTPClient) attempt(ctx context.Context, path, language string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	done := make(chan struct{})
	go func() {
		defer close(done)
		pw.CloseWithError(writeForm(mw, f, filepath.Base(path), c.model, language))
	}()
	defer func() {
		pr.Close()
		<-done
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, pr)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read transcription response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return "", &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	text := strings.TrimSpace(string(body))
	c.log.WithFields(logrus.Fields{
		"file":     filepath.Base(path),
		"language": language,
		"chars":    len(text),
		"took":     time.Since(start).String(),
	}).Info("chunk transcribed")
	return text, nil
}

func writeForm(mw *multipart.Writer, src io.Reader, filename, model, language string) error {
	fields := [][2]string{
		{"model", model},
		{"response_format", "text"},
	}
	if language != "" {
		fields = append(fields, [2]string{"language", language})
	}
	for _, kv := range fields {
		if err := mw.WriteField(kv[0], kv[1]); err != nil {
			return err
		}
	}
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return err
	}
	if _, err := io.Copy(fw, src); err != nil {
		return err
	}
	return mw.Close()
}

// Mock returns a canned transcript naming the file, so joined output shows
// chunk order.
type Mock struct{}

func (Mock) Transcribe(ctx context.Context, path, language string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return fmt.Sprintf("MOCK TRANSCRIPT [%s] %s", language, filepath.Base(path)), nil
}

// New returns the mock when USE_MOCK_TRANSCRIBE=true, the HTTP client otherwise.
func New(cfg Config, useMock bool, log *logrus.Entry) Client {
	if useMock {
		log.WithField("component", "transcription").Warn("using mock transcription")
		return Mock{}
	}
	return NewHTTPClient(cfg, log)
}
