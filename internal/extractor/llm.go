// Package extractor derives titles and meeting summaries from transcripts
// with a chat-completion model.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/sirupsen/logrus"
)

// Request is one chat completion: a system instruction and the user text.
type Request struct {
	// Purpose names the request in logs and lets the mock answer sensibly.
	Purpose   string
	System    string
	User      string
	MaxTokens int64
}

// Completer runs a single chat completion and returns the reply text.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	// MaxRetry bounds the total time spent retrying one request.
	MaxRetry time.Duration
	// AttemptTimeout bounds each HTTP attempt.
	AttemptTimeout time.Duration
	HTTPClient     *http.Client
}

// OpenAI is a Completer backed by the chat completions API. Transient
// failures are retried with exponential backoff; 4xx answers other than 429
// are permanent.
type OpenAI struct {
	client   openai.Client
	model    string
	maxRetry time.Duration
	attempt  time.Duration
	log      *logrus.Entry
}

func NewOpenAI(cfg Config, log *logrus.Entry) *OpenAI {
	if cfg.Model == "" {
		cfg.Model = "gpt-4o"
	}
	if cfg.MaxRetry <= 0 {
		cfg.MaxRetry = 45 * time.Second
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = 25 * time.Second
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		// Retries are ours, so the SDK must not add its own.
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	return &OpenAI{
		client:   openai.NewClient(opts...),
		model:    cfg.Model,
		maxRetry: cfg.MaxRetry,
		attempt:  cfg.AttemptTimeout,
		log:      log.WithField("component", "llm"),
	}
}

func (o *OpenAI) Complete(ctx context.Context, req Request) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: o.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.User),
		},
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(req.MaxTokens)
	}

	log := o.log.WithFields(logrus.Fields{"purpose": req.Purpose, "model": o.model})

	var reply string
	var lastErr error
	op := func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, o.attempt)
		defer cancel()

		resp, err := o.client.Chat.Completions.New(attemptCtx, params)
		if err != nil {
			lastErr = err
			var apiErr *openai.Error
			if errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 &&
				apiErr.StatusCode != http.StatusTooManyRequests {
				return backoff.Permanent(err)
			}
			log.WithError(err).Warn("llm request failed")
			return err
		}
		if len(resp.Choices) == 0 {
			lastErr = errors.New("llm returned no choices")
			return lastErr
		}
		reply = strings.TrimSpace(resp.Choices[0].Message.Content)
		lastErr = nil
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = o.maxRetry
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		if lastErr == nil {
			lastErr = err
		}
		return "", fmt.Errorf("llm %s failed: %w", req.Purpose, lastErr)
	}
	return reply, nil
}

// Mock answers without network access. Use USE_MOCK_LLM=true.
type Mock struct{}

func (Mock) Complete(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	switch req.Purpose {
	case purposeTitle:
		words := strings.Fields(req.User)
		if len(words) > 4 {
			words = words[:4]
		}
		if len(words) == 0 {
			return "Mock Recording", nil
		}
		return strings.Join(words, " "), nil
	case purposeSummary:
		return "## Meeting Summary\n- Mock summary of the discussion\n\n## Action Items\n1. Review the mock summary", nil
	default:
		return "mock reply", nil
	}
}

// New returns the mock when useMock is set, the OpenAI completer otherwise.
func New(cfg Config, useMock bool, log *logrus.Entry) Completer {
	if useMock {
		log.WithField("component", "llm").Info("mock LLM mode ON")
		return Mock{}
	}
	return NewOpenAI(cfg, log)
}
