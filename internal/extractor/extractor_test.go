package extractor

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voice-memos-go/internal/logger"
)

type chatRequest struct {
	Model     string `json:"model"`
	MaxTokens int64  `json:"max_tokens"`
	Messages  []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func completion(content string) string {
	b, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "gpt-4o",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	})
	return string(b)
}

func newTestOpenAI(t *testing.T, h http.HandlerFunc) *OpenAI {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewOpenAI(Config{
		APIKey:   "sk-test",
		BaseURL:  srv.URL + "/v1/",
		MaxRetry: 5 * time.Second,
	}, logger.Discard().Entry)
}

func TestTitler_PromptAndTrim(t *testing.T) {
	var got chatRequest
	llm := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, completion(` "Weekly Team Sync" `))
	})

	title, err := NewTitler(llm).Title(context.Background(), "we talked about the roadmap", "hebrew")
	require.NoError(t, err)
	assert.Equal(t, "Weekly Team Sync", title)

	assert.Equal(t, "gpt-4o", got.Model)
	assert.Equal(t, int64(20), got.MaxTokens)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Contains(t, got.Messages[0].Content, "(3-5 words)")
	assert.Contains(t, got.Messages[0].Content, "following hebrew text")
	assert.Equal(t, "we talked about the roadmap", got.Messages[1].Content)
}

func TestOpenAI_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	llm := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = io.WriteString(w, `{"error":{"message":"upstream"}}`)
			return
		}
		_, _ = io.WriteString(w, completion("ok"))
	})

	out, err := llm.Complete(context.Background(), Request{Purpose: "test", System: "s", User: "u"})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, int32(2), calls.Load())
}

func TestOpenAI_ClientErrorIsPermanent(t *testing.T) {
	var calls atomic.Int32
	llm := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"message":"bad key","type":"invalid_request_error"}}`)
	})

	_, err := llm.Complete(context.Background(), Request{Purpose: "title", System: "s", User: "u"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "llm title failed")
	assert.Equal(t, int32(1), calls.Load())
}

type stubCompleter struct {
	reply string
	err   error
	last  Request
}

func (s *stubCompleter) Complete(_ context.Context, req Request) (string, error) {
	s.last = req
	return s.reply, s.err
}

func TestTitler_Defaults(t *testing.T) {
	stub := &stubCompleter{reply: "  "}
	tt := NewTitler(stub)

	title, err := tt.Title(context.Background(), "", "english")
	require.NoError(t, err)
	assert.Equal(t, DefaultTitle, title)

	title, err = tt.Title(context.Background(), "hello", "")
	require.NoError(t, err)
	assert.Equal(t, DefaultTitle, title, "blank reply falls back")
	assert.Contains(t, stub.last.System, "following english text")

	stub.err = errors.New("down")
	_, err = tt.Title(context.Background(), "hello", "english")
	assert.Error(t, err)
}

func TestSummarizer(t *testing.T) {
	stub := &stubCompleter{reply: "## Meeting Summary\n- a\n\n## Action Items\n1. b"}
	s := NewSummarizer(stub)

	out, err := s.Summarize(context.Background(), "we agreed on the budget", MeetingInfo{
		Description:  "Weekly team meeting",
		Participants: "John, Sarah",
	})
	require.NoError(t, err)
	assert.Equal(t, stub.reply, out)
	assert.Equal(t, purposeSummary, stub.last.Purpose)
	assert.Contains(t, stub.last.User, "Meeting description: Weekly team meeting")
	assert.Contains(t, stub.last.User, "Participants: John, Sarah")
	assert.Contains(t, stub.last.User, "we agreed on the budget")
	assert.Contains(t, stub.last.System, "## Action Items")

	_, err = s.Summarize(context.Background(), "  ", MeetingInfo{})
	assert.ErrorIs(t, err, ErrEmptyTranscript)
}

func TestBuildSummaryPrompt_NoInfo(t *testing.T) {
	assert.Equal(t, "Transcript:\nhello", BuildSummaryPrompt("hello", MeetingInfo{}))
}

func TestMock(t *testing.T) {
	c := New(Config{}, true, logger.Discard().Entry)

	title, err := NewTitler(c).Title(context.Background(), "one two three four five six", "english")
	require.NoError(t, err)
	assert.Equal(t, "one two three four", title)

	sum, err := NewSummarizer(c).Summarize(context.Background(), "text", MeetingInfo{})
	require.NoError(t, err)
	assert.Contains(t, sum, "## Meeting Summary")
}
