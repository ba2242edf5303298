package extractor

import (
	"context"
	"errors"
	"strings"
)

const summaryMaxTokens = 1000

// MeetingInfo is optional context the user supplies with a summary request.
type MeetingInfo struct {
	Description  string `json:"description"`
	Participants string `json:"participants"`
}

var ErrEmptyTranscript = errors.New("transcript is empty")

type Summarizer struct {
	llm Completer
}

func NewSummarizer(llm Completer) *Summarizer {
	return &Summarizer{llm: llm}
}

// BuildSummaryPrompt returns the user message for a summary request.
func BuildSummaryPrompt(transcript string, info MeetingInfo) string {
	var b strings.Builder
	if d := strings.TrimSpace(info.Description); d != "" {
		b.WriteString("Meeting description: " + d + "\n")
	}
	if p := strings.TrimSpace(info.Participants); p != "" {
		b.WriteString("Participants: " + p + "\n")
	}
	if b.Len() > 0 {
		b.WriteString("\n")
	}
	b.WriteString("Transcript:\n")
	b.WriteString(transcript)
	return b.String()
}

// Summarize returns a markdown summary with a "Meeting Summary" bullet list
// and numbered "Action Items".
func (s *Summarizer) Summarize(ctx context.Context, transcript string, info MeetingInfo) (string, error) {
	if strings.TrimSpace(transcript) == "" {
		return "", ErrEmptyTranscript
	}
	return s.llm.Complete(ctx, Request{
		Purpose: purposeSummary,
		System: `You write concise meeting summaries from transcripts.
Respond in markdown with exactly two sections:
## Meeting Summary
(bullet points of the key discussion points and decisions)
## Action Items
(a numbered list; name the owner when the transcript does)
Use only information present in the transcript. Write in the transcript's language.`,
		User:      BuildSummaryPrompt(transcript, info),
		MaxTokens: summaryMaxTokens,
	})
}
