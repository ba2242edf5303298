package extractor

import (
	"context"
	"fmt"
	"strings"
)

const (
	purposeTitle   = "title"
	purposeSummary = "summary"

	// DefaultTitle is used when no title can be generated.
	DefaultTitle = "Untitled Recording"

	titleMaxTokens = 20
)

type Titler struct {
	llm Completer
}

func NewTitler(llm Completer) *Titler {
	return &Titler{llm: llm}
}

// Title asks for a 3-5 word title. language is the UI language name
// ("hebrew", "english") and is used verbatim in the instruction.
func (t *Titler) Title(ctx context.Context, transcript, language string) (string, error) {
	if strings.TrimSpace(transcript) == "" {
		return DefaultTitle, nil
	}
	if language == "" {
		language = "english"
	}

	title, err := t.llm.Complete(ctx, Request{
		Purpose:   purposeTitle,
		System:    fmt.Sprintf("Generate a short, concise title (3-5 words) that captures the essence of the following %s text. Return only the title, nothing else.", language),
		User:      transcript,
		MaxTokens: titleMaxTokens,
	})
	if err != nil {
		return "", err
	}

	title = strings.Trim(strings.TrimSpace(title), `"'`)
	if title == "" {
		return DefaultTitle, nil
	}
	return title, nil
}
