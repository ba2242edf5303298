package aggregator

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voice-memos-go/internal/types"
)

func sample() []types.Recording {
	summary := "## Meeting Summary"
	empty := ""
	return []types.Recording{
		{ID: "1", Language: "english", Tags: []string{"work", "ideas"}, Timestamp: time.Date(2025, 1, 2, 23, 30, 0, 0, time.UTC), MeetingSummary: &summary},
		{ID: "2", Language: "hebrew", Tags: []string{"family"}, Timestamp: time.Date(2025, 1, 2, 8, 0, 0, 0, time.UTC), MeetingSummary: &empty},
		{ID: "3", Language: "english", Tags: []string{"work"}, Timestamp: time.Date(2025, 1, 3, 8, 0, 0, 0, time.UTC)},
		{ID: "4", Language: "hebrew"},
	}
}

func TestAggregate(t *testing.T) {
	in := Aggregate(sample())

	assert.Equal(t, 4, in.Total)
	assert.Equal(t, map[string]int{"english": 2, "hebrew": 2}, in.ByLanguage)
	assert.Equal(t, map[string]int{"work": 2, "ideas": 1, "family": 1}, in.TagCounts)
	assert.Equal(t, map[string]int{"2025-01-02": 2, "2025-01-03": 1}, in.ByDay)
	assert.Equal(t, 1, in.WithSummary)
	assert.Len(t, in.TagColors, 3)
}

func TestAggregate_Empty(t *testing.T) {
	in := Aggregate(nil)
	assert.Zero(t, in.Total)
	assert.NotNil(t, in.ByLanguage)
	assert.NotNil(t, in.TagColors)
}

func TestTagColors_FirstAppearanceOrder(t *testing.T) {
	colors := TagColors(sample())
	assert.Equal(t, map[string]string{
		"work":   "#4a6fa5",
		"ideas":  "#e74c3c",
		"family": "#2ecc71",
	}, colors)
}

func TestTagColors_WrapsPalette(t *testing.T) {
	var tags []string
	for i := 0; i < len(Palette)+2; i++ {
		tags = append(tags, fmt.Sprintf("t%02d", i))
	}
	colors := TagColors([]types.Recording{{Tags: tags}})
	require.Len(t, colors, len(Palette)+2)
	assert.Equal(t, Palette[0], colors["t20"])
	assert.Equal(t, Palette[1], colors["t21"])
}

func TestFilter(t *testing.T) {
	recs := sample()
	ids := func(rs []types.Recording) []string {
		var out []string
		for _, r := range rs {
			out = append(out, r.ID)
		}
		return out
	}

	assert.Equal(t, []string{"1", "2", "3", "4"}, ids(Filter(recs, nil, nil)))
	assert.Equal(t, []string{"2", "4"}, ids(Filter(recs, []string{"hebrew"}, nil)))
	assert.Equal(t, []string{"1", "3"}, ids(Filter(recs, nil, []string{"work"})))
	assert.Equal(t, []string{"2"}, ids(Filter(recs, []string{"hebrew"}, []string{"work", "family"})))
	assert.Empty(t, Filter(recs, []string{"french"}, nil))
}
