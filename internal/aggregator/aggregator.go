package aggregator

import (
	"voice-memos-go/internal/types"
)

type Insight struct {
	Total       int               `json:"total"`
	ByLanguage  map[string]int    `json:"by_language"`
	TagCounts   map[string]int    `json:"tag_counts"`
	ByDay       map[string]int    `json:"by_day"`
	WithSummary int               `json:"with_summary"`
	TagColors   map[string]string `json:"tag_colors"`
}

// Aggregate computes calendar and filter statistics. Days are UTC dates.
func Aggregate(records []types.Recording) Insight {
	langs := map[string]int{}
	tags := map[string]int{}
	days := map[string]int{}
	withSummary := 0
	for _, r := range records {
		if r.Language != "" {
			langs[r.Language]++
		}
		for _, t := range r.Tags {
			if t != "" {
				tags[t]++
			}
		}
		if !r.Timestamp.IsZero() {
			days[r.Timestamp.UTC().Format("2006-01-02")]++
		}
		if r.MeetingSummary != nil && *r.MeetingSummary != "" {
			withSummary++
		}
	}
	return Insight{
		Total:       len(records),
		ByLanguage:  langs,
		TagCounts:   tags,
		ByDay:       days,
		WithSummary: withSummary,
		TagColors:   TagColors(records),
	}
}

// Filter keeps recordings matching any of languages and any of tags. An
// empty set places no constraint.
func Filter(records []types.Recording, languages, tags []string) []types.Recording {
	langSet := toSet(languages)
	tagSet := toSet(tags)

	out := make([]types.Recording, 0, len(records))
	for _, r := range records {
		if len(langSet) > 0 && !langSet[r.Language] {
			continue
		}
		if len(tagSet) > 0 && !anyIn(r.Tags, tagSet) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func toSet(vals []string) map[string]bool {
	set := make(map[string]bool, len(vals))
	for _, v := range vals {
		if v != "" {
			set[v] = true
		}
	}
	return set
}

func anyIn(vals []string, set map[string]bool) bool {
	for _, v := range vals {
		if set[v] {
			return true
		}
	}
	return false
}
