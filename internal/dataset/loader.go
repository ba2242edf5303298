package dataset

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"voice-memos-go/internal/types"
)

// Load reads recordings from a workbook written by Export. Columns are
// located by header name so reordered or trimmed sheets still load; only the
// ID column is required.
func Load(r io.Reader) ([]types.Recording, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := RecordingsSheet
	if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("no sheets")
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no header row")
	}

	col := map[string]int{}
	for i, h := range rows[0] {
		l := strings.ToLower(strings.TrimSpace(h))
		switch {
		case l == "id":
			col["id"] = i
		case strings.Contains(l, "title"):
			col["title"] = i
		case strings.Contains(l, "time") || strings.Contains(l, "date"):
			col["timestamp"] = i
		case strings.Contains(l, "lang"):
			col["language"] = i
		case strings.Contains(l, "tag"):
			col["tags"] = i
		case strings.Contains(l, "transcript"):
			col["transcription"] = i
		case strings.Contains(l, "summary"):
			col["summary"] = i
		case strings.Contains(l, "audio") || strings.Contains(l, "path"):
			col["audio"] = i
		}
	}
	if _, ok := col["id"]; !ok {
		return nil, fmt.Errorf("sheet %q has no ID column", sheet)
	}

	get := func(row []string, key string) string {
		i, ok := col[key]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	out := []types.Recording{}
	for n, row := range rows[1:] {
		id := strings.TrimSpace(get(row, "id"))
		if id == "" {
			continue
		}
		rec := types.Recording{
			ID:            id,
			Title:         get(row, "title"),
			Language:      get(row, "language"),
			Transcription: get(row, "transcription"),
			AudioPath:     get(row, "audio"),
			Tags:          splitTags(get(row, "tags")),
		}
		if ts := get(row, "timestamp"); ts != "" {
			t, err := time.Parse(time.RFC3339, ts)
			if err != nil {
				return nil, fmt.Errorf("row %d: bad timestamp %q: %w", n+2, ts, err)
			}
			rec.Timestamp = t
		}
		if s := get(row, "summary"); s != "" {
			rec.MeetingSummary = &s
		}
		out = append(out, rec)
	}
	return out, nil
}

func splitTags(s string) []string {
	tags := []string{}
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
