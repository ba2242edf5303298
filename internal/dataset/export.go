// Package dataset exports recordings to a spreadsheet and reads such
// spreadsheets back.
package dataset

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"voice-memos-go/internal/aggregator"
	"voice-memos-go/internal/types"
)

const (
	RecordingsSheet = "Recordings"
	SummarySheet    = "Summary"
)

var recordingHeader = []any{"ID", "Title", "Timestamp", "Language", "Tags", "Transcription", "Meeting Summary", "Audio Path"}

// Export writes an xlsx workbook with one row per recording and a summary
// sheet of counts.
func Export(w io.Writer, recs []types.Recording) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), RecordingsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	if err := f.SetSheetRow(RecordingsSheet, "A1", &recordingHeader); err != nil {
		return err
	}
	for i, r := range recs {
		summary := ""
		if r.MeetingSummary != nil {
			summary = *r.MeetingSummary
		}
		row := []any{
			r.ID,
			r.Title,
			r.Timestamp.UTC().Format(time.RFC3339),
			r.Language,
			strings.Join(r.Tags, ", "),
			r.Transcription,
			summary,
			r.AudioPath,
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(RecordingsSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if err := f.SetRowStyle(RecordingsSheet, 1, 1, bold); err != nil {
		return err
	}

	if _, err := f.NewSheet(SummarySheet); err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}
	if err := writeSummary(f, aggregator.Aggregate(recs), bold); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSummary(f *excelize.File, in aggregator.Insight, bold int) error {
	rows := [][]any{
		{"Metric", "Key", "Count"},
		{"total", "", in.Total},
		{"with_summary", "", in.WithSummary},
	}
	for _, k := range sortedKeys(in.ByLanguage) {
		rows = append(rows, []any{"language", k, in.ByLanguage[k]})
	}
	for _, k := range sortedKeys(in.TagCounts) {
		rows = append(rows, []any{"tag", k, in.TagCounts[k]})
	}
	for _, k := range sortedKeys(in.ByDay) {
		rows = append(rows, []any{"day", k, in.ByDay[k]})
	}

	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(SummarySheet, cell, &row); err != nil {
			return fmt.Errorf("write summary row %d: %w", i+1, err)
		}
	}
	return f.SetRowStyle(SummarySheet, 1, 1, bold)
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
