package aggregator

import "voice-memos-go/internal/types"

// Palette is the tag color cycle used by the browser client.
var Palette = []string{
	"#4a6fa5", "#e74c3c", "#2ecc71", "#9b59b6", "#f39c12",
	"#1abc9c", "#d35400", "#3498db", "#e67e22", "#16a085",
	"#8e44ad", "#27ae60", "#c0392b", "#2980b9", "#f1c40f",
	"#7f8c8d", "#2c3e50", "#e84393", "#6c5ce7", "#00cec9",
}

// TagColors assigns palette colors to tags in order of first appearance,
// wrapping after the palette is exhausted. The same records always produce
// the same assignment.
func TagColors(records []types.Recording) map[string]string {
	colors := map[string]string{}
	next := 0
	for _, r := range records {
		for _, t := range r.Tags {
			if t == "" {
				continue
			}
			if _, ok := colors[t]; ok {
				continue
			}
			colors[t] = Palette[next%len(Palette)]
			next++
		}
	}
	return colors
}
