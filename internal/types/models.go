package types

import "time"

// Recording is one entry of recordings/metadata.json. Field names follow the
// file format the browser client already reads.
type Recording struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Timestamp      time.Time `json:"timestamp"`
	Language       string    `json:"language"`
	AudioPath      string    `json:"audioPath"`
	Transcription  string    `json:"transcription"`
	Tags           []string  `json:"tags"`
	MeetingSummary *string   `json:"meetingSummary"`
}

// ErrorResponse is the JSON body of every non-2xx API answer.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Message string `json:"message,omitempty"`
}
