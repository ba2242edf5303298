package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voice-memos-go/internal/logger"
	"voice-memos-go/internal/types"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "recordings"), logger.Discard().Entry)
	require.NoError(t, err)
	return s
}

func rec(id string) types.Recording {
	return types.Recording{
		ID:            id,
		Title:         "Title " + id,
		Timestamp:     time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		Language:      "english",
		AudioPath:     "/uploads/recording-" + id + ".webm",
		Transcription: "hello",
	}
}

func TestStore_EmptyWhenMissing(t *testing.T) {
	s := openTemp(t)
	recs, err := s.List()
	require.NoError(t, err)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)
}

func TestStore_AddGetListRoundTrip(t *testing.T) {
	s := openTemp(t)
	require.NoError(t, s.Add(rec("a")))
	require.NoError(t, s.Add(rec("b")))

	got, err := s.Get("b")
	require.NoError(t, err)
	assert.Equal(t, "Title b", got.Title)
	assert.Equal(t, []string{}, got.Tags)
	assert.Nil(t, got.MeetingSummary)

	recs, err := s.List()
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "a", recs[0].ID)

	assert.ErrorIs(t, s.Add(rec("a")), ErrDuplicate)
	assert.ErrorIs(t, s.Add(types.Recording{}), ErrNoID)
}

func TestStore_FileFormat(t *testing.T) {
	s := openTemp(t)
	require.NoError(t, s.Add(rec("a")))

	b, err := os.ReadFile(s.Path())
	require.NoError(t, err)

	var raw []map[string]any
	require.NoError(t, json.Unmarshal(b, &raw))
	require.Len(t, raw, 1)
	assert.Contains(t, raw[0], "audioPath")
	assert.Contains(t, raw[0], "meetingSummary")
	assert.Nil(t, raw[0]["meetingSummary"])
	assert.Equal(t, []any{}, raw[0]["tags"])
}

func TestStore_UpdatePreservesAudioPath(t *testing.T) {
	s := openTemp(t)
	require.NoError(t, s.Add(rec("a")))

	summary := "## Meeting Summary"
	in := rec("ignored")
	in.Title = "Renamed"
	in.AudioPath = "/etc/passwd"
	in.Tags = []string{"work"}
	in.MeetingSummary = &summary

	out, err := s.Update("a", in)
	require.NoError(t, err)
	assert.Equal(t, "a", out.ID)
	assert.Equal(t, "/uploads/recording-a.webm", out.AudioPath)
	assert.Equal(t, "Renamed", out.Title)

	got, err := s.Get("a")
	require.NoError(t, err)
	assert.Equal(t, out, got)
	require.NotNil(t, got.MeetingSummary)
	assert.Equal(t, summary, *got.MeetingSummary)

	_, err = s.Update("zzz", in)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_DeleteReturnsRecord(t *testing.T) {
	s := openTemp(t)
	require.NoError(t, s.Add(rec("a")))
	require.NoError(t, s.Add(rec("b")))

	removed, err := s.Delete("a")
	require.NoError(t, err)
	assert.Equal(t, "/uploads/recording-a.webm", removed.AudioPath)

	recs, _ := s.List()
	require.Len(t, recs, 1)
	assert.Equal(t, "b", recs[0].ID)

	_, err = s.Delete("a")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_CorruptFile(t *testing.T) {
	s := openTemp(t)
	require.NoError(t, os.WriteFile(s.Path(), []byte("{not json"), 0o644))

	_, err := s.List()
	assert.Error(t, err)
}

func TestStore_ConcurrentAdds(t *testing.T) {
	s := openTemp(t)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Add(rec(string(rune('a'+i)))))
		}()
	}
	wg.Wait()

	recs, err := s.List()
	require.NoError(t, err)
	assert.Len(t, recs, 20)
}
