package normalize

import (
	"strconv"

	"voice-memos-go/internal/media"
)

// Strategy is one way of re-encoding an input. Every strategy produces mono
// 16kHz output; they differ in codec and container.
type Strategy struct {
	Name      string
	Ext       string
	CodecArgs []string
}

func (s Strategy) outputArgs() []string {
	args := []string{"-vn"}
	args = append(args, s.CodecArgs...)
	return append(args,
		"-ac", strconv.Itoa(media.CanonicalChannels),
		"-ar", strconv.Itoa(media.CanonicalSampleRate),
	)
}

var (
	MP3 = Strategy{
		Name:      "mp3",
		Ext:       media.CanonicalExt,
		CodecArgs: []string{"-c:a", media.CanonicalCodec, "-b:a", media.CanonicalBitrate},
	}
	WAV = Strategy{
		Name:      "wav",
		Ext:       ".wav",
		CodecArgs: []string{"-c:a", "pcm_s16le"},
	}
	OGG = Strategy{
		Name:      "ogg",
		Ext:       ".ogg",
		CodecArgs: []string{"-c:a", "libvorbis", "-q:a", "3"},
	}
	FLAC = Strategy{
		Name:      "flac",
		Ext:       ".flac",
		CodecArgs: []string{"-c:a", "flac", "-compression_level", "8"},
	}
)

// DefaultStrategies is what Normalize tries unless configured otherwise.
// Only MP3 is small enough to be useful for transcription.
func DefaultStrategies() []Strategy { return []Strategy{MP3} }

// RepairStrategies is the list Repair walks, most compatible first.
func RepairStrategies() []Strategy { return []Strategy{WAV, MP3, OGG, FLAC} }

// StrategyByName looks up one of the built-in strategies.
func StrategyByName(name string) (Strategy, bool) {
	for _, s := range RepairStrategies() {
		if s.Name == name {
			return s, true
		}
	}
	return Strategy{}, false
}
