package media

import "strconv"

// Canonical output shape for everything sent to transcription: mono 16kHz
// 64kbps MP3. Speech stays intelligible and an hour is roughly 28MB.
const (
	CanonicalCodec      = "libmp3lame"
	CanonicalBitrate    = "64k"
	CanonicalChannels   = 1
	CanonicalSampleRate = 16000
	CanonicalExt        = ".mp3"
)

// ResampleFilter pads or trims audio to match timestamps, which repairs the
// drift browser WebM recordings usually carry.
const ResampleFilter = "aresample=async=1"

// CanonicalEncodeArgs are the ffmpeg output options for the canonical shape.
func CanonicalEncodeArgs() []string {
	return []string{
		"-vn",
		"-c:a", CanonicalCodec,
		"-b:a", CanonicalBitrate,
		"-ac", strconv.Itoa(CanonicalChannels),
		"-ar", strconv.Itoa(CanonicalSampleRate),
	}
}
