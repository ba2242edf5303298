package media

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"voice-memos-go/internal/types"
)

// webmMagic is the EBML header every WebM / Matroska file starts with.
var webmMagic = []byte{0x1A, 0x45, 0xDF, 0xA3}

// Validation reasons.
const (
	ReasonMissing     = "file not found"
	ReasonEmpty       = "file is empty"
	ReasonBadHeader   = "invalid container header"
	ReasonProbeFailed = "media probe failed"
	ReasonNoAudio     = "no audio stream"
)

// Validation is the outcome of ValidateContainer. Diagnostic carries
// human-readable detail in both the valid and the invalid case.
type Validation struct {
	Valid      bool
	Reason     string
	Diagnostic string
}

func (v Validation) String() string {
	if v.Valid {
		return "valid: " + v.Diagnostic
	}
	if v.Diagnostic == "" {
		return "invalid: " + v.Reason
	}
	return fmt.Sprintf("invalid: %s (%s)", v.Reason, v.Diagnostic)
}

// ProbeResult is the subset of ffprobe output the pipeline relies on.
type ProbeResult struct {
	DurationSeconds float64
	HasAudioStream  bool
	Channels        int
	SampleRate      int
	FormatName      string
	Raw             json.RawMessage
}

type probeData struct {
	Streams []struct {
		CodecType  string `json:"codec_type"`
		CodecName  string `json:"codec_name"`
		Channels   int    `json:"channels,omitempty"`
		SampleRate string `json:"sample_rate,omitempty"`
		Duration   string `json:"duration,omitempty"`
	} `json:"streams"`
	Format struct {
		Duration   string `json:"duration"`
		FormatName string `json:"format_name"`
	} `json:"format"`
}

// Inspector answers questions about audio files using ffprobe and ffmpeg.
type Inspector struct {
	runner Runner
	tools  Tools
	log    *logrus.Entry
}

func NewInspector(runner Runner, tools Tools, log *logrus.Entry) *Inspector {
	return &Inspector{
		runner: runner,
		tools:  tools.withDefaults(),
		log:    log.WithField("component", "inspector"),
	}
}

// Probe runs ffprobe against the asset. ffprobe may exit non-zero on
// truncated recordings while still printing usable JSON; such output is
// accepted with a warning.
func (i *Inspector) Probe(ctx context.Context, asset types.AudioAsset) (ProbeResult, error) {
	asset, err := Require(asset)
	if err != nil {
		return ProbeResult{}, err
	}

	args := []string{"-v", "error"}
	args = append(args, TolerantInputArgs(asset.Ext)...)
	args = append(args, "-print_format", "json", "-show_format", "-show_streams", asset.Path)

	stdout, stderr, runErr := i.runner.Run(ctx, i.tools.FFprobe, args...)

	var data probeData
	jsonErr := json.Unmarshal(stdout, &data)
	if jsonErr != nil || data.Format.FormatName == "" {
		if runErr != nil {
			return ProbeResult{}, &ProbeError{Path: asset.Path, Err: runErr, Stderr: tail(stderr)}
		}
		if jsonErr != nil {
			return ProbeResult{}, &ProbeError{Path: asset.Path, Err: fmt.Errorf("decode ffprobe json: %w", jsonErr)}
		}
		return ProbeResult{}, &ProbeError{Path: asset.Path, Err: errors.New("ffprobe reported no format")}
	}
	if runErr != nil {
		i.log.WithError(runErr).WithFields(logrus.Fields{
			"path":   asset.Path,
			"stderr": tail(stderr),
		}).Warn("ffprobe non-zero exit but JSON accepted")
	}

	res := ProbeResult{
		FormatName: data.Format.FormatName,
		Raw:        json.RawMessage(stdout),
	}
	if d, err := strconv.ParseFloat(data.Format.Duration, 64); err == nil {
		res.DurationSeconds = d
	}
	for _, s := range data.Streams {
		if s.CodecType != "audio" {
			continue
		}
		if !res.HasAudioStream {
			res.HasAudioStream = true
			res.Channels = s.Channels
			res.SampleRate, _ = strconv.Atoi(s.SampleRate)
		}
		// WebM from MediaRecorder often lacks a container duration.
		if res.DurationSeconds == 0 {
			if d, err := strconv.ParseFloat(s.Duration, 64); err == nil {
				res.DurationSeconds = d
			}
		}
	}
	return res, nil
}

// ValidateContainer decides whether path is worth sending down the pipeline.
// It never returns an error; callers inspect Valid.
func (i *Inspector) ValidateContainer(ctx context.Context, path string) Validation {
	asset, err := Stat(path)
	if err != nil {
		switch {
		case errors.Is(err, ErrMissingFile):
			return Validation{Reason: ReasonMissing, Diagnostic: path}
		case errors.Is(err, ErrEmptyFile):
			return Validation{Reason: ReasonEmpty, Diagnostic: "0 bytes"}
		default:
			return Validation{Reason: ReasonMissing, Diagnostic: err.Error()}
		}
	}

	headerNote := ""
	if asset.Ext == ".webm" {
		header, err := readHeader(path, len(webmMagic))
		if err != nil {
			return Validation{Reason: ReasonBadHeader, Diagnostic: err.Error()}
		}
		if !bytes.Equal(header, webmMagic) {
			return Validation{
				Reason:     ReasonBadHeader,
				Diagnostic: fmt.Sprintf("expected % X, got % X", webmMagic, header),
			}
		}
		headerNote = "WebM header OK, "
	}

	res, err := i.Probe(ctx, asset)
	if err != nil {
		return Validation{Reason: ReasonProbeFailed, Diagnostic: err.Error()}
	}
	if !res.HasAudioStream {
		return Validation{Reason: ReasonNoAudio, Diagnostic: "format " + res.FormatName}
	}

	return Validation{
		Valid: true,
		Diagnostic: fmt.Sprintf("%s%s, %d bytes, %.2fs",
			headerNote, res.FormatName, asset.Size, res.DurationSeconds),
	}
}

func readHeader(path string, n int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, n)
	read, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("read header: %w", err)
	}
	return buf[:read], nil
}

var (
	silenceStartRe = regexp.MustCompile(`silence_start:\s*(-?[\d.]+)`)
	silenceEndRe   = regexp.MustCompile(`silence_end:\s*(-?[\d.]+)\s*\|\s*silence_duration:\s*([\d.]+)`)
)

// DetectSilences runs ffmpeg silencedetect over the asset. An asset with no
// silence yields an empty slice, not an error.
func (i *Inspector) DetectSilences(ctx context.Context, asset types.AudioAsset, thresholdDB, minDurationSeconds float64) ([]types.SilenceInterval, error) {
	asset, err := Require(asset)
	if err != nil {
		return nil, err
	}

	filter := fmt.Sprintf("silencedetect=noise=%sdB:d=%s",
		strconv.FormatFloat(thresholdDB, 'f', -1, 64),
		strconv.FormatFloat(minDurationSeconds, 'f', -1, 64))

	args := []string{"-hide_banner", "-nostats"}
	args = append(args, TolerantInputArgs(asset.Ext)...)
	args = append(args, "-i", asset.Path, "-af", filter, "-f", "null", "-")

	// silencedetect reports on stderr.
	stdout, stderr, err := i.runner.Run(ctx, i.tools.FFmpeg, args...)
	if err != nil {
		return nil, &ProbeError{Path: asset.Path, Err: fmt.Errorf("silencedetect: %w", err), Stderr: tail(stderr)}
	}

	silences := parseSilences(string(stderr) + string(stdout))
	i.log.WithFields(logrus.Fields{
		"path":     asset.Path,
		"silences": len(silences),
	}).Debug("silence detection finished")
	return silences, nil
}

// parseSilences pairs silence_start / silence_end lines in order. Output with
// unmatched lines is treated as having no usable silences.
func parseSilences(output string) []types.SilenceInterval {
	starts := silenceStartRe.FindAllStringSubmatch(output, -1)
	ends := silenceEndRe.FindAllStringSubmatch(output, -1)
	if len(starts) == 0 || len(starts) != len(ends) {
		return []types.SilenceInterval{}
	}

	out := make([]types.SilenceInterval, 0, len(starts))
	for k := range starts {
		start, err1 := strconv.ParseFloat(starts[k][1], 64)
		end, err2 := strconv.ParseFloat(ends[k][1], 64)
		dur, err3 := strconv.ParseFloat(ends[k][2], 64)
		if err1 != nil || err2 != nil || err3 != nil {
			return []types.SilenceInterval{}
		}
		if start < 0 {
			start = 0
		}
		out = append(out, types.SilenceInterval{Start: start, End: end, Duration: dur})
	}
	return out
}

// FormatSeconds renders a timestamp for ffmpeg -ss / -to arguments.
func FormatSeconds(s float64) string {
	return strings.TrimRight(strings.TrimRight(strconv.FormatFloat(s, 'f', 3, 64), "0"), ".")
}
