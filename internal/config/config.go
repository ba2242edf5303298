package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// MaxUploadBytes is the hard ceiling of the transcription API (25MB).
const MaxUploadBytes int64 = 25 * 1024 * 1024

// Config holds everything the server and the CLI read from the environment.
// Call godotenv.Load() before Load so a local .env file is honoured.
type Config struct {
	Port        string
	Environment string

	OpenAIAPIKey    string
	OpenAIBaseURL   string
	TranscribeModel string
	LLMModel        string
	LLMMaxRetry     time.Duration

	UploadsDir    string
	RecordingsDir string
	FrontendDir   string
	TempRoot      string

	FFmpegPath  string
	FFprobePath string

	MaxChunkBytes         int64
	SilenceThresholdDB    float64
	MinSilenceSeconds     float64
	TranscribeConcurrency int
	TranscribeTimeout     time.Duration
	EncodeTimeout         time.Duration
	WriteTranscriptCopy   bool

	UseMockTranscribe bool
	UseMockLLM        bool
}

// Load reads the process environment and applies defaults.
func Load() (Config, error) {
	cfg := Config{
		Port:            envOr("PORT", "3000"),
		Environment:     envOr("ENVIRONMENT", "local"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:   envOr("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		TranscribeModel: envOr("TRANSCRIBE_MODEL", "whisper-1"),
		LLMModel:        envOr("LLM_MODEL", "gpt-4o"),
		UploadsDir:      envOr("UPLOADS_DIR", "uploads"),
		RecordingsDir:   envOr("RECORDINGS_DIR", "recordings"),
		FrontendDir:     os.Getenv("FRONTEND_DIR"),
		TempRoot:        os.Getenv("TEMP_ROOT"),
		FFmpegPath:      envOr("FFMPEG_PATH", "ffmpeg"),
		FFprobePath:     envOr("FFPROBE_PATH", "ffprobe"),
	}

	var err error
	if cfg.MaxChunkBytes, err = envInt64("MAX_CHUNK_BYTES", MaxUploadBytes); err != nil {
		return Config{}, err
	}
	if cfg.MaxChunkBytes <= 0 {
		return Config{}, fmt.Errorf("MAX_CHUNK_BYTES must be positive, got %d", cfg.MaxChunkBytes)
	}
	if cfg.SilenceThresholdDB, err = envFloat("SILENCE_THRESHOLD_DB", -30); err != nil {
		return Config{}, err
	}
	if cfg.MinSilenceSeconds, err = envFloat("MIN_SILENCE_SECONDS", 0.5); err != nil {
		return Config{}, err
	}
	concurrency, err := envInt64("TRANSCRIBE_CONCURRENCY", 3)
	if err != nil {
		return Config{}, err
	}
	cfg.TranscribeConcurrency = int(concurrency)
	if cfg.TranscribeTimeout, err = envDuration("TRANSCRIBE_TIMEOUT", 10*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.EncodeTimeout, err = envDuration("ENCODE_TIMEOUT", 30*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.LLMMaxRetry, err = envDuration("LLM_MAX_RETRY", 45*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.WriteTranscriptCopy, err = envBool("WRITE_TRANSCRIPT_COPY", true); err != nil {
		return Config{}, err
	}
	if cfg.UseMockTranscribe, err = envBool("USE_MOCK_TRANSCRIBE", false); err != nil {
		return Config{}, err
	}
	if cfg.UseMockLLM, err = envBool("USE_MOCK_LLM", false); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func envOr(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func envInt64(k string, def int64) (int64, error) {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", k, err)
	}
	return n, nil
}

func envFloat(k string, def float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", k, err)
	}
	return f, nil
}

func envBool(k string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", k, err)
	}
	return b, nil
}

// envDuration accepts Go duration strings ("90s") or a plain number of seconds.
func envDuration(k string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def, nil
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", k, err)
	}
	return d, nil
}
