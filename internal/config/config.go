package config

import (
	"fmt"
	"time"

	"github.com/forPelevin/threadreel/internal/types"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Paths      PathsConfig      `yaml:"paths"`
	Render     RenderConfig     `yaml:"render"`
	Jobs       JobsConfig       `yaml:"jobs"`
	Speech     SpeechConfig     `yaml:"speech"`
	FFmpeg     FFmpegConfig     `yaml:"ffmpeg"`
	Source     SourceConfig     `yaml:"source"`
	Summarizer SummarizerConfig `yaml:"summarizer"`
	Redis      RedisConfig      `yaml:"redis"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
	// CreateRatePerMinute limits job creation per client IP.
	CreateRatePerMinute int           `yaml:"create_rate_per_minute"`
	ShutdownTimeout     time.Duration `yaml:"shutdown_timeout"`
}

type PathsConfig struct {
	Output   string `yaml:"output"`
	Database string `yaml:"database"`
	// Intake is a drop folder watched for .txt narrations; empty disables it.
	Intake string `yaml:"intake"`
}

type RenderConfig struct {
	Canvas          types.Canvas       `yaml:"canvas"`
	Style           types.CaptionStyle `yaml:"style"`
	FrameRate       int                `yaml:"frame_rate"`
	WordsPerMinute  int                `yaml:"words_per_minute"`
	WordsPerCaption int                `yaml:"words_per_caption"`
}

type JobsConfig struct {
	Workers         int  `yaml:"workers"`
	QueueSize       int  `yaml:"queue_size"`
	KeepFailedAudio bool `yaml:"keep_failed_audio"`
}

const (
	EngineEspeak = "espeak"
	EngineHTTP   = "http"
)

type SpeechConfig struct {
	Engine       string `yaml:"engine"`
	EspeakBinary string `yaml:"espeak_binary"`
	Voice        string `yaml:"voice"`
	WordsPerMin  int    `yaml:"words_per_minute"`
	HTTPURL      string `yaml:"http_url"`
	AuthScheme   string `yaml:"auth_scheme"`
	APIKey       string `yaml:"-"`
	// Serialize forces one synthesis at a time. Defaults to true for espeak.
	Serialize *bool `yaml:"serialize"`
}

type FFmpegConfig struct {
	FFmpegPath  string `yaml:"ffmpeg_path"`
	FFprobePath string `yaml:"ffprobe_path"`
}

type SourceConfig struct {
	BaseURL           string `yaml:"base_url"`
	UserAgent         string `yaml:"user_agent"`
	RequestsPerMinute int    `yaml:"requests_per_minute"`
}

type SummarizerConfig struct {
	Model        string   `yaml:"model"`
	BaseURL      string   `yaml:"base_url"`
	AllowedHosts []string `yaml:"allowed_hosts"`
	APIKey       string   `yaml:"-"`
}

type RedisConfig struct {
	// Addr enables the job status cache when set.
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"-"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Validate fills defaults and rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8000"
	}
	if c.Server.CreateRatePerMinute == 0 {
		c.Server.CreateRatePerMinute = 10
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 30 * time.Second
	}
	if c.Paths.Output == "" {
		c.Paths.Output = "videos"
	}
	if c.Paths.Database == "" {
		c.Paths.Database = "threadreel.db"
	}

	if c.Render.Canvas == (types.Canvas{}) {
		c.Render.Canvas = types.DefaultCanvas()
	}
	if c.Render.Style == (types.CaptionStyle{}) {
		c.Render.Style = types.DefaultCaptionStyle()
	}
	if c.Render.FrameRate == 0 {
		c.Render.FrameRate = 24
	}
	if c.Render.WordsPerMinute == 0 {
		c.Render.WordsPerMinute = 150
	}
	if c.Render.WordsPerCaption == 0 {
		c.Render.WordsPerCaption = 8
	}
	cv := c.Render.Canvas
	if cv.Width <= 0 || cv.Height <= 0 || cv.Width%2 != 0 || cv.Height%2 != 0 {
		return fmt.Errorf("render.canvas must have positive even dimensions, got %dx%d", cv.Width, cv.Height)
	}
	if cv.Background == "" {
		return fmt.Errorf("render.canvas.background is required")
	}
	if c.Render.FrameRate < 0 || c.Render.WordsPerMinute < 0 || c.Render.WordsPerCaption < 0 {
		return fmt.Errorf("render rates must be positive")
	}

	if c.Jobs.Workers == 0 {
		c.Jobs.Workers = 2
	}
	if c.Jobs.QueueSize == 0 {
		c.Jobs.QueueSize = 64
	}
	if c.Jobs.Workers < 0 || c.Jobs.QueueSize < 0 {
		return fmt.Errorf("jobs.workers and jobs.queue_size must be positive")
	}

	if c.Speech.Engine == "" {
		c.Speech.Engine = EngineEspeak
	}
	switch c.Speech.Engine {
	case EngineEspeak:
		if c.Speech.EspeakBinary == "" {
			c.Speech.EspeakBinary = "espeak-ng"
		}
	case EngineHTTP:
		if c.Speech.HTTPURL == "" {
			return fmt.Errorf("speech.http_url is required for the http engine")
		}
	default:
		return fmt.Errorf("speech.engine must be %q or %q, got %q", EngineEspeak, EngineHTTP, c.Speech.Engine)
	}
	if c.Speech.Voice == "" {
		c.Speech.Voice = "en-us"
	}
	if c.Speech.WordsPerMin == 0 {
		c.Speech.WordsPerMin = 150
	}
	if c.Speech.Serialize == nil {
		on := c.Speech.Engine == EngineEspeak
		c.Speech.Serialize = &on
	}

	if c.FFmpeg.FFmpegPath == "" {
		c.FFmpeg.FFmpegPath = "ffmpeg"
	}
	if c.FFmpeg.FFprobePath == "" {
		c.FFmpeg.FFprobePath = "ffprobe"
	}
	if c.Source.RequestsPerMinute == 0 {
		c.Source.RequestsPerMinute = 10
	}
	if c.Redis.TTL == 0 {
		c.Redis.TTL = 10 * time.Minute
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	return nil
}
