package engine

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Zyko0/go-sdl3/sdl"
	"github.com/spf13/viper"
)

type Config struct {
	Media    MediaConfig    `mapstructure:"media"`
	Session  SessionConfig  `mapstructure:"session"`
	Timing   TimingConfig   `mapstructure:"timing"`
	Response ResponseConfig `mapstructure:"response"`
	Display  DisplayConfig  `mapstructure:"display"`
	Feedback FeedbackConfig `mapstructure:"feedback"`
	Bridge   BridgeConfig   `mapstructure:"bridge"`
	Output   OutputConfig   `mapstructure:"output"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type MediaConfig struct {
	Root            string   `mapstructure:"root"`
	Backgrounds     []string `mapstructure:"backgrounds"`
	TargetPattern   string   `mapstructure:"target_pattern"`
	StimulusPattern string   `mapstructure:"stimulus_pattern"`
	MaskPattern     string   `mapstructure:"mask_pattern"`
	StartSplash     string   `mapstructure:"start_splash"`
	EndSplash       string   `mapstructure:"end_splash"`
}

type SessionConfig struct {
	Participant string `mapstructure:"participant"`
	Trials      int    `mapstructure:"trials"`
	// Seed 0 draws a fresh seed from crypto/rand.
	Seed               int64 `mapstructure:"seed"`
	StopOnFirstCorrect bool  `mapstructure:"stop_on_first_correct"`
	AbortOnAssetError  bool  `mapstructure:"abort_on_asset_error"`
}

type TimingConfig struct {
	BackgroundA time.Duration `mapstructure:"background_a"`
	Target      time.Duration `mapstructure:"target"`
	BackgroundB time.Duration `mapstructure:"background_b"`
	Timeout     time.Duration `mapstructure:"timeout"`
	RefreshHz   float64       `mapstructure:"refresh_hz"`
}

type ResponseConfig struct {
	Strategy     string `mapstructure:"strategy"`
	MultiAttempt bool   `mapstructure:"multi_attempt"`
	Threshold    uint8  `mapstructure:"threshold"`
}

type DisplayConfig struct {
	Width         int     `mapstructure:"width"`
	Height        int     `mapstructure:"height"`
	Fullscreen    bool    `mapstructure:"fullscreen"`
	VSync         bool    `mapstructure:"vsync"`
	Scale         float64 `mapstructure:"scale"`
	ShowCursor    bool    `mapstructure:"show_cursor"`
	Background    string  `mapstructure:"background"`
	DetectRefresh bool    `mapstructure:"detect_refresh"`
}

type FeedbackConfig struct {
	CorrectSound   string `mapstructure:"correct_sound"`
	IncorrectSound string `mapstructure:"incorrect_sound"`
}

type BridgeConfig struct {
	DLPDevice    string       `mapstructure:"dlp_device"`
	DLPBaud      int          `mapstructure:"dlp_baud"`
	Lines        TriggerLines `mapstructure:"lines"`
	MessagesFile bool         `mapstructure:"messages_file"`
}

type OutputConfig struct {
	Dir string `mapstructure:"dir"`
}

type LoggingConfig struct {
	Directory  string `mapstructure:"directory"`
	Level      string `mapstructure:"level"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// SetDefaults registers every default with v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("media.root", "media")
	v.SetDefault("media.backgrounds", []string{"image1.png", "image3.png"})
	v.SetDefault("media.target_pattern", "t%03d.jpg")
	v.SetDefault("media.stimulus_pattern", "img%03d.jpg")
	v.SetDefault("media.mask_pattern", "gt%d.jpg")
	v.SetDefault("media.start_splash", "")
	v.SetDefault("media.end_splash", "")

	v.SetDefault("session.participant", "")
	v.SetDefault("session.trials", 240)
	v.SetDefault("session.seed", 0)
	v.SetDefault("session.stop_on_first_correct", false)
	v.SetDefault("session.abort_on_asset_error", false)

	v.SetDefault("timing.background_a", "500ms")
	v.SetDefault("timing.target", "1500ms")
	v.SetDefault("timing.background_b", "500ms")
	v.SetDefault("timing.timeout", "20s")
	v.SetDefault("timing.refresh_hz", 60.0)

	v.SetDefault("response.strategy", ExactPixel.String())
	v.SetDefault("response.multi_attempt", true)
	v.SetDefault("response.threshold", DefaultThreshold)

	v.SetDefault("display.width", 700)
	v.SetDefault("display.height", 700)
	v.SetDefault("display.fullscreen", false)
	v.SetDefault("display.vsync", true)
	v.SetDefault("display.scale", 1.0)
	v.SetDefault("display.show_cursor", true)
	v.SetDefault("display.background", "0,0,0,255")
	v.SetDefault("display.detect_refresh", true)

	v.SetDefault("feedback.correct_sound", "")
	v.SetDefault("feedback.incorrect_sound", "")

	lines := DefaultTriggerLines()
	v.SetDefault("bridge.dlp_device", "")
	v.SetDefault("bridge.dlp_baud", 9600)
	v.SetDefault("bridge.lines.trial", lines.Trial)
	v.SetDefault("bridge.lines.stimulus", lines.Stimulus)
	v.SetDefault("bridge.lines.response", lines.Response)
	v.SetDefault("bridge.messages_file", true)

	v.SetDefault("output.dir", "results")

	v.SetDefault("logging.directory", "logs")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.max_size", 10)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age", 7)
	v.SetDefault("logging.compress", true)
}

// NewViper returns a viper instance with defaults, the VISEARCH_ environment
// prefix and the config search path. file overrides the search when set.
func NewViper(file string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("config")
		v.SetConfigName("visearch")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("VISEARCH") // e.g. VISEARCH_SESSION_TRIALS
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadConfig reads the config file (a missing file is fine) and decodes v.
func LoadConfig(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Session.Trials <= 0 {
		return fmt.Errorf("session.trials must be positive, got %d", c.Session.Trials)
	}
	if len(c.Media.Backgrounds) != 2 {
		return fmt.Errorf("media.backgrounds needs exactly two images, got %d", len(c.Media.Backgrounds))
	}
	if _, err := ParseHitStrategy(c.Response.Strategy); err != nil {
		return err
	}
	if c.Timing.Timeout <= 0 {
		return fmt.Errorf("timing.timeout must be positive, got %v", c.Timing.Timeout)
	}
	return nil
}

func (c *Config) Timings() Timing {
	return Timing{
		BackgroundA: c.Timing.BackgroundA,
		Target:      c.Timing.Target,
		BackgroundB: c.Timing.BackgroundB,
	}
}

func (c *Config) CaptureConfig() CaptureConfig {
	return CaptureConfig{Timeout: c.Timing.Timeout, MultiAttempt: c.Response.MultiAttempt}
}

func (c *Config) Layout() AssetLayout {
	return AssetLayout{
		Root:            c.Media.Root,
		Backgrounds:     c.Media.Backgrounds,
		TargetPattern:   c.Media.TargetPattern,
		StimulusPattern: c.Media.StimulusPattern,
		MaskPattern:     c.Media.MaskPattern,
	}
}

// ParseColor reads "R,G,B" or "R,G,B,A"; alpha defaults to opaque.
func ParseColor(s string) sdl.Color {
	var r, g, b uint8
	a := uint8(255)
	n, _ := fmt.Sscanf(s, "%d,%d,%d,%d", &r, &g, &b, &a)
	if n < 4 {
		a = 255
	}
	return sdl.Color{R: r, G: g, B: b, A: a}
}
