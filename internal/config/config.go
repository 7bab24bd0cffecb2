// Package config provides configuration management for novaavatar
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/normanking/novaavatar/internal/logging"
	"github.com/normanking/novaavatar/internal/rig"
)

const envPrefix = "NOVAAVATAR"

// Config holds all application configuration
type Config struct {
	Rig      RigConfig      `mapstructure:"rig"`
	Animator AnimatorConfig `mapstructure:"animator"`
	Stage    StageConfig    `mapstructure:"stage"`
	Feed     FeedConfig     `mapstructure:"feed"`
	Session  SessionConfig  `mapstructure:"session"`
	Audio    AudioConfig    `mapstructure:"audio"`
	Theme    ThemeConfig    `mapstructure:"theme"`
	Log      logging.Config `mapstructure:"log"`
}

// RigConfig tunes blink and saccade timing, lip sync and smoothing.
type RigConfig struct {
	FrameRef          time.Duration `mapstructure:"frame_ref"`
	BlinkDuration     time.Duration `mapstructure:"blink_duration"`
	BlinkGapMin       time.Duration `mapstructure:"blink_gap_min"`
	BlinkGapMax       time.Duration `mapstructure:"blink_gap_max"`
	SaccadeGapMin     time.Duration `mapstructure:"saccade_gap_min"`
	SaccadeGapMax     time.Duration `mapstructure:"saccade_gap_max"`
	SaccadeRangeX     float64       `mapstructure:"saccade_range_x"`
	SaccadeRangeY     float64       `mapstructure:"saccade_range_y"`
	TwitchInterval    time.Duration `mapstructure:"twitch_interval"`
	StallGap          time.Duration `mapstructure:"stall_gap"`
	SleepRateFactor   float64       `mapstructure:"sleep_rate_factor"`
	LoudnessFullScale float64       `mapstructure:"loudness_full_scale"`
	MouthOpenGain     float64       `mapstructure:"mouth_open_gain"`
	Rates             RatesConfig   `mapstructure:"rates"`
}

// RatesConfig is the fraction of the remaining distance each channel covers
// per reference frame.
type RatesConfig struct {
	Limb       float64 `mapstructure:"limb"`
	Head       float64 `mapstructure:"head"`
	Gaze       float64 `mapstructure:"gaze"`
	Face       float64 `mapstructure:"face"`
	MouthOpen  float64 `mapstructure:"mouth_open"`
	MouthWidth float64 `mapstructure:"mouth_width"`
	Glow       float64 `mapstructure:"glow"`
	Breath     float64 `mapstructure:"breath"`
	Hair       float64 `mapstructure:"hair"`
	Float      float64 `mapstructure:"float"`
}

type AnimatorConfig struct {
	FPS     int           `mapstructure:"fps"`
	MaxStep time.Duration `mapstructure:"max_step"`
}

// StageConfig configures the HTTP/websocket viewer server
type StageConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Addr        string  `mapstructure:"addr"`
	ViewerFPS   float64 `mapstructure:"viewer_fps"`
	SignalRate  float64 `mapstructure:"signal_rate"` // injected signals per second
	SignalBurst int     `mapstructure:"signal_burst"`
}

// FeedConfig configures the upstream signal producer connection
type FeedConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	URL               string        `mapstructure:"url"`
	DialTimeout       time.Duration `mapstructure:"dial_timeout"`
	ReconnectDelay    time.Duration `mapstructure:"reconnect_delay"`
	MaxReconnectDelay time.Duration `mapstructure:"max_reconnect_delay"`
}

// SessionConfig holds the loudness hysteresis for speaking detection
type SessionConfig struct {
	SpeakOn  float64 `mapstructure:"speak_on"`
	SpeakOff float64 `mapstructure:"speak_off"`
}

type AudioConfig struct {
	FloorDB   float64 `mapstructure:"floor_db"`
	Smoothing float64 `mapstructure:"smoothing"`
}

type ThemeConfig struct {
	Path  string `mapstructure:"path"`
	Watch bool   `mapstructure:"watch"`
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() *Config {
	tn := rig.DefaultTuning()
	rates := rig.DefaultRates()
	return &Config{
		Rig: RigConfig{
			FrameRef:          rates.FrameRef,
			BlinkDuration:     tn.BlinkDuration,
			BlinkGapMin:       tn.BlinkGapMin,
			BlinkGapMax:       tn.BlinkGapMax,
			SaccadeGapMin:     tn.SaccadeGapMin,
			SaccadeGapMax:     tn.SaccadeGapMax,
			SaccadeRangeX:     tn.SaccadeRangeX,
			SaccadeRangeY:     tn.SaccadeRangeY,
			TwitchInterval:    tn.TwitchInterval,
			StallGap:          tn.StallGap,
			SleepRateFactor:   tn.SleepRateFactor,
			LoudnessFullScale: tn.LoudnessFullScale,
			MouthOpenGain:     tn.MouthOpenGain,
			Rates: RatesConfig{
				Limb:       rates.Limb,
				Head:       rates.Head,
				Gaze:       rates.Gaze,
				Face:       rates.Face,
				MouthOpen:  rates.MouthOpen,
				MouthWidth: rates.MouthWidth,
				Glow:       rates.Glow,
				Breath:     rates.Breath,
				Hair:       rates.Hair,
				Float:      rates.Float,
			},
		},
		Animator: AnimatorConfig{
			FPS:     60,
			MaxStep: tn.MaxStep,
		},
		Stage: StageConfig{
			Enabled:     true,
			Addr:        "127.0.0.1:8765",
			ViewerFPS:   30,
			SignalRate:  50,
			SignalBurst: 20,
		},
		Feed: FeedConfig{
			Enabled:           false,
			URL:               "ws://127.0.0.1:8080/nova",
			DialTimeout:       10 * time.Second,
			ReconnectDelay:    3 * time.Second,
			MaxReconnectDelay: 60 * time.Second,
		},
		Session: SessionConfig{
			SpeakOn:  20,
			SpeakOff: 10,
		},
		Audio: AudioConfig{
			FloorDB:   -60,
			Smoothing: 0.5,
		},
		Theme: ThemeConfig{
			Watch: true,
		},
		Log: logging.DefaultConfig(),
	}
}

// values flattens cfg into viper keys. Durations are written as strings so
// saved files stay readable.
func values(cfg *Config) map[string]any {
	d := func(v time.Duration) string { return v.String() }
	r := cfg.Rig
	return map[string]any{
		"rig.frame_ref":           d(r.FrameRef),
		"rig.blink_duration":      d(r.BlinkDuration),
		"rig.blink_gap_min":       d(r.BlinkGapMin),
		"rig.blink_gap_max":       d(r.BlinkGapMax),
		"rig.saccade_gap_min":     d(r.SaccadeGapMin),
		"rig.saccade_gap_max":     d(r.SaccadeGapMax),
		"rig.saccade_range_x":     r.SaccadeRangeX,
		"rig.saccade_range_y":     r.SaccadeRangeY,
		"rig.twitch_interval":     d(r.TwitchInterval),
		"rig.stall_gap":           d(r.StallGap),
		"rig.sleep_rate_factor":   r.SleepRateFactor,
		"rig.loudness_full_scale": r.LoudnessFullScale,
		"rig.mouth_open_gain":     r.MouthOpenGain,
		"rig.rates.limb":          r.Rates.Limb,
		"rig.rates.head":          r.Rates.Head,
		"rig.rates.gaze":          r.Rates.Gaze,
		"rig.rates.face":          r.Rates.Face,
		"rig.rates.mouth_open":    r.Rates.MouthOpen,
		"rig.rates.mouth_width":   r.Rates.MouthWidth,
		"rig.rates.glow":          r.Rates.Glow,
		"rig.rates.breath":        r.Rates.Breath,
		"rig.rates.hair":          r.Rates.Hair,
		"rig.rates.float":         r.Rates.Float,

		"animator.fps":      cfg.Animator.FPS,
		"animator.max_step": d(cfg.Animator.MaxStep),

		"stage.enabled":      cfg.Stage.Enabled,
		"stage.addr":         cfg.Stage.Addr,
		"stage.viewer_fps":   cfg.Stage.ViewerFPS,
		"stage.signal_rate":  cfg.Stage.SignalRate,
		"stage.signal_burst": cfg.Stage.SignalBurst,

		"feed.enabled":             cfg.Feed.Enabled,
		"feed.url":                 cfg.Feed.URL,
		"feed.dial_timeout":        d(cfg.Feed.DialTimeout),
		"feed.reconnect_delay":     d(cfg.Feed.ReconnectDelay),
		"feed.max_reconnect_delay": d(cfg.Feed.MaxReconnectDelay),

		"session.speak_on":  cfg.Session.SpeakOn,
		"session.speak_off": cfg.Session.SpeakOff,

		"audio.floor_db":  cfg.Audio.FloorDB,
		"audio.smoothing": cfg.Audio.Smoothing,

		"theme.path":  cfg.Theme.Path,
		"theme.watch": cfg.Theme.Watch,

		"log.dir":         cfg.Log.Dir,
		"log.level":       cfg.Log.Level,
		"log.max_history": cfg.Log.MaxHistory,
		"log.console":     cfg.Log.Console,
		"log.file":        cfg.Log.File,
	}
}

func newViper() *viper.Viper {
	v := viper.New()
	for k, val := range values(DefaultConfig()) {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads configuration from path, or from config.yaml in the config
// directory and the working directory when path is empty. Environment
// variables such as NOVAAVATAR_STAGE_ADDR override both. A missing default
// file is not an error.
func Load(path string) (*Config, error) {
	v := newViper()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if dir, err := GetConfigDir(); err == nil {
			v.AddConfigPath(dir)
		}
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to path as YAML.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	v := viper.New()
	for k, val := range values(cfg) {
		v.Set(k, val)
	}
	return v.WriteConfigAs(path)
}

// Validate rejects configurations the rig or the servers cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Animator.FPS <= 0 {
		errs = append(errs, fmt.Errorf("animator.fps must be positive, got %d", c.Animator.FPS))
	}
	if c.Rig.FrameRef <= 0 {
		errs = append(errs, fmt.Errorf("rig.frame_ref must be positive"))
	}
	if c.Rig.BlinkDuration <= 0 {
		errs = append(errs, fmt.Errorf("rig.blink_duration must be positive"))
	}
	if c.Rig.TwitchInterval <= 0 {
		errs = append(errs, fmt.Errorf("rig.twitch_interval must be positive"))
	}
	// A stall gap within one frame treats every tick as a clock jump and
	// freezes every timer.
	if c.Animator.FPS > 0 {
		if frame := time.Second / time.Duration(c.Animator.FPS); c.Rig.StallGap <= frame {
			errs = append(errs, fmt.Errorf("rig.stall_gap (%s) must exceed one animator frame (%s)", c.Rig.StallGap, frame))
		}
	}
	if c.Rig.StallGap < c.Animator.MaxStep {
		errs = append(errs, fmt.Errorf("rig.stall_gap (%s) is below animator.max_step (%s)", c.Rig.StallGap, c.Animator.MaxStep))
	}
	if c.Rig.BlinkGapMin > c.Rig.BlinkGapMax {
		errs = append(errs, fmt.Errorf("rig.blink_gap_min exceeds rig.blink_gap_max"))
	}
	if c.Rig.SaccadeGapMin > c.Rig.SaccadeGapMax {
		errs = append(errs, fmt.Errorf("rig.saccade_gap_min exceeds rig.saccade_gap_max"))
	}
	for name, rate := range map[string]float64{
		"limb": c.Rig.Rates.Limb, "head": c.Rig.Rates.Head, "gaze": c.Rig.Rates.Gaze,
		"face": c.Rig.Rates.Face, "mouth_open": c.Rig.Rates.MouthOpen, "mouth_width": c.Rig.Rates.MouthWidth,
		"glow": c.Rig.Rates.Glow, "breath": c.Rig.Rates.Breath, "hair": c.Rig.Rates.Hair, "float": c.Rig.Rates.Float,
	} {
		if rate <= 0 || rate > 1 {
			errs = append(errs, fmt.Errorf("rig.rates.%s must be in (0,1], got %g", name, rate))
		}
	}
	if c.Session.SpeakOff > c.Session.SpeakOn {
		errs = append(errs, fmt.Errorf("session.speak_off (%g) exceeds session.speak_on (%g)", c.Session.SpeakOff, c.Session.SpeakOn))
	}
	if c.Stage.Enabled && c.Stage.ViewerFPS <= 0 {
		errs = append(errs, fmt.Errorf("stage.viewer_fps must be positive"))
	}
	if c.Feed.Enabled && c.Feed.URL == "" {
		errs = append(errs, fmt.Errorf("feed.url is required when the feed is enabled"))
	}
	return errors.Join(errs...)
}

// ToRig converts the rig section into the rig's own configuration.
func (c *Config) ToRig() rig.Config {
	rc := rig.DefaultConfig()
	r := c.Rig

	rc.Tuning.BlinkDuration = r.BlinkDuration
	rc.Tuning.BlinkGapMin = r.BlinkGapMin
	rc.Tuning.BlinkGapMax = r.BlinkGapMax
	rc.Tuning.SaccadeGapMin = r.SaccadeGapMin
	rc.Tuning.SaccadeGapMax = r.SaccadeGapMax
	rc.Tuning.SaccadeRangeX = r.SaccadeRangeX
	rc.Tuning.SaccadeRangeY = r.SaccadeRangeY
	rc.Tuning.TwitchInterval = r.TwitchInterval
	rc.Tuning.StallGap = r.StallGap
	rc.Tuning.MaxStep = c.Animator.MaxStep
	rc.Tuning.SleepRateFactor = r.SleepRateFactor
	rc.Tuning.LoudnessFullScale = r.LoudnessFullScale
	rc.Tuning.MouthOpenGain = r.MouthOpenGain

	rc.Rates = rig.Rates{
		FrameRef:   r.FrameRef,
		Limb:       r.Rates.Limb,
		Head:       r.Rates.Head,
		Gaze:       r.Rates.Gaze,
		Face:       r.Rates.Face,
		MouthOpen:  r.Rates.MouthOpen,
		MouthWidth: r.Rates.MouthWidth,
		Glow:       r.Rates.Glow,
		Breath:     r.Rates.Breath,
		Hair:       r.Rates.Hair,
		Float:      r.Rates.Float,
	}
	return rc
}

// GetConfigDir returns the configuration directory path
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".novaavatar"), nil
}
