package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go-stageseq/sequencer"
)

// EngineType selects the sound engine the sequencer drives
type EngineType string

const (
	EngineMIDI EngineType = "midi"
	EngineBeep EngineType = "beep"
	EngineNone EngineType = "none"
)

// EngineConfig describes the downstream engine
type EngineConfig struct {
	Type       EngineType `json:"type"`
	PortName   string     `json:"portName,omitempty"`
	InputPort  string     `json:"inputPort,omitempty"` // chord keyboard, empty disables
	Channels   []int      `json:"channels,omitempty"`  // MIDI channel per target
	SampleRate int        `json:"sampleRate,omitempty"`
	BufferMs   int        `json:"bufferMs,omitempty"`
}

// SchedulerConfig tunes the lookahead loops
type SchedulerConfig struct {
	TickMs      float64 `json:"tickMs"`
	LookaheadMs float64 `json:"lookaheadMs"`
	SnapshotHz  float64 `json:"snapshotHz"`
	Dedup       bool    `json:"dedup"`
	Seed        int64   `json:"seed,omitempty"`
}

// UIConfig stores UI preferences
type UIConfig struct {
	LastTempo float64 `json:"lastTempo,omitempty"`
	Theme     string  `json:"theme,omitempty"` // path to a .gpl palette
}

// Config is the main configuration structure
type Config struct {
	Engine         EngineConfig    `json:"engine"`
	Scheduler      SchedulerConfig `json:"scheduler"`
	CompensationMs []float64       `json:"compensationMs,omitempty"` // per target
	UI             UIConfig        `json:"ui,omitempty"`
	Debug          bool            `json:"debug,omitempty"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			Type:       EngineMIDI,
			SampleRate: 48000,
			BufferMs:   20,
		},
		Scheduler: SchedulerConfig{
			TickMs:      5,
			LookaheadMs: 100,
			SnapshotHz:  20,
			Dedup:       true,
			Seed:        1,
		},
		UI: UIConfig{
			LastTempo: 120,
		},
	}
}

// Validate clamps every field into a usable range. Unknown engine types fall
// back to none.
func (c *Config) Validate() {
	switch c.Engine.Type {
	case EngineMIDI, EngineBeep, EngineNone:
	case "":
		c.Engine.Type = EngineMIDI
	default:
		c.Engine.Type = EngineNone
	}
	if c.Engine.SampleRate < 8000 || c.Engine.SampleRate > 192000 {
		c.Engine.SampleRate = 48000
	}
	c.Engine.BufferMs = clampInt(c.Engine.BufferMs, 5, 500)
	if len(c.Engine.Channels) > sequencer.MaxTargets {
		c.Engine.Channels = c.Engine.Channels[:sequencer.MaxTargets]
	}
	for i, ch := range c.Engine.Channels {
		c.Engine.Channels[i] = clampInt(ch, 1, 16)
	}

	c.Scheduler.TickMs = clampFloat(c.Scheduler.TickMs, 1, 50)
	c.Scheduler.LookaheadMs = clampFloat(c.Scheduler.LookaheadMs, 10, 1000)
	c.Scheduler.SnapshotHz = clampFloat(c.Scheduler.SnapshotHz, 1, 200)

	if len(c.CompensationMs) > sequencer.MaxTargets {
		c.CompensationMs = c.CompensationMs[:sequencer.MaxTargets]
	}
	for i, ms := range c.CompensationMs {
		c.CompensationMs[i] = clampFloat(ms, -500, 500)
	}

	if c.UI.LastTempo != 0 {
		c.UI.LastTempo = clampFloat(c.UI.LastTempo, 20, 300)
	}
}

// Options converts the scheduler section into manager options
func (c *Config) Options() sequencer.Options {
	return sequencer.Options{
		TickInterval: time.Duration(c.Scheduler.TickMs * float64(time.Millisecond)),
		LookaheadMs:  c.Scheduler.LookaheadMs,
		SnapshotHz:   c.Scheduler.SnapshotHz,
		Dedup:        c.Scheduler.Dedup,
		Seed:         c.Scheduler.Seed,
	}
}

// Apply copies the pattern-level settings into the store
func (c *Config) Apply(store *sequencer.PatternStore) {
	for i, ms := range c.CompensationMs {
		store.SetCompensation(i, ms)
	}
	if c.UI.LastTempo > 0 {
		store.SetTempo(c.UI.LastTempo)
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "go-stageseq"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config at path, or returns defaults if it does not exist.
// An empty path uses ConfigPath.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return DefaultConfig(), nil
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.Validate()
	return cfg, nil
}

// Save writes the config to path (ConfigPath when empty)
func (c *Config) Save(path string) error {
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return err
		}
		path = p
	}

	// Create directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v != v || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
