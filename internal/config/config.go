package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/me/mlfq/pkg/model"
	"gopkg.in/yaml.v3"
)

// ServerConfig holds configuration for the mlfqd daemon.
type ServerConfig struct {
	Addr      string `yaml:"addr"`       // Listen address (default ":8080")
	LogLevel  string `yaml:"log_level"`  // Log level: debug, info, warn, error
	LogFormat string `yaml:"log_format"` // Log format: text, json
	DBPath    string `yaml:"db_path"`    // SQLite journal path (":memory:" for testing)

	CPUs          int           `yaml:"cpus"`           // Number of dispatch loops
	TickInterval  time.Duration `yaml:"tick_interval"`  // Wall time per simulated tick
	IdleInterval  time.Duration `yaml:"idle_interval"`  // Wait after a round that ran nothing
	StepTimeout   time.Duration `yaml:"step_timeout"`   // Wall-time budget of one program step (0 = none)
	ProgramsDir   string        `yaml:"programs_dir"`   // Extra *.yaml program definitions
	QueueCapacity int           `yaml:"queue_capacity"` // Slots per tier
	MaxProcs      int           `yaml:"max_procs"`      // Process table size
}

// DefaultServerConfig returns sensible defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:          ":8080",
		LogLevel:      "info",
		LogFormat:     "text",
		DBPath:        "mlfq.db",
		CPUs:          2,
		TickInterval:  time.Millisecond,
		IdleInterval:  10 * time.Millisecond,
		StepTimeout:   time.Second,
		QueueCapacity: model.QueueCapacity,
		MaxProcs:      model.NProc,
	}
}

// LoadFile overlays the YAML document at path onto cfg. Fields missing
// from the file keep their current values.
func LoadFile(path string, cfg *ServerConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg.Validate()
}

// Validate reports every out-of-range setting.
func (c ServerConfig) Validate() error {
	var errs []error
	if c.CPUs < 1 || c.CPUs > model.NCPU {
		errs = append(errs, fmt.Errorf("cpus must be between 1 and %d, got %d", model.NCPU, c.CPUs))
	}
	if c.QueueCapacity < 2 {
		errs = append(errs, fmt.Errorf("queue_capacity must be at least 2, got %d", c.QueueCapacity))
	}
	if c.MaxProcs < 1 {
		errs = append(errs, fmt.Errorf("max_procs must be positive, got %d", c.MaxProcs))
	}
	// A ring holds capacity-1 entries, so every live process must fit.
	if c.QueueCapacity >= 2 && c.MaxProcs >= 1 && c.QueueCapacity <= c.MaxProcs {
		errs = append(errs, fmt.Errorf("queue_capacity %d must exceed max_procs %d", c.QueueCapacity, c.MaxProcs))
	}
	if c.TickInterval < 0 || c.IdleInterval < 0 || c.StepTimeout < 0 {
		errs = append(errs, errors.New("intervals must not be negative"))
	}
	return errors.Join(errs...)
}
