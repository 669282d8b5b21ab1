// Package config holds configuration for the adapt CLI and the remote eval
// worker, loadable from YAML files with flag overrides applied on top.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// RunConfig configures one `adapt run` invocation.
type RunConfig struct {
	Function  string        `yaml:"function"`   // builtin function name
	Lo        float64       `yaml:"lo"`         // interval lower bound
	Hi        float64       `yaml:"hi"`         // interval upper bound
	Goal      string        `yaml:"goal"`       // stop-condition expression
	NTasks    int           `yaml:"ntasks"`     // 0 = derive from backend
	Backend   string        `yaml:"backend"`    // local, sequential, remote
	Workers   []string      `yaml:"workers"`    // remote worker base URLs
	EvalDelay time.Duration `yaml:"eval_delay"` // simulated evaluation cost
	Log       bool          `yaml:"log"`        // record the call log
	DBPath    string        `yaml:"db_path"`    // run archive ("" = default)
	LogLevel  string        `yaml:"log_level"`
	LogFormat string        `yaml:"log_format"`
}

// DefaultRunConfig returns sensible defaults.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		Function:  "peak",
		Lo:        -1,
		Hi:        1,
		Goal:      "loss < 0.01",
		Backend:   "local",
		Log:       true,
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// WorkerConfig configures the adapt-worker daemon.
type WorkerConfig struct {
	Addr      string        `yaml:"addr"`       // listen address
	Workers   int           `yaml:"workers"`    // advertised worker count
	EvalDelay time.Duration `yaml:"eval_delay"` // simulated evaluation cost
	LogLevel  string        `yaml:"log_level"`
	LogFormat string        `yaml:"log_format"`
}

// DefaultWorkerConfig returns sensible defaults.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		Addr:      ":8731",
		Workers:   4,
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// LoadRun reads a YAML file over DefaultRunConfig. An empty path returns
// the defaults unchanged.
func LoadRun(path string) (RunConfig, error) {
	cfg := DefaultRunConfig()
	if path == "" {
		return cfg, nil
	}
	if err := loadYAML(path, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadWorker reads a YAML file over DefaultWorkerConfig. An empty path
// returns the defaults unchanged.
func LoadWorker(path string) (WorkerConfig, error) {
	cfg := DefaultWorkerConfig()
	if path == "" {
		return cfg, nil
	}
	if err := loadYAML(path, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// DefaultDBPath returns the default run-archive location, ~/.adapt/runs.db.
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "runs.db"
	}
	return filepath.Join(home, ".adapt", "runs.db")
}

func loadYAML(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}
