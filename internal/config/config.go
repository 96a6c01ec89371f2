// Package config loads the benchmark harness configuration from a YAML
// file and validates it against an embedded CUE schema before use, so a
// typo fails up front with a position-aware message instead of surfacing
// later as a missing table or an empty experiment name.
package config

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

// DefaultDatabasePath is the store location used when the configuration
// names none.
const DefaultDatabasePath = "benchmark_results.db"

// schema constrains the decoded YAML document. Every field is optional;
// validation rejects unknown fields and wrongly typed values.
const schema = `
close({
	database_path?: string & !=""
	experiment?: close({
		name?:     string & !=""
		datasets?: [...string & !=""]
		stage_metadata?: {[string]: bool | int | number | string}
		repo_path?:            string
		subprocess_timeout_s?: int & >0
	})
})
`

// Config is the full harness configuration.
type Config struct {
	DatabasePath string     `yaml:"database_path"`
	Experiment   Experiment `yaml:"experiment"`
}

// Experiment holds run defaults applied to every stage of a run.
type Experiment struct {
	Name          string         `yaml:"name"`
	Datasets      []string       `yaml:"datasets"`
	StageMetadata map[string]any `yaml:"stage_metadata"`
	RepoPath      string         `yaml:"repo_path"`
	// SubprocessTimeoutS bounds metadata subprocess calls, in seconds.
	SubprocessTimeoutS int `yaml:"subprocess_timeout_s"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{DatabasePath: DefaultDatabasePath}
}

// Load reads and validates the configuration at path. Fields absent from
// the file keep their defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse validates raw YAML against the schema and decodes it.
func Parse(data []byte) (Config, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if doc == nil {
		return Default(), nil
	}
	if err := validate(doc); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if cfg.DatabasePath == "" {
		cfg.DatabasePath = DefaultDatabasePath
	}
	return cfg, nil
}

func validate(doc map[string]any) error {
	ctx := cuecontext.New()

	constraint := ctx.CompileString(schema)
	if err := constraint.Err(); err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	value := ctx.Encode(doc)
	if err := value.Err(); err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	unified := constraint.Unify(value)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return err
	}
	return nil
}
