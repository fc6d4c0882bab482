package main

import (
	"fmt"
	"os"
	"time"

	"github.com/jerryduan07/gametime"
	"github.com/pelletier/go-toml"
)

// Config represents the configuration file read by the commands.
//
//	[model]
//	word-bit-width = 32
//	nested-arrays = false
//
//	[solver]
//	name = "boolector"
//	timeout = "30s"
//	jobs = 4
//
//	[boolector]
//	binary = "/usr/local/bin/boolector"
//	backend = "picosat"
//
//	[store]
//	path = "results.db"
type Config struct {
	Model     ModelConfig     `toml:"model"`
	Solver    SolverConfig    `toml:"solver"`
	Boolector BoolectorConfig `toml:"boolector"`
	Store     StoreConfig     `toml:"store"`
}

type ModelConfig struct {
	WordBitWidth     uint   `toml:"word-bit-width"`
	NestedArrays     bool   `toml:"nested-arrays"`
	ConstraintPrefix string `toml:"constraint-prefix"`
	IndexPrefix      string `toml:"index-prefix"`
	EFCPrefix        string `toml:"efc-prefix"`
}

type SolverConfig struct {
	Name    string `toml:"name"`
	Timeout string `toml:"timeout"`
	Jobs    int    `toml:"jobs"`
}

type BoolectorConfig struct {
	Binary  string `toml:"binary"`
	Backend string `toml:"backend"`
	TempDir string `toml:"temp-dir"`
}

type StoreConfig struct {
	Path string `toml:"path"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	defaults := gametime.DefaultConfig()

	var config Config
	config.Model.WordBitWidth = defaults.WordBitWidth
	config.Model.NestedArrays = defaults.ModelAsNestedArrays
	config.Model.ConstraintPrefix = defaults.ConstraintPrefix
	config.Model.IndexPrefix = defaults.IndexPrefix
	config.Model.EFCPrefix = defaults.EFCPrefix
	config.Solver.Name = "z3"
	config.Solver.Jobs = 1
	return config
}

// ReadConfigFile reads a TOML file over the defaults.
func ReadConfigFile(path string) (Config, error) {
	config := DefaultConfig()

	buf, err := os.ReadFile(path)
	if err != nil {
		return config, err
	} else if err := toml.Unmarshal(buf, &config); err != nil {
		return config, &gametime.ConfigError{Field: "file", Message: fmt.Sprintf("%s: %s", path, err)}
	}
	return config, nil
}

// ParserConfig returns the settings shared by solvers and parsers.
func (c *Config) ParserConfig() gametime.Config {
	return gametime.Config{
		WordBitWidth:        c.Model.WordBitWidth,
		ModelAsNestedArrays: c.Model.NestedArrays,
		ConstraintPrefix:    c.Model.ConstraintPrefix,
		IndexPrefix:         c.Model.IndexPrefix,
		EFCPrefix:           c.Model.EFCPrefix,
	}
}

// Timeout returns the parsed per-query timeout. Returns zero if unset.
func (c *Config) Timeout() (time.Duration, error) {
	if c.Solver.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Solver.Timeout)
	if err != nil {
		return 0, &gametime.ConfigError{Field: "timeout", Message: err.Error()}
	}
	return d, nil
}
