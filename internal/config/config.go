package config

/*
saleprobe — finds company websites whose domains are parked for sale
Copyright (C) 2025  Pepijn van der Stap <rxtls@vanderstap.info>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

/*
Package config assembles the run configuration. Values are layered, lowest
precedence first: built-in defaults, a YAML file, the environment (after a
.env file is loaded), and finally command-line flags that were set explicitly.
*/

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/x-stp/saleprobe/internal/core"
	"github.com/x-stp/saleprobe/internal/probe"
	"github.com/x-stp/saleprobe/internal/report"
	"github.com/x-stp/saleprobe/internal/source"
)

// DateLayout is the format of reviewed_since.
const DateLayout = "2006-01-02"

// Config holds every setting of a run.
type Config struct {
	// Row source: exactly one of DSN or InputCSV.
	DSN      string `yaml:"dsn"`
	Query    string `yaml:"query"`
	InputCSV string `yaml:"input_csv"`

	// Work-queue query filter.
	ReviewedSince string `yaml:"reviewed_since"`
	DocumentType  string `yaml:"document_type"`
	EventStatus   int    `yaml:"event_status"`
	EventType     int    `yaml:"event_type"`
	Limit         int    `yaml:"limit"`

	// Probing.
	Concurrency  int           `yaml:"concurrency"`
	Timeout      time.Duration `yaml:"timeout"`
	UserAgent    string        `yaml:"user_agent"`
	Phrases      []string      `yaml:"phrases"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
	PinWorkers   bool          `yaml:"pin_workers"`

	// Output.
	Output      string `yaml:"output"`
	S3Bucket    string `yaml:"s3_bucket"`
	S3Prefix    string `yaml:"s3_prefix"`
	S3Region    string `yaml:"s3_region"`
	S3Profile   string `yaml:"s3_profile"`
	S3Endpoint  string `yaml:"s3_endpoint"`
	S3PathStyle bool   `yaml:"s3_use_path_style"`

	// Observability.
	MetricsPort int  `yaml:"metrics_port"`
	Stats       bool `yaml:"stats"`
	Debug       bool `yaml:"debug"`
}

// Default returns the built-in configuration.
func Default() *Config {
	pc := probe.DefaultConfig()
	f := source.DefaultFilter()
	return &Config{
		ReviewedSince: f.ReviewedSince.Format(DateLayout),
		DocumentType:  f.DocumentType,
		EventStatus:   f.EventStatus,
		EventType:     f.EventType,
		Concurrency:   core.DefaultProbeWorkers,
		Timeout:       pc.Timeout,
		UserAgent:     pc.UserAgent,
		Phrases:       append([]string(nil), pc.Phrases...),
		MaxBodyBytes:  pc.MaxBodyBytes,
		Output:        "for-sale.xlsx",
		Stats:         true,
	}
}

// Load builds the configuration from defaults, the optional YAML file at path,
// a .env file in the working directory, and the process environment.
func Load(path string) (*Config, error) {
	c := Default()
	if path != "" {
		if err := c.LoadFile(path); err != nil {
			return nil, err
		}
	}
	// A missing .env is fine.
	_ = godotenv.Load()
	if err := c.LoadEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadFile overlays the YAML file at path onto c. Unknown keys are rejected.
func (c *Config) LoadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// Validate checks the settings every command needs.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("max_body_bytes must be positive, got %d", c.MaxBodyBytes)
	}
	if len(nonEmpty(c.Phrases)) == 0 {
		return errors.New("at least one for-sale phrase is required")
	}
	if c.MetricsPort < 0 || c.MetricsPort > 65535 {
		return fmt.Errorf("metrics_port out of range: %d", c.MetricsPort)
	}
	if c.Concurrency > core.MaxWorkers {
		return fmt.Errorf("concurrency %d exceeds the maximum of %d", c.Concurrency, core.MaxWorkers)
	}
	return nil
}

// ValidateRun checks the settings of a full run: probing, row source and output.
func (c *Config) ValidateRun() error {
	if err := c.Validate(); err != nil {
		return err
	}
	switch {
	case c.DSN == "" && c.InputCSV == "":
		return errors.New("no row source: set dsn (SALEPROBE_DSN) or input_csv")
	case c.DSN != "" && c.InputCSV != "":
		return errors.New("dsn and input_csv are mutually exclusive")
	}
	if _, err := report.ExporterFor(c.Output); err != nil {
		return err
	}
	if _, err := c.SourceFilter(); err != nil {
		return err
	}
	return nil
}

// SourceFilter returns the work-queue filter.
func (c *Config) SourceFilter() (source.Filter, error) {
	f := source.Filter{
		DocumentType: c.DocumentType,
		EventStatus:  c.EventStatus,
		EventType:    c.EventType,
		Limit:        c.Limit,
	}
	if s := strings.TrimSpace(c.ReviewedSince); s != "" {
		t, err := time.Parse(DateLayout, s)
		if err != nil {
			return source.Filter{}, fmt.Errorf("reviewed_since %q: want YYYY-MM-DD", c.ReviewedSince)
		}
		f.ReviewedSince = t
	}
	return f, nil
}

// PostgresConfig returns the Postgres source settings.
func (c *Config) PostgresConfig() (source.PostgresConfig, error) {
	f, err := c.SourceFilter()
	if err != nil {
		return source.PostgresConfig{}, err
	}
	return source.PostgresConfig{DSN: c.DSN, Query: c.Query, Filter: f}, nil
}

// ProbeConfig returns the prober settings.
func (c *Config) ProbeConfig() *probe.Config {
	return &probe.Config{
		UserAgent:    c.UserAgent,
		Timeout:      c.Timeout,
		Phrases:      nonEmpty(c.Phrases),
		MaxBodyBytes: c.MaxBodyBytes,
	}
}

// RunnerConfig returns the runner settings.
func (c *Config) RunnerConfig() *core.RunnerConfig {
	return &core.RunnerConfig{
		Concurrency: c.Concurrency,
		PinWorkers:  c.PinWorkers,
		Debug:       c.Debug,
	}
}

// S3Config returns the upload settings; ok is false when no bucket is set.
func (c *Config) S3Config() (cfg report.S3Config, ok bool) {
	if c.S3Bucket == "" {
		return report.S3Config{}, false
	}
	return report.S3Config{
		Bucket:       c.S3Bucket,
		Prefix:       c.S3Prefix,
		Region:       c.S3Region,
		Profile:      c.S3Profile,
		Endpoint:     c.S3Endpoint,
		UsePathStyle: c.S3PathStyle,
	}, true
}

func nonEmpty(in []string) []string {
	var out []string
	for _, s := range in {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}
