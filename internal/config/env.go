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

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// envVar binds one environment variable to a Config field.
type envVar struct {
	name string
	set  func(c *Config, v string) error
}

var envVars = []envVar{
	{"SALEPROBE_DSN", func(c *Config, v string) error { c.DSN = v; return nil }},
	{"SALEPROBE_QUERY", func(c *Config, v string) error { c.Query = v; return nil }},
	{"SALEPROBE_INPUT_CSV", func(c *Config, v string) error { c.InputCSV = v; return nil }},
	{"SALEPROBE_REVIEWED_SINCE", func(c *Config, v string) error { c.ReviewedSince = v; return nil }},
	{"SALEPROBE_DOCUMENT_TYPE", func(c *Config, v string) error { c.DocumentType = v; return nil }},
	{"SALEPROBE_EVENT_STATUS", intVar(func(c *Config) *int { return &c.EventStatus })},
	{"SALEPROBE_EVENT_TYPE", intVar(func(c *Config) *int { return &c.EventType })},
	{"SALEPROBE_LIMIT", intVar(func(c *Config) *int { return &c.Limit })},
	{"SALEPROBE_CONCURRENCY", intVar(func(c *Config) *int { return &c.Concurrency })},
	{"SALEPROBE_TIMEOUT", func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		c.Timeout = d
		return nil
	}},
	{"SALEPROBE_USER_AGENT", func(c *Config, v string) error { c.UserAgent = v; return nil }},
	{"SALEPROBE_PHRASES", func(c *Config, v string) error { c.Phrases = splitList(v); return nil }},
	{"SALEPROBE_MAX_BODY_BYTES", func(c *Config, v string) error {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return err
		}
		c.MaxBodyBytes = n
		return nil
	}},
	{"SALEPROBE_PIN_WORKERS", boolVar(func(c *Config) *bool { return &c.PinWorkers })},
	{"SALEPROBE_OUTPUT", func(c *Config, v string) error { c.Output = v; return nil }},
	{"S3_BUCKET", func(c *Config, v string) error { c.S3Bucket = v; return nil }},
	{"S3_PREFIX", func(c *Config, v string) error { c.S3Prefix = v; return nil }},
	{"S3_REGION", func(c *Config, v string) error { c.S3Region = v; return nil }},
	{"S3_PROFILE", func(c *Config, v string) error { c.S3Profile = v; return nil }},
	{"S3_ENDPOINT", func(c *Config, v string) error { c.S3Endpoint = v; return nil }},
	{"S3_USE_PATH_STYLE", boolVar(func(c *Config) *bool { return &c.S3PathStyle })},
	{"SALEPROBE_METRICS_PORT", intVar(func(c *Config) *int { return &c.MetricsPort })},
	{"SALEPROBE_STATS", boolVar(func(c *Config) *bool { return &c.Stats })},
	{"SALEPROBE_DEBUG", boolVar(func(c *Config) *bool { return &c.Debug })},
}

// LoadEnv overlays environment variables onto c. Empty values are ignored;
// malformed values are errors.
func (c *Config) LoadEnv(lookup func(string) (string, bool)) error {
	for _, ev := range envVars {
		v, ok := lookup(ev.name)
		if !ok {
			continue
		}
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if err := ev.set(c, v); err != nil {
			return fmt.Errorf("%s: %w", ev.name, err)
		}
	}
	return nil
}

func intVar(field func(c *Config) *int) func(c *Config, v string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*field(c) = n
		return nil
	}
}

func boolVar(field func(c *Config) *bool) func(c *Config, v string) error {
	return func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*field(c) = b
		return nil
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
