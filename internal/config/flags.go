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
	"github.com/spf13/pflag"
)

// Flag names shared by the commands.
const (
	FlagDSN          = "dsn"
	FlagQuery        = "query"
	FlagInput        = "input"
	FlagOutput       = "output"
	FlagConcurrency  = "concurrency"
	FlagTimeout      = "timeout"
	FlagUserAgent    = "user-agent"
	FlagPhrase       = "phrase"
	FlagMaxBody      = "max-body-bytes"
	FlagPinWorkers   = "pin-workers"
	FlagSince        = "reviewed-since"
	FlagDocumentType = "document-type"
	FlagEventStatus  = "event-status"
	FlagEventType    = "event-type"
	FlagLimit        = "limit"
	FlagS3Bucket     = "s3-bucket"
	FlagS3Prefix     = "s3-prefix"
	FlagStats        = "stats"
	FlagConfig       = "config"
	FlagMetricsPort  = "metrics-port"
	FlagDebug        = "debug"
)

// BindGlobalFlags registers the flags shared by every command.
func BindGlobalFlags(fs *pflag.FlagSet) {
	fs.String(FlagConfig, "", "YAML configuration file")
	fs.Int(FlagMetricsPort, 0, "Prometheus metrics port (0 disables the metrics server)")
	fs.Bool(FlagDebug, false, "Log every probe result")
}

// BindProbeFlags registers the probing flags with their built-in defaults.
func BindProbeFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.IntP(FlagConcurrency, "c", d.Concurrency, "Probes in flight (0 for default, negative for one goroutine per row)")
	fs.Duration(FlagTimeout, d.Timeout, "Timeout per probe, body read included")
	fs.String(FlagUserAgent, d.UserAgent, "User-Agent header sent with each probe")
	fs.StringSlice(FlagPhrase, nil, "For-sale phrase to look for (repeatable, replaces the defaults)")
	fs.Int64(FlagMaxBody, d.MaxBodyBytes, "Bytes of each page scanned for phrases")
}

// BindRunFlags registers the flags of a full run, the probing flags included.
func BindRunFlags(fs *pflag.FlagSet) {
	d := Default()
	BindProbeFlags(fs)
	BindQueryFlags(fs)
	fs.String(FlagInput, "", "CSV file of rows to probe instead of the database")
	fs.StringP(FlagOutput, "o", d.Output, "Report path (.xlsx or .csv)")
	fs.Bool(FlagPinWorkers, false, "Pin probe workers to CPU cores (Linux)")
	fs.String(FlagS3Bucket, "", "Upload the report to this S3 bucket")
	fs.String(FlagS3Prefix, "", "Key prefix for uploaded reports")
	fs.BoolP(FlagStats, "s", d.Stats, "Show statistics during processing")
}

// BindQueryFlags registers the database query flags.
func BindQueryFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String(FlagDSN, "", "Postgres connection string (or SALEPROBE_DSN)")
	fs.String(FlagQuery, "", "SQL returning id, address and name columns, replacing the built-in query")
	fs.String(FlagSince, d.ReviewedSince, "Only rows reviewed after this date (YYYY-MM-DD)")
	fs.String(FlagDocumentType, d.DocumentType, "Work-queue document type")
	fs.Int(FlagEventStatus, d.EventStatus, "Work-queue event status (0 to ignore)")
	fs.Int(FlagEventType, d.EventType, "Work-queue event type (0 to ignore)")
	fs.Int(FlagLimit, 0, "Maximum rows to load (0 for all)")
}

// ApplyFlags copies flags that were set on the command line onto c. Flags not
// registered on fs are skipped.
func (c *Config) ApplyFlags(fs *pflag.FlagSet) error {
	var err error
	set := func(name string, apply func() error) {
		if err != nil || fs.Lookup(name) == nil || !fs.Changed(name) {
			return
		}
		err = apply()
	}

	set(FlagDSN, func() (e error) { c.DSN, e = fs.GetString(FlagDSN); return })
	set(FlagQuery, func() (e error) { c.Query, e = fs.GetString(FlagQuery); return })
	set(FlagInput, func() (e error) { c.InputCSV, e = fs.GetString(FlagInput); return })
	set(FlagOutput, func() (e error) { c.Output, e = fs.GetString(FlagOutput); return })
	set(FlagConcurrency, func() (e error) { c.Concurrency, e = fs.GetInt(FlagConcurrency); return })
	set(FlagTimeout, func() (e error) { c.Timeout, e = fs.GetDuration(FlagTimeout); return })
	set(FlagUserAgent, func() (e error) { c.UserAgent, e = fs.GetString(FlagUserAgent); return })
	set(FlagPhrase, func() (e error) { c.Phrases, e = fs.GetStringSlice(FlagPhrase); return })
	set(FlagMaxBody, func() (e error) { c.MaxBodyBytes, e = fs.GetInt64(FlagMaxBody); return })
	set(FlagPinWorkers, func() (e error) { c.PinWorkers, e = fs.GetBool(FlagPinWorkers); return })
	set(FlagSince, func() (e error) { c.ReviewedSince, e = fs.GetString(FlagSince); return })
	set(FlagDocumentType, func() (e error) { c.DocumentType, e = fs.GetString(FlagDocumentType); return })
	set(FlagEventStatus, func() (e error) { c.EventStatus, e = fs.GetInt(FlagEventStatus); return })
	set(FlagEventType, func() (e error) { c.EventType, e = fs.GetInt(FlagEventType); return })
	set(FlagLimit, func() (e error) { c.Limit, e = fs.GetInt(FlagLimit); return })
	set(FlagS3Bucket, func() (e error) { c.S3Bucket, e = fs.GetString(FlagS3Bucket); return })
	set(FlagS3Prefix, func() (e error) { c.S3Prefix, e = fs.GetString(FlagS3Prefix); return })
	set(FlagStats, func() (e error) { c.Stats, e = fs.GetBool(FlagStats); return })
	set(FlagMetricsPort, func() (e error) { c.MetricsPort, e = fs.GetInt(FlagMetricsPort); return })
	set(FlagDebug, func() (e error) { c.Debug, e = fs.GetBool(FlagDebug); return })
	return err
}
