/*
Command saleprobe finds company websites whose domains are parked for sale.

It loads company web addresses from the company database (or a CSV export), probes each
site with a single HTTP GET, classifies the outcome into a fixed set of status labels,
and writes the rows whose domain is for sale to a spreadsheet, optionally uploading it to S3.

Subcommands:
  run    probe every row and write the for-sale report
  check  classify ad-hoc addresses and print their statuses
  sql    print the database query a run would execute

Configuration is layered: defaults, a YAML file (--config), a .env file and the
environment, then explicit flags. Graceful shutdown is handled via context cancellation
triggered by OS signals (SIGINT, SIGTERM); a cancelled run writes no report.
*/
package main

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
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rodaine/table"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/x-stp/saleprobe/internal/client"
	"github.com/x-stp/saleprobe/internal/config"
	"github.com/x-stp/saleprobe/internal/core"
	"github.com/x-stp/saleprobe/internal/metrics"
	"github.com/x-stp/saleprobe/internal/probe"
	"github.com/x-stp/saleprobe/internal/report"
	"github.com/x-stp/saleprobe/internal/source"
)

// cfg is the resolved configuration of the running command.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:           "saleprobe",
	Short:         "saleprobe - find company websites whose domains are for sale",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString(config.FlagConfig)
		c, err := config.Load(path)
		if err != nil {
			return err
		}
		if err := c.ApplyFlags(cmd.Flags()); err != nil {
			return err
		}
		cfg = c

		if cfg.MetricsPort > 0 {
			metrics.EnableMetrics()
			if err := metrics.StartMetricsServer(fmt.Sprintf(":%d", cfg.MetricsPort)); err != nil {
				return fmt.Errorf("failed to start metrics server: %w", err)
			}
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metrics.ShutdownMetricsServer(ctx); err != nil {
			log.Printf("Metrics server shutdown: %v", err)
		}
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Probe every company website and write the for-sale report",
	Long: `Loads rows from the database (or --input CSV), probes each web address once,
and writes the rows whose domain is for sale to --output (.xlsx or .csv) with the columns
CompanyId, WebAddress, Name, Status. With --s3-bucket the report is uploaded as well.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()
		return runReport(ctx, cfg, os.Stdout)
	},
}

var checkCmd = &cobra.Command{
	Use:   "check ADDRESS...",
	Short: "Classify web addresses and print address<TAB>status lines",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()
		return checkAddresses(ctx, cfg, args, cmd.OutOrStdout())
	},
}

var sqlCmd = &cobra.Command{
	Use:   "sql",
	Short: "Print the query and arguments a run would send to the database",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printQuery(cfg, cmd.OutOrStdout())
	},
}

func init() {
	config.BindGlobalFlags(rootCmd.PersistentFlags())
	config.BindRunFlags(runCmd.Flags())
	config.BindProbeFlags(checkCmd.Flags())
	config.BindQueryFlags(sqlCmd.Flags())

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(sqlCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigChan:
			log.Printf("Received signal %v, initiating shutdown...", sig)
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()
	return ctx, cancel
}

// openSource returns the configured row source and its cleanup function.
func openSource(ctx context.Context, c *config.Config) (source.Source, func(), error) {
	if c.InputCSV != "" {
		return &source.CSVFile{Path: c.InputCSV, Columns: source.DefaultColumns()}, func() {}, nil
	}
	pgCfg, err := c.PostgresConfig()
	if err != nil {
		return nil, nil, err
	}
	pg, err := source.OpenPostgres(ctx, pgCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	return pg, pg.Close, nil
}

// runReport is the handler for the 'run' command.
func runReport(ctx context.Context, c *config.Config, out io.Writer) error {
	if err := c.ValidateRun(); err != nil {
		return err
	}
	runID := uuid.NewString()
	log.Printf("Starting run %s: output='%s', concurrency=%d, timeout=%s, stats=%t",
		runID, c.Output, c.Concurrency, c.Timeout, c.Stats)

	client.ConfigureForProbes(c.Timeout)

	// 1. Load rows
	src, closeSrc, err := openSource(ctx, c)
	if err != nil {
		return err
	}
	defer closeSrc()
	rows, dropped, err := source.Load(ctx, src)
	if err != nil {
		return err
	}
	if dropped > 0 {
		fmt.Fprintf(out, "Skipped %d rows with a repeated CompanyId (first occurrence kept)\n", dropped)
	}
	fmt.Fprintf(out, "Checking %d websites...\n", len(rows))

	// 2. Probe
	runner := core.NewRunner(probe.New(nil, c.ProbeConfig()), c.RunnerConfig())

	statsCtx, stopStats := context.WithCancel(ctx)
	var statsWg sync.WaitGroup
	if c.Stats {
		statsWg.Add(1)
		go func() {
			defer statsWg.Done()
			displayRunStats(statsCtx, runner, out)
		}()
	}

	results, err := runner.Run(ctx, rows)
	stopStats()
	statsWg.Wait()
	if err != nil {
		if errors.Is(err, core.ErrRunCancelled) {
			log.Println("Run cancelled, no report written.")
		}
		return err
	}
	displayFinalStats(runner, out)

	// 3. Filter and export
	entries := report.Filter(rows, results)
	exp, err := report.Write(c.Output, entries)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Results saved to %s (%d domains for sale)\n", c.Output, len(entries))

	// 4. Upload
	if s3cfg, ok := c.S3Config(); ok {
		uploader, err := report.NewS3Uploader(ctx, s3cfg)
		if err != nil {
			return err
		}
		key, err := uploader.Upload(ctx, c.Output, runID, exp.ContentType())
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Uploaded report to s3://%s/%s\n", s3cfg.Bucket, key)
	}
	return nil
}

// checkAddresses is the handler for the 'check' command.
func checkAddresses(ctx context.Context, c *config.Config, addrs []string, out io.Writer) error {
	if err := c.Validate(); err != nil {
		return err
	}
	client.ConfigureForProbes(c.Timeout)
	prober := probe.New(nil, c.ProbeConfig())

	limit := c.Concurrency
	if limit == 0 {
		limit = core.DefaultProbeWorkers
	}
	statuses := make([]probe.Status, len(addrs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit) // negative: no limit
	for i, addr := range addrs {
		i, addr := i, addr
		g.Go(func() error {
			statuses[i] = prober.Check(gctx, addr)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return err
	}

	for i, addr := range addrs {
		fmt.Fprintf(out, "%s\t%s\n", addr, statuses[i])
	}
	return nil
}

// printQuery is the handler for the 'sql' command.
func printQuery(c *config.Config, out io.Writer) error {
	pgCfg, err := c.PostgresConfig()
	if err != nil {
		return err
	}
	q, args := source.QueryFor(pgCfg)
	fmt.Fprintln(out, q)
	for i, arg := range args {
		if t, ok := arg.(time.Time); ok {
			arg = t.Format(config.DateLayout)
		}
		fmt.Fprintf(out, "-- $%d = %v\n", i+1, arg)
	}
	return nil
}

// displayRunStats periodically shows probe progress.
func displayRunStats(ctx context.Context, runner *core.Runner, out io.Writer) {
	ticker := time.NewTicker(core.StatsReportInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			stats := runner.GetStats()
			total := stats.TotalRows.Load()
			completed := stats.CompletedRows.Load()
			percentDone := 0.0
			if total > 0 {
				percentDone = float64(completed) / float64(total) * 100
			}
			failed := stats.ConnectionErrors.Load() + stats.Timeouts.Load() + stats.OtherErrors.Load()
			fmt.Fprintf(out, "\rProbed: %d/%d (%.1f%%) | For sale: %d | Failed: %d | Rate: %.0f rows/s",
				completed, total, percentDone, stats.ForSale.Load(), failed, stats.Rate())
		case <-ctx.Done():
			fmt.Fprintln(out)
			return
		}
	}
}

// displayFinalStats shows the summary statistics of a finished run.
func displayFinalStats(runner *core.Runner, out io.Writer) {
	stats := runner.GetStats()
	elapsed := time.Since(stats.StartTime)
	fmt.Fprintf(out, "\n--- Final Probe Statistics ---\n")
	fmt.Fprintf(out, " Processing Time: %v\n", elapsed.Round(time.Millisecond))
	fmt.Fprintf(out, "      Total Rows: %d\n", stats.TotalRows.Load())
	fmt.Fprintf(out, "     Probed Rows: %d\n", stats.CompletedRows.Load())
	fmt.Fprintf(out, "    Overall Rate: %.0f rows/sec\n", stats.Rate())
	fmt.Fprintln(out)
	tbl := table.New("Status", "Rows").WithWriter(out)
	for _, line := range stats.Breakdown() {
		tbl.AddRow(line.Label, line.Count)
	}
	tbl.Print()
	fmt.Fprintln(out)
	if n := stats.Panics.Load(); n > 0 {
		fmt.Fprintf(out, "  Recovered panics: %d\n", n)
	}
	if n := stats.Backpressure.Load(); n > 0 {
		fmt.Fprintf(out, "  Queue backpressure hits: %d\n", n)
	}
	fmt.Fprintf(out, "------------------------------\n")
}
