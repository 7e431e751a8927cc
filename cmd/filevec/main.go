// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/filevec"
	"github.com/poiesic/filevec/ai"
	"github.com/poiesic/filevec/config"
	"github.com/poiesic/filevec/core"
	"github.com/poiesic/filevec/ingestion"
	"github.com/poiesic/filevec/monitor"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(os.Stdout, os.Stderr).RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

// storageFlags override the storage and ingest settings of the config file.
func storageFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "table",
			Aliases: []string{"t"},
			Usage:   "Target table name",
		},
		&cli.StringFlag{
			Name:  "backend",
			Usage: "Storage backend (" + strings.Join(config.Backends, ", ") + ")",
		},
		&cli.StringFlag{
			Name:  "storage-path",
			Usage: "Database directory (badger) or file (sqlite)",
		},
	}
}

// ingestFlags override the embedding settings of the config file.
func ingestFlags() []cli.Flag {
	return append(storageFlags(),
		&cli.StringFlag{
			Name:    "provider",
			Aliases: []string{"p"},
			Usage:   "Embedding provider (" + strings.Join(ai.ProviderNames(), ", ") + ")",
		},
		&cli.StringFlag{
			Name:  "openai-host",
			Usage: "OpenAI-compatible API base URL",
		},
		&cli.IntFlag{
			Name:  "dimension",
			Usage: "Target vector dimension (384, 786, 1024, 4096)",
		},
		&cli.IntFlag{
			Name:  "chunk-size",
			Usage: "Maximum chunk length in characters (100-1000)",
		},
		&cli.IntFlag{
			Name:  "pool-size",
			Usage: "Number of files uploaded concurrently",
		},
		&cli.IntFlag{
			Name:  "max-retries",
			Usage: "Maximum attempts per embedding request",
		},
		&cli.Float64Flag{
			Name:  "rate-limit",
			Usage: "Maximum embedding requests per second (0 disables)",
		},
		&cli.IntFlag{
			Name:  "report-interval",
			Usage: "Report progress every N chunks",
			Value: 1,
		},
		&cli.BoolFlag{
			Name:    "quiet",
			Aliases: []string{"q"},
			Usage:   "Do not print progress",
		},
	)
}

func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "filevec",
		Usage:     "Upload documents into a vector table",
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Config file (.yaml, .toml or custom_settings .json)",
				Value:   "filevec.yaml",
				EnvVars: []string{"FILEVEC_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Dotenv file loaded before reading the environment",
				Value: ".env",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "upload",
				Usage:     "Upload files into the vector table",
				ArgsUsage: "FILE...",
				Action:    uploadCommand,
				Flags:     ingestFlags(),
			},
			{
				Name:   "monitor",
				Usage:  "Upload new files from the monitored directory",
				Action: monitorCommand,
				Flags: append(ingestFlags(),
					&cli.StringFlag{
						Name:    "dir",
						Aliases: []string{"d"},
						Usage:   "Directory to monitor",
					},
					&cli.StringSliceFlag{
						Name:  "include",
						Usage: "Glob of file names to upload (repeatable)",
					},
					&cli.StringSliceFlag{
						Name:  "exclude",
						Usage: "Glob of file names to skip (repeatable)",
					},
					&cli.BoolFlag{
						Name:    "watch",
						Aliases: []string{"w"},
						Usage:   "Keep running and upload files as they arrive",
					},
					&cli.DurationFlag{
						Name:  "settle",
						Usage: "How long a file must stay unchanged before it is uploaded in watch mode",
						Value: monitor.DefaultSettle,
					},
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "List new files without uploading",
					},
					&cli.BoolFlag{
						Name:  "reset",
						Usage: "Forget previously uploaded files first",
					},
				),
			},
			{
				Name:   "purge",
				Usage:  "Delete every row of the vector table",
				Action: purgeCommand,
				Flags: append(storageFlags(),
					&cli.BoolFlag{
						Name:  "yes",
						Usage: "Confirm the deletion",
					},
				),
			},
			{
				Name:   "count",
				Usage:  "Print the number of rows in the vector table",
				Action: countCommand,
				Flags:  storageFlags(),
			},
			{
				Name:   "list",
				Usage:  "Print stored rows of the vector table",
				Action: listCommand,
				Flags: append(storageFlags(),
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Maximum number of rows to print (0 prints all)",
						Value:   10,
					},
				),
			},
		},
	}
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

// loadConfig reads the config file, overlays the environment and then any
// flag set on the command line.
func loadConfig(c *cli.Context) (*config.Config, error) {
	if err := config.LoadDotEnv(c.String("env-file")); err != nil {
		return nil, err
	}

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, fmt.Errorf("%w: environment: %w", core.ErrConfiguration, err)
	}

	setString := func(flag string, dst *string) {
		if c.IsSet(flag) {
			*dst = c.String(flag)
		}
	}
	setInt := func(flag string, dst *int) {
		if c.IsSet(flag) {
			*dst = c.Int(flag)
		}
	}

	setString("table", &cfg.Storage.Table)
	setString("backend", &cfg.Storage.Backend)
	setString("storage-path", &cfg.Storage.Path)
	setString("provider", &cfg.Embedding.Provider)
	setString("openai-host", &cfg.Embedding.OpenAIHost)
	setString("dir", &cfg.Monitor.Dir)
	setInt("dimension", &cfg.Ingest.Dimension)
	setInt("chunk-size", &cfg.Ingest.ChunkSize)
	setInt("pool-size", &cfg.Ingest.PoolSize)
	setInt("max-retries", &cfg.Embedding.MaxRetries)
	if c.IsSet("rate-limit") {
		cfg.Embedding.RateLimit = c.Float64("rate-limit")
	}
	if c.IsSet("include") {
		cfg.Monitor.Include = c.StringSlice("include")
	}
	if c.IsSet("exclude") {
		cfg.Monitor.Exclude = c.StringSlice("exclude")
	}
	return cfg, nil
}

func openUploader(c *cli.Context) (*filevec.Uploader, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	return filevec.Open(cfg)
}

// observerFactory prints progress to the error stream unless --quiet is set.
func observerFactory(c *cli.Context) filevec.ObserverFactory {
	if c.Bool("quiet") {
		return nil
	}
	return func(path string) ingestion.Observer {
		return ingestion.NewProgressReporter(c.App.ErrWriter, filepath.Base(path), c.Int("report-interval"))
	}
}

// report prints one line per file and a total, and returns an error when a
// file could not be uploaded at all.
func report(w io.Writer, results []filevec.FileResult) error {
	failed := 0
	for _, r := range results {
		switch {
		case r.Err != nil:
			failed++
			fmt.Fprintf(w, "%s: error: %v\n", r.Path, r.Err)
		case r.Run != nil:
			fmt.Fprintf(w, "%s: %s (%d/%d chunks stored)\n", r.Path, r.Run.Status(), r.Run.Succeeded, r.Run.Total)
		}
	}

	total := filevec.Summarize(results)
	fmt.Fprintf(w, "Total: %d succeeded, %d failed, %d skipped of %d chunks\n",
		total.Succeeded, total.Failed, total.Skipped, total.Total)

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(results))
	}
	if total.Attempted > 0 && total.Succeeded == 0 {
		return errors.New("no chunk was stored")
	}
	return nil
}

func uploadCommand(c *cli.Context) error {
	paths := c.Args().Slice()
	if len(paths) == 0 {
		return fmt.Errorf("at least one file is required")
	}

	up, err := openUploader(c)
	if err != nil {
		return err
	}
	defer up.Close()

	start := time.Now()
	results, err := up.UploadFiles(c.Context, paths, observerFactory(c))
	if err != nil {
		return err
	}
	slog.Info("upload finished", "files", len(paths), "duration", time.Since(start))
	return report(c.App.Writer, results)
}

func monitorCommand(c *cli.Context) error {
	up, err := openUploader(c)
	if err != nil {
		return err
	}
	defer up.Close()

	if c.Bool("reset") {
		if err := up.ForgetUploaded(); err != nil {
			return err
		}
	}

	if c.Bool("dry-run") {
		files, err := up.NewFiles(c.Context)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			fmt.Fprintln(c.App.Writer, "No new files detected.")
			return nil
		}
		fmt.Fprintln(c.App.Writer, "New files detected:")
		for _, f := range files {
			fmt.Fprintf(c.App.Writer, "- %s\n", f.Name)
		}
		return nil
	}

	if err := uploadNew(c, up); err != nil {
		return err
	}
	if !c.Bool("watch") {
		return nil
	}

	dir := up.Config().Monitor.Dir
	return monitor.Watch(c.Context, dir, func(path string) {
		if err := uploadNew(c, up); err != nil {
			slog.Error("upload of new files failed", "trigger", path, "err", err)
		}
	}, monitor.WithSettle(c.Duration("settle")))
}

func uploadNew(c *cli.Context, up *filevec.Uploader) error {
	results, err := up.UploadNew(c.Context, observerFactory(c))
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Fprintln(c.App.Writer, "No new files detected.")
		return nil
	}
	return report(c.App.Writer, results)
}

func purgeCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if !c.Bool("yes") {
		return fmt.Errorf("refusing to delete every row of %q without --yes", cfg.Storage.Table)
	}

	up, err := filevec.Open(cfg)
	if err != nil {
		return err
	}
	defer up.Close()

	n, err := up.Purge(c.Context)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Deleted %d rows from %s\n", n, cfg.Storage.Table)
	return nil
}

func countCommand(c *cli.Context) error {
	up, err := openUploader(c)
	if err != nil {
		return err
	}
	defer up.Close()

	n, err := up.Count(c.Context)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "%d\n", n)
	return nil
}

// previewLen bounds the content shown per row by the list command.
const previewLen = 60

func listCommand(c *cli.Context) error {
	up, err := openUploader(c)
	if err != nil {
		return err
	}
	defer up.Close()

	rows, err := up.List(c.Context, c.Int("limit"))
	if err != nil {
		return err
	}
	for _, row := range rows {
		fmt.Fprintf(c.App.Writer, "%d\t%d\t%s\n", row.Id, len(row.Embedding), preview(row.Content))
	}
	return nil
}

func preview(content string) string {
	content = strings.Join(strings.Fields(content), " ")
	runes := []rune(content)
	if len(runes) <= previewLen {
		return content
	}
	return string(runes[:previewLen]) + "..."
}
