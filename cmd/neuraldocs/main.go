// Copyright 2025 The neuraldocs Authors
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
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/mxmarchal/neuraldocs"
	"github.com/mxmarchal/neuraldocs/config"
	"github.com/mxmarchal/neuraldocs/server"
)

func main() {
	// Best effort; the API key can come from a .env file in development.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "neuraldocs",
		Usage: "Web-article retrieval-augmented question answering",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML config file (defaults apply if omitted)",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API server",
				Action: serveCommand,
			},
			{
				Name:      "ingest",
				Usage:     "Ingest one URL synchronously",
				ArgsUsage: "<url>",
				Action:    ingestCommand,
			},
			{
				Name:      "query",
				Usage:     "Ask a question over the ingested corpus",
				ArgsUsage: "<question>",
				Action:    queryCommand,
			},
			{
				Name:   "reindex",
				Usage:  "Re-embed every stored document with the current embedding model",
				Action: reindexCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	path := c.String("config")
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func serveCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	svc, err := neuraldocs.NewService(cfg)
	if err != nil {
		return fmt.Errorf("failed to build service: %w", err)
	}
	defer svc.Close()

	ctx := context.Background()

	// A wrong embedding width would silently poison every later search,
	// so refuse to serve with one.
	if err := svc.VerifyEmbedding(ctx); err != nil {
		return err
	}

	if _, err := svc.Recover(ctx); err != nil {
		return fmt.Errorf("failed to recover unfinished jobs: %w", err)
	}

	srv := server.NewServer(svc,
		server.WithAddr(cfg.Server.Addr()),
		server.WithRequestTimeout(time.Duration(cfg.Server.RequestTimeout)*time.Second),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		slog.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}

func ingestCommand(c *cli.Context) error {
	url := c.Args().First()
	if url == "" {
		return fmt.Errorf("usage: neuraldocs ingest <url>")
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	svc, err := neuraldocs.NewService(cfg)
	if err != nil {
		return fmt.Errorf("failed to build service: %w", err)
	}
	defer svc.Close()

	id, err := svc.Ingest(context.Background(), url)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	fmt.Printf("ingested %s as document %s\n", url, id.String())
	return nil
}

func queryCommand(c *cli.Context) error {
	question := strings.Join(c.Args().Slice(), " ")
	if question == "" {
		return fmt.Errorf("usage: neuraldocs query <question>")
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	svc, err := neuraldocs.NewService(cfg)
	if err != nil {
		return fmt.Errorf("failed to build service: %w", err)
	}
	defer svc.Close()

	result, err := svc.Query(context.Background(), question)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	fmt.Println(result.Answer)
	if len(result.Sources) > 0 {
		fmt.Println("\nSources:")
		for _, src := range result.Sources {
			fmt.Printf("  %s\n", src)
		}
	}
	return nil
}

func reindexCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	svc, err := neuraldocs.NewService(cfg)
	if err != nil {
		return fmt.Errorf("failed to build service: %w", err)
	}
	defer svc.Close()

	count, err := svc.ReindexAll(context.Background())
	if err != nil {
		return fmt.Errorf("reindexing failed after %d documents: %w", count, err)
	}

	fmt.Printf("reindexed %d documents\n", count)
	return nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

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

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
