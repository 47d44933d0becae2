package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"paper.fit/scanlate/internal/cli"
	"paper.fit/scanlate/internal/deepl"
	"paper.fit/scanlate/internal/language"
)

func runDocument(args []string) int {
	fs := flag.NewFlagSet("document", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 15*time.Minute, "Command timeout covering the whole job")
	lang := fs.String("lang", "", "Target language (ISO 639-1, for example: en, de)")
	outDir := fs.String("out", "", "Directory for the translated document (default: system temp)")
	pollInterval := fs.Duration("poll-interval", 0, "Delay between status polls (default: 2s)")
	maxPolls := fs.Int("max-polls", 0, "Maximum status polls before giving up")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "document requires exactly one file argument")
		return 2
	}

	targetLang := language.NormalizeCode(*lang)
	if targetLang == "" {
		fmt.Fprintln(os.Stderr, "--lang is required and must be a valid language code")
		return 2
	}

	path := fs.Arg(0)
	payload, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read document: %v\n", err)
		return 1
	}
	if len(payload) == 0 {
		fmt.Fprintln(os.Stderr, "document file is empty")
		return 2
	}

	rt, err := newRuntime(envLoader, runtimeOptions{requireKey: true})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer rt.close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	opts := rt.documentJobOptions()
	if *pollInterval > 0 {
		opts.PollInterval = *pollInterval
	}
	if *maxPolls > 0 {
		opts.MaxPolls = *maxPolls
	}
	opts.OutputDir = *outDir
	opts.OnStatus = func(status deepl.DocumentStatus) {
		fmt.Fprintf(os.Stderr, "status: %s\n", status)
	}

	resultPath, err := rt.client.TranslateDocument(ctx, payload, filepath.Base(path), targetLang, opts)
	if err != nil {
		rt.logger.Error().Err(err).Str("file", path).Msg("document translation failed")
		fmt.Fprintf(os.Stderr, "Document translation failed: %v\n", err)
		return 1
	}

	fmt.Println(resultPath)
	return 0
}

func (r *runtime) documentJobOptions() deepl.DocumentJobOptions {
	return deepl.DocumentJobOptions{
		PollInterval: r.cfg.DocPollInterval,
		MaxPolls:     r.cfg.DocMaxPolls,
	}
}
