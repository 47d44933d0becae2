package app

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"paper.fit/scanlate/internal/cli"
	"paper.fit/scanlate/internal/manifest"
	"paper.fit/scanlate/internal/translation"
)

func runBatch(args []string) int {
	fs := flag.NewFlagSet("batch", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 10*time.Minute, "Command timeout")
	force := fs.Bool("force", false, "Retranslate even when cached translations exist")
	dryRun := fs.Bool("dry-run", false, "Validate the manifest and report work without translating")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "batch requires exactly one manifest argument")
		return 2
	}

	raw, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read manifest: %v\n", err)
		return 1
	}

	m, err := manifest.Parse(raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid manifest: %v\n", err)
		return 2
	}

	rt, err := newRuntime(envLoader, runtimeOptions{requireKey: !*dryRun, withStore: true})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer rt.close()

	tasks := make([]translation.Task, 0, len(m.Items))
	for _, item := range m.Items {
		tasks = append(tasks, translation.Task{ID: item.ID, Text: item.Text})
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	stats, results, err := rt.manager.Run(ctx, tasks, translation.RunOptions{
		TargetLang: m.TargetLang,
		Provider:   m.Provider,
		Force:      *force,
		DryRun:     *dryRun,
	})
	if err != nil {
		rt.logger.Error().Err(err).Msg("batch translation failed")
		fmt.Fprintf(os.Stderr, "Batch translation failed: %v\n", err)
		return 1
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(map[string]any{
		"stats":   stats,
		"results": results,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode results: %v\n", err)
		return 1
	}
	return 0
}
