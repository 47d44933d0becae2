package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"paper.fit/scanlate/internal/cli"
	"paper.fit/scanlate/internal/langdetect"
)

func runDetect(args []string) int {
	fs := flag.NewFlagSet("detect", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")
	method := fs.String("method", "", "Preferred detection method: local or api (default: config)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "detect requires exactly one text argument")
		return 2
	}

	rt, err := newRuntime(envLoader, runtimeOptions{})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer rt.close()

	requested := *method
	if requested == "" {
		requested = rt.cfg.DetectPreference
	}
	preferred, err := langdetect.ParseMethod(requested)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	detection, err := rt.detector.Detect(ctx, fs.Arg(0), preferred)
	if err != nil {
		if errors.Is(err, langdetect.ErrEmptyText) {
			fmt.Fprintln(os.Stderr, "text must not be empty")
			return 2
		}
		rt.logger.Error().Err(err).Msg("detection failed")
		fmt.Fprintf(os.Stderr, "Detection failed: %v\n", err)
		return 1
	}

	fmt.Printf("%s\t%s\t%.2f\n", detection.Code, detection.Name, detection.Confidence)
	return 0
}
