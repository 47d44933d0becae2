package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"paper.fit/scanlate/internal/cli"
	"paper.fit/scanlate/internal/language"
	"paper.fit/scanlate/internal/translation"
)

func runTranslate(args []string) int {
	fs := flag.NewFlagSet("translate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 2*time.Minute, "Command timeout")
	lang := fs.String("lang", "", "Target language (ISO 639-1, for example: en, de)")
	provider := fs.String("provider", "", "Translation provider name")
	force := fs.Bool("force", false, "Retranslate even when a cached translation exists")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "translate requires exactly one text argument")
		return 2
	}

	targetLang := language.NormalizeCode(*lang)
	if targetLang == "" {
		fmt.Fprintln(os.Stderr, "--lang is required and must be a valid language code")
		return 2
	}

	text := strings.TrimSpace(fs.Arg(0))
	if text == "" {
		fmt.Fprintln(os.Stderr, "text must not be empty")
		return 2
	}

	rt, err := newRuntime(envLoader, runtimeOptions{requireKey: true, withStore: true})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer rt.close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	result, err := rt.manager.TranslateText(ctx, text, translation.RunOptions{
		TargetLang: targetLang,
		Provider:   *provider,
		Force:      *force,
	})
	if err != nil {
		rt.logger.Error().Err(err).Msg("translate failed")
		fmt.Fprintf(os.Stderr, "Translation failed: %v\n", err)
		return 1
	}

	fmt.Println(result.Text)
	if result.SourceLang != "" {
		fmt.Fprintf(os.Stderr, "detected source language: %s", result.SourceLang)
		if result.Cached {
			fmt.Fprint(os.Stderr, " (cached)")
		}
		fmt.Fprintln(os.Stderr)
	}
	return 0
}
