package app

import (
	"fmt"
	"os"
	"strings"
)

// Run executes the CLI command and returns a process exit code.
func Run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 2
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "help", "--help", "-h":
		printUsage()
		return 0
	case "translate":
		return runTranslate(args[1:])
	case "document":
		return runDocument(args[1:])
	case "detect":
		return runDetect(args[1:])
	case "batch":
		return runBatch(args[1:])
	case "languages":
		return runLanguages(args[1:])
	case "key":
		return runKey(args[1:])
	case "serve":
		return runServe(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		return 2
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "scanlate CLI")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  scanlate <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  translate  Translate a text argument")
	fmt.Fprintln(os.Stderr, "  document   Translate a document file end to end")
	fmt.Fprintln(os.Stderr, "  detect     Detect the language of a text sample")
	fmt.Fprintln(os.Stderr, "  batch      Translate every item in a JSON manifest")
	fmt.Fprintln(os.Stderr, "  languages  List supported target languages")
	fmt.Fprintln(os.Stderr, "  key        Manage the stored API credential")
	fmt.Fprintln(os.Stderr, "  serve      Start the HTTP API server")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Use \"scanlate <command> -h\" for command-specific flags.")
}
