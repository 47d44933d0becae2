package app

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"paper.fit/scanlate/internal/cli"
	"paper.fit/scanlate/internal/config"
	"paper.fit/scanlate/internal/keystore"
)

func runKey(args []string) int {
	if len(args) == 0 {
		printKeyUsage()
		return 2
	}

	action := strings.ToLower(strings.TrimSpace(args[0]))
	switch action {
	case "set", "show", "delete":
	default:
		fmt.Fprintf(os.Stderr, "unknown key action: %s\n\n", args[0])
		printKeyUsage()
		return 2
	}

	fs := flag.NewFlagSet("key "+action, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")

	if err := fs.Parse(args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}
	if strings.TrimSpace(cfg.KeystorePath) == "" {
		fmt.Fprintln(os.Stderr, "KEYSTORE_PATH is not configured")
		return 2
	}

	ks, err := keystore.New(cfg.KeystorePath, cfg.KeystorePassphrase)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open keystore: %v\n", err)
		return 1
	}

	switch action {
	case "set":
		fmt.Fprint(os.Stderr, "Enter API key: ")
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			fmt.Fprintf(os.Stderr, "Failed to read API key: %v\n", err)
			return 1
		}
		value := strings.TrimSpace(line)
		if value == "" {
			fmt.Fprintln(os.Stderr, "API key must not be empty")
			return 2
		}
		if err := ks.Set(apiKeySecretName, value); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to store API key: %v\n", err)
			return 1
		}
		fmt.Fprintln(os.Stderr, "API key stored")
		return 0
	case "show":
		value, err := ks.Get(apiKeySecretName)
		if err != nil {
			if errors.Is(err, keystore.ErrNotFound) {
				fmt.Fprintln(os.Stderr, "no API key stored")
				return 1
			}
			fmt.Fprintf(os.Stderr, "Failed to read API key: %v\n", err)
			return 1
		}
		fmt.Println(maskKey(value))
		return 0
	default:
		if err := ks.Delete(apiKeySecretName); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to delete API key: %v\n", err)
			return 1
		}
		fmt.Fprintln(os.Stderr, "API key deleted")
		return 0
	}
}

func maskKey(value string) string {
	if len(value) <= 8 {
		return strings.Repeat("*", len(value))
	}
	return value[:4] + strings.Repeat("*", len(value)-8) + value[len(value)-4:]
}

func printKeyUsage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  scanlate key set     Store the API key (read from stdin)")
	fmt.Fprintln(os.Stderr, "  scanlate key show    Print the stored API key, masked")
	fmt.Fprintln(os.Stderr, "  scanlate key delete  Remove the stored API key")
}
