package app

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"paper.fit/scanlate/internal/cli"
	"paper.fit/scanlate/internal/config"
	"paper.fit/scanlate/internal/deepl"
	"paper.fit/scanlate/internal/keystore"
	"paper.fit/scanlate/internal/langdetect"
	"paper.fit/scanlate/internal/logging"
	"paper.fit/scanlate/internal/store"
	"paper.fit/scanlate/internal/translation"
	"paper.fit/scanlate/internal/transport"
)

// apiKeySecretName is the keystore entry holding the DeepL credential.
const apiKeySecretName = "deepl_api_key"

// runtime wires the shared components every command needs.
type runtime struct {
	cfg      *config.Config
	logger   zerolog.Logger
	registry *transport.Registry
	client   *deepl.Client
	manager  *translation.Manager
	detector *langdetect.Service
	store    *store.Store
}

type runtimeOptions struct {
	requireKey bool
	withStore  bool
}

func newRuntime(envLoader *cli.EnvLoader, opts runtimeOptions) (*runtime, error) {
	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}

	apiKey, err := resolveAPIKey(cfg)
	if err != nil {
		return nil, err
	}
	if opts.requireKey && apiKey == "" {
		return nil, fmt.Errorf("no API key configured: set DEEPL_API_KEY or store one with \"scanlate key set\"")
	}

	registry := transport.NewRegistry()
	executor := transport.NewExecutor(registry,
		transport.WithMaxRetries(cfg.MaxRetries),
		transport.WithLogger(logger),
	)

	var clientOpts []deepl.Option
	if strings.TrimSpace(cfg.DeepLAPIURL) != "" {
		clientOpts = append(clientOpts, deepl.WithBaseURL(cfg.DeepLAPIURL))
	}
	clientOpts = append(clientOpts, deepl.WithLogger(logger))
	client := deepl.NewClient(apiKey, executor, clientOpts...)

	providerRegistry := translation.NewRegistry(translation.DefaultProviderName)
	if err := providerRegistry.Register(translation.NewDeepLProvider(client)); err != nil {
		return nil, fmt.Errorf("register translation provider: %w", err)
	}

	var cacheStore *store.Store
	if opts.withStore && strings.TrimSpace(cfg.DatabaseURL) != "" {
		cacheStore, err = store.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open translation cache: %w", err)
		}
	}

	var cache translation.CacheStore
	if cacheStore != nil {
		cache = cacheStore
	}
	manager := translation.NewManager(cache, providerRegistry)

	var remote langdetect.RemoteDetector
	if apiKey != "" {
		remote = client
	}
	detector := langdetect.NewService(remote, logger)

	return &runtime{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		client:   client,
		manager:  manager,
		detector: detector,
		store:    cacheStore,
	}, nil
}

func (r *runtime) close() {
	if r == nil {
		return
	}
	r.registry.CancelAll()
	if r.store != nil {
		if err := r.store.Close(); err != nil {
			r.logger.Warn().Err(err).Msg("close translation cache")
		}
	}
}

func resolveAPIKey(cfg *config.Config) (string, error) {
	if key := strings.TrimSpace(cfg.DeepLAPIKey); key != "" {
		return key, nil
	}
	if strings.TrimSpace(cfg.KeystorePath) == "" {
		return "", nil
	}

	ks, err := keystore.New(cfg.KeystorePath, cfg.KeystorePassphrase)
	if err != nil {
		return "", fmt.Errorf("open keystore: %w", err)
	}
	key, err := ks.Get(apiKeySecretName)
	if err != nil {
		if errors.Is(err, keystore.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("read API key from keystore: %w", err)
	}
	return strings.TrimSpace(key), nil
}
