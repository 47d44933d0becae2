package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultMaxRetries bounds automatic retries of transient server failures.
	DefaultMaxRetries = 3
	// DefaultBackoffBase is the unit for exponential retry backoff: the delay
	// before retry n (1-indexed) is 2^n * base.
	DefaultBackoffBase = 500 * time.Millisecond

	progressSent    = 0.1
	progressHeaders = 0.7
	progressDecoded = 0.9
	progressDone    = 1.0
)

// Request describes one HTTP exchange.
type Request struct {
	Method      string
	URL         string
	Header      http.Header
	Body        []byte
	ContentType string

	// ID is the caller-chosen identifier used for cancellation. Reusing an
	// identifier cancels and replaces the in-flight request under it. Empty
	// means the request is not cancellable by identifier.
	ID string
}

// Progress receives monotonically non-decreasing values in [0,1] at coarse
// request milestones.
type Progress func(fraction float64)

// Executor performs HTTP exchanges with automatic retry of transient server
// failures (HTTP 429 and 500-599) and exponential backoff between attempts.
type Executor struct {
	client      *http.Client
	registry    *Registry
	maxRetries  int
	backoffBase time.Duration
	logger      zerolog.Logger
}

type Option func(*Executor)

func WithHTTPClient(client *http.Client) Option {
	return func(e *Executor) {
		if client != nil {
			e.client = client
		}
	}
}

func WithMaxRetries(max int) Option {
	return func(e *Executor) {
		if max >= 0 {
			e.maxRetries = max
		}
	}
}

func WithBackoffBase(base time.Duration) Option {
	return func(e *Executor) {
		if base > 0 {
			e.backoffBase = base
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(e *Executor) {
		e.logger = logger
	}
}

func NewExecutor(registry *Registry, opts ...Option) *Executor {
	e := &Executor{
		client:      &http.Client{Timeout: 2 * time.Minute},
		registry:    registry,
		maxRetries:  DefaultMaxRetries,
		backoffBase: DefaultBackoffBase,
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry exposes the cancellation registry this executor registers with.
func (e *Executor) Registry() *Registry {
	return e.registry
}

// Execute performs the request and decodes the JSON response body into out
// when out is non-nil. A 2xx response whose body does not decode into out is
// a decoding error, never a success.
func (e *Executor) Execute(ctx context.Context, req Request, out any, progress Progress) error {
	tracker := newProgressTracker(progress)
	body, err := e.perform(ctx, req, tracker)
	if err != nil {
		return err
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return &Error{Kind: KindDecoding, Err: err}
		}
	}
	tracker.report(progressDecoded)
	tracker.report(progressDone)
	return nil
}

// ExecuteRaw performs the request and returns the raw response body.
func (e *Executor) ExecuteRaw(ctx context.Context, req Request, progress Progress) ([]byte, error) {
	tracker := newProgressTracker(progress)
	body, err := e.perform(ctx, req, tracker)
	if err != nil {
		return nil, err
	}
	tracker.report(progressDone)
	return body, nil
}

// Start performs the request on its own goroutine and delivers exactly one
// completion through done, never synchronously on the caller's goroutine.
// When the request carries an identifier, it is registered for cancellation;
// a request cancelled or replaced while in flight delivers no completion.
func (e *Executor) Start(ctx context.Context, req Request, progress Progress, done func(body []byte, err error)) {
	runCtx, cancel := context.WithCancel(ctx)

	var generation uint64
	registered := req.ID != "" && e.registry != nil
	if registered {
		generation = e.registry.Register(req.ID, cancel)
	}

	// Start owns the registration; the inner exchange must not register the
	// identifier a second time or it would cancel this run context.
	inner := req
	inner.ID = ""

	go func() {
		defer cancel()

		body, err := e.ExecuteRaw(runCtx, inner, progress)
		if registered && !e.registry.Release(req.ID, generation) {
			return
		}
		if runCtx.Err() != nil {
			return
		}
		if done != nil {
			done(body, err)
		}
	}()
}

func (e *Executor) perform(ctx context.Context, req Request, tracker *progressTracker) ([]byte, error) {
	if _, err := url.ParseRequestURI(req.URL); err != nil {
		return nil, &Error{Kind: KindInvalidURL, Message: req.URL, Err: err}
	}

	// A sync caller can still cancel by identifier while the exchange is in
	// flight; the registry entry lives only for the duration of the call.
	if req.ID != "" && e.registry != nil {
		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		generation := e.registry.Register(req.ID, cancel)
		defer e.registry.Release(req.ID, generation)
		ctx = runCtx
	}

	var lastStatus int
	for attempt := 0; ; attempt++ {
		body, err := e.roundTrip(ctx, req, tracker)
		if err == nil {
			return body, nil
		}

		status := StatusOf(err)
		if !retryableStatus(status) {
			return nil, err
		}
		lastStatus = status

		if attempt >= e.maxRetries {
			return nil, &Error{
				Kind:    KindServer,
				Status:  lastStatus,
				Message: fmt.Sprintf("retries exhausted after %d attempts", attempt+1),
			}
		}

		delay := e.backoffBase * (1 << (attempt + 1))
		e.logger.Debug().
			Str("url", req.URL).
			Int("status", status).
			Int("attempt", attempt+1).
			Dur("delay", delay).
			Msg("retrying transient server failure")

		if err := sleepContext(ctx, delay); err != nil {
			return nil, &Error{Kind: KindNetwork, Err: err}
		}
	}
}

func (e *Executor) roundTrip(ctx context.Context, req Request, tracker *progressTracker) ([]byte, error) {
	var bodyReader io.Reader
	if len(req.Body) > 0 {
		bodyReader = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, bodyReader)
	if err != nil {
		return nil, &Error{Kind: KindRequestPreparation, Err: err}
	}
	for name, values := range req.Header {
		for _, value := range values {
			httpReq.Header.Add(name, value)
		}
	}
	if req.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}

	tracker.report(progressSent)

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Err: err}
	}
	defer resp.Body.Close()

	tracker.report(progressHeaders)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: KindInvalidResponse, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &Error{
			Kind:    KindServer,
			Status:  resp.StatusCode,
			Message: strings.TrimSpace(string(body)),
		}
	}

	return body, nil
}

func retryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || (status >= 500 && status <= 599)
}

func sleepContext(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// progressTracker keeps reported fractions monotonically non-decreasing even
// when an attempt is retried from the start.
type progressTracker struct {
	callback Progress
	best     float64
}

func newProgressTracker(callback Progress) *progressTracker {
	return &progressTracker{callback: callback}
}

func (t *progressTracker) report(fraction float64) {
	if t == nil || t.callback == nil {
		return
	}
	if fraction <= t.best {
		return
	}
	t.best = fraction
	t.callback(fraction)
}
