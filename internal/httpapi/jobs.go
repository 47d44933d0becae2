package httpapi

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"paper.fit/scanlate/internal/deepl"
)

// JobState is the lifecycle of a document-translation job as exposed by the
// API. States only move forward; done, failed and cancelled are terminal.
type JobState string

const (
	JobStateQueued      JobState = "queued"
	JobStateTranslating JobState = "translating"
	JobStateDone        JobState = "done"
	JobStateFailed      JobState = "failed"
	JobStateCancelled   JobState = "cancelled"
)

// Terminal reports whether the job reached a final state.
func (s JobState) Terminal() bool {
	return s == JobStateDone || s == JobStateFailed || s == JobStateCancelled
}

// DocumentJobView is the API-facing snapshot of one job.
type DocumentJobView struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	TargetLang string    `json:"target_lang"`
	State      JobState  `json:"state"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type documentTranslator interface {
	TranslateDocument(ctx context.Context, payload []byte, filename, targetLang string, opts deepl.DocumentJobOptions) (string, error)
}

type jobRecord struct {
	view       DocumentJobView
	resultPath string
	cancel     context.CancelFunc
}

// JobBoard owns every in-flight and finished document job. One goroutine per
// job drives the submit/poll/fetch protocol; the board serializes all state
// reads and writes.
type JobBoard struct {
	mu           sync.Mutex
	jobs         map[string]*jobRecord
	translator   documentTranslator
	pollInterval time.Duration
	maxPolls     int
	outputDir    string
	logger       zerolog.Logger
}

type JobBoardOptions struct {
	PollInterval time.Duration
	MaxPolls     int
	OutputDir    string
}

func NewJobBoard(translator documentTranslator, logger zerolog.Logger, opts JobBoardOptions) *JobBoard {
	return &JobBoard{
		jobs:         make(map[string]*jobRecord),
		translator:   translator,
		pollInterval: opts.PollInterval,
		maxPolls:     opts.MaxPolls,
		outputDir:    opts.OutputDir,
		logger:       logger,
	}
}

// Submit registers a new job and starts driving it in the background.
func (b *JobBoard) Submit(payload []byte, filename, targetLang string) DocumentJobView {
	now := time.Now().UTC()
	ctx, cancel := context.WithCancel(context.Background())

	record := &jobRecord{
		view: DocumentJobView{
			ID:         uuid.NewString(),
			Filename:   filename,
			TargetLang: targetLang,
			State:      JobStateQueued,
			CreatedAt:  now,
			UpdatedAt:  now,
		},
		cancel: cancel,
	}

	b.mu.Lock()
	b.jobs[record.view.ID] = record
	b.mu.Unlock()

	go b.run(ctx, record.view.ID, payload, filename, targetLang)
	return record.view
}

func (b *JobBoard) run(ctx context.Context, id string, payload []byte, filename, targetLang string) {
	opts := deepl.DocumentJobOptions{
		PollInterval: b.pollInterval,
		MaxPolls:     b.maxPolls,
		OutputDir:    b.outputDir,
		OnStatus: func(status deepl.DocumentStatus) {
			switch status {
			case deepl.StatusQueued:
				b.setState(id, JobStateQueued, "", "")
			case deepl.StatusTranslating:
				b.setState(id, JobStateTranslating, "", "")
			}
		},
	}

	path, err := b.translator.TranslateDocument(ctx, payload, filename, targetLang, opts)
	switch {
	case err == nil:
		b.setState(id, JobStateDone, "", path)
	case errors.Is(err, context.Canceled):
		b.setState(id, JobStateCancelled, "cancelled", "")
	default:
		b.logger.Warn().Err(err).Str("job_id", id).Msg("document job failed")
		b.setState(id, JobStateFailed, err.Error(), "")
	}
}

func (b *JobBoard) setState(id string, state JobState, errorMessage, resultPath string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	record, ok := b.jobs[id]
	if !ok || record.view.State.Terminal() {
		return
	}
	record.view.State = state
	record.view.Error = errorMessage
	record.view.UpdatedAt = time.Now().UTC()
	if resultPath != "" {
		record.resultPath = resultPath
	}
}

// Get returns a snapshot of the job.
func (b *JobBoard) Get(id string) (DocumentJobView, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	record, ok := b.jobs[id]
	if !ok {
		return DocumentJobView{}, false
	}
	return record.view, true
}

// ResultPath returns the filesystem path of a finished job's output.
func (b *JobBoard) ResultPath(id string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	record, ok := b.jobs[id]
	if !ok || record.view.State != JobStateDone {
		return "", false
	}
	return record.resultPath, true
}

// Cancel aborts a running job. Cancelling a finished or unknown job reports
// false.
func (b *JobBoard) Cancel(id string) bool {
	b.mu.Lock()
	record, ok := b.jobs[id]
	if !ok || record.view.State.Terminal() {
		b.mu.Unlock()
		return false
	}
	cancel := record.cancel
	b.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	return true
}

// CancelAll aborts every running job; used on shutdown.
func (b *JobBoard) CancelAll() {
	b.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(b.jobs))
	for _, record := range b.jobs {
		if !record.view.State.Terminal() && record.cancel != nil {
			cancels = append(cancels, record.cancel)
		}
	}
	b.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}
