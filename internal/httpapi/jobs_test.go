package httpapi

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"paper.fit/scanlate/internal/deepl"
)

type fakeTranslator struct {
	run func(ctx context.Context, opts deepl.DocumentJobOptions) (string, error)
}

func (f *fakeTranslator) TranslateDocument(ctx context.Context, payload []byte, filename, targetLang string, opts deepl.DocumentJobOptions) (string, error) {
	return f.run(ctx, opts)
}

func waitForTerminal(t *testing.T, board *JobBoard, id string) DocumentJobView {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, ok := board.Get(id)
		if !ok {
			t.Fatalf("job %s disappeared", id)
		}
		if job.State.Terminal() {
			return job
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("job %s never reached a terminal state", id)
	return DocumentJobView{}
}

func TestJobBoard_SuccessfulJob(t *testing.T) {
	t.Parallel()

	translator := &fakeTranslator{run: func(ctx context.Context, opts deepl.DocumentJobOptions) (string, error) {
		opts.OnStatus(deepl.StatusTranslating)
		return "/tmp/result.pdf", nil
	}}
	board := NewJobBoard(translator, zerolog.Nop(), JobBoardOptions{})

	job := board.Submit([]byte("doc"), "scan.pdf", "de")
	if job.State != JobStateQueued {
		t.Fatalf("new job should start queued, got %s", job.State)
	}
	if job.ID == "" {
		t.Fatalf("job should get an identifier")
	}

	final := waitForTerminal(t, board, job.ID)
	if final.State != JobStateDone {
		t.Fatalf("expected done, got %s (error %q)", final.State, final.Error)
	}

	path, ok := board.ResultPath(job.ID)
	if !ok || path != "/tmp/result.pdf" {
		t.Fatalf("unexpected result path: %q ok=%v", path, ok)
	}
}

func TestJobBoard_FailedJob(t *testing.T) {
	t.Parallel()

	translator := &fakeTranslator{run: func(ctx context.Context, opts deepl.DocumentJobOptions) (string, error) {
		return "", errors.New("unsupported file format")
	}}
	board := NewJobBoard(translator, zerolog.Nop(), JobBoardOptions{})

	job := board.Submit([]byte("doc"), "scan.pdf", "de")
	final := waitForTerminal(t, board, job.ID)
	if final.State != JobStateFailed {
		t.Fatalf("expected failed, got %s", final.State)
	}
	if final.Error != "unsupported file format" {
		t.Fatalf("unexpected error message: %q", final.Error)
	}
	if _, ok := board.ResultPath(job.ID); ok {
		t.Fatalf("failed job must not expose a result path")
	}
}

func TestJobBoard_CancelRunningJob(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	translator := &fakeTranslator{run: func(ctx context.Context, opts deepl.DocumentJobOptions) (string, error) {
		close(started)
		<-ctx.Done()
		return "", ctx.Err()
	}}
	board := NewJobBoard(translator, zerolog.Nop(), JobBoardOptions{})

	job := board.Submit([]byte("doc"), "scan.pdf", "de")
	<-started

	if !board.Cancel(job.ID) {
		t.Fatalf("cancelling a running job should report true")
	}

	final := waitForTerminal(t, board, job.ID)
	if final.State != JobStateCancelled {
		t.Fatalf("expected cancelled, got %s", final.State)
	}

	if board.Cancel(job.ID) {
		t.Fatalf("cancelling a finished job should report false")
	}
}

func TestJobBoard_CancelUnknownJob(t *testing.T) {
	t.Parallel()

	board := NewJobBoard(&fakeTranslator{}, zerolog.Nop(), JobBoardOptions{})
	if board.Cancel("missing") {
		t.Fatalf("cancelling an unknown job should report false")
	}
	if _, ok := board.Get("missing"); ok {
		t.Fatalf("unknown job should not resolve")
	}
}

func TestJobBoard_TerminalStateIsSticky(t *testing.T) {
	t.Parallel()

	translator := &fakeTranslator{run: func(ctx context.Context, opts deepl.DocumentJobOptions) (string, error) {
		return "/tmp/result.pdf", nil
	}}
	board := NewJobBoard(translator, zerolog.Nop(), JobBoardOptions{})

	job := board.Submit([]byte("doc"), "scan.pdf", "de")
	final := waitForTerminal(t, board, job.ID)
	if final.State != JobStateDone {
		t.Fatalf("expected done, got %s", final.State)
	}

	// A late status callback must not move the job out of its terminal state.
	board.setState(job.ID, JobStateTranslating, "", "")
	current, _ := board.Get(job.ID)
	if current.State != JobStateDone {
		t.Fatalf("terminal state regressed to %s", current.State)
	}
}

func TestJobBoard_CancelAll(t *testing.T) {
	t.Parallel()

	translator := &fakeTranslator{run: func(ctx context.Context, opts deepl.DocumentJobOptions) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	board := NewJobBoard(translator, zerolog.Nop(), JobBoardOptions{})

	first := board.Submit([]byte("doc"), "a.pdf", "de")
	second := board.Submit([]byte("doc"), "b.pdf", "fr")

	board.CancelAll()

	for _, id := range []string{first.ID, second.ID} {
		if final := waitForTerminal(t, board, id); final.State != JobStateCancelled {
			t.Fatalf("job %s: expected cancelled, got %s", id, final.State)
		}
	}
}
