package deepl

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DocumentStatus is the server-reported state of a document-translation job.
// Transitions only move forward; Done and Error are terminal.
type DocumentStatus string

const (
	StatusQueued      DocumentStatus = "queued"
	StatusTranslating DocumentStatus = "translating"
	StatusDone        DocumentStatus = "done"
	StatusError       DocumentStatus = "error"
)

// Terminal reports whether no further polling happens after this status.
func (s DocumentStatus) Terminal() bool {
	return s == StatusDone || s == StatusError
}

const (
	// DefaultPollInterval is the constant delay between status polls.
	DefaultPollInterval = 2 * time.Second
	// DefaultMaxPolls bounds the polling loop; at the default interval this
	// is roughly five minutes of waiting before the job times out.
	DefaultMaxPolls = 150
)

// ErrJobTimeout is returned when a job exhausts its poll budget without
// reaching a terminal status.
var ErrJobTimeout = fmt.Errorf("document job timed out waiting for translation")

// ErrResultEmpty is returned when the result download succeeds with no bytes.
var ErrResultEmpty = fmt.Errorf("document result is empty")

// JobFailedError carries the server-reported failure of a document job.
type JobFailedError struct {
	Message string
}

func (e *JobFailedError) Error() string {
	return "document job failed: " + e.Message
}

// UnknownStatusError is returned when the server reports a status outside the
// documented set.
type UnknownStatusError struct {
	Status string
}

func (e *UnknownStatusError) Error() string {
	return fmt.Sprintf("unknown status: %s", e.Status)
}

// DocumentJob identifies a submitted document on the server.
type DocumentJob struct {
	DocumentID  string
	DocumentKey string
}

// DocumentJobOptions tunes the polling loop and result placement.
type DocumentJobOptions struct {
	// PollInterval between status requests; defaults to DefaultPollInterval.
	PollInterval time.Duration
	// MaxPolls bounds the number of status requests; <= 0 uses DefaultMaxPolls.
	MaxPolls int
	// OutputDir receives the translated document; empty uses the system
	// temporary directory.
	OutputDir string
	// OnStatus, when set, observes every server-reported status in order.
	OnStatus func(DocumentStatus)
}

type documentSubmitResponse struct {
	DocumentID  string `json:"document_id"`
	DocumentKey string `json:"document_key"`
}

type documentStatusResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
}

// SubmitDocument uploads a document for translation and returns the job
// handle the server assigned.
func (c *Client) SubmitDocument(ctx context.Context, payload []byte, filename, targetLang string) (*DocumentJob, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("document payload is empty")
	}
	target := strings.ToUpper(strings.TrimSpace(targetLang))
	if target == "" {
		return nil, fmt.Errorf("target language is required")
	}
	name := strings.TrimSpace(filename)
	if name == "" {
		name = "document.pdf"
	}

	body, contentType, err := buildDocumentForm(payload, name, target)
	if err != nil {
		return nil, err
	}

	var parsed documentSubmitResponse
	err = c.executor.Execute(ctx, c.request(http.MethodPost, "/document", body, contentType, "deepl.document.submit"), &parsed, nil)
	if err != nil {
		return nil, fmt.Errorf("submit document: %w", err)
	}

	if parsed.DocumentID == "" || parsed.DocumentKey == "" {
		return nil, fmt.Errorf("submit document: server response missing document handle")
	}

	c.logger.Debug().Str("document_id", parsed.DocumentID).Msg("document submitted")
	return &DocumentJob{DocumentID: parsed.DocumentID, DocumentKey: parsed.DocumentKey}, nil
}

// DocumentStatus fetches the current job status. The second return value is
// the server-supplied error message, meaningful only for StatusError.
func (c *Client) DocumentStatus(ctx context.Context, job *DocumentJob) (DocumentStatus, string, error) {
	form := url.Values{}
	form.Set("document_key", job.DocumentKey)

	var parsed documentStatusResponse
	err := c.executor.Execute(ctx, c.request(
		http.MethodPost,
		"/document/"+url.PathEscape(job.DocumentID),
		[]byte(form.Encode()),
		"application/x-www-form-urlencoded",
		"deepl.document.status",
	), &parsed, nil)
	if err != nil {
		return "", "", fmt.Errorf("poll document status: %w", err)
	}

	return DocumentStatus(strings.ToLower(strings.TrimSpace(parsed.Status))), parsed.ErrorMessage, nil
}

// FetchDocumentResult downloads the translated document bytes.
func (c *Client) FetchDocumentResult(ctx context.Context, job *DocumentJob) ([]byte, error) {
	form := url.Values{}
	form.Set("document_key", job.DocumentKey)

	body, err := c.executor.ExecuteRaw(ctx, c.request(
		http.MethodPost,
		"/document/"+url.PathEscape(job.DocumentID)+"/result",
		[]byte(form.Encode()),
		"application/x-www-form-urlencoded",
		"deepl.document.result",
	), nil)
	if err != nil {
		return nil, fmt.Errorf("fetch document result: %w", err)
	}
	if len(body) == 0 {
		return nil, ErrResultEmpty
	}
	return body, nil
}

// TranslateDocument drives the whole job to completion: submit, poll at a
// constant interval until a terminal status, then fetch. The translated bytes
// are written to a file whose path is returned. Each step runs sequentially;
// cancelling ctx aborts the job at the next step boundary, poll delays
// included.
func (c *Client) TranslateDocument(ctx context.Context, payload []byte, filename, targetLang string, opts DocumentJobOptions) (string, error) {
	interval := opts.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	maxPolls := opts.MaxPolls
	if maxPolls <= 0 {
		maxPolls = DefaultMaxPolls
	}

	job, err := c.SubmitDocument(ctx, payload, filename, targetLang)
	if err != nil {
		return "", err
	}

	for polls := 0; ; polls++ {
		status, message, err := c.DocumentStatus(ctx, job)
		if err != nil {
			return "", err
		}
		if opts.OnStatus != nil {
			opts.OnStatus(status)
		}

		switch status {
		case StatusDone:
			return c.downloadResult(ctx, job, filename, opts.OutputDir)
		case StatusError:
			if strings.TrimSpace(message) == "" {
				message = "translation failed"
			}
			return "", &JobFailedError{Message: message}
		case StatusQueued, StatusTranslating:
			if polls+1 >= maxPolls {
				return "", ErrJobTimeout
			}
			if err := waitPoll(ctx, interval); err != nil {
				return "", err
			}
		default:
			return "", &UnknownStatusError{Status: string(status)}
		}
	}
}

func (c *Client) downloadResult(ctx context.Context, job *DocumentJob, filename, outputDir string) (string, error) {
	body, err := c.FetchDocumentResult(ctx, job)
	if err != nil {
		return "", err
	}

	pattern := "scanlate-*" + resultExtension(filename)
	file, err := os.CreateTemp(outputDir, pattern)
	if err != nil {
		return "", fmt.Errorf("create result file: %w", err)
	}
	if _, err := file.Write(body); err != nil {
		file.Close()
		os.Remove(file.Name())
		return "", fmt.Errorf("write result file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(file.Name())
		return "", fmt.Errorf("close result file: %w", err)
	}

	c.logger.Info().
		Str("document_id", job.DocumentID).
		Str("path", file.Name()).
		Int("bytes", len(body)).
		Msg("document translation finished")
	return file.Name(), nil
}

func resultExtension(filename string) string {
	ext := filepath.Ext(strings.TrimSpace(filename))
	if ext == "" {
		return ".pdf"
	}
	return ext
}

func waitPoll(ctx context.Context, interval time.Duration) error {
	timer := time.NewTimer(interval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func buildDocumentForm(payload []byte, filename, targetLang string) ([]byte, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if err := writer.WriteField("target_lang", targetLang); err != nil {
		return nil, "", fmt.Errorf("encode target_lang field: %w", err)
	}

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	header.Set("Content-Type", "application/pdf")
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("encode file part: %w", err)
	}
	if _, err := part.Write(payload); err != nil {
		return nil, "", fmt.Errorf("write file part: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("finish multipart form: %w", err)
	}

	return buf.Bytes(), writer.FormDataContentType(), nil
}
