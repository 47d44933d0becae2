package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"paper.fit/scanlate/internal/deepl"
	"paper.fit/scanlate/internal/langdetect"
	"paper.fit/scanlate/internal/language"
	"paper.fit/scanlate/internal/translation"
)

const maxDocumentBytes = 30 << 20 // DeepL caps document uploads at 30MB

type Options struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type Server struct {
	manager  *translation.Manager
	detector *langdetect.Service
	board    *JobBoard
	logger   zerolog.Logger
	opts     Options
}

func NewServer(manager *translation.Manager, detector *langdetect.Service, board *JobBoard, logger zerolog.Logger, opts Options) *Server {
	host := strings.TrimSpace(opts.Host)
	if host == "" {
		host = "0.0.0.0"
	}
	port := opts.Port
	if port <= 0 {
		port = 8070
	}
	readTimeout := opts.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 30 * time.Second
	}
	writeTimeout := opts.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 60 * time.Second
	}
	shutdownTimeout := opts.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}

	return &Server{
		manager:  manager,
		detector: detector,
		board:    board,
		logger:   logger,
		opts: Options{
			Host:            host,
			Port:            port,
			ReadTimeout:     readTimeout,
			WriteTimeout:    writeTimeout,
			ShutdownTimeout: shutdownTimeout,
		},
	}
}

func (s *Server) Start(ctx context.Context) error {
	if s == nil || s.manager == nil {
		return fmt.Errorf("server is not initialized")
	}

	e := s.buildEcho()
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port),
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info().Msg("shutting down scanlate server")
		if s.board != nil {
			s.board.CancelAll()
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if shutdownErr := e.Shutdown(shutdownCtx); shutdownErr != nil {
			s.logger.Error().Err(shutdownErr).Msg("graceful shutdown failed")
		}
	}()

	s.logger.Info().Str("addr", httpServer.Addr).Msg("scanlate server listening")
	if err := e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("start server: %w", err)
	}
	s.logger.Info().Msg("scanlate server stopped")
	return nil
}

func (s *Server) buildEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.httpErrorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			event := s.logger.Info()
			if v.Error != nil {
				event = s.logger.Error().Err(v.Error)
			}
			event.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("http request")
			return nil
		},
	}))

	api := e.Group("/api/v1")
	api.GET("/health", s.handleHealth)
	api.GET("/languages", s.handleLanguages)
	api.POST("/translate", s.handleTranslate)
	api.POST("/detect", s.handleDetect)
	api.POST("/documents", s.handleDocumentSubmit)
	api.GET("/documents/:id", s.handleDocumentStatus)
	api.GET("/documents/:id/result", s.handleDocumentResult)
	api.DELETE("/documents/:id", s.handleDocumentCancel)

	return e
}

func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "Internal server error"
	if he, ok := err.(*echo.HTTPError); ok {
		status = he.Code
		if text, ok := he.Message.(string); ok && strings.TrimSpace(text) != "" {
			message = text
		} else if text := http.StatusText(status); text != "" {
			message = text
		}
	} else if err != nil {
		message = err.Error()
	}

	if status >= 500 {
		_ = internalError(c, "Internal server error")
		return
	}
	_ = fail(c, status, message, nil)
}

func (s *Server) handleHealth(c echo.Context) error {
	return success(c, map[string]any{
		"service": "scanlate",
		"time":    time.Now().UTC(),
	})
}

func (s *Server) handleLanguages(c echo.Context) error {
	return success(c, map[string]any{
		"languages": language.Options(),
	})
}

type translateRequest struct {
	Text       string `json:"text"`
	TargetLang string `json:"target_lang"`
	Provider   string `json:"provider,omitempty"`
	Force      bool   `json:"force,omitempty"`
}

func (s *Server) handleTranslate(c echo.Context) error {
	var req translateRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body", nil)
	}
	if strings.TrimSpace(req.Text) == "" {
		return fail(c, http.StatusBadRequest, "text is required", nil)
	}
	if language.NormalizeCode(req.TargetLang) == "" {
		return fail(c, http.StatusBadRequest, "target_lang is required", nil)
	}

	result, err := s.manager.TranslateText(c.Request().Context(), req.Text, translation.RunOptions{
		TargetLang: req.TargetLang,
		Provider:   req.Provider,
		Force:      req.Force,
	})
	if err != nil {
		return s.upstreamError(c, err)
	}

	return success(c, result)
}

type detectRequest struct {
	Text   string `json:"text"`
	Method string `json:"method,omitempty"`
}

func (s *Server) handleDetect(c echo.Context) error {
	var req detectRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body", nil)
	}

	method, err := langdetect.ParseMethod(req.Method)
	if err != nil {
		return fail(c, http.StatusBadRequest, err.Error(), nil)
	}

	detection, err := s.detector.Detect(c.Request().Context(), req.Text, method)
	if err != nil {
		if errors.Is(err, langdetect.ErrEmptyText) {
			return fail(c, http.StatusBadRequest, "text is required", nil)
		}
		if errors.Is(err, langdetect.ErrNoViableMethod) {
			return fail(c, http.StatusUnprocessableEntity, err.Error(), nil)
		}
		return s.upstreamError(c, err)
	}

	return success(c, detection)
}

func (s *Server) handleDocumentSubmit(c echo.Context) error {
	if s.board == nil {
		return fail(c, http.StatusServiceUnavailable, "document translation is not configured", nil)
	}

	targetLang := language.NormalizeCode(c.FormValue("target_lang"))
	if targetLang == "" {
		return fail(c, http.StatusBadRequest, "target_lang is required", nil)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return fail(c, http.StatusBadRequest, "file is required", nil)
	}
	if fileHeader.Size > maxDocumentBytes {
		return fail(c, http.StatusRequestEntityTooLarge, "document exceeds the size limit", nil)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return fmt.Errorf("open uploaded file: %w", err)
	}
	defer file.Close()

	payload, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("read uploaded file: %w", err)
	}
	if len(payload) == 0 {
		return fail(c, http.StatusBadRequest, "file is empty", nil)
	}

	job := s.board.Submit(payload, fileHeader.Filename, targetLang)
	return successWithStatus(c, http.StatusAccepted, job)
}

func (s *Server) handleDocumentStatus(c echo.Context) error {
	if s.board == nil {
		return failNotFound(c, "job not found")
	}

	job, ok := s.board.Get(c.Param("id"))
	if !ok {
		return failNotFound(c, "job not found")
	}
	return success(c, job)
}

func (s *Server) handleDocumentResult(c echo.Context) error {
	if s.board == nil {
		return failNotFound(c, "job not found")
	}

	id := c.Param("id")
	job, ok := s.board.Get(id)
	if !ok {
		return failNotFound(c, "job not found")
	}
	if job.State != JobStateDone {
		return fail(c, http.StatusConflict, fmt.Sprintf("job is %s, not done", job.State), nil)
	}

	path, ok := s.board.ResultPath(id)
	if !ok {
		return failNotFound(c, "job result not found")
	}
	return c.Attachment(path, job.Filename)
}

func (s *Server) handleDocumentCancel(c echo.Context) error {
	if s.board == nil {
		return failNotFound(c, "job not found")
	}

	if !s.board.Cancel(c.Param("id")) {
		return failNotFound(c, "job not found or already finished")
	}
	return success(c, map[string]any{"cancelled": true})
}

func (s *Server) upstreamError(c echo.Context, err error) error {
	if errors.Is(err, deepl.ErrEmptyText) {
		return fail(c, http.StatusBadRequest, "text is required", nil)
	}
	s.logger.Error().Err(err).Msg("upstream translation call failed")
	return fail(c, http.StatusBadGateway, "translation service unavailable", nil)
}
