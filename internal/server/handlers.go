package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/maauso/reel-render-api/internal/render"
)

// RenderService runs renders and publishes their artifacts.
type RenderService interface {
	Render(ctx context.Context, req render.Request) (*render.Artifact, error)
	Publish(ctx context.Context, art *render.Artifact) (string, error)
}

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	service      RenderService
	validator    *validator.Validate
	logger       *slog.Logger
	maxBodyBytes int64
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithMaxBodyBytes limits the size of a render request body.
func WithMaxBodyBytes(n int64) HandlerOption {
	return func(h *Handlers) {
		h.maxBodyBytes = n
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service RenderService, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		service:      service,
		validator:    validator.New(),
		logger:       logger,
		maxBodyBytes: 50 << 20,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Render handles POST /render requests. The rendered MP4 is streamed back
// unless the request asks for it to be pushed to S3.
func (h *Handlers) Render(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("request_id", GetRequestID(r.Context())))

	if h.maxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	}

	var req RenderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large", "BODY_TOO_LARGE")
			return
		}
		logger.Warn("failed to decode request body",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	art, err := h.service.Render(r.Context(), req.toDomain())
	if err != nil {
		status, code := statusFor(err)
		logger.Warn("render request failed",
			slog.Int("status", status),
			slog.String("code", code),
			slog.String("error", err.Error()),
		)
		writeError(w, status, err.Error(), code)
		return
	}
	defer art.Release()

	if req.PushToS3 {
		url, err := h.service.Publish(r.Context(), art)
		if err != nil {
			logger.Error("failed to publish render",
				slog.String("render_id", art.ID),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusBadGateway, "failed to upload render", "PUBLISH_FAILED")
			return
		}
		writeJSON(w, http.StatusOK, PublishResponse{
			VideoURL:  url,
			SizeBytes: art.Size,
			RenderID:  art.ID,
		})
		return
	}

	h.stream(w, art, logger)
}

// stream writes the artifact as the response body. Once headers are out a
// failure can only be logged.
func (h *Handlers) stream(w http.ResponseWriter, art *render.Artifact, logger *slog.Logger) {
	f, err := art.Open()
	if err != nil {
		logger.Error("failed to open render output",
			slog.String("render_id", art.ID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to read render output", "RENDER_FAILED")
		return
	}
	defer func() { _ = f.Close() }()

	w.Header().Set("Content-Type", art.MIME)
	w.Header().Set("Content-Length", strconv.FormatInt(art.Size, 10))
	w.Header().Set("X-Render-ID", art.ID)
	w.WriteHeader(http.StatusOK)

	n, err := io.Copy(w, f)
	if err != nil {
		logger.Warn("render stream interrupted",
			slog.String("render_id", art.ID),
			slog.Int64("written", n),
			slog.Int64("size", art.Size),
			slog.String("error", err.Error()),
		)
	}
}

// statusFor maps a render failure to its HTTP status and error code.
func statusFor(err error) (int, string) {
	var (
		validationErr  *render.ValidationError
		downloadErr    *render.DownloadError
		encodingErr    *render.EncodingError
		compositionErr *render.CompositionError
	)
	deadline := errors.Is(err, context.DeadlineExceeded)

	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, "VALIDATION_ERROR"
	case errors.As(err, &encodingErr):
		return http.StatusInternalServerError, "DECODE_FAILED"
	case errors.As(err, &downloadErr):
		if deadline {
			return http.StatusGatewayTimeout, "DOWNLOAD_FAILED"
		}
		return http.StatusBadGateway, "DOWNLOAD_FAILED"
	case errors.As(err, &compositionErr):
		if deadline {
			return http.StatusGatewayTimeout, "COMPOSITION_FAILED"
		}
		return http.StatusInternalServerError, "COMPOSITION_FAILED"
	default:
		return http.StatusInternalServerError, "RENDER_FAILED"
	}
}

func (req RenderRequest) toDomain() render.Request {
	out := render.Request{
		AudioURL: req.AudioURL,
		Output: render.OutputSpec{
			Width:  req.Output.Width,
			Height: req.Output.Height,
		},
		PushToS3: req.PushToS3,
	}
	if req.Audio != nil {
		out.AudioData = req.Audio.Data
	}
	for _, c := range req.Clips {
		out.Clips = append(out.Clips, render.ClipRef{URL: c.URL, Link: c.Link})
	}
	for _, c := range req.Captions {
		out.Captions = append(out.Captions, render.Caption{Text: c.Text, Start: c.Start, End: c.End})
	}
	return out
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
