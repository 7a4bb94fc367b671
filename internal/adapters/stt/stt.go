// Package stt turns uploaded audio into text. Transcription never fails:
// problems are reported as bracketed placeholder text.
package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/okian/invoy/internal/util"
	"github.com/okian/invoy/pkg/logger"
)

// Placeholder texts returned instead of errors.
const (
	NoSpeech = "[no speech detected]"
	Failed   = "[transcription failed]"
)

// Transcriber converts audio bytes to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) string
}

// Unavailable is used when no speech backend is configured.
type Unavailable struct{}

// Transcribe implements Transcriber.
func (Unavailable) Transcribe(_ context.Context, audio []byte) string {
	return fmt.Sprintf("[transcription unavailable in dev: received %d bytes of audio]", len(audio))
}

// HTTPTranscriber posts audio to a speech endpoint that answers
// {"text": "..."}.
type HTTPTranscriber struct {
	url    string
	client *http.Client
	log    logger.Logger
}

// Option applies a configuration option to the HTTPTranscriber.
type Option func(*HTTPTranscriber)

// WithTimeout sets the request timeout.
func WithTimeout(d time.Duration) Option {
	return func(t *HTTPTranscriber) {
		if d > 0 {
			t.client = util.NewHTTPClient(d)
		}
	}
}

// WithLogger sets the logger for failed requests.
func WithLogger(l logger.Logger) Option {
	return func(t *HTTPTranscriber) {
		if l != nil {
			t.log = l
		}
	}
}

// NewHTTPTranscriber creates a transcriber for url.
func NewHTTPTranscriber(url string, opts ...Option) *HTTPTranscriber {
	t := &HTTPTranscriber{
		url:    strings.TrimSpace(url),
		client: util.NewHTTPClient(60 * time.Second),
		log:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Transcribe implements Transcriber.
func (t *HTTPTranscriber) Transcribe(ctx context.Context, audio []byte) string {
	text, err := t.post(ctx, audio)
	if err != nil {
		t.log.Warn(ctx, "transcription failed", logger.Int("bytes", len(audio)), logger.Error(err))
		return Failed
	}
	if text = strings.TrimSpace(text); text == "" {
		return NoSpeech
	}
	return text
}

func (t *HTTPTranscriber) post(ctx context.Context, audio []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(audio))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("speech endpoint status %d", resp.StatusCode)
	}
	var out struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode speech response: %w", err)
	}
	return out.Text, nil
}
