// Package synth provides the HTTP client for the speech synthesis backend.
//
// The backend exposes an OpenAI-compatible speech endpoint: a JSON request
// describing the model, voice, speed and input text, answered with raw WAV
// audio. Every response is validated as a RIFF/WAVE container before it is
// handed to callers, so corrupt backend output never reaches the cache.
package synth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-audio/wav"

	"github.com/book-expert/tts-gateway/internal/core"
)

// API endpoints and paths.
const (
	apiSpeech = "/v1/audio/speech"
	apiHealth = "/health"
)

// HTTP headers.
const (
	headerContentType = "Content-Type"
	headerAccept      = "Accept"
	contentTypeJSON   = "application/json"
	contentTypeWAV    = "audio/wav"
)

// The backend only emits WAV; other formats are not requested.
const responseFormatWAV = "wav"

// Client talks to the synthesis backend over HTTP. It implements
// core.Synthesizer.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// speechRequest is the JSON payload for the backend speech endpoint.
type speechRequest struct {
	// Model selects the synthesis engine (e.g. "kokoro", "supertonic").
	Model string `json:"model"`

	// Input is the text to synthesize. Must be non-empty.
	Input string `json:"input"`

	// Voice selects a voice belonging to the model.
	Voice string `json:"voice"`

	// ResponseFormat is always "wav"; the gateway never transcodes.
	ResponseFormat string `json:"response_format"`

	// Speed is the playback rate multiplier, between 0.5 and 2.0.
	Speed float64 `json:"speed"`
}

// errorResponse is the structured error body the backend returns on failure.
type errorResponse struct {
	Detail string `json:"detail"`
}

// NewClient creates a synthesis client. The baseURL includes protocol and
// port (e.g. "http://localhost:8880"); timeout bounds every request.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Synthesize requests WAV audio for text and returns the validated bytes.
//
// Error kinds: a 503 from the backend maps to core.ErrBackendRestarting so
// callers can retry, any other failure to reach or satisfy the backend maps
// to core.ErrBackendUnavailable, an exceeded deadline to core.ErrTimeout,
// and a malformed audio body to core.ErrInvalidAudio.
func (c *Client) Synthesize(
	ctx context.Context,
	modelID, voiceID string,
	speed float64,
	text string,
) ([]byte, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: text cannot be empty", core.ErrInvalidInput)
	}

	body, err := json.Marshal(speechRequest{
		Model:          modelID,
		Input:          text,
		Voice:          voiceID,
		ResponseFormat: responseFormatWAV,
		Speed:          speed,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to encode speech request: %v", core.ErrInternal, err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+apiSpeech,
		bytes.NewReader(body),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create speech request: %v", core.ErrInternal, err)
	}

	httpReq.Header.Set(headerContentType, contentTypeJSON)
	httpReq.Header.Set(headerAccept, contentTypeWAV)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, c.classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.classifyStatusError(resp)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read audio body: %v", core.ErrBackendUnavailable, err)
	}

	validateErr := validateWAV(audio)
	if validateErr != nil {
		return nil, validateErr
	}

	return audio, nil
}

// HealthCheck verifies the backend answers its health endpoint. A 503 maps
// to core.ErrBackendRestarting, which the health handler reports as a
// temporary condition rather than an outage.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodGet,
		c.baseURL+apiHealth,
		http.NoBody,
	)
	if err != nil {
		return fmt.Errorf("%w: failed to create health request: %v", core.ErrInternal, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.classifyTransportError(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusServiceUnavailable:
		return fmt.Errorf("%w: backend reports %s", core.ErrBackendRestarting, resp.Status)
	default:
		return fmt.Errorf("%w: health check returned %s", core.ErrBackendUnavailable, resp.Status)
	}
}

func (c *Client) classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: request to %s exceeded deadline: %v", core.ErrTimeout, c.baseURL, err)
	}

	return fmt.Errorf("%w: failed to reach backend at %s: %v", core.ErrBackendUnavailable, c.baseURL, err)
}

func (c *Client) classifyStatusError(resp *http.Response) error {
	detail := readErrorDetail(resp.Body)

	if resp.StatusCode == http.StatusServiceUnavailable {
		return fmt.Errorf("%w: backend reports %s: %s", core.ErrBackendRestarting, resp.Status, detail)
	}

	return fmt.Errorf("%w: backend returned %s: %s", core.ErrBackendUnavailable, resp.Status, detail)
}

// readErrorDetail extracts the backend's structured error detail, falling
// back to the raw body so diagnostics survive non-JSON failures.
func readErrorDetail(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(raw) == 0 {
		return "no error detail"
	}

	var structured errorResponse

	if json.Unmarshal(raw, &structured) == nil && structured.Detail != "" {
		return structured.Detail
	}

	return string(raw)
}

// validateWAV rejects bodies that are not a parseable RIFF/WAVE container.
func validateWAV(audio []byte) error {
	if len(audio) == 0 {
		return fmt.Errorf("%w: backend returned an empty body", core.ErrInvalidAudio)
	}

	decoder := wav.NewDecoder(bytes.NewReader(audio))
	if !decoder.IsValidFile() {
		return fmt.Errorf("%w: backend returned a non-WAV body", core.ErrInvalidAudio)
	}

	return nil
}
