package synth_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/tts-gateway/internal/core"
	"github.com/book-expert/tts-gateway/internal/synth"
)

// validWAV builds a minimal mono 16-bit PCM WAV container.
func validWAV(t *testing.T) []byte {
	t.Helper()

	samples := make([]byte, 8)

	var buf bytes.Buffer

	buf.WriteString("RIFF")
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(36+len(samples))))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(16)))
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint16(1)))     // PCM
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint16(1)))     // mono
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(22050))) // sample rate
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(44100))) // byte rate
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint16(2)))     // block align
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint16(16)))    // bits per sample
	buf.WriteString("data")
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(len(samples))))
	buf.Write(samples)

	return buf.Bytes()
}

func TestSynthesize_Success(t *testing.T) {
	t.Parallel()

	wavBody := validWAV(t)

	var received map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/audio/speech", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Header().Set("Content-Type", "audio/wav")
		_, _ = w.Write(wavBody)
	}))
	t.Cleanup(server.Close)

	client := synth.NewClient(server.URL, 5*time.Second)

	audio, err := client.Synthesize(context.Background(), "kokoro", "af_heart", 1.25, "Hello there.")
	require.NoError(t, err)
	assert.Equal(t, wavBody, audio)

	assert.Equal(t, "kokoro", received["model"])
	assert.Equal(t, "Hello there.", received["input"])
	assert.Equal(t, "af_heart", received["voice"])
	assert.Equal(t, "wav", received["response_format"])
	assert.InDelta(t, 1.25, received["speed"], 0.001)
}

func TestSynthesize_EmptyTextIsInvalidInput(t *testing.T) {
	t.Parallel()

	client := synth.NewClient("http://localhost:1", time.Second)

	_, err := client.Synthesize(context.Background(), "kokoro", "af_heart", 1.0, "")
	require.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestSynthesize_RestartingBackend(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"detail":"model is reloading"}`))
	}))
	t.Cleanup(server.Close)

	client := synth.NewClient(server.URL, 5*time.Second)

	_, err := client.Synthesize(context.Background(), "kokoro", "af_heart", 1.0, "text")
	require.ErrorIs(t, err, core.ErrBackendRestarting)
	assert.Contains(t, err.Error(), "model is reloading")
}

func TestSynthesize_ServerErrorIsBackendUnavailable(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	client := synth.NewClient(server.URL, 5*time.Second)

	_, err := client.Synthesize(context.Background(), "kokoro", "af_heart", 1.0, "text")
	require.ErrorIs(t, err, core.ErrBackendUnavailable)
}

func TestSynthesize_UnreachableBackend(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close()

	client := synth.NewClient(server.URL, time.Second)

	_, err := client.Synthesize(context.Background(), "kokoro", "af_heart", 1.0, "text")
	require.ErrorIs(t, err, core.ErrBackendUnavailable)
}

func TestSynthesize_NonWAVBodyIsInvalidAudio(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "audio/wav")
		_, _ = w.Write([]byte("this is not audio"))
	}))
	t.Cleanup(server.Close)

	client := synth.NewClient(server.URL, 5*time.Second)

	_, err := client.Synthesize(context.Background(), "kokoro", "af_heart", 1.0, "text")
	require.ErrorIs(t, err, core.ErrInvalidAudio)
}

func TestSynthesize_EmptyBodyIsInvalidAudio(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "audio/wav")
	}))
	t.Cleanup(server.Close)

	client := synth.NewClient(server.URL, 5*time.Second)

	_, err := client.Synthesize(context.Background(), "kokoro", "af_heart", 1.0, "text")
	require.ErrorIs(t, err, core.ErrInvalidAudio)
}

func TestSynthesize_DeadlineMapsToTimeout(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})

	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		close(started)

		// The server only notices the client hanging up once the request
		// body has been consumed; without the drain this handler would
		// block forever and wedge Close.
		_, _ = io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	t.Cleanup(server.Close)

	client := synth.NewClient(server.URL, time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := client.Synthesize(ctx, "kokoro", "af_heart", 1.0, "text")
	require.ErrorIs(t, err, core.ErrTimeout)

	<-started
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		status  int
		wantErr error
	}{
		{name: "healthy", status: http.StatusOK, wantErr: nil},
		{name: "restarting", status: http.StatusServiceUnavailable, wantErr: core.ErrBackendRestarting},
		{name: "broken", status: http.StatusInternalServerError, wantErr: core.ErrBackendUnavailable},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, "/health", r.URL.Path)
				w.WriteHeader(testCase.status)
			}))
			t.Cleanup(server.Close)

			client := synth.NewClient(server.URL, 5*time.Second)

			err := client.HealthCheck(context.Background())
			if testCase.wantErr == nil {
				require.NoError(t, err)

				return
			}

			require.ErrorIs(t, err, testCase.wantErr)
		})
	}
}
