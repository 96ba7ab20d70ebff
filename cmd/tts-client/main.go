// Command tts-client is a small CLI for exercising a running tts-gateway:
// it synthesizes one sentence through the synchronous endpoint and writes
// the WAV to disk.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/book-expert/tts-gateway/internal/voices"
)

// Flag descriptions.
const (
	flagGatewayDesc = "Base URL of the tts-gateway"
	flagBookDesc    = "Book identifier used for cache scoping"
	flagModelDesc   = "Synthesis model (kokoro or supertonic)"
	flagVoiceDesc   = "Voice name (defaults to the model's default voice)"
	flagSpeedDesc   = "Playback speed multiplier (0.5-2.0)"
	flagTextDesc    = "Text to convert to speech"
	flagOutputDesc  = "Output file path (.wav)"
	flagHealthDesc  = "Check gateway health and exit"
)

const (
	defaultGateway    = "http://localhost:8080"
	defaultOutputFile = "output.wav"
	requestTimeout    = 90 * time.Second
	filePermissions   = 0o600
)

var errTextRequired = errors.New("--text is required")

type appFlags struct {
	gateway string
	book    string
	model   string
	voice   string
	speed   float64
	text    string
	output  string
	health  bool
}

func main() {
	err := run()
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func run() error {
	flags := parseFlags()

	if flags.health {
		return checkHealth(flags.gateway)
	}

	if flags.text == "" {
		flag.Usage()

		return errTextRequired
	}

	if flags.voice == "" {
		flags.voice = voices.Default(flags.model)
	}

	return synthesize(flags)
}

func parseFlags() appFlags {
	var flags appFlags

	flag.StringVar(&flags.gateway, "gateway", defaultGateway, flagGatewayDesc)
	flag.StringVar(&flags.book, "book", "cli", flagBookDesc)
	flag.StringVar(&flags.model, "model", voices.ModelKokoro, flagModelDesc)
	flag.StringVar(&flags.voice, "voice", "", flagVoiceDesc)
	flag.Float64Var(&flags.speed, "speed", 1.0, flagSpeedDesc)
	flag.StringVar(&flags.text, "text", "", flagTextDesc)
	flag.StringVar(&flags.output, "output", defaultOutputFile, flagOutputDesc)
	flag.BoolVar(&flags.health, "health", false, flagHealthDesc)
	flag.Parse()

	return flags
}

func checkHealth(gateway string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, gateway+"/health", http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create health request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("gateway is unreachable: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read health response: %w", err)
	}

	fmt.Printf("%s\n", bytes.TrimSpace(body))

	return nil
}

func synthesize(flags appFlags) error {
	payload, err := json.Marshal(map[string]any{
		"book_id": flags.book,
		"model":   flags.model,
		"voice":   flags.voice,
		"speed":   flags.speed,
		"text":    flags.text,
	})
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		flags.gateway+"/tts/speech", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create speech request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("speech request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

		return fmt.Errorf("gateway returned %s: %s", resp.Status, bytes.TrimSpace(body))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read audio: %w", err)
	}

	writeErr := os.WriteFile(flags.output, audio, filePermissions)
	if writeErr != nil {
		return fmt.Errorf("failed to write audio file: %w", writeErr)
	}

	fmt.Printf("Generated: %s (%d bytes, cache %s)\n",
		flags.output, len(audio), resp.Header.Get("x-tts-cache"))

	return nil
}
