// Package fingerprint derives the deterministic identifier for a synthesis
// request. The fingerprint is the key for both the audio cache and the
// single-flight lock, so it must be stable across processes and restarts.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/book-expert/tts-gateway/internal/core"
)

const (
	keyPrefix  = "tts"
	lockPrefix = "lock:"

	// abbrevDigits is how much of the text digest appears in logs. Enough
	// to correlate entries, never enough to leak the sentence.
	abbrevDigits = 12
)

// Static errors. All carry the invalid-input kind so callers map them to the
// right status.
var (
	ErrBookEmpty  = fmt.Errorf("%w: book id cannot be empty", core.ErrInvalidInput)
	ErrModelEmpty = fmt.Errorf("%w: model id cannot be empty", core.ErrInvalidInput)
	ErrVoiceEmpty = fmt.Errorf("%w: voice id cannot be empty", core.ErrInvalidInput)
	ErrTextEmpty  = fmt.Errorf("%w: text cannot be empty", core.ErrInvalidInput)
	ErrSpeedRange = fmt.Errorf("%w: speed must be positive", core.ErrInvalidInput)
)

// Key composes the cache key for one synthesis request:
//
//	tts:{book}:{model}:{voice}:{speed}:{sha256(text) hex}
//
// Speed is normalized to two fractional digits so that 1, 1.0 and 1.00 all
// produce the same key. The sentence text only ever appears hashed.
func Key(bookID, modelID, voiceID string, speed float64, text string) (string, error) {
	validationErr := validate(bookID, modelID, voiceID, speed, text)
	if validationErr != nil {
		return "", validationErr
	}

	digest := sha256.Sum256([]byte(text))

	return fmt.Sprintf("%s:%s:%s:%s:%s:%s",
		keyPrefix,
		bookID,
		modelID,
		voiceID,
		NormalizeSpeed(speed),
		hex.EncodeToString(digest[:]),
	), nil
}

// LockKey returns the single-flight lock key for a cache key.
func LockKey(key string) string {
	return lockPrefix + key
}

// NormalizeSpeed renders a speed multiplier in its canonical decimal form
// with exactly two fractional digits.
func NormalizeSpeed(speed float64) string {
	return fmt.Sprintf("%.2f", speed)
}

// Abbrev shortens a fingerprint for structured logs: the full prefix is
// kept, the text digest is truncated.
func Abbrev(key string) string {
	lastColon := strings.LastIndex(key, ":")
	if lastColon < 0 || len(key)-lastColon-1 <= abbrevDigits {
		return key
	}

	return key[:lastColon+1+abbrevDigits]
}

func validate(bookID, modelID, voiceID string, speed float64, text string) error {
	if bookID == "" {
		return ErrBookEmpty
	}

	if modelID == "" {
		return ErrModelEmpty
	}

	if voiceID == "" {
		return ErrVoiceEmpty
	}

	if text == "" {
		return ErrTextEmpty
	}

	if speed <= 0 {
		return fmt.Errorf("%w: got %f", ErrSpeedRange, speed)
	}

	return nil
}
