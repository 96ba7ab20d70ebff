// Package segment splits chapter text into the sentence units that the
// synthesis queues and the audio cache operate on. Segmentation must be
// deterministic: the same chapter body always yields the same sentence list,
// since sentence indexes are part of the cache fingerprint.
package segment

import (
	"regexp"
	"strings"
	"unicode"
)

// Sentences shorter than this after trimming are merged into a neighbour
// rather than emitted; they are almost always stray initials or artifacts.
const minSentenceLength = 3

var whitespaceRegex = regexp.MustCompile(`\s+`)

// Segmenter splits plain text into sentences. It implements core.Segmenter.
type Segmenter struct {
	abbreviations map[string]struct{}
}

// New creates a segmenter with the default abbreviation set.
func New() *Segmenter {
	return &Segmenter{abbreviations: defaultAbbreviations()}
}

// Segment returns the ordered sentences of text. Whitespace runs collapse to
// a single space, periods after known abbreviations and inside decimal
// numbers do not end a sentence, and fragments that carry nothing
// pronounceable are dropped.
func (s *Segmenter) Segment(text string) []string {
	normalized := whitespaceRegex.ReplaceAllString(strings.TrimSpace(text), " ")
	if normalized == "" {
		return nil
	}

	runes := []rune(normalized)

	var (
		sentences []string
		start     int
	)

	for i := 0; i < len(runes); i++ {
		if !isTerminator(runes[i]) {
			continue
		}

		end := consumeTerminators(runes, i)

		if !s.isSentenceEnd(runes, i, end) {
			i = end - 1

			continue
		}

		sentences = s.appendSentence(sentences, string(runes[start:end]))

		for end < len(runes) && unicode.IsSpace(runes[end]) {
			end++
		}

		start = end
		i = end - 1
	}

	if start < len(runes) {
		sentences = s.appendSentence(sentences, string(runes[start:]))
	}

	return sentences
}

// appendSentence trims and filters a candidate sentence. Too-short or
// unpronounceable fragments are glued onto the previous sentence so no text
// is silently lost.
func (s *Segmenter) appendSentence(sentences []string, candidate string) []string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return sentences
	}

	if len(trimmed) < minSentenceLength || !isPronounceable(trimmed) {
		if len(sentences) == 0 {
			return sentences
		}

		sentences[len(sentences)-1] += " " + trimmed

		return sentences
	}

	return append(sentences, trimmed)
}

// isSentenceEnd decides whether the terminator at pos actually closes a
// sentence. end is the index just past the terminator run and any trailing
// closing quotes or brackets.
func (s *Segmenter) isSentenceEnd(runes []rune, pos, end int) bool {
	if runes[pos] == '.' {
		if isDecimalPoint(runes, pos) {
			return false
		}

		if s.isAbbreviation(runes, pos) {
			return false
		}
	}

	// End of text always closes the sentence.
	if end >= len(runes) {
		return true
	}

	// A sentence boundary needs following whitespace.
	if !unicode.IsSpace(runes[end]) {
		return false
	}

	next := end
	for next < len(runes) && unicode.IsSpace(runes[next]) {
		next++
	}

	if next >= len(runes) {
		return true
	}

	// '!' and '?' close regardless of what follows; '.' refuses only a
	// lowercase continuation, which marks a mid-sentence period.
	if runes[pos] != '.' {
		return true
	}

	return !unicode.IsLower(runes[next])
}

// isAbbreviation reports whether the word ending at the period at pos is a
// known abbreviation or a multi-dot form such as "U.S." or "Ph.D".
func (s *Segmenter) isAbbreviation(runes []rune, pos int) bool {
	start := pos - 1
	for start >= 0 && !unicode.IsSpace(runes[start]) {
		start--
	}

	word := strings.ToLower(string(runes[start+1 : pos]))
	if word == "" {
		return false
	}

	if _, known := s.abbreviations[word]; known {
		return true
	}

	// Interior dots mark initialisms.
	if strings.Contains(word, ".") {
		return true
	}

	// A lone letter before the period is an initial, as in "J. Smith".
	if len([]rune(word)) == 1 && unicode.IsLetter([]rune(word)[0]) {
		return true
	}

	return false
}

func isDecimalPoint(runes []rune, pos int) bool {
	return pos > 0 && pos+1 < len(runes) &&
		unicode.IsDigit(runes[pos-1]) && unicode.IsDigit(runes[pos+1])
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// consumeTerminators returns the index just past the run of terminators at
// pos and any closing quotes or brackets that belong to the sentence.
func consumeTerminators(runes []rune, pos int) int {
	end := pos
	for end < len(runes) && isTerminator(runes[end]) {
		end++
	}

	for end < len(runes) && isClosing(runes[end]) {
		end++
	}

	return end
}

func isClosing(r rune) bool {
	return r == '"' || r == '\'' || r == ')' || r == ']' || r == '”' || r == '’'
}

// isPronounceable reports whether the text contains at least one letter or
// digit, so pure punctuation is never sent to the synthesizer.
func isPronounceable(text string) bool {
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}

	return false
}

func defaultAbbreviations() map[string]struct{} {
	words := []string{
		"mr", "mrs", "ms", "dr", "prof", "sr", "jr", "st",
		"inc", "ltd", "co", "corp", "dept",
		"i.e", "e.g", "etc", "vs", "cf", "al", "approx",
		"jan", "feb", "mar", "apr", "jun", "jul", "aug",
		"sep", "sept", "oct", "nov", "dec",
		"vol", "vols", "no", "nos", "pg", "pp", "ch", "fig", "figs", "ed", "eds",
	}

	set := make(map[string]struct{}, len(words))
	for _, word := range words {
		set[word] = struct{}{}
	}

	return set
}
