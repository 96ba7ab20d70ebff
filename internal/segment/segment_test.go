package segment_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/tts-gateway/internal/segment"
)

func TestSegment_BasicSplitting(t *testing.T) {
	t.Parallel()

	segmenter := segment.New()

	sentences := segmenter.Segment("The rain stopped. The sun came out. Everyone cheered!")

	require.Len(t, sentences, 3)
	assert.Equal(t, "The rain stopped.", sentences[0])
	assert.Equal(t, "The sun came out.", sentences[1])
	assert.Equal(t, "Everyone cheered!", sentences[2])
}

func TestSegment_Deterministic(t *testing.T) {
	t.Parallel()

	segmenter := segment.New()
	text := "A first sentence. A second one? A third, final sentence."

	first := segmenter.Segment(text)
	second := segmenter.Segment(text)

	assert.Equal(t, first, second)
}

func TestSegment_AbbreviationsDoNotSplit(t *testing.T) {
	t.Parallel()

	segmenter := segment.New()

	sentences := segmenter.Segment("Dr. Smith arrived at noon. Mrs. Jones was waiting.")

	require.Len(t, sentences, 2)
	assert.Equal(t, "Dr. Smith arrived at noon.", sentences[0])
	assert.Equal(t, "Mrs. Jones was waiting.", sentences[1])
}

func TestSegment_DecimalNumbersDoNotSplit(t *testing.T) {
	t.Parallel()

	segmenter := segment.New()

	sentences := segmenter.Segment("The board measured 3.75 meters. It fit perfectly.")

	require.Len(t, sentences, 2)
	assert.Equal(t, "The board measured 3.75 meters.", sentences[0])
}

func TestSegment_InitialsDoNotSplit(t *testing.T) {
	t.Parallel()

	segmenter := segment.New()

	sentences := segmenter.Segment("J. Smith wrote the preface. The book sold well.")

	require.Len(t, sentences, 2)
	assert.Equal(t, "J. Smith wrote the preface.", sentences[0])
}

func TestSegment_WhitespaceCollapses(t *testing.T) {
	t.Parallel()

	segmenter := segment.New()

	sentences := segmenter.Segment("Line one\ncontinues   here.\n\nLine two follows.")

	require.Len(t, sentences, 2)
	assert.Equal(t, "Line one continues here.", sentences[0])
	assert.Equal(t, "Line two follows.", sentences[1])
}

func TestSegment_ClosingQuotesStayWithSentence(t *testing.T) {
	t.Parallel()

	segmenter := segment.New()

	sentences := segmenter.Segment(`"Stop right there!" She froze.`)

	require.Len(t, sentences, 2)
	assert.Equal(t, `"Stop right there!"`, sentences[0])
	assert.Equal(t, "She froze.", sentences[1])
}

func TestSegment_TrailingTextWithoutTerminator(t *testing.T) {
	t.Parallel()

	segmenter := segment.New()

	sentences := segmenter.Segment("A full sentence here. And a trailing fragment")

	require.Len(t, sentences, 2)
	assert.Equal(t, "And a trailing fragment", sentences[1])
}

func TestSegment_UnpronounceableFragmentsMerge(t *testing.T) {
	t.Parallel()

	segmenter := segment.New()

	sentences := segmenter.Segment("The chapter ended. !!! Then it began.")

	require.Len(t, sentences, 2)
	assert.Equal(t, "The chapter ended. !!!", sentences[0])
	assert.Equal(t, "Then it began.", sentences[1])
}

func TestSegment_EmptyInput(t *testing.T) {
	t.Parallel()

	segmenter := segment.New()

	assert.Empty(t, segmenter.Segment(""))
	assert.Empty(t, segmenter.Segment("   \n\t  "))
}
