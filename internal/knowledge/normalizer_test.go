package knowledge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeStripsBlankLines(t *testing.T) {
	input := "  first line  \n\n\n   \nsecond line\t\n"
	assert.Equal(t, "first line\nsecond line", Normalize(input))
}

func TestNormalizeInsertsParagraphBreak(t *testing.T) {
	// 句末标点+下一行大写开头，推断为段落边界
	input := "This is the end.\nNext paragraph starts here"
	assert.Equal(t, "This is the end.\n\nNext paragraph starts here", Normalize(input))
}

func TestNormalizeNoBreakWithoutPunctuation(t *testing.T) {
	input := "a line without terminal punctuation\nAnother line"
	assert.Equal(t, "a line without terminal punctuation\nAnother line", Normalize(input))

	// 下一行小写开头不视为新段落
	input = "Sentence ends here.\ncontinues in lowercase"
	assert.Equal(t, "Sentence ends here.\ncontinues in lowercase", Normalize(input))
}

func TestNormalizeIdempotent(t *testing.T) {
	input := "First sentence ends.\nSecond Starts\n\nthird line"
	once := Normalize(input)
	assert.Equal(t, once, Normalize(once))
}

func TestNormalizeEmpty(t *testing.T) {
	assert.Equal(t, "", Normalize(""))
	assert.Equal(t, "", Normalize("   \n\t\n  "))
}
