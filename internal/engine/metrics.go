package engine

import (
	"math"
	"strings"
)

// CountErrors compares the target sentence and the typed text word by word.
// Both are trimmed and split on runs of whitespace; positions present in one
// but missing in the other count as mismatches.
func CountErrors(target, typed string) int {
	targetWords := strings.Fields(strings.TrimSpace(target))
	typedWords := strings.Fields(strings.TrimSpace(typed))

	maxLen := len(targetWords)
	if len(typedWords) > maxLen {
		maxLen = len(typedWords)
	}

	errors := 0
	for i := 0; i < maxLen; i++ {
		switch {
		case i >= len(targetWords), i >= len(typedWords):
			errors++
		case targetWords[i] != typedWords[i]:
			errors++
		}
	}
	return errors
}

// WordCount returns the number of whitespace-separated words in a sentence.
func WordCount(sentence string) int {
	return len(strings.Fields(strings.TrimSpace(sentence)))
}

// ComputeWPM converts a word count over elapsed seconds to words per minute,
// rounded to the nearest integer.
func ComputeWPM(totalWords int, elapsedSeconds float64) int {
	if elapsedSeconds <= 0 {
		return 0
	}
	return int(math.Round(float64(totalWords) / elapsedSeconds * 60))
}

// ComputeAccuracy returns the percentage of matched words, rounded and
// clamped to [0, 100]. More typed words than target words can drive the raw
// value negative, hence the clamp.
func ComputeAccuracy(totalWords, errors int) int {
	if totalWords <= 0 {
		return 0
	}
	acc := int(math.Round(float64(totalWords-errors) / float64(totalWords) * 100))
	if acc < 0 {
		return 0
	}
	if acc > 100 {
		return 100
	}
	return acc
}
