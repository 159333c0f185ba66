// Package mood detects a coarse mood signal from user utterances.
package mood

import (
	"strings"

	"github.com/neurocare-ai/companion-backend/internal/model"
)

// Keyword buckets checked in order: sad wins over happy when both match.
var (
	sadKeywords   = []string{"sad", "depressed", "unhappy", "anxious", "cry"}
	happyKeywords = []string{"happy", "excited", "joy", "great", "cheerful"}
)

// Classify maps an utterance to a mood label via case-insensitive substring
// matching. It is pure and total: any input yields one of the three labels.
func Classify(text string) model.Mood {
	normalized := strings.ToLower(text)

	if containsAny(normalized, sadKeywords) {
		return model.MoodSad
	}
	if containsAny(normalized, happyKeywords) {
		return model.MoodHappy
	}
	return model.MoodNeutral
}

func containsAny(text string, keywords []string) bool {
	for _, word := range keywords {
		if strings.Contains(text, word) {
			return true
		}
	}
	return false
}
