package mood

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/neurocare-ai/companion-backend/internal/model"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		text string
		want model.Mood
	}{
		{"sad keyword", "I feel so sad today", model.MoodSad},
		{"sad uppercase", "I AM DEPRESSED", model.MoodSad},
		{"sad substring", "she was crying all night", model.MoodSad},
		{"anxious", "feeling anxious about tomorrow", model.MoodSad},
		{"happy keyword", "what a great day", model.MoodHappy},
		{"happy uppercase", "SO HAPPY right now", model.MoodHappy},
		{"cheerful", "a cheerful morning", model.MoodHappy},
		{"both resolves sad", "happy on the outside but unhappy inside", model.MoodSad},
		{"neither", "where is the nearest station", model.MoodNeutral},
		{"empty", "", model.MoodNeutral},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Classify(tc.text))
		})
	}
}

func TestClassifyDeterministic(t *testing.T) {
	const text = "a great but anxious evening"
	first := Classify(text)
	for i := 0; i < 10; i++ {
		require.Equal(t, first, Classify(text))
	}
	// sad precedence over happy regardless of keyword order in the text
	require.Equal(t, model.MoodSad, first)
}
