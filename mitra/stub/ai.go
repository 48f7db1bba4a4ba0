// mitra/stub/ai.go
package stub

import (
	"fmt"
	"strings"
	"unicode"
)

// classification is the canned stand-in for the real topic/sentiment/language
// pipeline. Deterministic on the query text so tests can assert on it.
type classification struct {
	Topic            string
	Sentiment        string
	Language         string
	Answer           string
	SuggestedActions []string
}

var topicKeywords = map[string][]string{
	"Mathematics":          {"math", "fraction", "number", "geometry", "2+2", "multiply", "divide"},
	"Science":              {"science", "experiment", "plant", "water cycle", "energy"},
	"Language":             {"grammar", "reading", "story", "hindi", "english", "spelling"},
	"Classroom Management": {"discipline", "attention", "noisy", "manage", "attendance"},
}

var frustrationWords = []string{"struggling", "difficult", "can't", "cannot", "frustrated", "problem", "नहीं"}

func classify(query string) classification {
	lower := strings.ToLower(query)

	topic := "General"
	for t, words := range topicKeywords {
		for _, w := range words {
			if strings.Contains(lower, w) {
				topic = t
				break
			}
		}
		if topic != "General" {
			break
		}
	}

	sentiment := "Neutral"
	for _, w := range frustrationWords {
		if strings.Contains(lower, w) {
			sentiment = "Frustrated"
			break
		}
	}
	if strings.HasSuffix(strings.TrimSpace(query), "?") && sentiment == "Neutral" {
		sentiment = "Curious"
	}

	language := "English"
	for _, r := range query {
		if unicode.Is(unicode.Devanagari, r) {
			language = "Hindi"
			break
		}
	}

	return classification{
		Topic:     topic,
		Sentiment: sentiment,
		Language:  language,
		Answer: fmt.Sprintf("On %s: a practical approach is to start from what the class already knows, "+
			"demonstrate with one concrete example, and let students try in pairs. (Stub answer for: %q)", topic, query),
		SuggestedActions: []string{"Check Activity 2.1", "Use Peer Grouping"},
	}
}
