package moderation

import (
	_ "embed"
	"strings"
)

//go:embed words.txt
var embeddedWords string

// DefaultWords returns the embedded forbidden-word list shipped with the
// broker. Operators can override it entirely through configuration.
func DefaultWords() []string {
	var words []string
	for _, line := range strings.Split(embeddedWords, "\n") {
		word := strings.TrimSpace(line)
		if word == "" || strings.HasPrefix(word, "#") {
			continue
		}
		words = append(words, word)
	}
	return words
}
