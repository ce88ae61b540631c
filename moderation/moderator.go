// Package moderation censors forbidden words in chat text before it is
// broadcast. Matching runs over a normalized view of the input (lowercased,
// leet speak folded, punctuation noise skipped) so "B.4.d words" variants
// are caught, while the replacement stars land on the original runes and
// spacing is preserved.
package moderation

import (
	"chat-hall/errors"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

type Moderator struct {
	machine     *goahocorasick.Machine
	replacement rune
}

// NewModerator builds the Aho-Corasick automaton from the word list. Words
// that normalize to nothing (pure punctuation) are dropped; an effectively
// empty list is an error.
func NewModerator(words []string, replacement rune) (*Moderator, error) {
	patterns := make([][]rune, 0, len(words))
	for _, word := range words {
		normalized := normalize([]rune(word), nil)
		if len(normalized) == 0 {
			continue
		}
		patterns = append(patterns, normalized)
	}
	if len(patterns) == 0 {
		return nil, errors.ErrEmptyWords
	}

	machine := new(goahocorasick.Machine)
	if err := machine.Build(patterns); err != nil {
		return nil, err
	}
	return &Moderator{machine: machine, replacement: replacement}, nil
}

// Censor replaces every match with the replacement rune, star-for-rune over
// the original text including any noise characters inside the match.
func (m *Moderator) Censor(text string) string {
	original := []rune(text)
	var positions []int
	normalized := normalize(original, func(i int) { positions = append(positions, i) })
	if len(normalized) == 0 {
		return text
	}

	hits := m.machine.MultiPatternSearch(normalized, false)
	if len(hits) == 0 {
		return text
	}

	for _, hit := range hits {
		start := hit.Pos
		end := start + len(hit.Word)
		if start < 0 || end > len(positions) {
			continue
		}
		// Star out the original span, first matched rune to last.
		for i := positions[start]; i <= positions[end-1]; i++ {
			original[i] = m.replacement
		}
	}
	return string(original)
}

// normalize lowercases, folds leet speak, and skips punctuation, spacing,
// and symbols. When keep is non-nil it receives the original index of every
// retained rune, in order.
func normalize(input []rune, keep func(origIdx int)) []rune {
	out := make([]rune, 0, len(input))
	for i, r := range input {
		folded := foldLeet(r)
		if unicode.IsPunct(folded) || unicode.IsSpace(folded) || unicode.IsSymbol(folded) {
			continue
		}
		out = append(out, unicode.ToLower(folded))
		if keep != nil {
			keep(i)
		}
	}
	return out
}

func foldLeet(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3', '€':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	default:
		return r
	}
}
