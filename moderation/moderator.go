package moderation

import (
	"fmt"
	"html"
	"log/slog"
	"strings"
	"unicode"

	"skillxchange/errors"

	"github.com/abadojack/whatlanggo"
	goahocorasick "github.com/anknown/ahocorasick"
	"github.com/microcosm-cc/bluemonday"
)

// Moderator cleans message text before it is persisted.
// It strips any markup then hides censored words, keeping the text length.
type Moderator struct {
	matcher      *goahocorasick.Machine
	censoredChar rune
	policy       *bluemonday.Policy
	log          *slog.Logger
}

type TextMapping struct {
	Normalized []rune
	OrigIdx    []int
}

// NewModerator initializes the Aho-Corasick automaton with a normalized version of the provided censored words list.
// Words made only of noise are ignored.
func NewModerator(censoredWords []string, censoredChar rune, log *slog.Logger) (*Moderator, error) {
	seen := make(map[string]struct{}, len(censoredWords))
	patterns := make([][]rune, 0, len(censoredWords))
	for _, word := range censoredWords {
		pattern := normalizeRunes([]rune(word))
		if len(pattern) == 0 {
			continue
		}
		if _, ok := seen[string(pattern)]; ok {
			continue
		}
		seen[string(pattern)] = struct{}{}
		patterns = append(patterns, pattern)
	}

	moderator := &Moderator{
		censoredChar: censoredChar,
		policy:       bluemonday.StrictPolicy(),
		log:          log,
	}
	if len(patterns) == 0 {
		return moderator, nil
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, err
	}
	moderator.matcher = m
	return moderator, nil
}

// Filter returns the text as it will be stored.
// A text left empty once markup is removed is rejected with ErrInvalidPayload.
func (m *Moderator) Filter(senderID, text string) (string, error) {
	sanitized := m.Sanitize(text)
	if sanitized == "" {
		return "", fmt.Errorf("%w: text is empty", errors.ErrInvalidPayload)
	}
	censored, words := m.Censor(sanitized)
	if len(words) > 0 {
		m.log.Info("Message censored",
			"user_id", senderID,
			"lang", whatlanggo.Detect(sanitized).Lang.Iso6391(),
			"censored_words", len(words))
	}
	return censored, nil
}

// Sanitize drops every HTML element. The text nodes are unescaped again so
// characters like '<' or '&' typed by a user survive as they were written.
func (m *Moderator) Sanitize(text string) string {
	return strings.TrimSpace(html.UnescapeString(m.policy.Sanitize(text)))
}

// Censor identifies forbidden patterns and replaces the original characters with stars while preserving spacing.
// It returns the censored text and the words found, in order of appearance.
func (m *Moderator) Censor(original string) (string, []string) {
	if m.matcher == nil {
		return original, nil
	}
	mapping := m.normalize(original)
	if len(mapping.Normalized) == 0 {
		return original, nil
	}

	origRunes := []rune(original)
	spans := m.matcher.MultiPatternSearch(mapping.Normalized, false)
	if len(spans) == 0 {
		return original, nil
	}

	var found []string
	for _, span := range spans {
		normStart := span.Pos
		normEnd := normStart + len(span.Word)

		if normStart < 0 || normEnd > len(mapping.OrigIdx) {
			continue
		}

		origStart := mapping.OrigIdx[normStart]
		origEnd := mapping.OrigIdx[normEnd-1] + 1

		for i := origStart; i < origEnd; i++ {
			origRunes[i] = m.censoredChar
		}
		found = append(found, string(span.Word))
	}

	return string(origRunes), found
}

// normalize transforms the input string into a searchable format and tracks original rune positions.
func (m *Moderator) normalize(input string) TextMapping {
	origRunes := []rune(input)
	norm := make([]rune, 0, len(origRunes))
	origIdx := make([]int, 0, len(origRunes))

	for i, r := range origRunes {
		clean := simplifyRune(r)
		if isNoise(clean) {
			continue
		}
		norm = append(norm, unicode.ToLower(clean))
		origIdx = append(origIdx, i)
	}
	return TextMapping{Normalized: norm, OrigIdx: origIdx}
}

func normalizeRunes(input []rune) []rune {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		clean := simplifyRune(r)
		if isNoise(clean) {
			continue
		}
		out = append(out, unicode.ToLower(clean))
	}
	return out
}

// simplifyRune maps common Leet speak characters back to their standard alphabet counterparts.
func simplifyRune(r rune) rune {
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

func isNoise(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r)
}
