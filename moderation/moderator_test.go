package moderation

import (
	"log/slog"
	"testing"
	"testing/fstest"

	"skillxchange/errors"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

const replacementChar = '*'

// TestModerator_Censor
// The dictionary uses specific words to avoid partial collisions (e.g., "he" inside "The")
func TestModerator_Censor(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	dictionary := []string{"badger", "snake", "mushroom"}
	mod, err := NewModerator(dictionary, replacementChar, log)
	req.NoError(err)

	tests := []struct {
		name     string
		input    string
		expected string
		words    []string
	}{
		{
			name:     "Simple word and space preservation",
			input:    "The badger is here",
			expected: "The ****** is here",
			words:    []string{"badger"},
		},
		{
			name:     "Multiple occurrences and preserved spacing",
			input:    "badger badger badger",
			expected: "****** ****** ******",
			words:    []string{"badger", "badger", "badger"},
		},
		{
			name:     "Leet speak and internal punctuation",
			input:    "Look at B.4.d.g.€r !",
			expected: "Look at ********** !",
			words:    []string{"badger"},
		},
		{
			name:     "Uppercase and extreme noise",
			input:    "S-N-A-K-E is a B.A.D.G.E.R",
			expected: "********* is a ***********",
			words:    []string{"snake", "badger"},
		},
		{
			name:     "Accents and special characters (UTF-8)",
			input:    "Un été avec un badger",
			expected: "Un été avec un ******",
			words:    []string{"badger"},
		},
		{
			name:     "Word adjacent to trailing punctuation",
			input:    "I love badger!",
			expected: "I love ******!",
			words:    []string{"badger"},
		},
		{
			name:     "Nothing to censor",
			input:    "skillXchange is amazing",
			expected: "skillXchange is amazing",
			words:    nil,
		},
		{
			name:     "Empty string",
			input:    "",
			expected: "",
			words:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content, words := mod.Censor(tt.input)
			req.Equal(tt.expected, content, "test=%s,", tt.name)
			req.Equal(tt.words, words, "expected=%s,words=%s", tt.expected, words)
		})
	}
}

func TestModerator_CornerCases(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	// Given real noise and not Leet Speak associated
	dictionary := []string{"...", ",,,", "", "badger", "BADGER"}

	mod, err := NewModerator(dictionary, replacementChar, log)
	req.NoError(err)

	// Then the sentence is censored
	content, words := mod.Censor("The badger is safe")
	req.Equal("The ****** is safe", content)
	req.Equal([]string{"badger"}, words)

	// Then real noise is uncensored
	content, words = mod.Censor("Hello ...")
	req.Equal("Hello ...", content)
	req.Nil(words)
}

func TestModerator_Without_Words(t *testing.T) {
	req := require.New(t)
	mod, err := NewModerator(nil, replacementChar, logs.GetLoggerFromLevel(slog.LevelError))
	req.NoError(err)

	content, words := mod.Censor("anything goes")
	req.Equal("anything goes", content)
	req.Nil(words)
}

func TestModerator_Filter(t *testing.T) {
	req := require.New(t)
	mod, err := NewModerator([]string{"badger"}, replacementChar, logs.GetLoggerFromLevel(slog.LevelError))
	req.NoError(err)

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "Plain text is kept", input: "see you at 5", expected: "see you at 5"},
		{name: "Markup is stripped", input: "<b>hello</b> <i>there</i>", expected: "hello there"},
		{name: "Typed symbols survive", input: "a < b && c > d", expected: "a < b && c > d"},
		{name: "Quotes survive", input: `it's "fine"`, expected: `it's "fine"`},
		{name: "Censor after sanitize", input: "<p>the badger</p>", expected: "the ******"},
		{name: "Surrounding spaces trimmed", input: "  hi  ", expected: "hi"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content, err := mod.Filter("alice", tt.input)
			req.NoError(err)
			req.Equal(tt.expected, content)
		})
	}

	// Nothing left once markup is removed
	_, err = mod.Filter("alice", "<script>alert(1)</script>")
	req.ErrorIs(err, errors.ErrInvalidPayload)
	_, err = mod.Filter("alice", "   ")
	req.ErrorIs(err, errors.ErrInvalidPayload)
	// A lone word in angle brackets reads as an unknown element
	_, err = mod.Filter("alice", "<hello>")
	req.ErrorIs(err, errors.ErrInvalidPayload)
}

func TestCensoredLoader_LoadAll(t *testing.T) {
	req := require.New(t)
	fsys := fstest.MapFS{
		"words/en.txt":    {Data: []byte("badger\r\nsnake\n\n  badger  \n")},
		"words/fr.txt":    {Data: []byte("blaireau\n")},
		"words/README.md": {Data: []byte("not a dictionary")},
	}

	data, err := NewCensoredLoader(fsys).LoadAll("words")
	req.NoError(err)
	req.ElementsMatch([]string{"en", "fr"}, data.Languages)
	req.ElementsMatch([]string{"badger", "snake", "blaireau"}, data.Words)
}

func TestCensoredLoader_Empty(t *testing.T) {
	req := require.New(t)
	fsys := fstest.MapFS{"words/en.txt": {Data: []byte("\n\n")}}

	_, err := NewCensoredLoader(fsys).LoadAll("words")
	req.ErrorIs(err, errors.ErrEmptyWords)
}

func TestCensoredLoader_Embedded(t *testing.T) {
	req := require.New(t)
	data, err := NewEmbeddedLoader().LoadAll("censored")
	req.NoError(err)
	req.ElementsMatch([]string{"en", "fr"}, data.Languages)
	req.NotEmpty(data.Words)

	mod, err := NewModerator(data.Words, replacementChar, logs.GetLoggerFromLevel(slog.LevelError))
	req.NoError(err)
	content, err := mod.Filter("alice", "oh sh1t")
	req.NoError(err)
	req.Equal("oh ****", content)
}
