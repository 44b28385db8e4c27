package moderation

import (
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func dictionary(size int) []string {
	words := make([]string, 0, size)
	for i := 0; i < size; i++ {
		words = append(words, fmt.Sprintf("banned%05d", i))
	}
	return words
}

func Test_Moderator_Large_Dictionary(t *testing.T) {
	req := require.New(t)
	moderator, err := NewModerator(dictionary(20_000), '*', logs.GetLoggerFromLevel(slog.LevelError))
	req.NoError(err)

	filtered, err := moderator.Filter("alice", "see banned19999 at noon")
	req.NoError(err)
	req.Equal("see "+strings.Repeat("*", len("banned19999"))+" at noon", filtered)
}

func BenchmarkModerator_Filter(b *testing.B) {
	moderator, err := NewModerator(dictionary(20_000), '*', logs.GetLoggerFromLevel(slog.LevelError))
	require.NoError(b, err)
	text := strings.Repeat("would you teach me some guitar chords banned00042 ", 8)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := moderator.Filter("alice", text); err != nil {
			b.Fatal(err)
		}
	}
}
