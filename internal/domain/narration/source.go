package narration

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/forPelevin/threadreel/internal/ports"
	"github.com/forPelevin/threadreel/internal/types"
)

const (
	DefaultMaxComments = 5
	MaxCommentsLimit   = 50

	// DefaultChunkSize is the rune budget of one summarization request.
	DefaultChunkSize = 1000

	commentPreview  = 200
	minCommentRunes = 10
	minChunkRunes   = 50
)

var ErrSummarizerUnavailable = errors.New("summarizer unavailable")

// ClampComments maps a requested comment count into [1, MaxCommentsLimit],
// treating non-positive values as the default.
func ClampComments(n int) int {
	if n <= 0 {
		return DefaultMaxComments
	}
	if n > MaxCommentsLimit {
		return MaxCommentsLimit
	}
	return n
}

// BuildSource flattens a thread into the text fed to the summarizer. Only the
// first maxComments comments are considered, short ones are skipped and each
// body is cut to a fixed preview.
func BuildSource(th types.Thread, maxComments int) string {
	maxComments = ClampComments(maxComments)

	var b strings.Builder
	b.WriteString("Title: ")
	b.WriteString(th.Title)
	b.WriteString("\n\n")
	if strings.TrimSpace(th.Body) != "" {
		b.WriteString("Post: ")
		b.WriteString(th.Body)
		b.WriteString("\n\n")
	}

	b.WriteString("Top Comments:\n")
	comments := th.Comments
	if len(comments) > maxComments {
		comments = comments[:maxComments]
	}
	for _, c := range comments {
		body := []rune(c.Body)
		if len(body) <= minCommentRunes {
			continue
		}
		if len(body) > commentPreview {
			body = body[:commentPreview]
		}
		b.WriteString("- ")
		b.WriteString(string(body))
		b.WriteString("...\n")
	}
	return b.String()
}

// ChunkText splits text into consecutive pieces of at most size runes.
func ChunkText(text string, size int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	r := []rune(text)
	out := make([]string, 0, len(r)/size+1)
	for i := 0; i < len(r); i += size {
		end := i + size
		if end > len(r) {
			end = len(r)
		}
		out = append(out, string(r[i:end]))
	}
	return out
}

// Summarize condenses text chunk by chunk and returns normalized narration.
// Chunks too short to be worth summarizing are dropped.
func Summarize(ctx context.Context, s ports.Summarizer, text string) (string, error) {
	if s == nil {
		return "", ErrSummarizerUnavailable
	}
	chunks := ChunkText(text, DefaultChunkSize)
	parts := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		if len([]rune(strings.TrimSpace(chunk))) <= minChunkRunes {
			continue
		}
		sum, err := s.Summarize(ctx, chunk)
		if err != nil {
			return "", fmt.Errorf("summarize chunk %d/%d: %w", i+1, len(chunks), err)
		}
		parts = append(parts, strings.TrimSpace(sum))
	}
	return Normalize(strings.Join(parts, " ")), nil
}
