package captions

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/forPelevin/threadreel/internal/types"
)

func words(n int) string {
	w := make([]string, n)
	for i := range w {
		w[i] = "w"
	}
	return strings.Join(w, " ")
}

func TestSegment_ChunkSizes(t *testing.T) {
	segs, err := Segment(words(20), 10, WithChunkSize(8))
	if err != nil {
		t.Fatalf("segment: %v", err)
	}
	var sizes []int
	for _, s := range segs {
		sizes = append(sizes, len(strings.Fields(s.Text)))
	}
	if diff := cmp.Diff([]int{8, 8, 4}, sizes); diff != "" {
		t.Fatalf("chunk sizes mismatch (-want +got):\n%s", diff)
	}
}

func TestSegment_Coverage(t *testing.T) {
	tests := []struct {
		name     string
		words    int
		duration float64
		opts     []Option
	}{
		{name: "single word", words: 1, duration: 0.5},
		{name: "exact chunks", words: 16, duration: 8},
		{name: "ragged tail", words: 37, duration: 3},
		{name: "custom rate", words: 50, duration: 20, opts: []Option{WithWordsPerMinute(97), WithChunkSize(5)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			segs, err := Segment(words(tt.words), tt.duration, tt.opts...)
			if err != nil {
				t.Fatalf("segment: %v", err)
			}
			if len(segs) == 0 {
				t.Fatal("expected segments for non-empty text")
			}
			if segs[0].Start != 0 {
				t.Fatalf("first start = %v, want 0", segs[0].Start)
			}
			sum := 0.0
			for i, s := range segs {
				if s.Text == "" {
					t.Fatalf("segment %d is empty", i)
				}
				if s.End <= s.Start {
					t.Fatalf("segment %d has end %v <= start %v", i, s.End, s.Start)
				}
				if i > 0 && segs[i-1].End != s.Start {
					t.Fatalf("segments %d/%d not contiguous: %v != %v", i-1, i, segs[i-1].End, s.Start)
				}
				sum += s.End - s.Start
			}
			if math.Abs(Total(segs)-sum) > 1e-9 {
				t.Fatalf("last end %v != sum of durations %v", Total(segs), sum)
			}
		})
	}
}

func TestSegment_SixteenWordsAtDefaultRate(t *testing.T) {
	segs, err := Segment(words(16), 8)
	if err != nil {
		t.Fatalf("segment: %v", err)
	}
	want := []types.CaptionSegment{
		{Start: 0, End: 3.2, Text: words(8)},
		{Start: 3.2, End: 6.4, Text: words(8)},
	}
	approx := cmp.Comparer(func(a, b float64) bool { return math.Abs(a-b) < 1e-9 })
	if diff := cmp.Diff(want, segs, approx); diff != "" {
		t.Fatalf("segments mismatch (-want +got):\n%s", diff)
	}
}

func TestSegment_EmptyText(t *testing.T) {
	segs, err := Segment("  \n ", 5)
	if err != nil {
		t.Fatalf("segment: %v", err)
	}
	if len(segs) != 0 {
		t.Fatalf("expected no segments, got %v", segs)
	}
}

func TestSegment_InvalidInput(t *testing.T) {
	tests := []struct {
		name     string
		duration float64
		opts     []Option
	}{
		{name: "zero duration", duration: 0},
		{name: "negative duration", duration: -1},
		{name: "nan duration", duration: math.NaN()},
		{name: "zero rate", duration: 1, opts: []Option{WithWordsPerMinute(0)}},
		{name: "zero chunk", duration: 1, opts: []Option{WithChunkSize(0)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Segment("some words", tt.duration, tt.opts...)
			if !errors.Is(err, ErrSegmentation) {
				t.Fatalf("expected ErrSegmentation, got %v", err)
			}
		})
	}
}
