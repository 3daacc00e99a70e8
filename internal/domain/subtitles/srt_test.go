package subtitles

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/forPelevin/threadreel/internal/types"
)

func TestSecondsToSRTTime(t *testing.T) {
	tests := map[float64]string{
		0:         "00:00:00,000",
		3661.5:    "01:01:01,500",
		3.2:       "00:00:03,200",
		59.9996:   "00:01:00,000",
		86399.999: "23:59:59,999",
		-4:        "00:00:00,000",
	}
	for in, want := range tests {
		if got := SecondsToSRTTime(in); got != want {
			t.Fatalf("SecondsToSRTTime(%v) = %q, want %q", in, got, want)
		}
	}
}

var srtBlock = regexp.MustCompile(`(\d+)\n(\d{2}:\d{2}:\d{2},\d{3}) --> (\d{2}:\d{2}:\d{2},\d{3})\n([^\n]+)\n\n`)

func TestEncodeSRT_BlockShape(t *testing.T) {
	segs := []types.CaptionSegment{
		{Start: 0, End: 3.2, Text: "one two three"},
		{Start: 3.2, End: 6.4, Text: "four five"},
	}
	out := EncodeSRT(segs)

	blocks := srtBlock.FindAllStringSubmatch(out, -1)
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d:\n%s", len(blocks), out)
	}
	if joined := blocks[0][0] + blocks[1][0]; joined != out {
		t.Fatalf("document has content outside blocks:\n%q", out)
	}
	if blocks[0][1] != "1" || blocks[1][1] != "2" {
		t.Fatalf("expected sequential 1-based indexes, got %s and %s", blocks[0][1], blocks[1][1])
	}
	if blocks[1][2] != "00:00:03,200" || blocks[1][3] != "00:00:06,400" {
		t.Fatalf("unexpected second range: %s --> %s", blocks[1][2], blocks[1][3])
	}
	if blocks[1][4] != "four five" {
		t.Fatalf("unexpected second text: %q", blocks[1][4])
	}
}

func TestEncodeSRT_Empty(t *testing.T) {
	if got := EncodeSRT(nil); got != "" {
		t.Fatalf("expected empty document, got %q", got)
	}
}

func TestWriteSRT(t *testing.T) {
	path := filepath.Join(t.TempDir(), "captions.srt")
	segs := []types.CaptionSegment{{Start: 0, End: 1, Text: "hi"}}
	if err := WriteSRT(path, segs); err != nil {
		t.Fatalf("write: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(b) != "1\n00:00:00,000 --> 00:00:01,000\nhi\n\n" {
		t.Fatalf("unexpected file content: %q", b)
	}
}
