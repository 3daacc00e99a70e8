package subtitles

import (
	"fmt"
	"math"
	"strings"

	"github.com/google/renameio/v2"

	"github.com/forPelevin/threadreel/internal/types"
)

// EncodeSRT serializes segments as a SubRip document, one numbered block per
// segment in input order.
func EncodeSRT(segs []types.CaptionSegment) string {
	var b strings.Builder
	for i, s := range segs {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n",
			i+1,
			SecondsToSRTTime(s.Start),
			SecondsToSRTTime(s.End),
			s.Text,
		)
	}
	return b.String()
}

// SecondsToSRTTime formats seconds as HH:MM:SS,mmm. The value is rounded to
// whole milliseconds before splitting so the seconds field never reads 60.
func SecondsToSRTTime(sec float64) string {
	if sec < 0 || math.IsNaN(sec) {
		sec = 0
	}
	ms := int64(math.Round(sec * 1000))
	h := ms / 3_600_000
	m := (ms % 3_600_000) / 60_000
	s := (ms % 60_000) / 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms%1000)
}

// WriteSRT atomically writes the encoded segments to path.
func WriteSRT(path string, segs []types.CaptionSegment) error {
	if err := renameio.WriteFile(path, []byte(EncodeSRT(segs)), 0o644); err != nil {
		return fmt.Errorf("write srt: %w", err)
	}
	return nil
}
