package subtitles

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/forPelevin/threadreel/internal/types"
)

const styleName = "Caption"

// RenderCaptionASS renders caption segments as an ASS script sized to the
// canvas. Each segment becomes one centred event shown during [Start, End);
// libass wraps lines inside the horizontal margins.
func RenderCaptionASS(segs []types.CaptionSegment, canvas types.Canvas, style types.CaptionStyle) string {
	var b strings.Builder
	b.WriteString(assHeader(canvas, style))
	b.WriteString("\n\n[Events]\n")
	b.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")
	for _, s := range segs {
		text := sanitizeASS(s.Text)
		if text == "" {
			continue
		}
		b.WriteString("Dialogue: 0,")
		b.WriteString(assTime(dur(s.Start)))
		b.WriteString(",")
		b.WriteString(assTime(dur(s.End)))
		b.WriteString(",")
		b.WriteString(styleName)
		b.WriteString(",,0,0,0,,")
		b.WriteString(text)
		b.WriteString("\n")
	}
	return b.String()
}

func assHeader(canvas types.Canvas, style types.CaptionStyle) string {
	bold := 0
	if style.Bold {
		bold = -1
	}
	var b strings.Builder
	b.WriteString("[Script Info]\n")
	b.WriteString("ScriptType: v4.00+\n")
	fmt.Fprintf(&b, "PlayResX: %d\n", canvas.Width)
	fmt.Fprintf(&b, "PlayResY: %d\n", canvas.Height)
	b.WriteString("WrapStyle: 0\n")
	b.WriteString("ScaledBorderAndShadow: yes\n")
	b.WriteString("\n[V4+ Styles]\n")
	b.WriteString("Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding\n")
	// Alignment 5 is middle-centre; BorderStyle 1 draws an outline without a box.
	fmt.Fprintf(&b, "Style: %s,%s,%d,%s,%s,%s,&H00000000,%d,0,0,0,100,100,0,0,1,%d,0,5,%d,%d,0,1",
		styleName,
		style.FontName,
		style.FontSize,
		assColor(style.Fill, "&H00FFFFFF"),
		assColor(style.Fill, "&H00FFFFFF"),
		assColor(style.Outline, "&H00000000"),
		bold,
		style.OutlineWidth,
		style.Margin,
		style.Margin,
	)
	return b.String()
}

// assColor converts "#RRGGBB" into the ASS &HAABBGGRR form.
func assColor(hex, fallback string) string {
	h := strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(h) != 6 {
		return fallback
	}
	if _, err := strconv.ParseUint(h, 16, 32); err != nil {
		return fallback
	}
	h = strings.ToUpper(h)
	return "&H00" + h[4:6] + h[2:4] + h[0:2]
}

func assTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hs := int(d / time.Hour)
	d -= time.Duration(hs) * time.Hour
	ms := int(d / time.Minute)
	d -= time.Duration(ms) * time.Minute
	s := int(d / time.Second)
	d -= time.Duration(s) * time.Second
	cs := int(d / (10 * time.Millisecond))
	return fmt.Sprintf("%d:%02d:%02d.%02d", hs, ms, s, cs)
}

func sanitizeASS(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "{", "(")
	s = strings.ReplaceAll(s, "}", ")")
	return strings.TrimSpace(s)
}

func dur(sec float64) time.Duration {
	return time.Duration(math.Round(sec*1000)) * time.Millisecond
}
