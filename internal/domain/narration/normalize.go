package narration

import (
	"regexp"
	"strings"
)

var (
	reBold   = regexp.MustCompile(`\*\*(.*?)\*\*`)
	reItalic = regexp.MustCompile(`\*(.*?)\*`)
	reStrike = regexp.MustCompile(`~~(.*?)~~`)
	reURL    = regexp.MustCompile(`https?://(?:[a-zA-Z0-9$-_@.&+!*(),]|%[0-9a-fA-F]{2})+`)
	reUser   = regexp.MustCompile(`/u/\w+`)
	reSub    = regexp.MustCompile(`/r/\w+`)
)

var entities = strings.NewReplacer("&gt;", ">", "&lt;", "<")

// Normalize turns raw thread text into plain narration text: markup
// delimiters, links and mention tokens are stripped, the three common HTML
// entities are decoded and whitespace is collapsed. It never fails.
func Normalize(raw string) string {
	s := reBold.ReplaceAllString(raw, "${1}")
	s = reItalic.ReplaceAllString(s, "${1}")
	s = reStrike.ReplaceAllString(s, "${1}")

	s = reURL.ReplaceAllString(s, "")

	s = reUser.ReplaceAllString(s, "")
	s = reSub.ReplaceAllString(s, "")

	// &amp; last so "&amp;gt;" decodes to the literal "&gt;".
	s = entities.Replace(s)
	s = strings.ReplaceAll(s, "&amp;", "&")

	return strings.Join(strings.Fields(s), " ")
}
