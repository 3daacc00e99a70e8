package narration

import "testing"

func TestNormalize_LiteralCase(t *testing.T) {
	got := Normalize("Check **this** out http://x.co /u/bob &amp; /r/test")
	if got != "Check this out &" {
		t.Fatalf("Normalize() = %q, want %q", got, "Check this out &")
	}
}

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		"":                                    "",
		"   \n\t ":                            "",
		"*soft* and ~~gone~~ text":            "soft and gone text",
		"a &gt; b &lt; c":                     "a > b < c",
		"&amp;gt; stays literal":              "&gt; stays literal",
		"see https://example.com/a?b=1 now":   "see now",
		"line one\n\nline   two":              "line one line two",
		"thanks /u/some_user in /r/golang ok": "thanks in ok",
		"**bold** *it* ~~strike~~":            "bold it strike",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			if got := Normalize(in); got != want {
				t.Fatalf("Normalize(%q) = %q, want %q", in, got, want)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"plain text already",
		"  spaced    out\ttext \n",
		"numbers 1 2 3 and symbols > < &",
		"",
	}
	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Fatalf("not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}
