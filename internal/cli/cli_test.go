package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestSRT_Stdout(t *testing.T) {
	text := strings.Repeat("word ", 16)

	out, err := execute(t, text, "srt", "-", "--duration", "8")
	require.NoError(t, err)

	assert.Equal(t, 2, strings.Count(out, " --> "))
	assert.True(t, strings.HasPrefix(out, "1\n00:00:00,000 --> 00:00:03,200\nword word"), out)
}

func TestSRT_File(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "story.txt")
	outPath := filepath.Join(dir, "story.srt")
	require.NoError(t, os.WriteFile(in, []byte("Hello &amp; welcome, see https://x.co now"), 0o644))

	_, err := execute(t, "", "srt", in, "--duration", "3", "--out", outPath)
	require.NoError(t, err)

	b, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(b), "1\n00:00:00,000 --> ")
	assert.NotContains(t, string(b), "https://")
}

func TestSRT_Errors(t *testing.T) {
	_, err := execute(t, "some words", "srt", "-")
	assert.ErrorContains(t, err, "--duration or --audio is required")

	_, err = execute(t, "   ", "srt", "-", "--duration", "2")
	assert.ErrorContains(t, err, "input is empty")

	_, err = execute(t, "", "srt", filepath.Join(t.TempDir(), "missing.txt"), "--duration", "2")
	assert.ErrorContains(t, err, "read input")
}

func TestArgs(t *testing.T) {
	_, err := execute(t, "", "render")
	assert.ErrorContains(t, err, "accepts 1 arg(s), received 0")

	_, err = execute(t, "", "serve", "extra")
	assert.Error(t, err)

	_, err = execute(t, "", "srt", "-", "--wat")
	assert.ErrorContains(t, err, "unknown flag: --wat")
}

func TestRender_FailsFastWithoutSpeechEngine(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("speech:\n  espeak_binary: "+filepath.Join(dir, "no-espeak")+"\n"), 0o644))

	_, err := execute(t, "a few words", "render", "-", "--config", cfgPath, "--out", filepath.Join(dir, "out"))
	assert.ErrorContains(t, err, "speech synthesis unavailable")
}

func TestIsURL(t *testing.T) {
	assert.True(t, isURL("https://www.reddit.com/r/golang/comments/abc/x/"))
	assert.False(t, isURL("notes/story.txt"))
	assert.False(t, isURL("-"))
}

func TestStopWorkersBy(t *testing.T) {
	t.Run("returns when workers exit", func(t *testing.T) {
		done := make(chan error, 1)
		done <- nil
		stopWorkersBy(done, make(chan struct{}))
	})

	t.Run("abandons a render still running at the deadline", func(t *testing.T) {
		done := make(chan error)
		deadline := make(chan struct{})
		close(deadline)
		returned := make(chan struct{})
		go func() {
			stopWorkersBy(done, deadline)
			close(returned)
		}()
		select {
		case <-returned:
		case <-time.After(2 * time.Second):
			t.Fatal("stopWorkersBy blocked past the deadline")
		}
	})
}
