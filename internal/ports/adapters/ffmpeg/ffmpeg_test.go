package ffmpeg

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forPelevin/threadreel/internal/ports"
	"github.com/forPelevin/threadreel/internal/types"
)

type call struct {
	dir  string
	name string
	args []string
}

// fakeExec pretends to be ffmpeg: the last argument is treated as the output
// file and gets a few bytes written to it.
type fakeExec struct {
	mu      sync.Mutex
	calls   []call
	failOn  string // substring of the joined args that triggers a failure
	stdout  string
	noWrite bool
}

func (f *fakeExec) Execute(ctx context.Context, name string, args ...string) (string, error) {
	return f.ExecuteInDir(ctx, "", name, args...)
}

func (f *fakeExec) ExecuteInDir(_ context.Context, dir, name string, args ...string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call{dir: dir, name: name, args: args})
	f.mu.Unlock()

	if f.failOn != "" && strings.Contains(strings.Join(args, " "), f.failOn) {
		return "", errors.New("exit status 1\nstderr: boom")
	}
	if name == "ffmpeg" && !f.noWrite && len(args) > 0 {
		out := args[len(args)-1]
		if !filepath.IsAbs(out) {
			out = filepath.Join(dir, out)
		}
		if err := os.WriteFile(out, []byte("fake-media"), 0o644); err != nil {
			return "", err
		}
	}
	return f.stdout, nil
}

func writeAudio(t *testing.T, dir string) types.AudioAsset {
	t.Helper()
	p := filepath.Join(dir, "audio_x.wav")
	require.NoError(t, os.WriteFile(p, []byte("RIFF"), 0o644))
	return types.AudioAsset{Path: p, Duration: 8}
}

func segs() []types.CaptionSegment {
	return []types.CaptionSegment{
		{Start: 0, End: 3.2, Text: "one two three four five six seven eight"},
		{Start: 3.2, End: 6.4, Text: "nine ten eleven twelve thirteen fourteen fifteen sixteen"},
	}
}

func TestRender_PublishesArtifact(t *testing.T) {
	dir := t.TempDir()
	fx := &fakeExec{}
	a := New(fx, "", "")
	out := filepath.Join(dir, "videos", "video_x.mp4")

	art, err := a.Render(context.Background(), writeAudio(t, dir), segs(), out, ports.RenderOptions{})
	require.NoError(t, err)

	assert.Equal(t, out, art.Path)
	assert.Equal(t, int64(len("fake-media")), art.SizeBytes)
	assert.Equal(t, 8.0, art.Duration)
	st, err := os.Stat(out)
	require.NoError(t, err)
	assert.Equal(t, art.SizeBytes, st.Size())

	require.Len(t, fx.calls, 2)
	transcode, compose := fx.calls[0], fx.calls[1]
	assert.Equal(t, tempAudioFile, transcode.args[len(transcode.args)-1])
	assert.Equal(t, transcode.dir, compose.dir)

	joined := strings.Join(compose.args, " ")
	assert.Contains(t, joined, "color=c=0x00FF00:s=1920x1080:r=24:d=8.000")
	assert.Contains(t, joined, "-vf subtitles="+captionsFile)
	assert.Contains(t, joined, "-i "+tempAudioFile)
	assert.Contains(t, joined, "-c:v libx264")
	assert.Contains(t, joined, "-f mp4")

	// scratch dir and pending files are gone
	entries, err := os.ReadDir(filepath.Dir(out))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "video_x.mp4", entries[0].Name())
}

func TestRender_FailureLeavesNoPartialOutput(t *testing.T) {
	dir := t.TempDir()
	fx := &fakeExec{failOn: "libx264"}
	out := filepath.Join(dir, "video_x.mp4")
	audio := writeAudio(t, dir)

	_, err := New(fx, "", "").Render(context.Background(), audio, segs(), out, ports.RenderOptions{})
	require.ErrorIs(t, err, ErrRenderFailed)

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr), "expected no file at output path")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.Equal(t, filepath.Base(audio.Path), e.Name(), "unexpected leftover %s", e.Name())
	}
}

func TestRender_EmptyOutputFails(t *testing.T) {
	dir := t.TempDir()
	fx := &fakeExec{noWrite: true}
	// The pending file exists but stays empty when ffmpeg writes nothing.
	_, err := New(fx, "", "").Render(context.Background(), writeAudio(t, dir), segs(), filepath.Join(dir, "v.mp4"), ports.RenderOptions{})
	require.ErrorIs(t, err, ErrRenderFailed)
}

func TestRender_Validation(t *testing.T) {
	dir := t.TempDir()
	good := writeAudio(t, dir)
	out := filepath.Join(dir, "v.mp4")

	tests := []struct {
		name  string
		audio types.AudioAsset
		segs  []types.CaptionSegment
		opts  ports.RenderOptions
	}{
		{name: "missing audio", audio: types.AudioAsset{Path: filepath.Join(dir, "nope.wav"), Duration: 8}, segs: segs()},
		{name: "zero duration", audio: types.AudioAsset{Path: good.Path}, segs: segs()},
		{name: "no segments", audio: good},
		{name: "odd canvas", audio: good, segs: segs(), opts: ports.RenderOptions{Canvas: types.Canvas{Width: 1921, Height: 1080, Background: "black"}}},
		{name: "negative fps", audio: good, segs: segs(), opts: ports.RenderOptions{FrameRate: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := &fakeExec{}
			_, err := New(fx, "", "").Render(context.Background(), tt.audio, tt.segs, out, tt.opts)
			require.ErrorIs(t, err, ErrRenderFailed)
			assert.Empty(t, fx.calls)
		})
	}
}

func TestProbeDuration(t *testing.T) {
	fx := &fakeExec{stdout: "8.250000\n"}
	d, err := New(fx, "", "ffprobe-custom").ProbeDuration(context.Background(), "a.wav")
	require.NoError(t, err)
	assert.Equal(t, 8250*time.Millisecond, d)
	require.Len(t, fx.calls, 1)
	assert.Equal(t, "ffprobe-custom", fx.calls[0].name)

	fx = &fakeExec{stdout: "N/A"}
	_, err = New(fx, "", "").ProbeDuration(context.Background(), "a.wav")
	assert.Error(t, err)
}

func TestFfmpegColor(t *testing.T) {
	assert.Equal(t, "0x00FF00", ffmpegColor("#00FF00"))
	assert.Equal(t, "black", ffmpegColor(" black "))
}
