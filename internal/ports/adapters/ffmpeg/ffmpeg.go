package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/renameio/v2"

	"github.com/forPelevin/threadreel/internal/domain/subtitles"
	"github.com/forPelevin/threadreel/internal/ports"
	"github.com/forPelevin/threadreel/internal/types"
	"github.com/forPelevin/threadreel/pkg/executor"
)

// ErrRenderFailed wraps every compositor failure.
var ErrRenderFailed = errors.New("render failed")

const (
	defaultFrameRate = 24
	captionsFile     = "captions.ass"
	tempAudioFile    = "temp-audio.m4a"
)

type Adapter struct {
	exec    executor.Executor
	ffmpeg  string
	ffprobe string
}

func New(exec executor.Executor, ffmpegPath, ffprobePath string) *Adapter {
	if exec == nil {
		exec = executor.New()
	}
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Adapter{exec: exec, ffmpeg: ffmpegPath, ffprobe: ffprobePath}
}

// Check verifies both binaries can be executed.
func (a *Adapter) Check(ctx context.Context) error {
	if _, err := a.exec.Execute(ctx, a.ffmpeg, "-hide_banner", "-version"); err != nil {
		return fmt.Errorf("ffmpeg unavailable: %w", err)
	}
	if _, err := a.exec.Execute(ctx, a.ffprobe, "-hide_banner", "-version"); err != nil {
		return fmt.Errorf("ffprobe unavailable: %w", err)
	}
	return nil
}

// Render composites a flat canvas spanning the audio duration with the
// caption segments burned in and the audio muxed on top. The result is written
// to a pending file next to outPath and renamed into place only on success.
func (a *Adapter) Render(
	ctx context.Context,
	audio types.AudioAsset,
	segs []types.CaptionSegment,
	outPath string,
	opts ports.RenderOptions,
) (types.VideoArtifact, error) {
	fps, err := validate(audio, segs, outPath, &opts)
	if err != nil {
		return types.VideoArtifact{}, err
	}
	audioAbs, err := filepath.Abs(audio.Path)
	if err != nil {
		return types.VideoArtifact{}, fmt.Errorf("%w: resolve audio path: %w", ErrRenderFailed, err)
	}
	outAbs, err := filepath.Abs(outPath)
	if err != nil {
		return types.VideoArtifact{}, fmt.Errorf("%w: resolve output path: %w", ErrRenderFailed, err)
	}
	outDir := filepath.Dir(outAbs)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return types.VideoArtifact{}, fmt.Errorf("%w: create output dir: %w", ErrRenderFailed, err)
	}

	scratch, err := os.MkdirTemp(outDir, ".render-*")
	if err != nil {
		return types.VideoArtifact{}, fmt.Errorf("%w: create scratch dir: %w", ErrRenderFailed, err)
	}
	defer os.RemoveAll(scratch)

	ass := subtitles.RenderCaptionASS(segs, opts.Canvas, opts.Style)
	if err := os.WriteFile(filepath.Join(scratch, captionsFile), []byte(ass), 0o644); err != nil {
		return types.VideoArtifact{}, fmt.Errorf("%w: write captions: %w", ErrRenderFailed, err)
	}

	if _, err := a.exec.ExecuteInDir(ctx, scratch, a.ffmpeg,
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", audioAbs,
		"-vn",
		"-c:a", "aac",
		"-b:a", "192k",
		tempAudioFile,
	); err != nil {
		return types.VideoArtifact{}, fmt.Errorf("%w: ffmpeg transcode audio: %w", ErrRenderFailed, err)
	}

	pending, err := renameio.NewPendingFile(outAbs, renameio.WithPermissions(0o644))
	if err != nil {
		return types.VideoArtifact{}, fmt.Errorf("%w: create pending video: %w", ErrRenderFailed, err)
	}
	defer func() { _ = pending.Cleanup() }()

	// The subtitles filter takes a bare relative name; the command runs inside
	// the scratch dir so no filter-path escaping is needed.
	bg := fmt.Sprintf("color=c=%s:s=%dx%d:r=%d:d=%s",
		ffmpegColor(opts.Canvas.Background),
		opts.Canvas.Width, opts.Canvas.Height,
		fps,
		fmtSeconds(audio.Duration),
	)
	if _, err := a.exec.ExecuteInDir(ctx, scratch, a.ffmpeg,
		"-y", "-hide_banner", "-loglevel", "error",
		"-f", "lavfi", "-i", bg,
		"-i", tempAudioFile,
		"-vf", "subtitles="+captionsFile,
		"-map", "0:v",
		"-map", "1:a",
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-pix_fmt", "yuv420p",
		"-r", strconv.Itoa(fps),
		"-c:a", "copy",
		"-shortest",
		"-movflags", "+faststart",
		"-f", "mp4",
		pending.Name(),
	); err != nil {
		return types.VideoArtifact{}, fmt.Errorf("%w: ffmpeg compose: %w", ErrRenderFailed, err)
	}

	st, err := os.Stat(pending.Name())
	if err != nil {
		return types.VideoArtifact{}, fmt.Errorf("%w: stat output: %w", ErrRenderFailed, err)
	}
	if st.Size() == 0 {
		return types.VideoArtifact{}, fmt.Errorf("%w: ffmpeg produced an empty file", ErrRenderFailed)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return types.VideoArtifact{}, fmt.Errorf("%w: publish video: %w", ErrRenderFailed, err)
	}

	return types.VideoArtifact{Path: outPath, SizeBytes: st.Size(), Duration: audio.Duration}, nil
}

func validate(audio types.AudioAsset, segs []types.CaptionSegment, outPath string, opts *ports.RenderOptions) (int, error) {
	if outPath == "" {
		return 0, fmt.Errorf("%w: output path is empty", ErrRenderFailed)
	}
	if math.IsNaN(audio.Duration) || math.IsInf(audio.Duration, 0) || audio.Duration <= 0 {
		return 0, fmt.Errorf("%w: audio duration must be > 0, got %v", ErrRenderFailed, audio.Duration)
	}
	if st, err := os.Stat(audio.Path); err != nil {
		return 0, fmt.Errorf("%w: audio: %w", ErrRenderFailed, err)
	} else if st.IsDir() {
		return 0, fmt.Errorf("%w: audio path %q is a directory", ErrRenderFailed, audio.Path)
	}
	if len(segs) == 0 {
		return 0, fmt.Errorf("%w: no caption segments", ErrRenderFailed)
	}
	if opts.Canvas == (types.Canvas{}) {
		opts.Canvas = types.DefaultCanvas()
	}
	if opts.Style == (types.CaptionStyle{}) {
		opts.Style = types.DefaultCaptionStyle()
	}
	c := opts.Canvas
	// libx264 with yuv420p needs even dimensions.
	if c.Width <= 0 || c.Height <= 0 || c.Width%2 != 0 || c.Height%2 != 0 {
		return 0, fmt.Errorf("%w: canvas %dx%d must be positive and even", ErrRenderFailed, c.Width, c.Height)
	}
	if strings.TrimSpace(c.Background) == "" {
		return 0, fmt.Errorf("%w: canvas background is empty", ErrRenderFailed)
	}
	fps := opts.FrameRate
	if fps == 0 {
		fps = defaultFrameRate
	}
	if fps < 0 {
		return 0, fmt.Errorf("%w: frame rate must be > 0, got %d", ErrRenderFailed, fps)
	}
	return fps, nil
}

func (a *Adapter) ProbeDuration(ctx context.Context, path string) (time.Duration, error) {
	out, err := a.exec.Execute(ctx, a.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration: %w", err)
	}
	s := strings.TrimSpace(out)
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	return time.Duration(sec * float64(time.Second)), nil
}

// ffmpegColor accepts "#RRGGBB" or a named color. ffmpeg prefers the 0x form
// inside filter arguments.
func ffmpegColor(c string) string {
	c = strings.TrimSpace(c)
	if strings.HasPrefix(c, "#") {
		return "0x" + c[1:]
	}
	return c
}

func fmtSeconds(sec float64) string {
	return strconv.FormatFloat(sec, 'f', 3, 64)
}
