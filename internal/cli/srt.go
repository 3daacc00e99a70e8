package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/forPelevin/threadreel/internal/domain/captions"
	"github.com/forPelevin/threadreel/internal/domain/narration"
	"github.com/forPelevin/threadreel/internal/domain/subtitles"
	"github.com/forPelevin/threadreel/internal/jobs"
	"github.com/forPelevin/threadreel/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/threadreel/pkg/executor"
)

func newSRTCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "srt <text-file|->",
		Short: "Write the caption track for a narration as SubRip",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeSRT(cmd, args[0])
		},
	}
	cmd.Flags().Float64("duration", 0, "Narration audio length in seconds")
	cmd.Flags().String("audio", "", "Narration audio file; its probed length is used as --duration")
	cmd.Flags().String("out", "", "Output .srt path (stdout when empty)")
	return cmd
}

func writeSRT(cmd *cobra.Command, input string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	duration, _ := cmd.Flags().GetFloat64("duration")
	audio, _ := cmd.Flags().GetString("audio")
	out, _ := cmd.Flags().GetString("out")

	if audio != "" {
		prober := ffmpeg.New(executor.New(), cfg.FFmpeg.FFmpegPath, cfg.FFmpeg.FFprobePath)
		d, err := prober.ProbeDuration(cmd.Context(), audio)
		if err != nil {
			return err
		}
		duration = d.Seconds()
	}
	if duration <= 0 {
		return errors.New("--duration or --audio is required")
	}

	text, err := readInput(cmd.InOrStdin(), input)
	if err != nil {
		return err
	}
	opts := jobs.Config{
		WordsPerMinute:  cfg.Render.WordsPerMinute,
		WordsPerCaption: cfg.Render.WordsPerCaption,
	}.CaptionOptions()
	segs, err := captions.Segment(narration.Normalize(text), duration, opts...)
	if err != nil {
		return err
	}

	if out == "" {
		_, err := fmt.Fprint(cmd.OutOrStdout(), subtitles.EncodeSRT(segs))
		return err
	}
	if err := subtitles.WriteSRT(out, segs); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d captions (%s) to %s\n", len(segs), time.Duration(duration*float64(time.Second)).Round(time.Millisecond), out)
	return nil
}
