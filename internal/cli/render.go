package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/forPelevin/threadreel/internal/domain/captions"
	"github.com/forPelevin/threadreel/internal/domain/subtitles"
	"github.com/forPelevin/threadreel/internal/log"
	"github.com/forPelevin/threadreel/internal/pipeline"
	"github.com/forPelevin/threadreel/internal/ports"
	"github.com/forPelevin/threadreel/internal/types"
	"github.com/forPelevin/threadreel/internal/usecase"
)

const cliOwner = "local"

func newRenderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render <thread-url|text-file|->",
		Short: "Render one video and print its path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return render(cmd, args[0])
		},
	}
	cmd.Flags().String("out", "videos", "Output directory")
	cmd.Flags().String("title", "", "Title for text input (defaults to the file name)")
	cmd.Flags().Int("comments", 5, "Comments to include from a thread")
	cmd.Flags().Bool("srt", false, "Also write the caption track as <video>.srt")
	cmd.Flags().Duration("timeout", 30*time.Minute, "Give up after this long; a render still running is abandoned")
	return cmd
}

func render(cmd *cobra.Command, input string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	overrideString(cmd, "out", &cfg.Paths.Output)
	title, _ := cmd.Flags().GetString("title")
	comments, _ := cmd.Flags().GetInt("comments")
	writeSRT, _ := cmd.Flags().GetBool("srt")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	logf := func(format string, args ...any) {
		fmt.Fprintf(cmd.ErrOrStderr(), format+"\n", args...)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	app, err := pipeline.Build(ctx, pipeline.Config{
		Config:   cfg,
		InMemory: true,
		Logf:     logf,
		Logger:   log.Base(),
	})
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.Synthesizer.Available(); err != nil {
		return err
	}
	if app.RenderErr != nil {
		return app.RenderErr
	}

	workersCtx, stopWorkers := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- app.Jobs.Run(workersCtx) }()
	defer func() {
		stopWorkers()
		stopWorkersBy(done, ctx.Done())
	}()

	var res usecase.Result
	if isURL(input) {
		logf("fetching thread: %s", input)
		res, err = app.Usecase.CreateVideo(ctx, usecase.VideoInput{OwnerID: cliOwner, URL: input, MaxComments: comments})
	} else {
		var text string
		text, err = readInput(cmd.InOrStdin(), input)
		if err != nil {
			return err
		}
		if title == "" && input != "-" {
			title = strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
		}
		res, err = app.Usecase.CreateFromText(ctx, usecase.NarrationInput{
			OwnerID:   cliOwner,
			Title:     title,
			Text:      text,
			SourceRef: input,
		})
	}
	if err != nil {
		return err
	}
	logf("job %s queued", res.JobID)

	job, err := waitForJob(ctx, app.Store, res.JobID, 250*time.Millisecond)
	if err != nil {
		return err
	}
	if job.Status != types.StatusCompleted {
		return fmt.Errorf("render job %s ended with status %s", job.ID, job.Status)
	}
	logf("rendered %.1fs video", job.DurationSec)

	if writeSRT {
		segs, err := captions.Segment(job.InputText, job.DurationSec, app.JobsConfig.CaptionOptions()...)
		if err != nil {
			return err
		}
		srtPath := strings.TrimSuffix(job.OutputPath, filepath.Ext(job.OutputPath)) + ".srt"
		if err := subtitles.WriteSRT(srtPath, segs); err != nil {
			return err
		}
		logf("subtitles: %s", srtPath)
	}

	fmt.Fprintln(cmd.OutOrStdout(), job.OutputPath)
	return nil
}

// stopWorkersBy waits for the worker pool to exit, but no longer than
// deadline. Jobs run on their own context and may outlive it.
func stopWorkersBy(done <-chan error, deadline <-chan struct{}) {
	select {
	case <-done:
	case <-deadline:
	}
}

// waitForJob polls until the job reaches a terminal status.
func waitForJob(ctx context.Context, st ports.JobStore, id string, every time.Duration) (types.RenderJob, error) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		job, err := st.GetJob(ctx, id, cliOwner)
		if err != nil {
			return types.RenderJob{}, err
		}
		if job.Status.IsTerminal() {
			return job, nil
		}
		select {
		case <-ctx.Done():
			return job, fmt.Errorf("waiting for job %s: %w", id, ctx.Err())
		case <-t.C:
		}
	}
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "http://")
}

func readInput(stdin io.Reader, input string) (string, error) {
	var (
		b   []byte
		err error
	)
	if input == "-" {
		b, err = io.ReadAll(stdin)
	} else {
		b, err = os.ReadFile(input)
	}
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	if strings.TrimSpace(string(b)) == "" {
		return "", errors.New("input is empty")
	}
	return string(b), nil
}
