package espeak

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/forPelevin/threadreel/pkg/executor"
)

// Adapter drives the local espeak-ng binary. It writes WAV output.
type Adapter struct {
	exec  executor.Executor
	bin   string
	voice string
	wpm   int
}

func New(exec executor.Executor, bin, voice string, wpm int) *Adapter {
	if exec == nil {
		exec = executor.New()
	}
	if bin == "" {
		bin = "espeak-ng"
	}
	if voice == "" {
		voice = "en-us"
	}
	if wpm <= 0 {
		wpm = 150
	}
	return &Adapter{exec: exec, bin: bin, voice: voice, wpm: wpm}
}

func (a *Adapter) Check(ctx context.Context) error {
	if _, err := a.exec.Execute(ctx, a.bin, "--version"); err != nil {
		return fmt.Errorf("espeak unavailable: %w", err)
	}
	return nil
}

func (a *Adapter) Generate(ctx context.Context, text, outPath string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("espeak: empty text")
	}
	// Text goes through a file so leading dashes are never read as flags.
	textPath := outPath + ".txt"
	if err := os.WriteFile(textPath, []byte(text), 0o644); err != nil {
		return fmt.Errorf("espeak: write text: %w", err)
	}
	defer os.Remove(textPath)

	if _, err := a.exec.Execute(ctx, a.bin,
		"-v", a.voice,
		"-s", strconv.Itoa(a.wpm),
		"-w", outPath,
		"-f", textPath,
	); err != nil {
		return fmt.Errorf("espeak generate: %w", err)
	}
	return nil
}
