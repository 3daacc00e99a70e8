package intake

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forPelevin/threadreel/internal/usecase"
)

type fakeCreator struct {
	mu   sync.Mutex
	got  []usecase.NarrationInput
	fail bool
}

func (f *fakeCreator) CreateFromText(_ context.Context, in usecase.NarrationInput) (usecase.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, in)
	if f.fail {
		return usecase.Result{}, usecase.ErrEmptyNarration
	}
	return usecase.Result{JobID: "job"}, nil
}

func (f *fakeCreator) inputs() []usecase.NarrationInput {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]usecase.NarrationInput(nil), f.got...)
}

func startWatcher(t *testing.T, dir string, c Creator) {
	t.Helper()
	w, err := New(dir, TextHandler(c), zerolog.Nop(), Options{Settle: 20 * time.Millisecond})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
		assert.NoError(t, w.Stop())
	})
}

func TestWatcher_QueuesNewTextFiles(t *testing.T) {
	dir := t.TempDir()
	c := &fakeCreator{}
	startWatcher(t, dir, c)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "why_go-rocks.txt"), []byte("Go is fun."), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cover.png"), []byte("png"), 0o644))

	require.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(dir, processedDir, "why_go-rocks.txt"))
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)

	got := c.inputs()
	require.Len(t, got, 1)
	assert.Equal(t, "why go rocks", got[0].Title)
	assert.Equal(t, "Go is fun.", got[0].Text)
	assert.Equal(t, "file:why_go-rocks.txt", got[0].SourceRef)
	assert.Equal(t, intakeOwner, got[0].OwnerID)
	assert.FileExists(t, filepath.Join(dir, "cover.png"))
}

func TestWatcher_PicksUpExistingFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "backlog.TXT"), []byte("queued before start"), 0o644))
	c := &fakeCreator{}
	startWatcher(t, dir, c)

	require.Eventually(t, func() bool { return len(c.inputs()) == 1 }, 5*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(dir, processedDir, "backlog.TXT"))
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)
}

func TestWatcher_FailedFilesMoveAside(t *testing.T) {
	dir := t.TempDir()
	c := &fakeCreator{fail: true}
	startWatcher(t, dir, c)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty.txt"), []byte("   "), 0o644))

	require.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(dir, failedDir, "empty.txt"))
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)
	assert.NoFileExists(t, filepath.Join(dir, "empty.txt"))
}

func TestTextHandler_ReadError(t *testing.T) {
	err := TextHandler(&fakeCreator{})(context.Background(), filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
