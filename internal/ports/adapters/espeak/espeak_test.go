package espeak

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExec struct {
	args     []string
	textSeen string
	err      error
}

func (f *fakeExec) Execute(_ context.Context, _ string, args ...string) (string, error) {
	f.args = args
	for i, a := range args {
		if a == "-f" && i+1 < len(args) {
			b, _ := os.ReadFile(args[i+1])
			f.textSeen = string(b)
		}
	}
	return "", f.err
}

func (f *fakeExec) ExecuteInDir(ctx context.Context, _ string, name string, args ...string) (string, error) {
	return f.Execute(ctx, name, args...)
}

func TestGenerate_PassesTextThroughFile(t *testing.T) {
	fx := &fakeExec{}
	out := filepath.Join(t.TempDir(), "audio.wav")

	require.NoError(t, New(fx, "", "", 0).Generate(context.Background(), "-not a flag", out))

	assert.Equal(t, []string{"-v", "en-us", "-s", "150", "-w", out, "-f", out + ".txt"}, fx.args)
	assert.Equal(t, "-not a flag", fx.textSeen)
	_, err := os.Stat(out + ".txt")
	assert.True(t, os.IsNotExist(err), "text file should be removed")
}

func TestGenerate_Errors(t *testing.T) {
	out := filepath.Join(t.TempDir(), "audio.wav")
	assert.Error(t, New(&fakeExec{}, "", "", 0).Generate(context.Background(), "  ", out))

	fx := &fakeExec{err: errors.New("exit status 1")}
	err := New(fx, "", "", 0).Generate(context.Background(), "hello", out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "espeak generate")
}

func TestCheck(t *testing.T) {
	require.NoError(t, New(&fakeExec{}, "", "", 0).Check(context.Background()))
	assert.Error(t, New(&fakeExec{err: errors.New("not found")}, "", "", 0).Check(context.Background()))
}
