package httptts

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_WritesResponseBody(t *testing.T) {
	var gotText, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotText = body["text"]
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte("RIFF-audio"))
	}))
	defer srv.Close()

	out := filepath.Join(t.TempDir(), "audio.wav")
	a := New(Config{URL: srv.URL, APIKey: "k1"})
	require.NoError(t, a.Generate(context.Background(), "hello there", out))

	b, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "RIFF-audio", string(b))
	assert.Equal(t, "hello there", gotText)
	assert.Equal(t, "Token k1", gotAuth)
}

func TestGenerate_StatusErrorLeavesNoFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key k-secret", http.StatusForbidden)
	}))
	defer srv.Close()

	dir := t.TempDir()
	out := filepath.Join(dir, "audio.wav")
	err := New(Config{URL: srv.URL, APIKey: "k-secret", AuthScheme: "Bearer"}).Generate(context.Background(), "hi", out)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "k-secret")

	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries)
}

func TestGenerate_EmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	dir := t.TempDir()
	err := New(Config{URL: srv.URL}).Generate(context.Background(), "hi", filepath.Join(dir, "a.wav"))
	require.Error(t, err)
	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries)
}

func TestCheck(t *testing.T) {
	assert.Error(t, New(Config{}).Check(context.Background()))
	assert.NoError(t, New(Config{URL: "http://tts.local"}).Check(context.Background()))
}
