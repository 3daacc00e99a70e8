package httptts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/renameio/v2"
)

// maxAudioBytes caps a single synthesis response.
const maxAudioBytes = 256 << 20

type Config struct {
	URL        string
	APIKey     string
	AuthScheme string // "Token" (Deepgram style) or "Bearer"
	Timeout    time.Duration
}

// Adapter posts text to a speech API that answers with raw audio bytes.
type Adapter struct {
	cfg    Config
	client *http.Client
}

func New(cfg Config) *Adapter {
	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Token"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	return &Adapter{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}
}

func (a *Adapter) Check(context.Context) error {
	if strings.TrimSpace(a.cfg.URL) == "" {
		return errors.New("httptts: url is not configured")
	}
	return nil
}

func (a *Adapter) Generate(ctx context.Context, text, outPath string) error {
	if strings.TrimSpace(text) == "" {
		return errors.New("httptts: empty text")
	}
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	if a.cfg.APIKey != "" {
		req.Header.Set("Authorization", a.cfg.AuthScheme+" "+a.cfg.APIKey)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("httptts request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		rb, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		msg := strings.TrimSpace(string(rb))
		if a.cfg.APIKey != "" {
			msg = strings.ReplaceAll(msg, a.cfg.APIKey, "[REDACTED]")
		}
		return fmt.Errorf("httptts status %s: %s", resp.Status, msg)
	}

	pending, err := renameio.NewPendingFile(outPath, renameio.WithPermissions(0o644))
	if err != nil {
		return fmt.Errorf("create pending audio: %w", err)
	}
	defer func() { _ = pending.Cleanup() }()

	n, err := io.Copy(pending, io.LimitReader(resp.Body, maxAudioBytes+1))
	if err != nil {
		return fmt.Errorf("read audio: %w", err)
	}
	if n == 0 {
		return errors.New("httptts: empty audio response")
	}
	if n > maxAudioBytes {
		return fmt.Errorf("httptts: audio exceeds %d bytes", maxAudioBytes)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("publish audio: %w", err)
	}
	return nil
}
