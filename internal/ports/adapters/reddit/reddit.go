package reddit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/forPelevin/threadreel/internal/types"
)

var ErrInvalidURL = errors.New("invalid thread URL")

const (
	defaultBaseURL   = "https://www.reddit.com"
	defaultUserAgent = "threadreel/1.0"
)

type Config struct {
	BaseURL   string
	UserAgent string
	// RequestsPerMinute bounds calls to the public API; unauthenticated
	// clients are throttled hard above ~10/min.
	RequestsPerMinute int
	Timeout           time.Duration
}

// Adapter fetches a thread and its top-level comments from the public JSON
// listing endpoint.
type Adapter struct {
	baseURL   string
	userAgent string
	limiter   *rate.Limiter
	client    *http.Client
}

func New(cfg Config) *Adapter {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 10
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Adapter{
		baseURL:   base,
		userAgent: ua,
		limiter:   rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1),
		client:    &http.Client{Timeout: timeout},
	}
}

// ParseThreadID extracts the post id from a thread URL such as
// https://www.reddit.com/r/golang/comments/abc123/some_title/.
func ParseThreadID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, "reddit.com") {
		return "", fmt.Errorf("%w: %q is not a reddit.com URL", ErrInvalidURL, raw)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, p := range parts {
		if p == "comments" && i+1 < len(parts) && parts[i+1] != "" {
			return parts[i+1], nil
		}
	}
	return "", fmt.Errorf("%w: no post id in %q", ErrInvalidURL, raw)
}

type listing struct {
	Data struct {
		Children []struct {
			Kind string `json:"kind"`
			Data struct {
				ID       string `json:"id"`
				Title    string `json:"title"`
				Selftext string `json:"selftext"`
				Body     string `json:"body"`
				Stickied bool   `json:"stickied"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

func (a *Adapter) FetchThread(ctx context.Context, ref string, maxComments int) (types.Thread, error) {
	id, err := ParseThreadID(ref)
	if err != nil {
		return types.Thread{}, err
	}
	if err := a.limiter.Wait(ctx); err != nil {
		return types.Thread{}, fmt.Errorf("rate limit wait: %w", err)
	}

	q := url.Values{}
	q.Set("raw_json", "1")
	if maxComments > 0 {
		q.Set("limit", strconv.Itoa(maxComments))
	}
	endpoint := fmt.Sprintf("%s/comments/%s.json?%s", a.baseURL, url.PathEscape(id), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return types.Thread{}, err
	}
	req.Header.Set("User-Agent", a.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return types.Thread{}, fmt.Errorf("fetch thread %s: %w", id, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		rb, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
		return types.Thread{}, fmt.Errorf("fetch thread %s: status %d: %s", id, resp.StatusCode, strings.TrimSpace(string(rb)))
	}

	var listings []listing
	if err := json.NewDecoder(resp.Body).Decode(&listings); err != nil {
		return types.Thread{}, fmt.Errorf("decode thread %s: %w", id, err)
	}
	if len(listings) == 0 || len(listings[0].Data.Children) == 0 {
		return types.Thread{}, fmt.Errorf("thread %s: empty listing", id)
	}

	post := listings[0].Data.Children[0].Data
	th := types.Thread{ID: post.ID, Title: post.Title, Body: post.Selftext}
	if th.ID == "" {
		th.ID = id
	}
	if len(listings) > 1 {
		for _, c := range listings[1].Data.Children {
			// "more" stubs and pinned moderator notes are not discussion.
			if c.Kind != "t1" || c.Data.Stickied {
				continue
			}
			if maxComments > 0 && len(th.Comments) >= maxComments {
				break
			}
			th.Comments = append(th.Comments, types.Comment{Body: c.Data.Body})
		}
	}
	return th, nil
}
