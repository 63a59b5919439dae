package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/psicodata/scoring-engine/internal/runner"
)

// Client talks to the remote scoring service. It implements the
// runner's RemoteScorer contract; callers treat every error the same
// way, so no error here carries retry semantics.
type Client struct {
	base string
	http *http.Client
}

type Config struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

func New(cfg Config) *Client {
	var h *http.Client
	if cfg.TokenURL != "" {
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
		}
		h = cc.Client(context.Background())
	} else {
		h = &http.Client{}
	}
	if cfg.Timeout > 0 {
		h.Timeout = cfg.Timeout
	}
	return &Client{base: strings.TrimRight(cfg.BaseURL, "/"), http: h}
}

// SubmitRun registers the attempt remotely and returns its scores.
func (c *Client) SubmitRun(ctx context.Context, p runner.RunPayload) (runner.RemoteRun, error) {
	return c.post(ctx, c.base+"/v1/runs", p)
}

// GetRun fetches scores for an already registered attempt without
// creating anything server-side. The query endpoint takes the same
// payload as submission.
func (c *Client) GetRun(ctx context.Context, p runner.RunPayload) (runner.RemoteRun, error) {
	return c.post(ctx, c.base+"/v1/runs/query", p)
}

func (c *Client) post(ctx context.Context, url string, p runner.RunPayload) (runner.RemoteRun, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return runner.RemoteRun{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return runner.RemoteRun{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return runner.RemoteRun{}, err
	}
	defer res.Body.Close()
	if res.StatusCode/100 != 2 {
		return runner.RemoteRun{}, fmt.Errorf("remote scorer: %s", res.Status)
	}
	data, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return runner.RemoteRun{}, err
	}
	return runner.ParseRemoteRun(data)
}
