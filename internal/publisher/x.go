package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/dghubble/oauth1"

	"KinneretSentinel/internal/netutil"
)

const defaultXEndpoint = "https://api.twitter.com/2/tweets"

// XCredentials are the OAuth 1.0a user-context keys of the posting account.
type XCredentials struct {
	AppKey       string
	AppSecret    string
	AccessToken  string
	AccessSecret string
}

// XPublisher posts through the X API v2 create-post endpoint.
type XPublisher struct {
	Endpoint string
	Client   *http.Client
	Logger   *slog.Logger
}

// NewXPublisher creates a publisher whose client signs every request with OAuth 1.0a.
func NewXPublisher(creds XCredentials, timeout time.Duration, proxyURL string, logger *slog.Logger) *XPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	config := oauth1.NewConfig(creds.AppKey, creds.AppSecret)
	token := oauth1.NewToken(creds.AccessToken, creds.AccessSecret)

	base := netutil.NewClient(proxyURL, timeout)
	ctx := context.WithValue(context.Background(), oauth1.HTTPClient, base)
	client := config.Client(ctx, token)
	client.Timeout = timeout

	return &XPublisher{Endpoint: defaultXEndpoint, Client: client, Logger: logger}
}

func (p *XPublisher) Name() string { return "x" }

// Publish creates a post. Any non-2xx response is an error.
// A 2xx response means the post exists, so an unreadable body yields an empty id rather than an error.
func (p *XPublisher) Publish(ctx context.Context, text string) (string, error) {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return "", fmt.Errorf("marshal post: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create post request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("post to x: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("x API error: status %d, body: %s", resp.StatusCode, string(respBody))
	}
	if err != nil {
		p.Logger.Warn("x accepted the post but the response body could not be read", "status", resp.StatusCode, "error", err)
		return "", nil
	}

	var created struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(respBody, &created); err != nil || created.Data.ID == "" {
		p.Logger.Warn("x accepted the post but returned no post id", "status", resp.StatusCode, "body", string(respBody), "error", err)
		return "", nil
	}
	return created.Data.ID, nil
}
