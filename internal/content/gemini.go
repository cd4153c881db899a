package content

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"KinneretSentinel/internal/model"
	"KinneretSentinel/internal/netutil"
)

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"
	maxOutputTokens      = 1024
)

// GeminiStrategy generates text through the Gemini generateContent REST endpoint.
type GeminiStrategy struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	Timeout     time.Duration
	Client      *http.Client
}

// NewGeminiStrategy creates a Gemini-backed strategy with optional proxy support.
func NewGeminiStrategy(apiKey, modelName string, temperature float64, timeout time.Duration, proxyURL string) *GeminiStrategy {
	return &GeminiStrategy{
		APIKey:      apiKey,
		Model:       modelName,
		BaseURL:     defaultGeminiBaseURL,
		Temperature: temperature,
		Timeout:     timeout,
		Client:      netutil.NewClient(proxyURL, timeout+5*time.Second),
	}
}

func (g *GeminiStrategy) Name() string { return "gemini" }

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig struct {
		Temperature     float64 `json:"temperature"`
		MaxOutputTokens int     `json:"maxOutputTokens"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// Generate builds the prompt, calls the model and returns cleaned text of at most maxLength characters.
func (g *GeminiStrategy) Generate(ctx context.Context, rec model.Record, snap *model.TrendSnapshot, maxLength int) (string, error) {
	if g.APIKey == "" {
		return "", errors.New("gemini: api key not configured")
	}
	if snap == nil {
		return "", errors.New("gemini: trend snapshot required")
	}
	if g.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.Timeout)
		defer cancel()
	}

	var body geminiRequest
	body.Contents = []geminiContent{{Role: "user", Parts: []geminiPart{{Text: BuildPrompt(rec, snap, maxLength)}}}}
	body.GenerationConfig.Temperature = g.Temperature
	body.GenerationConfig.MaxOutputTokens = maxOutputTokens

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("gemini: marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent",
		strings.TrimRight(g.BaseURL, "/"), url.PathEscape(g.Model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("gemini: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.APIKey)

	resp, err := g.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini: request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("gemini: read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gemini: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	var gr geminiResponse
	if err := json.Unmarshal(respBody, &gr); err != nil {
		return "", fmt.Errorf("gemini: decode: %w", err)
	}
	if gr.PromptFeedback != nil && gr.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("gemini: prompt blocked: %s", gr.PromptFeedback.BlockReason)
	}
	if len(gr.Candidates) == 0 {
		return "", errors.New("gemini: no candidates returned")
	}

	var b strings.Builder
	for _, p := range gr.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	text := CleanText(b.String(), maxLength)
	if text == "" {
		return "", fmt.Errorf("gemini: empty text (finish reason %q)", gr.Candidates[0].FinishReason)
	}
	return text, nil
}
