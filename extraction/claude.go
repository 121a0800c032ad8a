package extraction

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/warp/benefit-engine/salary"
)

const (
	apiURL       = "https://api.anthropic.com/v1/messages"
	apiVersion   = "2023-06-01"
	defaultModel = "claude-sonnet-4-20250514"
	maxTokens    = 4096
)

const prompt = `The image shows a Norwegian salary register.
Return every row as a JSON array and nothing else:
[{"date": "DD.MM.YYYY", "salary": <annual salary as a number>, "percentage": <position percentage, 0-100>}]
Use the "Gjelder fra dato" column for date. Return [] if no rows are readable.`

// Config configures the Claude extractor.
type Config struct {
	APIKey      string `yaml:"api_key"`
	Model       string `yaml:"model"`
	Endpoint    string `yaml:"endpoint"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// Enabled reports whether an API key is configured.
func (c Config) Enabled() bool { return c.APIKey != "" }

// ClaudeExtractor implements Extractor using the Anthropic Messages API.
type ClaudeExtractor struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// NewClaudeExtractor fills in the default model, endpoint and a 120s timeout.
func NewClaudeExtractor(cfg Config) *ClaudeExtractor {
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = apiURL
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &ClaudeExtractor{
		apiKey:   cfg.APIKey,
		model:    model,
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

func (c *ClaudeExtractor) Extract(ctx context.Context, img Image) ([]salary.ExtractedRow, error) {
	if !supportedContentTypes[img.ContentType] {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedContentType, img.ContentType)
	}

	reqBody := map[string]any{
		"model":      c.model,
		"max_tokens": maxTokens,
		"messages": []map[string]any{
			{
				"role": "user",
				"content": []map[string]any{
					{
						"type": "image",
						"source": map[string]any{
							"type":       "base64",
							"media_type": img.ContentType,
							"data":       base64.StdEncoding.EncodeToString(img.Bytes),
						},
					},
					{"type": "text", "text": prompt},
				},
			},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling anthropic API: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		baseErr := fmt.Errorf("anthropic API error (status %d): %s", resp.StatusCode, truncate(string(respBody), 500))
		if resp.StatusCode == http.StatusTooManyRequests {
			return nil, NewRateLimitError("claude", baseErr, parseRetryAfter(resp.Header.Get("Retry-After")))
		}
		return nil, baseErr
	}

	return parseResponse(respBody)
}

// apiResponse models the Anthropic Messages API response.
type apiResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func parseResponse(body []byte) ([]salary.ExtractedRow, error) {
	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshaling response: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return decodeRows(text.String()), nil
}

// decodeRows takes the outermost JSON array in the model text. Anything it
// cannot read yields no rows.
func decodeRows(text string) []salary.ExtractedRow {
	rows := []salary.ExtractedRow{}
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end < start {
		return rows
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &rows); err != nil {
		return []salary.ExtractedRow{}
	}
	return rows
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
