package extraction_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/benefit-engine/extraction"
)

func newTestExtractor(serverURL string) *extraction.ClaudeExtractor {
	return extraction.NewClaudeExtractor(extraction.Config{
		APIKey:      "test-api-key",
		Model:       "claude-sonnet-4-20250514",
		Endpoint:    serverURL,
		TimeoutSecs: 30,
	})
}

func replyWith(t *testing.T, text string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]any{{"type": "text", "text": text}},
		})
	}))
}

var png = extraction.Image{Bytes: []byte("\x89PNG fake"), ContentType: "image/png"}

func TestClaudeExtractor_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Verify request headers
		assert.Equal(t, "test-api-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var reqBody map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&reqBody))
		assert.Equal(t, "claude-sonnet-4-20250514", reqBody["model"])

		msg := reqBody["messages"].([]any)[0].(map[string]any)
		content := msg["content"].([]any)
		assert.Len(t, content, 2)
		image := content[0].(map[string]any)
		assert.Equal(t, "image", image["type"])
		source := image["source"].(map[string]any)
		assert.Equal(t, "image/png", source["media_type"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]any{{
				"type": "text",
				"text": "```json\n[{\"date\": \"01.01.2022\", \"salary\": 500000, \"percentage\": 80}]\n```",
			}},
		})
	}))
	defer server.Close()

	rows, err := newTestExtractor(server.URL).Extract(context.Background(), png)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "01.01.2022", rows[0].Date)
	assert.Equal(t, 500000.0, rows[0].Salary)
	assert.Equal(t, 80.0, rows[0].Percentage)
}

func TestClaudeExtractor_UnreadableTextIsEmpty(t *testing.T) {
	// GIVEN: The model answers with prose or broken JSON
	// WHEN: Extracting
	// THEN: No rows and no error
	for _, text := range []string{"", "I cannot read this image.", "[{\"date\": "} {
		server := replyWith(t, text)
		rows, err := newTestExtractor(server.URL).Extract(context.Background(), png)
		server.Close()

		require.NoError(t, err, "text %q", text)
		assert.NotNil(t, rows)
		assert.Empty(t, rows)
	}
}

func TestClaudeExtractor_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"type": "rate_limit_error"}}`))
	}))
	defer server.Close()

	_, err := newTestExtractor(server.URL).Extract(context.Background(), png)

	var rle *extraction.RateLimitError
	require.True(t, errors.As(err, &rle))
	assert.Equal(t, "claude", rle.Provider)
	assert.Equal(t, 30*time.Second, rle.RetryAfter)
}

func TestClaudeExtractor_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestExtractor(server.URL).Extract(context.Background(), png)

	require.Error(t, err)
	var rle *extraction.RateLimitError
	assert.False(t, errors.As(err, &rle))
	assert.Contains(t, err.Error(), "status 500")
}

func TestClaudeExtractor_UnsupportedContentType(t *testing.T) {
	e := newTestExtractor("http://127.0.0.1:0")
	_, err := e.Extract(context.Background(), extraction.Image{Bytes: []byte("%PDF"), ContentType: "application/pdf"})
	assert.True(t, errors.Is(err, extraction.ErrUnsupportedContentType))
}

func TestNewRateLimitError_DefaultRetry(t *testing.T) {
	err := extraction.NewRateLimitError("claude", errors.New("429"), 0)
	assert.Equal(t, 60*time.Second, err.RetryAfter)
}
