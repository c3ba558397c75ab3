package ollama

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/menta2k/reframe/pkg/types"
)

// Client wraps the Ollama API client as a face-detection backend.
type Client struct {
	client *api.Client
}

// NewClient creates a new Ollama client from a server URL.
func NewClient(ollamaURL string) (*Client, error) {
	parsedURL, err := url.Parse(ollamaURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %v", err)
	}

	// Keep only scheme and host; the SDK appends its own API paths.
	baseURL := &url.URL{
		Scheme: parsedURL.Scheme,
		Host:   parsedURL.Host,
	}

	return &Client{client: api.NewClient(baseURL, http.DefaultClient)}, nil
}

// SimpleQuery performs a plain text+image query without expecting JSON.
func (c *Client) SimpleQuery(ctx context.Context, model, prompt, imgB64 string) (string, error) {
	return c.chat(ctx, model, prompt, imgB64)
}

// DetectFaces queries the vision model for face boxes and parses the JSON
// response. Malformed model output degrades to an empty face list rather
// than an error, so a flaky model never aborts a frame.
func (c *Client) DetectFaces(ctx context.Context, model, prompt, imgB64 string) (*types.VisionResult, error) {
	content, err := c.chat(ctx, model, prompt, imgB64)
	if err != nil {
		return nil, fmt.Errorf("ollama chat error: %v", err)
	}
	if content == "" {
		return nil, fmt.Errorf("empty response from ollama")
	}
	return parseVisionResult(content), nil
}

func (c *Client) chat(ctx context.Context, model, prompt, imgB64 string) (string, error) {
	// Vision models on CPU can be slow; give them room when the caller
	// didn't set a deadline.
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 300*time.Second)
		defer cancel()
	}

	imgBytes, err := base64.StdEncoding.DecodeString(imgB64)
	if err != nil {
		return "", fmt.Errorf("failed to decode base64 image: %v", err)
	}

	streamFalse := false
	req := &api.ChatRequest{
		Model: model,
		Messages: []api.Message{
			{
				Role:    "user",
				Content: prompt,
				Images:  []api.ImageData{api.ImageData(imgBytes)},
			},
		},
		Stream: &streamFalse,
	}

	var responseContent string
	err = c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		responseContent = resp.Message.Content
		return nil
	})
	if err != nil {
		return "", err
	}
	return responseContent, nil
}

// parseVisionResult parses the JSON face list from the model response,
// tolerating fences, comments, and trailing commas.
func parseVisionResult(raw string) *types.VisionResult {
	raw = sanitizeModelJSON(raw)

	if !strings.HasPrefix(strings.TrimSpace(raw), "{") {
		return &types.VisionResult{Description: "non-json model response"}
	}

	var result types.VisionResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		start := strings.Index(raw, "{")
		end := strings.LastIndex(raw, "}")
		if start >= 0 && end > start {
			if err2 := json.Unmarshal([]byte(raw[start:end+1]), &result); err2 == nil {
				return &result
			}
		}
		return &types.VisionResult{Description: "unparseable model response"}
	}
	return &result
}

// sanitizeModelJSON removes code fences, comments, and trailing commas from
// a JSON response.
func sanitizeModelJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	if strings.HasPrefix(raw, "```") {
		if i := strings.Index(raw, "\n"); i >= 0 {
			raw = raw[i+1:]
		}
		if j := strings.LastIndex(raw, "```"); j >= 0 {
			raw = raw[:j]
		}
	}
	raw = strings.TrimSpace(raw)
	raw = strings.Trim(raw, "`")

	reBlock := regexp.MustCompile(`(?s)/\*.*?\*/`)
	raw = reBlock.ReplaceAllString(raw, "")
	reLine := regexp.MustCompile(`(?m)^\s*//.*$`)
	raw = reLine.ReplaceAllString(raw, "")
	reTrailing := regexp.MustCompile(`,(\s*[}\]])`)
	raw = reTrailing.ReplaceAllString(raw, "$1")

	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			raw = raw[start : end+1]
		}
	}
	return strings.TrimSpace(raw)
}
