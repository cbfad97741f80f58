// Package gemini implements llm.Client using the Google Generative
// Language API (generateContent).
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Realist2022/Interview-AI-Testimator-backend/llm"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Client implements llm.Client against the Gemini REST API.
type Client struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// New creates a Gemini client. Model defaults to "gemini-2.0-flash-lite"
// if empty; timeout defaults to 60 seconds if zero.
func New(apiKey, model string, timeout time.Duration) *Client {
	if model == "" {
		model = "gemini-2.0-flash-lite"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// WithBaseURL overrides the API endpoint. Used in tests.
func (c *Client) WithBaseURL(base string) *Client {
	c.baseURL = strings.TrimRight(base, "/")
	return c
}

// StartConversation returns a Conversation seeded with prior turns.
func (c *Client) StartConversation(prior []llm.Turn) llm.Conversation {
	contents := make([]content, 0, len(prior)+1)
	for _, t := range prior {
		contents = append(contents, content{
			Role:  string(t.Role),
			Parts: []part{{Text: t.Text}},
		})
	}
	return &conversation{client: c, contents: contents}
}

type conversation struct {
	client   *Client
	contents []content
}

func (cv *conversation) SendMessage(ctx context.Context, instruction string, maxOutputTokens int) (string, error) {
	payload := request{
		Contents: append(cv.contents, content{
			Role:  string(llm.RoleUser),
			Parts: []part{{Text: instruction}},
		}),
	}
	if maxOutputTokens > 0 {
		payload.GenerationConfig = &generationConfig{MaxOutputTokens: maxOutputTokens}
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		cv.client.baseURL, cv.client.model, url.QueryEscape(cv.client.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(raw))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := cv.client.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gemini API error (%d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out response
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("parsing gemini response: %w", err)
	}
	if len(out.Candidates) == 0 {
		return "", fmt.Errorf("gemini API: empty candidates")
	}

	textParts := make([]string, 0, len(out.Candidates[0].Content.Parts))
	for _, p := range out.Candidates[0].Content.Parts {
		if strings.TrimSpace(p.Text) != "" {
			textParts = append(textParts, p.Text)
		}
	}
	reply := strings.TrimSpace(strings.Join(textParts, "\n"))
	if reply == "" {
		return "", fmt.Errorf("gemini API: no text content in response")
	}
	return reply, nil
}

// --- Wire types ---

type request struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type generationConfig struct {
	MaxOutputTokens int `json:"maxOutputTokens,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text,omitempty"`
}

type response struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}
