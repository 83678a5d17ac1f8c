package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/personahub/persona-backend/internal/types"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultTimeout = 30 * time.Second
)

// Client is a Gemini generateContent API client.
type Client struct {
	apiKey     string
	model      string
	httpClient *http.Client
	baseURL    string
}

// Part is a single content part.
type Part struct {
	Text string `json:"text"`
}

// Content represents one conversation entry.
type Content struct {
	Role  string `json:"role,omitempty"` // "user" or "model"
	Parts []Part `json:"parts"`
}

// GenerationConfig tunes the generation request.
type GenerationConfig struct {
	ResponseMimeType string `json:"responseMimeType,omitempty"`
}

// Request is the request body for the generateContent API.
type Request struct {
	Contents          []Content         `json:"contents"`
	SystemInstruction *Content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *GenerationConfig `json:"generationConfig,omitempty"`
}

// Candidate is a single generated candidate.
type Candidate struct {
	Content      Content `json:"content"`
	FinishReason string  `json:"finishReason,omitempty"`
}

// Response is the response from the generateContent API.
type Response struct {
	Candidates []Candidate `json:"candidates"`
}

// APIError represents an error returned by the Gemini API.
type APIError struct {
	Code    int    `json:"code"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gemini: %s: %s", e.Status, e.Message)
}

// NewClient creates a new Gemini client.
func NewClient(apiKey, model string) *Client {
	return &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

// GenerateContent sends a generation request and returns the raw response.
func (c *Client) GenerateContent(ctx context.Context, req *Request) (*Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %v", types.ErrUpstreamTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", types.ErrUpstream, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", types.ErrUpstream, err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error APIError `json:"error"`
		}
		if err := json.Unmarshal(respBody, &apiErr); err != nil {
			return nil, fmt.Errorf("%w: status %d: %s", types.ErrUpstream, resp.StatusCode, string(respBody))
		}
		return nil, fmt.Errorf("%w: %v", types.ErrUpstream, &apiErr.Error)
	}

	var result Response
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("%w: unmarshal response: %v", types.ErrUpstream, err)
	}

	return &result, nil
}

// Complete generates a single text reply for a chat turn. History must hold
// only persisted turns; the caller never includes the synthetic client-side
// greeting.
func (c *Client) Complete(ctx context.Context, systemPrompt string, history []types.Message, userText string) (string, error) {
	contents := make([]Content, 0, len(history)+1)
	for _, msg := range history {
		contents = append(contents, Content{
			Role:  string(msg.Role),
			Parts: []Part{{Text: msg.Text}},
		})
	}
	contents = append(contents, Content{
		Role:  string(types.RoleUser),
		Parts: []Part{{Text: userText}},
	})

	req := &Request{Contents: contents}
	if systemPrompt != "" {
		req.SystemInstruction = &Content{Parts: []Part{{Text: systemPrompt}}}
	}

	resp, err := c.GenerateContent(ctx, req)
	if err != nil {
		return "", err
	}

	text := firstText(resp)
	if text == "" {
		return "", fmt.Errorf("%w: empty completion", types.ErrUpstream)
	}
	return text, nil
}

// GenerateJSON asks the model for a JSON document matching out's shape and
// unmarshals it. Used by the AI-assisted persona lookup.
func (c *Client) GenerateJSON(ctx context.Context, prompt string, out any) error {
	req := &Request{
		Contents:         []Content{{Role: string(types.RoleUser), Parts: []Part{{Text: prompt}}}},
		GenerationConfig: &GenerationConfig{ResponseMimeType: "application/json"},
	}

	resp, err := c.GenerateContent(ctx, req)
	if err != nil {
		return err
	}

	text := firstText(resp)
	if text == "" {
		return fmt.Errorf("%w: empty structured response", types.ErrUpstream)
	}
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return fmt.Errorf("%w: malformed structured response: %v", types.ErrUpstream, err)
	}
	return nil
}

func firstText(resp *Response) string {
	for _, cand := range resp.Candidates {
		for _, part := range cand.Content.Parts {
			if part.Text != "" {
				return part.Text
			}
		}
	}
	return ""
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
