package imagesearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/personahub/persona-backend/internal/types"
)

// Client is a client for the image search provider.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new image search client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// imageResult is a single result from the image search API.
type imageResult struct {
	Original string `json:"original"`
}

// searchResponse is the response from GET /search.json.
type searchResponse struct {
	ImagesResults []imageResult `json:"images_results"`
}

// FindPortrait searches for a representative portrait image of the named
// person and returns its URL.
func (c *Client) FindPortrait(ctx context.Context, name string) (string, error) {
	q := url.Values{}
	q.Set("q", name+" portrait")
	q.Set("tbm", "isch")
	q.Set("api_key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/search.json?%s", c.baseURL, q.Encode()), nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return "", fmt.Errorf("%w: image search: %v", types.ErrUpstreamTimeout, err)
		}
		return "", fmt.Errorf("%w: image search: %v", types.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: image search status %d: %s", types.ErrUpstream, resp.StatusCode, string(body))
	}

	var apiResp searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", fmt.Errorf("%w: decode image search response: %v", types.ErrUpstream, err)
	}

	if len(apiResp.ImagesResults) == 0 || apiResp.ImagesResults[0].Original == "" {
		return "", fmt.Errorf("%w: no suitable image found for %q", types.ErrUpstream, name)
	}
	return apiResp.ImagesResults[0].Original, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
