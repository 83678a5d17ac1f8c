package billing

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

// Client is a client for the payment provider's subscription API.
type Client struct {
	baseURL    string
	keyID      string
	keySecret  string
	planID     string
	httpClient *http.Client
}

// NewClient creates a new payment provider client.
func NewClient(baseURL, keyID, keySecret, planID string) *Client {
	return &Client{
		baseURL:   baseURL,
		keyID:     keyID,
		keySecret: keySecret,
		planID:    planID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Subscription is the provider's subscription handle.
type Subscription struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// createSubscriptionRequest is the request body for creating a subscription.
type createSubscriptionRequest struct {
	PlanID         string            `json:"plan_id"`
	TotalCount     int               `json:"total_count"`
	CustomerNotify int               `json:"customer_notify"`
	Notes          map[string]string `json:"notes"`
}

// CreateSubscription creates a subscription on the fixed premium plan. The
// user id travels in the subscription notes so the webhook can attribute the
// charge.
func (c *Client) CreateSubscription(ctx context.Context, userID string) (*Subscription, error) {
	body, err := json.Marshal(createSubscriptionRequest{
		PlanID:         c.planID,
		TotalCount:     12,
		CustomerNotify: 1,
		Notes:          map[string]string{"user_id": userID},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/subscriptions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: create subscription: %v", types.ErrUpstreamTimeout, err)
		}
		return nil, fmt.Errorf("%w: create subscription: %v", types.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: create subscription status %d: %s", types.ErrUpstream, resp.StatusCode, string(respBody))
	}

	var sub Subscription
	if err := json.NewDecoder(resp.Body).Decode(&sub); err != nil {
		return nil, fmt.Errorf("%w: decode subscription: %v", types.ErrUpstream, err)
	}
	if sub.ID == "" {
		return nil, fmt.Errorf("%w: provider returned subscription without id", types.ErrUpstream)
	}
	return &sub, nil
}

// KeyID returns the public key id the client needs to launch checkout.
func (c *Client) KeyID() string {
	return c.keyID
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
