package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/naveenspark/pushenable/pkg/domain"
)

// Client talks to the backend that sends push messages to subscribed clients.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New creates a new API client.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type vapidKeyResponse struct {
	PublicKey string `json:"public_key"`
}

// GetVAPIDKey returns the application server public key, URL-safe Base64.
func (c *Client) GetVAPIDKey(ctx context.Context) (string, error) {
	var resp vapidKeyResponse
	if err := c.get(ctx, "/api/push/vapid-public-key", &resp); err != nil {
		return "", fmt.Errorf("client.GetVAPIDKey: %w", err)
	}
	if resp.PublicKey == "" {
		return "", fmt.Errorf("client.GetVAPIDKey: empty public key")
	}
	return resp.PublicKey, nil
}

// SubmitSubscription registers a push subscription with the backend.
func (c *Client) SubmitSubscription(ctx context.Context, sub domain.PushSubscription) error {
	if err := c.post(ctx, "/api/push/subscriptions", sub, nil); err != nil {
		return fmt.Errorf("client.SubmitSubscription: %w", err)
	}
	return nil
}

// DeleteSubscription removes the subscription for endpoint.
func (c *Client) DeleteSubscription(ctx context.Context, endpoint string) error {
	params := url.Values{}
	params.Set("endpoint", endpoint)
	if err := c.doRequest(ctx, http.MethodDelete, "/api/push/subscriptions?"+params.Encode(), nil, nil); err != nil {
		return fmt.Errorf("client.DeleteSubscription: %w", err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	return c.doRequest(ctx, http.MethodPost, path, body, out)
}

func (c *Client) doRequest(ctx context.Context, method, path string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	if resp.StatusCode >= 400 {
		respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB max error body
		if readErr != nil {
			return &HTTPError{Method: method, StatusCode: resp.StatusCode, Message: fmt.Sprintf("failed to read body: %v", readErr)}
		}
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != "" {
			return &HTTPError{Method: method, StatusCode: resp.StatusCode, Message: apiErr.Error}
		}
		return &HTTPError{Method: method, StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.doRequest(ctx, http.MethodGet, path, nil, out)
}
