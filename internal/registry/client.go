package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"transcode-pipeline/internal/config"
	"transcode-pipeline/pkg/models"
)

// Client talks to the task registry: the system of record for queued
// tasks and finished videos.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a robust HTTP client with retries
func NewClient(cfg *config.Config) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 5 * time.Second
	retryClient.Logger = nil // Silence default debug logger

	return &Client{
		baseURL:    cfg.RegistryURL,
		httpClient: retryClient.StandardClient(),
	}
}

// doRequest is the core HTTP request handler with error interception
func (c *Client) doRequest(ctx context.Context, method, path string, payload interface{}, response interface{}) error {
	fullURL := fmt.Sprintf("%s%s", c.baseURL, path)

	var body io.Reader
	if payload != nil {
		jsonBytes, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		body = bytes.NewBuffer(jsonBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("registry returned error status: %d", resp.StatusCode)
	}

	// Decode response if expected
	if response != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(response); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// FetchPending returns at most limit pending tasks, in registry order.
// The registry decides ordering; we only bound the page size to what
// the scheduler is willing to admit.
func (c *Client) FetchPending(ctx context.Context, limit int) ([]models.Task, error) {
	path := fmt.Sprintf("/pendingList?limit=%d", limit)

	var tasks []models.Task
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &tasks); err != nil {
		return nil, fmt.Errorf("fetch pending tasks: %w", err)
	}
	return tasks, nil
}

// UpdateTask reports a task lifecycle transition with timestamps.
func (c *Client) UpdateTask(ctx context.Context, id string, payload models.TaskUpdatePayload) error {
	path := fmt.Sprintf("/update/%s", url.PathEscape(id))
	return c.doRequest(ctx, http.MethodPut, path, payload, nil)
}

// CreateVideo records the finished video and its manifest location.
func (c *Client) CreateVideo(ctx context.Context, payload models.VideoCreatePayload) error {
	return c.doRequest(ctx, http.MethodPost, "/videos/create", payload, nil)
}

// PatchStatus reports a bare status change, typically an error before
// any encoding started.
func (c *Client) PatchStatus(ctx context.Context, id string, payload models.StatusPatchPayload) error {
	path := fmt.Sprintf("/updateStatus/%s", url.PathEscape(id))
	return c.doRequest(ctx, http.MethodPatch, path, payload, nil)
}
