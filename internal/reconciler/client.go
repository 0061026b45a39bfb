package reconciler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/crewbuild/sitesync/internal/domain"
	"github.com/crewbuild/sitesync/internal/syncqueue"
)

const (
	uploadQueuePath = "/api/v1/sync/queue"
	reconcilePath   = "/api/v1/sync/reconcile"

	// HeaderAPIKey authenticates the agent to the service.
	HeaderAPIKey = "X-API-Key"

	// HeaderSessionToken identifies the session the server derives the
	// tenant from.
	HeaderSessionToken = "X-Session-Token"
)

// Client is the remote implementation of the reconciler used by field
// agents. Before requesting a pass it uploads the local pending entries
// (idempotent by entry id), so the server always reconciles from its own
// durable queue rather than a client snapshot.
type Client struct {
	baseURL      string
	apiKey       string
	sessionToken string
	queue        *syncqueue.Queue
	httpc        *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) { cl.httpc = c }
}

// NewClient creates a reconciler client. The queue is read for the upload
// step; removal of synced entries stays with the sync manager.
func NewClient(baseURL, apiKey, sessionToken string, queue *syncqueue.Queue, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:      baseURL,
		apiKey:       apiKey,
		sessionToken: sessionToken,
		queue:        queue,
		httpc:        &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type uploadQueueRequest struct {
	Entries []domain.QueueEntry `json:"entries"`
}

type reconcileRequest struct {
	BusinessID string `json:"business_id"`
}

// Reconcile implements syncmanager.Reconciler.
func (c *Client) Reconcile(ctx context.Context, businessID string) (domain.SyncResult, error) {
	pending, err := c.queue.ListPending(ctx, businessID)
	if err != nil {
		return domain.SyncResult{}, err
	}

	if len(pending) > 0 {
		if err := c.post(ctx, uploadQueuePath, uploadQueueRequest{Entries: pending}, nil); err != nil {
			return domain.SyncResult{}, fmt.Errorf("upload queue: %w", err)
		}
	}

	var result domain.SyncResult
	if err := c.post(ctx, reconcilePath, reconcileRequest{BusinessID: businessID}, &result); err != nil {
		return domain.SyncResult{}, fmt.Errorf("reconcile: %w", err)
	}
	return result, nil
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderAPIKey, c.apiKey)
	req.Header.Set(HeaderSessionToken, c.sessionToken)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s returned %d: %s", path, resp.StatusCode, bytes.TrimSpace(msg))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
