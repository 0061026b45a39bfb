//go:build staging

package staging

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"
)

// TestQueueUpload uploads a single queue entry against the staging server.
// The entry is idempotent by id, so reruns do not accumulate work.
func TestQueueUpload(t *testing.T) {
	ts := time.Now().UnixMilli()
	entryID := fmt.Sprintf("staging_projects_insert_%d", ts)

	request := map[string]interface{}{
		"entries": []map[string]interface{}{
			{
				"id":        entryID,
				"table":     "projects",
				"operation": "insert",
				"data": map[string]interface{}{
					"id":   fmt.Sprintf("staging_record_%d", ts),
					"name": "Staging smoke project",
				},
				"timestamp": ts,
			},
		},
	}

	resp, body := makeRequest(t, "POST", "/api/v1/sync/queue", request)

	// 401 means the staging session token is not provisioned; skip rather
	// than fail the whole suite on environment setup.
	if resp.StatusCode == http.StatusUnauthorized {
		t.Skipf("Session token not provisioned: %s", string(body))
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Unexpected status: %d. Body: %s", resp.StatusCode, string(body))
	}

	var uploaded struct {
		Accepted int `json:"accepted"`
	}
	if err := json.Unmarshal(body, &uploaded); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if uploaded.Accepted != 1 {
		t.Errorf("Expected 1 accepted entry, got %d", uploaded.Accepted)
	}
}

// TestReconcile runs a pass and checks the result shape. 409 is acceptable:
// another client may be mid-pass on the shared staging tenant.
func TestReconcile(t *testing.T) {
	resp, body := makeRequest(t, "POST", "/api/v1/sync/reconcile", map[string]interface{}{})

	if resp.StatusCode == http.StatusUnauthorized {
		t.Skipf("Session token not provisioned: %s", string(body))
	}
	if resp.StatusCode == http.StatusConflict {
		t.Skip("Another reconciliation pass is in flight")
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Unexpected status: %d. Body: %s", resp.StatusCode, string(body))
	}

	var result struct {
		Success     bool     `json:"success"`
		SyncedItems []string `json:"synced_items"`
		Error       string   `json:"error"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("Failed to decode result: %v", err)
	}
	if !result.Success && result.Error == "" {
		t.Error("Failed pass must carry an error message")
	}
}

// TestReconcileTenantMismatch asserts the advisory business id is enforced.
func TestReconcileTenantMismatch(t *testing.T) {
	request := map[string]interface{}{
		"business_id": "not-the-session-tenant",
	}

	resp, body := makeRequest(t, "POST", "/api/v1/sync/reconcile", request)

	if resp.StatusCode == http.StatusUnauthorized {
		t.Skipf("Session token not provisioned: %s", string(body))
	}
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d. Body: %s", resp.StatusCode, string(body))
	}
}
