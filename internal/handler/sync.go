package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/crewbuild/sitesync/internal/domain"
	"github.com/crewbuild/sitesync/internal/event"
	"github.com/crewbuild/sitesync/internal/logger"
	"github.com/crewbuild/sitesync/internal/metrics"
	"github.com/crewbuild/sitesync/internal/reconciler"
	"github.com/crewbuild/sitesync/internal/repository"
	"github.com/crewbuild/sitesync/internal/tenant"
)

// QueueEntryPayload is the wire form of a single queued mutation. Seq is the
// client store's insertion sequence; it keeps same-millisecond entries in
// enqueue order through the server-side pass.
type QueueEntryPayload struct {
	ID         string                 `json:"id" validate:"required,max=200"`
	Table      string                 `json:"table" validate:"required,max=100"`
	Operation  string                 `json:"operation" validate:"required,operation"`
	Data       map[string]interface{} `json:"data" validate:"required"`
	UserID     string                 `json:"user_id" validate:"max=100"`
	Timestamp  int64                  `json:"timestamp" validate:"required,gt=0"`
	Seq        int64                  `json:"seq" validate:"gte=0"`
	RetryCount int                    `json:"retry_count" validate:"gte=0"`
}

// UploadQueueRequest represents a client uploading its pending queue
type UploadQueueRequest struct {
	Entries []QueueEntryPayload `json:"entries" validate:"required,min=1,dive"`
}

// UploadQueueResponse reports how many entries the server accepted
type UploadQueueResponse struct {
	Message  string `json:"message"`
	Accepted int    `json:"accepted"`
}

// ReconcileRequest represents a client asking for a reconciliation pass.
// The business id is advisory: the session token decides the tenant.
type ReconcileRequest struct {
	BusinessID string `json:"business_id" validate:"max=100"`
}

// SyncHandler handles sync-related HTTP requests
type SyncHandler struct {
	reconcileSvc reconciler.Service
	queue        repository.SyncQueueStore
	bus          event.Bus
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(reconcileSvc reconciler.Service, queue repository.SyncQueueStore, bus event.Bus) *SyncHandler {
	return &SyncHandler{
		reconcileSvc: reconcileSvc,
		queue:        queue,
		bus:          bus,
	}
}

// UploadQueue handles the queue upload endpoint. Entries are stored
// idempotently by id, so a client that re-uploads after a dropped response
// does not duplicate work.
func (h *SyncHandler) UploadQueue(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	businessID, ok := tenant.BusinessIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, ErrMsgAuthRequiredError)
		return
	}

	var req UploadQueueRequest
	if err := DecodeAndValidateRequest(r, w, &req, "Upload queue"); err != nil {
		return
	}

	entries := make([]domain.QueueEntry, 0, len(req.Entries))
	for _, p := range req.Entries {
		entries = append(entries, domain.QueueEntry{
			ID:         p.ID,
			Table:      p.Table,
			Operation:  domain.Operation(strings.ToLower(p.Operation)),
			Data:       p.Data,
			BusinessID: businessID, // session tenant wins over anything client-claimed
			UserID:     p.UserID,
			Timestamp:  p.Timestamp,
			Seq:        p.Seq,
			RetryCount: p.RetryCount,
		})
	}

	if err := h.queue.UpsertEntries(r.Context(), entries); err != nil {
		respondServiceError(w, r, "Upload queue", err)
		return
	}

	metrics.SyncQueueUploads.Add(float64(len(entries)))
	if h.bus != nil {
		if err := h.bus.Publish(r.Context(), event.NewSyncQueueUploadedEvent(businessID, len(entries))); err != nil {
			log.Warn("Failed to publish queue uploaded event", "error", err)
		}
	}

	log.Info("Queue entries uploaded", "business_id", businessID, "entries", len(entries))

	respondJSON(w, http.StatusOK, UploadQueueResponse{
		Message:  MsgQueueUploadedSuccess,
		Accepted: len(entries),
	})
}

// Reconcile handles the reconciliation endpoint. The pass itself decides
// per-entry success; a pass-level failure is reported in the result body,
// not the HTTP status, so clients always get retry counts back.
func (h *SyncHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	businessID, ok := tenant.BusinessIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, ErrMsgAuthRequiredError)
		return
	}

	var req ReconcileRequest
	if err := DecodeAndValidateRequest(r, w, &req, "Reconcile"); err != nil {
		return
	}

	// The body's business id is only a cross-check. When present it must
	// match the session; the session value is what the pass runs as.
	if req.BusinessID != "" && req.BusinessID != businessID {
		log.Warn("Reconcile rejected: body business id does not match session",
			"session_business_id", businessID,
			"requested_business_id", req.BusinessID)
		respondError(w, http.StatusForbidden, ErrMsgTenantMismatchError)
		return
	}

	result, err := h.reconcileSvc.Reconcile(r.Context(), businessID)
	if err != nil {
		// A concurrent pass is a protocol-level conflict, not a result the
		// client should retry entries from.
		if errors.Is(err, domain.ErrSyncInFlight) || (!result.Success && result.Error == "") {
			respondServiceError(w, r, "Reconcile", err)
			return
		}
	}

	log.Info("Reconciliation pass finished",
		"business_id", businessID,
		"success", result.Success,
		"synced", len(result.SyncedItems),
		"errors", result.ErrorCount)

	respondJSON(w, http.StatusOK, result)
}
