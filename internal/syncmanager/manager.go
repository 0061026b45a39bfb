// Package syncmanager drives queue replay against the server. The manager is
// an explicit service object constructed once at application start and passed
// to its consumers; there is no package-level singleton.
package syncmanager

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/crewbuild/sitesync/internal/connectivity"
	"github.com/crewbuild/sitesync/internal/domain"
	"github.com/crewbuild/sitesync/internal/logger"
	"github.com/crewbuild/sitesync/internal/metrics"
	"github.com/crewbuild/sitesync/internal/syncqueue"
	"github.com/crewbuild/sitesync/internal/tenant"
)

// DefaultReconcileTimeout bounds one reconciliation call. A hung call counts
// as a pass-level failure instead of pinning isSyncing forever.
const DefaultReconcileTimeout = 30 * time.Second

// Reconciler is the single external dependency of the manager: one
// remote-callable reconciliation operation, reachable only over an
// authenticated channel.
type Reconciler interface {
	Reconcile(ctx context.Context, businessID string) (domain.SyncResult, error)
}

// Subscriber receives the full current status snapshot on every update.
type Subscriber func(status domain.SyncStatus)

// Option configures a Manager.
type Option func(*Manager)

// WithReconcileTimeout overrides the per-pass reconciliation timeout.
func WithReconcileTimeout(d time.Duration) Option {
	return func(m *Manager) { m.timeout = d }
}

// Manager observes connectivity transitions, tracks in-flight sync status and
// replays the local queue through the reconciler.
type Manager struct {
	queue      *syncqueue.Queue
	reconciler Reconciler
	monitor    connectivity.Monitor
	tenants    tenant.Resolver
	timeout    time.Duration

	mu          sync.Mutex
	status      domain.SyncStatus
	subscribers map[int]Subscriber
	nextSubID   int

	unsubscribeMonitor func()
}

// New constructs a manager. The initial state is derived from the monitor's
// current signal; the manager immediately subscribes to transitions and an
// online event triggers an automatic pass.
func New(queue *syncqueue.Queue, reconciler Reconciler, monitor connectivity.Monitor, tenants tenant.Resolver, opts ...Option) *Manager {
	m := &Manager{
		queue:       queue,
		reconciler:  reconciler,
		monitor:     monitor,
		tenants:     tenants,
		timeout:     DefaultReconcileTimeout,
		subscribers: make(map[int]Subscriber),
	}
	for _, opt := range opts {
		opt(m)
	}

	online := monitor.Online()
	m.status = domain.SyncStatus{
		State:    stateFor(online, false),
		IsOnline: online,
	}

	m.unsubscribeMonitor = monitor.Subscribe(m.onConnectivityChange)

	// Let enqueues wake the manager instead of waiting for the next
	// connectivity transition.
	queue.SetReplayScheduler(m)

	return m
}

// Close detaches the manager from the connectivity monitor. An in-flight pass
// is not cancelled; it finishes on its own.
func (m *Manager) Close() {
	if m.unsubscribeMonitor != nil {
		m.unsubscribeMonitor()
	}
}

func stateFor(online, syncing bool) domain.SyncState {
	switch {
	case !online:
		return domain.SyncStateOffline
	case syncing:
		return domain.SyncStateSyncing
	default:
		return domain.SyncStateIdle
	}
}

// Status returns the current snapshot.
func (m *Manager) Status() domain.SyncStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Subscribe registers a subscriber and returns its unsubscribe function. The
// subscriber receives the current snapshot immediately, then every update.
func (m *Manager) Subscribe(s Subscriber) func() {
	m.mu.Lock()
	id := m.nextSubID
	m.nextSubID++
	m.subscribers[id] = s
	current := m.status
	m.mu.Unlock()

	s(current)

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subscribers, id)
	}
}

// broadcast delivers the full current snapshot synchronously to every
// subscriber. Callers must not hold m.mu.
func (m *Manager) broadcast() {
	m.mu.Lock()
	current := m.status
	subs := make([]Subscriber, 0, len(m.subscribers))
	for _, s := range m.subscribers {
		subs = append(subs, s)
	}
	m.mu.Unlock()

	for _, s := range subs {
		s(current)
	}
}

func (m *Manager) onConnectivityChange(online bool) {
	m.mu.Lock()
	m.status.IsOnline = online
	m.status.State = stateFor(online, m.status.IsSyncing)
	m.mu.Unlock()
	m.broadcast()

	if online {
		go func() {
			if err := m.SyncWhenOnline(context.Background()); err != nil {
				logger.FromContext(context.Background()).Warn("Automatic sync after online transition failed", "error", err)
			}
		}()
	}
}

// Available implements syncqueue.ReplayScheduler: replay can only be
// scheduled while online.
func (m *Manager) Available() bool {
	return m.monitor.Online()
}

// Schedule implements syncqueue.ReplayScheduler. Best effort: the guard in
// SyncWhenOnline makes a redundant wakeup a no-op.
func (m *Manager) Schedule(string) {
	go func() {
		_ = m.SyncWhenOnline(context.Background())
	}()
}

// SyncWhenOnline runs one reconciliation pass. Calling it while offline or
// while a pass is already in flight is a no-op; only one pass may run at a
// time, which is also the system's only cross-pass ordering guarantee.
func (m *Manager) SyncWhenOnline(ctx context.Context) error {
	m.mu.Lock()
	if !m.status.IsOnline || m.status.IsSyncing {
		m.mu.Unlock()
		return nil
	}
	m.status.IsSyncing = true
	m.status.State = domain.SyncStateSyncing
	m.status.SyncError = ""
	m.mu.Unlock()
	m.broadcast()

	err := m.runPass(ctx)

	m.mu.Lock()
	m.status.IsSyncing = false
	m.status.State = stateFor(m.status.IsOnline, false)
	m.mu.Unlock()
	m.broadcast()

	return err
}

func (m *Manager) runPass(ctx context.Context) error {
	log := logger.FromContext(ctx)
	start := time.Now()

	businessID, err := m.tenants.CurrentBusinessID(ctx)
	if err != nil || businessID == "" {
		// Doing nothing silently would strand the queue; fail the pass
		// explicitly instead.
		m.failPass(domain.ErrMsgNoTenant)
		if err == nil {
			err = domain.ErrNoTenant
		}
		return err
	}

	pending, err := m.queue.ListPending(ctx, businessID)
	if err != nil {
		m.failPass(err.Error())
		return err
	}
	if len(pending) == 0 {
		// Fast-path empty check only; the reconciler re-reads the
		// authoritative set itself.
		m.completePass(0)
		metrics.SyncPassesTotal.WithLabelValues(metrics.ResultEmpty).Inc()
		return nil
	}

	rctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	result, err := m.reconciler.Reconcile(rctx, businessID)
	if err != nil {
		// Pass-level failure: the queue is left completely untouched so
		// nothing is lost; the next online transition retries from scratch.
		m.failPass(err.Error())
		metrics.SyncPassesTotal.WithLabelValues(metrics.ResultError).Inc()
		log.Warn("Reconciliation pass failed", "business_id", businessID, "error", err)
		return err
	}
	if !result.Success {
		m.failPass(result.Error)
		metrics.SyncPassesTotal.WithLabelValues(metrics.ResultError).Inc()
		return errors.New(result.Error)
	}

	for _, id := range result.SyncedItems {
		if err := m.queue.Remove(ctx, id); err != nil {
			log.Warn("Failed to remove synced entry from local queue", "entry_id", id, "error", err)
		}
	}

	dropped := m.handleFailedEntries(ctx, result.RetryCounts)

	count, err := m.queue.Count(ctx, businessID)
	if err != nil {
		log.Warn("Failed to recount queue after pass", "error", err)
	}

	m.mu.Lock()
	m.status.QueueCount = count
	m.status.LastSyncTime = time.Now()
	if result.ErrorCount > 0 {
		// Non-fatal: the pass completed, some entries did not apply.
		m.status.SyncError = fmt.Sprintf("%d items failed to sync", result.ErrorCount)
	}
	m.mu.Unlock()

	metrics.SyncPassesTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	metrics.SyncPassDuration.Observe(time.Since(start).Seconds())
	metrics.SyncQueueDepth.Set(float64(count))

	log.Info("Reconciliation pass completed",
		"business_id", businessID,
		"synced", len(result.SyncedItems),
		"failed", result.ErrorCount,
		"dropped", dropped,
		"remaining", count)
	return nil
}

// handleFailedEntries bumps retry counters for entries the reconciler
// reported as failed and drops any that reached the ceiling. Returns the
// number dropped.
func (m *Manager) handleFailedEntries(ctx context.Context, retryCounts map[string]int) int {
	log := logger.FromContext(ctx)
	dropped := 0
	for id := range retryCounts {
		count, err := m.queue.IncrementRetry(ctx, id)
		if err != nil {
			if !errors.Is(err, domain.ErrEntryNotFound) {
				log.Warn("Failed to record retry", "entry_id", id, "error", err)
			}
			continue
		}
		if count >= domain.MaxRetries {
			if err := m.queue.Remove(ctx, id); err != nil {
				log.Warn("Failed to drop poisoned entry", "entry_id", id, "error", err)
				continue
			}
			dropped++
			metrics.SyncEntriesDropped.Inc()
			log.Warn("Dropped queue entry after retry ceiling", "entry_id", id, "attempts", count)
		}
	}
	return dropped
}

func (m *Manager) completePass(queueCount int) {
	m.mu.Lock()
	m.status.QueueCount = queueCount
	m.status.LastSyncTime = time.Now()
	m.mu.Unlock()
}

func (m *Manager) failPass(msg string) {
	m.mu.Lock()
	m.status.SyncError = msg
	m.mu.Unlock()
}
