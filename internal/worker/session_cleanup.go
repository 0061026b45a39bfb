package worker

import (
	"context"

	"github.com/crewbuild/sitesync/internal/logger"
	"github.com/crewbuild/sitesync/internal/repository"
)

// SessionCleanupJob purges expired and revoked session tokens so the
// sessions table does not grow without bound.
type SessionCleanupJob struct {
	sessions repository.SessionJanitor
}

// NewSessionCleanupJob creates a session cleanup job
func NewSessionCleanupJob(sessions repository.SessionJanitor) *SessionCleanupJob {
	return &SessionCleanupJob{sessions: sessions}
}

// Process runs one cleanup pass
func (j *SessionCleanupJob) Process(ctx context.Context) error {
	log := logger.FromContext(ctx)

	removed, err := j.sessions.DeleteDeadSessions(ctx)
	if err != nil {
		log.Error(LogMsgSessionCleanupFailed, "error", err)
		return err
	}

	log.Info(LogMsgSessionCleanupCompleted, "removed", removed)
	return nil
}
