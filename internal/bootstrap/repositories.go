package bootstrap

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crewbuild/sitesync/internal/database/postgres"
	"github.com/crewbuild/sitesync/internal/repository"
)

// Repositories holds all repository implementations used by the application.
// This provides a centralized location for repository initialization and
// makes dependency injection clearer.
type Repositories struct {
	Records        repository.RecordStore
	Queue          repository.SyncQueueStore
	Sessions       repository.SessionStore
	SessionJanitor repository.SessionJanitor
}

// InitializeRepositories creates all repository implementations backed by the
// shared database pool.
func InitializeRepositories(dbPool *pgxpool.Pool) *Repositories {
	return &Repositories{
		Records:        postgres.NewRecordStore(dbPool),
		Queue:          postgres.NewSyncQueueStore(dbPool),
		Sessions:       postgres.NewSessionStore(dbPool),
		SessionJanitor: postgres.NewSessionJanitor(dbPool),
	}
}
