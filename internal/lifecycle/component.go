package lifecycle

import (
	"context"
	"database/sql"
	"net"
	"sync"

	"notifyapp/internal/config"
	"notifyapp/internal/database"
	contextutils "notifyapp/internal/utils"
)

// Component is the contract lifecycle-managed collaborators implement.
// Startup settles exactly once per instance and Shutdown is safe to call
// even when Startup never ran or did not succeed.
type Component interface {
	Startup(ctx context.Context) error
	Shutdown(ctx context.Context) error
	IsReady() bool
}

// ListenerHandle is the contract for the listening socket. Bind reports
// synchronous bind failures; errors of an already-serving listener arrive
// on Errors.
type ListenerHandle interface {
	Bind(ctx context.Context) error
	Serve(ctx context.Context)
	Errors() <-chan error
	Addr() net.Addr
	Close(ctx context.Context) error
}

// persistenceComponent adapts database.Manager to the Component contract
type persistenceComponent struct {
	manager *database.Manager
	cfg     config.DatabaseConfig

	mu sync.Mutex
	db *sql.DB
}

func newPersistenceComponent(manager *database.Manager, cfg config.DatabaseConfig) *persistenceComponent {
	return &persistenceComponent{manager: manager, cfg: cfg}
}

func (p *persistenceComponent) Startup(ctx context.Context) error {
	db, err := p.manager.InitDBWithConfig(p.cfg)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.db = db
	p.mu.Unlock()
	return nil
}

func (p *persistenceComponent) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	db := p.db
	p.db = nil
	p.mu.Unlock()

	if db == nil {
		return nil
	}
	if err := db.Close(); err != nil {
		return contextutils.WrapError(err, "failed to close database")
	}
	return nil
}

func (p *persistenceComponent) IsReady() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.db != nil
}
