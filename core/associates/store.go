package associates

import "context"

// Store persists associates. Implementations return ErrNotFound and
// ErrDuplicate for the matching conditions and wrap every other failure.
type Store interface {
	Save(ctx context.Context, a Associate) error
	Update(ctx context.Context, a Associate) error
	Delete(ctx context.Context, dni string) error
	FindByDNI(ctx context.Context, dni string) (Associate, error)
	// List returns every associate ordered by last name, then first name.
	List(ctx context.Context) ([]Associate, error)
	// Reset drops and recreates the storage with the Seed rows.
	Reset(ctx context.Context) error
	Close() error
}
