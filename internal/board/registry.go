package board

import (
	"context"
	"sync"

	"applicant-tracker/internal/applicants"
)

// Registry hands out one Board per owner and loads it on first use.
type Registry struct {
	remote applicants.Store
	opts   Options

	mu     sync.Mutex
	boards map[string]*Board
}

// NewRegistry constructs a Registry.
func NewRegistry(remote applicants.Store, opts Options) *Registry {
	return &Registry{
		remote: remote,
		opts:   opts,
		boards: make(map[string]*Board),
	}
}

// For returns the owner's board, fetching it if it has never loaded.
func (r *Registry) For(ctx context.Context, ownerID string) (*Board, error) {
	r.mu.Lock()
	b, ok := r.boards[ownerID]
	if !ok {
		b = New(ownerID, r.remote, r.opts)
		r.boards[ownerID] = b
	}
	r.mu.Unlock()

	if err := b.EnsureLoaded(ctx); err != nil {
		return nil, err
	}
	return b, nil
}
