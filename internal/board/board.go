package board

import (
	"context"
	"sync"
	"time"

	"applicant-tracker/internal/applicants"
	"applicant-tracker/internal/events"
	"applicant-tracker/internal/shared/metrics"
	"applicant-tracker/internal/shared/storage/object"
	"applicant-tracker/internal/shared/telemetry"
)

const defaultSignedURLTTL = time.Hour

// Options wires the collaborators shared by every board.
type Options struct {
	Objects          object.Store
	Events           events.Publisher
	DefaultAvatarURL string
	SignedURLTTL     time.Duration
	Now              func() time.Time
}

// Board is one owner's cached applicant pipeline. Every mutation is applied locally first,
// written remotely, then confirmed by a re-fetch; remote failures restore the affected applicant.
type Board struct {
	ownerID       string
	remote        applicants.Store
	objects       object.Store
	events        events.Publisher
	defaultAvatar string
	signedURLTTL  time.Duration
	now           func() time.Time

	// fetchMu makes FetchAll exclusive with mutations, which hold it shared.
	fetchMu sync.RWMutex
	locks   *keyedMutex

	mu     sync.RWMutex
	items  []applicants.Applicant // newest first
	loaded bool
}

// New builds an empty, unloaded board for ownerID.
func New(ownerID string, remote applicants.Store, opts Options) *Board {
	if opts.Events == nil {
		opts.Events = events.Nop{}
	}
	if opts.SignedURLTTL <= 0 {
		opts.SignedURLTTL = defaultSignedURLTTL
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Board{
		ownerID:       ownerID,
		remote:        remote,
		objects:       opts.Objects,
		events:        opts.Events,
		defaultAvatar: opts.DefaultAvatarURL,
		signedURLTTL:  opts.SignedURLTTL,
		now:           opts.Now,
		locks:         newKeyedMutex(),
	}
}

// OwnerID returns the owner whose applicants the board holds.
func (b *Board) OwnerID() string {
	return b.ownerID
}

// Loaded reports whether a fetch has populated the board.
func (b *Board) Loaded() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.loaded
}

// FetchAll replaces the local collection with the owner's remote applicants.
// On failure the collection is left empty.
func (b *Board) FetchAll(ctx context.Context) error {
	b.fetchMu.Lock()
	defer b.fetchMu.Unlock()
	return b.fetchAllLocked(ctx)
}

// EnsureLoaded fetches only if no fetch has succeeded yet.
func (b *Board) EnsureLoaded(ctx context.Context) error {
	b.fetchMu.Lock()
	defer b.fetchMu.Unlock()
	if b.Loaded() {
		return nil
	}
	return b.fetchAllLocked(ctx)
}

func (b *Board) fetchAllLocked(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveBoardOp("fetch_all", err, time.Since(start)) }()

	list, err := b.remote.ListByOwner(ctx, b.ownerID)
	if err != nil {
		b.mu.Lock()
		b.items = nil
		b.loaded = false
		b.mu.Unlock()
		return b.fail("fetch_all", "", err)
	}
	items := make([]applicants.Applicant, len(list))
	for i := range list {
		items[i] = list[i].Clone()
	}
	b.mu.Lock()
	b.items = items
	b.loaded = true
	b.mu.Unlock()
	return nil
}

// begin enters a mutation on applicantID: shared with other mutations, exclusive with
// FetchAll, serialised with mutations on the same applicant.
func (b *Board) begin(applicantID string) func() {
	b.fetchMu.RLock()
	unlock := b.locks.Lock(applicantID)
	return func() {
		unlock()
		b.fetchMu.RUnlock()
	}
}

// snapshot captures one aggregate and its position for rollback.
type snapshot struct {
	index     int
	applicant applicants.Applicant
}

func (b *Board) snapshot(id string) (snapshot, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	idx := b.indexLocked(id)
	if idx < 0 {
		return snapshot{}, false
	}
	return snapshot{index: idx, applicant: b.items[idx].Clone()}, true
}

// restore puts the snapshotted aggregate back, at its original position if it was removed.
func (b *Board) restore(s snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if idx := b.indexLocked(s.applicant.ID); idx >= 0 {
		b.items[idx] = s.applicant.Clone()
		return
	}
	pos := min(max(s.index, 0), len(b.items))
	b.items = append(b.items, applicants.Applicant{})
	copy(b.items[pos+1:], b.items[pos:])
	b.items[pos] = s.applicant.Clone()
}

// replace swaps in a fresh copy of an existing aggregate.
func (b *Board) replace(a applicants.Applicant) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if idx := b.indexLocked(a.ID); idx >= 0 {
		b.items[idx] = a.Clone()
	}
}

func (b *Board) mutate(id string, fn func(a *applicants.Applicant)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if idx := b.indexLocked(id); idx >= 0 {
		fn(&b.items[idx])
	}
}

func (b *Board) remove(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if idx := b.indexLocked(id); idx >= 0 {
		b.items = append(b.items[:idx], b.items[idx+1:]...)
	}
}

func (b *Board) prepend(a applicants.Applicant) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = append([]applicants.Applicant{a.Clone()}, b.items...)
}

func (b *Board) indexLocked(id string) int {
	for i := range b.items {
		if b.items[i].ID == id {
			return i
		}
	}
	return -1
}

// fail is the single catch point of an operation: it logs once and wraps the cause.
func (b *Board) fail(op, applicantID string, err error) error {
	telemetry.Error("board."+op+".failed", map[string]any{
		"owner_id":     b.ownerID,
		"applicant_id": applicantID,
		"error":        err,
	})
	return &OpError{Op: op, ApplicantID: applicantID, Err: err}
}

// rollback restores s and reports the failure.
func (b *Board) rollback(op string, s snapshot, err error) error {
	b.restore(s)
	metrics.IncBoardRollback(op)
	return b.fail(op, s.applicant.ID, err)
}

func (b *Board) publish(ctx context.Context, evt events.Event) {
	if err := b.events.Publish(ctx, evt); err != nil {
		telemetry.Warn("board.event.publish_failed", map[string]any{
			"owner_id":     b.ownerID,
			"applicant_id": evt.ApplicantID,
			"type":         string(evt.Type),
			"error":        err,
		})
	}
}
