package board

import (
	"fmt"
	"sort"
	"strings"

	"applicant-tracker/internal/applicants"
)

// AllStages is the filter value matching every stage.
const AllStages = "All"

// Filter narrows List. Stage is AllStages, empty, or a pipeline stage; Query matches
// name or role case-insensitively.
type Filter struct {
	Stage string
	Query string
}

// StageCount is one column header of the pipeline.
type StageCount struct {
	Stage string `json:"stage"`
	Count int    `json:"count"`
}

// FeedNote is a note with the applicant it belongs to.
type FeedNote struct {
	ApplicantID   string          `json:"applicant_id"`
	ApplicantName string          `json:"applicant_name"`
	Note          applicants.Note `json:"note"`
}

// Applicants returns a copy of the whole collection, newest first.
func (b *Board) Applicants() []applicants.Applicant {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]applicants.Applicant, len(b.items))
	for i := range b.items {
		out[i] = b.items[i].Clone()
	}
	return out
}

// List returns the applicants matching f, newest first.
func (b *Board) List(f Filter) ([]applicants.Applicant, error) {
	var stage applicants.Stage
	if s := strings.TrimSpace(f.Stage); s != "" && !strings.EqualFold(s, AllStages) {
		parsed, err := applicants.ParseStage(s)
		if err != nil {
			return nil, fmt.Errorf("filter stage %q: %w", s, ErrInvalidStage)
		}
		stage = parsed
	}
	query := strings.ToLower(strings.TrimSpace(f.Query))

	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.loaded {
		return nil, ErrNotLoaded
	}
	out := []applicants.Applicant{}
	for _, a := range b.items {
		if stage != "" && a.Stage != stage {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(a.Name), query) &&
			!strings.Contains(strings.ToLower(a.Role), query) {
			continue
		}
		out = append(out, a.Clone())
	}
	return out, nil
}

// Get returns one applicant.
func (b *Board) Get(id string) (applicants.Applicant, error) {
	snap, ok := b.snapshot(id)
	if !ok {
		return applicants.Applicant{}, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	return snap.applicant, nil
}

// StageCounts returns the total followed by one count per stage in pipeline order.
func (b *Board) StageCounts() []StageCount {
	b.mu.RLock()
	defer b.mu.RUnlock()
	per := make(map[applicants.Stage]int, len(applicants.Stages))
	for _, a := range b.items {
		per[a.Stage]++
	}
	out := make([]StageCount, 0, len(applicants.Stages)+1)
	out = append(out, StageCount{Stage: AllStages, Count: len(b.items)})
	for _, s := range applicants.Stages {
		out = append(out, StageCount{Stage: string(s), Count: per[s]})
	}
	return out
}

// RecentNotes returns up to n notes across all applicants, newest first.
func (b *Board) RecentNotes(n int) []FeedNote {
	if n <= 0 {
		return []FeedNote{}
	}
	b.mu.RLock()
	feed := []FeedNote{}
	for _, a := range b.items {
		for _, note := range a.Notes {
			feed = append(feed, FeedNote{ApplicantID: a.ID, ApplicantName: a.Name, Note: note})
		}
	}
	b.mu.RUnlock()

	sort.SliceStable(feed, func(i, j int) bool {
		return feed[i].Note.CreatedAt.After(feed[j].Note.CreatedAt)
	})
	if len(feed) > n {
		feed = feed[:n]
	}
	return feed
}
