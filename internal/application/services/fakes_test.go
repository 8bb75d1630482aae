package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/MaclennanMah/MediQ/internal/domain/entities"
	"github.com/MaclennanMah/MediQ/internal/domain/repositories"
	apperrors "github.com/MaclennanMah/MediQ/pkg/errors"
)

// memoryFacilities is an in-memory FacilityRepository
type memoryFacilities struct {
	mu          sync.Mutex
	facilities  map[string]entities.Facility
	order       []string
	estimateSet int
	setErr      error
}

func newMemoryFacilities(seed ...*entities.Facility) *memoryFacilities {
	repo := &memoryFacilities{facilities: map[string]entities.Facility{}}
	for _, f := range seed {
		_ = repo.Create(context.Background(), f)
	}
	return repo
}

func (r *memoryFacilities) Create(_ context.Context, f *entities.Facility) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.facilities[f.ID]; exists {
		return apperrors.NewDependencyError("duplicate facility", errors.New("unique violation"))
	}
	r.facilities[f.ID] = *f
	r.order = append(r.order, f.ID)
	return nil
}

func (r *memoryFacilities) GetByID(_ context.Context, id string) (*entities.Facility, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.facilities[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("facility with id %s not found", id))
	}
	return &f, nil
}

func (r *memoryFacilities) Update(_ context.Context, f *entities.Facility) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.facilities[f.ID]
	if !ok {
		return apperrors.NewNotFoundError("facility not found")
	}
	updated := *f
	updated.EstimatedWaitMinutes = stored.EstimatedWaitMinutes
	updated.EstimateUpdatedAt = stored.EstimateUpdatedAt
	r.facilities[f.ID] = updated
	return nil
}

func (r *memoryFacilities) List(_ context.Context, filter repositories.FacilityFilter) ([]*entities.Facility, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entities.Facility, 0)
	for i, id := range r.order {
		if i < filter.Offset {
			continue
		}
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
		f := r.facilities[id]
		out = append(out, &f)
	}
	return out, nil
}

func (r *memoryFacilities) FindNear(_ context.Context, _ entities.Location, _ int) ([]*entities.Facility, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entities.Facility, 0)
	for _, id := range r.order {
		f := r.facilities[id]
		if f.Location != nil {
			out = append(out, &f)
		}
	}
	return out, nil
}

func (r *memoryFacilities) SetCachedEstimate(_ context.Context, id string, value *int, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.setErr != nil {
		return r.setErr
	}
	f, ok := r.facilities[id]
	if !ok {
		return apperrors.NewNotFoundError("facility not found")
	}
	f.EstimatedWaitMinutes = value
	f.EstimateUpdatedAt = &at
	r.facilities[id] = f
	r.estimateSet++
	return nil
}

func (r *memoryFacilities) estimate(id string) *int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.facilities[id].EstimatedWaitMinutes
}

// memorySubmissions is an in-memory SubmissionRepository ordered like the
// real stores: reported_at descending, then id descending.
type memorySubmissions struct {
	mu   sync.Mutex
	subs []*entities.Submission
}

func (r *memorySubmissions) Create(_ context.Context, s *entities.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *s
	r.subs = append(r.subs, &copied)
	return nil
}

func (r *memorySubmissions) sorted(match func(*entities.Submission) bool) []*entities.Submission {
	out := make([]*entities.Submission, 0)
	for _, s := range r.subs {
		if match(s) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ReportedAt.Equal(out[j].ReportedAt) {
			return out[i].ReportedAt.After(out[j].ReportedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (r *memorySubmissions) Recent(_ context.Context, facilityID string, kind *entities.ReporterKind, limit int) ([]*entities.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.sorted(func(s *entities.Submission) bool {
		return s.FacilityID == facilityID && (kind == nil || s.ReporterKind == *kind)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memorySubmissions) Latest(ctx context.Context, facilityID string, kind entities.ReporterKind) (*entities.Submission, error) {
	recent, _ := r.Recent(ctx, facilityID, &kind, 1)
	if len(recent) == 0 {
		return nil, repositories.ErrNoSubmission
	}
	return recent[0], nil
}

func (r *memorySubmissions) List(_ context.Context, filter repositories.SubmissionFilter) ([]*entities.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.sorted(func(s *entities.Submission) bool {
		return filter.ReporterKind == nil || s.ReporterKind == *filter.ReporterKind
	})
	if filter.Offset >= len(out) {
		return []*entities.Submission{}, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *memorySubmissions) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

// recordingBus captures published events
type recordingBus struct {
	mu         sync.Mutex
	published  map[string][]*entities.FacilityEvent
	publishErr error
}

func newRecordingBus() *recordingBus {
	return &recordingBus{published: map[string][]*entities.FacilityEvent{}}
}

func (b *recordingBus) Publish(_ context.Context, channel string, event *entities.FacilityEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.publishErr != nil {
		return b.publishErr
	}
	b.published[channel] = append(b.published[channel], event)
	return nil
}

func (b *recordingBus) Subscribe(context.Context, string) (<-chan *entities.FacilityEvent, error) {
	return nil, errors.New("not supported")
}

func (b *recordingBus) Unsubscribe(context.Context, string) error { return nil }
func (b *recordingBus) Close() error { return nil }

func (b *recordingBus) events(channel string) []*entities.FacilityEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.published[channel]
}

// tickingClock returns strictly increasing times one second apart
func tickingClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	current := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		current = current.Add(time.Second)
		return current
	}
}
