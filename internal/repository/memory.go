package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/yourusername/f1-winner/internal/models"
)

// MemoryStore is an in-process implementation of every repository, used by
// tests and dry runs. It honours the same upsert and swap semantics as Postgres.
type MemoryStore struct {
	mu           sync.RWMutex
	runLock      sync.Mutex
	now          func() time.Time
	events       map[models.EventKey]models.Event
	participants map[string]models.Participant
	results      map[models.SessionResultKey]models.SessionResult
	features     []models.FeatureRow
	training     []models.TrainingRow
	metadata     map[string]models.ModelMetadata
	predictions  map[int][]models.WinPrediction
	forecasts    map[int][]models.ChampionshipForecast
	runs         []models.PipelineRun
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:          time.Now,
		events:       make(map[models.EventKey]models.Event),
		participants: make(map[string]models.Participant),
		results:      make(map[models.SessionResultKey]models.SessionResult),
		metadata:     make(map[string]models.ModelMetadata),
		predictions:  make(map[int][]models.WinPrediction),
		forecasts:    make(map[int][]models.ChampionshipForecast),
	}
}

// NewMemoryRepositories wires every repository to one in-memory store
func NewMemoryRepositories(store *MemoryStore) *Repositories {
	return &Repositories{
		Event:         &memoryEvents{store},
		Participant:   &memoryParticipants{store},
		SessionResult: &memorySessionResults{store},
		Feature:       &memoryFeatures{store},
		Training:      &memoryTraining{store},
		ModelMetadata: &memoryMetadata{store},
		Prediction:    &memoryPredictions{store},
		Forecast:      &memoryForecasts{store},
		Run:           &memoryRuns{store},
		Locker:        &memoryLocker{store},
	}
}

type memoryEvents struct{ s *MemoryStore }

func (m *memoryEvents) Upsert(_ context.Context, e *models.Event) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	now := m.s.now()
	stored := *e
	if prev, ok := m.s.events[e.Key()]; ok {
		stored.CreatedAt = prev.CreatedAt
		stored.UpdatedAt = prev.UpdatedAt
		if prev.Name != e.Name || prev.Circuit != e.Circuit || prev.Country != e.Country ||
			!prev.ScheduledDate.Equal(e.ScheduledDate) || !sameIntPtr(prev.Laps, e.Laps) {
			stored.UpdatedAt = now
		}
	} else {
		stored.CreatedAt = now
		stored.UpdatedAt = now
	}
	m.s.events[e.Key()] = stored
	return nil
}

func (m *memoryEvents) Get(_ context.Context, key models.EventKey) (*models.Event, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	e, ok := m.s.events[key]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &e, nil
}

func (m *memoryEvents) GetBySeason(_ context.Context, season int) ([]*models.Event, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	var out []*models.Event
	for k, e := range m.s.events {
		if k.Season == season {
			e := e
			out = append(out, &e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Round < out[j].Round })
	return out, nil
}

type memoryParticipants struct{ s *MemoryStore }

func (m *memoryParticipants) Upsert(_ context.Context, p *models.Participant) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	prev, ok := m.s.participants[p.DriverID]
	if ok && (p.DisplayName == "" || prev.DisplayName == p.DisplayName) {
		return nil
	}
	stored := *p
	stored.UpdatedAt = m.s.now()
	m.s.participants[p.DriverID] = stored
	return nil
}

func (m *memoryParticipants) List(_ context.Context) ([]*models.Participant, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	out := make([]*models.Participant, 0, len(m.s.participants))
	for _, p := range m.s.participants {
		p := p
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DriverID < out[j].DriverID })
	return out, nil
}

type memorySessionResults struct{ s *MemoryStore }

func (m *memorySessionResults) Upsert(_ context.Context, r *models.SessionResult) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return m.upsertLocked(r), nil
}

func (m *memorySessionResults) upsertLocked(r *models.SessionResult) bool {
	if prev, ok := m.s.results[r.Key()]; ok && prev.SameContent(r) {
		return false
	}
	m.s.results[r.Key()] = *r
	return true
}

func (m *memorySessionResults) UpsertBatch(_ context.Context, results []*models.SessionResult) (int, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	changed := 0
	for _, r := range results {
		if m.upsertLocked(r) {
			changed++
		}
	}
	return changed, nil
}

func (m *memorySessionResults) list(keep func(*models.SessionResult) bool) []*models.SessionResult {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	var out []*models.SessionResult
	for _, r := range m.s.results {
		r := r
		if keep(&r) {
			out = append(out, &r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.EventKey() != b.EventKey() {
			return a.EventKey().Before(b.EventKey())
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.DriverID < b.DriverID
	})
	return out
}

func (m *memorySessionResults) ListByKinds(_ context.Context, kinds ...models.SessionKind) ([]*models.SessionResult, error) {
	want := make(map[models.SessionKind]bool, len(kinds))
	for _, k := range kinds {
		want[k] = true
	}
	return m.list(func(r *models.SessionResult) bool { return want[r.Kind] }), nil
}

func (m *memorySessionResults) ListBySeason(_ context.Context, season int, kind models.SessionKind) ([]*models.SessionResult, error) {
	return m.list(func(r *models.SessionResult) bool { return r.Season == season && r.Kind == kind }), nil
}

func (m *memorySessionResults) Count(_ context.Context) (int, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	return len(m.s.results), nil
}

// Snapshot returns a copy of every stored session result keyed by natural key
func (s *MemoryStore) Snapshot() map[models.SessionResultKey]models.SessionResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[models.SessionResultKey]models.SessionResult, len(s.results))
	for k, v := range s.results {
		out[k] = v
	}
	return out
}

type featureKey struct {
	models.EventKey
	DriverID string
}

type memoryFeatures struct{ s *MemoryStore }

// ReplaceAll validates the new rows before swapping them in, so a rejected
// rebuild leaves the previous rows in place.
func (m *memoryFeatures) ReplaceAll(_ context.Context, rows []*models.FeatureRow) error {
	next := make([]models.FeatureRow, 0, len(rows))
	seen := make(map[featureKey]bool, len(rows))
	for _, r := range rows {
		k := featureKey{r.EventKey(), r.DriverID}
		if seen[k] {
			return fmt.Errorf("feature row %s/%s: %w", k.EventKey, k.DriverID, models.ErrDuplicateKey)
		}
		seen[k] = true
		next = append(next, *r)
	}

	m.s.mu.Lock()
	m.s.features = next
	m.s.mu.Unlock()
	return nil
}

func (m *memoryFeatures) List(_ context.Context) ([]*models.FeatureRow, error) {
	return m.filter(func(*models.FeatureRow) bool { return true }), nil
}

func (m *memoryFeatures) ListByEvent(_ context.Context, key models.EventKey) ([]*models.FeatureRow, error) {
	return m.filter(func(f *models.FeatureRow) bool { return f.EventKey() == key }), nil
}

func (m *memoryFeatures) filter(keep func(*models.FeatureRow) bool) []*models.FeatureRow {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	var out []*models.FeatureRow
	for i := range m.s.features {
		f := m.s.features[i]
		if keep(&f) {
			out = append(out, &f)
		}
	}
	sortFeatureRows(out)
	return out
}

func sortFeatureRows(rows []*models.FeatureRow) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].EventKey() != rows[j].EventKey() {
			return rows[i].EventKey().Before(rows[j].EventKey())
		}
		return rows[i].DriverID < rows[j].DriverID
	})
}

type memoryTraining struct{ s *MemoryStore }

func (m *memoryTraining) ReplaceAll(_ context.Context, rows []*models.TrainingRow) error {
	next := make([]models.TrainingRow, 0, len(rows))
	seen := make(map[featureKey]bool, len(rows))
	for _, r := range rows {
		k := featureKey{r.EventKey(), r.DriverID}
		if seen[k] {
			return fmt.Errorf("training row %s/%s: %w", k.EventKey, k.DriverID, models.ErrDuplicateKey)
		}
		seen[k] = true
		next = append(next, *r)
	}

	m.s.mu.Lock()
	m.s.training = next
	m.s.mu.Unlock()
	return nil
}

func (m *memoryTraining) List(_ context.Context) ([]*models.TrainingRow, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	out := make([]*models.TrainingRow, 0, len(m.s.training))
	for i := range m.s.training {
		t := m.s.training[i]
		out = append(out, &t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EventKey() != out[j].EventKey() {
			return out[i].EventKey().Before(out[j].EventKey())
		}
		return out[i].DriverID < out[j].DriverID
	})
	return out, nil
}

func (m *memoryTraining) Count(_ context.Context) (int, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	return len(m.s.training), nil
}

type memoryMetadata struct{ s *MemoryStore }

func (m *memoryMetadata) Upsert(_ context.Context, meta *models.ModelMetadata) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	stored := *meta
	stored.MissingMetrics = append([]string(nil), meta.MissingMetrics...)
	stored.UpdatedAt = m.s.now()
	m.s.metadata[meta.Name] = stored
	return nil
}

func (m *memoryMetadata) Get(_ context.Context, name string) (*models.ModelMetadata, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	meta, ok := m.s.metadata[name]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &meta, nil
}

type memoryPredictions struct{ s *MemoryStore }

func (m *memoryPredictions) ReplaceForSeason(_ context.Context, season int, predictions []*models.WinPrediction) error {
	next := make([]models.WinPrediction, len(predictions))
	for i, p := range predictions {
		next[i] = *p
	}

	m.s.mu.Lock()
	m.s.predictions[season] = next
	m.s.mu.Unlock()
	return nil
}

func (m *memoryPredictions) ListBySeason(_ context.Context, season int) ([]*models.WinPrediction, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	stored := m.s.predictions[season]
	out := make([]*models.WinPrediction, len(stored))
	for i := range stored {
		p := stored[i]
		out[i] = &p
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Round != out[j].Round {
			return out[i].Round < out[j].Round
		}
		if out[i].WinProbability != out[j].WinProbability {
			return out[i].WinProbability > out[j].WinProbability
		}
		return out[i].DriverID < out[j].DriverID
	})
	return out, nil
}

type memoryForecasts struct{ s *MemoryStore }

func (m *memoryForecasts) ReplaceForSeason(_ context.Context, season int, rows []*models.ChampionshipForecast) error {
	next := make([]models.ChampionshipForecast, len(rows))
	for i, f := range rows {
		next[i] = *f
	}

	m.s.mu.Lock()
	m.s.forecasts[season] = next
	m.s.mu.Unlock()
	return nil
}

func (m *memoryForecasts) ListBySeason(_ context.Context, season int) ([]*models.ChampionshipForecast, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	stored := m.s.forecasts[season]
	out := make([]*models.ChampionshipForecast, len(stored))
	for i := range stored {
		f := stored[i]
		out[i] = &f
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ChampionshipProbability != out[j].ChampionshipProbability {
			return out[i].ChampionshipProbability > out[j].ChampionshipProbability
		}
		if out[i].ProjectedTotal != out[j].ProjectedTotal {
			return out[i].ProjectedTotal > out[j].ProjectedTotal
		}
		return out[i].DriverID < out[j].DriverID
	})
	return out, nil
}

type memoryRuns struct{ s *MemoryStore }

func (m *memoryRuns) Record(_ context.Context, run *models.PipelineRun) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	for i := range m.s.runs {
		if m.s.runs[i].RunID == run.RunID {
			m.s.runs[i] = *run
			return nil
		}
	}
	m.s.runs = append(m.s.runs, *run)
	return nil
}

func (m *memoryRuns) Latest(_ context.Context, limit int) ([]*models.PipelineRun, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	out := make([]*models.PipelineRun, 0, len(m.s.runs))
	for i := range m.s.runs {
		r := m.s.runs[i]
		out = append(out, &r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memoryLocker struct{ s *MemoryStore }

func (m *memoryLocker) WithRunLock(ctx context.Context, fn func(context.Context) error) error {
	if !m.s.runLock.TryLock() {
		return models.ErrRunInProgress
	}
	defer m.s.runLock.Unlock()
	return fn(ctx)
}

func sameIntPtr(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
