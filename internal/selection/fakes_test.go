package selection_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vertex-ar/backend/internal/models"
	"github.com/vertex-ar/backend/internal/selection"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time   { return c.now }
func (c fixedClock) Today() time.Time { return selection.DateOf(c.now) }

type fakeStore struct {
	mu         sync.Mutex
	items      map[uuid.UUID]models.ARContent
	videos     map[uuid.UUID]models.Video
	rules      map[uuid.UUID]*models.RotationRule
	schedules  []models.VideoSchedule
	persisted  []int
	persistErr error
	ruleErr    error
	getVideos  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		items:  make(map[uuid.UUID]models.ARContent),
		videos: make(map[uuid.UUID]models.Video),
		rules:  make(map[uuid.UUID]*models.RotationRule),
	}
}

func (f *fakeStore) addItem(activeVideo *uuid.UUID, rotationState int) models.ARContent {
	f.mu.Lock()
	defer f.mu.Unlock()
	item := models.ARContent{ID: uuid.New(), Name: "poster", ActiveVideoID: activeVideo, RotationState: rotationState}
	f.items[item.ID] = item
	return item
}

func (f *fakeStore) setActiveVideo(itemID, videoID uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item := f.items[itemID]
	item.ActiveVideoID = &videoID
	f.items[itemID] = item
}

func (f *fakeStore) addVideo(itemID uuid.UUID, mutate func(*models.Video)) models.Video {
	f.mu.Lock()
	defer f.mu.Unlock()
	v := models.Video{
		ID:             uuid.New(),
		ARContentID:    itemID,
		Title:          "clip",
		IsActive:       true,
		RotationType:   models.VideoRotationNone,
		RotationWeight: 1,
	}
	if mutate != nil {
		mutate(&v)
	}
	f.videos[v.ID] = v
	return v
}

func (f *fakeStore) addSchedule(videoID uuid.UUID, start, end time.Time, status string) models.VideoSchedule {
	f.mu.Lock()
	defer f.mu.Unlock()
	sc := models.VideoSchedule{ID: uuid.New(), VideoID: videoID, StartTime: &start, EndTime: &end, Status: status}
	f.schedules = append(f.schedules, sc)
	return sc
}

func (f *fakeStore) setRule(itemID uuid.UUID, rule models.RotationRule) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rule.ID = uuid.New()
	rule.ARContentID = itemID
	rule.IsActive = true
	f.rules[itemID] = &rule
}

func (f *fakeStore) rotationState(itemID uuid.UUID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items[itemID].RotationState
}

func (f *fakeStore) GetARContent(_ context.Context, id uuid.UUID) (*models.ARContent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &item, nil
}

func (f *fakeStore) GetVideo(_ context.Context, id uuid.UUID) (*models.Video, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getVideos++
	v, ok := f.videos[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &v, nil
}

func (f *fakeStore) ListVideos(_ context.Context, arContentID uuid.UUID) ([]models.Video, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var list []models.Video
	for _, v := range f.videos {
		if v.ARContentID == arContentID {
			list = append(list, v)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].RotationOrder != list[j].RotationOrder {
			return list[i].RotationOrder < list[j].RotationOrder
		}
		return list[i].ID.String() < list[j].ID.String()
	})
	return list, nil
}

func (f *fakeStore) PersistRotationAdvance(_ context.Context, arContentID uuid.UUID, newState int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.persistErr != nil {
		return f.persistErr
	}
	item := f.items[arContentID]
	item.RotationState = newState
	f.items[arContentID] = item
	f.persisted = append(f.persisted, newState)
	return nil
}

func (f *fakeStore) GetActiveRotationRule(_ context.Context, arContentID uuid.UUID) (*models.RotationRule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ruleErr != nil {
		return nil, f.ruleErr
	}
	rule, ok := f.rules[arContentID]
	if !ok {
		return nil, nil
	}
	cp := *rule
	return &cp, nil
}

// GetOpenSchedules only filters on time bounds; status is left for the engine to check.
func (f *fakeStore) GetOpenSchedules(_ context.Context, arContentID uuid.UUID, now time.Time) ([]models.ScheduledVideo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ScheduledVideo
	for _, sc := range f.schedules {
		v, ok := f.videos[sc.VideoID]
		if !ok || v.ARContentID != arContentID {
			continue
		}
		if now.Before(*sc.StartTime) || now.After(*sc.EndTime) {
			continue
		}
		out = append(out, models.ScheduledVideo{Video: v, Schedule: sc})
	}
	return out, nil
}

func (f *fakeStore) GetSchedulesForVideo(_ context.Context, videoID uuid.UUID) ([]models.VideoSchedule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.VideoSchedule
	for _, sc := range f.schedules {
		if sc.VideoID == videoID {
			out = append(out, sc)
		}
	}
	return out, nil
}

type fakeLocker struct {
	mu       sync.Mutex
	locked   map[string]bool
	calls    int
	releases int
	err      error
}

func (l *fakeLocker) Lock(_ context.Context, key string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if l.err != nil {
		return nil, l.err
	}
	if l.locked == nil {
		l.locked = make(map[string]bool)
	}
	if l.locked[key] {
		return nil, errors.New("already locked")
	}
	l.locked[key] = true
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.locked, key)
		l.releases++
	}, nil
}

type recordingMetrics struct {
	sources      []selection.Source
	none         int
	advances     int
	notPersisted int
	lockFailures int
}

func (m *recordingMetrics) ObserveSelection(source selection.Source, _ time.Duration) {
	m.sources = append(m.sources, source)
}
func (m *recordingMetrics) ObserveNoVideo(time.Duration) { m.none++ }
func (m *recordingMetrics) ObserveRotationAdvance(_ models.VideoRotationType, persisted bool) {
	m.advances++
	if !persisted {
		m.notPersisted++
	}
}
func (m *recordingMetrics) ObserveLockFailure() { m.lockFailures++ }
