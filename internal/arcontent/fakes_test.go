package arcontent

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

var testNow = time.Date(2025, 12, 25, 12, 0, 0, 0, time.UTC)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time   { return c.now }
func (c fixedClock) Today() time.Time { return selection.DateOf(c.now) }

type fakeSelector struct {
	sel       *selection.Selection
	err       error
	selected  int
	previewed []*time.Time
	open      []models.VideoSchedule
	openErr   error
	openAt    []time.Time
}

func (f *fakeSelector) SelectActiveVideo(_ context.Context, _ uuid.UUID, _ *time.Time) (*selection.Selection, error) {
	f.selected++
	return f.sel, f.err
}

func (f *fakeSelector) PreviewActiveVideo(_ context.Context, _ uuid.UUID, date *time.Time) (*selection.Selection, error) {
	f.previewed = append(f.previewed, date)
	return f.sel, f.err
}

func (f *fakeSelector) OpenSchedulesForVideo(_ context.Context, _ uuid.UUID, now time.Time) ([]models.VideoSchedule, error) {
	f.openAt = append(f.openAt, now)
	return f.open, f.openErr
}

// memStore is an in-memory ContentStore and RuleStore.
type memStore struct {
	mu        sync.Mutex
	items     map[uuid.UUID]*models.ARContent
	videos    map[uuid.UUID]*models.Video
	rules     []*models.RotationRule
	schedules []models.VideoSchedule
	ruleReads int
	failWith  error
}

func newMemStore() *memStore {
	return &memStore{items: map[uuid.UUID]*models.ARContent{}, videos: map[uuid.UUID]*models.Video{}}
}

func (m *memStore) addItem() *models.ARContent {
	a := &models.ARContent{ID: uuid.New(), Name: "poster"}
	m.items[a.ID] = a
	return a
}

func (m *memStore) addVideo(itemID uuid.UUID, order int) *models.Video {
	v := &models.Video{ID: uuid.New(), ARContentID: itemID, Title: "clip", FileURL: "https://cdn.example.com/clip.mp4",
		IsActive: true, RotationType: models.VideoRotationNone, RotationOrder: order, RotationWeight: 1}
	m.videos[v.ID] = v
	return v
}

func (m *memStore) GetARContent(_ context.Context, id uuid.UUID) (*models.ARContent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	a, ok := m.items[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memStore) GetVideo(_ context.Context, id uuid.UUID) (*models.Video, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.videos[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (m *memStore) ListVideos(_ context.Context, arContentID uuid.UUID) ([]models.Video, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Video
	for _, v := range m.videos {
		if v.ARContentID == arContentID {
			out = append(out, *v)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RotationOrder != out[j].RotationOrder {
			return out[i].RotationOrder < out[j].RotationOrder
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (m *memStore) SetActiveVideo(_ context.Context, arContentID uuid.UUID, videoID *uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.items[arContentID]
	if !ok {
		return models.ErrNotFound
	}
	if videoID != nil {
		v, ok := m.videos[*videoID]
		if !ok {
			return models.ErrNotFound
		}
		if v.ARContentID != arContentID {
			return ErrVideoNotOwned
		}
	}
	a.ActiveVideoID = videoID
	a.RotationState = 0
	return nil
}

func (m *memStore) UpdateVideoRotation(_ context.Context, videoID uuid.UUID, upd VideoRotationUpdate) (*models.Video, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.videos[videoID]
	if !ok {
		return nil, models.ErrNotFound
	}
	if upd.RotationType != nil && *upd.RotationType != v.RotationType {
		v.RotationType = *upd.RotationType
		m.items[v.ARContentID].RotationState = 0
	}
	if upd.RotationOrder != nil {
		v.RotationOrder = *upd.RotationOrder
	}
	if upd.RotationWeight != nil {
		v.RotationWeight = *upd.RotationWeight
	}
	cp := *v
	return &cp, nil
}

func (m *memStore) ToggleVideoActive(_ context.Context, videoID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.videos[videoID]
	if !ok {
		return false, models.ErrNotFound
	}
	v.IsActive = !v.IsActive
	return v.IsActive, nil
}

func (m *memStore) DeleteVideo(_ context.Context, videoID uuid.UUID) (*models.Video, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.videos[videoID]
	if !ok {
		return nil, models.ErrNotFound
	}
	delete(m.videos, videoID)
	if a := m.items[v.ARContentID]; a != nil && a.ActiveVideoID != nil && *a.ActiveVideoID == videoID {
		a.ActiveVideoID = nil
		a.RotationState = 0
	}
	return v, nil
}

func (m *memStore) GetActiveRotationRule(_ context.Context, arContentID uuid.UUID) (*models.RotationRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ruleReads++
	if m.failWith != nil {
		return nil, m.failWith
	}
	for i := len(m.rules) - 1; i >= 0; i-- {
		if r := m.rules[i]; r.ARContentID == arContentID && r.IsActive {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) GetOpenSchedules(_ context.Context, arContentID uuid.UUID, now time.Time) ([]models.ScheduledVideo, error) {
	return nil, errors.New("not used")
}

func (m *memStore) GetSchedulesForVideo(_ context.Context, videoID uuid.UUID) ([]models.VideoSchedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.VideoSchedule
	for _, s := range m.schedules {
		if s.VideoID == videoID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memStore) ReplaceActiveRule(_ context.Context, rule *models.RotationRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rules {
		if r.ARContentID == rule.ARContentID {
			r.IsActive = false
		}
	}
	rule.ID = uuid.New()
	rule.IsActive = true
	rule.CreatedAt = testNow
	cp := *rule
	m.rules = append(m.rules, &cp)
	return nil
}

func (m *memStore) DeactivateRules(_ context.Context, arContentID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, r := range m.rules {
		if r.ARContentID == arContentID && r.IsActive {
			r.IsActive = false
			n++
		}
	}
	return n, nil
}

func (m *memStore) CreateSchedule(_ context.Context, s *models.VideoSchedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = uuid.New()
	s.CreatedAt = testNow
	m.schedules = append(m.schedules, *s)
	return nil
}

type fakeStorage struct {
	deleted   []string
	deleteErr error
}

func (f *fakeStorage) PlaybackURL(_ context.Context, s3Key, fileURL string) (string, error) {
	if s3Key == "" {
		return fileURL, nil
	}
	return "https://signed.example.com/" + s3Key, nil
}

func (f *fakeStorage) DeleteVideo(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return f.deleteErr
}

type publishedEvent struct {
	arContentID uuid.UUID
	event       string
}

type fakeEvents struct {
	published []publishedEvent
}

func (f *fakeEvents) PublishContentEvent(_ context.Context, arContentID uuid.UUID, event string, _ any) error {
	f.published = append(f.published, publishedEvent{arContentID: arContentID, event: event})
	return nil
}
