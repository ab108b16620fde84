package sync

import (
	"context"
	"sync"
	"time"

	"github.com/pomodoroai/pomod/internal/model"
)

// mockStore is an in-memory store.Store for scheduler and export tests.
type mockStore struct {
	mu       sync.Mutex
	sessions map[string]*model.Session
}

func newMockStore() *mockStore {
	return &mockStore{sessions: make(map[string]*model.Session)}
}

func (m *mockStore) add(s *model.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
}

func (m *mockStore) SaveSession(_ context.Context, session *model.Session) error {
	m.add(session.Clone())
	return nil
}

func (m *mockStore) UpdateSession(_ context.Context, id string, status model.SessionStatus, endedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		s.Status = status
		t := endedAt
		s.EndedAt = &t
	}
	return nil
}

func (m *mockStore) History(_ context.Context, filter model.HistoryFilter) ([]*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Session
	for _, s := range m.sessions {
		if filter.Start != nil && s.StartedAt.Before(*filter.Start) {
			continue
		}
		if filter.End != nil && s.StartedAt.After(*filter.End) {
			continue
		}
		out = append(out, s.Clone())
	}
	return out, nil
}

func (m *mockStore) RecoverStale(_ context.Context) (int, error) { return 0, nil }

func (m *mockStore) Close() error { return nil }
