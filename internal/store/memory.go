package store

import (
	"context"
	"sync"
	"time"

	"github.com/fyrsmithlabs/roadmapd/internal/roadmap"
)

// Memory is an in-process ProjectStore. It honors the same UpdatedAt
// compare-and-swap contract as the durable store, so service tests exercise
// the real conflict path.
type Memory struct {
	mu       sync.RWMutex
	projects map[string]*roadmap.Project
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{projects: make(map[string]*roadmap.Project)}
}

func (m *Memory) Create(_ context.Context, p *roadmap.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[p.ID]; ok {
		return ErrExists
	}
	m.projects[p.ID] = p.Clone()
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (*roadmap.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p.Clone(), nil
}

func (m *Memory) Update(_ context.Context, p *roadmap.Project, expected time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.projects[p.ID]
	if !ok {
		return ErrNotFound
	}
	if !stored.UpdatedAt.Equal(expected) {
		return ErrConflict
	}
	m.projects[p.ID] = p.Clone()
	return nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[id]; !ok {
		return ErrNotFound
	}
	delete(m.projects, id)
	return nil
}

func (m *Memory) List(_ context.Context, userID string) ([]*roadmap.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*roadmap.Project, 0, len(m.projects))
	for _, p := range m.projects {
		if userID != "" && p.UserID != userID {
			continue
		}
		out = append(out, p.Clone())
	}
	return out, nil
}

func (m *Memory) Close() error { return nil }
