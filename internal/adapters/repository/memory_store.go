package repository

import (
	"context"
	"sync"

	"github.com/geominder/core/internal/domain/entities"
	"github.com/geominder/core/internal/ports"
)

// MemoryStore keeps reminders in process memory. GetAll returns reminders in
// the order their ids were first saved.
type MemoryStore struct {
	mu        sync.RWMutex
	reminders map[string]*entities.Reminder
	order     []string
}

// NewMemoryStore creates an empty in-memory reminder store
func NewMemoryStore() ports.ReminderStore {
	return &MemoryStore{reminders: make(map[string]*entities.Reminder)}
}

func (s *MemoryStore) Save(ctx context.Context, reminder *entities.Reminder) error {
	reminder.EnsureID()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reminders[reminder.ID]; !ok {
		s.order = append(s.order, reminder.ID)
	}
	s.reminders[reminder.ID] = reminder.Clone()

	return nil
}

func (s *MemoryStore) GetAll(ctx context.Context) ([]*entities.Reminder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reminders := make([]*entities.Reminder, 0, len(s.order))
	for _, id := range s.order {
		reminders = append(reminders, s.reminders[id].Clone())
	}

	return reminders, nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id string) (*entities.Reminder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reminder, ok := s.reminders[id]
	if !ok {
		return nil, entities.ErrReminderNotFound
	}

	return reminder.Clone(), nil
}

func (s *MemoryStore) DeleteByID(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reminders[id]; !ok {
		return nil
	}

	delete(s.reminders, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}

	return nil
}

func (s *MemoryStore) DeleteAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reminders = make(map[string]*entities.Reminder)
	s.order = nil

	return nil
}
