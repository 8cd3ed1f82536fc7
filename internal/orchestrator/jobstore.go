package orchestrator

import (
	"sync"

	"github.com/google/uuid"

	"github.com/benfi/label-automation/internal/entity"
)

// JobStore is the injected automation-job table. Implementations must be
// safe for concurrent use; reads return copies.
type JobStore interface {
	Put(job *entity.AutomationJob)
	Get(id uuid.UUID) (*entity.AutomationJob, bool)
	All() []*entity.AutomationJob
	// Update applies fn to the stored job under the store's lock and
	// reports whether the job exists.
	Update(id uuid.UUID, fn func(*entity.AutomationJob)) bool
	Delete(id uuid.UUID) bool
	Clear()
}

// MemoryJobStore keeps jobs in a mutex-guarded map.
type MemoryJobStore struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*entity.AutomationJob
}

func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{jobs: make(map[uuid.UUID]*entity.AutomationJob)}
}

func (s *MemoryJobStore) Put(job *entity.AutomationJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job.Clone()
}

func (s *MemoryJobStore) Get(id uuid.UUID) (*entity.AutomationJob, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, false
	}
	return job.Clone(), true
}

func (s *MemoryJobStore) All() []*entity.AutomationJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*entity.AutomationJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, job.Clone())
	}
	return out
}

func (s *MemoryJobStore) Update(id uuid.UUID, fn func(*entity.AutomationJob)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return false
	}
	fn(job)
	return true
}

func (s *MemoryJobStore) Delete(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; !ok {
		return false
	}
	delete(s.jobs, id)
	return true
}

func (s *MemoryJobStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = make(map[uuid.UUID]*entity.AutomationJob)
}
