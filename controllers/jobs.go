package controllers

import (
	"sync"
	"time"

	"github.com/bradenn/hwdemo/enclave"
	"go.uber.org/zap"
)

// DefaultJobTTL is how long a finished package stays downloadable.
const DefaultJobTTL = time.Hour

// Job is a finished compilation whose package can be downloaded.
type Job struct {
	ID      string
	Package string
	Name    string
	Enclave *enclave.Enclave
	Created time.Time
}

// JobStore keeps finished jobs in memory. Jobs older than the TTL are removed,
// workspace included, whenever a new job is stored.
type JobStore struct {
	TTL    time.Duration
	Logger *zap.Logger

	mu   sync.Mutex
	jobs map[string]*Job
	now  func() time.Time
}

// NewJobStore returns an empty store. A ttl of zero or less uses DefaultJobTTL.
func NewJobStore(ttl time.Duration, logger *zap.Logger) *JobStore {
	if ttl <= 0 {
		ttl = DefaultJobTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JobStore{TTL: ttl, Logger: logger, jobs: make(map[string]*Job), now: time.Now}
}

func (s *JobStore) Put(j *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j.Created.IsZero() {
		j.Created = s.now()
	}
	s.evictLocked()
	s.jobs[j.ID] = j
}

// Get returns a job that has not expired.
func (s *JobStore) Get(id string) (*Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok || s.expired(j) {
		return nil, false
	}
	return j, true
}

// Len reports the number of stored jobs, expired ones included.
func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

func (s *JobStore) expired(j *Job) bool {
	return s.now().Sub(j.Created) > s.TTL
}

func (s *JobStore) evictLocked() {
	for id, j := range s.jobs {
		if !s.expired(j) {
			continue
		}
		if err := j.Enclave.Close(); err != nil {
			s.Logger.Warn("could not remove expired job workspace", zap.String("job", id), zap.Error(err))
		}
		delete(s.jobs, id)
	}
}

// Close removes every job workspace.
func (s *JobStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var first error
	for id, j := range s.jobs {
		if err := j.Enclave.Close(); err != nil && first == nil {
			first = err
		}
		delete(s.jobs, id)
	}
	return first
}
