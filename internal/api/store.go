package api

import (
	"sort"
	"strings"
	"sync"

	"github.com/sirikarn-cs/SumRate/internal/services"
)

// MemoryStore keeps submitted survey data in process memory. It backs tests and
// development runs; production uses the sqlite store.
type MemoryStore struct {
	mu          sync.RWMutex
	records     map[string]*services.SessionRecord
	compareRows map[string][]*services.CompareRow
	ratingRows  map[string][]*services.RatingRow
	researchers map[string]*services.Researcher
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records:     map[string]*services.SessionRecord{},
		compareRows: map[string][]*services.CompareRow{},
		ratingRows:  map[string][]*services.RatingRow{},
		researchers: map[string]*services.Researcher{},
	}
}

// CreateSessionRecord upserts the record under its session id, so a retried
// submission never produces a second record.
func (s *MemoryStore) CreateSessionRecord(rec *services.SessionRecord) (string, error) {
	if rec == nil || rec.SessionID == "" {
		return "", services.ErrMissingSessionID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	s.records[rec.SessionID] = &cp
	return rec.SessionID, nil
}

// AppendCompareRows replaces any rows already stored for the rows' session id.
func (s *MemoryStore) AppendCompareRows(rows []*services.CompareRow) error {
	if len(rows) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.compareRows[rows[0].SessionID] = append([]*services.CompareRow(nil), rows...)
	return nil
}

// AppendRatingRows replaces any rows already stored for the rows' session id.
func (s *MemoryStore) AppendRatingRows(rows []*services.RatingRow) error {
	if len(rows) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ratingRows[rows[0].SessionID] = append([]*services.RatingRow(nil), rows...)
	return nil
}

func (s *MemoryStore) ListSessionRecords() ([]*services.SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*services.SessionRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].SessionID < out[j].SessionID
		}
		return out[i].SubmittedAt.Before(out[j].SubmittedAt)
	})
	return out, nil
}

func (s *MemoryStore) ListCompareRows() ([]*services.CompareRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.compareRows))
	for id := range s.compareRows {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := []*services.CompareRow{}
	for _, id := range ids {
		out = append(out, s.compareRows[id]...)
	}
	return out, nil
}

func (s *MemoryStore) ListRatingRows() ([]*services.RatingRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.ratingRows))
	for id := range s.ratingRows {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := []*services.RatingRow{}
	for _, id := range ids {
		out = append(out, s.ratingRows[id]...)
	}
	return out, nil
}

func (s *MemoryStore) AddResearcher(r *services.Researcher) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.researchers[strings.ToLower(r.Email)] = &cp
	return nil
}

func (s *MemoryStore) FindResearcherByEmail(email string) (*services.Researcher, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.researchers[strings.ToLower(email)]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, nil
}

// sessionRegistry holds active (unsubmitted) sessions. One mutex serializes every
// session event, preserving the single-writer model of the survey flow.
type sessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*services.Session
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{sessions: map[string]*services.Session{}}
}

func (r *sessionRegistry) add(sess *services.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sess.ID] = sess
}

// do runs fn on the named session while holding the registry lock.
func (r *sessionRegistry) do(id string, fn func(*services.Session) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[id]
	if !ok {
		return services.NewNotFoundError("session not found")
	}
	return fn(sess)
}

func (r *sessionRegistry) remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return false
	}
	delete(r.sessions, id)
	return true
}
