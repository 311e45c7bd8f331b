package api

import (
	"sync"
)

// ResultStore keeps the most recent compression results in memory. Once full,
// the oldest result is evicted.
type ResultStore struct {
	mu      sync.Mutex
	limit   int
	order   []string
	results map[string]*CompressResponse
}

func NewResultStore(limit int) *ResultStore {
	if limit <= 0 {
		limit = 64
	}
	return &ResultStore{
		limit:   limit,
		results: make(map[string]*CompressResponse),
	}
}

func (s *ResultStore) Save(resp *CompressResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.results[resp.ID]; !ok {
		s.order = append(s.order, resp.ID)
	}
	s.results[resp.ID] = resp
	for len(s.order) > s.limit {
		delete(s.results, s.order[0])
		s.order = s.order[1:]
	}
}

func (s *ResultStore) Get(id string) (*CompressResponse, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	resp, ok := s.results[id]
	return resp, ok
}

func (s *ResultStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.results[id]; !ok {
		return false
	}
	delete(s.results, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

func (s *ResultStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results)
}
