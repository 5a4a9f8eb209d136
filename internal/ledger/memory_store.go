package ledger

import (
	"sort"
	"sync"
)

type InMemoryStore struct {
	mu sync.Mutex

	reports map[string]ReportRecord
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{reports: make(map[string]ReportRecord)}
}

func (s *InMemoryStore) WithTx(fn func(Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn((*memTx)(s))
}

type memTx InMemoryStore

// PutReport keeps the first record stored under an id.
func (s *InMemoryStore) PutReport(rec ReportRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (*memTx)(s).PutReport(rec)
}

func (s *InMemoryStore) GetReport(reportID string) (ReportRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (*memTx)(s).GetReport(reportID)
}

// ListReports returns the newest reports first.
func (s *InMemoryStore) ListReports(limit int) ([]ReportRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]ReportRecord, 0, len(s.reports))
	for _, rec := range s.reports {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return out[i].ReportID < out[j].ReportID
	})
	if n := listLimit(limit); len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func (t *memTx) PutReport(rec ReportRecord) error {
	if _, ok := t.reports[rec.ReportID]; ok {
		return nil
	}
	rec.BodyJSON = append([]byte(nil), rec.BodyJSON...)
	t.reports[rec.ReportID] = rec
	return nil
}

func (t *memTx) GetReport(reportID string) (ReportRecord, bool) {
	rec, ok := t.reports[reportID]
	return rec, ok
}
