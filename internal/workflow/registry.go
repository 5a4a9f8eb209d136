package workflow

import (
	"sync"

	"github.com/davidahmann/specgate/pkg/types"
)

// Registry is an append-only, in-memory store of workflow records. Records
// are never removed.
type Registry struct {
	mu    sync.Mutex
	items map[string]types.WorkflowRecord
	order []string
}

func NewRegistry() *Registry {
	return &Registry{items: make(map[string]types.WorkflowRecord)}
}

func (r *Registry) Add(rec types.WorkflowRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[rec.ID]; ok {
		return ErrDuplicateID
	}
	r.items[rec.ID] = copyRecord(rec)
	r.order = append(r.order, rec.ID)
	return nil
}

func (r *Registry) Get(id string) (types.WorkflowRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.items[id]
	if !ok {
		return types.WorkflowRecord{}, false
	}
	return copyRecord(rec), true
}

// Update applies fn to the stored record under the registry lock.
func (r *Registry) Update(id string, fn func(*types.WorkflowRecord)) (types.WorkflowRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.items[id]
	if !ok {
		return types.WorkflowRecord{}, false
	}
	fn(&rec)
	rec.ID = id
	r.items[id] = copyRecord(rec)
	return copyRecord(rec), true
}

// Pending returns pending records in insertion order.
func (r *Registry) Pending() []types.WorkflowRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []types.WorkflowRecord{}
	for _, id := range r.order {
		if rec := r.items[id]; rec.Status.Pending() {
			out = append(out, copyRecord(rec))
		}
	}
	return out
}

// Summary counts records by status and returns the most recent limit
// records, newest last.
func (r *Registry) Summary(limit int) types.WorkflowSummary {
	r.mu.Lock()
	defer r.mu.Unlock()

	counts := make(map[types.WorkflowStatus]int)
	for _, rec := range r.items {
		counts[rec.Status]++
	}

	start := 0
	if limit >= 0 && len(r.order) > limit {
		start = len(r.order) - limit
	}
	recent := make([]types.WorkflowRecord, 0, len(r.order)-start)
	for _, id := range r.order[start:] {
		recent = append(recent, copyRecord(r.items[id]))
	}

	return types.WorkflowSummary{
		TotalWorkflows: len(r.items),
		CountsByStatus: counts,
		RecentRecords:  recent,
	}
}

func copyRecord(rec types.WorkflowRecord) types.WorkflowRecord {
	if rec.TicketID != nil {
		id := *rec.TicketID
		rec.TicketID = &id
	}
	if rec.TicketURL != nil {
		url := *rec.TicketURL
		rec.TicketURL = &url
	}
	if rec.TicketLabels != nil {
		rec.TicketLabels = append([]string(nil), rec.TicketLabels...)
	}
	return rec
}
