package history

import (
	"context"
	"sync"

	"github.com/jwcompdev/termkit/service/dao/store"
)

// Listener is notified with a copy of every added record.
type Listener func(record Record)

// History is an append-only, ordered command log.
type History struct {
	mux      sync.Mutex
	store    *store.MemoryStore[int, Record]
	next     int
	listener Listener
}

// New creates an empty history.
func New() *History {
	return &History{
		store: store.NewMemoryStore[int, Record](func(r *Record) int { return r.ID }),
		next:  1,
	}
}

// OnAdd sets the listener called after each Add; nil removes it.
func (h *History) OnAdd(listener Listener) {
	h.mux.Lock()
	h.listener = listener
	h.mux.Unlock()
}

// Add stores a copy of record under the next id and returns that id.
func (h *History) Add(record Record) int {
	h.mux.Lock()
	record.ID = h.next
	h.next++
	// ids are unique, Save cannot fail
	_ = h.store.Save(context.Background(), &record)
	listener := h.listener
	h.mux.Unlock()
	if listener != nil {
		listener(record)
	}
	return record.ID
}

// Get returns the record with id; the error wraps dao.ErrNotFound.
func (h *History) Get(id int) (*Record, error) {
	return h.store.Load(context.Background(), id)
}

// Last returns the most recent record.
func (h *History) Last() (*Record, bool) {
	return h.store.Last()
}

// List returns every record in order.
func (h *History) List() []*Record {
	records, _ := h.store.List(context.Background())
	return records
}

// Len returns the number of records.
func (h *History) Len() int {
	return h.store.Len()
}
