package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/goliatone/go-repository-mediator/capability"
	"github.com/goliatone/go-repository-mediator/errs"
	"github.com/google/uuid"
)

type memoryRecord[T any] struct {
	seq   uint64
	model T
}

// Memory is a process local Store. Models must be pointers to structs; every
// value crossing the store boundary is cloned so callers never share state
// with stored records.
//
// Soft-deletable models (capability.SoftDeletable) are flagged on Delete and
// remain visible to Get; query filtering is the caller's concern.
type Memory[T any] struct {
	mu      sync.RWMutex
	model   string
	records map[string]memoryRecord[T]
	seq     uint64
	newID   func() string
	calls   map[string]int
}

// MemoryOption customises a Memory store.
type MemoryOption[T any] func(*Memory[T])

// WithIDGenerator overrides the identifier generator used by Create.
func WithIDGenerator[T any](fn func() string) MemoryOption[T] {
	return func(m *Memory[T]) {
		if fn != nil {
			m.newID = fn
		}
	}
}

// NewMemory creates an empty in-memory store for model type T.
func NewMemory[T any](opts ...MemoryOption[T]) *Memory[T] {
	m := &Memory[T]{
		model:   capability.Describe[T]().Model,
		records: make(map[string]memoryRecord[T]),
		newID:   func() string { return uuid.NewString() },
		calls:   make(map[string]int),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Calls returns how many times the named operation ran.
func (m *Memory[T]) Calls(op string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls[op]
}

// Put stores a record directly, bypassing version checks. It is meant for
// seeding fixtures and for simulating writes made by other processes.
func (m *Memory[T]) Put(model T) error {
	id, ok := IDOf(model)
	if !ok {
		return fmt.Errorf("put: %s has no identifier", m.model)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.storeLocked(id, Clone(model))
	return nil
}

func (m *Memory[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["get"]++

	rec, ok := m.records[id]
	if !ok {
		return zero, errs.NotFound(m.model, id)
	}
	return Clone(rec.model), nil
}

func (m *Memory[T]) GetMany(ctx context.Context, ids []string) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["get_many"]++

	out := make([]T, 0, len(ids))
	for _, id := range ids {
		if rec, ok := m.records[id]; ok {
			out = append(out, Clone(rec.model))
		}
	}
	return out, nil
}

func (m *Memory[T]) Query(ctx context.Context, filter Filter, page Page) ([]T, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	m.mu.Lock()
	m.calls["query"]++
	m.mu.Unlock()

	matched, err := m.match(filter)
	if err != nil {
		return nil, 0, err
	}
	start, end := page.Bounds(len(matched))
	return matched[start:end], len(matched), nil
}

func (m *Memory[T]) Select(ctx context.Context, filter Filter) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.calls["select"]++
	m.mu.Unlock()

	return m.match(filter)
}

func (m *Memory[T]) Create(ctx context.Context, model T) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	if isNilPointer(model) {
		return zero, errs.ValidationFailed(m.model + " payload is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["create"]++

	rec := Clone(model)
	id, ok := IDOf(rec)
	if !ok {
		id = m.newID()
		if err := SetID(rec, id); err != nil {
			return zero, errs.Internal(err.Error())
		}
	}
	if _, exists := m.records[id]; exists {
		return zero, errs.Conflict(fmt.Sprintf("%s %q already exists", m.model, id))
	}
	if v, ok := any(rec).(Versioned); ok {
		v.SetVersion(1)
	}

	m.storeLocked(id, rec)
	return Clone(rec), nil
}

func (m *Memory[T]) Update(ctx context.Context, id string, model T) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	if isNilPointer(model) {
		return zero, errs.ValidationFailed(m.model + " payload is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["update"]++

	current, ok := m.records[id]
	if !ok {
		return zero, errs.NotFound(m.model, id)
	}
	return m.replaceLocked(id, current.model, model)
}

func (m *Memory[T]) Upsert(ctx context.Context, id string, model T) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	if isNilPointer(model) {
		return zero, errs.ValidationFailed(m.model + " payload is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["upsert"]++

	if current, ok := m.records[id]; ok {
		return m.replaceLocked(id, current.model, model)
	}

	rec := Clone(model)
	if err := SetID(rec, id); err != nil {
		return zero, errs.Internal(err.Error())
	}
	if v, ok := any(rec).(Versioned); ok {
		v.SetVersion(1)
	}
	m.storeLocked(id, rec)
	return Clone(rec), nil
}

func (m *Memory[T]) Patch(ctx context.Context, id string, patch Patch) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["patch"]++

	current, ok := m.records[id]
	if !ok {
		return zero, errs.NotFound(m.model, id)
	}
	patched, err := ApplyPatch(current.model, patch)
	if err != nil {
		return zero, err
	}
	if v, ok := any(patched).(Versioned); ok {
		v.SetVersion(v.GetVersion() + 1)
	}
	m.records[id] = memoryRecord[T]{seq: current.seq, model: patched}
	return Clone(patched), nil
}

func (m *Memory[T]) Delete(ctx context.Context, id string) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["delete"]++

	current, ok := m.records[id]
	if !ok {
		return zero, errs.NotFound(m.model, id)
	}

	if sd, ok := any(current.model).(capability.SoftDeletable); ok {
		if sd.IsDeleted() {
			return zero, errs.NotFound(m.model, id)
		}
		rec := Clone(current.model)
		any(rec).(capability.SoftDeletable).SetDeleted(true)
		m.records[id] = memoryRecord[T]{seq: current.seq, model: rec}
		return Clone(rec), nil
	}

	delete(m.records, id)
	return Clone(current.model), nil
}

func (m *Memory[T]) replaceLocked(id string, current, model T) (T, error) {
	var zero T
	rec := Clone(model)
	if err := SetID(rec, id); err != nil {
		return zero, errs.Internal(err.Error())
	}

	if next, ok := any(rec).(Versioned); ok {
		stored := any(current).(Versioned).GetVersion()
		if next.GetVersion() != 0 && next.GetVersion() != stored {
			return zero, errs.Conflict(fmt.Sprintf("%s %q version %d does not match stored version %d", m.model, id, next.GetVersion(), stored))
		}
		next.SetVersion(stored + 1)
	}

	seq := m.records[id].seq
	m.records[id] = memoryRecord[T]{seq: seq, model: rec}
	return Clone(rec), nil
}

func (m *Memory[T]) storeLocked(id string, model T) {
	if rec, ok := m.records[id]; ok {
		m.records[id] = memoryRecord[T]{seq: rec.seq, model: model}
		return
	}
	m.seq++
	m.records[id] = memoryRecord[T]{seq: m.seq, model: model}
}

func (m *Memory[T]) match(filter Filter) ([]T, error) {
	m.mu.RLock()
	recs := make([]memoryRecord[T], 0, len(m.records))
	for _, rec := range m.records {
		recs = append(recs, rec)
	}
	m.mu.RUnlock()

	sort.Slice(recs, func(i, j int) bool { return recs[i].seq < recs[j].seq })

	out := make([]T, 0, len(recs))
	for _, rec := range recs {
		ok, err := filter.Match(rec.model)
		if err != nil {
			return nil, errs.ValidationFailed(err.Error())
		}
		if ok {
			out = append(out, Clone(rec.model))
		}
	}
	SortModels(out, filter.OrderBy)
	return out, nil
}
