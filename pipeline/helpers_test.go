package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/goliatone/go-repository-mediator/cache"
	"github.com/goliatone/go-repository-mediator/store"
)

var t0 = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

// order is tenant scoped and tracks creation and updates.
type order struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	Status    string    `json:"status"`
	Total     int       `json:"total"`
	CreatedAt time.Time `json:"created_at"`
	CreatedBy string    `json:"created_by"`
	UpdatedAt time.Time `json:"updated_at"`
	UpdatedBy string    `json:"updated_by"`
}

func (o *order) GetID() string             { return o.ID }
func (o *order) SetID(id string)           { o.ID = id }
func (o *order) GetTenantID() string       { return o.TenantID }
func (o *order) SetTenantID(tenant string) { o.TenantID = tenant }

func (o *order) SetCreated(at time.Time, by string) {
	o.CreatedAt, o.CreatedBy = at, by
}

func (o *order) SetUpdated(at time.Time, by string) {
	o.UpdatedAt, o.UpdatedBy = at, by
}

func (o *order) Validate() error {
	return validation.ValidateStruct(o,
		validation.Field(&o.Status, validation.Required, validation.In("open", "paid", "shipped")),
		validation.Field(&o.Total, validation.Min(0)),
	)
}

// note is tenant scoped and soft deletable.
type note struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`
	Body     string `json:"body"`
	Deleted  bool   `json:"deleted"`
}

func (n *note) GetID() string             { return n.ID }
func (n *note) SetID(id string)           { n.ID = id }
func (n *note) GetTenantID() string       { return n.TenantID }
func (n *note) SetTenantID(tenant string) { n.TenantID = tenant }
func (n *note) IsDeleted() bool           { return n.Deleted }
func (n *note) SetDeleted(deleted bool)   { n.Deleted = deleted }

// label declares no capabilities.
type label struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func sequence(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func newMemoryCache(t *testing.T) cache.Store {
	t.Helper()
	s, err := cache.NewMemoryStore(cache.Config{Capacity: 1000, NumShards: 4, TTL: time.Minute, EvictionPercentage: 10})
	if err != nil {
		t.Fatalf("memory cache: %v", err)
	}
	return s
}

// trace records behavior phases in execution order.
type trace struct {
	mu     sync.Mutex
	events []string
}

func (tr *trace) add(event string) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.events = append(tr.events, event)
}

func (tr *trace) list() []string {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return append([]string(nil), tr.events...)
}

func traced[T any](tr *trace, name string) Behavior[T] {
	return NewBehavior[T](name, func(ctx context.Context, req Request[T], next Handler[T]) (Result[T], error) {
		tr.add(name + ":pre")
		res, err := next(ctx, req)
		tr.add(name + ":post")
		return res, err
	})
}

// wrap records pre and post phases around an existing behavior.
func wrap[T any](tr *trace, inner Behavior[T]) Behavior[T] {
	return NewBehavior[T](inner.Name(), func(ctx context.Context, req Request[T], next Handler[T]) (Result[T], error) {
		tr.add(inner.Name() + ":pre")
		res, err := inner.Handle(ctx, req, next)
		tr.add(inner.Name() + ":post")
		return res, err
	})
}

// spyHandler is a base handler that records the requests it receives.
type spyHandler[T any] struct {
	mu       sync.Mutex
	requests []Request[T]
	result   Result[T]
	err      error
}

func (s *spyHandler[T]) handle(ctx context.Context, req Request[T]) (Result[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	return s.result, s.err
}

func (s *spyHandler[T]) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *spyHandler[T]) last() Request[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return Request[T]{}
	}
	return s.requests[len(s.requests)-1]
}

var errCacheDown = errors.New("cache unreachable")

// downStore is a cache store that fails every call.
type downStore struct {
	mu    sync.Mutex
	calls map[string]int
	delay time.Duration
}

func newDownStore() *downStore {
	return &downStore{calls: map[string]int{}}
}

func (d *downStore) record(op string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls[op]++
}

func (d *downStore) count(op string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls[op]
}

func (d *downStore) wait(ctx context.Context) error {
	if d.delay == 0 {
		return errCacheDown
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d.delay):
		return errCacheDown
	}
}

func (d *downStore) Get(ctx context.Context, key string) ([]byte, error) {
	d.record("get")
	return nil, d.wait(ctx)
}

func (d *downStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	d.record("set")
	return d.wait(ctx)
}

func (d *downStore) Remove(ctx context.Context, key string) error {
	d.record("remove")
	return d.wait(ctx)
}

func (d *downStore) RemovePrefix(ctx context.Context, prefix string) (int, error) {
	d.record("remove_prefix")
	return 0, d.wait(ctx)
}

func seedOrders(t *testing.T, s *store.Memory[*order], orders ...*order) {
	t.Helper()
	for _, o := range orders {
		if err := s.Put(o); err != nil {
			t.Fatalf("seed %s: %v", o.ID, err)
		}
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
