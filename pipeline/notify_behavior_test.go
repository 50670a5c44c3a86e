package pipeline

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-repository-mediator/cache"
	"github.com/goliatone/go-repository-mediator/capability"
	"github.com/goliatone/go-repository-mediator/errs"
	"github.com/goliatone/go-repository-mediator/notify"
	"github.com/goliatone/go-repository-mediator/pkg/testsupport"
	"github.com/goliatone/go-repository-mediator/store"
)

func TestChangeNotification_InvalidatesAfterEveryMutation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(ctx context.Context, c *Client[*label]) error
		check  func(t *testing.T, got *label, err error)
	}{
		{
			name: "update",
			mutate: func(ctx context.Context, c *Client[*label]) error {
				_, err := c.Update(ctx, "1", &label{Name: "via update"})
				return err
			},
			check: wantName("via update"),
		},
		{
			name: "upsert",
			mutate: func(ctx context.Context, c *Client[*label]) error {
				_, err := c.Upsert(ctx, "1", &label{Name: "via upsert"})
				return err
			},
			check: wantName("via upsert"),
		},
		{
			name: "patch",
			mutate: func(ctx context.Context, c *Client[*label]) error {
				_, err := c.Patch(ctx, "1", store.Patch{"name": "via patch"})
				return err
			},
			check: wantName("via patch"),
		},
		{
			name: "delete",
			mutate: func(ctx context.Context, c *Client[*label]) error {
				_, err := c.Delete(ctx, "1")
				return err
			},
			check: func(t *testing.T, got *label, err error) {
				if !errs.IsNotFound(err) {
					t.Errorf("expected not found after delete, got %+v err=%v", got, err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			labels := store.NewMemory[*label]()
			if err := labels.Put(&label{ID: "1", Name: "original"}); err != nil {
				t.Fatal(err)
			}
			client, err := Register[*label](NewMediator(), labels, WithMemoryCache[*label](newMemoryCache(t), time.Minute))
			if err != nil {
				t.Fatal(err)
			}

			if got, _ := client.GetByID(ctx, "1"); got.Name != "original" {
				t.Fatalf("warm up read returned %+v", got)
			}
			// the cache now holds a value the store no longer has
			if err := labels.Put(&label{ID: "1", Name: "changed behind the cache"}); err != nil {
				t.Fatal(err)
			}
			if got, _ := client.GetByID(ctx, "1"); got.Name != "original" {
				t.Fatalf("expected the cached value before any mutation, got %+v", got)
			}

			if err := tt.mutate(ctx, client); err != nil {
				t.Fatalf("mutation error = %v", err)
			}
			got, err := client.GetByID(ctx, "1")
			tt.check(t, got, err)
		})
	}
}

func wantName(name string) func(t *testing.T, got *label, err error) {
	return func(t *testing.T, got *label, err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		if got.Name != name {
			t.Errorf("name = %q, want %q", got.Name, name)
		}
	}
}

func TestChangeNotification_ClearsCollections(t *testing.T) {
	ctx := context.Background()
	labels := store.NewMemory[*label]()
	_ = labels.Put(&label{ID: "1", Name: "red"})
	client, err := Register[*label](NewMediator(), labels, WithMemoryCache[*label](newMemoryCache(t), time.Minute))
	if err != nil {
		t.Fatal(err)
	}

	all, err := client.Select(ctx, store.Filter{})
	if err != nil || len(all) != 1 {
		t.Fatalf("Select() = %d, %v", len(all), err)
	}
	if _, err := client.Create(ctx, &label{ID: "2", Name: "blue"}); err != nil {
		t.Fatal(err)
	}

	all, err = client.Select(ctx, store.Filter{})
	if err != nil || len(all) != 2 {
		t.Errorf("collection entries should be invalidated by create, got %d, %v", len(all), err)
	}
	if labels.Calls("select") != 2 {
		t.Errorf("expected the second select to reach the store, got %d calls", labels.Calls("select"))
	}
}

func TestChangeNotification_PublishesEvent(t *testing.T) {
	ctx := WithActor(context.Background(), "alice")
	rec := notify.NewRecorder()
	labels := store.NewMemory[*label](store.WithIDGenerator[*label](sequence("l")))
	client, err := Register[*label](NewMediator(), labels,
		WithSink[*label](rec),
		WithClock[*label](func() time.Time { return t0 }),
	)
	if err != nil {
		t.Fatal(err)
	}

	created, err := client.Create(ctx, &label{Name: "red"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := client.Patch(ctx, created.ID, store.Patch{"name": "blue"}); err != nil {
		t.Fatal(err)
	}
	if _, err := client.Delete(ctx, created.ID); err != nil {
		t.Fatal(err)
	}

	want := []string{"label/_/l-1/create", "label/_/l-1/patch", "label/_/l-1/delete"}
	if got := rec.Topics(); !equalStrings(got, want) {
		t.Errorf("topics = %v, want %v", got, want)
	}
	for _, e := range rec.Events() {
		if e.Actor != "alice" || !e.At.Equal(t0) || e.ID == "" {
			t.Errorf("unexpected event %+v", e)
		}
	}
}

func TestChangeNotification_NoEventOnFailure(t *testing.T) {
	rec := notify.NewRecorder()
	client, err := Register[*label](NewMediator(), store.NewMemory[*label](), WithSink[*label](rec))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := client.Update(context.Background(), "missing", &label{Name: "x"}); !errs.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := client.Delete(context.Background(), "missing"); !errs.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if rec.Len() != 0 {
		t.Errorf("failed mutations must not publish, got %v", rec.Topics())
	}
}

func TestChangeNotification_FailuresAreLoggedNotReturned(t *testing.T) {
	var logs bytes.Buffer
	rec := notify.NewRecorder()
	rec.FailWith(errors.New("broker down"))
	down := newDownStore()

	client, err := Register[*label](NewMediator(), store.NewMemory[*label](),
		WithDistributedCache[*label](down, time.Minute, 10*time.Millisecond),
		WithSink[*label](rec),
		WithLogger[*label](zerolog.New(&logs)),
	)
	if err != nil {
		t.Fatal(err)
	}

	created, err := client.Create(context.Background(), &label{Name: "red"})
	if err != nil {
		t.Fatalf("notification failures must not fail the mutation: %v", err)
	}
	if created.ID != "1" {
		t.Errorf("unexpected result %+v", created)
	}

	out := logs.String()
	for _, msg := range []string{"cache invalidation failed", "change event publish failed"} {
		if !strings.Contains(out, msg) {
			t.Errorf("expected %q in logs:\n%s", msg, out)
		}
	}
}

func TestChangeNotification_PanickingSinkDoesNotFailMutation(t *testing.T) {
	var logs bytes.Buffer
	labels := store.NewMemory[*label]()
	client, err := Register[*label](NewMediator(), labels,
		WithSink[*label](notify.SinkFunc(func(ctx context.Context, e notify.Event) error {
			panic("subscriber bug")
		})),
		WithLogger[*label](zerolog.New(&logs)),
	)
	if err != nil {
		t.Fatal(err)
	}

	created, err := client.Create(context.Background(), &label{Name: "red"})
	if err != nil {
		t.Fatalf("a panicking sink must not fail the mutation: %v", err)
	}
	if created == nil || created.ID == "" || labels.Calls("create") != 1 {
		t.Errorf("unexpected result %+v", created)
	}
	if out := logs.String(); !strings.Contains(out, "change event publish failed") || !strings.Contains(out, "subscriber bug") {
		t.Errorf("expected the panic to be logged, got:\n%s", out)
	}
}

func TestChangeNotification_SurvivesCallerCancellation(t *testing.T) {
	memory := newMemoryCache(t)
	desc := capability.Describe[*label]()
	opts := NewOptions(desc, WithMemoryCache[*label](memory, time.Minute))
	key := opts.Keys().ByID("1")
	if err := memory.Set(context.Background(), key, []byte("stale"), time.Minute); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	base := func(ctx context.Context, req Request[*label]) (Result[*label], error) {
		cancel()
		return Result[*label]{Item: &label{ID: "1"}}, nil
	}
	if _, err := ChangeNotification(desc, opts).Handle(ctx, Request[*label]{Kind: KindUpdate, ID: "1"}, base); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	if _, err := memory.Get(context.Background(), key); !cache.IsMiss(err) {
		t.Errorf("invalidation must complete after the caller cancels, got %v", err)
	}
}

func TestAffectedIDs(t *testing.T) {
	tests := []struct {
		name string
		req  Request[*label]
		res  Result[*label]
		want []string
	}{
		{name: "from request", req: Request[*label]{ID: "1"}, want: []string{"1"}},
		{name: "from result", res: Result[*label]{Item: &label{ID: "2"}}, want: []string{"2"}},
		{name: "deduplicated", req: Request[*label]{ID: "1"}, res: Result[*label]{Item: &label{ID: "1"}}, want: []string{"1"}},
		{name: "none", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := affectedIDs(tt.req, tt.res); !equalStrings(got, tt.want) {
				t.Errorf("affectedIDs() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestChangeNotification_LogSinkGolden(t *testing.T) {
	var buf bytes.Buffer
	sink := notify.NewLogSink(zerolog.New(&buf))
	clock := testsupport.NewClock(t0)

	ctx := WithActor(WithTenant(context.Background(), "T1"), "alice")
	orders := store.NewMemory[*order](store.WithIDGenerator[*order](sequence("o")))
	client, err := Register[*order](NewMediator(), orders,
		WithSink[*order](notify.SinkFunc(func(ctx context.Context, e notify.Event) error {
			e.ID = "evt-1"
			return sink.Publish(ctx, e)
		})),
		WithClock[*order](clock.Now),
	)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := client.Create(ctx, &order{Status: "open", Total: 10}); err != nil {
		t.Fatal(err)
	}

	testsupport.CompareWithGolden(t, testsupport.GoldenPath("order_create_event.golden"), buf.Bytes())
}
