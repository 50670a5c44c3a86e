package di

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-repository-mediator/pipeline"
	"github.com/goliatone/go-repository-mediator/store"
)

func seedUsers(n int) *mockUserRepository {
	repo := newMockUserRepository()
	for i := 0; i < n; i++ {
		repo.put(&user{ID: fmt.Sprintf("u-%d", i), TenantID: "T1", Name: fmt.Sprintf("user %d", i)})
	}
	return repo
}

func TestConcurrentAccess(t *testing.T) {
	c, err := NewContainer(loadConfig(t, nil), WithLogger(zerolog.Nop()))
	if err != nil {
		t.Fatal(err)
	}
	repo := seedUsers(10)
	users, err := RegisterRepository[*user](c, repo)
	if err != nil {
		t.Fatal(err)
	}
	ctx := pipeline.WithTenant(context.Background(), "T1")

	var wg sync.WaitGroup
	for g := 0; g < 20; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				id := fmt.Sprintf("u-%d", i%10)
				if _, err := users.GetByID(ctx, id); err != nil {
					t.Errorf("GetByID(%s): %v", id, err)
				}
			}
		}()
	}
	wg.Wait()

	// racing misses on one id may each reach the repository
	if n := repo.getCallCount("GetByID"); n < 10 || n > 200 {
		t.Errorf("repository GetByID calls = %d", n)
	}
}

func TestConcurrentReadWrite(t *testing.T) {
	c, err := NewContainer(loadConfig(t, nil), WithLogger(zerolog.Nop()))
	if err != nil {
		t.Fatal(err)
	}
	repo := seedUsers(5)
	users, err := RegisterRepository[*user](c, repo)
	if err != nil {
		t.Fatal(err)
	}
	ctx := pipeline.WithTenant(context.Background(), "T1")

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_, _ = users.GetByID(ctx, fmt.Sprintf("u-%d", i%5))
			}
		}()
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				id := fmt.Sprintf("u-%d", i%5)
				if _, err := users.Patch(ctx, id, store.Patch{"name": fmt.Sprintf("w%d-%d", g, i)}); err != nil {
					t.Errorf("Patch(%s): %v", id, err)
				}
			}
		}(g)
	}
	wg.Wait()

	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("u-%d", i)
		got, err := users.GetByID(ctx, id)
		if err != nil {
			t.Fatal(err)
		}
		stored, _ := repo.GetByID(ctx, id)
		if got.Name != stored.Name {
			t.Errorf("%s: cached name %q, stored name %q", id, got.Name, stored.Name)
		}
	}
}

func BenchmarkCachedVsBaseRepository(b *testing.B) {
	ctx := pipeline.WithTenant(context.Background(), "T1")
	modes := []string{"disabled", "memory"}

	for _, mode := range modes {
		b.Run(mode, func(b *testing.B) {
			cfg, err := loadConfigB(mode)
			if err != nil {
				b.Fatal(err)
			}
			c, err := NewContainer(cfg, WithLogger(zerolog.Nop()))
			if err != nil {
				b.Fatal(err)
			}
			users, err := RegisterRepository[*user](c, seedUsers(100))
			if err != nil {
				b.Fatal(err)
			}

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := users.GetByID(ctx, fmt.Sprintf("u-%d", i%100)); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkConcurrentCacheAccess(b *testing.B) {
	cfg, err := loadConfigB("memory")
	if err != nil {
		b.Fatal(err)
	}
	c, err := NewContainer(cfg, WithLogger(zerolog.Nop()))
	if err != nil {
		b.Fatal(err)
	}
	users, err := RegisterRepository[*user](c, seedUsers(100))
	if err != nil {
		b.Fatal(err)
	}
	ctx := pipeline.WithTenant(context.Background(), "T1")

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			_, _ = users.GetByID(ctx, fmt.Sprintf("u-%d", i%100))
			i++
		}
	})
}
