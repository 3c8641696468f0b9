package store

import (
	"context"
	"strconv"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"taskboard/internal/models"
)

// countingStore records how often the board is read from the backing store.
// afterList, when set, runs once right after the next backing read returns.
type countingStore struct {
	Store
	lists     int
	afterList func()
}

func (c *countingStore) ListTasksByProject(ctx context.Context, projectID int64) ([]models.Task, error) {
	c.lists++
	tasks, err := c.Store.ListTasksByProject(ctx, projectID)
	if hook := c.afterList; hook != nil {
		c.afterList = nil
		hook()
	}
	return tasks, err
}

func setupCache(t *testing.T) (*Cache, *countingStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	base := &countingStore{Store: NewMemoryStore()}
	return NewCache(base, client, time.Minute), base, mr
}

func TestCacheListTasksMissThenHit(t *testing.T) {
	cache, base, mr := setupCache(t)
	ctx := context.Background()
	p := createProject(t, cache, "CACHE")
	insertTask(t, cache, p.ID, "Cached", models.StatusTodo, 10)

	for i := 0; i < 3; i++ {
		tasks, err := cache.ListTasksByProject(ctx, p.ID)
		if err != nil {
			t.Fatalf("list tasks: %v", err)
		}
		if len(tasks) != 1 || tasks[0].Title != "Cached" {
			t.Fatalf("unexpected tasks: %#v", tasks)
		}
	}
	if base.lists != 1 {
		t.Fatalf("expected 1 call to backend, got %d", base.lists)
	}
	if ttl := mr.TTL(tasksCacheKey(p.ID)); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("unexpected TTL: %v", ttl)
	}
}

func TestCacheEvictsOnWrites(t *testing.T) {
	cache, _, mr := setupCache(t)
	ctx := context.Background()
	p := createProject(t, cache, "EVICT")
	task := insertTask(t, cache, p.ID, "Mutable", models.StatusTodo, 10)
	key := tasksCacheKey(p.ID)

	writes := []struct {
		name  string
		write func() error
	}{
		{name: "transaction", write: func() error {
			return cache.InProjectTx(ctx, p.ID, func(r TaskRepository) error {
				return r.SetPosition(ctx, task.ID, 20, time.Now())
			})
		}},
		{name: "update", write: func() error {
			return cache.InProjectTx(ctx, p.ID, func(r TaskRepository) error {
				edit := *task
				edit.Title = "Edited"
				return r.UpdateTask(ctx, &edit)
			})
		}},
		{name: "delete task", write: func() error {
			return cache.DeleteTask(ctx, p.ID, task.ID)
		}},
		{name: "delete project", write: func() error {
			return cache.DeleteProject(ctx, p.ID)
		}},
	}

	for _, w := range writes {
		if _, err := cache.ListTasksByProject(ctx, p.ID); err != nil {
			t.Fatalf("%s: warm cache: %v", w.name, err)
		}
		if !mr.Exists(key) {
			t.Fatalf("%s: expected cache entry after read", w.name)
		}
		if err := w.write(); err != nil {
			t.Fatalf("%s: %v", w.name, err)
		}
		if mr.Exists(key) {
			t.Errorf("%s: expected cache entry to be evicted", w.name)
		}
	}
}

func TestCacheSkipsFillAfterConcurrentCommit(t *testing.T) {
	cache, base, mr := setupCache(t)
	ctx := context.Background()
	p := createProject(t, cache, "RACE")
	task := insertTask(t, cache, p.ID, "Ship it", models.StatusTodo, 10)

	// A move commits after the backing read but before the entry is written.
	base.afterList = func() {
		err := cache.InProjectTx(ctx, p.ID, func(r TaskRepository) error {
			return r.SetStatusAndPosition(ctx, task.ID, models.StatusDone, 10, models.CompletedAtSet, time.Now())
		})
		if err != nil {
			t.Errorf("commit move: %v", err)
		}
	}

	stale, err := cache.ListTasksByProject(ctx, p.ID)
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(stale) != 1 || stale[0].Status != models.StatusTodo {
		t.Fatalf("expected the pre-commit board, got %#v", stale)
	}
	if mr.Exists(tasksCacheKey(p.ID)) {
		t.Fatal("expected the stale board not to be cached")
	}

	tasks, err := cache.ListTasksByProject(ctx, p.ID)
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Status != models.StatusDone {
		t.Fatalf("expected task in done after the move, got %#v", tasks)
	}
	if !mr.Exists(tasksCacheKey(p.ID)) {
		t.Error("expected a fresh read to fill the cache")
	}
}

func TestCacheEvictBumpsGeneration(t *testing.T) {
	cache, _, mr := setupCache(t)
	ctx := context.Background()
	p := createProject(t, cache, "GEN")

	for want := 1; want <= 2; want++ {
		if err := cache.InProjectTx(ctx, p.ID, func(TaskRepository) error { return nil }); err != nil {
			t.Fatalf("transaction: %v", err)
		}
		got, err := mr.Get(generationKey(p.ID))
		if err != nil {
			t.Fatalf("read generation: %v", err)
		}
		if got != strconv.Itoa(want) {
			t.Errorf("expected generation %d, got %s", want, got)
		}
	}
}

func TestCacheKeepsEntryWhenTransactionFails(t *testing.T) {
	cache, _, mr := setupCache(t)
	ctx := context.Background()
	p := createProject(t, cache, "KEEP")

	if _, err := cache.ListTasksByProject(ctx, p.ID); err != nil {
		t.Fatalf("warm cache: %v", err)
	}
	err := cache.InProjectTx(ctx, p.ID, func(TaskRepository) error { return ErrConflict })
	if err == nil {
		t.Fatal("expected transaction error")
	}
	if !mr.Exists(tasksCacheKey(p.ID)) {
		t.Error("expected cache entry to survive a rolled back transaction")
	}
}

func TestCacheCorruptEntryFallsBack(t *testing.T) {
	cache, base, mr := setupCache(t)
	ctx := context.Background()
	p := createProject(t, cache, "BAD")
	insertTask(t, cache, p.ID, "Real", models.StatusTodo, 10)

	if err := mr.Set(tasksCacheKey(p.ID), "{not json"); err != nil {
		t.Fatalf("seed corrupt entry: %v", err)
	}

	tasks, err := cache.ListTasksByProject(ctx, p.ID)
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Title != "Real" {
		t.Fatalf("unexpected tasks: %#v", tasks)
	}
	if base.lists != 1 {
		t.Fatalf("expected fallback to backend, got %d calls", base.lists)
	}
}

func TestCacheWithoutRedisPassesThrough(t *testing.T) {
	base := &countingStore{Store: NewMemoryStore()}
	cache := NewCache(base, nil, time.Minute)
	ctx := context.Background()
	p := createProject(t, cache, "NIL")

	for i := 0; i < 2; i++ {
		if _, err := cache.ListTasksByProject(ctx, p.ID); err != nil {
			t.Fatalf("list tasks: %v", err)
		}
	}
	if base.lists != 2 {
		t.Fatalf("expected every read to reach the backend, got %d", base.lists)
	}
	if err := cache.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
}
