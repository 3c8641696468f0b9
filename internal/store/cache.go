package store

import (
	"context"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"taskboard/internal/models"
)

// fillScript writes a board entry only while the project's generation still
// matches the one read before the backing store was queried.
// KEYS: entry, generation. ARGV: expected generation, payload, ttl in ms.
var fillScript = redis.NewScript(`
if (redis.call("GET", KEYS[2]) or "0") ~= ARGV[1] then
	return 0
end
redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
return 1
`)

// Cache wraps a Store with Redis-backed caching of project task lists.
// Any write that can change a board evicts that project's entry and bumps
// its generation, so a read that raced the write cannot refill stale data.
type Cache struct {
	Store
	redis *redis.Client
	ttl   time.Duration
}

// NewCache creates a caching Store wrapper using the provided Redis client and TTL.
func NewCache(base Store, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("store.NewCache: base store is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{Store: base, redis: client, ttl: ttl}
}

// ListTasksByProject serves the board from Redis when present.
func (c *Cache) ListTasksByProject(ctx context.Context, projectID int64) ([]models.Task, error) {
	if tasks, ok := c.loadTasks(ctx, projectID); ok {
		return tasks, nil
	}

	gen, genOK := c.generation(ctx, projectID)

	tasks, err := c.Store.ListTasksByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if genOK {
		c.storeTasks(ctx, projectID, gen, tasks)
	}
	return tasks, nil
}

// InProjectTx runs fn on the backing store and evicts the board once it commits.
func (c *Cache) InProjectTx(ctx context.Context, projectID int64, fn func(TaskRepository) error) error {
	if err := c.Store.InProjectTx(ctx, projectID, fn); err != nil {
		return err
	}
	c.evict(ctx, projectID)
	return nil
}

// DeleteTask deletes the task and evicts its project's board.
func (c *Cache) DeleteTask(ctx context.Context, projectID, taskID int64) error {
	if err := c.Store.DeleteTask(ctx, projectID, taskID); err != nil {
		return err
	}
	c.evict(ctx, projectID)
	return nil
}

// DeleteProject deletes the project and evicts its board.
func (c *Cache) DeleteProject(ctx context.Context, id int64) error {
	if err := c.Store.DeleteProject(ctx, id); err != nil {
		return err
	}
	c.evict(ctx, id)
	return nil
}

// Ping checks the backing store and Redis.
func (c *Cache) Ping(ctx context.Context) error {
	if err := c.Store.Ping(ctx); err != nil {
		return err
	}
	if c.redis == nil {
		return nil
	}
	return c.redis.Ping(ctx).Err()
}

func (c *Cache) loadTasks(ctx context.Context, projectID int64) ([]models.Task, bool) {
	if c.redis == nil {
		return nil, false
	}
	key := tasksCacheKey(projectID)
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the backing store without failing.
			_ = c.redis.Del(ctx, key).Err()
		}
		return nil, false
	}
	var tasks []models.Task
	if err := sonic.Unmarshal(data, &tasks); err != nil {
		_ = c.redis.Del(ctx, key).Err()
		return nil, false
	}
	return tasks, true
}

// generation returns the project's current cache generation. ok is false
// when it cannot be read, in which case the caller must not fill.
func (c *Cache) generation(ctx context.Context, projectID int64) (int64, bool) {
	if c.redis == nil || c.ttl == 0 {
		return 0, false
	}
	gen, err := c.redis.Get(ctx, generationKey(projectID)).Int64()
	if err == redis.Nil {
		return 0, true
	}
	if err != nil {
		return 0, false
	}
	return gen, true
}

func (c *Cache) storeTasks(ctx context.Context, projectID, gen int64, tasks []models.Task) {
	data, err := sonic.Marshal(tasks)
	if err != nil {
		return
	}
	keys := []string{tasksCacheKey(projectID), generationKey(projectID)}
	ttl := max(c.ttl.Milliseconds(), 1)
	_ = fillScript.Run(ctx, c.redis, keys, strconv.FormatInt(gen, 10), data, ttl).Err()
}

func (c *Cache) evict(ctx context.Context, projectID int64) {
	if c.redis == nil {
		return
	}
	_, _ = c.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, generationKey(projectID))
		pipe.Del(ctx, tasksCacheKey(projectID))
		return nil
	})
}

func tasksCacheKey(projectID int64) string {
	return "tasks:" + strconv.FormatInt(projectID, 10)
}

func generationKey(projectID int64) string {
	return "tasks:" + strconv.FormatInt(projectID, 10) + ":gen"
}
