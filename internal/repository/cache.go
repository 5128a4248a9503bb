package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"todoey/internal/model"
)

const cachePrefix = "todoey:"

// Cache wraps a repository with a Redis read-through cache for FetchAll.
//
// Every list key embeds the generation of its scope. A write bumps the
// generation once the base repository acknowledged it, so a reader that
// fetched before the write stores its result under a key nobody asks for
// again. When a bump cannot reach Redis the scope is marked stale and served
// from the base repository until a later bump succeeds.
type Cache[T any] struct {
	base     Repository[T]
	redis    *redis.Client
	ttl      time.Duration
	kind     string
	scopeOf  func(T) string
	onDelete func(ctx context.Context, id string)
	log      *zap.Logger

	mu    sync.Mutex
	stale map[string]struct{}
}

var (
	_ Categories = (*Cache[model.Category])(nil)
	_ Items      = (*Cache[model.Item])(nil)
)

// NewCachedCategories caches the category list. Deleting a category also
// invalidates its item list in items, which may be nil.
func NewCachedCategories(base Categories, items *Cache[model.Item], client *redis.Client, ttl time.Duration, log *zap.Logger) *Cache[model.Category] {
	c := newCache(base, client, ttl, "categories", func(model.Category) string { return "" }, log)
	if items != nil {
		c.onDelete = func(ctx context.Context, id string) {
			items.invalidate(ctx, id)
		}
	}
	return c
}

// NewCachedItems caches item lists per category.
func NewCachedItems(base Items, client *redis.Client, ttl time.Duration, log *zap.Logger) *Cache[model.Item] {
	return newCache(base, client, ttl, "items", func(it model.Item) string { return it.CategoryID }, log)
}

func newCache[T any](base Repository[T], client *redis.Client, ttl time.Duration, kind string, scopeOf func(T) string, log *zap.Logger) *Cache[T] {
	if base == nil {
		panic("repository.newCache: base repository is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache[T]{
		base:    base,
		redis:   client,
		ttl:     ttl,
		kind:    kind,
		scopeOf: scopeOf,
		log:     log,
		stale:   make(map[string]struct{}),
	}
}

// genKey names the generation counter of a scope. The empty scope is the
// kind-wide counter that every list of the kind depends on.
func genKey(kind, scope string) string {
	if scope == "" {
		return cachePrefix + "gen:" + kind
	}
	return cachePrefix + "gen:" + kind + ":" + scope
}

func listKey(kind, scope, gen string) string {
	if scope == "" {
		return cachePrefix + kind + "@" + gen
	}
	return cachePrefix + kind + ":" + scope + "@" + gen
}

func (c *Cache[T]) Create(ctx context.Context, entity *T) error {
	if err := c.base.Create(ctx, entity); err != nil {
		return err
	}
	c.invalidate(ctx, c.scopeOf(*entity))
	return nil
}

func (c *Cache[T]) Get(ctx context.Context, id string) (T, error) {
	return c.base.Get(ctx, id)
}

func (c *Cache[T]) FetchAll(ctx context.Context, parentID string) ([]T, error) {
	if c.redis == nil || c.isStale(ctx, parentID) {
		return c.base.FetchAll(ctx, parentID)
	}

	// The generation is read before the base so a concurrent write can only
	// make this result land under an outdated key.
	gen, err := c.generation(ctx, parentID)
	if err != nil {
		c.log.Warn("cache generation read failed", zap.String("kind", c.kind), zap.Error(err))
		return c.base.FetchAll(ctx, parentID)
	}
	key := listKey(c.kind, parentID, gen)
	if cached, ok := c.load(ctx, key); ok {
		return cached, nil
	}
	values, err := c.base.FetchAll(ctx, parentID)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, values)
	return values, nil
}

func (c *Cache[T]) FetchFiltered(ctx context.Context, parentID, query string) ([]T, error) {
	return c.base.FetchFiltered(ctx, parentID, query)
}

func (c *Cache[T]) Update(ctx context.Context, id string, mutate func(*T) error) (T, error) {
	out, err := c.base.Update(ctx, id, mutate)
	if err != nil {
		return out, err
	}
	c.invalidate(ctx, c.scopeOf(out))
	return out, nil
}

func (c *Cache[T]) Delete(ctx context.Context, id string) error {
	prev, getErr := c.base.Get(ctx, id)
	if err := c.base.Delete(ctx, id); err != nil {
		return err
	}
	if getErr == nil {
		c.invalidate(ctx, c.scopeOf(prev))
	} else {
		c.invalidate(ctx, "")
	}
	if c.onDelete != nil {
		c.onDelete(ctx, id)
	}
	return nil
}

// generation returns "<kind gen>.<scope gen>" for scope, or the kind-wide
// generation alone for the empty scope.
func (c *Cache[T]) generation(ctx context.Context, scope string) (string, error) {
	keys := []string{genKey(c.kind, "")}
	if scope != "" {
		keys = append(keys, genKey(c.kind, scope))
	}
	vals, err := c.redis.MGet(ctx, keys...).Result()
	if err != nil {
		return "", err
	}
	parts := make([]string, len(vals))
	for i, v := range vals {
		s, _ := v.(string)
		if s == "" {
			s = "0"
		}
		parts[i] = s
	}
	return strings.Join(parts, "."), nil
}

// invalidate bumps the generation of scope. A failed bump marks the scope
// stale so reads bypass Redis until the bump goes through.
func (c *Cache[T]) invalidate(ctx context.Context, scope string) {
	if c.redis == nil {
		return
	}
	if err := c.bump(ctx, scope); err != nil {
		c.log.Warn("cache invalidation failed, serving from store",
			zap.String("key", genKey(c.kind, scope)), zap.Error(err))
		c.mu.Lock()
		c.stale[scope] = struct{}{}
		c.mu.Unlock()
	}
}

func (c *Cache[T]) bump(ctx context.Context, scope string) error {
	if err := c.redis.Incr(ctx, genKey(c.kind, scope)).Err(); err != nil {
		return fmt.Errorf("bump %s generation: %w", c.kind, err)
	}
	return nil
}

// isStale reports whether reads of scope must skip the cache. It retries the
// pending bumps of scope and of the kind-wide counter first.
func (c *Cache[T]) isStale(ctx context.Context, scope string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.stale) == 0 {
		return false
	}

	stale := false
	for _, s := range []string{"", scope} {
		if _, ok := c.stale[s]; !ok {
			continue
		}
		if err := c.bump(ctx, s); err != nil {
			stale = true
			continue
		}
		delete(c.stale, s)
	}
	return stale
}

func (c *Cache[T]) load(ctx context.Context, key string) ([]T, bool) {
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	var values []T
	if err := json.Unmarshal(data, &values); err != nil {
		_ = c.redis.Del(ctx, key).Err()
		return nil, false
	}
	return values, true
}

func (c *Cache[T]) store(ctx context.Context, key string, values []T) {
	data, err := json.Marshal(values)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}
