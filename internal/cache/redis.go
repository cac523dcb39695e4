package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"studentpay-backend/internal/metrics"
)

// Cache keys
const (
	VerificationKeyFmt       = "receipt:verify:%s"
	DepartmentPaymentsKeyFmt = "payments:department:%d"
	BankListKey              = "banks:list"
)

// TTLs
const (
	VerificationTTL = 10 * time.Minute
	PaymentsTTL     = 5 * time.Minute
	BanksTTL        = 24 * time.Hour
)

// Cache is a thin JSON layer over redis. A nil *Cache (or one without a client)
// behaves as an always-missing cache so callers degrade to the database.
type Cache struct {
	client *redis.Client
}

func New(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// Connect dials redis and pings it. On failure the returned Cache is disabled.
func Connect(addr, password string, db int) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return &Cache{}, err
	}
	return &Cache{client: client}, nil
}

func (c *Cache) enabled() bool {
	return c != nil && c.client != nil
}

func (c *Cache) Client() *redis.Client {
	if c == nil {
		return nil
	}
	return c.client
}

// GetCached returns raw bytes for a key
func (c *Cache) GetCached(ctx context.Context, key string) ([]byte, bool) {
	if !c.enabled() {
		return nil, false
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}
	metrics.CacheLookups.WithLabelValues("hit").Inc()
	return data, true
}

// SetCached stores data with a TTL
func (c *Cache) SetCached(ctx context.Context, key string, data []byte, ttl time.Duration) {
	if !c.enabled() {
		return
	}
	c.client.Set(ctx, key, data, ttl)
}

// GetJSON decodes a cached value into dest and reports whether it was found
func (c *Cache) GetJSON(ctx context.Context, key string, dest any) bool {
	data, ok := c.GetCached(ctx, key)
	if !ok {
		return false
	}
	return json.Unmarshal(data, dest) == nil
}

func (c *Cache) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) {
	if !c.enabled() {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	c.SetCached(ctx, key, data, ttl)
}

// InvalidateKeys removes specific cache keys
func (c *Cache) InvalidateKeys(ctx context.Context, keys ...string) {
	if !c.enabled() || len(keys) == 0 {
		return
	}
	c.client.Del(ctx, keys...)
}

// InvalidatePattern removes all keys matching a glob pattern
func (c *Cache) InvalidatePattern(ctx context.Context, pattern string) {
	if !c.enabled() {
		return
	}
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if iter.Err() == nil && len(keys) > 0 {
		c.client.Del(ctx, keys...)
	}
}

// InvalidateDepartmentPayments clears the public payment list of a department.
// Called when: CreatePayment, UpdatePayment, DeletePayment
func (c *Cache) InvalidateDepartmentPayments(ctx context.Context, departmentID int) {
	c.InvalidateKeys(ctx, DepartmentPaymentsKey(departmentID))
}

func VerificationKey(hash string) string {
	return fmt.Sprintf(VerificationKeyFmt, hash)
}

func DepartmentPaymentsKey(departmentID int) string {
	return fmt.Sprintf(DepartmentPaymentsKeyFmt, departmentID)
}

// Ping returns the redis error, or an error when the cache is disabled
func (c *Cache) Ping(ctx context.Context) error {
	if !c.enabled() {
		return fmt.Errorf("redis not configured")
	}
	return c.client.Ping(ctx).Err()
}

func (c *Cache) Close() error {
	if !c.enabled() {
		return nil
	}
	return c.client.Close()
}
