package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"bloodlink-backend/shared/config"
)

// CacheManager fronts the derived read models (dashboard aggregates) with a
// short-TTL Redis cache. The engine stores are always the source of truth;
// a cache miss or a dead Redis only costs a recount.
type CacheManager struct {
	client *redis.Client
	ctx    context.Context
}

var globalCacheManager *CacheManager

// Cache key prefixes.
const (
	KeyRequestStats   = "stats:requests"
	KeyInventoryStats = "stats:inventory"
)

// InitCacheManager initializes the global cache manager
func InitCacheManager() error {
	cfg := config.GetConfig()

	redisDB, err := strconv.Atoi(cfg.RedisDB)
	if err != nil {
		log.Printf("❌ Invalid Redis DB number: %s, using default 0", cfg.RedisDB)
		redisDB = 0
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       redisDB,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %v", err)
	}

	globalCacheManager = &CacheManager{
		client: client,
		ctx:    ctx,
	}

	log.Printf("✅ Redis Cache Manager initialized successfully - %s:%s DB:%d",
		cfg.RedisHost, cfg.RedisPort, redisDB)

	return nil
}

// GetCacheManager returns the global cache manager instance, or nil when
// Redis is unavailable. All methods are nil-safe.
func GetCacheManager() *CacheManager {
	return globalCacheManager
}

// GetJSON loads a cached value into dest, reporting whether it was present.
func (cm *CacheManager) GetJSON(key string, dest interface{}) (bool, error) {
	if cm == nil {
		return false, nil
	}
	data, err := cm.client.Get(cm.ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON stores a value with the given TTL.
func (cm *CacheManager) SetJSON(key string, value interface{}, ttl time.Duration) error {
	if cm == nil {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return cm.client.Set(cm.ctx, key, data, ttl).Err()
}

// Invalidate drops the given keys, typically after a state transition.
func (cm *CacheManager) Invalidate(keys ...string) error {
	if cm == nil || len(keys) == 0 {
		return nil
	}
	return cm.client.Del(cm.ctx, keys...).Err()
}
