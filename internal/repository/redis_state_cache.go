package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"companion-server/internal/domain"
)

// Compile-time check
var _ RelationshipStateRepository = (*RedisStateCache)(nil)

// RedisStateCache - сквозной кэш горячих состояний поверх основного
// хранилища. Чтение сначала идет в Redis; запись всегда проходит через
// inner и затем обновляет кэш (write-through). Ошибки Redis не фатальны:
// кэш деградирует до прямых обращений к inner.
type RedisStateCache struct {
	inner  RelationshipStateRepository
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisStateCache создает кэширующую обертку.
func NewRedisStateCache(inner RelationshipStateRepository, client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisStateCache {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &RedisStateCache{
		inner:  inner,
		client: client,
		ttl:    ttl,
		logger: logger.Named("RedisStateCache"),
	}
}

func stateCacheKey(userID, characterID uuid.UUID) string {
	return fmt.Sprintf("relationship_state:%s:%s", userID, characterID)
}

// Get пробует кэш, затем основное хранилище.
func (c *RedisStateCache) Get(ctx context.Context, userID, characterID uuid.UUID) (*domain.RelationshipState, error) {
	key := stateCacheKey(userID, characterID)

	data, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var cached cachedState
		if jsonErr := json.Unmarshal(data, &cached); jsonErr == nil {
			st := cached.State
			st.Version = cached.Version
			return &st, nil
		}
		// Битая запись в кэше: убираем и идем в основное хранилище.
		c.client.Del(ctx, key)
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("redis get failed, falling back to inner", zap.Error(err))
	}

	st, err := c.inner.Get(ctx, userID, characterID)
	if err != nil {
		return nil, err
	}
	c.put(ctx, st)
	return st, nil
}

// Save пишет через основное хранилище и обновляет кэш.
func (c *RedisStateCache) Save(ctx context.Context, st *domain.RelationshipState, expectedVersion int64) error {
	if err := c.inner.Save(ctx, st, expectedVersion); err != nil {
		// При конфликте версий кэш мог отдать устаревшее состояние -
		// инвалидируем, чтобы следующий Get перечитал основное хранилище.
		if errors.Is(err, domain.ErrVersionConflict) {
			c.client.Del(ctx, stateCacheKey(st.UserID, st.CharacterID))
		}
		return err
	}
	c.put(ctx, st)
	return nil
}

// Delete стирает пару из обоих хранилищ.
func (c *RedisStateCache) Delete(ctx context.Context, userID, characterID uuid.UUID) error {
	if err := c.inner.Delete(ctx, userID, characterID); err != nil {
		return err
	}
	if err := c.client.Del(ctx, stateCacheKey(userID, characterID)).Err(); err != nil {
		c.logger.Warn("redis del failed", zap.Error(err))
	}
	return nil
}

// AppendTurnRecord не кэшируется.
func (c *RedisStateCache) AppendTurnRecord(ctx context.Context, rec *domain.TurnRecord) error {
	return c.inner.AppendTurnRecord(ctx, rec)
}

// cachedState сериализует состояние вместе с версией: Version не входит в
// JSON самого состояния.
type cachedState struct {
	State   domain.RelationshipState `json:"state"`
	Version int64                    `json:"version"`
}

func (c *RedisStateCache) put(ctx context.Context, st *domain.RelationshipState) {
	data, err := json.Marshal(cachedState{State: *st, Version: st.Version})
	if err != nil {
		c.logger.Warn("failed to marshal state for cache", zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, stateCacheKey(st.UserID, st.CharacterID), data, c.ttl).Err(); err != nil {
		c.logger.Warn("redis set failed", zap.Error(err))
	}
}
