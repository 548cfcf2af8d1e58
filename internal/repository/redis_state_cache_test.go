package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"companion-server/internal/domain"
	"companion-server/internal/repository"
)

func newCacheFixture(t *testing.T) (*repository.RedisStateCache, *repository.MemoryStateRepository, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	inner := repository.NewMemoryStateRepository()
	cache := repository.NewRedisStateCache(inner, client, time.Minute, zap.NewNop())
	return cache, inner, mr
}

func TestRedisStateCacheReadThrough(t *testing.T) {
	ctx := context.Background()
	cache, inner, _ := newCacheFixture(t)

	userID := uuid.New()
	characterID := uuid.New()
	st := domain.NewRelationshipState(userID, characterID, time.Now())
	require.NoError(t, inner.Save(ctx, st, 0))

	// Первое чтение идет в основное хранилище и прогревает кэш.
	got, err := cache.Get(ctx, userID, characterID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Version)

	// После удаления из основного хранилища кэш все еще отвечает.
	require.NoError(t, inner.Delete(ctx, userID, characterID))
	got, err = cache.Get(ctx, userID, characterID)
	require.NoError(t, err)
	assert.Equal(t, userID, got.UserID)
	assert.Equal(t, int64(1), got.Version)
}

func TestRedisStateCacheWriteThrough(t *testing.T) {
	ctx := context.Background()
	cache, inner, _ := newCacheFixture(t)

	userID := uuid.New()
	characterID := uuid.New()
	st := domain.NewRelationshipState(userID, characterID, time.Now())
	st.EmotionScore = 42

	require.NoError(t, cache.Save(ctx, st, 0))

	// Запись дошла до основного хранилища.
	fromInner, err := inner.Get(ctx, userID, characterID)
	require.NoError(t, err)
	assert.Equal(t, 42.0, fromInner.EmotionScore)

	// И лежит в кэше вместе с версией.
	fromCache, err := cache.Get(ctx, userID, characterID)
	require.NoError(t, err)
	assert.Equal(t, 42.0, fromCache.EmotionScore)
	assert.Equal(t, int64(1), fromCache.Version)
}

func TestRedisStateCacheConflictInvalidates(t *testing.T) {
	ctx := context.Background()
	cache, inner, _ := newCacheFixture(t)

	userID := uuid.New()
	characterID := uuid.New()
	st := domain.NewRelationshipState(userID, characterID, time.Now())
	require.NoError(t, cache.Save(ctx, st, 0))

	// Конкурент пишет мимо кэша: версия в основном хранилище уходит вперед.
	concurrent, err := inner.Get(ctx, userID, characterID)
	require.NoError(t, err)
	concurrent.EmotionScore = 10
	require.NoError(t, inner.Save(ctx, concurrent, 1))

	// Запись по устаревшей версии отклоняется и инвалидирует кэш.
	stale := st.Clone()
	stale.Version = 1
	err = cache.Save(ctx, stale, 1)
	assert.ErrorIs(t, err, domain.ErrVersionConflict)

	fresh, err := cache.Get(ctx, userID, characterID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), fresh.Version)
	assert.Equal(t, 10.0, fresh.EmotionScore)
}

func TestRedisStateCacheCorruptEntry(t *testing.T) {
	ctx := context.Background()
	cache, inner, mr := newCacheFixture(t)

	userID := uuid.New()
	characterID := uuid.New()
	st := domain.NewRelationshipState(userID, characterID, time.Now())
	require.NoError(t, inner.Save(ctx, st, 0))

	// Битая запись в кэше не должна ронять чтение.
	require.NoError(t, mr.Set("relationship_state:"+userID.String()+":"+characterID.String(), "{not json"))

	got, err := cache.Get(ctx, userID, characterID)
	require.NoError(t, err)
	assert.Equal(t, userID, got.UserID)
}

func TestRedisStateCacheDelete(t *testing.T) {
	ctx := context.Background()
	cache, _, mr := newCacheFixture(t)

	userID := uuid.New()
	characterID := uuid.New()
	st := domain.NewRelationshipState(userID, characterID, time.Now())
	require.NoError(t, cache.Save(ctx, st, 0))

	require.NoError(t, cache.Delete(ctx, userID, characterID))

	assert.False(t, mr.Exists("relationship_state:"+userID.String()+":"+characterID.String()))
	_, err := cache.Get(ctx, userID, characterID)
	assert.ErrorIs(t, err, domain.ErrStateNotFound)
}

func TestRedisStateCacheDegradesWithoutRedis(t *testing.T) {
	ctx := context.Background()
	cache, inner, mr := newCacheFixture(t)

	userID := uuid.New()
	characterID := uuid.New()
	st := domain.NewRelationshipState(userID, characterID, time.Now())
	require.NoError(t, inner.Save(ctx, st, 0))

	mr.Close()

	// Кэш деградирует до прямых обращений к основному хранилищу.
	got, err := cache.Get(ctx, userID, characterID)
	require.NoError(t, err)
	assert.Equal(t, userID, got.UserID)
}
