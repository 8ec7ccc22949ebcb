package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type mockRedisKVClient struct {
	lastSetKey string
	lastSetVal interface{}
	lastSetTTL time.Duration
	lastExists []string
	lastDel    []string

	setErr    error
	existsErr error
	delErr    error
	existsN   int64
	delN      int64
}

func (m *mockRedisKVClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	m.lastSetKey = key
	m.lastSetVal = value
	m.lastSetTTL = expiration
	cmd := redis.NewStatusCmd(ctx)
	if m.setErr != nil {
		cmd.SetErr(m.setErr)
		return cmd
	}
	cmd.SetVal("OK")
	return cmd
}

func (m *mockRedisKVClient) Exists(ctx context.Context, keys ...string) *redis.IntCmd {
	m.lastExists = keys
	cmd := redis.NewIntCmd(ctx)
	if m.existsErr != nil {
		cmd.SetErr(m.existsErr)
		return cmd
	}
	cmd.SetVal(m.existsN)
	return cmd
}

func (m *mockRedisKVClient) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	m.lastDel = keys
	cmd := redis.NewIntCmd(ctx)
	if m.delErr != nil {
		cmd.SetErr(m.delErr)
		return cmd
	}
	cmd.SetVal(m.delN)
	return cmd
}

func TestMemoryRefreshTokenStore_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)
	store := &memoryRefreshTokenStore{
		items: make(map[string]time.Time),
		now:   func() time.Time { return now },
	}

	ok, err := store.Exists(ctx, "missing")
	if err != nil || ok {
		t.Fatalf("expected missing token false,nil; got %v,%v", ok, err)
	}

	if err := store.Store(ctx, "jti-1", "u1", time.Minute); err != nil {
		t.Fatalf("store failed: %v", err)
	}
	ok, err = store.Exists(ctx, "jti-1")
	if err != nil || !ok {
		t.Fatalf("expected token exists, got %v,%v", ok, err)
	}

	now = now.Add(2 * time.Minute)
	ok, err = store.Exists(ctx, "jti-1")
	if err != nil || ok {
		t.Fatalf("expected token expired, got %v,%v", ok, err)
	}
}

func TestMemoryRefreshTokenStore_RevokeAndEmptyJTI(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryRefreshTokenStore()
	if err := store.Store(ctx, "", "u1", time.Minute); err != nil {
		t.Fatalf("empty jti store should be no-op, got %v", err)
	}
	if err := store.Store(ctx, "jti-2", "u1", time.Minute); err != nil {
		t.Fatalf("store failed: %v", err)
	}
	if err := store.Revoke(ctx, "jti-2"); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	ok, err := store.Exists(ctx, "jti-2")
	if err != nil || ok {
		t.Fatalf("expected revoked token absent, got %v,%v", ok, err)
	}
}

func TestRedisRefreshTokenStore_Keys(t *testing.T) {
	ctx := context.Background()
	mock := &mockRedisKVClient{existsN: 1}
	store := &redisRefreshTokenStore{client: mock, prefix: "dreams:auth:refresh:"}

	if err := store.Store(ctx, "j1", "u1", time.Hour); err != nil {
		t.Fatalf("store failed: %v", err)
	}
	if mock.lastSetKey != "dreams:auth:refresh:j1" || mock.lastSetVal != "u1" || mock.lastSetTTL != time.Hour {
		t.Fatalf("unexpected set: key=%q val=%v ttl=%v", mock.lastSetKey, mock.lastSetVal, mock.lastSetTTL)
	}

	ok, err := store.Exists(ctx, "j1")
	if err != nil || !ok {
		t.Fatalf("expected exists true,nil; got %v,%v", ok, err)
	}
	if len(mock.lastExists) != 1 || mock.lastExists[0] != "dreams:auth:refresh:j1" {
		t.Fatalf("unexpected exists key: %+v", mock.lastExists)
	}

	if err := store.Revoke(ctx, "j1"); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	if len(mock.lastDel) != 1 || mock.lastDel[0] != "dreams:auth:refresh:j1" {
		t.Fatalf("unexpected del key: %+v", mock.lastDel)
	}
}

func TestRedisRefreshTokenStore_ErrorPathsAndEmptyJTI(t *testing.T) {
	ctx := context.Background()
	mock := &mockRedisKVClient{
		setErr:    errors.New("set failed"),
		existsErr: errors.New("exists failed"),
		delErr:    errors.New("del failed"),
	}
	store := &redisRefreshTokenStore{client: mock, prefix: "dreams:auth:refresh:"}

	if err := store.Store(ctx, "", "u1", time.Minute); err != nil {
		t.Fatalf("empty jti store should be no-op, got %v", err)
	}
	if ok, err := store.Exists(ctx, ""); err != nil || ok {
		t.Fatalf("empty jti exists should be false,nil; got %v,%v", ok, err)
	}
	if err := store.Revoke(ctx, ""); err != nil {
		t.Fatalf("empty jti revoke should be no-op, got %v", err)
	}

	if err := store.Store(ctx, "j2", "u1", time.Minute); err == nil {
		t.Fatalf("expected store error")
	}
	if _, err := store.Exists(ctx, "j2"); err == nil {
		t.Fatalf("expected exists error")
	}
	if err := store.Revoke(ctx, "j2"); err == nil {
		t.Fatalf("expected revoke error")
	}
}

func TestMemoryRefreshTokenStore_ConsumeOnce(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store := &memoryRefreshTokenStore{
		items: make(map[string]time.Time),
		now:   func() time.Time { return now },
	}
	_ = store.Store(ctx, "live", "u1", time.Minute)
	_ = store.Store(ctx, "stale", "u1", -time.Minute)

	if ok, err := store.Consume(ctx, "live"); err != nil || !ok {
		t.Fatalf("expected first consume to succeed, got ok=%v err=%v", ok, err)
	}
	if ok, _ := store.Consume(ctx, "live"); ok {
		t.Fatalf("expected second consume to fail")
	}
	if ok, _ := store.Consume(ctx, "stale"); ok {
		t.Fatalf("expected expired jti to be rejected")
	}
	if ok, _ := store.Exists(ctx, "stale"); ok {
		t.Fatalf("expected expired jti to be removed")
	}
}

func TestRedisRefreshTokenStore_Consume(t *testing.T) {
	ctx := context.Background()
	mock := &mockRedisKVClient{delN: 1}
	store := &redisRefreshTokenStore{client: mock, prefix: "dreams:auth:refresh:"}

	ok, err := store.Consume(ctx, "j1")
	if err != nil || !ok {
		t.Fatalf("expected consume to succeed, got ok=%v err=%v", ok, err)
	}
	if len(mock.lastDel) != 1 || mock.lastDel[0] != "dreams:auth:refresh:j1" {
		t.Fatalf("unexpected del keys: %v", mock.lastDel)
	}
	if len(mock.lastExists) != 0 {
		t.Fatalf("consume must not issue a separate EXISTS, got %v", mock.lastExists)
	}

	mock.delN = 0
	if ok, err := store.Consume(ctx, "j1"); err != nil || ok {
		t.Fatalf("expected already consumed jti to fail, got ok=%v err=%v", ok, err)
	}

	mock.delErr = errors.New("redis down")
	if _, err := store.Consume(ctx, "j1"); err == nil {
		t.Fatalf("expected redis error")
	}
	if ok, err := store.Consume(ctx, " "); err != nil || ok {
		t.Fatalf("expected blank jti to be rejected without error")
	}
}
