//go:build integration

package cache

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis starts a Redis container and returns a client.
func setupRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	cleanup := func() {
		client.Close()
		container.Terminate(ctx)
	}

	return client, cleanup
}

func TestRedisStore_SetGetDelete(t *testing.T) {
	client, cleanup := setupRedis(t)
	defer cleanup()

	ctx := context.Background()
	store := NewRedisStore(client)

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get(missing) error = %v, want ErrCacheMiss", err)
	}

	if err := store.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, err := store.Get(ctx, "k")
	if err != nil || string(got) != "v" {
		t.Fatalf("Get() = %q, %v", got, err)
	}

	ttl, err := client.TTL(ctx, "k").Result()
	if err != nil || ttl <= time.Minute {
		t.Errorf("redis TTL = %v, want slightly more than the entry TTL", ttl)
	}

	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(ctx, "k"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get after Delete error = %v, want ErrCacheMiss", err)
	}
}

func TestRedisStore_DeletePrefix(t *testing.T) {
	client, cleanup := setupRedis(t)
	defer cleanup()

	ctx := context.Background()
	store := NewRedisStore(client)

	for _, key := range []string{"api_cache_a", "api_cache_b", "other"} {
		if err := store.Set(ctx, key, []byte("x"), time.Minute); err != nil {
			t.Fatalf("Set(%s) failed: %v", key, err)
		}
	}

	if err := store.DeletePrefix(ctx, Namespace); err != nil {
		t.Fatalf("DeletePrefix failed: %v", err)
	}

	n, err := client.Exists(ctx, "api_cache_a", "api_cache_b").Result()
	if err != nil || n != 0 {
		t.Errorf("namespaced keys left: %d (%v)", n, err)
	}
	if _, err := store.Get(ctx, "other"); err != nil {
		t.Errorf("unrelated key removed: %v", err)
	}
}

func TestTiered_RedisReloadRoundTrip(t *testing.T) {
	client, cleanup := setupRedis(t)
	defer cleanup()

	ctx := context.Background()
	payload := []byte(`{"success":true,"data":[{"id":42,"status":"Upcoming"}]}`)

	first := NewTiered(NewRedisStore(client), testLogger())
	first.Set(ctx, "upcoming_games", payload, 5*time.Minute)

	second := NewTiered(NewRedisStore(client), testLogger())
	got, ok := second.Get(ctx, "upcoming_games")
	if !ok {
		t.Fatal("reloaded cache missed")
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("reloaded data = %s, want %s", got, payload)
	}
}
