//go:build integration

package gateway

import (
	"context"
	"net/http"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/sportsorca/nba-proxy/internal/testutil"
	"github.com/sportsorca/nba-proxy/pkg/cache"
)

func TestGateway_RedisCacheAcrossInstances(t *testing.T) {
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}
	defer container.Terminate(ctx)

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: host + ":" + port.Port()})
	defer redisClient.Close()

	mock := testutil.NewMockUpstream()
	defer mock.Close()
	mock.SetResponse("/games/upcoming", testutil.NewJSONResponse(http.StatusOK, upcomingEnvelope(10, 11, 12)))

	first, _ := newTestGateway(t, mock, cache.NewRedisStore(redisClient))
	want, err := first.UpcomingGames(ctx)
	if err != nil {
		t.Fatalf("UpcomingGames() error = %v", err)
	}

	keys, err := redisClient.Keys(ctx, cache.Namespace+"*").Result()
	if err != nil || len(keys) != 1 {
		t.Fatalf("redis keys = %v, %v", keys, err)
	}

	second, _ := newTestGateway(t, mock, cache.NewRedisStore(redisClient))
	got, err := second.UpcomingGames(ctx)
	if err != nil {
		t.Fatalf("UpcomingGames() after restart error = %v", err)
	}

	if len(got.Data) != 3 || got.Data[2].ID != want.Data[2].ID {
		t.Errorf("reloaded = %+v", got.Data)
	}
	if calls := len(mock.RequestsTo("/games/upcoming")); calls != 1 {
		t.Errorf("backend calls = %d, want 1", calls)
	}
}
