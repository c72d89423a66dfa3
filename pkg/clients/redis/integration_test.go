//go:build integration

package redis_test

import (
	"context"
	"errors"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/vidhive/vidhive-server/internal/testutil/containers"
	"github.com/vidhive/vidhive-server/pkg/clients/redis"
)

// fixedWindowScript is the INCR-and-expire pattern the rate limiter
// sends through Eval. Tested here against a real server because the
// unit tests can only fake the script result.
const fixedWindowScript = `
local count = redis.call('INCR', KEYS[1])
if count == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return count
`

// setupClient starts a Redis container and returns a connected client.
// Container and client teardown are registered on t.
func setupClient(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	result, err := containers.StartRedis(ctx)
	if err != nil {
		t.Fatalf("failed to start redis container: %v", err)
	}
	t.Cleanup(func() {
		if err := result.Container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate redis container: %v", err)
		}
	})

	client, err := redis.NewClient(ctx, &redis.Config{URI: result.ConnString})
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	t.Cleanup(func() {
		if err := client.Close(); err != nil {
			t.Logf("failed to close client: %v", err)
		}
	})

	return client
}

func TestIntegration_SetGetRoundTrip(t *testing.T) {
	client := setupClient(t)
	ctx := context.Background()

	if err := client.Set(ctx, "login:attempts:alice", "2", time.Minute); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	val, err := client.Get(ctx, "login:attempts:alice")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if val != "2" {
		t.Errorf("Get() = %q, want %q", val, "2")
	}
}

func TestIntegration_Get_MissingKey(t *testing.T) {
	client := setupClient(t)

	_, err := client.Get(context.Background(), "login:attempts:nobody")
	if err == nil {
		t.Fatal("Get() expected error for missing key, got nil")
	}
	if !errors.Is(err, goredis.Nil) {
		t.Errorf("Get() error = %v, want wrapping redis.Nil", err)
	}
}

func TestIntegration_IncrCounter(t *testing.T) {
	client := setupClient(t)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := client.Incr(ctx, "login:attempts:bob")
		if err != nil {
			t.Fatalf("Incr() error: %v", err)
		}
		if got != want {
			t.Errorf("Incr() = %d, want %d", got, want)
		}
	}
}

func TestIntegration_ExpireTTL(t *testing.T) {
	client := setupClient(t)
	ctx := context.Background()

	if _, err := client.Incr(ctx, "login:attempts:carol"); err != nil {
		t.Fatalf("Incr() error: %v", err)
	}

	ok, err := client.Expire(ctx, "login:attempts:carol", time.Minute)
	if err != nil {
		t.Fatalf("Expire() error: %v", err)
	}
	if !ok {
		t.Error("Expire() = false, want true for existing key")
	}

	ttl, err := client.TTL(ctx, "login:attempts:carol")
	if err != nil {
		t.Fatalf("TTL() error: %v", err)
	}
	if ttl <= 0 || ttl > time.Minute {
		t.Errorf("TTL() = %v, want within (0, 1m]", ttl)
	}
}

func TestIntegration_Del(t *testing.T) {
	client := setupClient(t)
	ctx := context.Background()

	if err := client.Set(ctx, "login:attempts:dave", "5", time.Minute); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	deleted, err := client.Del(ctx, "login:attempts:dave")
	if err != nil {
		t.Fatalf("Del() error: %v", err)
	}
	if deleted != 1 {
		t.Errorf("Del() = %d, want 1", deleted)
	}

	n, err := client.Exists(ctx, "login:attempts:dave")
	if err != nil {
		t.Fatalf("Exists() error: %v", err)
	}
	if n != 0 {
		t.Errorf("Exists() after Del = %d, want 0", n)
	}
}

func TestIntegration_FixedWindowScript(t *testing.T) {
	client := setupClient(t)
	ctx := context.Background()
	keys := []string{"ratelimit:login:alice"}

	for want := int64(1); want <= 3; want++ {
		result, err := client.Eval(ctx, fixedWindowScript, keys, 60_000)
		if err != nil {
			t.Fatalf("Eval() error: %v", err)
		}
		if result != want {
			t.Errorf("Eval() = %v, want %d", result, want)
		}
	}

	// PEXPIRE only fires on the first increment, so the window TTL
	// must survive subsequent calls.
	ttl, err := client.TTL(ctx, keys[0])
	if err != nil {
		t.Fatalf("TTL() error: %v", err)
	}
	if ttl <= 0 || ttl > time.Minute {
		t.Errorf("TTL() = %v, want within (0, 1m]", ttl)
	}
}

func TestIntegration_Health(t *testing.T) {
	client := setupClient(t)

	if err := client.Health(context.Background()); err != nil {
		t.Fatalf("Health() error: %v", err)
	}
}
