package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestMemoryRateLimiter_SlidingWindow(t *testing.T) {
	l := NewMemoryRateLimiter(time.Minute, 2).(*memoryRateLimiter)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	if !l.Allow("A") || !l.Allow("A") {
		t.Fatalf("expected first two sends allowed")
	}
	if l.Allow("A") {
		t.Fatalf("expected third send denied")
	}
	if !l.Allow("B") {
		t.Fatalf("expected separate budget per sender")
	}

	now = now.Add(61 * time.Second)
	if !l.Allow("A") {
		t.Fatalf("expected send allowed after window")
	}
}

func TestMemoryRateLimiter_Refund(t *testing.T) {
	l := NewMemoryRateLimiter(time.Minute, 1).(*memoryRateLimiter)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	l.Refund("A")
	if !l.Allow("A") {
		t.Fatalf("expected refund without prior sends to be a no-op")
	}
	if l.Allow("A") {
		t.Fatalf("expected second send denied")
	}
	l.Refund("A")
	if !l.Allow("A") {
		t.Fatalf("expected refunded slot to be reusable")
	}
}

func TestMemoryRateLimiter_Disabled(t *testing.T) {
	l := NewMemoryRateLimiter(time.Minute, 0)
	for i := 0; i < 100; i++ {
		if !l.Allow("A") {
			t.Fatalf("expected disabled limiter to allow everything")
		}
	}
}

type mockRedisEvaler struct {
	lastScript string
	lastKeys   []string
	lastArgs   []interface{}
	result     int64
	err        error
}

func (m *mockRedisEvaler) Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	m.lastScript = script
	m.lastKeys = keys
	m.lastArgs = args
	cmd := redis.NewCmd(ctx)
	if m.err != nil {
		cmd.SetErr(m.err)
		return cmd
	}
	cmd.SetVal(m.result)
	return cmd
}

func TestRedisSendRateLimiterAllow(t *testing.T) {
	t.Run("nil receiver fail-open", func(t *testing.T) {
		var l *redisSendRateLimiter
		if !l.Allow("A") {
			t.Fatalf("expected fail-open for nil limiter")
		}
	})

	t.Run("nil client disables limiter", func(t *testing.T) {
		if _, ok := NewRedisSendRateLimiter(nil, time.Minute, 3).(noopRateLimiter); !ok {
			t.Fatalf("expected noop limiter without client")
		}
	})

	t.Run("empty sender rejected", func(t *testing.T) {
		l := &redisSendRateLimiter{client: &mockRedisEvaler{result: 1}, window: time.Minute, max: 3, prefix: "chat:send:rl:"}
		if l.Allow("  ") {
			t.Fatalf("expected empty sender to be rejected")
		}
	})

	t.Run("allow when count within max", func(t *testing.T) {
		mock := &mockRedisEvaler{result: 3}
		l := &redisSendRateLimiter{client: mock, window: 2 * time.Minute, max: 3, prefix: "chat:send:rl:"}
		if !l.Allow(" Vamshi ") {
			t.Fatalf("expected allow when count <= max")
		}
		if len(mock.lastKeys) != 1 || mock.lastKeys[0] != "chat:send:rl:Vamshi" {
			t.Fatalf("unexpected key, got %+v", mock.lastKeys)
		}
		if len(mock.lastArgs) != 1 || mock.lastArgs[0] != 120 {
			t.Fatalf("expected TTL seconds=120, got %+v", mock.lastArgs)
		}
		if mock.lastScript != redisSendAllowScript {
			t.Fatalf("expected script to match")
		}
	})

	t.Run("deny when count exceeds max", func(t *testing.T) {
		l := &redisSendRateLimiter{client: &mockRedisEvaler{result: 4}, window: time.Minute, max: 3, prefix: "chat:send:rl:"}
		if l.Allow("A") {
			t.Fatalf("expected deny when count > max")
		}
	})

	t.Run("redis error fail-open", func(t *testing.T) {
		l := &redisSendRateLimiter{client: &mockRedisEvaler{err: errors.New("redis down")}, window: time.Minute, max: 3, prefix: "chat:send:rl:"}
		if !l.Allow("A") {
			t.Fatalf("expected fail-open on redis errors")
		}
	})
}

func TestRedisSendRateLimiterRefund(t *testing.T) {
	t.Run("decrements sender key", func(t *testing.T) {
		mock := &mockRedisEvaler{result: 0}
		l := &redisSendRateLimiter{client: mock, window: time.Minute, max: 3, prefix: "chat:send:rl:"}
		l.Refund(" Vamshi ")
		if mock.lastScript != redisSendRefundScript {
			t.Fatalf("expected refund script")
		}
		if len(mock.lastKeys) != 1 || mock.lastKeys[0] != "chat:send:rl:Vamshi" {
			t.Fatalf("unexpected key, got %+v", mock.lastKeys)
		}
	})

	t.Run("empty sender skipped", func(t *testing.T) {
		mock := &mockRedisEvaler{}
		l := &redisSendRateLimiter{client: mock, window: time.Minute, max: 3, prefix: "chat:send:rl:"}
		l.Refund("  ")
		if mock.lastScript != "" {
			t.Fatalf("expected no redis call, got %q", mock.lastScript)
		}
	})

	t.Run("redis error ignored", func(t *testing.T) {
		l := &redisSendRateLimiter{client: &mockRedisEvaler{err: errors.New("redis down")}, window: time.Minute, max: 3, prefix: "chat:send:rl:"}
		l.Refund("A")
	})
}
