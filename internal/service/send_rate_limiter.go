package service

import (
	"sync"
	"time"
)

// SendRateLimiter limita cuantos mensajes puede enviar un usuario por ventana.
// Allow consume un cupo; Refund lo devuelve cuando el envio no llego a guardarse.
type SendRateLimiter interface {
	Allow(sender string) bool
	Refund(sender string)
}

type noopRateLimiter struct{}

func (noopRateLimiter) Allow(string) bool { return true }
func (noopRateLimiter) Refund(string) {}

type memoryRateLimiter struct {
	mu     sync.Mutex
	window time.Duration
	max    int
	hits   map[string][]time.Time
	now    func() time.Time
}

// NewMemoryRateLimiter devuelve un limitador de ventana deslizante en memoria.
// Con max <= 0 el limite queda deshabilitado.
func NewMemoryRateLimiter(window time.Duration, max int) SendRateLimiter {
	if max <= 0 {
		return noopRateLimiter{}
	}
	if window <= 0 {
		window = time.Minute
	}
	return &memoryRateLimiter{
		window: window,
		max:    max,
		hits:   make(map[string][]time.Time),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (l *memoryRateLimiter) Allow(sender string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	cutoff := now.Add(-l.window)
	entries := l.hits[sender]
	kept := entries[:0]
	for _, ts := range entries {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.hits[sender] = kept
		return false
	}
	l.hits[sender] = append(kept, now)
	return true
}

func (l *memoryRateLimiter) Refund(sender string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entries := l.hits[sender]
	if len(entries) == 0 {
		return
	}
	l.hits[sender] = entries[:len(entries)-1]
}
