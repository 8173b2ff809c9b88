package ratelimit

import "time"

func LocalLimiterCount(l Limiter) int {
	impl := l.(*limiter)
	impl.mu.Lock()
	defer impl.mu.Unlock()
	return len(impl.local)
}

func SetLastSeen(l Limiter, key string, lastSeen time.Time) {
	impl := l.(*limiter)
	impl.mu.Lock()
	defer impl.mu.Unlock()
	impl.local[key].lastSeen = lastSeen
}

func EvictIdle(l Limiter) {
	l.(*limiter).evictIdle()
}
