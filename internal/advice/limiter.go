package advice

import (
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// limiter keeps one token bucket per user.
type limiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[int64]*rate.Limiter
}

func newLimiter(perMinute float64, burst int) *limiter {
	l := &limiter{limit: rate.Inf, burst: burst, limiters: make(map[int64]*rate.Limiter)}
	if perMinute > 0 {
		l.limit = rate.Limit(perMinute / 60)
	}
	if l.burst < 1 {
		l.burst = 1
	}
	return l
}

func (l *limiter) allow(userID int64, now time.Time) bool {
	if l.limit == rate.Inf {
		return true
	}
	l.mu.Lock()
	lim, ok := l.limiters[userID]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[userID] = lim
	}
	l.mu.Unlock()
	return lim.AllowN(now, 1)
}

// prune removes buckets that are full at now. A fresh bucket starts full,
// so dropping one loses no state.
func (l *limiter) prune(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for id, lim := range l.limiters {
		if lim.TokensAt(now) >= float64(l.burst) {
			delete(l.limiters, id)
			n++
		}
	}
	return n
}

func (l *limiter) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

type lockedRand struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func newLockedRand(r *rand.Rand) *lockedRand {
	if r == nil {
		r = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &lockedRand{rnd: r}
}

func (l *lockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rnd.Intn(n)
}
