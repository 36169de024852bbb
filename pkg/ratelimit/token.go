package ratelimit

import (
	"context"
	"sync"
	"time"
)

type TokenLimiter struct {
	sync.Mutex
	capacity     int           // max tokens per refill period
	remaining    int           // tokens left in the current window
	refillPeriod time.Duration // usually one minute
	lastRefill   time.Time
}

func NewTokenLimiter(tokensPerMinute int) *TokenLimiter {
	return &TokenLimiter{
		capacity:     tokensPerMinute,
		remaining:    tokensPerMinute,
		refillPeriod: time.Minute,
		lastRefill:   time.Now(),
	}
}

func (l *TokenLimiter) Wait(ctx context.Context, tokens int) error {
	for {
		l.refill()

		l.Lock()
		if l.remaining >= tokens {
			l.remaining -= tokens
			l.Unlock()
			return nil
		}
		l.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
			// retry shortly
		}
	}
}

func (l *TokenLimiter) refill() {
	l.Lock()
	defer l.Unlock()

	now := time.Now()
	if now.Sub(l.lastRefill) >= l.refillPeriod {
		l.remaining = l.capacity
		l.lastRefill = now
	}
}

func (l *TokenLimiter) GetRemaining() int {
	l.Lock()
	defer l.Unlock()
	return l.remaining
}
