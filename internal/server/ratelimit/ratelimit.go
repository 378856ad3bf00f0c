// Package ratelimit limits requests per client and endpoint with token buckets.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Info contains information about rate limit status.
type Info struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

type bucket struct {
	limiter  *rate.Limiter
	burst    int
	lastSeen time.Time
}

// Limiter manages one token bucket per client, endpoint and method.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	config  *Config
	stop    chan struct{}
	done    chan struct{}
	now     func() time.Time
}

// NewLimiter creates a new rate limiter with the given configuration. When cleanup is
// enabled a goroutine evicts idle buckets until Stop is called.
func NewLimiter(config *Config) *Limiter {
	if config == nil {
		config = &Config{
			Enabled:         true,
			DefaultLimit:    600,
			DefaultWindow:   time.Minute,
			CleanupInterval: 5 * time.Minute,
		}
	}

	l := &Limiter{
		buckets: make(map[string]*bucket),
		config:  config,
		now:     time.Now,
	}
	if config.Enabled && config.CleanupInterval > 0 {
		l.stop = make(chan struct{})
		l.done = make(chan struct{})
		go l.cleanup(config.CleanupInterval)
	}
	return l
}

// Allow reports whether a request from clientID to endpoint may proceed, consuming a
// token when it does.
func (l *Limiter) Allow(clientID string, endpoint string, method string) (bool, Info) {
	if !l.config.Enabled || l.config.Whitelist[clientID] {
		return true, Info{Allowed: true}
	}
	if l.config.Blacklist[clientID] {
		return false, Info{}
	}

	ec := MatchEndpoint(endpoint, method, l.config.EndpointConfigs)
	if ec == nil {
		ec = &EndpointConfig{
			Limit:  l.config.DefaultLimit,
			Window: l.config.DefaultWindow,
			Burst:  l.config.DefaultLimit,
		}
	}
	if ec.Limit <= 0 || ec.Window <= 0 {
		return true, Info{Allowed: true}
	}

	now := l.now()
	b := l.bucket(clientID+":"+endpoint+":"+method, ec, now)

	info := Info{Limit: ec.Limit}
	r := b.limiter.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		info.RetryAfter = delay
	} else {
		info.Allowed = true
	}

	tokens := b.limiter.TokensAt(now)
	info.Remaining = max(int(tokens), 0)
	missing := float64(b.burst) - tokens
	info.ResetTime = now.Add(time.Duration(missing / float64(b.limiter.Limit()) * float64(time.Second)))
	return info.Allowed, info
}

func (l *Limiter) bucket(key string, ec *EndpointConfig, now time.Time) *bucket {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		burst := ec.Burst
		if burst <= 0 {
			burst = ec.Limit
		}
		every := rate.Limit(float64(ec.Limit) / ec.Window.Seconds())
		b = &bucket{limiter: rate.NewLimiter(every, burst), burst: burst}
		l.buckets[key] = b
	}
	b.lastSeen = now
	return b
}

func (l *Limiter) cleanup(interval time.Duration) {
	defer close(l.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.evictIdle(time.Hour)
		case <-l.stop:
			return
		}
	}
}

// evictIdle drops buckets not used within idle.
func (l *Limiter) evictIdle(idle time.Duration) {
	cutoff := l.now().Add(-idle)

	l.mu.Lock()
	defer l.mu.Unlock()
	for key, b := range l.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(l.buckets, key)
		}
	}
}

// Stop stops the cleanup goroutine and waits for it to exit.
func (l *Limiter) Stop() {
	if l.stop == nil {
		return
	}
	close(l.stop)
	<-l.done
	l.stop = nil
}

func (l *Limiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
