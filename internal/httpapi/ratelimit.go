package httpapi

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// limiterEntry is the rate limiter for a single client address.
type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterStore keeps one token bucket per client address and evicts idle
// entries in the background until Stop is called.
type limiterStore struct {
	requestsPerMinute int
	idleTTL           time.Duration

	mu       sync.Mutex
	limiters map[string]*limiterEntry

	ticker *time.Ticker
	done   chan struct{}
	once   sync.Once
}

func newLimiterStore(requestsPerMinute int) *limiterStore {
	s := &limiterStore{
		requestsPerMinute: requestsPerMinute,
		idleTTL:           10 * time.Minute,
		limiters:          make(map[string]*limiterEntry),
		ticker:            time.NewTicker(5 * time.Minute),
		done:              make(chan struct{}),
	}
	go s.evictIdle()
	return s
}

// Stop ends the eviction goroutine.
func (s *limiterStore) Stop() {
	s.once.Do(func() {
		s.ticker.Stop()
		close(s.done)
	})
}

func (s *limiterStore) evictIdle() {
	for {
		select {
		case <-s.done:
			return
		case now := <-s.ticker.C:
			s.mu.Lock()
			for addr, entry := range s.limiters {
				if now.Sub(entry.lastSeen) > s.idleTTL {
					delete(s.limiters, addr)
				}
			}
			s.mu.Unlock()
		}
	}
}

// allow reports whether addr may make another request now.
func (s *limiterStore) allow(addr string) bool {
	s.mu.Lock()
	entry, ok := s.limiters[addr]
	if !ok {
		interval := time.Minute / time.Duration(s.requestsPerMinute)
		entry = &limiterEntry{limiter: rate.NewLimiter(rate.Every(interval), s.requestsPerMinute)}
		s.limiters[addr] = entry
	}
	entry.lastSeen = time.Now()
	s.mu.Unlock()

	return entry.limiter.Allow()
}

// clientAddr returns the request's remote host. middleware.RealIP has
// already applied X-Forwarded-For and X-Real-IP.
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// rateLimit rejects requests over the per-address budget with 429.
func rateLimit(store *limiterStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !store.allow(clientAddr(r)) {
				w.Header().Set("Retry-After", "60")
				writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded, please try again later"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
