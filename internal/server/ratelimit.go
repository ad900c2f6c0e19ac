package server

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/54b3r/pdfqa-go/internal/logging"
)

// Per-client defaults. Uploads embed a whole document, so they get a much
// smaller bucket than questions.
const (
	defaultRateLimit       = 10
	defaultRateBurst       = 20
	defaultUploadRateLimit = 0.2
	defaultUploadRateBurst = 5
)

// clientIdleTTL is how long a client's bucket survives without requests.
const clientIdleTTL = 5 * time.Minute

// sweepInterval is how often idle buckets are dropped.
const sweepInterval = time.Minute

// clientBucket is one client's token bucket.
type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterPool hands out a token bucket per client IP for one class of
// endpoint.
type limiterPool struct {
	mu      sync.Mutex
	clients map[string]*clientBucket
	rps     rate.Limit
	burst   int
	// now is swapped in tests.
	now func() time.Time
}

func newLimiterPool(rps float64, burst int) *limiterPool {
	return &limiterPool{
		clients: make(map[string]*clientBucket),
		rps:     rate.Limit(rps),
		burst:   burst,
		now:     time.Now,
	}
}

// reserve takes a token for ip. When none is available it returns false and
// how long the client should wait before retrying.
func (p *limiterPool) reserve(ip string) (bool, time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	b, ok := p.clients[ip]
	if !ok {
		b = &clientBucket{limiter: rate.NewLimiter(p.rps, p.burst)}
		p.clients[ip] = b
	}
	b.lastSeen = now

	r := b.limiter.ReserveN(now, 1)
	if !r.OK() {
		return false, time.Second
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// sweep drops buckets idle for longer than clientIdleTTL and reports how
// many were dropped.
func (p *limiterPool) sweep() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	cutoff := p.now().Add(-clientIdleTTL)
	dropped := 0
	for ip, b := range p.clients {
		if b.lastSeen.Before(cutoff) {
			delete(p.clients, ip)
			dropped++
		}
	}
	return dropped
}

// size returns the number of tracked clients.
func (p *limiterPool) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.clients)
}

// startSweeper sweeps pools every interval until the returned stop function
// is called. stop is idempotent.
func startSweeper(interval time.Duration, pools ...*limiterPool) (stop func()) {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				for _, p := range pools {
					p.sweep()
				}
			}
		}
	}()
	return sync.OnceFunc(func() { close(done) })
}

// rateLimited rejects requests from clients that have exhausted their bucket
// in pool with 429 and a Retry-After header in whole seconds.
func (s *Server) rateLimited(handler string, pool *limiterPool, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		ok, wait := pool.reserve(ip)
		if ok {
			next.ServeHTTP(w, r)
			return
		}

		s.metrics.rateLimitedTotal.WithLabelValues(handler).Inc()
		logging.FromContext(r.Context()).Warn("rate limit exceeded",
			slog.String("ip", ip),
			slog.String(labelHandler, handler),
			slog.Duration("retry_after", wait),
		)
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(wait)))
		writeJSONError(r.Context(), w, "too many requests, slow down", http.StatusTooManyRequests)
	})
}

// retryAfterSeconds rounds d up to whole seconds, never below one.
func retryAfterSeconds(d time.Duration) int {
	return max(1, int(math.Ceil(d.Seconds())))
}

// clientIP extracts the remote IP from the request, stripping the port.
// X-Forwarded-For is not trusted.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
