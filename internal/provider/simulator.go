package provider

import (
	"context"
	"math/rand/v2"
	"strings"
	"sync"
	"time"
)

const textAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz "

// Simulation describes how a simulated provider behaves.
type Simulation struct {
	MinLatency time.Duration
	MaxLatency time.Duration
	// With probability SlowChance latency is drawn from [SlowMinLatency, SlowMaxLatency] instead.
	SlowChance     float64
	SlowMinLatency time.Duration
	SlowMaxLatency time.Duration

	FailureChance   float64
	RateLimitChance float64
	MinRetryAfter   time.Duration
	MaxRetryAfter   time.Duration
}

// simulator draws latencies, failures and response text. It is safe for concurrent use.
type simulator struct {
	cfg Simulation

	mu  sync.Mutex
	rnd *rand.Rand
}

func newSimulator(cfg Simulation, src rand.Source) *simulator {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &simulator{cfg: cfg, rnd: rand.New(src)}
}

func (s *simulator) chance(p float64) bool {
	if p <= 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.Float64() < p
}

func (s *simulator) between(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo + time.Duration(s.rnd.Int64N(int64(hi-lo)+1))
}

func (s *simulator) latency() time.Duration {
	if s.cfg.SlowChance > 0 && s.chance(s.cfg.SlowChance) {
		return s.between(s.cfg.SlowMinLatency, s.cfg.SlowMaxLatency)
	}
	return s.between(s.cfg.MinLatency, s.cfg.MaxLatency)
}

// wait sleeps for a simulated latency, returning early when ctx is done.
func (s *simulator) wait(ctx context.Context) (time.Duration, error) {
	d := s.latency()
	if d <= 0 {
		return 0, ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return d, ctx.Err()
	case <-t.C:
		return d, nil
	}
}

func (s *simulator) failed() bool { return s.chance(s.cfg.FailureChance) }

func (s *simulator) rateLimited() (time.Duration, bool) {
	if !s.chance(s.cfg.RateLimitChance) {
		return 0, false
	}
	return s.between(s.cfg.MinRetryAfter, s.cfg.MaxRetryAfter), true
}

// text returns 20 to 100 random letters and spaces.
func (s *simulator) text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 20 + s.rnd.IntN(81)
	var b strings.Builder
	b.Grow(n)
	for range n {
		b.WriteByte(textAlphabet[s.rnd.IntN(len(textAlphabet))])
	}
	return b.String()
}
