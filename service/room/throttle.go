package room

import (
	"hash/fnv"
	"sync"
	"time"
)

const gateShards = 32

// GateConf configures the cursor throttle gate.
type GateConf struct {
	Interval   time.Duration    // min gap between forwarded updates per key (default 16ms)
	SweepEvery time.Duration    // background sweep period (default 60s)
	StaleAfter time.Duration    // idle entries older than this are swept (default 5m)
	Clock      func() time.Time // injectable clock for tests; nil => time.Now
}

func (c *GateConf) norm() {
	if c.Interval <= 0 {
		c.Interval = 16 * time.Millisecond
	}
	if c.SweepEvery <= 0 {
		c.SweepEvery = 60 * time.Second
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = 5 * time.Minute
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
}

type gateKey struct {
	room string
	user string
}

// Gate is the keyed rate limiter in front of high-frequency ephemeral
// signals (cursor, selection). Keys are spread over fixed shards; a
// read-modify-write on one key is atomic under its shard lock, and the
// background sweep holds only one shard lock at a time. Comparisons use
// time.Time values from the injected clock — time.Now carries a monotonic
// reading, so wall-clock adjustments never skew the decision.
type Gate struct {
	conf     GateConf
	shards   [gateShards]*gateShard
	stopCh   chan struct{}
	stopOnce sync.Once
}

type gateShard struct {
	mu   sync.Mutex
	last map[gateKey]time.Time // last allowed update per key
}

// NewGate starts the sweeper goroutine; Close stops it.
func NewGate(conf GateConf) *Gate {
	conf.norm()
	g := &Gate{
		conf:   conf,
		stopCh: make(chan struct{}),
	}
	for i := range g.shards {
		g.shards[i] = &gateShard{last: make(map[gateKey]time.Time)}
	}
	go g.sweeper()
	return g
}

func (g *Gate) shard(k gateKey) *gateShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(k.room))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(k.user))
	return g.shards[h.Sum32()%gateShards]
}

// Allow decides with the gate's own clock.
func (g *Gate) Allow(roomID, userID string) bool {
	return g.AllowAt(roomID, userID, g.conf.Clock())
}

// AllowAt returns true and records now when the key is fresh or the interval
// has elapsed; otherwise false without mutating state.
func (g *Gate) AllowAt(roomID, userID string, now time.Time) bool {
	k := gateKey{room: roomID, user: userID}
	s := g.shard(k)
	s.mu.Lock()
	defer s.mu.Unlock()

	last, ok := s.last[k]
	if ok && now.Sub(last) < g.conf.Interval {
		return false
	}
	s.last[k] = now
	return true
}

// Cleanup removes one key; idempotent.
func (g *Gate) Cleanup(roomID, userID string) {
	k := gateKey{room: roomID, user: userID}
	s := g.shard(k)
	s.mu.Lock()
	delete(s.last, k)
	s.mu.Unlock()
}

// CleanupRoom removes every key of a torn-down room.
func (g *Gate) CleanupRoom(roomID string) {
	for _, s := range g.shards {
		s.mu.Lock()
		for k := range s.last {
			if k.room == roomID {
				delete(s.last, k)
			}
		}
		s.mu.Unlock()
	}
}

// Sweep deletes entries whose last allowed update is older than staleAfter,
// scanning shard by shard so a concurrent Allow is never blocked for longer
// than one shard's scan. Entries refreshed concurrently survive: the check
// is per key against its current value, never a blanket clear.
func (g *Gate) Sweep(staleAfter time.Duration) int {
	return g.sweepAt(staleAfter, g.conf.Clock())
}

func (g *Gate) sweepAt(staleAfter time.Duration, now time.Time) int {
	n := 0
	for _, s := range g.shards {
		s.mu.Lock()
		for k, last := range s.last {
			if now.Sub(last) >= staleAfter {
				delete(s.last, k)
				n++
			}
		}
		s.mu.Unlock()
	}
	return n
}

// Len reports the live entry count (tests, stats).
func (g *Gate) Len() int {
	n := 0
	for _, s := range g.shards {
		s.mu.Lock()
		n += len(s.last)
		s.mu.Unlock()
	}
	return n
}

func (g *Gate) sweeper() {
	t := time.NewTicker(g.conf.SweepEvery)
	defer t.Stop()
	for {
		select {
		case <-g.stopCh:
			return
		case <-t.C:
			g.Sweep(g.conf.StaleAfter)
		}
	}
}

func (g *Gate) Close() {
	g.stopOnce.Do(func() { close(g.stopCh) })
}
