package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"review_insights/internal/adapters/observability"
	"review_insights/internal/domain"
)

// Published is one consistent view: the stats and the exact records they were
// computed from.
type Published struct {
	Records []domain.ReviewRecord
	Stats   domain.AggregateStats
	At      time.Time
}

// ErrStopped is returned for mutations that can no longer be applied because
// Run has returned.
var ErrStopped = errors.New("refresh controller stopped")

type mutationKind int

const (
	mutAppend mutationKind = iota
	mutReplace
)

type mutation struct {
	kind    mutationKind
	records []domain.ReviewRecord
	token   uint64
	done    chan bool // true when applied; buffered
}

// RefreshController serializes every mutation of the ReviewCollection on one
// goroutine (Run) and publishes a fresh AggregateStats after each batch of
// mutations. Readers on other goroutines only ever see whole Published values.
type RefreshController struct {
	coll    *ReviewCollection
	muts    chan mutation
	current atomic.Pointer[Published]
	token   atomic.Uint64
	now     func() time.Time

	stopOnce sync.Once
	stopped  chan struct{} // closed when Run returns

	mu     sync.Mutex // guards subs
	subs   map[int]chan domain.AggregateStats
	nextID int
}

func NewRefreshController(coll *ReviewCollection) *RefreshController {
	if coll == nil {
		coll = NewReviewCollection()
	}
	c := &RefreshController{
		coll: coll,
		muts: make(chan mutation, 64),
		now:     time.Now,
		stopped: make(chan struct{}),
		subs:    map[int]chan domain.AggregateStats{},
	}
	snap := coll.Snapshot()
	c.current.Store(&Published{Records: snap, Stats: Recompute(snap), At: c.now()})
	return c
}

// Run owns the collection until ctx is done. Mutations queued while a batch is
// being handled are folded into that batch and recomputed once. Run must be
// called at most once.
func (c *RefreshController) Run(ctx context.Context) error {
	defer c.stopOnce.Do(func() { close(c.stopped) })
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m := <-c.muts:
			batch := []mutation{m}
		drain:
			for {
				select {
				case next := <-c.muts:
					batch = append(batch, next)
				default:
					break drain
				}
			}

			applied := make([]bool, len(batch))
			changed := false
			for i, m := range batch {
				applied[i] = c.apply(m)
				changed = changed || applied[i]
			}
			if changed {
				c.recompute()
			}
			for i, m := range batch {
				m.done <- applied[i]
			}
		}
	}
}

func (c *RefreshController) apply(m mutation) bool {
	switch m.kind {
	case mutAppend:
		for _, r := range m.records {
			c.coll.Append(r)
		}
		return len(m.records) > 0
	case mutReplace:
		if latest := c.token.Load(); m.token != latest {
			log.Info().
				Uint64("token", m.token).
				Uint64("latest", latest).
				Msg("discarding superseded fetch")
			return false
		}
		c.coll.Replace(m.records)
		return true
	}
	return false
}

func (c *RefreshController) recompute() {
	start := time.Now()
	snap := c.coll.Snapshot()
	stats := Recompute(snap)
	observability.ObserveRecompute(stats.TotalReviews, stats.AverageRating, time.Since(start))

	c.current.Store(&Published{Records: snap, Stats: stats, At: c.now()})
	log.Debug().
		Int("total", stats.TotalReviews).
		Float64("average", stats.AverageRating).
		Msg("stats recomputed")

	c.mu.Lock()
	for _, ch := range c.subs {
		offerLatest(ch, stats)
	}
	c.mu.Unlock()
}

// offerLatest replaces whatever the subscriber has not consumed yet with s.
func offerLatest(ch chan domain.AggregateStats, s domain.AggregateStats) {
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- s:
	default:
	}
}

// IssueToken starts a fetch. Only a replacement carrying the most recently
// issued token is applied.
func (c *RefreshController) IssueToken() uint64 { return c.token.Add(1) }

// Append queues records to be appended and waits until they are reflected in
// Current.
func (c *RefreshController) Append(ctx context.Context, rs ...domain.ReviewRecord) error {
	_, err := c.submit(ctx, mutation{kind: mutAppend, records: rs})
	return err
}

// Replace installs rs as the full collection if token is still the latest
// issued one; otherwise it returns domain.ErrSuperseded and changes nothing.
func (c *RefreshController) Replace(ctx context.Context, token uint64, rs []domain.ReviewRecord) error {
	ok, err := c.submit(ctx, mutation{kind: mutReplace, records: rs, token: token})
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrSuperseded
	}
	return nil
}

// submit gives up on ctx only while the queue is full. Once queued, m will be
// applied, so the caller waits for the outcome and reports it truthfully.
func (c *RefreshController) submit(ctx context.Context, m mutation) (bool, error) {
	m.done = make(chan bool, 1)
	select {
	case <-c.stopped:
		return false, ErrStopped
	default:
	}
	select {
	case c.muts <- m:
	default:
		select {
		case c.muts <- m:
		case <-ctx.Done():
			return false, ctx.Err()
		case <-c.stopped:
			return false, ErrStopped
		}
	}
	select {
	case ok := <-m.done:
		return ok, nil
	case <-c.stopped:
		// Run may have finished the batch holding m just before returning.
		select {
		case ok := <-m.done:
			return ok, nil
		default:
			return false, ErrStopped
		}
	}
}

// Current returns the last published view.
func (c *RefreshController) Current() Published { return *c.current.Load() }

// Subscribe returns a channel that always holds the newest stats not yet
// read, starting with the current ones. cancel stops delivery.
func (c *RefreshController) Subscribe() (<-chan domain.AggregateStats, func()) {
	ch := make(chan domain.AggregateStats, 1)
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = ch
	ch <- c.current.Load().Stats
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
		})
	}
}
