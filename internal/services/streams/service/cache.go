package service

import (
	"context"
	"strings"
	"time"

	"github.com/open-sensor-research-platform/osrp/internal/core/streams"
	"github.com/open-sensor-research-platform/osrp/internal/platform/metrics"
	"github.com/open-sensor-research-platform/osrp/internal/services/streams/domain"

	cache "github.com/patrickmn/go-cache"
)

// Cached is a read-through cache in front of a reader for the API, where the
// same participant-day is often asked for sessions, frames and features in turn
// only closed ranges (end in the past) are cached
type Cached struct {
	next    domain.Ports
	cache   *cache.Cache
	metrics *metrics.Metrics
	now     func() time.Time
}

var _ domain.Ports = (*Cached)(nil)

// NewCached wraps next; ttl <= 0 defaults to 5m
func NewCached(next domain.Ports, ttl time.Duration, m *metrics.Metrics) *Cached {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cached{next: next, cache: cache.New(ttl, 2*ttl), metrics: m, now: time.Now}
}

// Read implements domain.ReaderPort
// callers get a shared stream and must not mutate it
func (c *Cached) Read(ctx context.Context, participant string, kind streams.Kind, start, end time.Time) (streams.Stream, error) {
	if !end.Before(c.now()) {
		return c.next.Read(ctx, participant, kind, start, end)
	}
	key := cacheKey(participant, kind, start, end)
	if v, ok := c.cache.Get(key); ok {
		c.metrics.CacheLookup(true)
		return v.(streams.Stream), nil
	}
	c.metrics.CacheLookup(false)
	s, err := c.next.Read(ctx, participant, kind, start, end)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, s, cache.DefaultExpiration)
	return s, nil
}

// ListParticipants passes through; the roster changes as people enroll
func (c *Cached) ListParticipants(ctx context.Context, group string) ([]domain.Participant, error) {
	return c.next.ListParticipants(ctx, group)
}

// Flush drops every cached stream
func (c *Cached) Flush() { c.cache.Flush() }

func cacheKey(participant string, kind streams.Kind, start, end time.Time) string {
	var b strings.Builder
	b.WriteString(participant)
	b.WriteByte('|')
	b.WriteString(string(kind))
	b.WriteByte('|')
	b.WriteString(start.UTC().Format(time.RFC3339Nano))
	b.WriteByte('|')
	b.WriteString(end.UTC().Format(time.RFC3339Nano))
	return b.String()
}
