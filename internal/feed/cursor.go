// Package feed reconciles a push change channel with a fallback polling loop
// into one ordered, deduplicated stream of order deltas per consumer.
package feed

import (
	"sort"
	"time"

	"github.com/YelzhanWeb/foodtruck/internal/domain"
)

type Source string

const (
	SourcePush   Source = "push"
	SourcePoll   Source = "poll"
	SourceResync Source = "resync"
)

// Delta is one (orderId, updatedAt, payload) change from either source.
type Delta struct {
	OrderID   string
	UpdatedAt time.Time
	Order     *domain.Order
	Source    Source
}

// Cursor is the per-subscriber watermark: the last UpdatedAt delivered for each order.
type Cursor struct {
	last map[string]time.Time
}

func NewCursor() *Cursor {
	return &Cursor{last: make(map[string]time.Time)}
}

// Merge orders a batch by UpdatedAt and returns only the deltas strictly newer
// than what was already delivered for their order, advancing the watermark.
// The input slice is not modified.
func (c *Cursor) Merge(batch []Delta) []Delta {
	sorted := make([]Delta, len(batch))
	copy(sorted, batch)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].UpdatedAt.Before(sorted[j].UpdatedAt)
	})

	var out []Delta
	for _, d := range sorted {
		if last, ok := c.last[d.OrderID]; ok && !d.UpdatedAt.After(last) {
			continue
		}
		c.last[d.OrderID] = d.UpdatedAt
		out = append(out, d)
	}
	return out
}

// Last returns the watermark for id.
func (c *Cursor) Last(id string) (time.Time, bool) {
	t, ok := c.last[id]
	return t, ok
}
