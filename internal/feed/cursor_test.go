package feed

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func at(sec int) time.Time {
	return t0.Add(time.Duration(sec) * time.Second)
}

func TestCursorMergeDropsDuplicatesAndStale(t *testing.T) {
	c := NewCursor()

	got := c.Merge([]Delta{
		{OrderID: "a", UpdatedAt: at(1), Source: SourcePush},
		{OrderID: "a", UpdatedAt: at(1), Source: SourcePoll},
		{OrderID: "b", UpdatedAt: at(2), Source: SourcePoll},
	})
	assert.Len(t, got, 2)
	assert.Equal(t, SourcePush, got[0].Source, "first arrival of a tie wins")

	got = c.Merge([]Delta{
		{OrderID: "a", UpdatedAt: at(0), Source: SourcePoll},
		{OrderID: "b", UpdatedAt: at(2), Source: SourcePush},
	})
	assert.Empty(t, got)

	got = c.Merge([]Delta{{OrderID: "a", UpdatedAt: at(3), Source: SourcePoll}})
	assert.Len(t, got, 1)
	last, ok := c.Last("a")
	assert.True(t, ok)
	assert.Equal(t, at(3), last)
}

func TestCursorMergeOrdersWithinBatch(t *testing.T) {
	c := NewCursor()
	got := c.Merge([]Delta{
		{OrderID: "a", UpdatedAt: at(5)},
		{OrderID: "a", UpdatedAt: at(3)},
		{OrderID: "a", UpdatedAt: at(4)},
	})
	if assert.Len(t, got, 3) {
		assert.Equal(t, []time.Time{at(3), at(4), at(5)}, []time.Time{got[0].UpdatedAt, got[1].UpdatedAt, got[2].UpdatedAt})
	}
}

// Any interleaving of push and poll deltas, duplicates included, yields a
// strictly increasing UpdatedAt sequence per order.
func TestCursorMergeMonotonicUnderRandomInterleaving(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	ids := []string{"a", "b", "c"}

	for round := 0; round < 200; round++ {
		var all []Delta
		for _, id := range ids {
			for v := 0; v < 6; v++ {
				all = append(all, Delta{OrderID: id, UpdatedAt: at(v), Source: SourcePush})
				all = append(all, Delta{OrderID: id, UpdatedAt: at(v), Source: SourcePoll})
			}
		}
		rng.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })

		c := NewCursor()
		delivered := map[string][]time.Time{}
		for len(all) > 0 {
			n := 1 + rng.Intn(4)
			if n > len(all) {
				n = len(all)
			}
			for _, d := range c.Merge(all[:n]) {
				delivered[d.OrderID] = append(delivered[d.OrderID], d.UpdatedAt)
			}
			all = all[n:]
		}

		for id, seq := range delivered {
			for i := 1; i < len(seq); i++ {
				assert.True(t, seq[i].After(seq[i-1]), "round %d order %s: %v", round, id, seq)
			}
		}
	}
}
