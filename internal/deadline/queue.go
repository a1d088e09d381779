// Package deadline keeps items ordered by the instant they become due.
package deadline

import (
	"fmt"
	"iter"
	"time"
)

// Queue is a min-heap of items keyed by deadline. Ties are not ordered.
// It is not safe for concurrent use.
type Queue[T any] struct {
	s []*Item[T]
}

func (q *Queue[T]) Len() int {
	return len(q.s)
}

func (q *Queue[T]) ulen() uint {
	return uint(len(q.s))
}

func (q *Queue[T]) Clear() {
	for _, it := range q.s {
		it.indexP1 = 0
	}
	clear(q.s)
	q.s = q.s[:0]
}

func (q *Queue[T]) Push(at time.Time, value T) *Item[T] {
	it := &Item[T]{
		Value:   value,
		at:      at,
		indexP1: q.ulen() + 1,
	}
	q.s = append(q.s, it)
	q.up(it)
	return it
}

// First returns the item with the earliest deadline, or nil if the queue is empty.
func (q *Queue[T]) First() *Item[T] {
	if len(q.s) == 0 {
		return nil
	}
	return q.s[0]
}

func (q *Queue[T]) Reschedule(it *Item[T], at time.Time) {
	q.check(it)
	it.at = at
	if !q.down(it) {
		q.up(it)
	}
}

func (q *Queue[T]) Remove(it *Item[T]) {
	q.check(it)
	n := q.ulen() - 1
	i := it.index()
	var last *Item[T]
	if i != n {
		// move the last element into the hole
		last = q.s[n]
		last.indexP1 = i + 1
		q.s[i] = last
	}
	it.indexP1 = 0
	q.s[n] = nil
	q.s = q.s[:n]
	if last != nil && !q.down(last) {
		q.up(last)
	}
}

// Due removes and yields, in deadline order, every item whose deadline is not after now.
func (q *Queue[T]) Due(now time.Time) iter.Seq[*Item[T]] {
	return func(yield func(*Item[T]) bool) {
		for {
			it := q.First()
			if it == nil || now.Before(it.at) {
				return
			}
			q.Remove(it)
			if !yield(it) {
				return
			}
		}
	}
}

// All yields queued items in heap order, not deadline order.
func (q *Queue[T]) All() iter.Seq[*Item[T]] {
	return func(yield func(*Item[T]) bool) {
		for _, it := range q.s {
			if !yield(it) {
				return
			}
		}
	}
}

func (q *Queue[T]) check(it *Item[T]) {
	if !it.Queued() || it.index() >= q.ulen() || q.s[it.index()] != it {
		panic(fmt.Errorf("deadline: item is not in this queue"))
	}
}

func (q *Queue[T]) parent(it *Item[T]) *Item[T] {
	i := it.index()
	if i == 0 {
		return nil
	}
	return q.s[(i-1)/2]
}

func (q *Queue[T]) up(it *Item[T]) bool {
	moved := false
	for {
		p := q.parent(it)
		if p == nil || !it.at.Before(p.at) {
			return moved
		}
		q.swap(p, it)
		moved = true
	}
}

func (q *Queue[T]) children(it *Item[T]) (c1, c2 *Item[T]) {
	i := 2*it.indexP1 - 1 // 2*index + 1
	if i < q.ulen() {
		c1 = q.s[i]
		i++
		if i < q.ulen() {
			c2 = q.s[i]
		}
	}
	return
}

func (q *Queue[T]) down(it *Item[T]) bool {
	moved := false
	for {
		c, c2 := q.children(it)
		if c == nil {
			return moved
		}
		if c2 != nil && c2.at.Before(c.at) {
			c = c2
		}
		if !c.at.Before(it.at) {
			return moved
		}
		q.swap(c, it)
		moved = true
	}
}

func (q *Queue[T]) swap(a, b *Item[T]) {
	a.indexP1, b.indexP1 = b.indexP1, a.indexP1
	q.s[a.indexP1-1] = a
	q.s[b.indexP1-1] = b
}
