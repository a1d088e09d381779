package deadline

import "time"

type Item[T any] struct {
	Value   T
	at      time.Time
	indexP1 uint // index plus 1 - if zero, the item is not queued
}

func (it *Item[T]) Deadline() time.Time {
	return it.at
}

func (it *Item[T]) Queued() bool {
	return it != nil && it.indexP1 > 0
}

func (it *Item[T]) index() uint {
	return it.indexP1 - 1
}
