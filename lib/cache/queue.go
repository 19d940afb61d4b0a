package cache

import (
	"container/heap"
	"strconv"
)

// queueItem is one cache entry waiting to be purged
type queueItem struct {
	Key      string // entry file name
	Priority int64  // modification time in unix nanoseconds
	Size     int64
	index    int
}

func (i *queueItem) String() string {
	return "{Key: " + i.Key + ", Priority: " + strconv.FormatInt(i.Priority, 10) + "}"
}

// purgeQueue is a min-heap of cache entries ordered by age with key based
// access. It is not safe for concurrent use; the cache only builds it while
// holding the exclusive lock on the size accounting file.
type purgeQueue struct {
	items    []*queueItem
	itemsMap map[string]*queueItem
}

func newPurgeQueue() *purgeQueue {
	return &purgeQueue{
		items:    make([]*queueItem, 0),
		itemsMap: make(map[string]*queueItem),
	}
}

// Len returns the number of queued entries (part of heap.Interface)
func (q *purgeQueue) Len() int { return len(q.items) }

// Less orders the oldest entry first (part of heap.Interface)
func (q *purgeQueue) Less(i, j int) bool {
	return q.items[i].Priority < q.items[j].Priority
}

// Swap exchanges entries at positions i and j (part of heap.Interface)
func (q *purgeQueue) Swap(i, j int) {
	q.items[i], q.items[j] = q.items[j], q.items[i]
	q.items[i].index = i
	q.items[j].index = j
}

// Push adds an entry (part of heap.Interface)
func (q *purgeQueue) Push(x interface{}) {
	it := x.(*queueItem)
	it.index = len(q.items)
	q.items = append(q.items, it)
	q.itemsMap[it.Key] = it
}

// Pop removes and returns the oldest entry (part of heap.Interface)
func (q *purgeQueue) Pop() interface{} {
	old := q.items
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	it.index = -1
	q.items = old[:n-1]
	delete(q.itemsMap, it.Key)
	return it
}

// AddItem queues an entry or updates the age of a queued one
func (q *purgeQueue) AddItem(key string, priority, size int64) {
	if it, exists := q.itemsMap[key]; exists {
		it.Priority = priority
		it.Size = size
		heap.Fix(q, it.index)
		return
	}
	heap.Push(q, &queueItem{Key: key, Priority: priority, Size: size})
}

// PopOldest removes and returns the oldest entry
func (q *purgeQueue) PopOldest() (*queueItem, bool) {
	if len(q.items) == 0 {
		return nil, false
	}
	return heap.Pop(q).(*queueItem), true
}

// RemoveByKey removes an entry by its name
func (q *purgeQueue) RemoveByKey(key string) bool {
	it, exists := q.itemsMap[key]
	if !exists {
		return false
	}
	heap.Remove(q, it.index)
	return true
}

// Peek returns the oldest entry without removing it
func (q *purgeQueue) Peek() (*queueItem, bool) {
	if len(q.items) == 0 {
		return nil, false
	}
	return q.items[0], true
}

// Contains checks if an entry is queued
func (q *purgeQueue) Contains(key string) bool {
	_, exists := q.itemsMap[key]
	return exists
}
