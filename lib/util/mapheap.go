package util

import (
	"container/heap"
	"strconv"
)

// Item is an entry of a MapHeap: a uint64 key ordered by an int64 priority
type Item struct {
	Key      uint64 // Unique identifier for the item (e.g. a request id)
	Priority int64  // Ordering value, lowest first (e.g. a deadline in unix nanoseconds)
	index    int    // Index in the heap, maintained by the heap package
}

func (i *Item) String() string {
	return "{Key: " + strconv.FormatUint(i.Key, 10) + ", Priority: " + strconv.FormatInt(i.Priority, 10) + "}"
}

// MapHeap is a min-heap of items that can also be addressed by key.
//
// Priority operations (Add, PopMin, Remove) are O(log n), key lookups are O(1).
// The deadline scheduler uses it to find the next request to expire while
// still being able to drop a request by id once it is resolved.
//
// Thread-safety: MapHeap is not thread-safe, callers must synchronize access.
type MapHeap struct {
	h heapItems
}

// NewMapHeap creates an empty MapHeap
func NewMapHeap() *MapHeap {
	return &MapHeap{
		h: heapItems{
			items:    make([]*Item, 0),
			itemsMap: make(map[uint64]*Item),
		},
	}
}

// --------------------------------------------------------------------------
// Public Methods
// --------------------------------------------------------------------------

// Len returns the number of items
func (m *MapHeap) Len() int { return m.h.Len() }

// AddItem adds a new item or updates the priority of an existing one.
// It returns true if the item is now the minimum of the heap.
func (m *MapHeap) AddItem(key uint64, priority int64) bool {
	if it, exists := m.h.itemsMap[key]; exists {
		it.Priority = priority
		heap.Fix(&m.h, it.index)
		return it.index == 0
	}

	it := &Item{
		Key:      key,
		Priority: priority,
	}
	heap.Push(&m.h, it)
	return it.index == 0
}

// RemoveByKey removes the item with the given key and returns its priority
func (m *MapHeap) RemoveByKey(key uint64) (int64, bool) {
	it, exists := m.h.itemsMap[key]
	if !exists {
		return 0, false
	}
	heap.Remove(&m.h, it.index)
	return it.Priority, true
}

// Peek returns the item with the lowest priority without removing it
func (m *MapHeap) Peek() (Item, bool) {
	if len(m.h.items) == 0 {
		return Item{}, false
	}
	return *m.h.items[0], true
}

// PopMin removes and returns the item with the lowest priority
func (m *MapHeap) PopMin() (Item, bool) {
	if len(m.h.items) == 0 {
		return Item{}, false
	}
	it := heap.Pop(&m.h).(*Item)
	return *it, true
}

// Contains checks if a key exists
func (m *MapHeap) Contains(key uint64) bool {
	_, exists := m.h.itemsMap[key]
	return exists
}

// GetByKey returns the item for key without removing it
func (m *MapHeap) GetByKey(key uint64) (Item, bool) {
	it, exists := m.h.itemsMap[key]
	if !exists {
		return Item{}, false
	}
	return *it, true
}

// Clear removes all items
func (m *MapHeap) Clear() {
	for i := range m.h.items {
		m.h.items[i] = nil
	}
	m.h.items = m.h.items[:0]
	clear(m.h.itemsMap)
}

// --------------------------------------------------------------------------
// heap.Interface implementation
// --------------------------------------------------------------------------

type heapItems struct {
	items    []*Item          // The actual heap slice
	itemsMap map[uint64]*Item // Map for O(1) access by key
}

func (h *heapItems) Len() int { return len(h.items) }

func (h *heapItems) Less(i, j int) bool {
	return h.items[i].Priority < h.items[j].Priority
}

func (h *heapItems) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	h.items[i].index = i
	h.items[j].index = j
}

func (h *heapItems) Push(x interface{}) {
	it := x.(*Item)
	it.index = len(h.items)
	h.items = append(h.items, it)
	h.itemsMap[it.Key] = it
}

func (h *heapItems) Pop() interface{} {
	old := h.items
	n := len(old)
	it := old[n-1]
	old[n-1] = nil // Avoid memory leak
	it.index = -1
	h.items = old[:n-1]
	delete(h.itemsMap, it.Key)
	return it
}
