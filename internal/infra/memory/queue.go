package memory

import (
	"context"
	"sync"
)

// Queue is the in-process queue backend: mutex-guarded named slices in FIFO
// order. It backs the failover path when redis is unreachable.
type Queue struct {
	mu    sync.Mutex
	lists map[string][]string
}

func NewQueue() *Queue {
	return &Queue{lists: make(map[string][]string)}
}

func (q *Queue) Push(_ context.Context, list, entry string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.lists[list] = append(q.lists[list], entry)
	return nil
}

func (q *Queue) Pop(_ context.Context, list string) (string, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	entries := q.lists[list]
	if len(entries) == 0 {
		return "", false, nil
	}
	entry := entries[0]
	q.lists[list] = entries[1:]
	if len(q.lists[list]) == 0 {
		delete(q.lists, list)
	}
	return entry, true, nil
}

func (q *Queue) Peek(_ context.Context, list string) (string, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	entries := q.lists[list]
	if len(entries) == 0 {
		return "", false, nil
	}
	return entries[0], true, nil
}

func (q *Queue) Len(_ context.Context, list string) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.lists[list]), nil
}
