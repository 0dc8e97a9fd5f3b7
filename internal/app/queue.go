package app

import (
	"context"
	"log"
	"sync"
)

// QueueBackend is a FIFO queue over named lists. Pop and Peek report
// (entry, found, error); an empty list is not an error.
type QueueBackend interface {
	Push(ctx context.Context, list, entry string) error
	Pop(ctx context.Context, list string) (string, bool, error)
	Peek(ctx context.Context, list string) (string, bool, error)
	Len(ctx context.Context, list string) (int, error)
}

// FailoverQueue tries the remote backend first and silently falls back to the
// local one when the remote is unreachable. Entries are not mirrored between
// backends, so reads always fall through to local after a remote miss. The
// fallback decision is made under a mutex so a concurrent push and pop agree
// on which backend a call landed in; no ordering is promised across failover.
type FailoverQueue struct {
	remote QueueBackend // may be nil when redis is not configured
	local  QueueBackend
	mu     sync.Mutex
}

func NewFailoverQueue(remote, local QueueBackend) *FailoverQueue {
	return &FailoverQueue{remote: remote, local: local}
}

// Push enqueues the entry, preferring the remote backend.
func (q *FailoverQueue) Push(ctx context.Context, list, entry string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.remote != nil {
		err := q.remote.Push(ctx, list, entry)
		if err == nil {
			return
		}
		log.Printf("queue %s: remote push failed, keeping entry locally: %v", list, err)
	}
	if err := q.local.Push(ctx, list, entry); err != nil {
		log.Printf("queue %s: local push failed: %v", list, err)
	}
}

// Pop dequeues the oldest entry, checking remote then local.
func (q *FailoverQueue) Pop(ctx context.Context, list string) (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.remote != nil {
		entry, ok, err := q.remote.Pop(ctx, list)
		if err != nil {
			log.Printf("queue %s: remote pop failed, checking local: %v", list, err)
		} else if ok {
			return entry, true
		}
	}
	entry, ok, err := q.local.Pop(ctx, list)
	if err != nil {
		log.Printf("queue %s: local pop failed: %v", list, err)
		return "", false
	}
	return entry, ok
}

// Peek returns the oldest entry without removing it.
func (q *FailoverQueue) Peek(ctx context.Context, list string) (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.remote != nil {
		entry, ok, err := q.remote.Peek(ctx, list)
		if err != nil {
			log.Printf("queue %s: remote peek failed, checking local: %v", list, err)
		} else if ok {
			return entry, true
		}
	}
	entry, ok, err := q.local.Peek(ctx, list)
	if err != nil {
		return "", false
	}
	return entry, ok
}

// Len reports the combined depth of both backends; local only when the
// remote is unreachable.
func (q *FailoverQueue) Len(ctx context.Context, list string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	total := 0
	if q.remote != nil {
		if n, err := q.remote.Len(ctx, list); err != nil {
			log.Printf("queue %s: remote len failed: %v", list, err)
		} else {
			total += n
		}
	}
	if n, err := q.local.Len(ctx, list); err == nil {
		total += n
	}
	return total
}
