package vulkan

import (
	"sync"

	vk "github.com/goki/vulkan"
)

// QueueLocks serializes submissions per queue family. Graphics and present
// may share a family, in which case they share a lock too.
type QueueLocks struct {
	mu     sync.Mutex
	queues map[uint32]*sync.Mutex
}

func NewQueueLocks() *QueueLocks {
	return &QueueLocks{
		queues: make(map[uint32]*sync.Mutex),
	}
}

func (q *QueueLocks) lockFor(family uint32) *sync.Mutex {
	q.mu.Lock()
	defer q.mu.Unlock()

	l, ok := q.queues[family]
	if !ok {
		l = &sync.Mutex{}
		q.queues[family] = l
	}
	return l
}

// Do runs fn while holding the lock for the given queue family.
func (q *QueueLocks) Do(family uint32, fn func() vk.Result) vk.Result {
	l := q.lockFor(family)
	l.Lock()
	defer l.Unlock()
	return fn()
}
