package rain

import "sync"

// QueueMode controls what Recycle does with a message
type QueueMode int

const (
	// Closed queues put recycled messages back, so content repeats forever
	Closed QueueMode = iota
	// Open queues drop recycled messages and drain to empty
	Open
)

func (m QueueMode) String() string {
	if m == Open {
		return "open"
	}
	return "closed"
}

// ParseQueueMode reads "open" or "closed"; anything else is closed
func ParseQueueMode(s string) QueueMode {
	if s == "open" {
		return Open
	}
	return Closed
}

// Queue is a FIFO of pending messages.
// It is the only structure shared between the render loop and feeds.
type Queue struct {
	mu    sync.Mutex
	items []Message
	mode  QueueMode
}

// NewQueue creates an empty queue
func NewQueue(mode QueueMode) *Queue {
	return &Queue{mode: mode}
}

// Mode returns the recycle mode
func (q *Queue) Mode() QueueMode {
	return q.mode
}

// Push appends messages to the back
func (q *Queue) Push(msgs ...Message) {
	if len(msgs) == 0 {
		return
	}
	q.mu.Lock()
	q.items = append(q.items, msgs...)
	q.mu.Unlock()
}

// Pop removes the front message. ok is false when the queue is empty.
func (q *Queue) Pop() (msg Message, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return Message{}, false
	}
	msg = q.items[0]
	q.items[0] = Message{}
	q.items = q.items[1:]
	return msg, true
}

// Recycle hands back a popped message. Closed queues re-append it.
func (q *Queue) Recycle(msg Message) {
	if q.mode == Open {
		return
	}
	q.Push(msg)
}

// Upsert replaces queued messages that share a title with the new version
// and appends the ones not queued yet. Duplicate titles collapse into one,
// so periodic refreshes of a closed queue do not grow it.
func (q *Queue) Upsert(msgs ...Message) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, msg := range msgs {
		found := false
		kept := q.items[:0]
		for _, it := range q.items {
			if it.Title != msg.Title {
				kept = append(kept, it)
				continue
			}
			if !found {
				kept = append(kept, msg)
				found = true
			}
		}
		clear(q.items[len(kept):])
		q.items = kept
		if !found {
			q.items = append(q.items, msg)
		}
	}
}

// Len returns the number of pending messages
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
