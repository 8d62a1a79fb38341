package queue

import "sync"

// Defaults matching the cloud protocol's message sizing.
const (
	// DefaultCapacity is the number of slots per direction.
	DefaultCapacity = 8

	// DefaultMaxSize is the largest payload a slot holds, in bytes.
	// Payloads of DefaultMaxSize or more are truncated to DefaultMaxSize-1.
	DefaultMaxSize = 2048
)

// Interface tags the transport a message arrived on or is bound for.
type Interface uint8

// Known interfaces.
const (
	InterfaceUnknown Interface = iota
	InterfaceWebSocket
)

// String returns the interface name.
func (i Interface) String() string {
	switch i {
	case InterfaceWebSocket:
		return "websocket"
	default:
		return "unknown"
	}
}

// Message is a queued payload. Data is owned by the caller once returned.
type Message struct {
	Interface Interface
	Data      []byte
}

// Stats holds queue counters.
type Stats struct {
	Length    int
	Capacity  int
	Pushed    uint64
	Popped    uint64
	Dropped   uint64 // pushes rejected because the queue was full
	Truncated uint64 // pushes shortened to the slot size
}

type slot struct {
	iface Interface
	n     int
	buf   []byte
}

// Queue is a bounded FIFO ring of fixed-size slots.
//
// Thread Safety:
//   - All methods are safe for concurrent use by one or more producers and consumers.
type Queue struct {
	mu      sync.Mutex
	slots   []slot
	maxSize int
	head    int // next slot to pop
	tail    int // next slot to push
	count   int

	pushed    uint64
	popped    uint64
	dropped   uint64
	truncated uint64
}

// New creates a queue with the given slot count and slot size.
// Non-positive arguments fall back to DefaultCapacity and DefaultMaxSize.
func New(capacity, maxSize int) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if maxSize <= 1 {
		maxSize = DefaultMaxSize
	}

	slots := make([]slot, capacity)
	for i := range slots {
		slots[i].buf = make([]byte, maxSize)
	}

	return &Queue{
		slots:   slots,
		maxSize: maxSize,
	}
}

// Push copies data into the next free slot.
//
// Returns ErrFull when every slot is in use (the message is dropped) and
// ErrEmptyMessage for zero-length data. Data of maxSize bytes or more is
// truncated to maxSize-1 bytes.
func (q *Queue) Push(iface Interface, data []byte) error {
	if len(data) == 0 {
		return ErrEmptyMessage
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == len(q.slots) {
		q.dropped++
		return ErrFull
	}

	n := len(data)
	if n >= q.maxSize {
		n = q.maxSize - 1
		q.truncated++
	}

	s := &q.slots[q.tail]
	s.iface = iface
	s.n = copy(s.buf, data[:n])

	q.tail = (q.tail + 1) % len(q.slots)
	q.count++
	q.pushed++
	return nil
}

// Pop removes and returns the oldest message.
func (q *Queue) Pop() (Message, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == 0 {
		return Message{}, ErrEmpty
	}

	msg := q.slots[q.head].message()
	q.slots[q.head].n = 0
	q.head = (q.head + 1) % len(q.slots)
	q.count--
	q.popped++
	return msg, nil
}

// Peek returns the oldest message without removing it.
func (q *Queue) Peek() (Message, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == 0 {
		return Message{}, ErrEmpty
	}
	return q.slots[q.head].message(), nil
}

func (s *slot) message() Message {
	data := make([]byte, s.n)
	copy(data, s.buf[:s.n])
	return Message{Interface: s.iface, Data: data}
}

// Len returns the number of queued messages.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Cap returns the slot count.
func (q *Queue) Cap() int {
	return len(q.slots)
}

// MaxSize returns the slot size in bytes.
func (q *Queue) MaxSize() int {
	return q.maxSize
}

// IsEmpty reports whether the queue holds no messages.
func (q *Queue) IsEmpty() bool {
	return q.Len() == 0
}

// IsFull reports whether every slot is in use.
func (q *Queue) IsFull() bool {
	return q.Len() == len(q.slots)
}

// Clear discards all queued messages.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i := range q.slots {
		q.slots[i].n = 0
	}
	q.head, q.tail, q.count = 0, 0, 0
}

// Stats returns a snapshot of the queue counters.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()

	return Stats{
		Length:    q.count,
		Capacity:  len(q.slots),
		Pushed:    q.pushed,
		Popped:    q.popped,
		Dropped:   q.dropped,
		Truncated: q.truncated,
	}
}
