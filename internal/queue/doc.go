// Package queue provides the fixed-capacity message rings that hand data
// between the transport's network goroutine and the application polling
// loop.
//
// Capacity is a policy, not an implementation detail: a full queue rejects
// the push instead of blocking or growing, so memory use is known up front.
// Slot buffers are allocated once by New and reused for the lifetime of
// the queue.
//
// Every mutation happens inside one short mutex section; Push, Pop and
// Peek never block on I/O.
package queue
