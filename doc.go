// Package tinycoro is a cooperative, stackful coroutine scheduler.
//
// A [Scheduler] multiplexes many coroutines onto the one goroutine that
// drives it. Each coroutine owns a page-aligned stack reservation from an
// [Allocator] and an execution context from a [Backend]; the scheduler
// dispatches the head of a FIFO run-queue by swapping into its context,
// and the coroutine returns control by yielding, blocking, or
// terminating. Nothing is ever preempted: a coroutine runs until it gives
// control back.
//
// # Spawning And Joining
//
// [Scheduler.Spawn] creates a coroutine from an [Entry] function and
// queues it. [Scheduler.RunUntilIdle] drains the queue, servicing
// coroutines round-robin in spawn order. Once a coroutine reaches a
// terminal state, [Scheduler.Join] returns its value — or its captured
// failure. A coroutine that panics fails alone; the scheduler and every
// other coroutine keep going.
//
// # Yielding And Waking
//
// Inside an entry function, [Coroutine.Yield] suspends the coroutine and
// re-queues it at the tail. A [Channel] suspends coroutines until data
// arrives, with rendezvous, single-slot, or bounded-queue capacity; a
// [Signal] or [WaitGroup] suspends them until a notification. A blocked
// coroutine leaves the run-queue entirely and is re-queued at the moment
// something wakes it, so wake order is service order.
//
// # Scheduling Domains
//
// One Scheduler and its coroutines form a single-threaded scheduling
// domain: no locks are taken inside a domain, and exactly one coroutine
// (or the scheduler itself) executes at any instant. Multiple independent
// Schedulers may run on separate goroutines or OS threads. They share no
// state; a [Mailbox], which deep-copies every message, is the sanctioned
// way to pass data between domains.
//
// # Backends
//
// The context-switching primitives and the stack allocator are both
// injectable. The default [Backend] parks and unparks goroutines with a
// strict token handoff; the default [Allocator] maps guard-paged stack
// regions on unix. Embedders with their own notion of machine context or
// stack memory supply their own implementations through [Config].
package tinycoro
