// Package eventbus moves domain events from the command handlers to their
// downstream consumers.
//
// AsyncBus queues events in-process for the single-binary server and
// dispatches them from its own goroutine. RedisBus appends events to a
// Redis stream; Consumer reads that stream through a consumer group and
// hands each event to a Dispatcher, acknowledging only the entries whose
// handlers succeeded. MemoryBus only records events, for tests.
package eventbus
